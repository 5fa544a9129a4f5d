package core

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type (
	// Transaction is one spending row of a normalized statement.
	// Calendar fields are derived from Date when the row is built.
	Transaction struct {
		Date        time.Time       `json:"date"`
		Amount      decimal.Decimal `json:"amount"`
		Category    string          `json:"category"`
		Year        int             `json:"year"`
		Month       int             `json:"month"`
		MonthName   string          `json:"month_name"`
		WeekOfMonth int             `json:"week_of_month"`
	}

	// IngestStats counts what happened to the data rows of an upload.
	IngestStats struct {
		RowsRead     int `json:"rows_read"`
		RowsDropped  int `json:"rows_dropped"`
		RowsExcluded int `json:"rows_excluded"`
		RowsKept     int `json:"rows_kept"`
	}

	// Table is the normalized statement owned by a session.
	// Rows keep input order and are never mutated after construction.
	Table struct {
		Rows  []Transaction `json:"rows"`
		Stats IngestStats   `json:"stats"`
	}

	// Period selects one calendar month of one year.
	Period struct {
		Year      int
		MonthName string
	}
)

// Categories that never count as spending, whatever the sign of the amount.
const (
	CategorySavings = "Savings"
	CategoryIncome  = "Income"
)

var (
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrNoData        = errors.New("no statement loaded")
)

// NewTransaction builds a transaction and derives its calendar attributes.
func NewTransaction(date time.Time, amount decimal.Decimal, category string) Transaction {
	return Transaction{
		Date:        date,
		Amount:      amount,
		Category:    category,
		Year:        date.Year(),
		Month:       int(date.Month()),
		MonthName:   date.Month().String(),
		WeekOfMonth: WeekOfMonth(date.Day()),
	}
}

// WeekOfMonth maps a day of month to its week bucket: days 1-7 are week 1,
// 8-14 week 2 and so on, so day 29-31 land in week 5.
func WeekOfMonth(day int) int {
	return (day-1)/7 + 1
}

// IsSpending reports whether the transaction belongs to the spending view.
func (t Transaction) IsSpending() bool {
	if !t.Amount.IsPositive() {
		return false
	}
	switch t.Category {
	case CategorySavings, CategoryIncome:
		return false
	}
	return true
}

// Len returns the number of rows, treating a nil table as empty.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// IsEmpty reports whether the table has no rows.
func (t *Table) IsEmpty() bool {
	return t.Len() == 0
}

// Matches reports whether the transaction falls inside the period.
func (p Period) Matches(t Transaction) bool {
	return t.Year == p.Year && t.MonthName == p.MonthName
}

// IsZero reports whether no period has been selected.
func (p Period) IsZero() bool {
	return p.Year == 0 && p.MonthName == ""
}
