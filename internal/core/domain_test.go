package core

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func day(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func TestWeekOfMonth(t *testing.T) {
	cases := []struct {
		day, week int
	}{
		{1, 1}, {7, 1}, {8, 2}, {14, 2}, {15, 3}, {21, 3}, {22, 4}, {28, 4}, {29, 5}, {31, 5},
	}
	for _, tc := range cases {
		if got := WeekOfMonth(tc.day); got != tc.week {
			t.Fatalf("day %d expected week %d, got %d", tc.day, tc.week, got)
		}
	}
}

func TestNewTransactionDerivesCalendar(t *testing.T) {
	tx := NewTransaction(day(2024, 3, 9), decimal.NewFromInt(12), "Food")
	if tx.Year != 2024 || tx.Month != 3 || tx.MonthName != "March" || tx.WeekOfMonth != 2 {
		t.Fatalf("unexpected derived fields: %+v", tx)
	}
}

func TestIsSpending(t *testing.T) {
	cases := []struct {
		amount   string
		category string
		want     bool
	}{
		{"50", "Food", true},
		{"0.01", "Rent", true},
		{"0", "Food", false},
		{"-30", "Refund", false},
		{"20", "Savings", false},
		{"20", "Income", false},
		{"-20", "Income", false},
		{"20", "savings", true}, // exact match only
		{"20", "", true},
	}
	for i, tc := range cases {
		tx := NewTransaction(day(2024, 1, 1), decimal.RequireFromString(tc.amount), tc.category)
		if got := tx.IsSpending(); got != tc.want {
			t.Fatalf("case %d (%s, %q) expected %v, got %v", i, tc.amount, tc.category, tc.want, got)
		}
	}
}

func TestTableNilSafe(t *testing.T) {
	var tbl *Table
	if tbl.Len() != 0 || !tbl.IsEmpty() {
		t.Fatalf("nil table should be empty")
	}
	tbl = &Table{Rows: []Transaction{NewTransaction(day(2024, 1, 1), decimal.NewFromInt(1), "A")}}
	if tbl.Len() != 1 || tbl.IsEmpty() {
		t.Fatalf("expected one row")
	}
}

func TestPeriodMatches(t *testing.T) {
	p := Period{Year: 2024, MonthName: "January"}
	if !p.Matches(NewTransaction(day(2024, 1, 31), decimal.NewFromInt(1), "A")) {
		t.Fatalf("expected match")
	}
	if p.Matches(NewTransaction(day(2023, 1, 31), decimal.NewFromInt(1), "A")) {
		t.Fatalf("different year must not match")
	}
	if p.Matches(NewTransaction(day(2024, 2, 1), decimal.NewFromInt(1), "A")) {
		t.Fatalf("different month must not match")
	}
	if p.IsZero() || !(Period{}).IsZero() {
		t.Fatalf("IsZero mismatch")
	}
}
