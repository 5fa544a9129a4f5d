package core

import "github.com/shopspring/decimal"

// CategoryTotal is the amount spent in one category of a period.
type CategoryTotal struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
	Share    decimal.Decimal `json:"share"` // percent of the period total, one decimal
	Width    int             `json:"-"`     // bar width relative to the largest category
}

// WeekTotal is the amount spent in one week-of-month bucket of a period.
type WeekTotal struct {
	Week   int             `json:"week"`
	Label  string          `json:"label"`
	Amount decimal.Decimal `json:"amount"`
	Width  int             `json:"-"`
}

// Summary is the aggregate view of a filtered table.
type Summary struct {
	Period           Period          `json:"-"`
	Transactions     int             `json:"transactions"`
	TotalSpent       decimal.Decimal `json:"total_spent"`
	SuggestedSavings decimal.Decimal `json:"suggested_savings"`
	ByCategory       []CategoryTotal `json:"by_category"`
	ByWeek           []WeekTotal     `json:"by_week"`
}
