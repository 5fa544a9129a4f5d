// Package analysis aggregates a filtered statement into the figures shown on
// the dashboard pages.
package analysis

import (
	"cmp"
	"slices"
	"strconv"

	"github.com/shopspring/decimal"

	"spendwise/internal/core"
)

// SavingsRate is the share of spending suggested as savings.
var SavingsRate = decimal.RequireFromString("0.20")

var hundred = decimal.NewFromInt(100)

// Summarize computes totals and groupings for a filtered table. An empty
// table yields zero totals and empty groupings.
func Summarize(t *core.Table) core.Summary {
	s := core.Summary{
		TotalSpent: decimal.Zero,
		ByCategory: []core.CategoryTotal{},
		ByWeek:     []core.WeekTotal{},
	}
	if t == nil {
		s.SuggestedSavings = decimal.Zero
		return s
	}

	byCategory := make(map[string]decimal.Decimal)
	byWeek := make(map[int]decimal.Decimal)
	for _, tx := range t.Rows {
		s.TotalSpent = s.TotalSpent.Add(tx.Amount)
		byCategory[tx.Category] = byCategory[tx.Category].Add(tx.Amount)
		byWeek[tx.WeekOfMonth] = byWeek[tx.WeekOfMonth].Add(tx.Amount)
	}
	s.Transactions = len(t.Rows)
	s.SuggestedSavings = s.TotalSpent.Mul(SavingsRate)

	var maxCategory decimal.Decimal
	for name, amount := range byCategory {
		s.ByCategory = append(s.ByCategory, core.CategoryTotal{Category: name, Amount: amount})
		if amount.GreaterThan(maxCategory) {
			maxCategory = amount
		}
	}
	slices.SortFunc(s.ByCategory, func(a, b core.CategoryTotal) int {
		if c := b.Amount.Cmp(a.Amount); c != 0 {
			return c
		}
		return cmp.Compare(a.Category, b.Category)
	})
	for i := range s.ByCategory {
		c := &s.ByCategory[i]
		c.Share = share(c.Amount, s.TotalSpent)
		c.Width = barWidth(c.Amount, maxCategory)
	}

	var maxWeek decimal.Decimal
	for week, amount := range byWeek {
		s.ByWeek = append(s.ByWeek, core.WeekTotal{Week: week, Label: WeekLabel(week), Amount: amount})
		if amount.GreaterThan(maxWeek) {
			maxWeek = amount
		}
	}
	slices.SortFunc(s.ByWeek, func(a, b core.WeekTotal) int {
		return cmp.Compare(a.Week, b.Week)
	})
	for i := range s.ByWeek {
		s.ByWeek[i].Width = barWidth(s.ByWeek[i].Amount, maxWeek)
	}
	return s
}

// WeekLabel is the display label of a week-of-month bucket.
func WeekLabel(week int) string {
	return "Week " + strconv.Itoa(week)
}

// SortedByDate returns the rows ordered by ascending date. Rows sharing a
// date keep their input order.
func SortedByDate(t *core.Table) []core.Transaction {
	if t == nil {
		return nil
	}
	out := slices.Clone(t.Rows)
	slices.SortStableFunc(out, func(a, b core.Transaction) int {
		return a.Date.Compare(b.Date)
	})
	return out
}

// share is amount as a percentage of total, rounded to one decimal.
func share(amount, total decimal.Decimal) decimal.Decimal {
	if !total.IsPositive() {
		return decimal.Zero
	}
	return amount.Mul(hundred).Div(total).Round(1)
}

// barWidth is amount as a rounded percentage of largest, kept within
// [2, 100] for any positive amount so small values stay visible.
func barWidth(amount, largest decimal.Decimal) int {
	if !largest.IsPositive() || !amount.IsPositive() {
		return 0
	}
	width := int(amount.Mul(hundred).Div(largest).Round(0).IntPart())
	if width < 2 {
		width = 2
	}
	if width > 100 {
		width = 100
	}
	return width
}
