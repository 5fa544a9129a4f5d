// Package period lists the year and month choices present in a statement
// and narrows a statement to one chosen month.
package period

import (
	"slices"

	"spendwise/internal/core"
)

// Selection is the effective period for a request together with the
// choices offered by the year and month selectors.
type Selection struct {
	Period core.Period
	Years  []int
	Months []string
}

// Years returns the distinct years in the table, most recent first.
func Years(t *core.Table) []int {
	seen := make(map[int]struct{})
	var years []int
	for _, tx := range rows(t) {
		if _, ok := seen[tx.Year]; ok {
			continue
		}
		seen[tx.Year] = struct{}{}
		years = append(years, tx.Year)
	}
	slices.Sort(years)
	slices.Reverse(years)
	return years
}

// Months returns the distinct month names of a year in the order they first
// appear in the table, which is not necessarily calendar order.
func Months(t *core.Table, year int) []string {
	seen := make(map[string]struct{})
	var months []string
	for _, tx := range rows(t) {
		if tx.Year != year {
			continue
		}
		if _, ok := seen[tx.MonthName]; ok {
			continue
		}
		seen[tx.MonthName] = struct{}{}
		months = append(months, tx.MonthName)
	}
	return months
}

// Default returns the latest year and, within it, the month with the
// highest month number. ok is false for an empty table.
func Default(t *core.Table) (p core.Period, ok bool) {
	latestMonth := 0
	for _, tx := range rows(t) {
		switch {
		case tx.Year > p.Year:
			p = core.Period{Year: tx.Year, MonthName: tx.MonthName}
			latestMonth = tx.Month
		case tx.Year == p.Year && tx.Month > latestMonth:
			p.MonthName = tx.MonthName
			latestMonth = tx.Month
		}
	}
	return p, latestMonth > 0
}

// Resolve turns a requested year and month into an effective selection.
// A year that is absent from the table falls back to the default year. A
// month that is absent from the chosen year falls back to the default month
// name when that year has it, and to the year's first month otherwise.
// Fallbacks are silent. ok is false for an empty table.
func Resolve(t *core.Table, year int, month string) (Selection, bool) {
	def, ok := Default(t)
	if !ok {
		return Selection{}, false
	}

	sel := Selection{Years: Years(t)}
	if !slices.Contains(sel.Years, year) {
		year = def.Year
	}
	sel.Months = Months(t, year)

	switch {
	case slices.Contains(sel.Months, month):
	case slices.Contains(sel.Months, def.MonthName):
		month = def.MonthName
	default:
		month = sel.Months[0]
	}
	sel.Period = core.Period{Year: year, MonthName: month}
	return sel, true
}

// Filter returns a new table holding only the rows inside p, in their
// original order. The result may be empty.
func Filter(t *core.Table, p core.Period) *core.Table {
	out := &core.Table{Rows: []core.Transaction{}}
	for _, tx := range rows(t) {
		if p.Matches(tx) {
			out.Rows = append(out.Rows, tx)
		}
	}
	out.Stats.RowsKept = len(out.Rows)
	return out
}

func rows(t *core.Table) []core.Transaction {
	if t == nil {
		return nil
	}
	return t.Rows
}
