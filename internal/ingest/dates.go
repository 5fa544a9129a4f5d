package ingest

import (
	"strings"
	"time"

	"spendwise/internal/core"
)

// Layouts tried for every date cell, in order. Numeric slash and dash forms
// are ambiguous between month-first and day-first; month-first is the
// default and Options.DayFirst swaps in the day-first set.
var (
	isoLayouts = []string{
		"2006-01-02",
		"2006-1-2",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
		"2006-01-02T15:04:05",
		time.RFC3339,
		"2006/01/02",
		"2006/1/2",
		"2006.01.02",
	}
	monthFirstLayouts = []string{
		"01/02/2006", "1/2/2006", "01/02/06", "1/2/06",
		"01-02-2006", "1-2-2006",
		"01/02/2006 15:04:05", "1/2/2006 15:04",
	}
	dayFirstLayouts = []string{
		"02/01/2006", "2/1/2006", "02/01/06", "2/1/06",
		"02-01-2006", "2-1-2006",
		"02/01/2006 15:04:05", "2/1/2006 15:04",
	}
	namedLayouts = []string{
		"Jan 2, 2006", "January 2, 2006", "Jan 2 2006", "January 2 2006",
		"2 Jan 2006", "2 January 2006", "02-Jan-2006", "2-Jan-2006", "02-Jan-06",
		"02/Jan/2006",
	}
)

func dateLayouts(dayFirst bool) []string {
	out := make([]string, 0, len(isoLayouts)+len(monthFirstLayouts)+len(namedLayouts))
	out = append(out, isoLayouts...)
	if dayFirst {
		out = append(out, dayFirstLayouts...)
	} else {
		out = append(out, monthFirstLayouts...)
	}
	return append(out, namedLayouts...)
}

// parseDate tries each layout and keeps only the calendar date.
func parseDate(s string, layouts []string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, core.ErrInvalidDate
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, core.ErrInvalidDate
}
