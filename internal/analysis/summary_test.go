package analysis

import (
	"math/rand/v2"
	"slices"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"spendwise/internal/core"
)

func tx(date, amount, category string) core.Transaction {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		panic(err)
	}
	return core.NewTransaction(d, decimal.RequireFromString(amount), category)
}

func march() *core.Table {
	return &core.Table{Rows: []core.Transaction{
		tx("2024-03-09", "12.50", "Food"),
		tx("2024-03-01", "100", "Rent"),
		tx("2024-03-15", "7.50", "Food"),
		tx("2024-03-01", "0.30", "Coffee"),
		tx("2024-03-30", "30", "Transport"),
	}}
}

func TestSummarize_Totals(t *testing.T) {
	s := Summarize(march())
	if !s.TotalSpent.Equal(decimal.RequireFromString("150.30")) {
		t.Fatalf("unexpected total %s", s.TotalSpent)
	}
	if !s.SuggestedSavings.Equal(s.TotalSpent.Mul(decimal.RequireFromString("0.2"))) {
		t.Fatalf("savings %s is not 20%% of %s", s.SuggestedSavings, s.TotalSpent)
	}
	if !s.SuggestedSavings.Equal(decimal.RequireFromString("30.06")) {
		t.Fatalf("unexpected savings %s", s.SuggestedSavings)
	}
	if s.Transactions != 5 {
		t.Fatalf("expected 5 transactions, got %d", s.Transactions)
	}
}

func TestSummarize_CategoriesPartitionTotal(t *testing.T) {
	s := Summarize(march())
	names := make([]string, 0, len(s.ByCategory))
	sum := decimal.Zero
	for _, c := range s.ByCategory {
		names = append(names, c.Category)
		sum = sum.Add(c.Amount)
	}
	if !sum.Equal(s.TotalSpent) {
		t.Fatalf("category sum %s != total %s", sum, s.TotalSpent)
	}
	want := []string{"Rent", "Transport", "Food", "Coffee"}
	if !slices.Equal(names, want) {
		t.Fatalf("expected categories by amount desc %v, got %v", want, names)
	}
	if s.ByCategory[0].Width != 100 || s.ByCategory[3].Width != 2 {
		t.Fatalf("unexpected bar widths: %+v", s.ByCategory)
	}
	if !s.ByCategory[0].Share.Equal(decimal.RequireFromString("66.5")) {
		t.Fatalf("unexpected share %s", s.ByCategory[0].Share)
	}
}

func TestSummarize_WeeksPartitionTotal(t *testing.T) {
	s := Summarize(march())
	sum := decimal.Zero
	var labels []string
	for _, w := range s.ByWeek {
		sum = sum.Add(w.Amount)
		labels = append(labels, w.Label)
	}
	if !sum.Equal(s.TotalSpent) {
		t.Fatalf("week sum %s != total %s", sum, s.TotalSpent)
	}
	want := []string{"Week 1", "Week 2", "Week 3", "Week 5"}
	if !slices.Equal(labels, want) {
		t.Fatalf("expected %v, got %v", want, labels)
	}
	if s.ByWeek[0].Width != 100 {
		t.Fatalf("largest week should be full width, got %d", s.ByWeek[0].Width)
	}
}

func TestSummarize_Empty(t *testing.T) {
	for _, table := range []*core.Table{nil, {}} {
		s := Summarize(table)
		if !s.TotalSpent.IsZero() || !s.SuggestedSavings.IsZero() {
			t.Fatalf("expected zero totals, got %s / %s", s.TotalSpent, s.SuggestedSavings)
		}
		if len(s.ByCategory) != 0 || len(s.ByWeek) != 0 {
			t.Fatalf("expected empty groupings")
		}
	}
}

func TestSortedByDate_Stable(t *testing.T) {
	table := march()
	got := SortedByDate(table)
	if len(got) != table.Len() {
		t.Fatalf("length changed")
	}
	for i := 1; i < len(got); i++ {
		if got[i].Date.Before(got[i-1].Date) {
			t.Fatalf("rows out of order at %d", i)
		}
	}
	// Rent precedes Coffee in the input; both are on March 1st
	if got[0].Category != "Rent" || got[1].Category != "Coffee" {
		t.Fatalf("equal dates must keep input order: %s, %s", got[0].Category, got[1].Category)
	}
	if table.Rows[0].Category != "Food" {
		t.Fatalf("input table must not be reordered")
	}
}

func TestTipPicker(t *testing.T) {
	p := NewTipPicker(rand.New(rand.NewPCG(1, 2)))
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		tip := p.Pick()
		if !slices.Contains(Tips, tip) {
			t.Fatalf("unknown tip %q", tip)
		}
		seen[tip] = true
	}
	if len(seen) != len(Tips) {
		t.Fatalf("expected every tip to appear over 200 draws, saw %d", len(seen))
	}

	a := NewTipPicker(rand.New(rand.NewPCG(7, 7)))
	b := NewTipPicker(rand.New(rand.NewPCG(7, 7)))
	for i := 0; i < 10; i++ {
		if a.Pick() != b.Pick() {
			t.Fatalf("same seed must give the same sequence")
		}
	}
}
