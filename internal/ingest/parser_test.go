package ingest

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestParseBytes_SpendingView(t *testing.T) {
	csv := "Date,Amount,Category\n" +
		"2024-01-05,50,Food\n" +
		"2024-01-20,-30,Refund\n" +
		"2024-01-10,20,Savings\n"

	table, err := ParseBytes([]byte(csv), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if table.Len() != 1 {
		t.Fatalf("expected 1 row, got %d", table.Len())
	}
	tx := table.Rows[0]
	if tx.Category != "Food" || !tx.Amount.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("unexpected row: %+v", tx)
	}
	if tx.Year != 2024 || tx.Month != 1 || tx.MonthName != "January" || tx.WeekOfMonth != 1 {
		t.Fatalf("unexpected derived fields: %+v", tx)
	}
	want := table.Stats
	if want.RowsRead != 3 || want.RowsExcluded != 2 || want.RowsDropped != 0 || want.RowsKept != 1 {
		t.Fatalf("unexpected stats: %+v", want)
	}
}

func TestParseBytes_DropsUnparseableRows(t *testing.T) {
	csv := "Date,Amount,Category\n" +
		"not-a-date,10,Food\n" +
		"2024-02-01,ten,Food\n" +
		"2024-02-02,$5,Food\n" +
		"2024-02-03,\"1,000\",Food\n" +
		",5,Food\n" +
		"2024-02-04,,Food\n" +
		"2024-02-04,1e20000000,Food\n" +
		"2024-02-05,7.25,Transport\n"

	table, err := ParseBytes([]byte(csv), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if table.Len() != 1 || table.Rows[0].Category != "Transport" {
		t.Fatalf("expected only the Transport row, got %+v", table.Rows)
	}
	if table.Stats.RowsDropped != 7 {
		t.Fatalf("expected 7 dropped rows, got %d", table.Stats.RowsDropped)
	}
}

func TestParseBytes_HeaderHandling(t *testing.T) {
	csv := "\xEF\xBB\xBF Date , Amount ,Category,Notes\n" +
		"2024-03-09, 12.50 ,Food,lunch\n"

	table, err := ParseBytes([]byte(csv), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if table.Len() != 1 {
		t.Fatalf("expected 1 row, got %d", table.Len())
	}
	if !table.Rows[0].Amount.Equal(decimal.RequireFromString("12.5")) {
		t.Fatalf("unexpected amount %s", table.Rows[0].Amount)
	}
	if table.Rows[0].WeekOfMonth != 2 {
		t.Fatalf("expected week 2, got %d", table.Rows[0].WeekOfMonth)
	}
}

func TestParseBytes_MissingColumns(t *testing.T) {
	_, err := ParseBytes([]byte("Date,Category\n2024-01-01,Food\n"), Options{})
	if !errors.Is(err, ErrMissingColumn) {
		t.Fatalf("expected ErrMissingColumn, got %v", err)
	}
	var mce *MissingColumnError
	if !errors.As(err, &mce) {
		t.Fatalf("expected *MissingColumnError, got %T", err)
	}
	if len(mce.Columns) != 1 || mce.Columns[0] != "Amount" {
		t.Fatalf("unexpected missing columns %v", mce.Columns)
	}

	// Column names are case-sensitive
	_, err = ParseBytes([]byte("date,amount,category\n2024-01-01,1,Food\n"), Options{})
	if !errors.As(err, &mce) || len(mce.Columns) != 3 {
		t.Fatalf("expected all three columns missing, got %v", err)
	}
}

func TestParseBytes_InputErrors(t *testing.T) {
	cases := []struct {
		name string
		in   []byte
		want error
	}{
		{"empty", nil, ErrEmptyInput},
		{"whitespace", []byte(" \n\n "), ErrEmptyInput},
		{"bom only", []byte("\xEF\xBB\xBF"), ErrEmptyInput},
		{"invalid utf8", []byte("Date,Amount,Category\n2024-01-01,1,\xff\xfe\n"), ErrDecode},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			table, err := ParseBytes(tc.in, Options{})
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if table != nil {
				t.Fatalf("expected no table on error")
			}
		})
	}
}

func TestParseBytes_HeaderOnlyIsEmptyTable(t *testing.T) {
	table, err := ParseBytes([]byte("Date,Amount,Category\n"), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if table == nil || !table.IsEmpty() {
		t.Fatalf("expected empty table, got %+v", table)
	}
}

func TestParseBytes_ShortRowsAreDropped(t *testing.T) {
	table, err := ParseBytes([]byte("Date,Amount,Category\n2024-01-01\n2024-01-02,3\n"), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// the second row has a date and an amount; its category is empty
	if table.Len() != 1 || table.Stats.RowsDropped != 1 {
		t.Fatalf("unexpected result rows=%d stats=%+v", table.Len(), table.Stats)
	}
}

func TestParseBytes_MaxRows(t *testing.T) {
	csv := "Date,Amount,Category\n2024-01-01,1,A\n2024-01-02,1,A\n2024-01-03,1,A\n"
	if _, err := ParseBytes([]byte(csv), Options{MaxRows: 2}); !errors.Is(err, ErrTooManyRows) {
		t.Fatalf("expected ErrTooManyRows, got %v", err)
	}
	if _, err := ParseBytes([]byte(csv), Options{MaxRows: 3}); err != nil {
		t.Fatalf("unexpected error at the limit: %v", err)
	}
}

func TestParseDate_Layouts(t *testing.T) {
	cases := []struct {
		in       string
		dayFirst bool
		want     time.Time
	}{
		{"2024-01-05", false, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)},
		{"2024-01-05 13:45:00", false, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)},
		{"01/05/2024", false, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)},
		{"01/05/2024", true, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)},
		{"1/5/24", false, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)},
		{"Jan 5, 2024", false, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)},
		{"5 January 2024", true, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)},
		{"05-Jan-2024", false, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		got, err := parseDate(tc.in, dateLayouts(tc.dayFirst))
		if err != nil || !got.Equal(tc.want) {
			t.Fatalf("%q (dayFirst=%v) expected %v, got %v (err=%v)", tc.in, tc.dayFirst, tc.want, got, err)
		}
	}

	for _, bad := range []string{"", "13/45/2024", "yesterday", "2024-02-30"} {
		if _, err := parseDate(bad, dateLayouts(false)); err == nil {
			t.Fatalf("%q expected error", bad)
		}
	}
}

func TestParse_Reader(t *testing.T) {
	table, err := Parse(strings.NewReader("Date,Amount,Category\n2024-06-30,9.99,Books\n"), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if table.Len() != 1 || table.Rows[0].WeekOfMonth != 5 {
		t.Fatalf("unexpected table %+v", table.Rows)
	}
}
