// Package ingest turns an uploaded bank statement into a normalized table.
//
// A statement is UTF-8 CSV text with a header row naming at least the Date,
// Amount and Category columns. Rows whose date or amount cannot be read are
// dropped; the remaining rows are narrowed to the spending view (positive
// amounts outside the Savings and Income categories).
package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"spendwise/internal/core"
)

const (
	ColumnDate     = "Date"
	ColumnAmount   = "Amount"
	ColumnCategory = "Category"
)

var requiredColumns = []string{ColumnDate, ColumnAmount, ColumnCategory}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Options tunes parsing. The zero value reads month-first dates and accepts
// any number of rows.
type Options struct {
	DayFirst bool
	MaxRows  int
}

// Parse reads the whole statement from r and parses it.
func Parse(r io.Reader, opts Options) (*core.Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read statement: %w", err)
	}
	return ParseBytes(data, opts)
}

// ParseBytes parses an in-memory statement. A header with no surviving rows
// yields an empty table, not an error.
func ParseBytes(data []byte, opts Options) (*core.Table, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyInput
	}
	if !utf8.Valid(data) {
		return nil, ErrDecode
	}

	rdr := csv.NewReader(bytes.NewReader(data))
	rdr.FieldsPerRecord = -1
	rdr.LazyQuotes = true

	header, err := rdr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyInput
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	idx, err := locateColumns(header)
	if err != nil {
		return nil, err
	}

	layouts := dateLayouts(opts.DayFirst)
	table := &core.Table{Rows: []core.Transaction{}}
	stats := &table.Stats

	for {
		record, err := rdr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		stats.RowsRead++
		if opts.MaxRows > 0 && stats.RowsRead > opts.MaxRows {
			return nil, fmt.Errorf("%w: limit is %d", ErrTooManyRows, opts.MaxRows)
		}

		date, err := parseDate(cell(record, idx[ColumnDate]), layouts)
		if err != nil {
			stats.RowsDropped++
			continue
		}
		amount, err := core.ParseAmount(cell(record, idx[ColumnAmount]))
		if err != nil {
			stats.RowsDropped++
			continue
		}

		tx := core.NewTransaction(date, amount, cell(record, idx[ColumnCategory]))
		if !tx.IsSpending() {
			stats.RowsExcluded++
			continue
		}
		table.Rows = append(table.Rows, tx)
	}
	stats.RowsKept = len(table.Rows)
	return table, nil
}

// locateColumns maps required column names to their position. Header names
// are compared case-sensitively after trimming surrounding whitespace; the
// first occurrence of a duplicated name wins.
func locateColumns(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(requiredColumns))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if _, seen := idx[name]; !seen {
			idx[name] = i
		}
	}
	var missing []string
	for _, name := range requiredColumns {
		if _, ok := idx[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingColumnError{Columns: missing}
	}
	return idx, nil
}

// cell returns the value at i, or "" for short rows.
func cell(record []string, i int) string {
	if i < len(record) {
		return record[i]
	}
	return ""
}
