// Package export renders a period's statement and summary as an XLSX
// workbook.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"spendwise/internal/core"
)

const (
	SummarySheet   = "Summary"
	StatementSheet = "Statement"

	// ContentType is the media type of the generated workbook
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var (
	moneyFormat = "$#,##0.00"
	dateFormat  = "yyyy-mm-dd"
)

// FileName returns the download name for a period's workbook.
func FileName(p core.Period) string {
	if p.IsZero() {
		return "spendwise.xlsx"
	}
	return fmt.Sprintf("spendwise-%d-%s.xlsx", p.Year, p.MonthName)
}

type styles struct {
	title, header, money, date, percent int
}

// Workbook builds the workbook for a summary and its date-sorted rows. The
// caller owns the returned file and must Close it.
func Workbook(summary core.Summary, rows []core.Transaction) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(StatementSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("create statement sheet: %w", err)
	}

	st, err := newStyles(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	if err := writeSummary(f, st, summary); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeStatement(f, st, rows); err != nil {
		f.Close()
		return nil, err
	}

	f.SetActiveSheet(0)
	return f, nil
}

// Write builds the workbook and streams it to w.
func Write(w io.Writer, summary core.Summary, rows []core.Transaction) error {
	f, err := Workbook(summary, rows)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func newStyles(f *excelize.File) (styles, error) {
	var st styles
	var err error

	if st.title, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 14, Color: "#1F2937"},
	}); err != nil {
		return st, fmt.Errorf("title style: %w", err)
	}
	if st.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#2563EB"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border: []excelize.Border{
			{Type: "bottom", Color: "#1E40AF", Style: 1},
		},
	}); err != nil {
		return st, fmt.Errorf("header style: %w", err)
	}
	if st.money, err = f.NewStyle(&excelize.Style{
		CustomNumFmt: &moneyFormat,
		Alignment:    &excelize.Alignment{Horizontal: "right"},
	}); err != nil {
		return st, fmt.Errorf("money style: %w", err)
	}
	if st.date, err = f.NewStyle(&excelize.Style{
		CustomNumFmt: &dateFormat,
	}); err != nil {
		return st, fmt.Errorf("date style: %w", err)
	}
	if st.percent, err = f.NewStyle(&excelize.Style{
		NumFmt: 10, // 0.00%
	}); err != nil {
		return st, fmt.Errorf("percent style: %w", err)
	}
	return st, nil
}

func writeSummary(f *excelize.File, st styles, s core.Summary) error {
	sheet := SummarySheet
	title := "SpendWise summary"
	if !s.Period.IsZero() {
		title = fmt.Sprintf("SpendWise summary: %s %d", s.Period.MonthName, s.Period.Year)
	}

	cells := []struct {
		cell  string
		value any
		style int
	}{
		{"A1", title, st.title},
		{"A3", "Transactions", 0},
		{"B3", s.Transactions, 0},
		{"A4", "Total Spent", 0},
		{"B4", s.TotalSpent.InexactFloat64(), st.money},
		{"A5", "Suggested Savings (20%)", 0},
		{"B5", s.SuggestedSavings.InexactFloat64(), st.money},
	}
	for _, c := range cells {
		if err := f.SetCellValue(sheet, c.cell, c.value); err != nil {
			return fmt.Errorf("summary cell %s: %w", c.cell, err)
		}
		if c.style != 0 {
			if err := f.SetCellStyle(sheet, c.cell, c.cell, c.style); err != nil {
				return fmt.Errorf("summary style %s: %w", c.cell, err)
			}
		}
	}

	row := 7
	if err := header(f, sheet, row, st.header, "Category", "Amount", "Share"); err != nil {
		return err
	}
	for _, c := range s.ByCategory {
		row++
		_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", row), c.Category)
		_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", row), c.Amount.InexactFloat64())
		_ = f.SetCellValue(sheet, fmt.Sprintf("C%d", row), c.Share.Shift(-2).InexactFloat64())
		_ = f.SetCellStyle(sheet, fmt.Sprintf("B%d", row), fmt.Sprintf("B%d", row), st.money)
		_ = f.SetCellStyle(sheet, fmt.Sprintf("C%d", row), fmt.Sprintf("C%d", row), st.percent)
	}

	row += 2
	if err := header(f, sheet, row, st.header, "Week", "Amount"); err != nil {
		return err
	}
	for _, w := range s.ByWeek {
		row++
		_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", row), w.Label)
		_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", row), w.Amount.InexactFloat64())
		_ = f.SetCellStyle(sheet, fmt.Sprintf("B%d", row), fmt.Sprintf("B%d", row), st.money)
	}

	_ = f.SetColWidth(sheet, "A", "A", 28)
	_ = f.SetColWidth(sheet, "B", "C", 16)
	return nil
}

func writeStatement(f *excelize.File, st styles, rows []core.Transaction) error {
	sheet := StatementSheet
	if err := header(f, sheet, 1, st.header, "Date", "Category", "Amount"); err != nil {
		return err
	}

	for i, tx := range rows {
		row := i + 2
		if err := f.SetCellValue(sheet, fmt.Sprintf("A%d", row), tx.Date); err != nil {
			return fmt.Errorf("statement row %d: %w", row, err)
		}
		_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", row), tx.Category)
		_ = f.SetCellValue(sheet, fmt.Sprintf("C%d", row), tx.Amount.InexactFloat64())
	}

	if n := len(rows); n > 0 {
		last := n + 1
		_ = f.SetCellStyle(sheet, "A2", fmt.Sprintf("A%d", last), st.date)
		_ = f.SetCellStyle(sheet, "C2", fmt.Sprintf("C%d", last), st.money)
	}

	_ = f.SetColWidth(sheet, "A", "A", 14)
	_ = f.SetColWidth(sheet, "B", "B", 24)
	_ = f.SetColWidth(sheet, "C", "C", 14)
	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}
	return nil
}

func header(f *excelize.File, sheet string, row, style int, titles ...string) error {
	for i, title := range titles {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, title); err != nil {
			return fmt.Errorf("header %s: %w", cell, err)
		}
	}
	first, _ := excelize.CoordinatesToCellName(1, row)
	last, _ := excelize.CoordinatesToCellName(len(titles), row)
	return f.SetCellStyle(sheet, first, last, style)
}
