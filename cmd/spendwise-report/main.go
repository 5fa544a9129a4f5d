// Command spendwise-report prints the monthly summary of a bank statement
// CSV and optionally writes it as an XLSX workbook.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"spendwise/internal/analysis"
	"spendwise/internal/core"
	"spendwise/internal/export"
	"spendwise/internal/ingest"
	"spendwise/internal/period"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	path     string
	year     int
	month    string
	dayFirst bool
	maxRows  int
	xlsx     string
	noTip    bool
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("spendwise-report", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts options
	fs.IntVar(&opts.year, "year", 0, "year to report (default: latest in the statement)")
	fs.StringVar(&opts.month, "month", "", "month name to report, e.g. March (default: latest in the year)")
	fs.BoolVar(&opts.dayFirst, "day-first", false, "read numeric dates as day/month/year")
	fs.IntVar(&opts.maxRows, "max-rows", 0, "reject statements with more data rows (0 = unlimited)")
	fs.StringVar(&opts.xlsx, "xlsx", "", "also write the report to this XLSX file")
	fs.BoolVar(&opts.noTip, "no-tip", false, "omit the saving tip")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: spendwise-report [flags] statement.csv")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}
	opts.path = fs.Arg(0)

	if err := report(opts, stdout); err != nil {
		fmt.Fprintf(stderr, "spendwise-report: %v\n", err)
		return 1
	}
	return 0
}

func report(opts options, out io.Writer) error {
	f, err := os.Open(opts.path)
	if err != nil {
		return err
	}
	defer f.Close()

	table, err := ingest.Parse(f, ingest.Options{DayFirst: opts.dayFirst, MaxRows: opts.maxRows})
	if err != nil {
		return fmt.Errorf("%s: %w", opts.path, err)
	}

	fmt.Fprintf(out, "Rows read: %s  dropped: %s  excluded: %s  kept: %s\n",
		humanize.Comma(int64(table.Stats.RowsRead)),
		humanize.Comma(int64(table.Stats.RowsDropped)),
		humanize.Comma(int64(table.Stats.RowsExcluded)),
		humanize.Comma(int64(table.Stats.RowsKept)))

	sel, ok := period.Resolve(table, opts.year, opts.month)
	if !ok {
		fmt.Fprintln(out, "No spending data in this statement.")
		return nil
	}
	filtered := period.Filter(table, sel.Period)
	summary := analysis.Summarize(filtered)
	summary.Period = sel.Period

	printSummary(out, summary)
	if !opts.noTip {
		fmt.Fprintf(out, "\nTip: %s\n", analysis.NewTipPicker(nil).Pick())
	}

	if opts.xlsx != "" {
		if err := writeWorkbook(opts.xlsx, summary, analysis.SortedByDate(filtered)); err != nil {
			return err
		}
		fmt.Fprintf(out, "\nWrote %s\n", opts.xlsx)
	}
	return nil
}

func printSummary(out io.Writer, s core.Summary) {
	fmt.Fprintf(out, "\n%s %d\n\n", s.Period.MonthName, s.Period.Year)
	fmt.Fprintf(out, "Total spent:        %s\n", core.FormatDollars(s.TotalSpent))
	fmt.Fprintf(out, "Suggested savings:  %s\n", core.FormatDollars(s.SuggestedSavings))

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(out, "\nBy category")
	for _, c := range s.ByCategory {
		fmt.Fprintf(tw, "%s\t%s\t%s%%\t\n", c.Category, core.FormatDollars(c.Amount), c.Share.StringFixed(1))
	}
	_ = tw.Flush()

	fmt.Fprintln(out, "\nBy week")
	for _, wk := range s.ByWeek {
		fmt.Fprintf(tw, "%s\t%s\t\n", wk.Label, core.FormatDollars(wk.Amount))
	}
	_ = tw.Flush()
}

func writeWorkbook(path string, s core.Summary, rows []core.Transaction) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return export.Write(f, s, rows)
}
