package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"spendsense/internal/aggregate"
	"spendsense/internal/backend"
	"spendsense/internal/cli"
	"spendsense/internal/config"
	"spendsense/internal/core"
	"spendsense/internal/insight"
	"spendsense/internal/ledger"
	"spendsense/internal/log"
	"spendsense/internal/report"
)

var (
	inputFile  = flag.String("input", "", "Ledger file, CSV or XLSX (required)")
	month      = flag.String("month", "", "Month to report as YYYY-MM (default: first month in the ledger)")
	format     = flag.String("format", core.FormatPDF, "Report format: pdf or xlsx")
	outputFile = flag.String("output", "", "Output file (default: SpendSense_Report_<month>.<format>)")
	rulesFile  = flag.String("rules", "", "Category rules file (default: built-in rules)")
	undated    = flag.String("undated", string(ledger.UndatedExclude), "Undated rows: exclude or bucket")
	withAI     = flag.Bool("insight", false, "Ask the configured insight backend for a summary")
	listMonths = flag.Bool("months", false, "List the ledger's months and exit")
	jsonOut    = flag.Bool("json", false, "Print the month view as JSON instead of writing a report")
)

func main() {
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, `spendsense-report - monthly expense report from a ledger file

Usage:
  spendsense-report -input FILE [flags]

Flags:
`)
		flag.PrintDefaults()
		fmt.Fprint(os.Stderr, `
Examples:
  # PDF for the first month in the ledger
  spendsense-report -input expenses.csv

  # Excel report for March with an AI summary
  spendsense-report -input expenses.xlsx -month 2024-03 -format xlsx -insight
`)
	}
	flag.Parse()

	if *inputFile == "" {
		flag.Usage()
		os.Exit(2)
	}

	cli.LoadEnvFile()
	logger := cli.SetupLogger()

	if err := run(logger); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(logger *log.Logger) error {
	policy := ledger.UndatedPolicy(*undated)
	if !policy.Valid() {
		return fmt.Errorf("invalid -undated value %q", *undated)
	}
	*format = strings.ToLower(*format)
	if *format != core.FormatPDF && *format != core.FormatXLSX {
		return fmt.Errorf("invalid -format value %q", *format)
	}

	f, err := os.Open(*inputFile)
	if err != nil {
		return err
	}
	defer f.Close()

	l, err := ledger.LoadFile(filepath.Base(*inputFile), f, ledger.Options{
		FileName:   filepath.Base(*inputFile),
		Classifier: cli.LoadRules(logger, *rulesFile),
		Undated:    policy,
	})
	if err != nil {
		return err
	}

	if *listMonths {
		for _, m := range l.Months() {
			fmt.Println(m)
		}
		return nil
	}

	selected := *month
	if selected == "" {
		if months := l.Months(); len(months) > 0 {
			selected = months[0]
		}
	}
	view, err := aggregate.Compute(l, selected)
	if err != nil {
		return err
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	}

	text := "AI insight was not requested for this report."
	if *withAI {
		text, err = summarize(logger, view)
		if err != nil {
			logger.Warn("Insight unavailable, writing report without it", log.FieldError, err)
			text = "AI insight was unavailable when this report was generated."
		}
	}

	out, exclusive := *outputFile, false
	if out == "" {
		out = core.ReportRecord{Month: view.Month, Format: *format}.DownloadName()
		exclusive = true
	}
	out, err = write(out, exclusive, report.Monthly{View: view, Insight: text, GeneratedAt: time.Now()})
	if err != nil {
		return err
	}

	fmt.Printf("%s: %s across %d transactions, top category %s\n",
		out, "₹"+core.FormatRupees(view.Total), view.Count, view.TopCategory)
	return nil
}

func summarize(logger *log.Logger, view core.MonthView) (string, error) {
	cfg := config.Load()
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(context.Background(), cfg.InsightTimeout)
	defer cancel()

	res, err := backend.NewFactory(logger).CreateInsight(ctx, bcfg)
	if err != nil {
		return "", err
	}
	if res.Cleanup != nil {
		defer res.Cleanup()
	}
	req := insight.NewRequester(res.Generator, insight.WithName(res.Name), insight.WithLogger(logger.WithComponent(log.ComponentInsight)))
	return req.MonthlySummary(ctx, view)
}

// write renders m to path and returns the name actually written. An
// exclusive write never replaces an existing file; it picks the next free
// numbered name instead.
func write(path string, exclusive bool, m report.Monthly) (name string, err error) {
	render := report.Render
	if *format == core.FormatXLSX {
		render = report.RenderWorkbook
	}

	f, name, err := createOutput(path, exclusive)
	if err != nil {
		return "", err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return name, render(f, m)
}

const maxOutputSuffix = 100

func createOutput(path string, exclusive bool) (*os.File, string, error) {
	if !exclusive {
		f, err := os.Create(path)
		return f, path, err
	}
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	for i := 0; i < maxOutputSuffix; i++ {
		name := path
		if i > 0 {
			name = fmt.Sprintf("%s-%d%s", base, i, ext)
		}
		f, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		return f, name, err
	}
	return nil, "", fmt.Errorf("no free output name for %s", path)
}
