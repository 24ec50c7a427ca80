package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/odyssey-erp/ledger/internal/accounting/accounts"
)

// ChartImporter creates accounts from a chart of accounts.
type ChartImporter interface {
	ImportChart(ctx context.Context, entries []accounts.ChartEntry) (accounts.ImportResult, error)
}

// ImportChartOptions defines available flags for the import-chart command.
type ImportChartOptions struct {
	Path       string
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// ImportChartSummary describes the JSON response for import-chart.
type ImportChartSummary struct {
	Created  []string            `json:"created"`
	Skipped  []string            `json:"skipped"`
	Warnings map[string][]string `json:"warnings,omitempty"`
}

// ImportChartCommand loads the YAML chart at opts.Path and imports it.
func ImportChartCommand(ctx context.Context, importer ChartImporter, opts ImportChartOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.Path == "" {
		_, _ = fmt.Fprintln(opts.Stderr, "import-chart: --file is required")
		return 1
	}
	f, err := os.Open(opts.Path)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "import-chart: %v\n", err)
		return 1
	}
	defer f.Close()

	entries, err := accounts.LoadChart(f)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "import-chart: %v\n", err)
		return 1
	}
	result, err := importer.ImportChart(ctx, entries)
	summary := buildChartSummary(result)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "import-chart: %v (created %d before failing)\n", err, len(summary.Created))
		return 1
	}
	if opts.JSONOutput {
		if err := json.NewEncoder(opts.Stdout).Encode(summary); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "import-chart: encode json: %v\n", err)
			return 1
		}
		return 0
	}
	_, _ = fmt.Fprintf(opts.Stdout, "Imported %d account(s), %d already present.\n", len(summary.Created), len(summary.Skipped))
	codes := make([]string, 0, len(summary.Warnings))
	for code := range summary.Warnings {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		for _, msg := range summary.Warnings[code] {
			_, _ = fmt.Fprintf(opts.Stdout, " ! %s: %s\n", code, msg)
		}
	}
	return 0
}

func buildChartSummary(result accounts.ImportResult) ImportChartSummary {
	summary := ImportChartSummary{Created: []string{}, Skipped: []string{}}
	for _, account := range result.Created {
		summary.Created = append(summary.Created, account.Code)
	}
	summary.Skipped = append(summary.Skipped, result.Skipped...)
	for code, warnings := range result.Warnings {
		if summary.Warnings == nil {
			summary.Warnings = map[string][]string{}
		}
		for _, w := range warnings {
			summary.Warnings[code] = append(summary.Warnings[code], w.Message)
		}
	}
	return summary
}
