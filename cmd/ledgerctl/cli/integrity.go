package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/odyssey-erp/ledger/jobs"
)

// IntegrityChecker runs the ledger integrity check.
type IntegrityChecker interface {
	Run(ctx context.Context, asOf time.Time) (jobs.IntegrityResult, error)
}

// IntegrityOptions defines available flags for the check command.
type IntegrityOptions struct {
	AsOf       string
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// IntegritySummary describes the JSON response for the check command.
type IntegritySummary struct {
	OK                   bool   `json:"ok"`
	AsOf                 string `json:"as_of"`
	TotalDebits          string `json:"total_debits"`
	TotalCredits         string `json:"total_credits"`
	TrialBalanceOK       bool   `json:"trial_balance_ok"`
	TotalAssets          string `json:"total_assets"`
	LiabilitiesEquity    string `json:"liabilities_and_equity"`
	BalanceSheetVariance string `json:"balance_sheet_variance"`
	BalanceSheetOK       bool   `json:"balance_sheet_ok"`
}

// IntegrityCommand runs the check and prints the outcome. It exits 10 when the
// ledger is out of balance.
func IntegrityCommand(ctx context.Context, checker IntegrityChecker, opts IntegrityOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	var asOf time.Time
	if raw := strings.TrimSpace(opts.AsOf); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "check: invalid as-of %q (expected YYYY-MM-DD)\n", opts.AsOf)
			return 1
		}
		asOf = parsed
	}
	result, err := checker.Run(ctx, asOf)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "check: %v\n", err)
		return 1
	}
	if opts.JSONOutput {
		if err := json.NewEncoder(opts.Stdout).Encode(buildIntegritySummary(result)); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "check: encode json: %v\n", err)
			return 1
		}
	} else {
		renderIntegrityHuman(opts.Stdout, result)
	}
	if !result.Balanced() {
		return 10
	}
	return 0
}

func buildIntegritySummary(result jobs.IntegrityResult) IntegritySummary {
	return IntegritySummary{
		OK:                   result.Balanced(),
		AsOf:                 result.AsOf.Format("2006-01-02"),
		TotalDebits:          result.TrialBalance.TotalDebits.StringFixed(2),
		TotalCredits:         result.TrialBalance.TotalCredits.StringFixed(2),
		TrialBalanceOK:       result.TrialBalance.IsBalanced,
		TotalAssets:          result.BalanceSheet.TotalAssets.StringFixed(2),
		LiabilitiesEquity:    result.BalanceSheet.LiabilitiesAndEquity.StringFixed(2),
		BalanceSheetVariance: result.BalanceSheet.Amount.StringFixed(2),
		BalanceSheetOK:       result.BalanceSheet.IsBalanced,
	}
}

func renderIntegrityHuman(out io.Writer, result jobs.IntegrityResult) {
	_, _ = fmt.Fprintf(out, "Ledger integrity as of %s\n", result.AsOf.Format("2006-01-02"))
	_, _ = fmt.Fprintf(out, "  trial balance: debits %s, credits %s (%s)\n",
		result.TrialBalance.TotalDebits.StringFixed(2),
		result.TrialBalance.TotalCredits.StringFixed(2),
		status(result.TrialBalance.IsBalanced))
	_, _ = fmt.Fprintf(out, "  balance sheet: assets %s, liabilities+equity %s, variance %s (%s)\n",
		result.BalanceSheet.TotalAssets.StringFixed(2),
		result.BalanceSheet.LiabilitiesAndEquity.StringFixed(2),
		result.BalanceSheet.Amount.StringFixed(2),
		status(result.BalanceSheet.IsBalanced))
	if !result.Balanced() {
		_, _ = fmt.Fprintln(out, "Ledger is out of balance. Review bypass writes, then run auto-balance if the variance is expected.")
	}
}

func status(ok bool) string {
	if ok {
		return "balanced"
	}
	return "UNBALANCED"
}
