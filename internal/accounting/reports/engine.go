package reports

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/odyssey-erp/ledger/internal/accounting/shared"
)

// Engine derives financial statements from a ledger snapshot.
type Engine struct {
	source Source
	logger *slog.Logger
}

// NewEngine constructs the report engine. A nil logger discards output.
func NewEngine(source Source, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Engine{source: source, logger: logger}
}

// TrialBalance reports every account's balance as of asOf, inclusive.
func (e *Engine) TrialBalance(ctx context.Context, asOf time.Time) (TrialBalance, error) {
	asOf = DateOnly(asOf)
	balances, err := e.load(ctx, "trial balance", Window{To: asOf})
	if err != nil {
		return TrialBalance{}, err
	}
	tb := BuildTrialBalance(asOf, balances)
	if tb.DataAvailable && !tb.IsBalanced {
		e.logger.Warn("trial balance out of balance",
			slog.Time("as_of", asOf),
			slog.String("debits", tb.TotalDebits.StringFixed(2)),
			slog.String("credits", tb.TotalCredits.StringFixed(2)))
	}
	return tb, nil
}

// BalanceSheet reports the financial position as of asOf, inclusive.
func (e *Engine) BalanceSheet(ctx context.Context, asOf time.Time) (BalanceSheet, error) {
	asOf = DateOnly(asOf)
	balances, err := e.load(ctx, "balance sheet", Window{To: asOf})
	if err != nil {
		return BalanceSheet{}, err
	}
	bs := BuildBalanceSheet(asOf, balances)
	if bs.DataAvailable && !bs.IsBalanced {
		e.logger.Warn("balance sheet out of balance",
			slog.Time("as_of", asOf),
			slog.String("variance", bs.Variance().StringFixed(2)))
	}
	return bs, nil
}

// IncomeStatement reports movements between start and end, both inclusive.
func (e *Engine) IncomeStatement(ctx context.Context, start, end time.Time) (IncomeStatement, error) {
	start, end = DateOnly(start), DateOnly(end)
	if start.After(end) {
		return IncomeStatement{}, shared.NewValidationError([]shared.FieldError{{Field: "start", Message: "start must not be after end"}})
	}
	balances, err := e.load(ctx, "income statement", Window{From: start, To: end})
	if err != nil {
		return IncomeStatement{}, err
	}
	return BuildIncomeStatement(start, end, balances), nil
}

func (e *Engine) load(ctx context.Context, report string, window Window) ([]AccountBalance, error) {
	var balances []AccountBalance
	err := e.source.WithSnapshot(ctx, func(ctx context.Context, snap Snapshot) error {
		all, err := snap.Accounts(ctx)
		if err != nil {
			return err
		}
		movements, err := snap.Movements(ctx, window)
		if err != nil {
			return err
		}
		balances = Combine(all, movements)
		return nil
	})
	if err != nil {
		e.logger.Error("report snapshot failed", slog.String("report", report), slog.Any("error", err))
		var storage *shared.StorageError
		if errors.As(err, &storage) {
			return nil, err
		}
		return nil, &shared.StorageError{Op: report, Err: err}
	}
	return balances, nil
}
