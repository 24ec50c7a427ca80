package reconcile

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/ledger/internal/accounting/ledger"
	"github.com/odyssey-erp/ledger/internal/accounting/reports"
	"github.com/odyssey-erp/ledger/internal/accounting/shared"
)

// DefaultSuspenseCode is the equity account absorbing reconciliation postings.
const DefaultSuspenseCode = "3999"

// LockKey is the locker key serialising auto-balance runs. Account ids are
// positive, so it never collides with a posting lock.
const LockKey int64 = -1

// BalanceSheets supplies the statement variance is measured on.
type BalanceSheets interface {
	BalanceSheet(ctx context.Context, asOf time.Time) (reports.BalanceSheet, error)
}

// Poster books reconciliation entries.
type Poster interface {
	PostReconciliation(ctx context.Context, in ledger.ReconciliationInput) (ledger.PostedEntry, error)
}

// AccountLookup resolves the suspense account by code.
type AccountLookup interface {
	GetByCode(ctx context.Context, code string) (accounts.Account, error)
}

// Variance compares both sides of the accounting equation.
type Variance struct {
	AsOf                 time.Time       `json:"as_of"`
	TotalAssets          decimal.Decimal `json:"total_assets"`
	LiabilitiesAndEquity decimal.Decimal `json:"liabilities_and_equity"`
	Amount               decimal.Decimal `json:"variance"`
	IsBalanced           bool            `json:"is_balanced"`
}

// AutoBalanceInput parameterises AutoBalance. A zero AsOf means today.
type AutoBalanceInput struct {
	AsOf    time.Time
	Reason  string
	ActorID int64
}

// AutoBalanceResult reports what AutoBalance did.
type AutoBalanceResult struct {
	Adjusted bool                `json:"adjusted"`
	Before   Variance            `json:"before"`
	After    Variance            `json:"after"`
	Side     string              `json:"side,omitempty"`
	Amount   decimal.Decimal     `json:"amount"`
	Entry    *ledger.PostedEntry `json:"entry,omitempty"`
}

// Service detects balance sheet variance and books the offsetting entry.
type Service struct {
	sheets       BalanceSheets
	poster       Poster
	accounts     AccountLookup
	suspenseCode string
	locker       ledger.AccountLocker
	logger       *slog.Logger
	now          func() time.Time
}

// NewService wires the reconciliation service. An empty suspense code uses
// DefaultSuspenseCode and a nil logger discards output.
func NewService(sheets BalanceSheets, poster Poster, lookup AccountLookup, suspenseCode string, logger *slog.Logger) *Service {
	if strings.TrimSpace(suspenseCode) == "" {
		suspenseCode = DefaultSuspenseCode
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{
		sheets:       sheets,
		poster:       poster,
		accounts:     lookup,
		suspenseCode: suspenseCode,
		locker:       ledger.NewLocalLocker(),
		logger:       logger,
		now:          time.Now,
	}
}

// WithLocker replaces the in-process lock guarding AutoBalance. Deployments
// running several instances pass the shared Redis locker.
func (s *Service) WithLocker(locker ledger.AccountLocker) {
	if locker != nil {
		s.locker = locker
	}
}

// WithNow overrides the clock used when AsOf is zero.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// ComputeVariance returns assets minus liabilities plus equity as of asOf.
func (s *Service) ComputeVariance(ctx context.Context, asOf time.Time) (Variance, error) {
	if asOf.IsZero() {
		asOf = s.now()
	}
	bs, err := s.sheets.BalanceSheet(ctx, asOf)
	if err != nil {
		return Variance{}, err
	}
	amount := bs.Variance()
	return Variance{
		AsOf:                 bs.AsOf,
		TotalAssets:          bs.TotalAssets,
		LiabilitiesAndEquity: bs.TotalLiabilitiesAndEquity,
		Amount:               amount,
		IsBalanced:           amount.Abs().LessThan(shared.Epsilon),
	}, nil
}

// AutoBalance posts one reconciliation entry against the suspense account when
// the variance reaches a cent. A positive variance is credited, a negative one
// debited. Runs are serialised so the variance booked is the one measured.
func (s *Service) AutoBalance(ctx context.Context, in AutoBalanceInput) (AutoBalanceResult, error) {
	release, err := s.locker.Lock(ctx, []int64{LockKey})
	if err != nil {
		return AutoBalanceResult{}, &shared.StorageError{Op: "lock reconciliation", Err: err}
	}
	defer release()

	before, err := s.ComputeVariance(ctx, in.AsOf)
	if err != nil {
		return AutoBalanceResult{}, err
	}
	result := AutoBalanceResult{Before: before, After: before, Amount: decimal.Zero}
	if before.IsBalanced {
		return result, nil
	}

	suspense, err := s.accounts.GetByCode(ctx, s.suspenseCode)
	if err != nil {
		return AutoBalanceResult{}, fmt.Errorf("reconcile: suspense account %s: %w", s.suspenseCode, err)
	}
	if suspense.Type != accounts.AccountTypeEquity {
		return AutoBalanceResult{}, &shared.StateError{Entity: "account", ID: suspense.ID, Reason: "suspense account must be an equity account"}
	}

	amount := before.Amount.Abs()
	input := ledger.ReconciliationInput{
		Date:        before.AsOf,
		Reference:   "AUTO-BALANCE",
		Description: description(in.Reason, before.Amount),
		AccountID:   suspense.ID,
		Debit:       decimal.Zero,
		Credit:      decimal.Zero,
		CreatedBy:   in.ActorID,
	}
	if before.Amount.IsPositive() {
		input.Credit = amount
		result.Side = string(accounts.NormalCredit)
	} else {
		input.Debit = amount
		result.Side = string(accounts.NormalDebit)
	}

	entry, err := s.poster.PostReconciliation(ctx, input)
	if err != nil {
		return AutoBalanceResult{}, err
	}
	after, err := s.ComputeVariance(ctx, before.AsOf)
	if err != nil {
		return AutoBalanceResult{}, err
	}
	result.Adjusted = true
	result.After = after
	result.Amount = amount
	result.Entry = &entry
	s.logger.Warn("ledger auto-balanced",
		slog.Int64("journal_id", entry.EntryID),
		slog.String("side", result.Side),
		slog.String("amount", amount.StringFixed(2)),
		slog.String("variance_after", after.Amount.StringFixed(2)))
	return result, nil
}

func description(reason string, variance decimal.Decimal) string {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "Automatic balance sheet reconciliation"
	}
	return fmt.Sprintf("%s (variance %s)", reason, variance.StringFixed(2))
}
