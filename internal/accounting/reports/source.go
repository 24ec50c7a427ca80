package reports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/ledger/internal/accounting/accounts"
)

// Window bounds ledger activity by transaction date, both ends inclusive. A
// zero From means since inception.
type Window struct {
	From time.Time
	To   time.Time
}

// Contains reports whether date falls inside the window.
func (w Window) Contains(date time.Time) bool {
	d := DateOnly(date)
	if !w.From.IsZero() && d.Before(DateOnly(w.From)) {
		return false
	}
	return !d.After(DateOnly(w.To))
}

// Movement sums the ledger activity of one account. The Recon fields are the
// part of Debit and Credit that came from reconciliation entries.
type Movement struct {
	AccountID   int64
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	ReconDebit  decimal.Decimal
	ReconCredit decimal.Decimal
}

// Snapshot is a consistent read-only view of the chart and ledger.
type Snapshot interface {
	Accounts(ctx context.Context) ([]accounts.Account, error)
	Movements(ctx context.Context, window Window) ([]Movement, error)
}

// Source opens snapshots. A partially posted entry is never visible inside fn.
type Source interface {
	WithSnapshot(ctx context.Context, fn func(context.Context, Snapshot) error) error
}

// DateOnly drops the clock part of t, keeping its calendar date.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
