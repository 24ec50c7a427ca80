// Package accounting wires the ledger components into one engine and exposes
// it over HTTP.
package accounting

import (
	"context"
	"io"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/ledger/internal/accounting/aging"
	"github.com/odyssey-erp/ledger/internal/accounting/journals"
	"github.com/odyssey-erp/ledger/internal/accounting/ledger"
	"github.com/odyssey-erp/ledger/internal/accounting/memstore"
	"github.com/odyssey-erp/ledger/internal/accounting/reconcile"
	"github.com/odyssey-erp/ledger/internal/accounting/reports"
)

// Stores groups the persistence ports used by the engine.
type Stores struct {
	Accounts accounts.Repository
	Journals journals.Repository
	Ledger   ledger.Repository
	Reports  reports.Source
	Aging    aging.Source
}

// PostgresStores binds every port to the pool.
func PostgresStores(db *pgxpool.Pool) Stores {
	return Stores{
		Accounts: accounts.NewRepository(db),
		Journals: journals.NewRepository(db),
		Ledger:   ledger.NewRepository(db),
		Reports:  reports.NewRepository(db),
		Aging:    aging.NewRepository(db),
	}
}

// MemoryStores binds every port to an in-memory store.
func MemoryStores(s *memstore.Store) Stores {
	return Stores{
		Accounts: s.Accounts(),
		Journals: s.Journals(),
		Ledger:   s.Ledger(),
		Reports:  s.Reports(),
		Aging:    s.Aging(),
	}
}

// Options tunes the engine. Zero values fall back to in-process locking, no
// metrics, the default suspense account and a discarding logger.
type Options struct {
	Locker       ledger.AccountLocker
	Metrics      *ledger.Metrics
	SuspenseCode string
	Logger       *slog.Logger
}

// Engine exposes every ledger operation.
type Engine struct {
	Accounts  *accounts.Service
	Drafts    *journals.Service
	Poster    *ledger.Poster
	Reports   *reports.Engine
	Aging     *aging.Service
	Reconcile *reconcile.Service
}

// NewEngine wires the components over stores.
func NewEngine(stores Stores, opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	locker := opts.Locker
	if locker == nil {
		locker = ledger.NewLocalLocker()
	}
	registry := accounts.NewService(stores.Accounts, logger.With(slog.String("component", "accounts")))
	poster := ledger.NewPoster(stores.Ledger, locker, opts.Metrics, logger.With(slog.String("component", "poster")))
	statements := reports.NewEngine(stores.Reports, logger.With(slog.String("component", "reports")))
	reconciler := reconcile.NewService(statements, poster, registry, opts.SuspenseCode, logger.With(slog.String("component", "reconcile")))
	reconciler.WithLocker(locker)
	return &Engine{
		Accounts:  registry,
		Drafts:    journals.NewService(stores.Journals, registry, logger.With(slog.String("component", "journals"))),
		Poster:    poster,
		Reports:   statements,
		Aging:     aging.NewService(stores.Aging, logger.With(slog.String("component", "aging"))),
		Reconcile: reconciler,
	}
}

// AccountHistory lists an account's ledger rows oldest first. Unknown accounts
// are reported as not found rather than as an empty history.
func (e *Engine) AccountHistory(ctx context.Context, accountID int64) ([]ledger.LedgerEntry, error) {
	if _, err := e.Accounts.Get(ctx, accountID); err != nil {
		return nil, err
	}
	rows, err := e.Poster.History(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []ledger.LedgerEntry{}
	}
	return rows, nil
}
