package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Transaction presets used by the ledger stores.
var (
	// ReadWrite suits draft maintenance.
	ReadWrite = pgx.TxOptions{IsoLevel: pgx.RepeatableRead}
	// Posting keeps concurrent postings to one account from interleaving
	// their running balances.
	Posting = pgx.TxOptions{IsoLevel: pgx.Serializable}
	// Snapshot gives reports one consistent read-only view.
	Snapshot = pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}
)

// Beginner starts transactions. *pgxpool.Pool satisfies it.
type Beginner interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

// WithTx executes fn within a transaction opened with opts. The transaction is
// rolled back when fn fails and committed otherwise.
func WithTx(ctx context.Context, pool Beginner, opts pgx.TxOptions, fn func(pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("platform/db: begin tx: %w", err)
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("platform/db: commit tx: %w", err)
	}

	return nil
}
