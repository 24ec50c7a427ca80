package reports

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/ledger/internal/platform/db"
)

type repository struct {
	db *pgxpool.Pool
}

// NewRepository returns a Source reading PostgreSQL inside read-only
// REPEATABLE READ transactions.
func NewRepository(db *pgxpool.Pool) Source {
	return &repository{db: db}
}

func (r *repository) WithSnapshot(ctx context.Context, fn func(context.Context, Snapshot) error) error {
	return db.WithTx(ctx, r.db, db.Snapshot, func(tx pgx.Tx) error {
		return fn(ctx, &snapshot{tx: tx})
	})
}

type snapshot struct {
	tx pgx.Tx
}

func (s *snapshot) Accounts(ctx context.Context) ([]accounts.Account, error) {
	rows, err := s.tx.Query(ctx, `SELECT id, code, name, type, subtype, normal_balance, parent_id, is_active, created_at, updated_at
FROM accounts ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []accounts.Account
	for rows.Next() {
		var a accounts.Account
		if err := rows.Scan(&a.ID, &a.Code, &a.Name, &a.Type, &a.Subtype, &a.NormalBalance, &a.ParentID, &a.IsActive, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *snapshot) Movements(ctx context.Context, window Window) ([]Movement, error) {
	var from any
	if !window.From.IsZero() {
		from = DateOnly(window.From)
	}
	rows, err := s.tx.Query(ctx, `SELECT account_id,
	COALESCE(SUM(debit), 0)::text,
	COALESCE(SUM(credit), 0)::text,
	COALESCE(SUM(debit) FILTER (WHERE kind = 'RECONCILIATION'), 0)::text,
	COALESCE(SUM(credit) FILTER (WHERE kind = 'RECONCILIATION'), 0)::text
FROM ledger_entries
WHERE transaction_date <= $2 AND ($1::date IS NULL OR transaction_date >= $1::date)
GROUP BY account_id`, from, DateOnly(window.To))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Movement
	for rows.Next() {
		var (
			mv  Movement
			raw [4]string
		)
		if err := rows.Scan(&mv.AccountID, &raw[0], &raw[1], &raw[2], &raw[3]); err != nil {
			return nil, err
		}
		targets := []*decimal.Decimal{&mv.Debit, &mv.Credit, &mv.ReconDebit, &mv.ReconCredit}
		for i, target := range targets {
			v, err := decimal.NewFromString(raw[i])
			if err != nil {
				return nil, fmt.Errorf("movement for account %d: %w", mv.AccountID, err)
			}
			*target = v
		}
		out = append(out, mv)
	}
	return out, rows.Err()
}
