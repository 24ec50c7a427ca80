package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/ledger/internal/accounting/journals"
	"github.com/odyssey-erp/ledger/internal/platform/db"
)

// Repository is the poster's view of the store.
type Repository interface {
	// GetJournal reads an entry outside any transaction.
	GetJournal(ctx context.Context, id int64) (journals.JournalEntry, error)
	// History lists an account's ledger rows oldest first.
	History(ctx context.Context, accountID int64) ([]LedgerEntry, error)
	// WithTx runs fn atomically; nothing fn wrote survives an error.
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes the writes a posting performs inside its transaction.
type TxRepository interface {
	GetJournalForUpdate(ctx context.Context, id int64) (journals.JournalEntry, error)
	InsertJournal(ctx context.Context, in journals.DraftInput) (journals.JournalEntry, error)
	// LockAccounts locks the given accounts for the rest of the transaction and
	// returns those that exist.
	LockAccounts(ctx context.Context, ids []int64) (map[int64]accounts.Account, error)
	LatestBalance(ctx context.Context, accountID int64) (decimal.Decimal, error)
	InsertLedgerEntries(ctx context.Context, rows []LedgerEntry) ([]LedgerEntry, error)
	// MarkPosted flips a DRAFT entry at expectedVersion to POSTED. It returns
	// journals.ErrDraftChanged when the entry moved on.
	MarkPosted(ctx context.Context, id, expectedVersion int64, at time.Time) error
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository returns the PostgreSQL backed repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) GetJournal(ctx context.Context, id int64) (journals.JournalEntry, error) {
	entry, err := journals.ScanEntry(r.db.QueryRow(ctx, `SELECT `+journals.EntryColumns()+` FROM journal_entries WHERE id=$1`, id))
	if err != nil {
		return journals.JournalEntry{}, err
	}
	entry.Lines, err = journals.LoadLines(ctx, r.db, id)
	if err != nil {
		return journals.JournalEntry{}, err
	}
	return entry, nil
}

const ledgerColumns = `id, account_id, je_id, kind, description, debit::text, credit::text, running_balance::text, transaction_date, created_at`

func scanLedgerEntry(row pgx.Row) (LedgerEntry, error) {
	var (
		e                      LedgerEntry
		debit, credit, running string
	)
	if err := row.Scan(&e.ID, &e.AccountID, &e.JournalID, &e.Kind, &e.Description, &debit, &credit, &running, &e.TransactionDate, &e.CreatedAt); err != nil {
		return LedgerEntry{}, err
	}
	var err error
	if e.Debit, err = decimal.NewFromString(debit); err != nil {
		return LedgerEntry{}, fmt.Errorf("ledger entry %d debit: %w", e.ID, err)
	}
	if e.Credit, err = decimal.NewFromString(credit); err != nil {
		return LedgerEntry{}, fmt.Errorf("ledger entry %d credit: %w", e.ID, err)
	}
	if e.RunningBalance, err = decimal.NewFromString(running); err != nil {
		return LedgerEntry{}, fmt.Errorf("ledger entry %d running balance: %w", e.ID, err)
	}
	return e, nil
}

func (r *repository) History(ctx context.Context, accountID int64) ([]LedgerEntry, error) {
	rows, err := r.db.Query(ctx, `SELECT `+ledgerColumns+` FROM ledger_entries WHERE account_id=$1 ORDER BY id ASC`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []LedgerEntry
	for rows.Next() {
		e, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// WithTx runs fn in a SERIALIZABLE transaction.
func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.db, db.Posting, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) GetJournalForUpdate(ctx context.Context, id int64) (journals.JournalEntry, error) {
	entry, err := journals.ScanEntry(r.tx.QueryRow(ctx, `SELECT `+journals.EntryColumns()+` FROM journal_entries WHERE id=$1 FOR UPDATE`, id))
	if err != nil {
		return journals.JournalEntry{}, err
	}
	entry.Lines, err = journals.LoadLines(ctx, r.tx, id)
	if err != nil {
		return journals.JournalEntry{}, err
	}
	return entry, nil
}

func (r *txRepository) InsertJournal(ctx context.Context, in journals.DraftInput) (journals.JournalEntry, error) {
	entry, err := journals.InsertEntry(ctx, r.tx, in, journals.JournalStatusDraft)
	if err != nil {
		return journals.JournalEntry{}, err
	}
	if err := journals.InsertLines(ctx, r.tx, entry.ID, in.Lines); err != nil {
		return journals.JournalEntry{}, err
	}
	entry.Lines, err = journals.LoadLines(ctx, r.tx, entry.ID)
	return entry, err
}

func (r *txRepository) LockAccounts(ctx context.Context, ids []int64) (map[int64]accounts.Account, error) {
	rows, err := r.tx.Query(ctx, `SELECT id, code, name, type, subtype, normal_balance, parent_id, is_active, created_at, updated_at
FROM accounts WHERE id = ANY($1) ORDER BY id FOR UPDATE`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[int64]accounts.Account, len(ids))
	for rows.Next() {
		var a accounts.Account
		if err := rows.Scan(&a.ID, &a.Code, &a.Name, &a.Type, &a.Subtype, &a.NormalBalance, &a.ParentID, &a.IsActive, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		out[a.ID] = a
	}
	return out, rows.Err()
}

func (r *txRepository) LatestBalance(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	var raw string
	err := r.tx.QueryRow(ctx, `SELECT running_balance::text FROM ledger_entries WHERE account_id=$1 ORDER BY id DESC LIMIT 1`, accountID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(raw)
}

func (r *txRepository) InsertLedgerEntries(ctx context.Context, rows []LedgerEntry) ([]LedgerEntry, error) {
	out := make([]LedgerEntry, 0, len(rows))
	for _, row := range rows {
		inserted, err := scanLedgerEntry(r.tx.QueryRow(ctx, `INSERT INTO ledger_entries (account_id, je_id, kind, description, debit, credit, running_balance, transaction_date)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING `+ledgerColumns,
			row.AccountID, row.JournalID, row.Kind, row.Description, row.Debit.String(), row.Credit.String(), row.RunningBalance.String(), row.TransactionDate))
		if err != nil {
			return nil, err
		}
		out = append(out, inserted)
	}
	return out, nil
}

func (r *txRepository) MarkPosted(ctx context.Context, id, expectedVersion int64, at time.Time) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE journal_entries SET status='POSTED', posted_at=$3, updated_at=$3
WHERE id=$1 AND version=$2 AND status='DRAFT'`, id, expectedVersion, at)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return journals.ErrDraftChanged
	}
	return nil
}

