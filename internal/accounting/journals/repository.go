package journals

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/ledger/internal/accounting/shared"
	"github.com/odyssey-erp/ledger/internal/platform/db"
)

// ErrDraftChanged is returned by conditional writes when the stored draft no
// longer matches the expected status or version.
var ErrDraftChanged = errors.New("accounting: draft changed")

// Repository persists journal entries while they are drafts.
type Repository interface {
	InsertDraft(ctx context.Context, in DraftInput) (JournalEntry, error)
	Get(ctx context.Context, id int64) (JournalEntry, error)
	List(ctx context.Context, filter ListFilter) ([]JournalEntry, error)
	// ReplaceDraft rewrites header and lines when the entry is still a draft at
	// expectedVersion, bumping the version.
	ReplaceDraft(ctx context.Context, id, expectedVersion int64, in DraftInput) (JournalEntry, error)
	DeleteDraft(ctx context.Context, id int64) error
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository returns the PostgreSQL backed repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const entryColumns = `id, number, entry_date, reference, description, status, kind, version, source_id, created_by, posted_at, created_at, updated_at`

// ScanEntry reads an entry header selected with entryColumns.
func ScanEntry(row pgx.Row) (JournalEntry, error) {
	var (
		e         JournalEntry
		date      *time.Time
		createdBy *int64
	)
	err := row.Scan(&e.ID, &e.Number, &date, &e.Reference, &e.Description, &e.Status, &e.Kind, &e.Version, &e.SourceID, &createdBy, &e.PostedAt, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JournalEntry{}, shared.ErrJournalNotFound
		}
		return JournalEntry{}, err
	}
	if date != nil {
		e.Date = *date
	}
	if createdBy != nil {
		e.CreatedBy = *createdBy
	}
	return e, nil
}

// EntryColumns is the select list understood by ScanEntry.
func EntryColumns() string { return entryColumns }

// LoadLines fetches the ordered lines of an entry using q.
func LoadLines(ctx context.Context, q interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}, entryID int64) ([]JournalLine, error) {
	rows, err := q.Query(ctx, `SELECT id, je_id, line_no, account_id, description, debit::text, credit::text
FROM journal_lines WHERE je_id=$1 ORDER BY line_no ASC`, entryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []JournalLine
	for rows.Next() {
		var (
			line          JournalLine
			debit, credit string
		)
		if err := rows.Scan(&line.ID, &line.JournalID, &line.LineNo, &line.AccountID, &line.Description, &debit, &credit); err != nil {
			return nil, err
		}
		if line.Debit, err = decimal.NewFromString(debit); err != nil {
			return nil, fmt.Errorf("journal line %d debit: %w", line.ID, err)
		}
		if line.Credit, err = decimal.NewFromString(credit); err != nil {
			return nil, fmt.Errorf("journal line %d credit: %w", line.ID, err)
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

// InsertLines writes lines for an entry inside tx.
func InsertLines(ctx context.Context, tx pgx.Tx, entryID int64, lines []DraftLineInput) error {
	batch := &pgx.Batch{}
	for idx, line := range lines {
		batch.Queue(`INSERT INTO journal_lines (je_id, line_no, account_id, description, debit, credit)
VALUES ($1,$2,$3,$4,$5,$6)`, entryID, idx+1, line.AccountID, line.Description, line.Debit.String(), line.Credit.String())
	}
	return tx.SendBatch(ctx, batch).Close()
}

// InsertEntry writes an entry header with the given status inside tx and
// assigns its journal number.
func InsertEntry(ctx context.Context, tx pgx.Tx, in DraftInput, status JournalStatus) (JournalEntry, error) {
	kind := in.Kind
	if kind == "" {
		kind = KindStandard
	}
	row := tx.QueryRow(ctx, `INSERT INTO journal_entries (number, entry_date, reference, description, status, kind, version, source_id, created_by)
VALUES (nextval('journal_number_seq'),$1,$2,$3,$4,$5,1,$6,$7) RETURNING `+entryColumns,
		nullDate(in.Date), in.Reference, in.Description, status, kind, uuid.New(), nullInt(in.CreatedBy))
	return ScanEntry(row)
}

func (r *repository) withTx(ctx context.Context, fn func(pgx.Tx) error) error {
	return db.WithTx(ctx, r.db, db.ReadWrite, fn)
}

func (r *repository) InsertDraft(ctx context.Context, in DraftInput) (JournalEntry, error) {
	var entry JournalEntry
	err := r.withTx(ctx, func(tx pgx.Tx) error {
		inserted, err := InsertEntry(ctx, tx, in, JournalStatusDraft)
		if err != nil {
			return err
		}
		if err := InsertLines(ctx, tx, inserted.ID, in.Lines); err != nil {
			return err
		}
		inserted.Lines, err = LoadLines(ctx, tx, inserted.ID)
		entry = inserted
		return err
	})
	return entry, err
}

func (r *repository) Get(ctx context.Context, id int64) (JournalEntry, error) {
	entry, err := ScanEntry(r.db.QueryRow(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE id=$1`, id))
	if err != nil {
		return JournalEntry{}, err
	}
	entry.Lines, err = LoadLines(ctx, r.db, id)
	if err != nil {
		return JournalEntry{}, err
	}
	return entry, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]JournalEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM journal_entries`
	var args []any
	if filter.Status != "" {
		query += ` WHERE status=$1`
		args = append(args, filter.Status)
	}
	rows, err := r.db.Query(ctx, query+` ORDER BY number DESC`, args...)
	if err != nil {
		return nil, err
	}
	var entries []JournalEntry
	for rows.Next() {
		e, err := ScanEntry(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		entries = append(entries, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range entries {
		if entries[i].Lines, err = LoadLines(ctx, r.db, entries[i].ID); err != nil {
			return nil, err
		}
	}
	return entries, nil
}

func (r *repository) ReplaceDraft(ctx context.Context, id, expectedVersion int64, in DraftInput) (JournalEntry, error) {
	var entry JournalEntry
	err := r.withTx(ctx, func(tx pgx.Tx) error {
		updated, err := ScanEntry(tx.QueryRow(ctx, `UPDATE journal_entries
SET entry_date=$3, reference=$4, description=$5, version=version+1, updated_at=NOW()
WHERE id=$1 AND version=$2 AND status='DRAFT' RETURNING `+entryColumns,
			id, expectedVersion, nullDate(in.Date), in.Reference, in.Description))
		if err != nil {
			if errors.Is(err, shared.ErrJournalNotFound) {
				return ErrDraftChanged
			}
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM journal_lines WHERE je_id=$1`, id); err != nil {
			return err
		}
		if err := InsertLines(ctx, tx, id, in.Lines); err != nil {
			return err
		}
		updated.Lines, err = LoadLines(ctx, tx, id)
		entry = updated
		return err
	})
	return entry, err
}

func (r *repository) DeleteDraft(ctx context.Context, id int64) error {
	return r.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM journal_lines WHERE je_id=$1
AND EXISTS (SELECT 1 FROM journal_entries WHERE id=$1 AND status='DRAFT')`, id); err != nil {
			return err
		}
		cmd, err := tx.Exec(ctx, `DELETE FROM journal_entries WHERE id=$1 AND status='DRAFT'`, id)
		if err != nil {
			return err
		}
		if cmd.RowsAffected() == 0 {
			return ErrDraftChanged
		}
		return nil
	})
}

func nullInt(val int64) any {
	if val == 0 {
		return nil
	}
	return val
}

func nullDate(val time.Time) any {
	if val.IsZero() {
		return nil
	}
	return val
}
