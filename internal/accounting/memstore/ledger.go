package memstore

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/ledger/internal/accounting/journals"
	"github.com/odyssey-erp/ledger/internal/accounting/ledger"
	"github.com/odyssey-erp/ledger/internal/accounting/shared"
)

type ledgerRepo struct {
	s *Store
}

func (r *ledgerRepo) GetJournal(ctx context.Context, id int64) (journals.JournalEntry, error) {
	return (&journalRepo{s: r.s}).Get(ctx, id)
}

func (r *ledgerRepo) History(ctx context.Context, accountID int64) ([]ledger.LedgerEntry, error) {
	var out []ledger.LedgerEntry
	err := r.s.read(func(st *state) error {
		if err := r.s.fault("History"); err != nil {
			return err
		}
		for _, row := range st.ledger {
			if row.AccountID == accountID {
				out = append(out, row)
			}
		}
		return nil
	})
	return out, err
}

// WithTx holds the store lock for the whole of fn, so transactions are
// serialised and a failing fn discards its copy of the state.
func (r *ledgerRepo) WithTx(ctx context.Context, fn func(context.Context, ledger.TxRepository) error) error {
	return r.s.write(func(st *state) error {
		if err := r.s.fault("WithTx"); err != nil {
			return err
		}
		if err := fn(ctx, &txRepo{s: r.s, st: st}); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		return r.s.fault("Commit")
	})
}

type txRepo struct {
	s  *Store
	st *state
}

func (t *txRepo) GetJournalForUpdate(ctx context.Context, id int64) (journals.JournalEntry, error) {
	if err := t.s.fault("GetJournalForUpdate"); err != nil {
		return journals.JournalEntry{}, err
	}
	e, ok := t.st.journals[id]
	if !ok {
		return journals.JournalEntry{}, shared.ErrJournalNotFound
	}
	return copyEntry(e), nil
}

func (t *txRepo) InsertJournal(ctx context.Context, in journals.DraftInput) (journals.JournalEntry, error) {
	if err := t.s.fault("InsertJournal"); err != nil {
		return journals.JournalEntry{}, err
	}
	return t.s.insertJournal(t.st, in), nil
}

func (t *txRepo) LockAccounts(ctx context.Context, ids []int64) (map[int64]accounts.Account, error) {
	if err := t.s.fault("LockAccounts"); err != nil {
		return nil, err
	}
	out := make(map[int64]accounts.Account, len(ids))
	for _, id := range ids {
		if a, ok := t.st.accounts[id]; ok {
			out[id] = a
		}
	}
	return out, nil
}

func (t *txRepo) LatestBalance(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	if err := t.s.fault("LatestBalance"); err != nil {
		return decimal.Zero, err
	}
	for i := len(t.st.ledger) - 1; i >= 0; i-- {
		if t.st.ledger[i].AccountID == accountID {
			return t.st.ledger[i].RunningBalance, nil
		}
	}
	return decimal.Zero, nil
}

func (t *txRepo) InsertLedgerEntries(ctx context.Context, rows []ledger.LedgerEntry) ([]ledger.LedgerEntry, error) {
	if err := t.s.fault("InsertLedgerEntries"); err != nil {
		return nil, err
	}
	now := t.s.now()
	out := make([]ledger.LedgerEntry, 0, len(rows))
	for _, row := range rows {
		t.st.nextLedger++
		row.ID = t.st.nextLedger
		row.CreatedAt = now
		t.st.ledger = append(t.st.ledger, row)
		out = append(out, row)
	}
	return out, nil
}

func (t *txRepo) MarkPosted(ctx context.Context, id, expectedVersion int64, at time.Time) error {
	if err := t.s.fault("MarkPosted"); err != nil {
		return err
	}
	e, ok := t.st.journals[id]
	if !ok || e.Status != journals.JournalStatusDraft || e.Version != expectedVersion {
		return journals.ErrDraftChanged
	}
	posted := at
	e.Status = journals.JournalStatusPosted
	e.PostedAt = &posted
	e.UpdatedAt = at
	t.st.journals[id] = e
	return nil
}
