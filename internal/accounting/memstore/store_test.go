package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/ledger/internal/accounting/aging"
	"github.com/odyssey-erp/ledger/internal/accounting/journals"
	"github.com/odyssey-erp/ledger/internal/accounting/ledger"
	"github.com/odyssey-erp/ledger/internal/accounting/reports"
	"github.com/odyssey-erp/ledger/internal/accounting/shared"
)

func TestFailedWriteLeavesStateUntouched(t *testing.T) {
	s := New()
	ctx := context.Background()
	cash, err := s.Accounts().Insert(ctx, accounts.CreateAccountInput{Code: "1000", Name: "Cash", Type: accounts.AccountTypeAsset, NormalBalance: accounts.NormalDebit})
	require.NoError(t, err)

	boom := errors.New("disk full")
	err = s.Ledger().WithTx(ctx, func(ctx context.Context, tx ledger.TxRepository) error {
		_, err := tx.InsertLedgerEntries(ctx, []ledger.LedgerEntry{{AccountID: cash.ID, Debit: decimal.NewFromInt(1), Credit: decimal.Zero}})
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.Empty(t, s.LedgerRows())
}

func TestFailOnAndHeal(t *testing.T) {
	s := New()
	ctx := context.Background()
	s.FailOn("InsertDraft", nil)
	_, err := s.Journals().InsertDraft(ctx, journals.DraftInput{Description: "x"})
	require.ErrorIs(t, err, ErrInjected)

	s.Heal()
	entry, err := s.Journals().InsertDraft(ctx, journals.DraftInput{Description: "x"})
	require.NoError(t, err)
	require.Equal(t, journals.KindStandard, entry.Kind)
}

func TestReturnedEntriesAreCopies(t *testing.T) {
	s := New()
	ctx := context.Background()
	entry, err := s.Journals().InsertDraft(ctx, journals.DraftInput{
		Description: "x",
		Lines:       []journals.DraftLineInput{{AccountID: 1, Debit: decimal.NewFromInt(5), Credit: decimal.Zero}},
	})
	require.NoError(t, err)
	entry.Lines[0].AccountID = 99

	stored, err := s.Journals().Get(ctx, entry.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), stored.Lines[0].AccountID)
}

func TestDuplicateAccountCode(t *testing.T) {
	s := New()
	ctx := context.Background()
	in := accounts.CreateAccountInput{Code: "1000", Name: "Cash", Type: accounts.AccountTypeAsset}
	_, err := s.Accounts().Insert(ctx, in)
	require.NoError(t, err)
	_, err = s.Accounts().Insert(ctx, in)
	require.ErrorIs(t, err, shared.ErrDuplicateCode)
}

func TestDeleteRefusesReferencedAccounts(t *testing.T) {
	s := New()
	ctx := context.Background()
	repo := s.Accounts()
	insert := func(code string, parent *int64) accounts.Account {
		a, err := repo.Insert(ctx, accounts.CreateAccountInput{Code: code, Name: code, Type: accounts.AccountTypeAsset, NormalBalance: accounts.NormalDebit, ParentID: parent})
		require.NoError(t, err)
		return a
	}
	parent := insert("1000", nil)
	insert("1010", &parent.ID)
	drafted := insert("1100", nil)
	posted := insert("1200", nil)
	unused := insert("1300", nil)

	_, err := s.Journals().InsertDraft(ctx, journals.DraftInput{
		Date:        time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		Description: "pending",
		Lines:       []journals.DraftLineInput{{AccountID: drafted.ID, Debit: decimal.NewFromInt(5), Credit: decimal.Zero}},
	})
	require.NoError(t, err)
	s.AppendRaw(ledger.LedgerEntry{AccountID: posted.ID, Debit: decimal.NewFromInt(5), Credit: decimal.Zero})

	for _, id := range []int64{parent.ID, drafted.ID, posted.ID} {
		err := repo.Delete(ctx, id)
		require.ErrorIs(t, err, shared.ErrInvalidState, "account %d", id)
		_, err = repo.Get(ctx, id)
		require.NoError(t, err)
	}

	require.NoError(t, repo.Delete(ctx, unused.ID))
	require.ErrorIs(t, repo.Delete(ctx, unused.ID), shared.ErrNotFound)
}

func TestMovementsRespectWindowAndKind(t *testing.T) {
	s := New()
	day := func(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }
	s.AppendRaw(ledger.LedgerEntry{AccountID: 1, Debit: decimal.NewFromInt(10), Credit: decimal.Zero, TransactionDate: day(1)})
	s.AppendRaw(ledger.LedgerEntry{AccountID: 1, Debit: decimal.NewFromInt(5), Credit: decimal.Zero, TransactionDate: day(5), Kind: journals.KindReconciliation})
	s.AppendRaw(ledger.LedgerEntry{AccountID: 1, Debit: decimal.NewFromInt(7), Credit: decimal.Zero, TransactionDate: day(9)})

	err := s.Reports().WithSnapshot(context.Background(), func(ctx context.Context, snap reports.Snapshot) error {
		moves, err := snap.Movements(ctx, reports.Window{From: day(2), To: day(8)})
		require.NoError(t, err)
		require.Len(t, moves, 1)
		require.True(t, moves[0].Debit.Equal(decimal.NewFromInt(5)))
		require.True(t, moves[0].ReconDebit.Equal(decimal.NewFromInt(5)))
		return nil
	})
	require.NoError(t, err)
}

func TestOpenItemsSkipSettled(t *testing.T) {
	s := New()
	s.AddOpenItem(aging.KindReceivable, aging.OpenItem{Number: "INV-1", Total: decimal.NewFromInt(100), Paid: decimal.NewFromInt(100)})
	s.AddOpenItem(aging.KindReceivable, aging.OpenItem{Number: "INV-2", Total: decimal.NewFromInt(100), Paid: decimal.NewFromInt(40)})
	s.AddOpenItem(aging.KindPayable, aging.OpenItem{Number: "BILL-1", Total: decimal.NewFromInt(10), Paid: decimal.Zero})

	items, err := s.Aging().OpenItems(context.Background(), aging.KindReceivable)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "INV-2", items[0].Number)
}
