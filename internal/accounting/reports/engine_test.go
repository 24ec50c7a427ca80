package reports_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/ledger/internal/accounting/journals"
	"github.com/odyssey-erp/ledger/internal/accounting/ledger"
	"github.com/odyssey-erp/ledger/internal/accounting/memstore"
	"github.com/odyssey-erp/ledger/internal/accounting/reports"
	"github.com/odyssey-erp/ledger/internal/accounting/shared"
	_ "github.com/odyssey-erp/ledger/testing"
)

func amount(v string) decimal.Decimal { return decimal.RequireFromString(v) }

type books struct {
	store  *memstore.Store
	engine *reports.Engine
	ids    map[string]int64
}

func openBooks(t *testing.T) *books {
	t.Helper()
	store := memstore.New()
	registry := accounts.NewService(store.Accounts(), nil)
	b := &books{store: store, engine: reports.NewEngine(store.Reports(), nil), ids: map[string]int64{}}
	for _, a := range []accounts.CreateAccountInput{
		{Code: "1000", Name: "Cash", Type: accounts.AccountTypeAsset},
		{Code: "3000", Name: "Capital", Type: accounts.AccountTypeEquity},
		{Code: "4000", Name: "Sales", Type: accounts.AccountTypeRevenue},
		{Code: "6000", Name: "Rent", Type: accounts.AccountTypeExpense},
	} {
		created, _, err := registry.Create(context.Background(), a)
		require.NoError(t, err)
		b.ids[a.Code] = created.ID
	}
	return b
}

func (b *books) post(t *testing.T, date time.Time, debitCode, creditCode, value string) {
	t.Helper()
	ctx := context.Background()
	drafts := journals.NewService(b.store.Journals(), b.store.Accounts(), nil)
	entry, err := drafts.CreateDraft(ctx, journals.DraftInput{
		Date:        date,
		Description: "entry",
		Lines: []journals.DraftLineInput{
			{AccountID: b.ids[debitCode], Debit: amount(value), Credit: decimal.Zero},
			{AccountID: b.ids[creditCode], Debit: decimal.Zero, Credit: amount(value)},
		},
	})
	require.NoError(t, err)
	_, err = ledger.NewPoster(b.store.Ledger(), nil, nil, nil).Post(ctx, entry.ID)
	require.NoError(t, err)
}

func date(m time.Month, d int) time.Time { return time.Date(2024, m, d, 0, 0, 0, 0, time.UTC) }

func TestEngineStatementsFromPostedEntries(t *testing.T) {
	b := openBooks(t)
	ctx := context.Background()
	b.post(t, date(1, 2), "1000", "3000", "5000")
	b.post(t, date(1, 15), "1000", "4000", "1200")
	b.post(t, date(2, 1), "6000", "1000", "400")
	b.post(t, date(3, 10), "1000", "4000", "900")

	tb, err := b.engine.TrialBalance(ctx, date(2, 28))
	require.NoError(t, err)
	require.True(t, tb.IsBalanced)
	require.True(t, tb.TotalDebits.Equal(amount("6200")))
	require.Len(t, tb.Rows, 4)

	bs, err := b.engine.BalanceSheet(ctx, time.Date(2024, 2, 28, 23, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.True(t, bs.IsBalanced)
	require.True(t, bs.TotalAssets.Equal(amount("5800")))
	require.True(t, bs.CurrentEarnings.Equal(amount("800")))
	require.False(t, bs.HasReconciliation)

	is, err := b.engine.IncomeStatement(ctx, date(1, 10), date(3, 31))
	require.NoError(t, err)
	require.True(t, is.Revenue.Total.Equal(amount("2100")))
	require.True(t, is.NetIncome.Equal(amount("1700")))

	march, err := b.engine.IncomeStatement(ctx, date(3, 1), date(3, 31))
	require.NoError(t, err)
	require.True(t, march.NetIncome.Equal(amount("900")))
}

func TestEngineEmptyLedger(t *testing.T) {
	b := openBooks(t)
	bs, err := b.engine.BalanceSheet(context.Background(), date(1, 1))
	require.NoError(t, err)
	require.False(t, bs.DataAvailable)
	require.True(t, bs.IsBalanced)
}

func TestEngineRejectsInvertedRange(t *testing.T) {
	b := openBooks(t)
	_, err := b.engine.IncomeStatement(context.Background(), date(3, 1), date(2, 1))
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestEngineSnapshotFailureIsStorageError(t *testing.T) {
	b := openBooks(t)
	b.store.FailOn("WithSnapshot", nil)
	_, err := b.engine.TrialBalance(context.Background(), date(1, 1))
	require.ErrorIs(t, err, shared.ErrStorage)
}

func TestEngineSeesBypassWrites(t *testing.T) {
	b := openBooks(t)
	b.post(t, date(1, 2), "1000", "3000", "1000")
	b.store.AppendRaw(ledger.LedgerEntry{AccountID: b.ids["1000"], Debit: amount("500"), Credit: decimal.Zero, TransactionDate: date(1, 3)})

	bs, err := b.engine.BalanceSheet(context.Background(), date(1, 31))
	require.NoError(t, err)
	require.False(t, bs.IsBalanced)
	require.True(t, bs.Variance().Equal(amount("500")))

	tb, err := b.engine.TrialBalance(context.Background(), date(1, 31))
	require.NoError(t, err)
	require.False(t, tb.IsBalanced)
}
