package reconcile_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/ledger/internal/accounting/journals"
	"github.com/odyssey-erp/ledger/internal/accounting/ledger"
	"github.com/odyssey-erp/ledger/internal/accounting/memstore"
	"github.com/odyssey-erp/ledger/internal/accounting/reconcile"
	"github.com/odyssey-erp/ledger/internal/accounting/reports"
	"github.com/odyssey-erp/ledger/internal/accounting/shared"
	_ "github.com/odyssey-erp/ledger/testing"
)

var asOf = time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC)

type env struct {
	store    *memstore.Store
	registry *accounts.Service
	svc      *reconcile.Service
	engine   *reports.Engine
	poster   *ledger.Poster
	cash     accounts.Account
	capital  accounts.Account
}

func setup(t *testing.T, suspense *accounts.CreateAccountInput) *env {
	t.Helper()
	ctx := context.Background()
	store := memstore.New()
	registry := accounts.NewService(store.Accounts(), nil)
	e := &env{store: store, registry: registry, engine: reports.NewEngine(store.Reports(), nil)}
	var err error
	e.cash, _, err = registry.Create(ctx, accounts.CreateAccountInput{Code: "1000", Name: "Cash", Type: accounts.AccountTypeAsset})
	require.NoError(t, err)
	e.capital, _, err = registry.Create(ctx, accounts.CreateAccountInput{Code: "3000", Name: "Capital", Type: accounts.AccountTypeEquity})
	require.NoError(t, err)
	if suspense != nil {
		_, _, err = registry.Create(ctx, *suspense)
		require.NoError(t, err)
	}

	poster := ledger.NewPoster(store.Ledger(), nil, nil, nil)
	drafts := journals.NewService(store.Journals(), store.Accounts(), nil)
	entry, err := drafts.CreateDraft(ctx, journals.DraftInput{
		Date:        asOf.AddDate(0, -1, 0),
		Description: "Owner contribution",
		Lines: []journals.DraftLineInput{
			{AccountID: e.cash.ID, Debit: decimal.NewFromInt(2000), Credit: decimal.Zero},
			{AccountID: e.capital.ID, Debit: decimal.Zero, Credit: decimal.NewFromInt(2000)},
		},
	})
	require.NoError(t, err)
	_, err = poster.Post(ctx, entry.ID)
	require.NoError(t, err)

	e.poster = poster
	e.svc = reconcile.NewService(e.engine, poster, registry, "", nil)
	e.svc.WithNow(func() time.Time { return asOf })
	return e
}

func suspenseAccount() *accounts.CreateAccountInput {
	return &accounts.CreateAccountInput{Code: reconcile.DefaultSuspenseCode, Name: "Suspense", Type: accounts.AccountTypeEquity, Subtype: accounts.SubtypeSuspense}
}

func (e *env) bypass(debit, credit string) {
	e.store.AppendRaw(ledger.LedgerEntry{
		AccountID:       e.cash.ID,
		Debit:           decimal.RequireFromString(debit),
		Credit:          decimal.RequireFromString(credit),
		TransactionDate: asOf.AddDate(0, 0, -2),
	})
}

func TestAutoBalanceIsNoOpWhenBalanced(t *testing.T) {
	e := setup(t, suspenseAccount())
	result, err := e.svc.AutoBalance(context.Background(), reconcile.AutoBalanceInput{})
	require.NoError(t, err)
	require.False(t, result.Adjusted)
	require.Nil(t, result.Entry)
	require.True(t, result.Before.IsBalanced)
	require.Len(t, e.store.LedgerRows(), 2)
}

func TestAutoBalanceCreditsPositiveVariance(t *testing.T) {
	e := setup(t, suspenseAccount())
	ctx := context.Background()
	e.bypass("500", "0")

	variance, err := e.svc.ComputeVariance(ctx, time.Time{})
	require.NoError(t, err)
	require.False(t, variance.IsBalanced)
	require.True(t, variance.Amount.Equal(decimal.NewFromInt(500)))

	result, err := e.svc.AutoBalance(ctx, reconcile.AutoBalanceInput{Reason: "unexplained cash", ActorID: 3})
	require.NoError(t, err)
	require.True(t, result.Adjusted)
	require.Equal(t, string(accounts.NormalCredit), result.Side)
	require.True(t, result.Amount.Equal(decimal.NewFromInt(500)))
	require.True(t, result.After.IsBalanced)
	require.Equal(t, journals.KindReconciliation, result.Entry.Kind)
	require.Len(t, result.Entry.LedgerEntries, 1)
	require.True(t, result.Entry.LedgerEntries[0].Credit.Equal(decimal.NewFromInt(500)))

	bs, err := e.engine.BalanceSheet(ctx, asOf)
	require.NoError(t, err)
	require.True(t, bs.IsBalanced)
	require.True(t, bs.HasReconciliation)

	again, err := e.svc.AutoBalance(ctx, reconcile.AutoBalanceInput{})
	require.NoError(t, err)
	require.False(t, again.Adjusted)
}

func TestAutoBalanceDebitsNegativeVariance(t *testing.T) {
	e := setup(t, suspenseAccount())
	e.bypass("0", "120.50")

	result, err := e.svc.AutoBalance(context.Background(), reconcile.AutoBalanceInput{})
	require.NoError(t, err)
	require.Equal(t, string(accounts.NormalDebit), result.Side)
	require.True(t, result.Entry.LedgerEntries[0].Debit.Equal(decimal.RequireFromString("120.50")))
	require.True(t, result.After.IsBalanced)
}

func TestAutoBalanceIgnoresSubCentVariance(t *testing.T) {
	e := setup(t, suspenseAccount())
	e.bypass("0.004", "0")

	result, err := e.svc.AutoBalance(context.Background(), reconcile.AutoBalanceInput{})
	require.NoError(t, err)
	require.False(t, result.Adjusted)
}

func TestAutoBalanceRequiresSuspenseAccount(t *testing.T) {
	e := setup(t, nil)
	e.bypass("10", "0")
	_, err := e.svc.AutoBalance(context.Background(), reconcile.AutoBalanceInput{})
	require.ErrorIs(t, err, shared.ErrNotFound)
	require.Len(t, e.store.LedgerRows(), 3)
}

func TestAutoBalanceRejectsNonEquitySuspense(t *testing.T) {
	e := setup(t, &accounts.CreateAccountInput{Code: reconcile.DefaultSuspenseCode, Name: "Clearing", Type: accounts.AccountTypeAsset})
	e.bypass("10", "0")
	_, err := e.svc.AutoBalance(context.Background(), reconcile.AutoBalanceInput{})
	require.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestAutoBalanceStorageFailurePostsNothing(t *testing.T) {
	e := setup(t, suspenseAccount())
	e.bypass("75", "0")
	e.store.FailOn("MarkPosted", nil)

	_, err := e.svc.AutoBalance(context.Background(), reconcile.AutoBalanceInput{})
	require.ErrorIs(t, err, shared.ErrStorage)
	require.Len(t, e.store.LedgerRows(), 3)

	variance, err := e.svc.ComputeVariance(context.Background(), asOf)
	require.NoError(t, err)
	require.True(t, variance.Amount.Equal(decimal.NewFromInt(75)))
}

// slowSheets widens the gap between measuring the variance and posting it.
type slowSheets struct {
	inner reconcile.BalanceSheets
	delay time.Duration
}

func (s slowSheets) BalanceSheet(ctx context.Context, at time.Time) (reports.BalanceSheet, error) {
	bs, err := s.inner.BalanceSheet(ctx, at)
	time.Sleep(s.delay)
	return bs, err
}

func TestConcurrentAutoBalanceBooksVarianceOnce(t *testing.T) {
	e := setup(t, suspenseAccount())
	ctx := context.Background()
	e.bypass("500", "0")

	svc := reconcile.NewService(slowSheets{inner: e.engine, delay: 20 * time.Millisecond}, e.poster, e.registry, "", nil)
	svc.WithNow(func() time.Time { return asOf })

	const callers = 4
	var wg sync.WaitGroup
	results := make([]reconcile.AutoBalanceResult, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.AutoBalance(ctx, reconcile.AutoBalanceInput{Reason: "concurrent"})
		}(i)
	}
	wg.Wait()

	adjusted := 0
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		if results[i].Adjusted {
			adjusted++
		}
	}
	require.Equal(t, 1, adjusted)
	require.Len(t, e.store.LedgerRows(), 4)

	variance, err := e.svc.ComputeVariance(ctx, asOf)
	require.NoError(t, err)
	require.True(t, variance.IsBalanced, "variance left: %s", variance.Amount.StringFixed(2))
}

func TestAutoBalanceWaitsForSharedLock(t *testing.T) {
	e := setup(t, suspenseAccount())
	e.bypass("40", "0")

	locker := ledger.NewLocalLocker()
	e.svc.WithLocker(locker)
	release, err := locker.Lock(context.Background(), []int64{reconcile.LockKey})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err = e.svc.AutoBalance(ctx, reconcile.AutoBalanceInput{})
	require.ErrorIs(t, err, shared.ErrStorage)
	require.Len(t, e.store.LedgerRows(), 3)

	release()
	result, err := e.svc.AutoBalance(context.Background(), reconcile.AutoBalanceInput{})
	require.NoError(t, err)
	require.True(t, result.Adjusted)
	require.True(t, result.After.IsBalanced)
}
