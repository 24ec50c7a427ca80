package ledger_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/ledger/internal/accounting/journals"
	"github.com/odyssey-erp/ledger/internal/accounting/ledger"
	"github.com/odyssey-erp/ledger/internal/accounting/memstore"
	"github.com/odyssey-erp/ledger/internal/accounting/shared"
	_ "github.com/odyssey-erp/ledger/testing"
)

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

var day = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

type fixture struct {
	store    *memstore.Store
	registry *accounts.Service
	drafts   *journals.Service
	poster   *ledger.Poster
	cash     accounts.Account
	revenue  accounts.Account
}

func setup(t *testing.T) *fixture {
	t.Helper()
	store := memstore.New()
	f := &fixture{
		store:    store,
		registry: accounts.NewService(store.Accounts(), nil),
		drafts:   journals.NewService(store.Journals(), store.Accounts(), nil),
		poster:   ledger.NewPoster(store.Ledger(), nil, nil, nil),
	}
	f.cash = f.account(t, "1000", "Cash", accounts.AccountTypeAsset, "")
	f.revenue = f.account(t, "4000", "Revenue", accounts.AccountTypeRevenue, "")
	return f
}

func (f *fixture) account(t *testing.T, code, name string, typ accounts.AccountType, normal accounts.NormalBalance) accounts.Account {
	t.Helper()
	a, _, err := f.registry.Create(context.Background(), accounts.CreateAccountInput{Code: code, Name: name, Type: typ, NormalBalance: normal})
	require.NoError(t, err)
	return a
}

func (f *fixture) draft(t *testing.T, lines ...journals.DraftLineInput) journals.JournalEntry {
	t.Helper()
	entry, err := f.drafts.CreateDraft(context.Background(), journals.DraftInput{Date: day, Description: "test entry", Lines: lines})
	require.NoError(t, err)
	return entry
}

func debit(id int64, amount string) journals.DraftLineInput {
	return journals.DraftLineInput{AccountID: id, Debit: dec(amount), Credit: decimal.Zero}
}

func credit(id int64, amount string) journals.DraftLineInput {
	return journals.DraftLineInput{AccountID: id, Debit: decimal.Zero, Credit: dec(amount)}
}

func TestPostChainsRunningBalances(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	sale := f.draft(t, debit(f.cash.ID, "1000"), credit(f.revenue.ID, "1000"))
	posted, err := f.poster.Post(ctx, sale.ID)
	require.NoError(t, err)
	require.Equal(t, journals.JournalStatusPosted, posted.Status)
	require.Len(t, posted.LedgerEntries, 2)
	require.True(t, posted.TotalDebit.Equal(dec("1000")))

	refund := f.draft(t, debit(f.revenue.ID, "200"), credit(f.cash.ID, "200"))
	_, err = f.poster.Post(ctx, refund.ID)
	require.NoError(t, err)

	cash, err := f.poster.History(ctx, f.cash.ID)
	require.NoError(t, err)
	require.Len(t, cash, 2)
	require.True(t, cash[0].RunningBalance.Equal(dec("1000")))
	require.True(t, cash[1].RunningBalance.Equal(dec("800")))

	revenue, err := f.poster.History(ctx, f.revenue.ID)
	require.NoError(t, err)
	require.True(t, revenue[0].RunningBalance.Equal(dec("1000")))
	require.True(t, revenue[1].RunningBalance.Equal(dec("800")))
	require.Equal(t, refund.ID, revenue[1].JournalID)
	require.True(t, revenue[1].TransactionDate.Equal(day))
}

func TestPostSignsContraAccountByNormalBalance(t *testing.T) {
	f := setup(t)
	depreciation := f.account(t, "6100", "Depreciation", accounts.AccountTypeExpense, "")
	contra := f.account(t, "1590", "Accumulated Depreciation", accounts.AccountTypeAsset, accounts.NormalCredit)

	entry := f.draft(t, debit(depreciation.ID, "300"), credit(contra.ID, "300"))
	posted, err := f.poster.Post(context.Background(), entry.ID)
	require.NoError(t, err)
	for _, row := range posted.LedgerEntries {
		require.True(t, row.RunningBalance.Equal(dec("300")), "account %d", row.AccountID)
	}
}

func TestPostRejectsAlreadyPostedEntry(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	entry := f.draft(t, debit(f.cash.ID, "10"), credit(f.revenue.ID, "10"))
	_, err := f.poster.Post(ctx, entry.ID)
	require.NoError(t, err)

	_, err = f.poster.Post(ctx, entry.ID)
	require.ErrorIs(t, err, shared.ErrInvalidState)
	require.Len(t, f.store.LedgerRows(), 2)
}

func TestPostUnknownEntryIsStateViolation(t *testing.T) {
	f := setup(t)
	_, err := f.poster.Post(context.Background(), 42)
	require.ErrorIs(t, err, shared.ErrInvalidState)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestPostInvalidEntryLeavesLedgerUntouched(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	entry := f.draft(t, debit(f.cash.ID, "100"), credit(f.revenue.ID, "90"))

	_, err := f.poster.Post(ctx, entry.ID)
	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
	require.True(t, verr.HasField("totals"))
	require.Empty(t, f.store.LedgerRows())

	stored, err := f.drafts.Get(ctx, entry.ID)
	require.NoError(t, err)
	require.Equal(t, journals.JournalStatusDraft, stored.Status)
}

func TestPostRejectsInactiveAccount(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	entry := f.draft(t, debit(f.cash.ID, "100"), credit(f.revenue.ID, "100"))
	_, err := f.registry.Deactivate(ctx, f.revenue.ID)
	require.NoError(t, err)

	_, err = f.poster.Post(ctx, entry.ID)
	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
	require.True(t, verr.HasField("lines[1].account_id"))
}

func TestPostStorageFailureIsAtomic(t *testing.T) {
	for _, op := range []string{"LatestBalance", "InsertLedgerEntries", "MarkPosted", "Commit"} {
		t.Run(op, func(t *testing.T) {
			f := setup(t)
			ctx := context.Background()
			entry := f.draft(t, debit(f.cash.ID, "100"), credit(f.revenue.ID, "100"))

			f.store.FailOn(op, nil)
			_, err := f.poster.Post(ctx, entry.ID)
			require.ErrorIs(t, err, shared.ErrStorage)
			require.ErrorIs(t, err, memstore.ErrInjected)
			require.Empty(t, f.store.LedgerRows())

			stored, err := f.drafts.Get(ctx, entry.ID)
			require.NoError(t, err)
			require.Equal(t, journals.JournalStatusDraft, stored.Status)

			f.store.Heal()
			_, err = f.poster.Post(ctx, entry.ID)
			require.NoError(t, err)
			require.Len(t, f.store.LedgerRows(), 2)
		})
	}
}

// racingRepo edits the draft right after the poster's first read.
type racingRepo struct {
	ledger.Repository
	once  sync.Once
	raced func()
}

func (r *racingRepo) GetJournal(ctx context.Context, id int64) (journals.JournalEntry, error) {
	entry, err := r.Repository.GetJournal(ctx, id)
	r.once.Do(r.raced)
	return entry, err
}

func TestPostDetectsDraftEditedMidFlight(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	entry := f.draft(t, debit(f.cash.ID, "100"), credit(f.revenue.ID, "100"))

	repo := &racingRepo{Repository: f.store.Ledger(), raced: func() {
		_, err := f.drafts.UpdateDraft(ctx, entry.ID, entry.Version, journals.DraftInput{
			Date:        day,
			Description: "edited",
			Lines:       []journals.DraftLineInput{debit(f.cash.ID, "250"), credit(f.revenue.ID, "250")},
		})
		require.NoError(t, err)
	}}
	poster := ledger.NewPoster(repo, nil, nil, nil)

	_, err := poster.Post(ctx, entry.ID)
	require.ErrorIs(t, err, shared.ErrConcurrency)
	require.Empty(t, f.store.LedgerRows())

	posted, err := poster.Post(ctx, entry.ID)
	require.NoError(t, err)
	require.True(t, posted.TotalDebit.Equal(dec("250")))
}

func TestConcurrentPostingsKeepChainConsistent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	const n = 40
	ids := make([]int64, n)
	for i := range ids {
		ids[i] = f.draft(t, debit(f.cash.ID, "25"), credit(f.revenue.ID, "25")).ID
	}

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for _, id := range ids {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			_, err := f.poster.Post(ctx, id)
			errs <- err
		}(id)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	history, err := f.poster.History(ctx, f.cash.ID)
	require.NoError(t, err)
	require.Len(t, history, n)
	running := decimal.Zero
	for _, row := range history {
		running = running.Add(row.Debit).Sub(row.Credit)
		require.True(t, running.Equal(row.RunningBalance))
	}
	require.True(t, running.Equal(dec("1000")))
}

func TestPostReconciliationWritesSingleFlaggedRow(t *testing.T) {
	f := setup(t)
	suspense := f.account(t, "3999", "Suspense", accounts.AccountTypeEquity, "")

	posted, err := f.poster.PostReconciliation(context.Background(), ledger.ReconciliationInput{
		Date:        day,
		Reference:   "AUTO-BALANCE",
		Description: "offset",
		AccountID:   suspense.ID,
		Debit:       decimal.Zero,
		Credit:      dec("500"),
	})
	require.NoError(t, err)
	require.Equal(t, journals.KindReconciliation, posted.Kind)
	require.Len(t, posted.LedgerEntries, 1)
	require.Equal(t, journals.KindReconciliation, posted.LedgerEntries[0].Kind)
	require.True(t, posted.LedgerEntries[0].RunningBalance.Equal(dec("500")))

	entry, err := f.drafts.Get(context.Background(), posted.EntryID)
	require.NoError(t, err)
	require.Equal(t, journals.JournalStatusPosted, entry.Status)
}

func TestPostReconciliationValidatesAccount(t *testing.T) {
	f := setup(t)
	_, err := f.poster.PostReconciliation(context.Background(), ledger.ReconciliationInput{
		Date:        day,
		Description: "offset",
		AccountID:   999,
		Debit:       dec("5"),
		Credit:      decimal.Zero,
	})
	require.ErrorIs(t, err, shared.ErrValidation)
	require.Empty(t, f.store.LedgerRows())
}

func TestPosterMetrics(t *testing.T) {
	f := setup(t)
	reg := prometheus.NewRegistry()
	poster := ledger.NewPoster(f.store.Ledger(), nil, ledger.NewMetrics(reg), nil)
	ctx := context.Background()

	ok := f.draft(t, debit(f.cash.ID, "5"), credit(f.revenue.ID, "5"))
	_, err := poster.Post(ctx, ok.ID)
	require.NoError(t, err)
	_, err = poster.Post(ctx, ok.ID)
	require.Error(t, err)

	count, err := testutil.GatherAndCount(reg, "odyssey_ledger_postings_total")
	require.NoError(t, err)
	require.Equal(t, 2, count)

	families, err := reg.Gather()
	require.NoError(t, err)
	var rows float64
	for _, mf := range families {
		if mf.GetName() == "odyssey_ledger_rows_written_total" {
			rows = mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	require.Equal(t, float64(2), rows)
}
