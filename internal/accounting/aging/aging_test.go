package aging

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/ledger/internal/accounting/shared"
	_ "github.com/odyssey-erp/ledger/testing"
)

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

var asOf = time.Date(2024, 6, 30, 17, 45, 0, 0, time.UTC)

func item(id int64, party int64, name string, total, paid string, createdDaysAgo int) OpenItem {
	return OpenItem{
		ID:               id,
		Number:           "INV-" + string(rune('A'+id)),
		CounterpartyID:   party,
		CounterpartyName: name,
		Total:            dec(total),
		Paid:             dec(paid),
		CreatedAt:        asOf.AddDate(0, 0, -createdDaysAgo).Add(-9 * time.Hour),
	}
}

func TestClassifyBoundaries(t *testing.T) {
	cases := map[int]Bucket{
		-3: BucketCurrent, 0: BucketCurrent,
		1: Bucket1To30, 30: Bucket1To30,
		31: Bucket31To60, 45: Bucket31To60, 60: Bucket31To60,
		61: Bucket61To90, 90: Bucket61To90,
		91: BucketOver90, 400: BucketOver90,
	}
	for days, want := range cases {
		require.Equal(t, want, Classify(days), "days=%d", days)
	}
}

func TestDaysOutstandingIgnoresClock(t *testing.T) {
	created := time.Date(2024, 5, 16, 23, 59, 0, 0, time.UTC)
	require.Equal(t, 45, DaysOutstanding(created, time.Date(2024, 6, 30, 0, 1, 0, 0, time.UTC)))
	require.Equal(t, 0, DaysOutstanding(created, created.Add(time.Minute)))
}

func TestAgeFortyFiveDaysLandsInThirtyOneToSixty(t *testing.T) {
	report := Age(KindReceivable, asOf, []OpenItem{item(1, 10, "Acme", "1000.00", "0", 45)})
	require.True(t, report.DataAvailable)
	require.Len(t, report.Rows, 1)
	require.Equal(t, Bucket31To60, report.Rows[0].Items[0].Bucket)
	require.Equal(t, 45, report.Rows[0].Items[0].DaysOutstanding)
	require.True(t, report.Summary.Days31To60.Equal(dec("1000")))
	require.True(t, report.Summary.Total.Equal(dec("1000")))
}

func TestAgeExcludesPaidItems(t *testing.T) {
	report := Age(KindReceivable, asOf, []OpenItem{
		item(1, 10, "Acme", "500", "500", 10),
		item(2, 10, "Acme", "300", "100", 10),
		item(3, 11, "Beta", "200", "250", 100),
	})
	require.Len(t, report.Rows, 1)
	require.Equal(t, 1, report.Summary.Count)
	require.True(t, report.Summary.Days1To30.Equal(dec("200")))
	require.True(t, report.Summary.Over90.IsZero())
	require.True(t, report.Summary.Total.Equal(dec("200")))
}

func TestAgeGroupsByCounterpartySortedByName(t *testing.T) {
	report := Age(KindPayable, asOf, []OpenItem{
		item(1, 20, "zeta supplies", "100", "0", 0),
		item(2, 21, "Alpha Parts", "50", "0", 95),
		item(3, 20, "zeta supplies", "70", "20", 65),
		item(4, 21, "Alpha Parts", "10", "0", 15),
	})
	require.Equal(t, KindPayable, report.Kind)
	require.Len(t, report.Rows, 2)
	require.Equal(t, "Alpha Parts", report.Rows[0].CounterpartyName)
	require.Equal(t, "zeta supplies", report.Rows[1].CounterpartyName)

	alpha := report.Rows[0].Totals
	require.True(t, alpha.Over90.Equal(dec("50")))
	require.True(t, alpha.Days1To30.Equal(dec("10")))
	require.Equal(t, 2, alpha.Count)

	zeta := report.Rows[1]
	require.True(t, zeta.Totals.Current.Equal(dec("100")))
	require.True(t, zeta.Totals.Days61To90.Equal(dec("50")))
	require.Equal(t, 65, zeta.Items[0].DaysOutstanding, "oldest item first")

	require.True(t, report.Summary.Total.Equal(dec("210")))
	for _, b := range Buckets {
		sum := decimal.Zero
		for _, row := range report.Rows {
			sum = sum.Add(row.Totals.Amount(b))
		}
		require.True(t, sum.Equal(report.Summary.Amount(b)), "bucket %s", b)
	}
}

func TestAgeEmpty(t *testing.T) {
	report := Age(KindReceivable, asOf, nil)
	require.False(t, report.DataAvailable)
	require.Empty(t, report.Rows)
	require.True(t, report.Summary.Total.IsZero())
}

type fakeSource struct {
	items map[Kind][]OpenItem
	err   error
}

func (f *fakeSource) OpenItems(ctx context.Context, kind Kind) ([]OpenItem, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.items[kind], nil
}

func TestServiceOverview(t *testing.T) {
	src := &fakeSource{items: map[Kind][]OpenItem{
		KindReceivable: {item(1, 10, "Acme", "400", "0", 45)},
		KindPayable:    {item(2, 20, "Vendor", "150", "50", 5)},
	}}
	svc := NewService(src, nil)
	svc.WithNow(func() time.Time { return asOf })

	overview, err := svc.Overview(context.Background(), time.Time{})
	require.NoError(t, err)
	require.True(t, overview.Receivables.Summary.Days31To60.Equal(dec("400")))
	require.True(t, overview.Payables.Summary.Days1To30.Equal(dec("100")))
	require.Equal(t, KindPayable, overview.Payables.Kind)
}

func TestServiceWrapsSourceFailure(t *testing.T) {
	svc := NewService(&fakeSource{err: errors.New("connection reset")}, nil)
	_, err := svc.ARAging(context.Background(), asOf)
	require.ErrorIs(t, err, shared.ErrStorage)

	_, err = svc.Overview(context.Background(), asOf)
	require.ErrorIs(t, err, shared.ErrStorage)
}
