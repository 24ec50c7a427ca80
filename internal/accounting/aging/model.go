package aging

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kind selects receivables or payables.
type Kind string

const (
	KindReceivable Kind = "AR"
	KindPayable    Kind = "AP"
)

// OpenItem is an invoice (receivable) or bill (payable).
type OpenItem struct {
	ID               int64           `json:"id"`
	Number           string          `json:"number"`
	CounterpartyID   int64           `json:"counterparty_id"`
	CounterpartyName string          `json:"counterparty_name"`
	Total            decimal.Decimal `json:"total"`
	Paid             decimal.Decimal `json:"paid_amount"`
	CreatedAt        time.Time       `json:"created_at"`
	DueAt            *time.Time      `json:"due_at,omitempty"`
}

// Balance is the amount still outstanding.
func (i OpenItem) Balance() decimal.Decimal {
	return i.Total.Sub(i.Paid)
}

// Bucket labels an age range.
type Bucket string

const (
	BucketCurrent Bucket = "current"
	Bucket1To30   Bucket = "1-30"
	Bucket31To60  Bucket = "31-60"
	Bucket61To90  Bucket = "61-90"
	BucketOver90  Bucket = "over90"
)

// Buckets lists labels in display order.
var Buckets = []Bucket{BucketCurrent, Bucket1To30, Bucket31To60, Bucket61To90, BucketOver90}

// Classify maps days outstanding to a bucket.
func Classify(days int) Bucket {
	switch {
	case days <= 0:
		return BucketCurrent
	case days <= 30:
		return Bucket1To30
	case days <= 60:
		return Bucket31To60
	case days <= 90:
		return Bucket61To90
	default:
		return BucketOver90
	}
}

// BucketTotals summarises balances by age.
type BucketTotals struct {
	Current    decimal.Decimal `json:"current"`
	Days1To30  decimal.Decimal `json:"1-30"`
	Days31To60 decimal.Decimal `json:"31-60"`
	Days61To90 decimal.Decimal `json:"61-90"`
	Over90     decimal.Decimal `json:"over90"`
	Total      decimal.Decimal `json:"total"`
	Count      int             `json:"count"`
}

// Amount returns the total for one bucket.
func (t BucketTotals) Amount(b Bucket) decimal.Decimal {
	switch b {
	case BucketCurrent:
		return t.Current
	case Bucket1To30:
		return t.Days1To30
	case Bucket31To60:
		return t.Days31To60
	case Bucket61To90:
		return t.Days61To90
	default:
		return t.Over90
	}
}

func (t *BucketTotals) add(b Bucket, amount decimal.Decimal) {
	switch b {
	case BucketCurrent:
		t.Current = t.Current.Add(amount)
	case Bucket1To30:
		t.Days1To30 = t.Days1To30.Add(amount)
	case Bucket31To60:
		t.Days31To60 = t.Days31To60.Add(amount)
	case Bucket61To90:
		t.Days61To90 = t.Days61To90.Add(amount)
	default:
		t.Over90 = t.Over90.Add(amount)
	}
	t.Total = t.Total.Add(amount)
	t.Count++
}

// AgedItem is an open item with its computed age.
type AgedItem struct {
	OpenItem
	Balance         decimal.Decimal `json:"balance"`
	DaysOutstanding int             `json:"days_outstanding"`
	Bucket          Bucket          `json:"bucket"`
}

// CounterpartyRow aggregates one customer's or vendor's open items.
type CounterpartyRow struct {
	CounterpartyID   int64        `json:"counterparty_id"`
	CounterpartyName string       `json:"counterparty_name"`
	Totals           BucketTotals `json:"totals"`
	Items            []AgedItem   `json:"items"`
}

// Report is an aging schedule as of a date.
type Report struct {
	Kind          Kind              `json:"kind"`
	AsOf          time.Time         `json:"as_of"`
	Rows          []CounterpartyRow `json:"rows"`
	Summary       BucketTotals      `json:"summary"`
	DataAvailable bool              `json:"data_available"`
}

// Overview pairs receivable and payable aging.
type Overview struct {
	Receivables Report `json:"receivables"`
	Payables    Report `json:"payables"`
}
