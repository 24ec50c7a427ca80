package aging

import (
	"sort"
	"strings"
	"time"
)

// DaysOutstanding counts whole calendar days from the creation date to asOf.
func DaysOutstanding(createdAt, asOf time.Time) int {
	return int(dateOnly(asOf).Sub(dateOnly(createdAt)).Hours() / 24)
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Age buckets every item with an outstanding balance. Fully paid items are
// left out of rows, counts and totals.
func Age(kind Kind, asOf time.Time, items []OpenItem) Report {
	report := Report{Kind: kind, AsOf: dateOnly(asOf), Rows: []CounterpartyRow{}}
	rows := make(map[int64]*CounterpartyRow)
	for _, item := range items {
		balance := item.Balance()
		if !balance.IsPositive() {
			continue
		}
		days := DaysOutstanding(item.CreatedAt, asOf)
		bucket := Classify(days)
		row, ok := rows[item.CounterpartyID]
		if !ok {
			row = &CounterpartyRow{CounterpartyID: item.CounterpartyID, CounterpartyName: item.CounterpartyName}
			rows[item.CounterpartyID] = row
		}
		row.Items = append(row.Items, AgedItem{OpenItem: item, Balance: balance, DaysOutstanding: days, Bucket: bucket})
		row.Totals.add(bucket, balance)
		report.Summary.add(bucket, balance)
	}
	for _, row := range rows {
		sort.Slice(row.Items, func(i, j int) bool {
			if row.Items[i].DaysOutstanding != row.Items[j].DaysOutstanding {
				return row.Items[i].DaysOutstanding > row.Items[j].DaysOutstanding
			}
			return row.Items[i].Number < row.Items[j].Number
		})
		report.Rows = append(report.Rows, *row)
	}
	sort.Slice(report.Rows, func(i, j int) bool {
		a, b := strings.ToLower(report.Rows[i].CounterpartyName), strings.ToLower(report.Rows[j].CounterpartyName)
		if a != b {
			return a < b
		}
		return report.Rows[i].CounterpartyID < report.Rows[j].CounterpartyID
	})
	report.DataAvailable = report.Summary.Count > 0
	return report
}
