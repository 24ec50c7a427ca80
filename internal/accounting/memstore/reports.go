package memstore

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/ledger/internal/accounting/aging"
	"github.com/odyssey-erp/ledger/internal/accounting/journals"
	"github.com/odyssey-erp/ledger/internal/accounting/reports"
)

// ReportSource serves report snapshots from a copy of the state.
type ReportSource struct {
	s *Store
}

// WithSnapshot copies the state once and runs fn against that copy.
func (r *ReportSource) WithSnapshot(ctx context.Context, fn func(context.Context, reports.Snapshot) error) error {
	r.s.mu.Lock()
	err := r.s.fault("WithSnapshot")
	r.s.mu.Unlock()
	if err != nil {
		return err
	}
	return fn(ctx, &snapshot{st: r.s.snapshot()})
}

type snapshot struct {
	st *state
}

func (s *snapshot) Accounts(ctx context.Context) ([]accounts.Account, error) {
	return sortedAccounts(s.st), nil
}

func (s *snapshot) Movements(ctx context.Context, window reports.Window) ([]reports.Movement, error) {
	byAccount := make(map[int64]*reports.Movement)
	for _, row := range s.st.ledger {
		if !window.Contains(row.TransactionDate) {
			continue
		}
		m, ok := byAccount[row.AccountID]
		if !ok {
			m = &reports.Movement{
				AccountID:   row.AccountID,
				Debit:       decimal.Zero,
				Credit:      decimal.Zero,
				ReconDebit:  decimal.Zero,
				ReconCredit: decimal.Zero,
			}
			byAccount[row.AccountID] = m
		}
		m.Debit = m.Debit.Add(row.Debit)
		m.Credit = m.Credit.Add(row.Credit)
		if row.Kind == journals.KindReconciliation {
			m.ReconDebit = m.ReconDebit.Add(row.Debit)
			m.ReconCredit = m.ReconCredit.Add(row.Credit)
		}
	}
	out := make([]reports.Movement, 0, len(byAccount))
	for _, m := range byAccount {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccountID < out[j].AccountID })
	return out, nil
}

type agingRepo struct {
	s *Store
}

func (r *agingRepo) OpenItems(ctx context.Context, kind aging.Kind) ([]aging.OpenItem, error) {
	var out []aging.OpenItem
	err := r.s.read(func(st *state) error {
		if err := r.s.fault("OpenItems"); err != nil {
			return err
		}
		for _, item := range st.items[kind] {
			if item.Total.GreaterThan(item.Paid) {
				out = append(out, item)
			}
		}
		return nil
	})
	return out, err
}
