package reports

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/ledger/internal/accounting/accounts"
)

// AccountBalance pairs an account with its aggregated movements.
type AccountBalance struct {
	Account     accounts.Account
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	ReconDebit  decimal.Decimal
	ReconCredit decimal.Decimal
}

// DebitNet returns debit minus credit.
func (a AccountBalance) DebitNet() decimal.Decimal {
	return a.Debit.Sub(a.Credit)
}

// CreditNet returns credit minus debit.
func (a AccountBalance) CreditNet() decimal.Decimal {
	return a.Credit.Sub(a.Debit)
}

// ReconDebitNet is DebitNet restricted to reconciliation rows.
func (a AccountBalance) ReconDebitNet() decimal.Decimal {
	return a.ReconDebit.Sub(a.ReconCredit)
}

// HasActivity reports whether any ledger row touched the account.
func (a AccountBalance) HasActivity() bool {
	return !a.Debit.IsZero() || !a.Credit.IsZero()
}

// HasReconciliation reports whether a reconciliation row touched the account.
func (a AccountBalance) HasReconciliation() bool {
	return !a.ReconDebit.IsZero() || !a.ReconCredit.IsZero()
}

// Combine joins accounts with their movements, ordered by account code.
// Movements for unknown accounts are kept under a placeholder account so
// totals never silently drop rows.
func Combine(all []accounts.Account, movements []Movement) []AccountBalance {
	byID := make(map[int64]*AccountBalance, len(all))
	out := make([]*AccountBalance, 0, len(all))
	for _, account := range all {
		b := &AccountBalance{Account: account, Debit: decimal.Zero, Credit: decimal.Zero, ReconDebit: decimal.Zero, ReconCredit: decimal.Zero}
		byID[account.ID] = b
		out = append(out, b)
	}
	for _, mv := range movements {
		b, ok := byID[mv.AccountID]
		if !ok {
			b = &AccountBalance{Account: accounts.Account{ID: mv.AccountID, Code: "?", Name: "Unknown account", NormalBalance: accounts.NormalDebit}}
			byID[mv.AccountID] = b
			out = append(out, b)
		}
		b.Debit = b.Debit.Add(mv.Debit)
		b.Credit = b.Credit.Add(mv.Credit)
		b.ReconDebit = b.ReconDebit.Add(mv.ReconDebit)
		b.ReconCredit = b.ReconCredit.Add(mv.ReconCredit)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Account.Code < out[j].Account.Code })
	balances := make([]AccountBalance, len(out))
	for i, b := range out {
		balances[i] = *b
	}
	return balances
}
