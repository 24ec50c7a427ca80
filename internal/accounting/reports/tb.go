package reports

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/ledger/internal/accounting/shared"
)

// TrialBalanceRow is one account's closing balance in its normal column.
type TrialBalanceRow struct {
	AccountID      int64                  `json:"account_id"`
	Code           string                 `json:"code"`
	Name           string                 `json:"name"`
	Type           accounts.AccountType   `json:"type"`
	NormalBalance  accounts.NormalBalance `json:"normal_balance"`
	DebitBalance   decimal.Decimal        `json:"debit_balance"`
	CreditBalance  decimal.Decimal        `json:"credit_balance"`
	Reconciliation decimal.Decimal        `json:"reconciliation"`
}

// TrialBalance lists every account with ledger activity up to AsOf.
type TrialBalance struct {
	AsOf              time.Time         `json:"as_of"`
	Rows              []TrialBalanceRow `json:"rows"`
	TotalDebits       decimal.Decimal   `json:"total_debits"`
	TotalCredits      decimal.Decimal   `json:"total_credits"`
	IsBalanced        bool              `json:"is_balanced"`
	DataAvailable     bool              `json:"data_available"`
	HasReconciliation bool              `json:"has_reconciliation"`
}

// BuildTrialBalance places each account's balance in the column of its normal
// balance; a balance on the wrong side moves to the opposite column.
func BuildTrialBalance(asOf time.Time, balances []AccountBalance) TrialBalance {
	tb := TrialBalance{AsOf: asOf, Rows: []TrialBalanceRow{}, TotalDebits: decimal.Zero, TotalCredits: decimal.Zero}
	for _, b := range balances {
		if !b.HasActivity() {
			continue
		}
		row := TrialBalanceRow{
			AccountID:     b.Account.ID,
			Code:          b.Account.Code,
			Name:          b.Account.Name,
			Type:          b.Account.Type,
			NormalBalance: b.Account.NormalBalance,
			DebitBalance:  decimal.Zero,
			CreditBalance: decimal.Zero,
		}
		net := b.DebitNet()
		if b.Account.NormalBalance == accounts.NormalCredit {
			if credit := net.Neg(); !credit.IsNegative() {
				row.CreditBalance = credit
			} else {
				row.DebitBalance = net
			}
			row.Reconciliation = b.ReconDebitNet().Neg()
		} else {
			if !net.IsNegative() {
				row.DebitBalance = net
			} else {
				row.CreditBalance = net.Neg()
			}
			row.Reconciliation = b.ReconDebitNet()
		}
		tb.Rows = append(tb.Rows, row)
		tb.TotalDebits = tb.TotalDebits.Add(row.DebitBalance)
		tb.TotalCredits = tb.TotalCredits.Add(row.CreditBalance)
		tb.HasReconciliation = tb.HasReconciliation || b.HasReconciliation()
	}
	tb.DataAvailable = len(tb.Rows) > 0
	tb.IsBalanced = shared.WithinEpsilon(tb.TotalDebits, tb.TotalCredits)
	return tb
}
