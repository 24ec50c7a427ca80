package reports

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/ledger/internal/accounting/shared"
)

// CurrentEarningsLabel names the computed equity line carrying unclosed
// revenue minus expense.
const CurrentEarningsLabel = "Current Earnings"

// BalanceSheetLine summarises an account inside a section.
type BalanceSheetLine struct {
	AccountID      int64            `json:"account_id,omitempty"`
	Code           string           `json:"code,omitempty"`
	Name           string           `json:"name"`
	Subtype        accounts.Subtype `json:"subtype,omitempty"`
	Balance        decimal.Decimal  `json:"balance"`
	Reconciliation decimal.Decimal  `json:"reconciliation"`
}

// BalanceSheetSection contains the lines and total for a classification.
type BalanceSheetSection struct {
	Label string             `json:"label"`
	Lines []BalanceSheetLine `json:"lines"`
	Total decimal.Decimal    `json:"total"`
}

func newSection(label string) BalanceSheetSection {
	return BalanceSheetSection{Label: label, Lines: []BalanceSheetLine{}, Total: decimal.Zero}
}

func (s *BalanceSheetSection) add(line BalanceSheetLine) {
	s.Lines = append(s.Lines, line)
	s.Total = s.Total.Add(line.Balance)
}

// BalanceSheet is the statement of financial position at AsOf.
type BalanceSheet struct {
	AsOf                      time.Time           `json:"as_of"`
	CurrentAssets             BalanceSheetSection `json:"current_assets"`
	FixedAssets               BalanceSheetSection `json:"fixed_assets"`
	CurrentLiabilities        BalanceSheetSection `json:"current_liabilities"`
	LongTermLiabilities       BalanceSheetSection `json:"long_term_liabilities"`
	Equity                    BalanceSheetSection `json:"equity"`
	TotalAssets               decimal.Decimal     `json:"total_assets"`
	TotalLiabilities          decimal.Decimal     `json:"total_liabilities"`
	TotalEquity               decimal.Decimal     `json:"total_equity"`
	TotalLiabilitiesAndEquity decimal.Decimal     `json:"total_liabilities_and_equity"`
	CurrentEarnings           decimal.Decimal     `json:"current_earnings"`
	IsBalanced                bool                `json:"is_balanced"`
	DataAvailable             bool                `json:"data_available"`
	HasReconciliation         bool                `json:"has_reconciliation"`
}

// Variance returns assets minus liabilities and equity.
func (bs BalanceSheet) Variance() decimal.Decimal {
	return bs.TotalAssets.Sub(bs.TotalLiabilitiesAndEquity)
}

// BuildBalanceSheet measures asset sections debit minus credit and the others
// credit minus debit, so contra accounts net against their section. Revenue
// and expense activity enters equity as the current earnings line.
func BuildBalanceSheet(asOf time.Time, balances []AccountBalance) BalanceSheet {
	bs := BalanceSheet{
		AsOf:                asOf,
		CurrentAssets:       newSection("Current Assets"),
		FixedAssets:         newSection("Fixed Assets"),
		CurrentLiabilities:  newSection("Current Liabilities"),
		LongTermLiabilities: newSection("Long-term Liabilities"),
		Equity:              newSection("Equity"),
		CurrentEarnings:     decimal.Zero,
	}
	earningsRecon := decimal.Zero
	for _, b := range balances {
		if !b.HasActivity() {
			continue
		}
		bs.DataAvailable = true
		bs.HasReconciliation = bs.HasReconciliation || b.HasReconciliation()
		line := BalanceSheetLine{
			AccountID: b.Account.ID,
			Code:      b.Account.Code,
			Name:      b.Account.Name,
			Subtype:   b.Account.Subtype,
		}
		switch b.Account.Type {
		case accounts.AccountTypeAsset:
			line.Balance = b.DebitNet()
			line.Reconciliation = b.ReconDebitNet()
			if b.Account.Subtype == accounts.SubtypeFixedAsset || b.Account.Subtype == accounts.SubtypeOtherAsset {
				bs.FixedAssets.add(line)
			} else {
				bs.CurrentAssets.add(line)
			}
		case accounts.AccountTypeLiability:
			line.Balance = b.CreditNet()
			line.Reconciliation = b.ReconDebitNet().Neg()
			if b.Account.Subtype == accounts.SubtypeLongTermLiability {
				bs.LongTermLiabilities.add(line)
			} else {
				bs.CurrentLiabilities.add(line)
			}
		case accounts.AccountTypeEquity:
			line.Balance = b.CreditNet()
			line.Reconciliation = b.ReconDebitNet().Neg()
			bs.Equity.add(line)
		case accounts.AccountTypeRevenue, accounts.AccountTypeExpense:
			bs.CurrentEarnings = bs.CurrentEarnings.Add(b.CreditNet())
			earningsRecon = earningsRecon.Sub(b.ReconDebitNet())
		}
	}
	if !bs.CurrentEarnings.IsZero() {
		bs.Equity.add(BalanceSheetLine{Name: CurrentEarningsLabel, Balance: bs.CurrentEarnings, Reconciliation: earningsRecon})
	}
	bs.TotalAssets = bs.CurrentAssets.Total.Add(bs.FixedAssets.Total)
	bs.TotalLiabilities = bs.CurrentLiabilities.Total.Add(bs.LongTermLiabilities.Total)
	bs.TotalEquity = bs.Equity.Total
	bs.TotalLiabilitiesAndEquity = bs.TotalLiabilities.Add(bs.TotalEquity)
	bs.IsBalanced = shared.WithinEpsilon(bs.TotalAssets, bs.TotalLiabilitiesAndEquity)
	return bs
}
