package reports

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/ledger/internal/accounting/accounts"
)

// IncomeStatementLine represents a revenue or expense account summary.
type IncomeStatementLine struct {
	AccountID      int64           `json:"account_id"`
	Code           string          `json:"code"`
	Name           string          `json:"name"`
	Amount         decimal.Decimal `json:"amount"`
	Reconciliation decimal.Decimal `json:"reconciliation"`
}

// IncomeStatementSection groups accounts by nature.
type IncomeStatementSection struct {
	Label string                `json:"label"`
	Lines []IncomeStatementLine `json:"lines"`
	Total decimal.Decimal       `json:"total"`
}

func newPLSection(label string) IncomeStatementSection {
	return IncomeStatementSection{Label: label, Lines: []IncomeStatementLine{}, Total: decimal.Zero}
}

func (s *IncomeStatementSection) add(line IncomeStatementLine) {
	s.Lines = append(s.Lines, line)
	s.Total = s.Total.Add(line.Amount)
}

// IncomeStatement reports performance over [Start, End].
type IncomeStatement struct {
	Start             time.Time              `json:"start"`
	End               time.Time              `json:"end"`
	Revenue           IncomeStatementSection `json:"revenue"`
	CostOfGoodsSold   IncomeStatementSection `json:"cost_of_goods_sold"`
	OperatingExpenses IncomeStatementSection `json:"operating_expenses"`
	OtherExpenses     IncomeStatementSection `json:"other_expenses"`
	GrossProfit       decimal.Decimal        `json:"gross_profit"`
	OperatingIncome   decimal.Decimal        `json:"operating_income"`
	NetIncome         decimal.Decimal        `json:"net_income"`
	DataAvailable     bool                   `json:"data_available"`
	HasReconciliation bool                   `json:"has_reconciliation"`
}

// BuildIncomeStatement aggregates period movements. Revenue is measured
// credit minus debit and expenses debit minus credit. Expenses without a
// recognised subtype count as operating.
func BuildIncomeStatement(start, end time.Time, balances []AccountBalance) IncomeStatement {
	is := IncomeStatement{
		Start:             start,
		End:               end,
		Revenue:           newPLSection("Revenue"),
		CostOfGoodsSold:   newPLSection("Cost of Goods Sold"),
		OperatingExpenses: newPLSection("Operating Expenses"),
		OtherExpenses:     newPLSection("Other Expenses"),
	}
	for _, b := range balances {
		if !b.HasActivity() {
			continue
		}
		line := IncomeStatementLine{AccountID: b.Account.ID, Code: b.Account.Code, Name: b.Account.Name}
		switch b.Account.Type {
		case accounts.AccountTypeRevenue:
			line.Amount = b.CreditNet()
			line.Reconciliation = b.ReconDebitNet().Neg()
			is.Revenue.add(line)
		case accounts.AccountTypeExpense:
			line.Amount = b.DebitNet()
			line.Reconciliation = b.ReconDebitNet()
			switch b.Account.Subtype {
			case accounts.SubtypeCostOfGoodsSold:
				is.CostOfGoodsSold.add(line)
			case accounts.SubtypeOtherExpense:
				is.OtherExpenses.add(line)
			default:
				is.OperatingExpenses.add(line)
			}
		default:
			continue
		}
		is.DataAvailable = true
		is.HasReconciliation = is.HasReconciliation || b.HasReconciliation()
	}
	is.GrossProfit = is.Revenue.Total.Sub(is.CostOfGoodsSold.Total)
	is.OperatingIncome = is.GrossProfit.Sub(is.OperatingExpenses.Total)
	is.NetIncome = is.OperatingIncome.Sub(is.OtherExpenses.Total)
	return is
}
