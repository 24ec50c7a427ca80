package reports

const (
	noticeNoData         = "No ledger activity for the selected dates."
	noticeReconciliation = "Includes reconciliation adjustments posted to restore balance."
)

// AmountView is a display-ready amount.
type AmountView struct {
	Code    string `json:"code,omitempty"`
	Name    string `json:"name"`
	Amount  string `json:"amount"`
	Flagged bool   `json:"reconciled,omitempty"`
}

// SectionView is a display-ready statement section.
type SectionView struct {
	Label string       `json:"label"`
	Lines []AmountView `json:"lines"`
	Total string       `json:"total"`
}

// TrialBalanceRowView is one display row of the trial balance.
type TrialBalanceRowView struct {
	Code    string `json:"code"`
	Name    string `json:"name"`
	Debit   string `json:"debit"`
	Credit  string `json:"credit"`
	Flagged bool   `json:"reconciled,omitempty"`
}

// TrialBalanceViewModel holds display data for the trial balance report.
type TrialBalanceViewModel struct {
	Locale      string                `json:"locale"`
	AsOf        string                `json:"as_of"`
	Rows        []TrialBalanceRowView `json:"rows"`
	TotalDebit  string                `json:"total_debit"`
	TotalCredit string                `json:"total_credit"`
	IsBalanced  bool                  `json:"is_balanced"`
	Notices     []string              `json:"notices,omitempty"`
}

// BalanceSheetViewModel contains display data for the balance sheet.
type BalanceSheetViewModel struct {
	Locale                    string        `json:"locale"`
	AsOf                      string        `json:"as_of"`
	Sections                  []SectionView `json:"sections"`
	TotalAssets               string        `json:"total_assets"`
	TotalLiabilitiesAndEquity string        `json:"total_liabilities_and_equity"`
	IsBalanced                bool          `json:"is_balanced"`
	Notices                   []string      `json:"notices,omitempty"`
}

// IncomeStatementViewModel holds display data for the income statement.
type IncomeStatementViewModel struct {
	Locale          string        `json:"locale"`
	Period          string        `json:"period"`
	Sections        []SectionView `json:"sections"`
	GrossProfit     string        `json:"gross_profit"`
	OperatingIncome string        `json:"operating_income"`
	NetIncome       string        `json:"net_income"`
	Notices         []string      `json:"notices,omitempty"`
}

func notices(dataAvailable, hasReconciliation bool) []string {
	var out []string
	if !dataAvailable {
		out = append(out, noticeNoData)
	}
	if hasReconciliation {
		out = append(out, noticeReconciliation)
	}
	return out
}

// NewTrialBalanceViewModel formats a trial balance for display.
func NewTrialBalanceViewModel(tb TrialBalance, f Formatter) TrialBalanceViewModel {
	vm := TrialBalanceViewModel{
		Locale:      f.Locale(),
		AsOf:        f.Date(tb.AsOf),
		Rows:        make([]TrialBalanceRowView, 0, len(tb.Rows)),
		TotalDebit:  f.Amount(tb.TotalDebits),
		TotalCredit: f.Amount(tb.TotalCredits),
		IsBalanced:  tb.IsBalanced,
		Notices:     notices(tb.DataAvailable, tb.HasReconciliation),
	}
	for _, row := range tb.Rows {
		vm.Rows = append(vm.Rows, TrialBalanceRowView{
			Code:    row.Code,
			Name:    row.Name,
			Debit:   f.Amount(row.DebitBalance),
			Credit:  f.Amount(row.CreditBalance),
			Flagged: !row.Reconciliation.IsZero(),
		})
	}
	return vm
}

func bsSection(s BalanceSheetSection, f Formatter) SectionView {
	view := SectionView{Label: s.Label, Lines: make([]AmountView, 0, len(s.Lines)), Total: f.Amount(s.Total)}
	for _, line := range s.Lines {
		view.Lines = append(view.Lines, AmountView{Code: line.Code, Name: line.Name, Amount: f.Amount(line.Balance), Flagged: !line.Reconciliation.IsZero()})
	}
	return view
}

// NewBalanceSheetViewModel formats a balance sheet for display.
func NewBalanceSheetViewModel(bs BalanceSheet, f Formatter) BalanceSheetViewModel {
	return BalanceSheetViewModel{
		Locale: f.Locale(),
		AsOf:   f.Date(bs.AsOf),
		Sections: []SectionView{
			bsSection(bs.CurrentAssets, f),
			bsSection(bs.FixedAssets, f),
			bsSection(bs.CurrentLiabilities, f),
			bsSection(bs.LongTermLiabilities, f),
			bsSection(bs.Equity, f),
		},
		TotalAssets:               f.Amount(bs.TotalAssets),
		TotalLiabilitiesAndEquity: f.Amount(bs.TotalLiabilitiesAndEquity),
		IsBalanced:                bs.IsBalanced,
		Notices:                   notices(bs.DataAvailable, bs.HasReconciliation),
	}
}

func plSection(s IncomeStatementSection, f Formatter) SectionView {
	view := SectionView{Label: s.Label, Lines: make([]AmountView, 0, len(s.Lines)), Total: f.Amount(s.Total)}
	for _, line := range s.Lines {
		view.Lines = append(view.Lines, AmountView{Code: line.Code, Name: line.Name, Amount: f.Amount(line.Amount), Flagged: !line.Reconciliation.IsZero()})
	}
	return view
}

// NewIncomeStatementViewModel formats an income statement for display.
func NewIncomeStatementViewModel(is IncomeStatement, f Formatter) IncomeStatementViewModel {
	return IncomeStatementViewModel{
		Locale: f.Locale(),
		Period: f.Date(is.Start) + " to " + f.Date(is.End),
		Sections: []SectionView{
			plSection(is.Revenue, f),
			plSection(is.CostOfGoodsSold, f),
			plSection(is.OperatingExpenses, f),
			plSection(is.OtherExpenses, f),
		},
		GrossProfit:     f.Amount(is.GrossProfit),
		OperatingIncome: f.Amount(is.OperatingIncome),
		NetIncome:       f.Amount(is.NetIncome),
		Notices:         notices(is.DataAvailable, is.HasReconciliation),
	}
}
