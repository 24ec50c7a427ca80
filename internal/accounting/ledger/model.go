package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/ledger/internal/accounting/journals"
)

// LedgerEntry is one append-only posting row for an account.
type LedgerEntry struct {
	ID              int64                `json:"id"`
	AccountID       int64                `json:"account_id"`
	JournalID       int64                `json:"journal_entry_id"`
	Kind            journals.JournalKind `json:"kind"`
	Description     string               `json:"description"`
	Debit           decimal.Decimal      `json:"debit_amount"`
	Credit          decimal.Decimal      `json:"credit_amount"`
	RunningBalance  decimal.Decimal      `json:"running_balance"`
	TransactionDate time.Time            `json:"transaction_date"`
	CreatedAt       time.Time            `json:"created_at"`
}

// PostedEntry summarises a successful posting.
type PostedEntry struct {
	EntryID       int64                  `json:"entry_id"`
	JournalNumber int64                  `json:"journal_number"`
	Status        journals.JournalStatus `json:"status"`
	Kind          journals.JournalKind   `json:"kind"`
	TotalDebit    decimal.Decimal        `json:"total_debit"`
	TotalCredit   decimal.Decimal        `json:"total_credit"`
	LedgerEntries []LedgerEntry          `json:"ledger_entries"`
}

// ReconciliationInput describes a single-sided balancing posting.
type ReconciliationInput struct {
	Date        time.Time
	Reference   string
	Description string
	AccountID   int64
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	CreatedBy   int64
}

// Draft converts the input into the journal shape persisted for it.
func (in ReconciliationInput) Draft() journals.DraftInput {
	return journals.DraftInput{
		Date:        in.Date,
		Reference:   in.Reference,
		Description: in.Description,
		Kind:        journals.KindReconciliation,
		CreatedBy:   in.CreatedBy,
		Lines: []journals.DraftLineInput{{
			AccountID:   in.AccountID,
			Description: in.Description,
			Debit:       in.Debit,
			Credit:      in.Credit,
		}},
	}
}

// Delta returns the change a line makes to an account's running balance,
// signed by the account's normal balance.
func Delta(normal accounts.NormalBalance, debit, credit decimal.Decimal) decimal.Decimal {
	if normal == accounts.NormalCredit {
		return credit.Sub(debit)
	}
	return debit.Sub(credit)
}
