package journals

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// JournalStatus enumerates journal lifecycle values.
type JournalStatus string

const (
	JournalStatusDraft  JournalStatus = "DRAFT"
	JournalStatusPosted JournalStatus = "POSTED"
)

// JournalKind separates ordinary entries from reconciliation fallbacks.
type JournalKind string

const (
	KindStandard       JournalKind = "STANDARD"
	KindReconciliation JournalKind = "RECONCILIATION"
)

// JournalEntry captures a draft or posted business transaction.
type JournalEntry struct {
	ID          int64         `json:"id"`
	Number      int64         `json:"journal_number"`
	Date        time.Time     `json:"entry_date"`
	Reference   string        `json:"reference"`
	Description string        `json:"description"`
	Status      JournalStatus `json:"status"`
	Kind        JournalKind   `json:"kind"`
	Version     int64         `json:"version"`
	SourceID    uuid.UUID     `json:"source_id"`
	CreatedBy   int64         `json:"created_by,omitempty"`
	PostedAt    *time.Time    `json:"posted_at,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	Lines       []JournalLine `json:"lines"`
}

// Totals sums both sides of the entry.
func (e JournalEntry) Totals() (debit, credit decimal.Decimal) {
	debit, credit = decimal.Zero, decimal.Zero
	for _, line := range e.Lines {
		debit = debit.Add(line.Debit)
		credit = credit.Add(line.Credit)
	}
	return debit, credit
}

// AccountIDs lists distinct referenced accounts in line order.
func (e JournalEntry) AccountIDs() []int64 {
	seen := make(map[int64]struct{}, len(e.Lines))
	out := make([]int64, 0, len(e.Lines))
	for _, line := range e.Lines {
		if _, ok := seen[line.AccountID]; ok {
			continue
		}
		seen[line.AccountID] = struct{}{}
		out = append(out, line.AccountID)
	}
	return out
}

// JournalLine stores debit or credit amount for an account.
type JournalLine struct {
	ID          int64           `json:"id"`
	JournalID   int64           `json:"journal_id"`
	LineNo      int             `json:"line_no"`
	AccountID   int64           `json:"account_id"`
	Description string          `json:"description"`
	Debit       decimal.Decimal `json:"debit_amount"`
	Credit      decimal.Decimal `json:"credit_amount"`
}

// DraftLineInput describes one line of a draft.
type DraftLineInput struct {
	AccountID   int64
	Description string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
}

// DraftInput groups fields required to create or replace a draft.
type DraftInput struct {
	Date        time.Time
	Reference   string
	Description string
	Kind        JournalKind
	CreatedBy   int64
	Lines       []DraftLineInput
}

// ListFilter narrows List results.
type ListFilter struct {
	Status JournalStatus
}

// ToLines materialises draft lines for an entry.
func (in DraftInput) ToLines(entryID int64) []JournalLine {
	out := make([]JournalLine, 0, len(in.Lines))
	for idx, line := range in.Lines {
		out = append(out, JournalLine{
			JournalID:   entryID,
			LineNo:      idx + 1,
			AccountID:   line.AccountID,
			Description: line.Description,
			Debit:       line.Debit,
			Credit:      line.Credit,
		})
	}
	return out
}
