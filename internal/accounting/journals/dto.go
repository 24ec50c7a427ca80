package journals

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/ledger/internal/accounting/shared"
)

const dateLayout = "2006-01-02"

// DraftLineRequest is one line of a draft payload.
type DraftLineRequest struct {
	AccountID    int64       `json:"account_id" validate:"gte=0"`
	Description  string      `json:"description" validate:"max=255"`
	DebitAmount  json.Number `json:"debit_amount" validate:"omitempty,numeric"`
	CreditAmount json.Number `json:"credit_amount" validate:"omitempty,numeric"`
}

// DraftRequest is the JSON shape accepted by the draft endpoints. Business
// rules are left to Validate; only the shape is checked here.
type DraftRequest struct {
	EntryDate   string             `json:"entry_date" validate:"omitempty,datetime=2006-01-02"`
	Reference   string             `json:"reference" validate:"max=64"`
	Description string             `json:"description" validate:"max=255"`
	Lines       []DraftLineRequest `json:"lines" validate:"max=500,dive"`
}

// Input converts the request into a typed draft.
func (r DraftRequest) Input(v *validator.Validate, actorID int64) (DraftInput, error) {
	if err := shared.CheckStruct(v, r); err != nil {
		return DraftInput{}, err
	}
	in := DraftInput{
		Reference:   strings.TrimSpace(r.Reference),
		Description: strings.TrimSpace(r.Description),
		Kind:        KindStandard,
		CreatedBy:   actorID,
		Lines:       make([]DraftLineInput, 0, len(r.Lines)),
	}
	if r.EntryDate != "" {
		date, err := time.Parse(dateLayout, r.EntryDate)
		if err != nil {
			return DraftInput{}, shared.NewValidationError([]shared.FieldError{{Field: "entry_date", Message: err.Error()}})
		}
		in.Date = date
	}
	var errs []shared.FieldError
	for idx, line := range r.Lines {
		debit, err := shared.ParseAmount(line.DebitAmount.String())
		if err != nil {
			errs = append(errs, shared.FieldError{Field: fmt.Sprintf("lines[%d].debit_amount", idx), Message: "must be a number"})
		}
		credit, err := shared.ParseAmount(line.CreditAmount.String())
		if err != nil {
			errs = append(errs, shared.FieldError{Field: fmt.Sprintf("lines[%d].credit_amount", idx), Message: "must be a number"})
		}
		in.Lines = append(in.Lines, DraftLineInput{
			AccountID:   line.AccountID,
			Description: strings.TrimSpace(line.Description),
			Debit:       debit,
			Credit:      credit,
		})
	}
	if err := shared.NewValidationError(errs); err != nil {
		return DraftInput{}, err
	}
	return in, nil
}
