package accounts

import (
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/ledger/internal/accounting/shared"
)

// CreateAccountRequest is the JSON shape accepted by the account endpoint.
type CreateAccountRequest struct {
	Code          string `json:"code" validate:"required,max=32"`
	Name          string `json:"name" validate:"required,max=128"`
	Type          string `json:"type" validate:"required,oneof=ASSET LIABILITY EQUITY REVENUE EXPENSE"`
	Subtype       string `json:"subtype" validate:"omitempty,max=32"`
	NormalBalance string `json:"normal_balance" validate:"omitempty,oneof=DEBIT CREDIT"`
	ParentID      *int64 `json:"parent_id" validate:"omitempty,gt=0"`
}

// Input validates the request shape and converts it to a typed input.
func (r CreateAccountRequest) Input(v *validator.Validate) (CreateAccountInput, error) {
	if err := shared.CheckStruct(v, r); err != nil {
		return CreateAccountInput{}, err
	}
	return CreateAccountInput{
		Code:          r.Code,
		Name:          r.Name,
		Type:          AccountType(r.Type),
		Subtype:       Subtype(r.Subtype),
		NormalBalance: NormalBalance(r.NormalBalance),
		ParentID:      r.ParentID,
	}, nil
}
