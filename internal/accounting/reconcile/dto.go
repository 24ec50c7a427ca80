package reconcile

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/ledger/internal/accounting/shared"
)

// AutoBalanceRequest is the JSON body accepted by the auto-balance endpoint.
type AutoBalanceRequest struct {
	AsOf   string `json:"as_of" validate:"omitempty,datetime=2006-01-02"`
	Reason string `json:"reason" validate:"max=255"`
}

// Input validates the request and converts it.
func (r AutoBalanceRequest) Input(v *validator.Validate, actorID int64) (AutoBalanceInput, error) {
	if err := shared.CheckStruct(v, r); err != nil {
		return AutoBalanceInput{}, err
	}
	in := AutoBalanceInput{Reason: strings.TrimSpace(r.Reason), ActorID: actorID}
	if r.AsOf != "" {
		asOf, err := time.Parse("2006-01-02", r.AsOf)
		if err != nil {
			return AutoBalanceInput{}, shared.NewValidationError([]shared.FieldError{{Field: "as_of", Message: err.Error()}})
		}
		in.AsOf = asOf
	}
	return in, nil
}
