package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestErrorKinds(t *testing.T) {
	verr := NewValidationError([]FieldError{{Field: "description", Message: "required"}})
	require.ErrorIs(t, verr, ErrValidation)
	require.Contains(t, verr.Error(), "description: required")
	require.NoError(t, NewValidationError(nil))

	serr := &StateError{Entity: "journal_entry", ID: 7, Reason: "not found", Err: ErrJournalNotFound}
	require.ErrorIs(t, serr, ErrInvalidState)
	require.ErrorIs(t, serr, ErrNotFound)

	cerr := fmt.Errorf("update: %w", &ConcurrencyError{Entity: "journal_entry", ID: 1, Expected: 1, Actual: 2})
	require.ErrorIs(t, cerr, ErrConcurrency)
	require.True(t, IsDomainError(cerr))

	stErr := &StorageError{Op: "post", Err: errors.New("disk full")}
	require.ErrorIs(t, stErr, ErrStorage)
	require.False(t, IsDomainError(errors.New("boom")))
}

func TestWithinEpsilon(t *testing.T) {
	require.True(t, WithinEpsilon(decimal.RequireFromString("100.004"), decimal.NewFromInt(100)))
	require.False(t, WithinEpsilon(decimal.RequireFromString("100.01"), decimal.NewFromInt(100)))

	amt, err := ParseAmount("")
	require.NoError(t, err)
	require.True(t, amt.IsZero())
	_, err = ParseAmount("abc")
	require.Error(t, err)
}
