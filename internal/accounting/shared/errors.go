package shared

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation marks recoverable input problems; the ledger is untouched.
	ErrValidation = errors.New("accounting: validation failed")
	// ErrInvalidState indicates the entity cannot make the requested transition.
	ErrInvalidState = errors.New("accounting: invalid state")
	// ErrNotFound indicates an unknown account or entry id.
	ErrNotFound = errors.New("accounting: not found")
	// ErrConcurrency indicates a stale version stamp.
	ErrConcurrency = errors.New("accounting: concurrent modification")
	// ErrStorage indicates the store failed; nothing was applied.
	ErrStorage = errors.New("accounting: storage failure")
	// ErrDuplicateCode indicates an account code already in use.
	ErrDuplicateCode = errors.New("accounting: duplicate account code")

	// ErrAccountNotFound indicates missing account.
	ErrAccountNotFound = fmt.Errorf("%w: account", ErrNotFound)
	// ErrJournalNotFound indicates missing entry.
	ErrJournalNotFound = fmt.Errorf("%w: journal entry", ErrNotFound)
)

// FieldError scopes a validation problem to a single input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) String() string {
	return e.Field + ": " + e.Message
}

// ValidationError aggregates every violation found in one pass.
type ValidationError struct {
	Errors []FieldError
}

// NewValidationError wraps field errors; it returns nil when there are none.
func NewValidationError(errs []FieldError) error {
	if len(errs) == 0 {
		return nil
	}
	return &ValidationError{Errors: errs}
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		parts = append(parts, fe.String())
	}
	return "accounting: validation failed: " + strings.Join(parts, "; ")
}

// Is reports kind equality for errors.Is.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// HasField reports whether a violation exists for the given field.
func (e *ValidationError) HasField(field string) bool {
	for _, fe := range e.Errors {
		if fe.Field == field {
			return true
		}
	}
	return false
}

// StateError rejects an operation the entity's lifecycle does not allow.
type StateError struct {
	Entity string
	ID     int64
	Reason string
	Err    error
}

func (e *StateError) Error() string {
	msg := fmt.Sprintf("accounting: %s %d: %s", e.Entity, e.ID, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *StateError) Is(target error) bool {
	return target == ErrInvalidState
}

func (e *StateError) Unwrap() error {
	return e.Err
}

// ConcurrencyError is returned when a writer holds a stale version.
type ConcurrencyError struct {
	Entity   string
	ID       int64
	Expected int64
	Actual   int64
}

func (e *ConcurrencyError) Error() string {
	return fmt.Sprintf("accounting: %s %d modified concurrently (expected version %d, found %d)", e.Entity, e.ID, e.Expected, e.Actual)
}

func (e *ConcurrencyError) Is(target error) bool {
	return target == ErrConcurrency
}

// StorageError wraps a store failure during an atomic operation.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("accounting: storage failure during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsDomainError reports whether err already belongs to the engine taxonomy.
func IsDomainError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidState) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrConcurrency) ||
		errors.Is(err, ErrStorage) ||
		errors.Is(err, ErrDuplicateCode)
}
