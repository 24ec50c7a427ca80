package journals

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/ledger/internal/accounting/shared"
)

// Validate checks a journal entry against the chart of accounts in known and
// returns every violation found. It never mutates its inputs.
//
// Reconciliation entries skip the line count and balance rules: they exist to
// offset rows that never went through this check.
func Validate(entry JournalEntry, known map[int64]accounts.Account) []shared.FieldError {
	var errs []shared.FieldError
	add := func(field, format string, args ...any) {
		errs = append(errs, shared.FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if entry.Date.IsZero() {
		add("entry_date", "entry date is required")
	}
	if strings.TrimSpace(entry.Description) == "" {
		add("description", "description is required")
	}
	reconciliation := entry.Kind == KindReconciliation
	switch {
	case reconciliation && len(entry.Lines) == 0:
		add("lines", "at least one line is required")
	case !reconciliation && len(entry.Lines) < 2:
		add("lines", "at least two lines are required")
	}

	debit, credit := decimal.Zero, decimal.Zero
	for idx, line := range entry.Lines {
		accountField := fmt.Sprintf("lines[%d].account_id", idx)
		amountField := fmt.Sprintf("lines[%d].amount", idx)
		if line.AccountID == 0 {
			add(accountField, "account is required")
		} else if account, ok := known[line.AccountID]; !ok {
			add(accountField, "account %d does not exist", line.AccountID)
		} else if !account.IsActive {
			add(accountField, "account %s is inactive", account.Code)
		}

		switch {
		case line.Debit.IsNegative() || line.Credit.IsNegative():
			add(amountField, "amounts cannot be negative")
		case line.Debit.IsPositive() && line.Credit.IsPositive():
			add(amountField, "a line cannot carry both a debit and a credit")
		case line.Debit.IsZero() && line.Credit.IsZero():
			add(amountField, "either debit or credit must be positive")
		}
		debit = debit.Add(line.Debit)
		credit = credit.Add(line.Credit)
	}

	if !reconciliation && len(entry.Lines) > 0 && !shared.WithinEpsilon(debit, credit) {
		add("totals", "debits %s do not equal credits %s", debit.StringFixed(2), credit.StringFixed(2))
	}
	return errs
}

// AccountReader resolves accounts referenced by journal lines.
type AccountReader interface {
	Get(ctx context.Context, id int64) (accounts.Account, error)
}

// ResolveAccounts loads the accounts referenced by entry. Unknown ids are left
// out of the map so Validate can report them.
func ResolveAccounts(ctx context.Context, reader AccountReader, entry JournalEntry) (map[int64]accounts.Account, error) {
	known := make(map[int64]accounts.Account, len(entry.Lines))
	for _, id := range entry.AccountIDs() {
		if id == 0 {
			continue
		}
		account, err := reader.Get(ctx, id)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				continue
			}
			return nil, err
		}
		known[id] = account
	}
	return known, nil
}
