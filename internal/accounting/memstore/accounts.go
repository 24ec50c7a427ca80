package memstore

import (
	"context"
	"fmt"
	"sort"

	"github.com/odyssey-erp/ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/ledger/internal/accounting/shared"
)

type accountRepo struct {
	s *Store
}

func (r *accountRepo) Insert(ctx context.Context, in accounts.CreateAccountInput) (accounts.Account, error) {
	var out accounts.Account
	err := r.s.write(func(st *state) error {
		if err := r.s.fault("Insert"); err != nil {
			return err
		}
		for _, a := range st.accounts {
			if a.Code == in.Code {
				return fmt.Errorf("%w: %s", shared.ErrDuplicateCode, in.Code)
			}
		}
		st.nextAccount++
		now := r.s.now()
		out = accounts.Account{
			ID:            st.nextAccount,
			Code:          in.Code,
			Name:          in.Name,
			Type:          in.Type,
			Subtype:       in.Subtype,
			NormalBalance: in.NormalBalance,
			ParentID:      in.ParentID,
			IsActive:      true,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		st.accounts[out.ID] = out
		return nil
	})
	return out, err
}

func (r *accountRepo) Get(ctx context.Context, id int64) (accounts.Account, error) {
	var out accounts.Account
	err := r.s.read(func(st *state) error {
		a, ok := st.accounts[id]
		if !ok {
			return shared.ErrAccountNotFound
		}
		out = a
		return nil
	})
	return out, err
}

func (r *accountRepo) GetByCode(ctx context.Context, code string) (accounts.Account, error) {
	var out accounts.Account
	err := r.s.read(func(st *state) error {
		for _, a := range st.accounts {
			if a.Code == code {
				out = a
				return nil
			}
		}
		return shared.ErrAccountNotFound
	})
	return out, err
}

func (r *accountRepo) List(ctx context.Context) ([]accounts.Account, error) {
	var out []accounts.Account
	err := r.s.read(func(st *state) error {
		if err := r.s.fault("List"); err != nil {
			return err
		}
		out = sortedAccounts(st)
		return nil
	})
	return out, err
}

func sortedAccounts(st *state) []accounts.Account {
	out := make([]accounts.Account, 0, len(st.accounts))
	for _, a := range st.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

func (r *accountRepo) SetActive(ctx context.Context, id int64, active bool) (accounts.Account, error) {
	var out accounts.Account
	err := r.s.write(func(st *state) error {
		a, ok := st.accounts[id]
		if !ok {
			return shared.ErrAccountNotFound
		}
		a.IsActive = active
		a.UpdatedAt = r.s.now()
		st.accounts[id] = a
		out = a
		return nil
	})
	return out, err
}

func (r *accountRepo) Delete(ctx context.Context, id int64) error {
	return r.s.write(func(st *state) error {
		if _, ok := st.accounts[id]; !ok {
			return shared.ErrAccountNotFound
		}
		if referenced(st, id) {
			return &shared.StateError{Entity: "account", ID: id, Reason: "account is referenced by ledger rows, journal lines or children"}
		}
		delete(st.accounts, id)
		return nil
	})
}

// referenced mirrors the foreign keys on ledger_entries, journal_lines and
// accounts.parent_id.
func referenced(st *state, id int64) bool {
	for _, row := range st.ledger {
		if row.AccountID == id {
			return true
		}
	}
	for _, entry := range st.journals {
		for _, line := range entry.Lines {
			if line.AccountID == id {
				return true
			}
		}
	}
	for _, a := range st.accounts {
		if a.ParentID != nil && *a.ParentID == id {
			return true
		}
	}
	return false
}

func (r *accountRepo) HasPostings(ctx context.Context, id int64) (bool, error) {
	var found bool
	err := r.s.read(func(st *state) error {
		for _, row := range st.ledger {
			if row.AccountID == id {
				found = true
				return nil
			}
		}
		return nil
	})
	return found, err
}

func (r *accountRepo) HasChildren(ctx context.Context, id int64) (bool, error) {
	var found bool
	err := r.s.read(func(st *state) error {
		for _, a := range st.accounts {
			if a.ParentID != nil && *a.ParentID == id {
				found = true
				return nil
			}
		}
		return nil
	})
	return found, err
}
