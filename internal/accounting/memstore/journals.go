package memstore

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/odyssey-erp/ledger/internal/accounting/journals"
	"github.com/odyssey-erp/ledger/internal/accounting/shared"
)

type journalRepo struct {
	s *Store
}

// insertJournal must run inside write.
func (s *Store) insertJournal(st *state, in journals.DraftInput) journals.JournalEntry {
	st.nextJournal++
	st.nextNumber++
	now := s.now()
	kind := in.Kind
	if kind == "" {
		kind = journals.KindStandard
	}
	entry := journals.JournalEntry{
		ID:          st.nextJournal,
		Number:      st.nextNumber,
		Date:        in.Date,
		Reference:   in.Reference,
		Description: in.Description,
		Status:      journals.JournalStatusDraft,
		Kind:        kind,
		Version:     1,
		SourceID:    uuid.New(),
		CreatedBy:   in.CreatedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	entry.Lines = s.materialise(st, entry.ID, in)
	st.journals[entry.ID] = entry
	return copyEntry(entry)
}

func (s *Store) materialise(st *state, entryID int64, in journals.DraftInput) []journals.JournalLine {
	lines := in.ToLines(entryID)
	for i := range lines {
		st.nextLine++
		lines[i].ID = st.nextLine
	}
	return lines
}

func (r *journalRepo) InsertDraft(ctx context.Context, in journals.DraftInput) (journals.JournalEntry, error) {
	var out journals.JournalEntry
	err := r.s.write(func(st *state) error {
		if err := r.s.fault("InsertDraft"); err != nil {
			return err
		}
		out = r.s.insertJournal(st, in)
		return nil
	})
	return out, err
}

func (r *journalRepo) Get(ctx context.Context, id int64) (journals.JournalEntry, error) {
	var out journals.JournalEntry
	err := r.s.read(func(st *state) error {
		e, ok := st.journals[id]
		if !ok {
			return shared.ErrJournalNotFound
		}
		out = copyEntry(e)
		return nil
	})
	return out, err
}

func (r *journalRepo) List(ctx context.Context, filter journals.ListFilter) ([]journals.JournalEntry, error) {
	var out []journals.JournalEntry
	err := r.s.read(func(st *state) error {
		for _, e := range st.journals {
			if filter.Status != "" && e.Status != filter.Status {
				continue
			}
			out = append(out, copyEntry(e))
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Number > out[j].Number })
	return out, err
}

func (r *journalRepo) ReplaceDraft(ctx context.Context, id, expectedVersion int64, in journals.DraftInput) (journals.JournalEntry, error) {
	var out journals.JournalEntry
	err := r.s.write(func(st *state) error {
		if err := r.s.fault("ReplaceDraft"); err != nil {
			return err
		}
		e, ok := st.journals[id]
		if !ok || e.Status != journals.JournalStatusDraft || e.Version != expectedVersion {
			return journals.ErrDraftChanged
		}
		e.Date = in.Date
		e.Reference = in.Reference
		e.Description = in.Description
		e.Version++
		e.UpdatedAt = r.s.now()
		e.Lines = r.s.materialise(st, id, in)
		st.journals[id] = e
		out = copyEntry(e)
		return nil
	})
	return out, err
}

func (r *journalRepo) DeleteDraft(ctx context.Context, id int64) error {
	return r.s.write(func(st *state) error {
		e, ok := st.journals[id]
		if !ok || e.Status != journals.JournalStatusDraft {
			return journals.ErrDraftChanged
		}
		delete(st.journals, id)
		return nil
	})
}
