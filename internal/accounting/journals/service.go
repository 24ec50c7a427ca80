package journals

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/odyssey-erp/ledger/internal/accounting/shared"
)

// Service manages journal entries while they are drafts.
type Service struct {
	repo     Repository
	accounts AccountReader
	logger   *slog.Logger
}

// NewService wires the draft service. A nil logger discards output.
func NewService(repo Repository, accounts AccountReader, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{repo: repo, accounts: accounts, logger: logger}
}

// CreateDraft saves a new draft. Drafts may be incomplete or unbalanced; the
// full check runs at posting time.
func (s *Service) CreateDraft(ctx context.Context, in DraftInput) (JournalEntry, error) {
	in.Kind = KindStandard
	entry, err := s.repo.InsertDraft(ctx, in)
	if err != nil {
		return JournalEntry{}, err
	}
	s.logger.Info("journal draft created",
		slog.Int64("journal_id", entry.ID),
		slog.Int64("journal_number", entry.Number),
		slog.Int("lines", len(entry.Lines)))
	return entry, nil
}

// UpdateDraft replaces a draft's content when expectedVersion still matches.
func (s *Service) UpdateDraft(ctx context.Context, id, expectedVersion int64, in DraftInput) (JournalEntry, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return JournalEntry{}, err
	}
	if err := checkMutable(current, expectedVersion); err != nil {
		return JournalEntry{}, err
	}
	in.Kind = current.Kind
	entry, err := s.repo.ReplaceDraft(ctx, id, expectedVersion, in)
	if errors.Is(err, ErrDraftChanged) {
		return JournalEntry{}, s.explainConflict(ctx, id, expectedVersion)
	}
	if err != nil {
		return JournalEntry{}, err
	}
	s.logger.Info("journal draft updated", slog.Int64("journal_id", id), slog.Int64("version", entry.Version))
	return entry, nil
}

// DeleteDraft removes a draft. Posted entries cannot be deleted.
func (s *Service) DeleteDraft(ctx context.Context, id int64) error {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := checkMutable(current, current.Version); err != nil {
		return err
	}
	if err := s.repo.DeleteDraft(ctx, id); err != nil {
		if errors.Is(err, ErrDraftChanged) {
			return s.explainConflict(ctx, id, current.Version)
		}
		return err
	}
	s.logger.Info("journal draft deleted", slog.Int64("journal_id", id))
	return nil
}

func (s *Service) Get(ctx context.Context, id int64) (JournalEntry, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]JournalEntry, error) {
	return s.repo.List(ctx, filter)
}

// Check runs Validate against the current chart of accounts without posting.
func (s *Service) Check(ctx context.Context, id int64) ([]shared.FieldError, error) {
	entry, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	known, err := ResolveAccounts(ctx, s.accounts, entry)
	if err != nil {
		return nil, err
	}
	return Validate(entry, known), nil
}

func checkMutable(entry JournalEntry, expectedVersion int64) error {
	if entry.Status != JournalStatusDraft {
		return &shared.StateError{Entity: "journal entry", ID: entry.ID, Reason: "posted entries are immutable"}
	}
	if entry.Version != expectedVersion {
		return &shared.ConcurrencyError{Entity: "journal entry", ID: entry.ID, Expected: expectedVersion, Actual: entry.Version}
	}
	return nil
}

// explainConflict re-reads an entry whose conditional write missed and reports
// what changed underneath the caller.
func (s *Service) explainConflict(ctx context.Context, id, expectedVersion int64) error {
	latest, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := checkMutable(latest, expectedVersion); err != nil {
		return err
	}
	return &shared.ConcurrencyError{Entity: "journal entry", ID: id, Expected: expectedVersion, Actual: latest.Version}
}
