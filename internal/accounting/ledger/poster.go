package ledger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/ledger/internal/accounting/journals"
	"github.com/odyssey-erp/ledger/internal/accounting/shared"
)

// Poster is the only writer of ledger rows.
type Poster struct {
	repo    Repository
	locker  AccountLocker
	metrics *Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// NewPoster wires the poster. A nil locker falls back to an in-process one and
// a nil logger discards output.
func NewPoster(repo Repository, locker AccountLocker, metrics *Metrics, logger *slog.Logger) *Poster {
	if locker == nil {
		locker = NewLocalLocker()
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Poster{repo: repo, locker: locker, metrics: metrics, logger: logger, now: time.Now}
}

// WithNow overrides the clock used for posted_at stamps.
func (p *Poster) WithNow(now func() time.Time) {
	if now != nil {
		p.now = now
	}
}

// Post validates a draft and appends its ledger rows, flipping it to POSTED in
// the same transaction.
func (p *Poster) Post(ctx context.Context, entryID int64) (PostedEntry, error) {
	start := time.Now()
	posted, err := p.post(ctx, entryID)
	p.metrics.observe(string(journals.KindStandard), start, len(posted.LedgerEntries), err)
	if err != nil {
		p.logFailure("journal posting failed", entryID, err)
		return PostedEntry{}, err
	}
	p.logger.Info("journal posted",
		slog.Int64("journal_id", posted.EntryID),
		slog.Int64("journal_number", posted.JournalNumber),
		slog.Int("ledger_rows", len(posted.LedgerEntries)),
		slog.String("total", posted.TotalDebit.StringFixed(2)))
	return posted, nil
}

func (p *Poster) post(ctx context.Context, entryID int64) (PostedEntry, error) {
	pre, err := p.repo.GetJournal(ctx, entryID)
	if err != nil {
		return PostedEntry{}, classify("load journal", entryID, err)
	}
	if pre.Status == journals.JournalStatusPosted {
		return PostedEntry{}, alreadyPosted(entryID)
	}

	release, err := p.locker.Lock(ctx, pre.AccountIDs())
	if err != nil {
		return PostedEntry{}, &shared.StorageError{Op: "lock accounts", Err: err}
	}
	defer release()

	var posted PostedEntry
	err = p.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		entry, err := tx.GetJournalForUpdate(ctx, entryID)
		if err != nil {
			return classify("load journal", entryID, err)
		}
		if entry.Status == journals.JournalStatusPosted {
			return alreadyPosted(entryID)
		}
		if entry.Version != pre.Version {
			return &shared.ConcurrencyError{Entity: "journal entry", ID: entryID, Expected: pre.Version, Actual: entry.Version}
		}
		known, err := tx.LockAccounts(ctx, nonZero(entry.AccountIDs()))
		if err != nil {
			return err
		}
		if err := shared.NewValidationError(journals.Validate(entry, known)); err != nil {
			return err
		}
		posted, err = p.apply(ctx, tx, entry, known)
		return err
	})
	if err != nil {
		return PostedEntry{}, classify("post journal", entryID, err)
	}
	return posted, nil
}

// PostReconciliation creates and posts a RECONCILIATION entry atomically.
func (p *Poster) PostReconciliation(ctx context.Context, in ReconciliationInput) (PostedEntry, error) {
	start := time.Now()
	posted, err := p.postReconciliation(ctx, in)
	p.metrics.observe(string(journals.KindReconciliation), start, len(posted.LedgerEntries), err)
	if err != nil {
		p.logFailure("reconciliation posting failed", 0, err)
		return PostedEntry{}, err
	}
	p.logger.Warn("reconciliation entry posted",
		slog.Int64("journal_id", posted.EntryID),
		slog.Int64("account_id", in.AccountID),
		slog.String("debit", in.Debit.StringFixed(2)),
		slog.String("credit", in.Credit.StringFixed(2)))
	return posted, nil
}

func (p *Poster) postReconciliation(ctx context.Context, in ReconciliationInput) (PostedEntry, error) {
	draft := in.Draft()
	release, err := p.locker.Lock(ctx, []int64{in.AccountID})
	if err != nil {
		return PostedEntry{}, &shared.StorageError{Op: "lock accounts", Err: err}
	}
	defer release()

	var posted PostedEntry
	err = p.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		known, err := tx.LockAccounts(ctx, nonZero([]int64{in.AccountID}))
		if err != nil {
			return err
		}
		preview := journals.JournalEntry{
			Date:        draft.Date,
			Description: draft.Description,
			Kind:        draft.Kind,
			Lines:       draft.ToLines(0),
		}
		if err := shared.NewValidationError(journals.Validate(preview, known)); err != nil {
			return err
		}
		entry, err := tx.InsertJournal(ctx, draft)
		if err != nil {
			return err
		}
		posted, err = p.apply(ctx, tx, entry, known)
		return err
	})
	if err != nil {
		return PostedEntry{}, classify("post reconciliation", 0, err)
	}
	return posted, nil
}

// apply chains running balances from each account's latest row and writes the
// ledger rows before marking the entry posted.
func (p *Poster) apply(ctx context.Context, tx TxRepository, entry journals.JournalEntry, known map[int64]accounts.Account) (PostedEntry, error) {
	balances := make(map[int64]decimal.Decimal, len(known))
	rows := make([]LedgerEntry, 0, len(entry.Lines))
	for _, line := range entry.Lines {
		account := known[line.AccountID]
		prev, ok := balances[account.ID]
		if !ok {
			latest, err := tx.LatestBalance(ctx, account.ID)
			if err != nil {
				return PostedEntry{}, err
			}
			prev = latest
		}
		next := prev.Add(Delta(account.NormalBalance, line.Debit, line.Credit))
		balances[account.ID] = next
		description := line.Description
		if description == "" {
			description = entry.Description
		}
		rows = append(rows, LedgerEntry{
			AccountID:       account.ID,
			JournalID:       entry.ID,
			Kind:            entry.Kind,
			Description:     description,
			Debit:           line.Debit,
			Credit:          line.Credit,
			RunningBalance:  next,
			TransactionDate: entry.Date,
		})
	}
	written, err := tx.InsertLedgerEntries(ctx, rows)
	if err != nil {
		return PostedEntry{}, err
	}
	if err := tx.MarkPosted(ctx, entry.ID, entry.Version, p.now()); err != nil {
		if errors.Is(err, journals.ErrDraftChanged) {
			return PostedEntry{}, &shared.ConcurrencyError{Entity: "journal entry", ID: entry.ID, Expected: entry.Version, Actual: entry.Version + 1}
		}
		return PostedEntry{}, err
	}
	debit, credit := entry.Totals()
	return PostedEntry{
		EntryID:       entry.ID,
		JournalNumber: entry.Number,
		Status:        journals.JournalStatusPosted,
		Kind:          entry.Kind,
		TotalDebit:    debit,
		TotalCredit:   credit,
		LedgerEntries: written,
	}, nil
}

// History lists an account's ledger rows oldest first.
func (p *Poster) History(ctx context.Context, accountID int64) ([]LedgerEntry, error) {
	return p.repo.History(ctx, accountID)
}

func (p *Poster) logFailure(msg string, entryID int64, err error) {
	attrs := []any{slog.Int64("journal_id", entryID), slog.Any("error", err)}
	if errors.Is(err, shared.ErrStorage) {
		p.logger.Error(msg, attrs...)
		return
	}
	p.logger.Warn(msg, attrs...)
}

func alreadyPosted(id int64) error {
	return &shared.StateError{Entity: "journal entry", ID: id, Reason: "entry is already posted"}
}

// classify keeps domain errors intact, reports a missing entry as a state
// violation that still matches shared.ErrNotFound, and wraps everything else
// as a storage failure.
func classify(op string, id int64, err error) error {
	switch {
	case errors.Is(err, shared.ErrJournalNotFound):
		var state *shared.StateError
		if errors.As(err, &state) {
			return err
		}
		return &shared.StateError{Entity: "journal entry", ID: id, Reason: "entry does not exist", Err: err}
	case shared.IsDomainError(err):
		return err
	default:
		return &shared.StorageError{Op: op, Err: err}
	}
}

func nonZero(ids []int64) []int64 {
	out := ids[:0:0]
	for _, id := range ids {
		if id != 0 {
			out = append(out, id)
		}
	}
	return out
}
