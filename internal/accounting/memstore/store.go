// Package memstore keeps the whole ledger in memory. Every write runs against
// a private copy of the state that replaces the live state only when it
// succeeds, so failed operations leave nothing behind.
package memstore

import (
	"errors"
	"sync"
	"time"

	"github.com/odyssey-erp/ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/ledger/internal/accounting/aging"
	"github.com/odyssey-erp/ledger/internal/accounting/journals"
	"github.com/odyssey-erp/ledger/internal/accounting/ledger"
)

// ErrInjected is the default failure returned by FailOn.
var ErrInjected = errors.New("memstore: injected failure")

type state struct {
	accounts map[int64]accounts.Account
	journals map[int64]journals.JournalEntry
	ledger   []ledger.LedgerEntry
	items    map[aging.Kind][]aging.OpenItem

	nextAccount int64
	nextJournal int64
	nextLine    int64
	nextLedger  int64
	nextNumber  int64
	nextItem    int64
}

func newState() *state {
	return &state{
		accounts: make(map[int64]accounts.Account),
		journals: make(map[int64]journals.JournalEntry),
		items:    make(map[aging.Kind][]aging.OpenItem),
	}
}

func (s *state) clone() *state {
	out := *s
	out.accounts = make(map[int64]accounts.Account, len(s.accounts))
	for id, a := range s.accounts {
		out.accounts[id] = a
	}
	out.journals = make(map[int64]journals.JournalEntry, len(s.journals))
	for id, e := range s.journals {
		out.journals[id] = copyEntry(e)
	}
	out.ledger = append([]ledger.LedgerEntry(nil), s.ledger...)
	out.items = make(map[aging.Kind][]aging.OpenItem, len(s.items))
	for kind, list := range s.items {
		out.items[kind] = append([]aging.OpenItem(nil), list...)
	}
	return &out
}

func copyEntry(e journals.JournalEntry) journals.JournalEntry {
	e.Lines = append([]journals.JournalLine(nil), e.Lines...)
	return e
}

// Store is the in-memory backend.
type Store struct {
	mu     sync.Mutex
	st     *state
	faults map[string]error
	now    func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{st: newState(), faults: make(map[string]error), now: time.Now}
}

// WithNow overrides the clock used for created/updated stamps.
func (s *Store) WithNow(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if now != nil {
		s.now = now
	}
}

// FailOn makes the named operation fail with err (ErrInjected when nil) until
// cleared with Heal. Operation names match the port method names.
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		err = ErrInjected
	}
	s.faults[op] = err
}

// Heal clears every injected failure.
func (s *Store) Heal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = make(map[string]error)
}

// fault must be called with mu held.
func (s *Store) fault(op string) error {
	return s.faults[op]
}

// read runs fn against the live state under the lock.
func (s *Store) read(fn func(*state) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.st)
}

// write runs fn against a copy and publishes it only if fn succeeds.
func (s *Store) write(fn func(*state) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	draft := s.st.clone()
	if err := fn(draft); err != nil {
		return err
	}
	s.st = draft
	return nil
}

// snapshot copies the live state for lock-free reading.
func (s *Store) snapshot() *state {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.clone()
}

// Accounts exposes the chart of accounts port.
func (s *Store) Accounts() accounts.Repository { return &accountRepo{s: s} }

// Journals exposes the draft port.
func (s *Store) Journals() journals.Repository { return &journalRepo{s: s} }

// Ledger exposes the posting port.
func (s *Store) Ledger() ledger.Repository { return &ledgerRepo{s: s} }

// Reports exposes the snapshot source.
func (s *Store) Reports() *ReportSource { return &ReportSource{s: s} }

// Aging exposes the open item source.
func (s *Store) Aging() aging.Source { return &agingRepo{s: s} }

// AppendRaw writes a ledger row directly, skipping validation and running
// balances. It models writes that bypass the engine.
func (s *Store) AppendRaw(row ledger.LedgerEntry) ledger.LedgerEntry {
	_ = s.write(func(st *state) error {
		st.nextLedger++
		row.ID = st.nextLedger
		if row.Kind == "" {
			row.Kind = journals.KindStandard
		}
		row.CreatedAt = s.now()
		st.ledger = append(st.ledger, row)
		return nil
	})
	return row
}

// AddOpenItem stores an invoice or bill for aging.
func (s *Store) AddOpenItem(kind aging.Kind, item aging.OpenItem) aging.OpenItem {
	_ = s.write(func(st *state) error {
		st.nextItem++
		if item.ID == 0 {
			item.ID = st.nextItem
		}
		st.items[kind] = append(st.items[kind], item)
		return nil
	})
	return item
}

// LedgerRows returns every ledger row in insertion order.
func (s *Store) LedgerRows() []ledger.LedgerEntry {
	return s.snapshot().ledger
}
