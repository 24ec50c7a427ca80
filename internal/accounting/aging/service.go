package aging

import (
	"context"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/ledger/internal/accounting/shared"
)

// Source loads open items.
type Source interface {
	OpenItems(ctx context.Context, kind Kind) ([]OpenItem, error)
}

// Service computes aging schedules from stored open items.
type Service struct {
	source Source
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs the aging service. A nil logger discards output.
func NewService(source Source, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{source: source, logger: logger, now: time.Now}
}

// WithNow overrides the clock used when asOf is zero.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// ARAging ages open receivables.
func (s *Service) ARAging(ctx context.Context, asOf time.Time) (Report, error) {
	return s.age(ctx, KindReceivable, asOf)
}

// APAging ages open payables.
func (s *Service) APAging(ctx context.Context, asOf time.Time) (Report, error) {
	return s.age(ctx, KindPayable, asOf)
}

// Overview computes both schedules concurrently.
func (s *Service) Overview(ctx context.Context, asOf time.Time) (Overview, error) {
	var out Overview
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		report, err := s.ARAging(ctx, asOf)
		out.Receivables = report
		return err
	})
	g.Go(func() error {
		report, err := s.APAging(ctx, asOf)
		out.Payables = report
		return err
	})
	if err := g.Wait(); err != nil {
		return Overview{}, err
	}
	return out, nil
}

func (s *Service) age(ctx context.Context, kind Kind, asOf time.Time) (Report, error) {
	if asOf.IsZero() {
		asOf = s.now()
	}
	items, err := s.source.OpenItems(ctx, kind)
	if err != nil {
		s.logger.Error("aging load failed", slog.String("kind", string(kind)), slog.Any("error", err))
		return Report{}, &shared.StorageError{Op: "load open items", Err: err}
	}
	return Age(kind, asOf, items), nil
}
