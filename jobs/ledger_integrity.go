package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/ledger/internal/accounting/reconcile"
	"github.com/odyssey-erp/ledger/internal/accounting/reports"
	jobmetrics "github.com/odyssey-erp/ledger/internal/jobs"
)

// TrialBalancer produces the trial balance checked by the job.
type TrialBalancer interface {
	TrialBalance(ctx context.Context, asOf time.Time) (reports.TrialBalance, error)
}

// VarianceChecker computes the balance sheet variance checked by the job.
type VarianceChecker interface {
	ComputeVariance(ctx context.Context, asOf time.Time) (reconcile.Variance, error)
}

// IntegrityResult summarises one integrity run.
type IntegrityResult struct {
	AsOf         time.Time
	TrialBalance reports.TrialBalance
	BalanceSheet reconcile.Variance
}

// Balanced reports whether both statements balance.
func (r IntegrityResult) Balanced() bool {
	return r.TrialBalance.IsBalanced && r.BalanceSheet.IsBalanced
}

// LedgerIntegrityJob checks that the trial balance and the balance sheet both
// balance. It never writes to the ledger; correcting a variance is left to an
// operator running auto-balance.
type LedgerIntegrityJob struct {
	Reports  TrialBalancer
	Variance VarianceChecker
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
	clock    func() time.Time
}

// NewLedgerIntegrityJob constructs the job handler.
func NewLedgerIntegrityJob(tb TrialBalancer, variance VarianceChecker, logger *slog.Logger, metrics *jobmetrics.Metrics) *LedgerIntegrityJob {
	return &LedgerIntegrityJob{
		Reports:  tb,
		Variance: variance,
		Logger:   logger,
		Metrics:  metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the integrity check for an Asynq task.
func (j *LedgerIntegrityJob) Handle(ctx context.Context, task *asynq.Task) error {
	var payload LedgerIntegrityPayload
	if len(task.Payload()) > 0 {
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	var asOf time.Time
	if payload.AsOf != "" {
		parsed, err := time.Parse("2006-01-02", payload.AsOf)
		if err != nil {
			j.log().Warn("invalid as_of in payload", slog.String("as_of", payload.AsOf))
			return asynq.SkipRetry
		}
		asOf = parsed
	}
	_, err := j.Run(ctx, asOf)
	return err
}

// Run checks both statements as of asOf, or today when asOf is zero. An
// unbalanced ledger is reported through logs and metrics, not as an error.
func (j *LedgerIntegrityJob) Run(ctx context.Context, asOf time.Time) (result IntegrityResult, resultErr error) {
	if j == nil || j.Reports == nil || j.Variance == nil {
		return IntegrityResult{}, errors.New("ledger integrity: dependencies not configured")
	}
	if asOf.IsZero() {
		asOf = j.now()
	}

	tracker := j.metrics().Track(TaskLedgerIntegrity)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	start := j.now()
	tb, err := j.Reports.TrialBalance(ctx, asOf)
	if err != nil {
		j.log().Error("trial balance", slog.Time("as_of", asOf), slog.Any("error", err))
		return IntegrityResult{}, err
	}
	variance, err := j.Variance.ComputeVariance(ctx, asOf)
	if err != nil {
		j.log().Error("balance sheet variance", slog.Time("as_of", asOf), slog.Any("error", err))
		return IntegrityResult{}, err
	}

	result = IntegrityResult{AsOf: asOf, TrialBalance: tb, BalanceSheet: variance}
	j.metrics().RecordIntegrity("trial_balance", tb.TotalDebits.Sub(tb.TotalCredits).Abs(), tb.IsBalanced)
	j.metrics().RecordIntegrity("balance_sheet", variance.Amount.Abs(), variance.IsBalanced)

	if !result.Balanced() {
		j.log().Warn("ledger out of balance",
			slog.Time("as_of", asOf),
			slog.String("total_debits", tb.TotalDebits.StringFixed(2)),
			slog.String("total_credits", tb.TotalCredits.StringFixed(2)),
			slog.String("balance_sheet_variance", variance.Amount.StringFixed(2)),
		)
		return result, nil
	}
	j.log().Info("ledger balanced",
		slog.Time("as_of", asOf),
		slog.Int("accounts", len(tb.Rows)),
		slog.Duration("duration", time.Since(start)),
	)
	return result, nil
}

func (j *LedgerIntegrityJob) metrics() *jobmetrics.Metrics {
	if j != nil && j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *LedgerIntegrityJob) log() *slog.Logger {
	if j != nil && j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskLedgerIntegrity))
	}
	return slog.Default().With(slog.String("job", TaskLedgerIntegrity))
}

func (j *LedgerIntegrityJob) now() time.Time {
	if j != nil && j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}

// WithClock overrides the internal clock for deterministic tests.
func (j *LedgerIntegrityJob) WithClock(clock func() time.Time) {
	if j != nil && clock != nil {
		j.clock = clock
	}
}
