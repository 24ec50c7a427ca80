package ledger

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/odyssey-erp/ledger/internal/accounting/shared"
)

// Metrics exposes Prometheus collectors for postings.
type Metrics struct {
	postings *prometheus.CounterVec
	duration *prometheus.HistogramVec
	rows     prometheus.Counter
}

// NewMetrics registers posting metrics against registerer. A nil registerer
// yields a nil *Metrics, which records nothing.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		return nil
	}
	postings := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_ledger_postings_total",
		Help: "Journal postings partitioned by kind and outcome.",
	}, []string{"kind", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "odyssey_ledger_posting_duration_seconds",
		Help:    "Duration of journal postings including lock waits.",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})
	rows := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "odyssey_ledger_rows_written_total",
		Help: "Ledger rows appended by successful postings.",
	})
	registerer.MustRegister(postings, duration, rows)
	return &Metrics{postings: postings, duration: duration, rows: rows}
}

func (m *Metrics) observe(kind string, start time.Time, rows int, err error) {
	if m == nil {
		return
	}
	m.postings.WithLabelValues(kind, outcome(err)).Inc()
	m.duration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	if err == nil {
		m.rows.Add(float64(rows))
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "posted"
	case errors.Is(err, shared.ErrValidation):
		return "invalid"
	case errors.Is(err, shared.ErrInvalidState):
		return "rejected"
	case errors.Is(err, shared.ErrConcurrency):
		return "conflict"
	default:
		return "error"
	}
}
