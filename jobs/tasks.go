package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/ledger/internal/jobs"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLedgerIntegrity is the task type for the scheduled ledger integrity check.
	TaskLedgerIntegrity = "ledger:integrity"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// LedgerIntegrityPayload selects the date the check runs as of. An empty AsOf
// means the day the task is processed.
type LedgerIntegrityPayload struct {
	AsOf string `json:"as_of,omitempty"`
}

// NewLedgerIntegrityTask constructs an Asynq task for the integrity check.
func NewLedgerIntegrityTask(asOf time.Time) (*asynq.Task, error) {
	payload := LedgerIntegrityPayload{}
	if !asOf.IsZero() {
		payload.AsOf = asOf.Format("2006-01-02")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerIntegrity, data, asynq.Queue(QueueDefault)), nil
}
