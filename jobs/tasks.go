package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskDeadlineDigest is the task type for the daily vacation-deadline digest.
	TaskDeadlineDigest = "provisio:deadline_digest"
)

// DeadlineDigestPayload carries attribution for a digest run.
type DeadlineDigestPayload struct {
	TriggeredBy string `json:"triggered_by"`
}

// NewDeadlineDigestTask constructs an Asynq task.
func NewDeadlineDigestTask(payload DeadlineDigestPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDeadlineDigest, data), nil
}
