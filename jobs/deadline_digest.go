package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/provisio-hr/provisio/internal/jobs"
	"github.com/provisio-hr/provisio/internal/roster"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// DeadlineDigestJob summarizes the vacation-deadline situation of the active
// roster into a structured log line for ops. It only reads; nothing about the
// roster changes.
type DeadlineDigestJob struct {
	roster  *roster.Service
	logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewDeadlineDigestJob constructs the digest job.
func NewDeadlineDigestJob(rosterService *roster.Service, logger *slog.Logger, metrics *jobmetrics.Metrics) *DeadlineDigestJob {
	return &DeadlineDigestJob{roster: rosterService, logger: logger, Metrics: metrics}
}

// Handle processes TaskDeadlineDigest tasks.
func (j *DeadlineDigestJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload DeadlineDigestPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskDeadlineDigest)
	overview, err := j.roster.Overview(ctx, "")
	if err != nil {
		return tracker.End(fmt.Errorf("deadline digest: %w", err))
	}
	j.metrics().SetFlaggedPeriods("urgent", overview.Urgent)
	j.metrics().SetFlaggedPeriods("warning", overview.Warning)

	attrs := []any{
		slog.String("triggered_by", payload.TriggeredBy),
		slog.Int("employees", overview.Total),
		slog.Int("urgent_periods", overview.Urgent),
		slog.Int("warning_periods", overview.Warning),
	}
	if next := earliestMaxDeadline(overview.Employees); next != nil {
		attrs = append(attrs, slog.Time("earliest_max_deadline", *next))
	}
	if overview.LastImport != nil {
		attrs = append(attrs, slog.Time("last_import", overview.LastImport.ImportedAt))
	}
	j.logger.Info("vacation deadline digest", attrs...)
	return tracker.End(nil)
}

func (j *DeadlineDigestJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

// earliestMaxDeadline finds the most pressing hard deadline among periods
// already flagged urgent or warning.
func earliestMaxDeadline(employees []roster.Employee) *time.Time {
	var earliest *time.Time
	for _, e := range employees {
		for _, p := range e.Periods {
			if p.Status != roster.StatusUrgent && p.Status != roster.StatusWarning {
				continue
			}
			if p.MaxDeadline == nil {
				continue
			}
			if earliest == nil || p.MaxDeadline.Before(*earliest) {
				d := *p.MaxDeadline
				earliest = &d
			}
		}
	}
	return earliest
}
