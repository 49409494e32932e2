package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/odyssey-cms/internal/jobs"
)

// SessionPurger deletes session audit rows past their expiry.
type SessionPurger interface {
	PurgeExpiredSessions(ctx context.Context) (int64, error)
}

// SessionPurgeJob removes expired login sessions. Redis expires the cookie
// sessions on its own; this keeps user_sessions from growing unbounded.
type SessionPurgeJob struct {
	Purger  SessionPurger
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewSessionPurgeJob constructs the job handler.
func NewSessionPurgeJob(purger SessionPurger, logger *slog.Logger, metrics *jobmetrics.Metrics) *SessionPurgeJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionPurgeJob{Purger: purger, Logger: logger, Metrics: metrics}
}

// NewSessionPurgeTask builds the purge task.
func NewSessionPurgeTask() *asynq.Task {
	return asynq.NewTask(TaskSessionPurge, nil, taskOptions()...)
}

// Handle executes the purge.
func (j *SessionPurgeJob) Handle(ctx context.Context, _ *asynq.Task) error {
	if j == nil || j.Purger == nil {
		return asynq.SkipRetry
	}
	tracker := j.Metrics.Track(TaskSessionPurge)
	removed, err := j.Purger.PurgeExpiredSessions(ctx)
	if err != nil {
		j.Logger.Error("session purge failed", slog.Any("error", err))
		return tracker.End(err)
	}
	j.Logger.Info("session purge completed", slog.Int64("removed", removed))
	return tracker.End(nil)
}
