package jobs

import (
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskSessionPurge removes expired rows from user_sessions.
	TaskSessionPurge = "sessions:purge"
	// TaskIdempotencyCleanup removes stale idempotency keys.
	TaskIdempotencyCleanup = "idempotency:cleanup"
)

// defaultRetentionHours is how long processed request keys are kept.
const defaultRetentionHours = 24

// taskOptions are applied to every scheduled maintenance task.
func taskOptions() []asynq.Option {
	return []asynq.Option{asynq.Queue(QueueDefault), asynq.MaxRetry(3)}
}
