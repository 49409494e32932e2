package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/odyssey-cms/internal/jobs"
)

// IdempotencyCleanupPayload configures how long keys are retained.
type IdempotencyCleanupPayload struct {
	RetainHours int `json:"retain_hours"`
}

// KeyCleaner deletes idempotency keys older than a cutoff.
type KeyCleaner interface {
	Cleanup(ctx context.Context, olderThan time.Duration) (int64, error)
}

// IdempotencyCleanupJob drops processed request keys once retries are no
// longer expected.
type IdempotencyCleanupJob struct {
	Store   KeyCleaner
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewIdempotencyCleanupJob constructs the job handler.
func NewIdempotencyCleanupJob(store KeyCleaner, logger *slog.Logger, metrics *jobmetrics.Metrics) *IdempotencyCleanupJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &IdempotencyCleanupJob{Store: store, Logger: logger, Metrics: metrics}
}

// NewIdempotencyCleanupTask builds the cleanup task. Non-positive retention
// falls back to one day.
func NewIdempotencyCleanupTask(retainHours int) (*asynq.Task, error) {
	if retainHours <= 0 {
		retainHours = defaultRetentionHours
	}
	body, err := json.Marshal(IdempotencyCleanupPayload{RetainHours: retainHours})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, body, taskOptions()...), nil
}

// Handle executes the cleanup.
func (j *IdempotencyCleanupJob) Handle(ctx context.Context, task *asynq.Task) error {
	if j == nil || j.Store == nil {
		return asynq.SkipRetry
	}
	var payload IdempotencyCleanupPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.RetainHours <= 0 {
		payload.RetainHours = defaultRetentionHours
	}
	tracker := j.Metrics.Track(TaskIdempotencyCleanup)
	removed, err := j.Store.Cleanup(ctx, time.Duration(payload.RetainHours)*time.Hour)
	if err != nil {
		j.Logger.Error("idempotency cleanup failed", slog.Any("error", err))
		return tracker.End(err)
	}
	j.Logger.Info("idempotency cleanup completed",
		slog.Int64("removed", removed),
		slog.Int("retain_hours", payload.RetainHours),
	)
	return tracker.End(nil)
}
