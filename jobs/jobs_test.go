package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/odyssey-erp/odyssey-cms/internal/jobs"
)

type stubPurger struct {
	removed int64
	err     error
	calls   int
}

func (s *stubPurger) PurgeExpiredSessions(context.Context) (int64, error) {
	s.calls++
	return s.removed, s.err
}

type stubCleaner struct {
	olderThan time.Duration
	err       error
}

func (s *stubCleaner) Cleanup(_ context.Context, olderThan time.Duration) (int64, error) {
	s.olderThan = olderThan
	return 3, s.err
}

func TestSessionPurgeJob(t *testing.T) {
	metrics := jobmetrics.NewMetrics(prometheus.NewRegistry())
	purger := &stubPurger{removed: 4}
	job := NewSessionPurgeJob(purger, nil, metrics)

	require.NoError(t, job.Handle(context.Background(), NewSessionPurgeTask()))
	assert.Equal(t, 1, purger.calls)

	purger.err = errors.New("db down")
	assert.Error(t, job.Handle(context.Background(), NewSessionPurgeTask()))

	var empty *SessionPurgeJob
	assert.ErrorIs(t, empty.Handle(context.Background(), NewSessionPurgeTask()), asynq.SkipRetry)
}

func TestIdempotencyCleanupTaskPayload(t *testing.T) {
	task, err := NewIdempotencyCleanupTask(0)
	require.NoError(t, err)
	assert.Equal(t, TaskIdempotencyCleanup, task.Type())

	var payload IdempotencyCleanupPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, defaultRetentionHours, payload.RetainHours)
}

func TestIdempotencyCleanupJob(t *testing.T) {
	cleaner := &stubCleaner{}
	job := NewIdempotencyCleanupJob(cleaner, nil, nil)

	task, err := NewIdempotencyCleanupTask(6)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, 6*time.Hour, cleaner.olderThan)

	bad := asynq.NewTask(TaskIdempotencyCleanup, []byte("{"))
	assert.ErrorIs(t, job.Handle(context.Background(), bad), asynq.SkipRetry)
}

func TestJobMetricsTrackOutcomes(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(registry)
	job := NewSessionPurgeJob(&stubPurger{err: errors.New("boom")}, nil, metrics)

	_ = job.Handle(context.Background(), NewSessionPurgeTask())
	families, err := registry.Gather()
	require.NoError(t, err)
	found := map[string]float64{}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			if c := m.GetCounter(); c != nil {
				found[mf.GetName()] += c.GetValue()
			}
		}
	}
	assert.Equal(t, 1.0, found["cms_jobs_failures_total"])
	assert.Equal(t, 1.0, found["cms_jobs_total"])
}

type stubInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (s stubInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) { return s.info, s.err }

func TestHealthHandler(t *testing.T) {
	rr := httptest.NewRecorder()
	NewHandler(stubInspector{info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 2, Retry: 1}}, nil).
		health(rr, httptest.NewRequest(http.MethodGet, "/api/admin/jobs", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var body queueHealth
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, queueHealth{Queue: QueueDefault, Pending: 2, Retry: 1}, body)

	rr = httptest.NewRecorder()
	NewHandler(stubInspector{err: errors.New("redis down")}, nil).
		health(rr, httptest.NewRequest(http.MethodGet, "/api/admin/jobs", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
