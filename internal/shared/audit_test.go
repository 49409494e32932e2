package shared

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExecer struct {
	sql  []string
	args [][]any
	tag  pgconn.CommandTag
	err  error
}

func (f *fakeExecer) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.sql = append(f.sql, sql)
	f.args = append(f.args, args)
	return f.tag, f.err
}

func TestAuditLoggerRecord(t *testing.T) {
	db := &fakeExecer{}
	logger := NewAuditLogger(db)

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	err := logger.Record(context.Background(), AuditLog{
		Actor:    "admin@example.com",
		Action:   "content.update",
		Entity:   "content",
		EntityID: "3",
		Meta:     map[string]any{"fields": []string{"title"}},
		At:       at,
	})
	require.NoError(t, err)
	require.Len(t, db.args, 1)
	assert.Equal(t, "admin@example.com", db.args[0][0])
	assert.JSONEq(t, `{"fields":["title"]}`, string(db.args[0][4].([]byte)))
	assert.Equal(t, at, db.args[0][5])
}

func TestAuditLoggerValidates(t *testing.T) {
	logger := NewAuditLogger(&fakeExecer{})
	assert.Error(t, logger.Record(context.Background(), AuditLog{Action: "x"}))

	var nilLogger *AuditLogger
	assert.Error(t, nilLogger.Record(context.Background(), AuditLog{}))
}

func TestAuditLoggerStoreFailure(t *testing.T) {
	logger := NewAuditLogger(&fakeExecer{err: errors.New("conn refused")})
	err := logger.Record(context.Background(), AuditLog{Actor: "a", Action: "b", Entity: "c", EntityID: "d"})
	assert.ErrorIs(t, err, ErrUnavailable)
}
