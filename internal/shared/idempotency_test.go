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

func TestIdempotencyConflict(t *testing.T) {
	store := NewIdempotencyStore(&fakeExecer{err: &pgconn.PgError{Code: "23505"}})
	err := store.CheckAndInsert(context.Background(), "k1", "content.create")
	assert.ErrorIs(t, err, ErrIdempotencyConflict)
}

func TestIdempotencyStoreFailureIsUnavailable(t *testing.T) {
	store := NewIdempotencyStore(&fakeExecer{err: errors.New("timeout")})
	err := store.CheckAndInsert(context.Background(), "k1", "content.create")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.NotErrorIs(t, err, ErrIdempotencyConflict)
}

func TestIdempotencyRequiresKey(t *testing.T) {
	store := NewIdempotencyStore(&fakeExecer{})
	assert.Error(t, store.CheckAndInsert(context.Background(), "", "content.create"))
}

func TestIdempotencyCleanupReportsRows(t *testing.T) {
	db := &fakeExecer{tag: pgconn.NewCommandTag("DELETE 4")}
	store := NewIdempotencyStore(db)
	n, err := store.Cleanup(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
	assert.Contains(t, db.sql[0], "DELETE FROM idempotency_keys")
}
