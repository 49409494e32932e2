package audit

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTimelineRepo struct {
	rows     []TimelineRow
	lastCall QueryParams
}

func (s *stubTimelineRepo) Timeline(ctx context.Context, arg QueryParams) ([]TimelineRow, error) {
	s.lastCall = arg
	if arg.Limit > 0 && int(arg.Limit) < len(s.rows) {
		return s.rows[:arg.Limit], nil
	}
	return s.rows, nil
}

func row(at, actor, action, entity, id string) TimelineRow {
	ts, _ := time.Parse(time.RFC3339, at)
	return TimelineRow{At: ts, Actor: actor, Action: action, Entity: entity, EntityID: id}
}

func TestServiceTimelinePaging(t *testing.T) {
	repo := &stubTimelineRepo{rows: []TimelineRow{
		row("2024-03-10T10:00:00Z", "admin@example.com", "content.update", "content", "1"),
		row("2024-03-09T09:00:00Z", "editor@example.com", "content.create", "content", "2"),
		row("2024-03-08T08:00:00Z", "admin@example.com", "auth.login", "session", "abc"),
	}}
	svc := NewService(repo)
	result, err := svc.Timeline(context.Background(), TimelineFilters{
		From:     time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		To:       time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
		Actor:    " admin@example.com ",
		Page:     1,
		PageSize: 2,
	})
	require.NoError(t, err)
	assert.Len(t, result.Rows, 2)
	assert.True(t, result.Paging.HasNext)
	assert.Equal(t, 2, result.Paging.NextPage)
	assert.Equal(t, int32(3), repo.lastCall.Limit)
	assert.Equal(t, int32(0), repo.lastCall.Offset)
	assert.Equal(t, pgtype.Text{String: "admin@example.com", Valid: true}, repo.lastCall.Actor)
	assert.Equal(t, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), repo.lastCall.To.Time, "to covers the whole day")
}

func TestServiceTimelineClampsPageSize(t *testing.T) {
	repo := &stubTimelineRepo{}
	result, err := NewService(repo).Timeline(context.Background(), TimelineFilters{Page: 3, PageSize: 500})
	require.NoError(t, err)
	assert.Equal(t, int32(51), repo.lastCall.Limit)
	assert.Equal(t, int32(100), repo.lastCall.Offset)
	assert.Equal(t, 2, result.Paging.PrevPage)
	assert.NotNil(t, result.Rows)
}

func TestServiceExportReturnsAllRows(t *testing.T) {
	repo := &stubTimelineRepo{rows: []TimelineRow{
		row("2024-03-10T10:00:00Z", "actor", "user.update", "user", "viewer@example.com"),
		row("2024-03-09T09:00:00Z", "actor", "content.create", "content", "2"),
	}}
	rows, err := NewService(repo).Export(context.Background(), TimelineFilters{From: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.Equal(t, pgtype.Text{}, repo.lastCall.Actor)
	assert.Zero(t, repo.lastCall.Limit)
}

func TestWriteCSV(t *testing.T) {
	r := row("2024-03-10T10:00:00Z", "admin@example.com", "user.update", "user", "viewer@example.com")
	r.Meta = map[string]any{"role": "editor"}
	out, err := WriteCSV([]TimelineRow{r})
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "at,actor,action,entity,entity_id,meta", lines[0])
	assert.Equal(t, `2024-03-10T10:00:00Z,admin@example.com,user.update,user,viewer@example.com,"{""role"":""editor""}"`, lines[1])
}
