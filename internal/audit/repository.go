package audit

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-cms/internal/shared"
)

// QueryParams adalah parameter query timeline. Limit nol berarti tanpa batas.
type QueryParams struct {
	From   pgtype.Timestamptz
	To     pgtype.Timestamptz
	Actor  pgtype.Text
	Entity pgtype.Text
	Action pgtype.Text
	Offset int32
	Limit  int32
}

// PGRepository membaca audit_logs dari PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository membuat repository audit.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const timelineQuery = `SELECT occurred_at, actor, action, entity, entity_id, meta
FROM audit_logs
WHERE ($1::timestamptz IS NULL OR occurred_at >= $1)
  AND ($2::timestamptz IS NULL OR occurred_at < $2)
  AND ($3::text IS NULL OR actor = $3)
  AND ($4::text IS NULL OR entity = $4)
  AND ($5::text IS NULL OR action = $5)
ORDER BY occurred_at DESC, id DESC
OFFSET $6
LIMIT NULLIF($7, 0)`

// Timeline mengambil baris audit sesuai filter.
func (r *PGRepository) Timeline(ctx context.Context, arg QueryParams) ([]TimelineRow, error) {
	rows, err := r.pool.Query(ctx, timelineQuery, arg.From, arg.To, arg.Actor, arg.Entity, arg.Action, arg.Offset, arg.Limit)
	if err != nil {
		return nil, shared.Unavailable("audit: timeline", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (TimelineRow, error) {
		var (
			item TimelineRow
			meta []byte
		)
		if err := row.Scan(&item.At, &item.Actor, &item.Action, &item.Entity, &item.EntityID, &meta); err != nil {
			return TimelineRow{}, err
		}
		if len(meta) > 0 {
			_ = json.Unmarshal(meta, &item.Meta)
		}
		return item, nil
	})
	if err != nil {
		return nil, shared.Unavailable("audit: timeline", err)
	}
	return out, nil
}

func toPgTime(t time.Time) pgtype.Timestamptz {
	if t.IsZero() {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: t, Valid: true}
}

func optionalText(value string) pgtype.Text {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: trimmed, Valid: true}
}
