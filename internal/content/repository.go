package content

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-cms/internal/platform/db"
	"github.com/odyssey-erp/odyssey-cms/internal/shared"
)

// Repository is the content store. It performs no authorization; callers go
// through Service.
type Repository interface {
	List(ctx context.Context) ([]Item, error)
	Get(ctx context.Context, id int64) (Item, error)
	Create(ctx context.Context, item Item) (Item, error)
	Update(ctx context.Context, id int64, patch UpdateInput) (Item, error)
	Counts(ctx context.Context) (Counts, error)
}

// PGRepository implements Repository on PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const itemColumns = `id, title, body, author, is_public, created_at, updated_at`

func scanItem(row pgx.Row) (Item, error) {
	var (
		item   Item
		public bool
	)
	if err := row.Scan(&item.ID, &item.Title, &item.Body, &item.Author, &public, &item.CreatedAt, &item.UpdatedAt); err != nil {
		return Item{}, err
	}
	item.Visibility = VisibilityPrivate
	if public {
		item.Visibility = VisibilityPublic
	}
	return item, nil
}

// List returns every item ordered by id.
func (r *PGRepository) List(ctx context.Context) ([]Item, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+itemColumns+` FROM content_items ORDER BY id`)
	if err != nil {
		return nil, shared.Unavailable("content: list", err)
	}
	defer rows.Close()
	items := []Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, shared.Unavailable("content: scan", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.Unavailable("content: list", err)
	}
	return items, nil
}

// Get fetches one item.
func (r *PGRepository) Get(ctx context.Context, id int64) (Item, error) {
	item, err := scanItem(r.pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM content_items WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, shared.ErrNotFound
		}
		return Item{}, shared.Unavailable("content: get", err)
	}
	return item, nil
}

// Create inserts item and returns it with its assigned id and timestamps.
func (r *PGRepository) Create(ctx context.Context, item Item) (Item, error) {
	const query = `INSERT INTO content_items (title, body, author, is_public) VALUES ($1, $2, $3, $4) RETURNING ` + itemColumns
	created, err := scanItem(r.pool.QueryRow(ctx, query, item.Title, item.Body, item.Author, item.Public()))
	if err != nil {
		return Item{}, shared.Unavailable("content: create", err)
	}
	return created, nil
}

// Update applies patch under a row lock. The author column is never written.
func (r *PGRepository) Update(ctx context.Context, id int64, patch UpdateInput) (Item, error) {
	var updated Item
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		current, err := scanItem(tx.QueryRow(ctx, `SELECT `+itemColumns+` FROM content_items WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return shared.ErrNotFound
			}
			return shared.Unavailable("content: lock", err)
		}
		next := patch.Apply(current)
		const query = `UPDATE content_items SET title = $2, body = $3, is_public = $4, updated_at = NOW() WHERE id = $1 RETURNING ` + itemColumns
		updated, err = scanItem(tx.QueryRow(ctx, query, id, next.Title, next.Body, next.Public()))
		if err != nil {
			return shared.Unavailable("content: update", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) || errors.Is(err, shared.ErrUnavailable) {
			return Item{}, err
		}
		return Item{}, shared.Unavailable("content: update", err)
	}
	return updated, nil
}

// Counts aggregates public and private totals.
func (r *PGRepository) Counts(ctx context.Context) (Counts, error) {
	const query = `SELECT COUNT(*), COUNT(*) FILTER (WHERE is_public) FROM content_items`
	var c Counts
	if err := r.pool.QueryRow(ctx, query).Scan(&c.Total, &c.Public); err != nil {
		return Counts{}, shared.Unavailable("content: counts", err)
	}
	c.Private = c.Total - c.Public
	return c, nil
}

var _ Repository = (*PGRepository)(nil)
