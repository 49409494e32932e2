package users

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-cms/internal/shared"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListUsers returns all users ordered by identifier.
func (r *Repository) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx, `SELECT email, name, role, is_active, created_at, updated_at FROM users ORDER BY email`)
	if err != nil {
		return nil, shared.Unavailable("users: list", err)
	}
	defer rows.Close()
	users := []User{}
	for rows.Next() {
		var user User
		if err := rows.Scan(&user.Email, &user.Name, &user.Role, &user.IsActive, &user.CreatedAt, &user.UpdatedAt); err != nil {
			return nil, shared.Unavailable("users: scan", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.Unavailable("users: list", err)
	}
	return users, nil
}

// CountUsers returns the number of accounts.
func (r *Repository) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, shared.Unavailable("users: count", err)
	}
	return n, nil
}

// UpdateUser applies the non-nil fields and returns the stored row.
func (r *Repository) UpdateUser(ctx context.Context, email string, in UpdateInput) (User, error) {
	const query = `UPDATE users
SET name = COALESCE($2, name), role = COALESCE($3, role), updated_at = NOW()
WHERE email = $1
RETURNING email, name, role, is_active, created_at, updated_at`
	var user User
	err := r.pool.QueryRow(ctx, query, email, in.Name, in.Role).Scan(
		&user.Email, &user.Name, &user.Role, &user.IsActive, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, shared.ErrNotFound
		}
		return User{}, shared.Unavailable("users: update", err)
	}
	return user, nil
}

// UpsertUser inserts or replaces an account; used by seeding.
func (r *Repository) UpsertUser(ctx context.Context, user User, passwordHash string) error {
	const query = `INSERT INTO users (email, name, role, password_hash, is_active)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (email) DO UPDATE SET name = EXCLUDED.name, role = EXCLUDED.role,
	password_hash = EXCLUDED.password_hash, is_active = EXCLUDED.is_active, updated_at = NOW()`
	if _, err := r.pool.Exec(ctx, query, user.Email, user.Name, user.Role, passwordHash, user.IsActive); err != nil {
		return shared.Unavailable("users: upsert", err)
	}
	return nil
}
