package db

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"

	"github.com/jackc/pgx/v5"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Migrate applies the embedded schema files in lexical order inside a single
// transaction. Every statement is idempotent so reruns are safe.
func Migrate(ctx context.Context, db TxBeginner) error {
	names, err := fs.Glob(migrationFS, "migrations/*.sql")
	if err != nil {
		return fmt.Errorf("platform/db: list migrations: %w", err)
	}
	sort.Strings(names)
	return WithTx(ctx, db, func(tx pgx.Tx) error {
		for _, name := range names {
			stmt, err := migrationFS.ReadFile(name)
			if err != nil {
				return fmt.Errorf("platform/db: read %s: %w", name, err)
			}
			if _, err := tx.Exec(ctx, string(stmt)); err != nil {
				return fmt.Errorf("platform/db: apply %s: %w", name, err)
			}
		}
		return nil
	})
}
