package cli

import (
	"context"
	"fmt"
	"io"

	"golang.org/x/crypto/bcrypt"

	"github.com/odyssey-erp/odyssey-cms/internal/content"
	"github.com/odyssey-erp/odyssey-cms/internal/users"
)

// UserSeeder upserts accounts.
type UserSeeder interface {
	UpsertUser(ctx context.Context, user users.User, passwordHash string) error
}

// ContentSeeder creates items and reports table counts.
type ContentSeeder interface {
	Create(ctx context.Context, item content.Item) (content.Item, error)
	Counts(ctx context.Context) (content.Counts, error)
}

type seedAccount struct {
	user     users.User
	password string
}

var seedAccounts = []seedAccount{
	{users.User{Email: "admin@example.com", Name: "Admin User", Role: "admin", IsActive: true}, "admin123"},
	{users.User{Email: "editor@example.com", Name: "Editor User", Role: "editor", IsActive: true}, "editor123"},
	{users.User{Email: "viewer@example.com", Name: "Viewer User", Role: "viewer", IsActive: true}, "viewer123"},
}

var seedContent = []content.Item{
	{Title: "Public Article 1", Body: "This is public content", Author: "admin@example.com", Visibility: content.VisibilityPublic},
	{Title: "Protected Article 1", Body: "This is protected content", Author: "editor@example.com", Visibility: content.VisibilityPrivate},
	{Title: "Admin Article", Body: "This is admin content", Author: "admin@example.com", Visibility: content.VisibilityPrivate},
}

// SeedOptions configures the seed command.
type SeedOptions struct {
	Users   UserSeeder
	Content ContentSeeder
	Cost    int
	Stdout  io.Writer
	Stderr  io.Writer
}

// SeedCommand installs the demo accounts and, when the content table is
// empty, the demo articles. Accounts are reset on every run. It returns the
// process exit code.
func SeedCommand(ctx context.Context, opts SeedOptions) int {
	cost := opts.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	for _, account := range seedAccounts {
		hash, err := bcrypt.GenerateFromPassword([]byte(account.password), cost)
		if err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "seed: hash %s: %v\n", account.user.Email, err)
			return 1
		}
		if err := opts.Users.UpsertUser(ctx, account.user, string(hash)); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "seed: user %s: %v\n", account.user.Email, err)
			return 1
		}
		_, _ = fmt.Fprintf(opts.Stdout, "user %s (%s)\n", account.user.Email, account.user.Role)
	}

	counts, err := opts.Content.Counts(ctx)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "seed: count content: %v\n", err)
		return 1
	}
	if counts.Total > 0 {
		_, _ = fmt.Fprintf(opts.Stdout, "content present (%d items), skipped\n", counts.Total)
		return 0
	}
	for _, item := range seedContent {
		created, err := opts.Content.Create(ctx, item)
		if err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "seed: content %q: %v\n", item.Title, err)
			return 1
		}
		_, _ = fmt.Fprintf(opts.Stdout, "content #%d %q (%s)\n", created.ID, created.Title, created.Visibility)
	}
	return 0
}
