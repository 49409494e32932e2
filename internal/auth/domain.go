package auth

import "time"

// User is a credential-store record for a principal.
type User struct {
	Email        string
	Name         string
	Role         string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
