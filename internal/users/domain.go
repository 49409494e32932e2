package users

import "time"

// User represents a user account for management. Password hashes never
// leave the auth package.
type User struct {
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UpdateInput changes a user's display name or role. The identifier is
// immutable.
type UpdateInput struct {
	Name *string `json:"name" validate:"omitnil,min=1,max=100"`
	Role *string `json:"role"`
}

// Empty reports whether the patch changes nothing.
func (u UpdateInput) Empty() bool {
	return u.Name == nil && u.Role == nil
}
