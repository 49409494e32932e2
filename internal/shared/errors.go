package shared

import (
	"fmt"

	"github.com/odyssey-erp/odyssey-cms/internal/platform/httpx"
)

var (
	// ErrNotFound indicates resource not found, or not visible to the caller.
	ErrNotFound = httpx.ErrNotFound
	// ErrForbidden indicates the principal may see but not act on a resource.
	ErrForbidden = httpx.ErrForbidden
	// ErrValidation indicates malformed input.
	ErrValidation = httpx.ErrValidation
	// ErrDuplicate indicates a uniqueness violation.
	ErrDuplicate = httpx.ErrDuplicate
	// ErrUnavailable indicates a backing store could not be reached.
	ErrUnavailable = httpx.ErrUnavailable
	// ErrInvalidCredentials indicates login failure without naming the cause.
	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", httpx.ErrUnauthorized)
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = fmt.Errorf("%w: csrf token missing", httpx.ErrForbidden)
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = fmt.Errorf("%w: csrf token mismatch", httpx.ErrForbidden)
)

// Unavailable wraps a store failure so it is never mistaken for a denial.
func Unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, ErrUnavailable, err)
}
