package content

import (
	"time"

	"github.com/odyssey-erp/odyssey-cms/internal/rbac"
)

// Visibility controls default readability of an item.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// Item is a piece of managed content. Author never changes after creation.
type Item struct {
	ID         int64      `json:"id"`
	Title      string     `json:"title"`
	Body       string     `json:"content"`
	Author     string     `json:"author"`
	Visibility Visibility `json:"visibility"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Public reports whether the item is readable by every principal.
func (i Item) Public() bool {
	return i.Visibility == VisibilityPublic
}

// Resource exposes the ownership metadata used for authorization.
func (i Item) Resource() rbac.Resource {
	return rbac.Resource{Author: i.Author, Public: i.Public()}
}

// CreateInput carries the fields a caller may set on a new item.
type CreateInput struct {
	Title      string `json:"title" validate:"required,max=200"`
	Body       string `json:"content" validate:"max=20000"`
	Visibility string `json:"visibility" validate:"omitempty,oneof=public private"`
}

// UpdateInput is a partial update; nil fields keep their value.
type UpdateInput struct {
	Title      *string `json:"title" validate:"omitnil,min=1,max=200"`
	Body       *string `json:"content" validate:"omitempty,max=20000"`
	Visibility *string `json:"visibility" validate:"omitempty,oneof=public private"`
}

// Empty reports whether the patch changes nothing.
func (u UpdateInput) Empty() bool {
	return u.Title == nil && u.Body == nil && u.Visibility == nil
}

// Fields lists the names of the fields present in the patch.
func (u UpdateInput) Fields() []string {
	var fields []string
	if u.Title != nil {
		fields = append(fields, "title")
	}
	if u.Body != nil {
		fields = append(fields, "content")
	}
	if u.Visibility != nil {
		fields = append(fields, "visibility")
	}
	return fields
}

// Apply returns item with the patch applied.
func (u UpdateInput) Apply(item Item) Item {
	if u.Title != nil {
		item.Title = *u.Title
	}
	if u.Body != nil {
		item.Body = *u.Body
	}
	if u.Visibility != nil {
		item.Visibility = Visibility(*u.Visibility)
	}
	return item
}

// Counts summarises the content table.
type Counts struct {
	Total   int `json:"total_content"`
	Public  int `json:"public_content"`
	Private int `json:"private_content"`
}

// Stats is the administrator overview.
type Stats struct {
	TotalUsers int `json:"total_users"`
	Counts
}
