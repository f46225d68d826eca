// Package category defines the category entity and its persistence contract.
package category

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when a requested category does not exist or, on the
// read paths, exists but is inactive.
var ErrNotFound = errors.New("category not found")

// Category groups products. Deactivating a category deactivates its products;
// deleting it removes them along with their image attachments.
type Category struct {
	ID          string
	Name        string
	Description string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Update carries a partial update. Nil fields are left untouched.
type Update struct {
	Name        *string
	Description *string
	IsActive    *bool
	UpdatedAt   time.Time
}

// Repository defines persistence operations for categories.
type Repository interface {
	Create(ctx context.Context, c *Category) error

	// GetByID returns an active category. An existing but inactive category is
	// reported as ErrNotFound.
	GetByID(ctx context.Context, id string) (*Category, error)

	// ListActive returns active categories, newest first.
	ListActive(ctx context.Context) ([]Category, error)

	// Exists reports whether the id exists at all, active or not. Products may
	// only be created in categories that exist.
	Exists(ctx context.Context, id string) (bool, error)

	// NameTaken reports whether any category other than excludeID already uses
	// the name, compared case-insensitively. Pass an empty excludeID on create.
	NameTaken(ctx context.Context, name, excludeID string) (bool, error)

	// Update applies the non-nil fields and returns the updated record,
	// regardless of its active flag. Returns ErrNotFound for an unknown id.
	Update(ctx context.Context, id string, upd Update) (*Category, error)

	// Delete removes the category row. Unknown ids are not an error; the
	// cascade paths decide how to report them.
	Delete(ctx context.Context, id string) error
}
