// Package product defines the product entity and its persistence contract.
package product

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when a requested product does not exist or, on the
// read paths, exists but is inactive.
var ErrNotFound = errors.New("product not found")

// Product is a catalog item. CategoryID references a category; the reference
// is validated by the service at write time, not by the database. ImageID
// references an attachment and is empty when the product has no image.
type Product struct {
	ID          string
	Name        string
	Description string
	CategoryID  string
	ImageID     string
	Quantity    int64
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Update carries a partial update. Nil fields are left untouched.
type Update struct {
	Name        *string
	Description *string
	CategoryID  *string
	ImageID     *string
	Quantity    *int64
	IsActive    *bool
	UpdatedAt   time.Time
}

// Repository defines persistence operations for products.
type Repository interface {
	Create(ctx context.Context, p *Product) error

	// GetByID returns an active product. An existing but inactive product is
	// reported as ErrNotFound.
	GetByID(ctx context.Context, id string) (*Product, error)

	// ListActive returns active products, newest first.
	ListActive(ctx context.Context) ([]Product, error)

	// ListByCategory returns every product referencing the category, active or
	// not. Used by the delete cascade to collect attachment references.
	ListByCategory(ctx context.Context, categoryID string) ([]Product, error)

	// FilterByCreatedRange returns products created within [from, to], both
	// bounds inclusive, newest first.
	FilterByCreatedRange(ctx context.Context, from, to time.Time) ([]Product, error)

	// NameTaken reports whether any product other than excludeID already uses
	// the name, compared case-insensitively. Pass an empty excludeID on create.
	NameTaken(ctx context.Context, name, excludeID string) (bool, error)

	// Update applies the non-nil fields and returns the updated record,
	// regardless of its active flag. Returns ErrNotFound for an unknown id.
	Update(ctx context.Context, id string, upd Update) (*Product, error)

	// Delete removes the product row and returns the removed record, so the
	// caller can clean up its attachment. Returns ErrNotFound for an unknown id.
	Delete(ctx context.Context, id string) (*Product, error)

	// DeactivateByCategory flips is_active to false and refreshes updated_at on
	// every product referencing the category. Returns the number of rows
	// touched.
	DeactivateByCategory(ctx context.Context, categoryID string, at time.Time) (int64, error)

	// DeleteByCategory removes every product referencing the category.
	DeleteByCategory(ctx context.Context, categoryID string) error
}
