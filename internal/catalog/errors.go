package catalog

import (
	"fmt"
	"strings"

	"github.com/go-faster/errors"
)

// Sentinel errors for cross-entity checks.
var (
	// ErrCategoryRef indicates a product write referenced a category id that
	// does not resolve to an existing category.
	ErrCategoryRef = errors.New("category reference does not resolve")

	// ErrImageNotFound indicates a product carries an image reference whose
	// attachment is missing from the store.
	ErrImageNotFound = errors.New("image not found")
)

// MissingFieldsError aggregates every absent mandatory field of a create
// request into a single error instead of failing on the first one.
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return "missing mandatory fields: " + strings.Join(e.Fields, ", ")
}

// ConflictError indicates a case-insensitive name collision with an existing
// record, active or not.
type ConflictError struct {
	Entity string // "category" or "product"
	Name   string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s with name %q already exists", e.Entity, e.Name)
}

// InvalidImageError indicates an upload with a file extension outside the
// configured allow-list.
type InvalidImageError struct {
	Filename string
	Allowed  []string
}

func (e *InvalidImageError) Error() string {
	return fmt.Sprintf("invalid image file %q: allowed extensions are %s",
		e.Filename, strings.Join(e.Allowed, ", "))
}

// ImageTooLargeError indicates an upload exceeding the configured size limit.
type ImageTooLargeError struct {
	Size     int64
	MaxBytes int64
}

func (e *ImageTooLargeError) Error() string {
	return fmt.Sprintf("image of %d bytes exceeds the %d byte limit", e.Size, e.MaxBytes)
}
