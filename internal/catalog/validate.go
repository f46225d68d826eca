package catalog

import (
	"path/filepath"
	"strings"
)

// ImagePolicy holds the externally configured constraints on product image
// uploads. Both values come from configuration; nothing here is hardcoded.
type ImagePolicy struct {
	// AllowedExtensions is the allow-list of file extensions, dot included
	// (".jpeg", ".jpg", ".png"). Matching is case-insensitive.
	AllowedExtensions []string

	// MaxBytes is the inclusive upper bound on the payload size.
	MaxBytes int64
}

// Validate checks the upload's extension and size against the policy.
func (p ImagePolicy) Validate(filename string, size int64) error {
	ext := strings.ToLower(filepath.Ext(filename))
	ok := false
	for _, allowed := range p.AllowedExtensions {
		if ext == strings.ToLower(allowed) {
			ok = true
			break
		}
	}
	if !ok {
		return &InvalidImageError{Filename: filename, Allowed: p.AllowedExtensions}
	}
	if size > p.MaxBytes {
		return &ImageTooLargeError{Size: size, MaxBytes: p.MaxBytes}
	}
	return nil
}

// ImageUpload is an in-memory image file received with a product request.
type ImageUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// CreateCategoryRequest holds the input for creating a category.
type CreateCategoryRequest struct {
	Name        string
	Description string
}

func (r CreateCategoryRequest) missingFields() []string {
	var missing []string
	if r.Name == "" {
		missing = append(missing, "name")
	}
	if r.Description == "" {
		missing = append(missing, "description")
	}
	return missing
}

// UpdateCategoryRequest holds a partial category update. Nil fields are not
// touched.
type UpdateCategoryRequest struct {
	Name        *string
	Description *string
	IsActive    *bool
}

// CreateProductRequest holds the input for creating a product. Quantity is a
// pointer so an explicit zero counts as present and only absence is reported
// as a missing field.
type CreateProductRequest struct {
	Name        string
	Description string
	CategoryID  string
	Quantity    *int64
	Image       *ImageUpload
}

func (r CreateProductRequest) missingFields() []string {
	var missing []string
	if r.Name == "" {
		missing = append(missing, "name")
	}
	if r.Description == "" {
		missing = append(missing, "description")
	}
	if r.Quantity == nil {
		missing = append(missing, "quantity")
	}
	// The image file is mandatory on create and is reported alongside the
	// other fields in one aggregated error, not as a separate failure.
	if r.Image == nil {
		missing = append(missing, "Image")
	}
	return missing
}

// UpdateProductRequest holds a partial product update. Nil fields are not
// touched; a non-nil Image replaces the product's image reference.
type UpdateProductRequest struct {
	Name        *string
	Description *string
	CategoryID  *string
	Quantity    *int64
	IsActive    *bool
	Image       *ImageUpload
}
