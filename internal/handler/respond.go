package handler

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/RC13967/catalog-api/internal/catalog"
	"github.com/RC13967/catalog-api/internal/domain/category"
	"github.com/RC13967/catalog-api/internal/domain/product"
)

// writeJSON streams a jx-encoded body with the given status.
func writeJSON(w http.ResponseWriter, status int, encode func(e *jx.Encoder)) {
	e := &jx.Encoder{}
	encode(e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// writeError emits the single-message failure body every error path uses.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("error")
		e.Str(msg)
		e.ObjEnd()
	})
}

// writeMessage emits a confirmation body for delete responses.
func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("message")
		e.Str(msg)
		e.ObjEnd()
	})
}

func encodeTime(e *jx.Encoder, t time.Time) {
	e.Str(t.UTC().Format(time.RFC3339Nano))
}

func encodeCategory(e *jx.Encoder, c category.Category) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(c.ID)
	e.FieldStart("name")
	e.Str(c.Name)
	e.FieldStart("description")
	e.Str(c.Description)
	e.FieldStart("is_active")
	e.Bool(c.IsActive)
	e.FieldStart("created_at")
	encodeTime(e, c.CreatedAt)
	e.FieldStart("updated_at")
	encodeTime(e, c.UpdatedAt)
	e.ObjEnd()
}

// encodeProduct writes a product record. imageSrc is the inlined data URI;
// the field is omitted when empty (create/update responses and products
// without an image).
func encodeProduct(e *jx.Encoder, p product.Product, imageSrc string) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(p.ID)
	e.FieldStart("name")
	e.Str(p.Name)
	e.FieldStart("description")
	e.Str(p.Description)
	e.FieldStart("category_id")
	e.Str(p.CategoryID)
	if p.ImageID != "" {
		e.FieldStart("image_id")
		e.Str(p.ImageID)
	}
	e.FieldStart("quantity")
	e.Int64(p.Quantity)
	e.FieldStart("is_active")
	e.Bool(p.IsActive)
	e.FieldStart("created_at")
	encodeTime(e, p.CreatedAt)
	e.FieldStart("updated_at")
	encodeTime(e, p.UpdatedAt)
	if imageSrc != "" {
		e.FieldStart("image_src")
		e.Str(imageSrc)
	}
	e.ObjEnd()
}

func encodeProductList(e *jx.Encoder, products []catalog.ProductWithImage) {
	e.ArrStart()
	for _, p := range products {
		encodeProduct(e, p.Product, p.ImageSrc)
	}
	e.ArrEnd()
}

// respondError maps service errors to the wire taxonomy: validation 400,
// duplicate name 409, unresolved references and missing records 404,
// everything else a logged 500.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		missing  *catalog.MissingFieldsError
		conflict *catalog.ConflictError
		badImage *catalog.InvalidImageError
		tooLarge *catalog.ImageTooLargeError
	)

	switch {
	case errors.As(err, &missing):
		writeError(w, http.StatusBadRequest,
			"Missing mandatory fields: "+strings.Join(missing.Fields, ", "))

	case errors.As(err, &badImage):
		writeError(w, http.StatusBadRequest, fmt.Sprintf(
			"Invalid image file. Only image files (%s) are allowed.",
			strings.Join(badImage.Allowed, ", ")))

	case errors.As(err, &tooLarge):
		writeError(w, http.StatusBadRequest, fmt.Sprintf(
			"Only images of size less than %d bytes are allowed.", tooLarge.MaxBytes))

	case errors.As(err, &conflict):
		if conflict.Entity == "category" {
			writeError(w, http.StatusConflict, "Category with this name already exists")
		} else {
			writeError(w, http.StatusConflict, "Product with this name already exists")
		}

	case errors.Is(err, catalog.ErrCategoryRef):
		writeError(w, http.StatusNotFound, "Product can't be saved in this category")

	case errors.Is(err, catalog.ErrImageNotFound):
		writeError(w, http.StatusNotFound, "Image not found")

	case errors.Is(err, category.ErrNotFound):
		writeError(w, http.StatusNotFound, "No active categories available")

	case errors.Is(err, product.ErrNotFound):
		writeError(w, http.StatusNotFound, "Product not found")

	default:
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Something went wrong")
	}
}
