package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/RC13967/catalog-api/internal/catalog"
	"github.com/RC13967/catalog-api/internal/domain/product"
)

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.ListProducts(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	if len(products) == 0 {
		writeError(w, http.StatusNotFound, "There are no active products")
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeProductList(e, products) })
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.catalog.GetProduct(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			writeError(w, http.StatusNotFound, "No active products available")
			return
		}
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeProduct(e, p.Product, p.ImageSrc) })
}

func (h *Handler) filterProductsByDate(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseDateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	products, err := h.catalog.FilterProductsByDateRange(r.Context(), from, to)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if len(products) == 0 {
		writeError(w, http.StatusNotFound, "There are no products within the range")
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeProductList(e, products) })
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	fields, img, err := h.parseProductForm(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req := catalog.CreateProductRequest{
		Quantity: fields.Quantity,
		Image:    img,
	}
	if fields.Name != nil {
		req.Name = *fields.Name
	}
	if fields.Description != nil {
		req.Description = *fields.Description
	}
	if fields.CategoryID != nil {
		req.CategoryID = *fields.CategoryID
	}

	p, err := h.catalog.CreateProduct(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encodeProduct(e, *p, "") })
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	fields, img, err := h.parseProductForm(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	p, err := h.catalog.UpdateProduct(r.Context(), r.PathValue("id"), catalog.UpdateProductRequest{
		Name:        fields.Name,
		Description: fields.Description,
		CategoryID:  fields.CategoryID,
		Quantity:    fields.Quantity,
		IsActive:    fields.IsActive,
		Image:       img,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeProduct(e, *p, "") })
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.DeleteProduct(r.Context(), r.PathValue("id")); err != nil {
		respondError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Product deleted successfully")
}

// parseDateRange reads the {from_date, to_date} filter body. Bounds are
// accepted as RFC 3339 timestamps or plain dates.
func parseDateRange(r *http.Request) (from, to time.Time, err error) {
	var body struct {
		FromDate string `json:"from_date"`
		ToDate   string `json:"to_date"`
	}
	if err := decodeJSONBody(r, &body); err != nil {
		return time.Time{}, time.Time{}, err
	}

	from, err = parseDate(body.FromDate)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err = parseDate(body.ToDate)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return from, to, nil
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}
