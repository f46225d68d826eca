package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/jx"

	"github.com/RC13967/catalog-api/internal/catalog"
)

// categoryPayload is the JSON body of category writes. Pointers distinguish
// an absent field from an explicit zero value for partial updates.
type categoryPayload struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"is_active"`
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.ListCategories(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	if len(categories) == 0 {
		writeError(w, http.StatusNotFound, "There are no active categories")
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for _, c := range categories {
			encodeCategory(e, c)
		}
		e.ArrEnd()
	})
}

func (h *Handler) getCategory(w http.ResponseWriter, r *http.Request) {
	c, err := h.catalog.GetCategory(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeCategory(e, *c) })
}

func (h *Handler) createCategory(w http.ResponseWriter, r *http.Request) {
	var body categoryPayload
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req := catalog.CreateCategoryRequest{}
	if body.Name != nil {
		req.Name = *body.Name
	}
	if body.Description != nil {
		req.Description = *body.Description
	}

	c, err := h.catalog.CreateCategory(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encodeCategory(e, *c) })
}

func (h *Handler) updateCategory(w http.ResponseWriter, r *http.Request) {
	var body categoryPayload
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	c, err := h.catalog.UpdateCategory(r.Context(), r.PathValue("id"), catalog.UpdateCategoryRequest{
		Name:        body.Name,
		Description: body.Description,
		IsActive:    body.IsActive,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeCategory(e, *c) })
}

func (h *Handler) deleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.DeleteCategory(r.Context(), r.PathValue("id")); err != nil {
		respondError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Category deleted successfully")
}
