// Package handler maps the REST surface onto the catalog service. Handlers
// normalize the wire shapes (JSON bodies, multipart forms with an optional
// JSON-encoded data sub-field) into typed requests before the service sees
// them, and map service errors back to status codes and message bodies.
package handler

import (
	"net/http"

	"github.com/RC13967/catalog-api/internal/catalog"
)

// Handler serves the /v1 catalog routes.
type Handler struct {
	catalog       *catalog.Service
	maxImageBytes int64
}

// NewHandler constructs a Handler. maxImageBytes bounds multipart buffering;
// it should match the configured image size limit.
func NewHandler(svc *catalog.Service, maxImageBytes int64) *Handler {
	return &Handler{
		catalog:       svc,
		maxImageBytes: maxImageBytes,
	}
}

// Routes returns the route table. Unknown paths get the JSON 404 of last
// resort instead of the stdlib plain-text one.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/categories", h.listCategories)
	mux.HandleFunc("GET /v1/categories/{id}", h.getCategory)
	mux.HandleFunc("POST /v1/categories", h.createCategory)
	mux.HandleFunc("PUT /v1/categories/{id}", h.updateCategory)
	mux.HandleFunc("PATCH /v1/categories/{id}", h.updateCategory)
	mux.HandleFunc("DELETE /v1/categories/{id}", h.deleteCategory)

	mux.HandleFunc("GET /v1/products", h.listProducts)
	mux.HandleFunc("GET /v1/products/{id}", h.getProduct)
	mux.HandleFunc("POST /v1/products/dateFilter", h.filterProductsByDate)
	mux.HandleFunc("POST /v1/products", h.createProduct)
	mux.HandleFunc("PUT /v1/products/{id}", h.updateProduct)
	mux.HandleFunc("PATCH /v1/products/{id}", h.updateProduct)
	mux.HandleFunc("DELETE /v1/products/{id}", h.deleteProduct)

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Route not found")
	})

	return mux
}
