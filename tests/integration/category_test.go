//go:build integration

package integration

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCategoryLifecycle walks a category through create, duplicate rejection,
// deactivation with its product cascade, deletion, and the resulting 404s.
func TestCategoryLifecycle(t *testing.T) {
	resetDB(t)

	// Empty catalog reads as 404.
	resp, body := doJSON(t, http.MethodGet, "/v1/categories", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "There are no active categories", body["error"])

	// Create.
	catID := createCategory(t, "Dairy", "milk, cheese and eggs")

	resp, body = doJSON(t, http.MethodGet, "/v1/categories/"+catID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Dairy", body["name"])
	assert.Equal(t, true, body["is_active"])

	// Duplicate name, case-insensitive.
	resp, body = doJSON(t, http.MethodPost, "/v1/categories", map[string]string{
		"name":        "dAiRy",
		"description": "duplicate",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "Category with this name already exists", body["error"])

	// Products in the category.
	prodID := createProduct(t, "Milk", catID, 10, []byte("milk-image-bytes"))

	// Deactivation cascades to the product.
	resp, body = doJSON(t, http.MethodPut, "/v1/categories/"+catID, map[string]any{
		"is_active": false,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["is_active"])

	resp, body = doJSON(t, http.MethodGet, "/v1/products/"+prodID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "No active products available", body["error"])

	resp, body = doJSON(t, http.MethodGet, "/v1/categories/"+catID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Delete removes the category and its products.
	resp, body = doJSON(t, http.MethodDelete, "/v1/categories/"+catID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Category deleted successfully", body["message"])

	var productRows, attachmentRows int
	require.NoError(t, pool.QueryRow(t.Context(),
		`SELECT COUNT(*) FROM products`).Scan(&productRows))
	require.NoError(t, pool.QueryRow(t.Context(),
		`SELECT COUNT(*) FROM attachments`).Scan(&attachmentRows))
	assert.Zero(t, productRows, "cascade removes the category's products")
	assert.Zero(t, attachmentRows, "cascade removes the products' attachments")
}

func TestCategoryPartialUpdate(t *testing.T) {
	resetDB(t)

	catID := createCategory(t, "Bakery", "baked goods")

	resp, body := doJSON(t, http.MethodPatch, "/v1/categories/"+catID, map[string]string{
		"description": "fresh baked goods",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Bakery", body["name"], "untouched fields survive")
	assert.Equal(t, "fresh baked goods", body["description"])
}

func TestCategoryReactivationDoesNotCascade(t *testing.T) {
	resetDB(t)

	catID := createCategory(t, "Dairy", "milk things")
	prodID := createProduct(t, "Milk", catID, 10, []byte("img"))

	resp, _ := doJSON(t, http.MethodPut, "/v1/categories/"+catID, map[string]any{"is_active": false})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPut, "/v1/categories/"+catID, map[string]any{"is_active": true})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// The category is visible again, the product stays hidden.
	resp, _ = doJSON(t, http.MethodGet, "/v1/categories/"+catID, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodGet, "/v1/products/"+prodID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCategoryMalformedIDReadsAsNotFound(t *testing.T) {
	resetDB(t)

	resp, body := doJSON(t, http.MethodGet, "/v1/categories/not-a-uuid", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "No active categories available", body["error"])
}
