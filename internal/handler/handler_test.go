package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RC13967/catalog-api/internal/catalog"
	"github.com/RC13967/catalog-api/internal/domain/attachment"
	"github.com/RC13967/catalog-api/internal/domain/category"
	"github.com/RC13967/catalog-api/internal/domain/product"
)

// --- In-memory repositories ---

type memCategoryRepo struct {
	byID map[string]*category.Category
}

func (m *memCategoryRepo) Create(_ context.Context, c *category.Category) error {
	cp := *c
	m.byID[c.ID] = &cp
	return nil
}

func (m *memCategoryRepo) GetByID(_ context.Context, id string) (*category.Category, error) {
	c, ok := m.byID[id]
	if !ok || !c.IsActive {
		return nil, category.ErrNotFound
	}
	return c, nil
}

func (m *memCategoryRepo) ListActive(_ context.Context) ([]category.Category, error) {
	var out []category.Category
	for _, c := range m.byID {
		if c.IsActive {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *memCategoryRepo) Exists(_ context.Context, id string) (bool, error) {
	_, ok := m.byID[id]
	return ok, nil
}

func (m *memCategoryRepo) NameTaken(_ context.Context, name, excludeID string) (bool, error) {
	for id, c := range m.byID {
		if id != excludeID && strings.EqualFold(c.Name, name) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memCategoryRepo) Update(_ context.Context, id string, upd category.Update) (*category.Category, error) {
	c, ok := m.byID[id]
	if !ok {
		return nil, category.ErrNotFound
	}
	if upd.Name != nil {
		c.Name = *upd.Name
	}
	if upd.Description != nil {
		c.Description = *upd.Description
	}
	if upd.IsActive != nil {
		c.IsActive = *upd.IsActive
	}
	c.UpdatedAt = upd.UpdatedAt
	return c, nil
}

func (m *memCategoryRepo) Delete(_ context.Context, id string) error {
	delete(m.byID, id)
	return nil
}

type memProductRepo struct {
	byID map[string]*product.Product
}

func (m *memProductRepo) Create(_ context.Context, p *product.Product) error {
	cp := *p
	m.byID[p.ID] = &cp
	return nil
}

func (m *memProductRepo) GetByID(_ context.Context, id string) (*product.Product, error) {
	p, ok := m.byID[id]
	if !ok || !p.IsActive {
		return nil, product.ErrNotFound
	}
	return p, nil
}

func (m *memProductRepo) ListActive(_ context.Context) ([]product.Product, error) {
	var out []product.Product
	for _, p := range m.byID {
		if p.IsActive {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *memProductRepo) ListByCategory(_ context.Context, categoryID string) ([]product.Product, error) {
	var out []product.Product
	for _, p := range m.byID {
		if p.CategoryID == categoryID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *memProductRepo) FilterByCreatedRange(_ context.Context, from, to time.Time) ([]product.Product, error) {
	var out []product.Product
	for _, p := range m.byID {
		if !p.CreatedAt.Before(from) && !p.CreatedAt.After(to) {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *memProductRepo) NameTaken(_ context.Context, name, excludeID string) (bool, error) {
	for id, p := range m.byID {
		if id != excludeID && strings.EqualFold(p.Name, name) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memProductRepo) Update(_ context.Context, id string, upd product.Update) (*product.Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	if upd.Name != nil {
		p.Name = *upd.Name
	}
	if upd.Description != nil {
		p.Description = *upd.Description
	}
	if upd.CategoryID != nil {
		p.CategoryID = *upd.CategoryID
	}
	if upd.ImageID != nil {
		p.ImageID = *upd.ImageID
	}
	if upd.Quantity != nil {
		p.Quantity = *upd.Quantity
	}
	if upd.IsActive != nil {
		p.IsActive = *upd.IsActive
	}
	p.UpdatedAt = upd.UpdatedAt
	return p, nil
}

func (m *memProductRepo) Delete(_ context.Context, id string) (*product.Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	delete(m.byID, id)
	return p, nil
}

func (m *memProductRepo) DeactivateByCategory(_ context.Context, categoryID string, at time.Time) (int64, error) {
	var n int64
	for _, p := range m.byID {
		if p.CategoryID == categoryID && p.IsActive {
			p.IsActive = false
			p.UpdatedAt = at
			n++
		}
	}
	return n, nil
}

func (m *memProductRepo) DeleteByCategory(_ context.Context, categoryID string) error {
	for id, p := range m.byID {
		if p.CategoryID == categoryID {
			delete(m.byID, id)
		}
	}
	return nil
}

type memAttachmentStore struct {
	blobs  map[string][]byte
	types  map[string]string
	nextID int
}

func (m *memAttachmentStore) Put(_ context.Context, _, contentType string, data []byte) (string, error) {
	m.nextID++
	id := fmt.Sprintf("att-%d", m.nextID)
	m.blobs[id] = data
	m.types[id] = contentType
	return id, nil
}

func (m *memAttachmentStore) Get(_ context.Context, id string) (string, []byte, error) {
	data, ok := m.blobs[id]
	if !ok {
		return "", nil, attachment.ErrNotFound
	}
	return m.types[id], data, nil
}

func (m *memAttachmentStore) Delete(_ context.Context, id string) error {
	if _, ok := m.blobs[id]; !ok {
		return attachment.ErrNotFound
	}
	delete(m.blobs, id)
	delete(m.types, id)
	return nil
}

// --- Harness ---

const testMaxImageBytes = 1 << 10

type fixture struct {
	mux         *http.ServeMux
	categories  *memCategoryRepo
	products    *memProductRepo
	attachments *memAttachmentStore
}

func newFixture() *fixture {
	cats := &memCategoryRepo{byID: make(map[string]*category.Category)}
	prods := &memProductRepo{byID: make(map[string]*product.Product)}
	atts := &memAttachmentStore{blobs: make(map[string][]byte), types: make(map[string]string)}

	svc := catalog.NewService(cats, prods, atts, catalog.ImagePolicy{
		AllowedExtensions: []string{".jpeg", ".jpg", ".png"},
		MaxBytes:          testMaxImageBytes,
	})

	return &fixture{
		mux:         NewHandler(svc, testMaxImageBytes).Routes(),
		categories:  cats,
		products:    prods,
		attachments: atts,
	}
}

func (f *fixture) do(t *testing.T, method, path string, body io.Reader, contentType string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	f.mux.ServeHTTP(w, req)

	var decoded map[string]any
	if raw := w.Body.Bytes(); len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return w, decoded
}

func (f *fixture) doJSON(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	raw, err := json.Marshal(body)
	require.NoError(t, err)
	return f.do(t, method, path, bytes.NewReader(raw), "application/json")
}

// productForm builds a multipart body with flat form values plus an optional
// image file part.
func productForm(t *testing.T, fields map[string]string, filename string, image []byte) (io.Reader, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("image", filename)
		require.NoError(t, err)
		_, err = fw.Write(image)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func (f *fixture) seedCategory(t *testing.T, name string) string {
	t.Helper()

	w, body := f.doJSON(t, http.MethodPost, "/v1/categories", map[string]string{
		"name":        name,
		"description": name + " things",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	return body["id"].(string)
}

func (f *fixture) seedProduct(t *testing.T, name, categoryID string) string {
	t.Helper()

	form, ct := productForm(t, map[string]string{
		"name":        name,
		"description": name + " description",
		"category_id": categoryID,
		"quantity":    "5",
	}, "photo.jpg", []byte("image-bytes"))
	w, body := f.do(t, http.MethodPost, "/v1/products", form, ct)
	require.Equal(t, http.StatusCreated, w.Code)
	return body["id"].(string)
}

// --- Category endpoint tests ---

func TestListCategories_EmptyIs404(t *testing.T) {
	f := newFixture()

	w, body := f.do(t, http.MethodGet, "/v1/categories", nil, "")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "There are no active categories", body["error"])
}

func TestCreateCategory_Success(t *testing.T) {
	f := newFixture()

	w, body := f.doJSON(t, http.MethodPost, "/v1/categories", map[string]string{
		"name":        "Dairy",
		"description": "milk things",
	})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, body["id"])
	assert.Equal(t, "Dairy", body["name"])
	assert.Equal(t, "milk things", body["description"])
	assert.Equal(t, true, body["is_active"])
	assert.NotEmpty(t, body["created_at"])
}

func TestCreateCategory_MissingFields(t *testing.T) {
	f := newFixture()

	w, body := f.doJSON(t, http.MethodPost, "/v1/categories", map[string]string{"name": "Dairy"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Missing mandatory fields: description", body["error"])
}

func TestCreateCategory_DuplicateName(t *testing.T) {
	f := newFixture()
	f.seedCategory(t, "Dairy")

	w, body := f.doJSON(t, http.MethodPost, "/v1/categories", map[string]string{
		"name":        "dairy",
		"description": "lowercase duplicate",
	})

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Category with this name already exists", body["error"])
}

func TestGetCategory_NotFound(t *testing.T) {
	f := newFixture()

	w, body := f.do(t, http.MethodGet, "/v1/categories/nope", nil, "")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "No active categories available", body["error"])
}

func TestUpdateCategory_DeactivationHidesProducts(t *testing.T) {
	f := newFixture()
	catID := f.seedCategory(t, "Dairy")
	prodID := f.seedProduct(t, "Milk", catID)

	w, body := f.doJSON(t, http.MethodPut, "/v1/categories/"+catID, map[string]any{
		"is_active": false,
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, body["is_active"])

	w, body = f.do(t, http.MethodGet, "/v1/products/"+prodID, nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "No active products available", body["error"])
}

func TestDeleteCategory_CascadeAndMessage(t *testing.T) {
	f := newFixture()
	catID := f.seedCategory(t, "Dairy")
	f.seedProduct(t, "Milk", catID)

	w, body := f.do(t, http.MethodDelete, "/v1/categories/"+catID, nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Category deleted successfully", body["message"])

	assert.Empty(t, f.products.byID, "cascade removes the category's products")
	assert.Empty(t, f.attachments.blobs, "cascade removes the products' attachments")
}

// --- Product endpoint tests ---

func TestListProducts_EmptyIs404(t *testing.T) {
	f := newFixture()

	w, body := f.do(t, http.MethodGet, "/v1/products", nil, "")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "There are no active products", body["error"])
}

func TestCreateProduct_FlatFormFields(t *testing.T) {
	f := newFixture()
	catID := f.seedCategory(t, "Dairy")

	form, ct := productForm(t, map[string]string{
		"name":        "Milk",
		"description": "whole milk",
		"category_id": catID,
		"quantity":    "10",
	}, "photo.jpg", []byte("image-bytes"))
	w, body := f.do(t, http.MethodPost, "/v1/products", form, ct)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "Milk", body["name"])
	assert.Equal(t, catID, body["category_id"])
	assert.Equal(t, float64(10), body["quantity"])
	assert.NotEmpty(t, body["image_id"])
	assert.NotContains(t, body, "image_src", "create responses do not inline the image")
}

func TestCreateProduct_JSONDataField(t *testing.T) {
	f := newFixture()
	catID := f.seedCategory(t, "Dairy")

	data, err := json.Marshal(map[string]any{
		"name":        "Cheese",
		"description": "cheddar",
		"category_id": catID,
		"quantity":    3,
	})
	require.NoError(t, err)

	form, ct := productForm(t, map[string]string{"data": string(data)}, "photo.png", []byte("png-bytes"))
	w, body := f.do(t, http.MethodPost, "/v1/products", form, ct)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "Cheese", body["name"])
	assert.Equal(t, float64(3), body["quantity"])
}

func TestCreateProduct_MissingImage(t *testing.T) {
	f := newFixture()
	catID := f.seedCategory(t, "Dairy")

	form, ct := productForm(t, map[string]string{
		"name":        "Milk",
		"description": "whole milk",
		"category_id": catID,
		"quantity":    "10",
	}, "", nil)
	w, body := f.do(t, http.MethodPost, "/v1/products", form, ct)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Missing mandatory fields: Image", body["error"])
}

func TestCreateProduct_InvalidImageExtension(t *testing.T) {
	f := newFixture()
	catID := f.seedCategory(t, "Dairy")

	form, ct := productForm(t, map[string]string{
		"name":        "Milk",
		"description": "whole milk",
		"category_id": catID,
		"quantity":    "10",
	}, "notes.pdf", []byte("pdf-bytes"))
	w, body := f.do(t, http.MethodPost, "/v1/products", form, ct)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid image file. Only image files (.jpeg, .jpg, .png) are allowed.", body["error"])
}

func TestCreateProduct_ImageTooLarge(t *testing.T) {
	f := newFixture()
	catID := f.seedCategory(t, "Dairy")

	form, ct := productForm(t, map[string]string{
		"name":        "Milk",
		"description": "whole milk",
		"category_id": catID,
		"quantity":    "10",
	}, "photo.jpg", make([]byte, testMaxImageBytes+1))
	w, body := f.do(t, http.MethodPost, "/v1/products", form, ct)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t,
		fmt.Sprintf("Only images of size less than %d bytes are allowed.", testMaxImageBytes),
		body["error"])
}

func TestCreateProduct_UnknownCategory(t *testing.T) {
	f := newFixture()

	form, ct := productForm(t, map[string]string{
		"name":        "Milk",
		"description": "whole milk",
		"category_id": "nope",
		"quantity":    "10",
	}, "photo.jpg", []byte("image-bytes"))
	w, body := f.do(t, http.MethodPost, "/v1/products", form, ct)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Product can't be saved in this category", body["error"])
}

func TestCreateProduct_DuplicateName(t *testing.T) {
	f := newFixture()
	catID := f.seedCategory(t, "Dairy")
	f.seedProduct(t, "Milk", catID)

	form, ct := productForm(t, map[string]string{
		"name":        "MILK",
		"description": "duplicate",
		"category_id": catID,
		"quantity":    "1",
	}, "photo.jpg", []byte("image-bytes"))
	w, body := f.do(t, http.MethodPost, "/v1/products", form, ct)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Product with this name already exists", body["error"])
}

func TestGetProduct_InlinesImage(t *testing.T) {
	f := newFixture()
	catID := f.seedCategory(t, "Dairy")
	prodID := f.seedProduct(t, "Milk", catID)

	w, body := f.do(t, http.MethodGet, "/v1/products/"+prodID, nil, "")

	assert.Equal(t, http.StatusOK, w.Code)
	src, _ := body["image_src"].(string)
	assert.True(t, strings.HasPrefix(src, "data:"), "image_src should be a data URI, got %q", src)
	assert.Contains(t, src, ";base64,")
}

func TestGetProduct_NotFound(t *testing.T) {
	f := newFixture()

	w, body := f.do(t, http.MethodGet, "/v1/products/nope", nil, "")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "No active products available", body["error"])
}

func TestUpdateProduct_PartialFields(t *testing.T) {
	f := newFixture()
	catID := f.seedCategory(t, "Dairy")
	prodID := f.seedProduct(t, "Milk", catID)

	form, ct := productForm(t, map[string]string{"quantity": "42"}, "", nil)
	w, body := f.do(t, http.MethodPatch, "/v1/products/"+prodID, form, ct)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(42), body["quantity"])
	assert.Equal(t, "Milk", body["name"], "untouched fields survive a partial update")
}

func TestUpdateProduct_NotFound(t *testing.T) {
	f := newFixture()

	form, ct := productForm(t, map[string]string{"quantity": "1"}, "", nil)
	w, body := f.do(t, http.MethodPut, "/v1/products/nope", form, ct)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Product not found", body["error"])
}

func TestDeleteProduct_Success(t *testing.T) {
	f := newFixture()
	catID := f.seedCategory(t, "Dairy")
	prodID := f.seedProduct(t, "Milk", catID)

	w, body := f.do(t, http.MethodDelete, "/v1/products/"+prodID, nil, "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Product deleted successfully", body["message"])
	assert.Empty(t, f.attachments.blobs, "the product's attachment goes with it")
}

func TestDeleteProduct_NotFound(t *testing.T) {
	f := newFixture()

	w, body := f.do(t, http.MethodDelete, "/v1/products/nope", nil, "")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Product not found", body["error"])
}

// --- Date filter tests ---

func TestFilterProductsByDate_Match(t *testing.T) {
	f := newFixture()
	catID := f.seedCategory(t, "Dairy")
	f.seedProduct(t, "Milk", catID)

	today := time.Now().UTC().Format("2006-01-02")
	tomorrow := time.Now().UTC().Add(24 * time.Hour).Format("2006-01-02")
	w, _ := f.doJSON(t, http.MethodPost, "/v1/products/dateFilter", map[string]string{
		"from_date": today,
		"to_date":   tomorrow,
	})

	assert.Equal(t, http.StatusOK, w.Code)

	var list []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list, 1)
}

func TestFilterProductsByDate_EmptyRange(t *testing.T) {
	f := newFixture()
	catID := f.seedCategory(t, "Dairy")
	f.seedProduct(t, "Milk", catID)

	w, body := f.doJSON(t, http.MethodPost, "/v1/products/dateFilter", map[string]string{
		"from_date": "2000-01-01",
		"to_date":   "2000-12-31",
	})

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "There are no products within the range", body["error"])
}

func TestFilterProductsByDate_InvalidBody(t *testing.T) {
	f := newFixture()

	w, body := f.doJSON(t, http.MethodPost, "/v1/products/dateFilter", map[string]string{
		"from_date": "not-a-date",
		"to_date":   "2000-12-31",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid request body", body["error"])
}

// --- Routing tests ---

func TestUnknownRouteIsJSON404(t *testing.T) {
	f := newFixture()

	w, body := f.do(t, http.MethodGet, "/v1/unknown", nil, "")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Route not found", body["error"])
}
