package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-faster/errors"

	"github.com/RC13967/catalog-api/internal/catalog"
)

// multipartOverhead is extra form memory beyond the image payload for the
// metadata fields.
const multipartOverhead = 1 << 20

// productPayload is the normalized field set of a product write. Clients send
// it either as flat form values or as a JSON object in the "data" form field;
// both shapes collapse into this one struct here, at the boundary, so the
// service never branches on the wire shape.
type productPayload struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	CategoryID  *string `json:"category_id"`
	Quantity    *int64  `json:"quantity"`
	IsActive    *bool   `json:"is_active"`
}

// parseProductForm reads a multipart product request: the optional "image"
// file part plus fields in either supported shape.
//
// The file is read one byte past the configured limit so the service's size
// check sees an over-limit payload as over-limit rather than silently
// truncated.
func (h *Handler) parseProductForm(r *http.Request) (productPayload, *catalog.ImageUpload, error) {
	var fields productPayload

	if err := r.ParseMultipartForm(h.maxImageBytes + multipartOverhead); err != nil {
		return fields, nil, errors.Wrap(err, "parse multipart form")
	}

	var img *catalog.ImageUpload
	file, header, err := r.FormFile("image")
	switch {
	case err == nil:
		data, err := io.ReadAll(io.LimitReader(file, h.maxImageBytes+1))
		_ = file.Close()
		if err != nil {
			return fields, nil, errors.Wrap(err, "read image")
		}
		img = &catalog.ImageUpload{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Data:        data,
		}
	case errors.Is(err, http.ErrMissingFile):
		// No image part; fine for updates, caught by validation on create.
	default:
		return fields, nil, errors.Wrap(err, "read image part")
	}

	if raw := r.FormValue("data"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &fields); err != nil {
			return fields, nil, errors.Wrap(err, "parse data field")
		}
		return fields, img, nil
	}

	if err := parseFlatFields(r, &fields); err != nil {
		return fields, nil, err
	}
	return fields, img, nil
}

// parseFlatFields reads the flat form-value shape. Only keys actually present
// in the form are set, preserving partial-update semantics.
func parseFlatFields(r *http.Request, fields *productPayload) error {
	get := func(key string) (string, bool) {
		vs, ok := r.MultipartForm.Value[key]
		if !ok || len(vs) == 0 {
			return "", false
		}
		return vs[0], true
	}

	if v, ok := get("name"); ok {
		fields.Name = &v
	}
	if v, ok := get("description"); ok {
		fields.Description = &v
	}
	if v, ok := get("category_id"); ok {
		fields.CategoryID = &v
	}
	if v, ok := get("quantity"); ok {
		q, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return errors.Wrap(err, "parse quantity")
		}
		fields.Quantity = &q
	}
	if v, ok := get("is_active"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.Wrap(err, "parse is_active")
		}
		fields.IsActive = &b
	}
	return nil
}

// decodeJSONBody decodes a plain JSON request body.
func decodeJSONBody(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errors.Wrap(err, "decode body")
	}
	return nil
}
