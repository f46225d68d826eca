// Package attachment defines the binary blob store contract used for product
// images.
package attachment

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when no attachment exists for the given id. The
// store reports it even on Delete, leaving the caller to decide whether a
// missing blob matters.
var ErrNotFound = errors.New("attachment not found")

// Attachment describes a stored blob. The payload itself is fetched
// separately through Store.Get.
type Attachment struct {
	ID          string
	Filename    string
	ContentType string
	Size        int64
	CreatedAt   time.Time
}

// Store stores and retrieves binary blobs keyed by store-generated ids.
// Identical payloads get distinct ids; there is no content addressing.
type Store interface {
	// Put stores the payload and returns its new id.
	Put(ctx context.Context, filename, contentType string, data []byte) (string, error)

	// Get returns the content type and payload for id, or ErrNotFound.
	Get(ctx context.Context, id string) (contentType string, data []byte, err error)

	// Delete removes the blob. Returns ErrNotFound when no such id exists.
	Delete(ctx context.Context, id string) error
}
