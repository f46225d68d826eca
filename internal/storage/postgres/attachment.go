package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/RC13967/catalog-api/internal/domain/attachment"
)

// chunkSize is the payload slice stored per row. Product images are capped at
// about a megabyte by policy, so a handful of chunks per blob is typical.
const chunkSize = 256 * 1024

const (
	insertAttachmentSQL = `INSERT INTO attachments (id, filename, content_type, size, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	insertChunkSQL = `INSERT INTO attachment_chunks (attachment_id, seq, data)
		VALUES ($1, $2, $3)`

	getAttachmentSQL = `SELECT content_type, size FROM attachments WHERE id::text = $1`

	getChunksSQL = `SELECT data FROM attachment_chunks
		WHERE attachment_id::text = $1 ORDER BY seq`

	deleteAttachmentSQL = `DELETE FROM attachments WHERE id::text = $1`

	deleteChunksSQL = `DELETE FROM attachment_chunks WHERE attachment_id::text = $1`
)

var _ attachment.Store = (*AttachmentStore)(nil)

// AttachmentStore implements attachment.Store on two PostgreSQL tables: one
// metadata row plus ordered payload chunks per blob. The layout is invisible
// to callers.
type AttachmentStore struct {
	pool *pgxpool.Pool
}

// NewAttachmentStore returns an AttachmentStore that uses the given pool.
func NewAttachmentStore(pool *pgxpool.Pool) *AttachmentStore {
	return &AttachmentStore{pool: pool}
}

// Put stores the payload under a fresh id. Metadata and chunks are written in
// one transaction so a half-written blob is never readable.
func (s *AttachmentStore) Put(ctx context.Context, filename, contentType string, data []byte) (string, error) {
	id := uuid.NewString()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("storing attachment: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, insertAttachmentSQL,
		id, filename, contentType, int64(len(data)), time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("storing attachment metadata: %w", err)
	}

	for seq := 0; len(data) > 0; seq++ {
		n := min(len(data), chunkSize)
		if _, err := tx.Exec(ctx, insertChunkSQL, id, seq, data[:n]); err != nil {
			return "", fmt.Errorf("storing attachment chunk %d: %w", seq, err)
		}
		data = data[n:]
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("storing attachment: %w", err)
	}
	return id, nil
}

// Get returns the content type and reassembled payload for id.
func (s *AttachmentStore) Get(ctx context.Context, id string) (string, []byte, error) {
	var (
		contentType string
		size        int64
	)
	err := s.pool.QueryRow(ctx, getAttachmentSQL, id).Scan(&contentType, &size)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil, attachment.ErrNotFound
		}
		return "", nil, fmt.Errorf("getting attachment %q: %w", id, err)
	}

	rows, err := s.pool.Query(ctx, getChunksSQL, id)
	if err != nil {
		return "", nil, fmt.Errorf("getting attachment chunks %q: %w", id, err)
	}
	defer rows.Close()

	data := make([]byte, 0, size)
	for rows.Next() {
		var chunk []byte
		if err := rows.Scan(&chunk); err != nil {
			return "", nil, fmt.Errorf("scanning attachment chunk %q: %w", id, err)
		}
		data = append(data, chunk...)
	}
	if err := rows.Err(); err != nil {
		return "", nil, fmt.Errorf("reading attachment chunks %q: %w", id, err)
	}

	return contentType, data, nil
}

// Delete removes metadata and chunks. Reports ErrNotFound when no metadata
// row exists, leaving the caller to decide whether that matters.
func (s *AttachmentStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, deleteAttachmentSQL, id)
	if err != nil {
		return fmt.Errorf("deleting attachment %q: %w", id, err)
	}
	if _, err := s.pool.Exec(ctx, deleteChunksSQL, id); err != nil {
		return fmt.Errorf("deleting attachment chunks %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return attachment.ErrNotFound
	}
	return nil
}
