package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/RC13967/catalog-api/internal/domain/category"
)

const (
	createCategorySQL = `INSERT INTO categories (id, name, description, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	// Ids arrive from request paths, so they are compared as text: a
	// malformed id matches nothing instead of failing the uuid cast.
	getCategoryByIDSQL = `SELECT id, name, description, is_active, created_at, updated_at
		FROM categories WHERE id::text = $1 AND is_active`

	listActiveCategoriesSQL = `SELECT id, name, description, is_active, created_at, updated_at
		FROM categories WHERE is_active ORDER BY created_at DESC`

	categoryExistsSQL = `SELECT EXISTS (SELECT 1 FROM categories WHERE id::text = $1)`

	categoryNameTakenSQL = `SELECT EXISTS (
		SELECT 1 FROM categories WHERE LOWER(name) = LOWER($1) AND id::text <> $2)`

	updateCategorySQL = `UPDATE categories SET
			name        = COALESCE($2, name),
			description = COALESCE($3, description),
			is_active   = COALESCE($4, is_active),
			updated_at  = $5
		WHERE id::text = $1
		RETURNING id, name, description, is_active, created_at, updated_at`

	deleteCategorySQL = `DELETE FROM categories WHERE id::text = $1`
)

var _ category.Repository = (*CategoryRepository)(nil)

// CategoryRepository implements category.Repository backed by PostgreSQL.
type CategoryRepository struct {
	pool *pgxpool.Pool
}

// NewCategoryRepository returns a CategoryRepository that uses the given pool.
func NewCategoryRepository(pool *pgxpool.Pool) *CategoryRepository {
	return &CategoryRepository{pool: pool}
}

// Create inserts the category row.
func (r *CategoryRepository) Create(ctx context.Context, c *category.Category) error {
	_, err := r.pool.Exec(ctx, createCategorySQL,
		c.ID, c.Name, c.Description, c.IsActive, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating category %q: %w", c.Name, err)
	}
	return nil
}

// GetByID returns an active category; inactive or unknown ids both map to
// category.ErrNotFound.
func (r *CategoryRepository) GetByID(ctx context.Context, id string) (*category.Category, error) {
	rows, err := r.pool.Query(ctx, getCategoryByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting category %q: %w", id, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCategory)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, category.ErrNotFound
		}
		return nil, fmt.Errorf("getting category %q: %w", id, err)
	}
	return &c, nil
}

// ListActive returns active categories, newest first.
func (r *CategoryRepository) ListActive(ctx context.Context) ([]category.Category, error) {
	rows, err := r.pool.Query(ctx, listActiveCategoriesSQL)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	return pgx.CollectRows(rows, scanCategory)
}

// Exists reports whether the id exists at all, active or not.
func (r *CategoryRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, categoryExistsSQL, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking category %q: %w", id, err)
	}
	return exists, nil
}

// NameTaken probes for a case-insensitive name collision outside excludeID.
func (r *CategoryRepository) NameTaken(ctx context.Context, name, excludeID string) (bool, error) {
	var taken bool
	if err := r.pool.QueryRow(ctx, categoryNameTakenSQL, name, excludeID).Scan(&taken); err != nil {
		return false, fmt.Errorf("checking category name %q: %w", name, err)
	}
	return taken, nil
}

// Update applies the non-nil fields and returns the updated row.
func (r *CategoryRepository) Update(ctx context.Context, id string, upd category.Update) (*category.Category, error) {
	rows, err := r.pool.Query(ctx, updateCategorySQL,
		id, upd.Name, upd.Description, upd.IsActive, upd.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("updating category %q: %w", id, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCategory)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, category.ErrNotFound
		}
		return nil, fmt.Errorf("updating category %q: %w", id, err)
	}
	return &c, nil
}

// Delete removes the row. Unknown ids are not an error.
func (r *CategoryRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.pool.Exec(ctx, deleteCategorySQL, id); err != nil {
		return fmt.Errorf("deleting category %q: %w", id, err)
	}
	return nil
}

func scanCategory(row pgx.CollectableRow) (category.Category, error) {
	var c category.Category
	err := row.Scan(&c.ID, &c.Name, &c.Description, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}
