package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/RC13967/catalog-api/internal/domain/product"
)

const (
	productColumns = `id, name, description, category_id, image_id, quantity, is_active, created_at, updated_at`

	createProductSQL = `INSERT INTO products (id, name, description, category_id, image_id, quantity, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	getProductByIDSQL = `SELECT ` + productColumns + `
		FROM products WHERE id::text = $1 AND is_active`

	listActiveProductsSQL = `SELECT ` + productColumns + `
		FROM products WHERE is_active ORDER BY created_at DESC`

	listProductsByCategorySQL = `SELECT ` + productColumns + `
		FROM products WHERE category_id::text = $1`

	filterProductsByCreatedSQL = `SELECT ` + productColumns + `
		FROM products WHERE created_at >= $1 AND created_at <= $2
		ORDER BY created_at DESC`

	productNameTakenSQL = `SELECT EXISTS (
		SELECT 1 FROM products WHERE LOWER(name) = LOWER($1) AND id::text <> $2)`

	updateProductSQL = `UPDATE products SET
			name        = COALESCE($2, name),
			description = COALESCE($3, description),
			category_id = COALESCE($4::uuid, category_id),
			image_id    = COALESCE($5::uuid, image_id),
			quantity    = COALESCE($6, quantity),
			is_active   = COALESCE($7, is_active),
			updated_at  = $8
		WHERE id::text = $1
		RETURNING ` + productColumns

	deleteProductSQL = `DELETE FROM products WHERE id::text = $1
		RETURNING ` + productColumns

	deactivateByCategorySQL = `UPDATE products
		SET is_active = FALSE, updated_at = $2
		WHERE category_id::text = $1 AND is_active`

	deleteByCategorySQL = `DELETE FROM products WHERE category_id::text = $1`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// Create inserts the product row. An empty image id is stored as NULL.
func (r *ProductRepository) Create(ctx context.Context, p *product.Product) error {
	_, err := r.pool.Exec(ctx, createProductSQL,
		p.ID, p.Name, p.Description, p.CategoryID, nullIfEmpty(p.ImageID),
		p.Quantity, p.IsActive, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating product %q: %w", p.Name, err)
	}
	return nil
}

// GetByID returns an active product; inactive or unknown ids both map to
// product.ErrNotFound.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	return &p, nil
}

// ListActive returns active products, newest first.
func (r *ProductRepository) ListActive(ctx context.Context) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listActiveProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// ListByCategory returns every product referencing the category.
func (r *ProductRepository) ListByCategory(ctx context.Context, categoryID string) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsByCategorySQL, categoryID)
	if err != nil {
		return nil, fmt.Errorf("listing products for category %q: %w", categoryID, err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// FilterByCreatedRange returns products created within [from, to] inclusive,
// newest first.
func (r *ProductRepository) FilterByCreatedRange(ctx context.Context, from, to time.Time) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, filterProductsByCreatedSQL, from, to)
	if err != nil {
		return nil, fmt.Errorf("filtering products by date: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// NameTaken probes for a case-insensitive name collision outside excludeID.
func (r *ProductRepository) NameTaken(ctx context.Context, name, excludeID string) (bool, error) {
	var taken bool
	if err := r.pool.QueryRow(ctx, productNameTakenSQL, name, excludeID).Scan(&taken); err != nil {
		return false, fmt.Errorf("checking product name %q: %w", name, err)
	}
	return taken, nil
}

// Update applies the non-nil fields and returns the updated row.
func (r *ProductRepository) Update(ctx context.Context, id string, upd product.Update) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, updateProductSQL,
		id, upd.Name, upd.Description, upd.CategoryID, upd.ImageID,
		upd.Quantity, upd.IsActive, upd.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("updating product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("updating product %q: %w", id, err)
	}
	return &p, nil
}

// Delete removes the row and returns it, so the caller can clean up the
// attachment reference.
func (r *ProductRepository) Delete(ctx context.Context, id string) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, deleteProductSQL, id)
	if err != nil {
		return nil, fmt.Errorf("deleting product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("deleting product %q: %w", id, err)
	}
	return &p, nil
}

// DeactivateByCategory bulk-flips is_active on the category's active products.
func (r *ProductRepository) DeactivateByCategory(ctx context.Context, categoryID string, at time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, deactivateByCategorySQL, categoryID, at)
	if err != nil {
		return 0, fmt.Errorf("deactivating products for category %q: %w", categoryID, err)
	}
	return tag.RowsAffected(), nil
}

// DeleteByCategory removes every product referencing the category.
func (r *ProductRepository) DeleteByCategory(ctx context.Context, categoryID string) error {
	if _, err := r.pool.Exec(ctx, deleteByCategorySQL, categoryID); err != nil {
		return fmt.Errorf("deleting products for category %q: %w", categoryID, err)
	}
	return nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var (
		p       product.Product
		imageID *string
	)
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.CategoryID, &imageID,
		&p.Quantity, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	)
	if imageID != nil {
		p.ImageID = *imageID
	}
	return p, err
}

// nullIfEmpty maps an empty string to SQL NULL for nullable uuid columns.
func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
