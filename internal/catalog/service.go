// Package catalog implements the catalog service: category/product CRUD with
// cascade consistency between the two entities and the attachment lifecycle
// tied to product images.
//
// Cascades are deliberately best-effort. There is no transaction spanning the
// category row, its products, and their attachments; a failure partway leaves
// the earlier steps committed. Callers get the error, the log gets the
// context, nothing is rolled back.
package catalog

import (
	"context"
	"encoding/base64"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/RC13967/catalog-api/internal/domain/attachment"
	"github.com/RC13967/catalog-api/internal/domain/category"
	"github.com/RC13967/catalog-api/internal/domain/product"
)

// inlineConcurrency bounds parallel attachment reads when inlining images
// over a listing.
const inlineConcurrency = 8

// ProductWithImage is a product with its image inlined as a data URI.
// ImageSrc is empty when the product has no image.
type ProductWithImage struct {
	product.Product
	ImageSrc string
}

// Service orchestrates categories, products, and attachments. All persistence
// goes through the injected repositories; the service holds no other state.
type Service struct {
	categories  category.Repository
	products    product.Repository
	attachments attachment.Store
	images      ImagePolicy
}

// NewService creates a Service with the required dependencies.
func NewService(
	categories category.Repository,
	products product.Repository,
	attachments attachment.Store,
	images ImagePolicy,
) *Service {
	return &Service{
		categories:  categories,
		products:    products,
		attachments: attachments,
		images:      images,
	}
}

// CreateCategory validates the request and persists a new active category.
// Every check runs before the write, so a failed create leaves no row behind.
func (s *Service) CreateCategory(ctx context.Context, req CreateCategoryRequest) (*category.Category, error) {
	if missing := req.missingFields(); len(missing) > 0 {
		return nil, &MissingFieldsError{Fields: missing}
	}

	taken, err := s.categories.NameTaken(ctx, req.Name, "")
	if err != nil {
		return nil, errors.Wrap(err, "check category name")
	}
	if taken {
		return nil, &ConflictError{Entity: "category", Name: req.Name}
	}

	now := time.Now().UTC()
	c := &category.Category{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Description: req.Description,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.categories.Create(ctx, c); err != nil {
		return nil, errors.Wrap(err, "create category")
	}
	return c, nil
}

// GetCategory returns an active category by id.
func (s *Service) GetCategory(ctx context.Context, id string) (*category.Category, error) {
	return s.categories.GetByID(ctx, id)
}

// ListCategories returns active categories, newest first.
func (s *Service) ListCategories(ctx context.Context) ([]category.Category, error) {
	return s.categories.ListActive(ctx)
}

// UpdateCategory applies a partial update. Setting IsActive to false cascades
// the deactivation to every referencing product before the category row is
// touched, so the products are flipped even if the category update itself
// fails afterwards. Reactivation does not cascade; products stay inactive
// until updated individually.
func (s *Service) UpdateCategory(ctx context.Context, id string, req UpdateCategoryRequest) (*category.Category, error) {
	if req.Name != nil {
		taken, err := s.categories.NameTaken(ctx, *req.Name, id)
		if err != nil {
			return nil, errors.Wrap(err, "check category name")
		}
		if taken {
			return nil, &ConflictError{Entity: "category", Name: *req.Name}
		}
	}

	now := time.Now().UTC()

	if req.IsActive != nil && !*req.IsActive {
		n, err := s.products.DeactivateByCategory(ctx, id, now)
		if err != nil {
			return nil, errors.Wrap(err, "deactivate products")
		}
		zctx.From(ctx).Info("Deactivation cascaded to products",
			zap.String("category_id", id),
			zap.Int64("products", n),
		)
	}

	c, err := s.categories.Update(ctx, id, category.Update{
		Name:        req.Name,
		Description: req.Description,
		IsActive:    req.IsActive,
		UpdatedAt:   now,
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// DeleteCategory removes the category, every product referencing it, and
// every attachment those products referenced, in that order. A failure in a
// later step leaves the earlier deletions in place.
func (s *Service) DeleteCategory(ctx context.Context, id string) error {
	if err := s.categories.Delete(ctx, id); err != nil {
		return errors.Wrap(err, "delete category")
	}

	prods, err := s.products.ListByCategory(ctx, id)
	if err != nil {
		return errors.Wrap(err, "list category products")
	}

	var imageIDs []string
	for _, p := range prods {
		if p.ImageID != "" {
			imageIDs = append(imageIDs, p.ImageID)
		}
	}

	if err := s.products.DeleteByCategory(ctx, id); err != nil {
		return errors.Wrap(err, "delete category products")
	}

	lg := zctx.From(ctx)
	for _, imageID := range imageIDs {
		if err := s.attachments.Delete(ctx, imageID); err != nil {
			if errors.Is(err, attachment.ErrNotFound) {
				// The row referenced a blob that is already gone; the cascade
				// goal is met either way.
				lg.Warn("Attachment already absent during cascade",
					zap.String("attachment_id", imageID))
				continue
			}
			return errors.Wrapf(err, "delete attachment %s", imageID)
		}
	}

	lg.Info("Category deleted with cascade",
		zap.String("category_id", id),
		zap.Int("products", len(prods)),
		zap.Int("attachments", len(imageIDs)),
	)
	return nil
}

// CreateProduct validates fields, image, name uniqueness, and the category
// reference, in that order, all before any side effect. The attachment upload
// happens only after the category check has passed, so a rejected reference
// cannot strand an uploaded image.
func (s *Service) CreateProduct(ctx context.Context, req CreateProductRequest) (*product.Product, error) {
	if missing := req.missingFields(); len(missing) > 0 {
		return nil, &MissingFieldsError{Fields: missing}
	}
	if err := s.images.Validate(req.Image.Filename, int64(len(req.Image.Data))); err != nil {
		return nil, err
	}

	taken, err := s.products.NameTaken(ctx, req.Name, "")
	if err != nil {
		return nil, errors.Wrap(err, "check product name")
	}
	if taken {
		return nil, &ConflictError{Entity: "product", Name: req.Name}
	}

	exists, err := s.categories.Exists(ctx, req.CategoryID)
	if err != nil {
		return nil, errors.Wrap(err, "check category")
	}
	if !exists {
		return nil, ErrCategoryRef
	}

	imageID, err := s.attachments.Put(ctx, req.Image.Filename, req.Image.ContentType, req.Image.Data)
	if err != nil {
		return nil, errors.Wrap(err, "store image")
	}

	now := time.Now().UTC()
	p := &product.Product{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Description: req.Description,
		CategoryID:  req.CategoryID,
		ImageID:     imageID,
		Quantity:    *req.Quantity,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.products.Create(ctx, p); err != nil {
		return nil, errors.Wrap(err, "create product")
	}
	return p, nil
}

// UpdateProduct applies a partial update. A supplied image is validated and
// stored, and its id replaces the product's reference; the previous
// attachment is left in the store untouched. A supplied category id is
// re-checked for existence.
func (s *Service) UpdateProduct(ctx context.Context, id string, req UpdateProductRequest) (*product.Product, error) {
	if req.Name != nil {
		taken, err := s.products.NameTaken(ctx, *req.Name, id)
		if err != nil {
			return nil, errors.Wrap(err, "check product name")
		}
		if taken {
			return nil, &ConflictError{Entity: "product", Name: *req.Name}
		}
	}

	if req.CategoryID != nil {
		exists, err := s.categories.Exists(ctx, *req.CategoryID)
		if err != nil {
			return nil, errors.Wrap(err, "check category")
		}
		if !exists {
			return nil, ErrCategoryRef
		}
	}

	var imageID *string
	if req.Image != nil {
		if err := s.images.Validate(req.Image.Filename, int64(len(req.Image.Data))); err != nil {
			return nil, err
		}
		newID, err := s.attachments.Put(ctx, req.Image.Filename, req.Image.ContentType, req.Image.Data)
		if err != nil {
			return nil, errors.Wrap(err, "store image")
		}
		imageID = &newID
	}

	p, err := s.products.Update(ctx, id, product.Update{
		Name:        req.Name,
		Description: req.Description,
		CategoryID:  req.CategoryID,
		ImageID:     imageID,
		Quantity:    req.Quantity,
		IsActive:    req.IsActive,
		UpdatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// DeleteProduct removes the product row, then its attachment if it had one.
// An unknown product short-circuits before any attachment deletion.
func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	p, err := s.products.Delete(ctx, id)
	if err != nil {
		return err
	}

	if p.ImageID != "" {
		if err := s.attachments.Delete(ctx, p.ImageID); err != nil {
			if errors.Is(err, attachment.ErrNotFound) {
				zctx.From(ctx).Warn("Attachment already absent on product delete",
					zap.String("product_id", id),
					zap.String("attachment_id", p.ImageID),
				)
				return nil
			}
			// The row is already gone; the orphaned blob stays. Surface the
			// failure without undoing the delete.
			return errors.Wrapf(err, "delete attachment %s", p.ImageID)
		}
	}
	return nil
}

// GetProduct returns an active product with its image inlined.
func (s *Service) GetProduct(ctx context.Context, id string) (*ProductWithImage, error) {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.inline(ctx, *p)
}

// ListProducts returns active products, newest first, each with its image
// inlined. A single missing attachment fails the whole listing.
func (s *Service) ListProducts(ctx context.Context) ([]ProductWithImage, error) {
	prods, err := s.products.ListActive(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	return s.inlineAll(ctx, prods)
}

// FilterProductsByDateRange returns products created within [from, to], both
// bounds inclusive, newest first, with images inlined.
func (s *Service) FilterProductsByDateRange(ctx context.Context, from, to time.Time) ([]ProductWithImage, error) {
	prods, err := s.products.FilterByCreatedRange(ctx, from, to)
	if err != nil {
		return nil, errors.Wrap(err, "filter products")
	}
	return s.inlineAll(ctx, prods)
}

// inline fetches the product's attachment, if any, and embeds it as a
// base64 data URI. A dangling reference is an integrity error, not something
// to drop silently.
func (s *Service) inline(ctx context.Context, p product.Product) (*ProductWithImage, error) {
	out := &ProductWithImage{Product: p}
	if p.ImageID == "" {
		return out, nil
	}

	contentType, data, err := s.attachments.Get(ctx, p.ImageID)
	if err != nil {
		if errors.Is(err, attachment.ErrNotFound) {
			return nil, ErrImageNotFound
		}
		return nil, errors.Wrapf(err, "get attachment %s", p.ImageID)
	}

	out.ImageSrc = "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
	return out, nil
}

// inlineAll inlines images over a listing. Attachment reads run concurrently;
// the first failure cancels the rest and fails the listing, matching the
// per-record behavior.
func (s *Service) inlineAll(ctx context.Context, prods []product.Product) ([]ProductWithImage, error) {
	out := make([]ProductWithImage, len(prods))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(inlineConcurrency)
	for i, p := range prods {
		g.Go(func() error {
			pi, err := s.inline(gctx, p)
			if err != nil {
				return err
			}
			out[i] = *pi
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
