// Command seed-db loads an initial set of categories and products, with their
// image files, into the catalog database. Reruns are safe: entries whose
// names are already taken are skipped.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/go-faster/errors"

	"github.com/RC13967/catalog-api/internal/catalog"
	"github.com/RC13967/catalog-api/internal/domain/category"
	"github.com/RC13967/catalog-api/internal/storage/postgres"
)

type seedFile struct {
	Categories []struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	} `json:"categories"`
	Products []struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Category    string `json:"category"`
		Quantity    int64  `json:"quantity"`
		Image       string `json:"image"`
	} `json:"products"`
}

func main() {
	var (
		databaseURL string
		seedPath    string
		imagesDir   string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&seedPath, "seed-file", "db/seed/catalog.json", "path to catalog seed JSON file")
	flag.StringVar(&imagesDir, "images-dir", "db/seed/images", "directory holding product image files")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, seedPath, imagesDir); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, seedPath, imagesDir string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	slog.Info("reading seed file", slog.String("path", seedPath))

	data, err := os.ReadFile(seedPath)
	if err != nil {
		return errors.Wrap(err, "read seed file")
	}

	var seed seedFile
	if err := json.Unmarshal(data, &seed); err != nil {
		return errors.Wrap(err, "parse seed JSON")
	}

	categories := postgres.NewCategoryRepository(pool)
	svc := catalog.NewService(
		categories,
		postgres.NewProductRepository(pool),
		postgres.NewAttachmentStore(pool),
		catalog.ImagePolicy{
			AllowedExtensions: []string{".jpeg", ".jpg", ".png"},
			MaxBytes:          1 << 20,
		},
	)

	categoryIDs, err := seedCategories(ctx, svc, categories, seed)
	if err != nil {
		return errors.Wrap(err, "seed categories")
	}

	if err := seedProducts(ctx, svc, categoryIDs, imagesDir, seed); err != nil {
		return errors.Wrap(err, "seed products")
	}

	return nil
}

// seedCategories creates the seed categories and returns a name to id map
// covering both the freshly created and the already existing ones.
func seedCategories(ctx context.Context, svc *catalog.Service, repo category.Repository, seed seedFile) (map[string]string, error) {
	slog.Info("seeding categories", slog.Int("count", len(seed.Categories)))

	ids := make(map[string]string, len(seed.Categories))

	for _, c := range seed.Categories {
		created, err := svc.CreateCategory(ctx, catalog.CreateCategoryRequest{
			Name:        c.Name,
			Description: c.Description,
		})
		if err != nil {
			var conflict *catalog.ConflictError
			if !errors.As(err, &conflict) {
				return nil, errors.Wrapf(err, "create category %s", c.Name)
			}
			slog.Info("category already exists, skipping", slog.String("name", c.Name))
			continue
		}
		ids[strings.ToLower(c.Name)] = created.ID

		slog.Info("created category", slog.String("id", created.ID), slog.String("name", c.Name))
	}

	// Resolve ids for the skipped categories from the live set.
	existing, err := repo.ListActive(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list categories")
	}
	for _, c := range existing {
		key := strings.ToLower(c.Name)
		if _, ok := ids[key]; !ok {
			ids[key] = c.ID
		}
	}

	return ids, nil
}

func seedProducts(ctx context.Context, svc *catalog.Service, categoryIDs map[string]string, imagesDir string, seed seedFile) error {
	slog.Info("seeding products", slog.Int("count", len(seed.Products)))

	for _, p := range seed.Products {
		categoryID, ok := categoryIDs[strings.ToLower(p.Category)]
		if !ok {
			return errors.Errorf("product %s references unknown category %s", p.Name, p.Category)
		}

		data, err := os.ReadFile(filepath.Join(imagesDir, p.Image))
		if err != nil {
			return errors.Wrapf(err, "read image for product %s", p.Name)
		}

		quantity := p.Quantity
		created, err := svc.CreateProduct(ctx, catalog.CreateProductRequest{
			Name:        p.Name,
			Description: p.Description,
			CategoryID:  categoryID,
			Quantity:    &quantity,
			Image: &catalog.ImageUpload{
				Filename:    p.Image,
				ContentType: imageContentType(p.Image),
				Data:        data,
			},
		})
		if err != nil {
			var conflict *catalog.ConflictError
			if errors.As(err, &conflict) {
				slog.Info("product already exists, skipping", slog.String("name", p.Name))
				continue
			}
			return errors.Wrapf(err, "create product %s", p.Name)
		}

		slog.Info("created product", slog.String("id", created.ID), slog.String("name", p.Name))
	}

	return nil
}

func imageContentType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	default:
		return "application/octet-stream"
	}
}
