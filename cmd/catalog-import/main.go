// Command catalog-import bulk-loads supplier product feeds into the catalog.
//
// Feeds are gzip-compressed NDJSON files, one product per line. Files are
// streamed concurrently; a bloom filter pre-screens names already present in
// the catalog so the common duplicate case skips the database entirely, and a
// single writer goroutine performs the inserts.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/RC13967/catalog-api/internal/domain/product"
	"github.com/RC13967/catalog-api/internal/storage/postgres"
)

const (
	bloomCapacity = 1_000_000
	bloomFPR      = 0.001
	progressEvery = 10_000
)

// feedRecord is one line of a supplier feed. Category holds a category name,
// resolved against the live catalog before insert.
type feedRecord struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Quantity    int64  `json:"quantity"`
}

func main() {
	var (
		dataDir     string
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing *.ndjson.gz feed files")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
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

	if err := run(ctx, dataDir, databaseURL); err != nil {
		slog.Error("catalog import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog import completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string) error {
	files, err := filepath.Glob(filepath.Join(dataDir, "*.ndjson.gz"))
	if err != nil {
		return errors.Wrap(err, "glob feed files")
	}
	if len(files) == 0 {
		return errors.Errorf("no *.ndjson.gz files in %s", dataDir)
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	categoryIDs, err := loadCategoryIDs(ctx, pool)
	if err != nil {
		return errors.Wrap(err, "load categories")
	}
	if len(categoryIDs) == 0 {
		return errors.New("no categories in catalog: run seed-db first")
	}

	seen, err := buildNameFilter(ctx, pool)
	if err != nil {
		return errors.Wrap(err, "build name filter")
	}

	slog.Info("importing feeds", slog.Int("files", len(files)))

	records := make(chan feedRecord, 1024)

	g, ctx := errgroup.WithContext(ctx)
	readers, ctx := errgroup.WithContext(ctx)
	for _, f := range files {
		readers.Go(streamFeed(ctx, f, records))
	}
	g.Go(func() error {
		defer close(records)
		return readers.Wait()
	})
	g.Go(writeProducts(ctx, pool, categoryIDs, seen, records))

	return g.Wait()
}

// loadCategoryIDs maps lower-cased category names to ids.
func loadCategoryIDs(ctx context.Context, pool *pgxpool.Pool) (map[string]string, error) {
	categories, err := postgres.NewCategoryRepository(pool).ListActive(ctx)
	if err != nil {
		return nil, err
	}

	ids := make(map[string]string, len(categories))
	for _, c := range categories {
		ids[strings.ToLower(c.Name)] = c.ID
	}
	return ids, nil
}

// buildNameFilter seeds a bloom filter with every product name already in the
// catalog. A filter miss proves the name is new; a hit falls through to the
// exact uniqueness check on insert.
func buildNameFilter(ctx context.Context, pool *pgxpool.Pool) (*bloom.BloomFilter, error) {
	filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)

	rows, err := pool.Query(ctx, `SELECT LOWER(name) FROM products`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var count int
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		filter.AddString(name)
		count++
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	slog.Info("name filter built", slog.Int("existing_products", count))
	return filter, nil
}

// streamFeed decompresses one feed file and sends its records downstream.
func streamFeed(ctx context.Context, path string, out chan<- feedRecord) func() error {
	return func() error {
		f, err := os.Open(path)
		if err != nil {
			return errors.Wrapf(err, "open %s", path)
		}
		defer func() { _ = f.Close() }()

		gz, err := pgzip.NewReader(f)
		if err != nil {
			return errors.Wrapf(err, "create gzip reader for %s", path)
		}
		defer func() { _ = gz.Close() }()

		var count uint64
		scanner := bufio.NewScanner(gz)
		for scanner.Scan() {
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}

			var rec feedRecord
			if err := json.Unmarshal(line, &rec); err != nil {
				return errors.Wrapf(err, "parse %s line %d", path, count+1)
			}

			count++
			if count%progressEvery == 0 {
				slog.Info("feed progress", slog.String("file", filepath.Base(path)), slog.Uint64("records", count))
			}

			select {
			case out <- rec:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err := scanner.Err(); err != nil {
			return errors.Wrapf(err, "scan %s", path)
		}

		slog.Info("feed complete", slog.String("file", filepath.Base(path)), slog.Uint64("records", count))
		return nil
	}
}

// writeProducts drains the record channel and inserts new products. Imported
// products start without an image; images are attached later through the API.
func writeProducts(
	ctx context.Context,
	pool *pgxpool.Pool,
	categoryIDs map[string]string,
	seen *bloom.BloomFilter,
	records <-chan feedRecord,
) func() error {
	return func() error {
		repo := postgres.NewProductRepository(pool)

		var inserted, skipped int
		for rec := range records {
			if rec.Name == "" || rec.Description == "" || rec.Category == "" {
				skipped++
				continue
			}

			categoryID, ok := categoryIDs[strings.ToLower(rec.Category)]
			if !ok {
				slog.Warn("unknown category, skipping",
					slog.String("product", rec.Name),
					slog.String("category", rec.Category),
				)
				skipped++
				continue
			}

			key := strings.ToLower(rec.Name)
			if seen.TestString(key) {
				// Probable duplicate; confirm before dropping the record.
				taken, err := repo.NameTaken(ctx, rec.Name, "")
				if err != nil {
					return errors.Wrapf(err, "check name %s", rec.Name)
				}
				if taken {
					skipped++
					continue
				}
			}

			now := time.Now().UTC()
			if err := repo.Create(ctx, &product.Product{
				ID:          uuid.NewString(),
				Name:        rec.Name,
				Description: rec.Description,
				CategoryID:  categoryID,
				Quantity:    rec.Quantity,
				IsActive:    true,
				CreatedAt:   now,
				UpdatedAt:   now,
			}); err != nil {
				return errors.Wrapf(err, "insert product %s", rec.Name)
			}

			seen.AddString(key)
			inserted++
			if inserted%progressEvery == 0 {
				slog.Info("write progress", slog.Int("inserted", inserted))
			}
		}

		slog.Info("import finished", slog.Int("inserted", inserted), slog.Int("skipped", skipped))
		return nil
	}
}
