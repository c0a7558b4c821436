package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/OTapias/alican-teca/models"

	"go.uber.org/zap"
)

// Source tells callers which path served a catalog read, so the silent
// fallback stays observable in responses and tests.
type Source string

const (
	SourcePrimary Source = "primary"
	SourceSeed    Source = "seed"
)

var ErrProductNotFound = errors.New("product not found")

// ProductStore serves catalog reads from Postgres and degrades to the
// static seed catalog when the database is unreachable.
type ProductStore struct {
	db     *sql.DB
	seed   []models.Product
	logger *zap.Logger
}

func NewProductStore(db *sql.DB, logger *zap.Logger) *ProductStore {
	return &ProductStore{
		db:     db,
		seed:   SeedCatalog(),
		logger: logger,
	}
}

// GetAll returns every product ordered by title. Any database error is
// logged and answered from the seed catalog instead.
func (s *ProductStore) GetAll(ctx context.Context) ([]models.Product, Source, error) {
	if s.db == nil {
		return s.seedCopy(), SourceSeed, nil
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, title, description, price, currency_code, image FROM products ORDER BY title")
	if err != nil {
		s.logger.Warn("Catalog query failed, serving seed catalog", zap.Error(err))
		return s.seedCopy(), SourceSeed, nil
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		var p models.Product
		var description, image sql.NullString
		if err := rows.Scan(&p.ID, &p.Title, &description, &p.Price, &p.CurrencyCode, &image); err != nil {
			s.logger.Error("Failed to scan product", zap.Error(err))
			continue
		}
		p.Description = description.String
		p.Image = image.String
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		s.logger.Warn("Catalog scan aborted, serving seed catalog", zap.Error(err))
		return s.seedCopy(), SourceSeed, nil
	}

	return products, SourcePrimary, nil
}

// GetByID looks a product up by id. A reachable database is authoritative:
// a missing row is a not-found, not a reason to consult the seed. Only a
// failing database falls back.
func (s *ProductStore) GetByID(ctx context.Context, id string) (models.Product, Source, error) {
	if s.db == nil {
		return s.seedLookup(id)
	}

	var p models.Product
	var description, image sql.NullString
	err := s.db.QueryRowContext(ctx,
		"SELECT id, title, description, price, currency_code, image FROM products WHERE id = $1",
		id,
	).Scan(&p.ID, &p.Title, &description, &p.Price, &p.CurrencyCode, &image)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Product{}, SourcePrimary, ErrProductNotFound
		}
		s.logger.Warn("Product query failed, consulting seed catalog",
			zap.String("product_id", id), zap.Error(err))
		return s.seedLookup(id)
	}
	p.Description = description.String
	p.Image = image.String
	return p, SourcePrimary, nil
}

func (s *ProductStore) seedLookup(id string) (models.Product, Source, error) {
	for _, p := range s.seed {
		if p.ID == id {
			return p, SourceSeed, nil
		}
	}
	return models.Product{}, SourceSeed, ErrProductNotFound
}

func (s *ProductStore) seedCopy() []models.Product {
	out := make([]models.Product, len(s.seed))
	copy(out, s.seed)
	return out
}
