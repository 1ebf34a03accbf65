/**
 * @description
 * Persistence layer for the product catalog.
 * Implements the upsert/query operations the sync engine drives: product and
 * price-observation upserts, append-only history inserts, and the staleness
 * queries the refresh scheduler runs on.
 *
 * @dependencies
 * - gorm.io/gorm
 * - github.com/jackc/pgconn (retryable Postgres error codes)
 * - backend/internal/models
 *
 * @notes
 * - Every operation is a single statement (or an existence check plus one
 *   statement); the engine never needs a cross-statement transaction.
 * - Deadlock/serialization errors (40P01/40001) are retried with jittered
 *   backoff because refresh and discovery can race the read API's writes.
 */

package store

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/jackc/pgconn"
	"github.com/pricescout-project/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CatalogStore struct {
	DB *gorm.DB
}

func NewCatalogStore(db *gorm.DB) *CatalogStore {
	return &CatalogStore{DB: db}
}

// UpsertProduct inserts or updates a product by ASIN.
// Returns true when the product did not exist before.
func (s *CatalogStore) UpsertProduct(ctx context.Context, p *models.Product) (bool, error) {
	var existing models.Product
	err := s.DB.WithContext(ctx).Select("asin").Where("asin = ?", p.ASIN).First(&existing).Error
	created := errors.Is(err, gorm.ErrRecordNotFound)
	if err != nil && !created {
		return false, err
	}

	err = s.withRetry(func() error {
		return s.DB.WithContext(ctx).Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "asin"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"title",
				"brand",
				"category",
				"capacity",
				"capacity_unit",
				"technology",
				"form_factor",
				"energy_label",
				"sales_rank",
				"updated_at",
			}),
		}).Create(p).Error
	})
	if err != nil {
		return false, err
	}
	return created, nil
}

// UpsertPriceObservation overwrites the current price for (asin, country).
func (s *CatalogStore) UpsertPriceObservation(ctx context.Context, obs *models.PriceObservation) error {
	return s.withRetry(func() error {
		return s.DB.WithContext(ctx).Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "asin"}, {Name: "country"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"price",
				"price_type",
				"currency",
				"updated_at",
			}),
		}).Create(obs).Error
	})
}

// InsertPriceHistoryPoint appends one immutable history row.
func (s *CatalogStore) InsertPriceHistoryPoint(ctx context.Context, pt *models.PriceHistoryPoint) error {
	return s.withRetry(func() error {
		return s.DB.WithContext(ctx).Create(pt).Error
	})
}

// LatestHistoryPoint returns the most recent history row for the exact
// (asin, country, priceType) key, or nil when none exists.
func (s *CatalogStore) LatestHistoryPoint(ctx context.Context, asin, country, priceType string) (*models.PriceHistoryPoint, error) {
	var pt models.PriceHistoryPoint
	err := s.DB.WithContext(ctx).
		Where("asin = ? AND country = ? AND price_type = ?", asin, country, priceType).
		Order("recorded_at DESC").
		First(&pt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &pt, nil
}

// SelectStaleProducts returns products whose cursor predates the cutoff,
// stalest first.
func (s *CatalogStore) SelectStaleProducts(ctx context.Context, cutoff time.Time, limit int) ([]models.Product, error) {
	var products []models.Product
	query := s.DB.WithContext(ctx).
		Where("updated_at < ?", cutoff).
		Order("updated_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// CountProducts returns the catalog size.
func (s *CatalogStore) CountProducts(ctx context.Context) (int64, error) {
	var count int64
	if err := s.DB.WithContext(ctx).Model(&models.Product{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ListProductsParams filters the read API's product listing.
type ListProductsParams struct {
	Category string
	Brand    string
	Sort     string // "updated", "rank", ""
	Limit    int
	Offset   int
}

// ListProducts serves the read API.
func (s *CatalogStore) ListProducts(ctx context.Context, params ListProductsParams) ([]models.Product, error) {
	query := s.DB.WithContext(ctx).Model(&models.Product{})

	if params.Category != "" {
		query = query.Where("category = ?", params.Category)
	}
	if params.Brand != "" {
		query = query.Where("brand = ?", params.Brand)
	}

	switch params.Sort {
	case "rank":
		query = query.Order("sales_rank ASC")
	case "updated":
		query = query.Order("updated_at DESC")
	default:
		query = query.Order("updated_at DESC")
	}

	if params.Limit > 0 {
		query = query.Limit(params.Limit)
	}
	if params.Offset > 0 {
		query = query.Offset(params.Offset)
	}

	var products []models.Product
	if err := query.Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// GetProduct returns one product by ASIN, or nil when absent.
func (s *CatalogStore) GetProduct(ctx context.Context, asin string) (*models.Product, error) {
	var p models.Product
	err := s.DB.WithContext(ctx).Where("asin = ?", asin).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// HistoryForProduct returns the recorded time series for a product, oldest first.
func (s *CatalogStore) HistoryForProduct(ctx context.Context, asin, country string, since time.Time) ([]models.PriceHistoryPoint, error) {
	var points []models.PriceHistoryPoint
	err := s.DB.WithContext(ctx).
		Where("asin = ? AND country = ? AND recorded_at >= ?", asin, country, since).
		Order("recorded_at ASC").
		Find(&points).Error
	if err != nil {
		return nil, err
	}
	return points, nil
}

// withRetry retries on Postgres deadlock/serialization failures with jittered backoff.
func (s *CatalogStore) withRetry(fn func() error) error {
	const maxRetries = 5
	var err error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && (pgErr.Code == "40P01" || pgErr.Code == "40001") {
			backoff := time.Duration(attempt*100+rand.Intn(100)) * time.Millisecond
			time.Sleep(backoff)
			continue
		}
		return err
	}
	return err
}
