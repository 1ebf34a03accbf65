/**
 * @description
 * Collaborator interfaces for the sync/discovery engine.
 * The engine is written against these narrow contracts so unit tests can run
 * on in-memory fakes; store.CatalogStore and keepa.Client satisfy them.
 */

package services

import (
	"context"
	"time"

	"github.com/pricescout-project/backend/internal/keepa"
	"github.com/pricescout-project/backend/internal/models"
)

// Store is the persistence collaborator. Each operation is independently
// transactional; the engine never spans a transaction across calls.
type Store interface {
	UpsertProduct(ctx context.Context, p *models.Product) (created bool, err error)
	GetProduct(ctx context.Context, asin string) (*models.Product, error)
	UpsertPriceObservation(ctx context.Context, obs *models.PriceObservation) error
	InsertPriceHistoryPoint(ctx context.Context, pt *models.PriceHistoryPoint) error
	LatestHistoryPoint(ctx context.Context, asin, country, priceType string) (*models.PriceHistoryPoint, error)
	SelectStaleProducts(ctx context.Context, cutoff time.Time, limit int) ([]models.Product, error)
	CountProducts(ctx context.Context) (int64, error)
}

// Provider is the external product-data API.
type Provider interface {
	TokenStatus(ctx context.Context) (*keepa.TokenStatus, error)
	Search(ctx context.Context, params keepa.SearchParams) ([]string, error)
	Bestsellers(ctx context.Context, nodeID int64, country string) ([]string, error)
	Deals(ctx context.Context, params keepa.DealParams) ([]string, error)
	Products(ctx context.Context, asins []string, country string, opts keepa.ProductOptions) ([]keepa.ProductRecord, error)
}
