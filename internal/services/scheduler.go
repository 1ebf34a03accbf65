/**
 * @description
 * Catalog staleness scheduler.
 * Decides which products are overdue for a refresh, in what order, and how
 * many of them the remaining token budget can afford.
 *
 * @notes
 * - The freshness interval is a step function of catalog size: a fixed daily
 *   token budget only amortizes over a large catalog if refresh frequency
 *   drops as the catalog grows.
 * - Product.UpdatedAt is the staleness cursor; smaller = staler = first.
 */

package services

import (
	"context"
	"time"

	"github.com/pricescout-project/backend/internal/models"
)

// refreshReserveRatio is the share of remaining tokens the refresh phase may
// spend; the rest is held back for discovery/enrichment.
const refreshReserveRatio = 0.8

// FreshnessInterval returns how old a product's cursor may get before it
// counts as stale, given the current catalog size. Monotonically
// non-decreasing in catalogSize, capped at 24h.
func FreshnessInterval(catalogSize int64) time.Duration {
	switch {
	case catalogSize < 1000:
		return time.Hour
	case catalogSize < 5000:
		return 6 * time.Hour
	case catalogSize < 15000:
		return 12 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// StalenessScheduler selects refresh batches from the catalog.
type StalenessScheduler struct {
	Store  Store
	Budget *TokenBudget

	now func() time.Time
}

func NewStalenessScheduler(store Store, budget *TokenBudget) *StalenessScheduler {
	return &StalenessScheduler{
		Store:  store,
		Budget: budget,
		now:    time.Now,
	}
}

// SelectRefreshBatch returns up to min(limit, refresh token reserve) stale
// products, stalest first. A product record costs one token, so the reserve
// caps the batch directly.
func (s *StalenessScheduler) SelectRefreshBatch(ctx context.Context, limit int) ([]models.Product, error) {
	size, err := s.Store.CountProducts(ctx)
	if err != nil {
		return nil, err
	}

	cutoff := s.now().Add(-FreshnessInterval(size))

	reserve := int(float64(s.Budget.Status().Remaining) * refreshReserveRatio)
	if reserve < limit {
		limit = reserve
	}
	if limit <= 0 {
		return nil, nil
	}

	return s.Store.SelectStaleProducts(ctx, cutoff, limit)
}
