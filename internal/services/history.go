/**
 * @description
 * Price history recorder.
 * Builds the deduplicated price time series behind the storefront's charts.
 *
 * @notes
 * - Append is gated: within the cooldown window a point is only written when
 *   the price actually moved. This keeps daily reruns from flooding the
 *   series while still capturing intraday changes.
 */

package services

import (
	"context"
	"math"
	"time"

	"github.com/pricescout-project/backend/internal/models"
)

// historyCooldown is the minimum spacing between identical-price points for
// the same (asin, country, priceType) key. Slightly under a day so a fixed
// daily schedule doesn't skip every other run.
const historyCooldown = 23 * time.Hour

// PriceHistoryRecorder appends deduplicated history points.
type PriceHistoryRecorder struct {
	Store Store

	now func() time.Time
}

func NewPriceHistoryRecorder(store Store) *PriceHistoryRecorder {
	return &PriceHistoryRecorder{
		Store: store,
		now:   time.Now,
	}
}

// RecordIfChanged appends a point unless an identical price was already
// recorded for this key within the cooldown window. Returns true when a
// point was written.
func (r *PriceHistoryRecorder) RecordIfChanged(ctx context.Context, asin, country, priceType string, price float64) (bool, error) {
	latest, err := r.Store.LatestHistoryPoint(ctx, asin, country, priceType)
	if err != nil {
		return false, err
	}

	now := r.now()
	if latest != nil &&
		now.Sub(latest.RecordedAt) < historyCooldown &&
		samePrice(latest.Price, price) {
		return false, nil
	}

	pt := &models.PriceHistoryPoint{
		ASIN:       asin,
		Country:    country,
		PriceType:  priceType,
		Price:      price,
		RecordedAt: now,
	}
	if err := r.Store.InsertPriceHistoryPoint(ctx, pt); err != nil {
		return false, err
	}
	return true, nil
}

func samePrice(a, b float64) bool {
	return math.Abs(a-b) < 0.005 // sub-cent
}
