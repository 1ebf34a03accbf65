/**
 * @description
 * PriceHistoryPoint database model.
 * Append-only time series of observed prices per (asin, country, price type).
 *
 * @notes
 * - Rows are immutable once written. Dedup against daily-rerun flooding is
 *   enforced by the history recorder service, not by the table.
 */

package models

import (
	"time"
)

// PriceHistoryPoint is one immutable observation in the price time series.
// Maps to the 'price_history_points' table.
type PriceHistoryPoint struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ASIN       string    `gorm:"column:asin;index:idx_hist_key" json:"asin"`
	Country    string    `gorm:"column:country;index:idx_hist_key" json:"country"`
	PriceType  string    `gorm:"column:price_type;index:idx_hist_key" json:"price_type"`
	Price      float64   `gorm:"column:price" json:"price"`
	RecordedAt time.Time `gorm:"column:recorded_at;index" json:"recorded_at"`
}

// TableName overrides the table name used by PriceHistoryPoint to `price_history_points`
func (PriceHistoryPoint) TableName() string {
	return "price_history_points"
}
