/**
 * @description
 * Product and PriceObservation database models.
 * Maps to the 'products' and 'price_observations' tables in PostgreSQL.
 *
 * @dependencies
 * - gorm.io/gorm (tags only)
 *
 * @notes
 * - Product.UpdatedAt doubles as the staleness cursor: the refresh scheduler
 *   orders by it ascending, so older = more overdue.
 * - Products are never deleted by the sync engine; they only go stale.
 */

package models

import (
	"time"
)

// Product represents one catalog entry, keyed by the provider's ASIN.
// Maps to the 'products' table.
type Product struct {
	ASIN     string `gorm:"primaryKey;column:asin" json:"asin"`
	Title    string `gorm:"column:title" json:"title"`
	Brand    string `gorm:"column:brand;index" json:"brand"`
	Category string `gorm:"column:category;index" json:"category"`

	// Capability attributes derived from the title at ingest time.
	Capacity     float64 `gorm:"column:capacity" json:"capacity"`
	CapacityUnit string  `gorm:"column:capacity_unit" json:"capacity_unit"`
	Technology   string  `gorm:"column:technology" json:"technology"`
	FormFactor   string  `gorm:"column:form_factor" json:"form_factor"`
	EnergyLabel  string  `gorm:"column:energy_label" json:"energy_label"`

	// SalesRank is only used to prioritize discovery candidates.
	SalesRank int `gorm:"column:sales_rank" json:"sales_rank"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	// UpdatedAt is the staleness cursor. It is bumped on every sync cycle
	// that touches the product, whether or not the price moved.
	UpdatedAt time.Time `gorm:"column:updated_at;index" json:"updated_at"`
}

// TableName overrides the table name used by Product to `products`
func (Product) TableName() string {
	return "products"
}

// PriceObservation is the current best-known price per (product, country).
// One row per country, overwritten in place on each refresh.
type PriceObservation struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ASIN      string    `gorm:"column:asin;uniqueIndex:idx_obs_asin_country" json:"asin"`
	Country   string    `gorm:"column:country;uniqueIndex:idx_obs_asin_country" json:"country"`
	PriceType string    `gorm:"column:price_type" json:"price_type"`
	Price     float64   `gorm:"column:price" json:"price"`
	Currency  string    `gorm:"column:currency;default:'EUR'" json:"currency"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

// TableName overrides the table name used by PriceObservation to `price_observations`
func (PriceObservation) TableName() string {
	return "price_observations"
}
