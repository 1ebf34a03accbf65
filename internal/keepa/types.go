/**
 * @description
 * Response types for the Keepa product-data API.
 * Prices arrive as integer cents with -1 meaning "no data", mirroring the wire format.
 *
 * @notes
 * - Every billable response carries tokensLeft/refillRate so callers can keep
 *   their local budget state honest.
 * - BestPrice implements the documented fallback precedence: current price,
 *   else marketplace-new price, else (when the caller opts in) the 90-day
 *   average treated as if it were current.
 */

package keepa

import (
	"fmt"
	"time"
)

// Price type labels recorded alongside observations and history points.
const (
	PriceTypeCurrent = "current"
	PriceTypeNew     = "new"
	PriceTypeAvg90   = "avg90"
)

// APIError is the provider-reported error object embedded in responses.
type APIError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("keepa api error: %s (%s)", e.Message, e.Type)
}

// TokenStatus reports the account's remaining allowance and refill speed.
type TokenStatus struct {
	TokensLeft int `json:"tokensLeft"`
	RefillRate int `json:"refillRate"` // tokens per minute
}

// PriceStats carries the price fields we consume, in integer cents.
// -1 means the provider has no data for that field.
type PriceStats struct {
	Current int `json:"current"`
	New     int `json:"new"`
	Avg90   int `json:"avg90"`
}

// ProductRecord is one full product payload from the /product endpoint.
type ProductRecord struct {
	ASIN         string     `json:"asin"`
	Title        string     `json:"title"`
	Brand        string     `json:"brand"`
	RootCategory int64      `json:"rootCategory"`
	SalesRank    int        `json:"salesRank"`
	Stats        PriceStats `json:"stats"`
	// Historical price rows of [keepa minutes, cents], only populated when
	// history was requested.
	History [][]int `json:"csv,omitempty"`
}

// keepaEpochOffset converts the provider's compact minute timestamps to Unix
// time: unix seconds = (keepa minutes + offset) * 60.
const keepaEpochOffset = 21564000

// HistoricalPrice is one decoded point from a record's history rows.
type HistoricalPrice struct {
	Time  time.Time
	Price float64
}

// HistoryPoints decodes the raw history rows, dropping rows that are malformed
// or carry the -1 no-data sentinel.
func (r ProductRecord) HistoryPoints() []HistoricalPrice {
	points := make([]HistoricalPrice, 0, len(r.History))
	for _, row := range r.History {
		if len(row) < 2 || row[1] <= 0 {
			continue
		}
		points = append(points, HistoricalPrice{
			Time:  time.Unix(int64(row[0]+keepaEpochOffset)*60, 0),
			Price: float64(row[1]) / 100,
		})
	}
	return points
}

// BestPrice resolves a usable price for the record.
// Precedence: current, else marketplace-new, else (only when allowAvg) the
// 90-day average. Returns ok=false when nothing usable exists.
func (r ProductRecord) BestPrice(allowAvg bool) (price float64, priceType string, ok bool) {
	if r.Stats.Current > 0 {
		return float64(r.Stats.Current) / 100, PriceTypeCurrent, true
	}
	if r.Stats.New > 0 {
		return float64(r.Stats.New) / 100, PriceTypeNew, true
	}
	if allowAvg && r.Stats.Avg90 > 0 {
		return float64(r.Stats.Avg90) / 100, PriceTypeAvg90, true
	}
	return 0, "", false
}

// tokenResponse is the envelope for /token.
type tokenResponse struct {
	TokensLeft int       `json:"tokensLeft"`
	RefillRate int       `json:"refillRate"`
	Error      *APIError `json:"error,omitempty"`
}

// asinListResponse is the envelope for /search, /bestsellers and /deal.
type asinListResponse struct {
	ASINList   []string  `json:"asinList"`
	TokensLeft int       `json:"tokensLeft"`
	Error      *APIError `json:"error,omitempty"`
}

// productResponse is the envelope for /product.
type productResponse struct {
	Products   []ProductRecord `json:"products"`
	TokensLeft int             `json:"tokensLeft"`
	RefillRate int             `json:"refillRate"`
	Error      *APIError       `json:"error,omitempty"`
}

// marketplace domain IDs, keyed by storefront country code
var domainIDs = map[string]int{
	"us": 1,
	"uk": 2,
	"de": 3,
	"fr": 4,
	"jp": 5,
	"ca": 6,
	"it": 8,
	"es": 9,
	"in": 10,
	"mx": 11,
}

// DomainID maps a storefront country code to the provider's numeric domain.
// Unknown countries fall back to the German storefront.
func DomainID(country string) int {
	if id, ok := domainIDs[country]; ok {
		return id
	}
	return domainIDs["de"]
}
