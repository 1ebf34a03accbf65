/**
 * @description
 * Discovery engine: finds new products for a category via the provider's
 * bestseller list and a fixed sequence of keyword searches, then admits the
 * ones the quality classifier accepts.
 *
 * @dependencies
 * - backend/internal/keepa
 * - backend/internal/models
 *
 * @notes
 * - Token accounting mirrors the provider's billing: bestsellers flat 50,
 *   search 1 per 50 results, products 1 per record returned. Every billable
 *   call is budget-checked before and recorded after.
 * - A failed chunk fetch is logged and skipped; remaining chunks still run.
 *   When the budget runs dry mid-discovery the engine sleeps until refill
 *   instead of aborting the run.
 */

package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/pricescout-project/backend/internal/keepa"
	"github.com/pricescout-project/backend/internal/models"
)

// CategorySpec binds a storefront category to the provider's node ID and the
// keyword sequence discovery walks through.
type CategorySpec struct {
	NodeID   int64
	Keywords []string
}

// Categories is the discovery catalog. Keys match the classifier's category
// rule registry.
var Categories = map[string]CategorySpec{
	"gpu": {
		NodeID:   430161031,
		Keywords: []string{"graphics card", "geforce rtx", "radeon rx"},
	},
	"cpu": {
		NodeID:   430166031,
		Keywords: []string{"processor", "ryzen", "intel core"},
	},
	"ram": {
		NodeID:   430178031,
		Keywords: []string{"ddr5 ram", "ddr4 ram", "memory kit"},
	},
	"hard-drives": {
		NodeID:   430170031,
		Keywords: []string{"internal ssd", "nvme ssd", "external hard drive"},
	},
	"memory-cards": {
		NodeID:   430175031,
		Keywords: []string{"microsd card", "sd card", "cfexpress"},
	},
	"monitors": {
		NodeID:   429868031,
		Keywords: []string{"gaming monitor", "4k monitor", "ultrawide monitor"},
	},
}

// historySeedDays is how far back the bundled price history reaches when a
// newly admitted product's series is backfilled.
const historySeedDays = 90

// DiscoveryStats tallies one discovery pass.
type DiscoveryStats struct {
	CandidatesSeen int `json:"candidates_seen"`
	Inserted       int `json:"inserted"`
	Updated        int `json:"updated"`
	Rejected       int `json:"rejected"`
	Skipped        int `json:"skipped"`
	Failed         int `json:"failed"`
	TokensSpent    int `json:"tokens_spent"`
}

// DiscoveryEngine finds and admits new products.
type DiscoveryEngine struct {
	Provider   Provider
	Store      Store
	Budget     *TokenBudget
	Classifier *QualityClassifier
	History    *PriceHistoryRecorder

	now func() time.Time
}

func NewDiscoveryEngine(provider Provider, store Store, budget *TokenBudget, classifier *QualityClassifier, history *PriceHistoryRecorder) *DiscoveryEngine {
	return &DiscoveryEngine{
		Provider:   provider,
		Store:      store,
		Budget:     budget,
		Classifier: classifier,
		History:    history,
		now:        time.Now,
	}
}

// Discover accumulates up to targetCount candidate ASINs for the category,
// fetches their full records in chunks and admits the ones that classify as
// quality products. Returns the admitted products and the pass tallies.
func (e *DiscoveryEngine) Discover(ctx context.Context, category, country string, targetCount int) ([]models.Product, DiscoveryStats, error) {
	var stats DiscoveryStats

	spec, ok := Categories[category]
	if !ok {
		return nil, stats, fmt.Errorf("unknown discovery category %q", category)
	}
	if targetCount <= 0 {
		targetCount = 50
	}

	asins, err := e.collectCandidates(ctx, spec, country, targetCount, &stats)
	if err != nil {
		return nil, stats, err
	}
	if len(asins) == 0 {
		log.Printf("[discovery] %s/%s: no candidates found", category, country)
		return nil, stats, nil
	}

	log.Printf("[discovery] %s/%s: %d candidate ASINs collected", category, country, len(asins))

	var admitted []models.Product
	for start := 0; start < len(asins); start += keepa.MaxChunkSize {
		end := start + keepa.MaxChunkSize
		if end > len(asins) {
			end = len(asins)
		}
		chunk := asins[start:end]

		// one token per record returned; reserve the worst case up front
		if err := e.Budget.WaitFor(ctx, len(chunk)); err != nil {
			return admitted, stats, err
		}

		records, err := e.Provider.Products(ctx, chunk, country, keepa.ProductOptions{
			IncludeHistory: true,
			Days:           historySeedDays,
		})
		if err != nil {
			// partial-failure tolerant: skip this chunk, keep going
			log.Printf("[discovery] %s/%s: chunk fetch failed (%d asins): %v", category, country, len(chunk), err)
			stats.Failed += len(chunk)
			continue
		}
		e.Budget.RecordUsage(len(records))
		stats.TokensSpent += len(records)

		for _, record := range records {
			stats.CandidatesSeen++
			product, ok := e.admit(ctx, record, category, country, &stats)
			if ok {
				admitted = append(admitted, *product)
			}
		}
	}

	log.Printf("[discovery] %s/%s: done (inserted:%d updated:%d rejected:%d skipped:%d failed:%d)",
		category, country, stats.Inserted, stats.Updated, stats.Rejected, stats.Skipped, stats.Failed)

	return admitted, stats, nil
}

// collectCandidates unions the bestseller list with keyword search results,
// stopping once targetCount unique ASINs are accumulated or the keyword
// sequence is exhausted.
func (e *DiscoveryEngine) collectCandidates(ctx context.Context, spec CategorySpec, country string, targetCount int, stats *DiscoveryStats) ([]string, error) {
	seen := make(map[string]bool)
	var asins []string

	add := func(list []string) {
		for _, asin := range list {
			if asin == "" || seen[asin] {
				continue
			}
			seen[asin] = true
			asins = append(asins, asin)
		}
	}

	// bestseller list: flat cost regardless of length
	if err := e.Budget.WaitFor(ctx, keepa.BestsellersTokenCost); err != nil {
		return nil, err
	}
	best, err := e.Provider.Bestsellers(ctx, spec.NodeID, country)
	if err != nil {
		// keyword searches can still produce candidates
		log.Printf("[discovery] bestsellers fetch failed for node %d: %v", spec.NodeID, err)
	} else {
		e.Budget.RecordUsage(keepa.BestsellersTokenCost)
		stats.TokensSpent += keepa.BestsellersTokenCost
		add(best)
	}

	for _, keyword := range spec.Keywords {
		if len(asins) >= targetCount {
			break
		}
		if err := e.Budget.WaitFor(ctx, 1); err != nil {
			return nil, err
		}
		results, err := e.Provider.Search(ctx, keepa.SearchParams{
			Term:    keyword,
			Country: country,
			Limit:   keepa.SearchASINsPerToken,
			Sort:    "sales",
		})
		if err != nil {
			log.Printf("[discovery] search %q failed: %v", keyword, err)
			continue
		}
		cost := (len(results) + keepa.SearchASINsPerToken - 1) / keepa.SearchASINsPerToken
		if cost < 1 {
			cost = 1
		}
		e.Budget.RecordUsage(cost)
		stats.TokensSpent += cost
		add(results)
	}

	if len(asins) > targetCount {
		asins = asins[:targetCount]
	}
	return asins, nil
}

// admit classifies one raw record and, if it passes, upserts it as a product
// with a current price observation and an initial history point.
func (e *DiscoveryEngine) admit(ctx context.Context, record keepa.ProductRecord, category, country string, stats *DiscoveryStats) (*models.Product, bool) {
	// discovery accepts the 90-day average as a last-resort price so new
	// catalog entries don't start out priceless
	price, priceType, hasPrice := record.BestPrice(true)
	if !hasPrice {
		stats.Skipped++
		return nil, false
	}

	if !e.Classifier.IsQualityProduct(record.Title, price, category) {
		// a classifier reject is a decision, not a failure
		stats.Rejected++
		return nil, false
	}

	attrs := ExtractAttributes(record.Title)
	product := &models.Product{
		ASIN:         record.ASIN,
		Title:        record.Title,
		Brand:        record.Brand,
		Category:     category,
		Capacity:     attrs.Capacity,
		CapacityUnit: attrs.CapacityUnit,
		Technology:   attrs.Technology,
		FormFactor:   attrs.FormFactor,
		EnergyLabel:  attrs.EnergyLabel,
		SalesRank:    record.SalesRank,
		UpdatedAt:    e.now(),
	}

	created, err := e.Store.UpsertProduct(ctx, product)
	if err != nil {
		log.Printf("[discovery] upsert product %s failed: %v", record.ASIN, err)
		stats.Failed++
		return nil, false
	}

	obs := &models.PriceObservation{
		ASIN:      record.ASIN,
		Country:   country,
		PriceType: priceType,
		Price:     price,
		UpdatedAt: e.now(),
	}
	if err := e.Store.UpsertPriceObservation(ctx, obs); err != nil {
		log.Printf("[discovery] upsert observation %s/%s failed: %v", record.ASIN, country, err)
		stats.Failed++
		return nil, false
	}

	if _, err := e.History.RecordIfChanged(ctx, record.ASIN, country, priceType, price); err != nil {
		log.Printf("[discovery] history append %s/%s failed: %v", record.ASIN, country, err)
	}

	if created {
		e.seedHistory(ctx, record, country)
		stats.Inserted++
	} else {
		stats.Updated++
	}
	return product, true
}

// seedHistory backfills the price series of a newly admitted product from the
// record's bundled history rows, so its chart isn't empty on day one. Only
// first-time admissions are seeded; revisits would duplicate the series.
func (e *DiscoveryEngine) seedHistory(ctx context.Context, record keepa.ProductRecord, country string) {
	now := e.now()
	for _, pt := range record.HistoryPoints() {
		if !pt.Time.Before(now) {
			continue
		}
		point := &models.PriceHistoryPoint{
			ASIN:       record.ASIN,
			Country:    country,
			PriceType:  keepa.PriceTypeCurrent,
			Price:      pt.Price,
			RecordedAt: pt.Time,
		}
		if err := e.Store.InsertPriceHistoryPoint(ctx, point); err != nil {
			log.Printf("[discovery] history seed %s failed: %v", record.ASIN, err)
			return
		}
	}
}
