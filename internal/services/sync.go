/**
 * @description
 * Sync orchestrator: drives refresh and discovery cycles under the token
 * budget. Single-pass mode runs one full cycle (compliance refresh, then
 * deals + discovery enrichment) and returns a summary; continuous mode
 * repeats the cycle on a rest interval until its context is cancelled.
 *
 * @dependencies
 * - backend/internal/keepa
 * - backend/internal/models
 * - github.com/google/uuid (run identifiers)
 * - github.com/redis/go-redis/v9 (summary cache)
 *
 * @notes
 * - Strictly sequential: batches are processed one at a time because exact
 *   token accounting requires a single writer on the budget counter.
 * - Each record is independently fault-isolated: one persistence failure is
 *   logged and skipped, siblings in the same batch proceed.
 * - Progress lives in persisted staleness cursors, so a killed run resumes
 *   safely (at-least-once, idempotent-by-upsert).
 */

package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/pricescout-project/backend/internal/config"
	"github.com/pricescout-project/backend/internal/keepa"
	"github.com/pricescout-project/backend/internal/logger"
	"github.com/pricescout-project/backend/internal/models"
	"github.com/redis/go-redis/v9"
)

const (
	// SummaryCacheKey holds the last run summary for the status endpoint.
	SummaryCacheKey = "sync:last_summary"
	summaryCacheTTL = 24 * time.Hour

	// politeness delay between provider calls
	interChunkDelay = time.Second

	// deals enrichment caps its candidate list per category and only asks the
	// provider for discounts worth refreshing out of schedule
	dealsPerCategory       = 150
	minDealDiscountPercent = 10

	// discovery only runs when at least this share of the daily budget is left
	discoveryMinBudgetShare = 0.10
)

// PhaseStats tallies one refresh-style phase.
type PhaseStats struct {
	Selected    int `json:"selected"`
	Refreshed   int `json:"refreshed"`
	Skipped     int `json:"skipped"`
	Failed      int `json:"failed"`
	TokensSpent int `json:"tokens_spent"`
}

// SyncSummary is the user-visible result of one cycle.
type SyncSummary struct {
	RunID     string    `json:"run_id"`
	Country   string    `json:"country"`
	Mode      string    `json:"mode"` // "once", "continuous", "refresh-only"
	StartedAt time.Time `json:"started_at"`
	Duration  string    `json:"duration"`

	Refresh   PhaseStats                `json:"refresh"`
	Deals     PhaseStats                `json:"deals"`
	Discovery map[string]DiscoveryStats `json:"discovery,omitempty"`

	TokensUsed      int `json:"tokens_used"`
	TokensRemaining int `json:"tokens_remaining"`
}

// SyncService composes the engine: budget, scheduler, discovery, history.
type SyncService struct {
	Store     Store
	Provider  Provider
	Budget    *TokenBudget
	Scheduler *StalenessScheduler
	Discovery *DiscoveryEngine
	History   *PriceHistoryRecorder
	Redis     *redis.Client
	Cfg       *config.Config

	now func() time.Time
}

func NewSyncService(store Store, provider Provider, rdb *redis.Client, cfg *config.Config) *SyncService {
	budget := NewTokenBudget(cfg.Keepa.DailyTokenBudget, cfg.Keepa.RefillRatePerMinute)
	classifier := NewQualityClassifier()
	history := NewPriceHistoryRecorder(store)
	return &SyncService{
		Store:     store,
		Provider:  provider,
		Budget:    budget,
		Scheduler: NewStalenessScheduler(store, budget),
		Discovery: NewDiscoveryEngine(provider, store, budget, classifier, history),
		History:   history,
		Redis:     rdb,
		Cfg:       cfg,
		now:       time.Now,
	}
}

// RunOnce executes exactly one full cycle: refresh phase, then deals and
// discovery enrichment as budget allows. Partial failures are logged and
// counted, never fatal.
func (s *SyncService) RunOnce(ctx context.Context, country string) (*SyncSummary, error) {
	return s.runCycle(ctx, country, "once", true)
}

// RefreshStalePrices runs only the compliance refresh phase.
func (s *SyncService) RefreshStalePrices(ctx context.Context, country string) (*SyncSummary, error) {
	return s.runCycle(ctx, country, "refresh-only", false)
}

// RunContinuous repeats full cycles with a rest interval in between until the
// context is cancelled.
func (s *SyncService) RunContinuous(ctx context.Context, country string) error {
	for {
		if _, err := s.runCycle(ctx, country, "continuous", true); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Error("Sync cycle failed: %v", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.Cfg.Sync.RestInterval):
		}
	}
}

func (s *SyncService) runCycle(ctx context.Context, country, mode string, enrich bool) (*SyncSummary, error) {
	if country == "" {
		country = s.Cfg.Sync.Country
	}

	start := s.now()
	summary := &SyncSummary{
		RunID:     uuid.New().String(),
		Country:   country,
		Mode:      mode,
		StartedAt: start,
	}

	s.syncRefillRate(ctx)

	// Phase 1: compliance refresh, stalest first.
	if err := s.runRefreshPhase(ctx, country, &summary.Refresh); err != nil {
		return summary, err
	}

	if enrich {
		// Phase 2: deals enrichment catches intraday price drops the
		// staleness schedule would miss.
		s.runDealsPhase(ctx, country, &summary.Deals)

		// Phase 3: discovery, only on leftover budget.
		if s.discoveryAffordable() {
			summary.Discovery = s.runDiscoveryPhase(ctx, country)
		} else {
			log.Printf("[sync] skipping discovery, budget below %.0f%% of daily allowance", discoveryMinBudgetShare*100)
		}
	}

	status := s.Budget.Status()
	summary.TokensUsed = status.Used
	summary.TokensRemaining = status.Remaining
	summary.Duration = s.now().Sub(start).String()

	s.cacheSummary(ctx, summary)
	logger.Info("✅ Sync %s [%s] done in %s — refresh %d/%d, deals %d, tokens used %d (remaining %d)",
		summary.RunID, mode, summary.Duration,
		summary.Refresh.Refreshed, summary.Refresh.Selected,
		summary.Deals.Refreshed, summary.TokensUsed, summary.TokensRemaining)

	return summary, nil
}

// runRefreshPhase pulls one stale batch from the scheduler and refreshes it
// in provider-sized chunks.
func (s *SyncService) runRefreshPhase(ctx context.Context, country string, stats *PhaseStats) error {
	batch, err := s.Scheduler.SelectRefreshBatch(ctx, s.Cfg.Sync.BatchSize)
	if err != nil {
		return fmt.Errorf("failed to select refresh batch: %w", err)
	}
	stats.Selected = len(batch)
	if len(batch) == 0 {
		log.Printf("[sync] nothing stale to refresh")
		return nil
	}

	byASIN := make(map[string]models.Product, len(batch))
	for _, p := range batch {
		byASIN[p.ASIN] = p
	}

	for start := 0; start < len(batch); start += keepa.MaxChunkSize {
		end := start + keepa.MaxChunkSize
		if end > len(batch) {
			end = len(batch)
		}

		asins := make([]string, 0, end-start)
		for _, p := range batch[start:end] {
			asins = append(asins, p.ASIN)
		}

		if err := s.Budget.WaitFor(ctx, len(asins)); err != nil {
			return err
		}

		records, err := s.Provider.Products(ctx, asins, country, keepa.ProductOptions{})
		if err != nil {
			log.Printf("[sync] refresh chunk failed (%d asins): %v", len(asins), err)
			stats.Failed += len(asins)
			continue
		}
		s.Budget.RecordUsage(len(records))
		stats.TokensSpent += len(records)

		returned := make(map[string]bool, len(records))
		for _, record := range records {
			returned[record.ASIN] = true
			product, ok := byASIN[record.ASIN]
			if !ok {
				// a record we never asked for has no catalog row to refresh
				continue
			}
			// the refresh path does not accept a stale 90-day average as a
			// "current" price; a product keeps its last observation instead
			if s.refreshRecord(ctx, &product, record, country, false) {
				stats.Refreshed++
			} else {
				stats.Failed++
			}
		}

		// records the provider omitted still get their cursor bumped, or
		// they would pin the head of every future batch
		for _, asin := range asins {
			if returned[asin] {
				continue
			}
			product := byASIN[asin]
			product.UpdatedAt = s.now()
			if _, err := s.Store.UpsertProduct(ctx, &product); err != nil {
				log.Printf("[sync] cursor bump failed for %s: %v", asin, err)
				stats.Failed++
				continue
			}
			stats.Skipped++
		}

		if err := s.politenessDelay(ctx); err != nil {
			return err
		}
	}

	return nil
}

// runDealsPhase pulls discounted ASINs per category and refreshes the ones we
// already track. Errors degrade to logged skips.
func (s *SyncService) runDealsPhase(ctx context.Context, country string, stats *PhaseStats) {
	for category, spec := range Categories {
		if err := s.Budget.WaitFor(ctx, keepa.DealsTokensPerBlock); err != nil {
			return
		}

		asins, err := s.Provider.Deals(ctx, keepa.DealParams{
			NodeID:     spec.NodeID,
			Country:    country,
			MinPercent: minDealDiscountPercent,
		})
		if err != nil {
			log.Printf("[sync] deals fetch failed for %s: %v", category, err)
			continue
		}
		cost := ((len(asins) + keepa.DealsItemsPerBlock - 1) / keepa.DealsItemsPerBlock) * keepa.DealsTokensPerBlock
		if cost < keepa.DealsTokensPerBlock {
			cost = keepa.DealsTokensPerBlock
		}
		s.Budget.RecordUsage(cost)
		stats.TokensSpent += cost

		if len(asins) > dealsPerCategory {
			asins = asins[:dealsPerCategory]
		}

		// deals only refresh products we already track; discovery owns
		// admitting new ones
		tracked, err := s.filterTracked(ctx, asins)
		if err != nil {
			log.Printf("[sync] deals lookup failed for %s: %v", category, err)
			continue
		}
		stats.Selected += len(tracked)

		for start := 0; start < len(tracked); start += keepa.MaxChunkSize {
			end := start + keepa.MaxChunkSize
			if end > len(tracked) {
				end = len(tracked)
			}
			chunk := tracked[start:end]

			if err := s.Budget.WaitFor(ctx, len(chunk)); err != nil {
				return
			}
			records, err := s.Provider.Products(ctx, chunk, country, keepa.ProductOptions{})
			if err != nil {
				log.Printf("[sync] deals chunk failed for %s (%d asins): %v", category, len(chunk), err)
				stats.Failed += len(chunk)
				continue
			}
			s.Budget.RecordUsage(len(records))
			stats.TokensSpent += len(records)

			for _, record := range records {
				existing, err := s.Store.GetProduct(ctx, record.ASIN)
				if err != nil || existing == nil {
					stats.Skipped++
					continue
				}
				// deal listings may momentarily lack a current price while
				// the discount propagates; the average keeps the gap closed
				if s.refreshRecord(ctx, existing, record, country, true) {
					stats.Refreshed++
				} else {
					stats.Failed++
				}
			}

			if err := s.politenessDelay(ctx); err != nil {
				return
			}
		}
	}
}

// runDiscoveryPhase walks every configured category on leftover budget.
func (s *SyncService) runDiscoveryPhase(ctx context.Context, country string) map[string]DiscoveryStats {
	results := make(map[string]DiscoveryStats, len(Categories))
	for category := range Categories {
		if !s.discoveryAffordable() {
			break
		}
		_, stats, err := s.Discovery.Discover(ctx, category, country, s.Cfg.Sync.DiscoveryTarget)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			log.Printf("[sync] discovery failed for %s: %v", category, err)
		}
		results[category] = stats
	}
	return results
}

// refreshRecord applies one fetched record: title/attribute refresh, cursor
// bump, observation overwrite, conditional history append.
func (s *SyncService) refreshRecord(ctx context.Context, product *models.Product, record keepa.ProductRecord, country string, allowAvg bool) bool {
	if record.Title != "" {
		attrs := ExtractAttributes(record.Title)
		product.Title = record.Title
		product.Capacity = attrs.Capacity
		product.CapacityUnit = attrs.CapacityUnit
		product.Technology = attrs.Technology
		product.FormFactor = attrs.FormFactor
		product.EnergyLabel = attrs.EnergyLabel
	}
	if record.Brand != "" {
		product.Brand = record.Brand
	}
	if record.SalesRank > 0 {
		product.SalesRank = record.SalesRank
	}
	product.UpdatedAt = s.now()

	if _, err := s.Store.UpsertProduct(ctx, product); err != nil {
		log.Printf("[sync] upsert product %s failed: %v", product.ASIN, err)
		return false
	}

	price, priceType, ok := record.BestPrice(allowAvg)
	if !ok {
		// no usable price: cursor still moved, observation untouched
		return true
	}

	obs := &models.PriceObservation{
		ASIN:      product.ASIN,
		Country:   country,
		PriceType: priceType,
		Price:     price,
		UpdatedAt: s.now(),
	}
	if err := s.Store.UpsertPriceObservation(ctx, obs); err != nil {
		log.Printf("[sync] upsert observation %s/%s failed: %v", product.ASIN, country, err)
		return false
	}

	if _, err := s.History.RecordIfChanged(ctx, product.ASIN, country, priceType, price); err != nil {
		log.Printf("[sync] history append %s/%s failed: %v", product.ASIN, country, err)
	}

	return true
}

// filterTracked keeps only ASINs that already exist in the catalog.
func (s *SyncService) filterTracked(ctx context.Context, asins []string) ([]string, error) {
	tracked := make([]string, 0, len(asins))
	for _, asin := range asins {
		product, err := s.Store.GetProduct(ctx, asin)
		if err != nil {
			return nil, err
		}
		if product != nil {
			tracked = append(tracked, asin)
		}
	}
	return tracked, nil
}

func (s *SyncService) discoveryAffordable() bool {
	status := s.Budget.Status()
	return status.CanProceed &&
		float64(status.Remaining) >= float64(s.Budget.DailyLimit)*discoveryMinBudgetShare
}

// syncRefillRate adopts the provider-reported refill rate; the /token call is
// free, so this keeps wait computations honest without spending budget.
func (s *SyncService) syncRefillRate(ctx context.Context) {
	status, err := s.Provider.TokenStatus(ctx)
	if err != nil {
		log.Printf("[sync] token status check failed: %v", err)
		return
	}
	if status.RefillRate > 0 {
		s.Budget.RefillRatePerMinute = status.RefillRate
	}
	log.Printf("[sync] provider reports %d tokens left (refill %d/min)", status.TokensLeft, status.RefillRate)
}

func (s *SyncService) politenessDelay(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(interChunkDelay):
		return nil
	}
}

func (s *SyncService) cacheSummary(ctx context.Context, summary *SyncSummary) {
	if s.Redis == nil {
		return
	}
	data, err := json.Marshal(summary)
	if err != nil {
		log.Printf("Failed to marshal sync summary for cache: %v", err)
		return
	}
	if err := s.Redis.Set(ctx, SummaryCacheKey, data, summaryCacheTTL).Err(); err != nil {
		log.Printf("Failed to cache sync summary: %v", err)
	}
}
