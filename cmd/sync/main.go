/**
 * @description
 * Manual single-pass sync: one compliance refresh cycle plus enrichment,
 * then a printed summary.
 *
 * Usage: sync [country]
 *
 * @notes
 * - Boots an in-memory redis so the summary cache works without
 *   infrastructure; the one-shot run doesn't need a shared cache.
 * - Exits 0 even when individual records failed (they are logged and
 *   counted); exits 1 only when required credentials are absent.
 */

package main

import (
	"context"
	"log"
	"os"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/pricescout-project/backend/internal/config"
	"github.com/pricescout-project/backend/internal/db"
	"github.com/pricescout-project/backend/internal/keepa"
	"github.com/pricescout-project/backend/internal/services"
	"github.com/pricescout-project/backend/internal/store"
	"github.com/redis/go-redis/v9"
)

func main() {
	log.Println("🚀 Starting manual catalog sync...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	country := cfg.Sync.Country
	if len(os.Args) > 1 {
		country = os.Args[1]
	}

	pgDB, err := db.ConnectPostgres(cfg)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}

	mr, err := miniredis.Run()
	if err != nil {
		log.Fatalf("failed to start in-memory redis: %v", err)
	}
	defer mr.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	catalogStore := store.NewCatalogStore(pgDB)
	keepaClient := keepa.NewClient(cfg)
	service := services.NewSyncService(catalogStore, keepaClient, redisClient, cfg)

	ctx := context.Background()

	summary, err := service.RunOnce(ctx, country)
	if err != nil {
		log.Fatalf("sync failed: %v", err)
	}

	log.Printf("✅ Sync %s completed in %s", summary.RunID, summary.Duration)
	log.Printf("   refresh: %d selected, %d refreshed, %d skipped, %d failed",
		summary.Refresh.Selected, summary.Refresh.Refreshed, summary.Refresh.Skipped, summary.Refresh.Failed)
	log.Printf("   deals:   %d selected, %d refreshed, %d failed",
		summary.Deals.Selected, summary.Deals.Refreshed, summary.Deals.Failed)
	for category, stats := range summary.Discovery {
		log.Printf("   discovery[%s]: %d inserted, %d updated, %d rejected, %d skipped",
			category, stats.Inserted, stats.Updated, stats.Rejected, stats.Skipped)
	}
	log.Printf("   tokens: %d used, %d remaining", summary.TokensUsed, summary.TokensRemaining)
}
