/**
 * @description
 * Refresh-only run: updates stale prices without deals or discovery.
 *
 * Usage: refresh [country]
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

	log.Printf("🔄 Refreshing stale prices on the %s storefront...", country)

	summary, err := service.RefreshStalePrices(context.Background(), country)
	if err != nil {
		log.Fatalf("refresh failed: %v", err)
	}

	log.Printf("✅ Refresh %s done: %d selected, %d refreshed, %d skipped, %d failed (tokens: %d used, %d remaining)",
		summary.RunID, summary.Refresh.Selected, summary.Refresh.Refreshed,
		summary.Refresh.Skipped, summary.Refresh.Failed,
		summary.TokensUsed, summary.TokensRemaining)
}
