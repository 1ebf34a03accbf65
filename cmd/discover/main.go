/**
 * @description
 * Manual discovery run for one category.
 *
 * Usage: discover <category> [country] [count]
 */

package main

import (
	"context"
	"log"
	"os"
	"strconv"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/pricescout-project/backend/internal/config"
	"github.com/pricescout-project/backend/internal/db"
	"github.com/pricescout-project/backend/internal/keepa"
	"github.com/pricescout-project/backend/internal/services"
	"github.com/pricescout-project/backend/internal/store"
	"github.com/redis/go-redis/v9"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatalf("usage: discover <category> [country] [count]")
	}
	category := os.Args[1]

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	country := cfg.Sync.Country
	if len(os.Args) > 2 {
		country = os.Args[2]
	}
	count := cfg.Sync.DiscoveryTarget
	if len(os.Args) > 3 {
		if n, err := strconv.Atoi(os.Args[3]); err == nil && n > 0 {
			count = n
		}
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

	log.Printf("🔍 Discovering up to %d %s products on the %s storefront...", count, category, country)

	products, stats, err := service.Discovery.Discover(context.Background(), category, country, count)
	if err != nil {
		log.Fatalf("discovery failed: %v", err)
	}

	for _, p := range products {
		log.Printf("   + %s  %s", p.ASIN, p.Title)
	}
	log.Printf("✅ Discovery done: %d inserted, %d updated, %d rejected, %d skipped, %d failed (%d tokens)",
		stats.Inserted, stats.Updated, stats.Rejected, stats.Skipped, stats.Failed, stats.TokensSpent)
}
