/**
 * @description
 * Worker Service Entry Point.
 * Runs the sync engine in continuous mode: refresh stale products, pull
 * deals, discover new candidates, rest, repeat.
 *
 * @dependencies
 * - backend/internal/config
 * - backend/internal/db
 * - backend/internal/keepa
 * - backend/internal/services
 *
 * @notes
 * - SIGINT/SIGTERM cancel the run context; the cycle stops at its next
 *   suspension point. Progress lives in persisted staleness cursors, so a
 *   mid-cycle shutdown resumes safely on restart.
 */

package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/pricescout-project/backend/internal/config"
	"github.com/pricescout-project/backend/internal/db"
	"github.com/pricescout-project/backend/internal/keepa"
	"github.com/pricescout-project/backend/internal/logger"
	"github.com/pricescout-project/backend/internal/services"
	"github.com/pricescout-project/backend/internal/store"
)

func main() {
	logger.Info("🔥 Starting PriceScout Sync Worker...")

	// 1. Load Config (missing credentials abort before any network call)
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config: %v", err)
	}

	// 2. Connect DBs
	pgDB, err := db.ConnectPostgres(cfg)
	if err != nil {
		logger.Fatal("Postgres connection failed: %v", err)
	}

	redisClient, err := db.ConnectRedis(cfg)
	if err != nil {
		logger.Fatal("Redis connection failed: %v", err)
	}

	// 3. Initialize Services
	catalogStore := store.NewCatalogStore(pgDB)
	keepaClient := keepa.NewClient(cfg)
	syncService := services.NewSyncService(catalogStore, keepaClient, redisClient, cfg)

	// 4. Context with Cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 5. Continuous Sync Loop
	done := make(chan error, 1)
	go func() {
		done <- syncService.RunContinuous(ctx, cfg.Sync.Country)
	}()

	// 6. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info("Shutting down worker...")
		cancel()
		<-done
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Fatal("Sync loop failed: %v", err)
		}
	}

	logger.Info("Worker exited.")
}
