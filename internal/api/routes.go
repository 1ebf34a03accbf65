/**
 * @description
 * API Route definitions.
 * Sets up the router groups and assigns handlers.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2
 * - backend/internal/api/handlers
 * - backend/internal/api/middleware
 * - backend/internal/services
 * - backend/internal/keepa
 */

package api

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/pricescout-project/backend/internal/api/handlers"
	"github.com/pricescout-project/backend/internal/api/middleware"
	"github.com/pricescout-project/backend/internal/config"
	"github.com/pricescout-project/backend/internal/keepa"
	"github.com/pricescout-project/backend/internal/services"
	"github.com/pricescout-project/backend/internal/store"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// SetupRoutes configures all API routes
func SetupRoutes(app *fiber.App, db *gorm.DB, rdb *redis.Client, cfg *config.Config) {
	// 1. Initialize Middleware
	if err := middleware.InitAuthMiddleware(cfg); err != nil {
		log.Printf("Failed to init auth middleware: %v", err)
		// App still starts; protected routes will fail until configured.
	}

	// 2. Initialize Services
	catalogStore := store.NewCatalogStore(db)
	keepaClient := keepa.NewClient(cfg)
	syncService := services.NewSyncService(catalogStore, keepaClient, rdb, cfg)

	// 3. Initialize Handlers
	catalogHandler := handlers.NewCatalogHandler(catalogStore, rdb)
	syncHandler := handlers.NewSyncHandler(syncService, rdb)

	// 4. Define Routes
	api := app.Group("/api")
	v1 := api.Group("/v1")

	// Public Routes
	v1.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Catalog Routes (Public)
	products := v1.Group("/products")
	products.Get("/", catalogHandler.ListProducts)
	products.Get("/:asin", catalogHandler.GetProduct)
	products.Get("/:asin/history", catalogHandler.GetProductHistory)

	// Sync Routes
	sync := v1.Group("/sync")
	sync.Get("/status", syncHandler.GetStatus)
	sync.Post("/trigger", middleware.Protected(), syncHandler.TriggerSync)
}
