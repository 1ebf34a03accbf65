/**
 * @description
 * Catalog API Handlers.
 * Exposes read endpoints for products and their recorded price history.
 * Listings are served cache-first from Redis with a short TTL.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2
 * - github.com/redis/go-redis/v9
 * - backend/internal/store
 */

package handlers

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/pricescout-project/backend/internal/store"
	"github.com/redis/go-redis/v9"
)

const listingCacheTTL = 60 * time.Second

type CatalogHandler struct {
	Store *store.CatalogStore
	Redis *redis.Client
}

func NewCatalogHandler(catalogStore *store.CatalogStore, rdb *redis.Client) *CatalogHandler {
	return &CatalogHandler{Store: catalogStore, Redis: rdb}
}

// ListProducts returns catalog entries, filterable by category and brand
// GET /api/v1/products
func (h *CatalogHandler) ListProducts(c *fiber.Ctx) error {
	ctx := c.Context()

	limit := c.QueryInt("limit", 50)
	if limit > 500 {
		limit = 500
	}

	params := store.ListProductsParams{
		Category: c.Query("category"),
		Brand:    c.Query("brand"),
		Sort:     c.Query("sort"),
		Limit:    limit,
		Offset:   c.QueryInt("offset", 0),
	}

	cacheKey := fmt.Sprintf("catalog:list:%s:%s:%s:%d:%d",
		params.Category, params.Brand, params.Sort, params.Limit, params.Offset)

	// 1. Try cache first
	if h.Redis != nil {
		if cached, err := h.Redis.Get(ctx, cacheKey).Result(); err == nil {
			c.Set("Content-Type", "application/json")
			return c.SendString(cached)
		}
	}

	// 2. Fallback to DB
	products, err := h.Store.ListProducts(ctx, params)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch products",
		})
	}

	// 3. Populate cache for the next reader
	if h.Redis != nil {
		if data, err := json.Marshal(products); err == nil {
			h.Redis.Set(ctx, cacheKey, data, listingCacheTTL)
		}
	}

	return c.JSON(products)
}

// GetProduct returns one product by ASIN
// GET /api/v1/products/:asin
func (h *CatalogHandler) GetProduct(c *fiber.Ctx) error {
	ctx := c.Context()

	product, err := h.Store.GetProduct(ctx, c.Params("asin"))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch product",
		})
	}
	if product == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Product not found",
		})
	}
	return c.JSON(product)
}

// GetProductHistory returns the recorded price series for one product
// GET /api/v1/products/:asin/history?country=de&days=90
func (h *CatalogHandler) GetProductHistory(c *fiber.Ctx) error {
	ctx := c.Context()

	days := c.QueryInt("days", 90)
	if days <= 0 || days > 365 {
		days = 90
	}
	country := c.Query("country", "de")
	since := time.Now().AddDate(0, 0, -days)

	points, err := h.Store.HistoryForProduct(ctx, c.Params("asin"), country, since)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch price history",
		})
	}
	return c.JSON(points)
}
