/**
 * @description
 * Sync API Handlers.
 * Exposes the last run summary (from the Redis cache) and a protected
 * trigger for an on-demand single-pass sync.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2
 * - github.com/redis/go-redis/v9
 * - backend/internal/services
 */

package handlers

import (
	"context"
	"encoding/json"
	"sync/atomic"

	"github.com/gofiber/fiber/v2"
	"github.com/pricescout-project/backend/internal/logger"
	"github.com/pricescout-project/backend/internal/services"
	"github.com/redis/go-redis/v9"
)

type SyncHandler struct {
	Service *services.SyncService
	Redis   *redis.Client

	// running serializes triggered cycles: the engine's budget counter is
	// single-writer, so at most one cycle may run at a time.
	running atomic.Bool
}

func NewSyncHandler(service *services.SyncService, rdb *redis.Client) *SyncHandler {
	return &SyncHandler{Service: service, Redis: rdb}
}

// GetStatus returns the last sync run summary plus the live budget snapshot
// GET /api/v1/sync/status
func (h *SyncHandler) GetStatus(c *fiber.Ctx) error {
	ctx := c.Context()

	resp := fiber.Map{}
	if h.Service != nil {
		resp["budget"] = h.Service.Budget.Status()
	}

	val, err := h.Redis.Get(ctx, services.SummaryCacheKey).Result()
	if err == nil {
		var summary services.SyncSummary
		if err := json.Unmarshal([]byte(val), &summary); err == nil {
			resp["last_run"] = summary
			return c.JSON(resp)
		}
	}

	resp["last_run"] = nil
	return c.JSON(resp)
}

// TriggerSync starts a single-pass sync in the background
// POST /api/v1/sync/trigger?country=de
func (h *SyncHandler) TriggerSync(c *fiber.Ctx) error {
	if h.Service == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Sync service not configured",
		})
	}

	if !h.running.CompareAndSwap(false, true) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "A sync run is already in progress",
		})
	}

	country := c.Query("country")

	// detach from the request: a full cycle can take minutes
	go func() {
		defer h.running.Store(false)
		summary, err := h.Service.RunOnce(context.Background(), country)
		if err != nil {
			logger.Error("Triggered sync failed: %v", err)
			return
		}
		logger.Info("Triggered sync %s finished", summary.RunID)
	}()

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"status": "sync started",
	})
}
