package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/pricescout-project/backend/internal/services"
	"github.com/redis/go-redis/v9"
)

func TestGetStatusReturnsCachedSummary(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	defer mr.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	defer redisClient.Close()

	summary := services.SyncSummary{
		RunID:     "run-123",
		Country:   "de",
		Mode:      "once",
		StartedAt: time.Now().UTC(),
	}
	data, _ := json.Marshal(summary)
	if err := redisClient.Set(context.Background(), services.SummaryCacheKey, data, 0).Err(); err != nil {
		t.Fatalf("failed to seed cache: %v", err)
	}

	service := &services.SyncService{
		Budget: services.NewTokenBudget(100, 3),
	}

	handler := NewSyncHandler(service, redisClient)
	app := fiber.New()
	app.Get("/api/v1/sync/status", handler.GetStatus)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/sync/status", nil))
	if err != nil {
		t.Fatalf("failed to call status endpoint: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status code: %d", resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `"run-123"`) {
		t.Fatalf("expected cached summary in response, got: %s", body)
	}
	if !strings.Contains(string(body), `"budget"`) {
		t.Fatalf("expected budget snapshot in response, got: %s", body)
	}
}

func TestGetStatusWithoutPriorRun(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	defer mr.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	defer redisClient.Close()

	handler := NewSyncHandler(&services.SyncService{Budget: services.NewTokenBudget(100, 3)}, redisClient)
	app := fiber.New()
	app.Get("/api/v1/sync/status", handler.GetStatus)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/sync/status", nil))
	if err != nil {
		t.Fatalf("failed to call status endpoint: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status code: %d", resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `"last_run":null`) {
		t.Fatalf("expected null last_run, got: %s", body)
	}
}

func TestTriggerSyncWithoutService(t *testing.T) {
	handler := NewSyncHandler(nil, nil)
	app := fiber.New()
	app.Post("/api/v1/sync/trigger", handler.TriggerSync)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/v1/sync/trigger", nil))
	if err != nil {
		t.Fatalf("failed to call trigger endpoint: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without a configured service, got %d", resp.StatusCode)
	}
}

func TestTriggerSyncRejectsConcurrentRun(t *testing.T) {
	handler := NewSyncHandler(&services.SyncService{Budget: services.NewTokenBudget(100, 3)}, nil)
	app := fiber.New()
	app.Post("/api/v1/sync/trigger", handler.TriggerSync)

	// a cycle is already in flight; the budget counter is single-writer,
	// so a second trigger must be turned away
	handler.running.Store(true)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/v1/sync/trigger", nil))
	if err != nil {
		t.Fatalf("failed to call trigger endpoint: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 while a run is in progress, got %d", resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "already in progress") {
		t.Fatalf("expected in-progress error body, got: %s", body)
	}
}
