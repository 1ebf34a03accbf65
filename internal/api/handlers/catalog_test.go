package handlers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

func TestListProductsServesFromCache(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	defer mr.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	defer redisClient.Close()

	// Pre-populate the cache; on a hit the handler never touches the store.
	cached := `[{"asin":"B0CACHE","title":"Cached GPU"}]`
	key := "catalog:list:gpu:::50:0"
	if err := redisClient.Set(context.Background(), key, cached, time.Minute).Err(); err != nil {
		t.Fatalf("failed to seed cache: %v", err)
	}

	handler := NewCatalogHandler(nil, redisClient)
	app := fiber.New()
	app.Get("/api/v1/products", handler.ListProducts)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/products?category=gpu", nil))
	if err != nil {
		t.Fatalf("failed to call listing endpoint: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status code: %d", resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `"B0CACHE"`) {
		t.Fatalf("expected cached listing payload, got: %s", body)
	}
}
