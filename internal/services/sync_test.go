package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/pricescout-project/backend/internal/config"
	"github.com/pricescout-project/backend/internal/keepa"
	"github.com/pricescout-project/backend/internal/models"
)

func testSyncConfig() *config.Config {
	return &config.Config{
		Keepa: config.KeepaConfig{
			DailyTokenBudget:    4320,
			RefillRatePerMinute: 3,
		},
		Sync: config.SyncConfig{
			Country:         "de",
			BatchSize:       500,
			RestInterval:    time.Minute,
			DiscoveryTarget: 10,
		},
	}
}

func TestRefreshStalePricesUpdatesObservationsAndCursor(t *testing.T) {
	ctx := context.Background()
	fs := newFakeStore()
	fp := newFakeProvider()
	stale := time.Now().Add(-2 * time.Hour)

	fs.products["P1"] = models.Product{ASIN: "P1", Category: "gpu", UpdatedAt: stale}
	fs.products["P2"] = models.Product{ASIN: "P2", Category: "cpu", UpdatedAt: stale}
	fp.records["P1"] = keepa.ProductRecord{ASIN: "P1", Title: "GeForce RTX 4070", Stats: keepa.PriceStats{Current: 59900}}
	fp.records["P2"] = keepa.ProductRecord{ASIN: "P2", Title: "Ryzen 7 7800X3D", Stats: keepa.PriceStats{Current: 34900}}

	svc := NewSyncService(fs, fp, nil, testSyncConfig())

	summary, err := svc.RefreshStalePrices(ctx, "de")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.Refresh.Selected != 2 || summary.Refresh.Refreshed != 2 {
		t.Fatalf("unexpected refresh tallies: %+v", summary.Refresh)
	}
	obs, ok := fs.observations["P1|de"]
	if !ok || obs.Price != 599.00 || obs.PriceType != keepa.PriceTypeCurrent {
		t.Fatalf("expected refreshed observation for P1, got %+v", obs)
	}
	if !fs.products["P1"].UpdatedAt.After(stale) {
		t.Fatal("expected the staleness cursor to move forward")
	}
}

func TestRefreshBumpsCursorForOmittedRecords(t *testing.T) {
	ctx := context.Background()
	fs := newFakeStore()
	fp := newFakeProvider()
	stale := time.Now().Add(-2 * time.Hour)

	fs.products["P1"] = models.Product{ASIN: "P1", UpdatedAt: stale}
	fs.products["P2"] = models.Product{ASIN: "P2", UpdatedAt: stale}
	// the provider only knows P1; P2 must not pin future batches
	fp.records["P1"] = keepa.ProductRecord{ASIN: "P1", Title: "GeForce RTX 4070", Stats: keepa.PriceStats{Current: 59900}}

	svc := NewSyncService(fs, fp, nil, testSyncConfig())

	summary, err := svc.RefreshStalePrices(ctx, "de")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.Refresh.Refreshed != 1 || summary.Refresh.Skipped != 1 {
		t.Fatalf("unexpected refresh tallies: %+v", summary.Refresh)
	}
	if !fs.products["P2"].UpdatedAt.After(stale) {
		t.Fatal("expected the omitted record's cursor to be bumped anyway")
	}
	if _, ok := fs.observations["P2|de"]; ok {
		t.Fatal("expected no observation for a record the provider omitted")
	}
}

func TestRefreshPathRejectsAverageOnlyPrice(t *testing.T) {
	ctx := context.Background()
	fs := newFakeStore()
	fp := newFakeProvider()
	stale := time.Now().Add(-2 * time.Hour)

	fs.products["P1"] = models.Product{ASIN: "P1", UpdatedAt: stale}
	// only a 90-day average: good enough for discovery, not for a refresh
	fp.records["P1"] = keepa.ProductRecord{ASIN: "P1", Title: "GeForce RTX 4070", Stats: keepa.PriceStats{Current: -1, New: -1, Avg90: 49900}}

	svc := NewSyncService(fs, fp, nil, testSyncConfig())

	summary, err := svc.RefreshStalePrices(ctx, "de")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.Refresh.Refreshed != 1 {
		t.Fatalf("expected the record itself to still refresh, got %+v", summary.Refresh)
	}
	if _, ok := fs.observations["P1|de"]; ok {
		t.Fatal("expected no observation from an average-only record on the refresh path")
	}
	if !fs.products["P1"].UpdatedAt.After(stale) {
		t.Fatal("expected the cursor to move even without a usable price")
	}
}

func TestRefreshIgnoresUnrequestedRecords(t *testing.T) {
	ctx := context.Background()
	fs := newFakeStore()
	fp := newFakeProvider()
	stale := time.Now().Add(-2 * time.Hour)

	fs.products["P1"] = models.Product{ASIN: "P1", UpdatedAt: stale}
	fp.records["P1"] = keepa.ProductRecord{ASIN: "P1", Title: "GeForce RTX 4070", Stats: keepa.PriceStats{Current: 59900}}
	// the provider answers with a record nobody asked about
	fp.extraRecords = []keepa.ProductRecord{
		{ASIN: "GHOST", Title: "Unsolicited Item", Stats: keepa.PriceStats{Current: 9900}},
	}

	svc := NewSyncService(fs, fp, nil, testSyncConfig())

	summary, err := svc.RefreshStalePrices(ctx, "de")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.Refresh.Refreshed != 1 {
		t.Fatalf("expected only the requested record refreshed, got %+v", summary.Refresh)
	}
	if _, ok := fs.products[""]; ok {
		t.Fatal("expected no empty-keyed product row from an unrequested record")
	}
	if _, ok := fs.products["GHOST"]; ok {
		t.Fatal("expected the unrequested record to be ignored entirely")
	}
}

func TestRefreshIsolatesRecordFailures(t *testing.T) {
	ctx := context.Background()
	fs := newFakeStore()
	fp := newFakeProvider()
	stale := time.Now().Add(-2 * time.Hour)

	fs.products["P1"] = models.Product{ASIN: "P1", UpdatedAt: stale}
	fp.records["P1"] = keepa.ProductRecord{ASIN: "P1", Title: "GeForce RTX 4070", Stats: keepa.PriceStats{Current: 59900}}
	fs.failUpserts = true

	svc := NewSyncService(fs, fp, nil, testSyncConfig())

	summary, err := svc.RefreshStalePrices(ctx, "de")
	if err != nil {
		t.Fatalf("expected a persistence failure to be absorbed, got %v", err)
	}
	if summary.Refresh.Failed != 1 || summary.Refresh.Refreshed != 0 {
		t.Fatalf("expected the failing record counted, got %+v", summary.Refresh)
	}
}

func TestRunOnceCachesSummary(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	ctx := context.Background()
	svc := NewSyncService(newFakeStore(), newFakeProvider(), rdb, testSyncConfig())

	summary, err := svc.RunOnce(ctx, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Country != "de" {
		t.Fatalf("expected the configured default country, got %q", summary.Country)
	}
	if summary.Mode != "once" {
		t.Fatalf("expected mode once, got %q", summary.Mode)
	}

	raw, err := rdb.Get(ctx, SummaryCacheKey).Result()
	if err != nil {
		t.Fatalf("expected the summary to be cached: %v", err)
	}
	var cached SyncSummary
	if err := json.Unmarshal([]byte(raw), &cached); err != nil {
		t.Fatalf("failed to unmarshal cached summary: %v", err)
	}
	if cached.RunID != summary.RunID {
		t.Fatalf("cached summary run %q does not match returned run %q", cached.RunID, summary.RunID)
	}
}

func TestRunContinuousStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := NewSyncService(newFakeStore(), newFakeProvider(), nil, testSyncConfig())

	err := svc.RunContinuous(ctx, "de")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
