package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/pricescout-project/backend/internal/keepa"
	"github.com/pricescout-project/backend/internal/models"
)

// fakeStore is an in-memory Store for unit tests.
type fakeStore struct {
	products     map[string]models.Product
	observations map[string]models.PriceObservation
	history      []models.PriceHistoryPoint

	failUpserts bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		products:     make(map[string]models.Product),
		observations: make(map[string]models.PriceObservation),
	}
}

func (f *fakeStore) UpsertProduct(ctx context.Context, p *models.Product) (bool, error) {
	if f.failUpserts {
		return false, fmt.Errorf("store unavailable")
	}
	_, exists := f.products[p.ASIN]
	f.products[p.ASIN] = *p
	return !exists, nil
}

func (f *fakeStore) GetProduct(ctx context.Context, asin string) (*models.Product, error) {
	p, ok := f.products[asin]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (f *fakeStore) UpsertPriceObservation(ctx context.Context, obs *models.PriceObservation) error {
	if f.failUpserts {
		return fmt.Errorf("store unavailable")
	}
	f.observations[obs.ASIN+"|"+obs.Country] = *obs
	return nil
}

func (f *fakeStore) InsertPriceHistoryPoint(ctx context.Context, pt *models.PriceHistoryPoint) error {
	if f.failUpserts {
		return fmt.Errorf("store unavailable")
	}
	f.history = append(f.history, *pt)
	return nil
}

func (f *fakeStore) LatestHistoryPoint(ctx context.Context, asin, country, priceType string) (*models.PriceHistoryPoint, error) {
	var latest *models.PriceHistoryPoint
	for i := range f.history {
		pt := f.history[i]
		if pt.ASIN != asin || pt.Country != country || pt.PriceType != priceType {
			continue
		}
		if latest == nil || pt.RecordedAt.After(latest.RecordedAt) {
			latest = &f.history[i]
		}
	}
	return latest, nil
}

func (f *fakeStore) SelectStaleProducts(ctx context.Context, cutoff time.Time, limit int) ([]models.Product, error) {
	var stale []models.Product
	for _, p := range f.products {
		if p.UpdatedAt.Before(cutoff) {
			stale = append(stale, p)
		}
	}
	sort.Slice(stale, func(i, j int) bool {
		return stale[i].UpdatedAt.Before(stale[j].UpdatedAt)
	})
	if limit > 0 && len(stale) > limit {
		stale = stale[:limit]
	}
	return stale, nil
}

func (f *fakeStore) CountProducts(ctx context.Context) (int64, error) {
	return int64(len(f.products)), nil
}

// fakeProvider is an in-memory Provider for unit tests.
type fakeProvider struct {
	status        keepa.TokenStatus
	bestsellers   map[int64][]string
	searchResults map[string][]string
	deals         map[int64][]string
	records       map[string]keepa.ProductRecord

	// asins whose chunk fetch should fail
	failASINs map[string]bool
	// records tacked onto every /product response, requested or not
	extraRecords []keepa.ProductRecord

	productCalls [][]string
	lastOpts     keepa.ProductOptions
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		status:        keepa.TokenStatus{TokensLeft: 10000, RefillRate: 5},
		bestsellers:   make(map[int64][]string),
		searchResults: make(map[string][]string),
		deals:         make(map[int64][]string),
		records:       make(map[string]keepa.ProductRecord),
		failASINs:     make(map[string]bool),
	}
}

func (f *fakeProvider) TokenStatus(ctx context.Context) (*keepa.TokenStatus, error) {
	status := f.status
	return &status, nil
}

func (f *fakeProvider) Search(ctx context.Context, params keepa.SearchParams) ([]string, error) {
	return f.searchResults[params.Term], nil
}

func (f *fakeProvider) Bestsellers(ctx context.Context, nodeID int64, country string) ([]string, error) {
	return f.bestsellers[nodeID], nil
}

func (f *fakeProvider) Deals(ctx context.Context, params keepa.DealParams) ([]string, error) {
	return f.deals[params.NodeID], nil
}

func (f *fakeProvider) Products(ctx context.Context, asins []string, country string, opts keepa.ProductOptions) ([]keepa.ProductRecord, error) {
	f.productCalls = append(f.productCalls, asins)
	f.lastOpts = opts
	for _, asin := range asins {
		if f.failASINs[asin] {
			return nil, fmt.Errorf("provider error")
		}
	}
	var records []keepa.ProductRecord
	for _, asin := range asins {
		if record, ok := f.records[asin]; ok {
			records = append(records, record)
		}
	}
	records = append(records, f.extraRecords...)
	return records, nil
}
