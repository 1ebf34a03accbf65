/**
 * @description
 * HTTP Client for the Keepa product-data API.
 * Fetches token status, bestseller/search/deal ASIN lists and full product records.
 *
 * @dependencies
 * - net/http
 * - encoding/json
 * - backend/internal/config
 *
 * @notes
 * - Token costs (billed by the provider, mirrored by the budget tracker):
 *   search ~1 per 50 ASINs, bestsellers flat ~50 per call, deals ~5 per 150
 *   items, products exactly 1 per record returned.
 * - MaxChunkSize is the provider's hard cap on ASINs per /product call.
 */

package keepa

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pricescout-project/backend/internal/config"
)

const (
	DefaultTimeout = 30 * time.Second

	// MaxChunkSize is the most ASINs a single /product call accepts.
	MaxChunkSize = 100

	// BestsellersTokenCost is billed per bestsellers call regardless of list size.
	BestsellersTokenCost = 50
	// SearchASINsPerToken: one token buys up to this many search results.
	SearchASINsPerToken = 50
	// DealsItemsPerBlock / DealsTokensPerBlock: five tokens per 150 deal items.
	DealsItemsPerBlock  = 150
	DealsTokensPerBlock = 5
)

type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		BaseURL: cfg.Keepa.APIURL,
		APIKey:  cfg.Keepa.APIKey,
		HTTPClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
}

// TokenStatus fetches the account's remaining token allowance. Free of charge.
func (c *Client) TokenStatus(ctx context.Context) (*TokenStatus, error) {
	q := url.Values{}
	q.Set("key", c.APIKey)

	var body tokenResponse
	if err := c.get(ctx, "/token", q, &body); err != nil {
		return nil, err
	}
	if body.Error != nil {
		return nil, body.Error
	}

	return &TokenStatus{TokensLeft: body.TokensLeft, RefillRate: body.RefillRate}, nil
}

// SearchParams holds query parameters for keyword search
type SearchParams struct {
	Term    string
	Country string
	Limit   int
	Sort    string // "sales", "price", ""
}

// Search runs a keyword search and returns matching ASINs.
func (c *Client) Search(ctx context.Context, params SearchParams) ([]string, error) {
	if strings.TrimSpace(params.Term) == "" {
		return nil, fmt.Errorf("search term cannot be empty")
	}

	q := url.Values{}
	q.Set("key", c.APIKey)
	q.Set("domain", strconv.Itoa(DomainID(params.Country)))
	q.Set("term", params.Term)
	if params.Limit > 0 {
		q.Set("limit", strconv.Itoa(params.Limit))
	}
	if params.Sort != "" {
		q.Set("sort", params.Sort)
	}

	var body asinListResponse
	if err := c.get(ctx, "/search", q, &body); err != nil {
		return nil, err
	}
	if body.Error != nil {
		return nil, body.Error
	}

	return body.ASINList, nil
}

// Bestsellers fetches the bestseller ASIN list for a category node.
func (c *Client) Bestsellers(ctx context.Context, nodeID int64, country string) ([]string, error) {
	q := url.Values{}
	q.Set("key", c.APIKey)
	q.Set("domain", strconv.Itoa(DomainID(country)))
	q.Set("category", strconv.FormatInt(nodeID, 10))

	var body asinListResponse
	if err := c.get(ctx, "/bestsellers", q, &body); err != nil {
		return nil, err
	}
	if body.Error != nil {
		return nil, body.Error
	}

	return body.ASINList, nil
}

// DealParams holds query parameters for the deals feed
type DealParams struct {
	NodeID     int64
	Country    string
	MinPercent int // minimum discount, 0 = provider default
}

// Deals fetches discounted ASINs for a category node.
func (c *Client) Deals(ctx context.Context, params DealParams) ([]string, error) {
	q := url.Values{}
	q.Set("key", c.APIKey)
	q.Set("domain", strconv.Itoa(DomainID(params.Country)))
	q.Set("category", strconv.FormatInt(params.NodeID, 10))
	if params.MinPercent > 0 {
		q.Set("deltaPercent", strconv.Itoa(params.MinPercent))
	}

	var body asinListResponse
	if err := c.get(ctx, "/deal", q, &body); err != nil {
		return nil, err
	}
	if body.Error != nil {
		return nil, body.Error
	}

	return body.ASINList, nil
}

// ProductOptions controls the payload of a /product call
type ProductOptions struct {
	IncludeHistory bool
	Days           int
}

// Products fetches full records for up to MaxChunkSize ASINs.
// Costs one token per record returned.
func (c *Client) Products(ctx context.Context, asins []string, country string, opts ProductOptions) ([]ProductRecord, error) {
	if len(asins) == 0 {
		return nil, nil
	}
	if len(asins) > MaxChunkSize {
		return nil, fmt.Errorf("at most %d asins per product call, got %d", MaxChunkSize, len(asins))
	}

	q := url.Values{}
	q.Set("key", c.APIKey)
	q.Set("domain", strconv.Itoa(DomainID(country)))
	q.Set("asin", strings.Join(asins, ","))
	q.Set("stats", "90")
	if opts.IncludeHistory {
		q.Set("history", "1")
		if opts.Days > 0 {
			q.Set("days", strconv.Itoa(opts.Days))
		}
	} else {
		q.Set("history", "0")
	}

	var body productResponse
	if err := c.get(ctx, "/product", q, &body); err != nil {
		return nil, err
	}
	if body.Error != nil {
		return nil, body.Error
	}

	return body.Products, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out interface{}) error {
	u, err := url.Parse(c.BaseURL + path)
	if err != nil {
		return err
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("keepa api error: status %d on %s", resp.StatusCode, path)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
