// Package catalog is a PartSource backed by a JSON catalog API.
//
// Endpoints, relative to Config.BaseURL:
//
//	GET /search?q=<query>&category=<category>&limit=<n>  -> {"items": [item...]}
//	GET /parts/<id>                                      -> item
//
// An item is
//
//	{"id": "...", "name": "...", "brand": "...", "category": "...",
//	 "price": 599.0, "currency": "USD", "url": "...", "image": "...",
//	 "specs": {"memory": "12 GB", "boost_clock_mhz": 2475}}
//
// String specs become text values and numeric specs number values.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jonwraymond/partsource/adapters"
	"github.com/jonwraymond/partsource/provider"
)

// Config configures a catalog Source.
type Config struct {
	// BaseURL is the API root, for example https://api.example.com/v2.
	BaseURL string

	// APIKey is sent in APIKeyHeader when set.
	APIKey string

	// APIKeyHeader names the header carrying APIKey.
	// Default: X-API-Key
	APIKeyHeader string

	// RequireKey makes the source unavailable while APIKey is empty.
	RequireKey bool

	// Currency is used for items that do not declare one.
	Currency string

	// HTTPClient performs requests.
	// If nil, a default client with 30s timeout is used.
	HTTPClient *http.Client
}

// Source implements provider.PartSource.
type Source struct {
	config Config
}

// New creates a catalog Source.
func New(config Config) *Source {
	if config.APIKeyHeader == "" {
		config.APIKeyHeader = "X-API-Key"
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{
			Timeout: 30 * time.Second,
		}
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	return &Source{config: config}
}

// IsAvailable reports whether the source is configured. It does no I/O.
func (s *Source) IsAvailable(context.Context) bool {
	if s.config.BaseURL == "" {
		return false
	}
	return !s.config.RequireKey || s.config.APIKey != ""
}

// SearchParts implements provider.PartSource.
func (s *Source) SearchParts(ctx context.Context, query, category string, limit int) ([]provider.NormalizedResult, error) {
	q := url.Values{}
	q.Set("q", query)
	if category != "" {
		q.Set("category", category)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var body searchResponse
	if err := s.get(ctx, "/search?"+q.Encode(), &body); err != nil {
		return nil, err
	}

	out := make([]provider.NormalizedResult, 0, len(body.Items))
	for _, it := range body.Items {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, it.normalize(s.config.Currency))
	}
	return out, nil
}

// GetPartDetails implements provider.PartSource.
func (s *Source) GetPartDetails(ctx context.Context, id string) (provider.NormalizedResult, error) {
	if id == "" {
		return provider.NormalizedResult{}, provider.Errorf(provider.KindPermanent, "empty identifier")
	}
	var it item
	if err := s.get(ctx, "/parts/"+url.PathEscape(id), &it); err != nil {
		return provider.NormalizedResult{}, err
	}
	return it.normalize(s.config.Currency), nil
}

func (s *Source) get(ctx context.Context, path string, into any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.config.BaseURL+path, nil)
	if err != nil {
		return provider.Wrap(provider.KindPermanent, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if s.config.APIKey != "" {
		req.Header.Set(s.config.APIKeyHeader, s.config.APIKey)
	}

	resp, err := s.config.HTTPClient.Do(req)
	if err != nil {
		return adapters.TransportError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return adapters.StatusError(resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		return provider.Wrap(provider.KindPermanent, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

type searchResponse struct {
	Items []item `json:"items"`
}

type item struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Brand    string         `json:"brand"`
	Category string         `json:"category"`
	Price    float64        `json:"price"`
	Currency string         `json:"currency"`
	URL      string         `json:"url"`
	Image    string         `json:"image"`
	Specs    map[string]any `json:"specs"`
}

func (it item) normalize(currency string) provider.NormalizedResult {
	r := provider.NormalizedResult{
		ID:       it.ID,
		Name:     it.Name,
		Brand:    it.Brand,
		Category: it.Category,
		Price:    it.Price,
		Currency: it.Currency,
		URL:      it.URL,
		Image:    it.Image,
	}
	if r.Currency == "" {
		r.Currency = currency
	}
	if len(it.Specs) > 0 {
		r.Specifications = make(map[string]provider.SpecValue, len(it.Specs))
		for k, v := range it.Specs {
			switch v := v.(type) {
			case float64:
				r.Specifications[k] = provider.Number(v, "")
			case string:
				r.Specifications[k] = provider.Text(v)
			case bool:
				r.Specifications[k] = provider.Text(strconv.FormatBool(v))
			}
		}
	}
	return r
}

var _ provider.PartSource = (*Source)(nil)
