package shipping

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/go-querystring/query"
	cache "github.com/patrickmn/go-cache"

	"github.com/sellora/marketplace/libs/clients"
	appctx "github.com/sellora/marketplace/libs/context"
)

const (
	defaultCacheExpiry = time.Hour
	defaultCachePurge  = 10 * time.Minute
)

// Client abstracts over the shipping rate provider
type Client interface {
	GetQuote(ctx context.Context, originID, destinationID string, weightGrams int, carrier string) (*Quote, error)
	Provinces(ctx context.Context, filter *ProvinceFilter) ([]Province, error)
	Cities(ctx context.Context, filter *CityFilter) ([]City, error)
}

// Quote is the price of shipping one parcel
type Quote struct {
	Service string `json:"service"`
	Cost    int64  `json:"cost"`
	ETA     string `json:"etd"`
}

// Province is a first level administrative area
type Province struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// City belongs to a Province
type City struct {
	ID         string `json:"id"`
	ProvinceID string `json:"province_id"`
	Name       string `json:"name"`
	Type       string `json:"type"`
	PostalCode string `json:"postal_code"`
}

// QuoteUnavailableError is returned for any failure to obtain a quote
type QuoteUnavailableError struct {
	Reason string
	Err    error
}

func (e *QuoteUnavailableError) Error() string {
	if e.Err == nil {
		return "shipping quote unavailable: " + e.Reason
	}
	return fmt.Sprintf("shipping quote unavailable: %s: %v", e.Reason, e.Err)
}

func (e *QuoteUnavailableError) Unwrap() error {
	return e.Err
}

// QuoteOptions are the query parameters of a quote request
type QuoteOptions struct {
	Origin      string `url:"origin"`
	Destination string `url:"destination"`
	Weight      int    `url:"weight"`
	Courier     string `url:"courier"`
}

// GenerateQueryString - implement the QueryStringBody interface
func (o *QuoteOptions) GenerateQueryString() (url.Values, error) {
	return query.Values(o)
}

// ProvinceFilter narrows the province list
type ProvinceFilter struct {
	Search string `url:"search,omitempty"`
}

// GenerateQueryString - implement the QueryStringBody interface
func (f *ProvinceFilter) GenerateQueryString() (url.Values, error) {
	return query.Values(f)
}

// CityFilter narrows the city list
type CityFilter struct {
	ProvinceID string `url:"province_id,omitempty"`
	Search     string `url:"search,omitempty"`
}

// GenerateQueryString - implement the QueryStringBody interface
func (f *CityFilter) GenerateQueryString() (url.Values, error) {
	return query.Values(f)
}

type listResponse[T any] struct {
	Data []T `json:"data"`
}

// HTTPClient talks to the shipping rate provider over http
type HTTPClient struct {
	client  *clients.SimpleHTTPClient
	cache   *cache.Cache
	breaker *clients.Breaker
}

// NewWithContext returns a new Client, retrieving the server url, token and cache expiry from the context
func NewWithContext(ctx context.Context) (Client, error) {
	serverURL, err := appctx.GetStringFromContext(ctx, appctx.ShippingServerCTXKey)
	if err != nil {
		return nil, fmt.Errorf("failed to get ShippingServer from context: %w", err)
	}

	accessToken, err := appctx.GetStringFromContext(ctx, appctx.ShippingAccessTokenCTXKey)
	if err != nil {
		return nil, fmt.Errorf("failed to get ShippingAccessToken from context: %w", err)
	}

	expires, err := appctx.GetDurationFromContext(ctx, appctx.ShippingCacheExpiryDurationCTXKey)
	if err != nil {
		expires = defaultCacheExpiry
	}

	client, err := clients.NewInstrumented("shipping", serverURL, accessToken)
	if err != nil {
		return nil, err
	}

	return NewClientWithPrometheus(New(client, expires), "shipping_client"), nil
}

// New returns an HTTPClient using client for transport
func New(client *clients.SimpleHTTPClient, cacheExpiry time.Duration) *HTTPClient {
	return &HTTPClient{
		client:  client,
		cache:   cache.New(cacheExpiry, defaultCachePurge),
		breaker: clients.NewBreaker("shipping"),
	}
}

// GetQuote asks for the cost of sending weightGrams from originID to destinationID and
// returns the cheapest service of carrier. Quotes are never cached and never retried.
func (c *HTTPClient) GetQuote(ctx context.Context, originID, destinationID string, weightGrams int, carrier string) (*Quote, error) {
	opts := &QuoteOptions{
		Origin:      originID,
		Destination: destinationID,
		Weight:      weightGrams,
		Courier:     carrier,
	}

	quotes, err := clients.Call(c.breaker, func() ([]Quote, error) {
		req, err := c.client.NewRequest(ctx, http.MethodGet, "/v1/calculate", nil, opts)
		if err != nil {
			return nil, err
		}

		var body listResponse[Quote]
		if _, err := c.client.Do(ctx, req, &body); err != nil {
			return nil, err
		}
		return body.Data, nil
	})
	if err != nil {
		reason := "request failed"
		if errors.Is(err, clients.ErrCircuitOpen) {
			reason = "provider circuit open"
		}
		return nil, &QuoteUnavailableError{Reason: reason, Err: err}
	}

	if len(quotes) == 0 {
		return nil, &QuoteUnavailableError{Reason: "no rates for route"}
	}

	cheapest := quotes[0]
	for _, q := range quotes[1:] {
		if q.Cost < cheapest.Cost {
			cheapest = q
		}
	}

	return &cheapest, nil
}

// Provinces lists provinces matching filter
func (c *HTTPClient) Provinces(ctx context.Context, filter *ProvinceFilter) ([]Province, error) {
	if filter == nil {
		filter = &ProvinceFilter{}
	}
	return cachedList[Province](ctx, c, "/v1/destination/provinces", filter)
}

// Cities lists cities matching filter
func (c *HTTPClient) Cities(ctx context.Context, filter *CityFilter) ([]City, error) {
	if filter == nil {
		filter = &CityFilter{}
	}
	return cachedList[City](ctx, c, "/v1/destination/cities", filter)
}

func cachedList[T any](ctx context.Context, c *HTTPClient, path string, qsb clients.QueryStringBody) ([]T, error) {
	qs, err := qsb.GenerateQueryString()
	if err != nil {
		return nil, fmt.Errorf("failed to encode filter: %w", err)
	}

	cacheKey := path + "?" + qs.Encode()
	if v, found := c.cache.Get(cacheKey); found {
		return v.([]T), nil
	}

	result, err := clients.Call(c.breaker, func() ([]T, error) {
		req, err := c.client.NewRequest(ctx, http.MethodGet, path, nil, qsb)
		if err != nil {
			return nil, err
		}

		var body listResponse[T]
		if _, err := c.client.Do(ctx, req, &body); err != nil {
			return nil, err
		}
		return body.Data, nil
	})
	if err != nil {
		return nil, err
	}

	c.cache.Set(cacheKey, result, cache.DefaultExpiration)

	return result, nil
}
