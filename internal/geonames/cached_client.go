package geonames

import (
	"context"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	cacheTTL      = 24 * time.Hour
	maxCachedKeys = 64
)

// CachedClient memoizes SearchCities per country code. GeoNames free-tier
// quotas are tight and the city list for a country barely changes, so a
// 24-hour TTL is safe.
type CachedClient struct {
	inner ClientInterface
	cache *expirable.LRU[string, []City]
}

func NewCachedClient(inner ClientInterface) *CachedClient {
	return &CachedClient{
		inner: inner,
		cache: expirable.NewLRU[string, []City](maxCachedKeys, nil, cacheTTL),
	}
}

func (c *CachedClient) SearchCities(ctx context.Context, countryCode string) ([]City, error) {
	key := strings.ToUpper(strings.TrimSpace(countryCode))
	if cities, ok := c.cache.Get(key); ok {
		return cities, nil
	}

	cities, err := c.inner.SearchCities(ctx, countryCode)
	if err != nil {
		return nil, err
	}

	c.cache.Add(key, cities)
	return cities, nil
}

var _ ClientInterface = (*CachedClient)(nil)
