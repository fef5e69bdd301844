package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache provides JSON-encoded caching on top of Client
// ⭐ SSOT: 캐시 헬퍼는 여기서만
type Cache struct {
	client *Client
	prefix string
}

// NewCache creates a new cache helper
func NewCache(client *Client, prefix string) *Cache {
	return &Cache{
		client: client,
		prefix: prefix,
	}
}

// Enabled reports whether the backing Redis connection is active
func (c *Cache) Enabled() bool {
	return c.client.Enabled()
}

func (c *Cache) fullKey(key string) string {
	return fmt.Sprintf("%s:cache:%s", c.prefix, key)
}

// Get retrieves a cached value. A missing key is a miss, not an error.
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !c.client.Enabled() {
		return false, nil
	}

	data, err := c.client.Redis().Get(ctx, c.fullKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache get %s: %w", key, err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("cache unmarshal failed: %w", err)
	}

	return true, nil
}

// Set stores a value in cache with TTL
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !c.client.Enabled() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal failed: %w", err)
	}

	return c.client.Redis().Set(ctx, c.fullKey(key), data, ttl).Err()
}

// Delete removes a cached value
func (c *Cache) Delete(ctx context.Context, key string) error {
	if !c.client.Enabled() {
		return nil
	}

	return c.client.Redis().Del(ctx, c.fullKey(key)).Err()
}

// Default TTLs per market data type
const (
	TTLPrices       = 15 * time.Minute // 시세
	TTLHeadlines    = 30 * time.Minute // 뉴스
	TTLFundamentals = 6 * time.Hour    // 재무
	TTLUniverse     = 24 * time.Hour   // 종목 리스트
)

// PriceKey identifies a price series for a ticker within an as-of window
func PriceKey(ticker, window string) string {
	return fmt.Sprintf("prices:%s:%s", ticker, window)
}

// HeadlinesKey identifies the headline set for a ticker within an as-of window
func HeadlinesKey(ticker, window string) string {
	return fmt.Sprintf("headlines:%s:%s", ticker, window)
}

// FundamentalsKey identifies quarterly fundamentals for a ticker within an as-of window
func FundamentalsKey(ticker, window string) string {
	return fmt.Sprintf("fundamentals:%s:%s", ticker, window)
}

// UniverseKey identifies a named constituent list
func UniverseKey(name string) string {
	return fmt.Sprintf("universe:%s", name)
}
