package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wonny/signalscreen/backend/pkg/config"
)

func disabledClient(t *testing.T) *Client {
	t.Helper()
	client, err := New(&config.Config{Redis: config.RedisConfig{Enabled: false}})
	require.NoError(t, err)
	return client
}

func TestNewClient_Disabled(t *testing.T) {
	client := disabledClient(t)

	assert.False(t, client.Enabled())
	assert.NoError(t, client.Close())
}

func TestNewClient_Unreachable(t *testing.T) {
	start := time.Now()
	_, err := New(&config.Config{Redis: config.RedisConfig{Enabled: true, Host: "127.0.0.1", Port: "1"}})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "127.0.0.1:1")
	assert.Less(t, time.Since(start), 2*connectTimeout)
}

func TestNilClient(t *testing.T) {
	var client *Client

	assert.False(t, client.Enabled())
	assert.Empty(t, client.Addr())
	assert.NoError(t, client.Close())
}

func TestRateLimiter_Disabled(t *testing.T) {
	limiter := NewRateLimiter(disabledClient(t), "test")
	cfg := SourceRateLimit("yahoo", 5)

	allowed, remaining, err := limiter.Allow(context.Background(), cfg)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, 5, remaining)

	assert.NoError(t, limiter.For(cfg).Wait(context.Background()))
}

func TestSourceRateLimit(t *testing.T) {
	cfg := SourceRateLimit("news", 0)
	assert.Equal(t, "news", cfg.Key)
	assert.Equal(t, 1, cfg.Limit)
	assert.Equal(t, time.Second, cfg.Window)
}

func TestCache_Disabled(t *testing.T) {
	cache := NewCache(disabledClient(t), "test")
	ctx := context.Background()

	assert.False(t, cache.Enabled())
	assert.NoError(t, cache.Set(ctx, "k", "v", time.Minute))

	var result string
	found, err := cache.Get(ctx, "k", &result)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCacheKeys(t *testing.T) {
	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{"PriceKey", PriceKey("AAPL", "2024-01-15T14"), "prices:AAPL:2024-01-15T14"},
		{"HeadlinesKey", HeadlinesKey("AAPL", "w1"), "headlines:AAPL:w1"},
		{"FundamentalsKey", FundamentalsKey("MSFT", "w2"), "fundamentals:MSFT:w2"},
		{"UniverseKey", UniverseKey("sp500"), "universe:sp500"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.got)
		})
	}
}
