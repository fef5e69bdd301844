package marketcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/signalscreen/backend/internal/contracts"
	"github.com/wonny/signalscreen/backend/internal/strategyconfig"
	"github.com/wonny/signalscreen/backend/pkg/config"
	"github.com/wonny/signalscreen/backend/pkg/logger"
	"github.com/wonny/signalscreen/backend/pkg/redis"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

type hits map[string][2]int

func (h hits) ObserveCache(dataType string, hit bool) {
	v := h[dataType]
	if hit {
		v[0]++
	} else {
		v[1]++
	}
	h[dataType] = v
}

func newTestCache(clk *clock) (*Cache, *MemoryStore) {
	store := NewMemoryStore(100, logger.Nop())
	store.now = clk.now
	c := New(store, strategyconfig.Default().Cache, logger.Nop())
	c.now = clk.now
	return c, store
}

func TestMemoryStore_TTL(t *testing.T) {
	clk := &clock{t: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
	store := NewMemoryStore(10, logger.Nop())
	store.now = clk.now
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []string{"AAPL"}, time.Minute))

	var got []string
	ok, err := store.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"AAPL"}, got)

	clk.advance(time.Minute)
	ok, err = store.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, ok, "expired at exactly ttl")
}

func TestMemoryStore_Eviction(t *testing.T) {
	clk := &clock{t: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
	store := NewMemoryStore(2, logger.Nop())
	store.now = clk.now
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "a", 1, time.Hour))
	clk.advance(time.Second)
	require.NoError(t, store.Set(ctx, "b", 2, time.Hour))
	clk.advance(time.Second)
	require.NoError(t, store.Set(ctx, "c", 3, time.Hour))

	assert.Equal(t, 2, store.Len())
	var v int
	ok, _ := store.Get(ctx, "a", &v)
	assert.False(t, ok, "oldest entry evicted")
	ok, _ = store.Get(ctx, "c", &v)
	assert.True(t, ok)
}

func TestMemoryStore_CleanExpired(t *testing.T) {
	clk := &clock{t: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
	store := NewMemoryStore(10, logger.Nop())
	store.now = clk.now
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "short", 1, time.Minute))
	require.NoError(t, store.Set(ctx, "long", 2, time.Hour))
	assert.Equal(t, 0, store.CleanExpired())

	clk.advance(2 * time.Minute)
	assert.Equal(t, 1, store.CleanExpired())
	assert.Equal(t, 1, store.Len())
}

func TestCache_CleanExpired(t *testing.T) {
	clk := &clock{t: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
	c, store := newTestCache(clk)
	require.NoError(t, store.Set(context.Background(), "k", 1, time.Minute))

	clk.advance(time.Hour)
	assert.Equal(t, 1, c.CleanExpired())

	var nilCache *Cache
	assert.Equal(t, 0, nilCache.CleanExpired())
}

func TestCache_HitAndMiss(t *testing.T) {
	clk := &clock{t: time.Date(2024, 5, 1, 10, 1, 0, 0, time.UTC)}
	c, _ := newTestCache(clk)
	rec := hits{}
	c.WithRecorder(rec)
	ctx := context.Background()

	calls := 0
	fetch := func(context.Context) (*contracts.PriceSeries, error) {
		calls++
		return &contracts.PriceSeries{Ticker: "AAPL", Bars: []contracts.Bar{{Close: 190}}}, nil
	}

	first, err := c.Prices(ctx, "AAPL", contracts.DefaultPriceRange, fetch)
	require.NoError(t, err)
	second, err := c.Prices(ctx, "AAPL", contracts.DefaultPriceRange, fetch)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)
	assert.Equal(t, [2]int{1, 1}, rec[TypePrices])

	// 다른 기간은 별도 키
	_, err = c.Prices(ctx, "AAPL", contracts.PriceRange{Days: 30}, fetch)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestCache_WindowRollover(t *testing.T) {
	clk := &clock{t: time.Date(2024, 5, 1, 10, 1, 0, 0, time.UTC)}
	c, _ := newTestCache(clk)
	ctx := context.Background()

	calls := 0
	fetch := func(context.Context) ([]contracts.Headline, error) {
		calls++
		return []contracts.Headline{{Text: "Apple beats estimates"}}, nil
	}

	_, _ = c.Headlines(ctx, "AAPL", 7*24*time.Hour, fetch)
	clk.advance(10 * time.Minute)
	_, _ = c.Headlines(ctx, "AAPL", 7*24*time.Hour, fetch)
	assert.Equal(t, 1, calls)

	clk.advance(30 * time.Minute)
	_, _ = c.Headlines(ctx, "AAPL", 7*24*time.Hour, fetch)
	assert.Equal(t, 2, calls, "new window after headline ttl")
}

func TestCache_ErrorsNotCached(t *testing.T) {
	clk := &clock{t: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
	c, store := newTestCache(clk)
	ctx := context.Background()

	boom := errors.New("upstream 500")
	_, err := c.Fundamentals(ctx, "AAPL", func(context.Context) ([]contracts.FundamentalRecord, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, store.Len())

	got, err := c.Fundamentals(ctx, "AAPL", func(context.Context) ([]contracts.FundamentalRecord, error) {
		return []contracts.FundamentalRecord{{Revenue: contracts.Amount(1000)}}, nil
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Revenue.Decimal.Equal(contracts.Amount(1000).Decimal))
}

func TestCache_Disabled(t *testing.T) {
	cfg := strategyconfig.Default().Cache
	cfg.Enabled = false
	c := New(NewMemoryStore(10, logger.Nop()), cfg, logger.Nop())

	calls := 0
	fetch := func(context.Context) ([]string, error) {
		calls++
		return []string{"AAPL", "MSFT"}, nil
	}
	_, _ = c.Universe(context.Background(), "dow30", fetch)
	_, _ = c.Universe(context.Background(), "dow30", fetch)

	assert.False(t, c.Enabled())
	assert.Equal(t, 2, calls)
}

func TestNewStore_FallsBackToMemory(t *testing.T) {
	client, err := redis.New(&config.Config{Redis: config.RedisConfig{Enabled: false}})
	require.NoError(t, err)

	store := NewStore(redis.NewCache(client, "signalscreen"), 10, logger.Nop())
	_, ok := store.(*MemoryStore)
	assert.True(t, ok)

	store = NewStore(nil, 10, logger.Nop())
	_, ok = store.(*MemoryStore)
	assert.True(t, ok)
}
