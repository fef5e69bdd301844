package marketcache

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/signalscreen/backend/internal/contracts"
	"github.com/wonny/signalscreen/backend/internal/strategyconfig"
	"github.com/wonny/signalscreen/backend/pkg/logger"
	"github.com/wonny/signalscreen/backend/pkg/redis"
)

// Data types, also used as metric labels
const (
	TypePrices       = "prices"
	TypeHeadlines    = "headlines"
	TypeFundamentals = "fundamentals"
	TypeUniverse     = "universe"
)

// Store is a TTL key-value store. *redis.Cache and *MemoryStore satisfy it.
type Store interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// HitRecorder receives cache hit/miss observations
type HitRecorder interface {
	ObserveCache(dataType string, hit bool)
}

// Cache memoizes gateway reads keyed by (ticker, data type, as-of window).
// The window is the current TTL bucket, so a key never outlives its data type's TTL.
// ⭐ SSOT: 시장 데이터 캐시 키/TTL 규칙은 여기서만
type Cache struct {
	store    Store
	cfg      strategyconfig.Cache
	recorder HitRecorder
	now      func() time.Time
	logger   *logger.Logger
}

// NewStore picks Redis when the connection is enabled, otherwise an in-memory store
func NewStore(rc *redis.Cache, maxEntries int, log *logger.Logger) Store {
	if rc != nil && rc.Enabled() {
		log.Info("Market cache backed by Redis")
		return rc
	}
	log.Info("Market cache backed by memory")
	return NewMemoryStore(maxEntries, log)
}

// New creates a cache over store. A nil store or cfg.Enabled=false disables caching.
func New(store Store, cfg strategyconfig.Cache, log *logger.Logger) *Cache {
	return &Cache{
		store:  store,
		cfg:    cfg,
		now:    time.Now,
		logger: log.WithComponent("marketcache"),
	}
}

// WithRecorder attaches a hit/miss recorder
func (c *Cache) WithRecorder(r HitRecorder) *Cache {
	c.recorder = r
	return c
}

// Enabled reports whether reads are cached
func (c *Cache) Enabled() bool {
	return c != nil && c.store != nil && c.cfg.Enabled
}

// CleanExpired drops expired entries from a memory store.
// Redis expires keys itself, so it reports 0 there.
func (c *Cache) CleanExpired() int {
	if c == nil {
		return 0
	}
	if m, ok := c.store.(interface{ CleanExpired() int }); ok {
		return m.CleanExpired()
	}
	return 0
}

// Prices returns the cached series or calls fetch
func (c *Cache) Prices(ctx context.Context, ticker string, rng contracts.PriceRange, fetch func(context.Context) (*contracts.PriceSeries, error)) (*contracts.PriceSeries, error) {
	window := fmt.Sprintf("%dd:%s", rng.Days, c.bucket(c.cfg.PricesTTL))
	return getOrFetch(ctx, c, TypePrices, redis.PriceKey(ticker, window), c.cfg.PricesTTL, fetch)
}

// Headlines returns the cached headlines or calls fetch
func (c *Cache) Headlines(ctx context.Context, ticker string, window time.Duration, fetch func(context.Context) ([]contracts.Headline, error)) ([]contracts.Headline, error) {
	w := fmt.Sprintf("%s:%s", window, c.bucket(c.cfg.HeadlinesTTL))
	return getOrFetch(ctx, c, TypeHeadlines, redis.HeadlinesKey(ticker, w), c.cfg.HeadlinesTTL, fetch)
}

// Fundamentals returns the cached quarters or calls fetch
func (c *Cache) Fundamentals(ctx context.Context, ticker string, fetch func(context.Context) ([]contracts.FundamentalRecord, error)) ([]contracts.FundamentalRecord, error) {
	return getOrFetch(ctx, c, TypeFundamentals, redis.FundamentalsKey(ticker, c.bucket(c.cfg.FundamentalsTTL)), c.cfg.FundamentalsTTL, fetch)
}

// Universe returns the cached constituent list or calls fetch
func (c *Cache) Universe(ctx context.Context, name string, fetch func(context.Context) ([]string, error)) ([]string, error) {
	return getOrFetch(ctx, c, TypeUniverse, redis.UniverseKey(name+":"+c.bucket(c.cfg.UniverseTTL)), c.cfg.UniverseTTL, fetch)
}

// bucket names the TTL-aligned window containing now
func (c *Cache) bucket(ttl time.Duration) string {
	if ttl <= 0 {
		return "0"
	}
	return fmt.Sprintf("%d", c.now().UTC().Truncate(ttl).Unix())
}

// getOrFetch serves key from the store or fills it from fetch.
// Errors are never cached; store failures degrade to a miss.
func getOrFetch[T any](ctx context.Context, c *Cache, dataType, key string, ttl time.Duration, fetch func(context.Context) (T, error)) (T, error) {
	if !c.Enabled() {
		return fetch(ctx)
	}

	var cached T
	hit, err := c.store.Get(ctx, key, &cached)
	if err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Cache read failed")
	}
	c.observe(dataType, hit)
	if hit {
		return cached, nil
	}

	value, err := fetch(ctx)
	if err != nil {
		return value, err
	}

	if err := c.store.Set(ctx, key, value, ttl); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Cache write failed")
	}
	return value, nil
}

func (c *Cache) observe(dataType string, hit bool) {
	if c.recorder != nil {
		c.recorder.ObserveCache(dataType, hit)
	}
}
