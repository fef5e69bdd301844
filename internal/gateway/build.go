package gateway

import (
	"math"

	"golang.org/x/time/rate"

	"github.com/wonny/signalscreen/backend/internal/external/nasdaq"
	"github.com/wonny/signalscreen/backend/internal/external/news"
	"github.com/wonny/signalscreen/backend/internal/external/wiki"
	"github.com/wonny/signalscreen/backend/internal/external/yahoo"
	"github.com/wonny/signalscreen/backend/internal/marketcache"
	"github.com/wonny/signalscreen/backend/internal/strategyconfig"
	"github.com/wonny/signalscreen/backend/pkg/config"
	"github.com/wonny/signalscreen/backend/pkg/httputil"
	"github.com/wonny/signalscreen/backend/pkg/logger"
	"github.com/wonny/signalscreen/backend/pkg/metrics"
	"github.com/wonny/signalscreen/backend/pkg/redis"
)

const keyPrefix = "signalscreen"

// Deps are the shared resources a web gateway is built from
type Deps struct {
	Config   *config.Config
	Cache    strategyconfig.Cache
	Redis    *redis.Client     // nil or disabled: local limiters and memory cache
	Recorder *metrics.Recorder // nil: no metrics
	Logger   *logger.Logger
}

// Build wires one rate-limited HTTP client per source, the market cache and the recorder
func Build(d Deps) *Gateway {
	clients := Clients{
		Yahoo:  yahoo.NewClient(httpClient(d, yahoo.Source), d.Logger),
		News:   news.NewClient(httpClient(d, news.Source), d.Config.Gateway.NewsRegion, d.Logger),
		Wiki:   wiki.NewClient(httpClient(d, wiki.Source), d.Logger),
		Nasdaq: nasdaq.NewClient(httpClient(d, nasdaq.Source), d.Logger),
	}

	var rc *redis.Cache
	if d.Redis != nil {
		rc = redis.NewCache(d.Redis, keyPrefix)
	}
	cache := marketcache.New(marketcache.NewStore(rc, d.Cache.MemoryMaxEntries, d.Logger), d.Cache, d.Logger)

	g := New(clients, cache, d.Logger)
	if d.Recorder != nil {
		cache.WithRecorder(d.Recorder)
		g.WithRecorder(d.Recorder)
	}
	return g
}

func httpClient(d Deps, source string) *httputil.Client {
	return httputil.New(d.Config, d.Logger).WithLimiter(limiter(d, source))
}

// limiter shares the per-source quota through Redis when it is available
func limiter(d Deps, source string) httputil.Limiter {
	rps := d.Config.Gateway.RequestsPerSecond
	if d.Redis != nil && d.Redis.Enabled() {
		perSecond := int(math.Ceil(rps))
		return redis.NewRateLimiter(d.Redis, keyPrefix).For(redis.SourceRateLimit(source, perSecond))
	}
	return rate.NewLimiter(rate.Limit(rps), d.Config.Gateway.Burst)
}
