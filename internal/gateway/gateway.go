package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/wonny/signalscreen/backend/internal/contracts"
	"github.com/wonny/signalscreen/backend/internal/external/nasdaq"
	"github.com/wonny/signalscreen/backend/internal/external/news"
	"github.com/wonny/signalscreen/backend/internal/external/wiki"
	"github.com/wonny/signalscreen/backend/internal/external/yahoo"
	"github.com/wonny/signalscreen/backend/internal/marketcache"
	"github.com/wonny/signalscreen/backend/pkg/httputil"
	"github.com/wonny/signalscreen/backend/pkg/logger"
)

// Operation labels (metrics, timeout errors)
const (
	OpPrices       = "price_history"
	OpHeadlines    = "headlines"
	OpFundamentals = "fundamentals"
	OpUniverse     = "universe"
)

// Request outcomes
const (
	OutcomeOK          = "ok"
	OutcomeNotFound    = "not_found"
	OutcomeTimeout     = "timeout"
	OutcomeRateLimited = "rate_limited"
	OutcomeError       = "error"
)

// Recorder receives one observation per upstream request
type Recorder interface {
	ObserveGateway(source, op, outcome string, elapsed time.Duration)
}

// Clients are the upstream sources the gateway routes to
type Clients struct {
	Yahoo  *yahoo.Client
	News   *news.Client
	Wiki   *wiki.Client
	Nasdaq *nasdaq.Client
}

// Gateway is the web-backed contracts.DataGateway.
// Reads go through the market cache; upstream errors are mapped to the contract error types.
// ⭐ SSOT: 외부 시장 데이터 라우팅은 여기서만
type Gateway struct {
	clients  Clients
	cache    *marketcache.Cache
	recorder Recorder
	now      func() time.Time
	logger   *logger.Logger
}

var _ contracts.DataGateway = (*Gateway)(nil)

// New creates a gateway. A nil cache disables caching.
func New(clients Clients, cache *marketcache.Cache, log *logger.Logger) *Gateway {
	return &Gateway{
		clients: clients,
		cache:   cache,
		now:     time.Now,
		logger:  log.WithComponent("gateway"),
	}
}

// WithRecorder attaches a per-request recorder
func (g *Gateway) WithRecorder(r Recorder) *Gateway {
	g.recorder = r
	return g
}

// Cache returns the market cache (nil when caching is off)
func (g *Gateway) Cache() *marketcache.Cache {
	return g.cache
}

// FetchPriceHistory returns daily bars from Yahoo Finance
func (g *Gateway) FetchPriceHistory(ctx context.Context, ticker string, r contracts.PriceRange) (*contracts.PriceSeries, error) {
	fetch := func(ctx context.Context) (*contracts.PriceSeries, error) {
		var series *contracts.PriceSeries
		err := g.call(ctx, yahoo.Source, OpPrices, ticker, func(ctx context.Context) (err error) {
			series, err = g.clients.Yahoo.FetchPriceHistory(ctx, ticker, r, g.now())
			return err
		})
		return series, err
	}
	if g.cache == nil {
		return fetch(ctx)
	}
	return g.cache.Prices(ctx, ticker, r, fetch)
}

// FetchHeadlines returns recent headlines from the news feed
func (g *Gateway) FetchHeadlines(ctx context.Context, ticker string, window time.Duration) ([]contracts.Headline, error) {
	fetch := func(ctx context.Context) ([]contracts.Headline, error) {
		var headlines []contracts.Headline
		err := g.call(ctx, news.Source, OpHeadlines, ticker, func(ctx context.Context) (err error) {
			headlines, err = g.clients.News.FetchHeadlines(ctx, ticker, window)
			return err
		})
		return headlines, err
	}
	if g.cache == nil {
		return fetch(ctx)
	}
	return g.cache.Headlines(ctx, ticker, window, fetch)
}

// FetchFundamentals returns quarterly financials from Yahoo Finance
func (g *Gateway) FetchFundamentals(ctx context.Context, ticker string) ([]contracts.FundamentalRecord, error) {
	fetch := func(ctx context.Context) ([]contracts.FundamentalRecord, error) {
		var records []contracts.FundamentalRecord
		err := g.call(ctx, yahoo.Source, OpFundamentals, ticker, func(ctx context.Context) (err error) {
			records, err = g.clients.Yahoo.FetchFundamentals(ctx, ticker, g.now())
			return err
		})
		return records, err
	}
	if g.cache == nil {
		return fetch(ctx)
	}
	return g.cache.Fundamentals(ctx, ticker, fetch)
}

// FetchUniverse resolves index constituents from Wikipedia and exchange listings from Nasdaq
func (g *Gateway) FetchUniverse(ctx context.Context, name string) ([]string, error) {
	var (
		source string
		load   func(context.Context) ([]string, error)
	)
	switch {
	case wiki.Supports(name):
		source = wiki.Source
		load = func(ctx context.Context) ([]string, error) { return g.clients.Wiki.FetchConstituents(ctx, name) }
	case nasdaq.Supports(name):
		source = nasdaq.Source
		load = func(ctx context.Context) ([]string, error) { return g.clients.Nasdaq.FetchListings(ctx, name) }
	default:
		return nil, fmt.Errorf("unknown universe %q", name)
	}

	fetch := func(ctx context.Context) ([]string, error) {
		var tickers []string
		err := g.call(ctx, source, OpUniverse, name, func(ctx context.Context) (err error) {
			tickers, err = load(ctx)
			return err
		})
		return tickers, err
	}
	if g.cache == nil {
		return fetch(ctx)
	}
	return g.cache.Universe(ctx, name, fetch)
}

// call runs one upstream request, maps its error and records the outcome
func (g *Gateway) call(ctx context.Context, source, op, ticker string, fn func(context.Context) error) error {
	start := time.Now()
	err := translate(source, op, ticker, fn(ctx))
	elapsed := time.Since(start)

	outcome := classify(err)
	if g.recorder != nil {
		g.recorder.ObserveGateway(source, op, outcome, elapsed)
	}

	if err != nil && outcome != OutcomeNotFound {
		g.logger.WithError(err).WithFields(map[string]interface{}{
			"source":  source,
			"op":      op,
			"ticker":  ticker,
			"outcome": outcome,
			"elapsed": elapsed,
		}).Debug("Upstream request failed")
	}
	return err
}

// translate maps transport failures to the contract error types
func translate(source, op, ticker string, err error) error {
	if err == nil {
		return nil
	}

	var (
		nf        *contracts.TickerNotFoundError
		te        *contracts.GatewayTimeoutError
		rl        *contracts.RateLimitError
		statusErr *httputil.StatusError
		netErr    net.Error
	)
	switch {
	case errors.As(err, &nf), errors.As(err, &te), errors.As(err, &rl):
		return err
	case errors.Is(err, httputil.ErrLimiterWait) && !errors.Is(err, context.Canceled):
		// 로컬/Redis 리미터 모두 대기 실패는 쿼터 초과로 취급
		return &contracts.RateLimitError{Source: source, Err: err}
	case errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusTooManyRequests:
		return &contracts.RateLimitError{Source: source, Err: err}
	case errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound && (op == OpPrices || op == OpFundamentals):
		return &contracts.TickerNotFoundError{Ticker: ticker}
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return &contracts.GatewayTimeoutError{Ticker: ticker, Op: op, Err: err}
	}
	return fmt.Errorf("%s %s %s: %w", source, op, ticker, err)
}

func classify(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case contracts.IsTickerNotFound(err):
		return OutcomeNotFound
	case contracts.IsRateLimited(err):
		return OutcomeRateLimited
	case contracts.IsTimeout(err):
		return OutcomeTimeout
	}
	return OutcomeError
}
