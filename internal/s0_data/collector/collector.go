package collector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wonny/signalscreen/backend/internal/contracts"
	"github.com/wonny/signalscreen/backend/internal/s1_universe"
	"github.com/wonny/signalscreen/backend/pkg/logger"
)

// Store persists collected market data (s0_data.Source implements it)
type Store interface {
	SavePrices(ctx context.Context, series *contracts.PriceSeries) error
	SaveHeadlines(ctx context.Context, ticker string, headlines []contracts.Headline) error
	SaveFundamentals(ctx context.Context, ticker string, records []contracts.FundamentalRecord) error
}

// UniverseStore persists universe membership (s1_universe.Repository implements it)
type UniverseStore interface {
	SaveUniverse(ctx context.Context, universe *contracts.Universe) error
}

// Collector copies market data from a live gateway into the database
// ⭐ SSOT: 데이터 수집 오케스트레이션은 이 패키지에서만
type Collector struct {
	source    contracts.DataGateway
	store     Store
	universes UniverseStore
	logger    *logger.Logger
}

// Config holds collector configuration
type Config struct {
	Workers        int // Number of concurrent workers
	PriceRange     contracts.PriceRange
	HeadlineWindow time.Duration
}

// NewCollector creates a new Collector instance
func NewCollector(source contracts.DataGateway, store Store, universes UniverseStore, log *logger.Logger) *Collector {
	return &Collector{
		source:    source,
		store:     store,
		universes: universes,
		logger:    log.WithComponent("collector"),
	}
}

// FetchResult represents the result of collecting one ticker.
// Error joins every failed dataset; counts reflect what was saved.
type FetchResult struct {
	Ticker        string
	PriceCount    int
	HeadlineCount int
	QuarterCount  int
	Error         error
}

// CollectUniverse fetches, normalizes and stores a named universe
func (c *Collector) CollectUniverse(ctx context.Context, name string) (*contracts.Universe, error) {
	raw, err := c.source.FetchUniverse(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("fetch universe %s: %w", name, err)
	}

	result := s1_universe.NewBuilder(nil, c.logger).Build(name, raw)
	if err := c.universes.SaveUniverse(ctx, &result.Universe); err != nil {
		return nil, fmt.Errorf("save universe %s: %w", name, err)
	}

	c.logger.WithFields(map[string]interface{}{
		"universe": name,
		"tickers":  result.Universe.Count(),
		"excluded": len(result.Excluded),
	}).Info("Universe collected")

	return &result.Universe, nil
}

// CollectAll fetches prices, headlines and fundamentals for every ticker
func (c *Collector) CollectAll(ctx context.Context, tickers []string, cfg Config) []FetchResult {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}

	c.logger.WithFields(map[string]interface{}{
		"ticker_count": len(tickers),
		"days":         cfg.PriceRange.Days,
		"workers":      workers,
	}).Info("Starting market data collection")

	// worker pool
	results := make([]FetchResult, 0, len(tickers))
	resultCh := make(chan FetchResult, len(tickers))

	var wg sync.WaitGroup
	tickerCh := make(chan string, len(tickers))

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			c.worker(ctx, workerID, tickerCh, resultCh, cfg)
		}(i)
	}

	for _, ticker := range tickers {
		tickerCh <- ticker
	}
	close(tickerCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	successCount := 0
	failCount := 0
	for result := range resultCh {
		results = append(results, result)
		if result.Error != nil {
			failCount++
		} else {
			successCount++
		}
	}

	c.logger.WithFields(map[string]interface{}{
		"success": successCount,
		"failed":  failCount,
		"total":   len(results),
	}).Info("Market data collection completed")

	return results
}

func (c *Collector) worker(ctx context.Context, workerID int, tickerCh <-chan string, resultCh chan<- FetchResult, cfg Config) {
	for ticker := range tickerCh {
		select {
		case <-ctx.Done():
			resultCh <- FetchResult{Ticker: ticker, Error: ctx.Err()}
			continue
		default:
		}

		result := c.collect(ctx, ticker, cfg)
		log := c.logger.WithFields(map[string]interface{}{
			"worker":    workerID,
			"ticker":    ticker,
			"prices":    result.PriceCount,
			"headlines": result.HeadlineCount,
			"quarters":  result.QuarterCount,
		})
		if result.Error != nil {
			log.WithError(result.Error).Warn("Collection incomplete")
		} else {
			log.Debug("Collected ticker")
		}
		resultCh <- result
	}
}

// collect saves each dataset independently; a failed one does not stop the others
func (c *Collector) collect(ctx context.Context, ticker string, cfg Config) FetchResult {
	result := FetchResult{Ticker: ticker}
	var errs []error

	series, err := c.source.FetchPriceHistory(ctx, ticker, cfg.PriceRange)
	if err == nil {
		err = c.store.SavePrices(ctx, series)
	}
	if err != nil {
		errs = append(errs, fmt.Errorf("prices: %w", err))
		// 존재하지 않는 종목은 나머지 조회 생략
		if contracts.IsTickerNotFound(err) {
			result.Error = errors.Join(errs...)
			return result
		}
	} else {
		result.PriceCount = series.Len()
	}

	headlines, err := c.source.FetchHeadlines(ctx, ticker, cfg.HeadlineWindow)
	if err == nil {
		err = c.store.SaveHeadlines(ctx, ticker, headlines)
	}
	if err != nil {
		errs = append(errs, fmt.Errorf("headlines: %w", err))
	} else {
		result.HeadlineCount = len(headlines)
	}

	records, err := c.source.FetchFundamentals(ctx, ticker)
	if err == nil {
		err = c.store.SaveFundamentals(ctx, ticker, records)
	}
	if err != nil {
		errs = append(errs, fmt.Errorf("fundamentals: %w", err))
	} else {
		result.QuarterCount = len(records)
	}

	result.Error = errors.Join(errs...)
	return result
}
