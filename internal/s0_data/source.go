package s0_data

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/signalscreen/backend/internal/contracts"
	"github.com/wonny/signalscreen/backend/pkg/logger"
)

// FundamentalQuarters is how many stored quarters FetchFundamentals returns
const FundamentalQuarters = 8

// UniverseLoader reads stored universe membership (s1_universe.Repository)
type UniverseLoader interface {
	LoadUniverse(ctx context.Context, name string) ([]string, error)
}

// Source serves market data previously collected into PostgreSQL.
// It satisfies contracts.DataGateway so a scan can run without network access.
// ⭐ SSOT: DB 기반 DataGateway
type Source struct {
	prices     *PriceRepository
	headlines  *HeadlineRepository
	financials *FinancialRepository
	universes  UniverseLoader
	now        func() time.Time
	logger     *logger.Logger
}

var _ contracts.DataGateway = (*Source)(nil)

// NewSource creates a database-backed gateway
func NewSource(pool *pgxpool.Pool, universes UniverseLoader, log *logger.Logger) *Source {
	return &Source{
		prices:     NewPriceRepository(pool),
		headlines:  NewHeadlineRepository(pool),
		financials: NewFinancialRepository(pool),
		universes:  universes,
		now:        time.Now,
		logger:     log.WithComponent("pgsource"),
	}
}

// Prices exposes the price repository (collector writes through it)
func (s *Source) Prices() *PriceRepository { return s.prices }

// Headlines exposes the headline repository
func (s *Source) Headlines() *HeadlineRepository { return s.headlines }

// Financials exposes the financial repository
func (s *Source) Financials() *FinancialRepository { return s.financials }

// FetchPriceHistory returns stored bars for the last r.Days days.
// A ticker with no stored bars at all is reported as not found.
func (s *Source) FetchPriceHistory(ctx context.Context, ticker string, r contracts.PriceRange) (*contracts.PriceSeries, error) {
	to := s.now().UTC()
	from := to.AddDate(0, 0, -r.Days)

	series, err := s.prices.GetSeries(ctx, ticker, from, to)
	if err != nil {
		return nil, err
	}
	if series.Len() > 0 {
		return series, nil
	}

	// 기간 내 데이터 없음: 종목 자체가 없는지 확인
	exists, err := s.prices.Exists(ctx, ticker)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, &contracts.TickerNotFoundError{Ticker: ticker}
	}
	return series, nil
}

// FetchHeadlines returns stored headlines within window
func (s *Source) FetchHeadlines(ctx context.Context, ticker string, window time.Duration) ([]contracts.Headline, error) {
	return s.headlines.GetSince(ctx, ticker, s.now().UTC().Add(-window))
}

// FetchFundamentals returns the latest stored quarters, oldest first
func (s *Source) FetchFundamentals(ctx context.Context, ticker string) ([]contracts.FundamentalRecord, error) {
	return s.financials.GetQuarters(ctx, ticker, FundamentalQuarters)
}

// FetchUniverse returns stored universe membership
func (s *Source) FetchUniverse(ctx context.Context, name string) ([]string, error) {
	if s.universes == nil {
		return nil, fmt.Errorf("universe %s: no universe store configured", name)
	}
	tickers, err := s.universes.LoadUniverse(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(tickers) == 0 {
		return nil, fmt.Errorf("universe %s: not collected yet", name)
	}

	s.logger.WithFields(map[string]interface{}{
		"universe": name,
		"tickers":  len(tickers),
	}).Debug("Loaded stored universe")

	return tickers, nil
}

// SavePrices stores a collected series
func (s *Source) SavePrices(ctx context.Context, series *contracts.PriceSeries) error {
	return s.prices.SaveSeries(ctx, series)
}

// SaveHeadlines stores collected headlines
func (s *Source) SaveHeadlines(ctx context.Context, ticker string, headlines []contracts.Headline) error {
	return s.headlines.SaveBatch(ctx, ticker, headlines)
}

// SaveFundamentals stores collected quarters
func (s *Source) SaveFundamentals(ctx context.Context, ticker string, records []contracts.FundamentalRecord) error {
	return s.financials.SaveBatch(ctx, ticker, records)
}
