package contracts

import (
	"context"
	"time"
)

// DataGateway is the only path from the engine to external market data.
// Implementations own transport, retry, rate limiting and caching.
// ⭐ SSOT: 외부 데이터 접근 인터페이스
type DataGateway interface {
	// FetchPriceHistory may return *TickerNotFoundError
	FetchPriceHistory(ctx context.Context, ticker string, r PriceRange) (*PriceSeries, error)

	// FetchHeadlines returns headlines published within window; empty is valid
	FetchHeadlines(ctx context.Context, ticker string, window time.Duration) ([]Headline, error)

	// FetchFundamentals returns quarters oldest first; records may be partial
	FetchFundamentals(ctx context.Context, ticker string) ([]FundamentalRecord, error)

	// FetchUniverse returns the constituents of a named index or exchange
	FetchUniverse(ctx context.Context, name string) ([]string, error)
}
