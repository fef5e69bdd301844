package collector

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/signalscreen/backend/internal/contracts"
	"github.com/wonny/signalscreen/backend/pkg/logger"
)

type fakeSource struct {
	known        map[string]bool
	headlinesErr error
	universe     []string
}

func (f *fakeSource) FetchPriceHistory(_ context.Context, ticker string, r contracts.PriceRange) (*contracts.PriceSeries, error) {
	if !f.known[ticker] {
		return nil, &contracts.TickerNotFoundError{Ticker: ticker}
	}
	series := &contracts.PriceSeries{Ticker: ticker}
	for i := 0; i < r.Days; i++ {
		series.Bars = append(series.Bars, contracts.Bar{Close: float64(100 + i)})
	}
	return series, nil
}

func (f *fakeSource) FetchHeadlines(_ context.Context, ticker string, _ time.Duration) ([]contracts.Headline, error) {
	if f.headlinesErr != nil {
		return nil, f.headlinesErr
	}
	return []contracts.Headline{{Text: ticker + " rallies"}}, nil
}

func (f *fakeSource) FetchFundamentals(_ context.Context, _ string) ([]contracts.FundamentalRecord, error) {
	return []contracts.FundamentalRecord{{}, {}}, nil
}

func (f *fakeSource) FetchUniverse(_ context.Context, _ string) ([]string, error) {
	return f.universe, nil
}

type memoryStore struct {
	mu        sync.Mutex
	prices    map[string]int
	headlines map[string]int
	quarters  map[string]int
	universe  *contracts.Universe
	failSave  error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		prices:    make(map[string]int),
		headlines: make(map[string]int),
		quarters:  make(map[string]int),
	}
}

func (m *memoryStore) SavePrices(_ context.Context, series *contracts.PriceSeries) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSave != nil {
		return m.failSave
	}
	m.prices[series.Ticker] = series.Len()
	return nil
}

func (m *memoryStore) SaveHeadlines(_ context.Context, ticker string, headlines []contracts.Headline) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.headlines[ticker] = len(headlines)
	return nil
}

func (m *memoryStore) SaveFundamentals(_ context.Context, ticker string, records []contracts.FundamentalRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quarters[ticker] = len(records)
	return nil
}

func (m *memoryStore) SaveUniverse(_ context.Context, u *contracts.Universe) error {
	m.universe = u
	return nil
}

func byTicker(results []FetchResult) map[string]FetchResult {
	out := make(map[string]FetchResult, len(results))
	for _, r := range results {
		out[r.Ticker] = r
	}
	return out
}

func testConfig() Config {
	return Config{Workers: 3, PriceRange: contracts.PriceRange{Days: 5}, HeadlineWindow: time.Hour}
}

func TestCollectAll(t *testing.T) {
	source := &fakeSource{known: map[string]bool{"AAPL": true, "MSFT": true, "JPM": true}}
	store := newMemoryStore()
	c := NewCollector(source, store, store, logger.Nop())

	results := c.CollectAll(context.Background(), []string{"AAPL", "MSFT", "JPM", "GONE"}, testConfig())
	require.Len(t, results, 4)

	got := byTicker(results)
	for _, ticker := range []string{"AAPL", "MSFT", "JPM"} {
		assert.NoError(t, got[ticker].Error, ticker)
		assert.Equal(t, 5, got[ticker].PriceCount)
		assert.Equal(t, 1, got[ticker].HeadlineCount)
		assert.Equal(t, 2, got[ticker].QuarterCount)
	}

	assert.True(t, contracts.IsTickerNotFound(got["GONE"].Error))
	_, saved := store.headlines["GONE"]
	assert.False(t, saved, "not-found ticker skips remaining datasets")
}

func TestCollectAll_PartialFailure(t *testing.T) {
	headlinesErr := errors.New("feed unavailable")
	source := &fakeSource{known: map[string]bool{"AAPL": true}, headlinesErr: headlinesErr}
	store := newMemoryStore()
	c := NewCollector(source, store, store, logger.Nop())

	results := c.CollectAll(context.Background(), []string{"AAPL"}, testConfig())
	require.Len(t, results, 1)

	r := results[0]
	assert.ErrorIs(t, r.Error, headlinesErr)
	assert.Equal(t, 5, r.PriceCount, "prices saved despite headline failure")
	assert.Equal(t, 0, r.HeadlineCount)
	assert.Equal(t, 2, r.QuarterCount)
}

func TestCollectAll_StoreError(t *testing.T) {
	saveErr := errors.New("disk full")
	source := &fakeSource{known: map[string]bool{"AAPL": true}}
	store := newMemoryStore()
	store.failSave = saveErr
	c := NewCollector(source, store, store, logger.Nop())

	results := c.CollectAll(context.Background(), []string{"AAPL"}, testConfig())
	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Error, saveErr)
	assert.Equal(t, 0, results[0].PriceCount)
}

func TestCollectAll_Cancelled(t *testing.T) {
	source := &fakeSource{known: map[string]bool{"AAPL": true, "MSFT": true}}
	store := newMemoryStore()
	c := NewCollector(source, store, store, logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := c.CollectAll(ctx, []string{"AAPL", "MSFT"}, testConfig())
	require.Len(t, results, 2)
	for _, r := range results {
		assert.ErrorIs(t, r.Error, context.Canceled)
	}
	assert.Empty(t, store.prices)
}

func TestCollectUniverse(t *testing.T) {
	source := &fakeSource{universe: []string{"aapl", "BRK.B", "AAPL", "bad symbol!"}}
	store := newMemoryStore()
	c := NewCollector(source, store, store, logger.Nop())

	u, err := c.CollectUniverse(context.Background(), contracts.UniverseDow30)
	require.NoError(t, err)

	tickers := append([]string(nil), u.Tickers...)
	sort.Strings(tickers)
	assert.Equal(t, []string{"AAPL", "BRK-B"}, tickers)
	assert.Same(t, u, store.universe)
}
