package selection

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/signalscreen/backend/internal/contracts"
	"github.com/wonny/signalscreen/backend/internal/strategyconfig"
	"github.com/wonny/signalscreen/backend/pkg/logger"
)

// behavior scripts one ticker in the fake gateway
type behavior struct {
	closes       []float64
	headlines    []contracts.Headline
	fundamentals []contracts.FundamentalRecord

	priceErr, headlineErr, fundamentalErr error

	// 해당 호출은 ctx 종료까지 대기
	blockPrices, blockHeadlines, blockFundamentals bool
}

type fakeGateway struct {
	tickers  map[string]behavior
	universe []string

	priceCalls    sync.Map // ticker → *int32
	inFlight      int32
	maxInFlight   int32
	priceDelay    time.Duration
	siblingsEnded int32
}

func newFakeGateway(tickers map[string]behavior) *fakeGateway {
	return &fakeGateway{tickers: tickers}
}

func (g *fakeGateway) FetchPriceHistory(ctx context.Context, ticker string, _ contracts.PriceRange) (*contracts.PriceSeries, error) {
	n, _ := g.priceCalls.LoadOrStore(ticker, new(int32))
	atomic.AddInt32(n.(*int32), 1)

	cur := atomic.AddInt32(&g.inFlight, 1)
	defer atomic.AddInt32(&g.inFlight, -1)
	for {
		peak := atomic.LoadInt32(&g.maxInFlight)
		if cur <= peak || atomic.CompareAndSwapInt32(&g.maxInFlight, peak, cur) {
			break
		}
	}
	if g.priceDelay > 0 {
		time.Sleep(g.priceDelay)
	}

	b, ok := g.tickers[ticker]
	if !ok {
		return nil, &contracts.TickerNotFoundError{Ticker: ticker}
	}
	if b.blockPrices {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if b.priceErr != nil {
		return nil, b.priceErr
	}
	return series(ticker, b.closes), nil
}

func (g *fakeGateway) FetchHeadlines(ctx context.Context, ticker string, _ time.Duration) ([]contracts.Headline, error) {
	b, ok := g.tickers[ticker]
	if !ok || b.blockHeadlines {
		<-ctx.Done()
		atomic.AddInt32(&g.siblingsEnded, 1)
		return nil, ctx.Err()
	}
	return b.headlines, b.headlineErr
}

func (g *fakeGateway) FetchFundamentals(ctx context.Context, ticker string) ([]contracts.FundamentalRecord, error) {
	b, ok := g.tickers[ticker]
	if !ok || b.blockFundamentals {
		<-ctx.Done()
		atomic.AddInt32(&g.siblingsEnded, 1)
		return nil, ctx.Err()
	}
	return b.fundamentals, b.fundamentalErr
}

func (g *fakeGateway) FetchUniverse(_ context.Context, name string) ([]string, error) {
	if g.universe == nil {
		return nil, errors.New("unknown universe " + name)
	}
	return g.universe, nil
}

func (g *fakeGateway) calls(ticker string) int32 {
	n, ok := g.priceCalls.Load(ticker)
	if !ok {
		return 0
	}
	return atomic.LoadInt32(n.(*int32))
}

var base = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

func series(ticker string, closes []float64) *contracts.PriceSeries {
	bars := make([]contracts.Bar, len(closes))
	for i, c := range closes {
		bars[i] = contracts.Bar{Time: base.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c, Volume: 1000}
	}
	return &contracts.PriceSeries{Ticker: ticker, Bars: bars}
}

func linear(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

// zigzag trends with ±3 swings so RSI stays inside the neutral band
func zigzag(n int, start, step float64) []float64 {
	out := linear(n, start, step)
	for i := range out {
		if i%2 == 0 {
			out[i] += 3
		} else {
			out[i] -= 3
		}
	}
	return out
}

var (
	rising  = behavior{closes: zigzag(80, 100, 0.5)}  // technical ≈ +0.33
	flat    = behavior{closes: linear(80, 100, 0)}    // technical = 0
	falling = behavior{closes: zigzag(80, 200, -0.5)} // technical ≈ -0.24
)

func testConfig(timeout time.Duration, concurrency int) *strategyconfig.Config {
	cfg := strategyconfig.Default()
	cfg.Screener.PerRequestTimeout = timeout
	cfg.Screener.MaxConcurrency = concurrency
	return cfg
}

func newTestScreener(t *testing.T, cfg *strategyconfig.Config, gw contracts.DataGateway) *Screener {
	t.Helper()
	s, err := NewScreener(cfg, gw, logger.Nop(), WithClock(func() time.Time { return base.AddDate(0, 0, 90) }))
	require.NoError(t, err)
	return s
}

func universe(tickers ...string) contracts.Universe {
	return contracts.Universe{Name: "test", Tickers: tickers}
}

func successTickers(r *contracts.ScreenerReport) []string {
	out := make([]string, len(r.Successes))
	for i, s := range r.Successes {
		out[i] = s.Ticker
	}
	return out
}

func failureTickers(r *contracts.ScreenerReport) []string {
	out := make([]string, len(r.Failures))
	for i, f := range r.Failures {
		out[i] = f.Ticker
	}
	return out
}

// assertPartition checks every ticker is in exactly one bucket
func assertPartition(t *testing.T, r *contracts.ScreenerReport, tickers []string) {
	t.Helper()
	seen := make(map[string]int)
	for _, s := range r.Successes {
		seen[s.Ticker]++
	}
	for _, f := range r.Failures {
		seen[f.Ticker]++
	}
	for _, u := range r.Unresolved {
		seen[u]++
	}
	for _, ticker := range tickers {
		assert.Equal(t, 1, seen[ticker], "ticker %s", ticker)
	}
	assert.Len(t, seen, len(tickers))
}

func TestNewScreener_InvalidConfig(t *testing.T) {
	cfg := strategyconfig.Default()
	cfg.Fusion.SellThreshold = 0.5

	_, err := NewScreener(cfg, newFakeGateway(nil), logger.Nop())

	var ve strategyconfig.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "fusion.sell_threshold", ve.Field)

	cfg = strategyconfig.Default()
	cfg.Screener.MaxConcurrency = 0
	_, err = NewScreener(cfg, newFakeGateway(nil), logger.Nop())
	assert.True(t, errors.As(err, &ve))
}

func TestScreen_OrdersByComposite(t *testing.T) {
	gw := newFakeGateway(map[string]behavior{
		"DOWN": falling, "FLAT": flat, "UP1": rising, "UP2": rising,
	})
	s := newTestScreener(t, testConfig(time.Second, 4), gw)

	report := s.Screen(context.Background(), universe("DOWN", "UP2", "FLAT", "UP1"), nil)

	assert.False(t, report.Cancelled)
	assert.Empty(t, report.Failures)
	assert.Empty(t, report.Unresolved)
	// 동점은 입력 순서
	assert.Equal(t, []string{"UP2", "UP1", "FLAT", "DOWN"}, successTickers(report))

	for i := 1; i < len(report.Successes); i++ {
		assert.GreaterOrEqual(t, report.Successes[i-1].Recommendation.Composite, report.Successes[i].Recommendation.Composite)
	}

	up := report.Successes[0]
	assert.Equal(t, contracts.ActionBuy, up.Recommendation.Action)
	assert.True(t, up.Technical.IsDefined())
	assert.False(t, up.Sentiment.IsDefined())
	assert.True(t, up.Sentiment.IsLowConfidence())
	assert.Equal(t, contracts.ActionSell, report.Successes[3].Recommendation.Action)
	assert.NotEmpty(t, report.ID)
	assert.Equal(t, "test", report.Universe)
}

func TestScreen_NotFoundTickers(t *testing.T) {
	gw := newFakeGateway(map[string]behavior{"A": rising, "C": flat, "E": falling})
	s := newTestScreener(t, testConfig(5*time.Second, 3), gw)
	tickers := []string{"A", "MISSING1", "C", "MISSING2", "E"}

	start := time.Now()
	report := s.Screen(context.Background(), universe(tickers...), nil)

	// 형제 호출이 타임아웃까지 기다리지 않음
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Len(t, report.Successes, 3)
	require.Len(t, report.Failures, 2)
	assert.Equal(t, []string{"MISSING1", "MISSING2"}, failureTickers(report))
	for _, f := range report.Failures {
		assert.Equal(t, contracts.ReasonNotFound, f.Reason)
		assert.True(t, contracts.IsTickerNotFound(f.Err))
	}
	assert.Equal(t, int32(4), atomic.LoadInt32(&gw.siblingsEnded))
	assertPartition(t, report, tickers)
}

func TestScreen_PartialAndTotalTimeouts(t *testing.T) {
	gw := newFakeGateway(map[string]behavior{
		"A": rising,
		"B": {closes: rising.closes, blockHeadlines: true},
		"C": {blockPrices: true, blockHeadlines: true, blockFundamentals: true},
	})
	s := newTestScreener(t, testConfig(50*time.Millisecond, 3), gw)

	report := s.Screen(context.Background(), universe("A", "B", "C"), nil)

	require.Len(t, report.Successes, 2)
	assert.ElementsMatch(t, []string{"A", "B"}, successTickers(report))
	for _, r := range report.Successes {
		if r.Ticker == "B" {
			assert.False(t, r.Sentiment.IsDefined())
			assert.True(t, contracts.IsTimeout(r.Sentiment.Reason()))
		}
	}

	require.Len(t, report.Failures, 1)
	assert.Equal(t, "C", report.Failures[0].Ticker)
	assert.Equal(t, contracts.ReasonTimeout, report.Failures[0].Reason)
}

// stallingGateway ignores ctx and answers with good data after delay
type stallingGateway struct {
	fakeGateway
	delay time.Duration
}

func (g *stallingGateway) FetchPriceHistory(_ context.Context, ticker string, _ contracts.PriceRange) (*contracts.PriceSeries, error) {
	time.Sleep(g.delay)
	return series(ticker, rising.closes), nil
}

func (g *stallingGateway) FetchHeadlines(_ context.Context, _ string, _ time.Duration) ([]contracts.Headline, error) {
	time.Sleep(g.delay)
	return nil, nil
}

func (g *stallingGateway) FetchFundamentals(_ context.Context, _ string) ([]contracts.FundamentalRecord, error) {
	time.Sleep(g.delay)
	return nil, nil
}

func TestScreen_TimeoutWithoutGatewayCooperation(t *testing.T) {
	gw := &stallingGateway{delay: time.Second}
	s := newTestScreener(t, testConfig(100*time.Millisecond, 2), gw)

	start := time.Now()
	report := s.Screen(context.Background(), universe("A", "B"), nil)

	assert.Less(t, time.Since(start), 600*time.Millisecond)
	assert.Empty(t, report.Successes, "late data is dropped")
	require.Len(t, report.Failures, 2)
	for _, f := range report.Failures {
		assert.Equal(t, contracts.ReasonTimeout, f.Reason)
		assert.True(t, contracts.IsTimeout(f.Err))
	}
	assertPartition(t, report, []string{"A", "B"})
}

func TestScreen_FailureReasons(t *testing.T) {
	rl := &contracts.RateLimitError{Source: "yahoo", Err: errors.New("429")}
	boom := errors.New("upstream 500")

	tests := []struct {
		name string
		b    behavior
		want contracts.FailureReason
	}{
		{"all rate limited", behavior{priceErr: rl, headlineErr: rl, fundamentalErr: rl}, contracts.ReasonRateLimited},
		{"mixed", behavior{priceErr: rl, headlineErr: boom, fundamentalErr: rl}, contracts.ReasonGatewayError},
		{"all gateway errors", behavior{priceErr: boom, headlineErr: boom, fundamentalErr: boom}, contracts.ReasonGatewayError},
		{"timeouts", behavior{blockPrices: true, blockHeadlines: true, blockFundamentals: true}, contracts.ReasonTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := newFakeGateway(map[string]behavior{"X": tt.b})
			s := newTestScreener(t, testConfig(30*time.Millisecond, 1), gw)

			report := s.Screen(context.Background(), universe("X"), nil)

			require.Len(t, report.Failures, 1)
			assert.Equal(t, tt.want, report.Failures[0].Reason)
			assert.Error(t, report.Failures[0].Err)
		})
	}
}

func TestScreen_SingleFailedFetchKeepsTicker(t *testing.T) {
	gw := newFakeGateway(map[string]behavior{
		"X": {closes: rising.closes, fundamentalErr: errors.New("upstream 500")},
	})
	s := newTestScreener(t, testConfig(time.Second, 1), gw)

	report := s.Screen(context.Background(), universe("X"), nil)

	require.Len(t, report.Successes, 1)
	r := report.Successes[0]
	assert.False(t, r.Fundamental.IsDefined())
	assert.Equal(t, 1.0, r.Recommendation.EffectiveWeights.Technical)
}

func TestScreen_Cancellation(t *testing.T) {
	gw := newFakeGateway(map[string]behavior{
		"A": rising,
		"B": {blockPrices: true, blockHeadlines: true, blockFundamentals: true},
		"C": rising,
		"D": rising,
	})
	s := newTestScreener(t, testConfig(10*time.Second, 1), gw)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var events []Event
	report := s.Screen(ctx, universe("A", "B", "C", "D"), func(e Event) {
		events = append(events, e)
		cancel()
	})

	assert.True(t, report.Cancelled)
	assert.Equal(t, []string{"A"}, successTickers(report))
	assert.Empty(t, report.Failures)
	assert.Equal(t, []string{"B", "C", "D"}, report.Unresolved)
	assertPartition(t, report, []string{"A", "B", "C", "D"})
	require.Len(t, events, 1)
	assert.Equal(t, StateCompleted, events[0].State)
}

func TestScreen_AlreadyCancelled(t *testing.T) {
	gw := newFakeGateway(map[string]behavior{"A": rising, "B": rising})
	s := newTestScreener(t, testConfig(time.Second, 2), gw)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := s.Screen(ctx, universe("A", "B"), nil)

	assert.True(t, report.Cancelled)
	assert.Empty(t, report.Successes)
	assert.Equal(t, []string{"A", "B"}, report.Unresolved)
}

func TestScreen_Duplicates(t *testing.T) {
	gw := newFakeGateway(map[string]behavior{"A": rising, "B": flat})
	s := newTestScreener(t, testConfig(time.Second, 2), gw)

	report := s.Screen(context.Background(), universe("A", "B", "A", "A"), nil)

	assert.Equal(t, 2, report.Total())
	assert.Equal(t, int32(1), gw.calls("A"))
	assertPartition(t, report, []string{"A", "B"})
}

func TestScreen_ConcurrencyBound(t *testing.T) {
	tickers := []string{"T0", "T1", "T2", "T3", "T4", "T5", "T6", "T7"}
	behaviors := make(map[string]behavior)
	for _, ticker := range tickers {
		behaviors[ticker] = rising
	}
	gw := newFakeGateway(behaviors)
	gw.priceDelay = 20 * time.Millisecond
	s := newTestScreener(t, testConfig(time.Second, 2), gw)

	report := s.Screen(context.Background(), universe(tickers...), nil)

	assert.Len(t, report.Successes, len(tickers))
	assert.LessOrEqual(t, atomic.LoadInt32(&gw.maxInFlight), int32(2))
}

func TestScreen_ProgressIsSerial(t *testing.T) {
	tickers := []string{"A", "B", "C", "MISSING"}
	gw := newFakeGateway(map[string]behavior{"A": rising, "B": flat, "C": falling})
	s := newTestScreener(t, testConfig(time.Second, 4), gw)

	var (
		active int32
		done   []int
	)
	report := s.Screen(context.Background(), universe(tickers...), func(e Event) {
		require.Equal(t, int32(1), atomic.AddInt32(&active, 1))
		defer atomic.AddInt32(&active, -1)

		assert.Equal(t, len(tickers), e.Total)
		assert.True(t, e.State.IsTerminal())
		assert.Equal(t, eventTicker(e), e.Ticker)
		done = append(done, e.Done)
	})

	assert.Equal(t, []int{1, 2, 3, 4}, done)
	assert.Equal(t, 4, report.Total())
}

// eventTicker returns the ticker carried by the event payload
func eventTicker(e Event) string {
	if e.Result != nil {
		return e.Result.Ticker
	}
	return e.Failure.Ticker
}

func TestScreen_Deterministic(t *testing.T) {
	gw := newFakeGateway(map[string]behavior{
		"A": rising, "B": flat, "C": falling, "D": rising,
	})
	s := newTestScreener(t, testConfig(time.Second, 3), gw)
	u := universe("C", "A", "MISSING", "B", "D")

	first := s.Screen(context.Background(), u, nil)
	for i := 0; i < 5; i++ {
		again := s.Screen(context.Background(), u, nil)
		assert.Equal(t, successTickers(first), successTickers(again))
		assert.Equal(t, failureTickers(first), failureTickers(again))
		for j := range first.Successes {
			assert.Equal(t, first.Successes[j].Recommendation, again.Successes[j].Recommendation)
		}
	}
}

type countingRecorder struct {
	mu      sync.Mutex
	tickers map[string]int
	scans   int
}

func (r *countingRecorder) ObserveTicker(status string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tickers[status]++
}

func (r *countingRecorder) ObserveScan(*contracts.ScreenerReport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scans++
}

func TestScreen_Recorder(t *testing.T) {
	rec := &countingRecorder{tickers: make(map[string]int)}
	gw := newFakeGateway(map[string]behavior{"A": rising})
	s, err := NewScreener(testConfig(time.Second, 2), gw, logger.Nop(), WithRecorder(rec))
	require.NoError(t, err)

	s.Screen(context.Background(), universe("A", "MISSING"), nil)

	assert.Equal(t, 1, rec.tickers["ok"])
	assert.Equal(t, 1, rec.tickers[string(contracts.ReasonNotFound)])
	assert.Equal(t, 1, rec.scans)
}

func TestScreenUniverse(t *testing.T) {
	gw := newFakeGateway(map[string]behavior{"A": rising, "B": flat})
	s := newTestScreener(t, testConfig(time.Second, 2), gw)

	_, err := s.ScreenUniverse(context.Background(), "sp500", nil)
	assert.Error(t, err)

	gw.universe = []string{"A", "B"}
	report, err := s.ScreenUniverse(context.Background(), "sp500", nil)
	require.NoError(t, err)
	assert.Equal(t, "sp500", report.Universe)
	assert.Len(t, report.Successes, 2)
}

func TestAnalyze(t *testing.T) {
	gw := newFakeGateway(map[string]behavior{"A": rising})
	s := newTestScreener(t, testConfig(time.Second, 1), gw)

	result, err := s.Analyze(context.Background(), "A")
	require.NoError(t, err)
	assert.Equal(t, "A", result.Ticker)
	assert.NotNil(t, result.Details.Technical)

	_, err = s.Analyze(context.Background(), "NOPE")
	var te *TickerError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, contracts.ReasonNotFound, te.Failure.Reason)
	assert.True(t, contracts.IsTickerNotFound(err))
}
