package selection

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/wonny/signalscreen/backend/internal/contracts"
	"github.com/wonny/signalscreen/backend/internal/fusion"
	"github.com/wonny/signalscreen/backend/internal/s2_signals"
	"github.com/wonny/signalscreen/backend/internal/strategyconfig"
	"github.com/wonny/signalscreen/backend/pkg/logger"
)

// Fetch operation names used in timeout errors and logs
const (
	OpPrices       = "price_history"
	OpHeadlines    = "headlines"
	OpFundamentals = "fundamentals"
)

// Screener fans a universe out over the data gateway and fuses each ticker's signals
// ⭐ SSOT: 스캔 오케스트레이션은 여기서만
type Screener struct {
	gateway  contracts.DataGateway
	builder  *s2_signals.Builder
	engine   *fusion.Engine
	config   strategyconfig.Screener
	window   time.Duration
	recorder Recorder
	now      func() time.Time
	logger   *logger.Logger
}

// Option customizes a Screener
type Option func(*Screener)

// WithRecorder attaches a metrics recorder
func WithRecorder(r Recorder) Option {
	return func(s *Screener) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithClock overrides the clock used for headline recency (테스트용)
func WithClock(now func() time.Time) Option {
	return func(s *Screener) { s.now = now }
}

// NewScreener validates cfg and creates a screener. Invalid configuration is returned as
// strategyconfig.ValidationError and no screener is built.
func NewScreener(cfg *strategyconfig.Config, gateway contracts.DataGateway, log *logger.Logger, opts ...Option) (*Screener, error) {
	if cfg == nil {
		return nil, strategyconfig.ValidationError{Field: "config", Message: "is required"}
	}
	if gateway == nil {
		return nil, errors.New("screener: data gateway is required")
	}
	if err := strategyconfig.Validate(cfg); err != nil {
		return nil, err
	}

	engine, err := fusion.NewEngine(cfg.Fusion, log.WithComponent("fusion"))
	if err != nil {
		return nil, err
	}

	s := &Screener{
		gateway:  gateway,
		builder:  s2_signals.NewBuilder(cfg, log.WithComponent("signals")),
		engine:   engine,
		config:   cfg.Screener,
		window:   cfg.Sentiment.Window(),
		recorder: nopRecorder{},
		now:      time.Now,
		logger:   log.WithComponent("screener"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ScreenUniverse resolves a named universe through the gateway and screens it
func (s *Screener) ScreenUniverse(ctx context.Context, name string, progress ProgressFunc) (*contracts.ScreenerReport, error) {
	tickers, err := s.gateway.FetchUniverse(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("fetch universe %s: %w", name, err)
	}
	return s.Screen(ctx, contracts.Universe{Name: name, Tickers: tickers}, progress), nil
}

// Screen screens every ticker of the universe with at most MaxConcurrency tickers in flight.
// Ticker failures never abort the scan. When ctx is cancelled the report holds what finished
// so far and the rest is listed in Unresolved.
func (s *Screener) Screen(ctx context.Context, universe contracts.Universe, progress ProgressFunc) *contracts.ScreenerReport {
	tickers := dedupe(universe.Tickers)
	report := &contracts.ScreenerReport{
		ID:         uuid.NewString(),
		Universe:   universe.Name,
		Successes:  make([]contracts.ScreenerResult, 0, len(tickers)),
		Failures:   make([]contracts.Failure, 0),
		Unresolved: make([]string, 0),
		StartedAt:  s.now(),
	}

	log := s.logger.WithFields(map[string]interface{}{
		"scan_id":  report.ID,
		"universe": universe.Name,
	})
	log.WithFields(map[string]interface{}{
		"tickers":         len(tickers),
		"duplicates":      len(universe.Tickers) - len(tickers),
		"max_concurrency": s.config.MaxConcurrency,
	}).Info("Scan started")

	// 워커는 버퍼 채널로만 결과 전달 (취소 후에도 블록되지 않음)
	outcomes := make(chan outcome, len(tickers))
	sem := semaphore.NewWeighted(int64(s.config.MaxConcurrency))

	go func() {
		for i, ticker := range tickers {
			if err := sem.Acquire(ctx, 1); err != nil {
				return
			}
			go func(i int, ticker string) {
				defer sem.Release(1)
				outcomes <- s.screenTicker(ctx, i, ticker)
			}(i, ticker)
		}
	}()

	// ⭐ 수집기: 리포트 상태는 이 루프만 기록
	terminal := make([]bool, len(tickers))
	received := 0
	record := func(o outcome) {
		terminal[o.index] = true
		received++
		if o.result != nil {
			report.Successes = append(report.Successes, *o.result)
		} else {
			report.Failures = append(report.Failures, *o.failure)
			log.WithError(o.failure.Err).WithFields(map[string]interface{}{
				"ticker": o.failure.Ticker,
				"reason": string(o.failure.Reason),
			}).Warn("Ticker failed")
		}
		s.recorder.ObserveTicker(o.status(), o.elapsed)
		if progress != nil {
			progress(Event{
				ScanID:  report.ID,
				Ticker:  tickers[o.index],
				State:   o.state(),
				Result:  o.result,
				Failure: o.failure,
				Done:    received,
				Total:   len(tickers),
			})
		}
	}

collect:
	for received < len(tickers) {
		select {
		case o := <-outcomes:
			if o.abandoned {
				continue
			}
			record(o)
		case <-ctx.Done():
			break collect
		}
	}

	if received < len(tickers) {
		// 이미 도착한 결과는 반영
	drain:
		for {
			select {
			case o := <-outcomes:
				if !o.abandoned {
					record(o)
				}
			default:
				break drain
			}
		}
		if received < len(tickers) {
			report.Cancelled = true
			for i, ticker := range tickers {
				if !terminal[i] {
					report.Unresolved = append(report.Unresolved, ticker)
				}
			}
		}
	}

	rank(report, tickers)

	report.FinishedAt = s.now()
	s.recorder.ObserveScan(report)

	summary := map[string]interface{}{
		"successes":  len(report.Successes),
		"failures":   len(report.Failures),
		"unresolved": len(report.Unresolved),
		"duration":   report.Duration().String(),
	}
	for action, n := range report.CountByAction() {
		summary[string(action)] = n
	}
	if report.Cancelled {
		log.WithFields(summary).Warn("Scan cancelled")
	} else {
		log.WithFields(summary).Info("Scan completed")
	}

	return report
}

// Analyze screens a single ticker. A ticker-level failure is returned as *TickerError.
func (s *Screener) Analyze(ctx context.Context, ticker string) (*contracts.ScreenerResult, error) {
	o := s.screenTicker(ctx, 0, ticker)
	s.recorder.ObserveTicker(o.status(), o.elapsed)
	if o.abandoned {
		return nil, ctx.Err()
	}
	if o.failure != nil {
		return nil, &TickerError{Failure: *o.failure}
	}
	return o.result, nil
}

// TickerError wraps a per-ticker failure as an error
type TickerError struct {
	Failure contracts.Failure
}

func (e *TickerError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Failure.Ticker, e.Failure.Reason, e.Failure.Err)
}

func (e *TickerError) Unwrap() error { return e.Failure.Err }

// outcome is what a worker hands to the collector
type outcome struct {
	index     int
	result    *contracts.ScreenerResult
	failure   *contracts.Failure
	abandoned bool
	elapsed   time.Duration
}

func (o outcome) state() TaskState {
	if o.result != nil {
		return StateCompleted
	}
	return StateFailed
}

func (o outcome) status() string {
	switch {
	case o.abandoned:
		return "cancelled"
	case o.failure != nil:
		return string(o.failure.Reason)
	default:
		return "ok"
	}
}

// screenTicker runs one ticker through Fetching → Computing → Completed | Failed
func (s *Screener) screenTicker(ctx context.Context, index int, ticker string) outcome {
	start := time.Now()
	out := outcome{index: index}

	s.trace(ticker, StateFetching)
	in, failure := s.fetch(ctx, ticker)
	out.elapsed = time.Since(start)

	// 스캔 취소 후 나온 결과는 버림
	if ctx.Err() != nil {
		out.abandoned = true
		return out
	}
	if failure != nil {
		out.failure = failure
		return out
	}

	s.trace(ticker, StateComputing)
	set := s.builder.Build(ctx, ticker, in, s.now())
	rec := s.engine.Fuse(set)
	out.result = &contracts.ScreenerResult{
		Ticker:         ticker,
		Recommendation: rec,
		Technical:      set.Technical,
		Sentiment:      set.Sentiment,
		Fundamental:    set.Fundamental,
		Details:        set.Details,
	}
	out.elapsed = time.Since(start)

	s.logger.WithFields(map[string]interface{}{
		"ticker":     ticker,
		"action":     string(rec.Action),
		"composite":  rec.Composite,
		"confidence": rec.Confidence,
	}).Debug("Ticker completed")

	return out
}

func (s *Screener) trace(ticker string, state TaskState) {
	s.logger.WithFields(map[string]interface{}{
		"ticker": ticker,
		"state":  string(state),
	}).Debug("Ticker state")
}

// fetch issues the three gateway calls concurrently, each under its own timeout.
// Not-found from any call cancels the siblings and fails the ticker.
func (s *Screener) fetch(ctx context.Context, ticker string) (s2_signals.Inputs, *contracts.Failure) {
	tctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		in s2_signals.Inputs
		wg sync.WaitGroup
	)

	// fn은 ctx를 무시할 수 있으므로 결과와 마감을 경쟁시킴. 마감 후 도착한 값은 버림
	call := func(op string, fn func(ctx context.Context) (func(), error), dst *error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rctx, rcancel := context.WithTimeout(tctx, s.config.PerRequestTimeout)
			defer rcancel()

			type result struct {
				apply func()
				err   error
			}
			done := make(chan result, 1)
			go func() {
				apply, err := fn(rctx)
				done <- result{apply, err}
			}()

			var err error
			select {
			case r := <-done:
				err = r.err
				if err == nil && rctx.Err() != nil {
					err = rctx.Err()
				} else if r.apply != nil {
					r.apply()
				}
			case <-rctx.Done():
				err = rctx.Err()
			}

			var te *contracts.GatewayTimeoutError
			if errors.Is(err, context.DeadlineExceeded) && !errors.As(err, &te) {
				err = &contracts.GatewayTimeoutError{Ticker: ticker, Op: op, Err: err}
			}
			if contracts.IsTickerNotFound(err) {
				cancel()
			}
			*dst = err
		}()
	}

	call(OpPrices, func(c context.Context) (func(), error) {
		prices, err := s.gateway.FetchPriceHistory(c, ticker, contracts.PriceRange{Days: s.config.PriceHistoryDays})
		return func() { in.Prices = prices }, err
	}, &in.PricesErr)

	call(OpHeadlines, func(c context.Context) (func(), error) {
		headlines, err := s.gateway.FetchHeadlines(c, ticker, s.window)
		return func() { in.Headlines = headlines }, err
	}, &in.HeadlinesErr)

	call(OpFundamentals, func(c context.Context) (func(), error) {
		records, err := s.gateway.FetchFundamentals(c, ticker)
		return func() { in.Fundamentals = records }, err
	}, &in.FundamentalsErr)

	wg.Wait()

	errs := []error{in.PricesErr, in.HeadlinesErr, in.FundamentalsErr}
	for _, err := range errs {
		if contracts.IsTickerNotFound(err) {
			return in, &contracts.Failure{Ticker: ticker, Reason: contracts.ReasonNotFound, Err: err}
		}
	}

	if in.PricesErr != nil && in.HeadlinesErr != nil && in.FundamentalsErr != nil {
		return in, &contracts.Failure{
			Ticker: ticker,
			Reason: classify(errs),
			Err:    errors.Join(errs...),
		}
	}

	return in, nil
}

// classify picks the failure reason when every fetch failed
func classify(errs []error) contracts.FailureReason {
	allTimeout, allRateLimited := true, true
	for _, err := range errs {
		if !contracts.IsTimeout(err) {
			allTimeout = false
		}
		if !contracts.IsRateLimited(err) {
			allRateLimited = false
		}
	}

	switch {
	case allTimeout:
		return contracts.ReasonTimeout
	case allRateLimited:
		return contracts.ReasonRateLimited
	default:
		return contracts.ReasonGatewayError
	}
}
