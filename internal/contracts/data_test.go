package contracts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriceSeries_Closes(t *testing.T) {
	series := &PriceSeries{
		Ticker: "AAPL",
		Bars: []Bar{
			{Close: 10},
			{Close: 11},
			{Close: 12.5},
		},
	}

	assert.Equal(t, 3, series.Len())
	assert.Equal(t, []float64{10, 11, 12.5}, series.Closes())

	var empty *PriceSeries
	assert.Equal(t, 0, empty.Len())
}

func TestErrorClassification(t *testing.T) {
	nf := fmt.Errorf("yahoo chart: %w", &TickerNotFoundError{Ticker: "ZZZZ"})
	to := &GatewayTimeoutError{Ticker: "AAPL", Op: "prices", Err: context.DeadlineExceeded}
	rl := fmt.Errorf("news: %w", &RateLimitError{Source: "news", Err: errors.New("429")})

	assert.True(t, IsTickerNotFound(nf))
	assert.False(t, IsTickerNotFound(to))

	assert.True(t, IsTimeout(to))
	assert.True(t, IsTimeout(fmt.Errorf("wrapped: %w", context.DeadlineExceeded)))
	assert.False(t, IsTimeout(rl))

	assert.True(t, IsRateLimited(rl))
	assert.False(t, IsRateLimited(nf))
}

func TestPartialFundamentalDataError(t *testing.T) {
	q := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)

	err := &PartialFundamentalDataError{Quarter: q, Field: "total_equity"}
	assert.Contains(t, err.Error(), "total_equity")
	assert.Contains(t, err.Error(), "2024-03-31")

	err = &PartialFundamentalDataError{Field: "quarters"}
	assert.Equal(t, "partial fundamental data: quarters", err.Error())
}

func TestFailure_MarshalJSON(t *testing.T) {
	f := Failure{Ticker: "ZZZZ", Reason: ReasonNotFound, Err: &TickerNotFoundError{Ticker: "ZZZZ"}}

	b, err := json.Marshal(f)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ticker":"ZZZZ","reason":"not_found","error":"ticker not found: ZZZZ"}`, string(b))
}

func TestScreenerReport_Counts(t *testing.T) {
	start := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	report := &ScreenerReport{
		Successes: []ScreenerResult{
			{Ticker: "A", Recommendation: Recommendation{Action: ActionBuy}},
			{Ticker: "B", Recommendation: Recommendation{Action: ActionHold}},
			{Ticker: "C", Recommendation: Recommendation{Action: ActionBuy}},
		},
		Failures: []Failure{
			{Ticker: "D", Reason: ReasonTimeout},
			{Ticker: "E", Reason: ReasonNotFound},
			{Ticker: "F", Reason: ReasonTimeout},
		},
		Unresolved: []string{"G"},
		StartedAt:  start,
		FinishedAt: start.Add(90 * time.Second),
	}

	assert.Equal(t, 7, report.Total())
	assert.Equal(t, 90*time.Second, report.Duration())
	assert.Equal(t, map[Action]int{ActionBuy: 2, ActionHold: 1, ActionSell: 0}, report.CountByAction())
	assert.Equal(t, 2, report.FailuresByReason()[ReasonTimeout])
	assert.Equal(t, 1, report.FailuresByReason()[ReasonNotFound])
}

func TestIsKnownUniverse(t *testing.T) {
	assert.True(t, IsKnownUniverse("sp500"))
	assert.True(t, IsKnownUniverse("nyse"))
	assert.False(t, IsKnownUniverse("kospi"))
}
