package contracts

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ⭐ SSOT: 엔진/스크리너 오류 분류
//
// Signal-level errors make a single signal undefined. Ticker-level errors
// (not found, timeout, rate limit) decide a Failure reason. Neither aborts a scan.

// ErrNoHeadlines marks a sentiment signal with nothing to score.
// It is a low-confidence condition, not a failure.
var ErrNoHeadlines = errors.New("no recent headlines")

// ErrNonFiniteScore is the reason attached when a score computes to NaN or Inf
var ErrNonFiniteScore = errors.New("score is not a finite number")

// InsufficientHistoryError is returned when a price series is too short
type InsufficientHistoryError struct {
	Have int
	Need int
}

func (e *InsufficientHistoryError) Error() string {
	return fmt.Sprintf("insufficient price history: have %d bars, need %d", e.Have, e.Need)
}

// PartialFundamentalDataError names the quarter and field that blocked the fundamental score
type PartialFundamentalDataError struct {
	Quarter time.Time // zero when the problem is the number of quarters
	Field   string
}

func (e *PartialFundamentalDataError) Error() string {
	if e.Quarter.IsZero() {
		return fmt.Sprintf("partial fundamental data: %s", e.Field)
	}
	return fmt.Sprintf("partial fundamental data: %s missing for quarter ending %s",
		e.Field, e.Quarter.Format("2006-01-02"))
}

// TickerNotFoundError is returned by the gateway for unknown symbols
type TickerNotFoundError struct {
	Ticker string
}

func (e *TickerNotFoundError) Error() string {
	return fmt.Sprintf("ticker not found: %s", e.Ticker)
}

// GatewayTimeoutError is returned when a single gateway call exceeds its deadline
type GatewayTimeoutError struct {
	Ticker string
	Op     string
	Err    error
}

func (e *GatewayTimeoutError) Error() string {
	return fmt.Sprintf("%s for %s timed out: %v", e.Op, e.Ticker, e.Err)
}

func (e *GatewayTimeoutError) Unwrap() error { return e.Err }

// RateLimitError is returned when an upstream source rejects a request for quota
type RateLimitError struct {
	Source string
	Err    error
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited by %s: %v", e.Source, e.Err)
}

func (e *RateLimitError) Unwrap() error { return e.Err }

// IsTickerNotFound reports whether err carries a TickerNotFoundError
func IsTickerNotFound(err error) bool {
	var nf *TickerNotFoundError
	return errors.As(err, &nf)
}

// IsTimeout reports whether err is a gateway timeout or an expired deadline
func IsTimeout(err error) bool {
	var te *GatewayTimeoutError
	return errors.As(err, &te) || errors.Is(err, context.DeadlineExceeded)
}

// IsRateLimited reports whether err carries a RateLimitError
func IsRateLimited(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}
