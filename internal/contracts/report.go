package contracts

import (
	"encoding/json"
	"time"
)

// FailureReason classifies why a ticker could not be screened
type FailureReason string

const (
	ReasonNotFound     FailureReason = "not_found"
	ReasonTimeout      FailureReason = "timeout"
	ReasonRateLimited  FailureReason = "rate_limited"
	ReasonGatewayError FailureReason = "gateway_error"
)

// TechnicalDetails are the raw indicator values behind the technical signal
type TechnicalDetails struct {
	Bars        int      `json:"bars"`
	LastClose   float64  `json:"last_close"`
	SMAShort    float64  `json:"sma_short"`
	SMALong     float64  `json:"sma_long"`
	RSI         float64  `json:"rsi"`
	MomentumPct *float64 `json:"momentum_pct,omitempty"`
}

// SentimentDetails summarises the headlines that were scored
type SentimentDetails struct {
	Considered int              `json:"considered"`
	Positive   int              `json:"positive"`
	Negative   int              `json:"negative"`
	Neutral    int              `json:"neutral"`
	Headlines  []ScoredHeadline `json:"headlines,omitempty"`
}

// ScoredHeadline is a headline with its compound score
type ScoredHeadline struct {
	Text     string    `json:"text"`
	Source   string    `json:"source,omitempty"`
	Time     time.Time `json:"published_at,omitempty"`
	Compound float64   `json:"compound"`
}

// FundamentalDetails are display metrics from the latest two quarters.
// Nil means the metric could not be computed.
type FundamentalDetails struct {
	PeriodEnd         time.Time `json:"period_end"`
	RevenueGrowth     *float64  `json:"revenue_growth,omitempty"`
	ProfitGrowth      *float64  `json:"profit_growth,omitempty"`
	DebtToEquity      *float64  `json:"debt_to_equity,omitempty"`
	PriorDebtToEquity *float64  `json:"prior_debt_to_equity,omitempty"`
	CurrentRatio      *float64  `json:"current_ratio,omitempty"`
	ROE               *float64  `json:"roe,omitempty"`
	NetMargin         *float64  `json:"net_margin,omitempty"`
	Awarded           []string  `json:"awarded,omitempty"` // 획득한 점수 항목
	Normalized        float64   `json:"normalized"`

	Valuation
}

// Valuation holds display-only metrics; none of them feed the fundamental score.
// Flow items are trailing four quarters (TTM). Nil means not enough data.
type Valuation struct {
	MarketCap       *float64         `json:"market_cap,omitempty"`
	PE              *float64         `json:"pe_ratio,omitempty"`
	PB              *float64         `json:"price_to_book,omitempty"`
	ROCE            *float64         `json:"roce,omitempty"`
	ROCEAverage     *float64         `json:"roce_avg,omitempty"` // 보유 분기 평균
	Piotroski       *int             `json:"piotroski_score,omitempty"`
	PiotroskiChecks []PiotroskiCheck `json:"piotroski_checks,omitempty"`
}

// PiotroskiCheck is one of the nine F-score criteria
type PiotroskiCheck struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
}

// ResultDetails groups the per-signal details; a nil entry had nothing to report
type ResultDetails struct {
	Technical   *TechnicalDetails   `json:"technical,omitempty"`
	Sentiment   *SentimentDetails   `json:"sentiment,omitempty"`
	Fundamental *FundamentalDetails `json:"fundamental,omitempty"`
}

// ScreenerResult is a completed ticker
type ScreenerResult struct {
	Ticker         string         `json:"ticker"`
	Recommendation Recommendation `json:"recommendation"`
	Technical      SignalScore    `json:"technical"`
	Sentiment      SignalScore    `json:"sentiment"`
	Fundamental    SignalScore    `json:"fundamental"`
	Details        ResultDetails  `json:"details"`
}

// Score returns the signal score for kind
func (r *ScreenerResult) Score(kind SignalKind) SignalScore {
	switch kind {
	case SignalTechnical:
		return r.Technical
	case SignalSentiment:
		return r.Sentiment
	case SignalFundamental:
		return r.Fundamental
	}
	return SignalScore{}
}

// Failure is a ticker that could not be screened
type Failure struct {
	Ticker string        `json:"ticker"`
	Reason FailureReason `json:"reason"`
	Err    error         `json:"-"`
}

// MarshalJSON includes the error text
func (f Failure) MarshalJSON() ([]byte, error) {
	type alias Failure
	msg := ""
	if f.Err != nil {
		msg = f.Err.Error()
	}
	return json.Marshal(struct {
		alias
		Error string `json:"error,omitempty"`
	}{alias(f), msg})
}

// ScreenerReport is the outcome of one scan.
// Every input ticker appears exactly once across Successes, Failures and Unresolved.
// ⭐ SSOT: 스캔 결과
type ScreenerReport struct {
	ID         string           `json:"id"`
	Universe   string           `json:"universe"`
	Successes  []ScreenerResult `json:"successes"`  // composite 내림차순
	Failures   []Failure        `json:"failures"`   // 입력 순서
	Unresolved []string         `json:"unresolved"` // 취소 시에만
	Cancelled  bool             `json:"cancelled"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
}

// Total returns the number of distinct tickers accounted for
func (r *ScreenerReport) Total() int {
	return len(r.Successes) + len(r.Failures) + len(r.Unresolved)
}

// Duration returns how long the scan ran
func (r *ScreenerReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// CountByAction tallies successes per action
func (r *ScreenerReport) CountByAction() map[Action]int {
	counts := map[Action]int{ActionBuy: 0, ActionHold: 0, ActionSell: 0}
	for _, s := range r.Successes {
		counts[s.Recommendation.Action]++
	}
	return counts
}

// FailuresByReason tallies failures per reason
func (r *ScreenerReport) FailuresByReason() map[FailureReason]int {
	counts := make(map[FailureReason]int)
	for _, f := range r.Failures {
		counts[f.Reason]++
	}
	return counts
}
