package contracts

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bar is one daily OHLCV observation
type Bar struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// PriceSeries is a chronological (oldest first) run of bars for one ticker
// ⭐ SSOT: 게이트웨이 → S2 가격 데이터 전달
type PriceSeries struct {
	Ticker string `json:"ticker"`
	Bars   []Bar  `json:"bars"`
}

// Len returns the number of bars
func (p *PriceSeries) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Bars)
}

// Closes returns the close prices in chronological order
func (p *PriceSeries) Closes() []float64 {
	closes := make([]float64, p.Len())
	for i, b := range p.Bars {
		closes[i] = b.Close
	}
	return closes
}

// PriceRange selects how much daily history to fetch, counted back from the latest bar
type PriceRange struct {
	Days int `json:"days"`
}

// DefaultPriceRange covers one year of daily bars
var DefaultPriceRange = PriceRange{Days: 365}

// Headline is one news headline about a ticker.
// A zero PublishedAt means the publish time is unknown.
type Headline struct {
	PublishedAt time.Time `json:"published_at"`
	Text        string    `json:"text"`
	Source      string    `json:"source"`
}

// FundamentalRecord is one quarter of reported financials.
// Missing amounts are NullDecimal with Valid=false.
// ⭐ SSOT: 분기 재무 데이터
type FundamentalRecord struct {
	PeriodEnd          time.Time           `json:"period_end"`
	Revenue            decimal.NullDecimal `json:"revenue"`
	NetProfit          decimal.NullDecimal `json:"net_profit"`
	TotalDebt          decimal.NullDecimal `json:"total_debt"`
	TotalEquity        decimal.NullDecimal `json:"total_equity"`
	CurrentAssets      decimal.NullDecimal `json:"current_assets"`
	CurrentLiabilities decimal.NullDecimal `json:"current_liabilities"`

	// 표시용 지표 전용 (점수에 영향 없음)
	OperatingIncome   decimal.NullDecimal `json:"operating_income"`
	GrossProfit       decimal.NullDecimal `json:"gross_profit"`
	OperatingCashFlow decimal.NullDecimal `json:"operating_cash_flow"`
	TotalAssets       decimal.NullDecimal `json:"total_assets"`
	LongTermDebt      decimal.NullDecimal `json:"long_term_debt"`
	SharesOutstanding decimal.NullDecimal `json:"shares_outstanding"`
}

// Amount builds a present NullDecimal from a float
func Amount(v float64) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.NewFromFloat(v))
}
