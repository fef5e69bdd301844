package strategyconfig

import "time"

// Config is the complete engine and screener configuration.
// Defaults come from the `default` tags; field rules from `validate` tags.
type Config struct {
	Meta        Meta        `yaml:"meta" json:"meta"`
	Technical   Technical   `yaml:"technical" json:"technical"`
	Sentiment   Sentiment   `yaml:"sentiment" json:"sentiment"`
	Fundamental Fundamental `yaml:"fundamental" json:"fundamental"`
	Fusion      Fusion      `yaml:"fusion" json:"fusion"`
	Screener    Screener    `yaml:"screener" json:"screener"`
	Cache       Cache       `yaml:"cache" json:"cache"`
	Schedule    Schedule    `yaml:"schedule" json:"schedule"`
}

// Meta 메타 정보
type Meta struct {
	StrategyID string `yaml:"strategy_id" json:"strategy_id" default:"signal_fusion" validate:"required"`
	Version    string `yaml:"version" json:"version" default:"1"`
}

// Technical 기술적 시그널 (SMA 교차, RSI, 모멘텀)
type Technical struct {
	SMAShort           int     `yaml:"sma_short" json:"sma_short" default:"20" validate:"gte=1"`
	SMALong            int     `yaml:"sma_long" json:"sma_long" default:"50" validate:"gte=1"`
	RSIPeriod          int     `yaml:"rsi_period" json:"rsi_period" default:"14" validate:"gte=1"`
	MomentumLookback   int     `yaml:"momentum_lookback" json:"momentum_lookback" default:"20" validate:"gte=1"`
	SMAScale           float64 `yaml:"sma_scale" json:"sma_scale" default:"10" validate:"gt=0"`
	RSIOverbought      float64 `yaml:"rsi_overbought" json:"rsi_overbought" default:"70" validate:"gt=0,lt=100"`
	RSIOversold        float64 `yaml:"rsi_oversold" json:"rsi_oversold" default:"30" validate:"gt=0,lt=100"`
	MomentumSaturation float64 `yaml:"momentum_saturation" json:"momentum_saturation" default:"0.2" validate:"gt=0"`
}

// MinBars returns the minimum series length the technical signal needs
func (t Technical) MinBars() int {
	need := t.SMALong
	if t.RSIPeriod > need {
		need = t.RSIPeriod
	}
	if t.MomentumLookback > need {
		need = t.MomentumLookback
	}
	return need + 1
}

// Sentiment 뉴스 헤드라인 시그널
type Sentiment struct {
	RecencyDays  int `yaml:"recency_days" json:"recency_days" default:"7" validate:"gte=1"`
	MaxHeadlines int `yaml:"max_headlines" json:"max_headlines" default:"20" validate:"gte=1"`
}

// Window returns the recency window as a duration
func (s Sentiment) Window() time.Duration {
	return time.Duration(s.RecencyDays) * 24 * time.Hour
}

// Fundamental 재무 건전성 시그널
type Fundamental struct {
	MinCurrentRatio float64      `yaml:"min_current_ratio" json:"min_current_ratio" default:"1.0" validate:"gte=0"`
	PointWeights    PointWeights `yaml:"point_weights" json:"point_weights"`
}

// PointWeights weights each health check in the fundamental score
type PointWeights struct {
	NetIncome     float64 `yaml:"net_income" json:"net_income" default:"1" validate:"gte=0"`
	RevenueGrowth float64 `yaml:"revenue_growth" json:"revenue_growth" default:"1" validate:"gte=0"`
	ProfitGrowth  float64 `yaml:"profit_growth" json:"profit_growth" default:"1" validate:"gte=0"`
	CurrentRatio  float64 `yaml:"current_ratio" json:"current_ratio" default:"1" validate:"gte=0"`
	Deleveraging  float64 `yaml:"deleveraging" json:"deleveraging" default:"1" validate:"gte=0"`
	ROE           float64 `yaml:"roe" json:"roe" default:"1" validate:"gte=0"`
}

// Sum returns the total point weight
func (w PointWeights) Sum() float64 {
	return w.NetIncome + w.RevenueGrowth + w.ProfitGrowth + w.CurrentRatio + w.Deleveraging + w.ROE
}

// Fusion 시그널 결합
type Fusion struct {
	Weights             FusionWeights `yaml:"weights" json:"weights"`
	BuyThreshold        float64       `yaml:"buy_threshold" json:"buy_threshold" default:"0.2" validate:"gte=-1,lte=1"`
	SellThreshold       float64       `yaml:"sell_threshold" json:"sell_threshold" default:"-0.2" validate:"gte=-1,lte=1"`
	DisagreementPenalty float64       `yaml:"disagreement_penalty" json:"disagreement_penalty" default:"0.5" validate:"gte=0,lte=1"`
}

// FusionWeights 시그널별 가중치 (합이 1일 필요 없음, 정규화됨)
type FusionWeights struct {
	Technical   float64 `yaml:"technical" json:"technical" default:"0.45" validate:"gte=0"`
	Sentiment   float64 `yaml:"sentiment" json:"sentiment" default:"0.25" validate:"gte=0"`
	Fundamental float64 `yaml:"fundamental" json:"fundamental" default:"0.30" validate:"gte=0"`
}

// Sum returns the total fusion weight
func (w FusionWeights) Sum() float64 {
	return w.Technical + w.Sentiment + w.Fundamental
}

// Screener 스캔 동시성/타임아웃
type Screener struct {
	MaxConcurrency    int           `yaml:"max_concurrency" json:"max_concurrency" default:"8" validate:"gte=1,lte=256"`
	PerRequestTimeout time.Duration `yaml:"per_request_timeout" json:"per_request_timeout" default:"10s" validate:"gt=0"`
	PriceHistoryDays  int           `yaml:"price_history_days" json:"price_history_days" default:"365" validate:"gte=1"`
}

// Cache 시장 데이터 캐시 TTL
type Cache struct {
	Enabled          bool          `yaml:"enabled" json:"enabled" default:"true"`
	PricesTTL        time.Duration `yaml:"prices_ttl" json:"prices_ttl" default:"15m" validate:"gt=0"`
	HeadlinesTTL     time.Duration `yaml:"headlines_ttl" json:"headlines_ttl" default:"30m" validate:"gt=0"`
	FundamentalsTTL  time.Duration `yaml:"fundamentals_ttl" json:"fundamentals_ttl" default:"6h" validate:"gt=0"`
	UniverseTTL      time.Duration `yaml:"universe_ttl" json:"universe_ttl" default:"24h" validate:"gt=0"`
	MemoryMaxEntries int           `yaml:"memory_max_entries" json:"memory_max_entries" default:"20000" validate:"gte=1"`
}

// Schedule 정기 스캔
type Schedule struct {
	Enabled     bool     `yaml:"enabled" json:"enabled"`
	Cron        string   `yaml:"cron" json:"cron" default:"0 30 16 * * 1-5"` // 초 포함 6필드
	Universes   []string `yaml:"universes" json:"universes" default:"[\"sp500\"]" validate:"min=1,dive,required"`
	HistorySize int      `yaml:"history_size" json:"history_size" default:"50" validate:"gte=1"`
}
