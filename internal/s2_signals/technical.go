package s2_signals

import (
	"context"
	"errors"

	"github.com/wonny/signalscreen/backend/internal/contracts"
	"github.com/wonny/signalscreen/backend/internal/strategyconfig"
	"github.com/wonny/signalscreen/backend/pkg/logger"
)

var errNoTechnicalInputs = errors.New("no technical sub-signal could be computed")

// TechnicalCalculator calculates the technical signal from daily closes:
// SMA crossover, RSI and momentum, averaged over the sub-signals that are defined.
// ⭐ SSOT: 기술적 지표 계산은 여기서만
type TechnicalCalculator struct {
	cfg    strategyconfig.Technical
	logger *logger.Logger
}

// NewTechnicalCalculator creates a new technical calculator
func NewTechnicalCalculator(cfg strategyconfig.Technical, log *logger.Logger) *TechnicalCalculator {
	return &TechnicalCalculator{
		cfg:    cfg,
		logger: log,
	}
}

// Calculate calculates the technical signal for a ticker.
// Details are nil when the history is too short.
func (c *TechnicalCalculator) Calculate(ctx context.Context, ticker string, series *contracts.PriceSeries) (contracts.SignalScore, *contracts.TechnicalDetails) {
	need := c.cfg.MinBars()
	if series.Len() < need {
		return contracts.Undefined(&contracts.InsufficientHistoryError{Have: series.Len(), Need: need}), nil
	}

	closes := series.Closes()
	last := closes[len(closes)-1]

	smaShort := SMA(closes, c.cfg.SMAShort)
	smaLong := SMA(closes, c.cfg.SMALong)
	rsi := RSI(closes, c.cfg.RSIPeriod)

	details := &contracts.TechnicalDetails{
		Bars:      len(closes),
		LastClose: last,
		SMAShort:  smaShort,
		SMALong:   smaLong,
		RSI:       rsi,
	}

	var subs []float64

	// SMA 교차
	if smaLong != 0 {
		subs = append(subs, contracts.Clamp((smaShort-smaLong)/smaLong*c.cfg.SMAScale, -1, 1))
	}

	// RSI 과매수/과매도
	subs = append(subs, RSISignal(rsi, c.cfg.RSIOverbought, c.cfg.RSIOversold))

	// 모멘텀
	if pct, ok := MomentumPct(closes, c.cfg.MomentumLookback); ok {
		details.MomentumPct = &pct
		subs = append(subs, contracts.Clamp(pct/c.cfg.MomentumSaturation, -1, 1))
	}

	if len(subs) == 0 {
		return contracts.Undefined(errNoTechnicalInputs), details
	}

	sum := 0.0
	for _, s := range subs {
		sum += s
	}
	score := contracts.Defined(sum / float64(len(subs)))

	v, _ := score.Value()
	c.logger.WithFields(map[string]interface{}{
		"ticker":    ticker,
		"sma_short": smaShort,
		"sma_long":  smaLong,
		"rsi":       rsi,
		"score":     v,
	}).Debug("Calculated technical signal")

	return score, details
}

// SMA returns the mean of the last n values (0 if fewer than n)
func SMA(values []float64, n int) float64 {
	if n <= 0 || len(values) < n {
		return 0
	}
	sum := 0.0
	for _, v := range values[len(values)-n:] {
		sum += v
	}
	return sum / float64(n)
}

// RSI returns Wilder's Relative Strength Index in [0, 100].
// Seeded with the simple mean of the first period changes, then smoothed
// as avg = (prev*(period-1) + x) / period. Returns 50 when there is not enough data.
func RSI(closes []float64, period int) float64 {
	if period <= 0 || len(closes) < period+1 {
		return 50
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		gain, loss := splitChange(closes[i] - closes[i-1])
		avgGain += gain
		avgLoss += loss
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	p := float64(period)
	for i := period + 1; i < len(closes); i++ {
		gain, loss := splitChange(closes[i] - closes[i-1])
		avgGain = (avgGain*(p-1) + gain) / p
		avgLoss = (avgLoss*(p-1) + loss) / p
	}

	if avgLoss == 0 {
		if avgGain == 0 {
			return 50 // 변동 없음
		}
		return 100
	}

	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

func splitChange(change float64) (gain, loss float64) {
	if change > 0 {
		return change, 0
	}
	return 0, -change
}

// RSISignal maps RSI to [-1, 1]: overbought leans negative, oversold positive, mid-band 0
func RSISignal(rsi, overbought, oversold float64) float64 {
	switch {
	case rsi >= overbought:
		return -(rsi - overbought) / (100 - overbought)
	case rsi <= oversold:
		return (oversold - rsi) / oversold
	default:
		return 0
	}
}

// MomentumPct returns the fractional change over lookback bars.
// ok is false when the base close is zero or history is too short.
func MomentumPct(closes []float64, lookback int) (float64, bool) {
	if lookback <= 0 || len(closes) < lookback+1 {
		return 0, false
	}
	base := closes[len(closes)-1-lookback]
	if base == 0 {
		return 0, false
	}
	return (closes[len(closes)-1] - base) / base, true
}
