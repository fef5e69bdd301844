package s2_signals

import (
	"context"
	"time"

	"github.com/wonny/signalscreen/backend/internal/contracts"
	"github.com/wonny/signalscreen/backend/internal/strategyconfig"
	"github.com/wonny/signalscreen/backend/pkg/logger"
)

// Inputs are the raw data fetched for one ticker.
// A non-nil *Err means that fetch failed and the matching signal is undefined.
type Inputs struct {
	Prices    *contracts.PriceSeries
	PricesErr error

	Headlines    []contracts.Headline
	HeadlinesErr error

	Fundamentals    []contracts.FundamentalRecord
	FundamentalsErr error
}

// Builder runs the three signal calculators over one ticker's inputs
// ⭐ SSOT: 시그널 생성 오케스트레이션은 여기서만
type Builder struct {
	technical   *TechnicalCalculator
	sentiment   *SentimentCalculator
	fundamental *FundamentalCalculator
	logger      *logger.Logger
}

// NewBuilder creates a signal builder from a validated configuration
func NewBuilder(cfg *strategyconfig.Config, log *logger.Logger) *Builder {
	return &Builder{
		technical:   NewTechnicalCalculator(cfg.Technical, log),
		sentiment:   NewSentimentCalculator(cfg.Sentiment, NewLexicon(), log),
		fundamental: NewFundamentalCalculator(cfg.Fundamental, log),
		logger:      log,
	}
}

// Build computes all three signals. It never fails: problems surface as undefined scores.
func (b *Builder) Build(ctx context.Context, ticker string, in Inputs, asOf time.Time) contracts.SignalSet {
	var set contracts.SignalSet

	if in.PricesErr != nil {
		set.Technical = contracts.Undefined(in.PricesErr)
	} else {
		set.Technical, set.Details.Technical = b.technical.Calculate(ctx, ticker, in.Prices)
	}

	if in.HeadlinesErr != nil {
		set.Sentiment = contracts.Undefined(in.HeadlinesErr)
	} else {
		set.Sentiment, set.Details.Sentiment = b.sentiment.Calculate(ctx, ticker, in.Headlines, asOf)
	}

	if in.FundamentalsErr != nil {
		set.Fundamental = contracts.Undefined(in.FundamentalsErr)
	} else {
		set.Fundamental, set.Details.Fundamental = b.fundamental.Calculate(ctx, ticker, in.Fundamentals)
		if set.Details.Fundamental != nil {
			set.Details.Fundamental.Valuation = Valuate(in.Fundamentals, lastClose(in))
		}
	}

	for _, kind := range contracts.SignalKinds {
		if s := set.Score(kind); !s.IsDefined() {
			b.logger.WithFields(map[string]interface{}{
				"ticker": ticker,
				"signal": string(kind),
				"reason": errString(s.Reason()),
			}).Debug("Signal undefined")
		}
	}

	return set
}

func lastClose(in Inputs) float64 {
	if in.PricesErr != nil || in.Prices == nil || in.Prices.Len() == 0 {
		return 0
	}
	return in.Prices.Bars[in.Prices.Len()-1].Close
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
