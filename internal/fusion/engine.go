package fusion

import (
	"github.com/wonny/signalscreen/backend/internal/contracts"
	"github.com/wonny/signalscreen/backend/internal/strategyconfig"
	"github.com/wonny/signalscreen/backend/pkg/logger"
)

// Engine fuses the three signals into one recommendation.
// Weights are renormalized over the signals that are defined; the engine is pure
// and deterministic.
// ⭐ SSOT: 시그널 결합 로직은 여기서만
type Engine struct {
	weights contracts.SignalWeights
	buy     float64
	sell    float64
	penalty float64
	logger  *logger.Logger
}

// NewEngine validates cfg and creates a fusion engine
func NewEngine(cfg strategyconfig.Fusion, log *logger.Logger) (*Engine, error) {
	w := cfg.Weights
	switch {
	case w.Technical < 0 || w.Sentiment < 0 || w.Fundamental < 0:
		return nil, strategyconfig.ValidationError{Field: "fusion.weights", Message: "must be >= 0"}
	case w.Sum() <= 0:
		return nil, strategyconfig.ValidationError{Field: "fusion.weights", Message: "must not all be zero"}
	case cfg.SellThreshold >= cfg.BuyThreshold:
		return nil, strategyconfig.ValidationError{Field: "fusion.sell_threshold", Message: "must be < fusion.buy_threshold"}
	case cfg.DisagreementPenalty < 0 || cfg.DisagreementPenalty > 1:
		return nil, strategyconfig.ValidationError{Field: "fusion.disagreement_penalty", Message: "must be in [0, 1]"}
	}

	return &Engine{
		weights: contracts.SignalWeights{
			Technical:   w.Technical,
			Sentiment:   w.Sentiment,
			Fundamental: w.Fundamental,
		},
		buy:     cfg.BuyThreshold,
		sell:    cfg.SellThreshold,
		penalty: cfg.DisagreementPenalty,
		logger:  log,
	}, nil
}

// Fuse combines a signal set into a recommendation
func (e *Engine) Fuse(set contracts.SignalSet) contracts.Recommendation {
	definedWeight := 0.0
	defined := 0
	for _, kind := range contracts.SignalKinds {
		if set.Score(kind).IsDefined() {
			definedWeight += e.weights.Of(kind)
			defined++
		}
	}

	if defined == 0 || definedWeight <= 0 {
		return contracts.Recommendation{Action: contracts.ActionHold, NoData: true}
	}

	var eff contracts.SignalWeights
	composite := 0.0
	for _, kind := range contracts.SignalKinds {
		v, ok := set.Score(kind).Value()
		if !ok {
			continue
		}
		w := e.weights.Of(kind) / definedWeight
		setWeight(&eff, kind, w)
		composite += w * v
	}
	composite = contracts.Clamp(composite, -1, 1)

	rec := contracts.Recommendation{
		Action:           e.Decide(composite),
		Confidence:       e.confidence(set, composite, defined),
		Composite:        composite,
		EffectiveWeights: eff,
	}

	e.logger.WithFields(map[string]interface{}{
		"composite":  rec.Composite,
		"action":     string(rec.Action),
		"confidence": rec.Confidence,
		"defined":    defined,
	}).Debug("Fused signals")

	return rec
}

// Decide maps a composite score to an action. Ties at a threshold resolve to the directional call.
func (e *Engine) Decide(composite float64) contracts.Action {
	switch {
	case composite >= e.buy:
		return contracts.ActionBuy
	case composite <= e.sell:
		return contracts.ActionSell
	default:
		return contracts.ActionHold
	}
}

// confidence = (agreeing + disagreeing*(1-penalty)) / 3.
// A signal agrees when it is on the same side of zero as the composite (zero counts as non-negative).
func (e *Engine) confidence(set contracts.SignalSet, composite float64, defined int) float64 {
	agreeing := 0
	for _, kind := range contracts.SignalKinds {
		v, ok := set.Score(kind).Value()
		if ok && (v >= 0) == (composite >= 0) {
			agreeing++
		}
	}

	disagreeing := defined - agreeing
	c := (float64(agreeing) + float64(disagreeing)*(1-e.penalty)) / float64(len(contracts.SignalKinds))
	return contracts.Clamp(c, 0, 1)
}

func setWeight(w *contracts.SignalWeights, kind contracts.SignalKind, v float64) {
	switch kind {
	case contracts.SignalTechnical:
		w.Technical = v
	case contracts.SignalSentiment:
		w.Sentiment = v
	case contracts.SignalFundamental:
		w.Fundamental = v
	}
}
