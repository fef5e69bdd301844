package contracts

import (
	"encoding/json"
	"math"
)

// SignalKind names one of the three independent signals
type SignalKind string

const (
	SignalTechnical   SignalKind = "technical"
	SignalSentiment   SignalKind = "sentiment"
	SignalFundamental SignalKind = "fundamental"
)

// SignalKinds lists the signals in fusion order
var SignalKinds = []SignalKind{SignalTechnical, SignalSentiment, SignalFundamental}

// SignalScore is either a defined value in [-1, 1] or undefined with a reason.
// A zero SignalScore is undefined.
// ⭐ SSOT: 시그널 점수 표현 (-1.0 ~ 1.0 또는 미정의)
type SignalScore struct {
	value         float64
	defined       bool
	reason        error
	lowConfidence bool
}

// Defined builds a defined score. NaN and Inf become undefined; out-of-range values are clamped.
func Defined(v float64) SignalScore {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Undefined(ErrNonFiniteScore)
	}
	return SignalScore{value: Clamp(v, -1, 1), defined: true}
}

// Undefined builds an undefined score carrying the reason
func Undefined(reason error) SignalScore {
	return SignalScore{reason: reason}
}

// LowConfidence builds an undefined score flagged as low confidence (e.g. no headlines)
func LowConfidence(reason error) SignalScore {
	return SignalScore{reason: reason, lowConfidence: true}
}

// Value returns the score and whether it is defined
func (s SignalScore) Value() (float64, bool) {
	return s.value, s.defined
}

func (s SignalScore) IsDefined() bool { return s.defined }
func (s SignalScore) Reason() error { return s.reason }
func (s SignalScore) IsLowConfidence() bool { return s.lowConfidence }

type signalScoreJSON struct {
	Defined       bool     `json:"defined"`
	Value         *float64 `json:"value,omitempty"`
	Reason        string   `json:"reason,omitempty"`
	LowConfidence bool     `json:"low_confidence,omitempty"`
}

// MarshalJSON renders defined scores with a value and undefined ones with a reason
func (s SignalScore) MarshalJSON() ([]byte, error) {
	out := signalScoreJSON{Defined: s.defined, LowConfidence: s.lowConfidence}
	if s.defined {
		v := s.value
		out.Value = &v
	} else if s.reason != nil {
		out.Reason = s.reason.Error()
	}
	return json.Marshal(out)
}

// SignalWeights holds one non-negative weight per signal
type SignalWeights struct {
	Technical   float64 `json:"technical"`
	Sentiment   float64 `json:"sentiment"`
	Fundamental float64 `json:"fundamental"`
}

// Of returns the weight for a signal kind
func (w SignalWeights) Of(kind SignalKind) float64 {
	switch kind {
	case SignalTechnical:
		return w.Technical
	case SignalSentiment:
		return w.Sentiment
	case SignalFundamental:
		return w.Fundamental
	}
	return 0
}

// Sum returns the total weight
func (w SignalWeights) Sum() float64 {
	return w.Technical + w.Sentiment + w.Fundamental
}

// Clamp limits v to [lo, hi]
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// SignalSet is the three signal scores for one ticker with their details
// ⭐ SSOT: S2 → 퓨전 시그널 전달
type SignalSet struct {
	Technical   SignalScore
	Sentiment   SignalScore
	Fundamental SignalScore
	Details     ResultDetails
}

// Score returns the score for kind
func (s SignalSet) Score(kind SignalKind) SignalScore {
	switch kind {
	case SignalTechnical:
		return s.Technical
	case SignalSentiment:
		return s.Sentiment
	case SignalFundamental:
		return s.Fundamental
	}
	return SignalScore{}
}
