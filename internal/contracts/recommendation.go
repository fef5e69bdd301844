package contracts

// Action is the discrete call produced by fusion
type Action string

const (
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
	ActionBuy  Action = "BUY"
)

// Rank orders actions SELL < HOLD < BUY
func (a Action) Rank() int {
	switch a {
	case ActionSell:
		return -1
	case ActionBuy:
		return 1
	}
	return 0
}

// Recommendation is the fused decision for one ticker
// ⭐ SSOT: 퓨전 결과
type Recommendation struct {
	Action           Action        `json:"action"`
	Confidence       float64       `json:"confidence"` // 0.0 ~ 1.0
	Composite        float64       `json:"composite"`  // -1.0 ~ 1.0
	NoData           bool          `json:"no_data"`    // 모든 시그널 미정의
	EffectiveWeights SignalWeights `json:"effective_weights"`
}
