package s2_signals

import (
	"math"
	"strings"
)

const (
	// 정규화 상수: compound = x / sqrt(x² + alpha)
	compoundAlpha = 15.0

	// 단어 가중치(0~1)를 valence 척도로 변환
	valenceScale = 3.0

	negationScalar  = -0.74
	boosterIncrease = 0.293
	negationWindow  = 3
)

// Lexicon scores short financial text with a weighted word list.
// Negators flip and damp the following sentiment word, intensifiers push it
// away from zero, and the summed valence is squashed into [-1, 1].
type Lexicon struct {
	valence   map[string]float64 // 양수: 긍정, 음수: 부정
	negations map[string]bool
	boosters  map[string]float64
}

// NewLexicon returns the default financial headline lexicon
func NewLexicon() *Lexicon {
	return NewLexiconFromWords(defaultPositive, defaultNegative)
}

// NewLexiconFromWords builds a lexicon from positive and negative weights in (0, 1]
func NewLexiconFromWords(positive, negative map[string]float64) *Lexicon {
	valence := make(map[string]float64, len(positive)+len(negative))
	for w, v := range positive {
		valence[w] = v * valenceScale
	}
	for w, v := range negative {
		valence[w] = -v * valenceScale
	}

	return &Lexicon{
		valence:   valence,
		negations: defaultNegations,
		boosters:  defaultBoosters,
	}
}

// Compound returns the normalized sentiment of text in [-1, 1]; 0 when no word matches
func (l *Lexicon) Compound(text string) float64 {
	tokens := tokenize(text)

	sum := 0.0
	for i, tok := range tokens {
		v, ok := l.lookup(tok)
		if !ok {
			continue
		}

		// 강조어: 바로 앞 단어
		if i > 0 {
			if b, ok := l.boosters[tokens[i-1]]; ok {
				if v > 0 {
					v += b
				} else {
					v -= b
				}
			}
		}

		// 부정어: 앞 3단어 이내
		for j := i - 1; j >= 0 && j >= i-negationWindow; j-- {
			if l.isNegation(tokens[j]) {
				v *= negationScalar
				break
			}
		}

		sum += v
	}

	if sum == 0 {
		return 0
	}
	return sum / math.Sqrt(sum*sum+compoundAlpha)
}

func (l *Lexicon) lookup(tok string) (float64, bool) {
	if v, ok := l.valence[tok]; ok {
		return v, true
	}
	// 단순 어미 처리 (surges → surge, jumped → jump, plunged → plunge)
	for _, suffix := range []string{"s", "es", "d", "ed", "ing"} {
		if strings.HasSuffix(tok, suffix) && len(tok) > len(suffix)+2 {
			if v, ok := l.valence[strings.TrimSuffix(tok, suffix)]; ok {
				return v, true
			}
		}
	}
	return 0, false
}

func (l *Lexicon) isNegation(tok string) bool {
	return l.negations[tok] || strings.HasSuffix(tok, "n't") || strings.HasSuffix(tok, "n’t")
}

func tokenize(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".,!?\"'()[]{}:;’‘“”-")
		if f != "" {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

var defaultNegations = map[string]bool{
	"not": true, "no": true, "never": true, "without": true, "nor": true,
	"neither": true, "cannot": true, "hardly": true,
}

var defaultBoosters = map[string]float64{
	"very": boosterIncrease, "sharply": boosterIncrease, "significantly": boosterIncrease,
	"strongly": boosterIncrease, "hugely": boosterIncrease, "record": boosterIncrease,
	"massive": boosterIncrease, "extremely": boosterIncrease,
	"slightly": -boosterIncrease, "somewhat": -boosterIncrease, "marginally": -boosterIncrease,
	"modestly": -boosterIncrease,
}

var defaultPositive = map[string]float64{
	// 강한 긍정
	"surge": 1.0, "soar": 1.0, "skyrocket": 1.0, "breakthrough": 1.0,
	"bullish": 0.95, "rally": 0.95, "boom": 0.95, "outperform": 0.9,
	"rocket": 0.9, "triumph": 0.9, "breakout": 0.9, "record-high": 0.9,

	// 보통 긍정
	"beat": 0.85, "exceed": 0.85, "upgrade": 0.85, "optimistic": 0.85,
	"profit": 0.8, "growth": 0.8, "gain": 0.8, "jump": 0.8,
	"strong": 0.8, "boost": 0.8, "success": 0.8, "win": 0.8,
	"improve": 0.75, "rising": 0.75, "advance": 0.75, "climb": 0.75,
	"expansion": 0.75, "upside": 0.75, "favorable": 0.75, "buyback": 0.75,
	"recover": 0.7, "rebound": 0.7, "stabilize": 0.7, "strength": 0.7,

	// 약한 긍정
	"positive": 0.65, "rise": 0.65, "higher": 0.65, "increase": 0.65,
	"better": 0.65, "good": 0.65, "solid": 0.65, "confident": 0.65,
	"opportunity": 0.6, "promising": 0.6, "attractive": 0.6, "resilient": 0.6,
	"steady": 0.6, "dividend": 0.55, "healthy": 0.55, "progress": 0.55,
	"innovative": 0.55, "leader": 0.55, "advantage": 0.55, "robust": 0.5,
	"stable": 0.5, "approval": 0.6, "approve": 0.6, "partnership": 0.5,
}

var defaultNegative = map[string]float64{
	// 강한 부정
	"crash": 1.0, "plunge": 1.0, "collapse": 1.0, "devastate": 1.0,
	"catastrophic": 1.0, "disaster": 1.0, "crisis": 0.95, "bankruptcy": 0.95,
	"plummet": 0.95, "tumble": 0.95, "rout": 0.95, "fraud": 0.95,
	"hammered": 0.9, "panic": 0.9, "worst": 0.9, "default": 0.9,

	// 보통 부정
	"bearish": 0.85, "downgrade": 0.85, "warning": 0.85, "lawsuit": 0.85,
	"probe": 0.8, "investigation": 0.8, "recall": 0.8, "layoff": 0.8,
	"miss": 0.8, "loss": 0.8, "losses": 0.8, "slump": 0.8,
	"decline": 0.8, "deteriorate": 0.8, "underperform": 0.8, "fail": 0.8,
	"struggle": 0.75, "weak": 0.75, "weakness": 0.75, "drop": 0.75,
	"fall": 0.75, "falling": 0.75, "sink": 0.75, "slash": 0.75,
	"concern": 0.7, "worry": 0.7, "disappoint": 0.7, "uncertain": 0.7,
	"risky": 0.7, "dispute": 0.7,

	// 약한 부정
	"problem": 0.65, "issue": 0.65, "risk": 0.65, "threat": 0.65,
	"volatile": 0.65, "uncertainty": 0.65, "doubt": 0.65, "pressure": 0.6,
	"challenge": 0.6, "difficult": 0.6, "hurt": 0.6, "lower": 0.6,
	"disappointing": 0.6, "negative": 0.6, "poor": 0.6, "slowdown": 0.6,
	"dip": 0.55, "slip": 0.55, "retreat": 0.55, "caution": 0.55,
	"downside": 0.55, "correction": 0.5, "pullback": 0.5, "cut": 0.5,
	"headwind": 0.5, "drag": 0.5,
}
