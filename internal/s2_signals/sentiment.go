package s2_signals

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/wonny/signalscreen/backend/internal/contracts"
	"github.com/wonny/signalscreen/backend/internal/strategyconfig"
	"github.com/wonny/signalscreen/backend/pkg/logger"
)

// compound 기준 중립 구간
const neutralBand = 0.05

// SentimentCalculator scores recent headlines and averages them
// ⭐ SSOT: 뉴스 감성 시그널 계산은 여기서만
type SentimentCalculator struct {
	cfg     strategyconfig.Sentiment
	lexicon *Lexicon
	logger  *logger.Logger
}

// NewSentimentCalculator creates a new sentiment calculator
func NewSentimentCalculator(cfg strategyconfig.Sentiment, lex *Lexicon, log *logger.Logger) *SentimentCalculator {
	if lex == nil {
		lex = NewLexicon()
	}
	return &SentimentCalculator{
		cfg:     cfg,
		lexicon: lex,
		logger:  log,
	}
}

// Calculate scores headlines relative to asOf.
// No usable headline yields an undefined, low-confidence score.
func (c *SentimentCalculator) Calculate(ctx context.Context, ticker string, headlines []contracts.Headline, asOf time.Time) (contracts.SignalScore, *contracts.SentimentDetails) {
	selected := c.selectHeadlines(headlines, asOf)

	details := &contracts.SentimentDetails{Considered: len(selected)}
	if len(selected) == 0 {
		return contracts.LowConfidence(contracts.ErrNoHeadlines), details
	}

	sum := 0.0
	for _, h := range selected {
		compound := c.lexicon.Compound(h.Text)
		sum += compound

		switch {
		case compound > neutralBand:
			details.Positive++
		case compound < -neutralBand:
			details.Negative++
		default:
			details.Neutral++
		}

		details.Headlines = append(details.Headlines, contracts.ScoredHeadline{
			Text:     h.Text,
			Source:   h.Source,
			Time:     h.PublishedAt,
			Compound: compound,
		})
	}

	score := contracts.Defined(sum / float64(len(selected)))

	v, _ := score.Value()
	c.logger.WithFields(map[string]interface{}{
		"ticker":    ticker,
		"headlines": len(selected),
		"score":     v,
	}).Debug("Calculated sentiment signal")

	return score, details
}

// selectHeadlines applies the recency window, de-duplicates by normalized text
// (keeping the newest copy) and keeps the MaxHeadlines most recent.
// Unknown publish times are kept and sort after every dated headline.
func (c *SentimentCalculator) selectHeadlines(headlines []contracts.Headline, asOf time.Time) []contracts.Headline {
	cutoff := asOf.Add(-c.cfg.Window())

	byText := make(map[string]int, len(headlines))
	kept := make([]contracts.Headline, 0, len(headlines))

	for _, h := range headlines {
		if !h.PublishedAt.IsZero() && h.PublishedAt.Before(cutoff) {
			continue
		}
		key := normalizeHeadline(h.Text)
		if key == "" {
			continue
		}

		if idx, seen := byText[key]; seen {
			if h.PublishedAt.After(kept[idx].PublishedAt) {
				kept[idx] = h
			}
			continue
		}
		byText[key] = len(kept)
		kept = append(kept, h)
	}

	// 최신순, 동률은 입력 순서
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].PublishedAt.After(kept[j].PublishedAt)
	})

	if len(kept) > c.cfg.MaxHeadlines {
		kept = kept[:c.cfg.MaxHeadlines]
	}
	return kept
}

// normalizeHeadline case-folds and collapses whitespace
func normalizeHeadline(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}
