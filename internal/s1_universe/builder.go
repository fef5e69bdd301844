package s1_universe

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/wonny/signalscreen/backend/internal/contracts"
	"github.com/wonny/signalscreen/backend/pkg/logger"
)

// 정규화 후 허용 티커 형식 (BRK-B, ^GSPC, RDS-A 등)
var tickerPattern = regexp.MustCompile(`^[A-Z0-9^][A-Z0-9.\-=^]{0,14}$`)

// Exclusion reasons
const (
	ReasonInvalid   = "invalid_symbol"
	ReasonDuplicate = "duplicate"
)

// Source resolves a named universe to raw tickers (contracts.DataGateway satisfies it)
type Source interface {
	FetchUniverse(ctx context.Context, name string) ([]string, error)
}

// Builder resolves universes and normalizes ticker lists
// ⭐ SSOT: S1 유니버스 생성
type Builder struct {
	source Source
	logger *logger.Logger
}

// Result is a built universe plus what was dropped and why
type Result struct {
	Universe contracts.Universe
	Excluded map[string]string // 원본 티커 → 사유
}

// NewBuilder creates a new Universe Builder
func NewBuilder(source Source, log *logger.Logger) *Builder {
	return &Builder{
		source: source,
		logger: log.WithComponent("universe"),
	}
}

// Resolve fetches every named universe and merges them in argument order
func (b *Builder) Resolve(ctx context.Context, names ...string) (*Result, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("no universe given")
	}

	var raw []string
	resolved := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		resolved = append(resolved, name)
		if !contracts.IsKnownUniverse(name) {
			return nil, fmt.Errorf("unknown universe %q (known: %s)", name, strings.Join(contracts.KnownUniverses, ", "))
		}

		tickers, err := b.source.FetchUniverse(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", name, err)
		}
		raw = append(raw, tickers...)
	}

	return b.Build(strings.Join(resolved, "+"), raw), nil
}

// Build normalizes raw tickers: trimmed, upper-cased, share-class dots as dashes,
// invalid symbols dropped, first occurrence kept.
func (b *Builder) Build(name string, raw []string) *Result {
	result := &Result{
		Universe: contracts.Universe{Name: name, Tickers: make([]string, 0, len(raw))},
		Excluded: make(map[string]string),
	}
	seen := make(map[string]struct{}, len(raw))

	for _, r := range raw {
		ticker := Normalize(r)
		if !tickerPattern.MatchString(ticker) {
			result.Excluded[r] = ReasonInvalid
			continue
		}
		if _, dup := seen[ticker]; dup {
			result.Excluded[r] = ReasonDuplicate
			continue
		}
		seen[ticker] = struct{}{}
		result.Universe.Tickers = append(result.Universe.Tickers, ticker)
	}

	b.logger.WithFields(map[string]interface{}{
		"universe": name,
		"input":    len(raw),
		"tickers":  result.Universe.Count(),
		"excluded": len(result.Excluded),
	}).Info("Universe built")

	return result
}

// Normalize converts a listing symbol to the form the price source expects
func Normalize(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	// 클래스 주식: BRK.B / BRK/B → BRK-B
	s = strings.NewReplacer(".", "-", "/", "-", " ", "").Replace(s)
	return s
}

// ParseList splits a comma or whitespace separated ticker list
func ParseList(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\n' || r == '\t' || r == ';'
	})
}
