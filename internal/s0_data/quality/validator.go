package quality

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/creasty/defaults"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Coverage keys
const (
	CoveragePrice        = "price"
	CoverageHistory      = "history"
	CoverageFundamentals = "fundamentals"
	CoverageHeadlines    = "headlines"
)

// QualityGate checks that stored data can feed a scan of a universe
type QualityGate struct {
	db     *pgxpool.Pool
	config Config
}

// Config holds quality gate thresholds
type Config struct {
	MinPriceCoverage        float64       `yaml:"min_price_coverage" default:"0.95"`        // 최근 봉 존재
	MinHistoryCoverage      float64       `yaml:"min_history_coverage" default:"0.90"`      // 기술 지표 계산 가능
	MinFundamentalsCoverage float64       `yaml:"min_fundamentals_coverage" default:"0.70"` // 2분기 이상
	MinHeadlineCoverage     float64       `yaml:"min_headline_coverage" default:"0.50"`     // 최근 헤드라인
	MinBars                 int           `yaml:"min_bars" default:"51"`
	StaleAfter              time.Duration `yaml:"stale_after" default:"120h"`
	HeadlineWindow          time.Duration `yaml:"headline_window" default:"168h"`
}

// DefaultConfig returns thresholds from the default tags
func DefaultConfig() Config {
	var cfg Config
	_ = defaults.Set(&cfg)
	return cfg
}

// Snapshot is the stored-data coverage of one universe
type Snapshot struct {
	Universe     string             `json:"universe"`
	Date         time.Time          `json:"date"`
	TotalTickers int                `json:"total_tickers"`
	Coverage     map[string]float64 `json:"coverage"`
	QualityScore float64            `json:"quality_score"`
	Failed       []string           `json:"failed,omitempty"` // 기준 미달 항목
}

// Passed reports whether every coverage met its threshold
func (s *Snapshot) Passed() bool {
	return s.TotalTickers > 0 && len(s.Failed) == 0
}

// NewQualityGate creates a new QualityGate instance
func NewQualityGate(db *pgxpool.Pool, config Config) *QualityGate {
	return &QualityGate{
		db:     db,
		config: config,
	}
}

// Check measures coverage of the stored universe as of date
// ⭐ SSOT: 수집 데이터 → 스캔 품질 검증
func (g *QualityGate) Check(ctx context.Context, universe string, date time.Time) (*Snapshot, error) {
	snapshot := &Snapshot{
		Universe: universe,
		Date:     date,
		Coverage: make(map[string]float64),
	}

	// 1. 유니버스 종목 수
	total, err := g.countTickers(ctx, universe)
	if err != nil {
		return nil, fmt.Errorf("count tickers: %w", err)
	}
	snapshot.TotalTickers = total
	if total == 0 {
		return snapshot, nil
	}

	// 2. 커버리지 체크
	coverage, err := g.checkCoverage(ctx, universe, total, date)
	if err != nil {
		return nil, fmt.Errorf("check coverage: %w", err)
	}
	snapshot.Coverage = coverage

	// 3. 품질 점수 계산
	snapshot.QualityScore = calculateScore(coverage)
	snapshot.Failed = g.config.failed(coverage)

	return snapshot, nil
}

func (g *QualityGate) countTickers(ctx context.Context, universe string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM market.universe_members WHERE universe = $1`

	if err := g.db.QueryRow(ctx, query, universe).Scan(&count); err != nil {
		return 0, fmt.Errorf("query universe size: %w", err)
	}
	return count, nil
}

// checkCoverage calculates coverage for each data type
func (g *QualityGate) checkCoverage(ctx context.Context, universe string, total int, date time.Time) (map[string]float64, error) {
	checks := []struct {
		key   string
		query string
		args  []interface{}
	}{
		{
			// 최근 StaleAfter 이내 가격
			key: CoveragePrice,
			query: `
				SELECT COUNT(*) FROM market.universe_members u
				WHERE u.universe = $1 AND EXISTS (
					SELECT 1 FROM market.daily_prices p
					WHERE p.ticker = u.ticker AND p.trade_date BETWEEN $2 AND $3
				)`,
			args: []interface{}{universe, date.Add(-g.config.StaleAfter), date},
		},
		{
			// 지표 계산에 필요한 봉 수
			key: CoverageHistory,
			query: `
				SELECT COUNT(*) FROM market.universe_members u
				WHERE u.universe = $1 AND (
					SELECT COUNT(*) FROM market.daily_prices p
					WHERE p.ticker = u.ticker AND p.trade_date <= $2
				) >= $3`,
			args: []interface{}{universe, date, g.config.MinBars},
		},
		{
			// 성장률 계산에 2분기 필요
			key: CoverageFundamentals,
			query: `
				SELECT COUNT(*) FROM market.universe_members u
				WHERE u.universe = $1 AND (
					SELECT COUNT(*) FROM market.quarterly_fundamentals f
					WHERE f.ticker = u.ticker AND f.period_end <= $2
				) >= 2`,
			args: []interface{}{universe, date},
		},
		{
			key: CoverageHeadlines,
			query: `
				SELECT COUNT(*) FROM market.universe_members u
				WHERE u.universe = $1 AND EXISTS (
					SELECT 1 FROM market.headlines h
					WHERE h.ticker = u.ticker AND h.published_at BETWEEN $2 AND $3
				)`,
			args: []interface{}{universe, date.Add(-g.config.HeadlineWindow), date},
		},
	}

	coverage := make(map[string]float64, len(checks))
	for _, c := range checks {
		var covered int
		if err := g.db.QueryRow(ctx, c.query, c.args...).Scan(&covered); err != nil {
			return nil, fmt.Errorf("query %s coverage: %w", c.key, err)
		}
		coverage[c.key] = ratio(covered, total)
	}
	return coverage, nil
}

func ratio(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total)
}

// failed lists coverage keys below their threshold, sorted
func (c Config) failed(coverage map[string]float64) []string {
	thresholds := map[string]float64{
		CoveragePrice:        c.MinPriceCoverage,
		CoverageHistory:      c.MinHistoryCoverage,
		CoverageFundamentals: c.MinFundamentalsCoverage,
		CoverageHeadlines:    c.MinHeadlineCoverage,
	}

	var failed []string
	for key, threshold := range thresholds {
		if coverage[key] < threshold {
			failed = append(failed, key)
		}
	}
	sort.Strings(failed)
	return failed
}

// calculateScore calculates overall quality score using weighted average
func calculateScore(coverage map[string]float64) float64 {
	// 가중치 (합계 = 1.0)
	weights := map[string]float64{
		CoveragePrice:        0.35, // 가격 데이터 필수
		CoverageHistory:      0.25, // 기술 지표
		CoverageFundamentals: 0.25, // 재무제표
		CoverageHeadlines:    0.15, // 뉴스
	}

	score := 0.0
	for key, weight := range weights {
		if cov, exists := coverage[key]; exists {
			score += cov * weight
		}
	}

	return score
}
