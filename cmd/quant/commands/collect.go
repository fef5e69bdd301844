package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/signalscreen/backend/internal/contracts"
	"github.com/wonny/signalscreen/backend/internal/s0_data/collector"
	"github.com/wonny/signalscreen/backend/internal/s0_data/quality"
	"github.com/wonny/signalscreen/backend/internal/s1_universe"
)

// collectCmd represents the collect command
var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "시장 데이터 수집",
	Long: `웹 소스(Yahoo, 뉴스, 지수 구성)에서 데이터를 받아 PostgreSQL에 저장합니다.
저장된 데이터는 DATA_SOURCE=postgres 로 스캔할 때 사용됩니다.

Example:
  go run ./cmd/quant collect --universe dow30
  go run ./cmd/quant collect --universe sp500 --days 730 --workers 8`,
	RunE: runCollect,
}

var (
	collectUniverses string
	collectDays      int
	collectWorkers   int
)

// qualityCmd represents the quality command
var qualityCmd = &cobra.Command{
	Use:   "quality",
	Short: "저장 데이터 품질 확인",
	Long: `저장된 유니버스의 데이터 커버리지를 확인합니다.

Example:
  go run ./cmd/quant quality --universe sp500`,
	RunE: runQuality,
}

var qualityUniverse string

func init() {
	rootCmd.AddCommand(collectCmd)
	rootCmd.AddCommand(qualityCmd)

	// Flags
	collectCmd.Flags().StringVar(&collectUniverses, "universe", contracts.UniverseDow30, "콤마 구분 유니버스 목록")
	collectCmd.Flags().IntVar(&collectDays, "days", 0, "가격 이력 일수 (0: 설정값)")
	collectCmd.Flags().IntVar(&collectWorkers, "workers", 0, "동시 수집 수 (0: 설정값)")

	qualityCmd.Flags().StringVar(&qualityUniverse, "universe", contracts.UniverseSP500, "유니버스")
}

// collectorConfig derives collection settings from the strategy config
func (a *app) collectorConfig() collector.Config {
	return collector.Config{
		Workers:        a.strategy.Screener.MaxConcurrency,
		PriceRange:     contracts.PriceRange{Days: a.strategy.Screener.PriceHistoryDays},
		HeadlineWindow: a.strategy.Sentiment.Window(),
	}
}

// newCollector copies from the web gateway into the database (connectDB first)
func (a *app) newCollector() *collector.Collector {
	return collector.NewCollector(a.webGateway(), a.postgresSource(), s1_universe.NewRepository(a.db.Pool), a.log)
}

func runCollect(cmd *cobra.Command, args []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.connectDB(); err != nil {
		return err
	}

	ctx, stop := cmdContext()
	defer stop()

	cfg := a.collectorConfig()
	if collectDays > 0 {
		cfg.PriceRange = contracts.PriceRange{Days: collectDays}
	}
	if collectWorkers > 0 {
		cfg.Workers = collectWorkers
	}

	col := a.newCollector()
	out := cmd.OutOrStdout()

	for _, name := range s1_universe.ParseList(collectUniverses) {
		start := time.Now()
		universe, err := col.CollectUniverse(ctx, name)
		if err != nil {
			PrintError(out, fmt.Sprintf("%s: %v", name, err))
			continue
		}

		PrintJobHeader(out, "Data Collection", map[string]string{
			"Universe": universe.Name,
			"Tickers":  fmt.Sprintf("%d", universe.Count()),
			"Days":     fmt.Sprintf("%d", cfg.PriceRange.Days),
		})

		failed := 0
		for _, r := range col.CollectAll(ctx, universe.Tickers, cfg) {
			if r.Error != nil {
				failed++
				PrintError(out, fmt.Sprintf("%-6s %v", r.Ticker, r.Error))
			}
		}

		PrintSuccess(out, fmt.Sprintf("%s: %d/%d tickers in %s",
			universe.Name, universe.Count()-failed, universe.Count(), time.Since(start).Round(time.Second)))
	}
	return ctx.Err()
}

func runQuality(cmd *cobra.Command, args []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.connectDB(); err != nil {
		return err
	}

	ctx, stop := cmdContext()
	defer stop()

	gate := quality.NewQualityGate(a.db.Pool, quality.DefaultConfig())
	snap, err := gate.Check(ctx, qualityUniverse, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("check quality: %w", err)
	}

	out := cmd.OutOrStdout()
	PrintJobHeader(out, "Data Quality", map[string]string{
		"Universe": snap.Universe,
		"Tickers":  fmt.Sprintf("%d", snap.TotalTickers),
		"Score":    fmt.Sprintf("%.2f", snap.QualityScore),
	})
	for _, key := range []string{quality.CoveragePrice, quality.CoverageHistory, quality.CoverageFundamentals, quality.CoverageHeadlines} {
		PrintKeyValue(out, key, fmt.Sprintf("%.1f%%", snap.Coverage[key]*100), 14)
	}

	if snap.Passed() {
		PrintSuccess(out, "All coverage thresholds met")
	} else {
		PrintWarning(out, fmt.Sprintf("Below threshold: %v", snap.Failed))
	}
	return nil
}
