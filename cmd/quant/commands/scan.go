package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wonny/signalscreen/backend/internal/contracts"
	"github.com/wonny/signalscreen/backend/internal/s1_universe"
	"github.com/wonny/signalscreen/backend/internal/selection"
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "유니버스 스캔",
	Long: `유니버스 전체 또는 지정한 종목을 스캔하고 추천 순위를 출력합니다.

Universes: sp500, nasdaq100, dow30, nyse, nasdaq

Ctrl+C로 중단하면 완료된 종목까지의 결과를 출력합니다.

Example:
  go run ./cmd/quant scan --universe sp500
  go run ./cmd/quant scan --universe dow30,nasdaq100 --top 30
  go run ./cmd/quant scan --tickers AAPL,MSFT,BRK.B --json`,
	RunE: runScan,
}

var (
	scanUniverses string
	scanTickers   string
	scanTop       int
	scanJSON      bool
	scanQuiet     bool
)

func init() {
	rootCmd.AddCommand(scanCmd)

	// Flags
	scanCmd.Flags().StringVar(&scanUniverses, "universe", contracts.UniverseSP500, "콤마 구분 유니버스 목록")
	scanCmd.Flags().StringVar(&scanTickers, "tickers", "", "콤마 구분 종목 (지정 시 --universe 무시)")
	scanCmd.Flags().IntVar(&scanTop, "top", 20, "출력할 상위 종목 수 (0: 전체)")
	scanCmd.Flags().BoolVar(&scanJSON, "json", false, "전체 리포트를 JSON으로 출력")
	scanCmd.Flags().BoolVarP(&scanQuiet, "quiet", "q", false, "진행 상황 출력 생략")
}

func runScan(cmd *cobra.Command, args []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.withScreener(); err != nil {
		return err
	}

	ctx, stop := cmdContext()
	defer stop()

	var universe contracts.Universe
	if tickers := s1_universe.ParseList(scanTickers); len(tickers) > 0 {
		universe = a.universes.Build("custom", tickers).Universe
	} else {
		result, err := a.universes.Resolve(ctx, s1_universe.ParseList(scanUniverses)...)
		if err != nil {
			return fmt.Errorf("resolve universe: %w", err)
		}
		universe = result.Universe
	}
	if universe.Count() == 0 {
		return fmt.Errorf("no tickers to scan")
	}

	out := cmd.OutOrStdout()
	var progress selection.ProgressFunc
	if !scanQuiet && !scanJSON {
		PrintJobHeader(out, "Universe Scan", map[string]string{
			"Universe": universe.Name,
			"Tickers":  fmt.Sprintf("%d", universe.Count()),
			"Source":   a.cfg.DataSource,
		})
		progress = func(e selection.Event) { PrintProgress(out, e) }
	}

	report := a.screener.Screen(ctx, universe, progress)

	if scanJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	PrintReport(out, report, scanTop)
	if report.Cancelled {
		PrintWarning(os.Stderr, "Scan interrupted: partial results")
	}
	return nil
}
