package commands

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/signalscreen/backend/internal/s1_universe"
	"github.com/wonny/signalscreen/backend/internal/selection"
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze [ticker]",
	Short: "단일 종목 분석",
	Long: `한 종목의 시그널과 추천, 세부 지표를 출력합니다.

Example:
  go run ./cmd/quant analyze AAPL
  go run ./cmd/quant analyze brk.b --json`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

var analyzeJSON bool

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "결과를 JSON으로 출력")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
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

	ticker := s1_universe.Normalize(args[0])
	result, err := a.screener.Analyze(ctx, ticker)
	if err != nil {
		var te *selection.TickerError
		if errors.As(err, &te) {
			PrintError(cmd.ErrOrStderr(), fmt.Sprintf("%s: %s", te.Failure.Ticker, te.Failure.Reason))
		}
		return fmt.Errorf("analyze %s: %w", ticker, err)
	}

	out := cmd.OutOrStdout()
	if analyzeJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	PrintResult(out, result)
	return nil
}
