package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	strategyFile string
	verbose      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "quant",
	Short: "Signal fusion screener",
	Long: `Signal Fusion Screener CLI

기술적 지표, 뉴스 감성, 재무 건전성 시그널을 결합해
종목별 BUY/HOLD/SELL 추천을 생성합니다.

Usage:
  go run ./cmd/quant [command]

Examples:
  go run ./cmd/quant scan --universe sp500
  go run ./cmd/quant analyze AAPL
  go run ./cmd/quant api
  go run ./cmd/quant config validate --strategy strategy.yaml`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&strategyFile, "strategy", "", "strategy YAML (default: $STRATEGY_CONFIG or built-in)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// cmdContext is cancelled on Ctrl+C or SIGTERM
func cmdContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
