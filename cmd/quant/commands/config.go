package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/wonny/signalscreen/backend/internal/strategyconfig"
	"github.com/wonny/signalscreen/backend/pkg/config"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "전략 설정 관리",
	Long: `전략 YAML 설정을 검증하거나 적용 결과를 출력합니다.

Subcommands:
  validate - 설정 검증 및 경고 출력
  show     - 기본값이 적용된 최종 설정 출력

Example:
  go run ./cmd/quant config validate --strategy strategy.yaml
  go run ./cmd/quant config show`,
}

var (
	configValidateCmd = &cobra.Command{
		Use:   "validate",
		Short: "설정 검증",
		RunE:  runConfigValidate,
	}

	configShowCmd = &cobra.Command{
		Use:   "show",
		Short: "최종 설정 출력",
		RunE:  runConfigShow,
	}
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configShowCmd)
}

// loadStrategy reads the strategy file without touching databases or networks
func loadStrategy() (*strategyconfig.Config, string, error) {
	path := strategyFile
	if path == "" {
		cfg, err := config.Load()
		if err != nil {
			return nil, "", fmt.Errorf("load config: %w", err)
		}
		path = cfg.StrategyConfigPath
	}

	strategy, _, err := strategyconfig.Load(path)
	if err != nil {
		return nil, path, err
	}
	return strategy, path, nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	strategy, path, err := loadStrategy()
	if err != nil {
		PrintError(out, err.Error())
		return err
	}
	if path == "" {
		path = "(built-in defaults)"
	}

	hash, err := strategyconfig.Hash(strategy)
	if err != nil {
		return fmt.Errorf("hash config: %w", err)
	}

	PrintSuccess(out, "Strategy config is valid")
	PrintKeyValue(out, "File", path, 8)
	PrintKeyValue(out, "Strategy", strategy.Meta.StrategyID+" v"+strategy.Meta.Version, 8)
	PrintKeyValue(out, "Hash", hash, 8)

	for _, w := range strategyconfig.Warn(strategy) {
		PrintWarning(out, fmt.Sprintf("[%s] %s", w.Code, w.Message))
	}
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	strategy, _, err := loadStrategy()
	if err != nil {
		return err
	}

	hash, err := strategyconfig.Hash(strategy)
	if err != nil {
		return fmt.Errorf("hash config: %w", err)
	}

	data, err := yaml.Marshal(strategy)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "# hash: %s\n", hash)
	_, err = out.Write(data)
	return err
}
