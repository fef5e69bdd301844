package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/signalscreen/backend/internal/api"
	"github.com/wonny/signalscreen/backend/internal/api/handlers"
	"github.com/wonny/signalscreen/backend/internal/s0_data/quality"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

Endpoints:
  GET  /health                  - Health check
  GET  /metrics                 - Prometheus 메트릭 (METRICS_ENABLED)
  GET  /api/analyze/{ticker}    - 단일 종목 분석
  POST /api/scan                - 스캔 실행 후 리포트 반환
  GET  /api/scan/ws             - 스캔 진행 상황 websocket 스트림
  GET  /api/data/quality        - 저장 데이터 품질 (DATA_SOURCE=postgres)
  POST /api/data/collect        - 데이터 수집 트리거 (DATA_SOURCE=postgres)
  GET  /api/jobs                - 스케줄 작업 통계 (--with-scheduler)
  GET  /api/scans               - 정기 스캔 이력 (--with-scheduler)

Example:
  go run ./cmd/quant api
  go run ./cmd/quant api --port 8080 --with-scheduler`,
	RunE: runAPIServer,
}

var (
	apiPort          string
	apiWithScheduler bool
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (기본: $PORT)")
	apiCmd.Flags().BoolVar(&apiWithScheduler, "with-scheduler", false, "정기 스캔 스케줄러 함께 실행 (schedule.enabled 시 자동)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "=== Signal Screener API Server ===")

	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.Close()

	// Override port if flag is set
	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	if err := a.withScreener(); err != nil {
		return err
	}

	h := api.Handlers{
		Scan:    handlers.NewScanHandler(a.screener, a.universes, a.log),
		Metrics: a.metricsHandler(),
	}

	if a.db != nil {
		gate := quality.NewQualityGate(a.db.Pool, quality.DefaultConfig())
		h.Data = handlers.NewDataHandler(gate, a.newCollector(), a.collectorConfig(), a.log)
	}

	var sched *schedule
	if apiWithScheduler || a.strategy.Schedule.Enabled {
		sched, err = a.newSchedule()
		if err != nil {
			return fmt.Errorf("init scheduler: %w", err)
		}
		h.Jobs = handlers.NewJobsHandler(sched, sched.scans, a.log)
		sched.Start()
		defer sched.Stop()
	}

	var rec api.HTTPRecorder
	if a.recorder != nil {
		rec = a.recorder
	}
	server := api.New(a.cfg, a.log, api.NewRouter(h, rec, a.log))

	ctx, stop := cmdContext()
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	PrintSuccess(out, fmt.Sprintf("Server running on http://localhost:%s (source: %s)", a.cfg.Port, a.cfg.DataSource))
	fmt.Fprintln(out, "\nPress Ctrl+C to stop")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.log.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	a.log.Info("Server stopped")
	return nil
}
