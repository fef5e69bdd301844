package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/signalscreen/backend/internal/contracts"
	"github.com/wonny/signalscreen/backend/internal/s0_data/quality"
	"github.com/wonny/signalscreen/backend/internal/scheduler"
	"github.com/wonny/signalscreen/backend/internal/scheduler/jobs"
)

// Fixed schedules for the storage jobs (초 포함 6필드)
const (
	collectSchedule = "0 0 18 * * 1-5"
	qualitySchedule = "0 30 19 * * 1-5"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `정기 스캔 스케줄러를 시작하거나 작업을 관리합니다.

Subcommands:
  start   - 스케줄러 시작
  list    - 등록된 작업 목록
  run     - 특정 작업 즉시 실행 (완료까지 대기)

Example:
  go run ./cmd/quant scheduler start
  go run ./cmd/quant scheduler list
  go run ./cmd/quant scheduler run universe_scan`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		Long: `스케줄러를 시작하고 등록된 모든 작업을 스케줄합니다.

등록되는 작업:
- universe_scan: 전략 설정의 schedule.cron (기본 평일 16:30)
- cache_cleanup: 5분마다 (메모리 캐시 사용 시)
- data_collection: 평일 18:00 (DATA_SOURCE=postgres)
- quality_check: 평일 19:30 (DATA_SOURCE=postgres)

스케줄러는 Ctrl+C로 종료할 수 있습니다.`,
		RunE: runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 작업 목록",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "특정 작업 즉시 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
}

// schedule is a built scheduler plus the scan job whose history the API serves
type schedule struct {
	*scheduler.Scheduler
	scans *jobs.ScanJob
}

// newSchedule registers every job the configured data source supports
func (a *app) newSchedule() (*schedule, error) {
	sched := scheduler.New(scheduler.Options{
		MaxRetries:  2,
		RetryDelay:  30 * time.Second,
		HistorySize: a.strategy.Schedule.HistorySize,
	}, a.log)

	scan := func(ctx context.Context, name string) (*contracts.ScreenerReport, error) {
		result, err := a.universes.Resolve(ctx, name)
		if err != nil {
			return nil, err
		}
		return a.screener.Screen(ctx, result.Universe, nil), nil
	}
	scans := jobs.NewScanJob(scan, a.strategy.Schedule.Universes, a.strategy.Schedule.Cron, a.strategy.Schedule.HistorySize, a.log)

	toAdd := []scheduler.Job{scans}
	if a.db != nil {
		// 수집은 웹 게이트웨이를 생성하므로 캐시 정리보다 먼저
		toAdd = append(toAdd,
			jobs.NewDataCollectionJob(a.newCollector(), a.strategy.Schedule.Universes, collectSchedule, a.collectorConfig(), a.log),
			jobs.NewQualityCheckJob(quality.NewQualityGate(a.db.Pool, quality.DefaultConfig()), a.strategy.Schedule.Universes, qualitySchedule, a.log),
		)
	}
	if c := a.marketCache(); c != nil {
		toAdd = append(toAdd, jobs.NewCacheCleanupJob(c, a.log))
	}

	for _, job := range toAdd {
		if err := sched.AddJob(job); err != nil {
			return nil, fmt.Errorf("add job %s: %w", job.Name(), err)
		}
	}
	return &schedule{Scheduler: sched, scans: scans}, nil
}

// initSchedule bootstraps the app and its scheduler
func initSchedule() (*app, *schedule, error) {
	a, err := bootstrap()
	if err != nil {
		return nil, nil, err
	}
	if err := a.withScreener(); err != nil {
		a.Close()
		return nil, nil, err
	}
	sched, err := a.newSchedule()
	if err != nil {
		a.Close()
		return nil, nil, err
	}
	return a, sched, nil
}

func runScheduler(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "=== Signal Screener Scheduler ===")

	a, sched, err := initSchedule()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.Close()

	ctx, stop := cmdContext()
	defer stop()

	sched.Start()

	PrintSuccess(out, "Scheduler started")
	fmt.Fprintln(out, "\nRegistered jobs:")
	for _, jobName := range sched.GetAllJobs() {
		fmt.Fprintf(out, "  - %s\n", jobName)
	}
	fmt.Fprintln(out, "\nPress Ctrl+C to stop")

	<-ctx.Done()

	fmt.Fprintln(out, "\nShutting down scheduler...")
	sched.Stop()
	fmt.Fprintln(out, "Scheduler stopped")

	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	a, sched, err := initSchedule()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	stats := sched.GetJobStats()

	widths := []int{18, 18}
	PrintTableHeader(out, []string{"Job", "Schedule"}, widths)
	for _, name := range sched.GetAllJobs() {
		PrintTableRow(out, []string{name, stats[name].Schedule}, widths)
	}
	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	a, sched, err := initSchedule()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.Close()

	ctx, stop := cmdContext()
	defer stop()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Running job: %s\n", jobName)

	result, err := sched.RunNow(ctx, jobName)
	if err != nil {
		return fmt.Errorf("run job: %w", err)
	}

	if !result.Success {
		PrintError(out, fmt.Sprintf("%s failed after %d attempt(s): %s", jobName, result.Attempts, result.Error))
		return fmt.Errorf("job %s failed", jobName)
	}
	PrintSuccess(out, fmt.Sprintf("%s completed in %s", jobName, result.Duration.Round(time.Millisecond)))

	if jobName == sched.scans.Name() {
		for _, s := range sched.scans.History() {
			fmt.Fprintf(out, "  %s: %d screened, BUY %d\n", s.Universe, s.Successes, s.Actions[contracts.ActionBuy])
		}
	}
	return nil
}
