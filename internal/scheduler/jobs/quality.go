package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/signalscreen/backend/internal/s0_data/quality"
	"github.com/wonny/signalscreen/backend/pkg/logger"
)

// CoverageChecker measures stored data coverage (quality.QualityGate implements it)
type CoverageChecker interface {
	Check(ctx context.Context, universe string, date time.Time) (*quality.Snapshot, error)
}

// QualityCheckJob verifies that collected data can feed the scheduled scans
type QualityCheckJob struct {
	gate      CoverageChecker
	universes []string
	schedule  string
	logger    *logger.Logger
}

// NewQualityCheckJob creates a new quality check job
func NewQualityCheckJob(gate CoverageChecker, universes []string, schedule string, log *logger.Logger) *QualityCheckJob {
	return &QualityCheckJob{
		gate:      gate,
		universes: universes,
		schedule:  schedule,
		logger:    log.WithComponent("quality_job"),
	}
}

// Name returns the job name
func (j *QualityCheckJob) Name() string {
	return "quality_check"
}

// Schedule returns the cron schedule
func (j *QualityCheckJob) Schedule() string {
	return j.schedule
}

// Run checks every universe. Coverage below threshold is a warning; only query errors fail the job.
func (j *QualityCheckJob) Run(ctx context.Context) error {
	for _, name := range j.universes {
		snapshot, err := j.gate.Check(ctx, name, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("quality check %s: %w", name, err)
		}

		log := j.logger.WithFields(map[string]interface{}{
			"universe":      name,
			"total_tickers": snapshot.TotalTickers,
			"quality_score": snapshot.QualityScore,
			"failed":        snapshot.Failed,
		})
		if snapshot.Passed() {
			log.Info("Data quality passed")
		} else {
			log.Warn("Data quality below threshold")
		}
	}
	return nil
}
