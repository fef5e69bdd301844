package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/wonny/signalscreen/backend/internal/contracts"
	"github.com/wonny/signalscreen/backend/internal/s0_data/collector"
	"github.com/wonny/signalscreen/backend/pkg/logger"
)

// UniverseCollector is the part of collector.Collector this job drives
type UniverseCollector interface {
	CollectUniverse(ctx context.Context, name string) (*contracts.Universe, error)
	CollectAll(ctx context.Context, tickers []string, cfg collector.Config) []collector.FetchResult
}

// DataCollectionJob refreshes the stored universes and their market data
// ⭐ SSOT: 데이터 수집 스케줄은 이 Job에서만
type DataCollectionJob struct {
	collector UniverseCollector
	universes []string
	schedule  string
	config    collector.Config
	logger    *logger.Logger
}

// NewDataCollectionJob creates a new data collection job
func NewDataCollectionJob(col UniverseCollector, universes []string, schedule string, cfg collector.Config, log *logger.Logger) *DataCollectionJob {
	return &DataCollectionJob{
		collector: col,
		universes: universes,
		schedule:  schedule,
		config:    cfg,
		logger:    log.WithComponent("collect_job"),
	}
}

// Name returns the job name
func (j *DataCollectionJob) Name() string {
	return "data_collection"
}

// Schedule returns the cron schedule
func (j *DataCollectionJob) Schedule() string {
	return j.schedule
}

// Run collects each universe. Per-ticker failures are logged, not returned.
func (j *DataCollectionJob) Run(ctx context.Context) error {
	j.logger.Info("Starting scheduled data collection")

	var errs []error
	for _, name := range j.universes {
		universe, err := j.collector.CollectUniverse(ctx, name)
		if err != nil {
			errs = append(errs, fmt.Errorf("collect universe %s: %w", name, err))
			continue
		}

		results := j.collector.CollectAll(ctx, universe.Tickers, j.config)
		failed := 0
		for _, r := range results {
			if r.Error != nil {
				failed++
			}
		}

		j.logger.WithFields(map[string]interface{}{
			"universe": name,
			"tickers":  len(results),
			"failed":   failed,
		}).Info("Universe data collected")
	}

	return errors.Join(errs...)
}
