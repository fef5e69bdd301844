package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wonny/signalscreen/backend/internal/contracts"
	"github.com/wonny/signalscreen/backend/pkg/logger"
)

// topPicks is how many best-ranked tickers a summary keeps
const topPicks = 10

// ScanFunc screens a named universe (wraps selection.Screener.ScreenUniverse)
type ScanFunc func(ctx context.Context, universe string) (*contracts.ScreenerReport, error)

// Pick is one ranked ticker in a scan summary
type Pick struct {
	Ticker     string           `json:"ticker"`
	Composite  float64          `json:"composite"`
	Action     contracts.Action `json:"action"`
	Confidence float64          `json:"confidence"`
}

// ScanSummary is the retained outcome of one scheduled scan
type ScanSummary struct {
	ID         string                          `json:"id"`
	Universe   string                          `json:"universe"`
	StartedAt  time.Time                       `json:"started_at"`
	FinishedAt time.Time                       `json:"finished_at"`
	Successes  int                             `json:"successes"`
	Failures   map[contracts.FailureReason]int `json:"failures"`
	Unresolved int                             `json:"unresolved"`
	Cancelled  bool                            `json:"cancelled"`
	Actions    map[contracts.Action]int        `json:"actions"`
	Top        []Pick                          `json:"top"`
}

// ScanJob screens the configured universes on a schedule
// ⭐ SSOT: 정기 스캔 스케줄은 이 Job에서만
type ScanJob struct {
	scan      ScanFunc
	universes []string
	schedule  string
	limit     int

	mu      sync.RWMutex
	history []ScanSummary

	logger *logger.Logger
}

// NewScanJob creates a scan job keeping the last limit summaries
func NewScanJob(scan ScanFunc, universes []string, schedule string, limit int, log *logger.Logger) *ScanJob {
	if limit < 1 {
		limit = 1
	}
	return &ScanJob{
		scan:      scan,
		universes: universes,
		schedule:  schedule,
		limit:     limit,
		logger:    log.WithComponent("scan_job"),
	}
}

// Name returns the job name
func (j *ScanJob) Name() string {
	return "universe_scan"
}

// Schedule returns the cron schedule
func (j *ScanJob) Schedule() string {
	return j.schedule
}

// Run scans every universe in turn. It fails only when no universe could be scanned.
func (j *ScanJob) Run(ctx context.Context) error {
	var errs []error
	for _, name := range j.universes {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}

		report, err := j.scan(ctx, name)
		if err != nil {
			j.logger.WithError(err).WithField("universe", name).Warn("Scheduled scan failed")
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}

		summary := Summarize(report)
		j.record(summary)

		j.logger.WithFields(map[string]interface{}{
			"universe":   name,
			"scan_id":    summary.ID,
			"successes":  summary.Successes,
			"unresolved": summary.Unresolved,
			"buy":        summary.Actions[contracts.ActionBuy],
		}).Info("Scheduled scan recorded")
	}

	if len(errs) == len(j.universes) && len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// History returns retained summaries, newest first
func (j *ScanJob) History() []ScanSummary {
	j.mu.RLock()
	defer j.mu.RUnlock()

	out := make([]ScanSummary, len(j.history))
	for i, s := range j.history {
		out[len(j.history)-1-i] = s
	}
	return out
}

func (j *ScanJob) record(s ScanSummary) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.history = append(j.history, s)
	if len(j.history) > j.limit {
		j.history = j.history[len(j.history)-j.limit:]
	}
}

// Summarize reduces a report to counts and the best-ranked picks
func Summarize(report *contracts.ScreenerReport) ScanSummary {
	s := ScanSummary{
		ID:         report.ID,
		Universe:   report.Universe,
		StartedAt:  report.StartedAt,
		FinishedAt: report.FinishedAt,
		Successes:  len(report.Successes),
		Failures:   report.FailuresByReason(),
		Unresolved: len(report.Unresolved),
		Cancelled:  report.Cancelled,
		Actions:    report.CountByAction(),
	}

	// Successes는 이미 composite 내림차순
	n := len(report.Successes)
	if n > topPicks {
		n = topPicks
	}
	s.Top = make([]Pick, 0, n)
	for _, r := range report.Successes[:n] {
		s.Top = append(s.Top, Pick{
			Ticker:     r.Ticker,
			Composite:  r.Recommendation.Composite,
			Action:     r.Recommendation.Action,
			Confidence: r.Recommendation.Confidence,
		})
	}
	return s
}
