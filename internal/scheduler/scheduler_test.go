package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/signalscreen/backend/pkg/logger"
)

type fakeJob struct {
	name     string
	schedule string
	failures int32 // 처음 n번 실패
	runs     int32
	block    bool
}

func (j *fakeJob) Name() string     { return j.name }
func (j *fakeJob) Schedule() string { return j.schedule }

func (j *fakeJob) Run(ctx context.Context) error {
	n := atomic.AddInt32(&j.runs, 1)
	if j.block {
		<-ctx.Done()
		return ctx.Err()
	}
	if n <= atomic.LoadInt32(&j.failures) {
		return errors.New("upstream unavailable")
	}
	return nil
}

func newTestScheduler(retries, history int) *Scheduler {
	return New(Options{MaxRetries: retries, RetryDelay: time.Millisecond, HistorySize: history}, logger.Nop())
}

func TestScheduler_AddJob(t *testing.T) {
	s := newTestScheduler(0, 10)

	require.NoError(t, s.AddJob(&fakeJob{name: "scan", schedule: "0 30 16 * * 1-5"}))
	assert.Error(t, s.AddJob(&fakeJob{name: "scan", schedule: "@daily"}), "duplicate name")
	assert.Error(t, s.AddJob(&fakeJob{name: "bad", schedule: "not a schedule"}))
	require.NoError(t, s.AddJob(&fakeJob{name: "cleanup", schedule: "@every 5m"}))

	assert.Equal(t, []string{"cleanup", "scan"}, s.GetAllJobs())

	require.NoError(t, s.RemoveJob("cleanup"))
	assert.Error(t, s.RemoveJob("cleanup"))
	assert.Equal(t, []string{"scan"}, s.GetAllJobs())
}

func TestScheduler_RunNowRetries(t *testing.T) {
	tests := []struct {
		name        string
		retries     int
		failures    int32
		wantSuccess bool
		wantRuns    int32
	}{
		{"first try", 2, 0, true, 1},
		{"recovers on retry", 2, 2, true, 3},
		{"gives up", 1, 5, false, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestScheduler(tt.retries, 10)
			job := &fakeJob{name: "scan", schedule: "@daily", failures: tt.failures}
			require.NoError(t, s.AddJob(job))

			result, err := s.RunNow(context.Background(), "scan")
			require.NoError(t, err)

			assert.Equal(t, tt.wantSuccess, result.Success)
			assert.Equal(t, int(tt.wantRuns), result.Attempts)
			assert.Equal(t, tt.wantRuns, atomic.LoadInt32(&job.runs))
			if !tt.wantSuccess {
				assert.Equal(t, "upstream unavailable", result.Error)
			}
		})
	}
}

func TestScheduler_HistoryLimit(t *testing.T) {
	s := newTestScheduler(0, 3)
	job := &fakeJob{name: "scan", schedule: "@daily", failures: 1}
	require.NoError(t, s.AddJob(job))

	for i := 0; i < 5; i++ {
		_, err := s.RunNow(context.Background(), "scan")
		require.NoError(t, err)
	}

	history, err := s.GetJobHistory("scan", 10)
	require.NoError(t, err)
	assert.Len(t, history, 3)
	for _, r := range history {
		assert.True(t, r.Success, "oldest (failed) run dropped")
	}

	stats := s.GetJobStats()["scan"]
	assert.Equal(t, 3, stats.TotalRuns)
	assert.Equal(t, 1.0, stats.SuccessRate)
	require.NotNil(t, stats.LastSuccess)
	assert.Nil(t, stats.LastFailure)

	_, err = s.GetJobHistory("missing", 1)
	assert.Error(t, err)
}

func TestScheduler_StopCancelsRunningJobs(t *testing.T) {
	s := newTestScheduler(3, 10)
	job := &fakeJob{name: "scan", schedule: "@daily", block: true}
	require.NoError(t, s.AddJob(job))
	s.Start()

	require.NoError(t, s.RunJob("scan"))
	require.Eventually(t, func() bool { return atomic.LoadInt32(&job.runs) == 1 }, time.Second, time.Millisecond)

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&job.runs), "no retry after shutdown")

	history, err := s.GetJobHistory("scan", 1)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.False(t, history[0].Success)
}

func TestJobHistory(t *testing.T) {
	h := newJobHistory(0)
	assert.Equal(t, 0.0, h.GetSuccessRate())
	assert.Empty(t, h.GetLatestResults(5))

	h.AddResult(JobResult{Success: false})
	h.AddResult(JobResult{Success: true})
	assert.Len(t, h.Results, 1, "limit floors at one")
	assert.Equal(t, 1.0, h.GetSuccessRate())
	assert.Empty(t, h.GetFailedResults())
}
