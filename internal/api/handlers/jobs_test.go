package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/signalscreen/backend/internal/contracts"
	"github.com/wonny/signalscreen/backend/internal/scheduler"
	"github.com/wonny/signalscreen/backend/internal/scheduler/jobs"
	"github.com/wonny/signalscreen/backend/pkg/logger"
)

type fakeScheduler struct {
	triggered []string
	limit     int
}

func (f *fakeScheduler) GetJobStats() map[string]scheduler.JobStats {
	return map[string]scheduler.JobStats{
		"universe_scan": {JobName: "universe_scan", Schedule: "0 0 22 * * 1-5", TotalRuns: 3, SuccessCount: 3, SuccessRate: 100},
	}
}

func (f *fakeScheduler) GetJobHistory(name string, n int) ([]scheduler.JobResult, error) {
	if name != "universe_scan" {
		return nil, fmt.Errorf("job not found: %s", name)
	}
	f.limit = n
	return []scheduler.JobResult{{JobName: name, Success: true, Attempts: 1}}, nil
}

func (f *fakeScheduler) RunJob(name string) error {
	if name != "universe_scan" {
		return fmt.Errorf("job not found: %s", name)
	}
	f.triggered = append(f.triggered, name)
	return nil
}

type fakeScanHistory []jobs.ScanSummary

func (f fakeScanHistory) History() []jobs.ScanSummary { return f }

func newJobsRouter(h *JobsHandler) http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/api/jobs", h.List).Methods("GET")
	r.HandleFunc("/api/jobs/{name}/history", h.History).Methods("GET")
	r.HandleFunc("/api/jobs/{name}/run", h.Run).Methods("POST")
	r.HandleFunc("/api/scans", h.Scans).Methods("GET")
	return r
}

func TestJobsHandler_Routes(t *testing.T) {
	sched := &fakeScheduler{}
	scans := fakeScanHistory{{
		ID:        "scan-1",
		Universe:  "dow30",
		Actions:   map[contracts.Action]int{contracts.ActionBuy: 2},
		StartedAt: time.Date(2026, 3, 2, 22, 0, 0, 0, time.UTC),
	}}
	router := newJobsRouter(NewJobsHandler(sched, scans, logger.Nop()))

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
		wantBody   string
	}{
		{"list", http.MethodGet, "/api/jobs", http.StatusOK, `"universe_scan"`},
		{"history", http.MethodGet, "/api/jobs/universe_scan/history?limit=5", http.StatusOK, `"attempts":1`},
		{"history bad limit", http.MethodGet, "/api/jobs/universe_scan/history?limit=0", http.StatusBadRequest, "limit"},
		{"history unknown job", http.MethodGet, "/api/jobs/nope/history", http.StatusNotFound, "job not found"},
		{"run", http.MethodPost, "/api/jobs/universe_scan/run", http.StatusAccepted, `"started"`},
		{"run unknown job", http.MethodPost, "/api/jobs/nope/run", http.StatusNotFound, "job not found"},
		{"scans", http.MethodGet, "/api/scans", http.StatusOK, `"scan-1"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
		})
	}

	assert.Equal(t, 5, sched.limit)
	assert.Equal(t, []string{"universe_scan"}, sched.triggered)
}

func TestJobsHandler_ScansWithoutHistory(t *testing.T) {
	rec := httptest.NewRecorder()
	newJobsRouter(NewJobsHandler(&fakeScheduler{}, nil, logger.Nop())).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/scans", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var out []jobs.ScanSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Empty(t, out)
}
