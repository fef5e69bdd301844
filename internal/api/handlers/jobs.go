package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/wonny/signalscreen/backend/internal/scheduler"
	"github.com/wonny/signalscreen/backend/internal/scheduler/jobs"
	"github.com/wonny/signalscreen/backend/pkg/logger"
)

// JobScheduler is the scheduler surface exposed over HTTP (scheduler.Scheduler)
type JobScheduler interface {
	GetJobStats() map[string]scheduler.JobStats
	GetJobHistory(jobName string, n int) ([]scheduler.JobResult, error)
	RunJob(jobName string) error
}

// ScanHistory lists retained scheduled scans (jobs.ScanJob)
type ScanHistory interface {
	History() []jobs.ScanSummary
}

// JobsHandler exposes scheduled jobs and their history
type JobsHandler struct {
	scheduler JobScheduler
	scans     ScanHistory
	logger    *logger.Logger
}

// NewJobsHandler creates a new jobs handler
func NewJobsHandler(s JobScheduler, scans ScanHistory, log *logger.Logger) *JobsHandler {
	return &JobsHandler{
		scheduler: s,
		scans:     scans,
		logger:    log.WithComponent("api.jobs"),
	}
}

// List returns statistics for every job
// GET /api/jobs
func (h *JobsHandler) List(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.scheduler.GetJobStats())
}

// History returns the latest runs of one job
// GET /api/jobs/{name}/history?limit=20
func (h *JobsHandler) History(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	results, err := h.scheduler.GetJobHistory(mux.Vars(r)["name"], limit)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, results)
}

// Run triggers a job outside its schedule
// POST /api/jobs/{name}/run
func (h *JobsHandler) Run(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if err := h.scheduler.RunJob(name); err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	h.logger.WithField("job", name).Info("Job triggered via API")
	respondJSON(w, http.StatusAccepted, map[string]string{"status": "started", "job": name})
}

// Scans returns retained scheduled scan summaries, newest first
// GET /api/scans
func (h *JobsHandler) Scans(w http.ResponseWriter, r *http.Request) {
	if h.scans == nil {
		respondJSON(w, http.StatusOK, []jobs.ScanSummary{})
		return
	}
	respondJSON(w, http.StatusOK, h.scans.History())
}
