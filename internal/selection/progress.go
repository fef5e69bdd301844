package selection

import (
	"time"

	"github.com/wonny/signalscreen/backend/internal/contracts"
)

// TaskState is a ticker's position in the scan
type TaskState string

const (
	StatePending   TaskState = "pending"
	StateFetching  TaskState = "fetching"
	StateComputing TaskState = "computing"
	StateCompleted TaskState = "completed"
	StateFailed    TaskState = "failed"
)

// IsTerminal reports whether no further transition happens
func (s TaskState) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Event is delivered to the progress hook once per terminal ticker
type Event struct {
	ScanID  string                    `json:"scan_id"`
	Ticker  string                    `json:"ticker"`
	State   TaskState                 `json:"state"`
	Result  *contracts.ScreenerResult `json:"result,omitempty"`
	Failure *contracts.Failure        `json:"failure,omitempty"`
	Done    int                       `json:"done"`
	Total   int                       `json:"total"`
}

// ProgressFunc receives terminal results one at a time, never concurrently
type ProgressFunc func(Event)

// Recorder receives scan metrics (pkg/metrics 구현)
type Recorder interface {
	ObserveTicker(status string, elapsed time.Duration)
	ObserveScan(report *contracts.ScreenerReport)
}

type nopRecorder struct{}

func (nopRecorder) ObserveTicker(string, time.Duration) {}
func (nopRecorder) ObserveScan(*contracts.ScreenerReport) {}
