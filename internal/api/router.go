package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wonny/signalscreen/backend/internal/api/handlers"
	"github.com/wonny/signalscreen/backend/pkg/logger"
)

// Handlers groups the route handlers. Nil entries leave their routes unregistered.
type Handlers struct {
	Scan    *handlers.ScanHandler
	Data    *handlers.DataHandler // DATA_SOURCE=postgres 일 때만
	Jobs    *handlers.JobsHandler // 스케줄러 실행 시만
	Metrics http.Handler          // METRICS_ENABLED
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(h Handlers, rec HTTPRecorder, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	if h.Metrics != nil {
		r.Handle("/metrics", h.Metrics).Methods("GET")
	}

	api := r.PathPrefix("/api").Subrouter()

	// Scan endpoints
	if h.Scan != nil {
		api.HandleFunc("/analyze/{ticker}", h.Scan.Analyze).Methods("GET")
		api.HandleFunc("/scan", h.Scan.Scan).Methods("POST")
		api.HandleFunc("/scan/ws", h.Scan.Stream).Methods("GET")
	}

	// Data endpoints
	if h.Data != nil {
		api.HandleFunc("/data/quality", h.Data.GetQuality).Methods("GET")
		api.HandleFunc("/data/collect", h.Data.Collect).Methods("POST")
	}

	// Scheduler endpoints
	if h.Jobs != nil {
		api.HandleFunc("/jobs", h.Jobs.List).Methods("GET")
		api.HandleFunc("/jobs/{name}/history", h.Jobs.History).Methods("GET")
		api.HandleFunc("/jobs/{name}/run", h.Jobs.Run).Methods("POST")
		api.HandleFunc("/scans", h.Jobs.Scans).Methods("GET")
	}

	// Apply middleware
	r.Use(loggingMiddleware(log, rec))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "signalscreen-api",
	})
}
