package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/wonny/signalscreen/backend/internal/contracts"
	"github.com/wonny/signalscreen/backend/internal/s0_data/collector"
	"github.com/wonny/signalscreen/backend/internal/s0_data/quality"
	"github.com/wonny/signalscreen/backend/pkg/logger"
)

// QualityChecker measures stored data coverage (quality.QualityGate)
type QualityChecker interface {
	Check(ctx context.Context, universe string, date time.Time) (*quality.Snapshot, error)
}

// DataCollector copies market data into the database (collector.Collector)
type DataCollector interface {
	CollectUniverse(ctx context.Context, name string) (*contracts.Universe, error)
	CollectAll(ctx context.Context, tickers []string, cfg collector.Config) []collector.FetchResult
}

// DataHandler handles data-related API endpoints
// ⭐ SSOT: 데이터 API 핸들러는 이 구조체에서만
type DataHandler struct {
	qualityGate QualityChecker
	collector   DataCollector
	config      collector.Config
	logger      *logger.Logger
}

// NewDataHandler creates a new data handler
func NewDataHandler(qualityGate QualityChecker, col DataCollector, cfg collector.Config, log *logger.Logger) *DataHandler {
	return &DataHandler{
		qualityGate: qualityGate,
		collector:   col,
		config:      cfg,
		logger:      log.WithComponent("api.data"),
	}
}

// GetQuality returns the stored-data coverage of a universe
// GET /api/data/quality?universe=sp500
func (h *DataHandler) GetQuality(w http.ResponseWriter, r *http.Request) {
	universe := strings.ToLower(r.URL.Query().Get("universe"))
	if universe == "" {
		universe = contracts.UniverseSP500
	}

	snapshot, err := h.qualityGate.Check(r.Context(), universe, time.Now().UTC())
	if err != nil {
		h.logger.WithError(err).Error("Failed to check data quality")
		respondError(w, http.StatusInternalServerError, "Failed to check data quality")
		return
	}

	respondJSON(w, http.StatusOK, snapshot)
}

// CollectRequest represents a data collection request
type CollectRequest struct {
	Universe string `json:"universe"`
	Days     int    `json:"days"` // 가격 이력 일수 (기본: 설정값)
}

// CollectResponse summarizes a collection run
type CollectResponse struct {
	Status   string            `json:"status"`
	Universe string            `json:"universe"`
	Tickers  int               `json:"tickers"`
	Failed   int               `json:"failed"`
	Errors   map[string]string `json:"errors,omitempty"`
}

// Collect refreshes one stored universe and its market data
// POST /api/data/collect
func (h *DataHandler) Collect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CollectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Universe = strings.ToLower(strings.TrimSpace(req.Universe))
	if !contracts.IsKnownUniverse(req.Universe) {
		respondError(w, http.StatusBadRequest, "Invalid universe (valid: "+strings.Join(contracts.KnownUniverses, ", ")+")")
		return
	}

	cfg := h.config
	if req.Days > 0 {
		cfg.PriceRange = contracts.PriceRange{Days: req.Days}
	}

	h.logger.WithFields(map[string]interface{}{
		"universe": req.Universe,
		"days":     cfg.PriceRange.Days,
	}).Info("Data collection triggered")

	universe, err := h.collector.CollectUniverse(ctx, req.Universe)
	if err != nil {
		h.logger.WithError(err).Error("Failed to collect universe")
		respondError(w, http.StatusBadGateway, "Failed to collect universe")
		return
	}

	resp := CollectResponse{Status: "success", Universe: universe.Name}
	for _, result := range h.collector.CollectAll(ctx, universe.Tickers, cfg) {
		resp.Tickers++
		if result.Error != nil {
			resp.Failed++
			if resp.Errors == nil {
				resp.Errors = make(map[string]string)
			}
			resp.Errors[result.Ticker] = result.Error.Error()
		}
	}
	if resp.Failed > 0 {
		resp.Status = "partial"
	}

	respondJSON(w, http.StatusOK, resp)
}
