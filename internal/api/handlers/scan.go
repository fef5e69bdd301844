package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/wonny/signalscreen/backend/internal/contracts"
	"github.com/wonny/signalscreen/backend/internal/s1_universe"
	"github.com/wonny/signalscreen/backend/internal/selection"
	"github.com/wonny/signalscreen/backend/pkg/logger"
)

// customUniverse names ad-hoc ticker lists
const customUniverse = "custom"

// Screener is the scan surface the handlers need (selection.Screener implements it)
type Screener interface {
	Screen(ctx context.Context, universe contracts.Universe, progress selection.ProgressFunc) *contracts.ScreenerReport
	Analyze(ctx context.Context, ticker string) (*contracts.ScreenerResult, error)
}

// UniverseResolver turns universe names into normalized ticker lists (s1_universe.Builder)
type UniverseResolver interface {
	Resolve(ctx context.Context, names ...string) (*s1_universe.Result, error)
	Build(name string, raw []string) *s1_universe.Result
}

// ScanHandler serves scans and single-ticker analysis
// ⭐ SSOT: 스캔 API 핸들러는 이 구조체에서만
type ScanHandler struct {
	screener  Screener
	universes UniverseResolver
	upgrader  websocket.Upgrader
	logger    *logger.Logger
}

// NewScanHandler creates a new scan handler
func NewScanHandler(screener Screener, universes UniverseResolver, log *logger.Logger) *ScanHandler {
	return &ScanHandler{
		screener:  screener,
		universes: universes,
		upgrader: websocket.Upgrader{
			HandshakeTimeout: 10 * time.Second,
			ReadBufferSize:   1024,
			WriteBufferSize:  4096,
		},
		logger: log.WithComponent("api.scan"),
	}
}

// ScanRequest selects what to scan: named universes, or an explicit ticker list
type ScanRequest struct {
	Universes []string `json:"universes"`
	Tickers   []string `json:"tickers"`
}

// Analyze screens one ticker
// GET /api/analyze/{ticker}
func (h *ScanHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	ticker := s1_universe.Normalize(mux.Vars(r)["ticker"])
	if ticker == "" {
		respondError(w, http.StatusBadRequest, "ticker is required")
		return
	}

	result, err := h.screener.Analyze(r.Context(), ticker)
	if err != nil {
		var te *selection.TickerError
		if errors.As(err, &te) {
			respondJSON(w, failureStatus(te.Failure.Reason), te.Failure)
			return
		}
		h.logger.WithError(err).WithField("ticker", ticker).Warn("Analyze aborted")
		respondError(w, http.StatusServiceUnavailable, "analysis cancelled")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// Scan runs a scan and returns the full report. A client disconnect cancels the
// scan; whatever finished is still reported.
// POST /api/scan
func (h *ScanHandler) Scan(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	universe, status, err := h.resolve(r.Context(), req)
	if err != nil {
		respondError(w, status, err.Error())
		return
	}

	report := h.screener.Screen(r.Context(), universe, nil)
	respondJSON(w, http.StatusOK, report)
}

// StreamMessage is one websocket frame of a streamed scan
type StreamMessage struct {
	Type   string                    `json:"type"` // progress, report, error
	Event  *selection.Event          `json:"event,omitempty"`
	Report *contracts.ScreenerReport `json:"report,omitempty"`
	Error  string                    `json:"error,omitempty"`
}

// Stream runs a scan and pushes every terminal ticker as it completes, then the report.
// Closing the socket cancels the scan.
// GET /api/scan/ws?universe=sp500,dow30 | ?tickers=AAPL,MSFT
func (h *ScanHandler) Stream(w http.ResponseWriter, r *http.Request) {
	req := ScanRequest{
		Universes: s1_universe.ParseList(r.URL.Query().Get("universe")),
		Tickers:   s1_universe.ParseList(r.URL.Query().Get("tickers")),
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade가 이미 오류 응답을 보냄
		h.logger.WithError(err).Debug("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 클라이언트 종료 감지
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	universe, _, err := h.resolve(ctx, req)
	if err != nil {
		_ = conn.WriteJSON(StreamMessage{Type: "error", Error: err.Error()})
		return
	}

	// progress는 스캔 수집 고루틴에서 순차 호출되므로 단일 writer 보장
	report := h.screener.Screen(ctx, universe, func(e selection.Event) {
		if err := conn.WriteJSON(StreamMessage{Type: "progress", Event: &e}); err != nil {
			cancel()
		}
	})

	if err := conn.WriteJSON(StreamMessage{Type: "report", Report: report}); err != nil {
		h.logger.WithError(err).WithField("scan_id", report.ID).Debug("Client gone before report")
		return
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "scan complete"),
		time.Now().Add(time.Second))
}

// resolve builds the scan universe and the HTTP status for a bad request
func (h *ScanHandler) resolve(ctx context.Context, req ScanRequest) (contracts.Universe, int, error) {
	if len(req.Tickers) > 0 {
		result := h.universes.Build(customUniverse, req.Tickers)
		if result.Universe.Count() == 0 {
			return contracts.Universe{}, http.StatusBadRequest, fmt.Errorf("no valid tickers given")
		}
		return result.Universe, http.StatusOK, nil
	}

	if len(req.Universes) == 0 {
		return contracts.Universe{}, http.StatusBadRequest, fmt.Errorf("universes or tickers is required")
	}
	for _, name := range req.Universes {
		if !contracts.IsKnownUniverse(strings.ToLower(strings.TrimSpace(name))) {
			return contracts.Universe{}, http.StatusBadRequest,
				fmt.Errorf("unknown universe %q (known: %s)", name, strings.Join(contracts.KnownUniverses, ", "))
		}
	}

	result, err := h.universes.Resolve(ctx, req.Universes...)
	if err != nil {
		h.logger.WithError(err).WithField("universes", req.Universes).Warn("Universe resolution failed")
		return contracts.Universe{}, http.StatusBadGateway, err
	}
	return result.Universe, http.StatusOK, nil
}

func failureStatus(reason contracts.FailureReason) int {
	switch reason {
	case contracts.ReasonNotFound:
		return http.StatusNotFound
	case contracts.ReasonTimeout:
		return http.StatusGatewayTimeout
	case contracts.ReasonRateLimited:
		return http.StatusTooManyRequests
	}
	return http.StatusBadGateway
}
