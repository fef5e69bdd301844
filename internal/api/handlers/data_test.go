package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/signalscreen/backend/internal/contracts"
	"github.com/wonny/signalscreen/backend/internal/s0_data/collector"
	"github.com/wonny/signalscreen/backend/internal/s0_data/quality"
	"github.com/wonny/signalscreen/backend/pkg/logger"
)

type fakeQuality struct {
	universe string
	err      error
}

func (f *fakeQuality) Check(ctx context.Context, universe string, date time.Time) (*quality.Snapshot, error) {
	f.universe = universe
	if f.err != nil {
		return nil, f.err
	}
	return &quality.Snapshot{
		Universe:     universe,
		Date:         date,
		TotalTickers: 2,
		Coverage:     map[string]float64{quality.CoveragePrice: 1},
		QualityScore: 0.9,
	}, nil
}

type fakeCollector struct {
	universeErr error
	failing     map[string]bool
	cfg         collector.Config
}

func (f *fakeCollector) CollectUniverse(ctx context.Context, name string) (*contracts.Universe, error) {
	if f.universeErr != nil {
		return nil, f.universeErr
	}
	return &contracts.Universe{Name: name, Tickers: []string{"AAPL", "MSFT", "NVDA"}}, nil
}

func (f *fakeCollector) CollectAll(ctx context.Context, tickers []string, cfg collector.Config) []collector.FetchResult {
	f.cfg = cfg
	results := make([]collector.FetchResult, 0, len(tickers))
	for _, t := range tickers {
		r := collector.FetchResult{Ticker: t, PriceCount: 250}
		if f.failing[t] {
			r.Error = errors.New("upstream 500")
		}
		results = append(results, r)
	}
	return results
}

func TestDataHandler_GetQuality(t *testing.T) {
	gate := &fakeQuality{}
	h := NewDataHandler(gate, &fakeCollector{}, collector.Config{}, logger.Nop())

	rec := httptest.NewRecorder()
	h.GetQuality(rec, httptest.NewRequest(http.MethodGet, "/api/data/quality?universe=DOW30", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "dow30", gate.universe)

	var snap quality.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, 2, snap.TotalTickers)

	gate = &fakeQuality{}
	rec = httptest.NewRecorder()
	NewDataHandler(gate, nil, collector.Config{}, logger.Nop()).
		GetQuality(rec, httptest.NewRequest(http.MethodGet, "/api/data/quality", nil))
	assert.Equal(t, contracts.UniverseSP500, gate.universe, "defaults to sp500")

	rec = httptest.NewRecorder()
	NewDataHandler(&fakeQuality{err: errors.New("db down")}, nil, collector.Config{}, logger.Nop()).
		GetQuality(rec, httptest.NewRequest(http.MethodGet, "/api/data/quality", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestDataHandler_Collect(t *testing.T) {
	base := collector.Config{Workers: 4, PriceRange: contracts.PriceRange{Days: 365}}

	tests := []struct {
		name       string
		body       string
		col        *fakeCollector
		wantStatus int
		wantResult string
		wantFailed int
		wantDays   int
	}{
		{"all collected", `{"universe":"sp500"}`, &fakeCollector{}, http.StatusOK, "success", 0, 365},
		{"partial with days override", `{"universe":" Dow30 ","days":30}`, &fakeCollector{failing: map[string]bool{"MSFT": true}}, http.StatusOK, "partial", 1, 30},
		{"unknown universe", `{"universe":"kospi"}`, &fakeCollector{}, http.StatusBadRequest, "", 0, 0},
		{"malformed body", `[`, &fakeCollector{}, http.StatusBadRequest, "", 0, 0},
		{"universe fetch fails", `{"universe":"nasdaq"}`, &fakeCollector{universeErr: errors.New("nasdaq down")}, http.StatusBadGateway, "", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewDataHandler(&fakeQuality{}, tt.col, base, logger.Nop())
			rec := httptest.NewRecorder()
			h.Collect(rec, httptest.NewRequest(http.MethodPost, "/api/data/collect", strings.NewReader(tt.body)))

			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantStatus != http.StatusOK {
				return
			}

			var resp CollectResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantResult, resp.Status)
			assert.Equal(t, 3, resp.Tickers)
			assert.Equal(t, tt.wantFailed, resp.Failed)
			assert.Len(t, resp.Errors, tt.wantFailed)
			assert.Equal(t, tt.wantDays, tt.col.cfg.PriceRange.Days)
			assert.Equal(t, 4, tt.col.cfg.Workers)
		})
	}
}
