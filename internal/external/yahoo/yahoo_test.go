package yahoo

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/signalscreen/backend/internal/contracts"
	"github.com/wonny/signalscreen/backend/pkg/config"
	"github.com/wonny/signalscreen/backend/pkg/httputil"
	"github.com/wonny/signalscreen/backend/pkg/logger"
)

const chartJSON = `{"chart":{"result":[{"meta":{"symbol":"AAPL"},
"timestamp":[1704205800,1704292200,1704378600],
"indicators":{"quote":[{
  "open":[187.15,184.22,null],
  "high":[188.44,185.88,183.09],
  "low":[183.89,183.43,180.88],
  "close":[185.64,null,181.91],
  "volume":[82488700,58414500,71983600]}]}}],"error":null}}`

const timeseriesJSON = `{"timeseries":{"result":[
 {"meta":{"symbol":["AAPL"],"type":["quarterlyTotalRevenue"]},"timestamp":[1,2],
  "quarterlyTotalRevenue":[
    {"asOfDate":"2023-12-31","periodType":"3M","reportedValue":{"raw":119575000000,"fmt":"119.58B"}},
    {"asOfDate":"2023-09-30","periodType":"3M","reportedValue":{"raw":89498000000,"fmt":"89.50B"}}]},
 {"meta":{"symbol":["AAPL"],"type":["quarterlyNetIncome"]},"timestamp":[1],
  "quarterlyNetIncome":[null,
    {"asOfDate":"2023-12-31","periodType":"3M","reportedValue":{"raw":33916000000,"fmt":"33.92B"}}]},
 {"meta":{"symbol":["AAPL"],"type":["quarterlyTotalDebt"]}},
 {"meta":{"symbol":["AAPL"],"type":["quarterlyOrdinarySharesNumber"]},
  "quarterlyOrdinarySharesNumber":[
    {"asOfDate":"2023-12-31","periodType":"3M","reportedValue":{"raw":15441881000,"fmt":"15.44B"}}]}
],"error":null}}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := &config.Config{Gateway: config.GatewayConfig{HTTPTimeout: 2 * time.Second}}
	return NewClient(httputil.New(cfg, logger.Nop()), logger.Nop()).WithBaseURL(server.URL)
}

func TestFetchPriceHistory(t *testing.T) {
	now := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v8/finance/chart/AAPL", r.URL.Path)
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))
		assert.Equal(t, "1672876800", r.URL.Query().Get("period1"))
		_, _ = w.Write([]byte(chartJSON))
	})

	series, err := c.FetchPriceHistory(context.Background(), "AAPL", contracts.PriceRange{Days: 365}, now)
	require.NoError(t, err)

	require.Equal(t, 2, series.Len(), "bar with null close skipped")
	assert.Equal(t, "AAPL", series.Ticker)
	assert.Equal(t, 185.64, series.Bars[0].Close)
	assert.Equal(t, int64(82488700), series.Bars[0].Volume)
	assert.Equal(t, 181.91, series.Bars[1].Open, "null open falls back to close")
	assert.True(t, series.Bars[0].Time.Before(series.Bars[1].Time))
}

func TestFetchPriceHistory_NotFound(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr func(error) bool
	}{
		{
			name:    "chart error payload",
			status:  http.StatusOK,
			body:    `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`,
			wantErr: contracts.IsTickerNotFound,
		},
		{
			name:    "empty result",
			status:  http.StatusOK,
			body:    `{"chart":{"result":[],"error":null}}`,
			wantErr: contracts.IsTickerNotFound,
		},
		{
			name:   "http 404",
			status: http.StatusNotFound,
			body:   `{}`,
			wantErr: func(err error) bool {
				var se *httputil.StatusError
				return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := c.FetchPriceHistory(context.Background(), "ZZZZ", contracts.DefaultPriceRange, time.Now())
			require.Error(t, err)
			assert.True(t, tt.wantErr(err), "got %v", err)
		})
	}
}

func TestFetchFundamentals(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ws/fundamentals-timeseries/v1/finance/timeseries/AAPL", r.URL.Path)
		assert.Contains(t, r.URL.Query().Get("type"), "quarterlyStockholdersEquity")
		assert.Contains(t, r.URL.Query().Get("type"), "quarterlyOperatingIncome")
		_, _ = w.Write([]byte(timeseriesJSON))
	})

	records, err := c.FetchFundamentals(context.Background(), "AAPL", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, records, 2)

	older, latest := records[0], records[1]
	assert.Equal(t, time.Date(2023, 9, 30, 0, 0, 0, 0, time.UTC), older.PeriodEnd)
	assert.Equal(t, "89498000000", older.Revenue.Decimal.String())
	assert.False(t, older.NetProfit.Valid)

	assert.Equal(t, "119575000000", latest.Revenue.Decimal.String())
	assert.Equal(t, "33916000000", latest.NetProfit.Decimal.String())
	assert.False(t, latest.TotalDebt.Valid)
	assert.Equal(t, "15441881000", latest.SharesOutstanding.Decimal.String())
	assert.False(t, older.SharesOutstanding.Valid)
}

func TestParseTimeseries_Empty(t *testing.T) {
	records, err := parseTimeseries(&timeseriesResponse{})
	require.NoError(t, err)
	assert.Empty(t, records)
}
