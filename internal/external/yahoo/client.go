package yahoo

import (
	"github.com/wonny/signalscreen/backend/pkg/httputil"
	"github.com/wonny/signalscreen/backend/pkg/logger"
)

// Source is the gateway source label for this client
const Source = "yahoo"

// Client handles communication with Yahoo Finance
// ⭐ SSOT: Yahoo Finance API 호출은 이 클라이언트에서만
type Client struct {
	httpClient    *httputil.Client
	logger        *logger.Logger
	chartURL      string
	timeseriesURL string
}

// NewClient creates a new Yahoo Finance client
func NewClient(httpClient *httputil.Client, log *logger.Logger) *Client {
	return &Client{
		httpClient:    httpClient,
		logger:        log.WithComponent("yahoo"),
		chartURL:      "https://query1.finance.yahoo.com/v8/finance/chart",
		timeseriesURL: "https://query2.finance.yahoo.com/ws/fundamentals-timeseries/v1/finance/timeseries",
	}
}

// WithBaseURL points both endpoints at one host (테스트용)
func (c *Client) WithBaseURL(base string) *Client {
	c.chartURL = base + "/v8/finance/chart"
	c.timeseriesURL = base + "/ws/fundamentals-timeseries/v1/finance/timeseries"
	return c
}
