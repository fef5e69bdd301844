package nasdaq

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/wonny/signalscreen/backend/internal/contracts"
	"github.com/wonny/signalscreen/backend/pkg/httputil"
	"github.com/wonny/signalscreen/backend/pkg/logger"
)

// Source is the gateway source label for this client
const Source = "nasdaq"

// Client lists exchange-traded stocks from the Nasdaq screener API
// ⭐ SSOT: 거래소 상장종목 조회는 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	baseURL    string
	limit      int
	logger     *logger.Logger
}

type screenerResponse struct {
	Data struct {
		Table struct {
			Rows []screenerRow `json:"rows"`
		} `json:"table"`
		Rows []screenerRow `json:"rows"`
	} `json:"data"`
	Status struct {
		RCode int `json:"rCode"`
	} `json:"status"`
}

type screenerRow struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

// NewClient creates a Nasdaq screener client
func NewClient(httpClient *httputil.Client, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    "https://api.nasdaq.com/api/screener/stocks",
		limit:      10000,
		logger:     log.WithComponent("nasdaq"),
	}
}

// WithBaseURL overrides the endpoint (테스트용)
func (c *Client) WithBaseURL(u string) *Client {
	c.baseURL = u
	return c
}

// Supports reports whether name is an exchange listing this client can resolve
func Supports(name string) bool {
	return name == contracts.UniverseNYSE || name == contracts.UniverseNasdaq
}

// FetchListings returns every traded symbol on the exchange, API order
func (c *Client) FetchListings(ctx context.Context, exchange string) ([]string, error) {
	if !Supports(exchange) {
		return nil, fmt.Errorf("nasdaq: unsupported exchange %q", exchange)
	}

	params := url.Values{}
	params.Set("tableType", "traded")
	params.Set("exchange", exchange)
	params.Set("limit", fmt.Sprintf("%d", c.limit))

	var resp screenerResponse
	if err := c.httpClient.GetJSON(ctx, c.baseURL+"?"+params.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("fetch %s listings: %w", exchange, err)
	}

	rows := resp.Data.Table.Rows
	if len(rows) == 0 {
		rows = resp.Data.Rows
	}

	symbols := make([]string, 0, len(rows))
	for _, row := range rows {
		// 이름 없는 행은 상장 폐지/테스트 종목
		if strings.TrimSpace(row.Symbol) == "" || strings.TrimSpace(row.Name) == "" {
			continue
		}
		symbols = append(symbols, strings.TrimSpace(row.Symbol))
	}

	c.logger.WithFields(map[string]interface{}{
		"exchange": exchange,
		"count":    len(symbols),
	}).Debug("Fetched exchange listings")

	return symbols, nil
}
