package wiki

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/wonny/signalscreen/backend/internal/contracts"
	"github.com/wonny/signalscreen/backend/pkg/httputil"
	"github.com/wonny/signalscreen/backend/pkg/logger"
)

// Source is the gateway source label for this client
const Source = "wikipedia"

// page locates a constituents table on a Wikipedia article
type page struct {
	path    string
	columns []string // 티커 컬럼 헤더 후보
}

var pages = map[string]page{
	contracts.UniverseSP500:     {path: "/wiki/List_of_S%26P_500_companies", columns: []string{"Symbol"}},
	contracts.UniverseNasdaq100: {path: "/wiki/Nasdaq-100", columns: []string{"Ticker", "Symbol"}},
	contracts.UniverseDow30:     {path: "/wiki/Dow_Jones_Industrial_Average", columns: []string{"Symbol", "Ticker"}},
}

// Client scrapes index constituents from Wikipedia tables
// ⭐ SSOT: 지수 구성종목 스크래핑은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	baseURL    string
	logger     *logger.Logger
}

// NewClient creates a Wikipedia client
func NewClient(httpClient *httputil.Client, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    "https://en.wikipedia.org",
		logger:     log.WithComponent("wiki"),
	}
}

// WithBaseURL overrides the host (테스트용)
func (c *Client) WithBaseURL(u string) *Client {
	c.baseURL = u
	return c
}

// Supports reports whether name is an index this client can resolve
func Supports(name string) bool {
	_, ok := pages[name]
	return ok
}

// FetchConstituents returns the raw ticker column of the index's constituents table, page order
func (c *Client) FetchConstituents(ctx context.Context, name string) ([]string, error) {
	p, ok := pages[name]
	if !ok {
		return nil, fmt.Errorf("wikipedia: unsupported index %q", name)
	}

	resp, err := c.httpClient.Get(ctx, c.baseURL+p.path)
	if err != nil {
		return nil, fmt.Errorf("fetch %s constituents: %w", name, err)
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse %s page: %w", name, err)
	}

	tickers := parseConstituents(doc, p.columns)
	if len(tickers) == 0 {
		return nil, fmt.Errorf("wikipedia: no constituents table found for %s", name)
	}

	c.logger.WithFields(map[string]interface{}{
		"universe": name,
		"count":    len(tickers),
	}).Debug("Fetched constituents")

	return tickers, nil
}

// parseConstituents prefers table#constituents and falls back to the first
// wikitable with a matching header.
func parseConstituents(doc *goquery.Document, columns []string) []string {
	tables := doc.Find("table#constituents")
	if tables.Length() == 0 {
		tables = doc.Find("table.wikitable")
	}

	var tickers []string
	tables.EachWithBreak(func(_ int, table *goquery.Selection) bool {
		col := headerIndex(table, columns)
		if col < 0 {
			return true
		}

		table.Find("tr").Each(func(_ int, row *goquery.Selection) {
			cells := row.Find("td, th")
			if row.Find("td").Length() == 0 || col >= cells.Length() {
				return
			}
			symbol := strings.TrimSpace(cells.Eq(col).Text())
			if symbol != "" {
				tickers = append(tickers, symbol)
			}
		})
		return len(tickers) == 0
	})

	return tickers
}

// headerIndex finds the column whose header matches one of names (-1 if none)
func headerIndex(table *goquery.Selection, names []string) int {
	idx := -1
	table.Find("tr").First().Find("th").EachWithBreak(func(i int, th *goquery.Selection) bool {
		text := strings.TrimSpace(th.Text())
		for _, n := range names {
			if strings.EqualFold(text, n) {
				idx = i
				return false
			}
		}
		return true
	})
	return idx
}
