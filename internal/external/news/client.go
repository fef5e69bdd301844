package news

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/wonny/signalscreen/backend/internal/contracts"
	"github.com/wonny/signalscreen/backend/pkg/httputil"
	"github.com/wonny/signalscreen/backend/pkg/logger"
)

// Source is the gateway source label for this client
const Source = "news"

// Region selects the Google News edition
type Region struct {
	Language string // hl
	Country  string // gl
	Edition  string // ceid
	Suffix   string // 검색어 접미사
}

// Known editions
var regions = map[string]Region{
	"US": {Language: "en-US", Country: "US", Edition: "US:en", Suffix: "stock NYSE NASDAQ"},
	"IN": {Language: "en-IN", Country: "IN", Edition: "IN:en", Suffix: "NSE stock"},
	"GB": {Language: "en-GB", Country: "GB", Edition: "GB:en", Suffix: "stock LSE"},
}

// Client fetches ticker headlines from the Google News RSS search feed
// ⭐ SSOT: 뉴스 헤드라인 수집은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	region     Region
	maxItems   int
	baseURL    string
	logger     *logger.Logger
}

// NewClient creates a news client for region (US when unknown)
func NewClient(httpClient *httputil.Client, region string, log *logger.Logger) *Client {
	r, ok := regions[strings.ToUpper(region)]
	if !ok {
		r = regions["US"]
	}
	return &Client{
		httpClient: httpClient,
		region:     r,
		maxItems:   50,
		baseURL:    "https://news.google.com/rss/search",
		logger:     log.WithComponent("news"),
	}
}

// WithBaseURL overrides the feed endpoint (테스트용)
func (c *Client) WithBaseURL(u string) *Client {
	c.baseURL = u
	return c
}

// FetchHeadlines returns up to maxItems headlines for ticker published within window.
// Items with no publish time are kept with a zero PublishedAt. An empty result is valid.
func (c *Client) FetchHeadlines(ctx context.Context, ticker string, window time.Duration) ([]contracts.Headline, error) {
	days := int(window.Hours() / 24)
	if days < 1 {
		days = 1
	}

	params := url.Values{}
	params.Set("q", fmt.Sprintf("%s %s when:%dd", ticker, c.region.Suffix, days))
	params.Set("hl", c.region.Language)
	params.Set("gl", c.region.Country)
	params.Set("ceid", c.region.Edition)

	resp, err := c.httpClient.Get(ctx, c.baseURL+"?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("fetch headlines %s: %w", ticker, err)
	}
	defer resp.Body.Close()

	// gofeed.Parser는 동시 사용 불가, 요청마다 생성
	feed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", ticker, err)
	}

	headlines := make([]contracts.Headline, 0, len(feed.Items))
	for _, item := range feed.Items {
		if len(headlines) >= c.maxItems {
			break
		}
		h, ok := toHeadline(item)
		if !ok {
			continue
		}
		headlines = append(headlines, h)
	}

	c.logger.WithFields(map[string]interface{}{
		"ticker":    ticker,
		"headlines": len(headlines),
	}).Debug("Fetched headlines")

	return headlines, nil
}

// toHeadline maps a feed item. Google News titles end in " - Publisher".
func toHeadline(item *gofeed.Item) (contracts.Headline, bool) {
	title := strings.TrimSpace(item.Title)
	if title == "" {
		return contracts.Headline{}, false
	}

	h := contracts.Headline{Text: title, Source: "Unknown"}
	if i := strings.LastIndex(title, " - "); i > 0 {
		h.Text = strings.TrimSpace(title[:i])
		h.Source = strings.TrimSpace(title[i+3:])
	}
	if item.Author != nil && item.Author.Name != "" {
		h.Source = item.Author.Name
	}

	switch {
	case item.PublishedParsed != nil:
		h.PublishedAt = item.PublishedParsed.UTC()
	case item.UpdatedParsed != nil:
		h.PublishedAt = item.UpdatedParsed.UTC()
	}

	return h, true
}
