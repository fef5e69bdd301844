package yahoo

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/wonny/signalscreen/backend/internal/contracts"
)

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *chartError   `json:"error"`
	} `json:"chart"`
}

type chartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type chartResult struct {
	Meta struct {
		Symbol string `json:"symbol"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []*float64 `json:"open"`
			High   []*float64 `json:"high"`
			Low    []*float64 `json:"low"`
			Close  []*float64 `json:"close"`
			Volume []*int64   `json:"volume"`
		} `json:"quote"`
	} `json:"indicators"`
}

// FetchPriceHistory fetches daily bars covering rng, oldest first
func (c *Client) FetchPriceHistory(ctx context.Context, ticker string, rng contracts.PriceRange, now time.Time) (*contracts.PriceSeries, error) {
	days := rng.Days
	if days <= 0 {
		days = contracts.DefaultPriceRange.Days
	}

	params := url.Values{}
	params.Set("period1", fmt.Sprintf("%d", now.AddDate(0, 0, -days).Unix()))
	params.Set("period2", fmt.Sprintf("%d", now.Unix()))
	params.Set("interval", "1d")
	params.Set("events", "history")

	endpoint := fmt.Sprintf("%s/%s?%s", c.chartURL, url.PathEscape(ticker), params.Encode())

	var resp chartResponse
	if err := c.httpClient.GetJSON(ctx, endpoint, &resp); err != nil {
		return nil, fmt.Errorf("fetch chart %s: %w", ticker, err)
	}

	series, err := parseChart(ticker, &resp)
	if err != nil {
		return nil, err
	}

	c.logger.WithFields(map[string]interface{}{
		"ticker": ticker,
		"bars":   series.Len(),
	}).Debug("Fetched price history")

	return series, nil
}

// parseChart converts a chart payload into a series.
// Bars with a missing close are skipped; other missing fields fall back to the close.
func parseChart(ticker string, resp *chartResponse) (*contracts.PriceSeries, error) {
	if e := resp.Chart.Error; e != nil {
		if strings.EqualFold(e.Code, "Not Found") {
			return nil, &contracts.TickerNotFoundError{Ticker: ticker}
		}
		return nil, fmt.Errorf("chart %s: %s: %s", ticker, e.Code, e.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return nil, &contracts.TickerNotFoundError{Ticker: ticker}
	}

	r := resp.Chart.Result[0]
	series := &contracts.PriceSeries{Ticker: ticker, Bars: make([]contracts.Bar, 0, len(r.Timestamp))}
	if len(r.Indicators.Quote) == 0 {
		return series, nil
	}
	q := r.Indicators.Quote[0]

	for i, ts := range r.Timestamp {
		closePx := at(q.Close, i)
		if closePx == nil {
			continue
		}
		bar := contracts.Bar{
			Time:  time.Unix(ts, 0).UTC(),
			Open:  orElse(at(q.Open, i), *closePx),
			High:  orElse(at(q.High, i), *closePx),
			Low:   orElse(at(q.Low, i), *closePx),
			Close: *closePx,
		}
		if i < len(q.Volume) && q.Volume[i] != nil {
			bar.Volume = *q.Volume[i]
		}
		series.Bars = append(series.Bars, bar)
	}

	return series, nil
}

func at(values []*float64, i int) *float64 {
	if i >= len(values) {
		return nil
	}
	return values[i]
}

func orElse(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}
