package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wonny/signalscreen/backend/internal/contracts"
)

// Quarterly series requested from the fundamentals timeseries endpoint
const (
	typeRevenue            = "quarterlyTotalRevenue"
	typeNetIncome          = "quarterlyNetIncome"
	typeTotalDebt          = "quarterlyTotalDebt"
	typeEquity             = "quarterlyStockholdersEquity"
	typeCurrentAssets      = "quarterlyCurrentAssets"
	typeCurrentLiabilities = "quarterlyCurrentLiabilities"
	typeOperatingIncome    = "quarterlyOperatingIncome"
	typeGrossProfit        = "quarterlyGrossProfit"
	typeOperatingCashFlow  = "quarterlyOperatingCashFlow"
	typeTotalAssets        = "quarterlyTotalAssets"
	typeLongTermDebt       = "quarterlyLongTermDebt"
	typeShares             = "quarterlyOrdinarySharesNumber"
)

var fundamentalTypes = []string{
	typeRevenue,
	typeNetIncome,
	typeTotalDebt,
	typeEquity,
	typeCurrentAssets,
	typeCurrentLiabilities,
	typeOperatingIncome,
	typeGrossProfit,
	typeOperatingCashFlow,
	typeTotalAssets,
	typeLongTermDebt,
	typeShares,
}

type timeseriesResponse struct {
	Timeseries struct {
		Result []map[string]json.RawMessage `json:"result"`
	} `json:"timeseries"`
}

type timeseriesMeta struct {
	Type []string `json:"type"`
}

type timeseriesPoint struct {
	AsOfDate      string `json:"asOfDate"`
	ReportedValue struct {
		Raw json.Number `json:"raw"`
	} `json:"reportedValue"`
}

// FetchFundamentals fetches the last three years of quarterly statements, oldest first.
// Two TTM windows plus slack are needed for the year-over-year valuation checks.
func (c *Client) FetchFundamentals(ctx context.Context, ticker string, now time.Time) ([]contracts.FundamentalRecord, error) {
	params := url.Values{}
	params.Set("type", strings.Join(fundamentalTypes, ","))
	params.Set("period1", fmt.Sprintf("%d", now.AddDate(-3, 0, 0).Unix()))
	params.Set("period2", fmt.Sprintf("%d", now.Unix()))

	endpoint := fmt.Sprintf("%s/%s?%s", c.timeseriesURL, url.PathEscape(ticker), params.Encode())

	var resp timeseriesResponse
	if err := c.httpClient.GetJSON(ctx, endpoint, &resp); err != nil {
		return nil, fmt.Errorf("fetch fundamentals %s: %w", ticker, err)
	}

	records, err := parseTimeseries(&resp)
	if err != nil {
		return nil, fmt.Errorf("parse fundamentals %s: %w", ticker, err)
	}

	c.logger.WithFields(map[string]interface{}{
		"ticker":   ticker,
		"quarters": len(records),
	}).Debug("Fetched fundamentals")

	return records, nil
}

// parseTimeseries merges the per-type series into one record per quarter end.
// A type with no value for a quarter leaves that field null.
func parseTimeseries(resp *timeseriesResponse) ([]contracts.FundamentalRecord, error) {
	byDate := make(map[string]*contracts.FundamentalRecord)

	for _, result := range resp.Timeseries.Result {
		var meta timeseriesMeta
		if raw, ok := result["meta"]; ok {
			if err := json.Unmarshal(raw, &meta); err != nil {
				return nil, fmt.Errorf("meta: %w", err)
			}
		}
		if len(meta.Type) == 0 {
			continue
		}
		typ := meta.Type[0]

		raw, ok := result[typ]
		if !ok {
			continue
		}
		var points []*timeseriesPoint
		if err := json.Unmarshal(raw, &points); err != nil {
			return nil, fmt.Errorf("%s: %w", typ, err)
		}

		for _, p := range points {
			if p == nil || p.AsOfDate == "" || p.ReportedValue.Raw == "" {
				continue
			}
			value, err := decimal.NewFromString(p.ReportedValue.Raw.String())
			if err != nil {
				return nil, fmt.Errorf("%s %s: %w", typ, p.AsOfDate, err)
			}

			rec, ok := byDate[p.AsOfDate]
			if !ok {
				periodEnd, err := time.Parse("2006-01-02", p.AsOfDate)
				if err != nil {
					return nil, fmt.Errorf("%s: bad date %q", typ, p.AsOfDate)
				}
				rec = &contracts.FundamentalRecord{PeriodEnd: periodEnd}
				byDate[p.AsOfDate] = rec
			}
			assign(rec, typ, decimal.NewNullDecimal(value))
		}
	}

	records := make([]contracts.FundamentalRecord, 0, len(byDate))
	for _, rec := range byDate {
		records = append(records, *rec)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].PeriodEnd.Before(records[j].PeriodEnd)
	})
	return records, nil
}

func assign(rec *contracts.FundamentalRecord, typ string, v decimal.NullDecimal) {
	switch typ {
	case typeRevenue:
		rec.Revenue = v
	case typeNetIncome:
		rec.NetProfit = v
	case typeTotalDebt:
		rec.TotalDebt = v
	case typeEquity:
		rec.TotalEquity = v
	case typeCurrentAssets:
		rec.CurrentAssets = v
	case typeCurrentLiabilities:
		rec.CurrentLiabilities = v
	case typeOperatingIncome:
		rec.OperatingIncome = v
	case typeGrossProfit:
		rec.GrossProfit = v
	case typeOperatingCashFlow:
		rec.OperatingCashFlow = v
	case typeTotalAssets:
		rec.TotalAssets = v
	case typeLongTermDebt:
		rec.LongTermDebt = v
	case typeShares:
		rec.SharesOutstanding = v
	}
}
