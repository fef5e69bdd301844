package selection

import (
	"sort"

	"github.com/wonny/signalscreen/backend/internal/contracts"
)

// rank orders a finished report in place.
// Successes: composite descending, ties by input order. Failures: input order.
// ⭐ SSOT: 결과 정렬 규칙은 여기서만
func rank(report *contracts.ScreenerReport, tickers []string) {
	order := make(map[string]int, len(tickers))
	for i, t := range tickers {
		order[t] = i
	}

	sortSuccesses(report.Successes, order)
	sort.Slice(report.Failures, func(i, j int) bool {
		return order[report.Failures[i].Ticker] < order[report.Failures[j].Ticker]
	})
}

// sortSuccesses orders by composite descending, ties by input order
func sortSuccesses(results []contracts.ScreenerResult, order map[string]int) {
	sort.Slice(results, func(i, j int) bool {
		ci, cj := results[i].Recommendation.Composite, results[j].Recommendation.Composite
		if ci != cj {
			return ci > cj
		}
		return order[results[i].Ticker] < order[results[j].Ticker]
	})
}

// dedupe keeps the first occurrence of every ticker
func dedupe(tickers []string) []string {
	seen := make(map[string]struct{}, len(tickers))
	out := make([]string, 0, len(tickers))
	for _, t := range tickers {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
