package s2_signals

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/wonny/signalscreen/backend/internal/contracts"
)

// Piotroski criteria names, in scoring order
const (
	CheckNetIncome     = "net_income_positive"
	CheckROA           = "roa_positive"
	CheckOperatingCash = "operating_cash_flow_positive"
	CheckAccruals      = "cash_flow_exceeds_net_income"
	CheckLongTermDebt  = "long_term_debt_not_increased"
	CheckCurrentRatio  = "current_ratio_not_decreased"
	CheckNoDilution    = "no_new_shares"
	CheckGrossMargin   = "gross_margin_not_decreased"
	CheckAssetTurnover = "asset_turnover_not_decreased"
)

const (
	ttmQuarters         = 4
	piotroskiQuarters   = 2 * ttmQuarters
	minROCEAverageCount = 2
)

type field func(contracts.FundamentalRecord) decimal.NullDecimal

var (
	netProfit         field = func(r contracts.FundamentalRecord) decimal.NullDecimal { return r.NetProfit }
	revenue           field = func(r contracts.FundamentalRecord) decimal.NullDecimal { return r.Revenue }
	operatingIncome   field = func(r contracts.FundamentalRecord) decimal.NullDecimal { return r.OperatingIncome }
	grossProfit       field = func(r contracts.FundamentalRecord) decimal.NullDecimal { return r.GrossProfit }
	operatingCashFlow field = func(r contracts.FundamentalRecord) decimal.NullDecimal { return r.OperatingCashFlow }
)

// Valuate computes the display-only valuation metrics from quarterly records
// and the latest close. lastClose <= 0 leaves the price-based metrics nil.
func Valuate(records []contracts.FundamentalRecord, lastClose float64) contracts.Valuation {
	var v contracts.Valuation
	if len(records) == 0 {
		return v
	}

	sorted := make([]contracts.FundamentalRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].PeriodEnd.Before(sorted[j].PeriodEnd)
	})
	last := len(sorted) - 1
	latest := sorted[last]

	// 시가총액 기반 지표
	if lastClose > 0 && latest.SharesOutstanding.Valid && latest.SharesOutstanding.Decimal.IsPositive() {
		marketCap := decimal.NewFromFloat(lastClose).Mul(latest.SharesOutstanding.Decimal)
		v.MarketCap = floatPtr(marketCap)

		if ni, ok := ttm(sorted, last, netProfit); ok && ni.IsPositive() {
			v.PE = floatPtr(marketCap.Div(ni))
		}
		if latest.TotalEquity.Valid && latest.TotalEquity.Decimal.IsPositive() {
			v.PB = floatPtr(marketCap.Div(latest.TotalEquity.Decimal))
		}
	}

	// ROCE = TTM EBIT / (총자산 - 유동부채), 분기마다 롤링
	var roces []float64
	for end := ttmQuarters - 1; end <= last; end++ {
		if r, ok := roce(sorted, end); ok {
			roces = append(roces, r)
			if end == last {
				latestROCE := r
				v.ROCE = &latestROCE
			}
		}
	}
	if len(roces) >= minROCEAverageCount {
		sum := 0.0
		for _, r := range roces {
			sum += r
		}
		avg := sum / float64(len(roces))
		v.ROCEAverage = &avg
	}

	v.Piotroski, v.PiotroskiChecks = piotroski(sorted)
	return v
}

// ttm sums field over the four quarters ending at end. Any gap fails.
func ttm(records []contracts.FundamentalRecord, end int, f field) (decimal.Decimal, bool) {
	if end < ttmQuarters-1 || end >= len(records) {
		return decimal.Zero, false
	}
	sum := decimal.Zero
	for i := end - ttmQuarters + 1; i <= end; i++ {
		value := f(records[i])
		if !value.Valid {
			return decimal.Zero, false
		}
		sum = sum.Add(value.Decimal)
	}
	return sum, true
}

func roce(records []contracts.FundamentalRecord, end int) (float64, bool) {
	ebit, ok := ttm(records, end, operatingIncome)
	if !ok {
		return 0, false
	}
	r := records[end]
	if !r.TotalAssets.Valid || !r.CurrentLiabilities.Valid {
		return 0, false
	}
	capital := r.TotalAssets.Decimal.Sub(r.CurrentLiabilities.Decimal)
	if capital.IsZero() {
		return 0, false
	}
	return ebit.Div(capital).InexactFloat64(), true
}

// piotroski scores the latest TTM against the TTM a year earlier.
// Net income and total assets for both years are required; other missing
// inputs fail their check, except debt and share count which pass when absent.
func piotroski(records []contracts.FundamentalRecord) (*int, []contracts.PiotroskiCheck) {
	if len(records) < piotroskiQuarters {
		return nil, nil
	}
	cur := len(records) - 1
	prev := cur - ttmQuarters

	niCur, okCur := ttm(records, cur, netProfit)
	_, okPrev := ttm(records, prev, netProfit)
	taCur, taPrev := records[cur].TotalAssets, records[prev].TotalAssets
	if !okCur || !okPrev || !taCur.Valid || !taPrev.Valid {
		return nil, nil
	}

	var checks []contracts.PiotroskiCheck
	check := func(name string, passed bool) {
		checks = append(checks, contracts.PiotroskiCheck{Name: name, Passed: passed})
	}

	check(CheckNetIncome, niCur.IsPositive())
	check(CheckROA, !taCur.Decimal.IsZero() && niCur.Div(taCur.Decimal).IsPositive())

	cfo, cfoOK := ttm(records, cur, operatingCashFlow)
	check(CheckOperatingCash, cfoOK && cfo.IsPositive())
	check(CheckAccruals, cfoOK && cfo.GreaterThan(niCur))

	ltdCur, ltdPrev := records[cur].LongTermDebt, records[prev].LongTermDebt
	check(CheckLongTermDebt, !ltdCur.Valid || !ltdPrev.Valid || ltdCur.Decimal.LessThanOrEqual(ltdPrev.Decimal))

	crCur, crCurOK := quotient(records[cur].CurrentAssets, records[cur].CurrentLiabilities)
	crPrev, crPrevOK := quotient(records[prev].CurrentAssets, records[prev].CurrentLiabilities)
	check(CheckCurrentRatio, crCurOK && crPrevOK && crCur.GreaterThanOrEqual(crPrev))

	shCur, shPrev := records[cur].SharesOutstanding, records[prev].SharesOutstanding
	check(CheckNoDilution, !shCur.Valid || !shPrev.Valid || shCur.Decimal.LessThanOrEqual(shPrev.Decimal))

	revCur, revCurOK := ttm(records, cur, revenue)
	revPrev, revPrevOK := ttm(records, prev, revenue)
	gpCur, gpCurOK := ttm(records, cur, grossProfit)
	gpPrev, gpPrevOK := ttm(records, prev, grossProfit)
	gm := revCurOK && revPrevOK && gpCurOK && gpPrevOK && !revCur.IsZero() && !revPrev.IsZero() &&
		gpCur.Div(revCur).GreaterThanOrEqual(gpPrev.Div(revPrev))
	check(CheckGrossMargin, gm)

	at := revCurOK && revPrevOK && !taCur.Decimal.IsZero() && !taPrev.Decimal.IsZero() &&
		revCur.Div(taCur.Decimal).GreaterThanOrEqual(revPrev.Div(taPrev.Decimal))
	check(CheckAssetTurnover, at)

	score := 0
	for _, c := range checks {
		if c.Passed {
			score++
		}
	}
	return &score, checks
}

func quotient(num, den decimal.NullDecimal) (decimal.Decimal, bool) {
	if !num.Valid || !den.Valid || den.Decimal.IsZero() {
		return decimal.Zero, false
	}
	return num.Decimal.Div(den.Decimal), true
}

func floatPtr(d decimal.Decimal) *float64 {
	f := d.InexactFloat64()
	return &f
}
