package s2_signals

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/wonny/signalscreen/backend/internal/contracts"
	"github.com/wonny/signalscreen/backend/internal/strategyconfig"
	"github.com/wonny/signalscreen/backend/pkg/logger"
)

// Point labels reported in FundamentalDetails.Awarded
const (
	PointNetIncome     = "net_income"
	PointRevenueGrowth = "revenue_growth"
	PointProfitGrowth  = "profit_growth"
	PointCurrentRatio  = "current_ratio"
	PointDeleveraging  = "deleveraging"
	PointROE           = "roe"
)

// FundamentalCalculator scores financial health from the two latest quarters
// with a weighted point system (Piotroski-style).
// ⭐ SSOT: 재무 건전성 시그널 계산은 여기서만
type FundamentalCalculator struct {
	cfg    strategyconfig.Fundamental
	logger *logger.Logger
}

// NewFundamentalCalculator creates a new fundamental calculator
func NewFundamentalCalculator(cfg strategyconfig.Fundamental, log *logger.Logger) *FundamentalCalculator {
	return &FundamentalCalculator{
		cfg:    cfg,
		logger: log,
	}
}

// quarterPair holds the validated inputs of the latest and prior quarter
type quarterPair struct {
	latest, prior contracts.FundamentalRecord
}

// Calculate calculates the fundamental signal.
// Fewer than two quarters, a missing field or a zero denominator yields undefined.
func (c *FundamentalCalculator) Calculate(ctx context.Context, ticker string, records []contracts.FundamentalRecord) (contracts.SignalScore, *contracts.FundamentalDetails) {
	if len(records) < 2 {
		return contracts.Undefined(&contracts.PartialFundamentalDataError{Field: "quarters"}), nil
	}

	sorted := make([]contracts.FundamentalRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].PeriodEnd.Before(sorted[j].PeriodEnd)
	})

	q := quarterPair{latest: sorted[len(sorted)-1], prior: sorted[len(sorted)-2]}
	details := displayMetrics(q)

	if err := checkRequired(q); err != nil {
		return contracts.Undefined(err), details
	}

	l, p := q.latest, q.prior
	w := c.cfg.PointWeights

	awarded := 0.0
	award := func(ok bool, label string, weight float64) {
		if ok {
			awarded += weight
			details.Awarded = append(details.Awarded, label)
		}
	}

	roe := l.NetProfit.Decimal.Div(l.TotalEquity.Decimal)
	deLatest := l.TotalDebt.Decimal.Div(l.TotalEquity.Decimal)
	dePrior := p.TotalDebt.Decimal.Div(p.TotalEquity.Decimal)
	currentRatio := l.CurrentAssets.Decimal.Div(l.CurrentLiabilities.Decimal)

	award(l.NetProfit.Decimal.IsPositive(), PointNetIncome, w.NetIncome)
	award(l.Revenue.Decimal.GreaterThan(p.Revenue.Decimal), PointRevenueGrowth, w.RevenueGrowth)
	award(l.NetProfit.Decimal.GreaterThan(p.NetProfit.Decimal), PointProfitGrowth, w.ProfitGrowth)
	award(currentRatio.GreaterThanOrEqual(decimal.NewFromFloat(c.cfg.MinCurrentRatio)), PointCurrentRatio, w.CurrentRatio)
	award(deLatest.LessThan(dePrior), PointDeleveraging, w.Deleveraging)
	award(roe.IsPositive(), PointROE, w.ROE)

	normalized := awarded / w.Sum()
	details.Normalized = normalized
	score := contracts.Defined(2*normalized - 1)

	v, _ := score.Value()
	c.logger.WithFields(map[string]interface{}{
		"ticker":     ticker,
		"awarded":    details.Awarded,
		"normalized": normalized,
		"score":      v,
	}).Debug("Calculated fundamental signal")

	return score, details
}

// checkRequired returns the first missing field or zero denominator, latest quarter first
func checkRequired(q quarterPair) error {
	type field struct {
		name        string
		value       decimal.NullDecimal
		denominator bool
	}

	checks := []struct {
		rec    contracts.FundamentalRecord
		fields []field
	}{
		{q.latest, []field{
			{"revenue", q.latest.Revenue, false},
			{"net_profit", q.latest.NetProfit, false},
			{"total_debt", q.latest.TotalDebt, false},
			{"total_equity", q.latest.TotalEquity, true},
			{"current_assets", q.latest.CurrentAssets, false},
			{"current_liabilities", q.latest.CurrentLiabilities, true},
		}},
		{q.prior, []field{
			{"revenue", q.prior.Revenue, false},
			{"net_profit", q.prior.NetProfit, false},
			{"total_debt", q.prior.TotalDebt, false},
			{"total_equity", q.prior.TotalEquity, true},
		}},
	}

	for _, c := range checks {
		for _, f := range c.fields {
			if !f.value.Valid || (f.denominator && f.value.Decimal.IsZero()) {
				return &contracts.PartialFundamentalDataError{Quarter: c.rec.PeriodEnd, Field: f.name}
			}
		}
	}
	return nil
}

// displayMetrics computes whatever ratios the available data allows
func displayMetrics(q quarterPair) *contracts.FundamentalDetails {
	l, p := q.latest, q.prior
	d := &contracts.FundamentalDetails{PeriodEnd: l.PeriodEnd}

	d.RevenueGrowth = growth(l.Revenue, p.Revenue)
	d.ProfitGrowth = growth(l.NetProfit, p.NetProfit)
	d.DebtToEquity = ratio(l.TotalDebt, l.TotalEquity)
	d.PriorDebtToEquity = ratio(p.TotalDebt, p.TotalEquity)
	d.CurrentRatio = ratio(l.CurrentAssets, l.CurrentLiabilities)
	d.ROE = ratio(l.NetProfit, l.TotalEquity)
	d.NetMargin = ratio(l.NetProfit, l.Revenue)
	return d
}

// growth returns (cur-prev)/|prev|
func growth(cur, prev decimal.NullDecimal) *float64 {
	if !cur.Valid || !prev.Valid || prev.Decimal.IsZero() {
		return nil
	}
	g := cur.Decimal.Sub(prev.Decimal).Div(prev.Decimal.Abs()).InexactFloat64()
	return &g
}

func ratio(num, den decimal.NullDecimal) *float64 {
	if !num.Valid || !den.Valid || den.Decimal.IsZero() {
		return nil
	}
	r := num.Decimal.Div(den.Decimal).InexactFloat64()
	return &r
}
