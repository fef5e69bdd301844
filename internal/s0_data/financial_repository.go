package s0_data

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/signalscreen/backend/internal/contracts"
)

// FinancialRepository stores quarterly fundamentals
// ⭐ SSOT: 재무 데이터 저장소는 여기서만
type FinancialRepository struct {
	pool *pgxpool.Pool
}

// NewFinancialRepository creates a new financial repository
func NewFinancialRepository(pool *pgxpool.Pool) *FinancialRepository {
	return &FinancialRepository{pool: pool}
}

// GetQuarters returns the latest limit quarters for ticker, oldest first.
// NULL amounts come back as invalid NullDecimal.
func (r *FinancialRepository) GetQuarters(ctx context.Context, ticker string, limit int) ([]contracts.FundamentalRecord, error) {
	query := `
		SELECT period_end, revenue, net_profit, total_debt, total_equity,
		       current_assets, current_liabilities,
		       operating_income, gross_profit, operating_cash_flow,
		       total_assets, long_term_debt, shares_outstanding
		FROM (
			SELECT * FROM market.quarterly_fundamentals
			WHERE ticker = $1
			ORDER BY period_end DESC
			LIMIT $2
		) latest
		ORDER BY period_end ASC
	`

	rows, err := r.pool.Query(ctx, query, ticker, limit)
	if err != nil {
		return nil, fmt.Errorf("query fundamentals %s: %w", ticker, err)
	}
	defer rows.Close()

	records := make([]contracts.FundamentalRecord, 0, limit)
	for rows.Next() {
		var f contracts.FundamentalRecord
		err := rows.Scan(
			&f.PeriodEnd, &f.Revenue, &f.NetProfit, &f.TotalDebt, &f.TotalEquity,
			&f.CurrentAssets, &f.CurrentLiabilities,
			&f.OperatingIncome, &f.GrossProfit, &f.OperatingCashFlow,
			&f.TotalAssets, &f.LongTermDebt, &f.SharesOutstanding,
		)
		if err != nil {
			return nil, fmt.Errorf("scan fundamentals %s: %w", ticker, err)
		}
		records = append(records, f)
	}
	return records, rows.Err()
}

// SaveBatch upserts quarters keyed by (ticker, period_end)
func (r *FinancialRepository) SaveBatch(ctx context.Context, ticker string, records []contracts.FundamentalRecord) error {
	if len(records) == 0 {
		return nil
	}

	query := `
		INSERT INTO market.quarterly_fundamentals (
			ticker, period_end, revenue, net_profit, total_debt, total_equity,
			current_assets, current_liabilities,
			operating_income, gross_profit, operating_cash_flow,
			total_assets, long_term_debt, shares_outstanding
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (ticker, period_end) DO UPDATE SET
			revenue = EXCLUDED.revenue,
			net_profit = EXCLUDED.net_profit,
			total_debt = EXCLUDED.total_debt,
			total_equity = EXCLUDED.total_equity,
			current_assets = EXCLUDED.current_assets,
			current_liabilities = EXCLUDED.current_liabilities,
			operating_income = EXCLUDED.operating_income,
			gross_profit = EXCLUDED.gross_profit,
			operating_cash_flow = EXCLUDED.operating_cash_flow,
			total_assets = EXCLUDED.total_assets,
			long_term_debt = EXCLUDED.long_term_debt,
			shares_outstanding = EXCLUDED.shares_outstanding
	`

	batch := &pgx.Batch{}
	for _, f := range records {
		batch.Queue(query, ticker, f.PeriodEnd,
			f.Revenue, f.NetProfit, f.TotalDebt, f.TotalEquity,
			f.CurrentAssets, f.CurrentLiabilities,
			f.OperatingIncome, f.GrossProfit, f.OperatingCashFlow,
			f.TotalAssets, f.LongTermDebt, f.SharesOutstanding,
		)
	}

	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("save fundamentals %s: %w", ticker, err)
	}
	return nil
}
