package s0_data

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/signalscreen/backend/internal/contracts"
)

// PriceRepository stores daily bars
// ⭐ SSOT: 가격 데이터 저장소는 여기서만
type PriceRepository struct {
	pool *pgxpool.Pool
}

// NewPriceRepository creates a new price repository
func NewPriceRepository(pool *pgxpool.Pool) *PriceRepository {
	return &PriceRepository{pool: pool}
}

// GetSeries returns bars for ticker within [from, to], oldest first
func (r *PriceRepository) GetSeries(ctx context.Context, ticker string, from, to time.Time) (*contracts.PriceSeries, error) {
	query := `
		SELECT trade_date, open, high, low, close, volume
		FROM market.daily_prices
		WHERE ticker = $1 AND trade_date BETWEEN $2 AND $3
		ORDER BY trade_date ASC
	`

	rows, err := r.pool.Query(ctx, query, ticker, from, to)
	if err != nil {
		return nil, fmt.Errorf("query prices %s: %w", ticker, err)
	}
	defer rows.Close()

	series := &contracts.PriceSeries{Ticker: ticker}
	for rows.Next() {
		var b contracts.Bar
		if err := rows.Scan(&b.Time, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan price %s: %w", ticker, err)
		}
		series.Bars = append(series.Bars, b)
	}
	return series, rows.Err()
}

// Exists reports whether any bar is stored for ticker
func (r *PriceRepository) Exists(ctx context.Context, ticker string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM market.daily_prices WHERE ticker = $1)`, ticker,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query price existence %s: %w", ticker, err)
	}
	return exists, nil
}

// SaveSeries upserts every bar of the series
func (r *PriceRepository) SaveSeries(ctx context.Context, series *contracts.PriceSeries) error {
	if series.Len() == 0 {
		return nil
	}

	query := `
		INSERT INTO market.daily_prices (ticker, trade_date, open, high, low, close, volume)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (ticker, trade_date) DO UPDATE SET
			open = EXCLUDED.open,
			high = EXCLUDED.high,
			low = EXCLUDED.low,
			close = EXCLUDED.close,
			volume = EXCLUDED.volume
	`

	batch := &pgx.Batch{}
	for _, b := range series.Bars {
		batch.Queue(query, series.Ticker, b.Time, b.Open, b.High, b.Low, b.Close, b.Volume)
	}

	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("save prices %s: %w", series.Ticker, err)
	}
	return nil
}
