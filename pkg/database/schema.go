package database

import (
	"context"
	"fmt"
)

// schema is the market data layout read by the postgres data source.
// Amounts are NUMERIC so decimal values round-trip without float loss.
var schema = []string{
	`CREATE SCHEMA IF NOT EXISTS market`,
	`CREATE TABLE IF NOT EXISTS market.daily_prices (
		ticker     TEXT        NOT NULL,
		trade_date DATE        NOT NULL,
		open       NUMERIC     NOT NULL,
		high       NUMERIC     NOT NULL,
		low        NUMERIC     NOT NULL,
		close      NUMERIC     NOT NULL,
		volume     BIGINT      NOT NULL DEFAULT 0,
		PRIMARY KEY (ticker, trade_date)
	)`,
	`CREATE TABLE IF NOT EXISTS market.headlines (
		ticker       TEXT        NOT NULL,
		title        TEXT        NOT NULL,
		source       TEXT        NOT NULL DEFAULT '',
		link         TEXT        NOT NULL DEFAULT '',
		published_at TIMESTAMPTZ,
		PRIMARY KEY (ticker, title)
	)`,
	`CREATE TABLE IF NOT EXISTS market.quarterly_fundamentals (
		ticker              TEXT    NOT NULL,
		period_end          DATE    NOT NULL,
		revenue             NUMERIC,
		net_profit          NUMERIC,
		total_debt          NUMERIC,
		total_equity        NUMERIC,
		current_assets      NUMERIC,
		current_liabilities NUMERIC,
		operating_income    NUMERIC,
		gross_profit        NUMERIC,
		operating_cash_flow NUMERIC,
		total_assets        NUMERIC,
		long_term_debt      NUMERIC,
		shares_outstanding  NUMERIC,
		PRIMARY KEY (ticker, period_end)
	)`,
	// 기존 스키마 업그레이드
	`ALTER TABLE market.quarterly_fundamentals
		ADD COLUMN IF NOT EXISTS operating_income    NUMERIC,
		ADD COLUMN IF NOT EXISTS gross_profit        NUMERIC,
		ADD COLUMN IF NOT EXISTS operating_cash_flow NUMERIC,
		ADD COLUMN IF NOT EXISTS total_assets        NUMERIC,
		ADD COLUMN IF NOT EXISTS long_term_debt      NUMERIC,
		ADD COLUMN IF NOT EXISTS shares_outstanding  NUMERIC`,
	`CREATE TABLE IF NOT EXISTS market.universe_members (
		universe TEXT    NOT NULL,
		ticker   TEXT    NOT NULL,
		position INTEGER NOT NULL,
		PRIMARY KEY (universe, ticker)
	)`,
}

// Migrate creates the market schema if it does not exist
func (db *DB) Migrate(ctx context.Context) error {
	for i, stmt := range schema {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration step %d: %w", i, err)
		}
	}
	return nil
}
