package s1_universe

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/signalscreen/backend/internal/contracts"
)

// Repository persists resolved universes for the postgres data source
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository instance
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// SaveUniverse replaces the stored members of a universe
func (r *Repository) SaveUniverse(ctx context.Context, universe *contracts.Universe) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM market.universe_members WHERE universe = $1`, universe.Name); err != nil {
		return fmt.Errorf("clear universe %s: %w", universe.Name, err)
	}

	batch := &pgx.Batch{}
	for i, ticker := range universe.Tickers {
		batch.Queue(
			`INSERT INTO market.universe_members (universe, ticker, position) VALUES ($1, $2, $3)
			 ON CONFLICT (universe, ticker) DO NOTHING`,
			universe.Name, ticker, i,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert universe %s: %w", universe.Name, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit universe %s: %w", universe.Name, err)
	}
	return nil
}

// LoadUniverse returns the stored members in saved order (empty if never saved)
func (r *Repository) LoadUniverse(ctx context.Context, name string) ([]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT ticker FROM market.universe_members WHERE universe = $1 ORDER BY position`, name)
	if err != nil {
		return nil, fmt.Errorf("query universe %s: %w", name, err)
	}

	tickers, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan universe %s: %w", name, err)
	}
	return tickers, nil
}
