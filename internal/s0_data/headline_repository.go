package s0_data

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/signalscreen/backend/internal/contracts"
)

// HeadlineRepository stores news headlines
// ⭐ SSOT: 뉴스 헤드라인 저장소는 여기서만
type HeadlineRepository struct {
	pool *pgxpool.Pool
}

// NewHeadlineRepository creates a new headline repository
func NewHeadlineRepository(pool *pgxpool.Pool) *HeadlineRepository {
	return &HeadlineRepository{pool: pool}
}

// GetSince returns headlines published at or after since, newest first.
// Headlines without a publish time are included last.
func (r *HeadlineRepository) GetSince(ctx context.Context, ticker string, since time.Time) ([]contracts.Headline, error) {
	query := `
		SELECT title, source, published_at
		FROM market.headlines
		WHERE ticker = $1 AND (published_at IS NULL OR published_at >= $2)
		ORDER BY published_at DESC NULLS LAST
	`

	rows, err := r.pool.Query(ctx, query, ticker, since)
	if err != nil {
		return nil, fmt.Errorf("query headlines %s: %w", ticker, err)
	}
	defer rows.Close()

	headlines := make([]contracts.Headline, 0)
	for rows.Next() {
		var (
			h           contracts.Headline
			publishedAt *time.Time
		)
		if err := rows.Scan(&h.Text, &h.Source, &publishedAt); err != nil {
			return nil, fmt.Errorf("scan headline %s: %w", ticker, err)
		}
		if publishedAt != nil {
			h.PublishedAt = publishedAt.UTC()
		}
		headlines = append(headlines, h)
	}
	return headlines, rows.Err()
}

// SaveBatch upserts headlines keyed by (ticker, title)
func (r *HeadlineRepository) SaveBatch(ctx context.Context, ticker string, headlines []contracts.Headline) error {
	if len(headlines) == 0 {
		return nil
	}

	query := `
		INSERT INTO market.headlines (ticker, title, source, published_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (ticker, title) DO UPDATE SET
			source = EXCLUDED.source,
			published_at = COALESCE(EXCLUDED.published_at, market.headlines.published_at)
	`

	batch := &pgx.Batch{}
	for _, h := range headlines {
		var publishedAt *time.Time
		if !h.PublishedAt.IsZero() {
			t := h.PublishedAt
			publishedAt = &t
		}
		batch.Queue(query, ticker, h.Text, h.Source, publishedAt)
	}

	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("save headlines %s: %w", ticker, err)
	}
	return nil
}
