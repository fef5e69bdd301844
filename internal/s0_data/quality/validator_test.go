package quality

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/signalscreen/backend/pkg/config"
	"github.com/wonny/signalscreen/backend/pkg/database"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 0.95, cfg.MinPriceCoverage)
	assert.Equal(t, 0.50, cfg.MinHeadlineCoverage)
	assert.Equal(t, 51, cfg.MinBars)
	assert.Equal(t, 120*time.Hour, cfg.StaleAfter)
	assert.Equal(t, 7*24*time.Hour, cfg.HeadlineWindow)
}

func TestCalculateScore(t *testing.T) {
	tests := []struct {
		name     string
		coverage map[string]float64
		want     float64
	}{
		{"empty", map[string]float64{}, 0},
		{"full", map[string]float64{
			CoveragePrice: 1, CoverageHistory: 1, CoverageFundamentals: 1, CoverageHeadlines: 1,
		}, 1},
		{"prices only", map[string]float64{CoveragePrice: 1}, 0.35},
		{"half everywhere", map[string]float64{
			CoveragePrice: 0.5, CoverageHistory: 0.5, CoverageFundamentals: 0.5, CoverageHeadlines: 0.5,
		}, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, calculateScore(tt.coverage), 1e-9)
		})
	}
}

func TestConfig_Failed(t *testing.T) {
	cfg := DefaultConfig()

	failed := cfg.failed(map[string]float64{
		CoveragePrice:        0.99,
		CoverageHistory:      0.80,
		CoverageFundamentals: 0.70,
		CoverageHeadlines:    0.10,
	})
	assert.Equal(t, []string{CoverageHeadlines, CoverageHistory}, failed)

	snap := &Snapshot{TotalTickers: 3}
	assert.True(t, snap.Passed())
	snap.Failed = failed
	assert.False(t, snap.Passed())
	assert.False(t, (&Snapshot{}).Passed(), "empty universe never passes")
}

func TestQualityGate_Check(t *testing.T) {
	// Skip if running in CI without database
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set")
	}

	ctx := context.Background()
	cfg, err := config.Load()
	require.NoError(t, err)
	db, err := database.New(cfg)
	require.NoError(t, err, "database connection failed")
	defer db.Close()
	require.NoError(t, db.Migrate(ctx))

	gate := NewQualityGate(db.Pool, DefaultConfig())

	snapshot, err := gate.Check(ctx, "quality_gate_missing_universe", time.Now().UTC())
	require.NoError(t, err, "quality check failed")
	assert.Equal(t, 0, snapshot.TotalTickers)
	assert.False(t, snapshot.Passed())

	snapshot, err = gate.Check(ctx, "sp500", time.Now().UTC())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, snapshot.QualityScore, 0.0)
	assert.LessOrEqual(t, snapshot.QualityScore, 1.0)

	t.Logf("Quality Snapshot: universe=%s, total=%d, score=%.4f, failed=%v",
		snapshot.Universe, snapshot.TotalTickers, snapshot.QualityScore, snapshot.Failed)
}
