package s1_universe

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/signalscreen/backend/internal/contracts"
	"github.com/wonny/signalscreen/backend/pkg/config"
	"github.com/wonny/signalscreen/backend/pkg/database"
)

func TestRepository_SaveLoad(t *testing.T) {
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

	repo := NewRepository(db.Pool)
	u := &contracts.Universe{Name: "test_universe", Tickers: []string{"MSFT", "AAPL", "JPM"}}

	require.NoError(t, repo.SaveUniverse(ctx, u))
	got, err := repo.LoadUniverse(ctx, u.Name)
	require.NoError(t, err)
	assert.Equal(t, u.Tickers, got)

	u.Tickers = []string{"IBM"}
	require.NoError(t, repo.SaveUniverse(ctx, u))
	got, err = repo.LoadUniverse(ctx, u.Name)
	require.NoError(t, err)
	assert.Equal(t, []string{"IBM"}, got)
}
