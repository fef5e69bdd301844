package s1_universe

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/signalscreen/backend/pkg/logger"
)

type fakeSource map[string][]string

func (f fakeSource) FetchUniverse(_ context.Context, name string) ([]string, error) {
	tickers, ok := f[name]
	if !ok {
		return nil, errors.New("source down")
	}
	return tickers, nil
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"aapl", "AAPL"},
		{" MSFT\n", "MSFT"},
		{"BRK.B", "BRK-B"},
		{"BF/B", "BF-B"},
		{"^gspc", "^GSPC"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestBuilder_Build(t *testing.T) {
	b := NewBuilder(fakeSource{}, logger.Nop())

	result := b.Build("custom", []string{"aapl", "MSFT", "AAPL", "", "BRK.B", "$$$", "msft"})

	assert.Equal(t, []string{"AAPL", "MSFT", "BRK-B"}, result.Universe.Tickers)
	assert.Equal(t, "custom", result.Universe.Name)
	assert.Equal(t, ReasonDuplicate, result.Excluded["AAPL"])
	assert.Equal(t, ReasonDuplicate, result.Excluded["msft"])
	assert.Equal(t, ReasonInvalid, result.Excluded[""])
	assert.Equal(t, ReasonInvalid, result.Excluded["$$$"])
}

func TestBuilder_Resolve(t *testing.T) {
	src := fakeSource{
		"dow30":     {"AAPL", "MSFT", "JPM"},
		"nasdaq100": {"AAPL", "ADBE"},
	}
	b := NewBuilder(src, logger.Nop())

	result, err := b.Resolve(context.Background(), "dow30", "NASDAQ100")
	require.NoError(t, err)
	assert.Equal(t, "dow30+nasdaq100", result.Universe.Name)
	assert.Equal(t, []string{"AAPL", "MSFT", "JPM", "ADBE"}, result.Universe.Tickers)

	_, err = b.Resolve(context.Background(), "ftse100")
	assert.ErrorContains(t, err, "unknown universe")

	_, err = b.Resolve(context.Background(), "sp500")
	assert.ErrorContains(t, err, "source down")

	_, err = b.Resolve(context.Background())
	assert.Error(t, err)
}

func TestParseList(t *testing.T) {
	assert.Equal(t, []string{"AAPL", "MSFT", "GOOG", "TSLA"}, ParseList("AAPL, MSFT,GOOG\tTSLA"))
	assert.Empty(t, ParseList(" , "))
}
