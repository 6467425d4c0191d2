package history

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/portfolio-engine/internal/domain"
)

func seedDatabase(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history.db")

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`
		CREATE TABLE daily_prices (symbol TEXT, date TEXT, close REAL);
		CREATE TABLE securities (symbol TEXT, market_cap REAL);
	`)
	require.NoError(t, err)

	// Five recent trading days; GAPPY is missing the middle day
	prices := map[string][]float64{
		"AAA":   {100, 110, 99, 101.97, 100},
		"GAPPY": {50, 51, -1, 52, 53}, // -1 marks the skipped insert
	}
	for i := 0; i < 5; i++ {
		date := time.Now().AddDate(0, 0, -(5 - i)).Format("2006-01-02")
		for symbol, series := range prices {
			if series[i] < 0 {
				continue
			}
			_, err = db.Exec(`INSERT INTO daily_prices (symbol, date, close) VALUES (?, ?, ?)`,
				symbol, date, series[i])
			require.NoError(t, err)
		}
	}

	_, err = db.Exec(`INSERT INTO securities (symbol, market_cap) VALUES ('AAA', 2000000000)`)
	require.NoError(t, err)

	return path
}

func TestLoadAssets(t *testing.T) {
	path := seedDatabase(t)

	loader, err := Open(path, zerolog.Nop())
	require.NoError(t, err)
	defer loader.Close()

	assets, err := loader.LoadAssets(context.Background(), []string{"AAA", "GAPPY"}, 30)
	require.NoError(t, err)
	require.Len(t, assets, 2)

	byID := make(map[string]domain.Asset, len(assets))
	for _, a := range assets {
		byID[a.ID] = a
	}

	aaa := byID["AAA"]
	require.Len(t, aaa.Returns, 4)
	assert.InDelta(t, 0.10, aaa.Returns[0], 1e-9)
	assert.InDelta(t, -0.10, aaa.Returns[1], 1e-9)
	assert.InDelta(t, 2e9, aaa.MarketCap, 1)

	// The gap forward-fills from the previous close: a zero return followed
	// by the move from the filled price.
	gappy := byID["GAPPY"]
	require.Len(t, gappy.Returns, 4)
	assert.InDelta(t, 0.0, gappy.Returns[1], 1e-9)
	assert.InDelta(t, (52.0-51.0)/51.0, gappy.Returns[2], 1e-9)
	assert.Equal(t, 0.0, gappy.MarketCap)
}

func TestLoadAssets_NoSymbols(t *testing.T) {
	path := seedDatabase(t)

	loader, err := Open(path, zerolog.Nop())
	require.NoError(t, err)
	defer loader.Close()

	_, err = loader.LoadAssets(context.Background(), nil, 30)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestLoadAssets_UnknownSymbols(t *testing.T) {
	path := seedDatabase(t)

	loader, err := Open(path, zerolog.Nop())
	require.NoError(t, err)
	defer loader.Close()

	_, err = loader.LoadAssets(context.Background(), []string{"NOPE"}, 30)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
