// Package history loads pre-aligned daily return series from a local sqlite
// price database, the input the engines consume. The engines themselves never
// touch the disk.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/aristath/portfolio-engine/internal/domain"
)

// Loader reads price history and market caps from a sqlite database with a
// daily_prices table (symbol, date, close) and an optional securities table
// (symbol, market_cap).
type Loader struct {
	db  *sql.DB
	log zerolog.Logger
}

// Open opens the price database read-only.
func Open(path string, log zerolog.Logger) (*Loader, error) {
	db, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open price database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to price database: %w", err)
	}
	return &Loader{
		db:  db,
		log: log.With().Str("component", "history").Logger(),
	}, nil
}

// Close closes the underlying database connection.
func (l *Loader) Close() error {
	return l.db.Close()
}

// LoadAssets fetches close prices for the symbols over the lookback window,
// forward/back-fills gaps, converts prices to daily simple returns, and
// attaches market caps when a securities table is present. All series come
// back aligned on the union of trading dates.
func (l *Loader) LoadAssets(ctx context.Context, symbols []string, lookbackDays int) ([]domain.Asset, error) {
	if len(symbols) == 0 {
		return nil, fmt.Errorf("%w: no symbols requested", domain.ErrInvalidInput)
	}

	prices, dates, err := l.fetchPriceHistory(ctx, symbols, lookbackDays)
	if err != nil {
		return nil, err
	}
	if len(dates) < 2 {
		return nil, fmt.Errorf("%w: only %d trading dates available", domain.ErrInvalidInput, len(dates))
	}

	fillMissing(prices, l.log)
	marketCaps := l.fetchMarketCaps(ctx, symbols)

	assets := make([]domain.Asset, 0, len(symbols))
	for _, symbol := range symbols {
		series := prices[symbol]
		returns := priceReturns(series)
		if len(returns) == 0 {
			l.log.Warn().Str("symbol", symbol).Msg("Skipping symbol with no usable price history")
			continue
		}
		assets = append(assets, domain.Asset{
			ID:        symbol,
			Returns:   returns,
			MarketCap: marketCaps[symbol],
		})
	}
	if len(assets) == 0 {
		return nil, fmt.Errorf("%w: no symbols had usable price history", domain.ErrInvalidInput)
	}

	l.log.Info().
		Int("num_assets", len(assets)).
		Int("num_dates", len(dates)).
		Msg("Loaded asset return series")

	return assets, nil
}

// fetchPriceHistory queries close prices per symbol, aligned on the union of
// dates with gaps marked NaN for the fill pass.
func (l *Loader) fetchPriceHistory(ctx context.Context, symbols []string, days int) (map[string][]float64, []string, error) {
	startDate := time.Now().AddDate(0, 0, -days).Format("2006-01-02")

	query := `
		SELECT symbol, date, close
		FROM daily_prices
		WHERE symbol IN (` + placeholders(len(symbols)) + `)
			AND date >= ?
		ORDER BY date ASC
	`
	args := make([]interface{}, 0, len(symbols)+1)
	for _, symbol := range symbols {
		args = append(args, symbol)
	}
	args = append(args, startDate)

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query price history: %w", err)
	}
	defer rows.Close()

	bySymbol := make(map[string]map[string]float64)
	dateSet := make(map[string]bool)
	for rows.Next() {
		var symbol, date string
		var price float64
		if err := rows.Scan(&symbol, &date, &price); err != nil {
			return nil, nil, fmt.Errorf("failed to scan price row: %w", err)
		}
		if bySymbol[symbol] == nil {
			bySymbol[symbol] = make(map[string]float64)
		}
		bySymbol[symbol][date] = price
		dateSet[date] = true
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating price rows: %w", err)
	}

	dates := make([]string, 0, len(dateSet))
	for date := range dateSet {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	prices := make(map[string][]float64, len(symbols))
	for _, symbol := range symbols {
		series := make([]float64, len(dates))
		for i, date := range dates {
			if price, ok := bySymbol[symbol][date]; ok {
				series[i] = price
			} else {
				series[i] = math.NaN()
			}
		}
		prices[symbol] = series
	}
	return prices, dates, nil
}

// fetchMarketCaps reads market caps from the securities table. The table is
// optional; a missing one just leaves all caps at zero.
func (l *Loader) fetchMarketCaps(ctx context.Context, symbols []string) map[string]float64 {
	caps := make(map[string]float64, len(symbols))

	query := `SELECT symbol, market_cap FROM securities WHERE symbol IN (` + placeholders(len(symbols)) + `)`
	args := make([]interface{}, len(symbols))
	for i, symbol := range symbols {
		args[i] = symbol
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		l.log.Debug().Err(err).Msg("No market cap data available")
		return caps
	}
	defer rows.Close()

	for rows.Next() {
		var symbol string
		var marketCap sql.NullFloat64
		if err := rows.Scan(&symbol, &marketCap); err != nil {
			continue
		}
		if marketCap.Valid {
			caps[symbol] = marketCap.Float64
		}
	}
	return caps
}

// fillMissing forward-fills each series from the previous valid value, then
// back-fills leading gaps from the next valid one.
func fillMissing(prices map[string][]float64, log zerolog.Logger) {
	missing, filled := 0, 0
	for _, series := range prices {
		var lastValid float64
		hasLastValid := false
		for i := range series {
			if math.IsNaN(series[i]) {
				missing++
				if hasLastValid {
					series[i] = lastValid
					filled++
				}
			} else {
				lastValid = series[i]
				hasLastValid = true
			}
		}

		var nextValid float64
		hasNextValid := false
		for i := len(series) - 1; i >= 0; i-- {
			if math.IsNaN(series[i]) {
				if hasNextValid {
					series[i] = nextValid
					filled++
				}
			} else {
				nextValid = series[i]
				hasNextValid = true
			}
		}
	}

	if missing > 0 {
		log.Warn().
			Int("missing_data_points", missing).
			Int("filled_data_points", filled).
			Msg("Filled missing price data")
	}
}

// priceReturns converts a price series to daily simple returns, skipping
// pairs that are still NaN or non-positive after filling.
func priceReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return nil
	}
	returns := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] > 0 && !math.IsNaN(prices[i]) && !math.IsNaN(prices[i-1]) {
			returns[i-1] = (prices[i] - prices[i-1]) / prices[i-1]
		}
	}
	return returns
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
