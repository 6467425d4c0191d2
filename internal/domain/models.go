// Package domain holds the shared data model for the portfolio engine.
// All objects are computed fresh per call; nothing here is mutated by the
// engines after construction.
package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidInput marks caller contract violations (empty asset lists,
// mismatched return-series lengths). Numeric singularities are NOT errors;
// they surface as degeneracy flags on results.
var ErrInvalidInput = errors.New("invalid input")

// Asset is one instrument with its time-aligned historical return series.
// Return series across assets in one request must have equal length.
type Asset struct {
	ID        string    `json:"id"`
	Returns   []float64 `json:"returns"`
	MarketCap float64   `json:"market_cap,omitempty"`
}

// ValidateAssets enforces the caller contract: non-empty asset list, non-empty
// return series, equal lengths across all assets.
func ValidateAssets(assets []Asset) error {
	if len(assets) == 0 {
		return fmt.Errorf("%w: empty asset list", ErrInvalidInput)
	}

	length := len(assets[0].Returns)
	if length == 0 {
		return fmt.Errorf("%w: asset %s has no returns", ErrInvalidInput, assets[0].ID)
	}

	for _, asset := range assets[1:] {
		if len(asset.Returns) != length {
			return fmt.Errorf("%w: asset %s has %d returns, expected %d",
				ErrInvalidInput, asset.ID, len(asset.Returns), length)
		}
	}

	return nil
}

// Portfolio is a weighted allocation with its summary statistics.
// Weights are aligned with the asset order of the request and sum to 1.
type Portfolio struct {
	Weights        []float64 `json:"weights"`
	ExpectedReturn float64   `json:"expected_return"`
	Variance       float64   `json:"variance"`
	StdDev         float64   `json:"std_dev"`
	SharpeRatio    float64   `json:"sharpe_ratio"`
}

// RiskReturnPoint is one (risk, return) sample on a line or frontier.
type RiskReturnPoint struct {
	Risk   float64 `json:"risk"`
	Return float64 `json:"return"`
}

// CapitalMarketLine is the line from the risk-free rate through the tangency
// portfolio in risk/return space.
type CapitalMarketLine struct {
	Slope     float64           `json:"slope"`
	Intercept float64           `json:"intercept"`
	Points    []RiskReturnPoint `json:"points"`
}

// Constraints are the uniform optimizer constraints applied to every asset.
type Constraints struct {
	SumToOne  bool    `json:"sum_to_one"`
	LongOnly  bool    `json:"long_only"`
	MinWeight float64 `json:"min_weight"`
	MaxWeight float64 `json:"max_weight"`
}

// DefaultConstraints returns the standard long-only, fully-invested setup.
func DefaultConstraints() Constraints {
	return Constraints{
		SumToOne:  true,
		LongOnly:  true,
		MinWeight: 0.0,
		MaxWeight: 1.0,
	}
}

// Bounds expands the constraints into per-asset [lower, upper] weight bounds.
func (c Constraints) Bounds(n int) [][2]float64 {
	lower := c.MinWeight
	if c.LongOnly && lower < 0 {
		lower = 0
	}
	upper := c.MaxWeight
	if upper <= 0 || upper > 1 {
		upper = 1.0
	}
	if upper < lower {
		upper = lower
	}

	bounds := make([][2]float64, n)
	for i := range bounds {
		bounds[i] = [2]float64{lower, upper}
	}
	return bounds
}
