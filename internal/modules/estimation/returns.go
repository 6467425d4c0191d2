// Package estimation computes return and covariance statistics from
// caller-supplied historical return series. It is the leaf layer of the
// engine: everything downstream (optimization, risk parity, factors)
// consumes its outputs.
package estimation

import (
	"github.com/rs/zerolog"

	"github.com/aristath/portfolio-engine/internal/domain"
	"github.com/aristath/portfolio-engine/pkg/formulas"
)

// ReturnsEstimator derives per-asset expected returns from historical series.
type ReturnsEstimator struct {
	log zerolog.Logger
}

// NewReturnsEstimator creates a new returns estimator.
func NewReturnsEstimator(log zerolog.Logger) *ReturnsEstimator {
	return &ReturnsEstimator{
		log: log.With().Str("component", "returns").Logger(),
	}
}

// ExpectedReturns calculates the arithmetic mean return of each asset, in the
// order the assets were supplied.
func (re *ReturnsEstimator) ExpectedReturns(assets []domain.Asset) ([]float64, error) {
	if err := domain.ValidateAssets(assets); err != nil {
		return nil, err
	}

	expected := make([]float64, len(assets))
	for i, asset := range assets {
		expected[i] = formulas.Mean(asset.Returns)
	}

	re.log.Debug().
		Int("num_assets", len(assets)).
		Int("observations", len(assets[0].Returns)).
		Msg("Calculated expected returns")

	return expected, nil
}

// ReturnsFromPrices converts a price series to simple percentage returns.
func (re *ReturnsEstimator) ReturnsFromPrices(prices []float64) []float64 {
	return formulas.ReturnsFromPrices(prices)
}
