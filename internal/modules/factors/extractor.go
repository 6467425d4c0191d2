// Package factors extracts statistical and economic risk factors from asset
// returns, fits per-asset multi-factor regressions, and decomposes portfolio
// risk into additive factor and specific contributions.
package factors

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/aristath/portfolio-engine/internal/domain"
	"github.com/aristath/portfolio-engine/pkg/formulas"
)

// Engine extracts factors and runs factor regressions. Configuration is
// immutable after construction; instances are safe for concurrent use.
type Engine struct {
	cfg Config
	log zerolog.Logger
}

// NewEngine creates a new factor-model engine.
func NewEngine(cfg Config, log zerolog.Logger) *Engine {
	if cfg.NumPCAFactors <= 0 {
		cfg.NumPCAFactors = DefaultNumPCAFactors
	}
	if cfg.VarianceThreshold <= 0 || cfg.VarianceThreshold > 1 {
		cfg.VarianceThreshold = DefaultVarianceThreshold
	}
	return &Engine{
		cfg: cfg,
		log: log.With().Str("component", "factor_model").Logger(),
	}
}

// ExtractFactors derives statistical factors by eigen-decomposition of the
// covariance of centered returns, retaining components until the cumulative
// explained variance reaches the configured threshold (capped at
// NumPCAFactors), then appends the predefined economic factors when enabled.
func (e *Engine) ExtractFactors(assets []domain.Asset) ([]Factor, error) {
	if err := domain.ValidateAssets(assets); err != nil {
		return nil, err
	}

	pca, err := e.principalComponents(assets)
	if err != nil {
		return nil, err
	}

	factors := pca
	if e.cfg.Predefined {
		factors = append(factors, e.predefinedFactors(assets)...)
	}

	e.log.Debug().
		Int("num_assets", len(assets)).
		Int("pca_factors", len(pca)).
		Int("total_factors", len(factors)).
		Msg("Extracted factors")

	return factors, nil
}

// principalComponents centers the return series, eigen-decomposes their
// covariance matrix, and maps each retained eigenvector to a factor whose
// return series is the projection of the centered returns onto it.
func (e *Engine) principalComponents(assets []domain.Asset) ([]Factor, error) {
	n := len(assets)
	observations := len(assets[0].Returns)
	if observations < 2 {
		return nil, fmt.Errorf("%w: need at least 2 observations for PCA, got %d",
			domain.ErrInvalidInput, observations)
	}

	centered := mat.NewDense(observations, n, nil)
	for j, asset := range assets {
		mean := formulas.Mean(asset.Returns)
		for t, r := range asset.Returns {
			centered.Set(t, j, r-mean)
		}
	}

	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, centered, nil)

	var eig mat.EigenSym
	if ok := eig.Factorize(&cov, true); !ok {
		return nil, fmt.Errorf("eigen-decomposition of covariance matrix failed")
	}
	values := eig.Values(nil)
	var vectors mat.Dense
	eig.VectorsTo(&vectors)

	totalVariance := 0.0
	for _, v := range values {
		if v > 0 {
			totalVariance += v
		}
	}
	if totalVariance <= 0 {
		return nil, nil
	}

	// Eigenvalues come back in ascending order; walk them largest-first.
	order := make([]int, len(values))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return values[order[a]] > values[order[b]] })

	var factors []Factor
	cumulative := 0.0
	for rank, idx := range order {
		if rank >= e.cfg.NumPCAFactors || values[idx] <= 0 {
			break
		}

		loadings := make([]float64, n)
		for j := 0; j < n; j++ {
			loadings[j] = vectors.At(j, idx)
		}

		scores := make([]float64, observations)
		for t := 0; t < observations; t++ {
			for j := 0; j < n; j++ {
				scores[t] += centered.At(t, j) * loadings[j]
			}
		}

		share := values[idx] / totalVariance
		cumulative += share
		factors = append(factors, Factor{
			ID:                fmt.Sprintf("pca_%d", rank+1),
			Name:              fmt.Sprintf("Principal Component %d", rank+1),
			Type:              FactorTypePCA,
			Returns:           scores,
			Loadings:          loadings,
			ExplainedVariance: share,
		})

		if cumulative >= e.cfg.VarianceThreshold {
			break
		}
	}
	return factors, nil
}
