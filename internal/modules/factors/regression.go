package factors

import (
	"fmt"
	"math"

	"github.com/aristath/portfolio-engine/internal/domain"
	"github.com/aristath/portfolio-engine/pkg/formulas"
)

// EstimateFactorModel regresses the asset's returns on the factor returns via
// ordinary least squares with an intercept, solving the normal equations
// (XᵗX)⁻¹Xᵗy. A near-singular design matrix is inverted with ridge
// regularization and the model flagged Degenerate rather than failing.
func (e *Engine) EstimateFactorModel(asset domain.Asset, factors []Factor) (*FactorModel, error) {
	if len(factors) == 0 {
		return nil, fmt.Errorf("%w: no factors provided", domain.ErrInvalidInput)
	}
	observations := len(asset.Returns)
	if observations == 0 {
		return nil, fmt.Errorf("%w: asset %s has no returns", domain.ErrInvalidInput, asset.ID)
	}
	for _, f := range factors {
		if len(f.Returns) != observations {
			return nil, fmt.Errorf("%w: factor %s has %d observations, asset %s has %d",
				domain.ErrInvalidInput, f.ID, len(f.Returns), asset.ID, observations)
		}
	}

	k := len(factors)
	params := k + 1 // intercept plus one coefficient per factor
	if observations <= params {
		return nil, fmt.Errorf("%w: %d observations cannot fit %d parameters",
			domain.ErrInvalidInput, observations, params)
	}

	// Design matrix with a leading intercept column.
	design := make([][]float64, observations)
	for t := 0; t < observations; t++ {
		design[t] = make([]float64, params)
		design[t][0] = 1
		for j, f := range factors {
			design[t][j+1] = f.Returns[t]
		}
	}

	xt := formulas.Transpose(design)
	xtx, err := formulas.Multiply(xt, design)
	if err != nil {
		return nil, err
	}
	xty, err := formulas.MulVec(xt, asset.Returns)
	if err != nil {
		return nil, err
	}

	inv, degenerate, err := formulas.Inverse(xtx)
	if err != nil {
		return nil, fmt.Errorf("normal equations for asset %s: %w", asset.ID, err)
	}
	beta, err := formulas.MulVec(inv, xty)
	if err != nil {
		return nil, err
	}

	model := &FactorModel{
		AssetID:       asset.ID,
		Alpha:         beta[0],
		Sensitivities: beta[1:],
		Degenerate:    degenerate,
	}

	// Residual diagnostics.
	meanReturn := formulas.Mean(asset.Returns)
	ssTotal, ssResidual := 0.0, 0.0
	for t := 0; t < observations; t++ {
		fitted := beta[0]
		for j := 0; j < k; j++ {
			fitted += beta[j+1] * factors[j].Returns[t]
		}
		residual := asset.Returns[t] - fitted
		ssResidual += residual * residual
		deviation := asset.Returns[t] - meanReturn
		ssTotal += deviation * deviation
	}

	if ssTotal > 0 {
		model.RSquared = 1 - ssResidual/ssTotal
	}
	model.StandardError = math.Sqrt(ssResidual / float64(observations-params))

	if degenerate {
		e.log.Warn().
			Str("asset", asset.ID).
			Msg("Factor regression required ridge regularization")
	}

	return model, nil
}
