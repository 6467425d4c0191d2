package factors

import (
	"fmt"
	"math"

	"github.com/aristath/portfolio-engine/internal/domain"
	"github.com/aristath/portfolio-engine/pkg/formulas"
)

// PerformRiskAttribution decomposes portfolio risk through the factor models:
// portfolio exposures are the weighted factor sensitivities, factor variance
// is the quadratic form of those exposures over the factor covariance, and
// specific risk aggregates the weighted residual standard errors. The
// diversification effect is the gap between the naive sum of the two risk
// sources and the combined total.
func (e *Engine) PerformRiskAttribution(
	weights []float64,
	models []*FactorModel,
	factors []Factor,
) (*RiskAttribution, error) {
	if len(weights) == 0 || len(weights) != len(models) {
		return nil, fmt.Errorf("%w: %d weights for %d factor models",
			domain.ErrInvalidInput, len(weights), len(models))
	}
	if len(factors) == 0 {
		return nil, fmt.Errorf("%w: no factors provided", domain.ErrInvalidInput)
	}
	k := len(factors)
	for _, model := range models {
		if len(model.Sensitivities) != k {
			return nil, fmt.Errorf("%w: model for %s has %d sensitivities, expected %d",
				domain.ErrInvalidInput, model.AssetID, len(model.Sensitivities), k)
		}
	}

	exposures := make([]float64, k)
	for i, model := range models {
		for j := 0; j < k; j++ {
			exposures[j] += weights[i] * model.Sensitivities[j]
		}
	}

	factorCov := factorCovariance(factors)
	factorVariance := formulas.QuadraticForm(exposures, factorCov)
	if factorVariance < 0 {
		factorVariance = 0
	}

	specificVariance := 0.0
	for i, model := range models {
		weighted := weights[i] * model.StandardError
		specificVariance += weighted * weighted
	}
	specificRisk := math.Sqrt(specificVariance)

	totalRisk := math.Sqrt(factorVariance + specificVariance)

	covExposures, err := formulas.MulVec(factorCov, exposures)
	if err != nil {
		return nil, err
	}

	result := &RiskAttribution{
		TotalRisk:             totalRisk,
		FactorRisk:            make(map[string]float64, k),
		SpecificRisk:          specificRisk,
		MarginalContributions: make(map[string]float64, k),
		DiversificationEffect: math.Sqrt(factorVariance) + specificRisk - totalRisk,
	}
	for j, f := range factors {
		// Per-factor variance contributions sum to the total factor variance.
		result.FactorRisk[f.ID] = exposures[j] * covExposures[j]
		if totalRisk > 0 {
			result.MarginalContributions[f.ID] = covExposures[j] / totalRisk
		}
	}

	e.log.Debug().
		Float64("total_risk", totalRisk).
		Float64("specific_risk", specificRisk).
		Float64("diversification_effect", result.DiversificationEffect).
		Msg("Performed risk attribution")

	return result, nil
}

// factorCovariance is the sample covariance matrix of the factor return
// series.
func factorCovariance(factors []Factor) [][]float64 {
	k := len(factors)
	cov := make([][]float64, k)
	for i := 0; i < k; i++ {
		cov[i] = make([]float64, k)
		for j := 0; j <= i; j++ {
			c := formulas.Covariance(factors[i].Returns, factors[j].Returns)
			cov[i][j] = c
			cov[j][i] = c
		}
	}
	return cov
}
