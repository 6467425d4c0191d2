package formulas

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"
)

// HistoricalCVaR calculates Conditional Value at Risk at the given confidence
// level from a historical return series. CVaR is the expected return given
// that the return falls into the worst (1-confidence) tail.
func HistoricalCVaR(returns []float64, confidence float64) float64 {
	if len(returns) == 0 {
		return 0.0
	}
	if len(returns) == 1 {
		return returns[0]
	}

	sorted := make([]float64, len(returns))
	copy(sorted, returns)
	sort.Float64s(sorted)

	tailProbability := 1.0 - confidence
	tailCount := int(math.Ceil(float64(len(sorted)) * tailProbability))
	if tailCount < 1 {
		tailCount = 1
	}
	if tailCount > len(sorted) {
		tailCount = len(sorted)
	}

	sum := 0.0
	for _, r := range sorted[:tailCount] {
		sum += r
	}
	return sum / float64(tailCount)
}

// ParametricCVaR calculates Gaussian CVaR from a mean and standard deviation:
// CVaR_alpha = mu - sigma * phi(z_alpha) / (1 - confidence), where phi is the
// standard normal density and z_alpha its (1-confidence) quantile. Used as a
// smooth cross-check next to the historical estimate on short series.
func ParametricCVaR(mean, stdDev, confidence float64) float64 {
	if stdDev <= 0 || confidence <= 0 || confidence >= 1 {
		return mean
	}

	normal := distuv.Normal{Mu: 0, Sigma: 1}
	alpha := 1.0 - confidence
	z := normal.Quantile(alpha)
	return mean - stdDev*normal.Prob(z)/alpha
}
