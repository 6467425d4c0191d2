package formulas

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHistoricalCVaR(t *testing.T) {
	// 20 returns, 95% confidence: the tail is the single worst observation
	returns := make([]float64, 20)
	for i := range returns {
		returns[i] = 0.01
	}
	returns[7] = -0.30

	assert.InDelta(t, -0.30, HistoricalCVaR(returns, 0.95), 1e-10)

	// 90% confidence on the same series averages the two worst
	returns[3] = -0.10
	assert.InDelta(t, -0.20, HistoricalCVaR(returns, 0.90), 1e-10)

	assert.Equal(t, 0.0, HistoricalCVaR(nil, 0.95))
	assert.Equal(t, -0.05, HistoricalCVaR([]float64{-0.05}, 0.95))
}

func TestParametricCVaR(t *testing.T) {
	// Standard normal at 95%: CVaR = -phi(z_0.05)/0.05 ≈ -2.0627
	cvar := ParametricCVaR(0.0, 1.0, 0.95)
	assert.InDelta(t, -2.0627, cvar, 1e-3)

	// Shifting the mean shifts the CVaR by the same amount
	shifted := ParametricCVaR(0.5, 1.0, 0.95)
	assert.InDelta(t, cvar+0.5, shifted, 1e-10)

	// CVaR must sit below the mean for any positive dispersion
	assert.Less(t, ParametricCVaR(0.01, 0.02, 0.95), 0.01)

	// Degenerate inputs fall back to the mean
	assert.Equal(t, 0.01, ParametricCVaR(0.01, 0.0, 0.95))
	assert.Equal(t, 0.01, ParametricCVaR(0.01, 0.02, 1.0))
}
