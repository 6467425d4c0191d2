package riskparity

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/portfolio-engine/internal/domain"
	"github.com/aristath/portfolio-engine/internal/modules/estimation"
)

func newTestEngine() *Engine {
	log := zerolog.Nop()
	covariance := estimation.NewCovarianceEstimator(estimation.CovarianceConfig{Method: estimation.MethodSample}, log)
	return NewEngine(covariance, Config{}, 0.02, log)
}

// uncorrelatedAssets have equal variance and zero pairwise covariance, so the
// equal-risk solution is exactly 1/n.
func uncorrelatedAssets() []domain.Asset {
	return []domain.Asset{
		{ID: "A", Returns: []float64{0.01, -0.01, 0.01, -0.01, 0.01, -0.01, 0.01, -0.01}},
		{ID: "B", Returns: []float64{0.01, 0.01, -0.01, -0.01, 0.01, 0.01, -0.01, -0.01}},
		{ID: "C", Returns: []float64{0.01, -0.01, -0.01, 0.01, 0.01, -0.01, -0.01, 0.01}},
	}
}

func TestRiskParity_UncorrelatedEqualVariance(t *testing.T) {
	engine := newTestEngine()

	result, err := engine.CalculateRiskParityPortfolio(context.Background(), uncorrelatedAssets())
	require.NoError(t, err)

	assert.True(t, result.Converged)
	assert.True(t, result.Budget.IsBalanced)
	require.Len(t, result.Weights, 3)

	sum := 0.0
	for i, w := range result.Weights {
		assert.InDelta(t, 1.0/3.0, w, 1e-6)
		assert.InDelta(t, 1.0/3.0, result.Contributions[i].Percentage, 1e-6)
		sum += w
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestRiskParity_UnequalVolatility(t *testing.T) {
	// Asset B is three times as volatile as A; risk parity underweights it
	assets := []domain.Asset{
		{ID: "A", Returns: []float64{0.01, -0.01, 0.01, -0.01, 0.01, -0.01, 0.01, -0.01}},
		{ID: "B", Returns: []float64{0.03, 0.03, -0.03, -0.03, 0.03, 0.03, -0.03, -0.03}},
	}
	engine := newTestEngine()

	result, err := engine.CalculateRiskParityPortfolio(context.Background(), assets)
	require.NoError(t, err)

	assert.True(t, result.Converged)
	assert.Greater(t, result.Weights[0], result.Weights[1])
	// Uncorrelated case: weights are inversely proportional to volatility
	assert.InDelta(t, 0.75, result.Weights[0], 0.01)

	// Contributions still split evenly
	assert.InDelta(t, 0.5, result.Contributions[0].Percentage, 1e-4)
	assert.InDelta(t, 0.5, result.Contributions[1].Percentage, 1e-4)
}

func TestRiskParity_Cancellation(t *testing.T) {
	engine := newTestEngine()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.CalculateRiskParityPortfolio(ctx, uncorrelatedAssets())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRiskParity_InvalidInput(t *testing.T) {
	engine := newTestEngine()

	_, err := engine.CalculateRiskParityPortfolio(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestHRP_PartitionInvariants(t *testing.T) {
	// A and B move together; C is the diversifier and should be merged last
	assets := []domain.Asset{
		{ID: "A", Returns: []float64{0.01, -0.01, 0.02, -0.02, 0.01, -0.01, 0.02, -0.02}},
		{ID: "B", Returns: []float64{0.02, -0.02, 0.04, -0.04, 0.02, -0.02, 0.04, -0.04}},
		{ID: "C", Returns: []float64{0.01, 0.01, -0.01, -0.01, 0.01, 0.01, -0.01, -0.01}},
	}
	engine := newTestEngine()

	result, err := engine.CalculateHierarchicalRiskParity(assets)
	require.NoError(t, err)

	require.Len(t, result.Leaves, 3)
	seen := make(map[int]bool)
	for _, leaf := range result.Leaves {
		require.Len(t, leaf.AssetIndices, 1)
		seen[leaf.AssetIndices[0]] = true
	}
	assert.Len(t, seen, 3, "leaves must cover every asset exactly once")

	// The dendrogram root contains all assets
	assert.ElementsMatch(t, []int{0, 1, 2}, result.Dendrogram.AssetIndices)
	assert.Greater(t, result.Dendrogram.Distance, 0.0)

	// Inverse-volatility weighting: the least volatile asset gets the most
	sum := 0.0
	for _, w := range result.Weights {
		assert.Greater(t, w, 0.0)
		sum += w
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
	assert.Greater(t, result.Weights[0], result.Weights[1], "higher volatility gets lower weight")
}

func TestHRP_SingleAsset(t *testing.T) {
	engine := newTestEngine()

	result, err := engine.CalculateHierarchicalRiskParity([]domain.Asset{
		{ID: "ONLY", Returns: []float64{0.01, -0.01, 0.02}},
	})
	require.NoError(t, err)
	assert.Equal(t, []float64{1.0}, result.Weights)
	require.Len(t, result.Leaves, 1)
}

func TestDynamicRiskParity(t *testing.T) {
	// 60 observations, lookback 20, step 10: 5 rebalance windows
	base := uncorrelatedAssets()
	assets := make([]domain.Asset, len(base))
	for i, a := range base {
		returns := make([]float64, 0, 64)
		for len(returns) < 60 {
			returns = append(returns, a.Returns...)
		}
		// Mild positive drift so the equity curve moves
		for t := range returns {
			returns[t] += 0.001
		}
		assets[i] = domain.Asset{ID: a.ID, Returns: returns[:60]}
	}
	engine := newTestEngine()

	result, err := engine.CalculateDynamicRiskParity(context.Background(), assets, 20, 10)
	require.NoError(t, err)

	require.Len(t, result.Windows, 5)
	require.Len(t, result.EquityCurve, 5)
	for _, w := range result.Windows {
		assert.Equal(t, 20, w.End-w.Start)
		sum := 0.0
		for _, weight := range w.Weights {
			sum += weight
		}
		assert.InDelta(t, 1.0, sum, 1e-6)
	}

	final := result.EquityCurve[len(result.EquityCurve)-1]
	assert.InDelta(t, final-1, result.TotalReturn, 1e-12)
	assert.Greater(t, result.TotalReturn, 0.0, "positive drift should compound upward")
	assert.Greater(t, result.AnnualizedReturn, 0.0)
	assert.GreaterOrEqual(t, result.MaxDrawdown, 0.0)
	assert.GreaterOrEqual(t, result.HistoricalCVaR95, result.ParametricCVaR95-0.05)
}

func TestDynamicRiskParity_TooShortHistory(t *testing.T) {
	engine := newTestEngine()

	_, err := engine.CalculateDynamicRiskParity(context.Background(), uncorrelatedAssets(), 252, 20)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
