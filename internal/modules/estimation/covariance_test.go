package estimation

import (
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/portfolio-engine/internal/domain"
)

// walshAssets builds orthogonal return series with equal variance so the
// sample covariance is diagonal by construction.
func walshAssets() []domain.Asset {
	return []domain.Asset{
		{ID: "A", Returns: []float64{0.01, -0.01, 0.01, -0.01, 0.01, -0.01, 0.01, -0.01}},
		{ID: "B", Returns: []float64{0.01, 0.01, -0.01, -0.01, 0.01, 0.01, -0.01, -0.01}},
		{ID: "C", Returns: []float64{0.01, -0.01, -0.01, 0.01, 0.01, -0.01, -0.01, 0.01}},
	}
}

func TestCovariance_SampleMethod(t *testing.T) {
	est := NewCovarianceEstimator(CovarianceConfig{Method: MethodSample}, zerolog.Nop())

	result, err := est.CalculateCovarianceMatrix(walshAssets())
	require.NoError(t, err)
	require.Len(t, result.Matrix, 3)
	assert.Empty(t, result.ZeroVarianceAssets)

	// Symmetric with equal diagonal and zero off-diagonal
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			assert.InDelta(t, result.Matrix[j][i], result.Matrix[i][j], 1e-12)
			if i != j {
				assert.InDelta(t, 0.0, result.Matrix[i][j], 1e-12)
			}
		}
		assert.InDelta(t, result.Matrix[0][0], result.Matrix[i][i], 1e-12)
	}
	assert.Greater(t, result.Matrix[0][0], 0.0)
}

func TestCovariance_EmptyAssetsYieldEmptyMatrix(t *testing.T) {
	est := NewCovarianceEstimator(CovarianceConfig{}, zerolog.Nop())

	result, err := est.CalculateCovarianceMatrix(nil)
	require.NoError(t, err)
	assert.Empty(t, result.Matrix)
}

func TestCovariance_ZeroVarianceFlagged(t *testing.T) {
	assets := []domain.Asset{
		{ID: "FLAT", Returns: []float64{0.01, 0.01, 0.01, 0.01}},
		{ID: "MOVES", Returns: []float64{0.01, -0.01, 0.02, -0.02}},
	}

	// The flag tracks the input, not the estimate: shrinkage targets lift the
	// flat diagonal above zero but the asset stays degenerate.
	for _, method := range []CovarianceMethod{MethodSample, MethodShrinkage, MethodLedoitWolf} {
		t.Run(string(method), func(t *testing.T) {
			est := NewCovarianceEstimator(CovarianceConfig{Method: method}, zerolog.Nop())

			result, err := est.CalculateCovarianceMatrix(assets)
			require.NoError(t, err)
			assert.Equal(t, []string{"FLAT"}, result.ZeroVarianceAssets)
		})
	}
}

func TestCovariance_ShrinkageMethod(t *testing.T) {
	est := NewCovarianceEstimator(CovarianceConfig{Method: MethodShrinkage}, zerolog.Nop())
	sample := NewCovarianceEstimator(CovarianceConfig{Method: MethodSample}, zerolog.Nop())

	assets := walshAssets()
	shrunk, err := est.CalculateCovarianceMatrix(assets)
	require.NoError(t, err)
	raw, err := sample.CalculateCovarianceMatrix(assets)
	require.NoError(t, err)

	assert.Equal(t, IdentityShrinkageIntensity, shrunk.ShrinkageIntensity)

	// Off-diagonals scale down by (1-delta); here the diagonal is uniform so
	// it is unchanged by the blend towards the average variance.
	for i := 0; i < 3; i++ {
		assert.InDelta(t, raw.Matrix[i][i], shrunk.Matrix[i][i], 1e-12)
		for j := 0; j < 3; j++ {
			if i != j {
				assert.InDelta(t, 0.9*raw.Matrix[i][j], shrunk.Matrix[i][j], 1e-12)
			}
		}
	}
}

func TestCovariance_LedoitWolfIntensityBounds(t *testing.T) {
	est := NewCovarianceEstimator(CovarianceConfig{Method: MethodLedoitWolf}, zerolog.Nop())

	// Short, noisy series: the intensity must still land in [0, 1]
	assets := []domain.Asset{
		{ID: "A", Returns: []float64{0.05, -0.02, 0.01}},
		{ID: "B", Returns: []float64{-0.01, 0.04, -0.03}},
	}
	result, err := est.CalculateCovarianceMatrix(assets)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, result.ShrinkageIntensity, 0.0)
	assert.LessOrEqual(t, result.ShrinkageIntensity, 1.0)
	for i := range result.Matrix {
		assert.Greater(t, result.Matrix[i][i], 0.0)
	}
}

func TestCovariance_LookbackTruncation(t *testing.T) {
	// 10 observations of noise followed by 4 flat ones; a lookback of 4 only
	// sees the flat tail.
	returns := []float64{0.05, -0.05, 0.03, -0.03, 0.02, -0.02, 0.01, -0.01, 0.04, -0.04, 0.0, 0.0, 0.0, 0.0}
	assets := []domain.Asset{{ID: "A", Returns: returns}}

	est := NewCovarianceEstimator(CovarianceConfig{Method: MethodSample, LookbackPeriod: 4}, zerolog.Nop())
	result, err := est.CalculateCovarianceMatrix(assets)
	require.NoError(t, err)

	assert.InDelta(t, 0.0, result.Matrix[0][0], 1e-12)
	assert.Equal(t, []string{"A"}, result.ZeroVarianceAssets)
}

func TestCorrelationMatrix(t *testing.T) {
	est := NewCovarianceEstimator(CovarianceConfig{}, zerolog.Nop())

	cov := [][]float64{
		{0.04, -0.06, 0.0},
		{-0.06, 0.09, 0.0},
		{0.0, 0.0, 0.0},
	}
	corr, degenerate := est.CalculateCorrelationMatrix(cov)

	assert.Equal(t, []int{2}, degenerate)
	for i := 0; i < 3; i++ {
		assert.Equal(t, 1.0, corr[i][i])
	}
	// -0.06 / (0.2 * 0.3) = -1, clamped within [-1, 1]
	assert.InDelta(t, -1.0, corr[0][1], 1e-12)
	assert.Equal(t, 0.0, corr[0][2])
	assert.Equal(t, 0.0, corr[2][1])
}

func TestCovarianceCorrelationRoundTrip(t *testing.T) {
	est := NewCovarianceEstimator(CovarianceConfig{Method: MethodSample}, zerolog.Nop())

	assets := []domain.Asset{
		{ID: "A", Returns: []float64{0.010, -0.012, 0.021, -0.008, 0.014, -0.017}},
		{ID: "B", Returns: []float64{0.006, -0.004, 0.012, -0.010, 0.003, -0.009}},
		{ID: "C", Returns: []float64{-0.002, 0.008, -0.006, 0.011, -0.004, 0.007}},
	}
	covResult, err := est.CalculateCovarianceMatrix(assets)
	require.NoError(t, err)
	corr, degenerate := est.CalculateCorrelationMatrix(covResult.Matrix)
	require.Empty(t, degenerate)

	// corr[i][j] * σ_i * σ_j reproduces the covariance matrix
	n := len(assets)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			sigmaI := math.Sqrt(covResult.Matrix[i][i])
			sigmaJ := math.Sqrt(covResult.Matrix[j][j])
			assert.InDelta(t, covResult.Matrix[i][j], corr[i][j]*sigmaI*sigmaJ, 1e-12)
		}
	}
}

func TestExpectedReturns(t *testing.T) {
	est := NewReturnsEstimator(zerolog.Nop())

	mu, err := est.ExpectedReturns([]domain.Asset{
		{ID: "A", Returns: []float64{0.01, 0.03}},
		{ID: "B", Returns: []float64{-0.01, 0.01}},
	})
	require.NoError(t, err)
	assert.InDelta(t, 0.02, mu[0], 1e-12)
	assert.InDelta(t, 0.0, mu[1], 1e-12)

	_, err = est.ExpectedReturns(nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
