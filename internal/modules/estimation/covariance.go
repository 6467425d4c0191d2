package estimation

import (
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/aristath/portfolio-engine/internal/domain"
)

// CovarianceEstimator builds covariance and correlation matrices from aligned
// return series. Configuration is immutable after construction.
type CovarianceEstimator struct {
	cfg CovarianceConfig
	log zerolog.Logger
}

// NewCovarianceEstimator creates a new covariance estimator.
func NewCovarianceEstimator(cfg CovarianceConfig, log zerolog.Logger) *CovarianceEstimator {
	if cfg.Method == "" {
		cfg.Method = MethodSample
	}
	return &CovarianceEstimator{
		cfg: cfg,
		log: log.With().Str("component", "covariance").Logger(),
	}
}

// CalculateCovarianceMatrix estimates the covariance matrix of the supplied
// assets using the configured method. Zero assets yield an empty matrix;
// zero-variance assets are flagged on the result instead of producing NaNs.
func (ce *CovarianceEstimator) CalculateCovarianceMatrix(assets []domain.Asset) (*CovarianceResult, error) {
	if len(assets) == 0 {
		return &CovarianceResult{Matrix: [][]float64{}, Method: ce.cfg.Method}, nil
	}
	if err := domain.ValidateAssets(assets); err != nil {
		return nil, err
	}

	series := ce.windowed(assets)
	observations := len(series[0])

	sample := sampleCovariance(series)

	result := &CovarianceResult{
		Method: ce.cfg.Method,
	}
	switch ce.cfg.Method {
	case MethodShrinkage:
		result.Matrix = shrinkToIdentity(sample)
		result.ShrinkageIntensity = IdentityShrinkageIntensity
	case MethodLedoitWolf:
		matrix, delta := ledoitWolfShrinkage(sample, observations)
		result.Matrix = matrix
		result.ShrinkageIntensity = delta
	default:
		result.Matrix = sample
	}

	// Degeneracy is a property of the input, so flag on the sample diagonal:
	// shrinkage targets lift a flat asset's variance above zero in the blend.
	for i, asset := range assets {
		if sample[i][i] <= 0 {
			result.ZeroVarianceAssets = append(result.ZeroVarianceAssets, asset.ID)
		}
	}

	ce.log.Debug().
		Str("method", string(ce.cfg.Method)).
		Int("num_assets", len(assets)).
		Int("observations", observations).
		Float64("shrinkage_intensity", result.ShrinkageIntensity).
		Int("zero_variance_assets", len(result.ZeroVarianceAssets)).
		Msg("Calculated covariance matrix")

	return result, nil
}

// CalculateCorrelationMatrix normalizes a covariance matrix by the outer
// product of per-asset standard deviations. Assets with non-positive variance
// are returned as degenerate indices; their off-diagonal correlations are set
// to zero and their diagonal to one.
func (ce *CovarianceEstimator) CalculateCorrelationMatrix(cov [][]float64) ([][]float64, []int) {
	n := len(cov)
	corr := make([][]float64, n)
	for i := range corr {
		corr[i] = make([]float64, n)
	}

	stdDevs := make([]float64, n)
	var degenerate []int
	for i := 0; i < n; i++ {
		if cov[i][i] > 0 {
			stdDevs[i] = math.Sqrt(cov[i][i])
		} else {
			degenerate = append(degenerate, i)
		}
	}

	for i := 0; i < n; i++ {
		corr[i][i] = 1.0
		for j := i + 1; j < n; j++ {
			if stdDevs[i] > 0 && stdDevs[j] > 0 {
				val := cov[i][j] / (stdDevs[i] * stdDevs[j])
				val = math.Max(-1.0, math.Min(1.0, val))
				corr[i][j] = val
				corr[j][i] = val
			}
		}
	}

	if len(degenerate) > 0 {
		ce.log.Warn().
			Ints("degenerate_indices", degenerate).
			Msg("Zero-variance assets in correlation matrix")
	}

	return corr, degenerate
}

// windowed truncates each return series to the configured lookback period.
func (ce *CovarianceEstimator) windowed(assets []domain.Asset) [][]float64 {
	series := make([][]float64, len(assets))
	for i, asset := range assets {
		r := asset.Returns
		if ce.cfg.LookbackPeriod > 0 && len(r) > ce.cfg.LookbackPeriod {
			r = r[len(r)-ce.cfg.LookbackPeriod:]
		}
		series[i] = r
	}
	return series
}

// sampleCovariance computes the unbiased (T-1) sample covariance matrix.
func sampleCovariance(series [][]float64) [][]float64 {
	n := len(series)
	cov := make([][]float64, n)
	for i := range cov {
		cov[i] = make([]float64, n)
	}

	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			c := 0.0
			if len(series[i]) > 1 {
				c = stat.Covariance(series[i], series[j], nil)
			}
			cov[i][j] = c
			cov[j][i] = c
		}
	}
	return cov
}

// shrinkToIdentity blends the sample covariance with an identity-like target
// at fixed intensity: the diagonal moves towards the average variance, the
// off-diagonal entries are scaled down.
func shrinkToIdentity(sample [][]float64) [][]float64 {
	n := len(sample)
	delta := IdentityShrinkageIntensity

	avgVar := 0.0
	for i := 0; i < n; i++ {
		avgVar += sample[i][i]
	}
	avgVar /= float64(n)

	shrunk := make([][]float64, n)
	for i := 0; i < n; i++ {
		shrunk[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			if i == j {
				shrunk[i][j] = (1-delta)*sample[i][j] + delta*avgVar
			} else {
				shrunk[i][j] = (1 - delta) * sample[i][j]
			}
		}
	}
	return shrunk
}

// ledoitWolfShrinkage shrinks the sample covariance towards a
// constant-correlation target built from the average pairwise correlation.
// The intensity is a simplified closed form, (||S-F||_F^2 / T) / ||S-F||_F^2,
// clipped to [0,1] — not the full Ledoit-Wolf asymptotic estimator.
func ledoitWolfShrinkage(sample [][]float64, observations int) ([][]float64, float64) {
	n := len(sample)
	if n == 1 {
		out := [][]float64{{sample[0][0]}}
		return out, 0
	}

	stdDevs := make([]float64, n)
	for i := 0; i < n; i++ {
		if sample[i][i] > 0 {
			stdDevs[i] = math.Sqrt(sample[i][i])
		}
	}

	// Average pairwise correlation over the strictly positive-variance pairs.
	avgCorr := 0.0
	pairs := 0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if stdDevs[i] > 0 && stdDevs[j] > 0 {
				avgCorr += sample[i][j] / (stdDevs[i] * stdDevs[j])
				pairs++
			}
		}
	}
	if pairs > 0 {
		avgCorr /= float64(pairs)
	}

	target := make([][]float64, n)
	for i := 0; i < n; i++ {
		target[i] = make([]float64, n)
		target[i][i] = sample[i][i]
		for j := 0; j < n; j++ {
			if i != j {
				target[i][j] = avgCorr * stdDevs[i] * stdDevs[j]
			}
		}
	}

	froSq := 0.0
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			d := sample[i][j] - target[i][j]
			froSq += d * d
		}
	}

	delta := 0.0
	if froSq > 0 && observations > 0 {
		delta = (froSq / float64(observations)) / froSq
	}
	delta = math.Max(0.0, math.Min(1.0, delta))

	shrunk := make([][]float64, n)
	for i := 0; i < n; i++ {
		shrunk[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			shrunk[i][j] = (1-delta)*sample[i][j] + delta*target[i][j]
		}
	}
	return shrunk, delta
}
