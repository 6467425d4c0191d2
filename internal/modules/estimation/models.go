package estimation

// CovarianceMethod selects the covariance estimator.
type CovarianceMethod string

const (
	// MethodSample is the classic unbiased (T-1) estimator.
	MethodSample CovarianceMethod = "sample"
	// MethodShrinkage blends the sample estimate with an identity-like target
	// at fixed intensity, improving conditioning for near-singular samples.
	MethodShrinkage CovarianceMethod = "shrinkage"
	// MethodLedoitWolf shrinks towards a constant-correlation target with a
	// data-driven intensity (simplified closed form, clipped to [0,1]).
	MethodLedoitWolf CovarianceMethod = "ledoit-wolf"
)

// IdentityShrinkageIntensity is the fixed blend used by MethodShrinkage.
const IdentityShrinkageIntensity = 0.1

// CovarianceConfig is immutable after construction.
type CovarianceConfig struct {
	Method CovarianceMethod
	// LookbackPeriod truncates each return series to its most recent N
	// observations before estimation. Zero means use the full series.
	LookbackPeriod int
}

// CovarianceResult carries the estimated matrix plus degeneracy markers.
// Zero-variance assets are flagged rather than propagated as NaN.
type CovarianceResult struct {
	Matrix             [][]float64      `json:"matrix"`
	Method             CovarianceMethod `json:"method"`
	ZeroVarianceAssets []string         `json:"zero_variance_assets,omitempty"`
	// ShrinkageIntensity is the delta actually applied (0 for MethodSample).
	ShrinkageIntensity float64 `json:"shrinkage_intensity"`
}
