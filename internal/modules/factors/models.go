package factors

// FactorType distinguishes statistical factors from the predefined economic
// ones.
type FactorType string

const (
	FactorTypePCA      FactorType = "pca"
	FactorTypeMarket   FactorType = "market"
	FactorTypeSize     FactorType = "size"
	FactorTypeValue    FactorType = "value"
	FactorTypeMomentum FactorType = "momentum"
)

// Defaults for factor extraction.
const (
	DefaultNumPCAFactors     = 5
	DefaultVarianceThreshold = 0.95
	// momentumPeriod is the rolling window for the cumulative-return ranking
	// behind the momentum factor.
	momentumPeriod = 12
)

// Config is immutable after construction.
type Config struct {
	// NumPCAFactors caps how many principal components are retained.
	NumPCAFactors int
	// VarianceThreshold stops retention once this share of total variance is
	// explained.
	VarianceThreshold float64
	// Predefined toggles the economic factors (market, size, value, momentum)
	// alongside the statistical ones.
	Predefined bool
}

// Factor is one return-driving series. Loadings are populated for PCA factors
// only (the eigenvector components per asset); ExplainedVariance is the
// factor's share of total return variance, zero for predefined factors.
type Factor struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	Type              FactorType `json:"type"`
	Returns           []float64  `json:"returns"`
	Loadings          []float64  `json:"loadings,omitempty"`
	ExplainedVariance float64    `json:"explained_variance,omitempty"`
}

// FactorModel is the OLS regression of one asset's returns on the factor
// returns. Degenerate marks models whose normal equations needed ridge
// regularization to invert; their coefficients should not be trusted for
// attribution without scrutiny.
type FactorModel struct {
	AssetID       string    `json:"asset_id"`
	Alpha         float64   `json:"alpha"`
	Sensitivities []float64 `json:"sensitivities"`
	RSquared      float64   `json:"r_squared"`
	StandardError float64   `json:"standard_error"`
	Degenerate    bool      `json:"degenerate"`
}

// RiskAttribution decomposes portfolio risk into factor and specific parts.
// FactorRisk entries sum to the total factor variance; marginal contributions
// are the sensitivity of total risk to each factor exposure.
type RiskAttribution struct {
	TotalRisk             float64            `json:"total_risk"`
	FactorRisk            map[string]float64 `json:"factor_risk"`
	SpecificRisk          float64            `json:"specific_risk"`
	MarginalContributions map[string]float64 `json:"marginal_contributions"`
	DiversificationEffect float64            `json:"diversification_effect"`
}
