package riskparity

// Defaults for the iterative equal-risk-contribution solver.
const (
	DefaultMaxIterations = 1000
	DefaultTolerance     = 1e-8
	// BalancedDeviationThreshold is the maximum deviation of any asset's risk
	// share from the 1/n target for a budget to count as balanced.
	BalancedDeviationThreshold = 0.05
)

// Config is immutable after construction.
type Config struct {
	MaxIterations int
	Tolerance     float64
}

// RiskContribution decomposes portfolio risk for one asset.
type RiskContribution struct {
	Asset        string  `json:"asset"`
	Weight       float64 `json:"weight"`
	MarginalRisk float64 `json:"marginal_risk"`
	Contribution float64 `json:"risk_contribution"`
	// Percentage is this asset's share of total portfolio risk (sums to 1).
	Percentage float64 `json:"risk_percentage"`
}

// RiskBudget reports how far the allocation is from equal risk shares.
type RiskBudget struct {
	TargetRisk float64   `json:"target_risk"`
	Deviations []float64 `json:"deviations"`
	IsBalanced bool      `json:"is_balanced"`
}

// PortfolioStats summarizes an allocation in annualized terms.
type PortfolioStats struct {
	ExpectedReturn float64 `json:"expected_return"`
	Volatility     float64 `json:"volatility"`
	SharpeRatio    float64 `json:"sharpe_ratio"`
}

// RiskParityPortfolio is the outcome of the equal-risk-contribution solve.
// Non-convergence is reported via Converged and the budget check, never as
// an error.
type RiskParityPortfolio struct {
	Weights       []float64          `json:"weights"`
	Contributions []RiskContribution `json:"risk_contributions"`
	Stats         PortfolioStats     `json:"portfolio_stats"`
	Budget        RiskBudget         `json:"risk_budget"`
	Converged     bool               `json:"converged"`
	Iterations    int                `json:"iterations"`
}

// Cluster is a node of the agglomerative clustering over correlation
// distance. Distance is the average pairwise distance at which the node was
// formed (zero for leaves).
type Cluster struct {
	ID           int     `json:"id"`
	AssetIndices []int   `json:"asset_indices"`
	Distance     float64 `json:"distance"`
}

// HRPResult is the hierarchical-risk-parity allocation. The dendrogram is
// simplified to the final merged node; the full merge history is not
// retained.
type HRPResult struct {
	Weights    []float64 `json:"weights"`
	Leaves     []Cluster `json:"leaves"`
	Dendrogram Cluster   `json:"dendrogram"`
}

// RebalanceWindow is one step of the dynamic risk-parity simulation.
type RebalanceWindow struct {
	Start               int       `json:"start"`
	End                 int       `json:"end"`
	Weights             []float64 `json:"weights"`
	ExpectedDailyReturn float64   `json:"expected_daily_return"`
	Converged           bool      `json:"converged"`
}

// DynamicResult aggregates the rebalancing simulation into an equity curve
// and its summary statistics.
type DynamicResult struct {
	Windows              []RebalanceWindow `json:"windows"`
	EquityCurve          []float64         `json:"equity_curve"`
	TotalReturn          float64           `json:"total_return"`
	AnnualizedReturn     float64           `json:"annualized_return"`
	AnnualizedVolatility float64           `json:"annualized_volatility"`
	SharpeRatio          float64           `json:"sharpe_ratio"`
	MaxDrawdown          float64           `json:"max_drawdown"`
	CalmarRatio          float64           `json:"calmar_ratio"`
	// Tail-risk cross-checks on per-step daily returns at 95% confidence.
	HistoricalCVaR95 float64 `json:"historical_cvar_95"`
	ParametricCVaR95 float64 `json:"parametric_cvar_95"`
}
