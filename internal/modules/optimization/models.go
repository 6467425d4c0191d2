package optimization

import "github.com/aristath/portfolio-engine/internal/domain"

// Result is the outcome of a single optimization run. The optimizer always
// returns a best-effort feasible solution: solver non-convergence and target
// clamping are reported on the result, never raised as errors.
type Result struct {
	Portfolio domain.Portfolio `json:"portfolio"`
	// Converged is false when the numeric solver hit its iteration limits and
	// the weights are the best iterate found rather than a verified optimum.
	Converged bool `json:"converged"`
	// TargetDeviation is the distance between the requested target return and
	// the nearest achievable return actually optimized for. Zero when the
	// requested target was feasible (or no target was requested).
	TargetDeviation float64 `json:"target_deviation,omitempty"`
	// Strategy names the objective that produced this result.
	Strategy string `json:"strategy"`
}

// Optimization strategies, named after their objectives.
const (
	StrategyMinVariance  = "min_variance"
	StrategyMaxSharpe    = "max_sharpe"
	StrategyTargetReturn = "target_return"
	StrategyRiskBounded  = "risk_bounded"
)

// EfficientFrontier is the swept set of minimum-variance portfolios together
// with the two anchor portfolios and the Capital Market Line.
type EfficientFrontier struct {
	Portfolios        []domain.Portfolio       `json:"portfolios"`
	MinimumVariance   domain.Portfolio         `json:"minimum_variance"`
	MaximumSharpe     domain.Portfolio         `json:"maximum_sharpe"`
	CapitalMarketLine domain.CapitalMarketLine `json:"capital_market_line"`
	// DegenerateAssets lists assets flagged by the covariance estimator
	// (zero variance). The sweep continues for unaffected points.
	DegenerateAssets []string `json:"degenerate_assets,omitempty"`
	// SkippedPoints counts frontier points dropped due to per-point failures.
	SkippedPoints int `json:"skipped_points,omitempty"`
}
