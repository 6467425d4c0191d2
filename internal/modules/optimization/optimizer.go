// Package optimization solves constrained mean-variance portfolio problems
// and builds efficient frontiers. The solver uses a penalty-method objective
// over gonum's optimizers (BFGS with a Nelder-Mead fallback), projecting onto
// the weight bounds at every evaluation and renormalizing the final solution.
package optimization

import (
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/optimize"

	"github.com/aristath/portfolio-engine/internal/domain"
	"github.com/aristath/portfolio-engine/pkg/formulas"
)

// penaltyWeight scales the quadratic penalties for the equality constraints.
const penaltyWeight = 1000.0

// Optimizer performs constrained quadratic portfolio optimization.
type Optimizer struct {
	log zerolog.Logger
}

// NewOptimizer creates a new quadratic portfolio optimizer.
func NewOptimizer(log zerolog.Logger) *Optimizer {
	return &Optimizer{
		log: log.With().Str("component", "optimizer").Logger(),
	}
}

// MinimizeVariance finds the weights minimizing w'Σw subject to Σw=1 and the
// per-asset bounds.
func (o *Optimizer) MinimizeVariance(cov [][]float64, cons domain.Constraints) (*Result, error) {
	n := len(cov)
	if err := validateInputs(nil, cov); err != nil {
		return nil, err
	}
	bounds := cons.Bounds(n)

	objective := func(x []float64) float64 {
		return formulas.QuadraticForm(x, cov) + sumPenalty(x)
	}
	gradient := func(grad, x []float64) {
		for i := 0; i < n; i++ {
			grad[i] = 0
			for j := 0; j < n; j++ {
				grad[i] += 2 * cov[i][j] * x[j]
			}
		}
		addSumPenaltyGradient(grad, x)
	}

	weights, converged := o.solve(n, bounds, objective, gradient)
	return o.finalize(weights, nil, cov, 0, cons, StrategyMinVariance, converged, 0), nil
}

// MaximizeSharpeRatio finds the tangency portfolio maximizing
// (w·μ - rf) / sqrt(w'Σw) subject to Σw=1 and bounds.
func (o *Optimizer) MaximizeSharpeRatio(mu []float64, cov [][]float64, riskFreeRate float64, cons domain.Constraints) (*Result, error) {
	n := len(mu)
	if err := validateInputs(mu, cov); err != nil {
		return nil, err
	}
	bounds := cons.Bounds(n)

	objective := func(x []float64) float64 {
		ret := dot(mu, x)
		variance := formulas.QuadraticForm(x, cov)
		stdDev := math.Sqrt(math.Max(variance, 1e-10))
		return -(ret-riskFreeRate)/stdDev + sumPenalty(x)
	}
	gradient := func(grad, x []float64) {
		ret := dot(mu, x)
		variance := formulas.QuadraticForm(x, cov)
		stdDev := math.Sqrt(math.Max(variance, 1e-10))
		excess := ret - riskFreeRate

		for i := 0; i < n; i++ {
			var dVariance float64
			for j := 0; j < n; j++ {
				dVariance += 2 * cov[i][j] * x[j]
			}
			grad[i] = -mu[i]/stdDev + excess*dVariance/(2*stdDev*stdDev*stdDev)
		}
		addSumPenaltyGradient(grad, x)
	}

	weights, converged := o.solve(n, bounds, objective, gradient)
	return o.finalize(weights, mu, cov, riskFreeRate, cons, StrategyMaxSharpe, converged, 0), nil
}

// OptimizeForTargetReturn finds the minimum-variance weights achieving the
// requested expected return. Infeasible targets are clamped to the nearest
// achievable return under the bounds, and the deviation is reported on the
// result — never raised as an error. riskFreeRate only enters the reported
// Sharpe ratio, not the objective.
func (o *Optimizer) OptimizeForTargetReturn(mu []float64, cov [][]float64, targetReturn, riskFreeRate float64, cons domain.Constraints) (*Result, error) {
	n := len(mu)
	if err := validateInputs(mu, cov); err != nil {
		return nil, err
	}
	bounds := cons.Bounds(n)

	minRet, maxRet := achievableReturnRange(mu, bounds)
	clamped := math.Max(minRet, math.Min(maxRet, targetReturn))
	deviation := math.Abs(targetReturn - clamped)
	if deviation > 0 {
		o.log.Warn().
			Float64("requested_return", targetReturn).
			Float64("clamped_return", clamped).
			Float64("achievable_min", minRet).
			Float64("achievable_max", maxRet).
			Msg("Target return infeasible, clamped to achievable range")
	}

	objective := func(x []float64) float64 {
		ret := dot(mu, x)
		obj := formulas.QuadraticForm(x, cov)
		obj += sumPenalty(x)
		obj += penaltyWeight * (ret - clamped) * (ret - clamped)
		return obj
	}
	gradient := func(grad, x []float64) {
		ret := dot(mu, x)
		for i := 0; i < n; i++ {
			grad[i] = 0
			for j := 0; j < n; j++ {
				grad[i] += 2 * cov[i][j] * x[j]
			}
			grad[i] += 2 * penaltyWeight * (ret - clamped) * mu[i]
		}
		addSumPenaltyGradient(grad, x)
	}

	weights, converged := o.solve(n, bounds, objective, gradient)
	return o.finalize(weights, mu, cov, riskFreeRate, cons, StrategyTargetReturn, converged, deviation), nil
}

// MaximizeReturnForRisk maximizes w·μ subject to portfolio volatility staying
// at or below maxRisk, Σw=1 and bounds. riskFreeRate only enters the reported
// Sharpe ratio, not the objective.
func (o *Optimizer) MaximizeReturnForRisk(mu []float64, cov [][]float64, maxRisk, riskFreeRate float64, cons domain.Constraints) (*Result, error) {
	n := len(mu)
	if err := validateInputs(mu, cov); err != nil {
		return nil, err
	}
	bounds := cons.Bounds(n)
	maxVariance := maxRisk * maxRisk

	objective := func(x []float64) float64 {
		ret := dot(mu, x)
		variance := formulas.QuadraticForm(x, cov)
		obj := -ret + sumPenalty(x)
		if violation := variance - maxVariance; violation > 0 {
			obj += penaltyWeight * violation * violation
		}
		return obj
	}
	gradient := func(grad, x []float64) {
		variance := formulas.QuadraticForm(x, cov)
		violation := variance - maxVariance
		for i := 0; i < n; i++ {
			grad[i] = -mu[i]
			if violation > 0 {
				var dVariance float64
				for j := 0; j < n; j++ {
					dVariance += 2 * cov[i][j] * x[j]
				}
				grad[i] += 2 * penaltyWeight * violation * dVariance
			}
		}
		addSumPenaltyGradient(grad, x)
	}

	weights, converged := o.solve(n, bounds, objective, gradient)
	return o.finalize(weights, mu, cov, riskFreeRate, cons, StrategyRiskBounded, converged, 0), nil
}

// solve runs the penalty objective through BFGS, falling back to Nelder-Mead.
// It always produces weights: on total solver failure the equal-weight start
// is returned with converged=false.
func (o *Optimizer) solve(
	n int,
	bounds [][2]float64,
	objective func(x []float64) float64,
	gradient func(grad, x []float64),
) ([]float64, bool) {
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			return objective(projectToBounds(x, bounds))
		},
		Grad: func(grad, x []float64) {
			gradient(grad, projectToBounds(x, bounds))
		},
	}

	initial := make([]float64, n)
	for i := range initial {
		initial[i] = 1.0 / float64(n)
	}

	result, err := optimize.Minimize(problem, initial, &optimize.Settings{}, &optimize.BFGS{})
	if err != nil || !solverSucceeded(result.Status) {
		fallback, fbErr := optimize.Minimize(problem, initial, &optimize.Settings{}, &optimize.NelderMead{})
		if fbErr == nil && solverSucceeded(fallback.Status) {
			return fallback.X, true
		}
		if fbErr == nil && fallback.X != nil {
			o.log.Warn().
				Str("status", fallback.Status.String()).
				Msg("Solver did not converge, returning best iterate")
			return fallback.X, false
		}
		if err == nil && result.X != nil {
			return result.X, false
		}
		o.log.Warn().Err(err).Msg("All solvers failed, returning equal weights")
		return initial, false
	}

	return result.X, true
}

// finalize projects, normalizes and annotates the raw solver weights.
func (o *Optimizer) finalize(
	raw []float64,
	mu []float64,
	cov [][]float64,
	riskFreeRate float64,
	cons domain.Constraints,
	strategy string,
	converged bool,
	deviation float64,
) *Result {
	weights := projectToBounds(raw, cons.Bounds(len(raw)))
	if cons.LongOnly {
		for i, w := range weights {
			if w < 0 {
				weights[i] = 0
			}
		}
	}
	if cons.SumToOne {
		normalize(weights)
	}

	return &Result{
		Portfolio:       PortfolioStats(weights, mu, cov, riskFreeRate),
		Converged:       converged,
		TargetDeviation: deviation,
		Strategy:        strategy,
	}
}

// PortfolioStats computes the summary statistics of a weighted allocation.
// A nil expected-return vector yields zero return and Sharpe ratio.
func PortfolioStats(weights, mu []float64, cov [][]float64, riskFreeRate float64) domain.Portfolio {
	variance := formulas.QuadraticForm(weights, cov)
	if variance < 0 {
		variance = 0
	}
	stdDev := math.Sqrt(variance)

	expectedReturn := 0.0
	if mu != nil {
		expectedReturn = dot(mu, weights)
	}

	sharpe := 0.0
	if stdDev > 0 {
		sharpe = (expectedReturn - riskFreeRate) / stdDev
	}

	return domain.Portfolio{
		Weights:        weights,
		ExpectedReturn: expectedReturn,
		Variance:       variance,
		StdDev:         stdDev,
		SharpeRatio:    sharpe,
	}
}

// achievableReturnRange computes the minimum and maximum expected return
// reachable under the per-asset bounds with weights summing to one, by
// greedily assigning the free mass above the lower bounds.
func achievableReturnRange(mu []float64, bounds [][2]float64) (float64, float64) {
	n := len(mu)

	base := 0.0
	free := 1.0
	for i := 0; i < n; i++ {
		base += bounds[i][0] * mu[i]
		free -= bounds[i][0]
	}
	if free < 0 {
		free = 0
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}

	allocate := func(desc bool) float64 {
		sort.Slice(order, func(a, b int) bool {
			if desc {
				return mu[order[a]] > mu[order[b]]
			}
			return mu[order[a]] < mu[order[b]]
		})
		total := base
		remaining := free
		for _, idx := range order {
			if remaining <= 0 {
				break
			}
			capacity := bounds[idx][1] - bounds[idx][0]
			take := math.Min(capacity, remaining)
			total += take * mu[idx]
			remaining -= take
		}
		return total
	}

	maxRet := allocate(true)
	minRet := allocate(false)
	return minRet, maxRet
}

// Helper functions

func validateInputs(mu []float64, cov [][]float64) error {
	n := len(cov)
	if n == 0 {
		return fmt.Errorf("%w: empty covariance matrix", domain.ErrInvalidInput)
	}
	for i := range cov {
		if len(cov[i]) != n {
			return fmt.Errorf("%w: covariance row %d has %d columns, expected %d",
				domain.ErrInvalidInput, i, len(cov[i]), n)
		}
	}
	if mu != nil && len(mu) != n {
		return fmt.Errorf("%w: %d expected returns for %d assets",
			domain.ErrInvalidInput, len(mu), n)
	}
	return nil
}

func solverSucceeded(status optimize.Status) bool {
	switch status {
	case optimize.Success, optimize.GradientThreshold, optimize.FunctionConvergence:
		return true
	}
	return false
}

func projectToBounds(x []float64, bounds [][2]float64) []float64 {
	proj := make([]float64, len(x))
	for i := range x {
		proj[i] = math.Max(bounds[i][0], math.Min(bounds[i][1], x[i]))
	}
	return proj
}

func normalize(weights []float64) {
	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	if sum == 0 {
		for i := range weights {
			weights[i] = 1.0 / float64(len(weights))
		}
		return
	}
	for i := range weights {
		weights[i] /= sum
	}
}

func sumPenalty(x []float64) float64 {
	sum := 0.0
	for _, v := range x {
		sum += v
	}
	return penaltyWeight * (sum - 1.0) * (sum - 1.0)
}

func addSumPenaltyGradient(grad, x []float64) {
	sum := 0.0
	for _, v := range x {
		sum += v
	}
	for i := range grad {
		grad[i] += 2 * penaltyWeight * (sum - 1.0)
	}
}

func dot(a, b []float64) float64 {
	total := 0.0
	for i := range a {
		total += a[i] * b[i]
	}
	return total
}
