// Package riskparity allocates portfolios so that assets contribute equally
// to total risk: an iterative fixed-point solver for equal risk
// contributions, a hierarchical (clustering-based) variant, and a
// rolling-window rebalancing simulation.
package riskparity

import (
	"context"
	"math"

	"github.com/rs/zerolog"

	"github.com/aristath/portfolio-engine/internal/domain"
	"github.com/aristath/portfolio-engine/internal/modules/estimation"
	"github.com/aristath/portfolio-engine/pkg/formulas"
)

// Engine computes risk-parity allocations. Configuration is immutable after
// construction; instances are safe for concurrent use.
type Engine struct {
	covariance   *estimation.CovarianceEstimator
	cfg          Config
	riskFreeRate float64
	log          zerolog.Logger
}

// NewEngine creates a new risk-parity engine.
func NewEngine(covariance *estimation.CovarianceEstimator, cfg Config, riskFreeRate float64, log zerolog.Logger) *Engine {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = DefaultTolerance
	}
	return &Engine{
		covariance:   covariance,
		cfg:          cfg,
		riskFreeRate: riskFreeRate,
		log:          log.With().Str("component", "risk_parity").Logger(),
	}
}

// CalculateRiskParityPortfolio iterates from equal weights towards equal risk
// contributions: each round rescales every weight by the ratio of the target
// contribution (the mean) to its current contribution, then renormalizes.
// Iteration stops when successive weight vectors are closer than the
// configured tolerance; exhaustion returns the last iterate with
// Converged=false and no error. Cancellation via ctx aborts the solve.
func (e *Engine) CalculateRiskParityPortfolio(ctx context.Context, assets []domain.Asset) (*RiskParityPortfolio, error) {
	if err := domain.ValidateAssets(assets); err != nil {
		return nil, err
	}

	n := len(assets)
	covResult, err := e.covariance.CalculateCovarianceMatrix(assets)
	if err != nil {
		return nil, err
	}
	cov := covResult.Matrix

	weights := make([]float64, n)
	for i := range weights {
		weights[i] = 1.0 / float64(n)
	}

	converged := false
	iterations := 0
	for iter := 0; iter < e.cfg.MaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		iterations = iter + 1

		vol, contributions := riskContributions(weights, cov)
		if vol <= 0 {
			// Degenerate covariance: every allocation carries zero risk, so
			// equal weights already satisfy the budget.
			converged = true
			break
		}

		target := vol / float64(n) // contributions sum to vol
		next := make([]float64, n)
		for i := 0; i < n; i++ {
			if contributions[i] > 1e-12 {
				next[i] = weights[i] * target / contributions[i]
			} else {
				next[i] = weights[i]
			}
		}
		normalizeWeights(next)

		if euclideanDistance(weights, next) < e.cfg.Tolerance {
			weights = next
			converged = true
			break
		}
		weights = next
	}

	portfolio := e.buildResult(assets, weights, cov, converged, iterations)

	e.log.Debug().
		Int("num_assets", n).
		Int("iterations", iterations).
		Bool("converged", converged).
		Bool("balanced", portfolio.Budget.IsBalanced).
		Msg("Calculated risk parity portfolio")

	return portfolio, nil
}

// buildResult assembles contributions, stats and the budget check for the
// final weight vector.
func (e *Engine) buildResult(
	assets []domain.Asset,
	weights []float64,
	cov [][]float64,
	converged bool,
	iterations int,
) *RiskParityPortfolio {
	n := len(assets)
	vol, contributions := riskContributions(weights, cov)

	result := &RiskParityPortfolio{
		Weights:       weights,
		Contributions: make([]RiskContribution, n),
		Converged:     converged,
		Iterations:    iterations,
		Budget: RiskBudget{
			TargetRisk: 1.0 / float64(n),
			Deviations: make([]float64, n),
			IsBalanced: true,
		},
	}

	for i := 0; i < n; i++ {
		marginal := 0.0
		percentage := 0.0
		if vol > 0 {
			marginal = contributions[i] / math.Max(weights[i], 1e-12)
			percentage = contributions[i] / vol
		}
		result.Contributions[i] = RiskContribution{
			Asset:        assets[i].ID,
			Weight:       weights[i],
			MarginalRisk: marginal,
			Contribution: contributions[i],
			Percentage:   percentage,
		}

		deviation := math.Abs(percentage - result.Budget.TargetRisk)
		result.Budget.Deviations[i] = deviation
		if deviation >= BalancedDeviationThreshold {
			result.Budget.IsBalanced = false
		}
	}

	dailyReturn := 0.0
	for i, asset := range assets {
		dailyReturn += weights[i] * formulas.Mean(asset.Returns)
	}
	annualVol := vol * math.Sqrt(formulas.TradingDaysPerYear)
	annualReturn := dailyReturn * formulas.TradingDaysPerYear
	sharpe := 0.0
	if annualVol > 0 {
		sharpe = (annualReturn - e.riskFreeRate) / annualVol
	}
	result.Stats = PortfolioStats{
		ExpectedReturn: annualReturn,
		Volatility:     annualVol,
		SharpeRatio:    sharpe,
	}

	return result
}

// riskContributions returns the portfolio volatility and each asset's risk
// contribution w_i * (Σw)_i / vol. Contributions sum to the volatility.
func riskContributions(weights []float64, cov [][]float64) (float64, []float64) {
	n := len(weights)
	sigmaW := make([]float64, n)
	variance := 0.0
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			sigmaW[i] += cov[i][j] * weights[j]
		}
		variance += weights[i] * sigmaW[i]
	}
	if variance <= 0 {
		return 0, make([]float64, n)
	}

	vol := math.Sqrt(variance)
	contributions := make([]float64, n)
	for i := 0; i < n; i++ {
		contributions[i] = weights[i] * sigmaW[i] / vol
	}
	return vol, contributions
}

func normalizeWeights(weights []float64) {
	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	if sum <= 0 {
		for i := range weights {
			weights[i] = 1.0 / float64(len(weights))
		}
		return
	}
	for i := range weights {
		weights[i] /= sum
	}
}

func euclideanDistance(a, b []float64) float64 {
	total := 0.0
	for i := range a {
		d := a[i] - b[i]
		total += d * d
	}
	return math.Sqrt(total)
}
