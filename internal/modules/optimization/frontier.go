package optimization

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/portfolio-engine/internal/domain"
	"github.com/aristath/portfolio-engine/internal/modules/estimation"
)

const (
	// DefaultFrontierPoints is the number of target returns swept between the
	// minimum-variance and maximum-Sharpe portfolios (inclusive).
	DefaultFrontierPoints = 100
	// cmlPoints is the number of Capital Market Line samples, spanning risk
	// levels from zero to twice the tangency standard deviation.
	cmlPoints = 21
)

// FrontierBuilder computes efficient frontiers and the Capital Market Line.
// Estimators and optimizer are injected by the composition root.
type FrontierBuilder struct {
	returns      *estimation.ReturnsEstimator
	covariance   *estimation.CovarianceEstimator
	optimizer    *Optimizer
	riskFreeRate float64
	log          zerolog.Logger
}

// NewFrontierBuilder creates a new frontier builder.
func NewFrontierBuilder(
	returns *estimation.ReturnsEstimator,
	covariance *estimation.CovarianceEstimator,
	optimizer *Optimizer,
	riskFreeRate float64,
	log zerolog.Logger,
) *FrontierBuilder {
	return &FrontierBuilder{
		returns:      returns,
		covariance:   covariance,
		optimizer:    optimizer,
		riskFreeRate: riskFreeRate,
		log:          log.With().Str("component", "frontier").Logger(),
	}
}

// CalculateEfficientFrontier sweeps numPortfolios evenly spaced target returns
// between the minimum-variance and maximum-Sharpe portfolios. Expected returns
// and covariance are estimated once. Per-point failures are skipped and
// counted so the batch continues for unaffected targets. Cancellation via ctx
// aborts the sweep between points.
func (fb *FrontierBuilder) CalculateEfficientFrontier(
	ctx context.Context,
	assets []domain.Asset,
	numPortfolios int,
) (*EfficientFrontier, error) {
	if numPortfolios <= 0 {
		numPortfolios = DefaultFrontierPoints
	}

	mu, err := fb.returns.ExpectedReturns(assets)
	if err != nil {
		return nil, err
	}
	covResult, err := fb.covariance.CalculateCovarianceMatrix(assets)
	if err != nil {
		return nil, err
	}
	cov := covResult.Matrix
	cons := domain.DefaultConstraints()

	minVarResult, err := fb.optimizer.MinimizeVariance(cov, cons)
	if err != nil {
		return nil, fmt.Errorf("minimum-variance portfolio: %w", err)
	}
	minVar := PortfolioStats(minVarResult.Portfolio.Weights, mu, cov, fb.riskFreeRate)

	maxSharpeResult, err := fb.optimizer.MaximizeSharpeRatio(mu, cov, fb.riskFreeRate, cons)
	if err != nil {
		return nil, fmt.Errorf("maximum-Sharpe portfolio: %w", err)
	}
	maxSharpe := maxSharpeResult.Portfolio

	frontier := &EfficientFrontier{
		MinimumVariance:  minVar,
		MaximumSharpe:    maxSharpe,
		DegenerateAssets: covResult.ZeroVarianceAssets,
	}

	lo, hi := minVar.ExpectedReturn, maxSharpe.ExpectedReturn
	step := 0.0
	if numPortfolios > 1 {
		step = (hi - lo) / float64(numPortfolios-1)
	}

	portfolios := make([]domain.Portfolio, 0, numPortfolios)
	for i := 0; i < numPortfolios; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		target := lo + float64(i)*step
		result, err := fb.optimizer.OptimizeForTargetReturn(mu, cov, target, fb.riskFreeRate, cons)
		if err != nil {
			frontier.SkippedPoints++
			fb.log.Warn().Err(err).Float64("target_return", target).Msg("Skipped frontier point")
			continue
		}
		portfolios = append(portfolios, result.Portfolio)
	}
	frontier.Portfolios = portfolios
	frontier.CapitalMarketLine = fb.capitalMarketLine(maxSharpe)

	fb.log.Info().
		Int("num_portfolios", len(portfolios)).
		Int("skipped_points", frontier.SkippedPoints).
		Float64("min_variance_return", minVar.ExpectedReturn).
		Msg("Calculated efficient frontier")

	return frontier, nil
}

// OptimizePortfolio is the convenience entry point. A target return takes
// precedence; otherwise a risk cap triggers risk-bounded optimization, and
// with neither the tangency (maximum-Sharpe) portfolio is returned.
func (fb *FrontierBuilder) OptimizePortfolio(
	ctx context.Context,
	assets []domain.Asset,
	targetReturn *float64,
	maxRisk *float64,
) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mu, err := fb.returns.ExpectedReturns(assets)
	if err != nil {
		return nil, err
	}
	covResult, err := fb.covariance.CalculateCovarianceMatrix(assets)
	if err != nil {
		return nil, err
	}
	cons := domain.DefaultConstraints()

	switch {
	case targetReturn != nil:
		return fb.optimizer.OptimizeForTargetReturn(mu, covResult.Matrix, *targetReturn, fb.riskFreeRate, cons)
	case maxRisk != nil:
		return fb.optimizer.MaximizeReturnForRisk(mu, covResult.Matrix, *maxRisk, fb.riskFreeRate, cons)
	default:
		return fb.optimizer.MaximizeSharpeRatio(mu, covResult.Matrix, fb.riskFreeRate, cons)
	}
}

// capitalMarketLine builds the line from the risk-free rate through the
// tangency portfolio, sampled at evenly spaced risk levels.
func (fb *FrontierBuilder) capitalMarketLine(tangency domain.Portfolio) domain.CapitalMarketLine {
	slope := 0.0
	if tangency.StdDev > 0 {
		slope = (tangency.ExpectedReturn - fb.riskFreeRate) / tangency.StdDev
	}

	cml := domain.CapitalMarketLine{
		Slope:     slope,
		Intercept: fb.riskFreeRate,
		Points:    make([]domain.RiskReturnPoint, cmlPoints),
	}

	maxRiskLevel := 2 * tangency.StdDev
	for i := 0; i < cmlPoints; i++ {
		risk := maxRiskLevel * float64(i) / float64(cmlPoints-1)
		cml.Points[i] = domain.RiskReturnPoint{
			Risk:   risk,
			Return: fb.riskFreeRate + slope*risk,
		}
	}
	return cml
}
