// Package di wires configuration into the engines. It is the single place
// where concrete estimators, optimizers and engines are constructed.
package di

import (
	"github.com/rs/zerolog"

	"github.com/aristath/portfolio-engine/internal/config"
	"github.com/aristath/portfolio-engine/internal/modules/estimation"
	"github.com/aristath/portfolio-engine/internal/modules/factors"
	"github.com/aristath/portfolio-engine/internal/modules/optimization"
	"github.com/aristath/portfolio-engine/internal/modules/riskparity"
)

// Container holds all engine instances. Every field is safe for concurrent
// use once built.
type Container struct {
	Returns    *estimation.ReturnsEstimator
	Covariance *estimation.CovarianceEstimator
	Optimizer  *optimization.Optimizer
	Frontier   *optimization.FrontierBuilder
	RiskParity *riskparity.Engine
	Factors    *factors.Engine
}

// BuildEngines constructs the full engine graph from configuration.
func BuildEngines(cfg *config.Config, log zerolog.Logger) *Container {
	returns := estimation.NewReturnsEstimator(log)
	covariance := estimation.NewCovarianceEstimator(estimation.CovarianceConfig{
		Method:         estimation.CovarianceMethod(cfg.CovarianceMethod),
		LookbackPeriod: cfg.LookbackPeriod,
	}, log)

	optimizer := optimization.NewOptimizer(log)
	frontier := optimization.NewFrontierBuilder(returns, covariance, optimizer, cfg.RiskFreeRate, log)

	riskParity := riskparity.NewEngine(covariance, riskparity.Config{
		MaxIterations: cfg.MaxIterations,
		Tolerance:     cfg.ConvergenceTolerance,
	}, cfg.RiskFreeRate, log)

	factorEngine := factors.NewEngine(factors.Config{
		NumPCAFactors:     cfg.NumPCAFactors,
		VarianceThreshold: cfg.VarianceThreshold,
		Predefined:        cfg.PredefinedFactors,
	}, log)

	return &Container{
		Returns:    returns,
		Covariance: covariance,
		Optimizer:  optimizer,
		Frontier:   frontier,
		RiskParity: riskParity,
		Factors:    factorEngine,
	}
}
