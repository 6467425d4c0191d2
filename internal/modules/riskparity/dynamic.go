package riskparity

import (
	"context"
	"fmt"
	"math"

	"github.com/aristath/portfolio-engine/internal/domain"
	"github.com/aristath/portfolio-engine/pkg/formulas"
)

// Defaults for the rolling rebalancing simulation.
const (
	DefaultLookbackPeriod     = 252
	DefaultRebalanceFrequency = 20
	cvarConfidence            = 0.95
)

// CalculateDynamicRiskParity slides a lookback window across the return
// history in steps of rebalanceFrequency, recomputing a risk-parity portfolio
// at each step. Each window contributes its portfolio's expected daily return,
// compounded over the step length into an equity curve; the curve is then
// summarized into total/annualized return, volatility, Sharpe, maximum
// drawdown, Calmar and tail-risk figures. Cancellation via ctx aborts the
// scan between windows.
func (e *Engine) CalculateDynamicRiskParity(
	ctx context.Context,
	assets []domain.Asset,
	lookbackPeriod int,
	rebalanceFrequency int,
) (*DynamicResult, error) {
	if err := domain.ValidateAssets(assets); err != nil {
		return nil, err
	}
	if lookbackPeriod <= 0 {
		lookbackPeriod = DefaultLookbackPeriod
	}
	if rebalanceFrequency <= 0 {
		rebalanceFrequency = DefaultRebalanceFrequency
	}

	observations := len(assets[0].Returns)
	if observations < lookbackPeriod {
		return nil, fmt.Errorf("%w: %d observations for lookback period %d",
			domain.ErrInvalidInput, observations, lookbackPeriod)
	}

	var windows []RebalanceWindow
	var stepReturns []float64 // compounded return per rebalance step
	var dailyReturns []float64

	for start := 0; start+lookbackPeriod <= observations; start += rebalanceFrequency {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := start + lookbackPeriod

		windowAssets := make([]domain.Asset, len(assets))
		for i, asset := range assets {
			windowAssets[i] = domain.Asset{
				ID:        asset.ID,
				Returns:   asset.Returns[start:end],
				MarketCap: asset.MarketCap,
			}
		}

		portfolio, err := e.CalculateRiskParityPortfolio(ctx, windowAssets)
		if err != nil {
			return nil, fmt.Errorf("rebalance window [%d:%d]: %w", start, end, err)
		}

		dailyReturn := 0.0
		for i, asset := range windowAssets {
			dailyReturn += portfolio.Weights[i] * formulas.Mean(asset.Returns)
		}

		windows = append(windows, RebalanceWindow{
			Start:               start,
			End:                 end,
			Weights:             portfolio.Weights,
			ExpectedDailyReturn: dailyReturn,
			Converged:           portfolio.Converged,
		})
		stepReturns = append(stepReturns, math.Pow(1+dailyReturn, float64(rebalanceFrequency))-1)
		dailyReturns = append(dailyReturns, dailyReturn)
	}

	if len(windows) == 0 {
		return nil, fmt.Errorf("%w: no rebalance windows", domain.ErrInvalidInput)
	}

	curve := formulas.CompoundCurve(stepReturns)
	totalReturn := curve[len(curve)-1] - 1
	simulatedDays := float64(len(windows) * rebalanceFrequency)

	annualizedReturn := 0.0
	if curve[len(curve)-1] > 0 {
		annualizedReturn = math.Pow(curve[len(curve)-1], formulas.TradingDaysPerYear/simulatedDays) - 1
	} else {
		annualizedReturn = -1
	}
	annualizedVol := formulas.AnnualizedVolatility(dailyReturns)

	sharpe := 0.0
	if annualizedVol > 0 {
		sharpe = (annualizedReturn - e.riskFreeRate) / annualizedVol
	}

	maxDrawdown := formulas.MaxDrawdown(curve)
	calmar := 0.0
	if maxDrawdown > 0 {
		calmar = annualizedReturn / maxDrawdown
	}

	result := &DynamicResult{
		Windows:              windows,
		EquityCurve:          curve,
		TotalReturn:          totalReturn,
		AnnualizedReturn:     annualizedReturn,
		AnnualizedVolatility: annualizedVol,
		SharpeRatio:          sharpe,
		MaxDrawdown:          maxDrawdown,
		CalmarRatio:          calmar,
		HistoricalCVaR95:     formulas.HistoricalCVaR(dailyReturns, cvarConfidence),
		ParametricCVaR95:     formulas.ParametricCVaR(formulas.Mean(dailyReturns), formulas.StdDev(dailyReturns), cvarConfidence),
	}

	e.log.Info().
		Int("num_windows", len(windows)).
		Float64("total_return", totalReturn).
		Float64("max_drawdown", maxDrawdown).
		Msg("Calculated dynamic risk parity simulation")

	return result, nil
}
