package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/portfolio-engine/internal/config"
	"github.com/aristath/portfolio-engine/internal/di"
	"github.com/aristath/portfolio-engine/internal/domain"
	"github.com/aristath/portfolio-engine/internal/history"
	"github.com/aristath/portfolio-engine/internal/modules/factors"
	"github.com/aristath/portfolio-engine/pkg/logger"
)

// request is the JSON input shape. Either inline assets or a symbol list (the
// latter resolved against the configured price database).
type request struct {
	Assets []struct {
		ID        string    `json:"id"`
		Returns   []float64 `json:"returns"`
		MarketCap float64   `json:"market_cap"`
	} `json:"assets"`
	Symbols      []string `json:"symbols"`
	TargetReturn *float64 `json:"target_return"`
	MaxRisk      *float64 `json:"max_risk"`
	// Analyses selects which computations to run; empty means all.
	Analyses []string `json:"analyses"`
}

// report aggregates all requested analysis results for JSON output.
type report struct {
	RunID       string      `json:"run_id"`
	Optimal     interface{} `json:"optimal_portfolio,omitempty"`
	Frontier    interface{} `json:"efficient_frontier,omitempty"`
	RiskParity  interface{} `json:"risk_parity,omitempty"`
	HRP         interface{} `json:"hierarchical_risk_parity,omitempty"`
	Dynamic     interface{} `json:"dynamic_risk_parity,omitempty"`
	Factors     interface{} `json:"factors,omitempty"`
	Models      interface{} `json:"factor_models,omitempty"`
	Attribution interface{} `json:"risk_attribution,omitempty"`
}

func main() {
	requestPath := flag.String("request", "", "path to JSON request file (default: stdin)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.LogPretty,
	})

	runID := uuid.New().String()
	log = log.With().Str("run_id", runID).Logger()
	log.Info().Msg("Starting portfolio engine")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log, runID, *requestPath); err != nil {
		log.Fatal().Err(err).Msg("Engine run failed")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger, runID, requestPath string) error {
	req, err := readRequest(requestPath)
	if err != nil {
		return err
	}

	assets, err := resolveAssets(ctx, cfg, log, req)
	if err != nil {
		return err
	}

	container := di.BuildEngines(cfg, log)
	out := &report{RunID: runID}

	wanted := make(map[string]bool, len(req.Analyses))
	for _, name := range req.Analyses {
		wanted[name] = true
	}
	runAll := len(wanted) == 0

	if runAll || wanted["optimize"] {
		result, err := container.Frontier.OptimizePortfolio(ctx, assets, req.TargetReturn, req.MaxRisk)
		if err != nil {
			return fmt.Errorf("portfolio optimization: %w", err)
		}
		out.Optimal = result
	}

	if runAll || wanted["frontier"] {
		frontier, err := container.Frontier.CalculateEfficientFrontier(ctx, assets, cfg.NumFrontierPortfolios)
		if err != nil {
			return fmt.Errorf("efficient frontier: %w", err)
		}
		out.Frontier = frontier
	}

	if runAll || wanted["risk_parity"] {
		rp, err := container.RiskParity.CalculateRiskParityPortfolio(ctx, assets)
		if err != nil {
			return fmt.Errorf("risk parity: %w", err)
		}
		out.RiskParity = rp
	}

	if runAll || wanted["hrp"] {
		hrp, err := container.RiskParity.CalculateHierarchicalRiskParity(assets)
		if err != nil {
			return fmt.Errorf("hierarchical risk parity: %w", err)
		}
		out.HRP = hrp
	}

	if runAll || wanted["dynamic"] {
		dynamic, err := container.RiskParity.CalculateDynamicRiskParity(ctx, assets, cfg.LookbackPeriod, 0)
		if err != nil {
			// Dynamic simulation needs a full lookback window of history;
			// shorter inputs skip it rather than failing the whole run.
			log.Warn().Err(err).Msg("Skipping dynamic risk parity")
		} else {
			out.Dynamic = dynamic
		}
	}

	if runAll || wanted["factors"] {
		if err := runFactorAnalysis(ctx, container, assets, out); err != nil {
			return err
		}
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}

// runFactorAnalysis extracts factors, fits per-asset models, and attributes
// the risk of the equal-risk-contribution portfolio through them.
func runFactorAnalysis(ctx context.Context, container *di.Container, assets []domain.Asset, out *report) error {
	extracted, err := container.Factors.ExtractFactors(assets)
	if err != nil {
		return fmt.Errorf("factor extraction: %w", err)
	}
	out.Factors = extracted

	models := make([]*factors.FactorModel, len(assets))
	for i, asset := range assets {
		model, err := container.Factors.EstimateFactorModel(asset, extracted)
		if err != nil {
			return fmt.Errorf("factor model for %s: %w", asset.ID, err)
		}
		models[i] = model
	}
	out.Models = models

	rp, err := container.RiskParity.CalculateRiskParityPortfolio(ctx, assets)
	if err != nil {
		return fmt.Errorf("risk parity weights for attribution: %w", err)
	}
	attribution, err := container.Factors.PerformRiskAttribution(rp.Weights, models, extracted)
	if err != nil {
		return fmt.Errorf("risk attribution: %w", err)
	}
	out.Attribution = attribution
	return nil
}

func readRequest(path string) (*request, error) {
	var decoder *json.Decoder
	if path == "" {
		decoder = json.NewDecoder(os.Stdin)
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open request file: %w", err)
		}
		defer f.Close()
		decoder = json.NewDecoder(f)
	}

	var req request
	if err := decoder.Decode(&req); err != nil {
		return nil, fmt.Errorf("failed to decode request: %w", err)
	}
	return &req, nil
}

// resolveAssets turns the request into aligned return series: inline assets
// win, otherwise symbols are loaded from the price database.
func resolveAssets(ctx context.Context, cfg *config.Config, log zerolog.Logger, req *request) ([]domain.Asset, error) {
	if len(req.Assets) > 0 {
		assets := make([]domain.Asset, len(req.Assets))
		for i, a := range req.Assets {
			assets[i] = domain.Asset{ID: a.ID, Returns: a.Returns, MarketCap: a.MarketCap}
		}
		return assets, nil
	}

	if len(req.Symbols) == 0 {
		return nil, fmt.Errorf("%w: request needs assets or symbols", domain.ErrInvalidInput)
	}
	if cfg.HistoryDBPath == "" {
		return nil, fmt.Errorf("%w: symbol requests need HISTORY_DB_PATH", domain.ErrInvalidInput)
	}

	loader, err := history.Open(cfg.HistoryDBPath, log)
	if err != nil {
		return nil, err
	}
	defer loader.Close()

	return loader.LoadAssets(ctx, req.Symbols, cfg.LookbackPeriod)
}
