package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/aristath/portfolio-engine/internal/modules/estimation"
)

// Config holds application configuration
type Config struct {
	LogLevel  string
	LogPretty bool

	// HistoryDBPath points at the sqlite database with daily price history.
	// Empty means no database input; the CLI then expects an inline JSON
	// request.
	HistoryDBPath string

	RiskFreeRate float64

	// Covariance estimation
	CovarianceMethod string
	LookbackPeriod   int

	// Risk-parity solver
	MaxIterations        int
	ConvergenceTolerance float64

	// Factor extraction
	NumPCAFactors     int
	VarianceThreshold float64
	PredefinedFactors bool

	// Efficient frontier
	NumFrontierPortfolios int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		LogPretty:             getEnvAsBool("LOG_PRETTY", false),
		HistoryDBPath:         getEnv("HISTORY_DB_PATH", ""),
		RiskFreeRate:          getEnvAsFloat("RISK_FREE_RATE", 0.02),
		CovarianceMethod:      getEnv("COVARIANCE_METHOD", string(estimation.MethodSample)),
		LookbackPeriod:        getEnvAsInt("LOOKBACK_PERIOD", 252),
		MaxIterations:         getEnvAsInt("MAX_ITERATIONS", 1000),
		ConvergenceTolerance:  getEnvAsFloat("CONVERGENCE_TOLERANCE", 1e-8),
		NumPCAFactors:         getEnvAsInt("NUM_PCA_FACTORS", 5),
		VarianceThreshold:     getEnvAsFloat("VARIANCE_THRESHOLD", 0.95),
		PredefinedFactors:     getEnvAsBool("PREDEFINED_FACTORS", true),
		NumFrontierPortfolios: getEnvAsInt("NUM_FRONTIER_PORTFOLIOS", 100),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if the configuration is usable
func (c *Config) Validate() error {
	switch estimation.CovarianceMethod(c.CovarianceMethod) {
	case estimation.MethodSample, estimation.MethodShrinkage, estimation.MethodLedoitWolf:
	default:
		return fmt.Errorf("invalid covariance method %q", c.CovarianceMethod)
	}

	if c.LookbackPeriod < 0 {
		return fmt.Errorf("lookback period must be non-negative, got %d", c.LookbackPeriod)
	}
	if c.MaxIterations <= 0 {
		return fmt.Errorf("max iterations must be positive, got %d", c.MaxIterations)
	}
	if c.ConvergenceTolerance <= 0 {
		return fmt.Errorf("convergence tolerance must be positive, got %g", c.ConvergenceTolerance)
	}
	if c.NumPCAFactors <= 0 {
		return fmt.Errorf("number of PCA factors must be positive, got %d", c.NumPCAFactors)
	}
	if c.VarianceThreshold <= 0 || c.VarianceThreshold > 1 {
		return fmt.Errorf("variance threshold must be in (0, 1], got %g", c.VarianceThreshold)
	}
	if c.NumFrontierPortfolios <= 0 {
		return fmt.Errorf("number of frontier portfolios must be positive, got %d", c.NumFrontierPortfolios)
	}

	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}
