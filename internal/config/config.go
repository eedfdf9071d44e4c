// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir          string // Base directory for the history and cache databases
	Port             int
	LogLevel         string
	DevMode          bool
	RiskFreeRate     float64       // Default annual risk-free rate used when a request omits it
	PricePeriod      string        // Default lookback window for price history (Yahoo range syntax, e.g. "5y")
	PriceCacheTTL    time.Duration // How long fetched price series stay valid
	NumSimulations   int           // Default Monte Carlo sample count
	FrontierPoints   int           // Default number of efficient-frontier points
	HistoryRetention int           // Max optimization runs returned by the history endpoint
	CachePruneSpec   string        // Cron spec for the cache pruning job
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("OPTIMIZER_DATA_DIR", "./data")

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:          absDataDir,
		Port:             getEnvAsInt("PORT", 5000),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		DevMode:          getEnvAsBool("DEV_MODE", false),
		RiskFreeRate:     getEnvAsFloat("RISK_FREE_RATE", 0.02),
		PricePeriod:      getEnv("PRICE_PERIOD", "5y"),
		PriceCacheTTL:    getEnvAsDuration("PRICE_CACHE_TTL", 30*time.Minute),
		NumSimulations:   getEnvAsInt("NUM_SIMULATIONS", 10000),
		FrontierPoints:   getEnvAsInt("FRONTIER_POINTS", 100),
		HistoryRetention: getEnvAsInt("HISTORY_LIMIT", 50),
		CachePruneSpec:   getEnv("CACHE_PRUNE_SPEC", "*/15 * * * *"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.NumSimulations <= 0 {
		return fmt.Errorf("invalid simulation count: %d", c.NumSimulations)
	}
	if c.FrontierPoints < 2 {
		return fmt.Errorf("invalid frontier point count: %d", c.FrontierPoints)
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

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
