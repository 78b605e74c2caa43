// pkg/config/config.go
package config

import (
	"errors"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config represents the application configuration
type Config struct {
	// Sink connection
	Postgres *PostgresConfig

	// Reference data locations
	LayoutBundlePath    string
	ReferenceBundlePath string

	// Resolution settings
	FuzzyThreshold float64

	// Logging
	LogLevel  string
	LogFormat string
}

// LoadConfig loads configuration from the environment, reading a .env file
// first when one is present
func LoadConfig() (*Config, error) {
	// a missing .env is fine; explicit environment always wins
	_ = godotenv.Load()

	cfg := &Config{
		LayoutBundlePath:    getEnv("LAYOUT_BUNDLE_PATH", "reference/layouts.yaml"),
		ReferenceBundlePath: getEnv("REFERENCE_BUNDLE_PATH", "reference/crosswalk.yaml"),
		FuzzyThreshold:      getEnvAsFloat("FUZZY_MATCH_THRESHOLD", 0.95),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		LogFormat:           getEnv("LOG_FORMAT", "json"),
	}

	pgConfig, err := LoadPostgresConfig()
	if err != nil {
		return nil, errors.New("failed to load PostgreSQL configuration: " + err.Error())
	}
	cfg.Postgres = pgConfig

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures all required configuration is present and valid
func (c *Config) Validate() error {
	if c.Postgres == nil {
		return errors.New("postgreSQL configuration is required")
	}

	if c.LayoutBundlePath == "" {
		return errors.New("layout bundle path is required")
	}

	if c.ReferenceBundlePath == "" {
		return errors.New("reference bundle path is required")
	}

	if c.FuzzyThreshold <= 0 || c.FuzzyThreshold > 1 {
		return errors.New("fuzzy match threshold must be in (0, 1]")
	}

	return nil
}

// Helper functions for environment variables
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}
