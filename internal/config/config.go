// Package config loads runtime configuration from environment variables
// with sensible defaults for local use.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the settings shared by the normalize, seed and export
// commands.
type Config struct {
	// Storage
	DatabasePath string `json:"database_path"`

	// Mapping dictionary; empty means the embedded default dictionary.
	MappingPath string `json:"mapping_path"`

	// Connection pooling
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`

	// Resolution
	MinConfidence float64 `json:"min_confidence"`

	// Logging
	LogLevel string `json:"log_level"`
}

// Load reads the configuration from the environment and validates it.
func Load() (*Config, error) {
	config := &Config{
		DatabasePath: getEnv("DATABASE_PATH", "meatnorm.db"),
		MappingPath:  os.Getenv("MAPPING_PATH"),

		MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 10),
		MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 3),
		ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),

		MinConfidence: getEnvFloat("MIN_CONFIDENCE", 0),

		LogLevel: getEnv("LOG_LEVEL", "INFO"),
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return config, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}
