package config

import (
	"fmt"
	"strings"
	"time"
)

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	var errors []string

	if c.DatabasePath == "" {
		errors = append(errors, "database path is required")
	}

	if c.MaxOpenConns < 1 {
		errors = append(errors, "max open connections must be at least 1")
	}
	if c.MaxIdleConns < 1 {
		errors = append(errors, "max idle connections must be at least 1")
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		errors = append(errors, "max idle connections cannot be greater than max open connections")
	}
	if c.ConnMaxLifetime < time.Second {
		errors = append(errors, "connection max lifetime must be at least 1 second")
	}

	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		errors = append(errors, fmt.Sprintf("min confidence must be in [0,1], got %g", c.MinConfidence))
	}

	if c.LogLevel != "" {
		switch strings.ToUpper(c.LogLevel) {
		case "DEBUG", "INFO", "WARN", "ERROR":
		default:
			errors = append(errors, fmt.Sprintf("invalid log level: %s", c.LogLevel))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("config validation failed: %s", strings.Join(errors, "; "))
	}
	return nil
}
