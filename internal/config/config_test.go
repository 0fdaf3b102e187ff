package config

import (
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		DatabasePath:    "meatnorm.db",
		MaxOpenConns:    10,
		MaxIdleConns:    3,
		ConnMaxLifetime: 5 * time.Minute,
		LogLevel:        "INFO",
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantError bool
	}{
		{"valid defaults", func(c *Config) {}, false},
		{"empty database path", func(c *Config) { c.DatabasePath = "" }, true},
		{"zero open conns", func(c *Config) { c.MaxOpenConns = 0 }, true},
		{"idle above open", func(c *Config) { c.MaxIdleConns = 20 }, true},
		{"tiny lifetime", func(c *Config) { c.ConnMaxLifetime = time.Millisecond }, true},
		{"confidence out of range", func(c *Config) { c.MinConfidence = 1.5 }, true},
		{"bad log level", func(c *Config) { c.LogLevel = "CHATTY" }, true},
		{"lowercase log level", func(c *Config) { c.LogLevel = "debug" }, false},
		{"empty log level", func(c *Config) { c.LogLevel = "" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantError {
				t.Errorf("Validate() error = %v, wantError %v", err, tt.wantError)
			}
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DatabasePath == "" {
		t.Error("DatabasePath should have a default value")
	}
	if cfg.MaxOpenConns < cfg.MaxIdleConns {
		t.Error("default pool settings are inconsistent")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("DATABASE_PATH", "/tmp/test.db")
	t.Setenv("DB_MAX_OPEN_CONNS", "4")
	t.Setenv("DB_CONN_MAX_LIFETIME", "90s")
	t.Setenv("MIN_CONFIDENCE", "0.7")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DatabasePath != "/tmp/test.db" {
		t.Errorf("DatabasePath = %q, want /tmp/test.db", cfg.DatabasePath)
	}
	if cfg.MaxOpenConns != 4 {
		t.Errorf("MaxOpenConns = %d, want 4", cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetime != 90*time.Second {
		t.Errorf("ConnMaxLifetime = %v, want 90s", cfg.ConnMaxLifetime)
	}
	if cfg.MinConfidence != 0.7 {
		t.Errorf("MinConfidence = %g, want 0.7", cfg.MinConfidence)
	}
}
