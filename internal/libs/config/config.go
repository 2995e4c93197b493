// Package config provides application configuration from an optional YAML
// file and environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds application configuration
type Config struct {
	APIHost  string `yaml:"apiHost"`
	APIPort  string `yaml:"apiPort"`
	LogLevel string `yaml:"logLevel"`
	// LogPretty switches to console output (ENV=dev)
	LogPretty bool `yaml:"logPretty"`

	// IndexPaths lists table files (.js, .json, .yaml) and snapshots (.snap),
	// loaded in order.
	IndexPaths []string `yaml:"indexPaths"`
	// DatabaseURL, when set, adds the search_entries table as a source
	DatabaseURL string `yaml:"databaseUrl"`

	DefaultLimit   int  `yaml:"defaultLimit"`
	MaxLimit       int  `yaml:"maxLimit"`
	MetricsEnabled bool `yaml:"metricsEnabled"`
}

// Load reads DOCSEARCH_CONFIG (if set) and applies environment overrides
func Load() (*Config, error) {
	return LoadFile(os.Getenv("DOCSEARCH_CONFIG"))
}

// LoadFile reads the YAML file at path (if not empty) and applies
// environment overrides
func LoadFile(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if cfg.DefaultLimit <= 0 {
		return nil, fmt.Errorf("defaultLimit must be positive, got %d", cfg.DefaultLimit)
	}
	if cfg.MaxLimit < cfg.DefaultLimit {
		return nil, fmt.Errorf("maxLimit %d is below defaultLimit %d", cfg.MaxLimit, cfg.DefaultLimit)
	}

	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		APIHost:        "0.0.0.0",
		APIPort:        "8080",
		LogLevel:       "info",
		DefaultLimit:   10,
		MaxLimit:       100,
		MetricsEnabled: true,
	}
}

func applyEnv(cfg *Config) {
	cfg.APIHost = getEnv("API_HOST", cfg.APIHost)
	cfg.APIPort = getEnv("API_PORT", cfg.APIPort)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)

	if os.Getenv("ENV") == "dev" {
		cfg.LogPretty = true
	}
	if v := os.Getenv("DOCSEARCH_INDEX"); v != "" {
		cfg.IndexPaths = splitList(v)
	}
	if v := os.Getenv("DOCSEARCH_DEFAULT_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.DefaultLimit = n
		}
	}
	if v := os.Getenv("DOCSEARCH_MAX_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxLimit = n
		}
	}
	if v := os.Getenv("DOCSEARCH_METRICS"); v != "" {
		cfg.MetricsEnabled = strings.ToLower(v) != "false"
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
