package config

import (
	"fmt"
	"os"
	"time"

	"github.com/vietddude/trendcore/internal/core/domain"
	"github.com/vietddude/trendcore/internal/infra/remote"
	"github.com/vietddude/trendcore/internal/ingest"
	"github.com/vietddude/trendcore/internal/retry"
	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration, expanding environment variables and applying defaults.
func Parse(data []byte) (*AppConfig, error) {
	cfg := Default()
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Set defaults if necessary
	if cfg.Remote.Timeout == 0 {
		cfg.Remote.Timeout = remote.DefaultTimeout
	}
	if cfg.Ingest.MaxConcurrent <= 0 {
		cfg.Ingest.MaxConcurrent = ingest.DefaultMaxConcurrent
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Retry.MaxJitter < 0 {
		return nil, fmt.Errorf("retry.max_jitter must not be negative: %s", cfg.Retry.MaxJitter)
	}

	if _, err := cfg.RetryPolicies(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *AppConfig {
	return &AppConfig{
		Remote:  remote.Config{Timeout: remote.DefaultTimeout, UserAgent: "trendcore/1.0"},
		Cache:   CacheConfig{StaleAfter: time.Hour},
		Retry:   RetryConfig{MaxJitter: retry.DefaultMaxJitter},
		Ingest:  ingest.Config{MaxConcurrent: ingest.DefaultMaxConcurrent},
		Logging: LoggingConfig{Level: "info"},
	}
}

// RetryPolicies returns the built-in policy table with the configured overrides applied.
func (c *AppConfig) RetryPolicies() (retry.Policies, error) {
	policies := retry.DefaultPolicies()
	for name, override := range c.Retry.Policies {
		kind, err := domain.ParseWorkflowKind(name)
		if err != nil {
			return nil, fmt.Errorf("retry.policies: %w", err)
		}
		p := policies.For(kind)
		if override.MaxRetries != nil {
			p.MaxRetries = *override.MaxRetries
		}
		if override.BaseDelay != nil {
			p.BaseDelay = *override.BaseDelay
		}
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("retry.policies.%s: %w", kind, err)
		}
		policies = policies.With(kind, p)
	}
	return policies, nil
}
