package config

import (
	"time"

	"github.com/vietddude/trendcore/internal/ingest"
	"github.com/vietddude/trendcore/internal/infra/remote"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Remote   remote.Config  `yaml:"remote"`
	Cache    CacheConfig    `yaml:"cache"`
	Retry    RetryConfig    `yaml:"retry"`
	Workflow WorkflowConfig `yaml:"workflow"`
	Ingest   ingest.Config  `yaml:"ingest"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// CacheConfig holds result cache settings.
type CacheConfig struct {
	StaleAfter time.Duration `yaml:"stale_after"` // 0 = never stale
}

// RetryConfig holds retry settings. Policies override the built-in table per workflow kind.
type RetryConfig struct {
	MaxJitter time.Duration           `yaml:"max_jitter"`
	Policies  map[string]PolicyConfig `yaml:"policies"`
}

// PolicyConfig overrides one kind's retry policy. Unset fields keep the built-in value.
type PolicyConfig struct {
	MaxRetries *int           `yaml:"max_retries"`
	BaseDelay  *time.Duration `yaml:"base_delay"`
}

// WorkflowConfig holds workflow settings.
type WorkflowConfig struct {
	EnforceTimeout bool `yaml:"enforce_timeout"` // cancel a run after its kind's timeout
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}
