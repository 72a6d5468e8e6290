package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vietddude/trendcore/internal/core/domain"
	"github.com/vietddude/trendcore/internal/retry"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestLoad_EnvSubstitution(t *testing.T) {
	t.Setenv("TEST_TRENDCORE_API_URL", "https://api.example.com/v1")

	cfg, err := Load(writeConfig(t, `
remote:
  base_url: ${TEST_TRENDCORE_API_URL}
`))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Remote.BaseURL != "https://api.example.com/v1" {
		t.Errorf("Expected base URL https://api.example.com/v1, got %s", cfg.Remote.BaseURL)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "logging:\n  level: debug\n"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Remote.Timeout != 30*time.Second {
		t.Errorf("Remote.Timeout = %s, want 30s", cfg.Remote.Timeout)
	}
	if cfg.Cache.StaleAfter != time.Hour {
		t.Errorf("Cache.StaleAfter = %s, want 1h", cfg.Cache.StaleAfter)
	}
	if cfg.Retry.MaxJitter != time.Second {
		t.Errorf("Retry.MaxJitter = %s, want 1s", cfg.Retry.MaxJitter)
	}
	if cfg.Ingest.MaxConcurrent != 4 {
		t.Errorf("Ingest.MaxConcurrent = %d, want 4", cfg.Ingest.MaxConcurrent)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %s, want debug", cfg.Logging.Level)
	}
	if cfg.Workflow.EnforceTimeout {
		t.Error("Workflow.EnforceTimeout should default to false")
	}
}

func TestLoad_FullFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
remote:
  base_url: http://localhost:9000
  timeout: 5s
  user_agent: test-agent
cache:
  stale_after: 15m
retry:
  max_jitter: 250ms
workflow:
  enforce_timeout: true
ingest:
  max_concurrent: 8
`))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Remote.Timeout != 5*time.Second || cfg.Remote.UserAgent != "test-agent" {
		t.Errorf("Remote = %+v", cfg.Remote)
	}
	if cfg.Cache.StaleAfter != 15*time.Minute {
		t.Errorf("Cache.StaleAfter = %s, want 15m", cfg.Cache.StaleAfter)
	}
	if cfg.Retry.MaxJitter != 250*time.Millisecond {
		t.Errorf("Retry.MaxJitter = %s, want 250ms", cfg.Retry.MaxJitter)
	}
	if !cfg.Workflow.EnforceTimeout {
		t.Error("Workflow.EnforceTimeout = false, want true")
	}
	if cfg.Ingest.MaxConcurrent != 8 {
		t.Errorf("Ingest.MaxConcurrent = %d, want 8", cfg.Ingest.MaxConcurrent)
	}
}

func TestLoad_PolicyOverrides(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
retry:
  policies:
    trend-analysis:
      max_retries: 5
      base_delay: 500ms
    content-generation:
      max_retries: 0
`))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	policies, err := cfg.RetryPolicies()
	if err != nil {
		t.Fatalf("RetryPolicies failed: %v", err)
	}

	if got := policies.For(domain.WorkflowTrendAnalysis); got != (retry.Policy{MaxRetries: 5, BaseDelay: 500 * time.Millisecond}) {
		t.Errorf("trend-analysis policy = %+v", got)
	}
	// Unset fields keep the built-in value.
	if got := policies.For(domain.WorkflowContentGeneration); got != (retry.Policy{MaxRetries: 0, BaseDelay: 2 * time.Second}) {
		t.Errorf("content-generation policy = %+v", got)
	}
	if got := policies.For(domain.WorkflowAffiliateResearch); got != retry.DefaultPolicies()[domain.WorkflowAffiliateResearch] {
		t.Errorf("affiliate-research policy = %+v, want built-in", got)
	}
}

func TestLoad_InvalidPolicies(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr error
		wantMsg string
	}{
		{
			name:    "unknown kind",
			yaml:    "retry:\n  policies:\n    sentiment-analysis:\n      max_retries: 1\n",
			wantMsg: "sentiment-analysis",
		},
		{
			name:    "negative retries",
			yaml:    "retry:\n  policies:\n    trend-analysis:\n      max_retries: -1\n",
			wantErr: retry.ErrNegativeRetries,
		},
		{
			name:    "zero delay",
			yaml:    "retry:\n  policies:\n    trend-analysis:\n      base_delay: 0s\n",
			wantErr: retry.ErrNonPositiveDelay,
		},
		{
			name:    "negative jitter",
			yaml:    "retry:\n  max_jitter: -1s\n",
			wantMsg: "max_jitter",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.yaml))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
			if tt.wantMsg != "" && !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("err = %v, want it to mention %q", err, tt.wantMsg)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
