package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/multierr"

	"github.com/maxviazov/lp-feed/internal/config"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}

func TestConfigLoad_FromYAMLAndEnv(t *testing.T) {
	yaml := `
logger:
  level: info
  format: json
  env: prod

api:
  base_url: https://lp.example.com
  timeout_ms: 2500

feed:
  page_size: 20
  order: latest
  debounce_ms: 250
`
	path := writeTempConfig(t, yaml)

	t.Setenv("APP_API_TOKEN", "s3cret")
	t.Setenv("APP_FEED_THROTTLE_MS", "500")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.API.BaseURL != "https://lp.example.com" || cfg.API.TimeoutMs != 2500 {
		t.Fatalf("yaml values not loaded: base_url=%q timeout=%d", cfg.API.BaseURL, cfg.API.TimeoutMs)
	}
	if cfg.API.Token != "s3cret" {
		t.Fatalf("env override not applied: token=%q", cfg.API.Token)
	}
	if cfg.Feed.PageSize != 20 || cfg.Feed.Order != "latest" || cfg.Feed.DebounceMs != 250 || cfg.Feed.ThrottleMs != 500 {
		t.Fatalf("unexpected feed config: %+v", cfg.Feed)
	}
	// untouched keys keep their defaults
	if cfg.Feed.RetentionSec != 600 || cfg.Feed.StaleAfterSec != 300 {
		t.Fatalf("defaults not applied: %+v", cfg.Feed)
	}
	if cfg.Logger.Level != "info" || cfg.Logger.Format != "json" {
		t.Fatalf("logger section not loaded: %+v", cfg.Logger)
	}
}

func TestConfigLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Feed != config.DefaultFeed() {
		t.Fatalf("expected default feed config, got %+v", cfg.Feed)
	}
	if cfg.API.BaseURL != "" {
		t.Fatalf("expected no api base url, got %q", cfg.API.BaseURL)
	}
	if got := cfg.Feed.Debounce().Milliseconds(); got != 300 {
		t.Fatalf("expected 300ms debounce, got %d", got)
	}
}

func TestConfigLoad_InvalidValuesFail(t *testing.T) {
	cases := map[string]string{
		"bad order": `
feed:
  order: sideways
`,
		"page size too large": `
feed:
  page_size: 1000
`,
		"bad base url": `
api:
  base_url: not a url
`,
	}
	for name, yaml := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := config.Load(writeTempConfig(t, yaml)); err == nil {
				t.Fatalf("expected validation error, got nil")
			}
		})
	}
}

func TestConfigLoad_ReportsEverySection(t *testing.T) {
	yaml := `
api:
  timeout_ms: -1
feed:
  debounce_ms: -5
`
	_, err := config.Load(writeTempConfig(t, yaml))
	if err == nil {
		t.Fatalf("expected validation error, got nil")
	}
	if n := len(multierr.Errors(err)); n != 2 {
		t.Fatalf("expected one error per section, got %d: %v", n, err)
	}
}

func TestConfigLoad_MissingFileFails(t *testing.T) {
	if _, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
