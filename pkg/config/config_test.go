package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.Search.Query = "some query"
	cfg.Scheduler.Workers = 2
	cfg.Scheduler.Proxies = []string{"socks5://p0", "socks5://p1"}
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.RateLimit.HaltThreshold != 0.3 {
		t.Errorf("expected 0.3 halt threshold, got %v", cfg.RateLimit.HaltThreshold)
	}
	if cfg.RateLimit.ContinueOnUnknown {
		t.Error("unknown rate headers must halt by default")
	}
	if cfg.RateLimit.PacingInterval != 2*time.Second {
		t.Errorf("unexpected pacing interval %v", cfg.RateLimit.PacingInterval)
	}
	if cfg.Scheduler.Workers != 10 || cfg.Scheduler.BatchSize != 10 {
		t.Errorf("unexpected scheduler shape: %+v", cfg.Scheduler)
	}
	if cfg.Search.PageSize != 20 {
		t.Errorf("unexpected page size %d", cfg.Search.PageSize)
	}
}

func TestValidate(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing query", func(c *Config) { c.Search.Query = "" }, "search query"},
		{"zero workers", func(c *Config) { c.Scheduler.Workers = 0 }, "worker count"},
		{"zero batch size", func(c *Config) { c.Scheduler.BatchSize = 0 }, "batch size"},
		{"short proxy pool", func(c *Config) { c.Scheduler.Proxies = []string{"one"} }, "proxy per worker"},
		{"threshold too high", func(c *Config) { c.RateLimit.HaltThreshold = 1.0 }, "halt threshold"},
		{"negative pacing", func(c *Config) { c.RateLimit.PacingInterval = -time.Second }, "pacing interval"},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, "log level"},
		{"missing output dir", func(c *Config) { c.Output.Directory = "" }, "output directory"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected a validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Search.Query = ""
	cfg.Scheduler.Workers = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation errors")
	}
	for _, want := range []string{"search query", "worker count"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("joined error %q does not mention %q", err, want)
		}
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `
search:
  query: "golang"
  page_size: 50
scheduler:
  workers: 3
  proxies: ["a", "b", "c"]
rate_limit:
  halt_threshold: 0.5
  continue_on_unknown: true
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := DefaultConfig()
	if err := cfg.LoadFromFile(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Search.Query != "golang" || cfg.Search.PageSize != 50 {
		t.Errorf("unexpected search config: %+v", cfg.Search)
	}
	if cfg.Scheduler.Workers != 3 || len(cfg.Scheduler.Proxies) != 3 {
		t.Errorf("unexpected scheduler config: %+v", cfg.Scheduler)
	}
	if cfg.RateLimit.HaltThreshold != 0.5 || !cfg.RateLimit.ContinueOnUnknown {
		t.Errorf("unexpected rate limit config: %+v", cfg.RateLimit)
	}
	// Untouched sections keep their defaults.
	if cfg.Scheduler.BatchSize != 10 {
		t.Errorf("expected default batch size kept, got %d", cfg.Scheduler.BatchSize)
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected an error for an explicitly named missing file")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("XCRAPER_QUERY", "from env")
	t.Setenv("XCRAPER_WORKERS", "7")
	t.Setenv("XCRAPER_PROXIES", "p0,p1,p2")
	t.Setenv("XCRAPER_BATCH_SIZE", "not a number")

	cfg := DefaultConfig()
	if err := cfg.LoadFromEnv(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Search.Query != "from env" {
		t.Errorf("unexpected query %q", cfg.Search.Query)
	}
	if cfg.Scheduler.Workers != 7 {
		t.Errorf("unexpected workers %d", cfg.Scheduler.Workers)
	}
	if len(cfg.Scheduler.Proxies) != 3 {
		t.Errorf("unexpected proxies %v", cfg.Scheduler.Proxies)
	}
	if cfg.Scheduler.BatchSize != 10 {
		t.Errorf("an unparseable env value must keep the default, got %d", cfg.Scheduler.BatchSize)
	}
}

func TestLoadFromEnvRateLimitAndClient(t *testing.T) {
	t.Setenv("XCRAPER_PAGE_SIZE", "40")
	t.Setenv("XCRAPER_HALT_THRESHOLD", "0.5")
	t.Setenv("XCRAPER_CONTINUE_ON_UNKNOWN", "true")
	t.Setenv("XCRAPER_PACING_INTERVAL", "500ms")
	t.Setenv("XCRAPER_RESET_MARGIN", "3s")
	t.Setenv("XCRAPER_CLIENT_TIMEOUT", "10s")
	t.Setenv("XCRAPER_CLIENT_RETRIES", "4")
	t.Setenv("XCRAPER_CLAIM_BACKUPS", "true")
	t.Setenv("XCRAPER_LOG_FILE", "scrape.log")

	cfg := DefaultConfig()
	if err := cfg.LoadFromEnv(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Search.PageSize != 40 {
		t.Errorf("unexpected page size %d", cfg.Search.PageSize)
	}
	if cfg.RateLimit.HaltThreshold != 0.5 {
		t.Errorf("unexpected halt threshold %v", cfg.RateLimit.HaltThreshold)
	}
	if !cfg.RateLimit.ContinueOnUnknown {
		t.Error("expected the permissive unknown policy from env")
	}
	if cfg.RateLimit.PacingInterval != 500*time.Millisecond {
		t.Errorf("unexpected pacing interval %v", cfg.RateLimit.PacingInterval)
	}
	if cfg.RateLimit.ResetMargin != 3*time.Second {
		t.Errorf("unexpected reset margin %v", cfg.RateLimit.ResetMargin)
	}
	if cfg.Client.Timeout != 10*time.Second {
		t.Errorf("unexpected client timeout %v", cfg.Client.Timeout)
	}
	if cfg.Client.Retries != 4 {
		t.Errorf("unexpected retries %d", cfg.Client.Retries)
	}
	if !cfg.Scheduler.ClaimBackups {
		t.Error("expected claim backups enabled from env")
	}
	if cfg.Logging.File != "scrape.log" {
		t.Errorf("unexpected log file %q", cfg.Logging.File)
	}
}

func TestLoadFromEnvUnparseableDurationsKeepDefaults(t *testing.T) {
	t.Setenv("XCRAPER_PACING_INTERVAL", "soon")
	t.Setenv("XCRAPER_CLIENT_TIMEOUT", "-5s")

	cfg := DefaultConfig()
	if err := cfg.LoadFromEnv(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.RateLimit.PacingInterval != 2*time.Second {
		t.Errorf("unparseable pacing must keep the default, got %v", cfg.RateLimit.PacingInterval)
	}
	if cfg.Client.Timeout != 30*time.Second {
		t.Errorf("non-positive timeout must keep the default, got %v", cfg.Client.Timeout)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := validConfig()
	cfg.Search.Query = "saved query"

	if err := cfg.Save(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	loaded := DefaultConfig()
	if err := loaded.LoadFromFile(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loaded.Search.Query != "saved query" {
		t.Errorf("round trip lost the query: %q", loaded.Search.Query)
	}
}
