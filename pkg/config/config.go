package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for a scrape run
type Config struct {
	Store     StoreConfig     `yaml:"store" json:"store"`
	Search    SearchConfig    `yaml:"search" json:"search"`
	Scheduler SchedulerConfig `yaml:"scheduler" json:"scheduler"`
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`
	Client    ClientConfig    `yaml:"client" json:"client"`
	Output    OutputConfig    `yaml:"output" json:"output"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
}

// StoreConfig locates the account database
type StoreConfig struct {
	Path string `yaml:"path" json:"path"`
}

// SearchConfig describes the query every account paginates through
type SearchConfig struct {
	Query    string `yaml:"query" json:"query"`
	PageSize int    `yaml:"page_size" json:"page_size"`
}

// SchedulerConfig controls the worker pool shape
type SchedulerConfig struct {
	Workers   int      `yaml:"workers" json:"workers"`
	BatchSize int      `yaml:"batch_size" json:"batch_size"`
	Proxies   []string `yaml:"proxies" json:"proxies"`
	// ClaimBackups enables topping up a depleted batch from the backup pool.
	ClaimBackups bool `yaml:"claim_backups" json:"claim_backups"`
}

// RateLimitConfig tunes the quota monitor and the pacing floor
type RateLimitConfig struct {
	// HaltThreshold is the fraction of the limit that must remain for
	// pagination to continue. Below it the run halts.
	HaltThreshold float64 `yaml:"halt_threshold" json:"halt_threshold"`
	// ContinueOnUnknown treats missing or unparseable rate-limit headers
	// as permission to continue. The default is to halt.
	ContinueOnUnknown bool `yaml:"continue_on_unknown" json:"continue_on_unknown"`
	// PacingInterval is the minimum delay between successive page fetches
	// within one account's run.
	PacingInterval time.Duration `yaml:"pacing_interval" json:"pacing_interval"`
	// ResetMargin is added on top of a remembered quota reset time before
	// an account is used again.
	ResetMargin time.Duration `yaml:"reset_margin" json:"reset_margin"`
}

// ClientConfig tunes the outbound HTTP client
type ClientConfig struct {
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
	Retries int           `yaml:"retries" json:"retries"`
}

// OutputConfig controls where per-worker artifacts land
type OutputConfig struct {
	Directory string `yaml:"directory" json:"directory"`
}

// LoggingConfig controls log verbosity and destination
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Path: "accounts.db",
		},
		Search: SearchConfig{
			PageSize: 20,
		},
		Scheduler: SchedulerConfig{
			Workers:   10,
			BatchSize: 10,
		},
		RateLimit: RateLimitConfig{
			HaltThreshold:     0.3,
			ContinueOnUnknown: false,
			PacingInterval:    2 * time.Second,
			ResetMargin:       time.Second,
		},
		Client: ClientConfig{
			Timeout: 30 * time.Second,
			Retries: 2,
		},
		Output: OutputConfig{
			Directory: ".",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromFile merges a YAML config file into c. An empty path checks the
// standard locations and is not an error when nothing is found.
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = findConfigFile()
		if path == "" {
			return nil
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func findConfigFile() string {
	locations := []string{
		".xcraper.yaml",
		".xcraper.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "xcraper", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".xcraper.yaml"),
	}
	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}
	return ""
}

// LoadFromEnv merges environment variables into c
func (c *Config) LoadFromEnv() error {
	if path := os.Getenv("XCRAPER_DB_PATH"); path != "" {
		c.Store.Path = path
	}
	if query := os.Getenv("XCRAPER_QUERY"); query != "" {
		c.Search.Query = query
	}
	if pageSize := os.Getenv("XCRAPER_PAGE_SIZE"); pageSize != "" {
		if val, err := strconv.Atoi(pageSize); err == nil && val > 0 {
			c.Search.PageSize = val
		}
	}
	if workers := os.Getenv("XCRAPER_WORKERS"); workers != "" {
		if val, err := strconv.Atoi(workers); err == nil && val > 0 {
			c.Scheduler.Workers = val
		}
	}
	if batch := os.Getenv("XCRAPER_BATCH_SIZE"); batch != "" {
		if val, err := strconv.Atoi(batch); err == nil && val > 0 {
			c.Scheduler.BatchSize = val
		}
	}
	if proxies := os.Getenv("XCRAPER_PROXIES"); proxies != "" {
		c.Scheduler.Proxies = strings.Split(proxies, ",")
	}
	if claim := os.Getenv("XCRAPER_CLAIM_BACKUPS"); claim != "" {
		if val, err := strconv.ParseBool(claim); err == nil {
			c.Scheduler.ClaimBackups = val
		}
	}
	if threshold := os.Getenv("XCRAPER_HALT_THRESHOLD"); threshold != "" {
		if val, err := strconv.ParseFloat(threshold, 64); err == nil {
			c.RateLimit.HaltThreshold = val
		}
	}
	if unknown := os.Getenv("XCRAPER_CONTINUE_ON_UNKNOWN"); unknown != "" {
		if val, err := strconv.ParseBool(unknown); err == nil {
			c.RateLimit.ContinueOnUnknown = val
		}
	}
	if pacing := os.Getenv("XCRAPER_PACING_INTERVAL"); pacing != "" {
		if val, err := time.ParseDuration(pacing); err == nil {
			c.RateLimit.PacingInterval = val
		}
	}
	if margin := os.Getenv("XCRAPER_RESET_MARGIN"); margin != "" {
		if val, err := time.ParseDuration(margin); err == nil {
			c.RateLimit.ResetMargin = val
		}
	}
	if timeout := os.Getenv("XCRAPER_CLIENT_TIMEOUT"); timeout != "" {
		if val, err := time.ParseDuration(timeout); err == nil && val > 0 {
			c.Client.Timeout = val
		}
	}
	if retries := os.Getenv("XCRAPER_CLIENT_RETRIES"); retries != "" {
		if val, err := strconv.Atoi(retries); err == nil && val >= 0 {
			c.Client.Retries = val
		}
	}
	if outDir := os.Getenv("XCRAPER_OUTPUT_DIR"); outDir != "" {
		c.Output.Directory = outDir
	}
	if level := os.Getenv("XCRAPER_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if file := os.Getenv("XCRAPER_LOG_FILE"); file != "" {
		c.Logging.File = file
	}
	return nil
}

// Validate checks the configuration before any worker is dispatched
func (c *Config) Validate() error {
	var errs []error

	if c.Store.Path == "" {
		errs = append(errs, errors.New("store path is required"))
	}
	if c.Search.Query == "" {
		errs = append(errs, errors.New("search query is required"))
	}
	if c.Search.PageSize <= 0 {
		errs = append(errs, errors.New("page size must be positive"))
	}
	if c.Scheduler.Workers <= 0 {
		errs = append(errs, errors.New("worker count must be positive"))
	}
	if c.Scheduler.BatchSize <= 0 {
		errs = append(errs, errors.New("batch size must be positive"))
	}
	if len(c.Scheduler.Proxies) < c.Scheduler.Workers {
		errs = append(errs, fmt.Errorf("need at least one proxy per worker: %d proxies for %d workers",
			len(c.Scheduler.Proxies), c.Scheduler.Workers))
	}
	if c.RateLimit.HaltThreshold < 0 || c.RateLimit.HaltThreshold >= 1 {
		errs = append(errs, errors.New("halt threshold must be in [0, 1)"))
	}
	if c.RateLimit.PacingInterval < 0 {
		errs = append(errs, errors.New("pacing interval cannot be negative"))
	}
	if c.Client.Timeout <= 0 {
		errs = append(errs, errors.New("client timeout must be positive"))
	}
	if c.Client.Retries < 0 {
		errs = append(errs, errors.New("client retries cannot be negative"))
	}
	if c.Output.Directory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Save writes the configuration to a YAML file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Load builds the effective configuration.
// Precedence: environment variables > .env file > config file > defaults.
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := DefaultConfig()
	if err := cfg.LoadFromFile(configPath); err != nil {
		return nil, err
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}
