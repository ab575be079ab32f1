// Package config provides configuration management.
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"GrowthFlow/pkg/utils"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Flow ids accepted as default_flow.
var knownFlows = map[string]bool{
	"PRESENTATION": true,
	"ROADMAP":      true,
	"DYNAMIC_CV":   true,
}

// Config holds all configuration settings
type Config struct {
	// Backend
	APIBaseURL      string `json:"api_base_url" yaml:"api_base_url"`
	RequestTimeout  int    `json:"request_timeout" yaml:"request_timeout"`   // seconds
	ScrapeTimeout   int    `json:"scrape_timeout" yaml:"scrape_timeout"`     // seconds
	GenerateTimeout int    `json:"generate_timeout" yaml:"generate_timeout"` // seconds, per attempt
	Streaming       bool   `json:"streaming" yaml:"streaming"`

	Retry     RetrySettings     `json:"retry" yaml:"retry"`
	RateLimit RateLimitSettings `json:"rate_limit" yaml:"rate_limit"`

	// Conversation
	DefaultFlow string `json:"default_flow" yaml:"default_flow"`

	// "remote" calls POST /scrape-job-url, "local" fetches the posting directly.
	Scraper string `json:"scraper" yaml:"scraper"`

	// Local state
	StoragePath    string `json:"storage_path" yaml:"storage_path"`
	PersistSession bool   `json:"persist_session" yaml:"persist_session"`
	LogLevel       string `json:"log_level" yaml:"log_level"`

	UI       UIConfig       `json:"ui" yaml:"ui"`
	Telegram TelegramConfig `json:"telegram" yaml:"telegram"`
	PDF      PDFConfig      `json:"pdf" yaml:"pdf"`
}

// RetrySettings configures retries of idempotent calls (résumé generation).
type RetrySettings struct {
	MaxRetries     int `json:"max_retries" yaml:"max_retries"`
	InitialDelayMS int `json:"initial_delay_ms" yaml:"initial_delay_ms"`
	MaxDelayMS     int `json:"max_delay_ms" yaml:"max_delay_ms"`
}

// RateLimitSettings configures the client-side token bucket.
type RateLimitSettings struct {
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second"`
	Burst             int     `json:"burst" yaml:"burst"`
}

// UIConfig holds UI configuration
type UIConfig struct {
	Theme         string `json:"theme" yaml:"theme"` // "dark", "light"
	ShowTimestamp bool   `json:"show_timestamp" yaml:"show_timestamp"`
	WrapWidth     int    `json:"wrap_width" yaml:"wrap_width"`
}

// TelegramConfig holds Telegram bot configuration
type TelegramConfig struct {
	Enabled      bool    `json:"enabled" yaml:"enabled"`
	BotToken     string  `json:"bot_token" yaml:"bot_token"`
	AllowedChats []int64 `json:"allowed_chats,omitempty" yaml:"allowed_chats,omitempty"` // empty: everyone
}

// PDFConfig controls résumé export.
type PDFConfig struct {
	OutputDir string `json:"output_dir" yaml:"output_dir"`
	Headless  bool   `json:"headless" yaml:"headless"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		APIBaseURL:      "http://localhost:8000",
		RequestTimeout:  60,
		ScrapeTimeout:   45,
		GenerateTimeout: 120,
		Streaming:       false,

		Retry: RetrySettings{
			MaxRetries:     2,
			InitialDelayMS: 1000,
			MaxDelayMS:     8000,
		},
		RateLimit: RateLimitSettings{
			RequestsPerSecond: 2,
			Burst:             5,
		},

		DefaultFlow: "PRESENTATION",
		Scraper:     "remote",

		StoragePath:    ".growthflow",
		PersistSession: false,
		LogLevel:       "INFO",

		UI: UIConfig{
			Theme:         "dark",
			ShowTimestamp: false,
			WrapWidth:     80,
		},
		PDF: PDFConfig{
			OutputDir: ".",
			Headless:  true,
		},
	}
}

// GetConfigPaths returns a prioritized list of configuration file paths
func GetConfigPaths(cliPath string) []string {
	if cliPath != "" {
		return []string{cliPath}
	}

	paths := []string{
		".growthflow/config.json",
		".growthflow/config.yaml",
		"config.json",
		"config.yaml",
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(homeDir, ".growthflow", "config.json"),
			filepath.Join(homeDir, ".growthflow", "config.yaml"),
		)
	}
	return paths
}

// Load loads configuration from the first available path in the prioritized
// list. It returns the path used, or "" when running on defaults. An explicit
// cliPath that does not exist is an error.
func Load(cliPath string) (*Config, string, error) {
	loadDotEnv(".env")

	for _, path := range GetConfigPaths(cliPath) {
		data, err := os.ReadFile(path)
		if err != nil {
			if cliPath != "" {
				return nil, path, fmt.Errorf("read config file %s: %w", path, err)
			}
			continue
		}
		cfg := DefaultConfig()
		if err := decode(path, data, cfg); err != nil {
			return nil, path, err
		}
		applyEnvOverrides(cfg)
		if err := cfg.Validate(); err != nil {
			return nil, path, fmt.Errorf("configuration validation failed in %s: %w", path, err)
		}
		return cfg, path, nil
	}

	cfg := DefaultConfig()
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, "", fmt.Errorf("default configuration validation failed: %w", err)
	}
	return cfg, "", nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func decode(path string, data []byte, cfg *Config) error {
	if isYAML(path) {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("invalid YAML in config file %s: %w", path, err)
		}
		return nil
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("invalid JSON in config file %s: %w", path, err)
	}
	return nil
}

// allowedEnvVars is a whitelist of environment variable names that may be set from .env
var allowedEnvVars = map[string]bool{
	"GROWTHFLOW_API_URL":     true,
	"GROWTHFLOW_LOG_LEVEL":   true,
	"GROWTHFLOW_STREAMING":   true,
	"GROWTHFLOW_SCRAPER":     true,
	"GROWTHFLOW_FLOW":        true,
	"GROWTHFLOW_STORAGE":     true,
	"TELEGRAM_BOT_TOKEN":     true,
	"TELEGRAM_ALLOWED_CHATS": true,
}

// loadDotEnv loads whitelisted KEY=VALUE pairs without overriding variables
// that are already set.
func loadDotEnv(envFile string) {
	values, err := godotenv.Read(envFile)
	if err != nil {
		return
	}
	for key, value := range values {
		if !allowedEnvVars[key] {
			continue
		}
		if os.Getenv(key) == "" {
			_ = os.Setenv(key, value)
		}
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GROWTHFLOW_API_URL"); v != "" {
		cfg.APIBaseURL = v
	}
	if v := os.Getenv("GROWTHFLOW_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("GROWTHFLOW_STREAMING"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Streaming = b
		}
	}
	if v := os.Getenv("GROWTHFLOW_SCRAPER"); v != "" {
		cfg.Scraper = v
	}
	if v := os.Getenv("GROWTHFLOW_FLOW"); v != "" {
		cfg.DefaultFlow = strings.ToUpper(v)
	}
	if v := os.Getenv("GROWTHFLOW_STORAGE"); v != "" {
		cfg.StoragePath = v
	}

	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_ALLOWED_CHATS"); v != "" {
		var ids []int64
		for _, part := range strings.Split(v, ",") {
			if id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64); err == nil {
				ids = append(ids, id)
			}
		}
		cfg.Telegram.AllowedChats = ids
	}
}

// RequestTimeoutDuration returns the per-request timeout.
func (c *Config) RequestTimeoutDuration() time.Duration {
	return seconds(c.RequestTimeout, 60)
}

// ScrapeTimeoutDuration returns the timeout of the scrape task.
func (c *Config) ScrapeTimeoutDuration() time.Duration {
	return seconds(c.ScrapeTimeout, 45)
}

// GenerateTimeoutDuration returns the per-attempt timeout of résumé generation.
func (c *Config) GenerateTimeoutDuration() time.Duration {
	return seconds(c.GenerateTimeout, 120)
}

func seconds(v, fallback int) time.Duration {
	if v <= 0 {
		v = fallback
	}
	return time.Duration(v) * time.Second
}

// RetryPolicy converts the retry settings for utils.ExecuteWithRetryContext.
func (c *Config) RetryPolicy() utils.RetryConfig {
	rc := utils.DefaultRetryConfig()
	rc.MaxRetries = c.Retry.MaxRetries
	if c.Retry.InitialDelayMS > 0 {
		rc.InitialDelay = time.Duration(c.Retry.InitialDelayMS) * time.Millisecond
	}
	if c.Retry.MaxDelayMS > 0 {
		rc.MaxDelay = time.Duration(c.Retry.MaxDelayMS) * time.Millisecond
	}
	return rc
}

// LogFile returns the path of the debug log under the storage directory.
func (c *Config) LogFile() string {
	return filepath.Join(c.StoragePath, "growthflow.log")
}

// SessionFile returns the path of the session key/value file.
func (c *Config) SessionFile() string {
	return filepath.Join(c.StoragePath, "session.json")
}

// ChatAllowed reports whether a Telegram chat may use the bot.
func (c *Config) ChatAllowed(chatID int64) bool {
	if len(c.Telegram.AllowedChats) == 0 {
		return true
	}
	for _, id := range c.Telegram.AllowedChats {
		if id == chatID {
			return true
		}
	}
	return false
}

// Save saves configuration to a file, as YAML when the extension says so.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600) // may hold the bot token
}

// Validate validates the configuration and returns any errors
func (c *Config) Validate() error {
	if err := validateURL(c.APIBaseURL); err != nil {
		return fmt.Errorf("invalid API base URL: %w", err)
	}
	if c.RequestTimeout < 0 || c.ScrapeTimeout < 0 || c.GenerateTimeout < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	if c.Retry.MaxRetries < 0 || c.Retry.MaxRetries > 10 {
		return fmt.Errorf("retry.max_retries must be between 0 and 10, got %d", c.Retry.MaxRetries)
	}
	if c.RateLimit.RequestsPerSecond < 0 {
		return fmt.Errorf("rate_limit.requests_per_second must not be negative")
	}
	if !knownFlows[c.DefaultFlow] {
		return fmt.Errorf("default_flow %q is not one of PRESENTATION, ROADMAP, DYNAMIC_CV", c.DefaultFlow)
	}
	switch c.Scraper {
	case "remote", "local":
	default:
		return fmt.Errorf("scraper must be \"remote\" or \"local\", got %q", c.Scraper)
	}
	if c.StoragePath == "" {
		return fmt.Errorf("storage_path is required")
	}
	if c.Telegram.Enabled && c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.enabled requires a bot token (telegram.bot_token or TELEGRAM_BOT_TOKEN)")
	}
	return nil
}

// validateURL validates that a URL is properly formatted
func validateURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("API base URL is required")
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("URL must use http or https scheme")
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("URL must have a valid host")
	}
	return nil
}
