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

// Config holds all configuration options for the bookmarks exporter
type Config struct {
	// Browser/CDP attachment settings
	Browser BrowserConfig `yaml:"browser" json:"browser"`

	// Session gate settings
	Session SessionConfig `yaml:"session" json:"session"`

	// Export settings
	Export ExportConfig `yaml:"export" json:"export"`

	// Download watcher settings
	Download DownloadConfig `yaml:"download" json:"download"`

	// Control server settings (serve mode)
	Server ServerConfig `yaml:"server" json:"server"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// BrowserConfig holds Chrome DevTools Protocol attachment settings
type BrowserConfig struct {
	CDPURL        string        `yaml:"cdp_url" json:"cdp_url"`
	TargetDomains []string      `yaml:"target_domains" json:"target_domains"`
	BookmarksPage string        `yaml:"bookmarks_page" json:"bookmarks_page"`
	AttachTimeout time.Duration `yaml:"attach_timeout" json:"attach_timeout"`
	OpenBookmarks bool          `yaml:"open_bookmarks" json:"open_bookmarks"`
	AttachRetries int           `yaml:"attach_retries" json:"attach_retries"`
}

// SessionConfig controls the credential-availability gate
type SessionConfig struct {
	PollInterval time.Duration `yaml:"poll_interval" json:"poll_interval"`
	MaxAttempts  int           `yaml:"max_attempts" json:"max_attempts"`
}

// ExportConfig holds export pipeline settings
type ExportConfig struct {
	OutputDir      string        `yaml:"output_dir" json:"output_dir"`
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`
	// MaxPages caps the pagination loop as a safety net against a remote
	// API that never stops returning cursors. 0 means unbounded, which
	// matches the upstream behavior.
	MaxPages          int `yaml:"max_pages" json:"max_pages"`
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute"`
	// Features overrides the built-in GraphQL feature-flag map when set.
	// The map is opaque to this tool and passed through unchanged.
	Features map[string]bool `yaml:"features" json:"features"`
}

// DownloadConfig controls the download completion watcher
type DownloadConfig struct {
	PollInterval time.Duration `yaml:"poll_interval" json:"poll_interval"`
}

// ServerConfig holds the control server settings for serve mode
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr" json:"listen_addr"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Browser: BrowserConfig{
			CDPURL:        "http://127.0.0.1:9222",
			TargetDomains: []string{"x.com", "twitter.com"},
			BookmarksPage: "https://x.com/i/bookmarks/all",
			AttachTimeout: 30 * time.Second,
			OpenBookmarks: true,
			AttachRetries: 3,
		},
		Session: SessionConfig{
			PollInterval: 100 * time.Millisecond,
			MaxAttempts:  50,
		},
		Export: ExportConfig{
			OutputDir:         "./exports",
			RequestTimeout:    30 * time.Second,
			MaxPages:          0,
			RequestsPerMinute: 60,
		},
		Download: DownloadConfig{
			PollInterval: 500 * time.Millisecond,
		},
		Server: ServerConfig{
			ListenAddr: "127.0.0.1:8090",
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if cdpURL := os.Getenv("XBOOKMARKS_CDP_URL"); cdpURL != "" {
		c.Browser.CDPURL = cdpURL
	}
	if domains := os.Getenv("XBOOKMARKS_TARGET_DOMAINS"); domains != "" {
		c.Browser.TargetDomains = splitAndTrim(domains)
	}
	if page := os.Getenv("XBOOKMARKS_BOOKMARKS_PAGE"); page != "" {
		c.Browser.BookmarksPage = page
	}
	if outputDir := os.Getenv("XBOOKMARKS_OUTPUT_DIR"); outputDir != "" {
		c.Export.OutputDir = outputDir
	}
	if maxPages := os.Getenv("XBOOKMARKS_MAX_PAGES"); maxPages != "" {
		if val, err := strconv.Atoi(maxPages); err == nil && val >= 0 {
			c.Export.MaxPages = val
		}
	}
	if rpm := os.Getenv("XBOOKMARKS_REQUESTS_PER_MINUTE"); rpm != "" {
		if val, err := strconv.Atoi(rpm); err == nil && val > 0 {
			c.Export.RequestsPerMinute = val
		}
	}
	if attempts := os.Getenv("XBOOKMARKS_SESSION_MAX_ATTEMPTS"); attempts != "" {
		if val, err := strconv.Atoi(attempts); err == nil && val > 0 {
			c.Session.MaxAttempts = val
		}
	}
	if addr := os.Getenv("XBOOKMARKS_LISTEN_ADDR"); addr != "" {
		c.Server.ListenAddr = addr
	}
	if logLevel := os.Getenv("XBOOKMARKS_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
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

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	locations := []string{
		".xbookmarks.yaml",
		".xbookmarks.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "xbookmarks", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "xbookmarks", "config.yml"),
		filepath.Join(os.Getenv("HOME"), ".xbookmarks.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Browser.CDPURL == "" {
		errs = append(errs, errors.New("browser CDP URL is required"))
	}
	if len(c.Browser.TargetDomains) == 0 {
		errs = append(errs, errors.New("at least one target domain is required"))
	}
	if c.Browser.BookmarksPage == "" {
		errs = append(errs, errors.New("bookmarks page URL is required"))
	}

	if c.Session.PollInterval <= 0 {
		errs = append(errs, errors.New("session poll interval must be positive"))
	}
	if c.Session.MaxAttempts <= 0 {
		errs = append(errs, errors.New("session max attempts must be positive"))
	}

	if c.Export.OutputDir == "" {
		errs = append(errs, errors.New("output directory is required"))
	}
	if c.Export.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}
	if c.Export.MaxPages < 0 {
		errs = append(errs, errors.New("max pages cannot be negative"))
	}

	if c.Download.PollInterval <= 0 {
		errs = append(errs, errors.New("download poll interval must be positive"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if cdpURL, ok := flags["cdp-url"].(string); ok && cdpURL != "" {
		c.Browser.CDPURL = cdpURL
	}
	if outputDir, ok := flags["output"].(string); ok && outputDir != "" {
		c.Export.OutputDir = outputDir
	}
	if maxPages, ok := flags["max-pages"].(int); ok && maxPages > 0 {
		c.Export.MaxPages = maxPages
	}
	if addr, ok := flags["listen"].(string); ok && addr != "" {
		c.Server.ListenAddr = addr
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence.
// Precedence order: flags > environment variables > .env file > config file > defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".xbookmarks.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
