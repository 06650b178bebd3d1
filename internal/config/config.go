// Package config provides configuration management for eventscout.
//
// Values are resolved in order: built-in defaults, the YAML config file,
// a .env file, environment variables, and finally command-line flags
// (applied by the cli package).
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Configuration validation errors.
var (
	ErrMissingDataDir      = errors.New("data_dir is required")
	ErrMissingFileName     = errors.New("files.overviews, files.contents and files.details are required")
	ErrMissingCardSelector = errors.New("overview.card_selector is required")
	ErrInvalidFetchTimeout = errors.New("fetch.timeout must be positive")
	ErrInvalidContentMode  = errors.New("fetch.content_mode must be 'body' or 'readability'")
	ErrInvalidPacing       = errors.New("pacing.delay must be non-negative")
	ErrMissingAPIKey       = errors.New("summarizer.api_key (or OPENAI_API_KEY) is required")
	ErrMissingModel        = errors.New("summarizer.model is required")
	ErrMissingBaseURL      = errors.New("summarizer.base_url is required")
	ErrInvalidMaxTokens    = errors.New("summarizer.max_tokens must be at least 1")
	ErrInvalidMaxRetries   = errors.New("summarizer.max_retries must be non-negative")
	ErrInvalidSumTimeout   = errors.New("summarizer.timeout must be positive")
	ErrInvalidLogLevel     = errors.New("logging.level must be one of: debug, info, warn, error")
	ErrInvalidLogFormat    = errors.New("logging.format must be 'json' or 'console'")
)

// Content extraction modes for event pages.
const (
	ContentModeBody        = "body"
	ContentModeReadability = "readability"
)

// Environment variables that override file values.
const (
	EnvAPIKey  = "OPENAI_API_KEY"
	EnvBaseURL = "OPENAI_BASE_URL"
	EnvModel   = "OPENAI_MODEL"
	EnvDataDir = "EVENTSCOUT_DATA_DIR"
)

// Config represents the complete eventscout configuration.
type Config struct {
	DataDir    string           `yaml:"data_dir"`
	Files      FilesConfig      `yaml:"files"`
	Overview   OverviewConfig   `yaml:"overview"`
	Fetch      FetchConfig      `yaml:"fetch"`
	Summarizer SummarizerConfig `yaml:"summarizer"`
	Pacing     PacingConfig     `yaml:"pacing"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// FilesConfig names the pipeline's input and output files, relative to DataDir.
type FilesConfig struct {
	Listing   string `yaml:"listing"`
	Overviews string `yaml:"overviews"`
	Contents  string `yaml:"contents"`
	Details   string `yaml:"details"`
}

// OverviewConfig controls listing parsing.
type OverviewConfig struct {
	CardSelector string `yaml:"card_selector"`
}

// FetchConfig controls event page fetching.
type FetchConfig struct {
	Timeout     time.Duration `yaml:"timeout"`
	UserAgent   string        `yaml:"user_agent"`
	ContentMode string        `yaml:"content_mode"`
}

// SummarizerConfig describes the chat-completion endpoint.
type SummarizerConfig struct {
	BaseURL         string        `yaml:"base_url"`
	APIKey          string        `yaml:"api_key"`
	Model           string        `yaml:"model"`
	MaxTokens       int           `yaml:"max_tokens"`
	Timeout         time.Duration `yaml:"timeout"`
	MaxRetries      int           `yaml:"max_retries"`
	MaxContentChars int           `yaml:"max_content_chars"`
}

// PacingConfig sets the wait between consecutive events.
type PacingConfig struct {
	Delay time.Duration `yaml:"delay"`
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the optional Prometheus textfile.
type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DataDir: ".",
		Files: FilesConfig{
			Listing:   "SXSW · Events Calendar.html",
			Overviews: "event_overviews.json",
			Contents:  "event_contents.json",
			Details:   "event_details.json",
		},
		Overview: OverviewConfig{
			CardSelector: ".content-card.hoverable",
		},
		Fetch: FetchConfig{
			Timeout:     30 * time.Second,
			UserAgent:   "eventscout/1.0 (github.com/pfrederiksen/eventscout)",
			ContentMode: ContentModeBody,
		},
		Summarizer: SummarizerConfig{
			BaseURL:         "https://api.openai.com/v1",
			Model:           "gpt-3.5-turbo",
			MaxTokens:       4096,
			Timeout:         60 * time.Second,
			MaxRetries:      3,
			MaxContentChars: 12000,
		},
		Pacing: PacingConfig{
			Delay: time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds a configuration from defaults, the optional YAML file at path,
// the .env file in the working directory and the process environment.
// It does not validate; callers apply their own overrides and then call
// Validate.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	// A missing .env file is normal outside development
	_ = godotenv.Load()

	cfg.ApplyEnv(os.Getenv)

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	return nil
}

// ApplyEnv overrides values from environment variables looked up with getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv(EnvAPIKey); v != "" {
		c.Summarizer.APIKey = v
	}
	if v := getenv(EnvBaseURL); v != "" {
		c.Summarizer.BaseURL = v
	}
	if v := getenv(EnvModel); v != "" {
		c.Summarizer.Model = v
	}
	if v := getenv(EnvDataDir); v != "" {
		c.DataDir = v
	}
}

// Validate checks settings every command depends on. Summarizer credentials
// are checked separately by ValidateSummarizer.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DataDir) == "" {
		return ErrMissingDataDir
	}

	if c.Files.Overviews == "" || c.Files.Contents == "" || c.Files.Details == "" {
		return ErrMissingFileName
	}

	if strings.TrimSpace(c.Overview.CardSelector) == "" {
		return ErrMissingCardSelector
	}

	if c.Fetch.Timeout <= 0 {
		return ErrInvalidFetchTimeout
	}

	if c.Fetch.ContentMode != ContentModeBody && c.Fetch.ContentMode != ContentModeReadability {
		return ErrInvalidContentMode
	}

	if c.Pacing.Delay < 0 {
		return ErrInvalidPacing
	}

	if c.Summarizer.MaxRetries < 0 {
		return ErrInvalidMaxRetries
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}
	if !validLevels[strings.ToLower(strings.TrimSpace(c.Logging.Level))] {
		return ErrInvalidLogLevel
	}

	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return ErrInvalidLogFormat
	}

	return nil
}

// ValidateSummarizer checks the settings needed to call the language model.
func (c *Config) ValidateSummarizer() error {
	s := c.Summarizer

	if s.APIKey == "" {
		return ErrMissingAPIKey
	}
	if s.BaseURL == "" {
		return ErrMissingBaseURL
	}
	if s.Model == "" {
		return ErrMissingModel
	}
	if s.MaxTokens < 1 {
		return ErrInvalidMaxTokens
	}
	if s.Timeout <= 0 {
		return ErrInvalidSumTimeout
	}

	return nil
}

// String returns a string representation of the config without secrets.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{DataDir: %s, Model: %s, Pacing: %s, ContentMode: %s}",
		c.DataDir,
		c.Summarizer.Model,
		c.Pacing.Delay,
		c.Fetch.ContentMode,
	)
}
