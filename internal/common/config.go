package common

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment" validate:"omitempty,oneof=development production"`
	Server      ServerConfig    `toml:"server"`
	Storage     StorageConfig   `toml:"storage"`
	Logging     LoggingConfig   `toml:"logging"`
	Finnhub     FinnhubConfig   `toml:"finnhub"`
	Gemini      GeminiConfig    `toml:"gemini"`
	Claude      ClaudeConfig    `toml:"claude"`
	LLM         LLMConfig       `toml:"llm"`
	Mail        MailConfig      `toml:"mail"`
	Digest      DigestConfig    `toml:"digest"`
	Seed        SeedConfig      `toml:"seed"`
	Templates   TemplatesConfig `toml:"templates"`
}

type ServerConfig struct {
	Port int    `toml:"port" validate:"gte=0,lte=65535"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

type LoggingConfig struct {
	Level  string   `toml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string   `toml:"format"` // "json" or "text"
	Output []string `toml:"output"` // "stdout", "file"
}

// FinnhubConfig contains the market-news provider configuration
type FinnhubConfig struct {
	APIKey         string `toml:"api_key"`          // Finnhub API token (query credential)
	BaseURL        string `toml:"base_url"`         // Override for tests; default https://finnhub.io/api/v1
	RateLimit      int    `toml:"rate_limit"`       // Requests per second (default: 10)
	Timeout        string `toml:"timeout"`          // HTTP timeout as duration string (default: "30s")
	NewsWindowDays int    `toml:"news_window_days"` // Date window for news queries (default: 5)
}

// GeminiConfig contains Google Gemini API configuration
type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`     // Google Gemini API key
	Model       string  `toml:"model"`       // Model for summarization (default: "gemini-2.5-flash-lite")
	Timeout     string  `toml:"timeout"`     // Operation timeout as duration string (default: "2m")
	Temperature float32 `toml:"temperature"` // Completion temperature (default: 0.7)
}

// ClaudeConfig contains Anthropic Claude API configuration
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`     // Anthropic API key
	Model       string  `toml:"model"`       // Model for summarization (default: "claude-haiku-3-5-20241022")
	MaxTokens   int     `toml:"max_tokens"`  // Maximum tokens in response (default: 4096)
	Timeout     string  `toml:"timeout"`     // Operation timeout as duration string (default: "2m")
	Temperature float32 `toml:"temperature"` // Completion temperature (default: 0.7)
}

// LLMProvider represents the AI provider type
type LLMProvider string

const (
	// LLMProviderGemini uses Google Gemini API
	LLMProviderGemini LLMProvider = "gemini"
	// LLMProviderClaude uses Anthropic Claude API
	LLMProviderClaude LLMProvider = "claude"
)

// LLMConfig selects the AI provider used for summarization
type LLMConfig struct {
	DefaultProvider LLMProvider `toml:"default_provider" validate:"omitempty,oneof=gemini claude"`
}

// MailConfig contains SMTP transport configuration. Values left empty here
// fall back to smtp_* keys in key/value storage.
type MailConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port" validate:"gte=0,lte=65535"`
	Username string `toml:"username"`
	Password string `toml:"password"`
	From     string `toml:"from"`
	FromName string `toml:"from_name"`
	UseTLS   bool   `toml:"use_tls"`
}

// DigestConfig controls the daily news digest workflow
type DigestConfig struct {
	Enabled  bool   `toml:"enabled"`  // Register the cron trigger on startup
	Schedule string `toml:"schedule"` // Cron expression (default: "0 12 * * *")
}

// SeedConfig points at optional startup seed data
type SeedConfig struct {
	UsersFile string `toml:"users_file"` // TOML file with users + watchlists (default: none)
	EmailFile string `toml:"email_file"` // TOML file with SMTP settings for the KV store (default: none)
}

// TemplatesConfig points at optional user overrides for prompt and email templates
type TemplatesConfig struct {
	Dir string `toml:"dir"` // Directory checked before embedded defaults (default: none)
}

// NewDefaultConfig creates a configuration with default values.
// Technical parameters are hardcoded here for production stability;
// only user-facing settings belong in signalist.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: []string{"stdout", "file"},
		},
		Finnhub: FinnhubConfig{
			APIKey:         "", // User must provide API key (FINNHUB_API_KEY or config)
			BaseURL:        "https://finnhub.io/api/v1",
			RateLimit:      10,
			Timeout:        "30s",
			NewsWindowDays: 5,
		},
		Gemini: GeminiConfig{
			APIKey:      "",
			Model:       "gemini-2.5-flash-lite",
			Timeout:     "2m",
			Temperature: 0.7,
		},
		Claude: ClaudeConfig{
			APIKey:      "",
			Model:       "claude-haiku-3-5-20241022",
			MaxTokens:   4096,
			Timeout:     "2m",
			Temperature: 0.7,
		},
		LLM: LLMConfig{
			DefaultProvider: LLMProviderGemini,
		},
		Mail: MailConfig{
			Port:     587,
			UseTLS:   true,
			FromName: "Signalist",
		},
		Digest: DigestConfig{
			Enabled:  true,
			Schedule: "0 12 * * *",
		},
	}
}

// LoadFromFiles loads configuration from files with priority:
// defaults -> file1 -> file2 -> ... -> env. Later files override earlier ones.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	if err := validator.New().Struct(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// applyEnvOverrides applies environment variables over file configuration.
// Environment variables take precedence over all config files.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("FINNHUB_API_KEY"); v != "" {
		config.Finnhub.APIKey = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		config.Gemini.APIKey = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		config.Claude.APIKey = v
	}
	if v := os.Getenv("SIGNALIST_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			config.Server.Port = port
		}
	}
	if v := os.Getenv("SIGNALIST_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
	if v := os.Getenv("SIGNALIST_SMTP_PASSWORD"); v != "" {
		config.Mail.Password = v
	}
}
