// Package config resolves the importer's layered configuration:
// defaults, then config file, then environment, then CLI flags.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrMissingCredential indicates a required platform credential is absent.
// Fatal: the run aborts before any network activity.
var ErrMissingCredential = errors.New("missing required credential")

// Defaults.
const (
	DefaultBatchSize  = 100
	DefaultMaxRetries = 3
	DefaultRetryDelay = 5000 * time.Millisecond
	DefaultStatePath  = "import-state.json"
	DefaultLogFile    = "importer.log"
)

// Config holds all configuration values after resolution.
type Config struct {
	// Gladly (source)
	GladlyAPIURL   string
	GladlyUsername string
	GladlyAPIToken string

	// Enterpret (destination)
	EnterpretAPIURL string
	EnterpretAPIKey string

	// Pipeline
	StateFilePath string
	BatchSize     int
	MaxRetries    int
	RetryDelay    time.Duration

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// fileConfig mirrors Config with pointer fields so a silent file leaves the
// previous layer's value in place. RetryDelay is in milliseconds.
type fileConfig struct {
	GladlyAPIURL    *string `json:"gladlyApiUrl" yaml:"gladlyApiUrl"`
	GladlyUsername  *string `json:"gladlyUsername" yaml:"gladlyUsername"`
	GladlyAPIToken  *string `json:"gladlyApiToken" yaml:"gladlyApiToken"`
	EnterpretAPIURL *string `json:"enterpretApiUrl" yaml:"enterpretApiUrl"`
	EnterpretAPIKey *string `json:"enterpretApiKey" yaml:"enterpretApiKey"`
	StateFilePath   *string `json:"stateFilePath" yaml:"stateFilePath"`
	BatchSize       *int    `json:"batchSize" yaml:"batchSize"`
	MaxRetries      *int    `json:"maxRetries" yaml:"maxRetries"`
	RetryDelayMs    *int    `json:"retryDelayMs" yaml:"retryDelayMs"`
	LogFile         *string `json:"logFile" yaml:"logFile"`
	LogLevel        *string `json:"logLevel" yaml:"logLevel"`
}

// Resolve builds the effective configuration. configPath may be empty.
// Precedence, lowest to highest: defaults, config file, environment.
// CLI-level overrides (verbose) are applied by the caller on the result.
func Resolve(configPath string) (Config, error) {
	// Pick up a local .env before reading the environment.
	_ = godotenv.Load()

	cfg := Config{
		StateFilePath: DefaultStatePath,
		BatchSize:     DefaultBatchSize,
		MaxRetries:    DefaultMaxRetries,
		RetryDelay:    DefaultRetryDelay,
		LogFile:       DefaultLogFile,
		LogLevel:      slog.LevelInfo,
	}

	if configPath != "" {
		if err := applyFile(&cfg, configPath); err != nil {
			return Config{}, err
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return fmt.Errorf("parse config file %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, &fc); err != nil {
			return fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	setString := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	setString(&cfg.GladlyAPIURL, fc.GladlyAPIURL)
	setString(&cfg.GladlyUsername, fc.GladlyUsername)
	setString(&cfg.GladlyAPIToken, fc.GladlyAPIToken)
	setString(&cfg.EnterpretAPIURL, fc.EnterpretAPIURL)
	setString(&cfg.EnterpretAPIKey, fc.EnterpretAPIKey)
	setString(&cfg.StateFilePath, fc.StateFilePath)
	setString(&cfg.LogFile, fc.LogFile)
	if fc.BatchSize != nil {
		cfg.BatchSize = *fc.BatchSize
	}
	if fc.MaxRetries != nil {
		cfg.MaxRetries = *fc.MaxRetries
	}
	if fc.RetryDelayMs != nil {
		cfg.RetryDelay = time.Duration(*fc.RetryDelayMs) * time.Millisecond
	}
	if fc.LogLevel != nil {
		cfg.LogLevel = ParseLogLevel(*fc.LogLevel)
	}
	return nil
}

func applyEnv(cfg *Config) {
	setEnv := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setEnv(&cfg.GladlyAPIURL, "GLADLY_API_URL")
	setEnv(&cfg.GladlyUsername, "GLADLY_USERNAME")
	setEnv(&cfg.GladlyAPIToken, "GLADLY_API_TOKEN")
	setEnv(&cfg.EnterpretAPIURL, "ENTERPRET_API_URL")
	setEnv(&cfg.EnterpretAPIKey, "ENTERPRET_API_KEY")
	setEnv(&cfg.StateFilePath, "STATE_FILE_PATH")
	setEnv(&cfg.LogFile, "LOG_FILE")

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = ParseLogLevel(v)
	}
	if v := os.Getenv("BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.BatchSize = n
		}
	}
	if v := os.Getenv("MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxRetries = n
		}
	}
	if v := os.Getenv("RETRY_DELAY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RetryDelay = time.Duration(n) * time.Millisecond
		}
	}
}

// Normalize clamps out-of-range numeric settings back to their defaults,
// logging a warning for each adjustment.
func (c *Config) Normalize(log *slog.Logger) {
	if c.BatchSize < 1 {
		log.Warn("invalid batch size, using default",
			"given", c.BatchSize, "default", DefaultBatchSize)
		c.BatchSize = DefaultBatchSize
	}
	if c.MaxRetries < 0 {
		log.Warn("invalid max retries, using default",
			"given", c.MaxRetries, "default", DefaultMaxRetries)
		c.MaxRetries = DefaultMaxRetries
	}
	if c.RetryDelay < 0 {
		log.Warn("invalid retry delay, using default",
			"given", c.RetryDelay, "default", DefaultRetryDelay)
		c.RetryDelay = DefaultRetryDelay
	}
}

// Validate checks that every required credential is present.
func (c *Config) Validate() error {
	required := []struct {
		value string
		name  string
	}{
		{c.GladlyAPIURL, "GLADLY_API_URL"},
		{c.GladlyUsername, "GLADLY_USERNAME"},
		{c.GladlyAPIToken, "GLADLY_API_TOKEN"},
		{c.EnterpretAPIURL, "ENTERPRET_API_URL"},
		{c.EnterpretAPIKey, "ENTERPRET_API_KEY"},
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("%w: %s", ErrMissingCredential, r.name)
		}
	}
	return nil
}

// ParseLogLevel maps a level name to a slog.Level, defaulting to Info.
func ParseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
