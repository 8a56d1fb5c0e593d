package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the default configuration file location.
const ConfigPath = "config.yaml"

// DefaultBaseURL points at a locally running backend.
const DefaultBaseURL = "http://localhost:8000/api/v1"

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	APIBaseURL     string `yaml:"apiBaseURL"`
	LogLevel       string `yaml:"logLevel"`
	TokenPath      string `yaml:"tokenPath"`
	RequestTimeout string `yaml:"requestTimeout"`
	HistoryLimit   int    `yaml:"historyLimit"`
	SpeechCommand  string `yaml:"speechCommand"`
}

// Load reads config from path (defaults to config.yaml). A missing
// file is not an error; the defaults work against a local backend.
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{
		APIBaseURL: DefaultBaseURL,
		LogLevel:   "info",
	}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// fall through to env overrides
	case err != nil:
		return cfg, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}
	// Override with environment variables
	if v := os.Getenv("BOOKCHAT_API_BASE_URL"); v != "" {
		cfg.APIBaseURL = v
	}
	if v := os.Getenv("BOOKCHAT_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("BOOKCHAT_TOKEN_PATH"); v != "" {
		cfg.TokenPath = v
	}
	if v := os.Getenv("BOOKCHAT_REQUEST_TIMEOUT"); v != "" {
		cfg.RequestTimeout = v
	}
	if v := os.Getenv("BOOKCHAT_SPEECH_COMMAND"); v != "" {
		cfg.SpeechCommand = v
	}
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func validateConfig(cfg FileConfig) error {
	if strings.TrimSpace(cfg.APIBaseURL) == "" {
		return errors.New("config: apiBaseURL is required (set in config.yaml or BOOKCHAT_API_BASE_URL)")
	}
	if !strings.HasPrefix(cfg.APIBaseURL, "http://") && !strings.HasPrefix(cfg.APIBaseURL, "https://") {
		return fmt.Errorf("config: apiBaseURL must be an http(s) URL, got %q", cfg.APIBaseURL)
	}
	if cfg.HistoryLimit < 0 {
		return errors.New("config: historyLimit must not be negative")
	}
	return nil
}

// ParseRequestTimeout parses the optional request timeout string.
func ParseRequestTimeout(timeoutStr string) (time.Duration, error) {
	if timeoutStr == "" {
		return 0, nil
	}
	dur, err := time.ParseDuration(timeoutStr)
	if err != nil {
		return 0, fmt.Errorf("invalid requestTimeout duration: %w", err)
	}
	if dur < 0 {
		return 0, errors.New("invalid requestTimeout duration: must not be negative")
	}
	return dur, nil
}
