package config

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

// TokenEnv overrides the token from the config file.
const TokenEnv = "DRONEWATCH_TOKEN"

// ErrMissingToken is returned by RequireToken when no API token was found.
var ErrMissingToken = errors.New("no API token configured (set token in config or " + TokenEnv + ")")

// Config holds everything dronewatch reads from disk and the environment.
type Config struct {
	BaseURL         string
	Token           string
	Timeout         time.Duration
	MaxRetries      int
	RetryDelay      time.Duration
	PageLimit       int
	RefreshInterval time.Duration
	LogFile         string
	MetricsAddr     string
}

const (
	defaultConfigPath      = "~/.config/dronewatch/config.toml"
	defaultLogFile         = "~/.local/state/dronewatch/dronewatch.log"
	defaultBaseURL         = "http://dronesim.facets-labs.com/api/"
	defaultTimeout         = 10 * time.Second
	defaultMaxRetries      = 3
	defaultRetryDelay      = 2 * time.Second
	defaultPageLimit       = 50
	defaultRefreshInterval = 10 * time.Second
)

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		BaseURL:         defaultBaseURL,
		Timeout:         defaultTimeout,
		MaxRetries:      defaultMaxRetries,
		RetryDelay:      defaultRetryDelay,
		PageLimit:       defaultPageLimit,
		RefreshInterval: defaultRefreshInterval,
		LogFile:         mustExpand(defaultLogFile),
	}
}

// Load locates and parses the config, falling back to defaults when missing.
// Any .env file next to the config or in the working directory is loaded
// before the token environment variable is consulted.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()
	loadDotEnv(filepath.Join(filepath.Dir(resolved), ".env"), ".env")

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			applyEnv(&cfg)
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		BaseURL         string `toml:"base_url"`
		Token           string `toml:"token"`
		Timeout         string `toml:"timeout"`
		MaxRetries      *int   `toml:"max_retries"`
		RetryDelay      string `toml:"retry_delay"`
		PageLimit       *int   `toml:"page_limit"`
		RefreshInterval string `toml:"refresh_interval"`
		LogFile         string `toml:"log_file"`
		MetricsAddr     string `toml:"metrics_addr"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if v := strings.TrimSpace(raw.BaseURL); v != "" {
		cfg.BaseURL = v
	}
	cfg.Token = strings.TrimSpace(raw.Token)
	if raw.MaxRetries != nil {
		cfg.MaxRetries = *raw.MaxRetries
	}
	if raw.PageLimit != nil {
		cfg.PageLimit = *raw.PageLimit
	}
	for _, d := range []struct {
		key   string
		value string
		dst   *time.Duration
	}{
		{"timeout", raw.Timeout, &cfg.Timeout},
		{"retry_delay", raw.RetryDelay, &cfg.RetryDelay},
		{"refresh_interval", raw.RefreshInterval, &cfg.RefreshInterval},
	} {
		if err := parseDuration(d.key, d.value, d.dst); err != nil {
			return Config{}, err
		}
	}
	if v := strings.TrimSpace(raw.LogFile); v != "" {
		cfg.LogFile = mustExpand(v)
	}
	cfg.MetricsAddr = strings.TrimSpace(raw.MetricsAddr)

	applyEnv(&cfg)
	return cfg, nil
}

// Validate reports the first setting that cannot work.
func (c Config) Validate() error {
	u, err := url.Parse(strings.TrimSpace(c.BaseURL))
	if err != nil || strings.TrimSpace(c.BaseURL) == "" {
		return fmt.Errorf("base_url %q is not a valid URL", c.BaseURL)
	}
	if u.Scheme != "" && u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("base_url scheme %q is not supported", u.Scheme)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("retry_delay must not be negative, got %s", c.RetryDelay)
	}
	if c.RefreshInterval <= 0 {
		return fmt.Errorf("refresh_interval must be positive, got %s", c.RefreshInterval)
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("max_retries must be at least 1, got %d", c.MaxRetries)
	}
	if c.PageLimit < 1 {
		return fmt.Errorf("page_limit must be at least 1, got %d", c.PageLimit)
	}
	return nil
}

// RequireToken returns ErrMissingToken when the token is empty.
func (c Config) RequireToken() error {
	if strings.TrimSpace(c.Token) == "" {
		return ErrMissingToken
	}
	return nil
}

func parseDuration(key, value string, dst *time.Duration) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse config: %s: %w", key, err)
	}
	*dst = d
	return nil
}

// loadDotEnv loads the given files when present. Variables already set in the
// environment win.
func loadDotEnv(paths ...string) {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		_ = godotenv.Load(p)
	}
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(TokenEnv)); v != "" {
		cfg.Token = v
	}
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
