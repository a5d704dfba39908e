package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

// Config is the client's runtime configuration.
type Config struct {
	APIURL          string
	ServedFrom      string
	RequestTimeout  time.Duration
	RefreshInterval time.Duration
	SessionPath     string
	PrefsPath       string
	LogFile         string
	LogLevel        string
	NotifyWebhook   string
	NotifyRate      float64
	ReportEndpoint  string
}

const (
	defaultConfigPath = "~/.config/olilab/config.toml"
	defaultLogFile    = "~/.local/state/olilab/olilab.log"
	defaultLogLevel   = "info"
	defaultNotifyRate = 2.0
)

// Environment variables that override file values.
const (
	EnvAPIURL         = "OLILAB_API_URL"
	EnvServedFrom     = "OLILAB_SERVED_FROM"
	EnvLogLevel       = "OLILAB_LOG_LEVEL"
	EnvNotifyWebhook  = "OLILAB_NOTIFY_WEBHOOK"
	EnvReportEndpoint = "OLILAB_REPORT_ENDPOINT"
)

type fileConfig struct {
	APIURL          string  `toml:"api_url"`
	ServedFrom      string  `toml:"served_from"`
	RequestTimeout  string  `toml:"request_timeout"`
	RefreshInterval string  `toml:"refresh_interval"`
	SessionPath     string  `toml:"session_path"`
	PrefsPath       string  `toml:"prefs_path"`
	LogFile         string  `toml:"log_file"`
	LogLevel        string  `toml:"log_level"`
	NotifyWebhook   string  `toml:"notify_webhook"`
	NotifyRate      float64 `toml:"notify_rate"`
	ReportEndpoint  string  `toml:"report_endpoint"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		LogFile:    mustExpand(defaultLogFile),
		LogLevel:   defaultLogLevel,
		NotifyRate: defaultNotifyRate,
	}
}

// DefaultPath returns the default config file path.
func DefaultPath() string {
	return defaultConfigPath
}

// Load reads the config file at path (or the default location), then applies
// environment overrides. A missing file is not an error.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	data, err := os.ReadFile(resolved)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return Config{}, fmt.Errorf("read config: %w", err)
	default:
		if err := cfg.merge(data); err != nil {
			return Config{}, err
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// LoadDotenv loads KEY=VALUE files into the process environment without
// overriding variables that are already set. Missing files are skipped.
func LoadDotenv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", file, err)
		}
	}
	return nil
}

func (c *Config) merge(data []byte) error {
	var raw fileConfig
	if err := toml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	c.APIURL = strings.TrimSpace(raw.APIURL)
	c.ServedFrom = strings.TrimSpace(raw.ServedFrom)
	c.NotifyWebhook = strings.TrimSpace(raw.NotifyWebhook)
	c.ReportEndpoint = strings.TrimSpace(raw.ReportEndpoint)

	var err error
	if c.RequestTimeout, err = parseDuration("request_timeout", raw.RequestTimeout); err != nil {
		return err
	}
	if c.RefreshInterval, err = parseDuration("refresh_interval", raw.RefreshInterval); err != nil {
		return err
	}

	if v := strings.TrimSpace(raw.SessionPath); v != "" {
		c.SessionPath = mustExpand(v)
	}
	if v := strings.TrimSpace(raw.PrefsPath); v != "" {
		c.PrefsPath = mustExpand(v)
	}
	if v := strings.TrimSpace(raw.LogFile); v != "" {
		c.LogFile = mustExpand(v)
	}
	if v := strings.TrimSpace(raw.LogLevel); v != "" {
		c.LogLevel = strings.ToLower(v)
	}

	switch {
	case raw.NotifyRate < 0:
		return fmt.Errorf("parse config: notify_rate must not be negative")
	case raw.NotifyRate > 0:
		c.NotifyRate = raw.NotifyRate
	}
	return nil
}

func (c *Config) applyEnv() {
	override := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	override(&c.APIURL, EnvAPIURL)
	override(&c.ServedFrom, EnvServedFrom)
	override(&c.NotifyWebhook, EnvNotifyWebhook)
	override(&c.ReportEndpoint, EnvReportEndpoint)
	override(&c.LogLevel, EnvLogLevel)
	c.LogLevel = strings.ToLower(c.LogLevel)
}

func parseDuration(key, value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	if secs, err := strconv.Atoi(value); err == nil {
		value = strconv.Itoa(secs) + "s"
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("parse config: %s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("parse config: %s must not be negative", key)
	}
	return d, nil
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
