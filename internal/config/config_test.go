package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{EnvAPIURL, EnvServedFrom, EnvLogLevel, EnvNotifyWebhook, EnvReportEndpoint} {
		t.Setenv(key, "")
	}
}

func TestLoad_MissingConfigFallsBackToDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	clearEnv(t)

	cfg, err := Load(filepath.Join(home, "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	wantLog := filepath.Join(home, ".local", "state", "olilab", "olilab.log")
	if cfg.LogFile != wantLog {
		t.Fatalf("LogFile = %q, want %q", cfg.LogFile, wantLog)
	}
	if cfg.LogLevel != defaultLogLevel {
		t.Fatalf("LogLevel = %q, want %q", cfg.LogLevel, defaultLogLevel)
	}
	if cfg.NotifyRate != defaultNotifyRate {
		t.Fatalf("NotifyRate = %v, want %v", cfg.NotifyRate, defaultNotifyRate)
	}
	if cfg.APIURL != "" || cfg.RequestTimeout != 0 || cfg.RefreshInterval != 0 {
		t.Fatalf("unexpected non-default values: %+v", cfg)
	}
}

func TestLoad_ParsesAndTrimsConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`
api_url = "  https://lab.example.edu/api  "
served_from = "lab.example.edu"
request_timeout = "15s"
refresh_interval = "30"
session_path = "~/run/session.json"
prefs_path = "~/prefs.toml"
log_file = "  ~/logs/olilab.log  "
log_level = "DEBUG"
notify_webhook = "https://hooks.example.edu/olilab"
notify_rate = 0.5
report_endpoint = "https://reports.example.edu/generate"
`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIURL != "https://lab.example.edu/api" {
		t.Fatalf("APIURL = %q", cfg.APIURL)
	}
	if cfg.ServedFrom != "lab.example.edu" {
		t.Fatalf("ServedFrom = %q", cfg.ServedFrom)
	}
	if cfg.RequestTimeout != 15*time.Second {
		t.Fatalf("RequestTimeout = %v, want 15s", cfg.RequestTimeout)
	}
	if cfg.RefreshInterval != 30*time.Second {
		t.Fatalf("RefreshInterval = %v, want 30s", cfg.RefreshInterval)
	}
	if cfg.SessionPath != filepath.Join(home, "run", "session.json") {
		t.Fatalf("SessionPath = %q", cfg.SessionPath)
	}
	if cfg.PrefsPath != filepath.Join(home, "prefs.toml") {
		t.Fatalf("PrefsPath = %q", cfg.PrefsPath)
	}
	if !strings.HasPrefix(cfg.LogFile, home) {
		t.Fatalf("LogFile = %q, want it under HOME %q", cfg.LogFile, home)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.NotifyRate != 0.5 {
		t.Fatalf("NotifyRate = %v, want 0.5", cfg.NotifyRate)
	}
	if cfg.NotifyWebhook == "" || cfg.ReportEndpoint == "" {
		t.Fatalf("webhook/report endpoint not parsed: %+v", cfg)
	}
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`
api_url = "http://file.example/api"
log_level = "info"
`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	t.Setenv(EnvAPIURL, "http://env.example/api")
	t.Setenv(EnvServedFrom, "env.example")
	t.Setenv(EnvLogLevel, "WARN")
	t.Setenv(EnvNotifyWebhook, "http://hooks.env.example")
	t.Setenv(EnvReportEndpoint, "http://reports.env.example")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIURL != "http://env.example/api" {
		t.Fatalf("APIURL = %q", cfg.APIURL)
	}
	if cfg.ServedFrom != "env.example" {
		t.Fatalf("ServedFrom = %q", cfg.ServedFrom)
	}
	if cfg.LogLevel != "warn" {
		t.Fatalf("LogLevel = %q, want warn", cfg.LogLevel)
	}
	if cfg.NotifyWebhook != "http://hooks.env.example" || cfg.ReportEndpoint != "http://reports.env.example" {
		t.Fatalf("env endpoints not applied: %+v", cfg)
	}
}

func TestLoad_RejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"invalid toml":      `api_url = [`,
		"bad duration":      `request_timeout = "soon"`,
		"negative interval": `refresh_interval = "-5s"`,
		"negative rate":     `notify_rate = -1.0`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
				t.Fatalf("WriteFile: %v", err)
			}
			_, err := Load(path)
			if err == nil {
				t.Fatalf("Load returned nil error, want parse error")
			}
			if !strings.Contains(err.Error(), "parse config") {
				t.Fatalf("Load error = %q, want it to mention parse config", err.Error())
			}
		})
	}
}

func TestLoadDotenv_SetsUnsetVariablesOnly(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	if err := os.WriteFile(envFile, []byte("OLILAB_TEST_FROM_DOTENV=dotenv\nOLILAB_TEST_PRESET=dotenv\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	t.Setenv("OLILAB_TEST_PRESET", "process")
	t.Cleanup(func() { _ = os.Unsetenv("OLILAB_TEST_FROM_DOTENV") })

	if err := LoadDotenv(envFile, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("LoadDotenv returned error: %v", err)
	}
	if got := os.Getenv("OLILAB_TEST_FROM_DOTENV"); got != "dotenv" {
		t.Fatalf("OLILAB_TEST_FROM_DOTENV = %q, want dotenv", got)
	}
	if got := os.Getenv("OLILAB_TEST_PRESET"); got != "process" {
		t.Fatalf("OLILAB_TEST_PRESET = %q, want process", got)
	}
}

func TestExpandPath_ExpandsTildeAndReturnsAbs(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := expandPath("~/a/b")
	if err != nil {
		t.Fatalf("expandPath returned error: %v", err)
	}
	want := filepath.Join(home, "a/b")
	if got != want {
		t.Fatalf("expandPath = %q, want %q", got, want)
	}
}

func TestExpandPath_EmptyErrors(t *testing.T) {
	if _, err := expandPath("   "); err == nil {
		t.Fatalf("expandPath returned nil error, want error")
	}
}
