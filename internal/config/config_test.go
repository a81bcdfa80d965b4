// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// clearEnv neutralizes pagechat environment overrides for the test.
func clearEnv(t *testing.T) {
	t.Helper()
	t.Setenv(EnvEndpointURL, "")
	t.Setenv(EnvConfigPath, "")
	t.Setenv(EnvHistoryDB, "")
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Endpoint.URL != "" {
		t.Errorf("default endpoint URL should be empty, got %q", cfg.Endpoint.URL)
	}
	if cfg.Endpoint.TimeoutSeconds != 30 {
		t.Errorf("endpoint.timeout_seconds = %d, want 30", cfg.Endpoint.TimeoutSeconds)
	}
	if cfg.Endpoint.MaxRetries != 3 {
		t.Errorf("endpoint.max_retries = %d, want 3", cfg.Endpoint.MaxRetries)
	}
	if cfg.Endpoint.RetryBaseDelayMS != 1000 {
		t.Errorf("endpoint.retry_base_delay_ms = %d, want 1000", cfg.Endpoint.RetryBaseDelayMS)
	}
	if cfg.Context.MaxChars != 4000 {
		t.Errorf("context.max_chars = %d, want 4000", cfg.Context.MaxChars)
	}
	if cfg.Context.HistoryWindow != 6 {
		t.Errorf("context.history_window = %d, want 6", cfg.Context.HistoryWindow)
	}
	if cfg.Extract.TimeoutSeconds != 10 {
		t.Errorf("extract.timeout_seconds = %d, want 10", cfg.Extract.TimeoutSeconds)
	}
	if cfg.Extract.MaxResponseBytes != 2*1024*1024 {
		t.Errorf("extract.max_response_bytes = %d, want 2MB", cfg.Extract.MaxResponseBytes)
	}
	if cfg.Extract.MaxRedirects != 5 {
		t.Errorf("extract.max_redirects = %d, want 5", cfg.Extract.MaxRedirects)
	}
	if cfg.Extract.UserAgent == "" {
		t.Error("extract.user_agent should have a default")
	}
	if cfg.UI.Theme != "auto" {
		t.Errorf("ui.theme = %q, want auto", cfg.UI.Theme)
	}
	if !cfg.UI.Markdown {
		t.Error("ui.markdown should default to true")
	}
	if cfg.Server.Port != 8989 {
		t.Errorf("server.port = %d, want 8989", cfg.Server.Port)
	}
	if !cfg.History.Enabled {
		t.Error("history.enabled should default to true")
	}
	if cfg.History.MaxEntries != 500 {
		t.Errorf("history.max_entries = %d, want 500", cfg.History.MaxEntries)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadFromPath_PartialFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
[endpoint]
url = "https://api.example.com/chat"

[context]
max_chars = 9000
`)

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}

	if cfg.Endpoint.URL != "https://api.example.com/chat" {
		t.Errorf("URL = %q", cfg.Endpoint.URL)
	}
	if cfg.Context.MaxChars != 9000 {
		t.Errorf("max_chars = %d, want 9000", cfg.Context.MaxChars)
	}

	// Keys absent from the file keep their defaults.
	if cfg.Endpoint.MaxRetries != 3 {
		t.Errorf("max_retries = %d, want default 3", cfg.Endpoint.MaxRetries)
	}
	if cfg.Context.HistoryWindow != 6 {
		t.Errorf("history_window = %d, want default 6", cfg.Context.HistoryWindow)
	}
	if !cfg.UI.Markdown {
		t.Error("markdown should keep its default of true")
	}
}

func TestLoadFromPath_ExplicitFalseSurvives(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
[ui]
markdown = false

[history]
enabled = false
`)

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if cfg.UI.Markdown {
		t.Error("explicit markdown = false was overwritten")
	}
	if cfg.History.Enabled {
		t.Error("explicit enabled = false was overwritten")
	}
}

func TestLoadFromPath_Missing(t *testing.T) {
	clearEnv(t)
	_, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.toml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadFromPath_InvalidTOML(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "endpoint = {{{")

	_, err := LoadFromPath(path)
	if err == nil {
		t.Fatal("expected parse error")
	}
	if !strings.Contains(err.Error(), "parse") {
		t.Errorf("error should mention parsing, got %q", err.Error())
	}
}

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Endpoint.TimeoutSeconds != 30 {
		t.Errorf("timeout = %d, want default 30", cfg.Endpoint.TimeoutSeconds)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
[endpoint]
url = "https://file.example.com"
`)
	t.Setenv(EnvConfigPath, path)
	t.Setenv(EnvEndpointURL, "https://env.example.com")
	t.Setenv(EnvHistoryDB, "/tmp/visits.db")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Endpoint.URL != "https://env.example.com" {
		t.Errorf("env override lost: URL = %q", cfg.Endpoint.URL)
	}
	if cfg.HistoryDBPath() != "/tmp/visits.db" {
		t.Errorf("history path = %q", cfg.HistoryDBPath())
	}
}

func TestLoad_ExplicitPathMustExist(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvConfigPath, filepath.Join(t.TempDir(), "gone.toml"))

	if _, err := Load(); err == nil {
		t.Fatal("expected error when PAGECHAT_CONFIG points at a missing file")
	}
}

func TestFillDefaults_MendsExplicitZeros(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
[endpoint]
timeout_seconds = 0

[extract]
per_host_rps = 0.0
`)

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if cfg.Endpoint.TimeoutSeconds != 30 {
		t.Errorf("explicit zero timeout should be mended to 30, got %d", cfg.Endpoint.TimeoutSeconds)
	}
	// Zero is the documented off switch for the per-host limiter.
	if cfg.Extract.PerHostRPS != 0 {
		t.Errorf("per_host_rps = %v, want 0 preserved", cfg.Extract.PerHostRPS)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"bad URL scheme", func(c *Config) { c.Endpoint.URL = "ftp://example.com" }, "endpoint.url"},
		{"URL missing host", func(c *Config) { c.Endpoint.URL = "https://" }, "endpoint.url"},
		{"negative timeout", func(c *Config) { c.Endpoint.TimeoutSeconds = -5 }, "endpoint.timeout_seconds"},
		{"retries too high", func(c *Config) { c.Endpoint.MaxRetries = 50 }, "endpoint.max_retries"},
		{"delay too small", func(c *Config) { c.Endpoint.RetryBaseDelayMS = 10 }, "endpoint.retry_base_delay_ms"},
		{"context too small", func(c *Config) { c.Context.MaxChars = 10 }, "context.max_chars"},
		{"window too large", func(c *Config) { c.Context.HistoryWindow = 500 }, "context.history_window"},
		{"extract timeout", func(c *Config) { c.Extract.TimeoutSeconds = 600 }, "extract.timeout_seconds"},
		{"body cap too small", func(c *Config) { c.Extract.MaxResponseBytes = 100 }, "extract.max_response_bytes"},
		{"negative rps", func(c *Config) { c.Extract.PerHostRPS = -1 }, "extract.per_host_rps"},
		{"bogus theme", func(c *Config) { c.UI.Theme = "solarized" }, "ui.theme"},
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"history entries", func(c *Config) { c.History.MaxEntries = -1 }, "history.max_entries"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("error %q should name field %s", err.Error(), tt.field)
			}
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.UI.Theme = "neon"
	cfg.Server.Port = 0

	// Port 0 is mended by fillDefaults on load, but Validate called directly
	// must still catch it.
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation errors")
	}
	msg := err.Error()
	if !strings.Contains(msg, "ui.theme") || !strings.Contains(msg, "server.port") {
		t.Errorf("expected both fields reported, got %q", msg)
	}
}

func TestSaveTOML_RoundTrip(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "sub", "config.toml")

	cfg := Default()
	cfg.Endpoint.URL = "https://api.example.com/v1"
	cfg.Context.MaxChars = 8000
	cfg.UI.Markdown = false

	if err := SaveTOML(cfg, path); err != nil {
		t.Fatalf("SaveTOML: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("permissions = %o, want 0600", perm)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.HasPrefix(string(raw), "# pagechat configuration file") {
		t.Error("saved file should start with the header comment")
	}

	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if *loaded != *cfg {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", *loaded, *cfg)
	}
}

func TestHistoryDBPath(t *testing.T) {
	cfg := Default()
	if !strings.HasSuffix(cfg.HistoryDBPath(), filepath.Join(".pagechat", "history.db")) {
		t.Errorf("default path = %q", cfg.HistoryDBPath())
	}

	cfg.History.Path = "/data/visits.db"
	if cfg.HistoryDBPath() != "/data/visits.db" {
		t.Errorf("explicit path = %q", cfg.HistoryDBPath())
	}
}

func TestComponentConfigAdapters(t *testing.T) {
	cfg := Default()
	cfg.Endpoint.URL = "https://api.example.com"
	cfg.Endpoint.TimeoutSeconds = 45
	cfg.Endpoint.RetryBaseDelayMS = 250
	cfg.Extract.TimeoutSeconds = 20

	cc := cfg.CompletionConfig()
	if cc.URL != "https://api.example.com" {
		t.Errorf("completion URL = %q", cc.URL)
	}
	if cc.Timeout != 45*time.Second {
		t.Errorf("completion timeout = %v, want 45s", cc.Timeout)
	}
	if cc.RetryBaseDelay != 250*time.Millisecond {
		t.Errorf("retry base delay = %v, want 250ms", cc.RetryBaseDelay)
	}

	pc := cfg.PromptConfig()
	if pc.MaxContextChars != cfg.Context.MaxChars || pc.HistoryWindow != cfg.Context.HistoryWindow {
		t.Errorf("prompt config mismatch: %+v", pc)
	}

	ec := cfg.ExtractorConfig()
	if ec.Timeout != 20*time.Second {
		t.Errorf("extract timeout = %v, want 20s", ec.Timeout)
	}
	if ec.MaxResponseSize != cfg.Extract.MaxResponseBytes {
		t.Errorf("extract size cap = %d", ec.MaxResponseSize)
	}
}

func TestWatcher_ReloadsOnChange(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
[endpoint]
url = "https://one.example.com"
`)

	reloads := make(chan *Config, 8)
	w, err := Watch(path, 50*time.Millisecond, func(c *Config) {
		reloads <- c
	})
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer w.Close()

	update := []byte("[endpoint]\nurl = \"https://two.example.com\"\n")
	if err := os.WriteFile(path, update, 0600); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	waitForURL(t, reloads, "https://two.example.com")

	// A broken rewrite must not produce a callback; the next valid write
	// must.
	if err := os.WriteFile(path, []byte("endpoint = {{{"), 0600); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}
	update = []byte("[endpoint]\nurl = \"https://three.example.com\"\n")
	if err := os.WriteFile(path, update, 0600); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	waitForURL(t, reloads, "https://three.example.com")
}

func waitForURL(t *testing.T, reloads <-chan *Config, want string) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case cfg := <-reloads:
			if cfg.Endpoint.URL == want {
				return
			}
		case <-deadline:
			t.Fatalf("no reload with URL %q within deadline", want)
		}
	}
}
