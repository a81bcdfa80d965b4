// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads, validates, and persists pagechat configuration.
package config

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/pagechat/internal/extract"
	"github.com/jeranaias/pagechat/internal/llm"
	"github.com/jeranaias/pagechat/internal/prompt"
	"github.com/jeranaias/pagechat/internal/util"
)

// =============================================================================
// ENVIRONMENT VARIABLES
// =============================================================================

const (
	// EnvEndpointURL overrides endpoint.url.
	EnvEndpointURL = "PAGECHAT_ENDPOINT_URL"

	// EnvConfigPath overrides the config file location entirely.
	EnvConfigPath = "PAGECHAT_CONFIG"

	// EnvHistoryDB overrides history.path.
	EnvHistoryDB = "PAGECHAT_HISTORY_DB"
)

// =============================================================================
// CONFIG STRUCTURE
// =============================================================================

// Config is the root pagechat configuration. Zero-value numeric and string
// fields are filled from Default on load, so a partial config file is valid.
type Config struct {
	Endpoint EndpointConfig `toml:"endpoint" json:"endpoint"`
	Context  ContextConfig  `toml:"context" json:"context"`
	Extract  ExtractConfig  `toml:"extract" json:"extract"`
	UI       UIConfig       `toml:"ui" json:"ui"`
	Server   ServerConfig   `toml:"server" json:"server"`
	History  HistoryConfig  `toml:"history" json:"history"`
}

// EndpointConfig describes the completion endpoint and its retry policy.
type EndpointConfig struct {
	// URL is the completion endpoint. Empty means not configured; chat
	// operations fail with a setup hint until it is set.
	URL string `toml:"url" json:"url"`

	// TimeoutSeconds bounds each individual request attempt.
	TimeoutSeconds int `toml:"timeout_seconds" json:"timeout_seconds"`

	// MaxRetries is the total attempt budget per message.
	MaxRetries int `toml:"max_retries" json:"max_retries"`

	// RetryBaseDelayMS is the first backoff delay. It doubles per attempt.
	RetryBaseDelayMS int `toml:"retry_base_delay_ms" json:"retry_base_delay_ms"`
}

// ContextConfig controls how page content and history enter the prompt.
type ContextConfig struct {
	// MaxChars caps the page text embedded in the prompt, in runes.
	MaxChars int `toml:"max_chars" json:"max_chars"`

	// HistoryWindow is how many trailing messages are replayed per prompt.
	HistoryWindow int `toml:"history_window" json:"history_window"`
}

// ExtractConfig controls page fetching.
type ExtractConfig struct {
	// TimeoutSeconds bounds a whole fetch, including redirects.
	TimeoutSeconds int `toml:"timeout_seconds" json:"timeout_seconds"`

	// MaxResponseBytes caps how much of a page body is read.
	MaxResponseBytes int64 `toml:"max_response_bytes" json:"max_response_bytes"`

	// MaxRedirects caps the redirect chain.
	MaxRedirects int `toml:"max_redirects" json:"max_redirects"`

	// UserAgent is sent on every fetch.
	UserAgent string `toml:"user_agent" json:"user_agent"`

	// PerHostRPS rate-limits fetches per host. Explicit 0 disables
	// client-side limiting.
	PerHostRPS float64 `toml:"per_host_rps" json:"per_host_rps"`

	// PerHostBurst is the limiter burst size when PerHostRPS is set.
	PerHostBurst int `toml:"per_host_burst" json:"per_host_burst"`
}

// UIConfig controls terminal rendering.
type UIConfig struct {
	// Theme selects the color scheme: auto, dark, or light.
	Theme string `toml:"theme" json:"theme"`

	// Markdown renders assistant replies as markdown when true.
	Markdown bool `toml:"markdown" json:"markdown"`
}

// ServerConfig controls the local HTTP API.
type ServerConfig struct {
	// Port is the listen port for pagechat serve.
	Port int `toml:"port" json:"port"`

	// RateLimitPerMinute caps requests per client per minute.
	RateLimitPerMinute int `toml:"rate_limit_per_minute" json:"rate_limit_per_minute"`
}

// HistoryConfig controls the page visit log.
type HistoryConfig struct {
	// Enabled records page loads when true.
	Enabled bool `toml:"enabled" json:"enabled"`

	// MaxEntries is the retained visit count; older rows are pruned.
	MaxEntries int `toml:"max_entries" json:"max_entries"`

	// Path overrides the visit database location. Empty uses the config dir.
	Path string `toml:"path" json:"path"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

const (
	// DefaultTheme picks the scheme from the terminal background.
	DefaultTheme = "auto"

	// DefaultServerPort is the pagechat serve listen port.
	DefaultServerPort = 8989

	// DefaultServerRateLimit is requests per client per minute.
	DefaultServerRateLimit = 60

	// DefaultHistoryMaxEntries is the retained page visit count.
	DefaultHistoryMaxEntries = 500
)

// Default returns a fully populated configuration. Tuning values derive from
// the owning packages so there is a single source of truth per knob.
func Default() *Config {
	return &Config{
		Endpoint: EndpointConfig{
			URL:              "",
			TimeoutSeconds:   int(llm.DefaultTimeout / time.Second),
			MaxRetries:       llm.DefaultMaxRetries,
			RetryBaseDelayMS: int(llm.DefaultRetryBaseDelay / time.Millisecond),
		},
		Context: ContextConfig{
			MaxChars:      prompt.DefaultMaxContextChars,
			HistoryWindow: prompt.DefaultHistoryWindow,
		},
		Extract: ExtractConfig{
			TimeoutSeconds:   int(extract.DefaultTimeout / time.Second),
			MaxResponseBytes: extract.DefaultMaxResponseSize,
			MaxRedirects:     extract.DefaultMaxRedirects,
			UserAgent:        extract.DefaultUserAgent,
			PerHostRPS:       extract.DefaultPerHostRPS,
			PerHostBurst:     extract.DefaultPerHostBurst,
		},
		UI: UIConfig{
			Theme:    DefaultTheme,
			Markdown: true,
		},
		Server: ServerConfig{
			Port:               DefaultServerPort,
			RateLimitPerMinute: DefaultServerRateLimit,
		},
		History: HistoryConfig{
			Enabled:    true,
			MaxEntries: DefaultHistoryMaxEntries,
		},
	}
}

// =============================================================================
// PATHS
// =============================================================================

// ConfigDir returns the pagechat configuration directory (~/.pagechat).
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".pagechat"
	}
	return filepath.Join(home, ".pagechat")
}

// ConfigPathTOML returns the default config file path.
func ConfigPathTOML() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// ReplHistoryPath returns the interactive input history file path.
func ReplHistoryPath() string {
	return filepath.Join(ConfigDir(), "repl_history")
}

// EnsureConfigDir creates the configuration directory if needed.
func EnsureConfigDir() error {
	return os.MkdirAll(ConfigDir(), 0700)
}

// HistoryDBPath resolves the page visit database location: history.path when
// set, otherwise the config dir.
func (c *Config) HistoryDBPath() string {
	if c.History.Path != "" {
		return c.History.Path
	}
	return filepath.Join(ConfigDir(), "history.db")
}

// =============================================================================
// LOADING
// =============================================================================

// Load reads the configuration, falling back to defaults when no file
// exists. PAGECHAT_CONFIG overrides the file location; a path set there must
// exist.
func Load() (*Config, error) {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return LoadFromPath(p)
	}

	path := ConfigPathTOML()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := Default()
		cfg.applyEnvOverrides()
		return cfg, nil
	}

	return LoadFromPath(path)
}

// LoadFromPath reads and validates the config file at path. Keys absent from
// the file keep their defaults.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	cfg.applyEnvOverrides()
	cfg.fillDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides lets environment variables win over file values.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(EnvEndpointURL); v != "" {
		c.Endpoint.URL = v
	}
	if v := os.Getenv(EnvHistoryDB); v != "" {
		c.History.Path = v
	}
}

// fillDefaults mends zero-valued fields so explicit zeros in the file cannot
// disable core machinery. Extract.PerHostRPS stays as written: 0 is a
// meaningful off switch there.
func (c *Config) fillDefaults() {
	def := Default()

	if c.Endpoint.TimeoutSeconds == 0 {
		c.Endpoint.TimeoutSeconds = def.Endpoint.TimeoutSeconds
	}
	if c.Endpoint.MaxRetries == 0 {
		c.Endpoint.MaxRetries = def.Endpoint.MaxRetries
	}
	if c.Endpoint.RetryBaseDelayMS == 0 {
		c.Endpoint.RetryBaseDelayMS = def.Endpoint.RetryBaseDelayMS
	}
	if c.Context.MaxChars == 0 {
		c.Context.MaxChars = def.Context.MaxChars
	}
	if c.Context.HistoryWindow == 0 {
		c.Context.HistoryWindow = def.Context.HistoryWindow
	}
	if c.Extract.TimeoutSeconds == 0 {
		c.Extract.TimeoutSeconds = def.Extract.TimeoutSeconds
	}
	if c.Extract.MaxResponseBytes == 0 {
		c.Extract.MaxResponseBytes = def.Extract.MaxResponseBytes
	}
	if c.Extract.MaxRedirects == 0 {
		c.Extract.MaxRedirects = def.Extract.MaxRedirects
	}
	if c.Extract.UserAgent == "" {
		c.Extract.UserAgent = def.Extract.UserAgent
	}
	if c.Extract.PerHostBurst == 0 {
		c.Extract.PerHostBurst = def.Extract.PerHostBurst
	}
	if c.UI.Theme == "" {
		c.UI.Theme = def.UI.Theme
	}
	if c.Server.Port == 0 {
		c.Server.Port = def.Server.Port
	}
	if c.Server.RateLimitPerMinute == 0 {
		c.Server.RateLimitPerMinute = def.Server.RateLimitPerMinute
	}
	if c.History.MaxEntries == 0 {
		c.History.MaxEntries = def.History.MaxEntries
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError describes a single invalid field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors aggregates every invalid field found in one pass.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	msgs := make([]string, len(e))
	for i, ve := range e {
		msgs[i] = ve.Error()
	}
	return "invalid configuration: " + strings.Join(msgs, "; ")
}

// Validate checks every field and returns all problems at once, so a broken
// file is fixed in one edit instead of one error per run.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if c.Endpoint.URL != "" {
		u, err := url.Parse(c.Endpoint.URL)
		switch {
		case err != nil:
			errs = append(errs, ValidationError{"endpoint.url", "not a valid URL"})
		case u.Scheme != "http" && u.Scheme != "https":
			errs = append(errs, ValidationError{"endpoint.url", "scheme must be http or https"})
		case u.Host == "":
			errs = append(errs, ValidationError{"endpoint.url", "missing host"})
		}
	}
	if c.Endpoint.TimeoutSeconds < 1 || c.Endpoint.TimeoutSeconds > 300 {
		errs = append(errs, ValidationError{"endpoint.timeout_seconds", "must be between 1 and 300"})
	}
	if c.Endpoint.MaxRetries < 1 || c.Endpoint.MaxRetries > 10 {
		errs = append(errs, ValidationError{"endpoint.max_retries", "must be between 1 and 10"})
	}
	if c.Endpoint.RetryBaseDelayMS < 50 || c.Endpoint.RetryBaseDelayMS > 60000 {
		errs = append(errs, ValidationError{"endpoint.retry_base_delay_ms", "must be between 50 and 60000"})
	}

	if c.Context.MaxChars < 200 || c.Context.MaxChars > 1000000 {
		errs = append(errs, ValidationError{"context.max_chars", "must be between 200 and 1000000"})
	}
	if c.Context.HistoryWindow < 1 || c.Context.HistoryWindow > 100 {
		errs = append(errs, ValidationError{"context.history_window", "must be between 1 and 100"})
	}

	if c.Extract.TimeoutSeconds < 1 || c.Extract.TimeoutSeconds > 120 {
		errs = append(errs, ValidationError{"extract.timeout_seconds", "must be between 1 and 120"})
	}
	if c.Extract.MaxResponseBytes < 4096 || c.Extract.MaxResponseBytes > 50*1024*1024 {
		errs = append(errs, ValidationError{"extract.max_response_bytes", "must be between 4096 and 52428800"})
	}
	if c.Extract.MaxRedirects < 1 || c.Extract.MaxRedirects > 20 {
		errs = append(errs, ValidationError{"extract.max_redirects", "must be between 1 and 20"})
	}
	if c.Extract.PerHostRPS < 0 || c.Extract.PerHostRPS > 100 {
		errs = append(errs, ValidationError{"extract.per_host_rps", "must be between 0 and 100"})
	}
	if c.Extract.PerHostBurst < 1 || c.Extract.PerHostBurst > 100 {
		errs = append(errs, ValidationError{"extract.per_host_burst", "must be between 1 and 100"})
	}

	switch c.UI.Theme {
	case "auto", "dark", "light":
	default:
		errs = append(errs, ValidationError{"ui.theme", "must be auto, dark, or light"})
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, ValidationError{"server.port", "must be between 1 and 65535"})
	}
	if c.Server.RateLimitPerMinute < 1 || c.Server.RateLimitPerMinute > 6000 {
		errs = append(errs, ValidationError{"server.rate_limit_per_minute", "must be between 1 and 6000"})
	}

	if c.History.MaxEntries < 1 || c.History.MaxEntries > 100000 {
		errs = append(errs, ValidationError{"history.max_entries", "must be between 1 and 100000"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// SAVING
// =============================================================================

// Save writes cfg to the default config path.
func Save(cfg *Config) error {
	return SaveTOML(cfg, ConfigPathTOML())
}

// SaveTOML writes cfg to path atomically with owner-only permissions.
func SaveTOML(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("# pagechat configuration file\n")
	buf.WriteString("# Keys omitted here fall back to built-in defaults.\n\n")
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	return util.AtomicWriteFile(path, buf.Bytes(), 0600)
}

// =============================================================================
// COMPONENT CONFIG ADAPTERS
// =============================================================================

// CompletionConfig maps the endpoint section onto the completion client.
func (c *Config) CompletionConfig() llm.Config {
	return llm.Config{
		URL:            c.Endpoint.URL,
		Timeout:        time.Duration(c.Endpoint.TimeoutSeconds) * time.Second,
		MaxRetries:     c.Endpoint.MaxRetries,
		RetryBaseDelay: time.Duration(c.Endpoint.RetryBaseDelayMS) * time.Millisecond,
	}
}

// PromptConfig maps the context section onto the prompt assembler.
func (c *Config) PromptConfig() prompt.Config {
	return prompt.Config{
		MaxContextChars: c.Context.MaxChars,
		HistoryWindow:   c.Context.HistoryWindow,
	}
}

// ExtractorConfig maps the extract section onto the page extractor.
func (c *Config) ExtractorConfig() extract.Config {
	return extract.Config{
		Timeout:         time.Duration(c.Extract.TimeoutSeconds) * time.Second,
		MaxResponseSize: c.Extract.MaxResponseBytes,
		MaxRedirects:    c.Extract.MaxRedirects,
		UserAgent:       c.Extract.UserAgent,
		PerHostRPS:      c.Extract.PerHostRPS,
		PerHostBurst:    c.Extract.PerHostBurst,
	}
}
