// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package extract fetches web pages and reduces their HTML to readable text.
package extract

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jeranaias/pagechat/internal/util"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// DefaultTimeout bounds the whole fetch, including redirects.
	DefaultTimeout = 10 * time.Second

	// DefaultMaxResponseSize caps how much of a page body is read (2MB).
	DefaultMaxResponseSize = 2 * 1024 * 1024

	// DefaultMaxRedirects is the redirect chain limit.
	DefaultMaxRedirects = 5

	// DefaultUserAgent is the fixed desktop browser identity sent with every
	// fetch. Some sites serve stripped or blocked pages to non-browser agents.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	// DefaultPerHostRPS is the per-host fetch rate applied when none is set.
	DefaultPerHostRPS = 2.0

	// DefaultPerHostBurst is the limiter burst size that pairs with the
	// default rate.
	DefaultPerHostBurst = 4

	// maxTitleRunes bounds the derived page title.
	maxTitleRunes = 80
)

// ErrExtractionFailed is the single failure category for extraction. Every
// fetch or processing error wraps it; callers match with errors.Is.
var ErrExtractionFailed = errors.New("extraction failed")

// =============================================================================
// TYPES
// =============================================================================

// Page is the result of a successful extraction.
type Page struct {
	// URL is the final URL after scheme defaulting and redirects.
	URL string `json:"url"`

	// Title is derived from the first non-empty line of the extracted text.
	Title string `json:"title"`

	// Text is the reduced plain text of the page.
	Text string `json:"text"`

	// FetchedAt records when the page was retrieved.
	FetchedAt time.Time `json:"fetched_at"`
}

// Config holds extractor settings.
type Config struct {
	// Timeout is the overall per-request timeout.
	Timeout time.Duration

	// MaxResponseSize is the largest body, in bytes, the extractor will read.
	MaxResponseSize int64

	// MaxRedirects caps the redirect chain.
	MaxRedirects int

	// UserAgent is sent on every request.
	UserAgent string

	// PerHostRPS rate-limits fetches per host. Zero disables limiting.
	PerHostRPS float64

	// PerHostBurst is the limiter burst size when PerHostRPS is set.
	PerHostBurst int
}

// DefaultConfig returns the default extractor configuration.
func DefaultConfig() Config {
	return Config{
		Timeout:         DefaultTimeout,
		MaxResponseSize: DefaultMaxResponseSize,
		MaxRedirects:    DefaultMaxRedirects,
		UserAgent:       DefaultUserAgent,
		PerHostRPS:      DefaultPerHostRPS,
		PerHostBurst:    DefaultPerHostBurst,
	}
}

// Extractor fetches pages and reduces them to text. It holds no per-page
// state and is safe for concurrent use.
type Extractor struct {
	cfg     Config
	fetcher *fetcher
	limiter *hostLimiter
}

// New creates an Extractor, filling zero config values with defaults.
func New(cfg Config) *Extractor {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxResponseSize == 0 {
		cfg.MaxResponseSize = DefaultMaxResponseSize
	}
	if cfg.MaxRedirects == 0 {
		cfg.MaxRedirects = DefaultMaxRedirects
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}

	e := &Extractor{
		cfg:     cfg,
		fetcher: newFetcher(cfg),
	}
	if cfg.PerHostRPS > 0 {
		e.limiter = newHostLimiter(cfg.PerHostRPS, cfg.PerHostBurst)
	}
	return e
}

// =============================================================================
// EXTRACTION
// =============================================================================

// Extract fetches the URL and reduces the body to plain text. All failures
// wrap ErrExtractionFailed; there are no retries at this layer.
func (e *Extractor) Extract(ctx context.Context, rawURL string) (Page, error) {
	target, err := normalizeURL(rawURL)
	if err != nil {
		return Page{}, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	if e.limiter != nil {
		if err := e.limiter.wait(ctx, target.Hostname()); err != nil {
			return Page{}, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	body, finalURL, err := e.fetcher.fetch(ctx, target)
	if err != nil {
		return Page{}, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	text := reduceHTML(body)

	return Page{
		URL:       finalURL,
		Title:     util.TruncateRunes(util.FirstNonEmptyLine(text), maxTitleRunes),
		Text:      text,
		FetchedAt: time.Now(),
	}, nil
}

// normalizeURL parses the URL, defaulting the scheme to https when missing.
func normalizeURL(rawURL string) (*url.URL, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, errors.New("empty URL")
	}
	if !strings.Contains(rawURL, "://") {
		rawURL = "https://" + rawURL
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %v", err)
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Hostname() == "" {
		return nil, errors.New("URL has no host")
	}
	return u, nil
}
