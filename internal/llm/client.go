// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package llm talks to the remote completion endpoint.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// DefaultTimeout bounds each individual attempt.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxRetries is the total attempt budget per send.
	DefaultMaxRetries = 3

	// DefaultRetryBaseDelay is the first backoff; it doubles per attempt.
	DefaultRetryBaseDelay = 1 * time.Second

	// retryMaxDelay caps the doubling.
	retryMaxDelay = 30 * time.Second

	// maxResponseBytes caps how much of a reply body is read (10MB).
	maxResponseBytes = 10 * 1024 * 1024
)

// ErrNotConfigured means no endpoint URL is set.
var ErrNotConfigured = errors.New("completion endpoint not configured - set endpoint.url in config.toml or PAGECHAT_ENDPOINT_URL")

// =============================================================================
// WIRE TYPES
// =============================================================================

// chatRequest is the outbound payload. The assembled prompt travels as one
// free-text message; the endpoint holds no session state.
type chatRequest struct {
	Message string `json:"message"`
}

// chatResponse is every shape the endpoint answers with. Success carries
// status "success" and a non-empty response; failure carries error text.
type chatResponse struct {
	Status   string `json:"status"`
	Response string `json:"response"`
	Error    string `json:"error"`
}

// =============================================================================
// CLIENT
// =============================================================================

// Config holds endpoint client settings.
type Config struct {
	// URL is the completion endpoint.
	URL string

	// Timeout applies per attempt, not across the whole retry budget.
	Timeout time.Duration

	// MaxRetries is the total number of attempts.
	MaxRetries int

	// RetryBaseDelay seeds the doubling backoff between attempts.
	RetryBaseDelay time.Duration
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() Config {
	return Config{
		Timeout:        DefaultTimeout,
		MaxRetries:     DefaultMaxRetries,
		RetryBaseDelay: DefaultRetryBaseDelay,
	}
}

// Client sends prompts to the completion endpoint. No credentials travel
// with requests; the endpoint is reachable by URL alone.
type Client struct {
	url        string
	timeout    time.Duration
	maxRetries int
	baseDelay  time.Duration
	httpClient *http.Client
}

// New creates a Client, filling zero config values with defaults.
func New(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.RetryBaseDelay == 0 {
		cfg.RetryBaseDelay = DefaultRetryBaseDelay
	}

	return &Client{
		url:        strings.TrimSpace(cfg.URL),
		timeout:    cfg.Timeout,
		maxRetries: cfg.MaxRetries,
		baseDelay:  cfg.RetryBaseDelay,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// WithHTTPClient swaps the underlying HTTP client. Used by tests and by
// callers that need custom transports.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// =============================================================================
// SEND WITH RETRY
// =============================================================================

// Send posts the prompt and returns the endpoint's reply text.
//
// RELIABILITY: Bounded retry with exponential backoff between attempts only.
// Non-retryable failures abort immediately; exhaustion reports the attempt
// count with the last underlying error.
func (c *Client) Send(ctx context.Context, prompt string) (string, error) {
	if c.url == "" {
		return "", ErrNotConfigured
	}

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.backoffDelay(attempt)
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("request canceled during backoff: %w", ctx.Err())
			case <-time.After(delay):
			}
		}

		reply, err := c.send(ctx, prompt)
		if err == nil {
			return reply, nil
		}
		lastErr = err

		if !isRetryable(err) {
			return "", err
		}
	}

	return "", fmt.Errorf("request failed after %d attempts: %w", c.maxRetries, lastErr)
}

// backoffDelay returns the wait before the given attempt (1-based for the
// first retry): base, 2x base, 4x base, capped.
func (c *Client) backoffDelay(attempt int) time.Duration {
	delay := c.baseDelay << (attempt - 1)
	if delay > retryMaxDelay || delay <= 0 {
		return retryMaxDelay
	}
	return delay
}

// send performs one attempt.
func (c *Client) send(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload, err := json.Marshal(chatRequest{Message: prompt})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.New().String())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Error bodies often carry structured text worth classifying.
		var parsed chatResponse
		if json.Unmarshal(body, &parsed) == nil && parsed.Error != "" {
			return "", classifyStatus(resp.StatusCode, parsed.Error)
		}
		return "", classifyStatus(resp.StatusCode, string(body))
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("%w: unparseable body", ErrNoResponse)
	}

	if parsed.Error != "" {
		return "", classifyMessage(0, parsed.Error)
	}
	if parsed.Status != "success" || parsed.Response == "" {
		return "", ErrNoResponse
	}

	return parsed.Response, nil
}
