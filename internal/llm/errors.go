// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package llm talks to the remote completion endpoint.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// ERROR TAXONOMY
// =============================================================================

// Non-retryable failures. Each sentinel carries its remediation hint; the
// client aborts on these without burning further attempts.
var (
	// ErrInvalidCredential means the endpoint rejected the request identity.
	ErrInvalidCredential = errors.New("invalid API credential - verify the key configured for the endpoint")

	// ErrModelNotFound means the endpoint's configured model does not exist.
	ErrModelNotFound = errors.New("model not found - check the model name configured for the endpoint")

	// ErrBillingDisabled means the endpoint's API project has no billing.
	ErrBillingDisabled = errors.New("billing not enabled - enable billing on the API project and retry")
)

// ErrNoResponse covers responses that parse but carry no usable payload.
// It is retryable: proxies and gateways emit these transiently.
var ErrNoResponse = errors.New("no response from API")

// APIError is a retryable endpoint failure with optional HTTP status.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("API error (HTTP %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("API error: %s", e.Message)
}

// =============================================================================
// CLASSIFICATION
// =============================================================================

// classifyStatus maps an HTTP status and body excerpt onto the taxonomy.
// Statuses that identify a non-retryable cause map directly; everything else
// falls through to message classification.
func classifyStatus(status int, body string) error {
	switch status {
	case 401, 403:
		return fmt.Errorf("%w (HTTP %d)", ErrInvalidCredential, status)
	case 402:
		return fmt.Errorf("%w (HTTP %d)", ErrBillingDisabled, status)
	case 404:
		return fmt.Errorf("%w (HTTP %d)", ErrModelNotFound, status)
	case 429:
		return &APIError{Status: status, Message: "rate limited: " + excerpt(body)}
	}
	if status >= 500 {
		return &APIError{Status: status, Message: excerpt(body)}
	}
	return classifyMessage(status, body)
}

// classifyMessage maps endpoint error text onto the taxonomy. Unrecognized
// text stays retryable.
func classifyMessage(status int, message string) error {
	lower := strings.ToLower(message)

	switch {
	case strings.Contains(lower, "api key") ||
		strings.Contains(lower, "credential") ||
		strings.Contains(lower, "unauthorized") ||
		strings.Contains(lower, "permission denied"):
		return fmt.Errorf("%w: %s", ErrInvalidCredential, excerpt(message))

	case strings.Contains(lower, "billing"):
		return fmt.Errorf("%w: %s", ErrBillingDisabled, excerpt(message))

	case strings.Contains(lower, "model") &&
		(strings.Contains(lower, "not found") || strings.Contains(lower, "does not exist")):
		return fmt.Errorf("%w: %s", ErrModelNotFound, excerpt(message))
	}

	return &APIError{Status: status, Message: excerpt(message)}
}

// isRetryable reports whether another attempt could change the outcome.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}

	// A canceled caller never retries.
	if errors.Is(err, context.Canceled) {
		return false
	}

	if errors.Is(err, ErrInvalidCredential) ||
		errors.Is(err, ErrModelNotFound) ||
		errors.Is(err, ErrBillingDisabled) {
		return false
	}

	// Timeouts, rate limits, 5xx, malformed payloads, transport faults, and
	// anything unrecognized: retry.
	return true
}

// excerpt trims error bodies for log and error text.
func excerpt(s string) string {
	s = strings.TrimSpace(s)
	const max = 200
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsInvalidCredential reports whether err is the credential failure.
func IsInvalidCredential(err error) bool {
	return errors.Is(err, ErrInvalidCredential)
}

// IsModelNotFound reports whether err is the unknown-model failure.
func IsModelNotFound(err error) bool {
	return errors.Is(err, ErrModelNotFound)
}

// IsBillingDisabled reports whether err is the billing failure.
func IsBillingDisabled(err error) bool {
	return errors.Is(err, ErrBillingDisabled)
}

// IsNoResponse reports whether err is the malformed-payload failure.
func IsNoResponse(err error) bool {
	return errors.Is(err, ErrNoResponse)
}
