// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Unified error handling for pagechat commands.
//
// Handlers always return errors instead of printing and exiting on their
// own. main displays the error once with DisplayError and exits with the
// code ExitCode maps it to, so scripts can branch on the failure class.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/jeranaias/pagechat/internal/config"
	"github.com/jeranaias/pagechat/internal/extract"
	"github.com/jeranaias/pagechat/internal/llm"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	// ExitSuccess indicates successful execution.
	ExitSuccess = 0
	// ExitGeneralError indicates a general/unknown error.
	ExitGeneralError = 1
	// ExitUsageError indicates invalid command usage or arguments.
	ExitUsageError = 2
	// ExitConfigError indicates a configuration problem, including an
	// unconfigured completion endpoint.
	ExitConfigError = 3
	// ExitAuthError indicates the endpoint rejected our identity.
	ExitAuthError = 4
	// ExitNetworkError indicates a fetch or endpoint connectivity failure.
	ExitNetworkError = 5
	// ExitNotFoundError indicates a missing resource such as the model.
	ExitNotFoundError = 7
	// ExitTimeoutError indicates an operation timed out.
	ExitTimeoutError = 8
)

// UsageError reports invalid command-line usage. It carries the command
// name so the message can point at the right help text.
type UsageError struct {
	Command string
	Reason  string
}

func (e *UsageError) Error() string {
	if e.Command == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s (see 'pagechat help')", e.Command, e.Reason)
}

// NewUsageError creates a usage error for a command.
func NewUsageError(command, reason string) error {
	return &UsageError{Command: command, Reason: reason}
}

// ExitCode maps an error onto a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var usage *UsageError
	if errors.As(err, &usage) {
		return ExitUsageError
	}

	var verrs config.ValidateErrors
	if errors.As(err, &verrs) {
		return ExitConfigError
	}

	var apiErr *llm.APIError
	switch {
	case errors.Is(err, llm.ErrNotConfigured):
		return ExitConfigError
	case errors.Is(err, llm.ErrInvalidCredential), errors.Is(err, llm.ErrBillingDisabled):
		return ExitAuthError
	case errors.Is(err, llm.ErrModelNotFound):
		return ExitNotFoundError
	case errors.Is(err, context.DeadlineExceeded):
		return ExitTimeoutError
	case errors.Is(err, extract.ErrExtractionFailed),
		errors.Is(err, llm.ErrNoResponse),
		errors.As(err, &apiErr):
		return ExitNetworkError
	}

	return ExitGeneralError
}

// DisplayError prints an error in the standard format. The non-retryable
// endpoint errors already carry their remediation hint in the message.
func DisplayError(err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(os.Stderr)
	fmt.Fprintf(os.Stderr, "%s %s\n", ErrorStyle.Render("[ERROR]"), err.Error())
	fmt.Fprintln(os.Stderr)
}
