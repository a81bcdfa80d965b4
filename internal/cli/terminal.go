// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// terminal.go - Terminal capability detection for CLI output.
//
// Detection results drive three decisions: whether to render markdown
// (stdout TTY), whether to emit color (NO_COLOR / FORCE_COLOR / TTY),
// and how wide to wrap rendered output.
package cli

import (
	"os"
	"sync"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

const (
	// DefaultTerminalWidth is assumed when the real width is unknown.
	DefaultTerminalWidth = 80

	// MinTerminalWidth is the floor for wrapped output.
	MinTerminalWidth = 40
)

// IsTTY reports whether stdin is attached to a terminal.
func IsTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// IsStdoutTTY reports whether stdout is attached to a terminal. Markdown
// rendering and color output key off this, so piped output stays plain.
func IsStdoutTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// IsStderrTTY reports whether stderr is attached to a terminal.
func IsStderrTTY() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
}

// CanPrompt reports whether interactive input is possible: both stdin and
// stdout must be terminals. The REPL refuses to start without it.
func CanPrompt() bool {
	return IsTTY() && IsStdoutTTY()
}

// GetTerminalWidth returns the stdout width, clamped to MinTerminalWidth,
// or DefaultTerminalWidth when stdout is not a terminal.
func GetTerminalWidth() int {
	if !IsStdoutTTY() {
		return DefaultTerminalWidth
	}
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return DefaultTerminalWidth
	}
	if width < MinTerminalWidth {
		return MinTerminalWidth
	}
	return width
}

var (
	colorsOnce    sync.Once
	colorsEnabled bool
)

// ColorsEnabled reports whether output should use color. Precedence:
// NO_COLOR disables, FORCE_COLOR enables, otherwise stdout must be a TTY.
// The result is computed once; the environment does not change mid-run.
func ColorsEnabled() bool {
	colorsOnce.Do(func() {
		if os.Getenv("NO_COLOR") != "" {
			colorsEnabled = false
			return
		}
		if os.Getenv("FORCE_COLOR") != "" {
			colorsEnabled = true
			return
		}
		colorsEnabled = IsStdoutTTY()
	})
	return colorsEnabled
}

// GetColorProfile returns the termenv profile matching ColorsEnabled.
// Lipgloss styles are pinned to this profile in styles.go.
func GetColorProfile() termenv.Profile {
	if !ColorsEnabled() {
		return termenv.Ascii
	}
	return termenv.ColorProfile()
}
