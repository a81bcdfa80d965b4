// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package shape normalizes model reply text for display.
//
// Replies arrive with uneven markdown: stacked emphasis markers, mixed
// bullet styles, and runs of blank lines. Normalize applies a fixed sequence
// of text-to-text passes and nothing else; it holds no state and performs
// no I/O, so the same input always shapes to the same output.
package shape

import (
	"regexp"
	"strings"
)

// Pre-compiled patterns, one per pass.
var (
	// Runs of 3+ emphasis markers collapse to a plain bold marker.
	starRunRegex       = regexp.MustCompile(`\*{3,}`)
	underscoreRunRegex = regexp.MustCompile(`_{3,}`)

	// Alternative bullet markers at line start normalize to "- ".
	bulletRegex = regexp.MustCompile(`(?m)^([ \t]*)[*+•]\s+`)

	// Runs of blank lines cap at one empty line.
	newlineRunRegex = regexp.MustCompile(`\n{3,}`)

	// A sentence end directly followed by a list item or a capitalized line
	// gets a separating blank line.
	sentenceBreakRegex = regexp.MustCompile(`([.!?:])\n(- |\d+\. |[A-Z])`)
)

// Normalize shapes reply text for display. Passes run in a fixed order:
// emphasis collapse, bullet normalization, blank-line capping, then
// paragraph separation.
func Normalize(text string) string {
	text = starRunRegex.ReplaceAllString(text, "**")
	text = underscoreRunRegex.ReplaceAllString(text, "__")

	text = bulletRegex.ReplaceAllString(text, "${1}- ")

	text = newlineRunRegex.ReplaceAllString(text, "\n\n")

	text = sentenceBreakRegex.ReplaceAllString(text, "$1\n\n$2")

	return strings.TrimSpace(text)
}
