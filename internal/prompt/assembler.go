// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package prompt assembles outbound prompts from page context and history.
package prompt

import (
	"strings"

	"github.com/jeranaias/pagechat/internal/model"
	"github.com/jeranaias/pagechat/internal/util"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// DefaultMaxContextChars bounds how much page text is embedded in the
	// system instruction, counted in runes.
	DefaultMaxContextChars = 4000

	// DefaultHistoryWindow is how many trailing transcript messages are
	// replayed (6 messages = 3 exchanges).
	DefaultHistoryWindow = 6

	// TruncationMarker is appended verbatim whenever context is cut.
	TruncationMarker = "\n...[content truncated]"
)

const (
	pagePreamble = "You are a helpful assistant. Use the following web page content to answer the user's questions. If the answer is not in the page, say so and answer from general knowledge."

	plainPreamble = "You are a helpful assistant. Answer the user's questions clearly and concisely."

	contextOpen  = "--- PAGE CONTENT ---"
	contextClose = "--- END PAGE CONTENT ---"
)

// =============================================================================
// ASSEMBLER
// =============================================================================

// Config holds prompt assembly policy. Values are policy, not tuning
// baked into call sites.
type Config struct {
	// MaxContextChars is the context budget in runes (K).
	MaxContextChars int

	// HistoryWindow is the number of trailing messages replayed (W).
	HistoryWindow int
}

// DefaultConfig returns the default prompt policy.
func DefaultConfig() Config {
	return Config{
		MaxContextChars: DefaultMaxContextChars,
		HistoryWindow:   DefaultHistoryWindow,
	}
}

// Assembler builds outbound prompt text. It is stateless; Build is a pure
// function of its arguments.
type Assembler struct {
	cfg Config
}

// New creates an Assembler, filling zero config values with defaults.
func New(cfg Config) *Assembler {
	if cfg.MaxContextChars == 0 {
		cfg.MaxContextChars = DefaultMaxContextChars
	}
	if cfg.HistoryWindow == 0 {
		cfg.HistoryWindow = DefaultHistoryWindow
	}
	return &Assembler{cfg: cfg}
}

// Build renders the full outbound prompt: system instruction with embedded
// context, the trailing history window as labeled lines, then the new
// question verbatim. The question is never truncated.
func (a *Assembler) Build(pageContext string, history []model.Message, question string) string {
	var b strings.Builder

	if strings.TrimSpace(pageContext) == "" {
		b.WriteString(plainPreamble)
	} else {
		b.WriteString(pagePreamble)
		b.WriteString("\n\n")
		b.WriteString(contextOpen)
		b.WriteString("\n")
		b.WriteString(a.TruncateContext(pageContext))
		b.WriteString("\n")
		b.WriteString(contextClose)
	}

	if window := model.LastN(history, a.cfg.HistoryWindow); len(window) > 0 {
		b.WriteString("\n\nConversation so far:\n")
		for _, msg := range window {
			label := historyLabel(msg.Role)
			if label == "" {
				continue
			}
			b.WriteString(label)
			b.WriteString(": ")
			b.WriteString(msg.Content)
			b.WriteString("\n")
		}
	}

	b.WriteString("\nUser question: ")
	b.WriteString(question)

	return b.String()
}

// TruncateContext cuts text to the first MaxContextChars runes and appends
// the truncation marker. Applying it twice yields the same result: the
// second pass re-cuts the identical prefix and re-appends the marker.
func (a *Assembler) TruncateContext(text string) string {
	if util.RuneLen(text) <= a.cfg.MaxContextChars {
		return text
	}
	return util.TruncateRunesNoEllipsis(text, a.cfg.MaxContextChars) + TruncationMarker
}

// historyLabel maps transcript roles to prompt line labels.
func historyLabel(r model.Role) string {
	switch r {
	case model.RoleUser:
		return "User"
	case model.RoleAssistant:
		return "Assistant"
	default:
		return ""
	}
}
