// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/jeranaias/pagechat/internal/commands"
)

// =============================================================================
// TAB COMPLETION
// =============================================================================
// First Tab computes suggestions for the current input and applies the best
// one. Repeated Tab cycles through the list, rewriting the input each time.
// Up/Down move the selection, Enter closes the menu, Esc abandons it, and
// typing anything else clears it.
// =============================================================================

// handleTabCompletion opens the completion menu or cycles it.
func (m Model) handleTabCompletion() Model {
	input := m.input.Value()
	if !strings.HasPrefix(input, "/") {
		return m
	}

	if m.completionState.Visible {
		m.completionState.Next()
		return m.applySelectedCompletion()
	}

	completions := m.completer.Complete(input)
	if len(completions) == 0 {
		return m
	}

	m.completionStart = findCompletionStart(input)
	m.completionState.SetCompletions(completions)
	m = m.applySelectedCompletion()
	if len(completions) == 1 {
		m.completionState.Clear()
	}
	return m.layout()
}

// acceptCompletion keeps the applied suggestion and closes the menu.
func (m Model) acceptCompletion() Model {
	if comp, ok := m.completionState.Accept(); ok {
		m = m.applyCompletion(comp)
	}
	return m.layout()
}

// clearCompletions abandons the menu.
func (m Model) clearCompletions() Model {
	if !m.completionState.Visible && len(m.completionState.Completions) == 0 {
		return m
	}
	m.completionState.Clear()
	return m.layout()
}

// applySelectedCompletion rewrites the input with the highlighted suggestion.
func (m Model) applySelectedCompletion() Model {
	sel := m.completionState.Selected
	if sel < 0 || sel >= len(m.completionState.Completions) {
		return m
	}
	return m.applyCompletion(m.completionState.Completions[sel])
}

func (m Model) applyCompletion(comp commands.Completion) Model {
	input := m.input.Value()
	start := m.completionStart
	if start > len(input) {
		start = len(input)
	}

	value := comp.Value
	// Completed command names that take arguments get a trailing space so
	// the user can keep typing.
	if start == 0 {
		if cmd, ok := m.registry.Get(strings.TrimPrefix(value, "/")); ok && len(cmd.Args) > 0 {
			value += " "
		}
	}

	m.input.SetValue(input[:start] + value)
	m.input.CursorEnd()
	return m
}

// findCompletionStart locates the start of the token being completed.
func findCompletionStart(input string) int {
	if idx := strings.LastIndexAny(input, " \t"); idx >= 0 {
		return idx + 1
	}
	return 0
}
