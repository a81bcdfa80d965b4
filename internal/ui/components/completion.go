// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/pagechat/internal/commands"
	"github.com/jeranaias/pagechat/internal/ui/styles"
)

// =============================================================================
// COMPLETION POPUP COMPONENT
// =============================================================================

// CompletionPopup displays tab completion suggestions above the input line.
type CompletionPopup struct {
	completions []commands.Completion
	selected    int
	maxVisible  int
	width       int
}

// NewCompletionPopup creates a popup with default dimensions.
func NewCompletionPopup() *CompletionPopup {
	return &CompletionPopup{
		maxVisible: 6,
		width:      50,
	}
}

// SetCompletions sets the suggestions to display.
func (c *CompletionPopup) SetCompletions(completions []commands.Completion) {
	c.completions = completions
	c.selected = 0
}

// SetSelected sets the highlighted index.
func (c *CompletionPopup) SetSelected(index int) {
	if index < 0 || index >= len(c.completions) {
		return
	}
	c.selected = index
}

// SetWidth sets the popup width.
func (c *CompletionPopup) SetWidth(width int) {
	if width > 10 {
		c.width = width
	}
}

// SetMaxVisible caps how many suggestions show at once.
func (c *CompletionPopup) SetMaxVisible(max int) {
	if max > 0 {
		c.maxVisible = max
	}
}

// View renders the popup box, or an empty string with no suggestions.
func (c *CompletionPopup) View() string {
	if len(c.completions) == 0 {
		return ""
	}

	// Scrolling window centered on the selection.
	start := 0
	end := len(c.completions)
	if len(c.completions) > c.maxVisible {
		start = c.selected - c.maxVisible/2
		if start < 0 {
			start = 0
		}
		end = start + c.maxVisible
		if end > len(c.completions) {
			end = len(c.completions)
			start = end - c.maxVisible
			if start < 0 {
				start = 0
			}
		}
	}

	items := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		items = append(items, c.renderItem(c.completions[i], i == c.selected))
	}

	boxStyle := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(styles.Cyan).
		Padding(0, 1).
		Width(c.width).
		MaxWidth(c.width)

	return boxStyle.Render(strings.Join(items, "\n"))
}

// renderItem renders one suggestion row.
func (c *CompletionPopup) renderItem(comp commands.Completion, isSelected bool) string {
	valueStyle := lipgloss.NewStyle().
		Width(20).
		Foreground(styles.TextPrimary)
	descStyle := lipgloss.NewStyle().
		Width(c.width - 24).
		Foreground(styles.TextSecondary)

	if isSelected {
		valueStyle = valueStyle.
			Background(styles.Cyan).
			Foreground(styles.Surface).
			Bold(true)
		descStyle = descStyle.Foreground(styles.TextPrimary)
	}

	value := comp.Display
	if value == "" {
		value = comp.Value
	}
	if runes := []rune(value); len(runes) > 20 {
		value = string(runes[:17]) + "..."
	}

	desc := comp.Description
	maxDescLen := c.width - 24
	if runes := []rune(desc); maxDescLen > 3 && len(runes) > maxDescLen {
		desc = string(runes[:maxDescLen-3]) + "..."
	}

	indicator := " "
	if isSelected {
		indicator = ">"
	}
	indicatorStyle := lipgloss.NewStyle().
		Width(2).
		Foreground(styles.Cyan)

	return lipgloss.JoinHorizontal(
		lipgloss.Left,
		indicatorStyle.Render(indicator),
		valueStyle.Render(value),
		descStyle.Render(desc),
	)
}
