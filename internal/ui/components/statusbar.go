// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/pagechat/internal/ui/styles"
)

// =============================================================================
// STATUS BAR COMPONENT
// =============================================================================

// Status represents the current application status shown on the left of
// the bar.
type Status int

const (
	StatusReady Status = iota
	StatusThinking
	StatusError
)

// String returns the display string for the status.
func (s Status) String() string {
	switch s {
	case StatusReady:
		return "Ready"
	case StatusThinking:
		return "Thinking..."
	case StatusError:
		return "Error"
	default:
		return "Unknown"
	}
}

// StatusBar renders the single-line bar at the bottom of the TUI. Left
// sections carry state, right sections carry hints. When the bar overflows
// the width, right-hand hints are dropped first.
type StatusBar struct {
	Width  int
	Status Status
	Left   []string
	Right  []string
}

// View renders the bar padded to the full width.
func (s StatusBar) View() string {
	width := s.Width
	if width <= 0 {
		width = 80
	}

	statusStyle := lipgloss.NewStyle().Foreground(s.statusColor()).Bold(true)
	sectionStyle := lipgloss.NewStyle().Foreground(styles.TextSecondary)
	barStyle := lipgloss.NewStyle().
		Background(styles.SurfaceDim).
		Width(width).
		Padding(0, 1)

	left := statusStyle.Render(s.Status.String())
	for _, section := range s.Left {
		left += sectionStyle.Render(" | " + section)
	}

	right := strings.Join(s.Right, " | ")
	hints := s.Right
	for lipgloss.Width(left)+lipgloss.Width(right)+4 > width && len(hints) > 0 {
		hints = hints[:len(hints)-1]
		right = strings.Join(hints, " | ")
	}
	right = sectionStyle.Render(right)

	gap := width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}

	return barStyle.Render(left + strings.Repeat(" ", gap) + right)
}

func (s StatusBar) statusColor() lipgloss.AdaptiveColor {
	switch s.Status {
	case StatusThinking:
		return styles.Amber
	case StatusError:
		return styles.Rose
	default:
		return styles.Emerald
	}
}
