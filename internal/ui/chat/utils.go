// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
)

// wrapText wraps text to a maximum display width, measuring wide characters
// with go-runewidth so CJK text and emoji break where the terminal renders
// them. It preserves existing line breaks and prefers breaking at spaces.
func wrapText(text string, maxWidth int) string {
	if maxWidth <= 0 {
		return text
	}

	var result strings.Builder
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			result.WriteString("\n")
		}
		if runewidth.StringWidth(line) <= maxWidth {
			result.WriteString(line)
			continue
		}
		result.WriteString(wrapLine(line, maxWidth))
	}

	return result.String()
}

// wrapLine breaks one overlong line, backtracking to the last space that
// still fits and falling back to a hard break for unbroken runs.
func wrapLine(line string, maxWidth int) string {
	var result strings.Builder
	runes := []rune(line)

	for len(runes) > 0 {
		width := 0
		fit := len(runes)
		lastSpace := -1
		for i, r := range runes {
			width += runewidth.RuneWidth(r)
			if width > maxWidth {
				fit = i
				break
			}
			if r == ' ' {
				lastSpace = i
			}
		}
		if fit == len(runes) {
			result.WriteString(string(runes))
			break
		}

		breakPoint := fit
		if lastSpace > 0 {
			breakPoint = lastSpace
		}
		if breakPoint == 0 {
			// A single rune wider than the limit still has to go somewhere.
			breakPoint = 1
		}
		result.WriteString(string(runes[:breakPoint]))
		result.WriteString("\n")
		runes = []rune(strings.TrimLeft(string(runes[breakPoint:]), " "))
	}

	return result.String()
}

// formatRelativeTime renders a timestamp as a short age like "2h ago".
func formatRelativeTime(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

// formatChars renders a rune count compactly: 842, 4.2k.
func formatChars(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	return fmt.Sprintf("%.1fk", float64(n)/1000)
}
