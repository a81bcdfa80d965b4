// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"
	"testing"
	"time"
)

func TestWrapText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxWidth int
		want     string
	}{
		{
			name:     "short line unchanged",
			input:    "hello world",
			maxWidth: 40,
			want:     "hello world",
		},
		{
			name:     "breaks at space",
			input:    "alpha beta gamma",
			maxWidth: 11,
			want:     "alpha beta\ngamma",
		},
		{
			name:     "preserves existing newlines",
			input:    "one\ntwo",
			maxWidth: 40,
			want:     "one\ntwo",
		},
		{
			name:     "hard break without spaces",
			input:    "abcdefghij",
			maxWidth: 4,
			want:     "abcd\nefgh\nij",
		},
		{
			name:     "zero width is passthrough",
			input:    "anything at all",
			maxWidth: 0,
			want:     "anything at all",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := wrapText(tt.input, tt.maxWidth); got != tt.want {
				t.Errorf("wrapText(%q, %d) = %q, want %q", tt.input, tt.maxWidth, got, tt.want)
			}
		})
	}
}

func TestWrapTextKeepsAllRunes(t *testing.T) {
	// Wrapping may turn spaces into newlines but must never drop runes.
	input := "日本語のテキストはマルチバイトです and some ascii too"
	wrapped := wrapText(input, 10)

	strip := strings.NewReplacer("\n", "", " ", "")
	if strip.Replace(wrapped) != strip.Replace(input) {
		t.Errorf("wrapText dropped runes:\n got %q\nwant %q", wrapped, input)
	}
}

func TestWrapTextMeasuresDisplayWidth(t *testing.T) {
	// CJK characters occupy two terminal cells, so ten of them must wrap at
	// a display width of 10 even though the rune count is under the limit.
	input := "日本語のテキストです"
	wrapped := wrapText(input, 10)

	lines := strings.Split(wrapped, "\n")
	if len(lines) < 2 {
		t.Fatalf("expected wide text to wrap, got %q", wrapped)
	}
	for _, line := range lines {
		if n := len([]rune(line)); n > 5 {
			t.Errorf("line %q has %d double-width runes, exceeds width 10", line, n)
		}
	}
}

func TestFormatRelativeTime(t *testing.T) {
	now := time.Now()
	tests := []struct {
		t    time.Time
		want string
	}{
		{now.Add(-10 * time.Second), "just now"},
		{now.Add(-5 * time.Minute), "5m ago"},
		{now.Add(-3 * time.Hour), "3h ago"},
		{now.Add(-49 * time.Hour), "2d ago"},
	}
	for _, tt := range tests {
		if got := formatRelativeTime(tt.t); got != tt.want {
			t.Errorf("formatRelativeTime(%v) = %q, want %q", tt.t, got, tt.want)
		}
	}
}

func TestFormatChars(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, "0"},
		{842, "842"},
		{1500, "1.5k"},
		{120000, "120.0k"},
	}
	for _, tt := range tests {
		if got := formatChars(tt.n); got != tt.want {
			t.Errorf("formatChars(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}
