// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes chat transcripts to Markdown, JSON, and HTML files.
package export

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/jeranaias/pagechat/internal/model"
	"github.com/jeranaias/pagechat/internal/util"
)

// =============================================================================
// TRANSCRIPT SNAPSHOT
// =============================================================================

// Transcript is the exportable snapshot of one conversation.
type Transcript struct {
	// PageURL is the page the conversation is about, when one is loaded.
	PageURL string `json:"page_url,omitempty"`

	// PageTitle is the derived title of that page.
	PageTitle string `json:"page_title,omitempty"`

	// ContextChars is the size of the loaded page text, in runes.
	ContextChars int `json:"context_chars,omitempty"`

	// ExportedAt records when the snapshot was taken.
	ExportedAt time.Time `json:"exported_at"`

	// Messages is the transcript, oldest first.
	Messages []model.Message `json:"messages"`
}

// Title returns a human name for the transcript: the page title, the page
// host, or a fallback.
func (t *Transcript) Title() string {
	if t.PageTitle != "" {
		return t.PageTitle
	}
	if t.PageURL != "" {
		if u, err := url.Parse(t.PageURL); err == nil && u.Host != "" {
			return u.Host
		}
		return t.PageURL
	}
	return "pagechat conversation"
}

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter renders a transcript in one target format.
type Exporter interface {
	// Export renders the transcript and returns the file content.
	Export(t *Transcript) ([]byte, error)

	// FileExtension returns the output extension (e.g. ".md").
	FileExtension() string

	// MimeType returns the MIME type of the format.
	MimeType() string
}

// =============================================================================
// OPTIONS
// =============================================================================

// Options configures export behavior.
type Options struct {
	// OutputDir is where files are written. Default: current directory.
	OutputDir string

	// IncludeMetadata includes the header block (page, timestamps, counts).
	IncludeMetadata bool

	// IncludeTimestamps includes per-message timestamps.
	IncludeTimestamps bool

	// Theme for HTML export: "dark" or "light".
	Theme string
}

// DefaultOptions returns the default export options.
func DefaultOptions() *Options {
	return &Options{
		OutputDir:         ".",
		IncludeMetadata:   true,
		IncludeTimestamps: true,
		Theme:             "dark",
	}
}

// =============================================================================
// EXPORT FUNCTIONS
// =============================================================================

// ForFormat returns the exporter for a format name. Accepted names: md,
// markdown, json, html, htm.
func ForFormat(format string, opts *Options) (Exporter, error) {
	switch format {
	case "md", "markdown":
		return NewMarkdownExporter(opts), nil
	case "json":
		return NewJSONExporter(opts), nil
	case "html", "htm":
		return NewHTMLExporter(opts), nil
	default:
		return nil, fmt.Errorf("unsupported export format %q (want md, json, or html)", format)
	}
}

// ToFile renders the transcript and writes it under opts.OutputDir. When
// path is empty a timestamped filename is derived from the transcript title.
// Returns the written path.
func ToFile(t *Transcript, format string, path string, opts *Options) (string, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	exporter, err := ForFormat(format, opts)
	if err != nil {
		return "", err
	}

	content, err := exporter.Export(t)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}

	outputPath := path
	if outputPath == "" {
		timestamp := time.Now().Format("20060102_150405")
		filename := fmt.Sprintf("pagechat_%s_%s%s",
			sanitizeFilename(t.Title()),
			timestamp,
			exporter.FileExtension(),
		)
		outputPath = filepath.Join(opts.OutputDir, filename)
	}

	if dir := filepath.Dir(outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("create output directory: %w", err)
		}
	}

	if err := util.AtomicWriteFile(outputPath, content, 0644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}

	return outputPath, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// sanitizeFilename replaces characters that are invalid in filenames.
func sanitizeFilename(s string) string {
	maxLen := 50
	runes := []rune(s)
	if len(runes) > maxLen {
		s = string(runes[:maxLen])
	}

	replacer := map[rune]rune{
		'/':  '-',
		'\\': '-',
		':':  '-',
		'*':  '-',
		'?':  '-',
		'"':  '-',
		'<':  '-',
		'>':  '-',
		'|':  '-',
		' ':  '_',
		'\t': '_',
		'\n': '_',
		'\r': '_',
	}

	result := []rune{}
	for _, r := range s {
		if replacement, found := replacer[r]; found {
			result = append(result, replacement)
		} else if r < 32 || r == 127 {
			result = append(result, '-')
		} else {
			result = append(result, r)
		}
	}

	if len(result) == 0 {
		return "conversation"
	}

	return string(result)
}

// formatTimestamp formats a timestamp for human-readable footers.
func formatTimestamp(t time.Time) string {
	return t.Format("January 2, 2006 at 3:04 PM")
}

// formatShortTimestamp formats a timestamp for inline display.
func formatShortTimestamp(t time.Time) string {
	return t.Format("15:04:05")
}
