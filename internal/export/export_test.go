// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jeranaias/pagechat/internal/model"
)

func sampleTranscript() *Transcript {
	base := time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC)
	msgs := []model.Message{
		{ID: "m1", Role: model.RoleUser, Timestamp: base, Content: "What does this page say about retries?"},
		{ID: "m2", Role: model.RoleAssistant, Timestamp: base.Add(2 * time.Second), Content: "It retries with backoff:\n\n```go\nfor i := 0; i < 3; i++ {\n\ttry()\n}\n```\n\nUse `maxRetries` to tune it."},
		{ID: "m3", Role: model.RoleUser, Timestamp: base.Add(10 * time.Second), Content: "Thanks!"},
	}
	return &Transcript{
		PageURL:      "https://example.com/docs/retries",
		PageTitle:    "Retry Guide",
		ContextChars: 3200,
		ExportedAt:   base.Add(time.Minute),
		Messages:     msgs,
	}
}

// =============================================================================
// MARKDOWN
// =============================================================================

func TestMarkdownExport(t *testing.T) {
	out, err := NewMarkdownExporter(nil).Export(sampleTranscript())
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	content := string(out)

	for _, want := range []string{
		"title: Retry Guide",
		"source: https://example.com/docs/retries",
		"generator: pagechat",
		"# Retry Guide",
		"- **URL**: https://example.com/docs/retries",
		"### [User]",
		"### [Assistant]",
		"What does this page say about retries?",
		"```go",
		"*Exported from pagechat on",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestMarkdownExport_NoMetadata(t *testing.T) {
	opts := DefaultOptions()
	opts.IncludeMetadata = false
	opts.IncludeTimestamps = false

	out, err := NewMarkdownExporter(opts).Export(sampleTranscript())
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	content := string(out)

	if strings.Contains(content, "---\ntitle:") {
		t.Error("frontmatter should be omitted without metadata")
	}
	if strings.Contains(content, "<sub>") {
		t.Error("timestamps should be omitted")
	}
}

func TestMarkdownExport_EscapesTitle(t *testing.T) {
	tr := sampleTranscript()
	tr.PageTitle = "My #1 *Guide*"

	out, err := NewMarkdownExporter(nil).Export(tr)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if !strings.Contains(string(out), `# My \#1 \*Guide\*`) {
		t.Errorf("heading not escaped:\n%s", string(out)[:200])
	}
}

func TestMarkdownExport_EmptyTranscript(t *testing.T) {
	if _, err := NewMarkdownExporter(nil).Export(&Transcript{}); err == nil {
		t.Error("expected error for empty transcript")
	}
	if _, err := NewMarkdownExporter(nil).Export(nil); err == nil {
		t.Error("expected error for nil transcript")
	}
}

// =============================================================================
// JSON
// =============================================================================

func TestJSONExport_RoundTrip(t *testing.T) {
	tr := sampleTranscript()
	out, err := NewJSONExporter(nil).Export(tr)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	var decoded Transcript
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.PageURL != tr.PageURL {
		t.Errorf("PageURL = %q", decoded.PageURL)
	}
	if len(decoded.Messages) != 3 {
		t.Fatalf("messages = %d, want 3", len(decoded.Messages))
	}
	if decoded.Messages[1].Role != model.RoleAssistant {
		t.Errorf("role = %q", decoded.Messages[1].Role)
	}
	if decoded.Messages[0].Content != tr.Messages[0].Content {
		t.Error("content mangled in round trip")
	}
}

// =============================================================================
// HTML
// =============================================================================

func TestHTMLExport(t *testing.T) {
	out, err := NewHTMLExporter(nil).Export(sampleTranscript())
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	content := string(out)

	for _, want := range []string{
		"<!DOCTYPE html>",
		"dark-theme",
		"Retry Guide",
		"user-message",
		"assistant-message",
		"<pre",           // highlighted code block
		"<code>maxRetries</code>", // inline code
	} {
		if !strings.Contains(content, want) {
			t.Errorf("html missing %q", want)
		}
	}
}

func TestHTMLExport_EscapesContent(t *testing.T) {
	tr := sampleTranscript()
	tr.Messages[0].Content = `See <script>alert("x")</script> & more`

	out, err := NewHTMLExporter(nil).Export(tr)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	content := string(out)

	if strings.Contains(content, `<script>alert`) {
		t.Error("message content was not escaped")
	}
	if !strings.Contains(content, "&lt;script&gt;") {
		t.Error("escaped form missing")
	}
}

func TestHTMLExport_LightTheme(t *testing.T) {
	opts := DefaultOptions()
	opts.Theme = "light"

	out, err := NewHTMLExporter(opts).Export(sampleTranscript())
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if !strings.Contains(string(out), `<body class="light-theme">`) {
		t.Error("light theme class missing")
	}
}

// =============================================================================
// FILE OUTPUT
// =============================================================================

func TestToFile(t *testing.T) {
	dir := t.TempDir()
	opts := DefaultOptions()
	opts.OutputDir = dir

	path, err := ToFile(sampleTranscript(), "md", "", opts)
	if err != nil {
		t.Fatalf("ToFile: %v", err)
	}

	base := filepath.Base(path)
	if !strings.HasPrefix(base, "pagechat_Retry_Guide_") {
		t.Errorf("filename = %q", base)
	}
	if !strings.HasSuffix(base, ".md") {
		t.Errorf("extension missing: %q", base)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read exported file: %v", err)
	}
	if !strings.Contains(string(raw), "# Retry Guide") {
		t.Error("exported file missing content")
	}
}

func TestToFile_ExplicitPath(t *testing.T) {
	target := filepath.Join(t.TempDir(), "nested", "out.json")

	path, err := ToFile(sampleTranscript(), "json", target, nil)
	if err != nil {
		t.Fatalf("ToFile: %v", err)
	}
	if path != target {
		t.Errorf("path = %q, want %q", path, target)
	}
	if _, err := os.Stat(target); err != nil {
		t.Errorf("file not written: %v", err)
	}
}

func TestToFile_UnknownFormat(t *testing.T) {
	if _, err := ToFile(sampleTranscript(), "pdf", "", nil); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestForFormat(t *testing.T) {
	for _, name := range []string{"md", "markdown", "json", "html", "htm"} {
		if _, err := ForFormat(name, nil); err != nil {
			t.Errorf("ForFormat(%q): %v", name, err)
		}
	}
	if _, err := ForFormat("docx", nil); err == nil {
		t.Error("expected error for unsupported format")
	}
}

// =============================================================================
// HELPERS
// =============================================================================

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Plain Title", "Plain_Title"},
		{"a/b\\c:d", "a-b-c-d"},
		{"", "conversation"},
		{"tabs\tand\nnewlines", "tabs_and_newlines"},
	}
	for _, tt := range tests {
		if got := sanitizeFilename(tt.in); got != tt.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTranscriptTitle(t *testing.T) {
	tr := &Transcript{PageTitle: "A Title", PageURL: "https://example.com/x"}
	if tr.Title() != "A Title" {
		t.Errorf("Title = %q", tr.Title())
	}

	tr = &Transcript{PageURL: "https://example.com/x"}
	if tr.Title() != "example.com" {
		t.Errorf("host fallback = %q", tr.Title())
	}

	tr = &Transcript{}
	if tr.Title() != "pagechat conversation" {
		t.Errorf("default = %q", tr.Title())
	}
}
