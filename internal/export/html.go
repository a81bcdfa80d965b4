// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"

	"github.com/jeranaias/pagechat/internal/model"
)

// =============================================================================
// HTML EXPORTER
// =============================================================================

// HTMLExporter renders transcripts as standalone HTML with embedded CSS and
// syntax-highlighted code blocks.
type HTMLExporter struct {
	options *Options
}

// NewHTMLExporter creates a new HTML exporter.
func NewHTMLExporter(opts *Options) *HTMLExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &HTMLExporter{options: opts}
}

// Export renders the transcript as HTML.
func (e *HTMLExporter) Export(t *Transcript) ([]byte, error) {
	if t == nil {
		return nil, fmt.Errorf("transcript is nil")
	}
	if len(t.Messages) == 0 {
		return nil, fmt.Errorf("transcript has no messages")
	}

	exportedAt := t.ExportedAt
	if exportedAt.IsZero() {
		exportedAt = time.Now()
	}

	var sb strings.Builder

	sb.WriteString("<!DOCTYPE html>\n")
	sb.WriteString("<html lang=\"en\">\n")
	sb.WriteString("<head>\n")
	sb.WriteString("    <meta charset=\"UTF-8\">\n")
	sb.WriteString("    <meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	sb.WriteString(fmt.Sprintf("    <title>%s</title>\n", html.EscapeString(t.Title())))
	sb.WriteString("    <meta name=\"generator\" content=\"pagechat\">\n")
	sb.WriteString(fmt.Sprintf("    <meta name=\"date\" content=\"%s\">\n", exportedAt.Format(time.RFC3339)))
	sb.WriteString(e.getCSS())
	sb.WriteString("</head>\n")
	sb.WriteString(fmt.Sprintf("<body class=\"%s-theme\">\n", e.options.Theme))
	sb.WriteString("    <div class=\"container\">\n")

	if e.options.IncludeMetadata {
		sb.WriteString(e.renderHeader(t))
	}

	sb.WriteString("        <main class=\"conversation\">\n")
	for i := range t.Messages {
		sb.WriteString(e.renderMessage(&t.Messages[i]))
	}
	sb.WriteString("        </main>\n")

	sb.WriteString("        <footer class=\"footer\">\n")
	sb.WriteString(fmt.Sprintf("            <p>Exported from <strong>pagechat</strong> on %s</p>\n",
		formatTimestamp(exportedAt)))
	sb.WriteString("        </footer>\n")

	sb.WriteString("    </div>\n")
	sb.WriteString(e.getScript())
	sb.WriteString("</body>\n")
	sb.WriteString("</html>\n")

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for HTML.
func (e *HTMLExporter) FileExtension() string {
	return ".html"
}

// MimeType returns the MIME type for HTML.
func (e *HTMLExporter) MimeType() string {
	return "text/html"
}

// =============================================================================
// RENDERING FUNCTIONS
// =============================================================================

// renderHeader renders the page metadata block.
func (e *HTMLExporter) renderHeader(t *Transcript) string {
	var sb strings.Builder

	sb.WriteString("        <header class=\"header\">\n")
	sb.WriteString(fmt.Sprintf("            <h1>%s</h1>\n", html.EscapeString(t.Title())))
	sb.WriteString("            <div class=\"metadata\">\n")
	if t.PageURL != "" {
		sb.WriteString(fmt.Sprintf("                <span class=\"meta-item\"><strong>Source:</strong> <a href=\"%s\">%s</a></span>\n",
			html.EscapeString(t.PageURL), html.EscapeString(t.PageURL)))
	}
	if t.ContextChars > 0 {
		sb.WriteString(fmt.Sprintf("                <span class=\"meta-item\"><strong>Page text:</strong> %d chars</span>\n", t.ContextChars))
	}
	sb.WriteString(fmt.Sprintf("                <span class=\"meta-item\"><strong>Messages:</strong> %d</span>\n", len(t.Messages)))
	sb.WriteString("                <button class=\"theme-toggle\" onclick=\"toggleTheme()\" title=\"Toggle theme\">[Theme]</button>\n")
	sb.WriteString("            </div>\n")
	sb.WriteString("        </header>\n")

	return sb.String()
}

// renderMessage renders one message.
func (e *HTMLExporter) renderMessage(msg *model.Message) string {
	var sb strings.Builder

	roleClass := strings.ToLower(string(msg.Role))
	sb.WriteString(fmt.Sprintf("            <div class=\"message %s-message\">\n", roleClass))

	sb.WriteString("                <div class=\"message-header\">\n")
	sb.WriteString(fmt.Sprintf("                    <span class=\"role-label\">%s</span>\n", formatRoleLabel(msg.Role)))
	if e.options.IncludeTimestamps && !msg.Timestamp.IsZero() {
		sb.WriteString(fmt.Sprintf("                    <span class=\"timestamp\">%s</span>\n", formatShortTimestamp(msg.Timestamp)))
	}
	sb.WriteString("                </div>\n")

	sb.WriteString("                <div class=\"message-content\">\n")
	sb.WriteString(e.formatContent(msg.Content))
	sb.WriteString("                </div>\n")

	sb.WriteString("            </div>\n")

	return sb.String()
}

// =============================================================================
// CONTENT FORMATTING
// =============================================================================

// formatContent converts message text to HTML. Fenced code blocks get
// syntax highlighting; everything else is escaped prose.
func (e *HTMLExporter) formatContent(content string) string {
	var sb strings.Builder

	lines := strings.Split(content, "\n")
	var inCodeBlock bool
	var codeLines []string
	var language string
	var prose []string

	flushProse := func() {
		if len(prose) == 0 {
			return
		}
		text := strings.TrimSpace(strings.Join(prose, "\n"))
		prose = nil
		if text == "" {
			return
		}
		for _, para := range strings.Split(text, "\n\n") {
			sb.WriteString("                    <p>")
			sb.WriteString(formatInline(para))
			sb.WriteString("</p>\n")
		}
	}

	for _, line := range lines {
		if strings.HasPrefix(line, "```") {
			if inCodeBlock {
				flushProse()
				sb.WriteString(e.renderCodeBlock(strings.Join(codeLines, "\n"), language))
				codeLines = nil
				language = ""
				inCodeBlock = false
			} else {
				flushProse()
				language = strings.TrimSpace(strings.TrimPrefix(line, "```"))
				inCodeBlock = true
			}
			continue
		}
		if inCodeBlock {
			codeLines = append(codeLines, line)
		} else {
			prose = append(prose, line)
		}
	}

	// Unclosed fence renders as code anyway.
	if inCodeBlock && len(codeLines) > 0 {
		sb.WriteString(e.renderCodeBlock(strings.Join(codeLines, "\n"), language))
	}
	flushProse()

	return sb.String()
}

// formatInline escapes prose and converts `inline code` spans and line
// breaks.
func formatInline(text string) string {
	escaped := html.EscapeString(text)

	var sb strings.Builder
	var inCode bool
	var code strings.Builder

	for _, r := range escaped {
		if r == '`' {
			if inCode {
				sb.WriteString("<code>")
				sb.WriteString(code.String())
				sb.WriteString("</code>")
				code.Reset()
				inCode = false
			} else {
				inCode = true
			}
			continue
		}
		if inCode {
			code.WriteRune(r)
		} else {
			sb.WriteRune(r)
		}
	}
	if inCode {
		sb.WriteString("`")
		sb.WriteString(code.String())
	}

	return strings.ReplaceAll(sb.String(), "\n", "<br>\n")
}

// renderCodeBlock highlights one fenced block. Highlighting failures fall
// back to an escaped <pre>.
func (e *HTMLExporter) renderCodeBlock(code, language string) string {
	highlighted := highlightHTML(code, language, e.options.Theme)
	if highlighted == "" {
		return fmt.Sprintf("                    <pre><code>%s</code></pre>\n", html.EscapeString(code))
	}
	return "                    <div class=\"code-block\">" + highlighted + "</div>\n"
}

// highlightHTML applies chroma syntax highlighting with inline styles.
// Returns empty on failure so callers can fall back.
func highlightHTML(code, language, theme string) string {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	styleName := "monokai"
	if theme == "light" {
		styleName = "github"
	}
	style := chromaStyles.Get(styleName)
	if style == nil {
		style = chromaStyles.Fallback
	}

	formatter := formatters.Get("html")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return ""
	}

	var buf strings.Builder
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return ""
	}

	return buf.String()
}

// =============================================================================
// EMBEDDED CSS AND SCRIPT
// =============================================================================

// getCSS returns the embedded stylesheet.
func (e *HTMLExporter) getCSS() string {
	return `    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body {
            font-family: -apple-system, "Segoe UI", Roboto, Helvetica, Arial, sans-serif;
            line-height: 1.6;
            transition: background 0.2s, color 0.2s;
        }
        body.dark-theme { background: #1a1b26; color: #c0caf5; }
        body.light-theme { background: #fafafa; color: #24292e; }
        .container { max-width: 860px; margin: 0 auto; padding: 2rem 1rem; }
        .header { margin-bottom: 2rem; padding-bottom: 1rem; border-bottom: 2px solid rgba(128,128,128,0.3); }
        .header h1 { font-size: 1.5rem; margin-bottom: 0.75rem; }
        .metadata { display: flex; flex-wrap: wrap; gap: 1rem; font-size: 0.85rem; opacity: 0.85; align-items: center; }
        .metadata a { color: inherit; }
        .theme-toggle { margin-left: auto; cursor: pointer; background: none; border: 1px solid currentColor; border-radius: 4px; color: inherit; padding: 0.2rem 0.6rem; }
        .message { margin-bottom: 1.25rem; padding: 1rem; border-radius: 8px; }
        .dark-theme .user-message { background: #24283b; }
        .dark-theme .assistant-message { background: #1f2335; border-left: 3px solid #7aa2f7; }
        .light-theme .user-message { background: #eef2f7; }
        .light-theme .assistant-message { background: #f6f8fa; border-left: 3px solid #0969da; }
        .message-header { display: flex; justify-content: space-between; margin-bottom: 0.5rem; font-size: 0.8rem; opacity: 0.7; }
        .role-label { font-weight: 600; }
        .message-content p { margin-bottom: 0.6rem; }
        .message-content p:last-child { margin-bottom: 0; }
        .message-content code { font-family: "SF Mono", Consolas, "Liberation Mono", monospace; font-size: 0.9em; padding: 0.1em 0.35em; border-radius: 4px; background: rgba(128,128,128,0.2); }
        .code-block { margin: 0.75rem 0; border-radius: 6px; overflow-x: auto; }
        .code-block pre { padding: 0.9rem; font-size: 0.85rem; }
        pre { overflow-x: auto; }
        .footer { margin-top: 2rem; padding-top: 1rem; border-top: 1px solid rgba(128,128,128,0.3); font-size: 0.8rem; opacity: 0.7; text-align: center; }
        @media print { .theme-toggle { display: none; } }
    </style>
`
}

// getScript returns the theme toggle script.
func (e *HTMLExporter) getScript() string {
	return `    <script>
        function toggleTheme() {
            document.body.classList.toggle("dark-theme");
            document.body.classList.toggle("light-theme");
        }
    </script>
`
}
