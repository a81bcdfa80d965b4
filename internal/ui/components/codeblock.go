// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/pagechat/internal/ui/styles"
)

// =============================================================================
// CODE BLOCK COMPONENT
// =============================================================================

// CodeBlock renders a fenced code block with syntax highlighting, line
// numbers, and a language badge.
type CodeBlock struct {
	Language string
	Code     string
	MaxWidth int
}

// NewCodeBlock creates a code block for the given language and source text.
func NewCodeBlock(language, code string) *CodeBlock {
	return &CodeBlock{
		Language: language,
		Code:     strings.TrimRight(code, "\n"),
		MaxWidth: 80,
	}
}

// SetMaxWidth caps the rendered width of the block.
func (c *CodeBlock) SetMaxWidth(width int) {
	if width > 0 {
		c.MaxWidth = width
	}
}

// Render produces the styled block.
func (c *CodeBlock) Render() string {
	language := c.Language
	if language == "" {
		language = detectLanguage(c.Code)
	}

	highlighted := highlightCode(c.Code, language)

	lineNumStyle := lipgloss.NewStyle().
		Foreground(styles.TextMuted).
		Width(4).
		Align(lipgloss.Right).
		MarginRight(1)

	var body strings.Builder
	lines := strings.Split(highlighted, "\n")
	for i, line := range lines {
		if i > 0 {
			body.WriteString("\n")
		}
		body.WriteString(lineNumStyle.Render(fmt.Sprintf("%d", i+1)))
		body.WriteString(line)
	}

	content := body.String()
	if language != "" {
		badge := lipgloss.NewStyle().
			Foreground(styles.Cyan).
			Bold(true).
			Render(strings.ToLower(language))
		content = badge + "\n" + content
	}

	block := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.OverlayDim).
		Padding(0, 1).
		MaxWidth(c.MaxWidth)

	return block.Render(content)
}

// =============================================================================
// FENCE PARSING
// =============================================================================

// Segment is one run of message content: either plain text or a fenced code
// block with an optional language tag.
type Segment struct {
	IsCode   bool
	Language string
	Content  string
}

// SplitCodeFences splits message content on ``` fences. Text outside fences
// becomes plain segments, text inside becomes code segments. An unterminated
// fence swallows the rest of the content as code.
func SplitCodeFences(content string) []Segment {
	if !strings.Contains(content, "```") {
		return []Segment{{Content: content}}
	}

	var segments []Segment
	rest := content
	for {
		open := strings.Index(rest, "```")
		if open < 0 {
			if rest != "" {
				segments = append(segments, Segment{Content: rest})
			}
			break
		}
		if before := rest[:open]; strings.TrimSpace(before) != "" {
			segments = append(segments, Segment{Content: strings.Trim(before, "\n")})
		}

		rest = rest[open+3:]
		language := ""
		if nl := strings.Index(rest, "\n"); nl >= 0 {
			language = strings.TrimSpace(rest[:nl])
			rest = rest[nl+1:]
		}

		closing := strings.Index(rest, "```")
		if closing < 0 {
			segments = append(segments, Segment{IsCode: true, Language: language, Content: strings.Trim(rest, "\n")})
			break
		}
		segments = append(segments, Segment{IsCode: true, Language: language, Content: strings.Trim(rest[:closing], "\n")})
		rest = rest[closing+3:]
	}
	return segments
}

// RenderInlineCode styles `inline code` spans within a line of text.
func RenderInlineCode(text string) string {
	if !strings.Contains(text, "`") {
		return text
	}
	inlineStyle := lipgloss.NewStyle().
		Foreground(styles.Cyan).
		Background(styles.Overlay)

	var out strings.Builder
	rest := text
	for {
		open := strings.Index(rest, "`")
		if open < 0 {
			out.WriteString(rest)
			break
		}
		closing := strings.Index(rest[open+1:], "`")
		if closing < 0 {
			out.WriteString(rest)
			break
		}
		out.WriteString(rest[:open])
		out.WriteString(inlineStyle.Render(rest[open+1 : open+1+closing]))
		rest = rest[open+closing+2:]
	}
	return out.String()
}

// =============================================================================
// SYNTAX HIGHLIGHTING
// =============================================================================

// highlightCode applies chroma syntax highlighting. On any failure it falls
// back to the unstyled source text.
func highlightCode(code, language string) string {
	var lexer chroma.Lexer
	if language != "" {
		lexer = lexers.Get(language)
	}
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := chromaStyles.Get("monokai")
	if style == nil {
		style = chromaStyles.Fallback
	}

	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}

	var buf strings.Builder
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return code
	}
	return buf.String()
}

// detectLanguage guesses the language of untagged code.
func detectLanguage(code string) string {
	lexer := lexers.Analyse(code)
	if lexer != nil {
		return lexer.Config().Name
	}
	return ""
}
