// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package extract fetches web pages and reduces their HTML to readable text.
package extract

import (
	"regexp"
	"strings"
	"unicode"
)

// =============================================================================
// PERFORMANCE: Pre-compiled regex (compiled once at startup)
// =============================================================================

var (
	// Script and style blocks are removed with their content.
	scriptBlockRegex = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleBlockRegex  = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)

	// Block-level tags become newlines so paragraph structure survives.
	blockTagRegex = regexp.MustCompile(`(?i)</?(?:p|div|h[1-6]|li|ul|ol|tr|td|th|table|section|article|header|footer|blockquote)[^>]*>|<br\s*/?>`)

	// Everything else is stripped outright.
	htmlTagRegex = regexp.MustCompile(`<[^>]*>`)

	// Whitespace cleanup patterns.
	multiSpaceRegex   = regexp.MustCompile(`[ \t]+`)
	multiNewlineRegex = regexp.MustCompile(`\n{3,}`)
)

// entityReplacer decodes the fixed entity set. The set is closed: anything
// outside it (&copy;, &hellip;, numeric references other than &#39;) passes
// through as literal text. Replaced text is not rescanned, so already-decoded
// output never decodes twice.
var entityReplacer = strings.NewReplacer(
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#39;", "'",
	"&nbsp;", " ",
)

// =============================================================================
// HTML TO TEXT REDUCTION
// =============================================================================

// reduceHTML converts raw HTML to plain text. The pipeline order is fixed:
// script/style removal, tag stripping, entity decoding, whitespace cleanup.
func reduceHTML(html string) string {
	html = scriptBlockRegex.ReplaceAllString(html, "")
	html = styleBlockRegex.ReplaceAllString(html, "")

	html = blockTagRegex.ReplaceAllString(html, "\n")
	html = htmlTagRegex.ReplaceAllString(html, "")

	html = decodeEntities(html)

	return cleanWhitespace(html)
}

// decodeEntities decodes exactly the supported entity set.
func decodeEntities(s string) string {
	return entityReplacer.Replace(s)
}

// cleanWhitespace collapses space/tab runs, trims line ends, and caps blank
// runs at one empty line.
func cleanWhitespace(text string) string {
	text = multiSpaceRegex.ReplaceAllString(text, " ")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRightFunc(line, unicode.IsSpace)
	}
	text = strings.Join(lines, "\n")

	text = multiNewlineRegex.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text)
}
