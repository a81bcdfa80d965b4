// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package extract fetches web pages and reduces their HTML to readable text.
package extract

import "testing"

// =============================================================================
// ENTITY DECODING TESTS
// =============================================================================

func TestDecodeEntities_SupportedSet(t *testing.T) {
	got := decodeEntities("&amp;&lt;&gt;&quot;&#39;&nbsp;")
	want := "&<>\"' "
	if got != want {
		t.Errorf("decodeEntities = %q, want %q", got, want)
	}
}

func TestDecodeEntities_UnsupportedPassThrough(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"copyright entity untouched", "&copy; 2024", "&copy; 2024"},
		{"named entity untouched", "a &hellip; b", "a &hellip; b"},
		{"numeric entity untouched", "&#169;", "&#169;"},
		{"bare ampersand untouched", "a & b", "a & b"},
		{"mixed", "&amp;copy;", "&copy;"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := decodeEntities(tt.input); got != tt.want {
				t.Errorf("decodeEntities(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestDecodeEntities_NoRescan(t *testing.T) {
	// &amp;lt; is the literal text "&lt;" on the page; it must not decode
	// a second time to "<".
	if got := decodeEntities("&amp;lt;"); got != "&lt;" {
		t.Errorf("decodeEntities(&amp;lt;) = %q, want %q", got, "&lt;")
	}
}

// =============================================================================
// HTML REDUCTION TESTS
// =============================================================================

func TestReduceHTML_Scenario(t *testing.T) {
	got := reduceHTML("<html><script>x</script><p>Hello &amp; World</p></html>")
	if got != "Hello & World" {
		t.Errorf("reduceHTML = %q, want %q", got, "Hello & World")
	}
}

func TestReduceHTML(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			"empty input",
			"",
			"",
		},
		{
			"style block removed with content",
			"<style>body { color: red }</style><p>text</p>",
			"text",
		},
		{
			"multiline script removed",
			"<script>\nvar x = 1;\nvar y = 2;\n</script>ok",
			"ok",
		},
		{
			"script with attributes removed",
			`<script type="text/javascript" src="x.js">junk</script>done`,
			"done",
		},
		{
			"case-insensitive blocks",
			"<SCRIPT>x</SCRIPT><STYLE>y</STYLE>clean",
			"clean",
		},
		{
			"block tags become line breaks",
			"<h1>Title</h1><p>First</p><p>Second</p>",
			"Title\n\nFirst\n\nSecond",
		},
		{
			"inline tags vanish without breaks",
			"<p>a <b>bold</b> word</p>",
			"a bold word",
		},
		{
			"whitespace collapsed",
			"<p>a    lot\t\tof     space</p>",
			"a lot of space",
		},
		{
			"blank runs capped",
			"<div>one</div><div></div><div></div><div>two</div>",
			"one\n\ntwo",
		},
		{
			"nbsp becomes space then collapses",
			"<p>a&nbsp;&nbsp;&nbsp;b</p>",
			"a b",
		},
		{
			"unclosed tag stripped",
			"text <img src='x.png'> more",
			"text more",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := reduceHTML(tt.input); got != tt.want {
				t.Errorf("reduceHTML(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestReduceHTML_OrderTagsBeforeEntities(t *testing.T) {
	// &lt;p&gt; is text, not markup. Decoding after stripping must leave the
	// decoded angle brackets alone.
	got := reduceHTML("<p>use &lt;p&gt; for paragraphs</p>")
	if got != "use <p> for paragraphs" {
		t.Errorf("got %q, want %q", got, "use <p> for paragraphs")
	}
}
