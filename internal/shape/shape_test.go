// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package shape normalizes model reply text for display.
package shape

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			"plain text unchanged",
			"The page is about Go.",
			"The page is about Go.",
		},
		{
			"emphasis runs collapse",
			"this is ****very**** important",
			"this is **very** important",
		},
		{
			"underscore runs collapse",
			"also ___quite___ important",
			"also __quite__ important",
		},
		{
			"double emphasis kept",
			"keep **bold** and *italic*",
			"keep **bold** and *italic*",
		},
		{
			"star bullets normalized",
			"* first\n* second",
			"- first\n- second",
		},
		{
			"plus bullets normalized",
			"+ first\n+ second",
			"- first\n- second",
		},
		{
			"unicode bullets normalized",
			"• first\n• second",
			"- first\n- second",
		},
		{
			"indented bullets keep indent",
			"  * nested item",
			"  - nested item",
		},
		{
			"existing dashes untouched",
			"- already fine",
			"- already fine",
		},
		{
			"blank runs capped",
			"para one\n\n\n\n\npara two",
			"para one\n\npara two",
		},
		{
			"blank line before list after sentence",
			"Here are the points:\n- one\n- two",
			"Here are the points:\n\n- one\n- two",
		},
		{
			"blank line before capitalized sentence",
			"First thought.\nSecond thought.",
			"First thought.\n\nSecond thought.",
		},
		{
			"blank line before numbered list",
			"Steps follow.\n1. do this",
			"Steps follow.\n\n1. do this",
		},
		{
			"no extra blank when already separated",
			"Done.\n\nNext paragraph.",
			"Done.\n\nNext paragraph.",
		},
		{
			"lowercase continuation stays tight",
			"a line\nthat continues",
			"a line\nthat continues",
		},
		{
			"surrounding whitespace trimmed",
			"\n\n  answer  \n\n",
			"answer",
		},
		{
			"empty input",
			"",
			"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.input); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"* a\n* b\n\n\n\nDone.",
		"Intro:\n- x\n- y",
		"****loud**** text.\nNext sentence.",
	}
	for _, input := range inputs {
		once := Normalize(input)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not stable for %q:\nonce:  %q\ntwice: %q", input, once, twice)
		}
	}
}
