// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes chat transcripts to files.
//
// Three formats are supported: Markdown (frontmatter plus headed sections),
// JSON (the full Transcript structure, round-trippable), and standalone HTML
// with embedded CSS and chroma syntax highlighting for fenced code blocks.
//
// ToFile is the entry point: it picks the exporter for a format name,
// renders the transcript, and writes the file atomically, deriving a
// timestamped filename from the page title when no path is given.
package export
