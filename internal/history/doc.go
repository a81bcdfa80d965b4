// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package history persists the page visit log in SQLite.
//
// Every successful page load is recorded with its URL, derived title, and
// extracted text size. The log is capped: inserts prune rows beyond the
// configured maximum, newest kept. Queries serve the history command and
// the /history slash command.
package history
