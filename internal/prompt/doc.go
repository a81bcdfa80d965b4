// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package prompt assembles outbound prompts from page context and history.
//
// The remote endpoint accepts a single free-text message, so everything the
// model needs travels in one assembled string: a system instruction that
// embeds the page context (truncated to a fixed rune budget with a literal
// marker when cut), the trailing window of the transcript as "User:" and
// "Assistant:" lines, and the new question verbatim at the end.
//
// Build is pure. The chat client snapshots its state under lock and calls
// Build outside of any locking.
package prompt
