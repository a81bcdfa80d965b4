// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat transcripts.
//
// A transcript is an ordered slice of Message values. The chat package owns
// the live transcript; this package only defines the message shape and small
// pure helpers over message slices, so it has no locking and no state.
//
// # Types
//
//   - Role: user, assistant, or system
//   - Message: one transcript entry with ID, role, timestamp, and content
//
// # Helpers
//
//   - CloneMessages: copies a slice so accessors never share backing arrays
//   - LastN: trailing history window for prompt assembly
package model
