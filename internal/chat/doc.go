// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat owns the conversation state and the send lifecycle.
//
// Client is the one place page context and transcript live together, guarded
// by a single mutex. The invariants it maintains:
//
//   - SetContext replaces the context and clears the transcript atomically.
//   - ClearHistory clears the transcript and nothing else.
//   - SendMessage appends the user message optimistically and rolls it back
//     on failure, so a failed exchange leaves no trace.
//   - At most one send is in flight; a second concurrent send gets ErrBusy.
//
// Prompt assembly and the endpoint call run outside the lock against
// snapshots, so a slow endpoint never blocks readers of the transcript.
package chat
