// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/jeranaias/pagechat/internal/model"
)

// =============================================================================
// BUBBLE TEA MESSAGES
// =============================================================================
// Slash command results (page loaded, cleared, export complete, errors)
// arrive as the commands package's message types. The types here cover the
// send flow only.
// =============================================================================

// SendResultMsg delivers the outcome of an in-flight question. On failure
// the client has already rolled the user message out of the transcript; the
// view keeps it visible and shows the error instead.
type SendResultMsg struct {
	Reply model.Message
	Err   error
}
