// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server exposes one shared conversation over a local HTTP API.
//
// Endpoints:
//   - POST /api/message - send a chat message, receive the reply
//   - POST /api/context - load a page URL (or raw text) as the context
//   - POST /api/clear   - clear the transcript, keeping the context
//   - GET  /api/history - list recently visited pages
//   - GET  /health      - health check
//   - GET  /stats       - usage statistics
//
// The server binds to localhost only and carries no authentication. All
// responses are JSON; errors use the flat {"error": "..."} shape.
package server
