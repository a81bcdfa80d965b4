// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the interactive TUI for pagechat as a Bubble Tea
// model.
//
// The model owns the visible conversation (a viewport of message bubbles),
// a single-line input with slash command tab completion, and a spinner shown
// while a question or page load is in flight. The protocol transcript is
// owned by chat.Client; the view keeps its own display list so failed sends
// stay visible even after the client rolls the transcript back.
//
// Typical wiring:
//
//	m := chat.New(chat.Options{
//		Config:   cfg,
//		Client:   client,
//		Commands: cmdCtx,
//		Registry: registry,
//	})
//	p := tea.NewProgram(m, tea.WithAltScreen())
//	_, err := p.Run()
//
// Slash commands are parsed by the commands package and executed as tea.Cmd
// closures; their result messages (page loaded, cleared, export complete,
// errors) are folded back into the conversation by Update.
package chat
