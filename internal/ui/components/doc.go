// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides the visual UI components for the pagechat TUI.
//
// Components are small, stateless-or-nearly-stateless renderers composed by
// the chat view: syntax-highlighted code blocks, the tab completion popup,
// the bottom status bar, and the shared spinner configuration. Each component
// styles itself through the styles package so light and dark terminals both
// render correctly.
package components
