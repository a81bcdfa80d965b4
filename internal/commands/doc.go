// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package commands implements the slash command system: a registry of
// commands with aliases and argument schemas, a parser that splits input
// lines into invocations, handlers that run as tea.Cmd closures, and tab
// completion for command names and arguments.
package commands
