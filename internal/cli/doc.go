// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the pagechat command-line surface: argument
// parsing, the line-mode REPL, and the one-shot commands (ask, extract,
// history, serve, config, version).
//
// Each command has a HandleX function that takes parsed Args and returns
// an error. Handlers never call os.Exit; main maps errors to exit codes
// with ExitCode and prints them with DisplayError.
package cli
