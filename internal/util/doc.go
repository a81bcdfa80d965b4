// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides utility functions for the pagechat application.
//
// This package contains small helpers shared across the application for
// UTF-8 safe string handling and crash-safe file writes.
//
// # Key Functions
//
// String Utilities:
//   - TruncateRunes: UTF-8 safe truncation with ellipsis
//   - TruncateRunesNoEllipsis: UTF-8 safe truncation, bare
//   - FirstNonEmptyLine: derive a page title from extracted text
//
// File Operations:
//   - AtomicWriteFile: crash-safe file writing with fsync
//
// # Usage
//
//	// Truncate long strings safely for display
//	display := util.TruncateRunes(longText, 50)
//
//	// Write exports atomically to prevent data loss
//	err := util.AtomicWriteFile(path, data, 0644)
package util
