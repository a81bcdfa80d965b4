// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads, validates, and persists pagechat configuration.
//
// Configuration lives in ~/.pagechat/config.toml. Loading starts from
// Default, decodes the file over it, applies environment overrides, mends
// zero-valued fields, and validates the result, so a partial file is always
// usable and a broken one reports every bad field at once.
//
// Precedence, highest first:
//
//  1. Environment variables (PAGECHAT_ENDPOINT_URL, PAGECHAT_HISTORY_DB;
//     PAGECHAT_CONFIG relocates the file itself)
//  2. The config file
//  3. Built-in defaults
//
// Watch provides hot reload: the serve command re-applies endpoint and
// prompt settings when the file changes without restarting.
package config
