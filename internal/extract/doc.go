// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package extract fetches web pages and reduces their HTML to readable text.
//
// Extraction is a single GET with a fixed desktop browser User-Agent, a 10
// second default timeout, and certificate validation disabled so pages behind
// broken TLS still load. The body is reduced with a regex pipeline: script
// and style blocks are dropped with their content, remaining tags are
// stripped, a fixed entity set is decoded, and whitespace is collapsed.
// Tag-aware parsing is deliberately out of scope; the pipeline favors
// predictability over fidelity on pathological markup.
//
// Failures, including non-2xx statuses and oversized bodies, wrap the single
// ErrExtractionFailed category. The extractor never retries.
//
// Concurrency: an Extractor is safe for concurrent use. Wrap it in Dedup to
// coalesce simultaneous loads of the same URL, and configure PerHostRPS to
// rate-limit repeated fetches against a single site.
package extract
