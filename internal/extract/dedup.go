// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package extract fetches web pages and reduces their HTML to readable text.
package extract

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// Dedup wraps an Extractor so concurrent extractions of the same URL share
// one in-flight fetch. The UI routes page loads through this wrapper; the
// underlying Extractor stays stateless.
type Dedup struct {
	extractor *Extractor
	group     singleflight.Group
}

// NewDedup wraps the given extractor.
func NewDedup(e *Extractor) *Dedup {
	return &Dedup{extractor: e}
}

// Extract behaves like Extractor.Extract, coalescing duplicate in-flight
// URLs. The first caller's context governs the shared fetch.
func (d *Dedup) Extract(ctx context.Context, rawURL string) (Page, error) {
	key := rawURL
	if u, err := normalizeURL(rawURL); err == nil {
		key = u.String()
	}

	v, err, _ := d.group.Do(key, func() (interface{}, error) {
		page, err := d.extractor.Extract(ctx, rawURL)
		if err != nil {
			return nil, err
		}
		return page, nil
	})
	if err != nil {
		return Page{}, err
	}
	return v.(Page), nil
}
