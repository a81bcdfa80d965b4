// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package extract fetches web pages and reduces their HTML to readable text.
package extract

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// hostLimiter applies a per-host politeness limit so repeated loads of pages
// from one site do not hammer it.
type hostLimiter struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
	rps      rate.Limit
	burst    int
}

func newHostLimiter(rps float64, burst int) *hostLimiter {
	if burst < 1 {
		burst = 1
	}
	return &hostLimiter{
		limiters: make(map[string]*rate.Limiter),
		rps:      rate.Limit(rps),
		burst:    burst,
	}
}

// wait blocks until the host's limiter grants a token or ctx is done.
func (h *hostLimiter) wait(ctx context.Context, host string) error {
	return h.get(host).Wait(ctx)
}

// get returns the limiter for a host, creating one on first use.
func (h *hostLimiter) get(host string) *rate.Limiter {
	h.mu.RLock()
	limiter, ok := h.limiters[host]
	h.mu.RUnlock()
	if ok {
		return limiter
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	// Double-check after acquiring the write lock.
	if limiter, ok = h.limiters[host]; ok {
		return limiter
	}

	limiter = rate.NewLimiter(h.rps, h.burst)
	h.limiters[host] = limiter
	return limiter
}
