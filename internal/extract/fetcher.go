// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package extract fetches web pages and reduces their HTML to readable text.
package extract

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

var (
	errTooManyRedirects = errors.New("too many redirects")
	errResponseTooLarge = errors.New("response body too large")
)

// fetcher owns the HTTP client used for page retrieval.
type fetcher struct {
	client          *http.Client
	userAgent       string
	maxResponseSize int64
}

func newFetcher(cfg Config) *fetcher {
	maxRedirects := cfg.MaxRedirects

	transport := &http.Transport{
		// Certificate validation is intentionally disabled for page fetches:
		// pages behind expired or self-signed certificates still load. Only
		// page content travels over this client, never credentials.
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: true, // #nosec G402
		},
		MaxIdleConns:    10,
		IdleConnTimeout: cfg.Timeout,
	}

	return &fetcher{
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				// len(via) counts previous requests in the chain.
				if len(via) >= maxRedirects {
					return errTooManyRedirects
				}
				return nil
			},
		},
		userAgent:       cfg.UserAgent,
		maxResponseSize: cfg.MaxResponseSize,
	}
}

// fetch performs the GET and returns the decoded body and final URL.
func (f *fetcher) fetch(ctx context.Context, u *url.URL) (body string, finalURL string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", "", err
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,text/plain;q=0.8,*/*;q=0.7")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", "", fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	// Read one byte past the cap to distinguish at-limit from over-limit.
	reader := decodeCharset(io.LimitReader(resp.Body, f.maxResponseSize+1), resp.Header.Get("Content-Type"))
	raw, err := io.ReadAll(reader)
	if err != nil {
		return "", "", err
	}
	if int64(len(raw)) > f.maxResponseSize {
		return "", "", errResponseTooLarge
	}

	return string(raw), resp.Request.URL.String(), nil
}

// decodeCharset wraps the body reader with a UTF-8 decoder when the response
// declares a different charset. Unknown charsets pass through unchanged.
func decodeCharset(r io.Reader, contentType string) io.Reader {
	if contentType == "" {
		return r
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return r
	}
	name := params["charset"]
	if name == "" || strings.EqualFold(name, "utf-8") {
		return r
	}
	enc, err := htmlindex.Get(name)
	if err != nil || enc == nil {
		return r
	}
	return transform.NewReader(r, enc.NewDecoder())
}
