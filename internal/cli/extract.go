// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// extract.go - Fetch a page and print the extracted text.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jeranaias/pagechat/internal/config"
	"github.com/jeranaias/pagechat/internal/extract"
	"github.com/jeranaias/pagechat/internal/util"
)

// HandleExtract fetches one page and prints its extracted text to stdout,
// or the full page record as JSON with --json. The text goes to stdout
// bare so it pipes cleanly; status goes to stderr.
func HandleExtract(args Args) error {
	p := NewArgParser(args.Raw)

	rawURL := p.Positional(0)
	if rawURL == "" {
		rawURL = args.URL
	}
	if rawURL == "" {
		return NewUsageError("extract", "no URL given, usage: pagechat extract <url>")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	extractor := extract.New(cfg.ExtractorConfig())
	page, err := extractor.Extract(ctx, rawURL)
	if err != nil {
		return err
	}

	recordVisit(cfg, page)

	if args.JSON || p.BoolFlag("json") {
		return outputJSON(page)
	}

	if !args.Quiet && IsStderrTTY() {
		fmt.Fprintf(os.Stderr, "%s %s (%s chars)\n",
			DimStyle.Render("Extracted:"),
			HighlightStyle.Render(page.Title),
			formatCount(util.RuneLen(page.Text)))
	}
	fmt.Println(page.Text)
	return nil
}
