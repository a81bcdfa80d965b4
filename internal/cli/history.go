// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// history.go - List recorded page visits.
package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/jeranaias/pagechat/internal/config"
	"github.com/jeranaias/pagechat/internal/history"
)

// defaultHistoryLimit caps listings when --limit is not given.
const defaultHistoryLimit = 20

// HandleHistory lists recent page visits, optionally filtered with
// --search and capped with --limit.
func HandleHistory(args Args) error {
	p := NewArgParser(args.Raw)
	search := p.Flag("search")
	limit := p.FlagIntOrDefault("limit", defaultHistoryLimit)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if !cfg.History.Enabled {
		fmt.Println(DimStyle.Render("Page history is disabled (history.enabled in config.toml)."))
		return nil
	}

	store, err := history.New(history.Config{
		Path:       cfg.HistoryDBPath(),
		MaxEntries: cfg.History.MaxEntries,
	})
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var visits []history.Visit
	if search != "" {
		visits, err = store.Search(ctx, search, limit)
	} else {
		visits, err = store.Recent(ctx, limit)
	}
	if err != nil {
		return fmt.Errorf("read history: %w", err)
	}

	if args.JSON || p.BoolFlag("json") {
		if visits == nil {
			visits = []history.Visit{}
		}
		return outputJSON(visits)
	}

	if len(visits) == 0 {
		if search != "" {
			fmt.Println(DimStyle.Render(fmt.Sprintf("No visits matching %q.", search)))
		} else {
			fmt.Println(DimStyle.Render("No page visits recorded yet."))
		}
		return nil
	}

	printVisits(visits, nil)
	return nil
}
