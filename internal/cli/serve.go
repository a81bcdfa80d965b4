// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// serve.go - Run the local HTTP API.
//
// The serve command owns the pieces the server package stays agnostic
// of: wiring the chat client, extractor, and history store together,
// and hot-reloading the config file so endpoint or prompt changes apply
// without a restart.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jeranaias/pagechat/internal/chat"
	"github.com/jeranaias/pagechat/internal/config"
	"github.com/jeranaias/pagechat/internal/extract"
	"github.com/jeranaias/pagechat/internal/history"
	"github.com/jeranaias/pagechat/internal/llm"
	"github.com/jeranaias/pagechat/internal/prompt"
	"github.com/jeranaias/pagechat/internal/server"
)

// shutdownGrace bounds how long in-flight requests get on shutdown.
const shutdownGrace = 10 * time.Second

// HandleServe runs the HTTP API until interrupted.
func HandleServe(args Args) error {
	p := NewArgParser(args.Raw)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	port := p.FlagIntOrDefault("port", 0)
	if port == 0 {
		port = cfg.Server.Port
	}

	client := chat.New(llm.New(cfg.CompletionConfig()), prompt.New(cfg.PromptConfig()))
	loader := extract.NewDedup(extract.New(cfg.ExtractorConfig()))

	srv := server.New(port).
		WithChatClient(client).
		WithLoader(loader).
		WithRateLimit(cfg.Server.RateLimitPerMinute).
		WithVersion(Version)

	var store *history.Store
	if cfg.History.Enabled {
		store, err = history.New(history.Config{
			Path:       cfg.HistoryDBPath(),
			MaxEntries: cfg.History.MaxEntries,
		})
		if err != nil {
			log.Printf("HISTORY_OPEN_FAILED | error=%v", err)
			store = nil
		} else {
			defer store.Close()
			srv.WithHistory(store)
		}
	}

	// Endpoint and prompt settings follow the config file while the
	// server runs. Failed reloads keep the previous configuration.
	watcher, err := config.Watch(config.ConfigPathTOML(), 0, func(next *config.Config) {
		client.Reconfigure(llm.New(next.CompletionConfig()), prompt.New(next.PromptConfig()))
		log.Printf("CONFIG_RELOAD | endpoint=%s max_retries=%d", next.Endpoint.URL, next.Endpoint.MaxRetries)
	})
	if err != nil {
		log.Printf("CONFIG_WATCH_FAILED | error=%v", err)
	} else {
		defer watcher.Close()
	}

	if !args.Quiet {
		fmt.Println(TitleStyle.Render("pagechat API"))
		fmt.Println(RenderLabel("Address", fmt.Sprintf("http://127.0.0.1:%d", srv.Port())))
		if cfg.Endpoint.URL != "" {
			fmt.Println(RenderLabel("Endpoint", cfg.Endpoint.URL))
		} else {
			fmt.Println(LabelStyle.Render("Endpoint:") + " " + WarningStyle.Render("not configured; /api/message will return 503"))
		}
		fmt.Println(DimStyle.Render("Press Ctrl+C to stop."))
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if !args.Quiet {
		fmt.Println(DimStyle.Render("Stopped."))
	}
	return nil
}
