// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - One-shot question answering.
//
// `pagechat ask --url U "question"` loads the page, asks, prints the
// answer, and exits. With piped stdin the question can arrive on stdin
// instead: `echo "summarize" | pagechat ask --url U`.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/pagechat/internal/chat"
	"github.com/jeranaias/pagechat/internal/config"
	"github.com/jeranaias/pagechat/internal/extract"
	"github.com/jeranaias/pagechat/internal/history"
	"github.com/jeranaias/pagechat/internal/llm"
	"github.com/jeranaias/pagechat/internal/prompt"
	"github.com/jeranaias/pagechat/internal/util"
)

// maxStdinQuestion caps how much piped input is read as the question.
const maxStdinQuestion = 64 * 1024

// markdownRenderer renders assistant replies when stdout is a terminal.
// A nil renderer falls back to raw text.
var markdownRenderer *glamour.TermRenderer

func init() {
	width := GetTerminalWidth()
	if width > 100 {
		width = 100
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err == nil {
		markdownRenderer = renderer
	}
}

// configureMarkdown rebuilds the renderer for an explicit theme. The
// default "auto" keeps the background-detecting renderer from init.
func configureMarkdown(theme string) {
	if theme != "dark" && theme != "light" {
		return
	}
	width := GetTerminalWidth()
	if width > 100 {
		width = 100
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(theme),
		glamour.WithWordWrap(width),
	)
	if err == nil {
		markdownRenderer = renderer
	}
}

// renderMarkdown renders content as markdown, falling back to the raw
// text when rendering is unavailable or fails.
func renderMarkdown(content string) string {
	if markdownRenderer == nil {
		return content
	}
	rendered, err := markdownRenderer.Render(content)
	if err != nil {
		return content
	}
	return rendered
}

// displayResponse prints an assistant reply, rendered as markdown when
// requested.
func displayResponse(content string, useMarkdown bool) {
	if useMarkdown {
		fmt.Print(renderMarkdown(content))
		return
	}
	fmt.Println(content)
}

// HandleAsk answers a single question against an optionally loaded page.
func HandleAsk(args Args) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	configureMarkdown(cfg.UI.Theme)

	question := args.Query
	if question == "" {
		question = readStdinQuestion()
	}
	if question == "" {
		return NewUsageError("ask", "no question given")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := chat.New(llm.New(cfg.CompletionConfig()), prompt.New(cfg.PromptConfig()))

	if args.URL != "" {
		if err := loadPageForAsk(ctx, cfg, client, args.URL, args.Quiet); err != nil {
			return err
		}
	}

	reply, err := client.SendMessage(ctx, question)
	if err != nil {
		return err
	}

	displayResponse(reply.Content, IsStdoutTTY() && cfg.UI.Markdown && !args.Plain)
	return nil
}

// loadPageForAsk fetches a page into the conversation context and logs
// the visit. Status goes to stderr so the answer on stdout stays clean.
func loadPageForAsk(ctx context.Context, cfg *config.Config, client *chat.Client, rawURL string, quiet bool) error {
	extractor := extract.New(cfg.ExtractorConfig())
	page, err := extractor.Extract(ctx, rawURL)
	if err != nil {
		return err
	}

	client.SetContextFromPage(page.URL, page.Title, page.Text)
	recordVisit(cfg, page)

	if !quiet {
		fmt.Fprintf(os.Stderr, "%s %s (%s chars)\n",
			DimStyle.Render("Loaded:"),
			HighlightStyle.Render(page.Title),
			formatCount(util.RuneLen(page.Text)))
	}
	return nil
}

// recordVisit logs a page visit, best effort. A history failure never
// blocks the question.
func recordVisit(cfg *config.Config, page extract.Page) {
	if !cfg.History.Enabled {
		return
	}
	store, err := history.New(history.Config{
		Path:       cfg.HistoryDBPath(),
		MaxEntries: cfg.History.MaxEntries,
	})
	if err != nil {
		return
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, _ = store.Record(ctx, page.URL, page.Title, util.RuneLen(page.Text))
}

// readStdinQuestion reads a piped question from stdin. Returns "" when
// stdin is a terminal.
func readStdinQuestion() string {
	stat, err := os.Stdin.Stat()
	if err != nil || stat.Mode()&os.ModeCharDevice != 0 {
		return ""
	}
	data, err := io.ReadAll(io.LimitReader(os.Stdin, maxStdinQuestion))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
