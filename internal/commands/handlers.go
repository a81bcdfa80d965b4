// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"context"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/pagechat/internal/export"
	"github.com/jeranaias/pagechat/internal/extract"
	"github.com/jeranaias/pagechat/internal/history"
	"github.com/jeranaias/pagechat/internal/util"
)

// =============================================================================
// COMMAND HANDLERS
// =============================================================================
// Handlers return tea.Cmd closures so slow work (fetching a page, touching
// the history database) happens off the update loop. The closures return
// messages the UI renders.
// =============================================================================

// -----------------------------------------------------------------------------
// Messages
// -----------------------------------------------------------------------------

// ErrorMsg displays an error with an optional remediation tip.
type ErrorMsg struct {
	Title   string
	Message string
	Tip     string
}

// SystemMessageMsg displays informational text in the conversation.
type SystemMessageMsg struct {
	Content string
}

// ShowHelpMsg requests the help view, optionally for one command.
type ShowHelpMsg struct {
	Topic string
}

// PageLoadedMsg reports a successfully loaded page. The handler has already
// installed it as the conversation context and recorded the visit.
type PageLoadedMsg struct {
	Page extract.Page
}

// ContextInfoMsg describes the currently loaded page, if any.
type ContextInfoMsg struct {
	URL    string
	Title  string
	Chars  int
	Loaded bool
}

// ClearedMsg reports that the conversation transcript was cleared.
type ClearedMsg struct{}

// ExportCompleteMsg reports the outcome of an export.
type ExportCompleteMsg struct {
	Path string
	Err  error
}

// HistoryListMsg carries recently visited pages.
type HistoryListMsg struct {
	Visits []history.Visit
	Err    error
}

// -----------------------------------------------------------------------------
// Handlers
// -----------------------------------------------------------------------------

// HandleLoad fetches a page, installs it as the conversation context, and
// records the visit. Loading a new page resets the transcript.
func HandleLoad(ctx *Context, args []string) tea.Cmd {
	rawURL := args[0]
	return func() tea.Msg {
		page, err := ctx.Loader.Extract(context.Background(), rawURL)
		if err != nil {
			return ErrorMsg{
				Title:   "Page load failed",
				Message: err.Error(),
				Tip:     "Check the URL and your connection",
			}
		}
		ctx.Chat.SetContextFromPage(page.URL, page.Title, page.Text)
		if ctx.Visits != nil {
			// Best effort: a failed history write never blocks the load.
			_, _ = ctx.Visits.Record(context.Background(), page.URL, page.Title, util.RuneLen(page.Text))
		}
		return PageLoadedMsg{Page: page}
	}
}

// HandleContext reports the currently loaded page.
func HandleContext(ctx *Context, args []string) tea.Cmd {
	return func() tea.Msg {
		text := ctx.Chat.Context()
		return ContextInfoMsg{
			URL:    ctx.Chat.ContextURL(),
			Title:  ctx.Chat.ContextTitle(),
			Chars:  util.RuneLen(text),
			Loaded: text != "",
		}
	}
}

// HandleClear wipes the transcript, keeping the loaded page.
func HandleClear(ctx *Context, args []string) tea.Cmd {
	return func() tea.Msg {
		ctx.Chat.ClearHistory()
		return ClearedMsg{}
	}
}

// HandleExport writes the conversation to a file. Format defaults to
// markdown; an explicit path overrides the generated filename.
func HandleExport(ctx *Context, args []string) tea.Cmd {
	format := "md"
	path := ""
	if len(args) > 0 {
		format = strings.ToLower(args[0])
	}
	if len(args) > 1 {
		path = args[1]
	}
	return func() tea.Msg {
		messages := ctx.Chat.History()
		if len(messages) == 0 {
			return ErrorMsg{
				Title:   "Nothing to export",
				Message: "The conversation is empty.",
				Tip:     "Send a message first",
			}
		}
		pageText := ctx.Chat.Context()
		transcript := &export.Transcript{
			PageURL:      ctx.Chat.ContextURL(),
			PageTitle:    ctx.Chat.ContextTitle(),
			ContextChars: util.RuneLen(pageText),
			ExportedAt:   time.Now(),
			Messages:     messages,
		}
		opts := export.DefaultOptions()
		if ctx.Config != nil && ctx.Config.UI.Theme == "light" {
			opts.Theme = "light"
		}
		written, err := export.ToFile(transcript, format, path, opts)
		return ExportCompleteMsg{Path: written, Err: err}
	}
}

// HandleHistory lists recent page visits, optionally filtered by a query.
func HandleHistory(ctx *Context, args []string) tea.Cmd {
	query := strings.Join(args, " ")
	return func() tea.Msg {
		if ctx.Visits == nil {
			return ErrorMsg{
				Title:   "History disabled",
				Message: "Page history is turned off.",
				Tip:     "Enable history in config.toml",
			}
		}
		visits, err := ctx.Visits.Search(context.Background(), query, 20)
		return HistoryListMsg{Visits: visits, Err: err}
	}
}

// HandleHelp shows the command list, or detail for one command.
func HandleHelp(ctx *Context, args []string) tea.Cmd {
	topic := ""
	if len(args) > 0 {
		topic = strings.TrimPrefix(strings.ToLower(args[0]), "/")
	}
	return func() tea.Msg {
		return ShowHelpMsg{Topic: topic}
	}
}

// HandleQuit exits the program.
func HandleQuit(ctx *Context, args []string) tea.Cmd {
	return tea.Quit
}
