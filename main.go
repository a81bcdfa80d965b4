// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package main is the entry point for pagechat, a terminal client for
// chatting with the text of any web page.
package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	chatclient "github.com/jeranaias/pagechat/internal/chat"
	"github.com/jeranaias/pagechat/internal/cli"
	"github.com/jeranaias/pagechat/internal/commands"
	"github.com/jeranaias/pagechat/internal/config"
	"github.com/jeranaias/pagechat/internal/extract"
	"github.com/jeranaias/pagechat/internal/history"
	"github.com/jeranaias/pagechat/internal/llm"
	"github.com/jeranaias/pagechat/internal/prompt"
	uichat "github.com/jeranaias/pagechat/internal/ui/chat"
)

// Build metadata, injected via -ldflags at release time:
//
//	go build -ldflags "-X main.Version=... -X main.GitCommit=... -X main.BuildDate=..."
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	command, args := cli.Parse()

	switch command {
	case cli.CmdTUI:
		runTUI(args)
	case cli.CmdChat:
		run(cli.HandleChat, args)
	case cli.CmdAsk:
		run(cli.HandleAsk, args)
	case cli.CmdExtract:
		run(cli.HandleExtract, args)
	case cli.CmdHistory:
		run(cli.HandleHistory, args)
	case cli.CmdServe:
		run(cli.HandleServe, args)
	case cli.CmdConfig:
		run(cli.HandleConfig, args)
	case cli.CmdVersion:
		cli.PrintVersion()
	case cli.CmdHelp:
		cli.PrintUsage()
	case cli.CmdUnknown:
		run(cli.HandleUnknown, args)
	default:
		cli.PrintUsage()
		os.Exit(cli.ExitUsageError)
	}
}

// run executes a command handler and maps its error to an exit code.
func run(handler func(cli.Args) error, args cli.Args) {
	if err := handler(args); err != nil {
		cli.DisplayError(err)
		os.Exit(cli.ExitCode(err))
	}
}

// runTUI assembles the interactive chat view. With stdin piped it degrades
// to one-shot ask so `echo question | pagechat` works in scripts.
func runTUI(args cli.Args) {
	if !cli.IsTTY() {
		run(cli.HandleAsk, args)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		cli.DisplayError(err)
		os.Exit(cli.ExitCode(err))
	}

	client := chatclient.New(llm.New(cfg.CompletionConfig()), prompt.New(cfg.PromptConfig()))
	loader := extract.NewDedup(extract.New(cfg.ExtractorConfig()))

	var store *history.Store
	if cfg.History.Enabled {
		if s, herr := history.New(history.Config{
			Path:       cfg.HistoryDBPath(),
			MaxEntries: cfg.History.MaxEntries,
		}); herr == nil {
			store = s
			defer store.Close()
		}
	}

	// Config edits apply to new requests without restarting the TUI.
	if watcher, werr := config.Watch(config.ConfigPathTOML(), 0, func(next *config.Config) {
		client.Reconfigure(llm.New(next.CompletionConfig()), prompt.New(next.PromptConfig()))
	}); werr == nil {
		defer watcher.Close()
	}

	registry := commands.NewRegistry()
	cmdCtx := &commands.Context{
		Config: cfg,
		Chat:   client,
		Loader: loader,
		Visits: store,
	}

	m := uichat.New(uichat.Options{
		Config:     cfg,
		Client:     client,
		Commands:   cmdCtx,
		Registry:   registry,
		InitialURL: args.URL,
		Version:    Version,
	})

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running pagechat: %v\n", err)
		os.Exit(cli.ExitGeneralError)
	}
}
