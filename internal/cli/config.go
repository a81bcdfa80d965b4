// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config.go - Manage the pagechat config file.
package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/jeranaias/pagechat/internal/config"
)

// HandleConfig dispatches the config subcommands: init writes a default
// config file, show prints the effective configuration, path prints the
// file location. Bare `pagechat config` shows.
func HandleConfig(args Args) error {
	switch args.Subcommand {
	case "", "show":
		return configShow(args)
	case "init":
		return configInit()
	case "path":
		fmt.Println(config.ConfigPathTOML())
		return nil
	default:
		return NewUsageError("config", fmt.Sprintf("unknown subcommand %q, expected init, show, or path", args.Subcommand))
	}
}

// configInit writes a fully populated default config file. An existing
// file is never overwritten.
func configInit() error {
	path := config.ConfigPathTOML()

	if _, err := os.Stat(path); err == nil {
		fmt.Printf("%s config already exists: %s\n", WarningStyle.Render("[WARN]"), path)
		fmt.Println(DimStyle.Render("Edit it directly, or delete it and rerun 'pagechat config init'."))
		return nil
	}

	if err := config.SaveTOML(config.Default(), path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	fmt.Printf("%s wrote %s\n", SuccessStyle.Render("[OK]"), path)
	fmt.Println(DimStyle.Render("Set endpoint.url to your completion endpoint to start chatting."))
	return nil
}

// configShow prints the effective configuration: file values merged with
// defaults and environment overrides.
func configShow(args Args) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if args.JSON {
		return outputJSON(cfg)
	}

	path := config.ConfigPathTOML()
	source := path
	if _, err := os.Stat(path); os.IsNotExist(err) {
		source = "defaults (no config file; run 'pagechat config init')"
	}
	if p := os.Getenv(config.EnvConfigPath); p != "" {
		source = p
	}

	fmt.Println(TitleStyle.Render("pagechat configuration"))
	fmt.Println(RenderLabel("Source", source))
	fmt.Println()

	fmt.Println(DimStyle.Render("  [endpoint]"))
	if cfg.Endpoint.URL != "" {
		fmt.Println(RenderLabel("URL", cfg.Endpoint.URL))
	} else {
		fmt.Println(LabelStyle.Render("URL:") + " " + WarningStyle.Render("not set"))
	}
	fmt.Println(RenderLabel("Timeout", fmt.Sprintf("%ds per attempt", cfg.Endpoint.TimeoutSeconds)))
	fmt.Println(RenderLabel("Retries", strconv.Itoa(cfg.Endpoint.MaxRetries)))
	fmt.Println(RenderLabel("Backoff", fmt.Sprintf("%dms base", cfg.Endpoint.RetryBaseDelayMS)))
	fmt.Println()

	fmt.Println(DimStyle.Render("  [context]"))
	fmt.Println(RenderLabel("Max chars", strconv.Itoa(cfg.Context.MaxChars)))
	fmt.Println(RenderLabel("Window", fmt.Sprintf("%d messages", cfg.Context.HistoryWindow)))
	fmt.Println()

	fmt.Println(DimStyle.Render("  [extract]"))
	fmt.Println(RenderLabel("Timeout", fmt.Sprintf("%ds", cfg.Extract.TimeoutSeconds)))
	fmt.Println(RenderLabel("Max bytes", strconv.FormatInt(cfg.Extract.MaxResponseBytes, 10)))
	fmt.Println(RenderLabel("Redirects", strconv.Itoa(cfg.Extract.MaxRedirects)))
	fmt.Println()

	fmt.Println(DimStyle.Render("  [ui]"))
	fmt.Println(RenderLabel("Theme", cfg.UI.Theme))
	fmt.Println(RenderLabel("Markdown", strconv.FormatBool(cfg.UI.Markdown)))
	fmt.Println()

	fmt.Println(DimStyle.Render("  [server]"))
	fmt.Println(RenderLabel("Port", strconv.Itoa(cfg.Server.Port)))
	fmt.Println(RenderLabel("Rate limit", fmt.Sprintf("%d/min", cfg.Server.RateLimitPerMinute)))
	fmt.Println()

	fmt.Println(DimStyle.Render("  [history]"))
	fmt.Println(RenderLabel("Enabled", strconv.FormatBool(cfg.History.Enabled)))
	fmt.Println(RenderLabel("Max entries", strconv.Itoa(cfg.History.MaxEntries)))
	fmt.Println(RenderLabel("Database", cfg.HistoryDBPath()))

	return nil
}
