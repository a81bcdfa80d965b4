// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - Command-line parsing and dispatch for pagechat.
package cli

import (
	"fmt"
	"os"
	"strings"
)

// Version information (set at build time via -ldflags).
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command identifies which pagechat command was invoked.
type Command int

const (
	// CmdTUI launches the interactive terminal UI (the default).
	CmdTUI Command = iota
	// CmdChat runs the line-mode REPL.
	CmdChat
	// CmdAsk answers a single question and exits.
	CmdAsk
	// CmdExtract fetches a page and prints the extracted text.
	CmdExtract
	// CmdHistory lists recorded page visits.
	CmdHistory
	// CmdServe exposes the chat API over local HTTP.
	CmdServe
	// CmdConfig manages the config file.
	CmdConfig
	// CmdVersion prints version information.
	CmdVersion
	// CmdHelp prints usage.
	CmdHelp
	// CmdUnknown is an unrecognized command; Args.Subcommand holds it.
	CmdUnknown
)

// Args holds parsed command-line arguments. Global flags apply to every
// command; command-specific values are filled by the per-command parsers
// or left in Raw for handlers that use ArgParser.
type Args struct {
	// Global flags
	Quiet   bool // -q, --quiet: suppress status lines
	Verbose bool // --verbose: extra logging
	JSON    bool // --json: machine-readable output
	Plain   bool // --plain: disable markdown rendering

	// Command arguments
	URL        string   // --url: page to load before chatting
	Query      string   // ask question text
	Subcommand string   // config subcommand, or the unknown command name
	Raw        []string // remaining args for ArgParser-based handlers
}

const usageText = `pagechat - chat with any web page from your terminal

Usage:
  pagechat [command] [flags]

Commands:
  (none)                Launch the interactive TUI
  chat                  Line-mode REPL for plain terminals
  ask "question"        Ask one question, print the answer, exit
  extract <url>         Fetch a page and print the extracted text
  history               List recently loaded pages
  serve                 Expose the chat API over local HTTP
  config [init|show|path]
                        Manage ~/.pagechat/config.toml
  version               Show version information
  help                  Show this help

Flags:
  --url <url>           Load a page before chatting (ask, chat, TUI)
  --json                Machine-readable output (extract, history, config)
  --search <text>       Filter history by URL or title
  --limit <n>           Cap history rows (default 20)
  --port <n>            Listen port for serve (default 8989)
  --plain               Disable markdown rendering
  -q, --quiet           Suppress status lines
  --verbose             Verbose logging

Examples:
  pagechat https://go.dev/blog/loopvar-preview
  pagechat ask --url https://go.dev/doc/faq "why are there no generic methods?"
  pagechat extract https://example.com --json
  pagechat history --search golang --limit 10
  pagechat serve --port 8989

Version: %s
`

// Parse reads os.Args and returns the command to run with its arguments.
func Parse() (Command, Args) {
	return parseArgs(os.Args[1:])
}

func parseArgs(argv []string) (Command, Args) {
	remaining, parsed := parseGlobalFlags(argv)

	if len(remaining) == 0 {
		return CmdTUI, parsed
	}

	cmd := strings.ToLower(remaining[0])
	rest := remaining[1:]

	switch cmd {
	case "chat", "repl":
		return CmdChat, parsed

	case "ask", "q":
		parseAskArgs(&parsed, rest)
		return CmdAsk, parsed

	case "extract", "fetch":
		parsed.Raw = rest
		return CmdExtract, parsed

	case "history", "hist":
		parsed.Raw = rest
		return CmdHistory, parsed

	case "serve", "server":
		parsed.Raw = rest
		return CmdServe, parsed

	case "config", "cfg":
		parseConfigArgs(&parsed, rest)
		return CmdConfig, parsed

	case "version", "--version":
		return CmdVersion, parsed

	case "help", "-h", "--help":
		return CmdHelp, parsed

	default:
		// A bare URL opens the TUI on that page.
		if looksLikeURL(remaining[0]) {
			parsed.URL = remaining[0]
			return CmdTUI, parsed
		}
		parsed.Subcommand = remaining[0]
		parsed.Raw = rest
		return CmdUnknown, parsed
	}
}

// parseGlobalFlags extracts global flags and returns the remaining args.
func parseGlobalFlags(args []string) ([]string, Args) {
	var remaining []string
	var parsed Args

	i := 0
	for i < len(args) {
		arg := args[i]

		switch arg {
		case "-q", "--quiet":
			parsed.Quiet = true
		case "--verbose":
			parsed.Verbose = true
		case "--json":
			parsed.JSON = true
		case "--plain":
			parsed.Plain = true
		case "--url":
			if i+1 < len(args) {
				i++
				parsed.URL = args[i]
			}
		default:
			if strings.HasPrefix(arg, "--url=") {
				parsed.URL = strings.TrimPrefix(arg, "--url=")
			} else {
				remaining = append(remaining, arg)
			}
		}
		i++
	}

	return remaining, parsed
}

// parseAskArgs joins the remaining words into the question so quoting is
// optional: `pagechat ask why is the sky blue` works.
func parseAskArgs(args *Args, remaining []string) {
	args.Query = strings.TrimSpace(strings.Join(remaining, " "))
}

// parseConfigArgs takes the config subcommand (init, show, path).
func parseConfigArgs(args *Args, remaining []string) {
	if len(remaining) > 0 {
		args.Subcommand = strings.ToLower(remaining[0])
	}
}

// looksLikeURL reports whether s is plausibly a web address rather than a
// mistyped command: an explicit scheme, or a dotted host.
func looksLikeURL(s string) bool {
	if strings.HasPrefix(s, "-") {
		return false
	}
	if strings.Contains(s, "://") {
		return true
	}
	return strings.Contains(s, ".") && !strings.ContainsAny(s, " \t")
}

// PrintUsage writes the usage text to stdout.
func PrintUsage() {
	fmt.Printf(usageText, Version)
}

// PrintVersion writes version information to stdout.
func PrintVersion() {
	fmt.Printf("pagechat version %s\n", Version)
	fmt.Printf("  commit: %s\n", GitCommit)
	fmt.Printf("  built:  %s\n", BuildDate)
}

// HandleUnknown reports an unrecognized command, suggesting the closest
// valid one when the input looks like a typo.
func HandleUnknown(args Args) error {
	reason := fmt.Sprintf("unknown command %q", args.Subcommand)
	if suggestion := SuggestCommand(args.Subcommand); suggestion != "" {
		fmt.Fprintf(os.Stderr, "Did you mean 'pagechat %s'?\n", suggestion)
	}
	return NewUsageError("", reason+" (see 'pagechat help')")
}
