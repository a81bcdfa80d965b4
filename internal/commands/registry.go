// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"context"
	"sort"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/pagechat/internal/chat"
	"github.com/jeranaias/pagechat/internal/config"
	"github.com/jeranaias/pagechat/internal/extract"
	"github.com/jeranaias/pagechat/internal/history"
)

// =============================================================================
// COMMAND REGISTRY
// =============================================================================
// Central registry for all slash commands. Each command declares its name,
// aliases, argument schema, and a handler. The registry is consumed by the
// parser (lookup), the completer (suggestions), and the help command
// (listing by category).
// =============================================================================

// ArgType describes what kind of value an argument accepts. The completer
// uses it to decide which suggestion source to query.
type ArgType int

const (
	// ArgTypeString is a free-form argument with no completion.
	ArgTypeString ArgType = iota
	// ArgTypeURL completes from recently visited page URLs.
	ArgTypeURL
	// ArgTypeFile completes from the local filesystem.
	ArgTypeFile
	// ArgTypeEnum completes from a fixed set of values.
	ArgTypeEnum
)

// ArgDef describes a single positional argument of a command.
type ArgDef struct {
	Name        string
	Description string
	Required    bool
	Type        ArgType
	EnumValues  []string // only for ArgTypeEnum
}

// Command is a single slash command.
type Command struct {
	Name        string
	Aliases     []string
	Description string
	Usage       string
	Args        []ArgDef
	Handler     func(ctx *Context, args []string) tea.Cmd
	Category    string
}

// PageLoader fetches and extracts a page. Both extract.Extractor and
// extract.Dedup satisfy it.
type PageLoader interface {
	Extract(ctx context.Context, rawURL string) (extract.Page, error)
}

// Context carries the dependencies command handlers need. The UI constructs
// one and passes it to Execute for every dispatched command.
type Context struct {
	Config *config.Config
	Chat   *chat.Client
	Loader PageLoader

	// Visits is nil when page history is disabled in the config.
	Visits *history.Store
}

// Registry holds all registered commands and their alias mappings.
type Registry struct {
	commands map[string]*Command
	aliases  map[string]string // alias -> canonical name
}

// NewRegistry creates a registry pre-populated with the builtin commands.
func NewRegistry() *Registry {
	r := &Registry{
		commands: make(map[string]*Command),
		aliases:  make(map[string]string),
	}
	r.registerBuiltins()
	return r
}

// Register adds a command and its aliases to the registry.
// Later registrations with the same name replace earlier ones.
func (r *Registry) Register(cmd *Command) {
	r.commands[cmd.Name] = cmd
	for _, alias := range cmd.Aliases {
		r.aliases[alias] = cmd.Name
	}
}

// Get looks up a command by name or alias.
func (r *Registry) Get(name string) (*Command, bool) {
	if cmd, ok := r.commands[name]; ok {
		return cmd, true
	}
	if canonical, ok := r.aliases[name]; ok {
		return r.commands[canonical], true
	}
	return nil, false
}

// All returns every registered command, sorted by name.
func (r *Registry) All() []*Command {
	cmds := make([]*Command, 0, len(r.commands))
	for _, cmd := range r.commands {
		cmds = append(cmds, cmd)
	}
	sort.Slice(cmds, func(i, j int) bool { return cmds[i].Name < cmds[j].Name })
	return cmds
}

// ByCategory returns commands grouped by their category, sorted by name
// within each group so help listings are stable.
func (r *Registry) ByCategory() map[string][]*Command {
	grouped := make(map[string][]*Command)
	for _, cmd := range r.commands {
		grouped[cmd.Category] = append(grouped[cmd.Category], cmd)
	}
	for _, cmds := range grouped {
		sort.Slice(cmds, func(i, j int) bool { return cmds[i].Name < cmds[j].Name })
	}
	return grouped
}

// Names returns all canonical command names, unordered.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	return names
}

// registerBuiltins wires up the builtin command set.
func (r *Registry) registerBuiltins() {
	r.Register(&Command{
		Name:        "load",
		Aliases:     []string{"l", "open"},
		Description: "Load a web page as the conversation context",
		Usage:       "/load <url>",
		Args: []ArgDef{
			{Name: "url", Description: "Page URL to fetch", Required: true, Type: ArgTypeURL},
		},
		Handler:  HandleLoad,
		Category: "Page",
	})

	r.Register(&Command{
		Name:        "context",
		Aliases:     []string{"ctx"},
		Description: "Show the currently loaded page",
		Usage:       "/context",
		Handler:     HandleContext,
		Category:    "Page",
	})

	r.Register(&Command{
		Name:        "history",
		Aliases:     []string{"hist"},
		Description: "List recently visited pages",
		Usage:       "/history [query]",
		Args: []ArgDef{
			{Name: "query", Description: "Filter by URL or title", Required: false, Type: ArgTypeString},
		},
		Handler:  HandleHistory,
		Category: "Page",
	})

	r.Register(&Command{
		Name:        "clear",
		Aliases:     []string{"c"},
		Description: "Clear the conversation, keeping the loaded page",
		Usage:       "/clear",
		Handler:     HandleClear,
		Category:    "Conversation",
	})

	r.Register(&Command{
		Name:        "export",
		Aliases:     []string{"save"},
		Description: "Export the conversation to a file",
		Usage:       "/export [md|json|html] [path]",
		Args: []ArgDef{
			{Name: "format", Description: "Output format", Required: false, Type: ArgTypeEnum,
				EnumValues: []string{"md", "json", "html"}},
			{Name: "path", Description: "Output file path", Required: false, Type: ArgTypeFile},
		},
		Handler:  HandleExport,
		Category: "Conversation",
	})

	r.Register(&Command{
		Name:        "help",
		Aliases:     []string{"h", "?"},
		Description: "Show available commands",
		Usage:       "/help [command]",
		Args: []ArgDef{
			{Name: "command", Description: "Command to describe", Required: false, Type: ArgTypeString},
		},
		Handler:  HandleHelp,
		Category: "Navigation",
	})

	r.Register(&Command{
		Name:        "quit",
		Aliases:     []string{"q", "exit"},
		Description: "Exit pagechat",
		Usage:       "/quit",
		Handler:     HandleQuit,
		Category:    "Navigation",
	})
}
