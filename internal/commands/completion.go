// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// =============================================================================
// TAB COMPLETION
// =============================================================================
// Suggests command names while the user types "/..." and argument values
// once a command is chosen. Argument suggestions come from the argument
// type: enums use their fixed values, URLs come from recent page visits,
// files come from the local filesystem.
// =============================================================================

// Completion is a single suggestion.
type Completion struct {
	Value       string // text inserted on accept
	Display     string // text shown in the menu
	Description string
	Score       int
}

// Completer produces suggestions for a partial input line.
type Completer struct {
	registry *Registry

	// URLsFn supplies recently visited URLs for ArgTypeURL arguments.
	// Nil disables URL suggestions.
	URLsFn func() []string
}

// NewCompleter creates a completer backed by the given registry.
func NewCompleter(registry *Registry) *Completer {
	return &Completer{registry: registry}
}

// Complete returns suggestions for the input, best match first.
// Non-command input yields nothing.
func (c *Completer) Complete(input string) []Completion {
	if !strings.HasPrefix(input, "/") {
		return nil
	}
	body := input[1:]

	// No space yet: still typing the command name.
	if !strings.ContainsAny(body, " \t") {
		return c.completeCommandName(body)
	}

	fields := strings.Fields(body)
	cmd, ok := c.registry.Get(strings.ToLower(fields[0]))
	if !ok || len(cmd.Args) == 0 {
		return nil
	}

	args := fields[1:]
	partial := ""
	argIndex := len(args)
	if argIndex > 0 && !strings.HasSuffix(input, " ") && !strings.HasSuffix(input, "\t") {
		argIndex--
		partial = args[argIndex]
	}
	if argIndex >= len(cmd.Args) {
		return nil
	}
	return c.completeArg(cmd.Args[argIndex], partial)
}

func (c *Completer) completeCommandName(partial string) []Completion {
	var out []Completion
	for name, cmd := range c.registry.commands {
		if score := calculateScore(name, partial); score > 0 {
			out = append(out, Completion{
				Value:       "/" + name,
				Display:     "/" + name,
				Description: cmd.Description,
				Score:       score,
			})
		}
	}
	for alias, canonical := range c.registry.aliases {
		score := calculateScore(alias, partial)
		if score <= 0 {
			continue
		}
		cmd := c.registry.commands[canonical]
		out = append(out, Completion{
			Value:       "/" + canonical,
			Display:     "/" + alias + " -> /" + canonical,
			Description: cmd.Description,
			// Canonical names outrank their aliases.
			Score: score - 10,
		})
	}
	sortCompletions(out)
	return out
}

func (c *Completer) completeArg(def ArgDef, partial string) []Completion {
	switch def.Type {
	case ArgTypeEnum:
		return completeValues(def.EnumValues, partial, "")
	case ArgTypeURL:
		if c.URLsFn == nil {
			return nil
		}
		return completeValues(c.URLsFn(), partial, "recent page")
	case ArgTypeFile:
		return completeFile(partial)
	default:
		return nil
	}
}

func completeValues(values []string, partial, description string) []Completion {
	var out []Completion
	for _, v := range values {
		if score := calculateScore(v, partial); score > 0 {
			out = append(out, Completion{
				Value:       v,
				Display:     v,
				Description: description,
				Score:       score,
			})
		}
	}
	sortCompletions(out)
	return out
}

func completeFile(partial string) []Completion {
	dir := filepath.Dir(partial)
	prefix := filepath.Base(partial)
	switch {
	case partial == "":
		dir, prefix = ".", ""
	case strings.HasSuffix(partial, string(filepath.Separator)):
		dir, prefix = partial, ""
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var out []Completion
	for _, entry := range entries {
		name := entry.Name()
		// Hide dotfiles unless the user is typing one.
		if !strings.HasPrefix(name, prefix) || (prefix == "" && strings.HasPrefix(name, ".")) {
			continue
		}
		value := filepath.Join(dir, name)
		display := name
		if entry.IsDir() {
			value += string(filepath.Separator)
			display += "/"
		}
		out = append(out, Completion{
			Value:   value,
			Display: display,
			Score:   calculateScore(name, prefix),
		})
	}
	sortCompletions(out)
	return out
}

// calculateScore ranks how well a candidate matches the typed prefix.
// Exact matches win, then prefix matches (shorter candidates first), then
// substring matches. Zero means no match.
func calculateScore(value, partial string) int {
	v := strings.ToLower(value)
	p := strings.ToLower(partial)
	switch {
	case v == p:
		return 100
	case strings.HasPrefix(v, p):
		return 50 + 20 - len(v)
	case strings.Contains(v, p):
		return 25 - len(v)/2
	default:
		return 0
	}
}

func sortCompletions(completions []Completion) {
	sort.Slice(completions, func(i, j int) bool {
		if completions[i].Score != completions[j].Score {
			return completions[i].Score > completions[j].Score
		}
		return completions[i].Value < completions[j].Value
	})
}

// -----------------------------------------------------------------------------
// Completion menu state
// -----------------------------------------------------------------------------

// CompletionState tracks the visible suggestion menu in the UI.
type CompletionState struct {
	Completions []Completion
	Selected    int
	Visible     bool
}

// SetCompletions replaces the suggestion list. An empty list hides the menu.
func (s *CompletionState) SetCompletions(completions []Completion) {
	s.Completions = completions
	s.Selected = 0
	s.Visible = len(completions) > 0
}

// Next moves the selection down, wrapping at the end.
func (s *CompletionState) Next() {
	if len(s.Completions) == 0 {
		return
	}
	s.Selected = (s.Selected + 1) % len(s.Completions)
}

// Prev moves the selection up, wrapping at the start.
func (s *CompletionState) Prev() {
	if len(s.Completions) == 0 {
		return
	}
	s.Selected = (s.Selected - 1 + len(s.Completions)) % len(s.Completions)
}

// Accept returns the selected completion and hides the menu.
func (s *CompletionState) Accept() (Completion, bool) {
	if !s.Visible || s.Selected >= len(s.Completions) {
		return Completion{}, false
	}
	chosen := s.Completions[s.Selected]
	s.Clear()
	return chosen, true
}

// Clear hides the menu and drops all suggestions.
func (s *CompletionState) Clear() {
	s.Completions = nil
	s.Selected = 0
	s.Visible = false
}
