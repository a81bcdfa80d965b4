// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"fmt"
	"strings"
)

// =============================================================================
// COMMAND PARSER
// =============================================================================
// Splits raw input lines into command invocations. Everything that does not
// start with "/" is a chat message and passes through untouched.
// =============================================================================

// ParseResult holds the outcome of parsing one input line.
type ParseResult struct {
	IsCommand   bool
	Command     *Command
	CommandName string
	Args        []string
	RawInput    string
	RawArgs     string
	Error       error
}

// Parser parses input lines against a command registry.
type Parser struct {
	registry *Registry
}

// NewParser creates a parser backed by the given registry.
func NewParser(registry *Registry) *Parser {
	return &Parser{registry: registry}
}

// Parse splits input into a command and arguments. For unknown commands the
// result has IsCommand set with Error describing the problem, so the caller
// can show an error instead of sending "/typo" to the model.
func (p *Parser) Parse(input string) ParseResult {
	result := ParseResult{RawInput: input}

	trimmed := strings.TrimSpace(input)
	if !strings.HasPrefix(trimmed, "/") {
		return result
	}

	result.IsCommand = true

	parts := splitCommandLine(trimmed[1:])
	if len(parts) == 0 {
		result.Error = fmt.Errorf("empty command")
		return result
	}

	result.CommandName = strings.ToLower(parts[0])
	result.Args = parts[1:]
	if idx := strings.IndexAny(trimmed, " \t"); idx >= 0 {
		result.RawArgs = strings.TrimSpace(trimmed[idx:])
	}

	cmd, ok := p.registry.Get(result.CommandName)
	if !ok {
		result.Error = fmt.Errorf("unknown command: /%s (try /help)", result.CommandName)
		return result
	}
	result.Command = cmd

	if err := ValidateArgs(cmd, result.Args); err != nil {
		result.Error = err
	}
	return result
}

// IsCommand reports whether the input line is a slash command.
func IsCommand(input string) bool {
	return strings.HasPrefix(strings.TrimSpace(input), "/")
}

// ExtractCommandName returns the bare command name from an input line,
// without the leading slash or any arguments. Returns "" for non-commands.
func ExtractCommandName(input string) string {
	trimmed := strings.TrimSpace(input)
	if !strings.HasPrefix(trimmed, "/") {
		return ""
	}
	parts := strings.Fields(trimmed[1:])
	if len(parts) == 0 {
		return ""
	}
	return strings.ToLower(parts[0])
}

// ValidationError reports an argument that failed validation.
type ValidationError struct {
	Command string
	Arg     string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("/%s: %s (%s)", e.Command, e.Message, e.Arg)
}

// ValidateArgs checks the given arguments against the command's schema.
// Extra arguments beyond the schema are allowed; handlers that care about
// them deal with it themselves.
func ValidateArgs(cmd *Command, args []string) error {
	for i, def := range cmd.Args {
		if i >= len(args) {
			if def.Required {
				return &ValidationError{
					Command: cmd.Name,
					Arg:     def.Name,
					Message: fmt.Sprintf("missing required argument, usage: %s", cmd.Usage),
				}
			}
			continue
		}
		if def.Type == ArgTypeEnum && !matchesEnum(def.EnumValues, args[i]) {
			return &ValidationError{
				Command: cmd.Name,
				Arg:     def.Name,
				Message: fmt.Sprintf("must be one of: %s", strings.Join(def.EnumValues, ", ")),
			}
		}
	}
	return nil
}

func matchesEnum(values []string, arg string) bool {
	for _, v := range values {
		if strings.EqualFold(v, arg) {
			return true
		}
	}
	return false
}

// splitCommandLine tokenizes a command line, honoring double and single
// quotes so paths with spaces survive as one argument.
func splitCommandLine(line string) []string {
	var parts []string
	var current strings.Builder
	var quote rune

	for _, r := range line {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				current.WriteRune(r)
			}
		case r == '"' || r == '\'':
			quote = r
		case r == ' ' || r == '\t':
			if current.Len() > 0 {
				parts = append(parts, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(r)
		}
	}
	if current.Len() > 0 {
		parts = append(parts, current.String())
	}
	return parts
}
