// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Line-mode REPL for plain terminals.
//
// The REPL shares the slash command set with the TUI through the
// commands registry: handlers return messages, and the REPL prints them
// instead of feeding them into a bubbletea update loop. Input history
// persists to the config directory with liner.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/peterh/liner"

	"github.com/jeranaias/pagechat/internal/chat"
	"github.com/jeranaias/pagechat/internal/commands"
	"github.com/jeranaias/pagechat/internal/config"
	"github.com/jeranaias/pagechat/internal/extract"
	"github.com/jeranaias/pagechat/internal/history"
	"github.com/jeranaias/pagechat/internal/llm"
	"github.com/jeranaias/pagechat/internal/prompt"
	"github.com/jeranaias/pagechat/internal/util"
)

// =============================================================================
// LINE EDITOR
// =============================================================================

// ChatCLI wraps the liner state and its persisted input history.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates the line editor and loads previous input history.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	c := &ChatCLI{
		line:        line,
		historyFile: config.ReplHistoryPath(),
	}

	if f, err := os.Open(c.historyFile); err == nil {
		_, _ = line.ReadHistory(f)
		f.Close()
	}

	return c
}

// ReadInput prompts for one line and appends non-blank input to history.
func (c *ChatCLI) ReadInput(promptText string) (string, error) {
	input, err := c.line.Prompt(promptText)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// SaveHistory persists input history to the config directory. The file is
// chmod 0600: prompts can contain anything the user typed.
func (c *ChatCLI) SaveHistory() {
	if err := config.EnsureConfigDir(); err != nil {
		return
	}
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	_, _ = c.line.WriteHistory(f)
}

// Close restores the terminal state.
func (c *ChatCLI) Close() {
	c.line.Close()
}

// =============================================================================
// IN-FLIGHT CANCELLATION
// =============================================================================

// replSession tracks the cancel func of an in-flight request so Ctrl+C
// interrupts the request instead of killing the process.
type replSession struct {
	mu     sync.Mutex
	cancel context.CancelFunc
}

func (s *replSession) set(cancel context.CancelFunc) {
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
}

func (s *replSession) clear() {
	s.set(nil)
}

func (s *replSession) cancelInflight() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// =============================================================================
// REPL
// =============================================================================

// HandleChat runs the line-mode REPL.
func HandleChat(args Args) error {
	if !CanPrompt() {
		return NewUsageError("chat", "requires an interactive terminal (pipe questions through 'pagechat ask' instead)")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	configureMarkdown(cfg.UI.Theme)

	client := chat.New(llm.New(cfg.CompletionConfig()), prompt.New(cfg.PromptConfig()))
	loader := extract.NewDedup(extract.New(cfg.ExtractorConfig()))

	var store *history.Store
	if cfg.History.Enabled {
		s, err := history.New(history.Config{
			Path:       cfg.HistoryDBPath(),
			MaxEntries: cfg.History.MaxEntries,
		})
		if err == nil {
			store = s
			defer store.Close()
		} else if args.Verbose {
			fmt.Fprintf(os.Stderr, "%s page history unavailable: %v\n", WarningStyle.Render("[WARN]"), err)
		}
	}

	registry := commands.NewRegistry()
	parser := commands.NewParser(registry)
	cmdCtx := &commands.Context{Config: cfg, Chat: client, Loader: loader, Visits: store}

	session := &replSession{}
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		for range sigCh {
			session.cancelInflight()
		}
	}()

	printWelcome(cfg, client)

	repl := NewChatCLI()
	defer repl.Close()
	defer repl.SaveHistory()

	if args.URL != "" {
		runSlash("/load "+args.URL, parser, cmdCtx, registry)
	}

	for {
		input, err := repl.ReadInput(PromptStyle.Render("pagechat> "))
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				printExitSummary(client)
				return nil
			}
			return fmt.Errorf("read input: %w", err)
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			if !runSlash(input, parser, cmdCtx, registry) {
				printExitSummary(client)
				return nil
			}
			continue
		}

		if input == "exit" || input == "quit" {
			printExitSummary(client)
			return nil
		}

		processMessage(session, client, cfg, args, input)
	}
}

// processMessage sends one user message and prints the reply. The client
// rolls the optimistic user append back on failure, so an interrupted or
// failed request leaves the transcript unchanged.
func processMessage(session *replSession, client *chat.Client, cfg *config.Config, args Args, text string) {
	ctx, cancel := context.WithCancel(context.Background())
	session.set(cancel)
	defer session.clear()
	defer cancel()

	if !args.Quiet && !client.HasContext() {
		fmt.Println(DimStyle.Render("No page loaded; answering without page context. Try /load <url>."))
	}

	reply, err := client.SendMessage(ctx, text)
	if err != nil {
		if ctx.Err() == context.Canceled {
			fmt.Println(DimStyle.Render("Interrupted."))
			return
		}
		fmt.Printf("%s %s\n", ErrorStyle.Render("[ERROR]"), err.Error())
		return
	}

	fmt.Println()
	displayResponse(reply.Content, cfg.UI.Markdown && !args.Plain && IsStdoutTTY())
	fmt.Println()
}

// runSlash parses and executes a slash command synchronously. Returns
// false when the command asks to exit.
func runSlash(input string, parser *commands.Parser, cmdCtx *commands.Context, registry *commands.Registry) bool {
	if input == "/" {
		printSlashHelp(registry, "")
		return true
	}

	result := parser.Parse(input)
	if result.Error != nil {
		fmt.Printf("%s %v\n", ErrorStyle.Render("[ERROR]"), result.Error)
		return true
	}

	msg := result.Command.Handler(cmdCtx, result.Args)()
	return printCommandMsg(msg, registry)
}

// printCommandMsg renders a command result message. Returns false when
// the message asks to exit.
func printCommandMsg(msg tea.Msg, registry *commands.Registry) bool {
	switch m := msg.(type) {
	case tea.QuitMsg:
		return false

	case commands.ErrorMsg:
		fmt.Printf("%s %s: %s\n", ErrorStyle.Render("[ERROR]"), m.Title, m.Message)
		if m.Tip != "" {
			fmt.Println(DimStyle.Render("  " + m.Tip))
		}

	case commands.SystemMessageMsg:
		fmt.Println(DimStyle.Render(m.Content))

	case commands.PageLoadedMsg:
		fmt.Printf("%s %s (%s chars)\n",
			SuccessStyle.Render("Loaded:"),
			HighlightStyle.Render(m.Page.Title),
			formatCount(util.RuneLen(m.Page.Text)))
		fmt.Println(DimStyle.Render("  " + m.Page.URL))

	case commands.ContextInfoMsg:
		if !m.Loaded {
			fmt.Println(DimStyle.Render("No page loaded. Use /load <url>."))
			break
		}
		fmt.Println(RenderLabel("Page", m.Title))
		fmt.Println(RenderLabel("URL", m.URL))
		fmt.Println(RenderLabel("Size", formatCount(m.Chars)+" chars"))

	case commands.ClearedMsg:
		fmt.Println(DimStyle.Render("Conversation cleared. Page context kept."))

	case commands.ExportCompleteMsg:
		if m.Err != nil {
			fmt.Printf("%s export failed: %v\n", ErrorStyle.Render("[ERROR]"), m.Err)
			break
		}
		fmt.Printf("%s transcript written to %s\n", SuccessStyle.Render("Exported:"), m.Path)

	case commands.HistoryListMsg:
		printVisits(m.Visits, m.Err)

	case commands.ShowHelpMsg:
		printSlashHelp(registry, m.Topic)
	}

	return true
}

// printVisits renders a page visit list, newest first.
func printVisits(visits []history.Visit, err error) {
	if err != nil {
		fmt.Printf("%s history lookup failed: %v\n", ErrorStyle.Render("[ERROR]"), err)
		return
	}
	if len(visits) == 0 {
		fmt.Println(DimStyle.Render("No page visits recorded yet."))
		return
	}
	for _, v := range visits {
		fmt.Printf("  %s %s\n",
			DimStyle.Render(fmt.Sprintf("%-12s", formatRelativeTime(v.VisitedAt))),
			HighlightStyle.Render(util.TruncateRunes(v.Title, 60)))
		fmt.Printf("               %s\n", InfoStyle.Render(v.URL))
	}
}

// printSlashHelp renders help for one command or the whole set.
func printSlashHelp(registry *commands.Registry, topic string) {
	if topic != "" {
		cmd, ok := registry.Get(topic)
		if !ok {
			fmt.Printf("%s unknown command: /%s\n", ErrorStyle.Render("[ERROR]"), topic)
			return
		}
		fmt.Println(TitleStyle.Render("/" + cmd.Name))
		fmt.Println("  " + cmd.Description)
		fmt.Println(DimStyle.Render("  Usage: " + cmd.Usage))
		if len(cmd.Aliases) > 0 {
			fmt.Println(DimStyle.Render("  Aliases: /" + strings.Join(cmd.Aliases, ", /")))
		}
		return
	}

	byCategory := registry.ByCategory()
	fmt.Println(TitleStyle.Render("Commands"))
	for _, category := range []string{"Page", "Conversation", "Navigation"} {
		cmds := byCategory[category]
		if len(cmds) == 0 {
			continue
		}
		fmt.Println(DimStyle.Render("  " + category))
		for _, cmd := range cmds {
			fmt.Printf("    %-24s %s\n", cmd.Usage, DimStyle.Render(cmd.Description))
		}
	}
	fmt.Println(DimStyle.Render("  Plain text is sent to the model. 'exit' or /quit leaves."))
}

// printWelcome prints the session banner.
func printWelcome(cfg *config.Config, client *chat.Client) {
	width := GetTerminalWidth()
	if width > 60 {
		width = 60
	}

	fmt.Println()
	fmt.Println(TitleStyle.Render("pagechat " + Version))
	fmt.Println(RenderSeparator(width))
	if cfg.Endpoint.URL != "" {
		fmt.Println(RenderLabel("Endpoint", cfg.Endpoint.URL))
	} else {
		fmt.Println(LabelStyle.Render("Endpoint:") + " " + WarningStyle.Render("not configured (run 'pagechat config init')"))
	}
	if client.HasContext() {
		fmt.Println(RenderLabel("Page", client.ContextTitle()))
	}
	fmt.Println(RenderLabel("Commands", "/help"))
	fmt.Println(RenderSeparator(width))
	fmt.Println()
}

// printExitSummary prints the goodbye line.
func printExitSummary(client *chat.Client) {
	if n := client.Len(); n > 0 {
		fmt.Println(DimStyle.Render(fmt.Sprintf("%d messages this session.", n)))
	}
	fmt.Println(DimStyle.Render("Goodbye!"))
}
