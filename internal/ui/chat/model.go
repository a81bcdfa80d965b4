// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	chatclient "github.com/jeranaias/pagechat/internal/chat"
	"github.com/jeranaias/pagechat/internal/commands"
	"github.com/jeranaias/pagechat/internal/config"
	"github.com/jeranaias/pagechat/internal/model"
	"github.com/jeranaias/pagechat/internal/ui/components"
	"github.com/jeranaias/pagechat/internal/util"
)

// =============================================================================
// STATE
// =============================================================================

// State is the interaction state of the chat view.
type State int

const (
	// StateReady accepts input.
	StateReady State = iota
	// StateThinking has a question or command in flight.
	StateThinking
	// StateError shows an error banner until dismissed.
	StateError
)

// =============================================================================
// MODEL
// =============================================================================

// Options carries the dependencies for a chat view.
type Options struct {
	Config   *config.Config
	Client   *chatclient.Client
	Commands *commands.Context
	Registry *commands.Registry

	// InitialURL, when set, is loaded as page context on startup.
	InitialURL string
	Version    string
}

// Model is the Bubble Tea model for the interactive chat view.
type Model struct {
	state  State
	width  int
	height int
	ready  bool

	cfg      *config.Config
	client   *chatclient.Client
	cmdCtx   *commands.Context
	registry *commands.Registry
	parser   *commands.Parser

	completer       *commands.Completer
	completionState commands.CompletionState
	completionStart int

	// messages is the visible conversation. It diverges from the client
	// transcript on failed sends, which stay visible here after rollback.
	messages []model.Message

	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	keys     KeyMap

	thinkingLabel string
	errorTitle    string
	errorDetail   string
	errorTip      string

	cancelSend context.CancelFunc

	version    string
	initialURL string
}

// New creates the chat view around an existing client and command registry.
func New(opts Options) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about the page, or type / for commands"
	ti.CharLimit = 4096
	ti.Focus()

	completer := commands.NewCompleter(opts.Registry)
	if opts.Commands != nil && opts.Commands.Visits != nil {
		visits := opts.Commands.Visits
		completer.URLsFn = func() []string {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			recent, err := visits.Recent(ctx, 10)
			if err != nil {
				return nil
			}
			urls := make([]string, 0, len(recent))
			for _, v := range recent {
				urls = append(urls, v.URL)
			}
			return urls
		}
	}

	m := Model{
		state:      StateReady,
		cfg:        opts.Config,
		client:     opts.Client,
		cmdCtx:     opts.Commands,
		registry:   opts.Registry,
		parser:     commands.NewParser(opts.Registry),
		completer:  completer,
		viewport:   viewport.New(80, 20),
		input:      ti,
		spinner:    components.NewSpinner(),
		keys:       DefaultKeyMap(),
		version:    opts.Version,
		initialURL: opts.InitialURL,
	}
	if m.initialURL != "" {
		m.state = StateThinking
		m.thinkingLabel = "Loading " + m.initialURL
	}
	return m
}

// Init starts cursor blinking and kicks off the initial page load.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink}
	if m.initialURL != "" {
		if cmd, ok := m.registry.Get("load"); ok {
			cmds = append(cmds, cmd.Handler(m.cmdCtx, []string{m.initialURL}), m.spinner.Tick)
		}
	}
	return tea.Batch(cmds...)
}

// =============================================================================
// UPDATE
// =============================================================================

// Update handles all incoming messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg), nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		if m.state != StateThinking {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case SendResultMsg:
		return m.handleSendResult(msg), nil

	case commands.ErrorMsg:
		m = m.finishWork()
		m.state = StateError
		m.errorTitle = msg.Title
		m.errorDetail = msg.Message
		m.errorTip = msg.Tip
		return m.layout(), nil

	case commands.SystemMessageMsg:
		m = m.finishWork()
		return m.appendSystem(msg.Content), nil

	case commands.ShowHelpMsg:
		m = m.finishWork()
		return m.appendSystem(helpText(m.registry, msg.Topic)), nil

	case commands.PageLoadedMsg:
		m = m.finishWork()
		title := msg.Page.Title
		if title == "" {
			title = msg.Page.URL
		}
		note := fmt.Sprintf("Loaded: %s (%s chars)\n%s",
			title, formatChars(util.RuneLen(msg.Page.Text)), msg.Page.URL)
		return m.appendSystem(note), nil

	case commands.ContextInfoMsg:
		m = m.finishWork()
		if !msg.Loaded {
			return m.appendSystem("No page loaded. Use /load <url>."), nil
		}
		title := msg.Title
		if title == "" {
			title = msg.URL
		}
		note := fmt.Sprintf("Page: %s\nURL:  %s\nSize: %s chars",
			title, msg.URL, formatChars(msg.Chars))
		return m.appendSystem(note), nil

	case commands.ClearedMsg:
		m = m.finishWork()
		m.messages = nil
		return m.appendSystem("Conversation cleared. Page context kept."), nil

	case commands.ExportCompleteMsg:
		m = m.finishWork()
		if msg.Err != nil {
			m.state = StateError
			m.errorTitle = "Export failed"
			m.errorDetail = msg.Err.Error()
			m.errorTip = "Formats: md, json, html"
			return m.layout(), nil
		}
		return m.appendSystem("Exported: " + msg.Path), nil

	case commands.HistoryListMsg:
		m = m.finishWork()
		if msg.Err != nil {
			m.state = StateError
			m.errorTitle = "History unavailable"
			m.errorDetail = msg.Err.Error()
			return m.layout(), nil
		}
		return m.appendSystem(formatVisits(msg.Visits)), nil
	}

	// Everything else feeds the input cursor and the viewport.
	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// handleResize recomputes the layout for a new terminal size.
func (m Model) handleResize(msg tea.WindowSizeMsg) Model {
	m.width = msg.Width
	m.height = msg.Height
	m.ready = true
	m.input.Width = max(msg.Width-6, 20)
	return m.layout()
}

// layout sizes the viewport to the space left over by the measured chrome.
func (m Model) layout() Model {
	if !m.ready {
		return m
	}
	chrome := lipgloss.Height(m.renderHeader()) +
		lipgloss.Height(m.renderInputArea()) +
		lipgloss.Height(m.renderStatusBar())
	vpHeight := m.height - chrome
	if vpHeight < 3 {
		vpHeight = 3
	}
	m.viewport.Width = m.width
	m.viewport.Height = vpHeight
	return m.refreshViewport()
}

// handleKey routes key presses by state.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Quit always works, even mid-request.
	if key.Matches(msg, m.keys.Quit) {
		if m.cancelSend != nil {
			m.cancelSend()
		}
		return m, tea.Quit
	}

	switch m.state {
	case StateError:
		switch msg.String() {
		case "esc", "enter", " ":
			m.state = StateReady
			m = m.layout()
		}
		return m, nil

	case StateThinking:
		if key.Matches(msg, m.keys.Cancel) {
			if m.cancelSend != nil {
				m.cancelSend()
			}
			return m, nil
		}
		// Scrolling stays available while waiting.
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	switch {
	case msg.String() == "ctrl+c":
		return m, tea.Quit

	case key.Matches(msg, m.keys.Complete):
		return m.handleTabCompletion(), nil

	case key.Matches(msg, m.keys.Submit):
		if m.completionState.Visible {
			return m.acceptCompletion(), nil
		}
		return m.submitInput()

	case msg.String() == "esc":
		if m.completionState.Visible {
			return m.clearCompletions(), nil
		}
		m.input.Reset()
		return m, nil

	case msg.String() == "up" || msg.String() == "down":
		if m.completionState.Visible {
			if msg.String() == "up" {
				m.completionState.Prev()
			} else {
				m.completionState.Next()
			}
			return m.applySelectedCompletion(), nil
		}
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case key.Matches(msg, m.keys.PageUp) || key.Matches(msg, m.keys.PageDown) ||
		key.Matches(msg, m.keys.Top) || key.Matches(msg, m.keys.Bottom):
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	// Typing invalidates an open completion menu.
	if m.completionState.Visible {
		m = m.clearCompletions()
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submitInput sends the current input as a question or slash command.
func (m Model) submitInput() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}
	m.input.Reset()
	m = m.clearCompletions()

	if strings.HasPrefix(text, "/") {
		return m.dispatchCommand(text)
	}

	m = m.appendMessage(model.NewUserMessage(text))
	m.state = StateThinking
	m.thinkingLabel = "Thinking"

	ctx, cancel := context.WithCancel(context.Background())
	m.cancelSend = cancel
	client := m.client
	send := func() tea.Msg {
		reply, err := client.SendMessage(ctx, text)
		cancel()
		return SendResultMsg{Reply: reply, Err: err}
	}
	return m, tea.Batch(send, m.spinner.Tick)
}

// dispatchCommand parses and runs a slash command.
func (m Model) dispatchCommand(text string) (tea.Model, tea.Cmd) {
	result := m.parser.Parse(text)
	if result.Error != nil {
		return m.appendSystem(result.Error.Error()), nil
	}

	m.state = StateThinking
	m.thinkingLabel = "Working"
	if result.Command.Name == "load" && len(result.Args) > 0 {
		m.thinkingLabel = "Loading " + result.Args[0]
	}
	return m, tea.Batch(result.Command.Handler(m.cmdCtx, result.Args), m.spinner.Tick)
}

// handleSendResult folds a completed send back into the conversation.
func (m Model) handleSendResult(msg SendResultMsg) Model {
	m.state = StateReady
	m.thinkingLabel = ""
	m.cancelSend = nil

	if msg.Err != nil {
		if errors.Is(msg.Err, context.Canceled) {
			return m.appendSystem("Interrupted. The question was removed from the transcript.")
		}
		m.state = StateError
		m.errorTitle = "Message failed"
		m.errorDetail = msg.Err.Error()
		m.errorTip = "The question was removed from the transcript; edit and resend."
		return m.layout()
	}
	return m.appendMessage(msg.Reply)
}

// finishWork returns to the ready state after a slash command completes.
func (m Model) finishWork() Model {
	m.state = StateReady
	m.thinkingLabel = ""
	return m
}

// appendMessage adds a message to the visible conversation and scrolls to it.
func (m Model) appendMessage(msg model.Message) Model {
	m.messages = append(m.messages, msg)
	m = m.refreshViewport()
	m.viewport.GotoBottom()
	return m
}

func (m Model) appendSystem(content string) Model {
	return m.appendMessage(model.NewSystemMessage(content))
}

func (m Model) refreshViewport() Model {
	m.viewport.SetContent(m.renderConversation())
	return m
}

// Messages exposes the visible conversation for tests.
func (m Model) Messages() []model.Message {
	return m.messages
}
