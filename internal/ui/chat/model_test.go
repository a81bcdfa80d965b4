// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	chatclient "github.com/jeranaias/pagechat/internal/chat"
	"github.com/jeranaias/pagechat/internal/commands"
	"github.com/jeranaias/pagechat/internal/config"
	"github.com/jeranaias/pagechat/internal/extract"
	"github.com/jeranaias/pagechat/internal/model"
	"github.com/jeranaias/pagechat/internal/prompt"
)

type stubSender struct {
	reply string
	err   error
}

func (s *stubSender) Send(ctx context.Context, prompt string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

type stubLoader struct {
	page extract.Page
	err  error
}

func (s *stubLoader) Extract(ctx context.Context, rawURL string) (extract.Page, error) {
	return s.page, s.err
}

func newTestModel(t *testing.T, sender *stubSender) Model {
	t.Helper()
	cfg := config.Default()
	client := chatclient.New(sender, prompt.New(prompt.DefaultConfig()))
	registry := commands.NewRegistry()
	cmdCtx := &commands.Context{
		Config: cfg,
		Chat:   client,
		Loader: &stubLoader{},
	}
	m := New(Options{
		Config:   cfg,
		Client:   client,
		Commands: cmdCtx,
		Registry: registry,
		Version:  "test",
	})
	m, _ = apply(t, m, tea.WindowSizeMsg{Width: 100, Height: 40})
	return m
}

func apply(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(msg)
	next, ok := updated.(Model)
	if !ok {
		t.Fatalf("Update returned %T, want chat.Model", updated)
	}
	return next, cmd
}

// drain executes a command tree synchronously and feeds every resulting
// message back into the model, mimicking one settled program loop.
func drain(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	if cmd == nil {
		return m
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		for _, sub := range batch {
			m = drain(t, m, sub)
		}
		return m
	}
	if msg == nil {
		return m
	}
	var next tea.Cmd
	m, next = apply(t, m, msg)
	_ = next
	return m
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "ctrl+q":
		return tea.KeyMsg{Type: tea.KeyCtrlQ}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

func TestSubmitRoundTrip(t *testing.T) {
	m := newTestModel(t, &stubSender{reply: "the answer"})
	m.input.SetValue("what is this page about")

	m, cmd := apply(t, m, keyMsg("enter"))
	if m.state != StateThinking {
		t.Fatalf("state = %v after submit, want StateThinking", m.state)
	}
	if len(m.Messages()) != 1 || m.Messages()[0].Role != model.RoleUser {
		t.Fatalf("messages = %+v, want single user message", m.Messages())
	}
	if m.input.Value() != "" {
		t.Errorf("input not reset after submit: %q", m.input.Value())
	}

	m = drain(t, m, cmd)
	if m.state != StateReady {
		t.Errorf("state = %v after reply, want StateReady", m.state)
	}
	if len(m.Messages()) != 2 {
		t.Fatalf("messages = %d after reply, want 2", len(m.Messages()))
	}
	if m.Messages()[1].Role != model.RoleAssistant {
		t.Errorf("second message role = %q, want assistant", m.Messages()[1].Role)
	}
}

func TestSubmitEmptyInputIsNoop(t *testing.T) {
	m := newTestModel(t, &stubSender{})
	m.input.SetValue("   ")

	m, cmd := apply(t, m, keyMsg("enter"))
	if cmd != nil {
		t.Error("expected no command for blank input")
	}
	if len(m.Messages()) != 0 || m.state != StateReady {
		t.Errorf("blank submit changed state: %d messages, state %v", len(m.Messages()), m.state)
	}
}

func TestSendErrorShowsBanner(t *testing.T) {
	m := newTestModel(t, &stubSender{})

	m, _ = apply(t, m, SendResultMsg{Err: errors.New("request failed after 3 attempts")})
	if m.state != StateError {
		t.Fatalf("state = %v, want StateError", m.state)
	}
	if !strings.Contains(m.errorDetail, "3 attempts") {
		t.Errorf("errorDetail = %q, want attempt count", m.errorDetail)
	}

	// Enter dismisses the banner.
	m, _ = apply(t, m, keyMsg("enter"))
	if m.state != StateReady {
		t.Errorf("state = %v after dismiss, want StateReady", m.state)
	}
}

func TestSendCanceledShowsNotice(t *testing.T) {
	m := newTestModel(t, &stubSender{})

	m, _ = apply(t, m, SendResultMsg{Err: context.Canceled})
	if m.state != StateReady {
		t.Fatalf("state = %v, want StateReady after cancel", m.state)
	}
	last := m.Messages()[len(m.Messages())-1]
	if last.Role != model.RoleSystem || !strings.Contains(last.Content, "Interrupted") {
		t.Errorf("last message = %+v, want interruption notice", last)
	}
}

func TestUnknownSlashCommand(t *testing.T) {
	m := newTestModel(t, &stubSender{})
	m.input.SetValue("/bogus")

	m, _ = apply(t, m, keyMsg("enter"))
	if len(m.Messages()) != 1 {
		t.Fatalf("messages = %d, want 1 notice", len(m.Messages()))
	}
	if !strings.Contains(m.Messages()[0].Content, "unknown command") {
		t.Errorf("notice = %q, want unknown command text", m.Messages()[0].Content)
	}
	if m.state != StateReady {
		t.Errorf("state = %v, want StateReady", m.state)
	}
}

func TestHelpCommandRendersRegistry(t *testing.T) {
	m := newTestModel(t, &stubSender{})
	m.input.SetValue("/help")

	m, cmd := apply(t, m, keyMsg("enter"))
	m = drain(t, m, cmd)

	if len(m.Messages()) == 0 {
		t.Fatal("no help notice appended")
	}
	content := m.Messages()[len(m.Messages())-1].Content
	for _, want := range []string{"/load", "/export", "/quit"} {
		if !strings.Contains(content, want) {
			t.Errorf("help output missing %q", want)
		}
	}
}

func TestClearedMsgResetsConversation(t *testing.T) {
	m := newTestModel(t, &stubSender{})
	m = m.appendMessage(model.NewUserMessage("q1"))
	m = m.appendMessage(model.NewAssistantMessage("a1"))

	m, _ = apply(t, m, commands.ClearedMsg{})
	if len(m.Messages()) != 1 {
		t.Fatalf("messages = %d after clear, want 1 notice", len(m.Messages()))
	}
	if !strings.Contains(m.Messages()[0].Content, "cleared") {
		t.Errorf("notice = %q, want cleared text", m.Messages()[0].Content)
	}
}

func TestPageLoadedMsgAppendsNote(t *testing.T) {
	m := newTestModel(t, &stubSender{})

	m, _ = apply(t, m, commands.PageLoadedMsg{Page: extract.Page{
		URL:   "https://example.com",
		Title: "Example Domain",
		Text:  strings.Repeat("x", 1500),
	}})
	if len(m.Messages()) != 1 {
		t.Fatalf("messages = %d, want 1", len(m.Messages()))
	}
	note := m.Messages()[0].Content
	if !strings.Contains(note, "Example Domain") || !strings.Contains(note, "1.5k") {
		t.Errorf("note = %q, want title and size", note)
	}
}

func TestErrorMsgFromCommand(t *testing.T) {
	m := newTestModel(t, &stubSender{})

	m, _ = apply(t, m, commands.ErrorMsg{
		Title:   "Could not load page",
		Message: "extraction failed",
		Tip:     "Check the URL",
	})
	if m.state != StateError {
		t.Fatalf("state = %v, want StateError", m.state)
	}
	banner := m.renderErrorBanner()
	for _, want := range []string{"Could not load page", "extraction failed", "Check the URL"} {
		if !strings.Contains(banner, want) {
			t.Errorf("banner missing %q", want)
		}
	}
}

func TestTabCompletionAppliesCommand(t *testing.T) {
	m := newTestModel(t, &stubSender{})
	m.input.SetValue("/lo")

	m, _ = apply(t, m, keyMsg("tab"))
	if got := m.input.Value(); got != "/load " {
		t.Errorf("input = %q after tab, want %q", got, "/load ")
	}
}

func TestTabCompletionCycles(t *testing.T) {
	m := newTestModel(t, &stubSender{})
	m.input.SetValue("/c")

	m, _ = apply(t, m, keyMsg("tab"))
	if !m.completionState.Visible {
		t.Fatal("completion menu not visible after tab")
	}
	first := m.input.Value()

	m, _ = apply(t, m, keyMsg("tab"))
	second := m.input.Value()
	if first == second {
		t.Errorf("cycling did not change input: %q", first)
	}

	// Esc abandons the menu.
	m, _ = apply(t, m, keyMsg("esc"))
	if m.completionState.Visible {
		t.Error("completion menu still visible after esc")
	}
}

func TestTabCompletionIgnoresPlainText(t *testing.T) {
	m := newTestModel(t, &stubSender{})
	m.input.SetValue("hello")

	m, _ = apply(t, m, keyMsg("tab"))
	if m.completionState.Visible {
		t.Error("completion menu opened for non-command input")
	}
	if m.input.Value() != "hello" {
		t.Errorf("input changed to %q", m.input.Value())
	}
}

func TestQuitKeyQuits(t *testing.T) {
	m := newTestModel(t, &stubSender{})

	_, cmd := apply(t, m, keyMsg("ctrl+q"))
	if cmd == nil {
		t.Fatal("ctrl+q returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Errorf("ctrl+q command returned %T, want tea.QuitMsg", cmd())
	}
}

func TestResizeKeepsViewportInBounds(t *testing.T) {
	m := newTestModel(t, &stubSender{})

	m, _ = apply(t, m, tea.WindowSizeMsg{Width: 60, Height: 12})
	if m.viewport.Width != 60 {
		t.Errorf("viewport width = %d, want 60", m.viewport.Width)
	}
	if m.viewport.Height < 3 {
		t.Errorf("viewport height = %d, want >= 3", m.viewport.Height)
	}
	if m.viewport.Height >= 12 {
		t.Errorf("viewport height = %d leaves no room for chrome", m.viewport.Height)
	}
}

func TestViewBeforeFirstResize(t *testing.T) {
	sender := &stubSender{}
	cfg := config.Default()
	client := chatclient.New(sender, prompt.New(prompt.DefaultConfig()))
	registry := commands.NewRegistry()
	m := New(Options{
		Config:   cfg,
		Client:   client,
		Commands: &commands.Context{Config: cfg, Chat: client, Loader: &stubLoader{}},
		Registry: registry,
	})

	if v := m.View(); !strings.Contains(v, "Starting") {
		t.Errorf("pre-resize view = %q, want startup placeholder", v)
	}
}

func TestEmptyStateShowsTips(t *testing.T) {
	m := newTestModel(t, &stubSender{})

	content := m.renderConversation()
	if !strings.Contains(content, "/load") || !strings.Contains(content, "pagechat") {
		t.Errorf("empty state missing tips:\n%s", content)
	}
}

func TestInitialURLStartsLoading(t *testing.T) {
	sender := &stubSender{}
	cfg := config.Default()
	client := chatclient.New(sender, prompt.New(prompt.DefaultConfig()))
	registry := commands.NewRegistry()
	loader := &stubLoader{page: extract.Page{
		URL:   "https://example.com",
		Title: "Example",
		Text:  "body text",
	}}
	m := New(Options{
		Config:     cfg,
		Client:     client,
		Commands:   &commands.Context{Config: cfg, Chat: client, Loader: loader},
		Registry:   registry,
		InitialURL: "https://example.com",
	})
	if m.state != StateThinking {
		t.Fatalf("state = %v before initial load, want StateThinking", m.state)
	}

	m, _ = apply(t, m, tea.WindowSizeMsg{Width: 100, Height: 40})
	m = drain(t, m, m.Init())

	if m.state != StateReady {
		t.Errorf("state = %v after initial load, want StateReady", m.state)
	}
	if !client.HasContext() {
		t.Error("initial URL did not install page context")
	}
}

func TestHelpTextSingleTopic(t *testing.T) {
	registry := commands.NewRegistry()

	out := helpText(registry, "load")
	if !strings.Contains(out, "Usage") || !strings.Contains(out, "/load") {
		t.Errorf("topic help = %q", out)
	}

	out = helpText(registry, "nosuch")
	if !strings.Contains(out, "No such command") {
		t.Errorf("missing-topic help = %q", out)
	}
}
