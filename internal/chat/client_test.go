// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat owns the conversation state and the send lifecycle.
package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jeranaias/pagechat/internal/model"
	"github.com/jeranaias/pagechat/internal/prompt"
)

// fakeSender scripts replies and records the prompts it was handed.
type fakeSender struct {
	mu      sync.Mutex
	prompts []string
	reply   string
	err     error

	// block, when set, stalls Send until released.
	block chan struct{}
}

func (f *fakeSender) Send(ctx context.Context, p string) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, p)
	block := f.block
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeSender) lastPrompt(t *testing.T) string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		t.Fatal("sender was never called")
	}
	return f.prompts[len(f.prompts)-1]
}

func newTestClient(s Sender) *Client {
	return New(s, prompt.New(prompt.Config{MaxContextChars: 100, HistoryWindow: 6}))
}

// =============================================================================
// SEND TESTS
// =============================================================================

func TestSendMessage_AppendsBothSidesInOrder(t *testing.T) {
	sender := &fakeSender{reply: "The page is about gophers."}
	c := newTestClient(sender)

	reply, err := c.SendMessage(context.Background(), "what is it about?")
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if reply.Role != model.RoleAssistant {
		t.Errorf("reply role = %q, want assistant", reply.Role)
	}
	if reply.Content != "The page is about gophers." {
		t.Errorf("reply content = %q", reply.Content)
	}

	history := c.History()
	if len(history) != 2 {
		t.Fatalf("transcript length = %d, want 2", len(history))
	}
	if history[0].Role != model.RoleUser || history[0].Content != "what is it about?" {
		t.Errorf("first entry = %+v, want the user message", history[0])
	}
	if history[1].Role != model.RoleAssistant {
		t.Errorf("second entry = %+v, want the assistant reply", history[1])
	}
}

func TestSendMessage_RollbackOnFailure(t *testing.T) {
	sender := &fakeSender{reply: "fine"}
	c := newTestClient(sender)

	// Seed an exchange so rollback has surrounding state to preserve.
	if _, err := c.SendMessage(context.Background(), "first"); err != nil {
		t.Fatalf("seed send failed: %v", err)
	}
	before := c.History()

	sender.err = errors.New("endpoint unreachable")
	_, err := c.SendMessage(context.Background(), "second")
	if err == nil {
		t.Fatal("SendMessage should have failed")
	}

	after := c.History()
	if len(after) != len(before) {
		t.Fatalf("transcript length changed: %d -> %d", len(before), len(after))
	}
	for i := range before {
		if after[i].ID != before[i].ID || after[i].Content != before[i].Content {
			t.Errorf("transcript entry %d changed after failed send", i)
		}
	}
}

func TestSendMessage_RollbackLeavesEmptyTranscriptEmpty(t *testing.T) {
	sender := &fakeSender{err: errors.New("boom")}
	c := newTestClient(sender)

	if _, err := c.SendMessage(context.Background(), "hello"); err == nil {
		t.Fatal("SendMessage should have failed")
	}
	if n := c.Len(); n != 0 {
		t.Errorf("transcript length = %d after failed first send, want 0", n)
	}
}

func TestSendMessage_RejectsEmptyInput(t *testing.T) {
	sender := &fakeSender{reply: "x"}
	c := newTestClient(sender)

	for _, input := range []string{"", "   ", "\n\t "} {
		_, err := c.SendMessage(context.Background(), input)
		if !errors.Is(err, ErrEmptyMessage) {
			t.Errorf("SendMessage(%q) err = %v, want ErrEmptyMessage", input, err)
		}
	}
	if len(sender.prompts) != 0 {
		t.Error("empty input must not reach the sender")
	}
	if c.Len() != 0 {
		t.Error("empty input must not touch the transcript")
	}
}

func TestSendMessage_SingleInFlight(t *testing.T) {
	sender := &fakeSender{reply: "done", block: make(chan struct{})}
	c := newTestClient(sender)

	done := make(chan error, 1)
	go func() {
		_, err := c.SendMessage(context.Background(), "slow question")
		done <- err
	}()

	// Wait for the first send to reach the sender.
	deadline := time.After(2 * time.Second)
	for {
		sender.mu.Lock()
		started := len(sender.prompts) > 0
		sender.mu.Unlock()
		if started {
			break
		}
		select {
		case <-deadline:
			t.Fatal("first send never reached the sender")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	if _, err := c.SendMessage(context.Background(), "impatient question"); !errors.Is(err, ErrBusy) {
		t.Errorf("concurrent send err = %v, want ErrBusy", err)
	}

	close(sender.block)
	if err := <-done; err != nil {
		t.Fatalf("first send failed: %v", err)
	}

	// Only the first exchange may be recorded.
	history := c.History()
	if len(history) != 2 {
		t.Fatalf("transcript length = %d, want 2", len(history))
	}
	if history[0].Content != "slow question" {
		t.Errorf("unexpected transcript head: %q", history[0].Content)
	}
}

// =============================================================================
// PROMPT WIRING TESTS
// =============================================================================

func TestSendMessage_PromptCarriesContextAndWindow(t *testing.T) {
	sender := &fakeSender{reply: "a1"}
	c := newTestClient(sender)

	c.SetContext("GOPHER FACTS")
	if _, err := c.SendMessage(context.Background(), "q1"); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	sender.reply = "a2"
	if _, err := c.SendMessage(context.Background(), "q2"); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	outbound := sender.lastPrompt(t)
	if !strings.Contains(outbound, "GOPHER FACTS") {
		t.Error("prompt missing the page context")
	}
	if !strings.Contains(outbound, "User: q1") || !strings.Contains(outbound, "Assistant: a1") {
		t.Error("prompt missing the prior exchange")
	}
	if !strings.HasSuffix(outbound, "User question: q2") {
		t.Error("prompt must end with the verbatim new question")
	}
	if strings.Contains(outbound, "User: q2") {
		t.Error("the new question must not be replayed as history")
	}
}

func TestSendMessage_FailedExchangeLeavesNoTraceInNextPrompt(t *testing.T) {
	sender := &fakeSender{reply: "ok"}
	c := newTestClient(sender)

	sender.err = errors.New("transient")
	if _, err := c.SendMessage(context.Background(), "doomed question"); err == nil {
		t.Fatal("send should have failed")
	}

	sender.err = nil
	if _, err := c.SendMessage(context.Background(), "next question"); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	if strings.Contains(sender.lastPrompt(t), "doomed question") {
		t.Error("rolled-back message leaked into a later prompt")
	}
}

// =============================================================================
// CONTEXT RESET TESTS
// =============================================================================

func TestSetContext_ReplacesContextAndClearsTranscript(t *testing.T) {
	sender := &fakeSender{reply: "about page one"}
	c := newTestClient(sender)

	c.SetContext("PAGE ONE")
	if _, err := c.SendMessage(context.Background(), "about one?"); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if c.Len() != 2 {
		t.Fatalf("transcript length = %d, want 2", c.Len())
	}

	c.SetContext("PAGE TWO")

	if c.Len() != 0 {
		t.Errorf("transcript length after SetContext = %d, want 0", c.Len())
	}
	if c.Context() != "PAGE TWO" {
		t.Errorf("context = %q, want PAGE TWO", c.Context())
	}

	sender.reply = "about page two"
	if _, err := c.SendMessage(context.Background(), "about two?"); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	outbound := sender.lastPrompt(t)
	if !strings.Contains(outbound, "PAGE TWO") {
		t.Error("prompt missing the new context")
	}
	if strings.Contains(outbound, "PAGE ONE") || strings.Contains(outbound, "about one?") {
		t.Error("old context or history leaked past the reset")
	}
}

func TestClearHistory_KeepsContext(t *testing.T) {
	sender := &fakeSender{reply: "r"}
	c := newTestClient(sender)

	c.SetContextFromPage("https://example.com", "Example Page", "PAGE TEXT")
	if _, err := c.SendMessage(context.Background(), "q"); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	c.ClearHistory()

	if c.Len() != 0 {
		t.Error("ClearHistory left transcript entries behind")
	}
	if c.Context() != "PAGE TEXT" {
		t.Error("ClearHistory must not touch the context")
	}
	if c.ContextURL() != "https://example.com" {
		t.Error("ClearHistory must not touch the context URL")
	}
	if c.ContextTitle() != "Example Page" {
		t.Error("ClearHistory must not touch the context title")
	}
}

func TestSetContext_MidFlightDropsStaleExchange(t *testing.T) {
	sender := &fakeSender{reply: "stale reply", block: make(chan struct{})}
	c := newTestClient(sender)
	c.SetContext("OLD PAGE")

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.SendMessage(context.Background(), "old question")
	}()

	deadline := time.After(2 * time.Second)
	for {
		sender.mu.Lock()
		started := len(sender.prompts) > 0
		sender.mu.Unlock()
		if started {
			break
		}
		select {
		case <-deadline:
			t.Fatal("send never reached the sender")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	// Reset while the send is still in flight, then let it finish.
	c.SetContext("NEW PAGE")
	close(sender.block)
	<-done

	if n := c.Len(); n != 0 {
		t.Errorf("stale exchange resurfaced after context reset: %d entries", n)
	}
}

// =============================================================================
// ACCESSOR TESTS
// =============================================================================

func TestHistory_ReturnsCopy(t *testing.T) {
	sender := &fakeSender{reply: "r"}
	c := newTestClient(sender)
	if _, err := c.SendMessage(context.Background(), "q"); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	history := c.History()
	history[0].Content = "tampered"

	if c.History()[0].Content != "q" {
		t.Error("History returned an alias of internal state")
	}
}

func TestHasContext(t *testing.T) {
	c := newTestClient(&fakeSender{})
	if c.HasContext() {
		t.Error("fresh client should have no context")
	}
	c.SetContext("   ")
	if c.HasContext() {
		t.Error("whitespace-only context should count as none")
	}
	c.SetContext("text")
	if !c.HasContext() {
		t.Error("context should be reported as loaded")
	}
}

func TestReconfigure_SwapsSenderKeepsState(t *testing.T) {
	first := &fakeSender{reply: "from first"}
	second := &fakeSender{reply: "from second"}
	c := newTestClient(first)

	c.SetContext("page text")
	if _, err := c.SendMessage(context.Background(), "one"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	c.Reconfigure(second, nil)

	if _, err := c.SendMessage(context.Background(), "two"); err != nil {
		t.Fatalf("SendMessage after Reconfigure: %v", err)
	}

	second.mu.Lock()
	calls := len(second.prompts)
	second.mu.Unlock()
	if calls != 1 {
		t.Fatalf("second sender calls = %d, want 1", calls)
	}

	// Context and transcript survive the swap.
	if c.Context() != "page text" {
		t.Error("Reconfigure dropped the context")
	}
	if c.Len() != 4 {
		t.Errorf("transcript length = %d, want 4", c.Len())
	}
	if got := second.lastPrompt(t); !strings.Contains(got, "User: one") {
		t.Errorf("prompt after swap should replay earlier history, got %q", got)
	}
}
