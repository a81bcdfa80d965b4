// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat owns the conversation state and the send lifecycle.
package chat

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/jeranaias/pagechat/internal/model"
	"github.com/jeranaias/pagechat/internal/prompt"
	"github.com/jeranaias/pagechat/internal/shape"
)

var (
	// ErrEmptyMessage rejects blank input before anything is appended.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrBusy rejects a send while another send is in flight.
	ErrBusy = errors.New("a send is already in flight")
)

// Sender posts an assembled prompt and returns the reply text. Satisfied by
// *llm.Client.
type Sender interface {
	Send(ctx context.Context, prompt string) (string, error)
}

// Client is the single owned aggregate of page context and transcript.
// One mutex serializes every mutation; accessors return copies, never
// aliases of internal state.
type Client struct {
	mu         sync.Mutex
	pageText   string
	pageURL    string
	pageTitle  string
	transcript []model.Message
	inFlight   bool

	sender    Sender
	assembler *prompt.Assembler
}

// New creates a chat client around a sender and prompt policy.
func New(sender Sender, assembler *prompt.Assembler) *Client {
	if assembler == nil {
		assembler = prompt.New(prompt.DefaultConfig())
	}
	return &Client{
		sender:    sender,
		assembler: assembler,
	}
}

// Reconfigure swaps the sender and prompt policy, keeping context and
// transcript intact. A nil argument leaves that piece unchanged. An exchange
// already in flight finishes against the old sender.
func (c *Client) Reconfigure(sender Sender, assembler *prompt.Assembler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if sender != nil {
		c.sender = sender
	}
	if assembler != nil {
		c.assembler = assembler
	}
}

// =============================================================================
// CONTEXT AND TRANSCRIPT
// =============================================================================

// SetContext replaces the page context and clears the transcript in one
// critical section. A conversation never mixes exchanges about two pages.
func (c *Client) SetContext(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pageText = text
	c.pageURL = ""
	c.pageTitle = ""
	c.transcript = nil
}

// SetContextFromPage is SetContext plus the source URL and title for
// display.
func (c *Client) SetContextFromPage(url, title, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pageText = text
	c.pageURL = url
	c.pageTitle = title
	c.transcript = nil
}

// ClearHistory clears the transcript only; the page context stays loaded.
func (c *Client) ClearHistory() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transcript = nil
}

// Context returns the current page context text.
func (c *Client) Context() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pageText
}

// ContextURL returns the source URL of the loaded page, if any.
func (c *Client) ContextURL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pageURL
}

// ContextTitle returns the derived title of the loaded page, if any.
func (c *Client) ContextTitle() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pageTitle
}

// HasContext reports whether page context is loaded.
func (c *Client) HasContext() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return strings.TrimSpace(c.pageText) != ""
}

// History returns a copy of the transcript.
func (c *Client) History() []model.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return model.CloneMessages(c.transcript)
}

// Len returns the transcript length.
func (c *Client) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.transcript)
}

// =============================================================================
// SEND LIFECYCLE
// =============================================================================

// SendMessage runs one exchange: the user message is appended optimistically,
// the prompt is assembled from the state before that append, and the reply
// is shaped and appended on success. On any failure the optimistic user
// message is rolled back, leaving the transcript exactly as before the call.
func (c *Client) SendMessage(ctx context.Context, text string) (model.Message, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return model.Message{}, ErrEmptyMessage
	}

	// Snapshot state and append the user message under one lock.
	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		return model.Message{}, ErrBusy
	}
	c.inFlight = true
	pageText := c.pageText
	history := model.CloneMessages(c.transcript)
	sender := c.sender
	assembler := c.assembler
	userMsg := model.NewUserMessage(trimmed)
	c.transcript = append(c.transcript, userMsg)
	c.mu.Unlock()

	// Prompt assembly and the network call run unlocked. The history
	// snapshot excludes the just-appended message; the question rides
	// separately and verbatim.
	outbound := assembler.Build(pageText, history, trimmed)
	reply, err := sender.Send(ctx, outbound)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight = false

	if err != nil {
		c.removeByID(userMsg.ID)
		return model.Message{}, err
	}

	assistantMsg := model.NewAssistantMessage(shape.Normalize(reply))

	// If the context was replaced mid-flight the transcript was reset and
	// the user message is gone; the stale exchange must not resurface.
	if c.containsID(userMsg.ID) {
		c.transcript = append(c.transcript, assistantMsg)
	}

	return assistantMsg, nil
}

// removeByID drops the message with the given ID, scanning from the tail.
func (c *Client) removeByID(id string) {
	for i := len(c.transcript) - 1; i >= 0; i-- {
		if c.transcript[i].ID == id {
			c.transcript = append(c.transcript[:i], c.transcript[i+1:]...)
			return
		}
	}
}

// containsID reports whether a message with the given ID is present.
func (c *Client) containsID(id string) bool {
	for i := len(c.transcript) - 1; i >= 0; i-- {
		if c.transcript[i].ID == id {
			return true
		}
	}
	return false
}
