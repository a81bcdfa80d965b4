// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package internal provides integration tests for the complete pagechat
// pipeline.
//
// These tests verify end-to-end functionality including:
// - Page extraction against a live test server
// - Context installation and prompt assembly through the chat client
// - Completion calls against a stub endpoint
// - Transcript export to disk
// - Visit history persistence
// - Configuration save/load and hot reload
package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jeranaias/pagechat/internal/chat"
	"github.com/jeranaias/pagechat/internal/config"
	"github.com/jeranaias/pagechat/internal/export"
	"github.com/jeranaias/pagechat/internal/extract"
	"github.com/jeranaias/pagechat/internal/history"
	"github.com/jeranaias/pagechat/internal/llm"
	"github.com/jeranaias/pagechat/internal/prompt"
)

// =============================================================================
// TEST UTILITIES
// =============================================================================

const testPageHTML = `<!DOCTYPE html>
<html>
<head>
  <title>Gardening Basics &amp; Tips</title>
  <script>var tracker = "should never appear";</script>
  <style>.hero { color: red; }</style>
</head>
<body>
  <h1>Gardening Basics &amp; Tips</h1>
  <p>Tomatoes need &gt; 6 hours of sun and &quot;consistent&quot; water.</p>
  <p>Mulch&nbsp;keeps roots cool.</p>
</body>
</html>`

// newPageServer serves a fixed HTML page over TLS. The extractor skips
// certificate validation, so the test server's self-signed cert is fine.
func newPageServer(t *testing.T, html string) *httptest.Server {
	t.Helper()
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, html)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// newCompletionServer answers the completion wire format and captures the
// last prompt it received.
func newCompletionServer(t *testing.T, response string) (*httptest.Server, *atomic.Value) {
	t.Helper()
	var lastPrompt atomic.Value
	lastPrompt.Store("")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Message string `json:"message"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		lastPrompt.Store(req.Message)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"status":   "success",
			"response": response,
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &lastPrompt
}

func newTestExtractor() *extract.Extractor {
	cfg := extract.DefaultConfig()
	cfg.Timeout = 5 * time.Second
	cfg.PerHostRPS = 0
	return extract.New(cfg)
}

func newTestClient(endpointURL string) *chat.Client {
	sender := llm.New(llm.Config{
		URL:            endpointURL,
		Timeout:        5 * time.Second,
		MaxRetries:     1,
		RetryBaseDelay: 10 * time.Millisecond,
	})
	return chat.New(sender, prompt.New(prompt.DefaultConfig()))
}

// =============================================================================
// EXTRACT -> CHAT -> EXPORT PIPELINE
// =============================================================================

func TestFullPipeline(t *testing.T) {
	pageSrv := newPageServer(t, testPageHTML)
	llmSrv, lastPrompt := newCompletionServer(t, "They need over six hours of sun.")

	ctx := context.Background()

	// Extract the page.
	page, err := newTestExtractor().Extract(ctx, pageSrv.URL)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if page.Title != "Gardening Basics & Tips" {
		t.Errorf("title = %q, want decoded entities", page.Title)
	}
	if strings.Contains(page.Text, "should never appear") {
		t.Error("script content leaked into extracted text")
	}
	if strings.Contains(page.Text, ".hero") {
		t.Error("style content leaked into extracted text")
	}
	for _, want := range []string{`> 6 hours`, `"consistent"`, "Mulch keeps roots cool"} {
		if !strings.Contains(page.Text, want) {
			t.Errorf("extracted text missing %q:\n%s", want, page.Text)
		}
	}

	// Install it as context and ask a question.
	client := newTestClient(llmSrv.URL)
	client.SetContextFromPage(page.URL, page.Title, page.Text)

	reply, err := client.SendMessage(ctx, "How much sun do tomatoes need?")
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if reply.Content != "They need over six hours of sun." {
		t.Errorf("reply = %q", reply.Content)
	}

	sent := lastPrompt.Load().(string)
	if !strings.Contains(sent, "Mulch keeps roots cool") {
		t.Error("prompt did not carry the page text")
	}
	if !strings.Contains(sent, "How much sun do tomatoes need?") {
		t.Error("prompt did not carry the question verbatim")
	}

	// Export the finished conversation.
	transcript := &export.Transcript{
		PageURL:    page.URL,
		PageTitle:  page.Title,
		ExportedAt: time.Now(),
		Messages:   client.History(),
	}
	opts := export.DefaultOptions()
	opts.OutputDir = t.TempDir()

	path, err := export.ToFile(transcript, "md", "", opts)
	if err != nil {
		t.Fatalf("ToFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	for _, want := range []string{"Gardening Basics", "How much sun", "over six hours"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("export missing %q", want)
		}
	}
}

func TestPipelineContextTruncation(t *testing.T) {
	// A page far beyond the context budget must arrive truncated with the
	// marker, while the question stays intact.
	longBody := strings.Repeat("All work and no play makes a dull page. ", 400)
	html := "<html><head><title>Long</title></head><body><p>" + longBody + "</p></body></html>"

	pageSrv := newPageServer(t, html)
	llmSrv, lastPrompt := newCompletionServer(t, "ok")

	ctx := context.Background()
	page, err := newTestExtractor().Extract(ctx, pageSrv.URL)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	client := newTestClient(llmSrv.URL)
	client.SetContextFromPage(page.URL, page.Title, page.Text)
	if _, err := client.SendMessage(ctx, "summarize"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	sent := lastPrompt.Load().(string)
	if !strings.Contains(sent, "...[content truncated]") {
		t.Error("oversized context not truncated with marker")
	}
	if !strings.Contains(sent, "summarize") {
		t.Error("question lost during truncation")
	}
}

func TestPipelineFailedSendRollsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"model is overloaded"}`, http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	client := newTestClient(srv.URL)
	if _, err := client.SendMessage(context.Background(), "hello?"); err == nil {
		t.Fatal("expected error from failing endpoint")
	}
	if n := len(client.History()); n != 0 {
		t.Errorf("transcript length = %d after failed send, want 0", n)
	}
}

// =============================================================================
// VISIT HISTORY PERSISTENCE
// =============================================================================

func TestHistoryIntegration(t *testing.T) {
	store, err := history.New(history.Config{
		Path:       filepath.Join(t.TempDir(), "visits.db"),
		MaxEntries: 100,
	})
	if err != nil {
		t.Fatalf("history.New: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	urls := []string{
		"https://example.com/a",
		"https://example.com/b",
		"https://other.org/c",
	}
	for i, u := range urls {
		if _, err := store.Record(ctx, u, fmt.Sprintf("Page %d", i), 100*(i+1)); err != nil {
			t.Fatalf("Record(%s): %v", u, err)
		}
	}

	recent, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("recent = %d visits, want 3", len(recent))
	}
	// Most recent first.
	if recent[0].URL != "https://other.org/c" {
		t.Errorf("recent[0] = %s, want most recent visit", recent[0].URL)
	}

	matches, err := store.Search(ctx, "example.com", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(matches) != 2 {
		t.Errorf("search matches = %d, want 2", len(matches))
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d after clear, want 0", count)
	}
}

// =============================================================================
// CONFIGURATION
// =============================================================================

func TestConfigSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := config.Default()
	cfg.Endpoint.URL = "https://api.example.com/chat"
	cfg.Context.MaxChars = 2500
	cfg.History.Enabled = false

	if err := config.SaveTOML(cfg, path); err != nil {
		t.Fatalf("SaveTOML: %v", err)
	}

	loaded, err := config.LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if loaded.Endpoint.URL != cfg.Endpoint.URL {
		t.Errorf("endpoint url = %q, want %q", loaded.Endpoint.URL, cfg.Endpoint.URL)
	}
	if loaded.Context.MaxChars != 2500 {
		t.Errorf("max chars = %d, want 2500", loaded.Context.MaxChars)
	}
	if loaded.History.Enabled {
		t.Error("history.enabled did not round-trip")
	}
}

func TestConfigHotReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg := config.Default()
	cfg.Endpoint.URL = "https://before.example.com"
	if err := config.SaveTOML(cfg, path); err != nil {
		t.Fatalf("SaveTOML: %v", err)
	}

	reloaded := make(chan string, 4)
	watcher, err := config.Watch(path, 20*time.Millisecond, func(next *config.Config) {
		reloaded <- next.Endpoint.URL
	})
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer watcher.Close()

	cfg.Endpoint.URL = "https://after.example.com"
	if err := config.SaveTOML(cfg, path); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	select {
	case url := <-reloaded:
		if url != "https://after.example.com" {
			t.Errorf("reloaded endpoint = %q, want the new value", url)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("config change never triggered a reload")
	}
}
