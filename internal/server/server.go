// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/jeranaias/pagechat/internal/chat"
	"github.com/jeranaias/pagechat/internal/extract"
	"github.com/jeranaias/pagechat/internal/history"
	"github.com/jeranaias/pagechat/internal/llm"
	"github.com/jeranaias/pagechat/internal/util"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// DefaultPort is the default port for the HTTP server.
	DefaultPort = 8989

	// MaxMessageLength caps a single chat message.
	MaxMessageLength = 100000

	// MaxRequestBodySize caps request bodies at 1MB.
	MaxRequestBodySize = 1 * 1024 * 1024

	// DefaultRateLimit is the per-IP request budget per minute.
	DefaultRateLimit = 60
)

// =============================================================================
// SERVER STATS
// =============================================================================

// ServerStats tracks API usage since startup.
type ServerStats struct {
	TotalRequests int64     `json:"total_requests"`
	Messages      int64     `json:"messages"`
	PagesLoaded   int64     `json:"pages_loaded"`
	Failures      int64     `json:"failures"`
	StartTime     time.Time `json:"start_time"`

	mu sync.Mutex
}

// NewServerStats creates a new ServerStats instance.
func NewServerStats() *ServerStats {
	return &ServerStats{StartTime: time.Now()}
}

// RecordRequest counts one API request.
func (s *ServerStats) RecordRequest() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.TotalRequests++
}

// RecordMessage counts one completed chat exchange.
func (s *ServerStats) RecordMessage() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Messages++
}

// RecordPageLoad counts one successful page extraction.
func (s *ServerStats) RecordPageLoad() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.PagesLoaded++
}

// RecordFailure counts one failed operation.
func (s *ServerStats) RecordFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Failures++
}

// GetStats returns a copy of the current stats.
func (s *ServerStats) GetStats() ServerStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ServerStats{
		TotalRequests: s.TotalRequests,
		Messages:      s.Messages,
		PagesLoaded:   s.PagesLoaded,
		Failures:      s.Failures,
		StartTime:     s.StartTime,
	}
}

// Uptime returns the time since the server started.
func (s *ServerStats) Uptime() time.Duration {
	return time.Since(s.StartTime)
}

// =============================================================================
// SERVER
// =============================================================================

// PageLoader fetches and extracts a page for /api/context.
type PageLoader interface {
	Extract(ctx context.Context, rawURL string) (extract.Page, error)
}

// Server is the local HTTP API over one shared conversation.
type Server struct {
	port    int
	version string
	router  *http.ServeMux
	server  *http.Server
	limiter *RateLimiter

	chat   *chat.Client
	loader PageLoader
	visits *history.Store
	stats  *ServerStats

	mu sync.RWMutex
}

// New creates a Server on the given port. Port 0 selects the default.
func New(port int) *Server {
	if port == 0 {
		port = DefaultPort
	}

	s := &Server{
		port:    port,
		version: "dev",
		router:  http.NewServeMux(),
		limiter: NewRateLimiter(DefaultRateLimit, time.Minute),
		stats:   NewServerStats(),
	}

	s.setupRoutes()
	return s
}

// WithChatClient sets the shared conversation client.
func (s *Server) WithChatClient(client *chat.Client) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chat = client
	return s
}

// WithLoader sets the page extractor used by /api/context.
func (s *Server) WithLoader(loader PageLoader) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loader = loader
	return s
}

// WithHistory sets the visit store. Nil leaves history disabled.
func (s *Server) WithHistory(store *history.Store) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visits = store
	return s
}

// WithRateLimit replaces the per-IP request budget per minute.
func (s *Server) WithRateLimit(perMinute int) *Server {
	if perMinute > 0 {
		s.limiter.Stop()
		s.limiter = NewRateLimiter(perMinute, time.Minute)
	}
	return s
}

// WithVersion sets the version string reported by /health.
func (s *Server) WithVersion(version string) *Server {
	s.version = version
	return s
}

// Port returns the server port.
func (s *Server) Port() int {
	return s.port
}

// =============================================================================
// ROUTES
// =============================================================================

func (s *Server) setupRoutes() {
	s.router.HandleFunc("POST /api/message", s.handleMessage)
	s.router.HandleFunc("POST /api/context", s.handleContext)
	s.router.HandleFunc("POST /api/clear", s.handleClear)
	s.router.HandleFunc("GET /api/history", s.handleHistory)

	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /stats", s.handleStats)
}

// =============================================================================
// API TYPES
// =============================================================================

// MessageRequest is the body of POST /api/message.
type MessageRequest struct {
	Message string `json:"message"`
}

// MessageResponse is the success body of POST /api/message. It mirrors the
// wire shape of the completion endpoint pagechat itself talks to.
type MessageResponse struct {
	Status   string `json:"status"`
	Response string `json:"response"`
}

// ContextRequest is the body of POST /api/context. Exactly one of URL or
// Text must be set: URL fetches and extracts a page, Text installs raw
// text directly.
type ContextRequest struct {
	URL  string `json:"url,omitempty"`
	Text string `json:"text,omitempty"`
}

// ContextResponse is the success body of POST /api/context.
type ContextResponse struct {
	Status string `json:"status"`
	URL    string `json:"url,omitempty"`
	Title  string `json:"title,omitempty"`
	Chars  int    `json:"chars"`
}

// StatusResponse is a bare success acknowledgement.
type StatusResponse struct {
	Status string `json:"status"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status         string `json:"status"`
	Version        string `json:"version"`
	ContextLoaded  bool   `json:"context_loaded"`
	HistoryEnabled bool   `json:"history_enabled"`
	UptimeSeconds  int64  `json:"uptime_seconds"`
}

// StatsResponse is the body of GET /stats.
type StatsResponse struct {
	TotalRequests int64 `json:"total_requests"`
	Messages      int64 `json:"messages"`
	PagesLoaded   int64 `json:"pages_loaded"`
	Failures      int64 `json:"failures"`
	UptimeSeconds int64 `json:"uptime_seconds"`
}

// =============================================================================
// HANDLERS
// =============================================================================

// handleMessage handles POST /api/message.
func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	s.stats.RecordRequest()
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)

	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == "" {
		s.writeError(w, http.StatusBadRequest, "message must not be empty")
		return
	}
	if len(req.Message) > MaxMessageLength {
		s.writeError(w, http.StatusBadRequest,
			fmt.Sprintf("message exceeds maximum length of %d", MaxMessageLength))
		return
	}

	s.mu.RLock()
	client := s.chat
	s.mu.RUnlock()
	if client == nil {
		s.writeError(w, http.StatusServiceUnavailable, "chat client not configured")
		return
	}

	start := time.Now()
	reply, err := client.SendMessage(r.Context(), req.Message)
	if err != nil {
		s.stats.RecordFailure()
		log.Printf("MESSAGE_ERROR | error=%v", err)
		status := http.StatusBadGateway
		if errors.Is(err, llm.ErrNotConfigured) {
			status = http.StatusServiceUnavailable
		}
		s.writeError(w, status, err.Error())
		return
	}

	s.stats.RecordMessage()
	log.Printf("MESSAGE_COMPLETE | chars=%d latency=%dms",
		util.RuneLen(reply.Content), time.Since(start).Milliseconds())

	s.writeJSON(w, http.StatusOK, MessageResponse{
		Status:   "success",
		Response: reply.Content,
	})
}

// handleContext handles POST /api/context.
func (s *Server) handleContext(w http.ResponseWriter, r *http.Request) {
	s.stats.RecordRequest()
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)

	var req ContextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.mu.RLock()
	client := s.chat
	loader := s.loader
	visits := s.visits
	s.mu.RUnlock()
	if client == nil {
		s.writeError(w, http.StatusServiceUnavailable, "chat client not configured")
		return
	}

	switch {
	case req.URL != "":
		if loader == nil {
			s.writeError(w, http.StatusServiceUnavailable, "page loader not configured")
			return
		}
		page, err := loader.Extract(r.Context(), req.URL)
		if err != nil {
			s.stats.RecordFailure()
			log.Printf("CONTEXT_ERROR | url=%s error=%v", req.URL, err)
			s.writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		client.SetContextFromPage(page.URL, page.Title, page.Text)
		if visits != nil {
			_, _ = visits.Record(r.Context(), page.URL, page.Title, util.RuneLen(page.Text))
		}
		s.stats.RecordPageLoad()
		log.Printf("CONTEXT_LOADED | url=%s chars=%d", page.URL, util.RuneLen(page.Text))
		s.writeJSON(w, http.StatusOK, ContextResponse{
			Status: "success",
			URL:    page.URL,
			Title:  page.Title,
			Chars:  util.RuneLen(page.Text),
		})

	case req.Text != "":
		client.SetContext(req.Text)
		s.writeJSON(w, http.StatusOK, ContextResponse{
			Status: "success",
			Chars:  util.RuneLen(req.Text),
		})

	default:
		s.writeError(w, http.StatusBadRequest, "request must set url or text")
	}
}

// handleClear handles POST /api/clear. The loaded page survives.
func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	s.stats.RecordRequest()

	s.mu.RLock()
	client := s.chat
	s.mu.RUnlock()
	if client == nil {
		s.writeError(w, http.StatusServiceUnavailable, "chat client not configured")
		return
	}

	client.ClearHistory()
	s.writeJSON(w, http.StatusOK, StatusResponse{Status: "success"})
}

// handleHistory handles GET /api/history.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	s.stats.RecordRequest()

	s.mu.RLock()
	visits := s.visits
	s.mu.RUnlock()
	if visits == nil {
		s.writeError(w, http.StatusNotFound, "page history is disabled")
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	results, err := visits.Search(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		s.stats.RecordFailure()
		s.writeError(w, http.StatusInternalServerError, "history lookup failed")
		return
	}
	if results == nil {
		results = []history.Visit{}
	}
	s.writeJSON(w, http.StatusOK, results)
}

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	client := s.chat
	visits := s.visits
	s.mu.RUnlock()

	health := HealthResponse{
		Status:         "ok",
		Version:        s.version,
		HistoryEnabled: visits != nil,
		UptimeSeconds:  int64(s.stats.Uptime().Seconds()),
	}
	if client != nil {
		health.ContextLoaded = client.HasContext()
	}
	s.writeJSON(w, http.StatusOK, health)
}

// handleStats handles GET /stats.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := s.stats.GetStats()
	s.writeJSON(w, http.StatusOK, StatsResponse{
		TotalRequests: stats.TotalRequests,
		Messages:      stats.Messages,
		PagesLoaded:   stats.PagesLoaded,
		Failures:      stats.Failures,
		UptimeSeconds: int64(stats.Uptime().Seconds()),
	})
}

// =============================================================================
// SERVER LIFECYCLE
// =============================================================================

// Start starts the HTTP server. It blocks until the server stops.
// The server binds to localhost only.
func (s *Server) Start() error {
	addr := fmt.Sprintf("127.0.0.1:%d", s.port)

	handler := Chain(
		RecoveryMiddleware(),
		SecurityHeadersMiddleware(),
		CORSMiddleware(DefaultCORSConfig()),
		LoggingMiddleware(log.Default()),
		RateLimitMiddleware(s.limiter),
	)(s.router)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	log.Printf("SERVER_START | addr=%s version=%s", addr, s.version)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	log.Printf("SERVER_SHUTDOWN | starting graceful shutdown")
	s.limiter.Stop()
	return s.server.Shutdown(ctx)
}

// =============================================================================
// HELPERS
// =============================================================================

// writeJSON writes a JSON response.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("RESPONSE_ENCODE_ERROR | error=%v", err)
	}
}

// writeError writes the flat error shape clients of the completion
// endpoint already understand.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
