// Package server exposes a manager orchestrator over HTTP: a JSON chat
// endpoint, a WebSocket endpoint, a health check and a minimal embedded
// chat widget for local testing.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/troupehq/troupe/orchestrator"
	"github.com/troupehq/troupe/thread"
)

// ChatRequest is the POST /chat payload.
type ChatRequest struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

// ChatResponse is the POST /chat reply.
type ChatResponse struct {
	ThreadID string `json:"thread_id"`
	Reply    string `json:"reply"`
	Rejected bool   `json:"rejected,omitempty"`
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Config holds construction parameters for a ChatServer.
type Config struct {
	// Addr is the listen address (default "localhost:8080").
	Addr string

	// Conversationalist handles turns. Required.
	Conversationalist orchestrator.Conversationalist

	// Threads persists conversation history. Required.
	Threads thread.Store

	// Logger narrates requests (default slog.Default()).
	Logger *slog.Logger
}

// ChatServer serves conversations over HTTP and WebSocket.
type ChatServer struct {
	conversationalist orchestrator.Conversationalist
	threads           thread.Store
	logger            *slog.Logger
	server            *http.Server
	mux               *http.ServeMux
	upgrader          websocket.Upgrader
	mu                sync.Mutex
}

// NewChatServer creates a chat server.
func NewChatServer(cfg Config) (*ChatServer, error) {
	if cfg.Conversationalist == nil {
		return nil, fmt.Errorf("chat server requires a conversationalist")
	}
	if cfg.Threads == nil {
		return nil, fmt.Errorf("chat server requires a thread store")
	}
	if cfg.Addr == "" {
		cfg.Addr = "localhost:8080"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	mux := http.NewServeMux()
	s := &ChatServer{
		conversationalist: cfg.Conversationalist,
		threads:           cfg.Threads,
		logger:            cfg.Logger,
		mux:               mux,
		server: &http.Server{
			Addr:              cfg.Addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}

	mux.HandleFunc("/", s.handleWidget)
	mux.HandleFunc("/chat", s.handleChat)
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)

	return s, nil
}

// Handler returns the server's HTTP handler, for tests and embedding.
func (s *ChatServer) Handler() http.Handler {
	return s.mux
}

// Start begins serving in a background goroutine.
func (s *ChatServer) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Info("chat server listening",
		"addr", s.server.Addr, "manager", s.conversationalist.Name())
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("chat server failed", "error", err)
		}
	}()
}

// Stop shuts the server down gracefully.
func (s *ChatServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Info("chat server stopping")
	return s.server.Shutdown(ctx)
}

func (s *ChatServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *ChatServer) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.sendError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Message == "" {
		s.sendError(w, http.StatusBadRequest, "message is required")
		return
	}
	if req.UserID == "" {
		req.UserID = uuid.NewString()
	}

	response, err := s.turn(r.Context(), req.UserID, req.Message)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "turn failed", "user_id", req.UserID, "error", err)
		s.sendError(w, http.StatusBadGateway, "upstream model failure")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(response)
}

// turn resolves the user's active thread, runs one conversation turn
// and persists the turn's messages.
func (s *ChatServer) turn(ctx context.Context, userID, message string) (*ChatResponse, error) {
	t, err := s.threads.GetOrCreateActive(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve thread: %w", err)
	}

	turn, err := s.conversationalist.Respond(ctx, t.Messages, message)
	if err != nil {
		return nil, err
	}

	if err := s.threads.Append(ctx, t.ID, turn.Log...); err != nil {
		s.logger.WarnContext(ctx, "failed to persist turn", "thread_id", t.ID, "error", err)
	}

	return &ChatResponse{
		ThreadID: t.ID,
		Reply:    turn.Output,
		Rejected: turn.Rejected,
	}, nil
}

type wsIncoming struct {
	Message string `json:"message"`
}

func (s *ChatServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WarnContext(r.Context(), "websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		userID = uuid.NewString()
	}

	for {
		var incoming wsIncoming
		if err := conn.ReadJSON(&incoming); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.WarnContext(r.Context(), "websocket read failed", "error", err)
			}
			return
		}
		if incoming.Message == "" {
			_ = conn.WriteJSON(ErrorResponse{Error: "message is required"})
			continue
		}

		response, err := s.turn(r.Context(), userID, incoming.Message)
		if err != nil {
			s.logger.ErrorContext(r.Context(), "turn failed", "user_id", userID, "error", err)
			_ = conn.WriteJSON(ErrorResponse{Error: "upstream model failure"})
			continue
		}
		if err := conn.WriteJSON(response); err != nil {
			s.logger.WarnContext(r.Context(), "websocket write failed", "error", err)
			return
		}
	}
}

func (s *ChatServer) handleWidget(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, widgetHTML)
}

func (s *ChatServer) sendError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}
