// Package gateway exposes the routing engine over HTTP: a single-shot turn
// endpoint and a websocket chat channel that holds one thread per
// connection.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/harun/switchboard/internal/observability"
	"github.com/harun/switchboard/internal/tracing"
	"github.com/harun/switchboard/pkg/checkpoint"
	"github.com/harun/switchboard/pkg/router"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

// TurnRunner is the engine surface the gateway needs
type TurnRunner interface {
	Turn(ctx context.Context, req router.TurnRequest) (*router.TurnResult, error)
}

// Server is the HTTP and websocket front end
type Server struct {
	host           string
	port           int
	sharedSecret   string
	engine         TurnRunner
	server         *http.Server
	upgrader       websocket.Upgrader
	logger         zerolog.Logger
	isShuttingDown bool
	shutdownMu     sync.RWMutex
	inFlightReqs   sync.WaitGroup
}

// Config holds server configuration
type Config struct {
	Host         string
	Port         int
	SharedSecret string // empty disables auth
	Engine       TurnRunner
	Logger       zerolog.Logger
}

// NewServer creates a gateway server
func NewServer(cfg Config) (*Server, error) {
	if cfg.Port <= 0 {
		return nil, fmt.Errorf("invalid port: %d", cfg.Port)
	}
	if cfg.Engine == nil {
		return nil, fmt.Errorf("engine is required")
	}

	return &Server{
		host:         cfg.Host,
		port:         cfg.Port,
		sharedSecret: cfg.SharedSecret,
		engine:       cfg.Engine,
		logger:       cfg.Logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins for now
			},
		},
	}, nil
}

// Handler returns the HTTP handler, for tests and embedding
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/turns", s.handleTurn)
	mux.HandleFunc("/v1/chat", s.handleChat)
	mux.Handle("/metrics", observability.MetricsHandler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	return mux
}

// Start starts the gateway server
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.host, s.port),
		Handler: s.Handler(),
	}

	s.logger.Info().Str("addr", s.server.Addr).Msg("Starting gateway server")

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("Gateway server error")
		}
	}()

	return nil
}

// Stop gracefully stops the gateway server
func (s *Server) Stop() error {
	s.shutdownMu.Lock()
	s.isShuttingDown = true
	s.shutdownMu.Unlock()

	s.logger.Info().Msg("Shutting down gateway server")

	// Wait for in-flight turns with timeout
	done := make(chan struct{})
	go func() {
		s.inFlightReqs.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(30 * time.Second):
		s.logger.Warn().Msg("Shutdown timeout reached, forcing close")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	s.logger.Info().Msg("Gateway server stopped")
	return nil
}

func (s *Server) authorized(r *http.Request) bool {
	if s.sharedSecret == "" {
		return true
	}
	return r.Header.Get("X-Switchboard-Secret") == s.sharedSecret
}

func (s *Server) shuttingDown() bool {
	s.shutdownMu.RLock()
	defer s.shutdownMu.RUnlock()
	return s.isShuttingDown
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// handleTurn runs one turn: POST /v1/turns
func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
		return
	}
	if s.shuttingDown() {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "server is shutting down"})
		return
	}

	var req router.TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.Input == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "input is required"})
		return
	}

	s.inFlightReqs.Add(1)
	defer s.inFlightReqs.Done()

	traceID := r.Header.Get("X-Trace-Id")
	if traceID == "" {
		traceID = tracing.NewTraceID()
	}
	ctx := tracing.WithTraceID(r.Context(), traceID)
	ctx = tracing.WithTenantID(ctx, req.TenantID)
	logger := tracing.LoggerFromContext(ctx, s.logger)

	result, err := s.engine.Turn(ctx, req)
	if err != nil {
		logger.Error().Err(err).Msg("Turn failed")
		writeJSON(w, turnErrorStatus(err), errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// turnErrorStatus maps engine errors to HTTP statuses
func turnErrorStatus(err error) int {
	switch err.(type) {
	case *router.StorageUnavailableError:
		return http.StatusServiceUnavailable
	case *router.InvalidTransitionError, *router.RoutingLoopError:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// chatInbound is one websocket message from the client
type chatInbound struct {
	TenantID string `json:"tenant_id"`
	UserID   string `json:"user_id"`
	Input    string `json:"input"`
}

// chatOutbound is one websocket message to the client
type chatOutbound struct {
	ThreadID string               `json:"thread_id"`
	Node     string               `json:"node,omitempty"`
	Messages []checkpoint.Message `json:"messages,omitempty"`
	Error    string               `json:"error,omitempty"`
}

// handleChat holds one conversation thread per websocket connection
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if s.shuttingDown() {
		http.Error(w, "server is shutting down", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to upgrade connection")
		return
	}
	defer conn.Close()

	clientID, _ := gonanoid.New()
	threadID := "" // assigned by the engine on the first turn

	s.logger.Info().Str("clientId", clientID).Str("ip", r.RemoteAddr).Msg("Chat client connected")
	defer s.logger.Info().Str("clientId", clientID).Msg("Chat client disconnected")

	for {
		var in chatInbound
		if err := conn.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Error().Err(err).Str("clientId", clientID).Msg("WebSocket error")
			}
			return
		}

		if in.Input == "" {
			_ = conn.WriteJSON(chatOutbound{ThreadID: threadID, Error: "input is required"})
			continue
		}
		if in.TenantID == "" {
			in.TenantID = "cli-test"
		}
		if in.UserID == "" {
			in.UserID = "cli-test"
		}

		s.inFlightReqs.Add(1)
		ctx := tracing.NewRequestContext(r.Context())
		result, err := s.engine.Turn(ctx, router.TurnRequest{
			ThreadID:    threadID,
			TenantID:    in.TenantID,
			UserID:      in.UserID,
			Input:       in.Input,
			Interactive: true,
		})
		s.inFlightReqs.Done()

		if err != nil {
			s.logger.Error().Err(err).Str("clientId", clientID).Msg("Chat turn failed")
			_ = conn.WriteJSON(chatOutbound{ThreadID: threadID, Error: err.Error()})
			continue
		}

		threadID = result.ThreadID
		if err := conn.WriteJSON(chatOutbound{
			ThreadID: result.ThreadID,
			Node:     result.Node,
			Messages: result.Delta,
		}); err != nil {
			s.logger.Error().Err(err).Str("clientId", clientID).Msg("Failed to send chat response")
			return
		}
	}
}
