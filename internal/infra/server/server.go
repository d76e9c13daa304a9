package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"jarvis/internal/domain"
)

const (
	maxQueryBytes  = 4096
	defaultHistory = 20
	maxHistory     = 200

	wsWriteTimeout = 10 * time.Second
	wsPingPeriod   = 30 * time.Second
)

// Asker is the part of the orchestrator the server drives.
type Asker interface {
	Ask(ctx context.Context, query string) (domain.State, error)
	State() domain.State
	Subscribe() (<-chan domain.State, func())
	History(ctx context.Context, n int) ([]domain.Exchange, error)
}

type Options struct {
	Addr           string
	AuthToken      string
	RateLimit      int
	RateWindow     time.Duration
	AllowedOrigins []string
}

// Server exposes the orchestrator over HTTP: a trigger endpoint, state and
// history reads and a WebSocket stream of state snapshots.
type Server struct {
	addr        string
	server      *http.Server
	asker       Asker
	logger      *slog.Logger
	mu          sync.Mutex
	running     bool
	mux         *http.ServeMux
	rateLimiter *RateLimiter
	authToken   string
	upgrader    websocket.Upgrader
}

func New(asker Asker, opts Options, logger *slog.Logger) *Server {
	if opts.RateLimit <= 0 {
		opts.RateLimit = 30
	}
	if opts.RateWindow <= 0 {
		opts.RateWindow = time.Minute
	}

	s := &Server{
		addr:        opts.Addr,
		asker:       asker,
		logger:      logger,
		mux:         http.NewServeMux(),
		rateLimiter: NewRateLimiter(opts.RateLimit, opts.RateWindow),
		authToken:   opts.AuthToken,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(opts.AllowedOrigins),
		},
	}

	s.mux.HandleFunc("POST /query", s.rateLimiter.Middleware(s.requireToken(s.handleQuery)))
	s.mux.HandleFunc("GET /state", s.handleState)
	s.mux.HandleFunc("GET /history", s.requireToken(s.handleHistory))
	s.mux.HandleFunc("GET /ws", s.requireToken(s.handleWebSocket))
	s.mux.HandleFunc("GET /health", s.handleHealth)
	return s
}

func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // /query waits on the webhook, /ws streams
		IdleTimeout:  60 * time.Second,
		BaseContext:  func(_ net.Listener) context.Context { return ctx },
	}

	go func() {
		s.logger.Info("HTTP server starting", "addr", s.addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", "error", err)
		}
	}()

	go s.sweepLoop(ctx)

	s.running = true
	return nil
}

func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.server.Shutdown(ctx); err != nil {
			s.logger.Warn("graceful shutdown failed, forcing close", "error", err)
			if err := s.server.Close(); err != nil {
				return fmt.Errorf("closing server: %w", err)
			}
		}
	}

	s.running = false
	return nil
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(s.rateLimiter.window)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.rateLimiter.Sweep()
		}
	}
}

func (s *Server) requireToken(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.authToken == "" {
			next(w, r)
			return
		}

		token := r.Header.Get("X-Auth-Token")
		if token == "" {
			token = r.URL.Query().Get("token")
		}
		if token != s.authToken {
			s.logger.Warn("unauthorized request", "path", r.URL.Path, "remote_addr", r.RemoteAddr)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

type queryRequest struct {
	Query string `json:"query"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	data, err := io.ReadAll(io.LimitReader(r.Body, maxQueryBytes))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	query := string(data)
	if isJSON(r.Header.Get("Content-Type")) {
		var req queryRequest
		if err := json.Unmarshal(data, &req); err != nil {
			http.Error(w, "invalid JSON body", http.StatusBadRequest)
			return
		}
		query = req.Query
	}

	// The cycle runs to completion even if the caller hangs up.
	state, err := s.asker.Ask(context.WithoutCancel(r.Context()), query)
	switch {
	case errors.Is(err, domain.ErrBusy):
		http.Error(w, "a request is already in flight", http.StatusConflict)
		return
	case errors.Is(err, domain.ErrClosed):
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	case err != nil:
		s.logger.Error("handling query", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	s.logger.Info("query handled via HTTP", "request_id", state.RequestID, "source", state.Source)
	s.writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.asker.State())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	n := defaultHistory
	if raw := r.URL.Query().Get("n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, "n must be a positive integer", http.StatusBadRequest)
			return
		}
		n = min(parsed, maxHistory)
	}

	exchanges, err := s.asker.History(r.Context(), n)
	if err != nil {
		s.logger.Error("reading history", "error", err)
		http.Error(w, "history unavailable", http.StatusServiceUnavailable)
		return
	}
	if exchanges == nil {
		exchanges = []domain.Exchange{}
	}
	s.writeJSON(w, http.StatusOK, exchanges)
}

// handleWebSocket streams every state snapshot until the client leaves or
// the orchestrator shuts down.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	states, cancel := s.asker.Subscribe()
	defer cancel()

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()

	s.logger.Debug("state stream opened", "remote_addr", r.RemoteAddr)
	for {
		select {
		case <-gone:
			s.logger.Debug("state stream closed by client", "remote_addr", r.RemoteAddr)
			return

		case state, ok := <-states:
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if !ok {
				conn.WriteMessage(
					websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
				)
				return
			}
			if err := conn.WriteJSON(state); err != nil {
				s.logger.Debug("writing state", "error", err)
				return
			}

		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()

	status := "ok"
	statusCode := http.StatusOK
	if !running {
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	fmt.Fprintf(w, `{"status":"%s","running":%t,"playback":"%s"}`, status, running, s.asker.State().Playback)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("writing response", "error", err)
	}
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == "application/json"
}

// originChecker allows same-host requests, requests without an Origin and
// the configured origins ("*" allows any).
func originChecker(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || a == origin {
				return true
			}
		}
		return strings.HasSuffix(origin, "://"+r.Host)
	}
}
