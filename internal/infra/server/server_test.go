package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"jarvis/internal/domain"
	"jarvis/internal/infra/server"
)

type fakeAsker struct {
	mu      sync.Mutex
	queries []string
	err     error
	state   domain.State
	history []domain.Exchange
	states  chan domain.State
}

func (f *fakeAsker) Ask(_ context.Context, query string) (domain.State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	if f.err != nil {
		return f.state, f.err
	}
	f.state = domain.State{
		RequestID:  "req-1",
		Query:      query,
		Transcript: "Ça va bien, merci",
		Playback:   domain.PlaybackPlaying,
		Source:     domain.ReplyJSON,
	}
	return f.state, nil
}

func (f *fakeAsker) State() domain.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeAsker) Subscribe() (<-chan domain.State, func()) {
	return f.states, func() {}
}

func (f *fakeAsker) History(_ context.Context, n int) ([]domain.Exchange, error) {
	if n > len(f.history) {
		n = len(f.history)
	}
	return f.history[:n], nil
}

func (f *fakeAsker) lastQuery() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.queries) == 0 {
		return ""
	}
	return f.queries[len(f.queries)-1]
}

func newServer(asker server.Asker, opts server.Options) *server.Server {
	return server.New(asker, opts, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestServer_QueryJSONBody(t *testing.T) {
	asker := &fakeAsker{}
	handler := newServer(asker, server.Options{}).Handler()

	req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{"query":"Bonjour Jarvis"}`))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status code: got %d, want %d (%s)", rec.Code, http.StatusOK, rec.Body.String())
	}
	if got := asker.lastQuery(); got != "Bonjour Jarvis" {
		t.Errorf("query: got %q", got)
	}

	var state domain.State
	if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if state.Transcript != "Ça va bien, merci" {
		t.Errorf("transcript: got %q", state.Transcript)
	}
}

func TestServer_QueryRawText(t *testing.T) {
	asker := &fakeAsker{}
	handler := newServer(asker, server.Options{}).Handler()

	req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader("  Quelle heure est-il ?\n"))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status code: got %d, want %d", rec.Code, http.StatusOK)
	}
	if got := asker.lastQuery(); got != "  Quelle heure est-il ?\n" {
		t.Errorf("query should be forwarded untouched, got %q", got)
	}
}

func TestServer_QueryForwardedVerbatim(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		contentType string
		want        string
	}{
		{"empty JSON query", `{"query":""}`, "application/json", ""},
		{"blank JSON query", `{"query":"  "}`, "application/json", "  "},
		{"JSON without query", `{}`, "application/json", ""},
		{"empty raw body", "", "", ""},
		{"padded raw body", "  hi  ", "text/plain", "  hi  "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			asker := &fakeAsker{}
			handler := newServer(asker, server.Options{}).Handler()

			req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("status code: got %d, want %d (%s)", rec.Code, http.StatusOK, rec.Body.String())
			}
			if len(asker.queries) != 1 || asker.queries[0] != tt.want {
				t.Errorf("asked: got %q, want [%q]", asker.queries, tt.want)
			}
		})
	}
}

func TestServer_QueryErrors(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		contentType string
		askErr      error
		wantStatus  int
	}{
		{"malformed JSON", `{"query":`, "application/json", nil, http.StatusBadRequest},
		{"busy", "hello", "", domain.ErrBusy, http.StatusConflict},
		{"closed", "hello", "", domain.ErrClosed, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			asker := &fakeAsker{err: tt.askErr}
			handler := newServer(asker, server.Options{}).Handler()

			req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status code: got %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestServer_QueryWithToken(t *testing.T) {
	authToken := "test-secret-token-123"

	tests := []struct {
		name       string
		token      string
		method     string
		wantStatus int
	}{
		{"valid token in header", authToken, "header", http.StatusOK},
		{"valid token in query", authToken, "query", http.StatusOK},
		{"invalid token", "wrong-token", "header", http.StatusUnauthorized},
		{"missing token", "", "header", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := newServer(&fakeAsker{}, server.Options{AuthToken: authToken}).Handler()

			var req *http.Request
			body := bytes.NewReader([]byte("Bonjour"))
			if tt.method == "query" {
				req = httptest.NewRequest(http.MethodPost, "/query?token="+tt.token, body)
			} else {
				req = httptest.NewRequest(http.MethodPost, "/query", body)
				if tt.token != "" {
					req.Header.Set("X-Auth-Token", tt.token)
				}
			}

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status code: got %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestServer_QueryRateLimited(t *testing.T) {
	handler := newServer(&fakeAsker{}, server.Options{RateLimit: 2, RateWindow: time.Hour}).Handler()

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader("hello"))
		req.RemoteAddr = "192.0.2.1:5555"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	want := []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}
	for i := range want {
		if codes[i] != want[i] {
			t.Fatalf("status codes: got %v, want %v", codes, want)
		}
	}
}

func TestServer_StateAndHistory(t *testing.T) {
	asker := &fakeAsker{
		state: domain.State{Query: domain.DefaultQuery, Playback: domain.PlaybackIdle},
		history: []domain.Exchange{
			{ID: "a", Query: "q1", Transcript: "t1"},
			{ID: "b", Query: "q2", Transcript: "t2"},
		},
	}
	handler := newServer(asker, server.Options{}).Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/state", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("state status: got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"playback":"idle"`) {
		t.Errorf("state body: %s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/history?n=1", nil))
	var exchanges []domain.Exchange
	if err := json.Unmarshal(rec.Body.Bytes(), &exchanges); err != nil {
		t.Fatalf("decoding history: %v", err)
	}
	if len(exchanges) != 1 || exchanges[0].ID != "a" {
		t.Errorf("history: got %+v", exchanges)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/history?n=zero", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad n: got %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestServer_HealthBeforeStart(t *testing.T) {
	handler := newServer(&fakeAsker{}, server.Options{}).Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status code: got %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestServer_WebSocketStreamsStates(t *testing.T) {
	asker := &fakeAsker{states: make(chan domain.State, 4)}
	asker.states <- domain.State{Playback: domain.PlaybackIdle}
	asker.states <- domain.State{Playback: domain.PlaybackLoading, Query: "hello"}

	srv := httptest.NewServer(newServer(asker, server.Options{}).Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dialing: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var first, second domain.State
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("reading first state: %v", err)
	}
	if err := conn.ReadJSON(&second); err != nil {
		t.Fatalf("reading second state: %v", err)
	}

	if first.Playback != domain.PlaybackIdle || second.Playback != domain.PlaybackLoading {
		t.Errorf("states: got %s then %s", first.Playback, second.Playback)
	}

	close(asker.states)
	_, _, err = conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseGoingAway) {
		t.Errorf("expected going-away close, got %v", err)
	}
}

func TestServer_WebSocketRejectsForeignOrigin(t *testing.T) {
	asker := &fakeAsker{states: make(chan domain.State)}
	srv := httptest.NewServer(newServer(asker, server.Options{AllowedOrigins: []string{"http://allowed.example"}}).Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	header := http.Header{"Origin": []string{"http://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	if err == nil {
		t.Fatal("expected handshake failure")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403, got %v", resp)
	}
}
