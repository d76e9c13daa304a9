package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"jarvis/config"
	"jarvis/internal/domain"
	"jarvis/internal/infra/audio"
	"jarvis/internal/infra/history"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSetupLogger_Level(t *testing.T) {
	var buf bytes.Buffer
	logger, closer, err := setupLogger(config.LogConfig{Level: "warn"}, &buf)
	if err != nil {
		t.Fatalf("setupLogger error: %v", err)
	}
	if closer != nil {
		t.Error("no file configured, closer should be nil")
	}

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestSetupLogger_JSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jarvis.log")

	var buf bytes.Buffer
	logger, closer, err := setupLogger(config.LogConfig{Format: "json", File: path}, &buf)
	if err != nil {
		t.Fatalf("setupLogger error: %v", err)
	}
	logger.Info("to file", "request_id", "abc")
	closer.Close()

	if buf.Len() != 0 {
		t.Error("file logging should not write to the fallback writer")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log: %v", err)
	}
	if !strings.Contains(string(data), `"request_id":"abc"`) {
		t.Errorf("log file: %s", data)
	}
}

func TestNewPlayer(t *testing.T) {
	logger := discardLogger()

	if got := newPlayer("silent", logger).Name(); got != "silent" {
		t.Errorf("silent: got %q", got)
	}
	if got := newPlayer("bogus", logger).Name(); got != "silent" {
		t.Errorf("unknown output should fall back to silent, got %q", got)
	}

	want := "silent"
	if audio.SpeakerAvailable {
		want = "speaker"
	}
	if got := newPlayer("auto", logger).Name(); got != want {
		t.Errorf("auto: got %q, want %q", got, want)
	}
}

func TestNewHistory_FallsBackToMemory(t *testing.T) {
	store := newHistory(context.Background(), config.HistoryConfig{RedisAddr: "127.0.0.1:1", Size: 5}, discardLogger())
	defer store.Close()

	if _, ok := store.(*history.Memory); !ok {
		t.Fatalf("expected in-memory history, got %T", store)
	}
}

func TestWaitIdle(t *testing.T) {
	states := make(chan domain.State, 4)
	states <- domain.State{RequestID: "other", Playback: domain.PlaybackIdle}
	states <- domain.State{RequestID: "req", Playback: domain.PlaybackPlaying, Transcript: "hi"}
	states <- domain.State{RequestID: "req", Playback: domain.PlaybackIdle, Transcript: "hi"}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	got := waitIdle(ctx, states, domain.State{RequestID: "req", Playback: domain.PlaybackPlaying})
	if got.Playback != domain.PlaybackIdle || got.Transcript != "hi" {
		t.Errorf("waitIdle: got %+v", got)
	}
}

func TestPrintState(t *testing.T) {
	var stdout, stderr bytes.Buffer
	state := domain.State{Transcript: domain.FallbackTranscript, Error: "Erreur: Erreur HTTP: 500"}

	if err := printState(&stdout, &stderr, state, false); err != nil {
		t.Fatalf("printState error: %v", err)
	}
	if strings.TrimSpace(stdout.String()) != domain.FallbackTranscript {
		t.Errorf("stdout: %q", stdout.String())
	}
	if !strings.Contains(stderr.String(), "Erreur HTTP: 500") {
		t.Errorf("stderr: %q", stderr.String())
	}
}

func TestOneLine(t *testing.T) {
	if got := oneLine("a\n  b\tc", 10); got != "a b c" {
		t.Errorf("oneLine: got %q", got)
	}
	if got := oneLine(strings.Repeat("é", 20), 5); got != "éééé…" {
		t.Errorf("oneLine truncation: got %q", got)
	}
}

func TestAskQuery(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no argument uses default", nil, domain.DefaultQuery},
		{"explicit empty argument is sent", []string{""}, ""},
		{"padding kept", []string{"  hi  "}, "  hi  "},
		{"words joined", []string{"Quelle", "heure"}, "Quelle heure"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := askQuery(tt.args, domain.DefaultQuery); got != tt.want {
				t.Errorf("askQuery: got %q, want %q", got, tt.want)
			}
		})
	}
}
