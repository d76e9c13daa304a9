package audio_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"jarvis/internal/infra/audio"
)

func TestSilentPlayer_FinishesAfterSoundDuration(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	player := audio.NewSilentPlayer(logger)
	defer player.Close()

	path := writeWAV(t, t.TempDir(), 100*time.Millisecond)

	sound, err := player.Load(context.Background(), path)
	if err != nil {
		t.Fatalf("loading: %v", err)
	}

	select {
	case <-sound.Finished():
		t.Fatal("finished before playing")
	default:
	}

	start := time.Now()
	if err := sound.Play(context.Background()); err != nil {
		t.Fatalf("playing: %v", err)
	}

	select {
	case <-sound.Finished():
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for playback to finish")
	}

	if elapsed := time.Since(start); elapsed < 90*time.Millisecond {
		t.Errorf("finished too early: %s", elapsed)
	}

	if err := sound.Play(context.Background()); err == nil {
		t.Error("second Play should fail")
	}
}

func TestSilentPlayer_UnloadStopsPlayback(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	player := audio.NewSilentPlayer(logger)

	path := writeWAV(t, t.TempDir(), 5*time.Second)

	sound, err := player.Load(context.Background(), path)
	if err != nil {
		t.Fatalf("loading: %v", err)
	}
	if err := sound.Play(context.Background()); err != nil {
		t.Fatalf("playing: %v", err)
	}

	if err := sound.Unload(); err != nil {
		t.Fatalf("unloading: %v", err)
	}

	select {
	case <-sound.Finished():
	case <-time.After(time.Second):
		t.Fatal("Finished not closed after Unload")
	}

	if err := sound.Unload(); err != nil {
		t.Errorf("second Unload: %v", err)
	}
	if err := sound.Play(context.Background()); err == nil {
		t.Error("Play after Unload should fail")
	}
}

func TestSilentPlayer_RejectsCorruptFile(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	player := audio.NewSilentPlayer(logger)

	path := filepath.Join(t.TempDir(), "audio-bad.mp3")
	if err := os.WriteFile(path, []byte("not audio at all"), 0644); err != nil {
		t.Fatalf("writing: %v", err)
	}

	if _, err := player.Load(context.Background(), path); err == nil {
		t.Error("expected load error for corrupt audio")
	}
}

func TestSpeakerPlayer_Name(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	player := audio.NewSpeakerPlayer(logger)
	defer player.Close()

	if player.Name() != "speaker" {
		t.Errorf("Name: got %s, want speaker", player.Name())
	}
}
