//go:build !portaudio
// +build !portaudio

package audio

import (
	"context"
	"fmt"
	"log/slog"

	"jarvis/internal/application"
)

const SpeakerAvailable = false

// SpeakerPlayer stub when portaudio is not available
type SpeakerPlayer struct {
	logger *slog.Logger
}

func NewSpeakerPlayer(logger *slog.Logger) *SpeakerPlayer {
	return &SpeakerPlayer{logger: logger}
}

func (p *SpeakerPlayer) Name() string {
	return "speaker"
}

func (p *SpeakerPlayer) Load(_ context.Context, _ string) (application.Sound, error) {
	return nil, fmt.Errorf("speaker output not available: rebuild with -tags portaudio")
}

func (p *SpeakerPlayer) Close() error {
	return nil
}
