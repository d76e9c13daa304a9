package audio

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"jarvis/internal/application"
)

// SilentPlayer decodes sounds to validate them and measure their length, then
// reports completion after that length without touching an output device.
type SilentPlayer struct {
	logger *slog.Logger
}

func NewSilentPlayer(logger *slog.Logger) *SilentPlayer {
	return &SilentPlayer{logger: logger}
}

func (p *SilentPlayer) Name() string {
	return "silent"
}

func (p *SilentPlayer) Load(_ context.Context, path string) (application.Sound, error) {
	pcm, err := DecodeFile(path)
	if err != nil {
		return nil, err
	}

	p.logger.Debug("sound loaded", "path", path, "duration", pcm.Duration())
	return newTimedSound(pcm.Duration()), nil
}

func (p *SilentPlayer) Close() error {
	return nil
}

type timedSound struct {
	duration time.Duration

	mu       sync.Mutex
	timer    *time.Timer
	unloaded bool
	finished chan struct{}
	once     sync.Once
}

func newTimedSound(d time.Duration) *timedSound {
	return &timedSound{
		duration: d,
		finished: make(chan struct{}),
	}
}

func (s *timedSound) Play(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unloaded {
		return errors.New("sound unloaded")
	}
	if s.timer != nil {
		return errors.New("sound already playing")
	}

	s.timer = time.AfterFunc(s.duration, s.finish)
	return nil
}

func (s *timedSound) Finished() <-chan struct{} {
	return s.finished
}

func (s *timedSound) Unload() error {
	s.mu.Lock()
	s.unloaded = true
	if s.timer != nil {
		s.timer.Stop()
	}
	s.mu.Unlock()

	s.finish()
	return nil
}

func (s *timedSound) finish() {
	s.once.Do(func() { close(s.finished) })
}
