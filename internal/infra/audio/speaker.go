//go:build portaudio
// +build portaudio

package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gordonklaus/portaudio"

	"jarvis/internal/application"
)

const SpeakerAvailable = true

const framesPerBuffer = 1024

// SpeakerPlayer plays sounds on the default output device.
type SpeakerPlayer struct {
	logger *slog.Logger

	mu          sync.Mutex
	initialized bool
}

func NewSpeakerPlayer(logger *slog.Logger) *SpeakerPlayer {
	return &SpeakerPlayer{logger: logger}
}

func (p *SpeakerPlayer) Name() string {
	return "speaker"
}

func (p *SpeakerPlayer) init() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized {
		return nil
	}
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("initializing portaudio: %w", err)
	}
	p.initialized = true
	return nil
}

func (p *SpeakerPlayer) Load(_ context.Context, path string) (application.Sound, error) {
	if err := p.init(); err != nil {
		return nil, err
	}

	pcm, err := DecodeFile(path)
	if err != nil {
		return nil, err
	}

	p.logger.Info("sound loaded", "path", path, "duration", pcm.Duration(), "sample_rate", pcm.SampleRate)

	return &speakerSound{
		pcm:      pcm,
		logger:   p.logger,
		stop:     make(chan struct{}),
		finished: make(chan struct{}),
	}, nil
}

func (p *SpeakerPlayer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized {
		return nil
	}
	p.initialized = false
	return portaudio.Terminate()
}

type speakerSound struct {
	pcm    *PCM
	logger *slog.Logger

	mu         sync.Mutex
	stream     *portaudio.Stream
	started    bool
	stop       chan struct{}
	stopOnce   sync.Once
	finished   chan struct{}
	finishOnce sync.Once
}

func (s *speakerSound) Play(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return errors.New("sound already playing")
	}
	select {
	case <-s.stop:
		return errors.New("sound unloaded")
	default:
	}

	out := make([]int16, framesPerBuffer*s.pcm.Channels)

	stream, err := portaudio.OpenDefaultStream(
		0,
		s.pcm.Channels,
		float64(s.pcm.SampleRate),
		framesPerBuffer,
		out,
	)
	if err != nil {
		return fmt.Errorf("opening output stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("starting output stream: %w", err)
	}

	s.stream = stream
	s.started = true

	go s.pump(out)
	return nil
}

func (s *speakerSound) pump(out []int16) {
	defer s.finish()
	defer func() {
		s.stream.Stop()
		s.stream.Close()
	}()

	samples := s.pcm.Samples
	for offset := 0; offset < len(samples); offset += len(out) {
		select {
		case <-s.stop:
			return
		default:
		}

		n := copy(out, samples[offset:])
		for i := n; i < len(out); i++ {
			out[i] = 0
		}

		if err := s.stream.Write(); err != nil {
			s.logger.Warn("writing to output stream", "error", err)
			return
		}
	}
}

func (s *speakerSound) Finished() <-chan struct{} {
	return s.finished
}

func (s *speakerSound) Unload() error {
	s.stopOnce.Do(func() { close(s.stop) })

	s.mu.Lock()
	started := s.started
	if !started {
		s.finish()
	}
	s.mu.Unlock()

	<-s.finished
	return nil
}

func (s *speakerSound) finish() {
	s.finishOnce.Do(func() { close(s.finished) })
}
