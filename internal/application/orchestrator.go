package application

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"jarvis/internal/domain"
)

// Timings are the simulated playback lengths used when no real sound is
// played.
type Timings struct {
	SimulatedPlayback   time.Duration
	FailedAudioPlayback time.Duration
}

func DefaultTimings() Timings {
	return Timings{
		SimulatedPlayback:   3 * time.Second,
		FailedAudioPlayback: 5 * time.Second,
	}
}

// Orchestrator sends queries to the webhook and drives the transcript and
// playback state from whatever comes back. Every outcome, including
// failures, ends with something on screen and playback back to idle.
type Orchestrator struct {
	webhook  Webhook
	player   Player
	cache    AudioCache
	history  History
	notifier Notifier
	timings  Timings
	logger   *slog.Logger
	state    *StateStore
	newID    func() string

	mu        sync.Mutex
	inFlight  bool
	closed    bool
	timer     *time.Timer
	sound     Sound
	audioPath string
}

func NewOrchestrator(
	webhook Webhook,
	player Player,
	cache AudioCache,
	history History,
	notifier Notifier,
	timings Timings,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		webhook:  webhook,
		player:   player,
		cache:    cache,
		history:  history,
		notifier: notifier,
		timings:  timings,
		logger:   logger,
		state:    NewStateStore(domain.DefaultQuery),
		newID:    uuid.NewString,
	}
}

func (o *Orchestrator) State() domain.State {
	return o.state.Snapshot()
}

func (o *Orchestrator) Subscribe() (<-chan domain.State, func()) {
	return o.state.Subscribe()
}

func (o *Orchestrator) SetQuery(query string) {
	o.state.SetQuery(query)
}

func (o *Orchestrator) History(ctx context.Context, n int) ([]domain.Exchange, error) {
	return o.history.Recent(ctx, n)
}

// Ask runs one request cycle. It returns once the reply is classified and
// playback (real or simulated) has started; the return to idle happens
// later. Only ErrBusy and ErrClosed are returned, every other failure
// degrades to placeholder or fallback text.
func (o *Orchestrator) Ask(ctx context.Context, query string) (domain.State, error) {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return o.state.Snapshot(), domain.ErrClosed
	}
	if o.inFlight {
		o.mu.Unlock()
		return o.state.Snapshot(), domain.ErrBusy
	}
	o.inFlight = true
	prevSound, prevPath := o.detachLocked()
	o.mu.Unlock()

	requestID := o.newID()
	gen := o.state.Begin(requestID, query)
	o.release(prevSound, prevPath)

	logger := o.logger.With("request_id", requestID)
	logger.Info("sending query", "query", query)

	defer func() {
		o.state.Update(gen, func(s *domain.State) {
			if s.Playback == domain.PlaybackLoading {
				s.Playback = domain.PlaybackIdle
			}
		})
		o.mu.Lock()
		o.inFlight = false
		o.mu.Unlock()
	}()

	reply, err := o.webhook.Send(ctx, requestID, query)

	var decErr *domain.DecodeError
	switch {
	case errors.As(err, &decErr):
		logger.Warn("reply did not match its content type", "error", err)
		o.simulate(gen, domain.ReplyInvalid, domain.PlaceholderUnrecognized, o.timings.SimulatedPlayback)

	case err != nil:
		logger.Error("webhook call failed, using fallback", "error", err)
		o.fallback(ctx, gen, err)

	case reply.Kind == domain.ReplyAudio:
		if err := o.playAudio(ctx, gen, reply); err != nil {
			logger.Error("playing audio reply", "error", err)
			o.simulate(gen, domain.ReplyInvalid, domain.PlaceholderUnrecognized, o.timings.FailedAudioPlayback)
		} else {
			logger.Info("audio playback started", "bytes", len(reply.Audio), "content_type", reply.ContentType)
		}

	default:
		logger.Info("reply received", "kind", reply.Kind, "chars", len([]rune(reply.Text)))
		o.simulate(gen, reply.Kind, reply.Text, o.timings.SimulatedPlayback)
	}

	snap := o.state.Snapshot()
	o.record(ctx, snap)
	return snap, nil
}

// Close stops pending timers, unloads the current sound and deletes its file.
func (o *Orchestrator) Close() error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil
	}
	o.closed = true
	sound, path := o.detachLocked()
	o.mu.Unlock()

	o.state.Close()
	o.release(sound, path)
	return nil
}

func (o *Orchestrator) fallback(ctx context.Context, gen uint64, cause error) {
	message := "Erreur: " + cause.Error()

	o.state.Update(gen, func(s *domain.State) {
		s.Error = message
	})
	o.simulate(gen, domain.ReplyFallback, domain.FallbackTranscript, o.timings.SimulatedPlayback)

	if err := o.notifier.Notify(context.WithoutCancel(ctx), message); err != nil {
		o.logger.Warn("notifying failure", "error", err)
	}
}

// simulate shows text and holds the playing state for d.
func (o *Orchestrator) simulate(gen uint64, kind domain.ReplyKind, text string, d time.Duration) {
	applied := o.state.Update(gen, func(s *domain.State) {
		s.Transcript = text
		s.Source = kind
		s.Playback = domain.PlaybackPlaying
	})
	if !applied {
		return
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return
	}
	if o.timer != nil {
		o.timer.Stop()
	}
	o.timer = time.AfterFunc(d, func() {
		o.state.Update(gen, func(s *domain.State) {
			s.Playback = domain.PlaybackIdle
		})
	})
}

func (o *Orchestrator) playAudio(ctx context.Context, gen uint64, reply *domain.Reply) error {
	path, err := o.cache.Store(reply.Audio, reply.ContentType)
	if err != nil {
		return &domain.ResourceError{Op: "store", Err: err}
	}

	sound, err := o.player.Load(ctx, path)
	if err != nil {
		o.release(nil, path)
		return &domain.ResourceError{Op: "load", Err: err}
	}

	if err := sound.Play(ctx); err != nil {
		o.release(sound, path)
		return &domain.ResourceError{Op: "play", Err: err}
	}

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		o.release(sound, path)
		return nil
	}
	o.sound = sound
	o.audioPath = path
	o.mu.Unlock()

	o.state.Update(gen, func(s *domain.State) {
		s.Transcript = reply.Text
		s.Source = domain.ReplyAudio
		s.Playback = domain.PlaybackPlaying
	})

	go o.awaitFinish(gen, sound)
	return nil
}

func (o *Orchestrator) awaitFinish(gen uint64, sound Sound) {
	<-sound.Finished()

	finished := o.state.Update(gen, func(s *domain.State) {
		if s.Playback == domain.PlaybackPlaying {
			s.Playback = domain.PlaybackIdle
		}
	})
	if finished {
		o.logger.Debug("audio playback finished")
	}
}

func (o *Orchestrator) record(ctx context.Context, snap domain.State) {
	exchange := domain.Exchange{
		ID:         snap.RequestID,
		Query:      snap.Query,
		Transcript: snap.Transcript,
		Source:     snap.Source,
		Error:      snap.Error,
		At:         time.Now(),
	}
	if err := o.history.Append(context.WithoutCancel(ctx), exchange); err != nil {
		o.logger.Warn("recording exchange", "error", err)
	}
}

// detachLocked hands back the resources of the previous request. Callers
// hold o.mu.
func (o *Orchestrator) detachLocked() (Sound, string) {
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
	sound, path := o.sound, o.audioPath
	o.sound, o.audioPath = nil, ""
	return sound, path
}

func (o *Orchestrator) release(sound Sound, path string) {
	if sound != nil {
		if err := sound.Unload(); err != nil {
			o.logger.Warn("unloading sound", "error", err)
		}
	}
	if path != "" {
		if err := o.cache.Release(path); err != nil {
			o.logger.Warn("removing cached audio", "path", path, "error", err)
		}
	}
}
