package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"jarvis/config"
	"jarvis/internal/application"
	"jarvis/internal/infra/audio"
	"jarvis/internal/infra/history"
	"jarvis/internal/infra/homeassistant"
	"jarvis/internal/infra/pushover"
	"jarvis/internal/infra/webhook"
)

type mode int

const (
	modeInteractive mode = iota
	modeCommand
	modeServer
)

type historyStore interface {
	application.History
	io.Closer
}

// app holds everything a command needs and tears it down in order.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	orch    *application.Orchestrator
	player  application.Player
	history historyStore
	closers []io.Closer
}

func newApp(ctx context.Context, path string, m mode) (*app, error) {
	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, err
	}

	logger, logFile, err := setupLogger(cfg.Log, logOutput(m))
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger}
	if logFile != nil {
		a.closers = append(a.closers, logFile)
	}

	cache := audio.NewCache(
		cfg.Audio.CacheDir,
		config.Duration(logger, "audio.retention", cfg.Audio.Retention, 24*time.Hour),
	)
	if err := cache.Start(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("preparing audio cache: %w", err)
	}

	a.player = newPlayer(cfg.Audio.Output, logger)
	a.history = newHistory(ctx, cfg.History, logger)

	notifier := newNotifier(cfg)

	client := webhook.NewClient(cfg.Webhook.URL, logger,
		webhook.WithTimeout(config.Duration(logger, "webhook.timeout", cfg.Webhook.Timeout, 30*time.Second)),
		webhook.WithAttempts(cfg.Webhook.MaxAttempts),
		webhook.WithRetryDelay(config.Duration(logger, "webhook.retry_delay", cfg.Webhook.RetryDelay, 200*time.Millisecond)),
		webhook.WithMaxBodyBytes(cfg.Webhook.MaxBodyBytes),
	)

	timings := application.Timings{
		SimulatedPlayback:   config.Duration(logger, "playback.simulated", cfg.Playback.Simulated, 3*time.Second),
		FailedAudioPlayback: config.Duration(logger, "playback.failed_audio", cfg.Playback.FailedAudio, 5*time.Second),
	}

	a.orch = application.NewOrchestrator(client, a.player, cache, a.history, notifier, timings, logger)
	a.orch.SetQuery(cfg.UI.DefaultQuery)

	logger.Info("jarvis ready",
		"webhook", cfg.Webhook.URL,
		"audio_output", a.player.Name(),
		"cache_dir", cache.Dir(),
	)
	return a, nil
}

// Close releases the orchestrator before the player it plays through.
func (a *app) Close() {
	if a.orch != nil {
		a.orch.Close()
	}
	if a.player != nil {
		if err := a.player.Close(); err != nil {
			a.logger.Warn("closing audio output", "error", err)
		}
	}
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			a.logger.Warn("closing history", "error", err)
		}
	}
	for _, c := range a.closers {
		c.Close()
	}
}

func logOutput(m mode) io.Writer {
	switch m {
	case modeInteractive:
		return io.Discard
	case modeCommand:
		return os.Stderr
	default:
		return os.Stdout
	}
}

func newPlayer(output string, logger *slog.Logger) application.Player {
	switch output {
	case "speaker":
		if !audio.SpeakerAvailable {
			logger.Warn("speaker output requested but not compiled in, audio replies will fail over to text")
		}
		return audio.NewSpeakerPlayer(logger)
	case "silent":
		return audio.NewSilentPlayer(logger)
	case "auto":
		if audio.SpeakerAvailable {
			return audio.NewSpeakerPlayer(logger)
		}
		return audio.NewSilentPlayer(logger)
	default:
		logger.Warn("unknown audio output, using silent", "output", output)
		return audio.NewSilentPlayer(logger)
	}
}

func newNotifier(cfg *config.Config) application.Notifier {
	var ns application.Notifiers
	if cfg.Pushover.Enabled {
		ns = append(ns, pushover.NewClient(cfg.Pushover.Token, cfg.Pushover.UserKey))
	}
	if cfg.HomeAssistant.Enabled {
		ns = append(ns, homeassistant.NewNotifier(cfg.HomeAssistant.URL, cfg.HomeAssistant.Token, cfg.HomeAssistant.NotifyService))
	}
	if len(ns) == 0 {
		return application.NoopNotifier{}
	}
	return ns
}

func newHistory(ctx context.Context, cfg config.HistoryConfig, logger *slog.Logger) historyStore {
	if cfg.RedisAddr != "" {
		store, err := history.NewRedis(ctx, history.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Key:      cfg.RedisKey,
			Size:     cfg.Size,
		})
		if err == nil {
			logger.Info("history stored in redis", "addr", cfg.RedisAddr, "key", cfg.RedisKey)
			return store
		}
		logger.Warn("redis unavailable, keeping history in memory", "error", err)
	}
	return history.NewMemory(cfg.Size)
}

// setupLogger writes to cfg.File when set, to w otherwise. The returned
// closer is nil unless a file was opened.
func setupLogger(cfg config.LogConfig, w io.Writer) (*slog.Logger, io.Closer, error) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var closer io.Closer
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", err)
		}
		w, closer = f, f
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler), closer, nil
}
