package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"jarvis/internal/domain"
)

const DefaultPath = "config.yaml"

type Config struct {
	Webhook       WebhookConfig       `yaml:"webhook"`
	Audio         AudioConfig         `yaml:"audio"`
	Playback      PlaybackConfig      `yaml:"playback"`
	UI            UIConfig            `yaml:"ui"`
	Server        ServerConfig        `yaml:"server"`
	History       HistoryConfig       `yaml:"history"`
	Pushover      PushoverConfig      `yaml:"pushover"`
	HomeAssistant HomeAssistantConfig `yaml:"home_assistant"`
	Log           LogConfig           `yaml:"log"`
}

type WebhookConfig struct {
	URL          string `yaml:"url"`
	Timeout      string `yaml:"timeout"`
	MaxAttempts  int    `yaml:"max_attempts"`
	RetryDelay   string `yaml:"retry_delay"`
	MaxBodyBytes int64  `yaml:"max_body_bytes"`
}

type AudioConfig struct {
	Output    string `yaml:"output"`
	CacheDir  string `yaml:"cache_dir"`
	Retention string `yaml:"retention"`
}

type PlaybackConfig struct {
	Simulated   string `yaml:"simulated"`
	FailedAudio string `yaml:"failed_audio"`
}

type UIConfig struct {
	DefaultQuery string `yaml:"default_query"`
}

type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	AuthToken      string   `yaml:"auth_token"`
	RateLimit      int      `yaml:"rate_limit"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type HistoryConfig struct {
	Size          int    `yaml:"size"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	RedisKey      string `yaml:"redis_key"`
}

type PushoverConfig struct {
	Token   string `yaml:"token"`
	UserKey string `yaml:"user_key"`
	Enabled bool   `yaml:"enabled"`
}

type HomeAssistantConfig struct {
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	NotifyService string `yaml:"notify_service"`
	Enabled       bool   `yaml:"enabled"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// Load reads a YAML config with ${VAR} expansion. A .env file in the working
// directory, when present, is loaded into the environment first.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.setDefaults()

	return &cfg, nil
}

// LoadOrDefault behaves like Load but falls back to Default when path is the
// default location and no file exists there.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil && path == DefaultPath && errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

func Default() *Config {
	_ = godotenv.Load()

	cfg := &Config{}
	if url := os.Getenv("JARVIS_WEBHOOK_URL"); url != "" {
		cfg.Webhook.URL = url
	}
	cfg.setDefaults()
	return cfg
}

func (c *Config) setDefaults() {
	if c.Webhook.URL == "" {
		c.Webhook.URL = "http://localhost:5678/webhook/jarvis"
	}
	if c.Webhook.Timeout == "" {
		c.Webhook.Timeout = "30s"
	}
	if c.Webhook.MaxAttempts == 0 {
		c.Webhook.MaxAttempts = 1
	}
	if c.Webhook.RetryDelay == "" {
		c.Webhook.RetryDelay = "200ms"
	}
	if c.Webhook.MaxBodyBytes == 0 {
		c.Webhook.MaxBodyBytes = 10 << 20
	}
	if c.Audio.Output == "" {
		c.Audio.Output = "auto"
	}
	if c.Audio.CacheDir == "" {
		c.Audio.CacheDir = filepath.Join(os.TempDir(), "jarvis-audio")
	}
	if c.Audio.Retention == "" {
		c.Audio.Retention = "24h"
	}
	if c.Playback.Simulated == "" {
		c.Playback.Simulated = "3s"
	}
	if c.Playback.FailedAudio == "" {
		c.Playback.FailedAudio = "5s"
	}
	if c.UI.DefaultQuery == "" {
		c.UI.DefaultQuery = domain.DefaultQuery
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.RateLimit == 0 {
		c.Server.RateLimit = 30
	}
	if c.History.Size == 0 {
		c.History.Size = 100
	}
	if c.History.RedisKey == "" {
		c.History.RedisKey = "jarvis:history"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Duration parses a duration setting, logging and returning def when the
// value is invalid.
func Duration(logger *slog.Logger, name, value string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		logger.Warn("invalid duration, using default", "setting", name, "value", value, "default", def, "error", err)
		return def
	}
	return d
}
