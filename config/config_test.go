package config_test

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jarvis/config"
	"jarvis/internal/domain"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_ExpandsEnvAndAppliesDefaults(t *testing.T) {
	t.Setenv("JARVIS_TEST_URL", "https://n8n.example/webhook/abc")
	t.Setenv("JARVIS_TEST_TOKEN", "secret")

	path := writeConfig(t, `
webhook:
  url: ${JARVIS_TEST_URL}
  timeout: 10s
server:
  auth_token: ${JARVIS_TEST_TOKEN}
  allowed_origins: ["http://localhost:3000"]
history:
  redis_addr: localhost:6379
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://n8n.example/webhook/abc", cfg.Webhook.URL)
	assert.Equal(t, "10s", cfg.Webhook.Timeout)
	assert.Equal(t, 1, cfg.Webhook.MaxAttempts)
	assert.Equal(t, "secret", cfg.Server.AuthToken)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "localhost:6379", cfg.History.RedisAddr)

	assert.Equal(t, "auto", cfg.Audio.Output)
	assert.Equal(t, "3s", cfg.Playback.Simulated)
	assert.Equal(t, "5s", cfg.Playback.FailedAudio)
	assert.Equal(t, domain.DefaultQuery, cfg.UI.DefaultQuery)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_Errors(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = config.Load(writeConfig(t, "webhook: [unclosed"))
	assert.ErrorContains(t, err, "parsing config")
}

func TestLoadOrDefault(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := config.LoadOrDefault(config.DefaultPath)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:5678/webhook/jarvis", cfg.Webhook.URL)

	_, err = config.LoadOrDefault("explicit.yaml")
	assert.Error(t, err, "an explicit path must exist")
}

func TestDefault_WebhookFromEnv(t *testing.T) {
	t.Setenv("JARVIS_WEBHOOK_URL", "http://hooks.local/jarvis")

	cfg := config.Default()
	assert.Equal(t, "http://hooks.local/jarvis", cfg.Webhook.URL)
	assert.Equal(t, int64(10<<20), cfg.Webhook.MaxBodyBytes)
}

func TestDuration(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	assert.Equal(t, 5*time.Second, config.Duration(logger, "playback.failed_audio", "5s", time.Second))
	assert.Empty(t, buf.String())

	assert.Equal(t, 3*time.Second, config.Duration(logger, "playback.simulated", "soon", 3*time.Second))
	assert.Contains(t, buf.String(), "playback.simulated")

	assert.Equal(t, time.Second, config.Duration(logger, "x", "-2s", time.Second))
}
