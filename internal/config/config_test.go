package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	// Run from a temp dir so no stray config file is picked up.
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	require.Equal(t, "LifeShare", cfg.AppName)
	require.Equal(t, "8080", cfg.Server.Port)
	require.Equal(t, "/ws", cfg.Server.WebSocketPath)
	require.Equal(t, "postgres", cfg.Database.Type)
	require.Equal(t, "lifeshare_db", cfg.Database.DBName)
	require.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	require.Equal(t, "lifeshare-messages", cfg.Kafka.MessagesTopic)
	require.Equal(t, "lifeshare-request-events", cfg.Kafka.RequestEventsTopic)
	require.Equal(t, 24*time.Hour, cfg.Auth.JWTExpiry)
	require.Equal(t, "localhost:6379", cfg.Redis.Addr)
	require.Equal(t, 60, cfg.WebSocket.PongWaitSeconds)
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
SERVER:
  PORT: "9999"
KAFKA:
  MESSAGES_TOPIC: custom-messages
AUTH:
  JWT_SECRET_KEY: file-secret
`)
	require.NoError(t, os.WriteFile(path, content, 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	require.Equal(t, "9999", cfg.Server.Port)
	require.Equal(t, "custom-messages", cfg.Kafka.MessagesTopic)
	require.Equal(t, "file-secret", cfg.Auth.JWTSecretKey)
	// Unset keys keep their defaults.
	require.Equal(t, "lifeshare-request-events", cfg.Kafka.RequestEventsTopic)
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
