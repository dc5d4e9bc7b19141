package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"chat-backend/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := config.LoadConfig(filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 20, cfg.Chat.HistoryWindow)
	assert.Equal(t, 200, cfg.Chat.MaxSessions)
	assert.True(t, cfg.Chat.SerializeSessions)
	assert.Equal(t, 30*time.Second, cfg.LLM.Timeout)
	assert.NotEmpty(t, cfg.LLM.SystemInstruction)
	assert.NotEmpty(t, cfg.LLM.FallbackReply)
	assert.False(t, cfg.Redis.Enabled())
}

func TestLoadConfig_File(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
  cors_origins: ["https://chat.example.com"]
database:
  driver: sqlite
  sqlite_path: /tmp/chat.db
redis:
  address: redis
  port: 6380
llm:
  model: gemini-test
  timeout: 5s
chat:
  history_window: 10
`)
	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"https://chat.example.com"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "/tmp/chat.db", cfg.Database.SQLitePath)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, "redis:6380", cfg.Redis.Addr())
	assert.Equal(t, "gemini-test", cfg.LLM.Model)
	assert.Equal(t, 5*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 10, cfg.Chat.HistoryWindow)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	path := writeConfig(t, "auth:\n  jwt_secret: from-file\n")
	t.Setenv("CHAT_AUTH_JWT_SECRET", "from-env")
	t.Setenv("CHAT_SERVER_PORT", "7070")

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Auth.JwtSecret)
	assert.Equal(t, 7070, cfg.Server.Port)
}

func TestLoadConfig_RejectsUnknownDriver(t *testing.T) {
	path := writeConfig(t, "database:\n  driver: mongo\n")
	_, err := config.LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mongo")
}
