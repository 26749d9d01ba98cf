package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatSocketURL(t *testing.T) {
	cases := map[string]string{
		"http://localhost:8080":                "ws://localhost:8080/routes/chat/ws",
		"https://board.example.com/":           "wss://board.example.com/routes/chat/ws",
		"https://board.example.com/api/routes": "wss://board.example.com/api/routes/chat/ws",
		"http://x/app?q=1":                     "ws://x/app/routes/chat/ws",
	}
	for in, want := range cases {
		got, err := ChatSocketURL(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ChatSocketURL("ftp://x")
	assert.Error(t, err)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("BOARDHUB_API_URL", "https://board.example.com")
	t.Setenv("BOARDHUB_WS_URL", "")
	t.Setenv("BOARDHUB_TOKEN", "tok")
	t.Setenv("BOARDHUB_LANG", "")
	t.Setenv("LANG", "fr_FR.UTF-8")
	t.Setenv("BOARDHUB_WS_AUTH", "header")
	t.Setenv("BOARDHUB_LOG_LEVEL", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "wss://board.example.com/routes/chat/ws", cfg.WSURL)
	assert.Equal(t, "tok", cfg.Token)
	assert.Equal(t, "fr_FR.UTF-8", cfg.Language)
	assert.True(t, cfg.HeaderAuth)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_DotEnvDoesNotOverride(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(file, []byte("BOARDHUB_USER_ID=from-file\nBOARDHUB_TOKEN=file-token\n"), 0o600))

	t.Setenv("BOARDHUB_TOKEN", "env-token")
	t.Setenv("BOARDHUB_USER_ID", "")
	os.Unsetenv("BOARDHUB_USER_ID")
	t.Setenv("BOARDHUB_WS_AUTH", "")

	cfg, err := Load(file)
	require.NoError(t, err)
	assert.Equal(t, "env-token", cfg.Token)
	assert.Equal(t, "from-file", cfg.UserID)
	assert.False(t, cfg.HeaderAuth)
}

func TestLoad_RejectsUnknownAuthMode(t *testing.T) {
	t.Setenv("BOARDHUB_WS_AUTH", "cookie")
	_, err := Load(filepath.Join(t.TempDir(), "none.env"))
	assert.Error(t, err)
}
