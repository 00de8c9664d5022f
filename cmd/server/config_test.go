package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/ic-768/multiplayer-beats/internal/gateway"
)

func TestLoadConfig(t *testing.T) {
	t.Run("missing file yields defaults", func(t *testing.T) {
		config, err := loadConfig(filepath.Join(t.TempDir(), "nope.yaml"))

		require.NoError(t, err)
		assert.Equal(t, "8080", config.Port)
		assert.Equal(t, "info", config.LogLevel)
	})

	t.Run("file values are honored", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
port: "9090"
log_level: debug
websocket:
  write_timeout_sec: 5
  ping_interval_sec: 15
  rate_limit: 50
  rate_burst: 100
`), 0o644))

		config, err := loadConfig(path)

		require.NoError(t, err)
		assert.Equal(t, "9090", config.Port)
		assert.Equal(t, "debug", config.LogLevel)
		assert.Equal(t, 50, config.Websocket.RateLimit)
	})

	t.Run("environment overrides the file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("port: \"9090\"\n"), 0o644))
		t.Setenv("PORT", "7070")
		t.Setenv("WS_RATE_LIMIT", "5")

		config, err := loadConfig(path)

		require.NoError(t, err)
		assert.Equal(t, "7070", config.Port)
		assert.Equal(t, 5, config.Websocket.RateLimit)
	})

	t.Run("malformed yaml is an error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("port: [!!"), 0o644))

		_, err := loadConfig(path)
		assert.Error(t, err)
	})
}

func TestConnConfig(t *testing.T) {
	t.Run("zero values keep gateway defaults", func(t *testing.T) {
		var config Config
		assert.Equal(t, gateway.DefaultConnConfig().WriteTimeout, config.connConfig().WriteTimeout)
		assert.Equal(t, gateway.DefaultConnConfig().RateLimit, config.connConfig().RateLimit)
	})

	t.Run("set values override", func(t *testing.T) {
		var config Config
		config.Websocket.WriteTimeoutSec = 5
		config.Websocket.RateLimit = 50
		config.Websocket.RateBurst = 100

		cfg := config.connConfig()
		assert.Equal(t, 5*time.Second, cfg.WriteTimeout)
		assert.Equal(t, rate.Limit(50), cfg.RateLimit)
		assert.Equal(t, 100, cfg.RateBurst)
	})
}
