package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, data map[string]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cfg.json")
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func TestParseJson(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	path := writeTempJSON(t, map[string]any{
		"database_dsn":                    "postgres://json",
		"key_directory":                   "/keys",
		"key_backend":                     "rsa",
		"key_cache_enabled":               true,
		"key_passphrase":                  "hunter2",
		"token_issuer":                    "agrismart",
		"token_audience":                  "agrismart-app",
		"access_token_validity_duration":  "2h",
		"refresh_token_validity_duration": "168h",
		"google_client_id":                "cid",
		"single_session":                  true,
		"janitor_enabled":                 true,
		"janitor_interval":                "30s",
		"janitor_error_backoff":           "5m",
	})

	t.Run("loads from json", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", path}

		cfg := &Config{}
		parseJson(cfg)

		assert.Equal(t, "postgres://json", cfg.DatabaseDSN)
		assert.Equal(t, "/keys", cfg.KeyDirectory)
		assert.Equal(t, "rsa", cfg.KeyBackend)
		assert.True(t, cfg.KeyCacheEnabled)
		assert.Equal(t, "hunter2", cfg.KeyPassphrase)
		assert.Equal(t, 2*time.Hour, cfg.AccessTokenValidityDuration)
		assert.Equal(t, 168*time.Hour, cfg.RefreshTokenValidityDuration)
		assert.Equal(t, "cid", cfg.GoogleClientID)
		assert.True(t, cfg.SingleSession)
		assert.Equal(t, 30*time.Second, cfg.JanitorInterval)
		assert.Equal(t, 5*time.Minute, cfg.JanitorErrorBackoff)
	})

	t.Run("no config flag leaves values untouched", func(t *testing.T) {
		os.Args = []string{"testbin"}

		cfg := &Config{DatabaseDSN: "keep-me"}
		parseJson(cfg)

		assert.Equal(t, "keep-me", cfg.DatabaseDSN)
	})

	t.Run("missing file panics", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", "/does/not/exist.json"}

		cfg := &Config{}
		require.Panics(t, func() { parseJson(cfg) })
	})
}
