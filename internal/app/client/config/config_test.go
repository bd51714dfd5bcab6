package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CONFIG_DIR", dir)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, defaultServerAddress, cfg.ServerAddress)
	assert.Equal(t, filepath.Join(dir, "replikeep.db"), cfg.DataPath)
	assert.Equal(t, filepath.Join(dir, "token"), cfg.TokenPath)
	assert.Equal(t, 5*time.Minute, cfg.SyncInterval)
	assert.Equal(t, 2*time.Second, cfg.Debounce)
	assert.Equal(t, 5*time.Second, cfg.ClockDriftBuffer)
	assert.Equal(t, 100, cfg.PushBatchSize)
	assert.Equal(t, 30*24*time.Hour, cfg.LogWindow)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("CONFIG_DIR", t.TempDir())
	t.Setenv("SERVER_ADDRESS", "sync.example.com:443")
	t.Setenv("SYNC_INTERVAL_SECONDS", "60")
	t.Setenv("PUSH_BATCH_SIZE", "25")
	t.Setenv("APP_ENV", EnvProd)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sync.example.com:443", cfg.ServerAddress)
	assert.Equal(t, time.Minute, cfg.SyncInterval)
	assert.Equal(t, 25, cfg.PushBatchSize)
	assert.True(t, cfg.IsProd())
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"zero interval", "SYNC_INTERVAL_SECONDS", "0"},
		{"negative drift", "CLOCK_DRIFT_SECONDS", "-1"},
		{"zero batch", "PUSH_BATCH_SIZE", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("CONFIG_DIR", t.TempDir())
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}
