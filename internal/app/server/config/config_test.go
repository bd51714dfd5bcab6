package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", EnvLocal)
	t.Setenv("JWT_SECRET", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.RunAddress)
	assert.Equal(t, devSecret, cfg.Auth.Secret)
	assert.Equal(t, 720*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 500, cfg.Sync.BatchSize)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("APP_ENV", EnvProd)
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("RUN_ADDRESS", ":9090")
	t.Setenv("TOKEN_TTL", "1h")
	t.Setenv("SYNC_BATCH_SIZE", "50")
	t.Setenv("DATABASE_URI", "postgres://localhost/replikeep")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, EnvProd, cfg.Env)
	assert.Equal(t, "s3cret", cfg.Auth.Secret)
	assert.Equal(t, ":9090", cfg.Server.RunAddress)
	assert.Equal(t, time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 50, cfg.Sync.BatchSize)
	assert.Equal(t, "postgres://localhost/replikeep", cfg.DB.DatabaseURI)
}

func TestLoadRequiresSecretOutsideLocal(t *testing.T) {
	t.Setenv("APP_ENV", EnvProd)
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	assert.ErrorIs(t, err, ErrMissingSecret)
}

func TestLoadRejectsBadLimits(t *testing.T) {
	t.Setenv("APP_ENV", EnvLocal)
	t.Setenv("SYNC_MAX_BATCH_SIZE", "0")

	_, err := Load()
	assert.Error(t, err)
}
