package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("AUTH_ACCESS_TOKEN_TTL_MINUTES", "")
	t.Setenv("POSTGRES_DSN", "")
	t.Setenv("APP_PORT", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 10*time.Hour, cfg.Auth.AccessTokenTTL())
	assert.Empty(t, cfg.Postgres.DSN)
	assert.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
	assert.Equal(t, 30*time.Second, cfg.App.RequestTimeout())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("AUTH_ACCESS_TOKEN_TTL_MINUTES", "15")
	t.Setenv("NOTIFY_QUEUE_SIZE", "not-a-number")
	t.Setenv("SEED_ADMIN_ON_START", "false")
	t.Setenv("HTTP_REQUEST_TIMEOUT_SECONDS", "0")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTokenTTL())
	assert.Equal(t, 256, cfg.Notification.QueueSize, "unparsable values fall back to defaults")
	assert.False(t, cfg.Seed.AdminOnStart)
	assert.Zero(t, cfg.App.RequestTimeout())
}

func TestLoadRejectsInvalidRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "one")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "")
	t.Setenv("APP_ENV", "")
	t.Setenv("NOTIFY_SMTP_HOST", "")

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	cfg.App.Env = "production"
	assert.Error(t, cfg.Validate(), "default key refused in production")

	cfg.Auth.JWTSecret = "production-signing-key-0123456789abcdef"
	require.NoError(t, cfg.Validate())

	cfg.Auth.JWTSecret = "short"
	assert.Error(t, cfg.Validate())

	cfg.Auth.JWTSecret = "production-signing-key-0123456789abcdef"
	cfg.Notification.SMTPHost = "smtp.example.com"
	cfg.Notification.EmailFrom = ""
	assert.Error(t, cfg.Validate())
}
