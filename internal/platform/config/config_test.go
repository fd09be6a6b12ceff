package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_RequiresAccessSecret(t *testing.T) {
	t.Setenv("JWT_ACCESS_SECRET", "")

	_, err := FromEnv()
	require.ErrorIs(t, err, ErrMissingSecret)
}

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("JWT_ACCESS_SECRET", "s3cret")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, DefaultAccessTTL, cfg.Tokens.AccessTTL)
	assert.Equal(t, DefaultRefreshTTL, cfg.Tokens.RefreshTTL)
	assert.Empty(t, cfg.Tokens.RefreshSecret)
	assert.Equal(t, DefaultResetTokenTTL, cfg.Auth.ResetTokenTTL)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.True(t, cfg.SwaggerEnabled)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("JWT_ACCESS_SECRET", "a")
	t.Setenv("JWT_REFRESH_SECRET", "r")
	t.Setenv("JWT_ACCESS_TTL", "5m")
	t.Setenv("JWT_REFRESH_TTL", "not-a-duration")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("BCRYPT_COST", "12")
	t.Setenv("SWAGGER_ENABLED", "false")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "r", cfg.Tokens.RefreshSecret)
	assert.Equal(t, 5*time.Minute, cfg.Tokens.AccessTTL)
	assert.Equal(t, DefaultRefreshTTL, cfg.Tokens.RefreshTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, 12, cfg.Auth.BcryptCost)
	assert.False(t, cfg.SwaggerEnabled)
}
