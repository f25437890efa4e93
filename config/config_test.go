package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "idlink_dev", cfg.MongoDBName)
	assert.True(t, cfg.MongoTransactions)
	assert.True(t, cfg.EmailMatchEnabled)
	assert.True(t, cfg.RequireVerifiedEmail)
	assert.False(t, cfg.AvatarOverrideAllowed)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("EMAIL_MATCH_ENABLED", "false")
	t.Setenv("AVATAR_OVERRIDE_ALLOWED", "true")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.HTTPPort)
	assert.False(t, cfg.EmailMatchEnabled)
	assert.True(t, cfg.AvatarOverrideAllowed)
}
