package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8083", cfg.Port)
	assert.Equal(t, "dev", cfg.Environment)
	assert.Equal(t, 7*24*60, cfg.TokenTTLMinutes)
	assert.Equal(t, 15, cfg.PresenceFlushSeconds)
	assert.False(t, cfg.DebugRoutes)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("TOKEN_TTL_MINUTES", "30")
	t.Setenv("DEBUG_ROUTES", "true")

	cfg := Load()

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, 30, cfg.TokenTTLMinutes)
	assert.True(t, cfg.DebugRoutes)
}

func TestLoadIgnoresMalformedInt(t *testing.T) {
	t.Setenv("TOKEN_TTL_MINUTES", "not-a-number")

	cfg := Load()
	assert.Equal(t, 7*24*60, cfg.TokenTTLMinutes)
}
