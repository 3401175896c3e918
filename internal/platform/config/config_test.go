package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg := FromEnv()

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "platform-events", cfg.Broker.Queue)
	assert.Equal(t, "events:fallback", cfg.Broker.BufferKey)
	assert.Equal(t, 100, cfg.Broker.DrainBatch)
	assert.Equal(t, 5*time.Second, cfg.Session.ReconnectDelay)
	assert.Equal(t, 30*time.Second, cfg.Session.QRTimeout)
	assert.True(t, cfg.Session.RestartOnAuthFail)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("WPP_ADDR", ":9090")
	t.Setenv("WPP_BROKER_MAX_ATTEMPTS", "3")
	t.Setenv("WPP_SESSION_QR_TIMEOUT", "45s")
	t.Setenv("WPP_SESSION_RESTART_ON_AUTH_FAIL", "false")

	cfg := FromEnv()

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, 3, cfg.Broker.MaxAttempts)
	assert.Equal(t, 45*time.Second, cfg.Session.QRTimeout)
	assert.False(t, cfg.Session.RestartOnAuthFail)
}

func TestFromEnvIgnoresMalformedValues(t *testing.T) {
	t.Setenv("WPP_REDIS_DB", "not-a-number")
	t.Setenv("WPP_BROKER_BASE_DELAY", "soon")

	cfg := FromEnv()

	assert.Equal(t, 0, cfg.Redis.DB)
	assert.Equal(t, time.Second, cfg.Broker.BaseDelay)
}
