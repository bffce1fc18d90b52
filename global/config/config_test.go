package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "MONGO_URI", "MONGO_DB", "REDIS_ADDR", "JWT_SECRET",
		"JWT_TTL", "CORS_ORIGIN", "WS_PING_INTERVAL", "WS_PONG_TIMEOUT", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "wavechat", cfg.MongoDB)
	assert.Equal(t, 25*time.Second, cfg.PingInterval)
	assert.Equal(t, 60*time.Second, cfg.PongTimeout)
	assert.Equal(t, 168*time.Hour, cfg.JWTTTL)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("MONGO_DB", "chat_test")
	t.Setenv("WS_PING_INTERVAL", "10s")
	t.Setenv("JWT_SECRET", "unit-test-secret")

	cfg := Load()
	assert.Equal(t, 9999, cfg.Port)
	assert.Equal(t, "chat_test", cfg.MongoDB)
	assert.Equal(t, 10*time.Second, cfg.PingInterval)
	assert.Equal(t, "unit-test-secret", cfg.JWTSecret)
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	t.Setenv("PORT", "not-a-number")
	t.Setenv("WS_PONG_TIMEOUT", "soon")

	cfg := Load()
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 60*time.Second, cfg.PongTimeout)
}

func TestJWTOptions(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("JWT_TTL", "1h")

	opts := Load().JWTOptions()
	assert.Equal(t, []byte("s3cret"), opts.Secret)
	assert.Equal(t, time.Hour, opts.TTL)
}
