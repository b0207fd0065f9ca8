package server

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func resetConfig(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		SetConfig(nil)
	})
}

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, ":8080", cfg.Port)
	assert.Equal(t, int64(4096), cfg.MaxMessageSize)
	assert.Equal(t, 256, cfg.SendBufferSize)
	assert.Equal(t, 10, cfg.RateLimit.Burst)
	assert.Equal(t, time.Second, cfg.RateLimit.RefillInterval)
	assert.Equal(t, 30*time.Second, cfg.HeartbeatInterval)
	assert.NotEmpty(t, cfg.AllowedOrigins)
}

func TestNewConfigFromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", ":9090")
	t.Setenv("ALLOWED_ORIGINS", "https://globalnetwork.example, https://staging.globalnetwork.example")
	t.Setenv("MAX_MESSAGE_SIZE", "8192")
	t.Setenv("SEND_BUFFER_SIZE", "128")
	t.Setenv("RATE_LIMIT_BURST", "20")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2")
	t.Setenv("HEARTBEAT_INTERVAL", "15")
	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("DATABASE_URL", "postgres://relay:relay@db:5432/network")

	cfg := NewConfigFromEnv()

	assert.Equal(t, ":9090", cfg.Port)
	assert.Equal(t, []string{"https://globalnetwork.example", "https://staging.globalnetwork.example"}, cfg.AllowedOrigins)
	assert.Equal(t, int64(8192), cfg.MaxMessageSize)
	assert.Equal(t, 128, cfg.SendBufferSize)
	assert.Equal(t, 20, cfg.RateLimit.Burst)
	assert.Equal(t, 2*time.Second, cfg.RateLimit.RefillInterval)
	assert.Equal(t, 15*time.Second, cfg.HeartbeatInterval)
	assert.Equal(t, "env-secret", cfg.JWTSecret)
	assert.Equal(t, "postgres://relay:relay@db:5432/network", cfg.DatabaseURL)
}

func TestNewConfigFromEnvIgnoresInvalidValues(t *testing.T) {
	t.Setenv("MAX_MESSAGE_SIZE", "not-a-number")
	t.Setenv("RATE_LIMIT_BURST", "-3")
	t.Setenv("HEARTBEAT_INTERVAL", "0")

	cfg := NewConfigFromEnv()

	assert.Equal(t, int64(4096), cfg.MaxMessageSize)
	assert.Equal(t, 10, cfg.RateLimit.Burst)
	assert.Equal(t, 30*time.Second, cfg.HeartbeatInterval)
}

func TestSetConfigSanitizesZeroValues(t *testing.T) {
	resetConfig(t)

	SetConfig(&Config{})

	cfg := currentConfig()
	assert.Equal(t, ":8080", cfg.Port)
	assert.Equal(t, int64(4096), cfg.MaxMessageSize)
	assert.Equal(t, 256, cfg.SendBufferSize)
	assert.Equal(t, 30*time.Second, cfg.HeartbeatInterval)
}

func TestCheckOriginHonorsAllowList(t *testing.T) {
	resetConfig(t)

	cfg := NewConfig()
	cfg.AllowedOrigins = []string{"https://globalnetwork.example"}
	SetConfig(cfg)

	newRequest := func(origin string) *http.Request {
		r, _ := http.NewRequest(http.MethodGet, "/ws", http.NoBody)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		return r
	}

	assert.True(t, checkOrigin(newRequest("https://globalnetwork.example")))
	assert.True(t, checkOrigin(newRequest("HTTPS://GlobalNetwork.Example")), "origin matching is case-insensitive")
	assert.False(t, checkOrigin(newRequest("https://evil.example")))
	assert.False(t, checkOrigin(newRequest("")))

	cfg.AllowedOrigins = []string{"*"}
	SetConfig(cfg)
	assert.True(t, checkOrigin(newRequest("https://anywhere.example")))
}
