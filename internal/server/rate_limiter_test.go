package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterAllowsBurstThenDenies(t *testing.T) {
	rl := newRateLimiter(3, time.Hour)

	for i := 0; i < 3; i++ {
		assert.True(t, rl.allow(), "request %d within burst should pass", i)
	}
	assert.False(t, rl.allow(), "request beyond burst should be denied")
}

func TestRateLimiterRefills(t *testing.T) {
	rl := newRateLimiter(2, 20*time.Millisecond)

	assert.True(t, rl.allow())
	assert.True(t, rl.allow())
	assert.False(t, rl.allow())

	time.Sleep(30 * time.Millisecond)
	assert.True(t, rl.allow(), "tokens should refill over time")
}

func TestNewRateLimiterSanitizesArguments(t *testing.T) {
	rl := newRateLimiter(0, 0)
	assert.True(t, rl.allow(), "sanitized limiter must still admit traffic")
}
