package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_ReportsRedisFailure(t *testing.T) {
	l := NewRateLimiter(unreachableClient())
	allowed, err := l.Allow(context.Background(), "ratelimit:user:me@example.com:/v1/generate", 5, time.Minute)
	assert.Error(t, err)
	assert.False(t, allowed)
}
