package redis

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solidwriter-api/internal/domain/service"
)

// 指向不可达地址的客户端，所有命令都会失败
func unreachableClient() *Client {
	return NewClientFromRedis(redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	}))
}

func TestBuildUsageKey(t *testing.T) {
	assert.Equal(t, "usage:me@example.com", BuildUsageKey("me@example.com"))
}

func TestUsageCache_FallsBackToLoaderWhenRedisDown(t *testing.T) {
	c := NewUsageCache(unreachableClient(), 0)
	assert.Equal(t, time.Minute, c.ttl)

	snap, err := c.GetOrLoad(context.Background(), "me@example.com", func() (*service.UsageSnapshot, error) {
		return &service.UsageSnapshot{UserID: "u-1", ConsumedUnits: 10, UnitLimit: 100, Remaining: 90}, nil
	})
	require.NoError(t, err)
	assert.EqualValues(t, 90, snap.Remaining)

	assert.Error(t, c.Invalidate(context.Background(), "me@example.com"))
}

func TestUsageCache_SharedLoadReturnsCopies(t *testing.T) {
	c := NewUsageCache(unreachableClient(), time.Second)
	var calls atomic.Int32
	release := make(chan struct{})

	load := func() (*service.UsageSnapshot, error) {
		calls.Add(1)
		<-release
		return &service.UsageSnapshot{UserID: "u-1", Remaining: 5}, nil
	}

	var wg sync.WaitGroup
	results := make([]*service.UsageSnapshot, 4)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			snap, err := c.GetOrLoad(context.Background(), "same@example.com", load)
			assert.NoError(t, err)
			results[i] = snap
		}()
	}
	time.Sleep(200 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.LessOrEqual(t, calls.Load(), int32(4))
	for _, r := range results {
		require.NotNil(t, r)
		assert.EqualValues(t, 5, r.Remaining)
	}
	results[0].Remaining = 0
	assert.EqualValues(t, 5, results[1].Remaining)
}
