package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type mockRedisEvaler struct {
	lastScript string
	lastKeys   []string
	lastArgs   []interface{}
	result     int64
	err        error
}

func (m *mockRedisEvaler) Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd {
	m.lastScript = script
	m.lastKeys = keys
	m.lastArgs = args
	cmd := redis.NewCmd(ctx)
	if m.err != nil {
		cmd.SetErr(m.err)
		return cmd
	}
	cmd.SetVal(m.result)
	return cmd
}

func TestRedisRateLimiterAllow(t *testing.T) {
	t.Run("nil receiver fail-open", func(t *testing.T) {
		var l *redisRateLimiter
		if !l.Allow("10.0.0.1") {
			t.Fatalf("expected fail-open for nil limiter")
		}
	})

	t.Run("nil client returns nil limiter", func(t *testing.T) {
		if l := NewRedisRateLimiter(nil, "chat:", time.Minute, 5); l != nil {
			t.Fatalf("expected nil limiter without redis client")
		}
	})

	t.Run("empty key rejected", func(t *testing.T) {
		l := newRedisRateLimiter(&mockRedisEvaler{result: 1}, "chat:", time.Minute, 3)
		if l.Allow("   ") {
			t.Fatalf("expected empty key to be rejected")
		}
	})

	t.Run("allow when count within max", func(t *testing.T) {
		mock := &mockRedisEvaler{result: 2}
		l := newRedisRateLimiter(mock, "chat:", 2*time.Minute, 3)
		if !l.Allow(" Client-A ") {
			t.Fatalf("expected allow when count <= max")
		}
		if len(mock.lastKeys) != 1 || mock.lastKeys[0] != "chat:client-a" {
			t.Fatalf("unexpected key normalization, got %+v", mock.lastKeys)
		}
		if len(mock.lastArgs) != 1 || mock.lastArgs[0] != 120 {
			t.Fatalf("expected TTL seconds=120, got %+v", mock.lastArgs)
		}
		if mock.lastScript != redisRateLimitScript {
			t.Fatalf("expected script to match")
		}
	})

	t.Run("default prefix", func(t *testing.T) {
		mock := &mockRedisEvaler{result: 1}
		l := newRedisRateLimiter(mock, "", 0, 0)
		l.Allow("k")
		if mock.lastKeys[0] != "rl:k" {
			t.Fatalf("expected default prefix, got %+v", mock.lastKeys)
		}
		if mock.lastArgs[0] != 60 {
			t.Fatalf("expected default window of 60s, got %+v", mock.lastArgs)
		}
	})

	t.Run("deny when count exceeds max", func(t *testing.T) {
		l := newRedisRateLimiter(&mockRedisEvaler{result: 4}, "chat:", time.Minute, 3)
		if l.Allow("10.0.0.1") {
			t.Fatalf("expected deny when count > max")
		}
	})

	t.Run("redis error fail-open", func(t *testing.T) {
		l := newRedisRateLimiter(&mockRedisEvaler{err: errors.New("redis down")}, "chat:", time.Minute, 3)
		if !l.Allow("10.0.0.1") {
			t.Fatalf("expected fail-open on redis errors")
		}
	})
}

func TestMemoryRateLimiterAllow(t *testing.T) {
	l := NewMemoryRateLimiter(time.Minute, 2)
	if !l.Allow("a") || !l.Allow("a") {
		t.Fatalf("expected first two hits allowed")
	}
	if l.Allow("a") {
		t.Fatalf("expected third hit denied")
	}
	if !l.Allow("b") {
		t.Fatalf("keys must be counted separately")
	}
}

func TestMemoryRateLimiterWindowExpires(t *testing.T) {
	l := NewMemoryRateLimiter(30*time.Millisecond, 1)
	if !l.Allow("a") {
		t.Fatalf("expected first hit allowed")
	}
	if l.Allow("a") {
		t.Fatalf("expected second hit denied inside the window")
	}
	time.Sleep(50 * time.Millisecond)
	if !l.Allow("a") {
		t.Fatalf("expected hit allowed after the window")
	}
}

func TestMemoryRateLimiterSweepsIdleKeys(t *testing.T) {
	l := NewMemoryRateLimiter(50*time.Millisecond, 5)
	for i := 0; i < 100; i++ {
		l.Allow(fmt.Sprintf("client-%d", i))
	}
	mem := l.(*memoryRateLimiter)
	if got := len(mem.hits); got != 100 {
		t.Fatalf("expected 100 tracked keys, got %d", got)
	}

	time.Sleep(80 * time.Millisecond)
	if !l.Allow("fresh") {
		t.Fatalf("expected fresh key allowed")
	}

	mem.mu.Lock()
	defer mem.mu.Unlock()
	if got := len(mem.hits); got != 1 {
		t.Fatalf("expected idle keys swept, got %d keys", got)
	}
	if _, ok := mem.hits["fresh"]; !ok {
		t.Fatalf("expected current key to survive the sweep")
	}
}
