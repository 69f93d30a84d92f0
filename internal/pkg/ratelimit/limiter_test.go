package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiterAllow(t *testing.T) {
	l := NewLimiter(30, time.Minute)

	for i := 0; i < 30; i++ {
		assert.True(t, l.Allow("conn-1"), "request %d should pass", i+1)
	}
	assert.False(t, l.Allow("conn-1"), "31st request should be rejected")

	// 其它键不受影响
	assert.True(t, l.Allow("conn-2"))
}

func TestLimiterWindowReset(t *testing.T) {
	l := NewLimiter(2, time.Minute)

	now := time.Now()
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("k"))
	assert.True(t, l.Allow("k"))
	assert.False(t, l.Allow("k"))

	// 窗口过期后惰性重置
	l.now = func() time.Time { return now.Add(61 * time.Second) }
	assert.True(t, l.Allow("k"))
}

func TestLimiterAllowN(t *testing.T) {
	l := NewLimiter(10, time.Minute)

	assert.True(t, l.AllowN("k", 8))
	// 超出剩余配额时整体拒绝，不部分占用
	assert.False(t, l.AllowN("k", 3))
	assert.True(t, l.AllowN("k", 2))
	assert.False(t, l.Allow("k"))
}

func TestLimiterForget(t *testing.T) {
	l := NewLimiter(1, time.Minute)

	assert.True(t, l.Allow("k"))
	assert.False(t, l.Allow("k"))

	l.Forget("k")
	assert.True(t, l.Allow("k"))
}

func TestLimiterSweep(t *testing.T) {
	l := NewLimiter(5, time.Minute)

	now := time.Now()
	l.now = func() time.Time { return now }

	l.Allow("a")
	l.Allow("b")
	l.Allow("c")

	l.now = func() time.Time { return now.Add(2 * time.Minute) }
	removed := l.Sweep()
	assert.Equal(t, 3, removed)

	// 清理后窗口重新计数
	assert.True(t, l.Allow("a"))
}
