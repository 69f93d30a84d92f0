package ratelimit

import (
	"sync"
	"time"
)

type window struct {
	count   int
	resetAt time.Time
}

// Limiter 进程内固定窗口限流器
// 窗口过期后惰性重置，Sweep 负责回收长期不活跃的键
type Limiter struct {
	mu       sync.Mutex
	windows  map[string]*window
	limit    int
	interval time.Duration
	now      func() time.Time
}

func NewLimiter(limit int, interval time.Duration) *Limiter {
	return &Limiter{
		windows:  make(map[string]*window),
		limit:    limit,
		interval: interval,
		now:      time.Now,
	}
}

// Allow 占用一个配额，窗口已满时返回 false 且不消耗配额
func (s *Limiter) Allow(key string) bool {
	return s.AllowN(key, 1)
}

// AllowN 一次占用 n 个配额，要么全部占用要么全部拒绝
func (s *Limiter) AllowN(key string, n int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	w, ok := s.windows[key]
	if !ok || now.After(w.resetAt) {
		w = &window{resetAt: now.Add(s.interval)}
		s.windows[key] = w
	}

	if w.count+n > s.limit {
		return false
	}
	w.count += n
	return true
}

// Forget 连接断开时释放对应的窗口
func (s *Limiter) Forget(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.windows, key)
}

// Sweep 清理所有已过期的窗口，由定时任务调用
func (s *Limiter) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for key, w := range s.windows {
		if now.After(w.resetAt) {
			delete(s.windows, key)
			removed++
		}
	}
	return removed
}
