package job

import (
	"Harbor/internal/pkg/ratelimit"
	log "log/slog"
)

// RateLimitSweepJob 回收过期的限流窗口，防止键集合无限增长
type RateLimitSweepJob struct {
	limiters []*ratelimit.Limiter
}

func NewRateLimitSweepJob(limiters ...*ratelimit.Limiter) *RateLimitSweepJob {
	return &RateLimitSweepJob{limiters: limiters}
}

func (s *RateLimitSweepJob) Run() {
	total := 0
	for _, l := range s.limiters {
		total += l.Sweep()
	}
	if total > 0 {
		log.Info("swept stale rate limit windows", "count", total)
	}
}
