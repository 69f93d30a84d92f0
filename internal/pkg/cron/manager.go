package cron

import (
	"Harbor/internal/job"
	log "log/slog"

	"github.com/robfig/cron/v3"
)

type Manager struct {
	engine          *cron.Cron
	scheduledJob    *job.ScheduledMessageJob
	disappearingJob *job.DisappearingMessageJob
	sweepJob        *job.RateLimitSweepJob
}

func NewCronManager(
	scheduledJob *job.ScheduledMessageJob,
	disappearingJob *job.DisappearingMessageJob,
	sweepJob *job.RateLimitSweepJob,
) *Manager {
	return &Manager{
		engine:          cron.New(),
		scheduledJob:    scheduledJob,
		disappearingJob: disappearingJob,
		sweepJob:        sweepJob,
	}
}

// RegisterJobs 注册定时任务
func (s *Manager) RegisterJobs() error {
	if _, err := s.engine.AddJob("@every 1m", s.scheduledJob); err != nil {
		return err
	}
	if _, err := s.engine.AddJob("@every 10m", s.disappearingJob); err != nil {
		return err
	}
	if _, err := s.engine.AddJob("@every 5m", s.sweepJob); err != nil {
		return err
	}
	return nil
}

func (s *Manager) Start() {
	log.Info("Cron 定时任务引擎启动")
	s.engine.Start()
}

func (s *Manager) Stop() {
	log.Info("Cron 定时任务引擎停止")
	s.engine.Stop()
}
