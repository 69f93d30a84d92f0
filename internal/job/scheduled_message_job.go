package job

import (
	"Harbor/internal/service"
	"context"
	log "log/slog"
)

// ScheduledMessageJob 定时消息派发，每分钟扫描一次到期队列
type ScheduledMessageJob struct {
	msgSvc service.MessageService
}

func NewScheduledMessageJob(msgSvc service.MessageService) *ScheduledMessageJob {
	return &ScheduledMessageJob{msgSvc: msgSvc}
}

func (s *ScheduledMessageJob) Run() {
	ctx := context.Background()
	if err := s.msgSvc.DispatchDue(ctx); err != nil {
		log.Error("scheduled message dispatch failed", "err", err)
	}
}
