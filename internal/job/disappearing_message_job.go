package job

import (
	"Harbor/internal/service"
	"context"
	log "log/slog"
)

// DisappearingMessageJob 阅后即焚回收，物理删除已到期的消息
type DisappearingMessageJob struct {
	msgSvc service.MessageService
}

func NewDisappearingMessageJob(msgSvc service.MessageService) *DisappearingMessageJob {
	return &DisappearingMessageJob{msgSvc: msgSvc}
}

func (s *DisappearingMessageJob) Run() {
	ctx := context.Background()
	deleted, err := s.msgSvc.ReapExpired(ctx)
	if err != nil {
		log.Error("reap expired messages failed", "err", err)
		return
	}
	if deleted > 0 {
		log.Info("reaped expired messages", "count", deleted)
	}
}
