package push

import (
	"Harbor/internal/api/config"
	"context"
	log "log/slog"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
)

// Notification 离线推送载荷
type Notification struct {
	UserIDs        []uint64 `json:"user_ids"`
	Title          string   `json:"title"`
	Body           string   `json:"body"`
	ConversationID string   `json:"conversation_id"`
}

// Notifier 离线推送网关客户端，收件人均不在线时触发
type Notifier interface {
	Notify(ctx context.Context, n *Notification) error
}

type notifierImpl struct {
	client *resty.Client
}

func NewNotifier(cfg *config.Config) Notifier {
	client := resty.New().
		SetBaseURL(cfg.Push.URL).
		SetHeader("Authorization", "Bearer "+cfg.Push.APIKey).
		SetTimeout(5 * time.Second).
		SetRetryCount(2)

	return &notifierImpl{client: client}
}

func (s *notifierImpl) Notify(ctx context.Context, n *Notification) error {
	if len(n.UserIDs) == 0 {
		return nil
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(n).
		Post("/v1/push")
	if err != nil {
		return errors.Wrap(err, "push gateway request failed")
	}
	if resp.IsError() {
		log.Warn("push gateway rejected notification", "status", resp.StatusCode(), "body", resp.String())
		return errors.Errorf("push gateway status %d", resp.StatusCode())
	}
	return nil
}
