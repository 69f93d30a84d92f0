package kafka

import (
	"Harbor/internal/api/config"
	log "log/slog"
	"time"

	"github.com/IBM/sarama"
	"github.com/goccy/go-json"
)

// ChatEvent 导出到下游分析链路的消息事件
type ChatEvent struct {
	Event          string    `json:"event"`
	ConversationID string    `json:"conversation_id"`
	MessageID      string    `json:"message_id,omitempty"`
	ActorID        uint64    `json:"actor_id"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// EventProducer 聊天事件导出器，发送失败只记录日志不回传业务
type EventProducer interface {
	Emit(event *ChatEvent)
	Close() error
}

type eventProducerImpl struct {
	producer sarama.AsyncProducer
	topic    string
}

func NewEventProducer(cfg *config.Config) (EventProducer, error) {
	saramaCfg := newSaramaConfig(cfg.Kafka)

	producer, err := sarama.NewAsyncProducer(cfg.Kafka.Brokers, saramaCfg)
	if err != nil {
		return nil, err
	}

	p := &eventProducerImpl{
		producer: producer,
		topic:    cfg.Kafka.EventTopic,
	}

	go func() {
		for err := range producer.Errors() {
			log.Error("chat event export failed", "topic", p.topic, "err", err.Err)
		}
	}()

	return p, nil
}

func (s *eventProducerImpl) Emit(event *ChatEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Error("chat event marshal failed", "event", event.Event, "err", err)
		return
	}

	s.producer.Input() <- &sarama.ProducerMessage{
		Topic: s.topic,
		Key:   sarama.StringEncoder(event.ConversationID),
		Value: sarama.ByteEncoder(payload),
	}
}

func (s *eventProducerImpl) Close() error {
	return s.producer.Close()
}
