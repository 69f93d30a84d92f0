package mongo

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ScheduledMessage 已暂存、尚未物化的消息
// 状态只有一次终态迁移：pending→sent 或 pending→cancelled
type ScheduledMessage struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ConversationID primitive.ObjectID `bson:"conversation_id" json:"conversationId"`
	SenderID       uint64             `bson:"sender_id" json:"senderId"`
	Type           string             `bson:"type" json:"type"`
	Content        string             `bson:"content" json:"content"`
	Attachments    []Attachment       `bson:"attachments,omitempty" json:"attachments,omitempty"`
	ScheduledFor   time.Time          `bson:"scheduled_for" json:"scheduledFor"`
	Status         string             `bson:"status" json:"status"`
	CreatedAt      time.Time          `bson:"created_at" json:"createdAt"`
	SentAt         *time.Time         `bson:"sent_at,omitempty" json:"sentAt,omitempty"`
}
