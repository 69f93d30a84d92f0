package mongo

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CallLog 通话记录，状态机单向推进，ended/missed/rejected 为终态
type CallLog struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ConversationID primitive.ObjectID `bson:"conversation_id" json:"conversationId"`
	CallType       string             `bson:"call_type" json:"callType"` // audio / video
	InitiatedBy    uint64             `bson:"initiated_by" json:"initiatedBy"`
	Participants   []uint64           `bson:"participants" json:"participants"`
	Status         string             `bson:"status" json:"status"`
	StartedAt      *time.Time         `bson:"started_at,omitempty" json:"startedAt,omitempty"`
	EndedAt        *time.Time         `bson:"ended_at,omitempty" json:"endedAt,omitempty"`
	Duration       int64              `bson:"duration" json:"duration"` // 秒
	CreatedAt      time.Time          `bson:"created_at" json:"createdAt"`
}
