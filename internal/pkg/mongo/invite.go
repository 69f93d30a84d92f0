package mongo

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// InviteLink 群邀请链接
type InviteLink struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Token            string             `bson:"token" json:"token"`
	ConversationID   primitive.ObjectID `bson:"conversation_id" json:"conversationId"`
	CreatedBy        uint64             `bson:"created_by" json:"createdBy"`
	MaxUses          int64              `bson:"max_uses" json:"maxUses"` // 0 表示不限次数
	UseCount         int64              `bson:"use_count" json:"useCount"`
	ExpiresAt        *time.Time         `bson:"expires_at,omitempty" json:"expiresAt,omitempty"`
	RequiresApproval bool               `bson:"requires_approval" json:"requiresApproval"`
	IsActive         bool               `bson:"is_active" json:"isActive"`
	CreatedAt        time.Time          `bson:"created_at" json:"createdAt"`
}

// JoinRequest 入群申请，离开 pending 后即为终态
type JoinRequest struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ConversationID primitive.ObjectID `bson:"conversation_id" json:"conversationId"`
	UserID         uint64             `bson:"user_id" json:"userId"`
	LinkID         primitive.ObjectID `bson:"link_id" json:"linkId"`
	Status         string             `bson:"status" json:"status"`
	CreatedAt      time.Time          `bson:"created_at" json:"createdAt"`
	ResolvedBy     uint64             `bson:"resolved_by,omitempty" json:"resolvedBy,omitempty"`
	ResolvedAt     *time.Time         `bson:"resolved_at,omitempty" json:"resolvedAt,omitempty"`
}
