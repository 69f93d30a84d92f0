package mongo

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Conversation 会话文档，direct 与 group 共用一张集合
type Conversation struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Type         string             `bson:"type" json:"type"` // direct / group
	Participants []uint64           `bson:"participants" json:"participants"`
	PeerKey      string             `bson:"peer_key,omitempty" json:"-"` // 单聊去重键 "小ID_大ID"

	GroupName        string   `bson:"group_name,omitempty" json:"groupName,omitempty"`
	GroupDescription string   `bson:"group_description,omitempty" json:"groupDescription,omitempty"`
	GroupImage       string   `bson:"group_image,omitempty" json:"groupImage,omitempty"`
	Admins           []uint64 `bson:"admins,omitempty" json:"admins,omitempty"`
	CreatedBy        uint64   `bson:"created_by,omitempty" json:"createdBy,omitempty"`

	LastMessage *LastMessage `bson:"last_message,omitempty" json:"lastMessage,omitempty"`
	Metadata    []MemberMeta `bson:"metadata" json:"metadata"`

	HiddenFor   []uint64 `bson:"hidden_for,omitempty" json:"-"`
	ArchivedFor []uint64 `bson:"archived_for,omitempty" json:"-"`

	// DisappearingDuration 秒数，0 表示关闭阅后即焚
	DisappearingDuration int64 `bson:"disappearing_duration" json:"disappearingDuration"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// LastMessage 会话列表预览，是消息集合的非权威缓存
type LastMessage struct {
	Content   string    `bson:"content" json:"content"`
	SenderID  uint64    `bson:"sender_id" json:"senderId"`
	Type      string    `bson:"type" json:"type"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

// MemberMeta 每个参与者一条的视图状态
type MemberMeta struct {
	UserID      uint64     `bson:"user_id" json:"userId"`
	UnreadCount int64      `bson:"unread_count" json:"unreadCount"`
	IsMuted     bool       `bson:"is_muted" json:"isMuted"`
	MutedUntil  *time.Time `bson:"muted_until,omitempty" json:"mutedUntil,omitempty"`
	IsPinned    bool       `bson:"is_pinned" json:"isPinned"`
}

// HasParticipant 判定成员资格
func (c *Conversation) HasParticipant(userID uint64) bool {
	for _, id := range c.Participants {
		if id == userID {
			return true
		}
	}
	return false
}

// HasAdmin 判定管理员资格
func (c *Conversation) HasAdmin(userID uint64) bool {
	for _, id := range c.Admins {
		if id == userID {
			return true
		}
	}
	return false
}

// HiddenUsers 当前处于隐藏状态的用户快照
func (c *Conversation) HiddenUsers() []uint64 {
	out := make([]uint64, len(c.HiddenFor))
	copy(out, c.HiddenFor)
	return out
}

// MetaOf 取某个成员的视图状态
func (c *Conversation) MetaOf(userID uint64) *MemberMeta {
	for i := range c.Metadata {
		if c.Metadata[i].UserID == userID {
			return &c.Metadata[i]
		}
	}
	return nil
}
