package mongo

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Message 消息文档
type Message struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ConversationID primitive.ObjectID `bson:"conversation_id" json:"conversationId"`
	SenderID       uint64             `bson:"sender_id" json:"senderId"`
	Type           string             `bson:"type" json:"type"`
	Content        string             `bson:"content" json:"content"`
	Attachments    []Attachment       `bson:"attachments,omitempty" json:"attachments,omitempty"`

	Reactions      []Reaction       `bson:"reactions,omitempty" json:"reactions,omitempty"`
	ReactionCounts map[string]int64 `bson:"reaction_counts,omitempty" json:"reactionCounts,omitempty"`

	Status      string   `bson:"status" json:"status"` // sending / sent / delivered / seen
	DeliveredTo []uint64 `bson:"delivered_to,omitempty" json:"deliveredTo,omitempty"`
	SeenBy      []uint64 `bson:"seen_by,omitempty" json:"seenBy,omitempty"`

	DeletedFor         []uint64 `bson:"deleted_for,omitempty" json:"-"`
	DeletedForEveryone bool     `bson:"deleted_for_everyone" json:"deletedForEveryone"`

	IsEdited bool `bson:"is_edited" json:"isEdited"`
	IsPinned bool `bson:"is_pinned" json:"isPinned"`

	// ReplyTo / ThreadID 为弱引用，被引用消息消失后允许悬空
	ReplyTo  *primitive.ObjectID `bson:"reply_to,omitempty" json:"replyTo,omitempty"`
	ThreadID *primitive.ObjectID `bson:"thread_id,omitempty" json:"threadId,omitempty"`

	ExpiresAt *time.Time `bson:"expires_at,omitempty" json:"expiresAt,omitempty"`
	CreatedAt time.Time  `bson:"created_at" json:"createdAt"`
	EditedAt  *time.Time `bson:"edited_at,omitempty" json:"editedAt,omitempty"`
}

// Attachment 附件
type Attachment struct {
	URL      string `bson:"url" json:"url"`
	Type     string `bson:"type" json:"type"`
	Name     string `bson:"name" json:"name"`
	Size     int64  `bson:"size" json:"size"`
	MimeType string `bson:"mime_type" json:"mimeType"`
}

// Reaction 单个用户对单个 emoji 的表态
type Reaction struct {
	Emoji  string `bson:"emoji" json:"emoji"`
	UserID uint64 `bson:"user_id" json:"userId"`
}

// VisibleTo 对某用户是否可见（未被单方删除）
func (m *Message) VisibleTo(userID uint64) bool {
	for _, id := range m.DeletedFor {
		if id == userID {
			return false
		}
	}
	return true
}
