package dto

import "time"

// AttachmentDTO 消息附件
type AttachmentDTO struct {
	URL      string `json:"url" binding:"required"`
	Type     string `json:"type"`
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	MimeType string `json:"mime_type"`
}

// SendMessageReq 发送消息请求体
// ScheduledFor 非空时消息进入定时队列而不立即投递
type SendMessageReq struct {
	ConversationID string          `json:"conversation_id" binding:"required"`
	Type           string          `json:"type"`
	Content        string          `json:"content"`
	Attachments    []AttachmentDTO `json:"attachments"`
	ReplyTo        string          `json:"reply_to"`
	ThreadID       string          `json:"thread_id"`
	ScheduledFor   *time.Time      `json:"scheduled_for"`
}

// EditMessageReq 编辑消息请求体
type EditMessageReq struct {
	Content string `json:"content" binding:"required"`
}

// ReactReq 表情回应，同一用户同一表情至多一条，重复提交幂等
type ReactReq struct {
	Emoji string `json:"emoji" binding:"required" validate:"max=16"`
}

// ForwardReq 批量转发请求体
type ForwardReq struct {
	MessageIDs      []string `json:"message_ids" binding:"required" validate:"min=1,max=20"`
	ConversationIDs []string `json:"conversation_ids" binding:"required" validate:"min=1,max=10"`
}

// ReactionDTO 单条表情回应
type ReactionDTO struct {
	Emoji  string `json:"emoji"`
	UserID uint64 `json:"user_id"`
}

// MessageDTO 消息明细响应
type MessageDTO struct {
	ID             string           `json:"id"`
	ConversationID string           `json:"conversation_id"`
	SenderID       uint64           `json:"sender_id"`
	Type           string           `json:"type"`
	Content        string           `json:"content"`
	Attachments    []AttachmentDTO  `json:"attachments,omitempty"`
	Reactions      []ReactionDTO    `json:"reactions,omitempty"`
	ReactionCounts map[string]int64 `json:"reaction_counts,omitempty"`
	Status         string           `json:"status"`
	DeliveredTo    []uint64         `json:"delivered_to,omitempty"`
	SeenBy         []uint64         `json:"seen_by,omitempty"`
	IsEdited       bool             `json:"is_edited"`
	IsPinned       bool             `json:"is_pinned"`
	IsDeleted      bool             `json:"is_deleted"`
	ReplyTo        string           `json:"reply_to,omitempty"`
	ThreadID       string           `json:"thread_id,omitempty"`
	ExpiresAt      *time.Time       `json:"expires_at,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	EditedAt       *time.Time       `json:"edited_at,omitempty"`
}

// ScheduledMessageDTO 定时消息列表项
type ScheduledMessageDTO struct {
	ID             string     `json:"id"`
	ConversationID string     `json:"conversation_id"`
	Type           string     `json:"type"`
	Content        string     `json:"content"`
	ScheduledFor   time.Time  `json:"scheduled_for"`
	Status         string     `json:"status"`
	SentAt         *time.Time `json:"sent_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// SearchHitDTO 消息检索命中项
type SearchHitDTO struct {
	MessageID      string    `json:"message_id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       uint64    `json:"sender_id"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}
