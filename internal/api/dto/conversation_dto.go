package dto

import "time"

// CreateDirectReq 创建单聊请求，已存在时返回原会话
type CreateDirectReq struct {
	TargetUserID uint64 `json:"target_user_id" binding:"required"`
}

// CreateGroupReq 创建群聊请求
type CreateGroupReq struct {
	Name        string   `json:"name" binding:"required" validate:"min=1,max=100"`
	Description string   `json:"description" validate:"max=500"`
	Image       string   `json:"image"`
	MemberIDs   []uint64 `json:"member_ids"`
}

// UpdateGroupReq 更新群资料，仅管理员可用
type UpdateGroupReq struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=100"`
	Description *string `json:"description" validate:"omitempty,max=500"`
	Image       *string `json:"image"`
}

// MuteReq 静音设置，Minutes 为 0 表示永久静音
type MuteReq struct {
	Mute    bool `json:"mute"`
	Minutes int  `json:"minutes" validate:"min=0"`
}

// DisappearingReq 阅后即焚时长，秒，0 关闭
type DisappearingReq struct {
	Duration int64 `json:"duration" validate:"min=0"`
}

// LastMessageDTO 会话列表中的最后一条消息摘要
type LastMessageDTO struct {
	MessageID string    `json:"message_id"`
	SenderID  uint64    `json:"sender_id"`
	Type      string    `json:"type"`
	Preview   string    `json:"preview"`
	SentAt    time.Time `json:"sent_at"`
}

// ConversationDTO 会话明细响应，计数与偏好按调用者视角展开
type ConversationDTO struct {
	ID                   string          `json:"id"`
	Type                 string          `json:"type"`
	GroupName            string          `json:"group_name,omitempty"`
	GroupDescription     string          `json:"group_description,omitempty"`
	GroupImage           string          `json:"group_image,omitempty"`
	Participants         []uint64        `json:"participants"`
	Admins               []uint64        `json:"admins,omitempty"`
	CreatedBy            uint64          `json:"created_by"`
	LastMessage          *LastMessageDTO `json:"last_message,omitempty"`
	UnreadCount          int64           `json:"unread_count"`
	IsMuted              bool            `json:"is_muted"`
	MutedUntil           *time.Time      `json:"muted_until,omitempty"`
	IsPinned             bool            `json:"is_pinned"`
	IsArchived           bool            `json:"is_archived"`
	DisappearingDuration int64           `json:"disappearing_duration"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}
