package dto

import "time"

// AddMembersReq 批量拉人请求
type AddMembersReq struct {
	UserIDs []uint64 `json:"user_ids" binding:"required" validate:"min=1"`
}

// CreateInviteReq 创建邀请链接请求
// MaxUses 为 0 表示不限次数，ExpiresInHours 为 0 表示永不过期
type CreateInviteReq struct {
	MaxUses          int  `json:"max_uses" validate:"min=0"`
	ExpiresInHours   int  `json:"expires_in_hours" validate:"min=0"`
	RequiresApproval bool `json:"requires_approval"`
}

// InviteLinkDTO 邀请链接明细
type InviteLinkDTO struct {
	Token            string     `json:"token"`
	ConversationID   string     `json:"conversation_id"`
	CreatedBy        uint64     `json:"created_by"`
	MaxUses          int64      `json:"max_uses"`
	UseCount         int64      `json:"use_count"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty"`
	RequiresApproval bool       `json:"requires_approval"`
	IsActive         bool       `json:"is_active"`
	CreatedAt        time.Time  `json:"created_at"`
}

// JoinRequestDTO 入群申请明细
type JoinRequestDTO struct {
	ID             string     `json:"id"`
	ConversationID string     `json:"conversation_id"`
	UserID         uint64     `json:"user_id"`
	Status         string     `json:"status"`
	ResolvedBy     uint64     `json:"resolved_by,omitempty"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// ResolveJoinReq 审批入群申请
type ResolveJoinReq struct {
	Approve bool `json:"approve"`
}

// JoinByInviteResp 通过链接加入的结果
// Pending 为 true 时表示已进入审批队列
type JoinByInviteResp struct {
	ConversationID string `json:"conversation_id"`
	Pending        bool   `json:"pending"`
}
