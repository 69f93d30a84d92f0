package dto

import (
	"time"

	"github.com/goccy/go-json"
)

// StartCallReq 发起通话请求
type StartCallReq struct {
	ConversationID string `json:"conversation_id" binding:"required"`
	CallType       string `json:"call_type" binding:"required" validate:"oneof=audio video"`
}

// CallDTO 通话记录
type CallDTO struct {
	ID             string     `json:"id"`
	ConversationID string     `json:"conversation_id"`
	CallType       string     `json:"call_type"`
	InitiatedBy    uint64     `json:"initiated_by"`
	Participants   []uint64   `json:"participants"`
	Status         string     `json:"status"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	EndedAt        *time.Time `json:"ended_at,omitempty"`
	Duration       int64      `json:"duration"`
	CreatedAt      time.Time  `json:"created_at"`
}

// CallSignalReq SDP/ICE 信令转发，Payload 原样透传
type CallSignalReq struct {
	CallID       string          `json:"call_id" binding:"required"`
	TargetUserID uint64          `json:"target_user_id" binding:"required"`
	Signal       string          `json:"signal" binding:"required" validate:"oneof=offer answer candidate"`
	Payload      json.RawMessage `json:"payload" binding:"required"`
}
