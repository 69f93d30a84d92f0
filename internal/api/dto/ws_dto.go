package dto

import (
	"time"

	"github.com/goccy/go-json"
)

// WSFrame 客户端上行帧
type WSFrame struct {
	ID    string          `json:"id"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// WSAck 上行帧的应答，ID 与请求帧对应
type WSAck struct {
	ID      string      `json:"id"`
	Event   string      `json:"event"`
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// WSEvent 服务端下行事件信封，经 Redis 广播后原样投递
type WSEvent struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// TypingReq 输入状态上报
type TypingReq struct {
	ConversationID string `json:"conversation_id" binding:"required"`
	IsTyping       bool   `json:"is_typing"`
}

// MarkReadReq 会话已读上报
type MarkReadReq struct {
	ConversationID string `json:"conversation_id" binding:"required"`
}

// MarkDeliveredReq 送达确认上报
type MarkDeliveredReq struct {
	ConversationID string   `json:"conversation_id" binding:"required"`
	MessageIDs     []string `json:"message_ids" binding:"required"`
}

// JoinRoomReq 连接建立后动态加入会话房间
type JoinRoomReq struct {
	ConversationID string `json:"conversation_id" validate:"required"`
}

// WSMessageRef 只携带消息 ID 的上行请求
type WSMessageRef struct {
	MessageID string `json:"message_id" validate:"required"`
}

// WSEditMessageReq 编辑消息上行请求
type WSEditMessageReq struct {
	MessageID string `json:"message_id" validate:"required"`
	Content   string `json:"content" validate:"required"`
}

// WSPinMessageReq 置顶/取消置顶上行请求
type WSPinMessageReq struct {
	MessageID string `json:"message_id" validate:"required"`
	Pinned    bool   `json:"pinned"`
}

// WSReactionReq 表态上行请求
type WSReactionReq struct {
	MessageID string `json:"message_id" validate:"required"`
	Emoji     string `json:"emoji" validate:"required,max=16"`
}

// PresenceSnapshotEvent 连接建立时的全量在线用户列表
type PresenceSnapshotEvent struct {
	UserIDs []uint64 `json:"user_ids"`
}

// TypingEvent 输入状态下行事件
type TypingEvent struct {
	ConversationID string `json:"conversation_id"`
	UserID         uint64 `json:"user_id"`
	IsTyping       bool   `json:"is_typing"`
}

// ReceiptEvent 回执下行事件
type ReceiptEvent struct {
	ConversationID string    `json:"conversation_id"`
	UserID         uint64    `json:"user_id"`
	MessageIDs     []string  `json:"message_ids,omitempty"`
	At             time.Time `json:"at"`
}

// PresenceEvent 在线状态下行事件
type PresenceEvent struct {
	UserID   uint64     `json:"user_id"`
	Online   bool       `json:"online"`
	LastSeen *time.Time `json:"last_seen,omitempty"`
}

// CallSignalEvent 信令转发下行事件
type CallSignalEvent struct {
	CallID     string          `json:"call_id"`
	FromUserID uint64          `json:"from_user_id"`
	Signal     string          `json:"signal"`
	Payload    json.RawMessage `json:"payload"`
}

// CallStateEvent 通话状态变更下行事件
type CallStateEvent struct {
	CallID         string `json:"call_id"`
	ConversationID string `json:"conversation_id"`
	CallType       string `json:"call_type"`
	InitiatedBy    uint64 `json:"initiated_by"`
	Status         string `json:"status"`
}
