package consts

// 会话类型
const (
	ConvTypeDirect = "direct"
	ConvTypeGroup  = "group"
)

// 消息类型
const (
	MsgTypeText   = "text"
	MsgTypeImage  = "image"
	MsgTypeFile   = "file"
	MsgTypeAudio  = "audio"
	MsgTypeVideo  = "video"
	MsgTypeSystem = "system"
)

// 消息状态
const (
	MsgStatusSending   = "sending"
	MsgStatusSent      = "sent"
	MsgStatusDelivered = "delivered"
	MsgStatusSeen      = "seen"
)

// 定时消息状态
const (
	ScheduledPending   = "pending"
	ScheduledSent      = "sent"
	ScheduledCancelled = "cancelled"
)

// 入群申请状态
const (
	JoinRequestPending  = "pending"
	JoinRequestApproved = "approved"
	JoinRequestRejected = "rejected"
)

// 通话状态
const (
	CallInitiated = "initiated"
	CallRinging   = "ringing"
	CallOngoing   = "ongoing"
	CallEnded     = "ended"
	CallMissed    = "missed"
	CallRejected  = "rejected"
)

const (
	CallTypeAudio = "audio"
	CallTypeVideo = "video"
)

const (
	MimePrefixImage = "image"
	MimePrefixAudio = "audio"
	MimePrefixVideo = "video"
)
