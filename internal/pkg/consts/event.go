package consts

// 下行事件名，WebSocket 信封的 event 字段
const (
	EventMessageNew      = "message.new"
	EventMessageEdited   = "message.edited"
	EventMessageDeleted  = "message.deleted"
	EventMessagePinned   = "message.pinned"
	EventReactionUpdated = "reaction.updated"
	EventReceiptSeen     = "receipt.seen"
	EventReceiptDeliver  = "receipt.delivered"
	EventTyping          = "typing"
	EventPresence        = "presence"
	EventConvUpdated     = "conversation.updated"
	EventConvCreated     = "conversation.created"
	EventMemberAdded     = "group.member_added"
	EventMemberRemoved   = "group.member_removed"
	EventAdminChanged    = "group.admin_changed"
	EventJoinRequested   = "group.join_requested"
	EventCallSignal      = "call.signal"
	EventCallState       = "call.state"

	// EventPresenceSnapshot 连接建立时下发的全量在线用户列表
	EventPresenceSnapshot = "presence.snapshot"
)

// 上行事件名，客户端帧的 event 字段
const (
	ClientEventSend         = "message.send"
	ClientEventEdit         = "message.edit"
	ClientEventDeleteForMe  = "message.delete_for_me"
	ClientEventDeleteForAll = "message.delete_for_everyone"
	ClientEventPin          = "message.pin"
	ClientEventForward      = "message.forward"
	ClientEventReactionAdd  = "reaction.add"
	ClientEventReactionDel  = "reaction.remove"
	ClientEventTyping       = "typing"
	ClientEventMarkRead     = "receipt.read"
	ClientEventDelivered    = "receipt.delivered"
	ClientEventJoinRoom     = "room.join"
	ClientEventCallSignal   = "call.signal"
	ClientEventPing         = "ping"
)
