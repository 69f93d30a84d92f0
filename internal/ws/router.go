package ws

import (
	"Harbor/internal/api/dto"
	"Harbor/internal/pkg/consts"
	"Harbor/internal/pkg/ratelimit"
	"Harbor/internal/pkg/util"
	"Harbor/internal/service"
	"context"
	log "log/slog"

	"github.com/goccy/go-json"
)

// Router 上行帧路由，把客户端事件映射到服务层操作
type Router struct {
	msgSvc  service.MessageService
	convSvc service.ConversationService
	callSvc service.CallService
	limiter *ratelimit.Limiter
}

func NewRouter(
	msgSvc service.MessageService,
	convSvc service.ConversationService,
	callSvc service.CallService,
	limiter *ratelimit.Limiter,
) *Router {
	return &Router{msgSvc: msgSvc, convSvc: convSvc, callSvc: callSvc, limiter: limiter}
}

func (s *Router) Dispatch(c *Client, raw []byte) {
	var frame dto.WSFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		s.nack(c, "", "", service.ErrParamInvalid)
		return
	}

	ctx := context.Background()

	switch frame.Event {
	case consts.ClientEventPing:
		s.ack(c, &frame, "pong")

	case consts.ClientEventSend:
		var req dto.SendMessageReq
		if err := s.bind(frame.Data, &req); err != nil {
			s.nack(c, frame.ID, frame.Event, err)
			return
		}
		if !s.limiter.Allow(c.connID) {
			s.nack(c, frame.ID, frame.Event, service.ErrRateLimited)
			return
		}
		msg, err := s.msgSvc.Send(ctx, c.userID, &req)
		if err != nil {
			s.nack(c, frame.ID, frame.Event, err)
			return
		}
		s.ack(c, &frame, msg)

	case consts.ClientEventEdit:
		var req dto.WSEditMessageReq
		if err := s.bind(frame.Data, &req); err != nil {
			s.nack(c, frame.ID, frame.Event, err)
			return
		}
		msg, err := s.msgSvc.Edit(ctx, c.userID, req.MessageID, &dto.EditMessageReq{Content: req.Content})
		if err != nil {
			s.nack(c, frame.ID, frame.Event, err)
			return
		}
		s.ack(c, &frame, msg)

	case consts.ClientEventDeleteForMe:
		var req dto.WSMessageRef
		if err := s.bind(frame.Data, &req); err != nil {
			s.nack(c, frame.ID, frame.Event, err)
			return
		}
		if err := s.msgSvc.DeleteForMe(ctx, c.userID, req.MessageID); err != nil {
			s.nack(c, frame.ID, frame.Event, err)
			return
		}
		s.ack(c, &frame, nil)

	case consts.ClientEventDeleteForAll:
		var req dto.WSMessageRef
		if err := s.bind(frame.Data, &req); err != nil {
			s.nack(c, frame.ID, frame.Event, err)
			return
		}
		if err := s.msgSvc.DeleteForEveryone(ctx, c.userID, req.MessageID); err != nil {
			s.nack(c, frame.ID, frame.Event, err)
			return
		}
		s.ack(c, &frame, nil)

	case consts.ClientEventPin:
		var req dto.WSPinMessageReq
		if err := s.bind(frame.Data, &req); err != nil {
			s.nack(c, frame.ID, frame.Event, err)
			return
		}
		if err := s.msgSvc.SetPinned(ctx, c.userID, req.MessageID, req.Pinned); err != nil {
			s.nack(c, frame.ID, frame.Event, err)
			return
		}
		s.ack(c, &frame, nil)

	case consts.ClientEventForward:
		var req dto.ForwardReq
		if err := s.bind(frame.Data, &req); err != nil {
			s.nack(c, frame.ID, frame.Event, err)
			return
		}
		// 转发按目标会话数占用发送配额
		if !s.limiter.AllowN(c.connID, len(req.ConversationIDs)) {
			s.nack(c, frame.ID, frame.Event, service.ErrRateLimited)
			return
		}
		msgs, err := s.msgSvc.Forward(ctx, c.userID, &req)
		if err != nil {
			s.nack(c, frame.ID, frame.Event, err)
			return
		}
		s.ack(c, &frame, msgs)

	case consts.ClientEventReactionAdd:
		var req dto.WSReactionReq
		if err := s.bind(frame.Data, &req); err != nil {
			s.nack(c, frame.ID, frame.Event, err)
			return
		}
		msg, err := s.msgSvc.AddReaction(ctx, c.userID, req.MessageID, &dto.ReactReq{Emoji: req.Emoji})
		if err != nil {
			s.nack(c, frame.ID, frame.Event, err)
			return
		}
		s.ack(c, &frame, msg)

	case consts.ClientEventReactionDel:
		var req dto.WSReactionReq
		if err := s.bind(frame.Data, &req); err != nil {
			s.nack(c, frame.ID, frame.Event, err)
			return
		}
		msg, err := s.msgSvc.RemoveReaction(ctx, c.userID, req.MessageID, req.Emoji)
		if err != nil {
			s.nack(c, frame.ID, frame.Event, err)
			return
		}
		s.ack(c, &frame, msg)

	case consts.ClientEventJoinRoom:
		// 连接期间新加入的会话通过这里补订房间，校验成员身份
		var req dto.JoinRoomReq
		if err := s.bind(frame.Data, &req); err != nil {
			s.nack(c, frame.ID, frame.Event, err)
			return
		}
		if _, err := s.convSvc.RequireMember(ctx, c.userID, req.ConversationID); err != nil {
			s.nack(c, frame.ID, frame.Event, err)
			return
		}
		c.JoinRoom(service.ConvRoom(req.ConversationID))
		s.ack(c, &frame, nil)

	case consts.ClientEventCallSignal:
		var req dto.CallSignalReq
		if err := s.bind(frame.Data, &req); err != nil {
			s.nack(c, frame.ID, frame.Event, err)
			return
		}
		if err := s.callSvc.Signal(ctx, c.userID, &req); err != nil {
			s.nack(c, frame.ID, frame.Event, err)
			return
		}
		s.ack(c, &frame, nil)

	case consts.ClientEventTyping:
		var req dto.TypingReq
		if err := s.bind(frame.Data, &req); err != nil {
			s.nack(c, frame.ID, frame.Event, err)
			return
		}
		// 输入状态不回 ack，失败静默
		if err := s.msgSvc.Typing(ctx, c.userID, req.ConversationID, req.IsTyping); err != nil {
			log.Debug("typing relay failed", "userID", c.userID, "err", err)
		}

	case consts.ClientEventMarkRead:
		var req dto.MarkReadReq
		if err := s.bind(frame.Data, &req); err != nil {
			s.nack(c, frame.ID, frame.Event, err)
			return
		}
		if err := s.msgSvc.MarkRead(ctx, c.userID, req.ConversationID); err != nil {
			s.nack(c, frame.ID, frame.Event, err)
			return
		}
		s.ack(c, &frame, nil)

	case consts.ClientEventDelivered:
		var req dto.MarkDeliveredReq
		if err := s.bind(frame.Data, &req); err != nil {
			s.nack(c, frame.ID, frame.Event, err)
			return
		}
		if err := s.msgSvc.MarkDelivered(ctx, c.userID, req.ConversationID, req.MessageIDs); err != nil {
			s.nack(c, frame.ID, frame.Event, err)
			return
		}
		s.ack(c, &frame, nil)

	default:
		s.nack(c, frame.ID, frame.Event, service.ErrParamInvalid)
	}
}

// Release 连接断开时回收该连接的限流窗口
func (s *Router) Release(connID string) {
	s.limiter.Forget(connID)
}

func (s *Router) bind(raw json.RawMessage, out any) error {
	if len(raw) == 0 {
		return service.ErrParamInvalid
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return service.ErrParamInvalid
	}
	if err := util.ValidateDTO(out); err != nil {
		return service.ErrParamInvalid
	}
	return nil
}

func (s *Router) ack(c *Client, frame *dto.WSFrame, data interface{}) {
	s.reply(c, &dto.WSAck{
		ID:      frame.ID,
		Event:   "ack",
		Success: true,
		Data:    data,
	})
}

func (s *Router) nack(c *Client, id, event string, err error) {
	s.reply(c, &dto.WSAck{
		ID:      id,
		Event:   "ack",
		Success: false,
		Message: err.Error(),
	})
}

func (s *Router) reply(c *Client, ack *dto.WSAck) {
	payload, err := json.Marshal(ack)
	if err != nil {
		log.Error("marshal ws ack failed", "err", err)
		return
	}
	if !c.Send(payload) {
		log.Warn("WS 应答队列已满", "userID", c.userID, "connID", c.connID)
	}
}
