package ws

import (
	"Harbor/internal/api/dto"
	"Harbor/internal/pkg/mongo"
	"Harbor/internal/pkg/ratelimit"
	"Harbor/internal/service"
	"context"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
)

// stubMessageService 只实现路由层会触达的方法
type stubMessageService struct {
	service.MessageService

	sendErr   error
	sent      []*dto.SendMessageReq
	edited    []string
	deleted   []string
	pinned    []string
	forwarded []*dto.ForwardReq
	reactions []string
	removed   []string
	typing    int
	readConvs []string
	delivered [][]string
}

func (s *stubMessageService) Send(_ context.Context, _ uint64, req *dto.SendMessageReq) (*dto.MessageDTO, error) {
	if s.sendErr != nil {
		return nil, s.sendErr
	}
	s.sent = append(s.sent, req)
	return &dto.MessageDTO{ID: "m1", ConversationID: req.ConversationID, Content: req.Content}, nil
}

func (s *stubMessageService) Edit(_ context.Context, _ uint64, messageID string, req *dto.EditMessageReq) (*dto.MessageDTO, error) {
	s.edited = append(s.edited, messageID)
	return &dto.MessageDTO{ID: messageID, Content: req.Content}, nil
}

func (s *stubMessageService) DeleteForMe(_ context.Context, _ uint64, messageID string) error {
	s.deleted = append(s.deleted, messageID)
	return nil
}

func (s *stubMessageService) DeleteForEveryone(_ context.Context, _ uint64, messageID string) error {
	s.deleted = append(s.deleted, messageID)
	return nil
}

func (s *stubMessageService) SetPinned(_ context.Context, _ uint64, messageID string, _ bool) error {
	s.pinned = append(s.pinned, messageID)
	return nil
}

func (s *stubMessageService) Forward(_ context.Context, _ uint64, req *dto.ForwardReq) ([]*dto.MessageDTO, error) {
	s.forwarded = append(s.forwarded, req)
	return nil, nil
}

func (s *stubMessageService) AddReaction(_ context.Context, _ uint64, messageID string, _ *dto.ReactReq) (*dto.MessageDTO, error) {
	s.reactions = append(s.reactions, messageID)
	return &dto.MessageDTO{ID: messageID}, nil
}

func (s *stubMessageService) RemoveReaction(_ context.Context, _ uint64, messageID string, _ string) (*dto.MessageDTO, error) {
	s.removed = append(s.removed, messageID)
	return &dto.MessageDTO{ID: messageID}, nil
}

func (s *stubMessageService) Typing(_ context.Context, _ uint64, _ string, _ bool) error {
	s.typing++
	return nil
}

func (s *stubMessageService) MarkRead(_ context.Context, _ uint64, convID string) error {
	s.readConvs = append(s.readConvs, convID)
	return nil
}

func (s *stubMessageService) MarkDelivered(_ context.Context, _ uint64, _ string, ids []string) error {
	s.delivered = append(s.delivered, ids)
	return nil
}

// stubConvService 路由层只做成员校验
type stubConvService struct {
	service.ConversationService

	memberErr error
	required  []string
}

func (s *stubConvService) RequireMember(_ context.Context, _ uint64, convID string) (*mongo.Conversation, error) {
	if s.memberErr != nil {
		return nil, s.memberErr
	}
	s.required = append(s.required, convID)
	return &mongo.Conversation{}, nil
}

type stubCallService struct {
	service.CallService

	signals []*dto.CallSignalReq
}

func (s *stubCallService) Signal(_ context.Context, _ uint64, req *dto.CallSignalReq) error {
	s.signals = append(s.signals, req)
	return nil
}

func newTestRouter(msgSvc service.MessageService, limiter *ratelimit.Limiter) *Router {
	return NewRouter(msgSvc, &stubConvService{}, &stubCallService{}, limiter)
}

func dispatch(t *testing.T, router *Router, c *Client, frame *dto.WSFrame) *dto.WSAck {
	t.Helper()
	raw, err := json.Marshal(frame)
	assert.NoError(t, err)
	router.Dispatch(c, raw)

	payload, ok := recvNonBlocking(c)
	if !ok {
		return nil
	}
	ack := &dto.WSAck{}
	assert.NoError(t, json.Unmarshal(payload, ack))
	return ack
}

func TestRouterPing(t *testing.T) {
	router := newTestRouter(&stubMessageService{}, ratelimit.NewLimiter(30, time.Minute))
	c := newTestClient(nil, 1, "conn-a")

	ack := dispatch(t, router, c, &dto.WSFrame{ID: "f1", Event: "ping"})
	assert.NotNil(t, ack)
	assert.True(t, ack.Success)
	assert.Equal(t, "f1", ack.ID)
	assert.Equal(t, "pong", ack.Data)
}

func TestRouterSendMessage(t *testing.T) {
	svc := &stubMessageService{}
	router := newTestRouter(svc, ratelimit.NewLimiter(30, time.Minute))
	c := newTestClient(nil, 1, "conn-a")

	data, _ := json.Marshal(&dto.SendMessageReq{ConversationID: "conv1", Content: "hi"})
	ack := dispatch(t, router, c, &dto.WSFrame{ID: "f2", Event: "message.send", Data: data})
	assert.NotNil(t, ack)
	assert.True(t, ack.Success)
	assert.Len(t, svc.sent, 1)
	assert.Equal(t, "conv1", svc.sent[0].ConversationID)
}

func TestRouterSendRejectsServiceError(t *testing.T) {
	svc := &stubMessageService{sendErr: service.ErrNotParticipant}
	router := newTestRouter(svc, ratelimit.NewLimiter(30, time.Minute))
	c := newTestClient(nil, 1, "conn-a")

	data, _ := json.Marshal(&dto.SendMessageReq{ConversationID: "conv1", Content: "hi"})
	ack := dispatch(t, router, c, &dto.WSFrame{ID: "f3", Event: "message.send", Data: data})
	assert.NotNil(t, ack)
	assert.False(t, ack.Success)
	assert.Equal(t, service.ErrNotParticipant.Error(), ack.Message)
}

func TestRouterSendRateLimited(t *testing.T) {
	svc := &stubMessageService{}
	router := newTestRouter(svc, ratelimit.NewLimiter(1, time.Minute))
	c := newTestClient(nil, 1, "conn-a")

	data, _ := json.Marshal(&dto.SendMessageReq{ConversationID: "conv1", Content: "hi"})

	ack := dispatch(t, router, c, &dto.WSFrame{ID: "f4", Event: "message.send", Data: data})
	assert.True(t, ack.Success)

	ack = dispatch(t, router, c, &dto.WSFrame{ID: "f5", Event: "message.send", Data: data})
	assert.False(t, ack.Success)
	assert.Equal(t, service.ErrRateLimited.Error(), ack.Message)
	assert.Len(t, svc.sent, 1)

	// 断开回收窗口后恢复
	router.Release("conn-a")
	ack = dispatch(t, router, c, &dto.WSFrame{ID: "f6", Event: "message.send", Data: data})
	assert.True(t, ack.Success)
}

func TestRouterTypingHasNoAck(t *testing.T) {
	svc := &stubMessageService{}
	router := newTestRouter(svc, ratelimit.NewLimiter(30, time.Minute))
	c := newTestClient(nil, 1, "conn-a")

	data, _ := json.Marshal(&dto.TypingReq{ConversationID: "conv1", IsTyping: true})
	ack := dispatch(t, router, c, &dto.WSFrame{ID: "f7", Event: "typing", Data: data})
	assert.Nil(t, ack)
	assert.Equal(t, 1, svc.typing)
}

func TestRouterReceipts(t *testing.T) {
	svc := &stubMessageService{}
	router := newTestRouter(svc, ratelimit.NewLimiter(30, time.Minute))
	c := newTestClient(nil, 1, "conn-a")

	data, _ := json.Marshal(&dto.MarkReadReq{ConversationID: "conv1"})
	ack := dispatch(t, router, c, &dto.WSFrame{ID: "f8", Event: "receipt.read", Data: data})
	assert.True(t, ack.Success)
	assert.Equal(t, []string{"conv1"}, svc.readConvs)

	data, _ = json.Marshal(&dto.MarkDeliveredReq{ConversationID: "conv1", MessageIDs: []string{"m1"}})
	ack = dispatch(t, router, c, &dto.WSFrame{ID: "f9", Event: "receipt.delivered", Data: data})
	assert.True(t, ack.Success)
	assert.Len(t, svc.delivered, 1)
}

func TestRouterMessageOps(t *testing.T) {
	svc := &stubMessageService{}
	router := newTestRouter(svc, ratelimit.NewLimiter(30, time.Minute))
	c := newTestClient(nil, 1, "conn-a")

	data, _ := json.Marshal(&dto.WSEditMessageReq{MessageID: "m1", Content: "改过"})
	ack := dispatch(t, router, c, &dto.WSFrame{ID: "f10", Event: "message.edit", Data: data})
	assert.True(t, ack.Success)
	assert.Equal(t, []string{"m1"}, svc.edited)

	data, _ = json.Marshal(&dto.WSMessageRef{MessageID: "m2"})
	ack = dispatch(t, router, c, &dto.WSFrame{ID: "f11", Event: "message.delete_for_everyone", Data: data})
	assert.True(t, ack.Success)
	assert.Equal(t, []string{"m2"}, svc.deleted)

	data, _ = json.Marshal(&dto.WSPinMessageReq{MessageID: "m3", Pinned: true})
	ack = dispatch(t, router, c, &dto.WSFrame{ID: "f12", Event: "message.pin", Data: data})
	assert.True(t, ack.Success)
	assert.Equal(t, []string{"m3"}, svc.pinned)
}

func TestRouterReactions(t *testing.T) {
	svc := &stubMessageService{}
	router := newTestRouter(svc, ratelimit.NewLimiter(30, time.Minute))
	c := newTestClient(nil, 1, "conn-a")

	data, _ := json.Marshal(&dto.WSReactionReq{MessageID: "m1", Emoji: "👍"})
	ack := dispatch(t, router, c, &dto.WSFrame{ID: "f13", Event: "reaction.add", Data: data})
	assert.True(t, ack.Success)
	assert.Equal(t, []string{"m1"}, svc.reactions)

	ack = dispatch(t, router, c, &dto.WSFrame{ID: "f14", Event: "reaction.remove", Data: data})
	assert.True(t, ack.Success)
	assert.Equal(t, []string{"m1"}, svc.removed)

	// 缺表情的载荷拒绝
	data, _ = json.Marshal(&dto.WSReactionReq{MessageID: "m1"})
	ack = dispatch(t, router, c, &dto.WSFrame{ID: "f15", Event: "reaction.add", Data: data})
	assert.False(t, ack.Success)
}

// 转发按目标会话数占用发送配额
func TestRouterForwardConsumesQuotaPerTarget(t *testing.T) {
	svc := &stubMessageService{}
	router := newTestRouter(svc, ratelimit.NewLimiter(1, time.Minute))
	c := newTestClient(nil, 1, "conn-a")

	data, _ := json.Marshal(&dto.ForwardReq{
		MessageIDs:      []string{"m1"},
		ConversationIDs: []string{"conv1", "conv2"},
	})
	ack := dispatch(t, router, c, &dto.WSFrame{ID: "f16", Event: "message.forward", Data: data})
	assert.False(t, ack.Success)
	assert.Equal(t, service.ErrRateLimited.Error(), ack.Message)
	assert.Empty(t, svc.forwarded)
}

// 连接期间新加入的会话通过 room.join 补订房间
func TestRouterJoinRoom(t *testing.T) {
	hub := NewHub()
	convSvc := &stubConvService{}
	router := NewRouter(&stubMessageService{}, convSvc, &stubCallService{}, ratelimit.NewLimiter(30, time.Minute))
	c := newTestClient(hub, 1, "conn-a")

	data, _ := json.Marshal(&dto.JoinRoomReq{ConversationID: "conv9"})
	ack := dispatch(t, router, c, &dto.WSFrame{ID: "f17", Event: "room.join", Data: data})
	assert.True(t, ack.Success)
	assert.Equal(t, []string{"conv9"}, convSvc.required)

	// 入房后能收到该会话房间的广播
	hub.deliver(service.ConvRoom("conv9"), []byte(`{"event":"message.new"}`))
	payload, ok := recvNonBlocking(c)
	assert.True(t, ok)
	assert.JSONEq(t, `{"event":"message.new"}`, string(payload))
}

func TestRouterJoinRoomRequiresMembership(t *testing.T) {
	hub := NewHub()
	convSvc := &stubConvService{memberErr: service.ErrNotParticipant}
	router := NewRouter(&stubMessageService{}, convSvc, &stubCallService{}, ratelimit.NewLimiter(30, time.Minute))
	c := newTestClient(hub, 2, "conn-b")

	data, _ := json.Marshal(&dto.JoinRoomReq{ConversationID: "conv9"})
	ack := dispatch(t, router, c, &dto.WSFrame{ID: "f18", Event: "room.join", Data: data})
	assert.False(t, ack.Success)
	assert.Equal(t, service.ErrNotParticipant.Error(), ack.Message)

	hub.deliver(service.ConvRoom("conv9"), []byte("payload"))
	_, ok := recvNonBlocking(c)
	assert.False(t, ok)
}

func TestRouterCallSignal(t *testing.T) {
	callSvc := &stubCallService{}
	router := NewRouter(&stubMessageService{}, &stubConvService{}, callSvc, ratelimit.NewLimiter(30, time.Minute))
	c := newTestClient(nil, 1, "conn-a")

	data, _ := json.Marshal(&dto.CallSignalReq{
		CallID:       "call1",
		TargetUserID: 2,
		Signal:       "offer",
		Payload:      json.RawMessage(`{"sdp":"x"}`),
	})
	ack := dispatch(t, router, c, &dto.WSFrame{ID: "f19", Event: "call.signal", Data: data})
	assert.True(t, ack.Success)
	assert.Len(t, callSvc.signals, 1)
	assert.Equal(t, uint64(2), callSvc.signals[0].TargetUserID)
}

func TestRouterRejectsMalformedFrames(t *testing.T) {
	router := newTestRouter(&stubMessageService{}, ratelimit.NewLimiter(30, time.Minute))
	c := newTestClient(nil, 1, "conn-a")

	router.Dispatch(c, []byte("{not json"))
	payload, ok := recvNonBlocking(c)
	assert.True(t, ok)
	ack := &dto.WSAck{}
	assert.NoError(t, json.Unmarshal(payload, ack))
	assert.False(t, ack.Success)

	// 未知事件
	ack = dispatch(t, router, c, &dto.WSFrame{ID: "f20", Event: "no.such.event"})
	assert.False(t, ack.Success)

	// 缺失载荷
	ack = dispatch(t, router, c, &dto.WSFrame{ID: "f21", Event: "message.send"})
	assert.False(t, ack.Success)
}
