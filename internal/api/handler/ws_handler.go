package handler

import (
	"Harbor/internal/api/dto"
	"Harbor/internal/pkg/consts"
	"Harbor/internal/pkg/mongo"
	"Harbor/internal/pkg/redis"
	"Harbor/internal/pkg/response"
	"Harbor/internal/pkg/security"
	"Harbor/internal/service"
	"Harbor/internal/ws"
	"context"
	log "log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type WsHandler struct {
	hub      *ws.Hub
	router   *ws.Router
	convRepo mongo.ConversationRepo
	presence service.PresenceService
}

func NewWsHandler(hub *ws.Hub, router *ws.Router, convRepo mongo.ConversationRepo, presence service.PresenceService) *WsHandler {
	return &WsHandler{
		hub:      hub,
		router:   router,
		convRepo: convRepo,
		presence: presence,
	}
}

func (s *WsHandler) Connect(c *gin.Context) {
	// 鉴权，浏览器 WebSocket 不带 Header，令牌走 query
	token := c.Query("token")
	if token == "" {
		response.Error(c, service.UnauthorizedError)
		return
	}
	sig, err := security.ExtractSignature(token)
	if err != nil {
		response.Error(c, service.UnauthorizedError)
		return
	}
	if revoked, _ := redis.GetValue(c.Request.Context(), consts.TokenRevokePrefix+sig); revoked != "" {
		response.Error(c, service.UnauthorizedError)
		return
	}
	claims, err := security.ValidateToken(token)
	if err != nil {
		log.Warn("WS 鉴权失败", "err", err)
		response.Error(c, service.UnauthorizedError)
		return
	}
	userID := claims.UserID

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WS 协议升级失败", "err", err)
		return
	}

	ctx := context.Background()
	connID := uuid.NewString()
	client := ws.NewClient(s.hub, conn, s.router, userID, connID)

	// 私有房间 + 所有参与会话的房间
	client.JoinRoom(service.UserRoom(userID))
	convIDs, err := s.convRepo.IDsForUser(ctx, userID)
	if err != nil {
		log.Error("获取会话列表失败", "userID", userID, "err", err)
	}
	for _, id := range convIDs {
		client.JoinRoom(service.ConvRoom(id.Hex()))
	}

	s.presence.Connected(ctx, userID, connID)
	log.Info("用户 WS 连接已建立", "userID", userID, "connID", connID, "rooms", len(convIDs)+1)

	// 新连接先收到一份全量在线列表，之后靠增量 presence 事件维护
	s.pushPresenceSnapshot(client, userID)

	go client.WritePump()
	client.ReadPump()

	s.hub.LeaveAll(client)
	s.router.Release(connID)
	s.presence.Disconnected(ctx, userID, connID)
	log.Info("用户 WS 连接已断开", "userID", userID, "connID", connID)
}

func (s *WsHandler) pushPresenceSnapshot(client *ws.Client, userID uint64) {
	payload, err := json.Marshal(&dto.WSEvent{
		Event: consts.EventPresenceSnapshot,
		Data:  &dto.PresenceSnapshotEvent{UserIDs: s.presence.OnlineUsers()},
	})
	if err != nil {
		log.Error("marshal presence snapshot failed", "err", err)
		return
	}
	if !client.Send(payload) {
		log.Warn("在线快照下发失败，发送队列已满", "userID", userID)
	}
}
