package service

import (
	"Harbor/internal/api/dto"
	"Harbor/internal/pkg/consts"
	"Harbor/internal/pkg/redis"
	"context"
	log "log/slog"
	"strconv"

	"github.com/goccy/go-json"
)

// ConvRoom 会话房间名，所有参与者的在线连接都会订阅
func ConvRoom(convID string) string {
	return consts.RoomKeyPrefix + "conv:" + convID
}

// UserRoom 用户私有房间名，跨会话的定向推送走这里
func UserRoom(userID uint64) string {
	return consts.RoomKeyPrefix + "user:" + strconv.FormatUint(userID, 10)
}

// RoomBroadcaster 把下行事件广播到房间内的所有在线连接
// 经 Redis 发布，多实例部署时由各实例的 Hub 本地分发
type RoomBroadcaster interface {
	Broadcast(ctx context.Context, room string, event string, data interface{})
}

type redisBroadcaster struct{}

func NewRoomBroadcaster() RoomBroadcaster {
	return &redisBroadcaster{}
}

func (s *redisBroadcaster) Broadcast(ctx context.Context, room string, event string, data interface{}) {
	payload, err := json.Marshal(&dto.WSEvent{Event: event, Data: data})
	if err != nil {
		log.Error("broadcast marshal failed", "room", room, "event", event, "err", err)
		return
	}
	if err := redis.Publish(ctx, room, payload); err != nil {
		log.Error("broadcast publish failed", "room", room, "event", event, "err", err)
	}
}
