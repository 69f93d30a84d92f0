package service

import (
	"Harbor/internal/api/dto"
	"Harbor/internal/pkg/consts"
	"Harbor/internal/pkg/mongo"
	"Harbor/internal/pkg/redis"
	"context"
	log "log/slog"
	"strconv"
	"sync"
	"time"
)

// PresenceService 在线状态管理
// 同一用户允许多个连接，首个连接上线、最后一个连接下线时才对外广播
type PresenceService interface {
	Connected(ctx context.Context, userID uint64, connID string)
	Disconnected(ctx context.Context, userID uint64, connID string)
	IsOnline(userID uint64) bool
	AnyOnline(userIDs []uint64) bool
	OfflineOf(userIDs []uint64) []uint64
	OnlineUsers() []uint64
	LastSeen(ctx context.Context, userID uint64) (*time.Time, error)
}

type presenceServiceImpl struct {
	mu          sync.RWMutex
	conns       map[uint64]map[string]struct{}
	convRepo    mongo.ConversationRepo
	broadcaster RoomBroadcaster
}

func NewPresenceService(convRepo mongo.ConversationRepo, broadcaster RoomBroadcaster) PresenceService {
	return &presenceServiceImpl{
		conns:       make(map[uint64]map[string]struct{}),
		convRepo:    convRepo,
		broadcaster: broadcaster,
	}
}

func (s *presenceServiceImpl) Connected(ctx context.Context, userID uint64, connID string) {
	s.mu.Lock()
	set, ok := s.conns[userID]
	if !ok {
		set = make(map[string]struct{})
		s.conns[userID] = set
	}
	set[connID] = struct{}{}
	first := len(set) == 1
	s.mu.Unlock()

	if first {
		s.announce(ctx, userID, &dto.PresenceEvent{UserID: userID, Online: true})
	}
}

func (s *presenceServiceImpl) Disconnected(ctx context.Context, userID uint64, connID string) {
	s.mu.Lock()
	set, ok := s.conns[userID]
	if ok {
		delete(set, connID)
		if len(set) == 0 {
			delete(s.conns, userID)
		}
	}
	last := ok && len(set) == 0
	s.mu.Unlock()

	if !last {
		return
	}

	now := time.Now()
	key := consts.UserLastSeenKey + strconv.FormatUint(userID, 10)
	if err := redis.SetWithExpiration(ctx, key, now.Format(time.RFC3339), 0); err != nil {
		log.Error("record last seen failed", "userID", userID, "err", err)
	}

	s.announce(ctx, userID, &dto.PresenceEvent{UserID: userID, Online: false, LastSeen: &now})
}

func (s *presenceServiceImpl) IsOnline(userID uint64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conns[userID]) > 0
}

// AnyOnline 收件人中是否有人在线，决定是否触发离线推送
func (s *presenceServiceImpl) AnyOnline(userIDs []uint64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range userIDs {
		if len(s.conns[id]) > 0 {
			return true
		}
	}
	return false
}

// OfflineOf 过滤出当前不在线的用户
func (s *presenceServiceImpl) OfflineOf(userIDs []uint64) []uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var offline []uint64
	for _, id := range userIDs {
		if len(s.conns[id]) == 0 {
			offline = append(offline, id)
		}
	}
	return offline
}

// OnlineUsers 当前全部在线用户，新连接建立时推送快照用
func (s *presenceServiceImpl) OnlineUsers() []uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	online := make([]uint64, 0, len(s.conns))
	for id := range s.conns {
		online = append(online, id)
	}
	return online
}

func (s *presenceServiceImpl) LastSeen(ctx context.Context, userID uint64) (*time.Time, error) {
	key := consts.UserLastSeenKey + strconv.FormatUint(userID, 10)
	val, err := redis.GetValue(ctx, key)
	if err != nil {
		return nil, err
	}
	if val == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil, nil
	}
	return &t, nil
}

// announce 向用户所在的全部会话房间广播状态变更
func (s *presenceServiceImpl) announce(ctx context.Context, userID uint64, event *dto.PresenceEvent) {
	convIDs, err := s.convRepo.IDsForUser(ctx, userID)
	if err != nil {
		log.Error("list conversations for presence failed", "userID", userID, "err", err)
		return
	}
	for _, convID := range convIDs {
		s.broadcaster.Broadcast(ctx, ConvRoom(convID.Hex()), consts.EventPresence, event)
	}
}
