package ws

import (
	"Harbor/internal/pkg/consts"
	"Harbor/internal/pkg/redis"
	"context"
	log "log/slog"
	"sync"
)

// Hub 维护本实例的房间成员表，并把 Redis 总线上的事件分发给本地连接
// 多实例部署时每个实例各自订阅，广播经 Redis 扇出
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[*Client]struct{})}
}

// Run 订阅整个房间命名空间并循环分发，随 ctx 退出
func (s *Hub) Run(ctx context.Context) {
	pubsub := redis.PSubscribe(ctx, consts.RoomPattern)
	defer func() {
		_ = pubsub.Close()
	}()

	ch := pubsub.Channel()
	log.Info("WS Hub 已启动", "pattern", consts.RoomPattern)

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				log.Warn("WS Hub 订阅通道已关闭")
				return
			}
			s.deliver(msg.Channel, []byte(msg.Payload))
		case <-ctx.Done():
			return
		}
	}
}

func (s *Hub) Join(room string, c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.rooms[room]
	if !ok {
		set = make(map[*Client]struct{})
		s.rooms[room] = set
	}
	set[c] = struct{}{}
}

func (s *Hub) Leave(room string, c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(room, c)
}

// LeaveAll 连接断开时清理该连接的全部房间
func (s *Hub) LeaveAll(c *Client) {
	rooms := c.roomSnapshot()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, room := range rooms {
		s.removeLocked(room, c)
	}
}

func (s *Hub) removeLocked(room string, c *Client) {
	set, ok := s.rooms[room]
	if !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(s.rooms, room)
	}
}

// deliver 把事件塞给房间内的每个本地连接
// 发送缓冲已满说明消费端跟不上，直接踢掉该连接
func (s *Hub) deliver(room string, payload []byte) {
	s.mu.RLock()
	clients := make([]*Client, 0, len(s.rooms[room]))
	for c := range s.rooms[room] {
		clients = append(clients, c)
	}
	s.mu.RUnlock()

	for _, c := range clients {
		select {
		case c.send <- payload:
		default:
			log.Warn("WS 慢消费者，断开连接", "userID", c.userID, "connID", c.connID)
			c.closeSlow()
		}
	}
}
