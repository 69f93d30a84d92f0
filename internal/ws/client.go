package ws

import (
	log "log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	maxFrameSize  = 64 << 10
	sendQueueSize = 256
)

// Client 单个 WebSocket 连接
// 上行帧在读循环里串行处理，下行经带缓冲的发送队列由写循环刷出
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	router *Router

	userID uint64
	connID string

	send chan []byte

	roomsMu sync.Mutex
	rooms   map[string]struct{}

	closeOnce sync.Once
}

func NewClient(hub *Hub, conn *websocket.Conn, router *Router, userID uint64, connID string) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		router: router,
		userID: userID,
		connID: connID,
		send:   make(chan []byte, sendQueueSize),
		rooms:  make(map[string]struct{}),
	}
}

// JoinRoom 加入房间并记录，断开时统一退出
// 连接建立后也可通过 room.join 事件动态加入，与断开清理并发安全
func (c *Client) JoinRoom(room string) {
	c.roomsMu.Lock()
	c.rooms[room] = struct{}{}
	c.roomsMu.Unlock()
	c.hub.Join(room, c)
}

// roomSnapshot 断开清理时使用的房间列表副本
func (c *Client) roomSnapshot() []string {
	c.roomsMu.Lock()
	defer c.roomsMu.Unlock()
	rooms := make([]string, 0, len(c.rooms))
	for room := range c.rooms {
		rooms = append(rooms, room)
	}
	return rooms
}

// ReadPump 串行消费上行帧，同一连接的请求天然有序
func (c *Client) ReadPump() {
	defer c.closeSlow()

	c.conn.SetReadLimit(maxFrameSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("WS 异常断开", "userID", c.userID, "err", err)
			}
			return
		}
		c.router.Dispatch(c, raw)
	}
}

// WritePump 刷出下行队列并维持心跳
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.closeSlow()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Send 下行入队，队列满返回 false
func (c *Client) Send(payload []byte) bool {
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

func (c *Client) closeSlow() {
	c.closeOnce.Do(func() {
		_ = c.conn.Close()
	})
}
