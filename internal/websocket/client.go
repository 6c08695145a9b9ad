package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: 프로덕션에서는 특정 origin만 허용
		return true
	},
}

// FrameHandler 수신 프레임 처리기 (dispatcher가 구현)
type FrameHandler interface {
	HandleFrame(client *Client, data []byte)
	HandleDisconnect(client *Client)
}

// Client WebSocket 클라이언트. register 프레임이 오기 전까지는
// username이 비어 있는 익명 연결
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan *Message
	handler FrameHandler
	logger  *zap.Logger

	mu       sync.Mutex
	username string
	closed   bool
}

// NewClient 클라이언트 생성
func NewClient(hub *Hub, conn *websocket.Conn, handler FrameHandler, logger *zap.Logger) *Client {
	return &Client{
		hub:     hub,
		conn:    conn,
		send:    make(chan *Message, 256),
		handler: handler,
		logger:  logger,
	}
}

// Username 바인딩된 사용자명 (미등록 연결이면 빈 문자열)
func (c *Client) Username() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.username
}

func (c *Client) setUsername(username string) {
	c.mu.Lock()
	c.username = username
	c.mu.Unlock()
}

// closeSend 송신 채널 닫기 (중복 호출 안전)
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// trySend 송신 채널에 넣기. 채널이 가득 찼거나 닫혔으면 버림
func (c *Client) trySend(message *Message) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	select {
	case c.send <- message:
	default:
		c.logger.Warn("Client send channel full, dropping frame",
			zap.String("username", c.username),
			zap.String("frameType", message.Type))
	}
}

// readPump 클라이언트로부터 프레임 읽기 (핑/퐁 유지)
func (c *Client) readPump() {
	defer func() {
		c.handler.HandleDisconnect(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket read error",
					zap.String("username", c.Username()),
					zap.Error(err))
			}
			break
		}

		c.handler.HandleFrame(c, data)
	}
}

// writePump Hub로부터 프레임을 받아 클라이언트에게 전송
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub가 채널을 닫음
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			data, err := json.Marshal(message)
			if err != nil {
				c.logger.Error("Failed to marshal frame",
					zap.String("username", c.Username()),
					zap.Error(err))
				continue
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Error("Failed to write frame",
					zap.String("username", c.Username()),
					zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeWs WebSocket 연결 업그레이드 및 클라이언트 시작
func ServeWs(hub *Hub, handler FrameHandler, logger *zap.Logger, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("Failed to upgrade WebSocket connection", zap.Error(err))
		return
	}

	client := NewClient(hub, conn, handler, logger)

	go client.writePump()
	go client.readPump()
}
