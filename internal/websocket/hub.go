package websocket

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// Hub WebSocket 연결 관리 (username -> *Client)
type Hub struct {
	clients map[string]*Client
	mu      sync.RWMutex

	// 송신 채널
	broadcast chan *Message

	// 등록/해제 채널
	register   chan *registration
	unregister chan *Client

	// 연결 종료 시 호출 (매칭 큐 제거 등 부수 효과)
	onDisconnect func(username string)

	logger *zap.Logger
}

// registration 등록 요청 (username과 연결 바인딩)
type registration struct {
	username string
	client   *Client
}

// Message 송신 프레임 (UserID가 수신 대상)
type Message struct {
	UserID  string
	Type    string
	Payload interface{}
}

// MarshalJSON 프레임 직렬화: payload 필드를 type과 같은 레벨로 펼침
// (클라이언트 프로토콜은 중첩 없는 평탄한 프레임을 사용)
func (m *Message) MarshalJSON() ([]byte, error) {
	frame := map[string]interface{}{}

	if m.Payload != nil {
		raw, err := json.Marshal(m.Payload)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &frame); err != nil {
			return nil, err
		}
	}

	frame["type"] = m.Type
	return json.Marshal(frame)
}

// NewHub Hub 생성
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		broadcast:  make(chan *Message, 256),
		register:   make(chan *registration),
		unregister: make(chan *Client),
		logger:     logger,
	}
}

// SetDisconnectHook 연결 종료 후크 등록 (Run 시작 전에 호출해야 함)
func (h *Hub) SetDisconnectHook(hook func(username string)) {
	h.onDisconnect = hook
}

// Run Hub 실행
func (h *Hub) Run() {
	for {
		select {
		case reg := <-h.register:
			h.registerClient(reg)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.deliverMessage(message)
		}
	}
}

// Register username과 연결을 바인딩. 기존 연결이 있으면 새 연결로 교체
// (재접속 시 별도 로그아웃 없이 마지막 등록이 이김)
func (h *Hub) Register(username string, client *Client) {
	h.register <- &registration{username: username, client: client}
}

// Unregister 연결 해제
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// registerClient 클라이언트 등록
func (h *Hub) registerClient(reg *registration) {
	h.mu.Lock()

	// 같은 username의 기존 연결이 있으면 교체
	if oldClient, exists := h.clients[reg.username]; exists && oldClient != reg.client {
		oldClient.closeSend()
		h.logger.Info("Replaced existing connection",
			zap.String("username", reg.username))
	}

	reg.client.setUsername(reg.username)
	h.clients[reg.username] = reg.client
	total := len(h.clients)
	h.mu.Unlock()

	h.logger.Info("Client registered",
		zap.String("username", reg.username),
		zap.Int("totalClients", total))
}

// unregisterClient 클라이언트 해제 (교체된 이전 연결이 뒤늦게 닫혀도
// 현재 연결은 건드리지 않도록 포인터를 비교)
func (h *Hub) unregisterClient(client *Client) {
	username := client.Username()
	if username == "" {
		// register 프레임 없이 끊긴 연결
		return
	}

	h.mu.Lock()
	current, exists := h.clients[username]
	if exists && current == client {
		delete(h.clients, username)
		client.closeSend()
		exists = true
	} else {
		exists = false
	}
	total := len(h.clients)
	h.mu.Unlock()

	if exists {
		h.logger.Info("Client unregistered",
			zap.String("username", username),
			zap.Int("totalClients", total))

		if h.onDisconnect != nil {
			h.onDisconnect(username)
		}
	}
}

// deliverMessage 메시지 전달
func (h *Hub) deliverMessage(message *Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	// 이 프로토콜에 브로드캐스트는 없음: 대상 없는 프레임은 전체에게
	// 퍼뜨리지 않고 버린다
	if message.UserID == "" {
		h.logger.Warn("Dropping frame without target user",
			zap.String("frameType", message.Type))
		return
	}

	// 대상이 연결되어 있지 않으면 조용히 버림 (연결 끊김은 정상 상황)
	if client, exists := h.clients[message.UserID]; exists {
		client.trySend(message)
	}
}

// SendToUser 특정 사용자에게 프레임 전송 (best-effort)
func (h *Hub) SendToUser(username string, msgType string, payload interface{}) {
	h.broadcast <- &Message{
		UserID:  username,
		Type:    msgType,
		Payload: payload,
	}
}

// IsConnected 사용자의 연결 여부 확인
func (h *Hub) IsConnected(username string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	_, exists := h.clients[username]
	return exists
}
