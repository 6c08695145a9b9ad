package handlers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Sahiiil1406/cpify/internal/websocket"
)

// WebSocketHandler WebSocket 연결 처리
type WebSocketHandler struct {
	hub     *websocket.Hub
	handler websocket.FrameHandler
	logger  *zap.Logger
}

// NewWebSocketHandler WebSocketHandler 생성
func NewWebSocketHandler(hub *websocket.Hub, frameHandler websocket.FrameHandler, logger *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:     hub,
		handler: frameHandler,
		logger:  logger,
	}
}

// HandleWebSocket WebSocket 연결 엔드포인트. 연결은 익명으로 시작하고
// register 프레임이 username을 바인딩한다
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	websocket.ServeWs(h.hub, h.handler, h.logger, c.Writer, c.Request)
}
