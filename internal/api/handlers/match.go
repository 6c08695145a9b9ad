package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Sahiiil1406/cpify/internal/service"
)

// MatchHandler 매치 조회 API (읽기 전용)
type MatchHandler struct {
	matchService *service.MatchService
	queueService *service.QueueService
}

// NewMatchHandler MatchHandler 생성
func NewMatchHandler(matchService *service.MatchService, queueService *service.QueueService) *MatchHandler {
	return &MatchHandler{
		matchService: matchService,
		queueService: queueService,
	}
}

// ListMatches 진행 중인 매치 목록
func (h *MatchHandler) ListMatches(c *gin.Context) {
	matches := h.matchService.ListActive()

	c.JSON(http.StatusOK, gin.H{
		"matches": matches,
		"count":   len(matches),
	})
}

// GetMatch 매치 단건 조회
func (h *MatchHandler) GetMatch(c *gin.Context) {
	match, ok := h.matchService.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Match not found"})
		return
	}

	c.JSON(http.StatusOK, match)
}

// GetQueue 매칭 대기열 조회
func (h *MatchHandler) GetQueue(c *gin.Context) {
	waiting := h.queueService.Waiting()

	c.JSON(http.StatusOK, gin.H{
		"waiting": waiting,
		"count":   len(waiting),
	})
}
