package api

import (
	"github.com/gin-gonic/gin"

	"github.com/Sahiiil1406/cpify/internal/api/handlers"
	"github.com/Sahiiil1406/cpify/internal/api/middleware"
	"github.com/Sahiiil1406/cpify/internal/config"
	"github.com/Sahiiil1406/cpify/internal/service"
	"github.com/Sahiiil1406/cpify/internal/websocket"
	"github.com/Sahiiil1406/cpify/pkg/codeforces"
	"github.com/Sahiiil1406/cpify/pkg/logger"
)

// Server 조립된 서버 구성 요소 (종료 시 정리를 위해 노출)
type Server struct {
	Router      *gin.Engine
	Hub         *websocket.Hub
	RoomService *service.RoomService
	Monitor     *service.MatchMonitor
}

// SetupServer 서비스 조립 및 라우터 설정
func SetupServer(cfg *config.Config) (*Server, error) {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// 전역 미들웨어
	router.Use(gin.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.CORS(cfg.CORSAllowedOrigins))

	// WebSocket Hub 초기화
	hub := websocket.NewHub(logger.Named("hub"))

	// Codeforces 피드 클라이언트 초기화
	cfClient := codeforces.NewClient(cfg.CodeforcesAPIURL, cfg.FetchCount)

	// Service 초기화
	matchService := service.NewMatchService(hub, cfg.AnnounceDelay, cfg.MatchRetention, logger.Named("match"))
	queueService := service.NewQueueService(matchService, logger.Named("queue"))
	roomService := service.NewRoomService(matchService, queueService, hub, cfg.RoomTTL, logger.Named("room"))
	monitor := service.NewMatchMonitor(matchService, cfClient, hub, cfg.PollInterval, logger.Named("monitor"))

	// Active 전이 시 폴링 시작
	matchService.SetActivateHook(monitor.Watch)

	// 연결이 끊긴 사용자는 대기열에서 제거
	hub.SetDisconnectHook(queueService.Remove)
	go hub.Run()

	// 만료 방 청소 시작
	if err := roomService.StartSweeper(cfg.RoomSweepInterval); err != nil {
		return nil, err
	}

	dispatcher := service.NewDispatcher(hub, queueService, roomService, matchService, logger.Named("dispatcher"))

	// Handler 초기화
	wsHandler := handlers.NewWebSocketHandler(hub, dispatcher, logger.Named("websocket"))
	matchHandler := handlers.NewMatchHandler(matchService, queueService)

	// Health check
	router.GET("/health", handlers.HealthCheck)

	// API v1
	v1 := router.Group("/api/v1")
	v1.Use(middleware.GeneralAPIRateLimit())
	{
		// WebSocket endpoint
		v1.GET("/ws", middleware.WebSocketRateLimit(), wsHandler.HandleWebSocket)

		// 읽기 전용 조회
		v1.GET("/matches", matchHandler.ListMatches)
		v1.GET("/matches/:id", matchHandler.GetMatch)
		v1.GET("/queue", matchHandler.GetQueue)
	}

	return &Server{
		Router:      router,
		Hub:         hub,
		RoomService: roomService,
		Monitor:     monitor,
	}, nil
}
