package service

import (
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"github.com/Sahiiil1406/cpify/internal/models"
	"github.com/Sahiiil1406/cpify/internal/websocket"
)

// Dispatcher 수신 프레임을 type 필드로 판별해 각 서비스로 라우팅.
// websocket.FrameHandler 구현체. 잘못된 프레임은 기록하고 버릴 뿐
// 연결은 끊지 않는다
type Dispatcher struct {
	hub          *websocket.Hub
	queueService *QueueService
	roomService  *RoomService
	matchService *MatchService
	logger       *zap.Logger
}

// NewDispatcher Dispatcher 생성
func NewDispatcher(
	hub *websocket.Hub,
	queueService *QueueService,
	roomService *RoomService,
	matchService *MatchService,
	logger *zap.Logger,
) *Dispatcher {
	return &Dispatcher{
		hub:          hub,
		queueService: queueService,
		roomService:  roomService,
		matchService: matchService,
		logger:       logger,
	}
}

// HandleFrame 수신 프레임 처리
func (d *Dispatcher) HandleFrame(client *websocket.Client, data []byte) {
	var frame models.ClientFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		d.logger.Warn("Dropping malformed frame", zap.Error(err))
		return
	}

	switch frame.Type {
	case models.FrameRegister:
		d.handleRegister(client, &frame)
	case models.FrameFindMatch:
		d.queueService.Enqueue(frame.Username)
	case models.FrameCreateRoom:
		d.handleCreateRoom(&frame)
	case models.FrameJoinRoom:
		d.handleJoinRoom(&frame)
	case models.FrameSubmission:
		// 클라이언트 자가 보고용 예약 타입. 제출의 원천은 외부 피드 폴링
	default:
		d.logger.Warn("Dropping frame with unknown type",
			zap.String("frameType", frame.Type))
	}
}

// HandleDisconnect 연결 종료 처리. 대기열 제거는 hub의 disconnect
// 후크에서 이어서 수행된다
func (d *Dispatcher) HandleDisconnect(client *websocket.Client) {
	d.hub.Unregister(client)
}

// handleRegister username과 연결 바인딩. 진행 중인 매치가 있으면
// match_start를 즉시 재전송한다 (공지를 놓친 재접속 커버)
func (d *Dispatcher) handleRegister(client *websocket.Client, frame *models.ClientFrame) {
	if frame.Username == "" {
		d.logger.Warn("Dropping register frame without username")
		return
	}

	d.hub.Register(frame.Username, client)
	d.matchService.ResendPending(frame.Username)
}

func (d *Dispatcher) handleCreateRoom(frame *models.ClientFrame) {
	// username이 없으면 에러를 돌려줄 대상도 없으므로 그냥 버림
	if frame.Username == "" {
		d.logger.Warn("Dropping create_room frame without username")
		return
	}

	code, err := d.roomService.CreateRoom(frame.Username)
	if err != nil {
		d.sendError(frame.Username, err)
		return
	}

	d.hub.SendToUser(frame.Username, models.FrameRoomCreated, models.RoomCreatedPayload{
		RoomCode: code,
	})
}

func (d *Dispatcher) handleJoinRoom(frame *models.ClientFrame) {
	if frame.Username == "" {
		d.logger.Warn("Dropping join_room frame without username")
		return
	}

	// 성공 시 room_joined는 RoomService가 매치 생성 직전에 보냄
	if err := d.roomService.JoinRoom(frame.Username, frame.RoomCode); err != nil {
		d.sendError(frame.Username, err)
	}
}

// sendError 서비스 에러를 error 프레임으로 변환해 요청자에게 전달
func (d *Dispatcher) sendError(username string, err error) {
	d.hub.SendToUser(username, models.FrameError, models.ErrorPayload{
		Message: errorMessage(err),
	})
}

// errorMessage 클라이언트에 보여줄 메시지
func errorMessage(err error) string {
	switch {
	case errors.Is(err, ErrRoomNotFound):
		return "Room not found"
	case errors.Is(err, ErrSelfJoin):
		return "You cannot join your own room"
	case errors.Is(err, ErrRoomFull):
		return "Room is full"
	case errors.Is(err, ErrAlreadyInMatch):
		return "You are already in an active match"
	case errors.Is(err, ErrInvalidInput):
		return "Invalid request"
	default:
		return "Something went wrong"
	}
}
