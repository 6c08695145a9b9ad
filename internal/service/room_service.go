package service

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"

	"github.com/Sahiiil1406/cpify/internal/models"
)

// roomCodeBytes 방 코드 길이 (3바이트 -> 16진수 6글자)
const roomCodeBytes = 3

// RoomService 초대 코드 기반 비공개 방 관리. 방은 1회용: 게스트가
// 들어오는 즉시 매치를 만들고 방은 삭제된다. 게스트 없이 TTL을 넘긴
// 방은 주기적 스캔으로 정리
type RoomService struct {
	matchService *MatchService
	queueService *QueueService
	sender       Sender
	logger       *zap.Logger
	ttl          time.Duration

	mu    sync.Mutex
	rooms map[string]*models.Room

	scheduler gocron.Scheduler
}

// NewRoomService RoomService 생성
func NewRoomService(matchService *MatchService, queueService *QueueService, sender Sender, ttl time.Duration, logger *zap.Logger) *RoomService {
	return &RoomService{
		matchService: matchService,
		queueService: queueService,
		sender:       sender,
		logger:       logger,
		ttl:          ttl,
		rooms:        make(map[string]*models.Room),
	}
}

// StartSweeper 만료 방 청소 작업 시작
func (s *RoomService) StartSweeper(interval time.Duration) error {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	if _, err := scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(s.sweepExpired),
	); err != nil {
		return fmt.Errorf("failed to register sweep job: %w", err)
	}

	scheduler.Start()
	s.scheduler = scheduler

	s.logger.Info("Room sweeper started",
		zap.Duration("interval", interval),
		zap.Duration("ttl", s.ttl))
	return nil
}

// StopSweeper 청소 작업 중지
func (s *RoomService) StopSweeper() {
	if s.scheduler != nil {
		if err := s.scheduler.Shutdown(); err != nil {
			s.logger.Warn("Failed to shut down room sweeper", zap.Error(err))
		}
	}
}

// CreateRoom 방 생성. 코드는 대문자 16진수 6글자이며, 만료 전인 방과
// 충돌하면 다시 뽑는다. 대기열에 있던 호스트는 대기열에서 빠진다
func (s *RoomService) CreateRoom(host string) (string, error) {
	if host == "" {
		return "", ErrInvalidInput
	}
	if s.matchService.InMatch(host) {
		return "", ErrAlreadyInMatch
	}

	s.queueService.Remove(host)

	s.mu.Lock()
	var code string
	for {
		code = generateRoomCode()
		if _, taken := s.rooms[code]; !taken {
			break
		}
	}

	s.rooms[code] = &models.Room{
		Code:      code,
		Host:      host,
		CreatedAt: time.Now(),
	}
	s.mu.Unlock()

	s.logger.Info("Room created",
		zap.String("roomCode", code),
		zap.String("host", host))
	return code, nil
}

// JoinRoom 방 참가. 코드 비교는 대소문자 구분 없음. 성공하면 호스트와
// 게스트로 매치를 만들고 방을 삭제한다 (1회용)
func (s *RoomService) JoinRoom(guest, code string) error {
	if guest == "" || code == "" {
		return ErrInvalidInput
	}
	if s.matchService.InMatch(guest) {
		return ErrAlreadyInMatch
	}

	code = strings.ToUpper(code)

	s.mu.Lock()
	room, ok := s.rooms[code]
	if !ok {
		s.mu.Unlock()
		return ErrRoomNotFound
	}
	if room.Host == guest {
		s.mu.Unlock()
		return ErrSelfJoin
	}
	if room.Guest != "" {
		// 방은 1회용이라 첫 참가에서 바로 삭제되므로 보통은 위의
		// RoomNotFound에 먼저 걸린다
		s.mu.Unlock()
		return ErrRoomFull
	}

	// 방을 열어둔 채 일반 매칭으로 이미 매치에 들어간 호스트는 더 이상
	// 이 방으로 매칭될 수 없다 (사용자당 진행 매치는 최대 하나).
	// 죽은 방이므로 삭제하고 참가는 실패시킨다
	if s.matchService.InMatch(room.Host) {
		delete(s.rooms, code)
		s.mu.Unlock()

		s.logger.Info("Room discarded, host already in a match",
			zap.String("roomCode", code),
			zap.String("host", room.Host))
		return ErrRoomNotFound
	}

	room.Guest = guest
	delete(s.rooms, code)
	host := room.Host
	s.mu.Unlock()

	s.queueService.Remove(guest)

	s.logger.Info("Room joined",
		zap.String("roomCode", code),
		zap.String("host", host),
		zap.String("guest", guest))

	// match_found보다 room_joined가 먼저 도착해야 함
	s.sender.SendToUser(guest, models.FrameRoomJoined, models.RoomJoinedPayload{RoomCode: code})

	s.matchService.CreateMatch(host, guest)
	return nil
}

// Rooms 현재 방 수 (읽기 전용)
func (s *RoomService) Rooms() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rooms)
}

// sweepExpired 게스트 없이 TTL을 넘긴 방 삭제. 방마다 타이머를 두는
// 대신 주기적 스캔으로 최악의 체류 시간만 보장한다
func (s *RoomService) sweepExpired() {
	now := time.Now()

	s.mu.Lock()
	var expired []string
	for code, room := range s.rooms {
		if room.Guest == "" && now.Sub(room.CreatedAt) > s.ttl {
			delete(s.rooms, code)
			expired = append(expired, code)
		}
	}
	s.mu.Unlock()

	for _, code := range expired {
		s.logger.Info("Room expired", zap.String("roomCode", code))
	}
}

// generateRoomCode 추측이 어려운 짧은 코드 생성
func generateRoomCode() string {
	buf := make([]byte, roomCodeBytes)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand 실패는 비정상 환경뿐
		panic(err)
	}
	return strings.ToUpper(hex.EncodeToString(buf))
}
