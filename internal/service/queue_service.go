package service

import (
	"sync"

	"go.uber.org/zap"
)

// QueueService 랜덤 매칭 대기열. 도착 순서가 곧 매칭 우선순위 (FIFO)
type QueueService struct {
	matchService *MatchService
	logger       *zap.Logger

	mu      sync.Mutex
	waiting []string
}

// NewQueueService QueueService 생성
func NewQueueService(matchService *MatchService, logger *zap.Logger) *QueueService {
	return &QueueService{
		matchService: matchService,
		logger:       logger,
	}
}

// Enqueue 대기열 등록. 이미 대기 중이거나 진행 중인 매치가 있으면 무시.
// 등록 후 대기 인원이 2명 이상이면 가장 오래 기다린 둘을 바로 매칭
func (s *QueueService) Enqueue(username string) {
	if username == "" {
		return
	}

	if s.matchService.InMatch(username) {
		s.logger.Debug("User already in a match, ignoring find_match",
			zap.String("username", username))
		return
	}

	var p1, p2 string

	s.mu.Lock()
	for _, w := range s.waiting {
		if w == username {
			s.mu.Unlock()
			return
		}
	}

	s.waiting = append(s.waiting, username)
	s.logger.Info("User joined matchmaking queue",
		zap.String("username", username),
		zap.Int("waiting", len(s.waiting)))

	if len(s.waiting) >= 2 {
		p1, p2 = s.waiting[0], s.waiting[1]
		s.waiting = s.waiting[2:]
	}
	s.mu.Unlock()

	if p1 != "" {
		s.matchService.CreateMatch(p1, p2)
	}
}

// Remove 대기열에서 제거 (없으면 무시). 연결 종료 시 호출됨
func (s *QueueService) Remove(username string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, w := range s.waiting {
		if w == username {
			s.waiting = append(s.waiting[:i], s.waiting[i+1:]...)
			s.logger.Info("User removed from matchmaking queue",
				zap.String("username", username))
			return
		}
	}
}

// Waiting 현재 대기 중인 사용자 스냅샷
func (s *QueueService) Waiting() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := make([]string, len(s.waiting))
	copy(snapshot, s.waiting)
	return snapshot
}
