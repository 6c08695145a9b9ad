package service

import (
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Sahiiil1406/cpify/internal/models"
)

// Sender 클라이언트로 프레임 전송 (websocket.Hub가 구현).
// 전송은 best-effort: 대상이 연결되어 있지 않으면 조용히 버려짐
type Sender interface {
	SendToUser(username string, msgType string, payload interface{})
	IsConnected(username string) bool
}

// defaultProblemPool 기본 문제 풀
var defaultProblemPool = []models.Problem{
	{ContestID: 1000, Index: "A", Rating: 800},
	{ContestID: 1100, Index: "A", Rating: 800},
	{ContestID: 1200, Index: "B", Rating: 1000},
	{ContestID: 1300, Index: "B", Rating: 1000},
	{ContestID: 1400, Index: "C", Rating: 1200},
}

// MatchService 매치 생명주기 관리: 생성, 시작 공지, 승자 판정, 종료, 정리.
// 상태 전이는 매치별로 Created -> Announced -> Active -> Ended 순서를 지킨다
type MatchService struct {
	sender Sender
	logger *zap.Logger

	announceDelay time.Duration
	retention     time.Duration
	pool          []models.Problem

	mu      sync.Mutex
	matches map[string]*models.Match

	// Active 전이 시 호출 (MatchMonitor.Watch 연결). 중복 호출 안전해야 함
	onActivate func(matchID string)
}

// NewMatchService MatchService 생성
func NewMatchService(sender Sender, announceDelay, retention time.Duration, logger *zap.Logger) *MatchService {
	return &MatchService{
		sender:        sender,
		logger:        logger,
		announceDelay: announceDelay,
		retention:     retention,
		pool:          defaultProblemPool,
		matches:       make(map[string]*models.Match),
	}
}

// SetActivateHook Active 전이 후크 등록 (서비스 조립 시 한 번 호출)
func (s *MatchService) SetActivateHook(hook func(matchID string)) {
	s.onActivate = hook
}

// SetProblemPool 문제 풀 교체 (테스트용)
func (s *MatchService) SetProblemPool(pool []models.Problem) {
	s.pool = pool
}

// CreateMatch 매치 생성. 문제를 풀에서 무작위로 뽑고 양쪽에 match_found를
// 보낸 뒤, 짧은 지연 후 match_start를 공지한다 (found와 start를 분리해서
// 클라이언트가 UI 상태를 전환할 시간을 줌)
func (s *MatchService) CreateMatch(player1, player2 string) *models.Match {
	match := &models.Match{
		ID:             uuid.NewString(),
		Player1:        player1,
		Player2:        player2,
		Problem:        s.pool[rand.Intn(len(s.pool))],
		State:          models.MatchStateCreated,
		StartTime:      time.Now(),
		LastSubmission: map[string]int64{},
	}

	s.mu.Lock()
	s.matches[match.ID] = match
	s.mu.Unlock()

	s.logger.Info("Match created",
		zap.String("matchId", match.ID),
		zap.String("player1", player1),
		zap.String("player2", player2),
		zap.Int("contestId", match.Problem.ContestID),
		zap.String("index", match.Problem.Index))

	// 연결 여부와 무관하게 양쪽 모두에게 전송 (best-effort)
	s.sender.SendToUser(player1, models.FrameMatchFound, models.MatchFoundPayload{Opponent: player2})
	s.sender.SendToUser(player2, models.FrameMatchFound, models.MatchFoundPayload{Opponent: player1})

	time.AfterFunc(s.announceDelay, func() {
		s.announce(match.ID)
	})

	return match
}

// announce Announced 전이: 현재 연결된 플레이어에게만 match_start를 보낸다.
// 한 명이라도 받았으면 Active로 전이하고 폴링을 시작한다. 둘 다 끊겨 있으면
// 매치는 남겨두고, 이후 register 시 재전송 경로가 폴링을 늦게 시작시킨다
func (s *MatchService) announce(matchID string) {
	s.mu.Lock()
	match, ok := s.matches[matchID]
	if !ok || match.Ended {
		s.mu.Unlock()
		return
	}

	match.State = models.MatchStateAnnounced

	connected1 := s.sender.IsConnected(match.Player1)
	connected2 := s.sender.IsConnected(match.Player2)
	reachable := connected1 || connected2
	if reachable {
		match.State = models.MatchStateActive
	}

	p1, p2 := match.Player1, match.Player2
	payload1 := models.MatchStartPayload{MatchID: match.ID, Problem: match.Problem, Opponent: p2}
	payload2 := models.MatchStartPayload{MatchID: match.ID, Problem: match.Problem, Opponent: p1}
	s.mu.Unlock()

	// 끊겨 있는 플레이어는 이 시점에는 건너뜀 (재시도 없음, register 시 재전송)
	if connected1 {
		s.sender.SendToUser(p1, models.FrameMatchStart, payload1)
	}
	if connected2 {
		s.sender.SendToUser(p2, models.FrameMatchStart, payload2)
	}

	if reachable {
		s.logger.Info("Match started", zap.String("matchId", matchID))
		if s.onActivate != nil {
			s.onActivate(matchID)
		}
	} else {
		s.logger.Warn("Neither player reachable at match start",
			zap.String("matchId", matchID))
	}
}

// ResendPending register 시 진행 중인 매치의 match_start 재전송.
// 공지를 놓친 재접속 플레이어를 위한 경로이며, 매치가 아직 Active가
// 아니었다면 여기서 Active로 전이하고 폴링을 시작한다
func (s *MatchService) ResendPending(username string) {
	s.mu.Lock()

	var match *models.Match
	for _, m := range s.matches {
		if !m.Ended && m.HasPlayer(username) {
			match = m
			break
		}
	}

	if match == nil || match.State == models.MatchStateCreated {
		// Created 상태면 announce 타이머가 곧 처리함
		s.mu.Unlock()
		return
	}

	activate := false
	if match.State == models.MatchStateAnnounced {
		match.State = models.MatchStateActive
		activate = true
	}

	payload := models.MatchStartPayload{
		MatchID:  match.ID,
		Problem:  match.Problem,
		Opponent: match.Opponent(username),
	}
	matchID := match.ID
	s.mu.Unlock()

	s.sender.SendToUser(username, models.FrameMatchStart, payload)
	s.logger.Info("Resent match start to reconnected user",
		zap.String("username", username),
		zap.String("matchId", matchID))

	if activate && s.onActivate != nil {
		s.onActivate(matchID)
	}
}

// EndMatch 매치 종료. 멱등: 이미 종료된 매치면 아무것도 하지 않으므로
// 먼저 도착한 승자가 유효하다. 종료 후 유예 기간이 지나면 매치를 삭제
func (s *MatchService) EndMatch(matchID, winner string, solveTime int64) {
	s.mu.Lock()
	match, ok := s.matches[matchID]
	if !ok || match.Ended {
		s.mu.Unlock()
		return
	}

	match.Ended = true
	match.State = models.MatchStateEnded
	p1, p2 := match.Player1, match.Player2
	s.mu.Unlock()

	payload := models.MatchEndPayload{
		Winner:    winner,
		SolveTime: solveTime,
		MatchID:   matchID,
	}
	s.sender.SendToUser(p1, models.FrameMatchEnd, payload)
	s.sender.SendToUser(p2, models.FrameMatchEnd, payload)

	s.logger.Info("Match ended",
		zap.String("matchId", matchID),
		zap.String("winner", winner),
		zap.Int64("solveTime", solveTime))

	time.AfterFunc(s.retention, func() {
		s.mu.Lock()
		delete(s.matches, matchID)
		s.mu.Unlock()

		s.logger.Debug("Match reaped", zap.String("matchId", matchID))
	})
}

// RecordSubmission 플레이어의 마지막 확인 제출 ID 갱신.
// 엄격히 더 새로운 제출일 때만 true를 반환 (상대에게 알림을 보낼지 결정)
func (s *MatchService) RecordSubmission(matchID, player string, submissionID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	match, ok := s.matches[matchID]
	if !ok || match.Ended {
		return false
	}

	if submissionID > match.LastSubmission[player] {
		match.LastSubmission[player] = submissionID
		return true
	}
	return false
}

// InMatch 사용자가 진행 중인 매치에 있는지 확인
func (s *MatchService) InMatch(username string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range s.matches {
		if !m.Ended && m.HasPlayer(username) {
			return true
		}
	}
	return false
}

// Get 매치 스냅샷 조회
func (s *MatchService) Get(matchID string) (models.Match, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	match, ok := s.matches[matchID]
	if !ok {
		return models.Match{}, false
	}

	// 마커 맵은 서비스 뮤텍스 아래에서만 접근하므로 스냅샷에서는 제외
	snapshot := *match
	snapshot.LastSubmission = nil
	return snapshot, true
}

// ListActive 진행 중인 매치 스냅샷 목록
func (s *MatchService) ListActive() []models.Match {
	s.mu.Lock()
	defer s.mu.Unlock()

	var active []models.Match
	for _, m := range s.matches {
		if !m.Ended {
			snapshot := *m
			snapshot.LastSubmission = nil
			active = append(active, snapshot)
		}
	}
	return active
}
