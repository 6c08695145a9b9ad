package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Sahiiil1406/cpify/internal/models"
	"github.com/Sahiiil1406/cpify/pkg/codeforces"
)

// SubmissionFetcher 외부 제출 피드 조회 (codeforces.Client가 구현)
type SubmissionFetcher interface {
	RecentSubmissions(ctx context.Context, handle string, problem codeforces.ProblemRef) ([]codeforces.Submission, error)
}

// MatchMonitor Active 매치마다 하나씩 도는 폴링 작업 관리.
// 매 사이클 양쪽 플레이어의 피드를 매치 문제로 필터해서 가져오고,
// 정답이 나오면 승자를 판정해 매치를 끝낸다. 피드 오류는 그 사이클에
// 새 데이터가 없었던 것으로 취급하고 폴링은 계속된다
type MatchMonitor struct {
	matchService *MatchService
	fetcher      SubmissionFetcher
	sender       Sender
	interval     time.Duration
	logger       *zap.Logger

	mu       sync.Mutex
	watchers map[string]chan struct{}
	wg       sync.WaitGroup
}

// NewMatchMonitor MatchMonitor 생성
func NewMatchMonitor(
	matchService *MatchService,
	fetcher SubmissionFetcher,
	sender Sender,
	interval time.Duration,
	logger *zap.Logger,
) *MatchMonitor {
	return &MatchMonitor{
		matchService: matchService,
		fetcher:      fetcher,
		sender:       sender,
		interval:     interval,
		logger:       logger,
		watchers:     make(map[string]chan struct{}),
	}
}

// Watch 매치 폴링 시작. 이미 돌고 있으면 무시 (매치당 최대 하나)
func (m *MatchMonitor) Watch(matchID string) {
	m.mu.Lock()
	if _, exists := m.watchers[matchID]; exists {
		m.mu.Unlock()
		return
	}

	stop := make(chan struct{})
	m.watchers[matchID] = stop
	m.wg.Add(1)
	m.mu.Unlock()

	m.logger.Info("Started monitoring match", zap.String("matchId", matchID))

	go m.watchLoop(matchID, stop)
}

// Stop 특정 매치 폴링 중지
func (m *MatchMonitor) Stop(matchID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if stop, exists := m.watchers[matchID]; exists {
		close(stop)
		delete(m.watchers, matchID)
	}
}

// StopAll 모든 폴링 중지 후 대기 (서버 종료용)
func (m *MatchMonitor) StopAll() {
	m.mu.Lock()
	for matchID, stop := range m.watchers {
		close(stop)
		delete(m.watchers, matchID)
	}
	m.mu.Unlock()

	m.wg.Wait()
}

// Watching 해당 매치를 폴링 중인지 확인
func (m *MatchMonitor) Watching(matchID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, exists := m.watchers[matchID]
	return exists
}

func (m *MatchMonitor) watchLoop(matchID string, stop chan struct{}) {
	defer func() {
		m.mu.Lock()
		if cur, exists := m.watchers[matchID]; exists && cur == stop {
			delete(m.watchers, matchID)
		}
		m.mu.Unlock()
		m.wg.Done()

		m.logger.Info("Stopped monitoring match", zap.String("matchId", matchID))
	}()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	// 첫 사이클은 바로 실행
	if m.checkMatch(matchID) {
		return
	}

	for {
		select {
		case <-ticker.C:
			if m.checkMatch(matchID) {
				return
			}
		case <-stop:
			return
		}
	}
}

// checkMatch 한 사이클 실행. 폴링을 멈춰야 하면 true 반환
func (m *MatchMonitor) checkMatch(matchID string) bool {
	match, ok := m.matchService.Get(matchID)
	if !ok || match.Ended {
		return true
	}

	ctx := context.Background()
	problem := codeforces.ProblemRef{ContestID: match.Problem.ContestID, Index: match.Problem.Index}

	subs1, err := m.fetcher.RecentSubmissions(ctx, match.Player1, problem)
	if err != nil {
		m.logger.Warn("Failed to fetch submissions",
			zap.String("matchId", matchID),
			zap.String("username", match.Player1),
			zap.Error(err))
		subs1 = nil
	}

	subs2, err := m.fetcher.RecentSubmissions(ctx, match.Player2, problem)
	if err != nil {
		m.logger.Warn("Failed to fetch submissions",
			zap.String("matchId", matchID),
			zap.String("username", match.Player2),
			zap.Error(err))
		subs2 = nil
	}

	accepted1 := firstAccepted(subs1)
	accepted2 := firstAccepted(subs2)

	if accepted1 != nil || accepted2 != nil {
		winner, solveTime := decideWinner(&match, accepted1, accepted2)
		m.matchService.EndMatch(matchID, winner, solveTime)
		return true
	}

	// 정답은 없지만 새 제출이 있으면 상대에게 판정 알림
	m.notifyNewSubmission(matchID, match.Player1, match.Player2, subs1)
	m.notifyNewSubmission(matchID, match.Player2, match.Player1, subs2)

	return false
}

// notifyNewSubmission 가장 최근 제출이 마지막 확인 이후의 것일 때만
// 상대에게 submission_update를 보냄 (사이클마다 반복해서 보내지 않음)
func (m *MatchMonitor) notifyNewSubmission(matchID, player, opponent string, subs []codeforces.Submission) {
	if len(subs) == 0 {
		return
	}

	latest := subs[0]
	if m.matchService.RecordSubmission(matchID, player, latest.ID) {
		m.sender.SendToUser(opponent, models.FrameSubmissionUpdate, models.SubmissionUpdatePayload{
			Username: player,
			Status:   latest.Verdict,
		})
	}
}

// firstAccepted 피드(최신순)에서 정답 제출 찾기
func firstAccepted(subs []codeforces.Submission) *codeforces.Submission {
	for i := range subs {
		if subs[i].Verdict == codeforces.VerdictOK {
			return &subs[i]
		}
	}
	return nil
}

// decideWinner 승자 판정. 둘 다 풀었으면 외부 타임스탬프가 빠른 쪽이
// 승자이고, 타임스탬프가 정확히 같으면 player1이 이긴다 (명시적 정책).
// solveTime은 정답 시각에서 매치 시작 시각(초 단위 내림)을 뺀 값이며
// 시계 차이로 0이나 음수가 될 수 있다 (보정하지 않음)
func decideWinner(match *models.Match, accepted1, accepted2 *codeforces.Submission) (string, int64) {
	start := match.StartTime.Unix()

	switch {
	case accepted1 != nil && accepted2 != nil:
		if accepted1.CreationTimeSeconds <= accepted2.CreationTimeSeconds {
			return match.Player1, accepted1.CreationTimeSeconds - start
		}
		return match.Player2, accepted2.CreationTimeSeconds - start
	case accepted1 != nil:
		return match.Player1, accepted1.CreationTimeSeconds - start
	default:
		return match.Player2, accepted2.CreationTimeSeconds - start
	}
}
