package service

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Sahiiil1406/cpify/internal/models"
)

type sentFrame struct {
	Username string
	Type     string
	Payload  interface{}
}

// fakeSender Sender 구현 테스트 대역. 보낸 프레임을 기록
type fakeSender struct {
	mu        sync.Mutex
	frames    []sentFrame
	connected map[string]bool
}

func newFakeSender(connected ...string) *fakeSender {
	s := &fakeSender{connected: make(map[string]bool)}
	for _, u := range connected {
		s.connected[u] = true
	}
	return s
}

func (f *fakeSender) SendToUser(username, msgType string, payload interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, sentFrame{Username: username, Type: msgType, Payload: payload})
}

func (f *fakeSender) IsConnected(username string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected[username]
}

func (f *fakeSender) setConnected(username string, connected bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected[username] = connected
}

func (f *fakeSender) framesOfType(msgType string) []sentFrame {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []sentFrame
	for _, fr := range f.frames {
		if fr.Type == msgType {
			out = append(out, fr)
		}
	}
	return out
}

func (f *fakeSender) framesTo(username, msgType string) []sentFrame {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []sentFrame
	for _, fr := range f.frames {
		if fr.Username == username && fr.Type == msgType {
			out = append(out, fr)
		}
	}
	return out
}

func newTestMatchService(sender Sender) *MatchService {
	return NewMatchService(sender, 10*time.Millisecond, 50*time.Millisecond, zap.NewNop())
}

func TestMatchService_CreateMatch_NotifiesBothPlayers(t *testing.T) {
	sender := newFakeSender("alice", "bob")
	svc := newTestMatchService(sender)

	match := svc.CreateMatch("alice", "bob")
	require.NotNil(t, match)

	found := sender.framesOfType(models.FrameMatchFound)
	require.Len(t, found, 2)
	assert.Equal(t, models.MatchFoundPayload{Opponent: "bob"}, found[0].Payload)
	assert.Equal(t, "alice", found[0].Username)
	assert.Equal(t, models.MatchFoundPayload{Opponent: "alice"}, found[1].Payload)
	assert.Equal(t, "bob", found[1].Username)
}

func TestMatchService_Announce_StartsMatchForConnectedPlayers(t *testing.T) {
	sender := newFakeSender("alice", "bob")
	svc := newTestMatchService(sender)

	var activated []string
	var mu sync.Mutex
	svc.SetActivateHook(func(matchID string) {
		mu.Lock()
		activated = append(activated, matchID)
		mu.Unlock()
	})

	match := svc.CreateMatch("alice", "bob")

	require.Eventually(t, func() bool {
		return len(sender.framesOfType(models.FrameMatchStart)) == 2
	}, time.Second, 5*time.Millisecond)

	// 양쪽 모두 같은 matchId와 problem을 받아야 함
	starts := sender.framesOfType(models.FrameMatchStart)
	p1 := starts[0].Payload.(models.MatchStartPayload)
	p2 := starts[1].Payload.(models.MatchStartPayload)
	assert.Equal(t, p1.MatchID, p2.MatchID)
	assert.Equal(t, p1.Problem, p2.Problem)

	got, ok := svc.Get(match.ID)
	require.True(t, ok)
	assert.Equal(t, models.MatchStateActive, got.State)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(activated) == 1 && activated[0] == match.ID
	}, time.Second, 5*time.Millisecond)
}

func TestMatchService_Announce_SkipsDisconnectedPlayer(t *testing.T) {
	sender := newFakeSender("alice")
	svc := newTestMatchService(sender)

	match := svc.CreateMatch("alice", "bob")

	require.Eventually(t, func() bool {
		return len(sender.framesOfType(models.FrameMatchStart)) == 1
	}, time.Second, 5*time.Millisecond)

	starts := sender.framesOfType(models.FrameMatchStart)
	assert.Equal(t, "alice", starts[0].Username)

	// 한 명이라도 받았으면 Active로 전이
	got, ok := svc.Get(match.ID)
	require.True(t, ok)
	assert.Equal(t, models.MatchStateActive, got.State)
}

func TestMatchService_Announce_NeitherReachable(t *testing.T) {
	sender := newFakeSender()
	svc := newTestMatchService(sender)

	activated := make(chan string, 1)
	svc.SetActivateHook(func(matchID string) { activated <- matchID })

	match := svc.CreateMatch("alice", "bob")

	time.Sleep(50 * time.Millisecond)

	assert.Empty(t, sender.framesOfType(models.FrameMatchStart))
	select {
	case <-activated:
		t.Fatal("match should not activate with neither player reachable")
	default:
	}

	got, ok := svc.Get(match.ID)
	require.True(t, ok)
	assert.Equal(t, models.MatchStateAnnounced, got.State)
	assert.False(t, got.Ended)
}

func TestMatchService_ResendPending_ActivatesLate(t *testing.T) {
	sender := newFakeSender()
	svc := newTestMatchService(sender)

	activated := make(chan string, 1)
	svc.SetActivateHook(func(matchID string) { activated <- matchID })

	match := svc.CreateMatch("alice", "bob")

	// announce가 지나가고 둘 다 못 받은 상태까지 대기
	require.Eventually(t, func() bool {
		got, ok := svc.Get(match.ID)
		return ok && got.State == models.MatchStateAnnounced
	}, time.Second, 5*time.Millisecond)

	// alice 재접속 후 register
	sender.setConnected("alice", true)
	svc.ResendPending("alice")

	starts := sender.framesTo("alice", models.FrameMatchStart)
	require.Len(t, starts, 1)
	payload := starts[0].Payload.(models.MatchStartPayload)
	assert.Equal(t, match.ID, payload.MatchID)
	assert.Equal(t, "bob", payload.Opponent)

	select {
	case id := <-activated:
		assert.Equal(t, match.ID, id)
	case <-time.After(time.Second):
		t.Fatal("expected activation on late register")
	}

	got, ok := svc.Get(match.ID)
	require.True(t, ok)
	assert.Equal(t, models.MatchStateActive, got.State)
}

func TestMatchService_ResendPending_NoMatch(t *testing.T) {
	sender := newFakeSender("alice")
	svc := newTestMatchService(sender)

	svc.ResendPending("alice")

	assert.Empty(t, sender.framesOfType(models.FrameMatchStart))
}

func TestMatchService_EndMatch_Idempotent(t *testing.T) {
	sender := newFakeSender("alice", "bob")
	svc := newTestMatchService(sender)

	match := svc.CreateMatch("alice", "bob")

	svc.EndMatch(match.ID, "alice", 42)
	svc.EndMatch(match.ID, "bob", 7)

	// 두 번째 호출은 무시: 먼저 도착한 승자가 유효하고 추가 알림 없음
	ends := sender.framesOfType(models.FrameMatchEnd)
	require.Len(t, ends, 2)
	for _, fr := range ends {
		payload := fr.Payload.(models.MatchEndPayload)
		assert.Equal(t, "alice", payload.Winner)
		assert.Equal(t, int64(42), payload.SolveTime)
		assert.Equal(t, match.ID, payload.MatchID)
	}

	got, ok := svc.Get(match.ID)
	require.True(t, ok)
	assert.True(t, got.Ended)
	assert.Equal(t, models.MatchStateEnded, got.State)
}

func TestMatchService_EndMatch_ReapsAfterRetention(t *testing.T) {
	sender := newFakeSender("alice", "bob")
	svc := newTestMatchService(sender)

	match := svc.CreateMatch("alice", "bob")
	svc.EndMatch(match.ID, "alice", 10)

	// 유예 기간 동안은 조회 가능 (재접속 재전송 대비)
	_, ok := svc.Get(match.ID)
	assert.True(t, ok)

	require.Eventually(t, func() bool {
		_, ok := svc.Get(match.ID)
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestMatchService_RecordSubmission(t *testing.T) {
	sender := newFakeSender("alice", "bob")
	svc := newTestMatchService(sender)

	match := svc.CreateMatch("alice", "bob")

	assert.True(t, svc.RecordSubmission(match.ID, "alice", 100))
	// 같은 제출은 다시 알리지 않음
	assert.False(t, svc.RecordSubmission(match.ID, "alice", 100))
	// 더 오래된 제출도 무시
	assert.False(t, svc.RecordSubmission(match.ID, "alice", 90))
	// 더 새로운 제출만 true
	assert.True(t, svc.RecordSubmission(match.ID, "alice", 101))

	svc.EndMatch(match.ID, "alice", 1)
	assert.False(t, svc.RecordSubmission(match.ID, "alice", 200))
}

func TestMatchService_InMatch(t *testing.T) {
	sender := newFakeSender("alice", "bob")
	svc := newTestMatchService(sender)

	assert.False(t, svc.InMatch("alice"))

	match := svc.CreateMatch("alice", "bob")
	assert.True(t, svc.InMatch("alice"))
	assert.True(t, svc.InMatch("bob"))
	assert.False(t, svc.InMatch("carol"))

	svc.EndMatch(match.ID, "alice", 1)
	assert.False(t, svc.InMatch("alice"))
}
