package models

import "time"

type MatchState string

const (
	MatchStateCreated   MatchState = "created"
	MatchStateAnnounced MatchState = "announced"
	MatchStateActive    MatchState = "active"
	MatchStateEnded     MatchState = "ended"
)

// Problem 정적 풀에서 뽑는 Codeforces 문제 참조
type Problem struct {
	ContestID int    `json:"contestId"`
	Index     string `json:"index"`
	Rating    int    `json:"rating,omitempty"`
}

// Match 두 플레이어의 1:1 대결
type Match struct {
	ID        string     `json:"matchId"`
	Player1   string     `json:"player1"`
	Player2   string     `json:"player2"`
	Problem   Problem    `json:"problem"`
	State     MatchState `json:"state"`
	StartTime time.Time  `json:"startTime"`
	Ended     bool       `json:"ended"`

	// 플레이어별 마지막으로 확인한 제출 ID (새 제출 감지용)
	LastSubmission map[string]int64 `json:"-"`
}

// Opponent 주어진 플레이어의 상대 반환
func (m *Match) Opponent(username string) string {
	if m.Player1 == username {
		return m.Player2
	}
	return m.Player1
}

// HasPlayer 플레이어 참가 여부
func (m *Match) HasPlayer(username string) bool {
	return m.Player1 == username || m.Player2 == username
}
