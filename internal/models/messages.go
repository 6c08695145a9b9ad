package models

import "encoding/json"

// 클라이언트 -> 서버 프레임 타입
const (
	FrameRegister   = "register"
	FrameFindMatch  = "find_match"
	FrameCreateRoom = "create_room"
	FrameJoinRoom   = "join_room"
	FrameSubmission = "submission"
)

// 서버 -> 클라이언트 프레임 타입
const (
	FrameMatchFound       = "match_found"
	FrameRoomCreated      = "room_created"
	FrameRoomJoined       = "room_joined"
	FrameMatchStart       = "match_start"
	FrameSubmissionUpdate = "submission_update"
	FrameMatchEnd         = "match_end"
	FrameError            = "error"
)

// ClientFrame 수신 프레임 (type 판별 후 필요한 필드만 사용)
type ClientFrame struct {
	Type     string          `json:"type"`
	Username string          `json:"username"`
	RoomCode string          `json:"roomCode"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

type MatchFoundPayload struct {
	Opponent string `json:"opponent"`
}

type RoomCreatedPayload struct {
	RoomCode string `json:"roomCode"`
}

type RoomJoinedPayload struct {
	RoomCode string `json:"roomCode"`
}

type MatchStartPayload struct {
	MatchID  string  `json:"matchId"`
	Problem  Problem `json:"problem"`
	Opponent string  `json:"opponent"`
}

type SubmissionUpdatePayload struct {
	Username string `json:"username"`
	Status   string `json:"status"`
}

type MatchEndPayload struct {
	Winner    string `json:"winner"`
	SolveTime int64  `json:"solveTime"`
	MatchID   string `json:"matchId"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
