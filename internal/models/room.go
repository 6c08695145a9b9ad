package models

import "time"

// Room 초대 코드 기반 1:1 비공개 방 (1회용)
type Room struct {
	Code      string    `json:"roomCode"`
	Host      string    `json:"host"`
	Guest     string    `json:"guest,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
