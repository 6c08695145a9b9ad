package service

import "errors"

// Common service errors
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("resource not found")
)

// Room service specific errors
var (
	ErrRoomNotFound = errors.New("room not found")
	ErrRoomFull     = errors.New("room is full")
	ErrSelfJoin     = errors.New("cannot join your own room")
)

// Match service specific errors
var (
	ErrMatchNotFound  = errors.New("match not found")
	ErrAlreadyInMatch = errors.New("already in an active match")
)
