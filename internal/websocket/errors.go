package websocket

import "github.com/pkg/errors"

var (
	ErrClientQueueFull  = errors.New("client message queue is full")
	ErrConnectionClosed = errors.New("connection is closed")
	ErrNotRegistered    = errors.New("connection is not registered")
	ErrInvalidMessage   = errors.New("invalid message format")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrRoomNotFound     = errors.New("room not found")
	ErrUserNotInRoom    = errors.New("user not in room")
	ErrAdminOnly        = errors.New("only admins can post in this room")
)
