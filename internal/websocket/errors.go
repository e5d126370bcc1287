package websocket

import "errors"

var (
	ErrClientQueueFull = errors.New("client message queue is full")
	ErrClientClosed    = errors.New("client connection is closed")
	ErrHubStopped      = errors.New("hub is stopped")
	ErrInvalidMessage  = errors.New("invalid message format")
	ErrUnknownEvent    = errors.New("unknown event")
	ErrNotInRoom       = errors.New("join the room first")
)
