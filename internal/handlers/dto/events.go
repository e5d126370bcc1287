package dto

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Полезные нагрузки событий WebSocket

type RoomPayload struct {
	RoomID string `json:"roomId"`
}

type SendMessagePayload struct {
	RoomID      string            `json:"roomId"`
	Text        string            `json:"text"`
	Attachments []json.RawMessage `json:"attachments,omitempty"`
}

type RoomEvent struct {
	RoomID uuid.UUID `json:"roomId"`
}

type JoinedRoomEvent struct {
	RoomID uuid.UUID    `json:"roomId"`
	Room   RoomResponse `json:"room"`
}

type MessageEvent struct {
	RoomID  uuid.UUID       `json:"roomId"`
	Message MessageResponse `json:"message"`
}

type TypingEvent struct {
	RoomID   uuid.UUID `json:"roomId"`
	UserID   uuid.UUID `json:"userId"`
	UserName string    `json:"userName"`
}

type MarkedReadEvent struct {
	RoomID uuid.UUID `json:"roomId"`
	Marked int64     `json:"marked"`
}
