package services

import (
	"context"

	"github.com/google/uuid"
)

// MarkRoomRead помечает прочитанными все сообщения комнаты, которые
// пользователь ещё не видел. Возвращает число новых отметок.
func (s *ChatService) MarkRoomRead(ctx context.Context, ident *Identity, roomID uuid.UUID) (int64, error) {
	room, err := s.accessibleRoom(ctx, ident, roomID)
	if err != nil {
		return 0, err
	}
	return s.sweep(ctx, ident, room.ID)
}

// UnreadFor id непрочитанных сообщений пользователя в комнате
func (s *ChatService) UnreadFor(ctx context.Context, ident *Identity, roomID uuid.UUID) ([]uint64, error) {
	room, err := s.accessibleRoom(ctx, ident, roomID)
	if err != nil {
		return nil, err
	}
	return s.store.UnreadMessageIDs(ctx, room.ID, ident.UserID)
}

func (s *ChatService) sweep(ctx context.Context, ident *Identity, roomID uuid.UUID) (int64, error) {
	ids, err := s.store.UnreadMessageIDs(ctx, roomID, ident.UserID)
	if err != nil {
		return 0, err
	}
	return s.store.MarkRead(ctx, ids, ident.UserID, s.now())
}
