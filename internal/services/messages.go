package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/thereayou/ideaverse-chat/internal/models"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// MessageInput то, что клиент присылает для нового сообщения
type MessageInput struct {
	Text        string
	Attachments []json.RawMessage
}

// Publisher раздаёт сохранённое сообщение подписчикам. Вызывается под
// блокировкой комнаты, поэтому порядок доставки совпадает с порядком записи.
type Publisher interface {
	PublishMessage(room *models.Room, message *models.Message)
}

func (in MessageInput) normalize() (string, datatypes.JSON, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return "", nil, invalid("message text is required")
	}
	if utf8.RuneCountInString(text) > models.MaxMessageLength {
		return "", nil, invalid(fmt.Sprintf("message text must not exceed %d characters", models.MaxMessageLength))
	}

	if len(in.Attachments) == 0 {
		return text, datatypes.JSON("[]"), nil
	}

	cleaned := make([]json.RawMessage, 0, len(in.Attachments))
	for i, a := range in.Attachments {
		a = bytes.TrimSpace(a)
		if len(a) == 0 || a[0] != '{' || !json.Valid(a) {
			return "", nil, invalid(fmt.Sprintf("attachment %d must be an object", i))
		}
		cleaned = append(cleaned, a)
	}

	raw, err := json.Marshal(cleaned)
	if err != nil {
		return "", nil, invalid("invalid attachments")
	}
	return text, datatypes.JSON(raw), nil
}

// SendMessage проверяет доступ, сохраняет сообщение и, если передан pub,
// раздаёт его. REST передаёт nil.
func (s *ChatService) SendMessage(ctx context.Context, ident *Identity, roomID uuid.UUID, in MessageInput, pub Publisher) (*models.Message, error) {
	room, err := s.accessibleRoom(ctx, ident, roomID)
	if err != nil {
		return nil, err
	}

	text, attachments, err := in.normalize()
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(room.ID)
	defer unlock()

	message := &models.Message{
		RoomID:      room.ID,
		SenderID:    ident.UserID,
		Text:        text,
		Attachments: attachments,
		CreatedAt:   s.now(),
	}

	// админ пишет в чужую комнату - становится участником вместе с сообщением
	if room.HasParticipant(ident.UserID) {
		err = s.store.AppendMessage(ctx, message)
	} else {
		err = s.store.AppendJoining(ctx, &models.Participant{
			RoomID: room.ID,
			UserID: ident.UserID,
			Role:   models.ParticipantAdmin,
		}, message)
	}
	if err != nil {
		return nil, lookupErr(err, "chat room not found")
	}

	saved, err := s.store.GetMessage(ctx, message.ID)
	if err != nil {
		return nil, err
	}

	s.log.Debug("message stored",
		zap.String("room_id", room.ID.String()),
		zap.Uint64("message_id", saved.ID),
		zap.String("sender_id", ident.UserID.String()),
	)

	if pub != nil {
		pub.PublishMessage(room, saved)
	}
	return saved, nil
}
