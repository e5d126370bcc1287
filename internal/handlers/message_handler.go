package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/thereayou/ideaverse-chat/internal/handlers/dto"
	"github.com/thereayou/ideaverse-chat/internal/models"
	"github.com/thereayou/ideaverse-chat/internal/services"
	"github.com/thereayou/ideaverse-chat/internal/websocket"
	"go.uber.org/zap"
)

var errInternal = errors.New("internal server error")

// MessageHandler обрабатывает события WebSocket и раздаёт новые сообщения
type MessageHandler struct {
	svc *services.ChatService
	hub *websocket.Hub
	log *zap.Logger
}

func NewMessageHandler(svc *services.ChatService, hub *websocket.Hub, log *zap.Logger) *MessageHandler {
	return &MessageHandler{svc: svc, hub: hub, log: log}
}

// connHandler привязывает обработчик к личности, проверенной при апгрейде
type connHandler struct {
	*MessageHandler
	ident *services.Identity
}

func (h *MessageHandler) forIdentity(ident *services.Identity) websocket.EventHandler {
	return &connHandler{MessageHandler: h, ident: ident}
}

func (h *connHandler) HandleEvent(ctx context.Context, client *websocket.Client, env *websocket.Envelope) error {
	return h.clientError(h.dispatch(ctx, client, env), env.Event)
}

func (h *connHandler) dispatch(ctx context.Context, client *websocket.Client, env *websocket.Envelope) error {
	switch env.Event {
	case websocket.EventJoinRoom:
		return h.handleJoin(ctx, client, env.Data)
	case websocket.EventLeaveRoom:
		return h.handleLeave(client, env.Data)
	case websocket.EventSendMessage:
		return h.handleSend(ctx, env.Data)
	case websocket.EventTyping:
		return h.handleTyping(client, env.Data, websocket.EventUserTyping)
	case websocket.EventStopTyping:
		return h.handleTyping(client, env.Data, websocket.EventUserStoppedTyping)
	case websocket.EventMarkRead:
		return h.handleMarkRead(ctx, client, env.Data)
	}
	return websocket.ErrUnknownEvent
}

func (h *connHandler) handleJoin(ctx context.Context, client *websocket.Client, data json.RawMessage) error {
	roomID, err := roomFromPayload(data)
	if err != nil {
		return err
	}

	room, err := h.svc.CanJoin(ctx, h.ident, roomID)
	if err != nil {
		return err
	}

	h.hub.JoinRoom(client, roomID)

	return client.Send(websocket.EventJoinedRoom, dto.JoinedRoomEvent{
		RoomID: roomID,
		Room:   roomResponse(h.hub, room),
	})
}

func (h *connHandler) handleLeave(client *websocket.Client, data json.RawMessage) error {
	roomID, err := roomFromPayload(data)
	if err != nil {
		return err
	}

	h.hub.LeaveRoom(client, roomID)
	return client.Send(websocket.EventLeftRoom, dto.RoomEvent{RoomID: roomID})
}

// handleSend подтверждение отправителю приходит тем же new-message
func (h *connHandler) handleSend(ctx context.Context, data json.RawMessage) error {
	var payload dto.SendMessagePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return websocket.ErrInvalidMessage
	}
	roomID, err := uuid.Parse(payload.RoomID)
	if err != nil {
		return websocket.ErrInvalidMessage
	}

	_, err = h.svc.SendMessage(ctx, h.ident, roomID, services.MessageInput{
		Text:        payload.Text,
		Attachments: payload.Attachments,
	}, h.MessageHandler)
	return err
}

func (h *connHandler) handleTyping(client *websocket.Client, data json.RawMessage, event websocket.Event) error {
	roomID, err := roomFromPayload(data)
	if err != nil {
		return err
	}

	if !client.IsInRoom(roomID) {
		return websocket.ErrNotInRoom
	}

	return h.hub.SendToRoom(roomID, event, dto.TypingEvent{
		RoomID:   roomID,
		UserID:   client.UserID,
		UserName: client.Name,
	}, client)
}

func (h *connHandler) handleMarkRead(ctx context.Context, client *websocket.Client, data json.RawMessage) error {
	roomID, err := roomFromPayload(data)
	if err != nil {
		return err
	}

	marked, err := h.svc.MarkRoomRead(ctx, h.ident, roomID)
	if err != nil {
		return err
	}

	return client.Send(websocket.EventMarkedRead, dto.MarkedReadEvent{RoomID: roomID, Marked: marked})
}

// clientError внутренние ошибки не уходят клиенту как есть
func (h *connHandler) clientError(err error, event websocket.Event) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, websocket.ErrInvalidMessage),
		errors.Is(err, websocket.ErrUnknownEvent),
		errors.Is(err, websocket.ErrNotInRoom):
		return err
	}

	if status, _ := errorStatus(err); status != http.StatusInternalServerError {
		return err
	}

	h.log.Error("websocket event failed",
		zap.String("event", string(event)),
		zap.String("user_id", h.ident.UserID.String()),
		zap.Error(err),
	)
	return errInternal
}

// PublishMessage new-message подписчикам комнаты и chat-notification
// в личный канал остальных участников
func (h *MessageHandler) PublishMessage(room *models.Room, message *models.Message) {
	event := dto.MessageEvent{
		RoomID:  room.ID,
		Message: dto.NewMessageResponse(message),
	}

	if err := h.hub.SendToRoom(room.ID, websocket.EventNewMessage, event, nil); err != nil {
		h.log.Error("publish new-message", zap.Error(err))
		return
	}

	for _, userID := range room.ParticipantIDs() {
		if userID == message.SenderID {
			continue
		}
		if err := h.hub.SendToUser(userID, websocket.EventChatNotification, event); err != nil {
			h.log.Error("publish chat-notification", zap.Error(err))
			return
		}
	}
}

func roomFromPayload(data json.RawMessage) (uuid.UUID, error) {
	var payload dto.RoomPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return uuid.Nil, websocket.ErrInvalidMessage
	}
	roomID, err := uuid.Parse(payload.RoomID)
	if err != nil {
		return uuid.Nil, websocket.ErrInvalidMessage
	}
	return roomID, nil
}
