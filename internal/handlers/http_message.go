package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/thereayou/ideaverse-chat/internal/handlers/dto"
	"github.com/thereayou/ideaverse-chat/internal/middleware"
	"github.com/thereayou/ideaverse-chat/internal/services"
	"go.uber.org/zap"
)

// HTTPMessageHandler REST-путь для сообщений (альтернатива WebSocket).
// Живой рассылки здесь нет: клиенты без сокета опрашивают историю.
type HTTPMessageHandler struct {
	svc *services.ChatService
	log *zap.Logger
}

func NewHTTPMessageHandler(svc *services.ChatService, log *zap.Logger) *HTTPMessageHandler {
	return &HTTPMessageHandler{svc: svc, log: log}
}

// GetRoomMessages получает историю сообщений комнаты
func (h *HTTPMessageHandler) GetRoomMessages(c *gin.Context) {
	ident := middleware.CurrentIdentity(c)
	roomID, ok := uuidParam(c, "roomId")
	if !ok {
		return
	}

	// Параметры пагинации
	limit := 0
	if l := c.Query("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed <= 0 {
			badRequest(c, "invalid limit")
			return
		}
		limit = parsed
	}

	var before *uint64
	if b := c.Query("before"); b != "" {
		id, err := strconv.ParseUint(b, 10, 64)
		if err != nil {
			badRequest(c, "invalid before")
			return
		}
		before = &id
	}

	page, err := h.svc.History(c.Request.Context(), ident, roomID, limit, before)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respond(c, http.StatusOK, dto.MessagesPage{
		Messages: dto.NewMessageResponses(page.Messages),
		HasMore:  page.HasMore,
	})
}

// SendMessage отправляет сообщение через HTTP
func (h *HTTPMessageHandler) SendMessage(c *gin.Context) {
	ident := middleware.CurrentIdentity(c)
	roomID, ok := uuidParam(c, "roomId")
	if !ok {
		return
	}

	var req dto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	message, err := h.svc.SendMessage(c.Request.Context(), ident, roomID, services.MessageInput{
		Text:        req.Text,
		Attachments: req.Attachments,
	}, nil)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respond(c, http.StatusCreated, dto.NewMessageResponse(message))
}

// MarkRead помечает прочитанным всё, что пользователь ещё не видел в комнате
func (h *HTTPMessageHandler) MarkRead(c *gin.Context) {
	ident := middleware.CurrentIdentity(c)
	roomID, ok := uuidParam(c, "roomId")
	if !ok {
		return
	}

	marked, err := h.svc.MarkRoomRead(c.Request.Context(), ident, roomID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respond(c, http.StatusOK, dto.MarkReadResponse{RoomID: roomID, Marked: marked})
}
