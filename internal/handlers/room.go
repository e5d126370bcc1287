package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/thereayou/ideaverse-chat/internal/handlers/dto"
	"github.com/thereayou/ideaverse-chat/internal/middleware"
	"github.com/thereayou/ideaverse-chat/internal/models"
	"github.com/thereayou/ideaverse-chat/internal/services"
	"github.com/thereayou/ideaverse-chat/internal/websocket"
	"go.uber.org/zap"
)

type RoomHandler struct {
	svc *services.ChatService
	hub *websocket.Hub
	log *zap.Logger
}

func NewRoomHandler(svc *services.ChatService, hub *websocket.Hub, log *zap.Logger) *RoomHandler {
	return &RoomHandler{svc: svc, hub: hub, log: log}
}

// roomResponse комната с числом участников онлайн
func roomResponse(hub *websocket.Hub, room *models.Room) dto.RoomResponse {
	resp := dto.NewRoomResponse(room)
	resp.OnlineCount = hub.OnlineCount(room.ParticipantIDs())
	return resp
}

func summaryResponses(hub *websocket.Hub, summaries []services.RoomSummary) []dto.RoomResponse {
	result := make([]dto.RoomResponse, 0, len(summaries))
	for i := range summaries {
		s := &summaries[i]
		resp := roomResponse(hub, &s.Room)
		resp.UnreadCount = s.UnreadCount
		if s.LastMessage != nil {
			last := dto.NewMessageResponse(s.LastMessage)
			resp.LastMessage = &last
		}
		result = append(result, resp)
	}
	return result
}

// GetMyRooms список комнат пользователя, ?type= сужает до одного типа
func (h *RoomHandler) GetMyRooms(c *gin.Context) {
	ident := middleware.CurrentIdentity(c)

	summaries, err := h.svc.ListRooms(c.Request.Context(), ident, c.Query("type"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respond(c, http.StatusOK, summaryResponses(h.hub, summaries))
}

// GetRoom комната с последними сообщениями; всё непрочитанное помечается прочитанным
func (h *RoomHandler) GetRoom(c *gin.Context) {
	ident := middleware.CurrentIdentity(c)
	roomID, ok := uuidParam(c, "roomId")
	if !ok {
		return
	}

	detail, err := h.svc.GetRoomDetail(c.Request.Context(), ident, roomID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respond(c, http.StatusOK, dto.RoomDetailResponse{
		RoomResponse: roomResponse(h.hub, detail.Room),
		Messages:     dto.NewMessageResponses(detail.Messages),
	})
}

// GetRoomMembers участники комнаты с признаком онлайн
func (h *RoomHandler) GetRoomMembers(c *gin.Context) {
	ident := middleware.CurrentIdentity(c)
	roomID, ok := uuidParam(c, "roomId")
	if !ok {
		return
	}

	room, err := h.svc.CanJoin(c.Request.Context(), ident, roomID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	members := make([]dto.ParticipantResponse, 0, len(room.Participants))
	for i := range room.Participants {
		m := dto.NewParticipantResponse(&room.Participants[i])
		online := h.hub.IsOnline(m.UserID)
		m.IsOnline = &online
		members = append(members, m)
	}

	respond(c, http.StatusOK, members)
}

func (h *RoomHandler) GetProjectRoom(c *gin.Context) {
	h.getOrCreate(c, models.RoomProject, "ideaId")
}

func (h *RoomHandler) GetJobRoom(c *gin.Context) {
	h.getOrCreate(c, models.RoomJob, "jobId")
}

// CreateDirectRoom создает или получает direct комнату между двумя пользователями
func (h *RoomHandler) CreateDirectRoom(c *gin.Context) {
	ident := middleware.CurrentIdentity(c)

	var req dto.DirectRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	peerID, err := uuid.Parse(req.UserID)
	if err != nil {
		badRequest(c, "invalid user id")
		return
	}

	room, err := h.svc.GetOrCreateRoom(c.Request.Context(), ident, models.RoomDirect, peerID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respond(c, http.StatusOK, roomResponse(h.hub, room))
}

func (h *RoomHandler) getOrCreate(c *gin.Context, t models.RoomType, param string) {
	ident := middleware.CurrentIdentity(c)
	entityID, ok := uuidParam(c, param)
	if !ok {
		return
	}

	room, err := h.svc.GetOrCreateRoom(c.Request.Context(), ident, t, entityID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respond(c, http.StatusOK, roomResponse(h.hub, room))
}
