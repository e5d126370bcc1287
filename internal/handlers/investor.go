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

// InvestorHandler маршруты /api/investor, роль проверяет сервис
type InvestorHandler struct {
	svc *services.ChatService
	hub *websocket.Hub
	log *zap.Logger
}

func NewInvestorHandler(svc *services.ChatService, hub *websocket.Hub, log *zap.Logger) *InvestorHandler {
	return &InvestorHandler{svc: svc, hub: hub, log: log}
}

// PitchedIdeas идеи, открытые для инвесторов
func (h *InvestorHandler) PitchedIdeas(c *gin.Context) {
	ideas, err := h.svc.ListPitchedIdeas(c.Request.Context(), middleware.CurrentIdentity(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	result := make([]dto.IdeaResponse, 0, len(ideas))
	for i := range ideas {
		result = append(result, dto.NewIdeaResponse(&ideas[i]))
	}
	respond(c, http.StatusOK, result)
}

// Discussions инвестиционные комнаты текущего инвестора
func (h *InvestorHandler) Discussions(c *gin.Context) {
	summaries, err := h.svc.ListInvestorDiscussions(c.Request.Context(), middleware.CurrentIdentity(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respond(c, http.StatusOK, summaryResponses(h.hub, summaries))
}

// IdeaDiscussion открывает (или создаёт) обсуждение по идее
func (h *InvestorHandler) IdeaDiscussion(c *gin.Context) {
	ideaID, ok := uuidParam(c, "ideaId")
	if !ok {
		return
	}

	room, err := h.svc.GetOrCreateRoom(c.Request.Context(), middleware.CurrentIdentity(c), models.RoomInvestment, ideaID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respond(c, http.StatusOK, roomResponse(h.hub, room))
}

// AddInvestor приглашает ещё одного инвестора в обсуждение
func (h *InvestorHandler) AddInvestor(c *gin.Context) {
	roomID, ok := uuidParam(c, "roomId")
	if !ok {
		return
	}

	var req dto.AddInvestorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	investorID, err := uuid.Parse(req.InvestorID)
	if err != nil {
		badRequest(c, "invalid investor id")
		return
	}

	room, err := h.svc.AddInvestor(c.Request.Context(), middleware.CurrentIdentity(c), roomID, investorID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respond(c, http.StatusOK, roomResponse(h.hub, room))
}
