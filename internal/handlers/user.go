package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/thereayou/ideaverse-chat/internal/database"
	"github.com/thereayou/ideaverse-chat/internal/handlers/dto"
	"github.com/thereayou/ideaverse-chat/internal/middleware"
	"github.com/thereayou/ideaverse-chat/internal/services"
	"go.uber.org/zap"
)

type UserHandler struct {
	users services.UserDirectory
	log   *zap.Logger
}

func NewUserHandler(users services.UserDirectory, log *zap.Logger) *UserHandler {
	return &UserHandler{users: users, log: log}
}

// GetMe возвращает информацию о текущем пользователе
func (h *UserHandler) GetMe(c *gin.Context) {
	ident := middleware.CurrentIdentity(c)

	user, err := h.users.GetUser(c.Request.Context(), ident.UserID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, dto.Fail("user not found", "NOT_FOUND"))
			return
		}
		respondError(c, h.log, err)
		return
	}

	respond(c, http.StatusOK, dto.NewMeResponse(user))
}

// GetUser публичная карточка пользователя по ID
func (h *UserHandler) GetUser(c *gin.Context) {
	userID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	user, err := h.users.GetUser(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, dto.Fail("user not found", "NOT_FOUND"))
			return
		}
		respondError(c, h.log, err)
		return
	}

	respond(c, http.StatusOK, dto.NewUserInfo(user))
}
