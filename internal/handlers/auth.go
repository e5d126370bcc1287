package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/thereayou/ideaverse-chat/internal/middleware"
	"github.com/thereayou/ideaverse-chat/internal/services"
	"go.uber.org/zap"
)

// AuthHandler регистрацию и логин ведёт сервис аккаунтов,
// здесь только отзыв собственного токена
type AuthHandler struct {
	resolver *services.IdentityResolver
	log      *zap.Logger
}

func NewAuthHandler(resolver *services.IdentityResolver, log *zap.Logger) *AuthHandler {
	return &AuthHandler{resolver: resolver, log: log}
}

// Logout ставит токен в черный список в Redis до истечения
func (h *AuthHandler) Logout(c *gin.Context) {
	ident := middleware.CurrentIdentity(c)

	if err := h.resolver.Revoke(c.Request.Context(), ident.Token); err != nil {
		respondError(c, h.log, err)
		return
	}

	h.log.Info("token revoked", zap.String("user_id", ident.UserID.String()))
	respond(c, http.StatusOK, gin.H{"loggedOut": true})
}
