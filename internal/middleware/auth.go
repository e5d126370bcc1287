package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/thereayou/ideaverse-chat/internal/services"
	"github.com/thereayou/ideaverse-chat/pkg/auth"
)

const IdentityKey = "identity"

// AuthMiddleware проверяет bearer-токен из заголовка Authorization
func AuthMiddleware(resolver *services.IdentityResolver) gin.HandlerFunc {
	return authenticate(resolver, auth.ExtractTokenFromHeader)
}

// WSAuthMiddleware специальный middleware для WebSocket: токен может прийти в ?token=
func WSAuthMiddleware(resolver *services.IdentityResolver) gin.HandlerFunc {
	return authenticate(resolver, auth.ExtractToken)
}

func authenticate(resolver *services.IdentityResolver, extract func(*http.Request) (string, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := extract(c.Request)
		if err != nil {
			abort(c, http.StatusUnauthorized, "missing or invalid token", "UNAUTHENTICATED")
			return
		}

		ident, err := resolver.Resolve(c.Request.Context(), token)
		if err != nil {
			status, code := http.StatusUnauthorized, "UNAUTHENTICATED"
			msg := err.Error()
			switch {
			case errors.Is(err, services.ErrForbidden):
				status, code = http.StatusForbidden, "FORBIDDEN"
			case !errors.Is(err, services.ErrUnauthenticated):
				status, code, msg = http.StatusInternalServerError, "INTERNAL", "internal server error"
			}
			abort(c, status, msg, code)
			return
		}

		c.Set(IdentityKey, ident)
		c.Next()
	}
}

// CurrentIdentity достаёт пользователя, положенного auth middleware
func CurrentIdentity(c *gin.Context) *services.Identity {
	return c.MustGet(IdentityKey).(*services.Identity)
}

func abort(c *gin.Context, status int, msg, code string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error":   gin.H{"message": msg, "code": code},
	})
}
