package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/thereayou/ideaverse-chat/internal/handlers/dto"
	"github.com/thereayou/ideaverse-chat/internal/services"
	"go.uber.org/zap"
)

func respond(c *gin.Context, status int, data any) {
	c.JSON(status, dto.OK(data))
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, dto.Fail(msg, "VALIDATION_ERROR"))
}

// errorStatus класс ошибки -> HTTP статус и код
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, services.ErrUnauthenticated):
		return http.StatusUnauthorized, "UNAUTHENTICATED"
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest, "VALIDATION_ERROR"
	case errors.Is(err, services.ErrAlreadyExists):
		return http.StatusConflict, "ALREADY_EXISTS"
	case errors.Is(err, services.ErrConflict):
		return http.StatusConflict, "CONFLICT"
	}
	return http.StatusInternalServerError, "INTERNAL"
}

// respondError внутренние ошибки логируются, клиенту уходит общий текст
func respondError(c *gin.Context, log *zap.Logger, err error) {
	status, code := errorStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		_ = c.Error(err)
		msg = "internal server error"
	}
	c.JSON(status, dto.Fail(msg, code))
}

// uuidParam разбирает параметр пути; на ошибке уже ответил 400
func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}
