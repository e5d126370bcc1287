package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/thereayou/ideaverse-chat/internal/middleware"
	ws "github.com/thereayou/ideaverse-chat/internal/websocket"
	"go.uber.org/zap"
)

// WebSocketHandler управляет WebSocket соединениями
type WebSocketHandler struct {
	hub            *ws.Hub
	messageHandler *MessageHandler
	upgrader       websocket.Upgrader
	log            *zap.Logger
}

// NewWebSocketHandler пустой список origins пропускает любой Origin
func NewWebSocketHandler(hub *ws.Hub, messageHandler *MessageHandler, origins []string, log *zap.Logger) *WebSocketHandler {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}

	return &WebSocketHandler{
		hub:            hub,
		messageHandler: messageHandler,
		log:            log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return len(allowed) == 0 || allowed["*"] || origin == "" || allowed[origin]
			},
		},
	}
}

// HandleWebSocket обрабатывает WebSocket соединения
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	ident := middleware.CurrentIdentity(c)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := ws.NewClient(h.hub, conn, ident.UserID, ident.Name, string(ident.Role))
	if err := h.hub.Register(client); err != nil {
		conn.Close()
		return
	}

	h.log.Debug("websocket connected",
		zap.String("user_id", ident.UserID.String()),
		zap.String("client_id", client.ID.String()),
	)

	go client.WritePump()
	go client.ReadPump(h.hub.Context(), h.messageHandler.forIdentity(ident))
}
