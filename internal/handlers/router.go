package handlers

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/thereayou/ideaverse-chat/internal/middleware"
	"github.com/thereayou/ideaverse-chat/internal/services"
	"github.com/thereayou/ideaverse-chat/internal/websocket"
	"go.uber.org/zap"
)

// Deps всё, что нужно маршрутам
type Deps struct {
	Chat        *services.ChatService
	Resolver    *services.IdentityResolver
	Users       services.UserDirectory
	Hub         *websocket.Hub
	Log         *zap.Logger
	CORSOrigins []string
}

func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.Logger(d.Log))
	r.Use(cors.New(corsConfig(d.CORSOrigins)))

	roomH := NewRoomHandler(d.Chat, d.Hub, d.Log)
	msgH := NewHTTPMessageHandler(d.Chat, d.Log)
	investorH := NewInvestorHandler(d.Chat, d.Hub, d.Log)
	userH := NewUserHandler(d.Users, d.Log)
	authH := NewAuthHandler(d.Resolver, d.Log)
	wsH := NewWebSocketHandler(d.Hub, NewMessageHandler(d.Chat, d.Hub, d.Log), d.CORSOrigins, d.Log)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authMW := middleware.AuthMiddleware(d.Resolver)

	authGroup := r.Group("/auth", authMW)
	{
		authGroup.POST("/logout", authH.Logout)
	}

	r.GET("/ws", middleware.WSAuthMiddleware(d.Resolver), wsH.HandleWebSocket)

	api := r.Group("/api", authMW)

	users := api.Group("/users")
	{
		users.GET("/me", userH.GetMe)
		users.GET("/:id", userH.GetUser)
	}

	chat := api.Group("/chat")
	{
		chat.GET("/rooms", roomH.GetMyRooms)
		chat.GET("/rooms/:roomId", roomH.GetRoom)
		chat.GET("/rooms/:roomId/members", roomH.GetRoomMembers)
		chat.GET("/rooms/:roomId/messages", msgH.GetRoomMessages)
		chat.POST("/rooms/:roomId/messages", msgH.SendMessage)
		chat.PUT("/rooms/:roomId/read", msgH.MarkRead)

		chat.GET("/project/:ideaId", roomH.GetProjectRoom)
		chat.GET("/job/:jobId", roomH.GetJobRoom)
		chat.POST("/direct", roomH.CreateDirectRoom)
	}

	investor := api.Group("/investor")
	{
		investor.GET("/pitched-ideas", investorH.PitchedIdeas)
		investor.GET("/discussions", investorH.Discussions)
		investor.GET("/discussions/idea/:ideaId", investorH.IdeaDiscussion)
		investor.POST("/discussions/:roomId/add-investor", investorH.AddInvestor)
	}

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}
