package main

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/thereayou/bolcha/internal/database"
	"github.com/thereayou/bolcha/internal/handlers"
	"github.com/thereayou/bolcha/internal/middleware"
	"github.com/thereayou/bolcha/internal/translation"
)

var _ handlers.Store = (*database.Database)(nil)

func APIEndpoints(r *gin.Engine, s *Server, stats func() []translation.EndpointStats) {
	messageH := handlers.NewMessageHandler(s.DB, s.Hub, s.log)
	wsH := handlers.NewWebSocketHandler(s.Hub, s.DB, messageH, s.log)
	historyH := handlers.NewHTTPMessageHandler(s.DB, s.log)
	roomH := handlers.NewRoomHandler(s.DB, s.Presence)
	userH := handlers.NewUserHandler(s.DB)
	translateH := handlers.NewTranslateHandler(s.Scheduler, stats, s.log)

	// WebSocket, токен в query или заголовке
	r.GET("/ws", middleware.WSAuthMiddleware(s.JWTManager, s.Redis), wsH.HandleWebSocket)

	api := r.Group("/api", middleware.AuthMiddleware(s.JWTManager, s.Redis))
	{
		api.GET("/rooms", roomH.ListRooms)
		api.GET("/rooms/:id/messages", historyH.GetRoomMessages)
		api.GET("/rooms/:id/online-count", roomH.GetOnlineCount)

		api.GET("/user/me", userH.GetMe)
		api.GET("/user/likes", userH.GetMyLikes)
		api.PUT("/user/language", userH.UpdateLanguage)

		api.POST("/translate", translateH.Translate)
		api.GET("/translate/stats", translateH.Stats)
	}

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.Registry, promhttp.HandlerOpts{})))
}
