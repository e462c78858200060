package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/softvence-omega/wellness-backend-sub000/middleware"
	"github.com/softvence-omega/wellness-backend-sub000/pkg/gateway"
	"github.com/softvence-omega/wellness-backend-sub000/pkg/quota"
	svc "github.com/softvence-omega/wellness-backend-sub000/pkg/services"
	"github.com/softvence-omega/wellness-backend-sub000/pkg/store"

	convRoutes "github.com/softvence-omega/wellness-backend-sub000/routes/conversation"
	websocketRoutes "github.com/softvence-omega/wellness-backend-sub000/routes/websocket"
)

func RegisterRoutes(r *gin.Engine, st *store.ConversationStore, ledger *quota.Ledger, chat *svc.ChatService, hub *gateway.Hub) {
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"msg": "wellness messaging core running"})
	})

	websocketRoutes.Register(r, hub)

	protected := r.Group("/")
	protected.Use(middleware.AuthMiddleware())
	convRoutes.Register(protected, st, ledger, chat)
}
