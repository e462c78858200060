package conversation

import (
	"github.com/gin-gonic/gin"
	"github.com/softvence-omega/wellness-backend-sub000/controllers"
	"github.com/softvence-omega/wellness-backend-sub000/middleware"
	"github.com/softvence-omega/wellness-backend-sub000/pkg/quota"
	svc "github.com/softvence-omega/wellness-backend-sub000/pkg/services"
	"github.com/softvence-omega/wellness-backend-sub000/pkg/store"
)

// Register registers conversation routes (protected)
func Register(g *gin.RouterGroup, st *store.ConversationStore, ledger *quota.Ledger, chat *svc.ChatService) {
	g.POST("/conversations", controllers.CreateConversation(st))
	g.GET("/conversations", controllers.ListConversations(st))
	g.GET("/conversations/:conversation_id/messages", controllers.ListMessages(st))
	g.DELETE("/conversations/:conversation_id", controllers.DeleteConversation(st))
	// Basic rate limiting on the chat POST endpoint
	g.POST("/conversations/:conversation_id/messages", middleware.RateLimit(), controllers.SendMessage(chat, st))
	g.GET("/usage", controllers.GetUsage(ledger))
}
