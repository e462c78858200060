package websocket

import (
	"github.com/gin-gonic/gin"
	"github.com/softvence-omega/wellness-backend-sub000/controllers"
	"github.com/softvence-omega/wellness-backend-sub000/pkg/gateway"
)

func Register(r *gin.Engine, hub *gateway.Hub) {
	r.GET("/ws/chat", controllers.ChatWS(hub))
}
