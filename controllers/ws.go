package controllers

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/softvence-omega/wellness-backend-sub000/middleware"
	"github.com/softvence-omega/wellness-backend-sub000/pkg/gateway"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// CORS handled at HTTP level; allow WS here
		return true
	},
}

// ChatWS upgrades the connection and hands it to the gateway hub.
// Authentication rides on ?token=JWT since browsers cannot set headers
// on websocket dials; the token is issued by the identity service.
//
// Client protocol (JSON frames):
//
//	-> {type: "join", conversation_id: number}
//	-> {type: "message", content: string}
//	-> {type: "leave"}
//	<- {type: "joined", conversation_id: number}
//	<- {type: "history", history: [...]}
//	<- {type: "token", token: string}
//	<- {type: "message", message: {...}}
//	<- {type: "expired", error: string}
//	<- {type: "error", error: string}
func ChatWS(hub *gateway.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := strings.TrimSpace(c.Query("token"))
		if tokenStr == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"msg": "missing token query"})
			return
		}
		accountID, ok := middleware.AccountIDFromToken(tokenStr)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"msg": "invalid token"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("[ws] upgrade error: %v", err)
			return
		}

		client := gateway.NewClient(hub, conn, accountID)
		go client.WritePump()
		client.ReadPump()
	}
}
