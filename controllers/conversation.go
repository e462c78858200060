package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/softvence-omega/wellness-backend-sub000/middleware"
	"github.com/softvence-omega/wellness-backend-sub000/pkg/quota"
	svc "github.com/softvence-omega/wellness-backend-sub000/pkg/services"
	"github.com/softvence-omega/wellness-backend-sub000/pkg/store"
)

func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	return store.ClampPage(page, limit)
}

func CreateConversation(st *store.ConversationStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body struct {
			Title string `json:"title"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid request body"})
			return
		}

		conv, err := st.CreateConversation(middleware.AccountID(c), body.Title)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"msg": "failed to create conversation"})
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"id":         conv.ID,
			"title":      conv.Title,
			"created_at": conv.CreatedAt,
			"updated_at": conv.UpdatedAt,
		})
	}
}

func ListConversations(st *store.ConversationStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, limit := pageParams(c)

		summaries, total, err := st.ListConversations(middleware.AccountID(c), page, limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"msg": "db error"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"conversations": summaries,
			"total":         total,
			"page":          page,
			"limit":         limit,
			"last_page":     store.LastPage(total, limit),
		})
	}
}

func ListMessages(st *store.ConversationStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		cid, _ := strconv.Atoi(c.Param("conversation_id"))
		page, limit := pageParams(c)

		// ownership check before exposing any history
		if _, err := st.GetConversation(uint(cid), middleware.AccountID(c)); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"msg": "conversation not found"})
			return
		}

		msgs, total, err := st.ListMessages(uint(cid), page, limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"msg": "db error"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"messages":  msgs,
			"total":     total,
			"page":      page,
			"limit":     limit,
			"last_page": store.LastPage(total, limit),
		})
	}
}

func DeleteConversation(st *store.ConversationStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		cid, _ := strconv.Atoi(c.Param("conversation_id"))

		err := st.DeleteConversation(uint(cid), middleware.AccountID(c))
		switch {
		case errors.Is(err, store.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"msg": "conversation not found"})
		case errors.Is(err, store.ErrForbidden):
			c.JSON(http.StatusForbidden, gin.H{"msg": "not the conversation owner"})
		case err != nil:
			c.JSON(http.StatusInternalServerError, gin.H{"msg": "failed to delete conversation"})
		default:
			c.JSON(http.StatusOK, gin.H{"msg": "conversation deleted"})
		}
	}
}

// SendMessage is the non-streaming counterpart of the websocket flow
// for clients that cannot hold a socket open. The two outcome shapes
// are disjoint: success carries the message pair, expired carries only
// the quota notice.
func SendMessage(chat *svc.ChatService, st *store.ConversationStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		accountID := middleware.AccountID(c)
		cid, _ := strconv.Atoi(c.Param("conversation_id"))

		var body struct {
			Message string `json:"message"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"msg": "message is required"})
			return
		}

		if _, err := st.GetConversation(uint(cid), accountID); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"msg": "conversation not found"})
			return
		}

		result, err := chat.HandleMessage(c.Request.Context(), uint(cid), accountID, body.Message, svc.StreamSink{})
		switch {
		case errors.Is(err, store.ErrEmptyMessage):
			c.JSON(http.StatusBadRequest, gin.H{"msg": "message is required"})
		case err != nil:
			c.JSON(http.StatusInternalServerError, gin.H{"msg": "failed to process message"})
		case result.Expired != nil:
			c.JSON(http.StatusOK, gin.H{
				"status":  "expired",
				"message": result.Expired.Message,
			})
		default:
			c.JSON(http.StatusCreated, gin.H{
				"status":            "success",
				"user_message":      result.Success.UserMessage,
				"assistant_message": result.Success.AssistantMessage,
				"prompt_tokens":     result.Success.PromptTokens,
				"completion_tokens": result.Success.CompletionTokens,
			})
		}
	}
}

// GetUsage reports the account's metered counters for the current
// period. Read-only, no atomicity requirement.
func GetUsage(ledger *quota.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		usage, err := ledger.GetUsage(middleware.AccountID(c))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"msg": "db error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"usage": usage})
	}
}
