package gateway

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"

	"github.com/softvence-omega/wellness-backend-sub000/models"
	"github.com/softvence-omega/wellness-backend-sub000/pkg/services"
	"github.com/softvence-omega/wellness-backend-sub000/pkg/store"
)

// Hub tracks live connections and their room membership. A room is a
// conversation: the room key is the conversation id and access is
// validated against conversation ownership.
type Hub struct {
	mu      sync.RWMutex
	rooms   map[uint]map[*Client]struct{}
	members map[*Client]uint // connection -> joined conversation

	store        *store.ConversationStore
	chat         *services.ChatService
	historyLimit int
}

func NewHub(st *store.ConversationStore, chat *services.ChatService, historyLimit int) *Hub {
	return &Hub{
		rooms:        make(map[uint]map[*Client]struct{}),
		members:      make(map[*Client]uint),
		store:        st,
		chat:         chat,
		historyLimit: historyLimit,
	}
}

// Join admits a client to a conversation's room and replays recent
// history oldest-first. Joining a new room implicitly leaves the
// previous one.
func (h *Hub) Join(c *Client, conversationID uint) {
	if _, err := h.store.GetConversation(conversationID, c.accountID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.queue(errorEvent("conversation not found"))
		} else {
			log.Printf("[ws] join lookup failed for client %s: %v", c.id, err)
			c.queue(errorEvent("internal error"))
		}
		return
	}

	history, err := h.store.RecentMessages(conversationID, h.historyLimit)
	if err != nil {
		log.Printf("[ws] history fetch failed for client %s: %v", c.id, err)
		c.queue(errorEvent("internal error"))
		return
	}

	h.mu.Lock()
	h.removeLocked(c)
	if h.rooms[conversationID] == nil {
		h.rooms[conversationID] = make(map[*Client]struct{})
	}
	h.rooms[conversationID][c] = struct{}{}
	h.members[c] = conversationID
	h.mu.Unlock()

	log.Printf("[ws] client %s joined conversation %d", c.id, conversationID)
	c.queue(joinedEvent(conversationID))
	c.queue(historyEvent(conversationID, history))
}

// Leave removes the client from its current room, if any.
func (h *Hub) Leave(c *Client) {
	h.mu.Lock()
	h.removeLocked(c)
	h.mu.Unlock()
}

// Disconnect performs leave cleanup and releases the send queue.
func (h *Hub) Disconnect(c *Client) {
	h.Leave(c)
	c.closeSend()
}

func (h *Hub) removeLocked(c *Client) {
	conversationID, ok := h.members[c]
	if !ok {
		return
	}
	delete(h.members, c)
	if room := h.rooms[conversationID]; room != nil {
		delete(room, c)
		if len(room) == 0 {
			delete(h.rooms, conversationID)
		}
	}
}

// Broadcast delivers an event to every connection that is a member of
// the room at this moment. Delivery is best effort; members whose
// transport is broken or queue is full miss the event and recover from
// persisted history on their next join.
func (h *Hub) Broadcast(conversationID uint, ev *ServerEvent) {
	h.mu.RLock()
	room := h.rooms[conversationID]
	targets := make([]*Client, 0, len(room))
	for c := range room {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		c.queue(ev)
	}
}

// HandleMessage runs one orchestrated exchange for a client's inbound
// message, broadcasting progress to the room. The exchange keeps its
// own context so a mid-stream disconnect never aborts persistence.
func (h *Hub) HandleMessage(c *Client, content string) {
	h.mu.RLock()
	conversationID, joined := h.members[c]
	h.mu.RUnlock()

	if !joined {
		c.queue(errorEvent("not in a room"))
		return
	}
	if strings.TrimSpace(content) == "" {
		c.queue(errorEvent("message content is required"))
		return
	}

	sink := services.StreamSink{
		OnUserMessage: func(msg *models.Message) {
			h.Broadcast(conversationID, messageEvent(msg, 0, 0))
		},
		OnToken: func(chunk services.Chunk) {
			if chunk.Final {
				return
			}
			h.Broadcast(conversationID, tokenEvent(conversationID, chunk.Token))
		},
	}

	result, err := h.chat.HandleMessage(context.Background(), conversationID, c.accountID, content, sink)
	if err != nil {
		log.Printf("[ws] exchange failed for client %s: %v", c.id, err)
		c.queue(errorEvent("failed to process message"))
		return
	}

	switch {
	case result.Expired != nil:
		c.queue(expiredEvent(conversationID, result.Expired.Message))
	case result.Success != nil:
		h.Broadcast(conversationID, messageEvent(result.Success.AssistantMessage,
			result.Success.PromptTokens, result.Success.CompletionTokens))
	}
}
