package gateway

import (
	"time"

	"github.com/softvence-omega/wellness-backend-sub000/models"
)

// Client-initiated operation types.
const (
	OpJoin    = "join"
	OpMessage = "message"
	OpLeave   = "leave"
)

// Server-initiated event types. This is a closed set: every event a
// client can receive is one of these, dispatched by exhaustive switch
// on the sending side.
const (
	EventJoined  = "joined"
	EventHistory = "history"
	EventToken   = "token"
	EventMessage = "message"
	EventExpired = "expired"
	EventError   = "error"
)

// ClientEvent is one inbound frame from a connection.
type ClientEvent struct {
	Type           string `json:"type"`
	ConversationID uint   `json:"conversation_id,omitempty"`
	Content        string `json:"content,omitempty"`
}

// MessagePayload is the wire shape of a persisted message.
type MessagePayload struct {
	ID             uint      `json:"id"`
	ConversationID uint      `json:"conversation_id"`
	SenderID       uint      `json:"sender_id"`
	Kind           string    `json:"kind"`
	Text           string    `json:"text"`
	Timestamp      time.Time `json:"timestamp"`
}

func toPayload(m *models.Message) *MessagePayload {
	return &MessagePayload{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Kind:           m.Kind,
		Text:           m.Text,
		Timestamp:      m.Timestamp,
	}
}

// ServerEvent is one outbound frame. Exactly the fields for its Type
// are populated.
type ServerEvent struct {
	Type             string           `json:"type"`
	ConversationID   uint             `json:"conversation_id,omitempty"`
	History          []MessagePayload `json:"history,omitempty"`
	Token            string           `json:"token,omitempty"`
	Message          *MessagePayload  `json:"message,omitempty"`
	PromptTokens     int              `json:"prompt_tokens,omitempty"`
	CompletionTokens int              `json:"completion_tokens,omitempty"`
	Error            string           `json:"error,omitempty"`
	Timestamp        time.Time        `json:"timestamp"`
}

func newEvent(typ string) *ServerEvent {
	return &ServerEvent{Type: typ, Timestamp: time.Now()}
}

func joinedEvent(conversationID uint) *ServerEvent {
	ev := newEvent(EventJoined)
	ev.ConversationID = conversationID
	return ev
}

func historyEvent(conversationID uint, msgs []models.Message) *ServerEvent {
	ev := newEvent(EventHistory)
	ev.ConversationID = conversationID
	ev.History = make([]MessagePayload, len(msgs))
	for i := range msgs {
		ev.History[i] = *toPayload(&msgs[i])
	}
	return ev
}

func tokenEvent(conversationID uint, token string) *ServerEvent {
	ev := newEvent(EventToken)
	ev.ConversationID = conversationID
	ev.Token = token
	return ev
}

func messageEvent(msg *models.Message, promptTokens, completionTokens int) *ServerEvent {
	ev := newEvent(EventMessage)
	ev.ConversationID = msg.ConversationID
	ev.Message = toPayload(msg)
	ev.PromptTokens = promptTokens
	ev.CompletionTokens = completionTokens
	return ev
}

func expiredEvent(conversationID uint, reason string) *ServerEvent {
	ev := newEvent(EventExpired)
	ev.ConversationID = conversationID
	ev.Error = reason
	return ev
}

func errorEvent(msg string) *ServerEvent {
	ev := newEvent(EventError)
	ev.Error = msg
	return ev
}
