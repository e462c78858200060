package models

import (
	"time"

	"gorm.io/gorm"
)

// Message kinds. A message is either a human turn or the assistant's
// persisted reply; streamed chunks are never stored.
const (
	MessageKindUser      = "user"
	MessageKindAssistant = "assistant-response"
)

// AssistantSenderID is the reserved sender id for assistant replies.
const AssistantSenderID uint = 0

type Message struct {
	gorm.Model
	ConversationID uint      `gorm:"index;not null"`
	SenderID       uint      `gorm:"index"`
	Kind           string    `gorm:"size:32;not null"` // "user" or "assistant-response"
	Text           string    `gorm:"type:text;not null"`
	Timestamp      time.Time `gorm:"index"`
}
