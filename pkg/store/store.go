package store

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/softvence-omega/wellness-backend-sub000/models"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	maxTitleLen     = 80
)

// ConversationStore owns durability and pagination for conversations
// and their messages.
type ConversationStore struct {
	db *gorm.DB
}

func NewConversationStore(db *gorm.DB) *ConversationStore {
	return &ConversationStore{db: db}
}

// ConversationSummary is one row of a conversation listing.
type ConversationSummary struct {
	ID           uint            `json:"id"`
	Title        string          `json:"title"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	MessageCount int64           `json:"message_count"`
	LastMessage  *models.Message `json:"last_message,omitempty"`
}

// ClampPage normalizes 1-based pagination parameters to sane bounds.
func ClampPage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return page, limit
}

// LastPage computes the last page number for a total row count.
func LastPage(total int64, limit int) int {
	if total == 0 {
		return 1
	}
	return int((total + int64(limit) - 1) / int64(limit))
}

// CreateConversation creates a conversation for the owning account.
// Long titles are truncated the way the chat UI displays them.
func (s *ConversationStore) CreateConversation(accountID uint, title string) (*models.Conversation, error) {
	title = strings.TrimSpace(title)
	if len(title) > maxTitleLen {
		cut := maxTitleLen - 3
		// back off to a rune boundary so the cut never splits a
		// multi-byte character
		for cut > 0 && !utf8.RuneStart(title[cut]) {
			cut--
		}
		title = title[:cut] + "..."
	}
	conv := models.Conversation{AccountID: accountID, Title: title}
	if err := s.db.Create(&conv).Error; err != nil {
		return nil, err
	}
	return &conv, nil
}

// GetConversation fetches a conversation, enforcing ownership. Both a
// missing row and someone else's row surface as ErrNotFound so the
// caller learns nothing about other accounts' conversations.
func (s *ConversationStore) GetConversation(conversationID, accountID uint) (*models.Conversation, error) {
	var conv models.Conversation
	err := s.db.Where("id = ? AND account_id = ?", conversationID, accountID).First(&conv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// ListConversations returns one page of the account's conversations,
// most recently updated first, with the total count for pagination.
func (s *ConversationStore) ListConversations(accountID uint, page, limit int) ([]ConversationSummary, int64, error) {
	page, limit = ClampPage(page, limit)

	var total int64
	if err := s.db.Model(&models.Conversation{}).Where("account_id = ?", accountID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var convs []models.Conversation
	if err := s.db.Where("account_id = ?", accountID).
		Order("updated_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&convs).Error; err != nil {
		return nil, 0, err
	}

	summaries := make([]ConversationSummary, 0, len(convs))
	for _, conv := range convs {
		sum := ConversationSummary{
			ID:        conv.ID,
			Title:     conv.Title,
			CreatedAt: conv.CreatedAt,
			UpdatedAt: conv.UpdatedAt,
		}
		if err := s.db.Model(&models.Message{}).
			Where("conversation_id = ?", conv.ID).
			Count(&sum.MessageCount).Error; err != nil {
			return nil, 0, err
		}
		var last models.Message
		err := s.db.Where("conversation_id = ?", conv.ID).
			Order("timestamp DESC, id DESC").First(&last).Error
		if err == nil {
			sum.LastMessage = &last
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, err
		}
		summaries = append(summaries, sum)
	}
	return summaries, total, nil
}

// AppendMessage persists one message and advances the conversation's
// updated_at to the message timestamp. Messages are immutable once
// written.
func (s *ConversationStore) AppendMessage(conversationID, senderID uint, kind, text string) (*models.Message, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessage
	}

	var msg models.Message
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var conv models.Conversation
		if err := tx.First(&conv, conversationID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		msg = models.Message{
			ConversationID: conversationID,
			SenderID:       senderID,
			Kind:           kind,
			Text:           text,
			Timestamp:      time.Now(),
		}
		if err := tx.Create(&msg).Error; err != nil {
			return err
		}
		return tx.Model(&conv).Update("updated_at", msg.Timestamp).Error
	})
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// ListMessages returns one page of a conversation's messages,
// oldest-first. The query runs newest-first to stay index-friendly and
// the page is reversed before return, so page 1 holds the most recent
// messages while each page reads chronologically.
func (s *ConversationStore) ListMessages(conversationID uint, page, limit int) ([]models.Message, int64, error) {
	page, limit = ClampPage(page, limit)

	var conv models.Conversation
	if err := s.db.First(&conv, conversationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, ErrNotFound
		}
		return nil, 0, err
	}

	var total int64
	if err := s.db.Model(&models.Message{}).Where("conversation_id = ?", conversationID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var msgs []models.Message
	if err := s.db.Where("conversation_id = ?", conversationID).
		Order("timestamp DESC, id DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&msgs).Error; err != nil {
		return nil, 0, err
	}

	reverse(msgs)
	return msgs, total, nil
}

// RecentMessages returns the latest n messages of a conversation in
// chronological order, for history replay on join.
func (s *ConversationStore) RecentMessages(conversationID uint, n int) ([]models.Message, error) {
	msgs, _, err := s.ListMessages(conversationID, 1, n)
	return msgs, err
}

// DeleteConversation removes a conversation and all of its messages.
// Only the owner may delete; anyone else gets ErrForbidden.
func (s *ConversationStore) DeleteConversation(conversationID, accountID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var conv models.Conversation
		if err := tx.First(&conv, conversationID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if conv.AccountID != accountID {
			return ErrForbidden
		}
		if err := tx.Where("conversation_id = ?", conversationID).Delete(&models.Message{}).Error; err != nil {
			return err
		}
		return tx.Delete(&conv).Error
	})
}

func reverse(msgs []models.Message) {
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
}
