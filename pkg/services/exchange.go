package services

import (
	"context"
	"log"
	"strings"

	"github.com/softvence-omega/wellness-backend-sub000/models"
	"github.com/softvence-omega/wellness-backend-sub000/pkg/quota"
	"github.com/softvence-omega/wellness-backend-sub000/pkg/store"
)

// ChatService orchestrates one inbound message end to end: persist the
// user turn, gate on quota, stream the assistant reply, persist it.
type ChatService struct {
	store     *store.ConversationStore
	ledger    *quota.Ledger
	assistant *AssistantClient
}

func NewChatService(st *store.ConversationStore, ledger *quota.Ledger, assistant *AssistantClient) *ChatService {
	return &ChatService{store: st, ledger: ledger, assistant: assistant}
}

// ExchangeSuccess is the outcome of a completed exchange.
type ExchangeSuccess struct {
	UserMessage      *models.Message
	AssistantMessage *models.Message
	PromptTokens     int
	CompletionTokens int
}

// ExchangeExpired is the outcome when the quota gate rejects the
// assistant step. The user message stays persisted.
type ExchangeExpired struct {
	Message string
}

// ExchangeResult holds exactly one of the two outcome shapes; callers
// must branch on which field is set.
type ExchangeResult struct {
	Success *ExchangeSuccess
	Expired *ExchangeExpired
}

// StreamSink receives progress callbacks during an exchange. Callbacks
// run on the orchestration goroutine in strict emission order; nil
// fields are skipped.
type StreamSink struct {
	// OnUserMessage fires once the inbound message is durably stored.
	OnUserMessage func(*models.Message)
	// OnToken fires per chunk, including the final sentinel.
	OnToken func(Chunk)
}

// HandleMessage runs one exchange. Assistant failures are absorbed into
// the fallback reply and never abort the run; storage failures are
// fatal to this exchange only and surface as the returned error.
func (s *ChatService) HandleMessage(ctx context.Context, conversationID, senderID uint, content string, sink StreamSink) (*ExchangeResult, error) {
	if strings.TrimSpace(content) == "" {
		return nil, store.ErrEmptyMessage
	}

	// Persist the user turn before anything can fail downstream so the
	// message is never lost.
	userMsg, err := s.store.AppendMessage(conversationID, senderID, models.MessageKindUser, content)
	if err != nil {
		return nil, err
	}
	if sink.OnUserMessage != nil {
		sink.OnUserMessage(userMsg)
	}

	allowed, err := s.ledger.TryIncrement(senderID, quota.CounterPrompts)
	if err != nil {
		return nil, err
	}
	if !allowed {
		log.Printf("[chat] prompt quota exhausted for account %d", senderID)
		return &ExchangeResult{Expired: &ExchangeExpired{Message: "quota exceeded"}}, nil
	}

	var full strings.Builder
	var promptTokens, completionTokens int
	for chunk := range s.assistant.StreamReply(ctx, content, senderID) {
		if chunk.Final {
			promptTokens = chunk.PromptTokens
			completionTokens = chunk.CompletionTokens
		} else {
			full.WriteString(chunk.Token)
		}
		if sink.OnToken != nil {
			sink.OnToken(chunk)
		}
	}

	replyText := strings.TrimSpace(full.String())
	if replyText == "" {
		// ctx was cancelled before any chunk arrived; the fallback is
		// still a valid durable reply.
		replyText = FallbackReply(senderID)
	}

	assistantMsg, err := s.store.AppendMessage(conversationID, models.AssistantSenderID, models.MessageKindAssistant, replyText)
	if err != nil {
		return nil, err
	}

	return &ExchangeResult{Success: &ExchangeSuccess{
		UserMessage:      userMsg,
		AssistantMessage: assistantMsg,
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
	}}, nil
}
