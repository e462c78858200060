package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/softvence-omega/wellness-backend-sub000/models"
	"github.com/softvence-omega/wellness-backend-sub000/pkg/quota"
	"github.com/softvence-omega/wellness-backend-sub000/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type chatFixture struct {
	db    *gorm.DB
	store *store.ConversationStore
	chat  *ChatService
	conv  *models.Conversation
}

func newChatFixture(t *testing.T, assistantURL string, promptCeiling int) *chatFixture {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "test.db") + "?_busy_timeout=5000"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Conversation{},
		&models.Message{},
		&models.Subscription{},
		&models.QuotaUsage{},
	))

	st := store.NewConversationStore(db)
	ledger := quota.NewLedger(db, map[string]quota.Limits{
		models.TierFree: {Prompts: promptCeiling, DocScans: 1},
	})
	assistant := NewAssistantClient(assistantURL, time.Second, nil, 0, time.Millisecond)
	chat := NewChatService(st, ledger, assistant)

	conv, err := st.CreateConversation(1, "wellness chat")
	require.NoError(t, err)

	return &chatFixture{db: db, store: st, chat: chat, conv: conv}
}

func TestHandleMessage_Success(t *testing.T) {
	srv := assistantBackend(t, "stretch for ten minutes")
	f := newChatFixture(t, srv.URL, 10)

	var userSaved *models.Message
	var tokens []string
	sink := StreamSink{
		OnUserMessage: func(m *models.Message) { userSaved = m },
		OnToken: func(c Chunk) {
			if !c.Final {
				tokens = append(tokens, c.Token)
			}
		},
	}

	result, err := f.chat.HandleMessage(context.Background(), f.conv.ID, 1, "my back hurts", sink)
	require.NoError(t, err)
	require.NotNil(t, result.Success)
	assert.Nil(t, result.Expired, "outcome shapes are disjoint")

	require.NotNil(t, userSaved)
	assert.Equal(t, models.MessageKindUser, userSaved.Kind)
	assert.Equal(t, "my back hurts", userSaved.Text)

	assert.Equal(t, []string{"stretch ", "for ", "ten ", "minutes "}, tokens)

	assistantMsg := result.Success.AssistantMessage
	require.NotNil(t, assistantMsg)
	assert.Equal(t, models.MessageKindAssistant, assistantMsg.Kind)
	assert.Equal(t, models.AssistantSenderID, assistantMsg.SenderID)
	assert.Equal(t, "stretch for ten minutes", assistantMsg.Text)
	assert.Equal(t, 3, result.Success.PromptTokens)
	assert.Equal(t, 4, result.Success.CompletionTokens)

	msgs, _, err := f.store.ListMessages(f.conv.ID, 1, 20)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, models.MessageKindUser, msgs[0].Kind)
	assert.Equal(t, models.MessageKindAssistant, msgs[1].Kind)
}

func TestHandleMessage_QuotaScenario(t *testing.T) {
	// ceiling 2, three messages in quick succession: two successes
	// then an expired outcome with the user message still persisted
	srv := assistantBackend(t, "ok")
	f := newChatFixture(t, srv.URL, 2)

	for i := 0; i < 2; i++ {
		result, err := f.chat.HandleMessage(context.Background(), f.conv.ID, 1, "message", StreamSink{})
		require.NoError(t, err)
		require.NotNil(t, result.Success, "send %d should succeed", i+1)
	}

	result, err := f.chat.HandleMessage(context.Background(), f.conv.ID, 1, "third try", StreamSink{})
	require.NoError(t, err)
	require.NotNil(t, result.Expired)
	assert.Nil(t, result.Success)
	assert.Equal(t, "quota exceeded", result.Expired.Message)

	msgs, _, err := f.store.ListMessages(f.conv.ID, 1, 20)
	require.NoError(t, err)
	// 2 user+assistant pairs plus the third user message, no third reply
	require.Len(t, msgs, 5)
	assert.Equal(t, "third try", msgs[4].Text)
	assert.Equal(t, models.MessageKindUser, msgs[4].Kind)
}

func TestHandleMessage_UpstreamFailureAbsorbed(t *testing.T) {
	f := newChatFixture(t, "", 10) // no backend configured

	result, err := f.chat.HandleMessage(context.Background(), f.conv.ID, 1, "help me", StreamSink{})
	require.NoError(t, err, "upstream failure must not abort the exchange")
	require.NotNil(t, result.Success)
	assert.Equal(t, FallbackReply(1), result.Success.AssistantMessage.Text)
}

func TestHandleMessage_EmptyContent(t *testing.T) {
	srv := assistantBackend(t, "ok")
	f := newChatFixture(t, srv.URL, 10)

	_, err := f.chat.HandleMessage(context.Background(), f.conv.ID, 1, "  ", StreamSink{})
	assert.ErrorIs(t, err, store.ErrEmptyMessage)

	msgs, _, err := f.store.ListMessages(f.conv.ID, 1, 20)
	require.NoError(t, err)
	assert.Empty(t, msgs, "nothing persists on invalid input")
}

func TestHandleMessage_StorageFailureSurfaces(t *testing.T) {
	srv := assistantBackend(t, "ok")
	f := newChatFixture(t, srv.URL, 10)

	_, err := f.chat.HandleMessage(context.Background(), 999, 1, "hello", StreamSink{})
	assert.ErrorIs(t, err, store.ErrNotFound)
}
