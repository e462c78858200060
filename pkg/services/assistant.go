package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/softvence-omega/wellness-backend-sub000/pkg/cache"
)

const fallbackReplyFormat = "I'm currently unavailable. Please try again later. [User: %d]"

// FallbackReply is the deterministic degraded-mode answer used whenever
// the assistant backend cannot produce one. A chat UI must never show a
// failed turn silently, so this is an answer, not an error.
func FallbackReply(accountID uint) string {
	return fmt.Sprintf(fallbackReplyFormat, accountID)
}

// Chunk is one unit of streamed assistant output: a whitespace token
// plus its trailing delimiter. The closing sentinel chunk (Final=true)
// carries approximate token counts instead of text.
type Chunk struct {
	Token            string
	Final            bool
	PromptTokens     int
	CompletionTokens int
}

// AssistantClient talks to the external assistant backend. It owns the
// timeout/fallback policy: callers always get a reply, never an error.
type AssistantClient struct {
	baseURL     string
	httpClient  *http.Client
	replies     *cache.Cache
	cacheTTL    time.Duration
	streamDelay time.Duration
}

// NewAssistantClient builds a client for the backend at baseURL. An
// empty baseURL means the backend is unreachable by definition and
// every ask resolves to the fallback reply. replies may be nil to
// disable caching.
func NewAssistantClient(baseURL string, timeout time.Duration, replies *cache.Cache, cacheTTL, streamDelay time.Duration) *AssistantClient {
	return &AssistantClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpClient:  &http.Client{Timeout: timeout},
		replies:     replies,
		cacheTTL:    cacheTTL,
		streamDelay: streamDelay,
	}
}

type assistantRequest struct {
	Query     string `json:"query"`
	AccountID string `json:"accountId"`
}

type assistantResponse struct {
	Query    string `json:"query"`
	Response string `json:"response"`
}

// Ask resolves the full reply for a query. Timeouts, transport errors,
// non-success statuses and malformed bodies all collapse into the
// fallback reply; they are logged for operators and hidden from users.
func (a *AssistantClient) Ask(ctx context.Context, query string, accountID uint) string {
	key := cache.KeyFromStrings("assistant-reply",
		strconv.FormatUint(uint64(accountID), 10),
		strings.ToLower(strings.TrimSpace(query)))
	if a.replies != nil {
		if v, ok := a.replies.Get(key); ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}

	reply, err := a.ask(ctx, query, accountID)
	if err != nil {
		log.Printf("[assistant] upstream failed for account %d: %v", accountID, err)
		return FallbackReply(accountID)
	}

	if a.replies != nil {
		a.replies.Set(key, reply, a.cacheTTL)
	}
	return reply
}

func (a *AssistantClient) ask(ctx context.Context, query string, accountID uint) (string, error) {
	if a.baseURL == "" {
		return "", fmt.Errorf("assistant backend not configured")
	}

	body, err := json.Marshal(assistantRequest{
		Query:     query,
		AccountID: strconv.FormatUint(uint64(accountID), 10),
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http error: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read error: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBytes)))
	}

	var parsed assistantResponse
	if err := json.Unmarshal(respBytes, &parsed); err != nil {
		return "", fmt.Errorf("decode error: %w", err)
	}
	if strings.TrimSpace(parsed.Response) == "" {
		return "", fmt.Errorf("empty response body")
	}
	return parsed.Response, nil
}

// StreamReply resolves the full reply via Ask and slices it into a lazy
// finite sequence of chunks: one per whitespace token, each carrying a
// trailing delimiter, followed by a Final sentinel with token counts.
// The stream is synthesized locally with a fixed inter-chunk delay; the
// upstream backend answers in one shot. Consumers stop a stream by
// cancelling ctx and draining; the sequence is not restartable.
func (a *AssistantClient) StreamReply(ctx context.Context, query string, accountID uint) <-chan Chunk {
	out := make(chan Chunk)
	go func() {
		defer close(out)

		reply := a.Ask(ctx, query, accountID)
		tokens := strings.Fields(reply)

		for _, tok := range tokens {
			select {
			case out <- Chunk{Token: tok + " "}:
			case <-ctx.Done():
				return
			}
			sleepWithContext(ctx, a.streamDelay)
		}

		final := Chunk{
			Final:            true,
			PromptTokens:     len(strings.Fields(query)),
			CompletionTokens: len(tokens),
		}
		select {
		case out <- final:
		case <-ctx.Done():
		}
	}()
	return out
}

func sleepWithContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
