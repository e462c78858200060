// wsprobe is a small smoke-test client for the messaging gateway: it
// dials the websocket endpoint, joins a conversation, sends one message
// and prints every event until the exchange finishes.
package main

import (
	"flag"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

type clientEvent struct {
	Type           string `json:"type"`
	ConversationID uint   `json:"conversation_id,omitempty"`
	Content        string `json:"content,omitempty"`
}

type serverEvent struct {
	Type             string         `json:"type"`
	ConversationID   uint           `json:"conversation_id,omitempty"`
	History          []any          `json:"history,omitempty"`
	Token            string         `json:"token,omitempty"`
	Message          map[string]any `json:"message,omitempty"`
	PromptTokens     int            `json:"prompt_tokens,omitempty"`
	CompletionTokens int            `json:"completion_tokens,omitempty"`
	Error            string         `json:"error,omitempty"`
}

func main() {
	addr := flag.String("addr", "localhost:5000", "gateway host:port")
	token := flag.String("token", "", "JWT for the account")
	conversation := flag.Uint("conversation", 0, "conversation id to join")
	message := flag.String("message", "How did I sleep this week?", "message to send")
	timeout := flag.Duration("timeout", 90*time.Second, "overall deadline")
	flag.Parse()

	if *token == "" || *conversation == 0 {
		fmt.Fprintln(os.Stderr, "usage: wsprobe -token JWT -conversation ID [-message ...]")
		os.Exit(2)
	}

	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws/chat", RawQuery: "token=" + url.QueryEscape(*token)}
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dial: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(*timeout))

	if err := conn.WriteJSON(clientEvent{Type: "join", ConversationID: *conversation}); err != nil {
		fmt.Fprintf(os.Stderr, "join: %v\n", err)
		os.Exit(1)
	}

	sent := false
	for {
		var ev serverEvent
		if err := conn.ReadJSON(&ev); err != nil {
			fmt.Fprintf(os.Stderr, "read: %v\n", err)
			os.Exit(1)
		}

		switch ev.Type {
		case "joined":
			fmt.Printf("joined conversation %d\n", ev.ConversationID)
		case "history":
			fmt.Printf("history: %d messages\n", len(ev.History))
			if !sent {
				sent = true
				if err := conn.WriteJSON(clientEvent{Type: "message", Content: *message}); err != nil {
					fmt.Fprintf(os.Stderr, "send: %v\n", err)
					os.Exit(1)
				}
			}
		case "token":
			fmt.Print(ev.Token)
		case "message":
			if ev.Message["kind"] == "assistant-response" {
				fmt.Printf("\nfinal message (prompt=%d completion=%d tokens)\n",
					ev.PromptTokens, ev.CompletionTokens)
				return
			}
		case "expired":
			fmt.Printf("quota expired: %s\n", ev.Error)
			return
		case "error":
			fmt.Fprintf(os.Stderr, "error: %s\n", ev.Error)
			os.Exit(1)
		}
	}
}
