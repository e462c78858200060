package gateway

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 1 << 20 // 1MB
	sendQueueSize  = 256
)

// Client is one live websocket connection bound to an authenticated
// account. It belongs to at most one room at a time.
type Client struct {
	id        string
	accountID uint
	hub       *Hub
	conn      *websocket.Conn

	mu     sync.Mutex
	closed bool
	send   chan *ServerEvent
}

func NewClient(hub *Hub, conn *websocket.Conn, accountID uint) *Client {
	return &Client{
		id:        uuid.NewString(),
		accountID: accountID,
		hub:       hub,
		conn:      conn,
		send:      make(chan *ServerEvent, sendQueueSize),
	}
}

// queue hands an event to the write pump without blocking. A full queue
// means the consumer is too slow; the event is dropped, matching the
// best-effort broadcast guarantee. Broadcasters may hold a membership
// snapshot taken before the client disconnected, so queue must stay
// safe after closeSend.
func (c *Client) queue(ev *ServerEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- ev:
	default:
		log.Printf("[ws] send queue full for client %s, dropping %s event", c.id, ev.Type)
	}
}

// closeSend releases the send queue exactly once. Late queue calls
// become no-ops instead of sends on a closed channel.
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// ReadPump consumes inbound frames until the connection dies, then
// performs the same cleanup as an explicit leave.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Disconnect(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var ev ClientEvent
		if err := c.conn.ReadJSON(&ev); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Printf("[ws] read error on client %s: %v", c.id, err)
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))

		switch ev.Type {
		case OpJoin:
			c.hub.Join(c, ev.ConversationID)
		case OpMessage:
			c.hub.HandleMessage(c, ev.Content)
		case OpLeave:
			c.hub.Leave(c)
		default:
			c.queue(errorEvent("unknown event type"))
		}
	}
}

// WritePump drains the send queue onto the wire and keeps the
// connection alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case ev, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(ev); err != nil {
				log.Printf("[ws] write error on client %s: %v", c.id, err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
