package relay

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	maxFrameSize = 1 << 20 // 1MB
	sendBuffer   = 256
)

// clientEvent is one inbound JSON frame.
type clientEvent struct {
	Type   string `json:"type"`
	ChatID string `json:"chatId"`
	Text   string `json:"text"`
}

// Client is one live websocket session belonging to exactly one user.
type Client struct {
	id     string
	userID string
	token  string // replayed on upstream calls for this connection

	hub  *Hub
	srv  *Server
	conn *websocket.Conn

	// send is never closed; the hub closes done instead when it drops the
	// client, so the read pump can enqueue error frames without racing the
	// hub goroutine.
	send chan []byte
	done chan struct{}

	// Conversation rooms this client has joined. Owned by the hub goroutine.
	rooms map[string]struct{}
}

// enqueue hands a frame to the write pump without blocking the caller.
// Safe after the hub has dropped the client: the frame is discarded.
func (c *Client) enqueue(payload []byte) {
	select {
	case <-c.done:
	case c.send <- payload:
	default:
	}
}

// readPump reads frames from the socket and dispatches them. Events from one
// connection are handled sequentially, so a single client's sends are relayed
// in submission order.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxFrameSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("chat-relay-service: ws read: %v", err)
			}
			return
		}

		var ev clientEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			// Malformed frames are dropped, not fatal to the connection.
			continue
		}
		c.srv.dispatch(c, ev)
	}
}

// writePump drains the send channel onto the socket and keeps the connection
// alive with periodic pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			// Hub dropped this client.
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case payload := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
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
