package notify

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Cross-origin policy is enforced by the CORS middleware in front of the
	// upgrade endpoint.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ClientMessage is an inbound subscription request from a WebSocket client.
type ClientMessage struct {
	Action string   `json:"action"`
	Tables []string `json:"tables"`
}

// Client is one connected WebSocket consumer with its table subscriptions.
// send is never closed; the hub signals shutdown through done so a publish
// in flight can never hit a closed channel.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	done chan struct{}

	mu     sync.RWMutex
	tables map[string]bool
}

// HandleWS upgrades the request and serves events until the client leaves.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}

	client := &Client{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
		tables: make(map[string]bool),
	}
	h.register(client)

	go client.writePump()
	go client.readPump()
}

func (c *Client) deliver(e Event) {
	c.mu.RLock()
	subscribed := len(c.tables) == 0 || c.tables[e.Table]
	c.mu.RUnlock()
	if !subscribed {
		return
	}

	payload, err := json.Marshal(e)
	if err != nil {
		return
	}
	select {
	case c.send <- payload:
	default:
		// Slow consumer; drop the event rather than block publishers.
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}

		c.mu.Lock()
		switch msg.Action {
		case "subscribe":
			for _, table := range msg.Tables {
				c.tables[table] = true
			}
		case "unsubscribe":
			for _, table := range msg.Tables {
				delete(c.tables, table)
			}
		}
		c.mu.Unlock()
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
