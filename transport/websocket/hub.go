package websocket

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512
)

// Views a local UI can attach to
const (
	ViewPlayer    = "player"
	ViewSpectator = "spectator"
	ViewAdmin     = "admin"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Local UIs are served from the same console, phones join via tunnel
		return true
	},
}

// Message represents a WebSocket message
type Message struct {
	// View limits delivery to clients of one view; empty means everyone.
	View  string      `json:"view,omitempty"`
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
	Time  time.Time   `json:"time"`
}

// Client represents a WebSocket client
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	view string
}

// Hub maintains the set of active clients and broadcasts messages
type Hub struct {
	// Registered clients by view
	views map[string]map[*Client]bool

	// Outbound messages for clients
	broadcast chan *Message

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Closed when Run returns
	done chan struct{}

	clients atomic.Int64
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	return &Hub{
		views:      make(map[string]map[*Client]bool),
		broadcast:  make(chan *Message, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's event loop. It returns when ctx is done.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			close(h.done)
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastMessage(message)
		}
	}
}

// Clients returns the number of connected clients
func (h *Hub) Clients() int {
	return int(h.clients.Load())
}

// ServeWS handles WebSocket requests from local UIs
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, view string) {
	if view == "" {
		view = ViewPlayer
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := &Client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, 256),
		view: view,
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	// Start client goroutines
	go client.writePump()
	go client.readPump()
}

// BroadcastEvent sends an event to every client
func (h *Hub) BroadcastEvent(event string, data interface{}) {
	h.BroadcastToView("", event, data)
}

// BroadcastToView sends an event to the clients of one view
func (h *Hub) BroadcastToView(view, event string, data interface{}) {
	message := &Message{
		View:  view,
		Event: event,
		Data:  data,
		Time:  time.Now(),
	}

	select {
	case h.broadcast <- message:
	default:
		log.Printf("Dropping %s event: broadcast queue full", event)
	}
}

// registerClient adds a client to a view
func (h *Hub) registerClient(client *Client) {
	if h.views[client.view] == nil {
		h.views[client.view] = make(map[*Client]bool)
	}
	h.views[client.view][client] = true
	h.clients.Add(1)

	log.Printf("Client registered for view %s (total clients: %d)",
		client.view, len(h.views[client.view]))
}

// unregisterClient removes a client from its view
func (h *Hub) unregisterClient(client *Client) {
	if clients, ok := h.views[client.view]; ok {
		if _, ok := clients[client]; ok {
			delete(clients, client)
			close(client.send)
			h.clients.Add(-1)

			// Clean up empty views
			if len(clients) == 0 {
				delete(h.views, client.view)
			}

			log.Printf("Client unregistered from view %s (remaining clients: %d)",
				client.view, len(clients))
		}
	}
}

func (h *Hub) closeAll() {
	for _, clients := range h.views {
		for client := range clients {
			h.unregisterClient(client)
		}
	}
}

// broadcastMessage sends a message to the clients it targets
func (h *Hub) broadcastMessage(message *Message) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("Failed to marshal broadcast message: %v", err)
		return
	}

	for view, clients := range h.views {
		if message.View != "" && message.View != view {
			continue
		}
		for client := range clients {
			select {
			case client.send <- data:
			default:
				// Client's send channel is full, drop it
				h.unregisterClient(client)
			}
		}
	}
}

// readPump drains the connection so pongs and close frames are processed
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		// Local UIs act through the REST API, incoming frames are ignored
		_, _, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}
	}
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
