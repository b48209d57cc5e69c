package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Maximum message size allowed from peer.
	maxMessageSize = 512 * 1024
)

// ErrClosed is returned by WaitOpen when the connection closed first
var ErrClosed = errors.New("connection closed")

// State is the lifecycle state of a connection
type State int

const (
	StateConnecting State = iota
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	default:
		return "closed"
	}
}

// Conn is one realtime connection for one player
type Conn struct {
	manager  *Manager
	playerID int
	url      string

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	state   State
	ws      *websocket.Conn
	closing bool
	opened  chan struct{}
	done    chan struct{}

	// gorilla connections allow one concurrent writer
	writeMu sync.Mutex
}

func newConn(m *Manager, playerID int, url string) *Conn {
	ctx, cancel := context.WithCancel(context.Background())
	return &Conn{
		manager:  m,
		playerID: playerID,
		url:      url,
		ctx:      ctx,
		cancel:   cancel,
		state:    StateConnecting,
		opened:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// PlayerID returns the player this connection belongs to
func (c *Conn) PlayerID() int {
	return c.playerID
}

// URL returns the endpoint this connection dials
func (c *Conn) URL() string {
	return c.url
}

// State returns the current lifecycle state. A nil connection is closed.
func (c *Conn) State() State {
	if c == nil {
		return StateClosed
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsOpen reports whether the connection can send
func (c *Conn) IsOpen() bool {
	return c.State() == StateOpen
}

// WaitOpen blocks until the connection opens, closes, or ctx ends
func (c *Conn) WaitOpen(ctx context.Context) error {
	if c == nil {
		return ErrClosed
	}
	select {
	case <-c.opened:
		if c.IsOpen() {
			return nil
		}
		return ErrClosed
	case <-c.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed once the connection has closed
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Send transmits payload with a fresh requestId and returns that id.
// Without an open connection it calls onResult(false, NotConnectedMessage)
// synchronously and returns "". It never queues or retries.
func (c *Conn) Send(payload map[string]interface{}, onResult ResultFunc) string {
	if !c.IsOpen() {
		logger := defaultLogger
		if c != nil {
			logger = c.manager.logger
		}
		logger.Printf("[realtime] WebSocket is not connected")
		if onResult != nil {
			onResult(false, NotConnectedMessage)
		}
		return ""
	}

	router := c.manager.router
	requestID := NewRequestID()

	if onResult != nil {
		router.addPending(requestID, onResult)
	}

	frame := make(map[string]interface{}, len(payload)+1)
	for k, v := range payload {
		frame[k] = v
	}
	frame[FieldRequestID] = requestID

	data, err := json.Marshal(frame)
	if err != nil {
		c.manager.logger.Printf("[realtime] Failed to marshal outbound message: %v", err)
		if fn := router.takePending(requestID); fn != nil {
			fn(false, err.Error())
		}
		return ""
	}

	if err := c.write(data); err != nil {
		c.manager.logger.Printf("[realtime] Failed to send message: %v", err)
		if fn := router.takePending(requestID); fn != nil {
			fn(false, err.Error())
		}
		return ""
	}

	return requestID
}

// SendCapture sends a capture_image operation for a JPEG image
func (c *Conn) SendCapture(jpeg []byte, playerID int, onResult ResultFunc) string {
	return c.Send(CapturePayload(jpeg, playerID), onResult)
}

func (c *Conn) write(data []byte) error {
	c.mu.Lock()
	ws := c.ws
	c.mu.Unlock()
	if ws == nil {
		return ErrClosed
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	ws.SetWriteDeadline(time.Now().Add(writeWait))
	return ws.WriteMessage(websocket.TextMessage, data)
}

// Close ends the connection. The close handler runs as for any other closure.
func (c *Conn) Close() {
	if c == nil {
		return
	}

	c.mu.Lock()
	c.closing = true
	ws := c.ws
	c.mu.Unlock()

	c.cancel()

	if ws != nil {
		c.writeMu.Lock()
		ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		c.writeMu.Unlock()
		ws.Close()
	}
}

// run dials, then pumps inbound frames to the router until the socket fails
func (c *Conn) run() {
	ws, _, err := c.manager.dialer.DialContext(c.ctx, c.url, nil)
	if err != nil {
		if !c.isClosing() {
			c.handleError(err)
		}
		c.handleClose()
		return
	}

	c.mu.Lock()
	if c.closing {
		c.mu.Unlock()
		ws.Close()
		c.handleClose()
		return
	}
	ws.SetReadLimit(maxMessageSize)
	c.ws = ws
	c.state = StateOpen
	close(c.opened)
	c.mu.Unlock()

	c.handleOpen()
	c.readPump(ws)
	c.handleClose()
}

func (c *Conn) readPump(ws *websocket.Conn) {
	defer ws.Close()

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if !c.isClosing() && websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.handleError(err)
			}
			return
		}
		c.manager.router.Dispatch(data)
	}
}

func (c *Conn) isClosing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closing
}

func (c *Conn) handleOpen() {
	c.manager.logger.Printf("[realtime] WebSocket connection established for player %d", c.playerID)
}

// handleError only logs; closing is left to the read loop
func (c *Conn) handleError(err error) {
	c.manager.logger.Printf("[realtime] WebSocket error: %v", err)
}

func (c *Conn) handleClose() {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return
	}
	c.state = StateClosed
	c.ws = nil
	close(c.done)
	c.mu.Unlock()

	c.cancel()
	c.manager.release(c)
}
