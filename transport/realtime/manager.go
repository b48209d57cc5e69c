package realtime

import (
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/SpherCodes/LaserStrike/game/config"
	"github.com/gorilla/websocket"
)

var defaultLogger = log.Default()

// Options configures a Manager
type Options struct {
	// BaseURL is the backend HTTP base URL. The realtime endpoint is derived
	// from it; an empty BaseURL makes Acquire return nil.
	BaseURL string

	// Dialer defaults to a dialer with a 10 second handshake timeout.
	Dialer *websocket.Dialer

	Logger       *log.Logger
	OrphanPolicy OrphanPolicy
}

// Manager owns the single realtime connection of a session
type Manager struct {
	baseURL string
	dialer  *websocket.Dialer
	logger  *log.Logger
	router  *Router

	mu   sync.Mutex
	conn *Conn
}

// NewManager creates a connection manager
func NewManager(opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = defaultLogger
	}

	dialer := opts.Dialer
	if dialer == nil {
		dialer = &websocket.Dialer{
			Proxy:            websocket.DefaultDialer.Proxy,
			HandshakeTimeout: 10 * time.Second,
		}
	}

	return &Manager{
		baseURL: opts.BaseURL,
		dialer:  dialer,
		logger:  logger,
		router:  NewRouter(logger, opts.OrphanPolicy),
	}
}

// Router returns the event router shared by every connection of this manager
func (m *Manager) Router() *Router {
	return m.router
}

// Acquire returns the current connection if it is open. Otherwise it
// replaces it with a new connection for playerID that dials in the
// background. It returns nil when no backend URL is configured.
//
// Replacing a connection clears the router, so everything registered
// against the old connection is gone before the new one is returned.
func (m *Manager) Acquire(playerID int) *Conn {
	m.mu.Lock()

	if m.conn != nil && m.conn.IsOpen() {
		c := m.conn
		m.mu.Unlock()
		return c
	}

	wsBase, err := config.WebSocketBase(m.baseURL)
	if err != nil {
		m.mu.Unlock()
		m.logger.Printf("[realtime] API URL is not configured. Please set LASERSTRIKE_API_URL or NEXT_PUBLIC_API_URL")
		return nil
	}

	var orphans map[string]ResultFunc
	stale := m.conn
	if stale != nil {
		// A closed connection may not have released yet; its release will
		// see it is no longer current and leave the new state alone.
		orphans = m.router.detach()
	}

	c := newConn(m, playerID, wsBase+"/ws/"+strconv.Itoa(playerID))
	m.conn = c
	m.mu.Unlock()

	if stale != nil {
		go stale.Close()
		m.router.settle(orphans)
	}
	go c.run()

	return c
}

// Current returns the connection reference, which may be nil
func (m *Manager) Current() *Conn {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conn
}

// Send sends payload on the current connection
func (m *Manager) Send(payload map[string]interface{}, onResult ResultFunc) string {
	return m.Current().Send(payload, onResult)
}

// Disconnect closes the current connection, if any
func (m *Manager) Disconnect() {
	m.Current().Close()
}

// release runs when c closes. Only the current connection clears shared
// state, and it does so before Acquire can hand out a replacement.
func (m *Manager) release(c *Conn) {
	m.mu.Lock()
	if m.conn != c {
		m.mu.Unlock()
		return
	}
	m.conn = nil
	orphans := m.router.detach()
	m.mu.Unlock()

	m.logger.Printf("[realtime] WebSocket connection closed for player %d", c.playerID)
	m.router.settle(orphans)
}
