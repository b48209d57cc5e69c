// Package servicetest provides an in-process LaserStrike backend for tests.
//
// Backend serves the HTTP endpoints used by service.APIClient and the
// /ws/{playerId} realtime endpoint used by the realtime package. Tests can
// push arbitrary frames to connected players and inspect what clients sent.
package servicetest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/SpherCodes/LaserStrike/game/player"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Backend is a fake backend server
type Backend struct {
	Server *httptest.Server

	mu        sync.Mutex
	players   map[int]player.Player
	snapshots []string
	conns     map[int]*websocket.Conn
	received  []map[string]interface{}
	resets    int

	// AutoReply answers every frame carrying a requestId with
	// {requestId, success: true} when set.
	AutoReply bool
	// RejectWS makes the realtime endpoint refuse upgrades.
	RejectWS bool

	connected chan int
	inbox     chan map[string]interface{}
}

// NewBackend starts a fake backend. Close it with Close.
func NewBackend() *Backend {
	b := &Backend{
		players:   make(map[int]player.Player),
		conns:     make(map[int]*websocket.Conn),
		connected: make(chan int, 16),
		inbox:     make(chan map[string]interface{}, 64),
	}
	b.Server = httptest.NewServer(http.HandlerFunc(b.serveHTTP))
	return b
}

// URL returns the http base URL
func (b *Backend) URL() string {
	return b.Server.URL
}

// Close shuts the server and all realtime connections down
func (b *Backend) Close() {
	b.mu.Lock()
	for id, c := range b.conns {
		c.Close()
		delete(b.conns, id)
	}
	b.mu.Unlock()
	b.Server.Close()
}

// AddPlayer seeds a player
func (b *Backend) AddPlayer(p player.Player) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.players[p.ID] = p
}

// Player returns a stored player
func (b *Backend) Player(id int) (player.Player, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.players[id]
	return p, ok
}

// AddSnapshot appends a captured image URL
func (b *Backend) AddSnapshot(url string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.snapshots = append(b.snapshots, url)
}

// Resets returns how many times /admin/reset was called
func (b *Backend) Resets() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.resets
}

// Received returns every frame clients sent so far
func (b *Backend) Received() []map[string]interface{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]map[string]interface{}{}, b.received...)
}

// WaitConnected blocks until a player connects or the timeout passes
func (b *Backend) WaitConnected(timeout time.Duration) (int, bool) {
	select {
	case id := <-b.connected:
		return id, true
	case <-time.After(timeout):
		return 0, false
	}
}

// NextMessage returns the next frame a client sent
func (b *Backend) NextMessage(timeout time.Duration) (map[string]interface{}, bool) {
	select {
	case msg := <-b.inbox:
		return msg, true
	case <-time.After(timeout):
		return nil, false
	}
}

// Push writes a JSON frame to a connected player
func (b *Backend) Push(playerID int, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return b.PushRaw(playerID, data)
}

// PushRaw writes raw bytes as a text frame to a connected player
func (b *Backend) PushRaw(playerID int, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	conn, ok := b.conns[playerID]
	if !ok {
		return websocket.ErrCloseSent
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

// Broadcast writes a JSON frame to every connected player
func (b *Backend) Broadcast(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, conn := range b.conns {
		conn.WriteMessage(websocket.TextMessage, data)
	}
}

// Drop closes a player's realtime connection from the server side
func (b *Backend) Drop(playerID int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if conn, ok := b.conns[playerID]; ok {
		conn.Close()
		delete(b.conns, playerID)
	}
}

func (b *Backend) serveHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimRight(r.URL.Path, "/")

	switch {
	case path == "" && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "message": "Service is running"})

	case path == "/users" && r.Method == http.MethodGet:
		b.mu.Lock()
		byID := make(map[string]player.Player, len(b.players))
		for id, p := range b.players {
			byID[strconv.Itoa(id)] = p
		}
		b.mu.Unlock()
		writeJSON(w, http.StatusOK, byID)

	case path == "/users" && r.Method == http.MethodPost:
		var p player.Player
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": "invalid user"})
			return
		}
		b.AddPlayer(p)
		writeJSON(w, http.StatusOK, map[string]interface{}{"message": "User created successfully", "user": p})

	case strings.HasPrefix(path, "/users/"):
		b.serveUser(w, r, strings.TrimPrefix(path, "/users/"))

	case path == "/admin/images" && r.Method == http.MethodGet:
		b.mu.Lock()
		snaps := append([]string{}, b.snapshots...)
		b.mu.Unlock()
		writeJSON(w, http.StatusOK, snaps)

	case path == "/admin/reset" && r.Method == http.MethodGet:
		b.mu.Lock()
		b.players = make(map[int]player.Player)
		b.snapshots = nil
		b.resets++
		b.mu.Unlock()
		b.Broadcast(map[string]string{"type": "game_reset"})
		writeJSON(w, http.StatusOK, map[string]string{"message": "Game reset"})

	case strings.HasPrefix(path, "/ws/"):
		b.serveWS(w, r, strings.TrimPrefix(path, "/ws/"))

	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not Found"})
	}
}

func (b *Backend) serveUser(w http.ResponseWriter, r *http.Request, rawID string) {
	id, err := strconv.Atoi(rawID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "User with user_id:" + rawID + " not found"})
		return
	}

	b.mu.Lock()
	p, ok := b.players[id]
	if ok && r.Method == http.MethodDelete {
		delete(b.players, id)
	}
	b.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "User with user_id:" + rawID + " not found"})
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (b *Backend) serveWS(w http.ResponseWriter, r *http.Request, rawID string) {
	id, err := strconv.Atoi(rawID)
	if err != nil || b.RejectWS {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	b.mu.Lock()
	if old, ok := b.conns[id]; ok {
		old.Close()
	}
	b.conns[id] = conn
	b.mu.Unlock()

	select {
	case b.connected <- id:
	default:
	}

	go b.readLoop(id, conn)
}

func (b *Backend) readLoop(id int, conn *websocket.Conn) {
	defer func() {
		b.mu.Lock()
		if b.conns[id] == conn {
			delete(b.conns, id)
		}
		b.mu.Unlock()
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var msg map[string]interface{}
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}

		b.mu.Lock()
		b.received = append(b.received, msg)
		autoReply := b.AutoReply
		b.mu.Unlock()

		select {
		case b.inbox <- msg:
		default:
		}

		if reqID, ok := msg["requestId"].(string); ok && autoReply {
			b.Push(id, map[string]interface{}{"requestId": reqID, "success": true, "message": "ok"})
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
