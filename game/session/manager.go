package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/SpherCodes/LaserStrike/game/player"
	"github.com/SpherCodes/LaserStrike/game/service"
	"github.com/SpherCodes/LaserStrike/transport/realtime"
)

var (
	ErrNoPlayer         = errors.New("no player registered")
	ErrInvalidPlayer    = errors.New("invalid player")
	ErrNotConfigured    = errors.New("realtime connection is not configured")
	ErrPlayerEliminated = errors.New("player has been eliminated")
)

// Route is the view a UI should show
type Route string

const (
	RouteLogin Route = "/login"
	RouteHome  Route = "/"
)

// EventKind identifies what changed in a session
type EventKind string

const (
	EventPlayer       EventKind = "player"
	EventNotification EventKind = "notification"
	EventNavigate     EventKind = "navigate"
	EventGameOver     EventKind = "game_over"
	EventGameReset    EventKind = "game_reset"
	EventConnection   EventKind = "connection"
)

// Event is delivered to session listeners
type Event struct {
	Kind      EventKind      `json:"kind"`
	Player    *player.Player `json:"player,omitempty"`
	Message   string         `json:"message,omitempty"`
	Route     Route          `json:"route,omitempty"`
	Connected bool           `json:"connected,omitempty"`
}

// Listener receives session events
type Listener func(Event)

// Options configures a Session
type Options struct {
	Store    PlayerStore
	Key      string
	Realtime *realtime.Manager

	// Backend registers players remotely when set.
	Backend service.BackendService

	// LivenessInterval defaults to 5 seconds.
	LivenessInterval time.Duration

	Logger *log.Logger
}

// Session holds the local player, its realtime connection and the
// current route
type Session struct {
	store    PlayerStore
	key      string
	rt       *realtime.Manager
	backend  service.BackendService
	interval time.Duration
	logger   *log.Logger

	mu     sync.RWMutex
	player *player.Player
	route  Route

	// conn is the connection the shot subscription is bound to
	conn           *realtime.Conn
	unsubscribe    func()
	lastConnected  bool
	listeners      map[int]Listener
	nextListenerID int
}

// New creates a session. The built-in game reset handling is installed on
// the realtime router immediately.
func New(opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	store := opts.Store
	if store == nil {
		store = NewMemoryStore()
	}
	key := opts.Key
	if key == "" {
		key = "player"
	}
	interval := opts.LivenessInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}

	s := &Session{
		store:     store,
		key:       key,
		rt:        opts.Realtime,
		backend:   opts.Backend,
		interval:  interval,
		logger:    logger,
		route:     RouteLogin,
		listeners: make(map[int]Listener),
	}

	if s.rt != nil {
		s.rt.Router().SetResetHandler(s.handleReset)
	}

	return s
}

// Resume restores a previously registered player from the store
func (s *Session) Resume() (*player.Player, error) {
	p, err := s.store.Load(s.key)
	if errors.Is(err, ErrPlayerNotFound) {
		s.navigate(RouteLogin)
		return nil, ErrNoPlayer
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load player: %w", err)
	}

	s.mu.Lock()
	s.player = p
	s.mu.Unlock()

	s.logger.Printf("[session] Resumed player %d (%s)", p.ID, p.Name)
	s.navigate(RouteHome)
	s.emit(Event{Kind: EventPlayer, Player: p.Clone()})

	return p.Clone(), nil
}

// Register stores a new local player, creating it on the backend when one
// is configured
func (s *Session) Register(ctx context.Context, id int, name string) (*player.Player, error) {
	name = strings.TrimSpace(name)
	if id <= 0 {
		return nil, fmt.Errorf("%w: id must be positive", ErrInvalidPlayer)
	}
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidPlayer)
	}

	p := player.New(id, name)

	if s.backend != nil {
		created, err := s.backend.CreatePlayer(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("failed to register player: %w", err)
		}
		if created != nil && created.ID == id {
			p = created
		}
	}

	if err := s.store.Save(s.key, p); err != nil {
		return nil, fmt.Errorf("failed to save player: %w", err)
	}

	s.mu.Lock()
	s.player = p
	s.mu.Unlock()

	s.logger.Printf("[session] Registered player %d (%s)", p.ID, p.Name)
	s.navigate(RouteHome)
	s.emit(Event{Kind: EventPlayer, Player: p.Clone()})

	return p.Clone(), nil
}

// Player returns a copy of the local player, or nil
func (s *Session) Player() *player.Player {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.player.Clone()
}

// Route returns the view the UI should show
func (s *Session) Route() Route {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.route
}

// Connect acquires the realtime connection for the local player and waits
// for it to open
func (s *Session) Connect(ctx context.Context) (*realtime.Conn, error) {
	conn, err := s.ensureConnection()
	if err != nil {
		return nil, err
	}

	if err := conn.WaitOpen(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	s.reportConnection()
	return conn, nil
}

// ensureConnection acquires without waiting and binds the shot
// subscription to whatever connection Acquire returned
func (s *Session) ensureConnection() (*realtime.Conn, error) {
	if s.rt == nil {
		return nil, ErrNotConfigured
	}

	p := s.Player()
	if p == nil {
		return nil, ErrNoPlayer
	}

	conn := s.rt.Acquire(p.ID)
	if conn == nil {
		return nil, ErrNotConfigured
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if conn != s.conn {
		// Subscribers are discarded whenever a connection closes
		if s.unsubscribe != nil {
			s.unsubscribe()
		}
		s.unsubscribe = s.rt.Router().OnShotEvent(s.handleShot)
		s.conn = conn
	}

	return conn, nil
}

// Connected reports whether the realtime connection is open
func (s *Session) Connected() bool {
	if s.rt == nil {
		return false
	}
	return s.rt.Current().IsOpen()
}

// Strike sends a captured JPEG frame for the local player
func (s *Session) Strike(jpeg []byte, onResult realtime.ResultFunc) (string, error) {
	p := s.Player()
	if p == nil {
		return "", ErrNoPlayer
	}
	if !p.Alive() {
		return "", ErrPlayerEliminated
	}
	if s.rt == nil {
		return "", ErrNotConfigured
	}

	return s.rt.Current().SendCapture(jpeg, p.ID, onResult), nil
}

// SendData sends an arbitrary operation on the realtime connection
func (s *Session) SendData(fields map[string]interface{}, onResult realtime.ResultFunc) string {
	if s.rt == nil {
		if onResult != nil {
			onResult(false, realtime.NotConnectedMessage)
		}
		return ""
	}
	return s.rt.Send(fields, onResult)
}

// Exit forgets the local player and closes the realtime connection
func (s *Session) Exit() error {
	if err := s.store.Delete(s.key); err != nil && !errors.Is(err, ErrPlayerNotFound) {
		return fmt.Errorf("failed to delete player: %w", err)
	}

	s.mu.Lock()
	exiting := s.player
	s.player = nil
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.conn = nil
	s.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	if s.rt != nil {
		s.rt.Disconnect()
	}

	if exiting != nil {
		s.logger.Printf("[session] Player %d exited", exiting.ID)
	}
	s.navigate(RouteLogin)
	return nil
}

// KeepAlive re-acquires the realtime connection every liveness interval
// while a player is registered. It returns when ctx is done.
func (s *Session) KeepAlive(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.checkLiveness()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.checkLiveness()
		}
	}
}

func (s *Session) checkLiveness() {
	if s.Player() == nil {
		s.reportConnection()
		return
	}
	if _, err := s.ensureConnection(); err != nil && !errors.Is(err, ErrNoPlayer) {
		s.logger.Printf("[session] Failed to initialize WebSocket: %v", err)
	}
	s.reportConnection()
}

// reportConnection emits an event when the open state changed
func (s *Session) reportConnection() {
	connected := s.Connected()

	s.mu.Lock()
	changed := connected != s.lastConnected
	s.lastConnected = connected
	s.mu.Unlock()

	if changed {
		s.emit(Event{Kind: EventConnection, Connected: connected})
	}
}

// Subscribe registers a listener. The returned function removes it.
func (s *Session) Subscribe(l Listener) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextListenerID
	s.nextListenerID++
	s.listeners[id] = l
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *Session) emit(ev Event) {
	s.mu.RLock()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.RUnlock()

	for _, l := range listeners {
		l(ev)
	}
}

func (s *Session) navigate(route Route) {
	s.mu.Lock()
	changed := s.route != route
	s.route = route
	s.mu.Unlock()

	if changed {
		s.emit(Event{Kind: EventNavigate, Route: route})
	}
}

// handleShot reconciles the local player with a shot broadcast
func (s *Session) handleShot(ev realtime.ShotEvent) {
	s.mu.Lock()
	if s.player == nil {
		s.mu.Unlock()
		return
	}
	out := s.player.ApplyShot(ev.ShotEvent)
	updated := s.player.Clone()
	s.mu.Unlock()

	if !out.Affected() {
		return
	}

	if err := s.store.Save(s.key, updated); err != nil {
		s.logger.Printf("[session] Failed to save player: %v", err)
	}

	s.logger.Printf("[session] Shot event for player %d as %s: %s", updated.ID, out.Role, out.Message)
	s.emit(Event{Kind: EventPlayer, Player: updated})
	s.emit(Event{Kind: EventNotification, Message: out.Message, Player: updated.Clone()})

	if out.Eliminated {
		s.emit(Event{Kind: EventGameOver, Player: updated.Clone()})
	}
}

// handleReset is the built-in game reset side effect
func (s *Session) handleReset() {
	if err := s.store.Delete(s.key); err != nil && !errors.Is(err, ErrPlayerNotFound) {
		s.logger.Printf("[session] Failed to delete player: %v", err)
	}

	s.mu.Lock()
	s.player = nil
	s.mu.Unlock()

	s.logger.Printf("[session] Game reset, returning to login")
	s.emit(Event{Kind: EventGameReset})
	s.navigate(RouteLogin)
}
