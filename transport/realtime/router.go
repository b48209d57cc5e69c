package realtime

import (
	"log"
	"sync"
)

// Message reported to callbacks when no connection is open
const (
	NotConnectedMessage     = "WebSocket not connected"
	ConnectionClosedMessage = "connection closed"
)

// ResultFunc receives the outcome of a correlated operation
type ResultFunc func(success bool, message string)

// ShotHandler receives shot broadcasts
type ShotHandler func(ev ShotEvent)

// ResetHandler receives game-reset broadcasts
type ResetHandler func()

// OrphanPolicy decides what happens to pending operations when the
// connection closes before their response arrives
type OrphanPolicy int

const (
	// DropOrphans forgets orphaned callbacks without invoking them
	DropOrphans OrphanPolicy = iota
	// FailOrphans invokes each orphaned callback with (false, "connection closed")
	FailOrphans
)

type subscription[H any] struct {
	handler H
	active  bool
}

// Router classifies inbound frames and fans them out
type Router struct {
	logger *log.Logger
	policy OrphanPolicy

	mu      sync.Mutex
	pending map[string]ResultFunc
	shots   []*subscription[ShotHandler]
	resets  []*subscription[ResetHandler]

	// onReset runs after reset subscribers on every game_reset, whether or
	// not anyone subscribed. It survives teardown.
	onReset func()
}

// NewRouter creates a router
func NewRouter(logger *log.Logger, policy OrphanPolicy) *Router {
	if logger == nil {
		logger = log.Default()
	}
	return &Router{
		logger:  logger,
		policy:  policy,
		pending: make(map[string]ResultFunc),
	}
}

// SetResetHandler installs the built-in game-reset side effect
func (r *Router) SetResetHandler(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onReset = fn
}

// OnShotEvent subscribes to shot broadcasts. The returned function
// unsubscribes and may be called any number of times.
func (r *Router) OnShotEvent(h ShotHandler) (unsubscribe func()) {
	sub := &subscription[ShotHandler]{handler: h, active: true}

	r.mu.Lock()
	r.shots = append(r.shots, sub)
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		sub.active = false
		r.shots = removeSub(r.shots, sub)
	}
}

// OnGameReset subscribes to game-reset broadcasts
func (r *Router) OnGameReset(h ResetHandler) (unsubscribe func()) {
	sub := &subscription[ResetHandler]{handler: h, active: true}

	r.mu.Lock()
	r.resets = append(r.resets, sub)
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		sub.active = false
		r.resets = removeSub(r.resets, sub)
	}
}

func removeSub[H any](subs []*subscription[H], target *subscription[H]) []*subscription[H] {
	for i, s := range subs {
		if s == target {
			return append(subs[:i:i], subs[i+1:]...)
		}
	}
	return subs
}

// Subscribers returns the number of shot and reset subscribers
func (r *Router) Subscribers() (shots, resets int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.shots), len(r.resets)
}

// Pending returns the number of operations awaiting a response
func (r *Router) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

func (r *Router) addPending(id string, fn ResultFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending[id] = fn
}

// takePending removes and returns the callback for id
func (r *Router) takePending(id string) ResultFunc {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn, ok := r.pending[id]
	if !ok {
		return nil
	}
	delete(r.pending, id)
	return fn
}

func (r *Router) isPending(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.pending[id]
	return ok
}

// Classify parses raw against the current pending set
func (r *Router) Classify(raw []byte) (Inbound, error) {
	return Classify(raw, r.isPending)
}

// Dispatch classifies one inbound frame and delivers it
func (r *Router) Dispatch(raw []byte) {
	msg, err := r.Classify(raw)
	if err != nil {
		r.logger.Printf("[realtime] Error parsing WebSocket message: %v", err)
		return
	}

	switch m := msg.(type) {
	case ShotEvent:
		r.notifyShot(m)

	case CorrelatedResponse:
		if fn := r.takePending(m.RequestID); fn != nil {
			fn(m.Success, m.Message)
		}

	case GameReset:
		r.logger.Printf("[realtime] Game has been reset")
		r.notifyReset()

	case Unclassified:
		if m.Ack != nil {
			status := "failed"
			if m.Ack.Success {
				status = "successful"
			}
			r.logger.Printf("[realtime] Operation %s: %s", status, m.Ack.Message)
			return
		}
		r.logger.Printf("[realtime] Dropped unclassified message: %s", truncate(m.Raw, 128))
	}
}

func (r *Router) notifyShot(ev ShotEvent) {
	r.mu.Lock()
	subs := append([]*subscription[ShotHandler](nil), r.shots...)
	r.mu.Unlock()

	for _, sub := range subs {
		if !r.stillActive(func() bool { return sub.active }) {
			continue
		}
		sub.handler(ev)
	}
}

func (r *Router) notifyReset() {
	r.mu.Lock()
	subs := append([]*subscription[ResetHandler](nil), r.resets...)
	builtin := r.onReset
	r.mu.Unlock()

	for _, sub := range subs {
		if !r.stillActive(func() bool { return sub.active }) {
			continue
		}
		sub.handler()
	}

	if builtin != nil {
		builtin()
	}
}

// stillActive re-checks a subscription right before delivery so a handler
// unsubscribed by an earlier handler in the same fan-out is skipped
func (r *Router) stillActive(check func() bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return check()
}

// teardown discards all pending operations and all subscribers
func (r *Router) teardown() {
	r.settle(r.detach())
}

// detach clears both registries and returns the orphaned callbacks.
// It never calls out, so it is safe under the manager lock.
func (r *Router) detach() map[string]ResultFunc {
	r.mu.Lock()
	defer r.mu.Unlock()

	orphans := r.pending
	r.pending = make(map[string]ResultFunc)
	for _, s := range r.shots {
		s.active = false
	}
	for _, s := range r.resets {
		s.active = false
	}
	r.shots = nil
	r.resets = nil
	return orphans
}

// settle applies the orphan policy to callbacks returned by detach
func (r *Router) settle(orphans map[string]ResultFunc) {
	if len(orphans) == 0 {
		return
	}

	if r.policy == DropOrphans {
		r.logger.Printf("[realtime] Dropped %d pending operations", len(orphans))
		return
	}

	for _, fn := range orphans {
		fn(false, ConnectionClosedMessage)
	}
}
