// Package realtime provides the player's WebSocket session to the LaserStrike backend.
//
// The realtime package implements:
//   - A connection manager holding at most one live connection
//   - Inbound message classification into a closed set of variants
//   - Fan-out of shot and game-reset broadcasts to subscribers
//   - Correlation of operation responses by request id
//   - An outbound sender that fails fast when not connected
//
// Architecture:
//
// Manager owns the connection reference and a Router. Acquire returns the
// current connection when it is open and otherwise replaces it with a new
// one that dials in the background. Each connection runs a single reader
// goroutine that hands every frame to the Router in arrival order.
//
// When the current connection closes the Manager clears its reference and
// the Router discards all pending operations and all subscribers.
// Subscribers must register again against a newly acquired connection.
// Nothing reconnects on its own; callers re-acquire on a timer or on demand.
//
// Message Protocol:
//
// Frames are JSON text. Inbound frames are classified in this order:
//   - {type: "shot_event", killer: {...}, target: {...}} → ShotEvent
//   - {requestId: "...", success, message} with a pending id → CorrelatedResponse
//   - {type: "game_reset"} → GameReset
//   - anything else → Unclassified (logged and dropped)
//
// Outbound frames carry a requestId generated per send:
//   - {type: "capture_image", image: <base64>, player_id, requestId}
//   - {...fields, requestId}
//
// Usage:
//
//	mgr := realtime.NewManager(realtime.Options{BaseURL: cfg.APIURL})
//
//	unsubscribe := mgr.Router().OnShotEvent(func(ev realtime.ShotEvent) {
//		fmt.Println(ev.Killer.Name, "hit", ev.Target.Name)
//	})
//	defer unsubscribe()
//
//	conn := mgr.Acquire(playerID)
//	if conn == nil {
//		return // not configured
//	}
//	conn.SendCapture(jpeg, playerID, func(ok bool, msg string) {
//		fmt.Println(ok, msg)
//	})
//
// Error Handling:
//
// No operation in this package returns a send failure as an error.
// Configuration problems yield a nil connection, transport and protocol
// problems are logged, and a send without an open connection reports
// failure through its callback.
package realtime
