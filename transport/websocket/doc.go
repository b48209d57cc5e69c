// Package websocket pushes session events to local UIs.
//
// A Hub keeps every connected UI grouped by view (player, spectator or
// admin) and fans out JSON messages of the form
//
//	{"view": "admin", "event": "leaderboard", "data": [...], "time": "..."}
//
// An empty view reaches every client. Incoming frames are drained but
// ignored; UIs act through the console REST API.
//
// Usage:
//
//	hub := websocket.NewHub()
//	go hub.Run(ctx)
//
//	router.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, r.URL.Query().Get("view"))
//	})
//
//	hub.BroadcastEvent("player", p)
package websocket
