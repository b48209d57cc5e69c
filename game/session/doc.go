// Package session owns the local LaserStrike player.
//
// A Session ties together three things:
//   - the player identity, persisted through a PlayerStore (FileStore or
//     MemoryStore) under a single key
//   - the realtime connection for that player, acquired through a
//     realtime.Manager and re-bound to shot broadcasts whenever the
//     manager hands out a new connection
//   - the route a UI should display (/login or /)
//
// Shot broadcasts update the stored player in place. A game reset
// deletes the stored player, clears it and navigates back to /login.
//
// Usage:
//
//	store, err := session.NewFileStore("sessions")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	sess := session.New(session.Options{
//		Store:    store,
//		Realtime: realtime.NewManager(realtime.Options{BaseURL: apiURL}),
//	})
//
//	if _, err := sess.Resume(); errors.Is(err, session.ErrNoPlayer) {
//		sess.Register(ctx, 1, "alice")
//	}
//	go sess.KeepAlive(ctx)
package session
