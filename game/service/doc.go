// Package service provides the backend API client for the LaserStrike client.
//
// The service package implements:
//   - Player registration, lookup and removal
//   - Player listing for the leaderboard
//   - Admin snapshot listing and game reset
//   - Error decoding for backend failures
//
// Core Interfaces:
//
// BackendService is the contract the rest of the client depends on.
// APIClient implements it over HTTP against the backend base URL.
//
// Endpoints:
//
//   - GET /               health probe
//   - GET /users          all players, keyed by id
//   - POST /users         register a player
//   - GET /users/{id}     one player
//   - DELETE /users/{id}  remove a player
//   - GET /admin/images   captured snapshot URLs
//   - GET /admin/reset    clear all game state
//
// Usage:
//
//	client := service.NewAPIClient(cfg.APIURL, cfg.HTTPTimeout)
//
//	p, err := client.CreatePlayer(ctx, player.New(3, "Ethan"))
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	standings, err := client.Leaderboard(ctx)
//
// Error Handling:
//
// Non-2xx responses are returned as *APIError carrying the status code and
// the backend's detail message. Use errors.Is with ErrNotFound for 404s.
package service
