// Package player provides the player model for the LaserStrike client.
//
// The player package implements:
//   - The Player snapshot shape shared with the backend
//   - Shot event reconciliation against the locally tracked player
//   - Score computation and leaderboard ranking
//   - Health bar levels for display
//
// Core Types:
//
// Player is the external shape the backend sends in every user listing and
// shot broadcast. The client never invents values for it; it only copies the
// fields carried by a ShotEvent onto the locally held copy.
//
// Reconciliation:
//
// A shot event names a killer and a target. When the local player is the
// target, only health and deaths are taken from the event. When the local
// player is the killer, only kills and score are taken. A player shooting
// themself gets both updates.
//
// Usage:
//
//	me := &player.Player{ID: 3, Name: "Ethan", Health: player.MaxHealth}
//	outcome := me.ApplyShot(event)
//	if outcome.Affected() {
//		fmt.Println(outcome.Message)
//	}
//
//	standings := player.Rank(players)
package player
