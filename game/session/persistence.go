package session

import (
	"errors"
	"time"

	"github.com/SpherCodes/LaserStrike/game/player"
)

var (
	ErrPlayerNotFound = errors.New("player not found")
	ErrInvalidKey     = errors.New("invalid session key")
)

// PlayerStore persists the identity of the local player
type PlayerStore interface {
	// Save persists a player under key
	Save(key string, p *player.Player) error

	// Load retrieves the player stored under key
	Load(key string) (*player.Player, error)

	// Delete removes the player stored under key
	Delete(key string) error

	// Exists checks if a player is stored under key
	Exists(key string) bool
}

// PersistedPlayerData represents the JSON structure for a persisted player
type PersistedPlayerData struct {
	Key     string        `json:"key"`
	Player  player.Player `json:"player"`
	SavedAt time.Time     `json:"saved_at"`
}
