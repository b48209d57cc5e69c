package session

import (
	"sync"

	"github.com/SpherCodes/LaserStrike/game/player"
)

// MemoryStore implements PlayerStore in memory. Contents are lost on exit.
type MemoryStore struct {
	mu      sync.RWMutex
	players map[string]player.Player
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{players: make(map[string]player.Player)}
}

func (ms *MemoryStore) Save(key string, p *player.Player) error {
	if key == "" {
		return ErrInvalidKey
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.players[key] = *p
	return nil
}

func (ms *MemoryStore) Load(key string) (*player.Player, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	p, ok := ms.players[key]
	if !ok {
		return nil, ErrPlayerNotFound
	}
	return &p, nil
}

func (ms *MemoryStore) Delete(key string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if _, ok := ms.players[key]; !ok {
		return ErrPlayerNotFound
	}
	delete(ms.players, key)
	return nil
}

func (ms *MemoryStore) Exists(key string) bool {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	_, ok := ms.players[key]
	return ok
}
