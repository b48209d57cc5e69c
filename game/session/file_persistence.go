package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/SpherCodes/LaserStrike/game/player"
)

// FileStore implements PlayerStore using one JSON file per key
type FileStore struct {
	dir string
}

// NewFileStore creates a file-based player store rooted at dir
func NewFileStore(dir string) (*FileStore, error) {
	// Create sessions directory if it doesn't exist
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create sessions directory: %w", err)
	}

	return &FileStore{dir: dir}, nil
}

// Save persists a player to a JSON file
func (fs *FileStore) Save(key string, p *player.Player) error {
	if p == nil {
		return fmt.Errorf("player cannot be nil")
	}

	filePath, err := fs.getFilePath(key)
	if err != nil {
		return err
	}

	data := PersistedPlayerData{
		Key:     key,
		Player:  *p,
		SavedAt: time.Now(),
	}

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal player data: %w", err)
	}

	// Write-then-rename keeps the record atomic
	tmp := filePath + ".tmp"
	if err := os.WriteFile(tmp, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write player file: %w", err)
	}
	if err := os.Rename(tmp, filePath); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write player file: %w", err)
	}

	return nil
}

// Load retrieves a player from its JSON file
func (fs *FileStore) Load(key string) (*player.Player, error) {
	filePath, err := fs.getFilePath(key)
	if err != nil {
		return nil, err
	}

	jsonData, err := os.ReadFile(filePath)
	if os.IsNotExist(err) {
		return nil, ErrPlayerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read player file: %w", err)
	}

	var data PersistedPlayerData
	if err := json.Unmarshal(jsonData, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal player data: %w", err)
	}

	p := data.Player
	return &p, nil
}

// Delete removes a player file
func (fs *FileStore) Delete(key string) error {
	filePath, err := fs.getFilePath(key)
	if err != nil {
		return err
	}

	if err := os.Remove(filePath); err != nil {
		if os.IsNotExist(err) {
			return ErrPlayerNotFound
		}
		return fmt.Errorf("failed to remove player file: %w", err)
	}

	return nil
}

// Exists checks if a player file exists
func (fs *FileStore) Exists(key string) bool {
	filePath, err := fs.getFilePath(key)
	if err != nil {
		return false
	}
	_, err = os.Stat(filePath)
	return err == nil
}

// getFilePath returns the full file path for a key
func (fs *FileStore) getFilePath(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.Join(fs.dir, fmt.Sprintf("%s.json", key)), nil
}
