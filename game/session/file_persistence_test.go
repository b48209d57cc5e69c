package session

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/SpherCodes/LaserStrike/game/player"
)

func TestFileStore(t *testing.T) {
	tempDir := t.TempDir()

	store, err := NewFileStore(filepath.Join(tempDir, "sessions"))
	if err != nil {
		t.Fatalf("Failed to create file store: %v", err)
	}

	p := &player.Player{ID: 3, Name: "carol", Health: 7, Kills: 2, Deaths: 3, Score: 230}

	t.Run("Save and Load Player", func(t *testing.T) {
		if err := store.Save("player", p); err != nil {
			t.Fatalf("Failed to save player: %v", err)
		}

		if !store.Exists("player") {
			t.Error("Player file should exist after save")
		}

		loaded, err := store.Load("player")
		if err != nil {
			t.Fatalf("Failed to load player: %v", err)
		}
		if *loaded != *p {
			t.Errorf("Expected %+v, got %+v", *p, *loaded)
		}
	})

	t.Run("Overwrite Player", func(t *testing.T) {
		updated := *p
		updated.Health = 1

		if err := store.Save("player", &updated); err != nil {
			t.Fatalf("Failed to save player: %v", err)
		}

		loaded, err := store.Load("player")
		if err != nil {
			t.Fatalf("Failed to load player: %v", err)
		}
		if loaded.Health != 1 {
			t.Errorf("Expected health 1, got %d", loaded.Health)
		}

		if _, err := os.Stat(filepath.Join(tempDir, "sessions", "player.json.tmp")); !os.IsNotExist(err) {
			t.Error("temp file should not be left behind")
		}
	})

	t.Run("Delete Player", func(t *testing.T) {
		if err := store.Delete("player"); err != nil {
			t.Fatalf("Failed to delete player: %v", err)
		}
		if store.Exists("player") {
			t.Error("Player file should not exist after delete")
		}
		if err := store.Delete("player"); !errors.Is(err, ErrPlayerNotFound) {
			t.Errorf("Expected ErrPlayerNotFound, got %v", err)
		}
	})

	t.Run("Load Missing Player", func(t *testing.T) {
		if _, err := store.Load("nobody"); !errors.Is(err, ErrPlayerNotFound) {
			t.Errorf("Expected ErrPlayerNotFound, got %v", err)
		}
	})

	t.Run("Invalid Keys", func(t *testing.T) {
		for _, key := range []string{"", "..", "a/b", `a\b`} {
			if err := store.Save(key, p); !errors.Is(err, ErrInvalidKey) {
				t.Errorf("Save(%q) error = %v, want ErrInvalidKey", key, err)
			}
			if store.Exists(key) {
				t.Errorf("Exists(%q) should be false", key)
			}
		}
	})

	t.Run("Corrupt File", func(t *testing.T) {
		if err := os.WriteFile(filepath.Join(tempDir, "sessions", "broken.json"), []byte("{"), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := store.Load("broken"); err == nil || errors.Is(err, ErrPlayerNotFound) {
			t.Errorf("Expected a decode error, got %v", err)
		}
	})
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	p := player.New(1, "alice")

	if store.Exists("player") {
		t.Error("empty store should not contain a player")
	}

	if err := store.Save("player", p); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	// Mutating the original must not change the stored copy
	p.Health = 0

	loaded, err := store.Load("player")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Health != player.MaxHealth {
		t.Errorf("Expected stored health %d, got %d", player.MaxHealth, loaded.Health)
	}

	if err := store.Delete("player"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Load("player"); !errors.Is(err, ErrPlayerNotFound) {
		t.Errorf("Expected ErrPlayerNotFound, got %v", err)
	}
}
