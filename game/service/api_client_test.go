package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/SpherCodes/LaserStrike/game/player"
	"github.com/SpherCodes/LaserStrike/game/service/servicetest"
)

func TestNewAPIClient(t *testing.T) {
	client := NewAPIClient("http://localhost:8000/", 0)

	if client.BaseURL() != "http://localhost:8000" {
		t.Errorf("Expected trailing slash trimmed, got %s", client.BaseURL())
	}
	if client.httpClient == nil || client.httpClient.Timeout != 10*time.Second {
		t.Error("Expected default 10s HTTP timeout")
	}
}

func TestAPIClient_NotConfigured(t *testing.T) {
	client := NewAPIClient("", time.Second)

	_, err := client.ListPlayers(context.Background())
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("Expected ErrNotConfigured, got %v", err)
	}
}

func TestAPIClient_Health(t *testing.T) {
	backend := servicetest.NewBackend()
	defer backend.Close()

	client := NewAPIClient(backend.URL(), time.Second)
	status, err := client.Health(context.Background())
	if err != nil {
		t.Fatalf("Health failed: %v", err)
	}
	if status.Status != "ok" {
		t.Errorf("Expected status ok, got %q", status.Status)
	}
}

func TestAPIClient_PlayerLifecycle(t *testing.T) {
	backend := servicetest.NewBackend()
	defer backend.Close()

	client := NewAPIClient(backend.URL(), time.Second)
	ctx := context.Background()

	created, err := client.CreatePlayer(ctx, player.New(3, "Ethan"))
	if err != nil {
		t.Fatalf("CreatePlayer failed: %v", err)
	}
	if created.ID != 3 || created.Name != "Ethan" || created.Health != player.MaxHealth {
		t.Errorf("Unexpected created player %+v", created)
	}

	got, err := client.GetPlayer(ctx, 3)
	if err != nil {
		t.Fatalf("GetPlayer failed: %v", err)
	}
	if got.Name != "Ethan" {
		t.Errorf("Expected Ethan, got %s", got.Name)
	}

	removed, err := client.DeletePlayer(ctx, 3)
	if err != nil {
		t.Fatalf("DeletePlayer failed: %v", err)
	}
	if removed.ID != 3 {
		t.Errorf("Expected removed player 3, got %d", removed.ID)
	}

	_, err = client.GetPlayer(ctx, 3)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected *APIError, got %T", err)
	}
	if !strings.Contains(apiErr.Message, "not found") {
		t.Errorf("Expected backend detail in message, got %q", apiErr.Message)
	}
}

func TestAPIClient_CreatePlayerNil(t *testing.T) {
	client := NewAPIClient("http://localhost:1", time.Second)
	if _, err := client.CreatePlayer(context.Background(), nil); err == nil {
		t.Error("Expected error for nil player")
	}
}

func TestAPIClient_ListPlayersAndLeaderboard(t *testing.T) {
	backend := servicetest.NewBackend()
	defer backend.Close()

	backend.AddPlayer(player.Player{ID: 2, Name: "Calvin", Health: 9, Kills: 1, Deaths: 1})
	backend.AddPlayer(player.Player{ID: 1, Name: "Phiwo", Health: 8, Kills: 6, Deaths: 3})

	client := NewAPIClient(backend.URL(), time.Second)
	ctx := context.Background()

	players, err := client.ListPlayers(ctx)
	if err != nil {
		t.Fatalf("ListPlayers failed: %v", err)
	}
	if len(players) != 2 || players[0].ID != 1 || players[1].ID != 2 {
		t.Errorf("Expected players sorted by id, got %+v", players)
	}

	standings, err := client.Leaderboard(ctx)
	if err != nil {
		t.Fatalf("Leaderboard failed: %v", err)
	}
	if standings[0].Player.Name != "Phiwo" || standings[0].Score != 630 {
		t.Errorf("Unexpected leader %+v", standings[0])
	}
}

func TestDecodePlayers(t *testing.T) {
	tests := []struct {
		name  string
		input string
		count int
		ok    bool
	}{
		{"map", `{"1":{"id":1,"name":"A"},"2":{"id":2,"name":"B"}}`, 2, true},
		{"array", `[{"id":1,"name":"A"}]`, 1, true},
		{"empty map", `{}`, 0, true},
		{"null", `null`, 0, true},
		{"garbage", `"nope"`, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			players, err := decodePlayers(json.RawMessage(tt.input))
			if tt.ok && err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if !tt.ok {
				if err == nil {
					t.Error("Expected decode error")
				}
				return
			}
			if len(players) != tt.count {
				t.Errorf("Expected %d players, got %d", tt.count, len(players))
			}
		})
	}
}

func TestAPIClient_SnapshotsAndReset(t *testing.T) {
	backend := servicetest.NewBackend()
	defer backend.Close()

	client := NewAPIClient(backend.URL(), time.Second)
	ctx := context.Background()

	snaps, err := client.ListSnapshots(ctx)
	if err != nil {
		t.Fatalf("ListSnapshots failed: %v", err)
	}
	if snaps == nil || len(snaps) != 0 {
		t.Errorf("Expected empty non-nil slice, got %v", snaps)
	}

	backend.AddSnapshot("/images/shot_1.jpg")
	backend.AddPlayer(player.Player{ID: 1, Name: "A"})

	snaps, err = client.ListSnapshots(ctx)
	if err != nil {
		t.Fatalf("ListSnapshots failed: %v", err)
	}
	if len(snaps) != 1 || snaps[0] != "/images/shot_1.jpg" {
		t.Errorf("Unexpected snapshots %v", snaps)
	}

	if err := client.ResetGame(ctx); err != nil {
		t.Fatalf("ResetGame failed: %v", err)
	}
	if backend.Resets() != 1 {
		t.Errorf("Expected 1 reset, got %d", backend.Resets())
	}

	players, err := client.ListPlayers(ctx)
	if err != nil {
		t.Fatalf("ListPlayers failed: %v", err)
	}
	if len(players) != 0 {
		t.Errorf("Expected players cleared after reset, got %d", len(players))
	}
}

func TestAPIClient_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Internal Server Error"))
	}))
	defer server.Close()

	client := NewAPIClient(server.URL, time.Second)

	_, err := client.ListSnapshots(context.Background())
	if err == nil {
		t.Fatal("Expected error for HTTP 500 response")
	}
	if !strings.Contains(err.Error(), "API error") {
		t.Errorf("Expected 'API error' in error message, got: %v", err)
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("500 should not match ErrNotFound")
	}
}

func TestAPIClient_ConnectionError(t *testing.T) {
	client := NewAPIClient("http://invalid-url-that-does-not-exist:9999", time.Second)

	if _, err := client.Health(context.Background()); err == nil {
		t.Error("Expected error for invalid URL")
	}
}
