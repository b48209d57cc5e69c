package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/SpherCodes/LaserStrike/game/player"
)

// APIClient talks to the LaserStrike backend over HTTP
type APIClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewAPIClient creates a client for the backend at baseURL
func NewAPIClient(baseURL string, timeout time.Duration) *APIClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// BaseURL returns the backend base URL
func (c *APIClient) BaseURL() string {
	return c.baseURL
}

func (c *APIClient) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	if c.baseURL == "" {
		return ErrNotConfigured
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var errResp errorResponse
		if json.NewDecoder(resp.Body).Decode(&errResp) == nil {
			apiErr.Message = errResp.Detail
			if apiErr.Message == "" {
				apiErr.Message = errResp.Error
			}
		}
		return apiErr
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode %s response: %w", path, err)
		}
	}

	return nil
}

// Health probes the backend root
func (c *APIClient) Health(ctx context.Context) (*HealthStatus, error) {
	var status HealthStatus
	if err := c.apiCall(ctx, http.MethodGet, "/", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// ListPlayers returns all players ordered by id.
// The backend answers with an object keyed by id; a plain array is accepted too.
func (c *APIClient) ListPlayers(ctx context.Context) ([]player.Player, error) {
	var raw json.RawMessage
	if err := c.apiCall(ctx, http.MethodGet, "/users", nil, &raw); err != nil {
		return nil, err
	}

	players, err := decodePlayers(raw)
	if err != nil {
		return nil, err
	}

	sort.Slice(players, func(i, j int) bool { return players[i].ID < players[j].ID })
	return players, nil
}

func decodePlayers(raw json.RawMessage) ([]player.Player, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []player.Player{}, nil
	}

	if trimmed[0] == '[' {
		var list []player.Player
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("failed to decode player list: %w", err)
		}
		return list, nil
	}

	var byID map[string]player.Player
	if err := json.Unmarshal(trimmed, &byID); err != nil {
		return nil, fmt.Errorf("failed to decode player map: %w", err)
	}

	players := make([]player.Player, 0, len(byID))
	for _, p := range byID {
		players = append(players, p)
	}
	return players, nil
}

// GetPlayer returns one player by id
func (c *APIClient) GetPlayer(ctx context.Context, id int) (*player.Player, error) {
	var p player.Player
	if err := c.apiCall(ctx, http.MethodGet, fmt.Sprintf("/users/%d", id), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// CreatePlayer registers a player with the backend
func (c *APIClient) CreatePlayer(ctx context.Context, p *player.Player) (*player.Player, error) {
	if p == nil {
		return nil, fmt.Errorf("player cannot be nil")
	}

	var resp createPlayerResponse
	if err := c.apiCall(ctx, http.MethodPost, "/users", p, &resp); err != nil {
		return nil, err
	}

	if resp.User == nil {
		return p.Clone(), nil
	}
	return resp.User, nil
}

// DeletePlayer removes a player and returns the removed record
func (c *APIClient) DeletePlayer(ctx context.Context, id int) (*player.Player, error) {
	var p player.Player
	if err := c.apiCall(ctx, http.MethodDelete, fmt.Sprintf("/users/%d", id), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Leaderboard returns all players ranked by score
func (c *APIClient) Leaderboard(ctx context.Context) ([]player.Standing, error) {
	players, err := c.ListPlayers(ctx)
	if err != nil {
		return nil, err
	}
	return player.Rank(players), nil
}

// ListSnapshots returns the captured image URLs, newest last
func (c *APIClient) ListSnapshots(ctx context.Context) ([]string, error) {
	var snapshots []string
	if err := c.apiCall(ctx, http.MethodGet, "/admin/images", nil, &snapshots); err != nil {
		return nil, err
	}
	if snapshots == nil {
		snapshots = []string{}
	}
	return snapshots, nil
}

// ResetGame asks the backend to clear all game state.
// Connected clients receive a game_reset broadcast.
func (c *APIClient) ResetGame(ctx context.Context) error {
	return c.apiCall(ctx, http.MethodGet, "/admin/reset", nil, nil)
}
