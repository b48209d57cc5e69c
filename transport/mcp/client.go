package mcp

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/SpherCodes/LaserStrike/api"
	"github.com/SpherCodes/LaserStrike/game/player"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Client is a thin MCP client that proxies to the console REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the console API at baseURL
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			// Long enough for strike with wait
			Timeout: 15 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"LaserStrike",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`LaserStrike - MCP Interface

This is a thin client that proxies all requests to the LaserStrike console.

GAME OBJECTIVE:
Tag other players by pointing the camera at them and striking. Each hit
costs the target one health point; a player at 0 health is eliminated.

AVAILABLE TOOLS:
- register_player: Register the local player (id + name) and connect
- player_status: Current player, health, route and connection
- strike: Send a JPEG frame (base64 or file path) and report the verdict
- leaderboard: All players ranked by kills*100 + deaths*10
- snapshots: URLs of captured images
- reset_game: Reset the game for everyone
- exit_game: Forget the local player and disconnect`),
	)

	c.registerTools()
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "register_player",
		Description: "Register the local player and open the realtime connection",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"id": map[string]interface{}{
					"type":        "integer",
					"description": "Player id (positive, matches the player's marker)",
				},
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Display name",
				},
			},
			Required: []string{"id", "name"},
		},
	}, c.handleRegisterPlayer)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "player_status",
		Description: "Get the local player, route and connection state",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handlePlayerStatus)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "strike",
		Description: "Send a camera frame and wait for the hit verdict",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"image": map[string]interface{}{
					"type":        "string",
					"description": "Base64 JPEG data (data URI prefix allowed)",
				},
				"image_path": map[string]interface{}{
					"type":        "string",
					"description": "Path to a JPEG file, used when image is empty",
				},
			},
		},
	}, c.handleStrike)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "leaderboard",
		Description: "List all players ranked by score",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleLeaderboard)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "snapshots",
		Description: "List captured image URLs",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleSnapshots)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "reset_game",
		Description: "Reset the game for every player",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleResetGame)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "exit_game",
		Description: "Forget the local player and disconnect",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleExitGame)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	url := c.baseURL + path

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		args = map[string]interface{}{}
	}
	return args
}

func (c *Client) handleRegisterPlayer(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	id, _ := args["id"].(float64)
	name, _ := args["name"].(string)

	if id <= 0 || name == "" {
		return mcp.NewToolResultError("id and name are required"), nil
	}

	var resp struct {
		Player    player.Player `json:"player"`
		Connected bool          `json:"connected"`
	}
	body := map[string]interface{}{"id": int(id), "name": name}
	if err := c.apiCall(ctx, "POST", "/api/register", body, &resp); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Registered player %d (%s)\n", resp.Player.ID, resp.Player.Name)
	if resp.Connected {
		result += "Realtime connection: open\n"
	} else {
		result += "Realtime connection: not connected (will retry)\n"
	}
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handlePlayerStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var status api.StatusResponse
	if err := c.apiCall(ctx, "GET", "/api/status", nil, &status); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatStatus(&status)), nil
}

func (c *Client) handleStrike(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	image, _ := args["image"].(string)

	if image == "" {
		path, _ := args["image_path"].(string)
		if path == "" {
			return mcp.NewToolResultError("image or image_path is required"), nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to read image: %v", err)), nil
		}
		image = base64.StdEncoding.EncodeToString(data)
	}

	var res api.StrikeResult
	if err := c.apiCall(ctx, "POST", "/api/strike?wait=true", map[string]string{"image": image}, &res); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatStrike(&res)), nil
}

func (c *Client) handleLeaderboard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var resp struct {
		Standings []player.Standing `json:"standings"`
	}
	if err := c.apiCall(ctx, "GET", "/api/leaderboard", nil, &resp); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatLeaderboard(resp.Standings)), nil
}

func (c *Client) handleSnapshots(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var resp struct {
		Snapshots []string `json:"snapshots"`
	}
	if err := c.apiCall(ctx, "GET", "/api/snapshots", nil, &resp); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if len(resp.Snapshots) == 0 {
		return mcp.NewToolResultText("No snapshots captured yet\n"), nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Snapshots (%d):\n", len(resp.Snapshots)))
	for _, url := range resp.Snapshots {
		sb.WriteString("- " + url + "\n")
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (c *Client) handleResetGame(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := c.apiCall(ctx, "POST", "/api/admin/reset", nil, nil); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("Game reset. All players return to login.\n"), nil
}

func (c *Client) handleExitGame(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := c.apiCall(ctx, "POST", "/api/exit", nil, nil); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("Player exited\n"), nil
}

func formatPlayer(p *player.Player) string {
	level := player.LevelFor(p.Health, player.MaxHealth)
	return fmt.Sprintf("Player %d (%s)\nHealth: %d/%d [%s]\nKills: %d | Deaths: %d | Score: %d\n",
		p.ID, p.Name, p.Health, player.MaxHealth, level, p.Kills, p.Deaths, p.Score)
}

func formatStatus(status *api.StatusResponse) string {
	var sb strings.Builder

	if status.Player == nil {
		sb.WriteString("No player registered\n")
	} else {
		sb.WriteString(formatPlayer(status.Player))
		if !status.Player.Alive() {
			sb.WriteString("💀 ELIMINATED\n")
		}
	}

	sb.WriteString(fmt.Sprintf("Route: %s\n", status.Route))
	if status.Connected {
		sb.WriteString("Realtime connection: open\n")
	} else {
		sb.WriteString("Realtime connection: closed\n")
	}
	if status.PublicURL != "" {
		sb.WriteString(fmt.Sprintf("Join URL: %s\n", status.PublicURL))
	}

	return sb.String()
}

func formatStrike(res *api.StrikeResult) string {
	if res.Success {
		return fmt.Sprintf("✓ Hit: %s\nRequest: %s\n", res.Message, res.RequestID)
	}
	return fmt.Sprintf("✗ Miss: %s\nRequest: %s\n", res.Message, res.RequestID)
}

func formatLeaderboard(standings []player.Standing) string {
	if len(standings) == 0 {
		return "No players yet\n"
	}

	var sb strings.Builder
	sb.WriteString("Rank  Player                Kills  Deaths  Health  Score\n")
	for _, s := range standings {
		sb.WriteString(fmt.Sprintf("%-5d %-21s %5d  %6d  %6d  %5d\n",
			s.Rank, truncateName(s.Player.Name, 21), s.Player.Kills, s.Player.Deaths, s.Player.Health, s.Score))
	}
	return sb.String()
}

func truncateName(name string, n int) string {
	runes := []rune(name)
	if len(runes) <= n {
		return name
	}
	return string(runes[:n-1]) + "…"
}
