package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/SpherCodes/LaserStrike/game/config"
	"github.com/SpherCodes/LaserStrike/game/service"
	"github.com/SpherCodes/LaserStrike/transport/realtime"
	"github.com/urfave/cli/v3"
)

// clearEnv keeps the host environment out of config tests
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"LASERSTRIKE_API_URL",
		"NEXT_PUBLIC_API_URL",
		"LASERSTRIKE_CONFIG",
		"LASERSTRIKE_LISTEN_PORT",
		"LASERSTRIKE_ORPHAN_POLICY",
		"LASERSTRIKE_SESSION_DIR",
	} {
		t.Setenv(key, "")
	}
}

// configFromArgs runs the root command with args and returns the loaded config
func configFromArgs(t *testing.T, args ...string) (*config.Config, error) {
	t.Helper()

	var (
		cfg     *config.Config
		loadErr error
	)
	app := newApp()
	app.Action = func(ctx context.Context, cmd *cli.Command) error {
		cfg, loadErr = loadConfig(cmd)
		return nil
	}

	if err := app.Run(context.Background(), append([]string{"laserstrike"}, args...)); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	return cfg, loadErr
}

func TestConstants(t *testing.T) {
	if Version == "" {
		t.Error("Version should not be empty")
	}

	expectedAppName := "LaserStrike Console"
	if AppName != expectedAppName {
		t.Errorf("Expected app name %s, got %s", expectedAppName, AppName)
	}
}

func TestNewApp_Commands(t *testing.T) {
	app := newApp()

	if app.Version != Version {
		t.Errorf("Expected version %s, got %s", Version, app.Version)
	}

	want := []string{"serve", "mcp", "players", "leaderboard", "snapshots", "reset", "strike"}
	got := make(map[string]bool)
	for _, c := range app.Commands {
		got[c.Name] = true
		if c.Action == nil {
			t.Errorf("Command %s has no action", c.Name)
		}
	}
	for _, name := range want {
		if !got[name] {
			t.Errorf("Missing command %s", name)
		}
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := configFromArgs(t)
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}

	if cfg.APIURL != "" {
		t.Errorf("Expected empty API URL, got %q", cfg.APIURL)
	}
	if cfg.ListenAddr() != "localhost:3000" {
		t.Errorf("Expected localhost:3000, got %s", cfg.ListenAddr())
	}
	if cfg.OrphanPolicy != config.OrphanDrop {
		t.Errorf("Expected orphan policy %s, got %s", config.OrphanDrop, cfg.OrphanPolicy)
	}
	if orphanPolicy(cfg) != realtime.DropOrphans {
		t.Error("Expected orphaned callbacks to be dropped by default")
	}
}

func TestLoadConfig_FlagOverrides(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	cfg, err := configFromArgs(t,
		"--api-url", "https://game.example.com/",
		"--host", "0.0.0.0",
		"--port", "8081",
		"--session-dir", dir,
		"--orphan-policy", "fail",
	)
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}

	if cfg.APIURL != "https://game.example.com" {
		t.Errorf("Expected trimmed API URL, got %q", cfg.APIURL)
	}
	if cfg.ListenAddr() != "0.0.0.0:8081" {
		t.Errorf("Expected 0.0.0.0:8081, got %s", cfg.ListenAddr())
	}
	if cfg.SessionDir != dir {
		t.Errorf("Expected session dir %s, got %s", dir, cfg.SessionDir)
	}
	if orphanPolicy(cfg) != realtime.FailOrphans {
		t.Error("Expected fail orphan policy")
	}
}

func TestLoadConfig_EnvFallback(t *testing.T) {
	clearEnv(t)
	t.Setenv("NEXT_PUBLIC_API_URL", "http://localhost:8000")

	cfg, err := configFromArgs(t)
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.APIURL != "http://localhost:8000" {
		t.Errorf("Expected API URL from NEXT_PUBLIC_API_URL, got %q", cfg.APIURL)
	}

	// Flags win over the environment
	cfg, err = configFromArgs(t, "--api-url", "http://other:9000")
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.APIURL != "http://other:9000" {
		t.Errorf("Expected flag API URL, got %q", cfg.APIURL)
	}
}

func TestLoadConfig_ConfigFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "laserstrike.yaml")
	content := "api_url: http://backend:8000\nlisten_port: 4000\nsession_key: me\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := configFromArgs(t, "--config", path)
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.APIURL != "http://backend:8000" {
		t.Errorf("Expected API URL from file, got %q", cfg.APIURL)
	}
	if cfg.ListenPort != 4000 {
		t.Errorf("Expected port 4000, got %d", cfg.ListenPort)
	}
	if cfg.SessionKey != "me" {
		t.Errorf("Expected session key me, got %s", cfg.SessionKey)
	}

	_, err = configFromArgs(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Error("Expected error for missing config file")
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name string
		args []string
	}{
		{"orphan policy", []string{"--orphan-policy", "retry"}},
		{"api url scheme", []string{"--api-url", "ftp://backend"}},
		{"port", []string{"--port", "70000"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := configFromArgs(t, tt.args...)
			if !errors.Is(err, config.ErrInvalidConfig) {
				t.Errorf("Expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestAdminCommands_NotConfigured(t *testing.T) {
	clearEnv(t)

	for _, name := range []string{"players", "leaderboard", "snapshots", "reset"} {
		t.Run(name, func(t *testing.T) {
			err := newApp().Run(context.Background(), []string{"laserstrike", name})
			if !errors.Is(err, service.ErrNotConfigured) {
				t.Errorf("Expected ErrNotConfigured, got %v", err)
			}
		})
	}
}

func TestConsoleHandler(t *testing.T) {
	clearEnv(t)

	cfg, err := configFromArgs(t, "--session-dir", t.TempDir())
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}

	c, err := newConsole(cfg)
	if err != nil {
		t.Fatalf("newConsole failed: %v", err)
	}
	defer c.realtime.Disconnect()

	srv := httptest.NewServer(c.handler("http://" + cfg.ListenAddr()))
	defer srv.Close()

	t.Run("health", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/api/health")
		if err != nil {
			t.Fatalf("Request failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Errorf("Expected status 200, got %d", resp.StatusCode)
		}

		var body map[string]interface{}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			t.Fatalf("Failed to decode: %v", err)
		}
		if body["status"] != "degraded" {
			t.Errorf("Expected degraded status without a backend, got %v", body["status"])
		}
	})

	t.Run("mcp rejects GET", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/mcp")
		if err != nil {
			t.Fatalf("Request failed: %v", err)
		}
		resp.Body.Close()

		if resp.StatusCode != http.StatusMethodNotAllowed {
			t.Errorf("Expected status 405, got %d", resp.StatusCode)
		}
	})
}
