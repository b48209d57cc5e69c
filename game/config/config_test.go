package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("LASERSTRIKE_API_URL", "")
	t.Setenv("NEXT_PUBLIC_API_URL", "")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.SessionKey != "player" {
		t.Errorf("Expected session key 'player', got %q", cfg.SessionKey)
	}
	if cfg.LivenessInterval != 5*time.Second {
		t.Errorf("Expected 5s liveness interval, got %v", cfg.LivenessInterval)
	}
	if cfg.HTTPTimeout != 10*time.Second {
		t.Errorf("Expected 10s http timeout, got %v", cfg.HTTPTimeout)
	}
	if cfg.OrphanPolicy != OrphanDrop {
		t.Errorf("Expected orphan policy %q, got %q", OrphanDrop, cfg.OrphanPolicy)
	}
	if cfg.APIURL != "" {
		t.Errorf("Expected empty API URL, got %q", cfg.APIURL)
	}
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("LASERSTRIKE_API_URL", "https://strike.example.com/")
	t.Setenv("LASERSTRIKE_LISTEN_PORT", "9090")
	t.Setenv("LASERSTRIKE_ORPHAN_POLICY", "fail")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.APIURL != "https://strike.example.com" {
		t.Errorf("Expected trailing slash trimmed, got %q", cfg.APIURL)
	}
	if cfg.ListenPort != 9090 {
		t.Errorf("Expected port 9090, got %d", cfg.ListenPort)
	}
	if cfg.OrphanPolicy != OrphanFail {
		t.Errorf("Expected orphan policy fail, got %q", cfg.OrphanPolicy)
	}
}

func TestLoad_NextPublicFallback(t *testing.T) {
	t.Setenv("LASERSTRIKE_API_URL", "")
	t.Setenv("NEXT_PUBLIC_API_URL", "http://10.0.0.5:8000")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.APIURL != "http://10.0.0.5:8000" {
		t.Errorf("Expected NEXT_PUBLIC_API_URL to be used, got %q", cfg.APIURL)
	}
}

func TestLoad_File(t *testing.T) {
	t.Setenv("LASERSTRIKE_API_URL", "")
	t.Setenv("NEXT_PUBLIC_API_URL", "")

	dir := t.TempDir()
	path := filepath.Join(dir, "laserstrike.yaml")
	content := "api_url: http://localhost:8000\nsession_key: tab-1\nliveness_interval: 2s\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.APIURL != "http://localhost:8000" {
		t.Errorf("Unexpected API URL %q", cfg.APIURL)
	}
	if cfg.SessionKey != "tab-1" {
		t.Errorf("Unexpected session key %q", cfg.SessionKey)
	}
	if cfg.LivenessInterval != 2*time.Second {
		t.Errorf("Unexpected liveness interval %v", cfg.LivenessInterval)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/non/existent/laserstrike.yaml"); err == nil {
		t.Error("Expected error for missing config file")
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			APIURL:           "http://localhost:8000",
			SessionKey:       "player",
			LivenessInterval: 5 * time.Second,
			HTTPTimeout:      time.Second,
			OrphanPolicy:     OrphanFail,
			ListenPort:       3000,
		}
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
		ok     bool
	}{
		{"valid", func(c *Config) {}, true},
		{"no api url", func(c *Config) { c.APIURL = "" }, true},
		{"bad scheme", func(c *Config) { c.APIURL = "ftp://host" }, false},
		{"empty key", func(c *Config) { c.SessionKey = "" }, false},
		{"zero liveness", func(c *Config) { c.LivenessInterval = 0 }, false},
		{"zero timeout", func(c *Config) { c.HTTPTimeout = 0 }, false},
		{"bad policy", func(c *Config) { c.OrphanPolicy = "retry" }, false},
		{"bad port", func(c *Config) { c.ListenPort = 70000 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.ok && err != nil {
				t.Errorf("Expected valid, got %v", err)
			}
			if !tt.ok {
				if err == nil {
					t.Error("Expected validation error")
				} else if !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("Expected ErrInvalidConfig, got %v", err)
				}
			}
		})
	}
}

func TestWebSocketURL(t *testing.T) {
	tests := []struct {
		apiURL   string
		expected string
	}{
		{"http://localhost:8000", "ws://localhost:8000/ws/4"},
		{"https://strike.example.com", "wss://strike.example.com/ws/4"},
		{"https://strike.example.com/", "wss://strike.example.com/ws/4"},
	}

	for _, tt := range tests {
		cfg := &Config{APIURL: tt.apiURL}
		got, err := cfg.WebSocketURL(4)
		if err != nil {
			t.Errorf("%s: unexpected error %v", tt.apiURL, err)
			continue
		}
		if got != tt.expected {
			t.Errorf("%s: expected %s, got %s", tt.apiURL, tt.expected, got)
		}
	}

	cfg := &Config{}
	if _, err := cfg.WebSocketURL(1); !errors.Is(err, ErrMissingAPIURL) {
		t.Errorf("Expected ErrMissingAPIURL, got %v", err)
	}
}

func TestListenAddr(t *testing.T) {
	cfg := &Config{ListenHost: "0.0.0.0", ListenPort: 3000}
	if cfg.ListenAddr() != "0.0.0.0:3000" {
		t.Errorf("Unexpected listen addr %s", cfg.ListenAddr())
	}
}

func TestNew_Defaults(t *testing.T) {
	t.Setenv("LASERSTRIKE_ORPHAN_POLICY", "")

	v, err := New()
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if got := v.GetString("orphan_policy"); got != OrphanDrop {
		t.Errorf("Expected default orphan policy %q, got %q", OrphanDrop, got)
	}
	if got := v.GetInt("listen_port"); got != 3000 {
		t.Errorf("Expected default port 3000, got %d", got)
	}
}
