package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var (
	ErrMissingAPIURL = errors.New("backend API URL is not configured")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Orphan policies for pending operations when a connection closes
const (
	OrphanFail = "fail"
	OrphanDrop = "drop"
)

// Config holds all client settings
type Config struct {
	APIURL              string        `mapstructure:"api_url"`
	SessionDir          string        `mapstructure:"session_dir"`
	SessionKey          string        `mapstructure:"session_key"`
	LivenessInterval    time.Duration `mapstructure:"liveness_interval"`
	LeaderboardInterval time.Duration `mapstructure:"leaderboard_interval"`
	HTTPTimeout         time.Duration `mapstructure:"http_timeout"`
	OrphanPolicy        string        `mapstructure:"orphan_policy"`
	ListenHost          string        `mapstructure:"listen_host"`
	ListenPort          int           `mapstructure:"listen_port"`
}

// New returns a viper instance with defaults and environment bindings
func New() (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("LASERSTRIKE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	v.SetDefault("api_url", "")
	v.SetDefault("session_dir", "sessions")
	v.SetDefault("session_key", "player")
	v.SetDefault("liveness_interval", 5*time.Second)
	v.SetDefault("leaderboard_interval", time.Second)
	v.SetDefault("http_timeout", 10*time.Second)
	v.SetDefault("orphan_policy", OrphanDrop)
	v.SetDefault("listen_host", "localhost")
	v.SetDefault("listen_port", 3000)

	// The web front end reads the backend address from NEXT_PUBLIC_API_URL
	if err := v.BindEnv("api_url", "LASERSTRIKE_API_URL", "NEXT_PUBLIC_API_URL"); err != nil {
		return nil, fmt.Errorf("failed to bind api_url: %w", err)
	}

	return v, nil
}

// Load reads configuration from the optional file at path plus environment
func Load(path string) (*Config, error) {
	v, err := New()
	if err != nil {
		return nil, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return FromViper(v)
}

// FromViper decodes and validates a configured viper instance
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.APIURL = strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings that have no usable fallback.
// A missing API URL is not an error here; it is reported when a connection
// or request is attempted.
func (c *Config) Validate() error {
	if c.APIURL != "" {
		u, err := url.Parse(c.APIURL)
		if err != nil {
			return fmt.Errorf("%w: api_url: %v", ErrInvalidConfig, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("%w: api_url must use http or https, got %q", ErrInvalidConfig, u.Scheme)
		}
	}
	if c.SessionKey == "" {
		return fmt.Errorf("%w: session_key must not be empty", ErrInvalidConfig)
	}
	if c.LivenessInterval <= 0 {
		return fmt.Errorf("%w: liveness_interval must be positive", ErrInvalidConfig)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("%w: http_timeout must be positive", ErrInvalidConfig)
	}
	if c.OrphanPolicy != OrphanFail && c.OrphanPolicy != OrphanDrop {
		return fmt.Errorf("%w: orphan_policy must be %q or %q", ErrInvalidConfig, OrphanFail, OrphanDrop)
	}
	if c.ListenPort < 1 || c.ListenPort > 65535 {
		return fmt.Errorf("%w: invalid port (must be between 1-65535 inclusive): %d", ErrInvalidConfig, c.ListenPort)
	}
	return nil
}

// ListenAddr returns host:port for the console server
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.ListenHost, c.ListenPort)
}

// WebSocketBase rewrites the API URL scheme for the realtime channel
func WebSocketBase(apiURL string) (string, error) {
	apiURL = strings.TrimRight(apiURL, "/")
	if apiURL == "" {
		return "", ErrMissingAPIURL
	}

	switch {
	case strings.HasPrefix(apiURL, "https://"):
		return "wss://" + strings.TrimPrefix(apiURL, "https://"), nil
	case strings.HasPrefix(apiURL, "http://"):
		return "ws://" + strings.TrimPrefix(apiURL, "http://"), nil
	default:
		return apiURL, nil
	}
}

// WebSocketURL returns the realtime endpoint for a player
func (c *Config) WebSocketURL(playerID int) (string, error) {
	base, err := WebSocketBase(c.APIURL)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/ws/%d", base, playerID), nil
}
