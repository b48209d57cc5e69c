package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/SpherCodes/LaserStrike/api"
	"github.com/SpherCodes/LaserStrike/game/config"
	"github.com/SpherCodes/LaserStrike/game/service"
	"github.com/SpherCodes/LaserStrike/game/session"
	"github.com/SpherCodes/LaserStrike/transport/mcp"
	"github.com/SpherCodes/LaserStrike/transport/realtime"
	"github.com/SpherCodes/LaserStrike/transport/websocket"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
)

// flagKeys maps command line flags onto config keys
var flagKeys = map[string]string{
	"api-url":       "api_url",
	"host":          "listen_host",
	"port":          "listen_port",
	"session-dir":   "session_dir",
	"orphan-policy": "orphan_policy",
}

// loadConfig merges the config file, environment and explicitly set flags
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	v, err := config.New()
	if err != nil {
		return nil, err
	}

	if path := cmd.String("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	for flag, key := range flagKeys {
		if !cmd.IsSet(flag) {
			continue
		}
		if key == "listen_port" {
			v.Set(key, cmd.Int(flag))
		} else {
			v.Set(key, cmd.String(flag))
		}
	}

	return config.FromViper(v)
}

func orphanPolicy(cfg *config.Config) realtime.OrphanPolicy {
	if cfg.OrphanPolicy == config.OrphanFail {
		return realtime.FailOrphans
	}
	return realtime.DropOrphans
}

// console is the wired player console
type console struct {
	cfg      *config.Config
	backend  *service.APIClient
	realtime *realtime.Manager
	session  *session.Session
	hub      *websocket.Hub
	api      *api.Server
}

// newConsole wires the backend client, realtime manager, session and API
func newConsole(cfg *config.Config) (*console, error) {
	store, err := session.NewFileStore(cfg.SessionDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create player store: %w", err)
	}

	backend := service.NewAPIClient(cfg.APIURL, cfg.HTTPTimeout)
	rt := realtime.NewManager(realtime.Options{
		BaseURL:      cfg.APIURL,
		OrphanPolicy: orphanPolicy(cfg),
	})

	sess := session.New(session.Options{
		Store:            store,
		Key:              cfg.SessionKey,
		Realtime:         rt,
		Backend:          backend,
		LivenessInterval: cfg.LivenessInterval,
	})

	hub := websocket.NewHub()

	return &console{
		cfg:      cfg,
		backend:  backend,
		realtime: rt,
		session:  sess,
		hub:      hub,
		api:      api.NewServer(sess, backend, hub),
	}, nil
}

// start resumes the stored player and runs the background loops until ctx ends
func (c *console) start(ctx context.Context) {
	if c.cfg.APIURL == "" {
		log.Printf("WARNING: API URL is not configured. Please set LASERSTRIKE_API_URL or NEXT_PUBLIC_API_URL")
	}

	if p, err := c.session.Resume(); err == nil {
		log.Printf("Resumed player %d (%s)", p.ID, p.Name)
	} else if !errors.Is(err, session.ErrNoPlayer) {
		log.Printf("Warning: Failed to resume player: %v", err)
	}

	go c.hub.Run(ctx)
	go c.session.KeepAlive(ctx)
	go c.api.WatchLeaderboard(ctx, c.cfg.LeaderboardInterval)
}

// handler mounts the API and an /mcp endpoint proxying to baseURL
func (c *console) handler(baseURL string) http.Handler {
	mcpClient := mcp.NewClient(baseURL)

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", c.api)

	mainRouter.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpClient.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	})

	return mainRouter
}

// runServe starts the HTTP server with REST API, WebSocket hub, /qr and an
// /mcp proxy endpoint. If ngrok is enabled it also provisions a public tunnel.
func runServe(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	log.Printf("Starting %s v%s", AppName, Version)

	c, err := newConsole(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.start(ctx)

	addr := cfg.ListenAddr()
	mainRouter := c.handler(fmt.Sprintf("http://%s", addr))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mainRouter,
		// Strikes with ?wait=true hold the response open
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var wg sync.WaitGroup
	serveErr := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()

		log.Printf("HTTP server listening on %s", addr)
		log.Printf("REST API: http://%s/api", addr)
		log.Printf("WebSocket: ws://%s/ws?view=<player|spectator|admin>", addr)
		log.Printf("Join QR code: http://%s/qr", addr)
		log.Printf("MCP endpoint: http://%s/mcp", addr)

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- fmt.Errorf("HTTP server failed: %w", err)
		}
	}()

	if cmd.Bool("ngrok") {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runTunnel(ctx, cmd, c.api, mainRouter)
		}()
	}

	select {
	case <-ctx.Done():
		log.Printf("Shutting down...")
	case err := <-serveErr:
		cancel()
		wg.Wait()
		return err
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
	c.realtime.Disconnect()

	wg.Wait()
	log.Println("Server stopped")
	return nil
}

// runTunnel serves the console through ngrok until ctx ends
func runTunnel(ctx context.Context, cmd *cli.Command, apiServer *api.Server, handler http.Handler) {
	authToken := cmd.String("ngrok-auth")
	if authToken == "" {
		log.Println("WARNING: Ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN env var)")
		return
	}

	log.Println("Starting ngrok tunnel...")

	var tunnel ngrokConfig.Tunnel
	if domain := cmd.String("ngrok-domain"); domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(domain))
		log.Printf("Using custom ngrok domain: %s", domain)
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx,
		tunnel,
		ngrok.WithAuthtoken(authToken),
	)
	if err != nil {
		log.Printf("Failed to start ngrok tunnel: %v", err)
		return
	}

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			log.Printf("Failed to close ngrok tunnel: %v", err)
		}
	}()

	ngrokURL := tun.URL()
	apiServer.SetPublicURL(ngrokURL)

	log.Printf("🚀 Ngrok tunnel established: %s", ngrokURL)
	log.Printf("  REST API (ngrok): %s/api", ngrokURL)
	log.Printf("  Join QR code (ngrok): %s/qr", ngrokURL)

	if err := http.Serve(tun, handler); err != nil && err != http.ErrServerClosed && ctx.Err() == nil {
		log.Printf("Ngrok server error: %v", err)
	}
	log.Println("Ngrok tunnel closed")
}

// runMCP runs an MCP stdio server. It reuses a console already listening on
// the configured address; otherwise it starts an internal one on a random
// loopback port.
func runMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// stdout carries the MCP protocol
	log.SetOutput(os.Stderr)

	externalURL := fmt.Sprintf("http://%s", cfg.ListenAddr())
	baseURL := externalURL
	log.Printf("Checking for a running console at %s...", externalURL)

	testClient := &http.Client{Timeout: 2 * time.Second}
	resp, err := testClient.Get(externalURL + "/api/health")
	if err == nil {
		resp.Body.Close()
	}
	if err == nil && resp.StatusCode < 500 {
		log.Printf("Console found at %s, using it for MCP", externalURL)
	} else {
		log.Printf("No console found, starting internal HTTP server")

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}

		c, err := newConsole(cfg)
		if err != nil {
			listener.Close()
			return err
		}
		c.start(ctx)

		baseURL = fmt.Sprintf("http://%s", listener.Addr().String())
		httpServer := &http.Server{Handler: c.api}
		go func() {
			if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
				log.Printf("Internal HTTP server error: %v", err)
			}
		}()
		defer httpServer.Close()
		defer c.realtime.Disconnect()

		log.Printf("Internal console listening on %s", baseURL)
	}

	mcpClient := mcp.NewClient(baseURL)
	log.Println("MCP stdio server ready")

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}
