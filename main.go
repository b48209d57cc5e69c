// Command laserstrike runs the LaserStrike player console.
//
// It supports these commands:
//  1. "serve" (default) – holds the local player session, keeps the realtime
//     connection alive and serves the console REST API, local WebSocket,
//     /qr join code and an /mcp HTTP endpoint
//  2. "mcp" – runs an MCP stdio server against a running console, or an
//     internal one if none is available
//  3. "players", "leaderboard", "snapshots", "reset", "strike" – one-shot
//     admin and player operations against the backend
//
// Configuration comes from an optional config file, LASERSTRIKE_* environment
// variables (NEXT_PUBLIC_API_URL is honored for the backend URL) and flags.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "LaserStrike Console"
)

// main loads .env, then runs the selected command.
func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Warning: Error loading .env file: %v", err)
		}
	} else {
		log.Println("Loaded environment variables from .env file")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

// newApp builds the command tree
func newApp() *cli.Command {
	return &cli.Command{
		Name:    "laserstrike",
		Usage:   "LaserStrike player console",
		Version: Version,
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "Path to a config file (yaml, json or toml)",
				Sources: cli.EnvVars("LASERSTRIKE_CONFIG"),
			},
			&cli.StringFlag{
				Name:  "api-url",
				Usage: "Backend base URL (or LASERSTRIKE_API_URL / NEXT_PUBLIC_API_URL)",
			},
			&cli.StringFlag{
				Name:  "host",
				Usage: "Console HTTP host",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Console HTTP port",
			},
			&cli.StringFlag{
				Name:  "session-dir",
				Usage: "Directory holding the persisted player",
			},
			&cli.StringFlag{
				Name:  "orphan-policy",
				Usage: "What happens to pending operations when the connection closes: fail or drop",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
		}, ngrokFlags()...),
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if cmd.Bool("debug") {
				log.SetFlags(log.LstdFlags | log.Lshortfile)
			} else {
				log.SetFlags(log.LstdFlags)
			}
			return ctx, nil
		},
		Action: runServe,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the console HTTP server (default)",
				Action: runServe,
			},
			{
				Name:   "mcp",
				Usage:  "Run an MCP stdio server backed by the console",
				Action: runMCP,
			},
			{
				Name:   "players",
				Usage:  "List players registered with the backend",
				Action: runPlayers,
			},
			{
				Name:   "leaderboard",
				Usage:  "Show players ranked by score",
				Action: runLeaderboard,
			},
			{
				Name:   "snapshots",
				Usage:  "List captured image URLs",
				Action: runSnapshots,
			},
			{
				Name:   "reset",
				Usage:  "Reset the game for every player",
				Action: runReset,
			},
			{
				Name:  "strike",
				Usage: "Send one JPEG frame as a player and print the verdict",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "image", Usage: "Path to a JPEG file", Required: true},
					&cli.IntFlag{Name: "id", Usage: "Player id", Required: true},
					&cli.StringFlag{Name: "name", Usage: "Player name", Value: "cli"},
				},
				Action: runStrike,
			},
		},
	}
}

func ngrokFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:    "ngrok",
			Usage:   "Enable ngrok tunnel",
			Sources: cli.EnvVars("NGROK_ENABLED"),
		},
		&cli.StringFlag{
			Name:    "ngrok-auth",
			Usage:   "Ngrok auth token",
			Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN"),
		},
		&cli.StringFlag{
			Name:    "ngrok-domain",
			Usage:   "Custom ngrok domain (optional)",
			Sources: cli.EnvVars("NGROK_DOMAIN"),
		},
	}
}

func printf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stdout, format, args...)
}
