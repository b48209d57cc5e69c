package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/SpherCodes/LaserStrike/game/service"
	"github.com/SpherCodes/LaserStrike/game/session"
	"github.com/SpherCodes/LaserStrike/transport/realtime"
	"github.com/urfave/cli/v3"
)

const (
	connectTimeout = 10 * time.Second
	strikeTimeout  = 15 * time.Second
)

// backendFor loads config and returns a backend client for one-shot commands
func backendFor(cmd *cli.Command) (*service.APIClient, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if cfg.APIURL == "" {
		return nil, service.ErrNotConfigured
	}
	return service.NewAPIClient(cfg.APIURL, cfg.HTTPTimeout), nil
}

func runPlayers(ctx context.Context, cmd *cli.Command) error {
	backend, err := backendFor(cmd)
	if err != nil {
		return err
	}

	players, err := backend.ListPlayers(ctx)
	if err != nil {
		return fmt.Errorf("failed to list players: %w", err)
	}

	if len(players) == 0 {
		printf("No players registered\n")
		return nil
	}

	printf("%-6s %-20s %6s %5s %6s %6s\n", "ID", "NAME", "HEALTH", "KILLS", "DEATHS", "SCORE")
	for _, p := range players {
		printf("%-6d %-20s %6d %5d %6d %6d\n", p.ID, p.Name, p.Health, p.Kills, p.Deaths, p.Score)
	}
	return nil
}

func runLeaderboard(ctx context.Context, cmd *cli.Command) error {
	backend, err := backendFor(cmd)
	if err != nil {
		return err
	}

	standings, err := backend.Leaderboard(ctx)
	if err != nil {
		return fmt.Errorf("failed to load leaderboard: %w", err)
	}

	if len(standings) == 0 {
		printf("Leaderboard is empty\n")
		return nil
	}

	printf("%-4s %-20s %5s %6s %6s\n", "RANK", "NAME", "KILLS", "DEATHS", "SCORE")
	for _, s := range standings {
		printf("%-4d %-20s %5d %6d %6d\n", s.Rank, s.Player.Name, s.Player.Kills, s.Player.Deaths, s.Score)
	}
	return nil
}

func runSnapshots(ctx context.Context, cmd *cli.Command) error {
	backend, err := backendFor(cmd)
	if err != nil {
		return err
	}

	urls, err := backend.ListSnapshots(ctx)
	if err != nil {
		return fmt.Errorf("failed to list snapshots: %w", err)
	}

	if len(urls) == 0 {
		printf("No snapshots\n")
		return nil
	}
	for _, u := range urls {
		printf("%s\n", u)
	}
	return nil
}

func runReset(ctx context.Context, cmd *cli.Command) error {
	backend, err := backendFor(cmd)
	if err != nil {
		return err
	}

	if err := backend.ResetGame(ctx); err != nil {
		return fmt.Errorf("failed to reset game: %w", err)
	}
	printf("Game reset\n")
	return nil
}

type strikeOutcome struct {
	success bool
	message string
}

// runStrike joins as the given player for one capture and prints the verdict.
// The player is kept in memory only.
func runStrike(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.APIURL == "" {
		return service.ErrNotConfigured
	}

	jpeg, err := os.ReadFile(cmd.String("image"))
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}

	rt := realtime.NewManager(realtime.Options{
		BaseURL:      cfg.APIURL,
		OrphanPolicy: orphanPolicy(cfg),
	})
	sess := session.New(session.Options{
		Store:    session.NewMemoryStore(),
		Realtime: rt,
	})
	defer sess.Exit()

	if _, err := sess.Register(ctx, int(cmd.Int("id")), cmd.String("name")); err != nil {
		return err
	}

	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if _, err := sess.Connect(connectCtx); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	done := make(chan strikeOutcome, 1)
	requestID, err := sess.Strike(jpeg, func(success bool, message string) {
		done <- strikeOutcome{success: success, message: message}
	})
	if err != nil {
		return err
	}

	select {
	case out := <-done:
		if requestID != "" {
			printf("Request: %s\n", requestID)
		}
		if !out.success {
			printf("Miss: %s\n", out.message)
			return nil
		}
		printf("Hit: %s\n", out.message)
		if p := sess.Player(); p != nil {
			printf("Health: %d  Kills: %d  Deaths: %d\n", p.Health, p.Kills, p.Deaths)
		}
		return nil
	case <-time.After(strikeTimeout):
		return errors.New("timed out waiting for strike result")
	case <-ctx.Done():
		return ctx.Err()
	}
}
