package service

import (
	"context"

	"github.com/SpherCodes/LaserStrike/game/player"
)

// BackendService defines all backend operations the client uses
type BackendService interface {
	Health(ctx context.Context) (*HealthStatus, error)

	// Players
	ListPlayers(ctx context.Context) ([]player.Player, error)
	GetPlayer(ctx context.Context, id int) (*player.Player, error)
	CreatePlayer(ctx context.Context, p *player.Player) (*player.Player, error)
	DeletePlayer(ctx context.Context, id int) (*player.Player, error)
	Leaderboard(ctx context.Context) ([]player.Standing, error)

	// Admin
	ListSnapshots(ctx context.Context) ([]string, error)
	ResetGame(ctx context.Context) error
}
