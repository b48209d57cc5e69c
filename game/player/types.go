package player

const (
	// MaxHealth is the health every player starts a game with.
	MaxHealth = 10

	// Score weights used by the admin leaderboard.
	KillScore  = 100
	DeathScore = 10
)

// Player is a snapshot of one player as reported by the backend
type Player struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Health int    `json:"health"`
	Kills  int    `json:"kills"`
	Deaths int    `json:"deaths"`
	Score  int    `json:"score"`
}

// ShotEvent is a broadcast describing one successful capture
type ShotEvent struct {
	Killer Player `json:"killer"`
	Target Player `json:"target"`
}

// Standing is one row of a ranked leaderboard
type Standing struct {
	Rank   int    `json:"rank"`
	Player Player `json:"player"`
	Score  int    `json:"score"`
}

// New returns a freshly registered player at full health
func New(id int, name string) *Player {
	return &Player{
		ID:     id,
		Name:   name,
		Health: MaxHealth,
	}
}

// Alive reports whether the player still has health left
func (p *Player) Alive() bool {
	return p.Health > 0
}

// Clone returns a copy of the player
func (p *Player) Clone() *Player {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}
