package player

import "fmt"

// Role describes how a shot event involved a player
type Role int

const (
	RoleNone Role = iota
	RoleKiller
	RoleTarget
	RoleBoth
)

func (r Role) String() string {
	switch r {
	case RoleKiller:
		return "killer"
	case RoleTarget:
		return "target"
	case RoleBoth:
		return "both"
	default:
		return "none"
	}
}

// Outcome is the result of applying a shot event to a player
type Outcome struct {
	Role    Role   `json:"role"`
	Message string `json:"message,omitempty"`
	// Eliminated is set when the shot took the player's last health point.
	Eliminated bool `json:"eliminated,omitempty"`
}

// Affected reports whether the event changed the player
func (o Outcome) Affected() bool {
	return o.Role != RoleNone
}

// RoleIn returns the role the player with the given id has in the event
func (ev ShotEvent) RoleIn(id int) Role {
	killer := ev.Killer.ID == id
	target := ev.Target.ID == id
	switch {
	case killer && target:
		return RoleBoth
	case killer:
		return RoleKiller
	case target:
		return RoleTarget
	default:
		return RoleNone
	}
}

// ApplyShot copies the fields a shot event carries for this player.
// As killer only kills and score change; as target only health and deaths.
func (p *Player) ApplyShot(ev ShotEvent) Outcome {
	role := ev.RoleIn(p.ID)
	out := Outcome{Role: role}

	wasAlive := p.Alive()

	if role == RoleKiller || role == RoleBoth {
		p.Kills = ev.Killer.Kills
		p.Score = ev.Killer.Score
		out.Message = fmt.Sprintf("You shot %s!", ev.Target.Name)
	}
	if role == RoleTarget || role == RoleBoth {
		p.Deaths = ev.Target.Deaths
		p.Health = ev.Target.Health
		out.Message = fmt.Sprintf("You were shot by %s!", ev.Killer.Name)
	}

	out.Eliminated = wasAlive && !p.Alive()
	return out
}
