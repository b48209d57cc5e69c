package player

import "sort"

// ComputeScore returns the leaderboard score for a player.
// Health does not contribute.
func ComputeScore(p Player) int {
	return p.Kills*KillScore + p.Deaths*DeathScore
}

// Rank orders players by computed score, highest first. Ties keep id order.
func Rank(players []Player) []Standing {
	sorted := make([]Player, len(players))
	copy(sorted, players)

	sort.SliceStable(sorted, func(i, j int) bool {
		si, sj := ComputeScore(sorted[i]), ComputeScore(sorted[j])
		if si != sj {
			return si > sj
		}
		return sorted[i].ID < sorted[j].ID
	})

	standings := make([]Standing, 0, len(sorted))
	for i, p := range sorted {
		standings = append(standings, Standing{
			Rank:   i + 1,
			Player: p,
			Score:  ComputeScore(p),
		})
	}
	return standings
}

// HealthLevel buckets a health value for display
type HealthLevel string

const (
	Healthy  HealthLevel = "healthy"
	Wounded  HealthLevel = "wounded"
	Critical HealthLevel = "critical"
)

// LevelFor returns the display level for current out of max health
func LevelFor(current, max int) HealthLevel {
	if max <= 0 {
		max = MaxHealth
	}
	percent := current * 100 / max
	switch {
	case percent < 30:
		return Critical
	case percent < 70:
		return Wounded
	default:
		return Healthy
	}
}
