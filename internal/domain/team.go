// Package domain holds the read-only team and player values the simulation
// consumes. The engine never mutates them; it references them by id.
package domain

import (
	"fmt"
	"slices"
	"strings"

	"github.com/talgya/pitchside/internal/tactics"
)

// Position is a player's broad on-pitch role.
type Position string

const (
	Goalkeeper Position = "GK"
	Defender   Position = "DF"
	Midfielder Position = "MF"
	Forward    Position = "FW"
)

// Player is a squad member.
type Player struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Position Position `json:"position"`
	Number   int      `json:"number"`
	Rating   float64  `json:"rating"` // 0-100
}

// Team is a club's match-day input.
type Team struct {
	ID              string            `json:"id"`
	Name            string            `json:"name"`
	ShortName       string            `json:"short_name"`
	Rating          float64           `json:"rating"`    // 0-100
	Chemistry       float64           `json:"chemistry"` // 0-100
	Morale          float64           `json:"morale"`    // 0-100
	StadiumCapacity int               `json:"stadium_capacity"`
	Formation       tactics.Formation `json:"formation"`
	Players         []Player          `json:"players"`
}

// Validate checks the minimum a team needs to take the field.
func (t Team) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("team has no id")
	}
	if len(t.Players) == 0 {
		return fmt.Errorf("team %s has no players", t.ID)
	}
	if t.Rating <= 0 {
		return fmt.Errorf("team %s has non-positive rating %.1f", t.ID, t.Rating)
	}
	return nil
}

// Outfield returns players who are not goalkeepers.
func (t Team) Outfield() []Player {
	out := make([]Player, 0, len(t.Players))
	for _, p := range t.Players {
		if p.Position != Goalkeeper {
			out = append(out, p)
		}
	}
	return out
}

// ByPosition returns players in the given position.
func (t Team) ByPosition(pos Position) []Player {
	var out []Player
	for _, p := range t.Players {
		if p.Position == pos {
			out = append(out, p)
		}
	}
	return out
}

// PlayerRef is the presentation-time identity of a player.
type PlayerRef struct {
	TeamID string
	Player Player
}

// Roster is the id side table for teams and players in one match.
type Roster struct {
	teams   map[string]Team
	players map[string]PlayerRef
}

// NewRoster indexes the given teams and their players.
func NewRoster(teams ...Team) *Roster {
	r := &Roster{
		teams:   make(map[string]Team, len(teams)),
		players: make(map[string]PlayerRef),
	}
	for _, t := range teams {
		r.teams[t.ID] = t
		for _, p := range t.Players {
			r.players[p.ID] = PlayerRef{TeamID: t.ID, Player: p}
		}
	}
	return r
}

// Team looks up a team by id.
func (r *Roster) Team(id string) (Team, bool) {
	t, ok := r.teams[id]
	return t, ok
}

// Player looks up a player by id.
func (r *Roster) Player(id string) (PlayerRef, bool) {
	p, ok := r.players[id]
	return p, ok
}

// Teams returns every indexed team ordered by id.
func (r *Roster) Teams() []Team {
	out := make([]Team, 0, len(r.teams))
	for _, t := range r.teams {
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b Team) int { return strings.Compare(a.ID, b.ID) })
	return out
}
