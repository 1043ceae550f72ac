package domain

import (
	"fmt"

	"github.com/talgya/pitchside/internal/tactics"
)

// squadShape is the positional make-up of a generated squad.
var squadShape = []Position{
	Goalkeeper,
	Defender, Defender, Defender, Defender,
	Midfielder, Midfielder, Midfielder,
	Forward, Forward, Forward,
	Goalkeeper, Defender, Midfielder, Forward,
}

// SampleTeam builds a deterministic team for demos and tests.
func SampleTeam(id, name string, rating float64, capacity int) Team {
	players := make([]Player, len(squadShape))
	for i, pos := range squadShape {
		players[i] = Player{
			ID:       fmt.Sprintf("%s-p%02d", id, i+1),
			Name:     fmt.Sprintf("%s #%d", name, i+1),
			Position: pos,
			Number:   i + 1,
			Rating:   rating,
		}
	}
	short := name
	if len(short) > 3 {
		short = short[:3]
	}
	return Team{
		ID:              id,
		Name:            name,
		ShortName:       short,
		Rating:          rating,
		Chemistry:       70,
		Morale:          70,
		StadiumCapacity: capacity,
		Formation:       tactics.F442,
		Players:         players,
	}
}

// DemoTeams is the built-in catalog served when no external roster is wired.
func DemoTeams() []Team {
	teams := []Team{
		SampleTeam("ars", "Arsenal", 82, 60704),
		SampleTeam("che", "Chelsea", 79, 40341),
		SampleTeam("liv", "Liverpool", 84, 61276),
		SampleTeam("mci", "Manchester City", 86, 53400),
		SampleTeam("new", "Newcastle", 77, 52305),
		SampleTeam("tot", "Tottenham", 78, 62850),
	}
	teams[0].ShortName, teams[1].ShortName, teams[2].ShortName = "ARS", "CHE", "LIV"
	teams[3].ShortName, teams[4].ShortName, teams[5].ShortName = "MCI", "NEW", "TOT"
	teams[2].Formation = tactics.F433
	teams[3].Formation = tactics.F4231
	teams[4].Formation = tactics.F433
	return teams
}
