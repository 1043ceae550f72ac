package match

import "math"

// SideStats are the aggregate counters for one team.
type SideStats struct {
	Shots         int     `json:"shots"`
	ShotsOnTarget int     `json:"shots_on_target"`
	Passes        int     `json:"passes"`
	Tackles       int     `json:"tackles"`
	Corners       int     `json:"corners"`
	Offsides      int     `json:"offsides"`
	Fouls         int     `json:"fouls"`
	YellowCards   int     `json:"yellow_cards"`
	RedCards      int     `json:"red_cards"`
	Saves         int     `json:"saves"`
	Possession    float64 `json:"possession"` // Percent, running average over played minutes
}

// Add returns s with every counter of d added. Possession is not additive
// and is left untouched.
func (s SideStats) Add(d SideStats) SideStats {
	s.Shots += d.Shots
	s.ShotsOnTarget += d.ShotsOnTarget
	s.Passes += d.Passes
	s.Tackles += d.Tackles
	s.Corners += d.Corners
	s.Offsides += d.Offsides
	s.Fouls += d.Fouls
	s.YellowCards += d.YellowCards
	s.RedCards += d.RedCards
	s.Saves += d.Saves
	return s
}

// Statistics holds both sides' counters.
type Statistics struct {
	Home              SideStats `json:"home"`
	Away              SideStats `json:"away"`
	PossessionMinutes int       `json:"possession_minutes"`
}

// Side returns the counters for side.
func (s Statistics) Side(side Side) SideStats {
	if side == Home {
		return s.Home
	}
	return s.Away
}

func (s Statistics) withSide(side Side, v SideStats) Statistics {
	if side == Home {
		s.Home = v
	} else {
		s.Away = v
	}
	return s
}

// Performance is a player's running match record.
type Performance struct {
	PlayerID      string  `json:"player_id"`
	TeamID        string  `json:"team_id"`
	Shots         int     `json:"shots"`
	ShotsOnTarget int     `json:"shots_on_target"`
	Goals         int     `json:"goals"`
	Tackles       int     `json:"tackles"`
	Fouls         int     `json:"fouls"`
	YellowCards   int     `json:"yellow_cards"`
	RedCards      int     `json:"red_cards"`
	Saves         int     `json:"saves"`
	Injured       bool    `json:"injured,omitempty"`
	Rating        float64 `json:"rating"`
}

// BaseRating is the rating every player starts the match on.
const BaseRating = 6.0

// PerformanceDelta is an increment applied to one player's record.
type PerformanceDelta struct {
	PlayerID      string
	TeamID        string
	Shots         int
	ShotsOnTarget int
	Goals         int
	Tackles       int
	Fouls         int
	YellowCards   int
	RedCards      int
	Saves         int
	Injured       bool
	Rating        float64
}

// Apply folds d into p. Ratings stay within [1, 10].
func (p Performance) Apply(d PerformanceDelta) Performance {
	if p.PlayerID == "" {
		p = Performance{PlayerID: d.PlayerID, TeamID: d.TeamID, Rating: BaseRating}
	}
	p.Shots += d.Shots
	p.ShotsOnTarget += d.ShotsOnTarget
	p.Goals += d.Goals
	p.Tackles += d.Tackles
	p.Fouls += d.Fouls
	p.YellowCards += d.YellowCards
	p.RedCards += d.RedCards
	p.Saves += d.Saves
	p.Injured = p.Injured || d.Injured
	p.Rating = max(1, min(10, p.Rating+d.Rating))
	return p
}

// Momentum is each side's perceived control, independently clamped to [0, 100].
type Momentum struct {
	Home float64 `json:"home"`
	Away float64 `json:"away"`
}

// NewMomentum returns the neutral kickoff reading.
func NewMomentum() Momentum {
	return Momentum{Home: 50, Away: 50}
}

// Shift applies delta to home and its negation to away, clamping both.
func (m Momentum) Shift(delta float64) Momentum {
	if math.IsNaN(delta) {
		delta = 0
	}
	return Momentum{
		Home: clampMomentum(m.Home + delta),
		Away: clampMomentum(m.Away - delta),
	}
}

// Leader returns the side with higher momentum, or "" when level.
func (m Momentum) Leader() Side {
	switch {
	case m.Home > m.Away:
		return Home
	case m.Away > m.Home:
		return Away
	default:
		return ""
	}
}

func clampMomentum(v float64) float64 {
	return max(0, min(100, v))
}
