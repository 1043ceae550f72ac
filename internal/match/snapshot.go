package match

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/talgya/pitchside/internal/tactics"
	"github.com/talgya/pitchside/internal/weather"
)

// Phase is the match-clock phase.
type Phase string

const (
	PhaseNotStarted Phase = "not_started"
	PhaseFirstHalf  Phase = "first_half"
	PhaseHalfTime   Phase = "half_time"
	PhaseSecondHalf Phase = "second_half"
	PhaseCompleted  Phase = "completed"
)

// Result is the final outcome.
type Result string

const (
	HomeWin Result = "home_win"
	AwayWin Result = "away_win"
	Draw    Result = "draw"
)

// ResultFromScore derives the outcome from a goal tally.
func ResultFromScore(home, away int) Result {
	switch {
	case home > away:
		return HomeWin
	case away > home:
		return AwayWin
	default:
		return Draw
	}
}

const (
	MaxMinute     = 120
	RegulationEnd = 90
	HalfTimeAt    = 45
)

// Snapshot is one fully resolved, immutable state of a match. Every change
// goes through a With*/Commit method that returns a new value; slices and
// maps are copied on write so earlier snapshots stay valid.
type Snapshot struct {
	ID             string                 `json:"id"`
	HomeTeamID     string                 `json:"home_team_id"`
	AwayTeamID     string                 `json:"away_team_id"`
	Weather        weather.Weather        `json:"weather"`
	KickoffAt      time.Time              `json:"kickoff_at"`
	HomeGoals      int                    `json:"home_goals"`
	AwayGoals      int                    `json:"away_goals"`
	Minute         int                    `json:"minute"`
	Phase          Phase                  `json:"phase"`
	FullTimeMinute int                    `json:"full_time_minute"`
	Completed      bool                   `json:"completed"`
	Result         *Result                `json:"result,omitempty"`
	Events         []Event                `json:"events"`
	Stats          Statistics             `json:"stats"`
	Performances   map[string]Performance `json:"performances"`
	Momentum       Momentum               `json:"momentum"`
	HomeTactics    tactics.Setup          `json:"home_tactics"`
	AwayTactics    tactics.Setup          `json:"away_tactics"`
}

// New creates the pre-kickoff snapshot.
func New(id, homeTeamID, awayTeamID string, w weather.Weather, kickoff time.Time, homeSetup, awaySetup tactics.Setup) Snapshot {
	return Snapshot{
		ID:             id,
		HomeTeamID:     homeTeamID,
		AwayTeamID:     awayTeamID,
		Weather:        w,
		KickoffAt:      kickoff.UTC(),
		Phase:          PhaseNotStarted,
		FullTimeMinute: RegulationEnd,
		Events:         []Event{},
		Performances:   map[string]Performance{},
		Momentum:       NewMomentum(),
		HomeTactics:    homeSetup.Clone(),
		AwayTactics:    awaySetup.Clone(),
	}
}

// SideOf maps a team id to its side.
func (s Snapshot) SideOf(teamID string) (Side, bool) {
	switch teamID {
	case s.HomeTeamID:
		return Home, true
	case s.AwayTeamID:
		return Away, true
	default:
		return "", false
	}
}

// TeamID returns the team id playing on side.
func (s Snapshot) TeamID(side Side) string {
	if side == Home {
		return s.HomeTeamID
	}
	return s.AwayTeamID
}

// Tactics returns the setup for side.
func (s Snapshot) Tactics(side Side) tactics.Setup {
	if side == Home {
		return s.HomeTactics
	}
	return s.AwayTactics
}

// Started reports whether kickoff has happened.
func (s Snapshot) Started() bool {
	return s.Phase != PhaseNotStarted
}

// Commit is one atomic change to a snapshot: at most one event plus every
// counter it implies. Either all of it lands or none of it does.
type Commit struct {
	Event        *Event
	Stats        map[Side]SideStats
	Performances []PerformanceDelta
	Momentum     *Momentum
}

// Apply returns a new snapshot with c folded in. Goals are derived from
// goal-type events only, so the tally always matches the event log.
func (s Snapshot) Apply(c Commit) Snapshot {
	next := s
	if c.Event != nil {
		next.Events = append(slices.Clip(s.Events), *c.Event)
		if c.Event.Type == EventGoal {
			if side, ok := PayloadSide(c.Event.Payload); ok && side == Away {
				next.AwayGoals++
			} else {
				next.HomeGoals++
			}
		}
	}
	for side, d := range c.Stats {
		next.Stats = next.Stats.withSide(side, next.Stats.Side(side).Add(d))
	}
	if len(c.Performances) > 0 {
		next.Performances = maps.Clone(s.Performances)
		if next.Performances == nil {
			next.Performances = make(map[string]Performance, len(c.Performances))
		}
		for _, d := range c.Performances {
			next.Performances[d.PlayerID] = next.Performances[d.PlayerID].Apply(d)
		}
	}
	if c.Momentum != nil {
		next.Momentum = *c.Momentum
	}
	return next
}

// WithEvent is Apply for a bare event with no counter changes.
func (s Snapshot) WithEvent(e Event) Snapshot {
	return s.Apply(Commit{Event: &e})
}

// AdvanceTo moves the clock. The minute never decreases within a lineage.
func (s Snapshot) AdvanceTo(minute int, phase Phase) (Snapshot, error) {
	if minute < s.Minute {
		return s, fmt.Errorf("minute %d is before current minute %d", minute, s.Minute)
	}
	if minute > MaxMinute {
		return s, fmt.Errorf("minute %d exceeds %d", minute, MaxMinute)
	}
	s.Minute = minute
	s.Phase = phase
	return s, nil
}

// WithFullTimeMinute sets the minute the final whistle will blow.
func (s Snapshot) WithFullTimeMinute(m int) Snapshot {
	s.FullTimeMinute = m
	return s
}

// WithTactics replaces one side's setup.
func (s Snapshot) WithTactics(side Side, setup tactics.Setup) Snapshot {
	if side == Home {
		s.HomeTactics = setup.Clone()
	} else {
		s.AwayTactics = setup.Clone()
	}
	return s
}

// WithPossession folds one minute of possession share and passes.
func (s Snapshot) WithPossession(homeShare float64, homePasses, awayPasses int) Snapshot {
	n := s.Stats.PossessionMinutes + 1
	stats := s.Stats
	stats.Home.Possession = (stats.Home.Possession*float64(n-1) + homeShare*100) / float64(n)
	stats.Away.Possession = 100 - stats.Home.Possession
	stats.Home.Passes += homePasses
	stats.Away.Passes += awayPasses
	stats.PossessionMinutes = n
	s.Stats = stats
	return s
}

// Complete finalizes the match from the goal tally.
func (s Snapshot) Complete() (Snapshot, error) {
	if s.Completed {
		return s, fmt.Errorf("match %s already completed", s.ID)
	}
	if s.Minute < RegulationEnd {
		return s, fmt.Errorf("cannot complete match %s at minute %d", s.ID, s.Minute)
	}
	r := ResultFromScore(s.HomeGoals, s.AwayGoals)
	s.Result = &r
	s.Completed = true
	s.Phase = PhaseCompleted
	return s, nil
}

// GoalEvents counts goal-type events in the log.
func (s Snapshot) GoalEvents() (home, away int) {
	for _, e := range s.Events {
		if e.Type != EventGoal {
			continue
		}
		if side, _ := PayloadSide(e.Payload); side == Away {
			away++
		} else {
			home++
		}
	}
	return home, away
}

// CheckInvariants verifies the structural invariants of a snapshot.
func (s Snapshot) CheckInvariants() error {
	h, a := s.GoalEvents()
	if h != s.HomeGoals || a != s.AwayGoals {
		return fmt.Errorf("score %d-%d does not match goal events %d-%d", s.HomeGoals, s.AwayGoals, h, a)
	}
	if s.Completed {
		if s.Result == nil {
			return fmt.Errorf("completed match has no result")
		}
		if *s.Result != ResultFromScore(s.HomeGoals, s.AwayGoals) {
			return fmt.Errorf("result %s inconsistent with score %d-%d", *s.Result, s.HomeGoals, s.AwayGoals)
		}
		if s.Minute < RegulationEnd {
			return fmt.Errorf("completed at minute %d", s.Minute)
		}
	}
	if s.Momentum.Home < 0 || s.Momentum.Home > 100 || s.Momentum.Away < 0 || s.Momentum.Away > 100 {
		return fmt.Errorf("momentum out of range: %+v", s.Momentum)
	}
	return nil
}
