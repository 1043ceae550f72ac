package engine

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/talgya/pitchside/internal/domain"
	"github.com/talgya/pitchside/internal/entropy"
	"github.com/talgya/pitchside/internal/match"
	"github.com/talgya/pitchside/internal/simerr"
	"github.com/talgya/pitchside/internal/tactics"
	"github.com/talgya/pitchside/internal/weather"
)

// Fixture is everything needed to kick off a match.
type Fixture struct {
	MatchID     string
	Home        domain.Team
	Away        domain.Team
	Weather     weather.Weather
	KickoffAt   time.Time
	HomeTactics *tactics.Setup // Nil means a balanced setup in the team's formation
	AwayTactics *tactics.Setup
}

// Validate checks the fixture's teams and explicit tactics.
func (f Fixture) Validate() error {
	if f.MatchID == "" {
		return simerr.Validation("match id is required", "match_id")
	}
	if err := f.Home.Validate(); err != nil {
		return simerr.Validation(fmt.Sprintf("home team: %v", err), "home")
	}
	if err := f.Away.Validate(); err != nil {
		return simerr.Validation(fmt.Sprintf("away team: %v", err), "away")
	}
	if f.Home.ID == f.Away.ID {
		return simerr.Validation("a team cannot play itself", "home", "away")
	}
	for _, s := range []*tactics.Setup{f.HomeTactics, f.AwayTactics} {
		if s == nil {
			continue
		}
		if err := tactics.AsError(tactics.Validate(*s)); err != nil {
			return err
		}
	}
	return nil
}

func (f Fixture) setup(side match.Side) tactics.Setup {
	team, explicit := f.Home, f.HomeTactics
	if side == match.Away {
		team, explicit = f.Away, f.AwayTactics
	}
	if explicit != nil {
		return explicit.Clone()
	}
	formation := team.Formation
	if !formation.Valid() {
		formation = tactics.F442
	}
	return tactics.Default(formation)
}

// Tick is the outcome of one step: the resulting snapshot and the events
// appended during it, in log order.
type Tick struct {
	Snapshot match.Snapshot
	Events   []match.Event
}

// Simulation is the match phase machine. It owns the current snapshot and is
// not safe for concurrent use; Live serializes all access.
type Simulation struct {
	fixture Fixture
	model   *Model
	src     entropy.Source
	snap    match.Snapshot
	log     zerolog.Logger
}

// NewSimulation creates a simulation positioned before kickoff.
func NewSimulation(f Fixture, v Variant, src entropy.Source, log zerolog.Logger) (*Simulation, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	kickoff := f.KickoffAt
	if kickoff.IsZero() {
		kickoff = time.Now()
	}
	snap := match.New(f.MatchID, f.Home.ID, f.Away.ID, f.Weather, kickoff, f.setup(match.Home), f.setup(match.Away))
	return &Simulation{
		fixture: f,
		model:   NewModel(v, src, f.Home, f.Away, f.Weather.PerformanceImpact()),
		src:     src,
		snap:    snap,
		log:     log.With().Str("match_id", f.MatchID).Logger(),
	}, nil
}

// ResumeSimulation continues from a stored snapshot, for example a
// checkpoint. The snapshot must belong to the fixture's teams.
func ResumeSimulation(snap match.Snapshot, f Fixture, v Variant, src entropy.Source, log zerolog.Logger) (*Simulation, error) {
	f.MatchID = snap.ID
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if snap.HomeTeamID != f.Home.ID || snap.AwayTeamID != f.Away.ID {
		return nil, simerr.InvalidState("snapshot %s is %s vs %s, not %s vs %s",
			snap.ID, snap.HomeTeamID, snap.AwayTeamID, f.Home.ID, f.Away.ID)
	}
	if err := snap.CheckInvariants(); err != nil {
		return nil, simerr.Format("snapshot is inconsistent", err)
	}
	return &Simulation{
		fixture: f,
		model:   NewModel(v, src, f.Home, f.Away, snap.Weather.PerformanceImpact()),
		src:     src,
		snap:    snap,
		log:     log.With().Str("match_id", snap.ID).Logger(),
	}, nil
}

// Snapshot returns the current state.
func (s *Simulation) Snapshot() match.Snapshot { return s.snap }

// Fixture returns the fixture the simulation was built from.
func (s *Simulation) Fixture() Fixture { return s.fixture }

// Model exposes the probability model for inspection.
func (s *Simulation) Model() *Model { return s.model }

func (s *Simulation) emit(t *Tick, e match.Event) {
	e.ID = eventID(s.snap.ID, len(s.snap.Events))
	e.Minute = s.snap.Minute
	s.snap = s.snap.WithEvent(e)
	t.Events = append(t.Events, e)
}

func (s *Simulation) phaseEvent(typ match.EventType, phase match.Phase, desc string) match.Event {
	return match.Event{
		Type:        typ,
		Description: desc,
		Payload:     match.PhasePayload{Phase: phase, HomeScore: s.snap.HomeGoals, AwayScore: s.snap.AwayGoals},
	}
}

// Start kicks off: draws the full-time minute and logs the kickoff event.
func (s *Simulation) Start() (Tick, error) {
	if s.snap.Completed {
		return Tick{}, simerr.InvalidState("match %s already completed", s.snap.ID)
	}
	if s.snap.Started() {
		return Tick{}, simerr.InvalidState("match %s already started", s.snap.ID)
	}

	s.snap = s.snap.WithFullTimeMinute(match.RegulationEnd + s.src.IntN(6))
	next, err := s.snap.AdvanceTo(0, match.PhaseFirstHalf)
	if err != nil {
		return Tick{}, simerr.InvalidState("kickoff: %v", err)
	}
	s.snap = next

	var t Tick
	s.emit(&t, s.phaseEvent(match.EventKickoff, match.PhaseFirstHalf, "Kick-off"))
	t.Snapshot = s.snap
	s.log.Info().Int("full_time_minute", s.snap.FullTimeMinute).Msg("kick-off")
	return t, nil
}

// Step plays one minute and handles phase transitions.
func (s *Simulation) Step() (Tick, error) {
	switch {
	case s.snap.Completed:
		return Tick{}, simerr.InvalidState("match %s already completed", s.snap.ID)
	case !s.snap.Started():
		return Tick{}, simerr.InvalidState("match %s has not kicked off", s.snap.ID)
	}

	var t Tick
	phase := s.snap.Phase
	minute := s.snap.Minute + 1
	if phase == match.PhaseHalfTime {
		phase = match.PhaseSecondHalf
	}
	next, err := s.snap.AdvanceTo(minute, phase)
	if err != nil {
		return Tick{}, simerr.InvalidState("advance: %v", err)
	}
	s.snap = next
	if s.snap.Phase == match.PhaseSecondHalf && minute == match.HalfTimeAt+1 {
		s.emit(&t, s.phaseEvent(match.EventKickoff, match.PhaseSecondHalf, "Second half under way"))
	}

	snap, events := s.model.Resolve(s.snap)
	s.snap = snap
	t.Events = append(t.Events, events...)

	if minute%AutoTacticsEvery == 0 {
		s.reviewTactics(&t)
	}

	switch {
	case minute == match.HalfTimeAt && phase == match.PhaseFirstHalf:
		s.snap, _ = s.snap.AdvanceTo(minute, match.PhaseHalfTime)
		s.emit(&t, s.phaseEvent(match.EventHalfTime, match.PhaseHalfTime,
			fmt.Sprintf("Half-time: %d-%d", s.snap.HomeGoals, s.snap.AwayGoals)))
	case minute >= s.snap.FullTimeMinute:
		s.emit(&t, s.phaseEvent(match.EventFullTime, match.PhaseCompleted,
			fmt.Sprintf("Full-time: %d-%d", s.snap.HomeGoals, s.snap.AwayGoals)))
		done, err := s.snap.Complete()
		if err != nil {
			return Tick{}, simerr.InvalidState("complete: %v", err)
		}
		s.snap = done
		s.log.Info().
			Int("home_goals", done.HomeGoals).
			Int("away_goals", done.AwayGoals).
			Str("result", string(*done.Result)).
			Msg("full-time")
	}

	t.Snapshot = s.snap
	return t, nil
}

// RunTo plays minutes synchronously until the clock reaches minute or the
// match completes. each, if non-nil, receives every intermediate tick.
func (s *Simulation) RunTo(minute int, each func(Tick)) (Tick, error) {
	if minute < 0 || minute > match.MaxMinute {
		return Tick{}, simerr.Validation(
			fmt.Sprintf("minute must be between 0 and %d, got %d", match.MaxMinute, minute), "minute")
	}
	if minute < s.snap.Minute {
		return Tick{}, simerr.InvalidState("cannot jump back from minute %d to %d", s.snap.Minute, minute)
	}
	if s.snap.Completed {
		return Tick{}, simerr.InvalidState("match %s already completed", s.snap.ID)
	}

	agg := Tick{Snapshot: s.snap}
	if !s.snap.Started() {
		t, err := s.Start()
		if err != nil {
			return Tick{}, err
		}
		agg = merge(agg, t, each)
	}
	for s.snap.Minute < minute && !s.snap.Completed {
		t, err := s.Step()
		if err != nil {
			return agg, err
		}
		agg = merge(agg, t, each)
	}
	return agg, nil
}

// RunToEnd plays out the rest of the match.
func (s *Simulation) RunToEnd(each func(Tick)) (Tick, error) {
	if s.snap.Completed {
		return Tick{Snapshot: s.snap}, nil
	}
	return s.RunTo(match.MaxMinute, each)
}

func merge(agg, t Tick, each func(Tick)) Tick {
	if each != nil {
		each(t)
	}
	agg.Snapshot = t.Snapshot
	agg.Events = append(agg.Events, t.Events...)
	return agg
}

// Side resolves a team id to its side and team.
func (s *Simulation) Side(teamID string) (match.Side, domain.Team, error) {
	side, ok := s.snap.SideOf(teamID)
	if !ok {
		return "", domain.Team{}, simerr.NotFound("team", teamID)
	}
	return side, s.model.team(side), nil
}

// ApplyTactics validates setup and installs it for the team, logging a
// tacticalChange event tagged with change.
func (s *Simulation) ApplyTactics(teamID string, setup tactics.Setup, change string) (Tick, error) {
	side, team, err := s.Side(teamID)
	if err != nil {
		return Tick{}, err
	}
	if s.snap.Completed {
		return Tick{}, simerr.InvalidState("match %s already completed", s.snap.ID)
	}
	if err := tactics.AsError(tactics.Validate(setup)); err != nil {
		return Tick{}, err
	}

	var t Tick
	s.installTactics(&t, side, team, setup, change)
	t.Snapshot = s.snap
	return t, nil
}

func (s *Simulation) installTactics(t *Tick, side match.Side, team domain.Team, setup tactics.Setup, change string) {
	s.snap = s.snap.WithTactics(side, setup)
	s.emit(t, match.Event{
		Type:        match.EventTacticalChange,
		TeamID:      team.ID,
		Description: fmt.Sprintf("%s change %s: %s, %s", team.Name, change, setup.Formation, setup.Mentality),
		Payload:     match.TacticalChangePayload{Side: side, Change: change, Setup: setup.Clone()},
	})
	s.log.Debug().Str("team_id", team.ID).Str("change", change).Int("minute", s.snap.Minute).Msg("tactics changed")
}

// ChangeFormation swaps only the team's formation.
func (s *Simulation) ChangeFormation(teamID string, f tactics.Formation) (Tick, error) {
	side, _, err := s.Side(teamID)
	if err != nil {
		return Tick{}, err
	}
	return s.ApplyTactics(teamID, s.snap.Tactics(side).WithFormation(f), "formation")
}

// SetPlayerInstructions sets one player's instruction. The player must be in
// the team's squad.
func (s *Simulation) SetPlayerInstructions(teamID, playerID string, in tactics.Instruction) (Tick, error) {
	side, team, err := s.Side(teamID)
	if err != nil {
		return Tick{}, err
	}
	found := false
	for _, p := range team.Players {
		if p.ID == playerID {
			found = true
			break
		}
	}
	if !found {
		return Tick{}, simerr.NotFound("player", playerID)
	}
	return s.ApplyTactics(teamID, s.snap.Tactics(side).WithInstruction(playerID, in), "instructions")
}

// EnableAutomaticTactics toggles the automatic manager for a team.
func (s *Simulation) EnableAutomaticTactics(teamID string, enabled bool) (Tick, error) {
	side, _, err := s.Side(teamID)
	if err != nil {
		return Tick{}, err
	}
	return s.ApplyTactics(teamID, s.snap.Tactics(side).WithAutomatic(enabled), "automatic")
}

// SetMatchIntensity changes how hard a team plays.
func (s *Simulation) SetMatchIntensity(teamID string, level tactics.Intensity) (Tick, error) {
	side, _, err := s.Side(teamID)
	if err != nil {
		return Tick{}, err
	}
	return s.ApplyTactics(teamID, s.snap.Tactics(side).WithIntensity(level), "intensity")
}

// reviewTactics lets the automatic manager adjust teams that opted in.
func (s *Simulation) reviewTactics(t *Tick) {
	for _, side := range []match.Side{match.Home, match.Away} {
		setup := s.snap.Tactics(side)
		if !setup.Automatic {
			continue
		}
		d := Decide(Observe(s.snap, side))
		if d.Action == ActionNone {
			continue
		}
		if len(tactics.Validate(d.Setup)) > 0 {
			s.log.Warn().Str("side", string(side)).Msg("automatic tactics produced an invalid setup")
			continue
		}
		s.installTactics(t, side, s.model.team(side), d.Setup, "automatic: "+d.Rationale)
	}
}
