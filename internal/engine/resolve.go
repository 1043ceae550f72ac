package engine

import (
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/talgya/pitchside/internal/domain"
	"github.com/talgya/pitchside/internal/entropy"
	"github.com/talgya/pitchside/internal/match"
	"github.com/talgya/pitchside/internal/strength"
	"github.com/talgya/pitchside/internal/tactics"
)

// Resolution constants.
const (
	OnTargetChance   = 0.40
	GoalChance       = 0.30 // Of on-target shots
	HomeCardShare    = 0.45
	RedCardChance    = 0.10
	RedCardPenalty   = 0.10 // Strength lost per player sent off
	minStrengthShare = 0.5
)

var (
	shooterWeights  = map[domain.Position]float64{domain.Forward: 60, domain.Midfielder: 30, domain.Defender: 10}
	tacklerWeights  = map[domain.Position]float64{domain.Defender: 50, domain.Midfielder: 35, domain.Forward: 15}
	foulerWeights   = map[domain.Position]float64{domain.Defender: 45, domain.Midfielder: 40, domain.Forward: 15}
	offsideWeights  = map[domain.Position]float64{domain.Forward: 70, domain.Midfielder: 25, domain.Defender: 5}
	outfieldWeights = map[domain.Position]float64{domain.Forward: 1, domain.Midfielder: 1, domain.Defender: 1}

	injurySeverities = []string{"minor", "moderate", "serious"}
	injuryWeights    = []float64{60, 30, 10}
)

// eventNamespace seeds deterministic event ids.
var eventNamespace = uuid.MustParse("6f1c1e4a-5b1d-4c8e-9a53-0c7d0e1f2a90")

// eventID derives a stable id from the match and the event's log position.
func eventID(matchID string, seq int) string {
	return uuid.NewSHA1(eventNamespace, fmt.Appendf(nil, "%s/%d", matchID, seq)).String()
}

// Model resolves one simulated minute into events. It is not safe for
// concurrent use; the owning Simulation serializes access.
type Model struct {
	variant      Variant
	src          entropy.Source
	home, away   domain.Team
	homeStrength float64
	awayStrength float64
}

// NewModel builds a model for a fixture. Base strengths are fixed at kickoff.
func NewModel(v Variant, src entropy.Source, home, away domain.Team, weatherImpact float64) *Model {
	return &Model{
		variant:      v,
		src:          src,
		home:         home,
		away:         away,
		homeStrength: strength.ForTeam(home, true, weatherImpact),
		awayStrength: strength.ForTeam(away, false, weatherImpact),
	}
}

// Strength returns a side's effective strength, reduced for red cards.
func (m *Model) Strength(s match.Snapshot, side match.Side) float64 {
	base := m.homeStrength
	if side == match.Away {
		base = m.awayStrength
	}
	factor := max(minStrengthShare, 1-RedCardPenalty*float64(redCards(s, side)))
	return base * factor
}

// Context builds the probability input for the snapshot's current minute.
func (m *Model) Context(s match.Snapshot) Context {
	return Context{
		Minute:       s.Minute,
		HomeStrength: m.Strength(s, match.Home),
		AwayStrength: m.Strength(s, match.Away),
		HomeTactics:  s.HomeTactics,
		AwayTactics:  s.AwayTactics,
	}
}

func (m *Model) team(side match.Side) domain.Team {
	if side == match.Home {
		return m.home
	}
	return m.away
}

// Resolve plays out the snapshot's current minute. Every occurrence is
// committed on its own, so a later category in the same minute sees the
// effects of an earlier one.
func (m *Model) Resolve(s match.Snapshot) (match.Snapshot, []match.Event) {
	ctx := m.Context(s)
	p := ComputeProbabilities(ctx, m.variant)
	r := &resolution{model: m, snap: s, ctx: ctx}

	if entropy.Chance(m.src, p.Shot) {
		r.shot()
	}
	if entropy.Chance(m.src, p.Tackle) {
		r.tackle()
	}
	if entropy.Chance(m.src, p.Foul) {
		r.foul()
	}
	if entropy.Chance(m.src, p.Card) {
		r.card()
	}
	if entropy.Chance(m.src, p.Corner) {
		r.corner()
	}
	if entropy.Chance(m.src, p.Offside) {
		r.offside()
	}
	if entropy.Chance(m.src, p.Injury) {
		r.injury()
	}
	if entropy.Chance(m.src, p.Momentum) {
		r.momentum()
	}
	r.possession()
	return r.snap, r.events
}

// resolution accumulates the commits of one minute.
type resolution struct {
	model  *Model
	snap   match.Snapshot
	ctx    Context
	events []match.Event
}

func (r *resolution) commit(c match.Commit) {
	if c.Event != nil {
		c.Event.ID = eventID(r.snap.ID, len(r.snap.Events))
		c.Event.Minute = r.snap.Minute
		r.events = append(r.events, *c.Event)
	}
	r.snap = r.snap.Apply(c)
}

// pickSide chooses home with probability wHome / (wHome + wAway).
func (r *resolution) pickSide(wHome, wAway float64) match.Side {
	if wHome+wAway <= 0 {
		wHome, wAway = 1, 1
	}
	if entropy.Chance(r.model.src, wHome/(wHome+wAway)) {
		return match.Home
	}
	return match.Away
}

// pickPlayer draws an on-pitch player weighted by position.
func (r *resolution) pickPlayer(side match.Side, weights map[domain.Position]float64) (domain.Player, bool) {
	active := lineupOf(r.model.team(side), r.snap).active
	ws := make([]float64, len(active))
	for i, p := range active {
		ws[i] = weights[p.Position]
	}
	i := entropy.Weighted(r.model.src, ws)
	if i < 0 {
		return domain.Player{}, false
	}
	return active[i], true
}

func (r *resolution) modifiers(side match.Side) tactics.Modifier {
	return tactics.Modifiers(r.snap.Tactics(side))
}

func (r *resolution) strength(side match.Side) float64 {
	if side == match.Home {
		return r.ctx.HomeStrength
	}
	return r.ctx.AwayStrength
}

func (r *resolution) shot() {
	side := r.pickSide(
		r.modifiers(match.Home).Attacking*r.strength(match.Home),
		r.modifiers(match.Away).Attacking*r.strength(match.Away),
	)
	team := r.model.team(side)
	shooter, ok := r.pickPlayer(side, shooterWeights)
	if !ok {
		return
	}

	if !entropy.Chance(r.model.src, OnTargetChance) {
		r.commit(match.Commit{
			Event: &match.Event{
				Type: match.EventShotOffTarget, TeamID: team.ID,
				PlayerID: shooter.ID, PlayerName: shooter.Name,
				Description: fmt.Sprintf("%s (%s) fires wide", shooter.Name, team.Name),
				Payload:     match.ShotPayload{Side: side},
			},
			Stats:        map[match.Side]match.SideStats{side: {Shots: 1}},
			Performances: []match.PerformanceDelta{{PlayerID: shooter.ID, TeamID: team.ID, Shots: 1, Rating: -0.1}},
		})
		return
	}

	if entropy.Chance(r.model.src, GoalChance) {
		home, away := r.snap.HomeGoals, r.snap.AwayGoals
		if side == match.Home {
			home++
		} else {
			away++
		}
		perfs := []match.PerformanceDelta{
			{PlayerID: shooter.ID, TeamID: team.ID, Shots: 1, ShotsOnTarget: 1, Goals: 1, Rating: 1.0},
		}
		defending := r.model.team(side.Opponent())
		if gk, ok := lineupOf(defending, r.snap).keeper(); ok {
			perfs = append(perfs, match.PerformanceDelta{PlayerID: gk.ID, TeamID: defending.ID, Rating: -0.3})
		}
		r.commit(match.Commit{
			Event: &match.Event{
				Type: match.EventGoal, TeamID: team.ID,
				PlayerID: shooter.ID, PlayerName: shooter.Name,
				Description: fmt.Sprintf("GOAL! %s scores for %s (%d-%d)", shooter.Name, team.Name, home, away),
				Payload:     match.GoalPayload{Side: side, HomeScore: home, AwayScore: away},
			},
			Stats:        map[match.Side]match.SideStats{side: {Shots: 1, ShotsOnTarget: 1}},
			Performances: perfs,
		})
		return
	}

	r.commit(match.Commit{
		Event: &match.Event{
			Type: match.EventShotOnTarget, TeamID: team.ID,
			PlayerID: shooter.ID, PlayerName: shooter.Name,
			Description: fmt.Sprintf("%s (%s) forces a save", shooter.Name, team.Name),
			Payload:     match.ShotPayload{Side: side, OnTarget: true, Saved: true},
		},
		Stats:        map[match.Side]match.SideStats{side: {Shots: 1, ShotsOnTarget: 1}},
		Performances: []match.PerformanceDelta{{PlayerID: shooter.ID, TeamID: team.ID, Shots: 1, ShotsOnTarget: 1, Rating: 0.1}},
	})

	opp := side.Opponent()
	defending := r.model.team(opp)
	gk, ok := lineupOf(defending, r.snap).keeper()
	if !ok {
		return
	}
	r.commit(match.Commit{
		Event: &match.Event{
			Type: match.EventSave, TeamID: defending.ID,
			PlayerID: gk.ID, PlayerName: gk.Name,
			Description: fmt.Sprintf("%s saves from %s", gk.Name, shooter.Name),
			Payload:     match.SidePayload{Side: opp},
		},
		Stats:        map[match.Side]match.SideStats{opp: {Saves: 1}},
		Performances: []match.PerformanceDelta{{PlayerID: gk.ID, TeamID: defending.ID, Saves: 1, Rating: 0.3}},
	})
}

func (r *resolution) tackle() {
	side := r.pickSide(
		r.modifiers(match.Home).Defending*r.strength(match.Home),
		r.modifiers(match.Away).Defending*r.strength(match.Away),
	)
	team := r.model.team(side)
	p, ok := r.pickPlayer(side, tacklerWeights)
	if !ok {
		return
	}
	r.commit(match.Commit{
		Event: &match.Event{
			Type: match.EventTackle, TeamID: team.ID,
			PlayerID: p.ID, PlayerName: p.Name,
			Description: fmt.Sprintf("%s wins the ball back for %s", p.Name, team.Name),
			Payload:     match.SidePayload{Side: side},
		},
		Stats:        map[match.Side]match.SideStats{side: {Tackles: 1}},
		Performances: []match.PerformanceDelta{{PlayerID: p.ID, TeamID: team.ID, Tackles: 1, Rating: 0.2}},
	})
}

func (r *resolution) foul() {
	side := r.pickSide(
		tactics.PressingFactor(r.snap.HomeTactics),
		tactics.PressingFactor(r.snap.AwayTactics),
	)
	team := r.model.team(side)
	p, ok := r.pickPlayer(side, foulerWeights)
	if !ok {
		return
	}
	r.commit(match.Commit{
		Event: &match.Event{
			Type: match.EventFoul, TeamID: team.ID,
			PlayerID: p.ID, PlayerName: p.Name,
			Description: fmt.Sprintf("Foul by %s (%s)", p.Name, team.Name),
			Payload:     match.SidePayload{Side: side},
		},
		Stats:        map[match.Side]match.SideStats{side: {Fouls: 1}},
		Performances: []match.PerformanceDelta{{PlayerID: p.ID, TeamID: team.ID, Fouls: 1, Rating: -0.1}},
	})
}

func (r *resolution) card() {
	side := match.Away
	if entropy.Chance(r.model.src, HomeCardShare) {
		side = match.Home
	}
	team := r.model.team(side)
	p, ok := r.pickPlayer(side, foulerWeights)
	if !ok {
		return
	}

	straightRed := entropy.Chance(r.model.src, RedCardChance)
	secondYellow := !straightRed && r.snap.Performances[p.ID].YellowCards > 0

	switch {
	case straightRed:
		r.commit(match.Commit{
			Event: &match.Event{
				Type: match.EventRedCard, TeamID: team.ID,
				PlayerID: p.ID, PlayerName: p.Name,
				Description: fmt.Sprintf("Red card! %s (%s) is sent off", p.Name, team.Name),
				Payload:     match.CardPayload{Side: side, Red: true},
			},
			Stats:        map[match.Side]match.SideStats{side: {RedCards: 1}},
			Performances: []match.PerformanceDelta{{PlayerID: p.ID, TeamID: team.ID, RedCards: 1, Rating: -1.5}},
		})
	case secondYellow:
		r.commit(match.Commit{
			Event: &match.Event{
				Type: match.EventRedCard, TeamID: team.ID,
				PlayerID: p.ID, PlayerName: p.Name,
				Description: fmt.Sprintf("Second yellow for %s (%s), sent off", p.Name, team.Name),
				Payload:     match.CardPayload{Side: side, Red: true},
			},
			Stats:        map[match.Side]match.SideStats{side: {YellowCards: 1, RedCards: 1}},
			Performances: []match.PerformanceDelta{{PlayerID: p.ID, TeamID: team.ID, YellowCards: 1, RedCards: 1, Rating: -1.5}},
		})
	default:
		r.commit(match.Commit{
			Event: &match.Event{
				Type: match.EventYellowCard, TeamID: team.ID,
				PlayerID: p.ID, PlayerName: p.Name,
				Description: fmt.Sprintf("Yellow card for %s (%s)", p.Name, team.Name),
				Payload:     match.CardPayload{Side: side},
			},
			Stats:        map[match.Side]match.SideStats{side: {YellowCards: 1}},
			Performances: []match.PerformanceDelta{{PlayerID: p.ID, TeamID: team.ID, YellowCards: 1, Rating: -0.5}},
		})
	}
}

func (r *resolution) corner() {
	side := r.pickSide(
		r.modifiers(match.Home).ChanceCreation*r.strength(match.Home),
		r.modifiers(match.Away).ChanceCreation*r.strength(match.Away),
	)
	team := r.model.team(side)
	r.commit(match.Commit{
		Event: &match.Event{
			Type: match.EventCorner, TeamID: team.ID,
			Description: fmt.Sprintf("Corner to %s", team.Name),
			Payload:     match.SidePayload{Side: side},
		},
		Stats: map[match.Side]match.SideStats{side: {Corners: 1}},
	})
}

func (r *resolution) offside() {
	side := r.pickSide(directnessFactor(r.snap.HomeTactics), directnessFactor(r.snap.AwayTactics))
	team := r.model.team(side)
	p, ok := r.pickPlayer(side, offsideWeights)
	if !ok {
		return
	}
	r.commit(match.Commit{
		Event: &match.Event{
			Type: match.EventOffside, TeamID: team.ID,
			PlayerID: p.ID, PlayerName: p.Name,
			Description: fmt.Sprintf("%s (%s) is caught offside", p.Name, team.Name),
			Payload:     match.SidePayload{Side: side},
		},
		Stats: map[match.Side]match.SideStats{side: {Offsides: 1}},
	})
}

func (r *resolution) injury() {
	side := r.pickSide(1, 1)
	team := r.model.team(side)
	p, ok := r.pickPlayer(side, outfieldWeights)
	if !ok {
		return
	}
	severity := injurySeverities[max(0, entropy.Weighted(r.model.src, injuryWeights))]
	r.commit(match.Commit{
		Event: &match.Event{
			Type: match.EventInjury, TeamID: team.ID,
			PlayerID: p.ID, PlayerName: p.Name,
			Description: fmt.Sprintf("%s (%s) picks up a %s injury", p.Name, team.Name, severity),
			Payload:     match.InjuryPayload{Side: side, Severity: severity},
		},
		Performances: []match.PerformanceDelta{{PlayerID: p.ID, TeamID: team.ID, Injured: true}},
	})

	on, ok := lineupOf(team, r.snap).replacement(p)
	if !ok {
		return
	}
	r.commit(match.Commit{
		Event: &match.Event{
			Type: match.EventSubstitution, TeamID: team.ID,
			PlayerID: on.ID, PlayerName: on.Name,
			Description: fmt.Sprintf("%s replaces the injured %s", on.Name, p.Name),
			Payload:     match.SubstitutionPayload{Side: side, OffID: p.ID, OnID: on.ID},
		},
		Performances: []match.PerformanceDelta{{PlayerID: on.ID, TeamID: team.ID}},
	})
}

func (r *resolution) momentum() {
	span := r.model.variant.MomentumRange()
	delta := entropy.Between(r.model.src, -span, span)
	next := r.snap.Momentum.Shift(delta)

	side := match.Home
	if delta < 0 {
		side = match.Away
	}
	team := r.model.team(side)
	r.commit(match.Commit{
		Event: &match.Event{
			Type:        match.EventMomentumShift,
			TeamID:      team.ID,
			Description: fmt.Sprintf("Momentum swings towards %s", team.Name),
			Payload:     match.MomentumPayload{Delta: delta, Home: next.Home, Away: next.Away},
		},
		Momentum: &next,
	})
}

// possession accrues one minute of ball share and passes.
func (r *resolution) possession() {
	h := r.modifiers(match.Home).Possession * r.strength(match.Home)
	a := r.modifiers(match.Away).Possession * r.strength(match.Away)
	share := 0.5
	if h+a > 0 {
		share = h / (h + a)
	}
	passes := 8 + r.model.src.IntN(8)
	homePasses := int(math.Round(float64(passes) * share))
	r.snap = r.snap.WithPossession(share, homePasses, passes-homePasses)
}
