package engine

import (
	"github.com/talgya/pitchside/internal/domain"
	"github.com/talgya/pitchside/internal/match"
)

const (
	startingPlayers  = 11
	maxSubstitutions = 5
)

// lineup is who is on the pitch and who can still come on.
type lineup struct {
	active []domain.Player
	bench  []domain.Player
	subs   int
}

// lineupOf derives a team's lineup from the event log: the first eleven of
// the squad start, substitutions swap players in and out, and red-carded
// players are gone for good. A substituted player cannot return.
func lineupOf(t domain.Team, s match.Snapshot) lineup {
	n := min(startingPlayers, len(t.Players))
	on := make(map[string]bool, n)
	for _, p := range t.Players[:n] {
		on[p.ID] = true
	}

	used := make(map[string]bool)
	subs := 0
	for _, e := range s.Events {
		if e.Type != match.EventSubstitution || e.TeamID != t.ID {
			continue
		}
		sub, ok := e.Payload.(match.SubstitutionPayload)
		if !ok {
			continue
		}
		delete(on, sub.OffID)
		on[sub.OnID] = true
		used[sub.OffID] = true
		used[sub.OnID] = true
		subs++
	}

	l := lineup{subs: subs}
	for _, p := range t.Players {
		switch {
		case on[p.ID]:
			if s.Performances[p.ID].RedCards == 0 {
				l.active = append(l.active, p)
			}
		case !used[p.ID] && subs < maxSubstitutions:
			l.bench = append(l.bench, p)
		}
	}
	return l
}

// replacement picks a bench player for off: same position first, then any
// outfield player.
func (l lineup) replacement(off domain.Player) (domain.Player, bool) {
	for _, p := range l.bench {
		if p.Position == off.Position {
			return p, true
		}
	}
	for _, p := range l.bench {
		if p.Position != domain.Goalkeeper {
			return p, true
		}
	}
	return domain.Player{}, false
}

// keeper returns the goalkeeper on the pitch, if any.
func (l lineup) keeper() (domain.Player, bool) {
	for _, p := range l.active {
		if p.Position == domain.Goalkeeper {
			return p, true
		}
	}
	return domain.Player{}, false
}

// redCards counts players sent off for a team.
func redCards(s match.Snapshot, side match.Side) int {
	return s.Stats.Side(side).RedCards
}
