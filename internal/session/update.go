package session

import (
	"fmt"

	"github.com/talgya/pitchside/internal/engine"
	"github.com/talgya/pitchside/internal/match"
)

// Update is one record of the merged state stream: the snapshot after the
// tick, the event it reports (nil for quiet minutes and rewinds), the
// commentary payload for that event, and stream metadata.
type Update struct {
	Snapshot   match.Snapshot  `json:"snapshot"`
	Event      *match.Event    `json:"event,omitempty"`
	Commentary *CommentaryHook `json:"commentary,omitempty"`
	Meta       Meta            `json:"meta"`
}

// Meta describes where an update sits in the stream.
type Meta struct {
	Sequence     uint64          `json:"sequence"`
	Speed        float64         `json:"speed"`
	RunState     engine.RunState `json:"run_state"`
	CheckpointID string          `json:"checkpoint_id,omitempty"` // Set when the update created or restored a checkpoint
}

// CommentaryHook is the payload handed to a commentary renderer. It carries
// only what a template needs; no text is generated here.
type CommentaryHook struct {
	EventID    string          `json:"event_id"`
	Type       match.EventType `json:"type"`
	Clock      string          `json:"clock"`
	TeamID     string          `json:"team_id,omitempty"`
	PlayerID   string          `json:"player_id,omitempty"`
	PlayerName string          `json:"player_name,omitempty"`
	Score      string          `json:"score"`
	Excitement int             `json:"excitement"` // 0 routine .. 3 decisive
	Text       string          `json:"text"`
}

var excitement = map[match.EventType]int{
	match.EventGoal:           3,
	match.EventRedCard:        3,
	match.EventShotOnTarget:   2,
	match.EventSave:           2,
	match.EventYellowCard:     2,
	match.EventInjury:         2,
	match.EventHalfTime:       2,
	match.EventFullTime:       2,
	match.EventKickoff:        1,
	match.EventShotOffTarget:  1,
	match.EventCorner:         1,
	match.EventSubstitution:   1,
	match.EventTacticalChange: 1,
}

// commentaryFor builds the hook for e. Momentum shifts are not narrated.
func commentaryFor(e match.Event, snap match.Snapshot) *CommentaryHook {
	if e.Type == match.EventMomentumShift {
		return nil
	}
	home, away := snap.HomeGoals, snap.AwayGoals
	if g, ok := e.Payload.(match.GoalPayload); ok {
		home, away = g.HomeScore, g.AwayScore
	}
	return &CommentaryHook{
		EventID:    e.ID,
		Type:       e.Type,
		Clock:      engine.MatchTime(e.Minute),
		TeamID:     e.TeamID,
		PlayerID:   e.PlayerID,
		PlayerName: e.PlayerName,
		Score:      fmt.Sprintf("%d-%d", home, away),
		Excitement: excitement[e.Type],
		Text:       e.Description,
	}
}
