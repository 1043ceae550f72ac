// Package match defines the immutable values the simulation produces:
// snapshots, events, statistics, momentum and player performance records.
package match

import (
	"encoding/json"
	"fmt"

	"github.com/talgya/pitchside/internal/tactics"
)

// Side identifies home or away.
type Side string

const (
	Home Side = "home"
	Away Side = "away"
)

// Opponent returns the other side.
func (s Side) Opponent() Side {
	if s == Home {
		return Away
	}
	return Home
}

// EventType is the closed set of match event kinds.
type EventType string

const (
	EventKickoff        EventType = "kickoff"
	EventHalfTime       EventType = "half_time"
	EventFullTime       EventType = "full_time"
	EventGoal           EventType = "goal"
	EventYellowCard     EventType = "yellow_card"
	EventRedCard        EventType = "red_card"
	EventShotOnTarget   EventType = "shot_on_target"
	EventShotOffTarget  EventType = "shot_off_target"
	EventTackle         EventType = "tackle"
	EventFoul           EventType = "foul"
	EventCorner         EventType = "corner"
	EventOffside        EventType = "offside"
	EventInjury         EventType = "injury"
	EventTacticalChange EventType = "tactical_change"
	EventMomentumShift  EventType = "momentum_shift"
	EventSubstitution   EventType = "substitution"
	EventSave           EventType = "save"
)

// Event is one occurrence in the match log. Created once, never mutated.
type Event struct {
	ID          string    `json:"id"`
	Type        EventType `json:"type"`
	Minute      int       `json:"minute"`
	TeamID      string    `json:"team_id,omitempty"`
	PlayerID    string    `json:"player_id,omitempty"`
	PlayerName  string    `json:"player_name,omitempty"`
	Description string    `json:"description"`
	Payload     Payload   `json:"payload,omitempty"`
}

// Payload is the typed detail attached to an event. The set of
// implementations is closed to this package.
type Payload interface {
	payloadKind() string
}

// GoalPayload carries the score after the goal.
type GoalPayload struct {
	Side      Side `json:"side"`
	HomeScore int  `json:"home_score"`
	AwayScore int  `json:"away_score"`
}

// CardPayload is attached to yellow and red cards.
type CardPayload struct {
	Side Side `json:"side"`
	Red  bool `json:"red"`
}

// ShotPayload is attached to shots and saves.
type ShotPayload struct {
	Side     Side `json:"side"`
	OnTarget bool `json:"on_target"`
	Saved    bool `json:"saved"`
}

// SidePayload is attached to fouls, tackles, corners and offsides.
type SidePayload struct {
	Side Side `json:"side"`
}

// InjuryPayload describes an injury.
type InjuryPayload struct {
	Side     Side   `json:"side"`
	Severity string `json:"severity"` // minor, moderate, serious
}

// MomentumPayload records a momentum shift and the resulting readings.
type MomentumPayload struct {
	Delta float64 `json:"delta"`
	Home  float64 `json:"home"`
	Away  float64 `json:"away"`
}

// TacticalChangePayload records which command changed a team's setup.
type TacticalChangePayload struct {
	Side   Side          `json:"side"`
	Change string        `json:"change"`
	Setup  tactics.Setup `json:"setup"`
}

// SubstitutionPayload records a player swap.
type SubstitutionPayload struct {
	Side  Side   `json:"side"`
	OffID string `json:"off_id"`
	OnID  string `json:"on_id"`
}

// PhasePayload is attached to kickoff, half time and full time.
type PhasePayload struct {
	Phase     Phase `json:"phase"`
	HomeScore int   `json:"home_score"`
	AwayScore int   `json:"away_score"`
}

func (GoalPayload) payloadKind() string           { return "goal" }
func (CardPayload) payloadKind() string           { return "card" }
func (ShotPayload) payloadKind() string           { return "shot" }
func (SidePayload) payloadKind() string           { return "side" }
func (InjuryPayload) payloadKind() string         { return "injury" }
func (MomentumPayload) payloadKind() string       { return "momentum" }
func (TacticalChangePayload) payloadKind() string { return "tactical" }
func (SubstitutionPayload) payloadKind() string   { return "substitution" }
func (PhasePayload) payloadKind() string          { return "phase" }

// PayloadSide returns the acting side for payloads that carry one.
func PayloadSide(p Payload) (Side, bool) {
	switch v := p.(type) {
	case GoalPayload:
		return v.Side, true
	case CardPayload:
		return v.Side, true
	case ShotPayload:
		return v.Side, true
	case SidePayload:
		return v.Side, true
	case InjuryPayload:
		return v.Side, true
	case TacticalChangePayload:
		return v.Side, true
	case SubstitutionPayload:
		return v.Side, true
	default:
		return "", false
	}
}

type eventJSON struct {
	ID          string          `json:"id"`
	Type        EventType       `json:"type"`
	Minute      int             `json:"minute"`
	TeamID      string          `json:"team_id,omitempty"`
	PlayerID    string          `json:"player_id,omitempty"`
	PlayerName  string          `json:"player_name,omitempty"`
	Description string          `json:"description"`
	PayloadKind string          `json:"payload_kind,omitempty"`
	Payload     json.RawMessage `json:"payload,omitempty"`
}

// MarshalJSON encodes the payload with a kind discriminator.
func (e Event) MarshalJSON() ([]byte, error) {
	out := eventJSON{
		ID:          e.ID,
		Type:        e.Type,
		Minute:      e.Minute,
		TeamID:      e.TeamID,
		PlayerID:    e.PlayerID,
		PlayerName:  e.PlayerName,
		Description: e.Description,
	}
	if e.Payload != nil {
		raw, err := json.Marshal(e.Payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", e.Type, err)
		}
		out.PayloadKind = e.Payload.payloadKind()
		out.Payload = raw
	}
	return json.Marshal(out)
}

// UnmarshalJSON restores the concrete payload from its kind.
func (e *Event) UnmarshalJSON(data []byte) error {
	var in eventJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*e = Event{
		ID:          in.ID,
		Type:        in.Type,
		Minute:      in.Minute,
		TeamID:      in.TeamID,
		PlayerID:    in.PlayerID,
		PlayerName:  in.PlayerName,
		Description: in.Description,
	}
	if in.PayloadKind == "" {
		return nil
	}
	p, err := decodePayload(in.PayloadKind, in.Payload)
	if err != nil {
		return fmt.Errorf("event %s: %w", in.ID, err)
	}
	e.Payload = p
	return nil
}

func decodePayload(kind string, raw json.RawMessage) (Payload, error) {
	switch kind {
	case "goal":
		return decodeAs[GoalPayload](raw)
	case "card":
		return decodeAs[CardPayload](raw)
	case "shot":
		return decodeAs[ShotPayload](raw)
	case "side":
		return decodeAs[SidePayload](raw)
	case "injury":
		return decodeAs[InjuryPayload](raw)
	case "momentum":
		return decodeAs[MomentumPayload](raw)
	case "tactical":
		return decodeAs[TacticalChangePayload](raw)
	case "substitution":
		return decodeAs[SubstitutionPayload](raw)
	case "phase":
		return decodeAs[PhasePayload](raw)
	default:
		return nil, fmt.Errorf("unknown payload kind %q", kind)
	}
}

func decodeAs[T Payload](raw json.RawMessage) (Payload, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", v.payloadKind(), err)
	}
	return v, nil
}
