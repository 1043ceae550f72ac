package engine

import (
	"fmt"

	"github.com/talgya/pitchside/internal/tactics"
)

// Command is a control message for a live simulation. The set is closed:
// Live handles each variant exhaustively.
type Command interface {
	command()
	fmt.Stringer
}

type (
	Pause  struct{}
	Resume struct{}

	SetSpeed struct {
		Speed float64
	}

	JumpToMinute struct {
		Minute int
	}

	SkipToEnd struct{}

	ApplyTacticalChange struct {
		TeamID string
		Setup  tactics.Setup
	}

	ChangeFormation struct {
		TeamID    string
		Formation tactics.Formation
	}

	SetPlayerInstructions struct {
		TeamID      string
		PlayerID    string
		Instruction tactics.Instruction
	}

	EnableAutomaticTactics struct {
		TeamID  string
		Enabled bool
	}

	SetMatchIntensity struct {
		TeamID    string
		Intensity tactics.Intensity
	}
)

func (Pause) command()                  {}
func (Resume) command()                 {}
func (SetSpeed) command()               {}
func (JumpToMinute) command()           {}
func (SkipToEnd) command()              {}
func (ApplyTacticalChange) command()    {}
func (ChangeFormation) command()        {}
func (SetPlayerInstructions) command()  {}
func (EnableAutomaticTactics) command() {}
func (SetMatchIntensity) command()      {}

func (Pause) String() string      { return "pause" }
func (Resume) String() string     { return "resume" }
func (c SetSpeed) String() string { return fmt.Sprintf("set_speed(%g)", c.Speed) }
func (c JumpToMinute) String() string {
	return fmt.Sprintf("jump_to_minute(%d)", c.Minute)
}
func (SkipToEnd) String() string { return "skip_to_end" }
func (c ApplyTacticalChange) String() string {
	return "apply_tactical_change(" + c.TeamID + ")"
}
func (c ChangeFormation) String() string {
	return fmt.Sprintf("change_formation(%s, %s)", c.TeamID, c.Formation)
}
func (c SetPlayerInstructions) String() string {
	return fmt.Sprintf("set_player_instructions(%s, %s)", c.TeamID, c.PlayerID)
}
func (c EnableAutomaticTactics) String() string {
	return fmt.Sprintf("enable_automatic_tactics(%s, %t)", c.TeamID, c.Enabled)
}
func (c SetMatchIntensity) String() string {
	return fmt.Sprintf("set_match_intensity(%s, %s)", c.TeamID, c.Intensity)
}
