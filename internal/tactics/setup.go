// Package tactics models a team's tactical setup and derives the multiplicative
// modifiers the event model consumes.
package tactics

import "maps"

// Formation is the closed set of supported shapes.
type Formation string

const (
	F442  Formation = "4-4-2"
	F433  Formation = "4-3-3"
	F352  Formation = "3-5-2"
	F4231 Formation = "4-2-3-1"
	F532  Formation = "5-3-2"
	F451  Formation = "4-5-1"
	F343  Formation = "3-4-3"
	F541  Formation = "5-4-1"
)

// Formations lists every supported formation.
var Formations = []Formation{F442, F433, F352, F4231, F532, F451, F343, F541}

// Valid reports whether f is a supported formation.
func (f Formation) Valid() bool {
	_, ok := profiles[f]
	return ok
}

// Mentality is the team's attacking intent, ordered from most defensive.
type Mentality string

const (
	UltraDefensive Mentality = "ultra_defensive"
	Defensive      Mentality = "defensive"
	Balanced       Mentality = "balanced"
	Attacking      Mentality = "attacking"
	UltraAttacking Mentality = "ultra_attacking"
)

var mentalityOrder = []Mentality{UltraDefensive, Defensive, Balanced, Attacking, UltraAttacking}

// Level returns -2 (ultra defensive) through +2 (ultra attacking).
func (m Mentality) Level() int {
	for i, v := range mentalityOrder {
		if v == m {
			return i - 2
		}
	}
	return 0
}

// Shift moves the mentality by delta steps, saturating at the extremes.
func (m Mentality) Shift(delta int) Mentality {
	idx := m.Level() + 2 + delta
	idx = max(0, min(len(mentalityOrder)-1, idx))
	return mentalityOrder[idx]
}

// Style is the secondary attacking approach.
type Style string

const (
	StyleNone       Style = ""
	StylePossession Style = "possession"
	StyleCounter    Style = "counter"
	StyleDirect     Style = "direct"
	StyleWingPlay   Style = "wing_play"
)

// Intensity is the overall match intensity a team plays at.
type Intensity string

const (
	IntensityLow    Intensity = "low"
	IntensityNormal Intensity = "normal"
	IntensityHigh   Intensity = "high"
)

// Instruction is a per-player tactical instruction.
type Instruction struct {
	Role       string `json:"role,omitempty" yaml:"role" validate:"omitempty,oneof=stay_back balanced get_forward free_role man_mark"`
	Pressing   int    `json:"pressing" yaml:"pressing" validate:"min=0,max=100"`
	Freedom    int    `json:"freedom" yaml:"freedom" validate:"min=0,max=100"`
	MarkPlayer string `json:"mark_player,omitempty" yaml:"mark_player"`
}

// Setup is a team's tactical configuration. Treat it as a value: the With*
// methods return modified copies and never alias the Instructions map.
type Setup struct {
	Formation    Formation              `json:"formation" yaml:"formation" validate:"oneof=4-4-2 4-3-3 3-5-2 4-2-3-1 5-3-2 4-5-1 3-4-3 5-4-1"`
	Mentality    Mentality              `json:"mentality" yaml:"mentality" validate:"oneof=ultra_defensive defensive balanced attacking ultra_attacking"`
	Style        Style                  `json:"style,omitempty" yaml:"style" validate:"omitempty,oneof=possession counter direct wing_play"`
	Pressing     int                    `json:"pressing" yaml:"pressing" validate:"min=0,max=100"`
	Tempo        int                    `json:"tempo" yaml:"tempo" validate:"min=0,max=100"`
	Width        int                    `json:"width" yaml:"width" validate:"min=0,max=100"`
	Directness   int                    `json:"directness" yaml:"directness" validate:"min=0,max=100"`
	Intensity    Intensity              `json:"intensity,omitempty" yaml:"intensity" validate:"omitempty,oneof=low normal high"`
	Automatic    bool                   `json:"automatic,omitempty" yaml:"automatic"`
	Instructions map[string]Instruction `json:"instructions,omitempty" yaml:"instructions" validate:"dive"`
}

// Default returns a balanced setup for the formation.
func Default(f Formation) Setup {
	return Setup{
		Formation:  f,
		Mentality:  Balanced,
		Pressing:   50,
		Tempo:      50,
		Width:      50,
		Directness: 50,
		Intensity:  IntensityNormal,
	}
}

func (s Setup) WithFormation(f Formation) Setup {
	s.Instructions = maps.Clone(s.Instructions)
	s.Formation = f
	return s
}

func (s Setup) WithMentality(m Mentality) Setup {
	s.Instructions = maps.Clone(s.Instructions)
	s.Mentality = m
	return s
}

func (s Setup) WithIntensity(i Intensity) Setup {
	s.Instructions = maps.Clone(s.Instructions)
	s.Intensity = i
	return s
}

func (s Setup) WithAutomatic(enabled bool) Setup {
	s.Instructions = maps.Clone(s.Instructions)
	s.Automatic = enabled
	return s
}

// WithInstruction returns a copy with the player's instruction replaced.
func (s Setup) WithInstruction(playerID string, in Instruction) Setup {
	next := make(map[string]Instruction, len(s.Instructions)+1)
	maps.Copy(next, s.Instructions)
	next[playerID] = in
	s.Instructions = next
	return s
}

// Clone returns a deep copy.
func (s Setup) Clone() Setup {
	s.Instructions = maps.Clone(s.Instructions)
	return s
}
