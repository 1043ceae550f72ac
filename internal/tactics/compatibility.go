package tactics

import (
	"fmt"
	"strconv"
)

// profile describes a formation's shape for compatibility checks.
type profile struct {
	Defenders    int
	Lean         int // -1 defensive, 0 balanced, +1 attacking
	NaturalWidth int // 0-100
	Recommended  Mentality
}

var profiles = map[Formation]profile{
	F442:  {Defenders: 4, Lean: 0, NaturalWidth: 60, Recommended: Balanced},
	F433:  {Defenders: 4, Lean: 1, NaturalWidth: 75, Recommended: Attacking},
	F352:  {Defenders: 3, Lean: 0, NaturalWidth: 65, Recommended: Balanced},
	F4231: {Defenders: 4, Lean: 0, NaturalWidth: 55, Recommended: Balanced},
	F532:  {Defenders: 5, Lean: -1, NaturalWidth: 40, Recommended: Defensive},
	F451:  {Defenders: 4, Lean: -1, NaturalWidth: 50, Recommended: Defensive},
	F343:  {Defenders: 3, Lean: 1, NaturalWidth: 75, Recommended: Attacking},
	F541:  {Defenders: 5, Lean: -1, NaturalWidth: 45, Recommended: Defensive},
}

// Compatibility is how well a setup suits a formation.
type Compatibility struct {
	Score    int      `json:"score"` // 0-100
	Warnings []string `json:"warnings,omitempty"`
}

// Suggestion is a recommended parameter change.
type Suggestion struct {
	Parameter string `json:"parameter"`
	Current   string `json:"current"`
	Suggested string `json:"suggested"`
	Reason    string `json:"reason"`
}

// rule is one known formation/setup mismatch.
type rule struct {
	penalty func(p profile, s Setup) int // 0 when the rule does not apply
	warning func(f Formation, s Setup) string
	suggest func(p profile, s Setup) Suggestion
}

var rules = []rule{
	{
		penalty: func(p profile, s Setup) int {
			if p.Lean < 0 && s.Mentality.Level() > 0 {
				return 15 + 10*s.Mentality.Level()
			}
			return 0
		},
		warning: func(f Formation, s Setup) string {
			return fmt.Sprintf("%s mentality conflicts with defensive formation %s", s.Mentality, f)
		},
		suggest: func(p profile, s Setup) Suggestion {
			return Suggestion{"mentality", string(s.Mentality), string(p.Recommended), "formation is built to defend deep"}
		},
	},
	{
		penalty: func(p profile, s Setup) int {
			if p.Lean > 0 && s.Mentality.Level() < 0 {
				return 15 + 5*(-s.Mentality.Level())
			}
			return 0
		},
		warning: func(f Formation, s Setup) string {
			return fmt.Sprintf("%s mentality wastes attacking formation %s", s.Mentality, f)
		},
		suggest: func(p profile, s Setup) Suggestion {
			return Suggestion{"mentality", string(s.Mentality), string(p.Recommended), "formation commits players forward"}
		},
	},
	{
		penalty: func(p profile, s Setup) int {
			if p.Defenders == 5 && s.Pressing > 80 {
				return 15
			}
			return 0
		},
		warning: func(f Formation, s Setup) string {
			return fmt.Sprintf("pressing %d stretches the back five of %s", s.Pressing, f)
		},
		suggest: func(p profile, s Setup) Suggestion {
			return Suggestion{"pressing", strconv.Itoa(s.Pressing), "65", "a back five cannot sustain a high press"}
		},
	},
	{
		penalty: func(p profile, s Setup) int {
			if s.Pressing > 85 && s.Mentality.Level() < 0 {
				return 10
			}
			return 0
		},
		warning: func(f Formation, s Setup) string {
			return "very high pressing is inconsistent with a deep block"
		},
		suggest: func(p profile, s Setup) Suggestion {
			return Suggestion{"pressing", strconv.Itoa(s.Pressing), "55", "press higher only when the line steps up"}
		},
	},
	{
		penalty: func(p profile, s Setup) int {
			if abs(s.Width-p.NaturalWidth) > 35 {
				return 10
			}
			return 0
		},
		warning: func(f Formation, s Setup) string {
			return fmt.Sprintf("width %d does not suit the shape of %s", s.Width, f)
		},
		suggest: func(p profile, s Setup) Suggestion {
			return Suggestion{"width", strconv.Itoa(s.Width), strconv.Itoa(p.NaturalWidth), "match width to the formation's natural shape"}
		},
	},
	{
		penalty: func(p profile, s Setup) int {
			if s.Style == StylePossession && s.Directness > 70 {
				return 15
			}
			return 0
		},
		warning: func(f Formation, s Setup) string {
			return "possession style undermined by direct passing"
		},
		suggest: func(p profile, s Setup) Suggestion {
			return Suggestion{"directness", strconv.Itoa(s.Directness), "35", "possession play needs short passing"}
		},
	},
	{
		penalty: func(p profile, s Setup) int {
			if s.Style == StyleCounter && s.Tempo < 30 {
				return 10
			}
			return 0
		},
		warning: func(f Formation, s Setup) string {
			return "counter-attacking style needs a higher tempo"
		},
		suggest: func(p profile, s Setup) Suggestion {
			return Suggestion{"tempo", strconv.Itoa(s.Tempo), "65", "counters must be played quickly"}
		},
	},
	{
		penalty: func(p profile, s Setup) int {
			if s.Style == StyleWingPlay && s.Width < 40 {
				return 15
			}
			return 0
		},
		warning: func(f Formation, s Setup) string {
			return "wing play with narrow width"
		},
		suggest: func(p profile, s Setup) Suggestion {
			return Suggestion{"width", strconv.Itoa(s.Width), "70", "wing play needs width"}
		},
	},
}

// CheckCompatibility scores setup against formation. Unknown formations score 0.
func CheckCompatibility(f Formation, s Setup) Compatibility {
	p, ok := profiles[f]
	if !ok {
		return Compatibility{Score: 0, Warnings: []string{fmt.Sprintf("unknown formation %q", f)}}
	}
	score := 100
	var warnings []string
	for _, r := range rules {
		if pen := r.penalty(p, s); pen > 0 {
			score -= pen
			warnings = append(warnings, r.warning(f, s))
		}
	}
	return Compatibility{Score: max(0, score), Warnings: warnings}
}

// SuggestAdjustments returns one suggestion per mismatch found by CheckCompatibility.
func SuggestAdjustments(f Formation, s Setup) []Suggestion {
	p, ok := profiles[f]
	if !ok {
		return nil
	}
	var out []Suggestion
	for _, r := range rules {
		if r.penalty(p, s) > 0 {
			out = append(out, r.suggest(p, s))
		}
	}
	return out
}

// Suitability returns the mentality a formation is built for.
func Suitability(f Formation) Mentality {
	if p, ok := profiles[f]; ok {
		return p.Recommended
	}
	return Balanced
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
