package tactics

// Modifier is the set of multiplicative adjustments a setup applies to the
// event model. Each component lies in [MinModifier, MaxModifier].
type Modifier struct {
	Attacking      float64 `json:"attacking"`
	Defending      float64 `json:"defending"`
	Possession     float64 `json:"possession"`
	ChanceCreation float64 `json:"chance_creation"`
}

const (
	MinModifier = 0.6
	MaxModifier = 1.4
)

// Neutral is the identity modifier.
var Neutral = Modifier{Attacking: 1, Defending: 1, Possession: 1, ChanceCreation: 1}

// mentalityBase holds {attacking, defending} per mentality.
var mentalityBase = map[Mentality][2]float64{
	UltraDefensive: {0.70, 1.30},
	Defensive:      {0.85, 1.15},
	Balanced:       {1.00, 1.00},
	Attacking:      {1.15, 0.85},
	UltraAttacking: {1.30, 0.70},
}

// Modifiers derives the modifier set for a setup. Inputs are assumed to have
// passed Validate; out-of-range values still produce clamped output.
func Modifiers(s Setup) Modifier {
	base, ok := mentalityBase[s.Mentality]
	if !ok {
		base = mentalityBase[Balanced]
	}
	m := Modifier{Attacking: base[0], Defending: base[1], Possession: 1, ChanceCreation: 1}

	// Pressing moves defending by up to ±10%.
	m.Defending *= 1 + float64(s.Pressing-50)/500

	tempo := float64(s.Tempo - 50)
	m.ChanceCreation += tempo * 0.002
	m.Attacking += tempo * 0.001
	m.Possession -= tempo * 0.001

	width := float64(s.Width - 50)
	m.ChanceCreation += width * 0.001
	m.Attacking += width * 0.0005

	direct := float64(s.Directness - 50)
	m.Possession -= direct * 0.002
	m.Attacking += direct * 0.001

	switch s.Style {
	case StylePossession:
		m.Possession += 0.10
		m.ChanceCreation -= 0.05
	case StyleCounter:
		m.Possession -= 0.10
		m.ChanceCreation += 0.08
	case StyleDirect:
		m.Possession -= 0.05
		m.Attacking += 0.05
	case StyleWingPlay:
		m.ChanceCreation += 0.05
		if s.Width > 60 {
			m.ChanceCreation += 0.05
		}
	}

	switch s.Intensity {
	case IntensityHigh:
		m.Defending += 0.03
		m.Attacking += 0.02
	case IntensityLow:
		m.Defending -= 0.03
		m.Attacking -= 0.02
	}

	m.Attacking = clampModifier(m.Attacking)
	m.Defending = clampModifier(m.Defending)
	m.Possession = clampModifier(m.Possession)
	m.ChanceCreation = clampModifier(m.ChanceCreation)
	return m
}

// PressingFactor scales foul and card likelihood: 0.5 at no pressing, 1.5 at full.
func PressingFactor(s Setup) float64 {
	f := 0.5 + float64(s.Pressing)/100
	switch s.Intensity {
	case IntensityHigh:
		f *= 1.15
	case IntensityLow:
		f *= 0.85
	}
	return f
}

func clampModifier(v float64) float64 {
	return max(MinModifier, min(MaxModifier, v))
}
