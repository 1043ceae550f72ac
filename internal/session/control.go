package session

import (
	"github.com/talgya/pitchside/internal/checkpoint"
	"github.com/talgya/pitchside/internal/engine"
	"github.com/talgya/pitchside/internal/tactics"
)

// Do forwards a command to the live loop of the active session.
func (m *Manager) Do(cmd engine.Command) (engine.Status, error) {
	live, err := m.activeLive()
	if err != nil {
		return m.Status(), err
	}
	return live.Do(cmd)
}

func (m *Manager) Pause() error {
	_, err := m.Do(engine.Pause{})
	return err
}

func (m *Manager) Resume() error {
	_, err := m.Do(engine.Resume{})
	return err
}

// SetSpeed returns the effective, clamped speed.
func (m *Manager) SetSpeed(x float64) (float64, error) {
	st, err := m.Do(engine.SetSpeed{Speed: x})
	return st.Speed, err
}

func (m *Manager) JumpToMinute(n int) error {
	_, err := m.Do(engine.JumpToMinute{Minute: n})
	return err
}

func (m *Manager) SkipToEnd() error {
	_, err := m.Do(engine.SkipToEnd{})
	return err
}

func (m *Manager) ApplyTacticalChange(teamID string, setup tactics.Setup) error {
	_, err := m.Do(engine.ApplyTacticalChange{TeamID: teamID, Setup: setup})
	return err
}

func (m *Manager) ChangeFormation(teamID string, f tactics.Formation) error {
	_, err := m.Do(engine.ChangeFormation{TeamID: teamID, Formation: f})
	return err
}

func (m *Manager) SetPlayerInstructions(teamID, playerID string, in tactics.Instruction) error {
	_, err := m.Do(engine.SetPlayerInstructions{TeamID: teamID, PlayerID: playerID, Instruction: in})
	return err
}

func (m *Manager) EnableAutomaticTactics(teamID string, enabled bool) error {
	_, err := m.Do(engine.EnableAutomaticTactics{TeamID: teamID, Enabled: enabled})
	return err
}

func (m *Manager) SetMatchIntensity(teamID string, level tactics.Intensity) error {
	_, err := m.Do(engine.SetMatchIntensity{TeamID: teamID, Intensity: level})
	return err
}

// CreateCheckpoint captures the live snapshot under a name.
func (m *Manager) CreateCheckpoint(name, description string) (checkpoint.Checkpoint, error) {
	if _, err := m.activeLive(); err != nil {
		return checkpoint.Checkpoint{}, err
	}
	return m.store.Create(name, description)
}

func (m *Manager) Checkpoints() []checkpoint.Checkpoint {
	return m.store.List()
}

func (m *Manager) Checkpoint(id string) (checkpoint.Checkpoint, error) {
	return m.store.Get(id)
}

func (m *Manager) RemoveCheckpoint(id string) error {
	return m.store.Remove(id)
}

// SubscribeCheckpoints streams checkpoints as they are created.
func (m *Manager) SubscribeCheckpoints() (int, <-chan checkpoint.Checkpoint) {
	return m.store.Subscribe()
}

func (m *Manager) UnsubscribeCheckpoints(id int) {
	m.store.Unsubscribe(id)
}
