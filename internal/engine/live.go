package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/talgya/pitchside/internal/broadcast"
	"github.com/talgya/pitchside/internal/match"
	"github.com/talgya/pitchside/internal/simerr"
	"github.com/talgya/pitchside/internal/tactics"
)

// RunState is the live loop's lifecycle state.
type RunState string

const (
	StateIdle      RunState = "idle"
	StateRunning   RunState = "running"
	StatePaused    RunState = "paused"
	StateCompleted RunState = "completed"
	StateDisposed  RunState = "disposed"
)

// Status is a point-in-time view of the loop, safe to read from any goroutine.
type Status struct {
	MatchID string      `json:"match_id"`
	Minute  int         `json:"minute"`
	Clock   string      `json:"clock"`
	Phase   match.Phase `json:"phase"`
	Speed   float64     `json:"speed"`
	State   RunState    `json:"state"`
}

// LiveConfig tunes a live loop.
type LiveConfig struct {
	BaseInterval time.Duration // Wall time per minute at speed 1
	Speed        float64
	Buffer       int  // Per-subscriber buffer
	StartPaused  bool // Used when resuming from a checkpoint
}

type reply struct {
	status Status
	err    error
}

type envelope struct {
	cmd   Command
	reply chan reply
}

// Live runs a Simulation in wall time. One goroutine owns the simulation;
// commands and ticks are handled strictly one at a time in arrival order, so
// every published snapshot is fully resolved.
type Live struct {
	sim   *Simulation
	clock *Clock
	cfg   LiveConfig
	hub   *broadcast.Hub[Tick]
	log   zerolog.Logger

	cmds   chan envelope
	exited chan struct{}

	current atomic.Pointer[match.Snapshot]
	status  atomic.Pointer[Status]
	state   RunState // Owned by the loop goroutine

	mu       sync.Mutex
	started  bool
	disposed bool
	cancel   context.CancelFunc
	once     sync.Once
}

// NewLive wraps sim. The loop does not run until Start.
func NewLive(sim *Simulation, cfg LiveConfig, log zerolog.Logger) *Live {
	l := &Live{
		sim:    sim,
		clock:  NewClock(cfg.BaseInterval, cfg.Speed),
		cfg:    cfg,
		hub:    broadcast.New[Tick](cfg.Buffer, log),
		log:    log.With().Str("match_id", sim.Snapshot().ID).Logger(),
		cmds:   make(chan envelope),
		exited: make(chan struct{}),
		state:  StateIdle,
	}
	snap := sim.Snapshot()
	l.current.Store(&snap)
	l.refreshStatus()
	return l
}

// Start kicks off (if the match has not started) and begins the loop.
func (l *Live) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.disposed {
		return simerr.InvalidState("simulation disposed")
	}
	if l.started {
		return simerr.InvalidState("simulation already started")
	}

	if !l.sim.Snapshot().Started() {
		t, err := l.sim.Start()
		if err != nil {
			return err
		}
		l.publish(t)
	}
	switch {
	case l.sim.Snapshot().Completed:
		l.state = StateCompleted
	case l.cfg.StartPaused:
		l.state = StatePaused
	default:
		l.state = StateRunning
		l.clock.Start()
	}
	l.refreshStatus()

	ctx, l.cancel = context.WithCancel(ctx)
	l.started = true
	go l.run(ctx)
	l.log.Info().Str("state", string(l.state)).Float64("speed", l.clock.Speed()).Msg("live simulation started")
	return nil
}

func (l *Live) run(ctx context.Context) {
	defer close(l.exited)
	defer l.clock.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case env := <-l.cmds:
			err := l.handle(env.cmd)
			if err != nil {
				l.log.Debug().Err(err).Stringer("command", env.cmd).Msg("command rejected")
			}
			env.reply <- reply{status: l.Status(), err: err}
		case <-l.clock.C():
			l.tick()
		}
	}
}

func (l *Live) tick() {
	t, err := l.sim.Step()
	if err != nil {
		l.log.Error().Err(err).Msg("step failed")
		l.settle()
		return
	}
	l.publish(t)
	l.settle()
}

// settle stops the clock once the match is over.
func (l *Live) settle() {
	if l.sim.Snapshot().Completed && l.state != StateCompleted {
		l.state = StateCompleted
		l.clock.Stop()
		l.log.Info().Msg("live simulation completed")
	}
	l.refreshStatus()
}

func (l *Live) publish(t Tick) {
	snap := t.Snapshot
	l.current.Store(&snap)
	l.refreshStatus()
	l.hub.Publish(t)
}

func (l *Live) refreshStatus() {
	snap := l.current.Load()
	l.status.Store(&Status{
		MatchID: snap.ID,
		Minute:  snap.Minute,
		Clock:   MatchTime(snap.Minute),
		Phase:   snap.Phase,
		Speed:   l.clock.Speed(),
		State:   l.state,
	})
}

func (l *Live) handle(cmd Command) error {
	completed := l.state == StateCompleted
	var (
		t   Tick
		err error
	)

	switch c := cmd.(type) {
	case Pause:
		if completed {
			return simerr.InvalidState("match already completed")
		}
		l.state = StatePaused
		l.clock.Stop()
	case Resume:
		if completed {
			return simerr.InvalidState("match already completed")
		}
		l.state = StateRunning
		l.clock.Start()
	case SetSpeed:
		l.clock.SetSpeed(c.Speed)
	case JumpToMinute:
		_, err = l.sim.RunTo(c.Minute, l.publish)
		l.settle()
		return err
	case SkipToEnd:
		_, err = l.sim.RunToEnd(l.publish)
		l.settle()
		return err
	case ApplyTacticalChange:
		t, err = l.sim.ApplyTactics(c.TeamID, c.Setup, "tactics")
	case ChangeFormation:
		t, err = l.sim.ChangeFormation(c.TeamID, c.Formation)
	case SetPlayerInstructions:
		t, err = l.sim.SetPlayerInstructions(c.TeamID, c.PlayerID, c.Instruction)
	case EnableAutomaticTactics:
		t, err = l.sim.EnableAutomaticTactics(c.TeamID, c.Enabled)
	case SetMatchIntensity:
		t, err = l.sim.SetMatchIntensity(c.TeamID, c.Intensity)
	default:
		return simerr.InvalidState("unsupported command %T", cmd)
	}

	if err != nil {
		return err
	}
	if len(t.Events) > 0 {
		l.publish(t)
	}
	l.refreshStatus()
	return nil
}

// Do sends a command and waits for it to be applied.
func (l *Live) Do(cmd Command) (Status, error) {
	l.mu.Lock()
	started, disposed := l.started, l.disposed
	l.mu.Unlock()
	if disposed {
		return l.Status(), simerr.InvalidState("simulation disposed")
	}
	if !started {
		return l.Status(), simerr.InvalidState("simulation not started")
	}

	r := make(chan reply, 1)
	select {
	case l.cmds <- envelope{cmd: cmd, reply: r}:
	case <-l.exited:
		return l.Status(), simerr.InvalidState("simulation stopped")
	}
	rep := <-r
	return rep.status, rep.err
}

func (l *Live) Pause() error {
	_, err := l.Do(Pause{})
	return err
}

func (l *Live) Resume() error {
	_, err := l.Do(Resume{})
	return err
}

// SetSpeed returns the effective, clamped speed.
func (l *Live) SetSpeed(x float64) (float64, error) {
	st, err := l.Do(SetSpeed{Speed: x})
	return st.Speed, err
}

func (l *Live) JumpToMinute(n int) error {
	_, err := l.Do(JumpToMinute{Minute: n})
	return err
}

func (l *Live) SkipToEnd() error {
	_, err := l.Do(SkipToEnd{})
	return err
}

func (l *Live) ApplyTacticalChange(teamID string, setup tactics.Setup) error {
	_, err := l.Do(ApplyTacticalChange{TeamID: teamID, Setup: setup})
	return err
}

func (l *Live) ChangeFormation(teamID string, f tactics.Formation) error {
	_, err := l.Do(ChangeFormation{TeamID: teamID, Formation: f})
	return err
}

func (l *Live) SetPlayerInstructions(teamID, playerID string, in tactics.Instruction) error {
	_, err := l.Do(SetPlayerInstructions{TeamID: teamID, PlayerID: playerID, Instruction: in})
	return err
}

func (l *Live) EnableAutomaticTactics(teamID string, enabled bool) error {
	_, err := l.Do(EnableAutomaticTactics{TeamID: teamID, Enabled: enabled})
	return err
}

func (l *Live) SetMatchIntensity(teamID string, level tactics.Intensity) error {
	_, err := l.Do(SetMatchIntensity{TeamID: teamID, Intensity: level})
	return err
}

// Snapshot returns the latest published snapshot.
func (l *Live) Snapshot() match.Snapshot {
	return *l.current.Load()
}

// Status returns the latest loop status.
func (l *Live) Status() Status {
	return *l.status.Load()
}

// Fixture returns the fixture being simulated.
func (l *Live) Fixture() Fixture {
	return l.sim.Fixture()
}

// Subscribe registers for ticks. Subscribe before Start to see kick-off.
func (l *Live) Subscribe() (int, <-chan Tick) {
	return l.hub.Subscribe()
}

func (l *Live) Unsubscribe(id int) {
	l.hub.Unsubscribe(id)
}

// Dispose stops the loop and closes every subscription. Safe to call more
// than once and from any goroutine.
func (l *Live) Dispose() {
	l.once.Do(func() {
		l.mu.Lock()
		l.disposed = true
		cancel := l.cancel
		l.mu.Unlock()

		if cancel != nil {
			cancel()
			<-l.exited
		}
		l.state = StateDisposed
		l.refreshStatus()
		l.hub.Close()
		l.log.Info().Msg("live simulation disposed")
	})
}

// Done is closed once the loop goroutine has exited.
func (l *Live) Done() <-chan struct{} {
	return l.exited
}
