// Package session orchestrates one match at a time: it runs the live loop,
// records automatic checkpoints, supports rollback and import, and merges
// everything into a single update stream for subscribers.
package session

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/talgya/pitchside/internal/broadcast"
	"github.com/talgya/pitchside/internal/checkpoint"
	"github.com/talgya/pitchside/internal/engine"
	"github.com/talgya/pitchside/internal/entropy"
	"github.com/talgya/pitchside/internal/match"
	"github.com/talgya/pitchside/internal/simerr"
)

// minTickBuffer lets the manager's own subscription absorb a full
// skip-to-end without dropping ticks.
const minTickBuffer = 2 * match.MaxMinute

// Config tunes a Manager.
type Config struct {
	Variant     engine.Variant
	Live        engine.LiveConfig
	Checkpoints checkpoint.Config
	Seed        uint64 // Zero draws a fresh seed per lineage
	Buffer      int    // Per-subscriber update buffer
}

// loop is one running lineage.
type loop struct {
	live    *engine.Live
	sub     int
	done    chan struct{}
	stopped bool
}

// Manager owns at most one match session. Safe for concurrent use.
type Manager struct {
	cfg   Config
	log   zerolog.Logger
	store *checkpoint.Store
	hub   *broadcast.Hub[Update]
	seq   atomic.Uint64

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	fixture  engine.Fixture
	loop     *loop // Head of the current lineage; kept after EndMatch for reads
	lineage  uint64
	active   bool
	disposed bool
	once     sync.Once
}

// New creates an idle manager.
func New(cfg Config, log zerolog.Logger, opts ...checkpoint.Option) (*Manager, error) {
	store, err := checkpoint.New(cfg.Checkpoints, nil, append([]checkpoint.Option{checkpoint.WithLogger(log)}, opts...)...)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		cfg:    cfg,
		log:    log,
		store:  store,
		hub:    broadcast.New[Update](cfg.Buffer, log),
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// StartMatch kicks off a new session. Starting while another session is
// active is rejected.
func (m *Manager) StartMatch(f engine.Fixture) (match.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.disposed {
		return match.Snapshot{}, simerr.InvalidState("session manager disposed")
	}
	if m.active {
		return match.Snapshot{}, simerr.InvalidState("match %s is still in progress", m.fixture.MatchID)
	}

	src, seed, err := m.nextSource()
	if err != nil {
		return match.Snapshot{}, err
	}
	sim, err := engine.NewSimulation(f, m.cfg.Variant, src, m.log)
	if err != nil {
		return match.Snapshot{}, err
	}

	m.store.Clear()
	initial := sim.Snapshot()
	if _, _, err := m.store.CreateAutomatic(checkpoint.TriggerMatchStart, initial); err != nil {
		return match.Snapshot{}, err
	}
	if err := m.startLoopLocked(sim, m.cfg.Live.StartPaused); err != nil {
		m.store.Clear()
		return match.Snapshot{}, err
	}
	m.fixture = f
	m.active = true
	m.log.Info().
		Str("match_id", f.MatchID).
		Str("home", f.Home.ID).
		Str("away", f.Away.ID).
		Uint64("seed", seed).
		Msg("match session started")
	return initial, nil
}

func (m *Manager) nextSource() (entropy.Source, uint64, error) {
	seed := m.cfg.Seed
	if seed == 0 {
		var err error
		if seed, err = entropy.NewSeed(); err != nil {
			return nil, 0, err
		}
	} else {
		seed += m.lineage
	}
	m.lineage++
	return entropy.NewSeeded(seed), seed, nil
}

func (m *Manager) startLoopLocked(sim *engine.Simulation, paused bool) error {
	cfg := m.cfg.Live
	cfg.StartPaused = paused
	if cfg.Buffer < minTickBuffer {
		cfg.Buffer = minTickBuffer
	}
	live := engine.NewLive(sim, cfg, m.log)
	sub, ticks := live.Subscribe()
	if err := live.Start(m.ctx); err != nil {
		live.Dispose()
		return err
	}
	l := &loop{live: live, sub: sub, done: make(chan struct{})}
	m.store.SetSource(live.Snapshot)
	m.loop = l
	go m.pump(live, ticks, l.done)
	return nil
}

// stopLoopLocked disposes the running loop and waits for its pump to drain.
func (m *Manager) stopLoopLocked() {
	l := m.loop
	if l == nil || l.stopped {
		return
	}
	l.live.Unsubscribe(l.sub)
	l.live.Dispose()
	<-l.done
	l.stopped = true
}

func (m *Manager) pump(live *engine.Live, ticks <-chan engine.Tick, done chan struct{}) {
	defer close(done)
	for t := range ticks {
		m.fold(live, t)
	}
}

// fold republishes one tick as updates, one per event, creating automatic
// checkpoints for events that trigger them.
func (m *Manager) fold(live *engine.Live, t engine.Tick) {
	st := live.Status()
	if len(t.Events) == 0 {
		m.publish(Update{Snapshot: t.Snapshot, Meta: Meta{Speed: st.Speed, RunState: st.State}})
		return
	}
	for i := range t.Events {
		e := t.Events[i]
		var cpID string
		if trigger, ok := checkpoint.TriggerFor(e.Type); ok {
			cp, created, err := m.store.CreateAutomatic(trigger, t.Snapshot)
			switch {
			case err != nil:
				m.log.Error().Err(err).Str("trigger", string(trigger)).Msg("automatic checkpoint failed")
			case created:
				cpID = cp.ID
			}
		}
		m.publish(Update{
			Snapshot:   t.Snapshot,
			Event:      &e,
			Commentary: commentaryFor(e, t.Snapshot),
			Meta:       Meta{Speed: st.Speed, RunState: st.State, CheckpointID: cpID},
		})
	}
}

func (m *Manager) publish(u Update) {
	u.Meta.Sequence = m.seq.Add(1)
	m.hub.Publish(u)
}

// EndMatch closes the session. A match that has not completed gets a final
// checkpoint first. Checkpoints stay readable until the next StartMatch.
func (m *Manager) EndMatch() (match.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.disposed {
		return match.Snapshot{}, simerr.InvalidState("session manager disposed")
	}
	if !m.active {
		return match.Snapshot{}, simerr.InvalidState("no active match")
	}

	m.stopLoopLocked()
	snap := m.loop.live.Snapshot()
	if !snap.Completed {
		cp, _, err := m.store.CreateAutomatic(checkpoint.TriggerFinal, snap)
		if err != nil {
			return snap, err
		}
		m.publish(Update{Snapshot: snap, Meta: Meta{RunState: engine.StateDisposed, CheckpointID: cp.ID}})
	}
	removed := m.store.Cleanup()
	m.active = false
	m.log.Info().
		Str("match_id", snap.ID).
		Int("minute", snap.Minute).
		Bool("completed", snap.Completed).
		Int("evicted", removed).
		Msg("match session ended")
	return snap, nil
}

// Dispose releases the loop, every subscription and all checkpoints. Safe
// to call more than once, including after a failed call.
func (m *Manager) Dispose() {
	m.once.Do(func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.disposed = true
		m.stopLoopLocked()
		m.loop = nil
		m.active = false
		m.cancel()
		m.store.SetSource(nil)
		m.store.Clear()
		m.store.Close()
		m.hub.Close()
		m.log.Info().Msg("session manager disposed")
	})
}

// Restore rewinds the session to a checkpoint. The loop is rebuilt from the
// checkpoint's snapshot and resumes paused; this starts a new lineage.
func (m *Manager) Restore(checkpointID string) (match.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkActiveLocked(); err != nil {
		return match.Snapshot{}, err
	}
	snap, err := m.store.Restore(checkpointID)
	if err != nil {
		return match.Snapshot{}, err
	}
	if err := m.reinstallLocked(snap); err != nil {
		return match.Snapshot{}, err
	}
	st := m.loop.live.Status()
	m.publish(Update{Snapshot: snap, Meta: Meta{Speed: st.Speed, RunState: st.State, CheckpointID: checkpointID}})
	m.log.Info().Str("checkpoint_id", checkpointID).Int("minute", snap.Minute).Msg("restored checkpoint")
	return snap, nil
}

// reinstallLocked makes snap the head of a new paused lineage.
func (m *Manager) reinstallLocked(snap match.Snapshot) error {
	src, _, err := m.nextSource()
	if err != nil {
		return err
	}
	sim, err := engine.ResumeSimulation(snap, m.fixture, m.cfg.Variant, src, m.log)
	if err != nil {
		return err
	}
	m.stopLoopLocked()
	return m.startLoopLocked(sim, true)
}

// Export bundles the current state with every checkpoint.
func (m *Manager) Export() (checkpoint.Bundle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.disposed {
		return checkpoint.Bundle{}, simerr.InvalidState("session manager disposed")
	}
	if m.loop == nil {
		return checkpoint.Bundle{}, simerr.InvalidState("no match to export")
	}
	return m.store.Export()
}

// Import replaces the session's state and checkpoints with a bundle for the
// same fixture. The loop resumes paused from the bundle's state.
func (m *Manager) Import(data []byte) (checkpoint.Bundle, error) {
	b, err := checkpoint.DecodeBundle(data)
	if err != nil {
		return checkpoint.Bundle{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkActiveLocked(); err != nil {
		return checkpoint.Bundle{}, err
	}
	if err := m.reinstallLocked(b.State); err != nil {
		return checkpoint.Bundle{}, err
	}
	m.store.Load(b)
	st := m.loop.live.Status()
	m.publish(Update{Snapshot: b.State, Meta: Meta{Speed: st.Speed, RunState: st.State}})
	return b, nil
}

func (m *Manager) checkActiveLocked() error {
	if m.disposed {
		return simerr.InvalidState("session manager disposed")
	}
	if !m.active {
		return simerr.InvalidState("no active match")
	}
	return nil
}

func (m *Manager) activeLive() (*engine.Live, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkActiveLocked(); err != nil {
		return nil, err
	}
	return m.loop.live, nil
}

// Active reports whether a session is in progress.
func (m *Manager) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// Fixture returns the fixture of the current or most recent session.
func (m *Manager) Fixture() (engine.Fixture, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fixture, m.loop != nil
}

// Snapshot returns the head of the current or most recent lineage.
func (m *Manager) Snapshot() (match.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loop == nil {
		return match.Snapshot{}, simerr.InvalidState("no match has been started")
	}
	return m.loop.live.Snapshot(), nil
}

// Status reports the loop status, or idle when nothing has been started.
func (m *Manager) Status() engine.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case m.disposed:
		return engine.Status{State: engine.StateDisposed}
	case m.loop == nil:
		return engine.Status{State: engine.StateIdle, Speed: engine.ClampSpeed(m.cfg.Live.Speed)}
	}
	return m.loop.live.Status()
}

// Subscribe registers for the merged update stream.
func (m *Manager) Subscribe() (int, <-chan Update) {
	return m.hub.Subscribe()
}

func (m *Manager) Unsubscribe(id int) {
	m.hub.Unsubscribe(id)
}
