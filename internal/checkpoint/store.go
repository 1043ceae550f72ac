// Package checkpoint keeps named and automatic copies of match snapshots for
// replay and rollback, with age and count based eviction.
package checkpoint

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/talgya/pitchside/internal/broadcast"
	"github.com/talgya/pitchside/internal/match"
	"github.com/talgya/pitchside/internal/simerr"
)

// Origin distinguishes user-requested checkpoints from triggered ones.
type Origin string

const (
	Manual    Origin = "manual"
	Automatic Origin = "automatic"
)

// Trigger is the event class that caused an automatic checkpoint.
type Trigger string

const (
	TriggerMatchStart     Trigger = "match_start"
	TriggerGoal           Trigger = "goal"
	TriggerCard           Trigger = "card"
	TriggerHalfTime       Trigger = "half_time"
	TriggerFullTime       Trigger = "full_time"
	TriggerTacticalChange Trigger = "tactical_change"
	TriggerFinal          Trigger = "final"
)

// TriggerFor maps an event type to its checkpoint trigger, if any.
func TriggerFor(t match.EventType) (Trigger, bool) {
	switch t {
	case match.EventGoal:
		return TriggerGoal, true
	case match.EventYellowCard, match.EventRedCard:
		return TriggerCard, true
	case match.EventHalfTime:
		return TriggerHalfTime, true
	case match.EventFullTime:
		return TriggerFullTime, true
	case match.EventTacticalChange:
		return TriggerTacticalChange, true
	default:
		return "", false
	}
}

var triggerNames = map[Trigger]string{
	TriggerMatchStart:     "Match Start",
	TriggerGoal:           "Goal",
	TriggerCard:           "Card",
	TriggerHalfTime:       "Half Time",
	TriggerFullTime:       "Full Time",
	TriggerTacticalChange: "Tactical Change",
	TriggerFinal:          "Final",
}

// Checkpoint is a retained copy of one snapshot.
type Checkpoint struct {
	ID          string         `json:"id"`
	MatchID     string         `json:"matchId"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	Origin      Origin         `json:"origin"`
	Trigger     Trigger        `json:"trigger,omitempty"`
	Minute      int            `json:"minute"`
	Snapshot    match.Snapshot `json:"snapshot"`
}

// Source supplies the snapshot a manual checkpoint captures.
type Source func() match.Snapshot

// Store holds the checkpoints of one match lineage. Safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	cfg    Config
	items  []Checkpoint // Oldest first
	source Source
	now    func() time.Time
	newID  func() string
	hub    *broadcast.Hub[Checkpoint]
	log    zerolog.Logger
}

// Option customizes a Store.
type Option func(*Store)

// WithClock replaces time.Now, for retention tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDs replaces the checkpoint id generator.
func WithIDs(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

// WithLogger sets the store's logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Store) { s.log = log }
}

// New creates an empty store. source may be nil until SetSource.
func New(cfg Config, source Source, opts ...Option) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Store{
		cfg:    cfg,
		source: source,
		now:    time.Now,
		newID:  uuid.NewString,
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.hub = broadcast.New[Checkpoint](0, s.log)
	return s, nil
}

// SetSource swaps the snapshot provider, used when a new lineage starts.
func (s *Store) SetSource(src Source) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.source = src
}

// Config returns the active configuration.
func (s *Store) Config() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

func (s *Store) current() (match.Snapshot, error) {
	if s.source == nil {
		return match.Snapshot{}, simerr.InvalidState("no active match to checkpoint")
	}
	return s.source(), nil
}

// Create captures the current snapshot under a user-chosen name.
func (s *Store) Create(name, description string) (Checkpoint, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Checkpoint{}, simerr.Validation("checkpoint name is required", "name")
	}
	s.mu.Lock()
	snap, err := s.current()
	if err != nil {
		s.mu.Unlock()
		return Checkpoint{}, err
	}
	cp := s.addLocked(snap, name, description, Manual, "")
	s.mu.Unlock()

	s.hub.Publish(cp)
	return cp, nil
}

// CreateAutomatic records snap for a trigger. It reports false without
// error when the trigger is disabled.
func (s *Store) CreateAutomatic(trigger Trigger, snap match.Snapshot) (Checkpoint, bool, error) {
	name, ok := triggerNames[trigger]
	if !ok {
		return Checkpoint{}, false, simerr.Validation("unknown checkpoint trigger "+string(trigger), "trigger")
	}
	s.mu.Lock()
	if !s.cfg.Triggers.Enabled(trigger) {
		s.mu.Unlock()
		return Checkpoint{}, false, nil
	}
	cp := s.addLocked(snap, name, "", Automatic, trigger)
	s.mu.Unlock()

	s.hub.Publish(cp)
	return cp, true, nil
}

func (s *Store) addLocked(snap match.Snapshot, name, description string, origin Origin, trigger Trigger) Checkpoint {
	cp := Checkpoint{
		ID:          s.newID(),
		MatchID:     snap.ID,
		Name:        name,
		Description: description,
		CreatedAt:   s.now().UTC(),
		Origin:      origin,
		Trigger:     trigger,
		Minute:      snap.Minute,
		Snapshot:    snap,
	}
	s.items = append(s.items, cp)
	removed := s.cleanupLocked()
	s.log.Debug().
		Str("checkpoint_id", cp.ID).
		Str("origin", string(origin)).
		Str("trigger", string(trigger)).
		Int("minute", cp.Minute).
		Int("evicted", removed).
		Msg("checkpoint created")
	return cp
}

// Get returns a checkpoint by id.
func (s *Store) Get(id string) (Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexLocked(id)
	if i < 0 {
		return Checkpoint{}, simerr.NotFound("checkpoint", id)
	}
	return s.items[i], nil
}

// Restore returns the snapshot stored under id.
func (s *Store) Restore(id string) (match.Snapshot, error) {
	cp, err := s.Get(id)
	if err != nil {
		return match.Snapshot{}, err
	}
	return cp.Snapshot, nil
}

// List returns all checkpoints, oldest first.
func (s *Store) List() []Checkpoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.items)
}

// Len returns the number of retained checkpoints.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Remove deletes a checkpoint by id.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return simerr.NotFound("checkpoint", id)
	}
	s.items = slices.Delete(s.items, i, i+1)
	return nil
}

// Clear drops every checkpoint.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
}

// Cleanup enforces the retention window and then the count cap, and
// returns how many checkpoints were removed.
func (s *Store) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cleanupLocked()
}

// cleanupLocked drops checkpoints older than the retention window, then
// evicts oldest manual checkpoints, then oldest overall, until within cap.
func (s *Store) cleanupLocked() int {
	before := len(s.items)
	slices.SortStableFunc(s.items, func(a, b Checkpoint) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})

	if s.cfg.Retention > 0 {
		cutoff := s.now().Add(-s.cfg.Retention)
		s.items = slices.DeleteFunc(s.items, func(cp Checkpoint) bool {
			return cp.CreatedAt.Before(cutoff)
		})
	}

	for len(s.items) > s.cfg.MaxCheckpoints {
		i := slices.IndexFunc(s.items, func(cp Checkpoint) bool { return cp.Origin == Manual })
		if i < 0 {
			i = 0
		}
		s.items = slices.Delete(s.items, i, i+1)
	}
	return before - len(s.items)
}

func (s *Store) indexLocked(id string) int {
	return slices.IndexFunc(s.items, func(cp Checkpoint) bool { return cp.ID == id })
}

// Subscribe streams newly created checkpoints.
func (s *Store) Subscribe() (int, <-chan Checkpoint) {
	return s.hub.Subscribe()
}

func (s *Store) Unsubscribe(id int) {
	s.hub.Unsubscribe(id)
}

// Close ends every checkpoint subscription.
func (s *Store) Close() {
	s.hub.Close()
}
