package checkpoint

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/talgya/pitchside/internal/match"
	"github.com/talgya/pitchside/internal/simerr"
)

// Bundle is the portable export of one session: the current state, every
// checkpoint, and the store configuration.
type Bundle struct {
	State       match.Snapshot `json:"state"`
	Checkpoints []Checkpoint   `json:"checkpoints"`
	Config      Config         `json:"config"`
	ExportTime  time.Time      `json:"exportTime"`
}

// Export bundles the current state with every checkpoint.
func (s *Store) Export() (Bundle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, err := s.current()
	if err != nil {
		return Bundle{}, err
	}
	cps := make([]Checkpoint, len(s.items))
	copy(cps, s.items)
	return Bundle{
		State:       snap,
		Checkpoints: cps,
		Config:      s.cfg,
		ExportTime:  s.now().UTC(),
	}, nil
}

// Marshal encodes a bundle as JSON.
func (b Bundle) Marshal() ([]byte, error) {
	return json.Marshal(b)
}

// DecodeBundle parses and validates a bundle. The three top-level fields
// must be present and well formed, or a FORMAT error is returned.
func DecodeBundle(data []byte) (Bundle, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Bundle{}, simerr.Format("bundle is not a JSON object", err)
	}
	for _, key := range []string{"state", "checkpoints", "config"} {
		v, ok := raw[key]
		if !ok || bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			return Bundle{}, simerr.Format(fmt.Sprintf("bundle is missing %q", key), nil)
		}
	}

	var b Bundle
	if err := json.Unmarshal(raw["state"], &b.State); err != nil {
		return Bundle{}, simerr.Format("bundle state is malformed", err)
	}
	if err := json.Unmarshal(raw["checkpoints"], &b.Checkpoints); err != nil {
		return Bundle{}, simerr.Format("bundle checkpoints must be a list", err)
	}
	if err := json.Unmarshal(raw["config"], &b.Config); err != nil {
		return Bundle{}, simerr.Format("bundle config is malformed", err)
	}
	if v, ok := raw["exportTime"]; ok {
		if err := json.Unmarshal(v, &b.ExportTime); err != nil {
			return Bundle{}, simerr.Format("bundle exportTime is malformed", err)
		}
	}

	if b.State.ID == "" {
		return Bundle{}, simerr.Format("bundle state has no match id", nil)
	}
	if err := b.State.CheckInvariants(); err != nil {
		return Bundle{}, simerr.Format("bundle state is inconsistent", err)
	}
	if err := b.Config.Validate(); err != nil {
		return Bundle{}, simerr.Format("bundle config is invalid", err)
	}
	seen := make(map[string]bool, len(b.Checkpoints))
	for i, cp := range b.Checkpoints {
		if cp.ID == "" || seen[cp.ID] {
			return Bundle{}, simerr.Format(fmt.Sprintf("checkpoint %d has a missing or duplicate id", i), nil)
		}
		seen[cp.ID] = true
		if cp.MatchID != b.State.ID {
			return Bundle{}, simerr.Format(fmt.Sprintf("checkpoint %s belongs to match %s, not %s", cp.ID, cp.MatchID, b.State.ID), nil)
		}
		if err := cp.Snapshot.CheckInvariants(); err != nil {
			return Bundle{}, simerr.Format(fmt.Sprintf("checkpoint %s snapshot is inconsistent", cp.ID), err)
		}
	}
	if b.Checkpoints == nil {
		b.Checkpoints = []Checkpoint{}
	}
	return b, nil
}

// Import decodes a bundle and loads it. The store is left untouched when
// the bundle is invalid.
func (s *Store) Import(data []byte) (Bundle, error) {
	b, err := DecodeBundle(data)
	if err != nil {
		return Bundle{}, err
	}
	s.Load(b)
	return b, nil
}

// Load replaces the store's checkpoints and configuration with those of an
// already decoded bundle.
func (s *Store) Load(b Bundle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = b.Config
	s.items = make([]Checkpoint, len(b.Checkpoints))
	copy(s.items, b.Checkpoints)
	s.log.Info().Str("match_id", b.State.ID).Int("checkpoints", len(b.Checkpoints)).Msg("checkpoints imported")
}
