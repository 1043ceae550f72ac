package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/talgya/pitchside/internal/engine"
	"github.com/talgya/pitchside/internal/entropy"
	"github.com/talgya/pitchside/internal/match"
	"github.com/talgya/pitchside/internal/simerr"
	"github.com/talgya/pitchside/internal/tactics"
	"github.com/talgya/pitchside/internal/weather"
)

// GET /api/v1/status
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status":      s.Manager.Status(),
		"active":      s.Manager.Active(),
		"checkpoints": len(s.Manager.Checkpoints()),
		"persistence": s.DB != nil,
	})
}

// GET /api/v1/match
func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	snap, err := s.Manager.Snapshot()
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, snap)
}

// GET /api/v1/events?limit=50&type=goal
// Returns the newest events last, optionally filtered by type.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	snap, err := s.Manager.Snapshot()
	if err != nil {
		s.writeError(w, err)
		return
	}
	limit := queryLimit(r, 50, 500)
	typ := match.EventType(r.URL.Query().Get("type"))

	events := make([]match.Event, 0, len(snap.Events))
	for _, e := range snap.Events {
		if typ == "" || e.Type == typ {
			events = append(events, e)
		}
	}
	if len(events) > limit {
		events = events[len(events)-limit:]
	}
	writeJSON(w, events)
}

// GET /api/v1/teams
func (s *Server) handleTeams(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Roster.Teams())
}

// GET /api/v1/presets
func (s *Server) handlePresets(w http.ResponseWriter, r *http.Request) {
	out := make([]map[string]any, 0, len(s.Presets))
	for _, name := range s.Presets.Names() {
		setup, _ := s.Presets.Get(name)
		out = append(out, map[string]any{"name": name, "setup": setup})
	}
	writeJSON(w, out)
}

type startMatchRequest struct {
	MatchID     string         `json:"match_id"`
	Home        string         `json:"home"`
	Away        string         `json:"away"`
	HomePreset  string         `json:"home_preset,omitempty"`
	AwayPreset  string         `json:"away_preset,omitempty"`
	HomeTactics *tactics.Setup `json:"home_tactics,omitempty"`
	AwayTactics *tactics.Setup `json:"away_tactics,omitempty"`
}

// fixture resolves the request's teams and tactics.
func (s *Server) fixture(req startMatchRequest) (engine.Fixture, error) {
	home, ok := s.Roster.Team(req.Home)
	if !ok {
		return engine.Fixture{}, simerr.NotFound("team", req.Home)
	}
	away, ok := s.Roster.Team(req.Away)
	if !ok {
		return engine.Fixture{}, simerr.NotFound("team", req.Away)
	}
	homeSetup, err := s.setupFor(req.HomeTactics, req.HomePreset, "home_preset")
	if err != nil {
		return engine.Fixture{}, err
	}
	awaySetup, err := s.setupFor(req.AwayTactics, req.AwayPreset, "away_preset")
	if err != nil {
		return engine.Fixture{}, err
	}
	id := req.MatchID
	if id == "" {
		id = uuid.NewString()
	}
	return engine.Fixture{
		MatchID:     id,
		Home:        home,
		Away:        away,
		Weather:     s.weather(),
		KickoffAt:   time.Now().UTC(),
		HomeTactics: homeSetup,
		AwayTactics: awaySetup,
	}, nil
}

// setupFor prefers an explicit setup over a named preset.
func (s *Server) setupFor(explicit *tactics.Setup, preset, field string) (*tactics.Setup, error) {
	if explicit != nil {
		return explicit, nil
	}
	if preset == "" {
		return nil, nil
	}
	setup, ok := s.Presets.Get(preset)
	if !ok {
		return nil, simerr.Validation("unknown preset "+preset, field)
	}
	return &setup, nil
}

func (s *Server) weather() weather.Weather {
	return s.Weather.Current()
}

// POST /api/v1/match
func (s *Server) handleStartMatch(w http.ResponseWriter, r *http.Request) {
	var req startMatchRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	f, err := s.fixture(req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	snap, err := s.Manager.StartMatch(f)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.Log.Info().Str("match_id", f.MatchID).Str("home", f.Home.ID).Str("away", f.Away.ID).Msg("admin started match")
	writeJSONStatus(w, http.StatusCreated, snap)
}

// DELETE /api/v1/match
// Ends the session and saves it when persistence is configured.
func (s *Server) handleEndMatch(w http.ResponseWriter, r *http.Request) {
	snap, err := s.Manager.EndMatch()
	if err != nil {
		s.writeError(w, err)
		return
	}
	saved := false
	if s.DB != nil {
		if err := s.saveSession(); err != nil {
			s.Log.Error().Err(err).Str("match_id", snap.ID).Msg("save ended match")
		} else {
			saved = true
		}
	}
	writeJSON(w, map[string]any{"match": snap, "saved": saved})
}

func (s *Server) saveSession() error {
	b, err := s.Manager.Export()
	if err != nil {
		return err
	}
	return s.DB.SaveSession(b)
}

// POST /api/v1/match/pause
func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.control(w, s.Manager.Pause())
}

// POST /api/v1/match/resume
func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	s.control(w, s.Manager.Resume())
}

// POST /api/v1/match/speed {"speed": 2}
func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Speed *float64 `json:"speed"`
	}
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if req.Speed == nil {
		s.writeError(w, simerr.Validation("speed is required", "speed"))
		return
	}
	speed, err := s.Manager.SetSpeed(*req.Speed)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, map[string]any{"speed": speed})
}

// POST /api/v1/match/jump {"minute": 60}
func (s *Server) handleJump(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Minute *int `json:"minute"`
	}
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if req.Minute == nil {
		s.writeError(w, simerr.Validation("minute is required", "minute"))
		return
	}
	s.control(w, s.Manager.JumpToMinute(*req.Minute))
}

// POST /api/v1/match/skip
func (s *Server) handleSkip(w http.ResponseWriter, r *http.Request) {
	s.control(w, s.Manager.SkipToEnd())
}

// control answers a loop command with the resulting status.
func (s *Server) control(w http.ResponseWriter, err error) {
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, s.Manager.Status())
}

// POST /api/v1/teams/{teamID}/tactics
// Body is a full setup, or {"preset": "name"}.
func (s *Server) handleTactics(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Preset string `json:"preset,omitempty"`
		tactics.Setup
	}
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	setup := req.Setup
	if req.Preset != "" {
		p, ok := s.Presets.Get(req.Preset)
		if !ok {
			s.writeError(w, simerr.Validation("unknown preset "+req.Preset, "preset"))
			return
		}
		setup = p
	}
	s.control(w, s.Manager.ApplyTacticalChange(mux.Vars(r)["teamID"], setup))
}

// POST /api/v1/teams/{teamID}/formation {"formation": "4-3-3"}
func (s *Server) handleFormation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Formation tactics.Formation `json:"formation"`
	}
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	s.control(w, s.Manager.ChangeFormation(mux.Vars(r)["teamID"], req.Formation))
}

// POST /api/v1/teams/{teamID}/instructions {"player_id": "...", "instruction": {...}}
func (s *Server) handleInstructions(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlayerID    string              `json:"player_id"`
		Instruction tactics.Instruction `json:"instruction"`
	}
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	s.control(w, s.Manager.SetPlayerInstructions(mux.Vars(r)["teamID"], req.PlayerID, req.Instruction))
}

// POST /api/v1/teams/{teamID}/automatic {"enabled": true}
func (s *Server) handleAutomatic(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	s.control(w, s.Manager.EnableAutomaticTactics(mux.Vars(r)["teamID"], req.Enabled))
}

// POST /api/v1/teams/{teamID}/intensity {"intensity": "high"}
func (s *Server) handleIntensity(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Intensity tactics.Intensity `json:"intensity"`
	}
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	s.control(w, s.Manager.SetMatchIntensity(mux.Vars(r)["teamID"], req.Intensity))
}

type quickRequest struct {
	Home string `json:"home"`
	Away string `json:"away"`
	Seed uint64 `json:"seed,omitempty"`
}

// POST /api/v1/quick
// One-shot result without a live session. Rate limited per client.
func (s *Server) handleQuick(w http.ResponseWriter, r *http.Request) {
	var req quickRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	f, err := s.fixture(startMatchRequest{Home: req.Home, Away: req.Away})
	if err != nil {
		s.writeError(w, err)
		return
	}
	seed := req.Seed
	if seed == 0 {
		if seed, err = entropy.NewSeed(); err != nil {
			s.writeError(w, err)
			return
		}
	}
	res, err := engine.Quick(f, seed)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, res)
}

