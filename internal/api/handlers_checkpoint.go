package api

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/talgya/pitchside/internal/simerr"
)

const maxBundleBytes = 32 << 20

// GET /api/v1/checkpoints
func (s *Server) handleCheckpoints(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Manager.Checkpoints())
}

// GET /api/v1/checkpoints/{id}
func (s *Server) handleCheckpoint(w http.ResponseWriter, r *http.Request) {
	cp, err := s.Manager.Checkpoint(mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, cp)
}

// POST /api/v1/checkpoints {"name": "...", "description": "..."}
func (s *Server) handleCreateCheckpoint(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description,omitempty"`
	}
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	cp, err := s.Manager.CreateCheckpoint(req.Name, req.Description)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, cp)
}

// POST /api/v1/checkpoints/{id}/restore
// The session resumes paused from the checkpoint.
func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	snap, err := s.Manager.Restore(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.Log.Info().Str("checkpoint_id", id).Int("minute", snap.Minute).Msg("admin restored checkpoint")
	writeJSON(w, snap)
}

// DELETE /api/v1/checkpoints/{id}
func (s *Server) handleDeleteCheckpoint(w http.ResponseWriter, r *http.Request) {
	if err := s.Manager.RemoveCheckpoint(mux.Vars(r)["id"]); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/v1/export
// Downloads the session as a checkpoint bundle.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	b, err := s.Manager.Export()
	if err != nil {
		s.writeError(w, err)
		return
	}
	data, err := b.Marshal()
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", b.State.ID+".json"))
	w.Write(data)
}

// POST /api/v1/import
// Body is a bundle produced by /export for the running fixture.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBundleBytes))
	if err != nil {
		s.writeError(w, simerr.Format("read bundle", err))
		return
	}
	b, err := s.Manager.Import(data)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, map[string]any{
		"match_id":    b.State.ID,
		"minute":      b.State.Minute,
		"checkpoints": len(b.Checkpoints),
	})
}

// POST /api/v1/save
func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "persistence disabled", http.StatusServiceUnavailable)
		return
	}
	if err := s.saveSession(); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, map[string]string{"status": "saved"})
}

// GET /api/v1/results?limit=20
func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "persistence disabled", http.StatusServiceUnavailable)
		return
	}
	rows, err := s.DB.RecentResults(queryLimit(r, 20, 200))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, rows)
}
