package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/talgya/pitchside/internal/session"
)

const defaultHeartbeat = 15 * time.Second

// handleStream provides an SSE endpoint for the merged update stream.
// The first frame is the current snapshot so late joiners can render.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	limit := int32(s.MaxSSEConns)
	if limit <= 0 {
		limit = defaultMaxSSEConns
	}
	if current := s.sseConns.Add(1); current > limit {
		s.sseConns.Add(-1)
		http.Error(w, "too many SSE connections", http.StatusServiceUnavailable)
		return
	}
	defer s.sseConns.Add(-1)

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	// Subscribe before reading the snapshot so no update falls between them.
	subID, ch := s.Manager.Subscribe()
	defer s.Manager.Unsubscribe(subID)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if snap, err := s.Manager.Snapshot(); err == nil {
		writeSSE(w, "snapshot", snap)
	}
	flusher.Flush()
	s.Log.Info().Int("sub_id", subID).Msg("SSE client connected")

	every := s.Heartbeat
	if every <= 0 {
		every = defaultHeartbeat
	}
	heartbeat := time.NewTicker(every)
	defer heartbeat.Stop()

	for {
		select {
		case u, ok := <-ch:
			if !ok {
				return
			}
			writeUpdate(w, u)
			flusher.Flush()
		case <-heartbeat.C:
			fmt.Fprintf(w, ": heartbeat\n\n")
			flusher.Flush()
		case <-r.Context().Done():
			s.Log.Info().Int("sub_id", subID).Msg("SSE client disconnected")
			return
		}
	}
}

// writeUpdate frames an update with its sequence as the SSE id.
func writeUpdate(w http.ResponseWriter, u session.Update) {
	data, err := json.Marshal(u)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "id: %d\nevent: update\ndata: %s\n\n", u.Meta.Sequence, data)
}

func writeSSE(w http.ResponseWriter, event string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
}
