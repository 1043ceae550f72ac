// Package api provides the HTTP control surface for the live match.
// GET endpoints are public (read-only observation).
// POST and DELETE endpoints require a bearer token (admin control plane).
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/talgya/pitchside/internal/domain"
	"github.com/talgya/pitchside/internal/persistence"
	"github.com/talgya/pitchside/internal/session"
	"github.com/talgya/pitchside/internal/simerr"
	"github.com/talgya/pitchside/internal/tactics"
	"github.com/talgya/pitchside/internal/weather"
)

const defaultMaxSSEConns = 16

// Server serves the match session over HTTP.
type Server struct {
	Manager  *session.Manager
	Roster   *domain.Roster
	Presets  tactics.Presets
	DB       *persistence.DB // Optional; persistence endpoints answer 503 without it
	Weather  *weather.Client // Optional; nil means fair weather
	Limiter  *RateLimiter    // Optional; guards /quick
	AdminKey string          // Bearer token for POST/DELETE. Empty = writes disabled.
	Origins  []string        // CORS allowed origins
	Log      zerolog.Logger

	MaxSSEConns int
	Heartbeat   time.Duration

	sseConns atomic.Int32
}

// Handler builds the router with CORS applied.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	router.Use(s.logRequests)

	api := router.PathPrefix("/api/v1").Subrouter()

	// Public endpoints (GET, read-only).
	api.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	api.HandleFunc("/match", s.handleMatch).Methods(http.MethodGet)
	api.HandleFunc("/events", s.handleEvents).Methods(http.MethodGet)
	api.HandleFunc("/stream", s.handleStream).Methods(http.MethodGet)
	api.HandleFunc("/teams", s.handleTeams).Methods(http.MethodGet)
	api.HandleFunc("/presets", s.handlePresets).Methods(http.MethodGet)
	api.HandleFunc("/checkpoints", s.handleCheckpoints).Methods(http.MethodGet)
	api.HandleFunc("/checkpoints/{id}", s.handleCheckpoint).Methods(http.MethodGet)
	api.HandleFunc("/export", s.handleExport).Methods(http.MethodGet)
	api.HandleFunc("/results", s.handleResults).Methods(http.MethodGet)

	// Admin endpoints (POST/DELETE, require bearer token).
	admin := api.NewRoute().Subrouter()
	admin.Use(s.adminOnly)
	admin.HandleFunc("/match", s.handleStartMatch).Methods(http.MethodPost)
	admin.HandleFunc("/match", s.handleEndMatch).Methods(http.MethodDelete)
	admin.HandleFunc("/match/pause", s.handlePause).Methods(http.MethodPost)
	admin.HandleFunc("/match/resume", s.handleResume).Methods(http.MethodPost)
	admin.HandleFunc("/match/speed", s.handleSpeed).Methods(http.MethodPost)
	admin.HandleFunc("/match/jump", s.handleJump).Methods(http.MethodPost)
	admin.HandleFunc("/match/skip", s.handleSkip).Methods(http.MethodPost)
	admin.HandleFunc("/teams/{teamID}/tactics", s.handleTactics).Methods(http.MethodPost)
	admin.HandleFunc("/teams/{teamID}/formation", s.handleFormation).Methods(http.MethodPost)
	admin.HandleFunc("/teams/{teamID}/instructions", s.handleInstructions).Methods(http.MethodPost)
	admin.HandleFunc("/teams/{teamID}/automatic", s.handleAutomatic).Methods(http.MethodPost)
	admin.HandleFunc("/teams/{teamID}/intensity", s.handleIntensity).Methods(http.MethodPost)
	admin.HandleFunc("/checkpoints", s.handleCreateCheckpoint).Methods(http.MethodPost)
	admin.HandleFunc("/checkpoints/{id}/restore", s.handleRestore).Methods(http.MethodPost)
	admin.HandleFunc("/checkpoints/{id}", s.handleDeleteCheckpoint).Methods(http.MethodDelete)
	admin.HandleFunc("/import", s.handleImport).Methods(http.MethodPost)
	admin.HandleFunc("/save", s.handleSave).Methods(http.MethodPost)
	admin.HandleFunc("/quick", RateLimitMiddleware(s.Limiter, s.handleQuick)).Methods(http.MethodPost)

	origins := s.Origins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:3000"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})
	return c.Handler(router)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.Log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly rejects requests without the admin bearer token.
func (s *Server) adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.AdminKey == "" {
			http.Error(w, "admin endpoints disabled (no PITCHSIDE_ADMIN_KEY set)", http.StatusForbidden)
			return
		}
		if !s.checkBearerToken(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type errorBody struct {
	Error  string      `json:"error"`
	Code   simerr.Code `json:"code,omitempty"`
	Fields []string    `json:"fields,omitempty"`
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch simerr.CodeOf(err) {
	case simerr.CodeValidation:
		return http.StatusBadRequest
	case simerr.CodeNotFound:
		return http.StatusNotFound
	case simerr.CodeInvalidState:
		return http.StatusConflict
	case simerr.CodeFormat:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.Log.Error().Err(err).Msg("request failed")
	}
	writeJSONStatus(w, status, errorBody{
		Error:  err.Error(),
		Code:   simerr.CodeOf(err),
		Fields: simerr.Fields(err),
	})
}

// decode reads a JSON body into v, reporting malformed input as a
// validation error.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 4<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var syntax *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.As(err, &typeErr):
			return simerr.Validation(fmt.Sprintf("field %s has the wrong type", typeErr.Field), typeErr.Field)
		case errors.As(err, &syntax):
			return simerr.Validation("request body is not valid JSON")
		default:
			return simerr.Validation(fmt.Sprintf("invalid request body: %v", err))
		}
	}
	return nil
}

func queryLimit(r *http.Request, def, ceiling int) int {
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= ceiling {
			return n
		}
	}
	return def
}

func writeJSON(w http.ResponseWriter, data any) {
	writeJSONStatus(w, http.StatusOK, data)
}

func writeJSONStatus(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
