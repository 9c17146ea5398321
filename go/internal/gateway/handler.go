package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/rendezvous/go/internal/models"
	"github.com/mcdev12/rendezvous/go/internal/session"
)

type createRequest struct {
	Kind models.SessionKind `json:"kind"`
	Name string             `json:"name"`
}

type joinRequest struct {
	Name string `json:"name"`
}

// RegisterRoutes registers the session API and WebSocket routes with mux.
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/sessions", s.handleCreate)
	mux.HandleFunc("POST /api/sessions/{code}/join", s.handleJoin)
	mux.HandleFunc("GET /api/sessions/{code}/participants/{name}", s.handleView)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /ws/session", s.handleWebSocket)
}

func (s *Service) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	entry, err := s.Create(r.Context(), req.Kind, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (s *Service) handleJoin(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	entry, err := s.Join(r.Context(), r.PathValue("code"), req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Service) handleView(w http.ResponseWriter, r *http.Request) {
	key := Key(session.NormalizeCode(r.PathValue("code")), strings.TrimSpace(r.PathValue("name")))
	p, ok := s.Participant(key)
	if !ok {
		http.Error(w, ErrUnknownParticipant.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, p.View())
}

func (s *Service) handleStats(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	participants := len(s.participants)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]int{
		"connections":  s.manager.ConnectionCount(),
		"participants": participants,
	})
}

func (s *Service) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	code := session.NormalizeCode(r.URL.Query().Get("code"))
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if code == "" || name == "" {
		http.Error(w, "code and name are required", http.StatusBadRequest)
		return
	}

	key := Key(code, name)
	p, ok := s.Participant(key)
	if !ok {
		http.Error(w, ErrUnknownParticipant.Error(), http.StatusNotFound)
		return
	}

	initial, err := json.Marshal(ServerMessage{Type: "state", State: p.View()})
	if err != nil {
		http.Error(w, "failed to encode state", http.StatusInternalServerError)
		return
	}
	if err := s.manager.UpgradeConnection(w, r, key, initial); err != nil {
		// the upgrader has already written the HTTP error
		log.Error().Err(err).Str("participant", key).Msg("failed to upgrade WebSocket connection")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to write response")
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, session.ErrInvalidName), errors.Is(err, session.ErrUnknownKind):
		status = http.StatusBadRequest
	case errors.Is(err, session.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, session.ErrCapacityExceeded), errors.Is(err, session.ErrDuplicateParticipant):
		status = http.StatusConflict
	}
	http.Error(w, err.Error(), status)
}
