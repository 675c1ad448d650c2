package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/vovakirdan/pong-arena/internal/multiplayer"
	"github.com/vovakirdan/pong-arena/internal/pong"
)

const (
	wsPath       = "/ws/game"
	maxBodyBytes = 4 << 10
)

// Default participant ids for local matches created without names.
const (
	DefaultLocalPlayer1 = "player-1"
	DefaultLocalPlayer2 = "player-2"
)

// CreateRequest is the body of POST /game/create.
type CreateRequest struct {
	Mode    pong.Mode           `json:"mode"`
	MatchID multiplayer.MatchID `json:"matchId,omitempty"`
}

// CreateResponse is returned by POST /game/create.
type CreateResponse struct {
	MatchID multiplayer.MatchID `json:"matchId"`
	Mode    pong.Mode           `json:"mode"`
	WSURL   string              `json:"wsUrl"`
}

// LocalCreateRequest is the body of POST /game/local/create.
type LocalCreateRequest struct {
	Player1ID string `json:"player1Id,omitempty"`
	Player2ID string `json:"player2Id,omitempty"`
}

// LocalCreateResponse is returned by POST /game/local/create.
type LocalCreateResponse struct {
	MatchID   multiplayer.MatchID `json:"matchId"`
	Mode      pong.Mode           `json:"mode"`
	Player1ID string              `json:"player1Id"`
	Player2ID string              `json:"player2Id"`
	WSURL     string              `json:"wsUrl"`
}

// JoinRequest is the body of POST /game/{matchId}/join.
type JoinRequest struct {
	PlayerID string    `json:"playerId"`
	Side     pong.Side `json:"side,omitempty"`
}

// JoinResponse is returned by POST /game/{matchId}/join.
type JoinResponse struct {
	MatchID  multiplayer.MatchID `json:"matchId"`
	PlayerID string              `json:"playerId"`
	Side     pong.Side           `json:"side"`
}

// InputRequest is the body of POST /game/{matchId}/input.
type InputRequest struct {
	PlayerID string            `json:"playerId"`
	Input    *pong.InputUpdate `json:"input"`
}

// MatchResponse is returned by GET /game/{matchId}.
type MatchResponse struct {
	State  pong.State `json:"state"`
	Active bool       `json:"active"`
}

// ListResponse is returned by GET /game/list.
type ListResponse struct {
	Games []multiplayer.MatchInfo `json:"games"`
}

// HistoryResponse is returned by GET /game/history.
type HistoryResponse struct {
	History []multiplayer.MatchResult `json:"history"`
}

// PlayerStatsResponse is returned by GET /game/stats/{playerId}.
type PlayerStatsResponse struct {
	Stats   multiplayer.PlayerStats   `json:"stats"`
	History []multiplayer.MatchResult `json:"history"`
}

// OKResponse acknowledges requests that return no data.
type OKResponse struct {
	OK bool `json:"ok"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /game/create", s.handleCreate)
	mux.HandleFunc("POST /game/local/create", s.handleLocalCreate)
	mux.HandleFunc("GET /game/list", s.handleList)
	mux.HandleFunc("GET /game/stats", s.handleStats)
	mux.HandleFunc("GET /game/stats/{playerId}", s.handlePlayerStats)
	mux.HandleFunc("GET /game/history", s.handleHistory)
	mux.HandleFunc("GET /game/{matchId}", s.handleGet)
	mux.HandleFunc("DELETE /game/{matchId}", s.handleDelete)
	mux.HandleFunc("POST /game/{matchId}/join", s.handleJoin)
	mux.HandleFunc("POST /game/{matchId}/input", s.handleInput)
	mux.HandleFunc("GET "+wsPath, s.handleWebSocket)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	return mux
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Mode == "" {
		writeError(w, http.StatusBadRequest, "missing mode")
		return
	}
	mode, err := pong.ParseMode(string(req.Mode))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := s.registry.CreateMatch(mode, req.MatchID)
	if err != nil {
		s.writeRegistryError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, CreateResponse{MatchID: id, Mode: mode, WSURL: wsPath})
}

func (s *Server) handleLocalCreate(w http.ResponseWriter, r *http.Request) {
	var req LocalCreateRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if req.Player1ID == "" {
		req.Player1ID = DefaultLocalPlayer1
	}
	if req.Player2ID == "" {
		req.Player2ID = DefaultLocalPlayer2
	}
	if req.Player1ID == req.Player2ID {
		writeError(w, http.StatusBadRequest, "player ids must differ")
		return
	}

	id, err := s.registry.CreateMatch(pong.ModeLocal2P, "")
	if err != nil {
		s.writeRegistryError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, LocalCreateResponse{
		MatchID:   id,
		Mode:      pong.ModeLocal2P,
		Player1ID: req.Player1ID,
		Player2ID: req.Player2ID,
		WSURL:     wsPath,
	})
}

func (s *Server) handleList(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, ListResponse{Games: s.registry.List()})
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.Stats())
}

func (s *Server) handlePlayerStats(w http.ResponseWriter, r *http.Request) {
	playerID := r.PathValue("playerId")
	writeJSON(w, http.StatusOK, PlayerStatsResponse{
		Stats:   s.registry.PlayerStats(playerID),
		History: s.registry.History(playerID),
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HistoryResponse{History: s.registry.History("")})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	m, ok := s.registry.Match(multiplayer.MatchID(r.PathValue("matchId")))
	if !ok {
		writeError(w, http.StatusNotFound, "game not found")
		return
	}
	writeJSON(w, http.StatusOK, MatchResponse{State: m.State(), Active: m.Running()})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	s.registry.RemoveMatch(multiplayer.MatchID(r.PathValue("matchId")))
	writeJSON(w, http.StatusOK, OKResponse{OK: true})
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	var req JoinRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.PlayerID == "" {
		writeError(w, http.StatusBadRequest, "missing playerId")
		return
	}

	matchID := multiplayer.MatchID(r.PathValue("matchId"))
	err := s.registry.AddParticipant(matchID, multiplayer.ParticipantConfig{
		ID:   req.PlayerID,
		Side: req.Side,
		Kind: multiplayer.KindHumanPoll,
	})
	if err != nil {
		s.writeRegistryError(w, err)
		return
	}

	side, err := s.sideOf(matchID, req.PlayerID)
	if err != nil {
		s.writeRegistryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, JoinResponse{MatchID: matchID, PlayerID: req.PlayerID, Side: side})
}

func (s *Server) handleInput(w http.ResponseWriter, r *http.Request) {
	var req InputRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.PlayerID == "" || req.Input == nil {
		writeError(w, http.StatusBadRequest, "missing playerId or input")
		return
	}

	m, ok := s.registry.Match(multiplayer.MatchID(r.PathValue("matchId")))
	if !ok {
		writeError(w, http.StatusNotFound, "game not found")
		return
	}
	m.SetInput(req.PlayerID, *req.Input)
	writeJSON(w, http.StatusOK, OKResponse{OK: true})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"matches":     s.registry.MatchCount(),
		"connections": s.ConnectionCount(),
	})
}

// sideOf looks up the side a participant was admitted on.
func (s *Server) sideOf(matchID multiplayer.MatchID, participantID string) (pong.Side, error) {
	m, ok := s.registry.Match(matchID)
	if !ok {
		return "", fmt.Errorf("%w: %s", multiplayer.ErrMatchNotFound, matchID)
	}
	for _, p := range m.Participants() {
		if p.ID == participantID {
			return p.Side, nil
		}
	}
	return "", fmt.Errorf("%w: %s", multiplayer.ErrMatchNotFound, matchID)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func (s *Server) writeRegistryError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "err", err)
	}
	writeError(w, status, err.Error())
}

// statusFor maps registry and match errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, multiplayer.ErrMatchNotFound):
		return http.StatusNotFound
	case errors.Is(err, multiplayer.ErrDuplicateMatch),
		errors.Is(err, multiplayer.ErrMatchFull),
		errors.Is(err, multiplayer.ErrSideTaken),
		errors.Is(err, multiplayer.ErrParticipantInMatch),
		errors.Is(err, multiplayer.ErrNotPlaying),
		errors.Is(err, multiplayer.ErrMatchStopped):
		return http.StatusConflict
	case errors.Is(err, multiplayer.ErrInvalidParticipant):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
