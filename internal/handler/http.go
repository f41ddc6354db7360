package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/cipher-arena/internal/auth"
	"github.com/cipher-arena/internal/domain"
	"github.com/cipher-arena/internal/service"
	"github.com/cipher-arena/internal/websocket"
)

// Handler provides HTTP handlers for the arena API
type Handler struct {
	engine   *service.Engine
	verifier *auth.Verifier
	hub      *websocket.Hub
	logger   *slog.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(engine *service.Engine, verifier *auth.Verifier, hub *websocket.Hub, logger *slog.Logger) *Handler {
	return &Handler{
		engine:   engine,
		verifier: verifier,
		hub:      hub,
		logger:   logger,
	}
}

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Router creates and configures the HTTP router
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(corsMiddleware)

	// Health check
	r.Get("/health", h.HealthCheck)
	r.Get("/ready", h.ReadyCheck)

	// WebSocket endpoint
	r.Get("/ws", h.HandleWebSocket)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Spectator reads require no identity
		r.Get("/sessions/current", h.GetCurrentSession)
		r.Get("/sessions/{sessionID}/leaderboard", h.GetLeaderboard)
		r.Get("/sessions/{sessionID}/challenges", h.ListChallenges)

		// Player operations
		r.Group(func(r chi.Router) {
			r.Use(h.authenticate)

			r.Post("/players/onboard", h.Onboard)

			r.Route("/sessions/{sessionID}", func(r chi.Router) {
				r.Get("/stats", h.GetPlayerStats)
				r.Get("/actions", h.GetRecentActions)
				r.Post("/heartbeat", h.Heartbeat)
				r.Post("/challenges/{challengeID}/submit", h.SubmitChallenge)
				r.Post("/hint", h.GetHint)
				r.Post("/lifelines", h.UseLifeline)
				r.Post("/sabotage", h.SabotagePlayer)
				r.Get("/players/top", h.GetTopPlayersDetails)
				r.Get("/players/{playerID}", h.GetPlayerDetails)
			})
		})

		// Gamemaster operations
		r.Route("/gamemaster", func(r chi.Router) {
			r.Use(h.authenticate)
			r.Use(h.requireGamemaster)

			r.Get("/sessions", h.ListSessions)
			r.Post("/sessions", h.CreateSession)
			r.Post("/sessions/{sessionID}/advance-round", h.AdvanceRound)
			r.Post("/sessions/{sessionID}/deactivate", h.DeactivateSession)
			r.Post("/sessions/{sessionID}/challenges", h.CreateChallenge)
			r.Post("/sessions/{sessionID}/players/{playerID}/lifelines", h.GrantLifelines)
		})

		// WebSocket info endpoint
		r.Get("/ws/stats", h.GetWebSocketStats)
	})

	return r
}

// corsMiddleware adds CORS headers
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-Request-ID")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeSuccess writes a successful JSON response
func (h *Handler) writeSuccess(w http.ResponseWriter, data interface{}) {
	h.writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
	})
}

// writeError writes an error JSON response
func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	h.writeJSON(w, status, APIResponse{
		Success: false,
		Error:   err.Error(),
	})
}

// writeEngineError maps domain errors to HTTP statuses
func (h *Handler) writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		h.writeError(w, http.StatusUnauthorized, err)
	case errors.Is(err, domain.ErrForbidden):
		h.writeError(w, http.StatusForbidden, err)
	case domain.IsNotFoundError(err):
		h.writeError(w, http.StatusNotFound, err)
	case errors.Is(err, domain.ErrConcurrentModification),
		errors.Is(err, domain.ErrInsufficientPoints),
		errors.Is(err, domain.ErrNoChargesRemaining),
		errors.Is(err, domain.ErrHandleTaken),
		errors.Is(err, domain.ErrHandleAlreadySet):
		h.writeError(w, http.StatusConflict, err)
	case errors.Is(err, domain.ErrInvalidTarget),
		errors.Is(err, domain.ErrInvalidRequest):
		h.writeError(w, http.StatusBadRequest, err)
	default:
		h.logger.Error("request failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError)
	}
}

// HandleWebSocket handles WebSocket upgrade requests
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.ServeWs(h.hub, h.logger, w, r)
}

// GetWebSocketStats returns WebSocket connection statistics
func (h *Handler) GetWebSocketStats(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, map[string]interface{}{
		"total_connections": h.hub.GetTotalConnections(),
	})
}

// HealthCheck returns service liveness
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ReadyCheck returns service readiness
func (h *Handler) ReadyCheck(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// GetCurrentSession returns the active session, if any
func (h *Handler) GetCurrentSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.engine.GetCurrentSession(r.Context())
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.writeSuccess(w, session)
}

// GetLeaderboard returns the session's ranked standings
func (h *Handler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	ranked, err := h.engine.GetLeaderboard(r.Context(), sessionID)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.writeSuccess(w, ranked)
}

// ListChallenges returns the session's challenges, optionally filtered
// by round
func (h *Handler) ListChallenges(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	round := domain.Round(r.URL.Query().Get("round"))

	challenges, err := h.engine.ListChallenges(r.Context(), sessionID, round)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.writeSuccess(w, challenges)
}

// Onboard assigns the caller's permanent handle
func (h *Handler) Onboard(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Handle string `json:"handle"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	player, err := h.engine.Onboard(r.Context(), h.actor(r), req.Handle)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, APIResponse{Success: true, Data: player})
}

// GetPlayerStats returns the caller's record for the session
func (h *Handler) GetPlayerStats(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	rec, err := h.engine.GetPlayerStats(r.Context(), h.actor(r), sessionID)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.writeSuccess(w, rec)
}

// GetRecentActions returns the caller's newest ledger entries
func (h *Handler) GetRecentActions(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	actions, err := h.engine.GetRecentActions(r.Context(), h.actor(r), sessionID, limit)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.writeSuccess(w, actions)
}

// Heartbeat refreshes the caller's presence status
func (h *Handler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}
	if req.Status == "" {
		req.Status = string(domain.StatusOnline)
	}

	if err := h.engine.Heartbeat(r.Context(), h.actor(r), sessionID, domain.PlayerStatus(req.Status)); err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.writeSuccess(w, map[string]string{"status": req.Status})
}

// SubmitChallenge verifies an answer and credits points on first
// success
func (h *Handler) SubmitChallenge(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	challengeID := chi.URLParam(r, "challengeID")

	var req struct {
		Answer string `json:"answer"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	result, err := h.engine.SubmitChallenge(r.Context(), h.actor(r), sessionID, challengeID, req.Answer)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.writeSuccess(w, result)
}

// GetHint sells the caller a hint
func (h *Handler) GetHint(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req struct {
		ChallengeID string `json:"challenge_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	result, err := h.engine.GetHint(r.Context(), h.actor(r), sessionID, req.ChallengeID)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.writeSuccess(w, result)
}

// UseLifeline spends one charge of a lifeline kind
func (h *Handler) UseLifeline(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req struct {
		Kind           string `json:"kind"`
		TargetPlayerID string `json:"target_player_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	result, err := h.engine.UseLifeline(r.Context(), h.actor(r), sessionID, domain.LifelineKind(req.Kind), req.TargetPlayerID)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.writeSuccess(w, result)
}

// SabotagePlayer spends a sabotage charge against a target
func (h *Handler) SabotagePlayer(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req struct {
		TargetPlayerID string `json:"target_player_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	result, err := h.engine.SabotagePlayer(r.Context(), h.actor(r), sessionID, req.TargetPlayerID)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.writeSuccess(w, result)
}

// GetPlayerDetails returns another player's profile, record, and
// recent actions
func (h *Handler) GetPlayerDetails(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	playerID := chi.URLParam(r, "playerID")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	details, err := h.engine.GetPlayerDetails(r.Context(), sessionID, playerID, limit)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.writeSuccess(w, details)
}

// GetTopPlayersDetails returns detailed stats for the top-ranked
// players
func (h *Handler) GetTopPlayersDetails(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	n, _ := strconv.Atoi(r.URL.Query().Get("n"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	details, err := h.engine.GetTopPlayersDetails(r.Context(), sessionID, n, limit)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.writeSuccess(w, details)
}

// ListSessions returns every session, newest first
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.engine.ListSessions(r.Context(), h.actor(r))
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.writeSuccess(w, sessions)
}

// CreateSession opens a new game session
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	session, err := h.engine.CreateSession(r.Context(), h.actor(r), req.Name)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, APIResponse{Success: true, Data: session})
}

// AdvanceRound moves the session to its next round
func (h *Handler) AdvanceRound(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	session, err := h.engine.AdvanceRound(r.Context(), h.actor(r), sessionID)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.writeSuccess(w, session)
}

// DeactivateSession ends a session
func (h *Handler) DeactivateSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	if err := h.engine.DeactivateSession(r.Context(), h.actor(r), sessionID); err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.writeSuccess(w, map[string]string{"session_id": sessionID, "status": "deactivated"})
}

// CreateChallenge registers a new challenge in a session
func (h *Handler) CreateChallenge(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Round       string `json:"round"`
		Points      int    `json:"points"`
		Solution    string `json:"solution"`
		Hint        string `json:"hint"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	challenge := &domain.Challenge{
		SessionID:   sessionID,
		Title:       req.Title,
		Description: req.Description,
		Round:       domain.Round(req.Round),
		Points:      req.Points,
		Solution:    req.Solution,
		Hint:        req.Hint,
	}
	created, err := h.engine.CreateChallenge(r.Context(), h.actor(r), challenge)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, APIResponse{Success: true, Data: created})
}

// GrantLifelines tops up a player's lifeline charges
func (h *Handler) GrantLifelines(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	playerID := chi.URLParam(r, "playerID")

	var req struct {
		Kind  string `json:"kind"`
		Count int    `json:"count"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	remaining, err := h.engine.GrantLifelines(r.Context(), h.actor(r), sessionID, playerID, domain.LifelineKind(req.Kind), req.Count)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.writeSuccess(w, map[string]interface{}{"kind": req.Kind, "remaining": remaining})
}
