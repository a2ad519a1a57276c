package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/pbxops/acdboard/internal/actions"
	"github.com/pbxops/acdboard/internal/platform"
	"github.com/pbxops/acdboard/internal/types"
	"github.com/rs/zerolog"
)

// IntentsHandler exposes supervisor intents over REST. The store is already
// patched optimistically by the time a response goes out, so handlers answer
// with the outcome of the platform call alone.
type IntentsHandler struct {
	dispatcher *actions.Dispatcher
	reload     actions.ReloadFunc
	logger     zerolog.Logger
}

// NewIntentsHandler creates a new IntentsHandler
func NewIntentsHandler(dispatcher *actions.Dispatcher, reload actions.ReloadFunc, logger zerolog.Logger) *IntentsHandler {
	return &IntentsHandler{
		dispatcher: dispatcher,
		reload:     reload,
		logger:     logger.With().Str("component", "intents").Logger(),
	}
}

// writeError maps the failure taxonomy onto HTTP statuses and an
// operator-facing message.
func (h *IntentsHandler) writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case errors.Is(err, actions.ErrUnknownAgent):
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "unknown agent"})
	case errors.Is(err, platform.ErrTokenExpired):
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"error": "platform session expired, reconnect required"})
	case errors.Is(err, platform.ErrPermission):
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(map[string]string{"error": "action refused, check permissions"})
	default:
		w.WriteHeader(http.StatusBadGateway)
		json.NewEncoder(w).Encode(map[string]string{"error": "platform call failed"})
	}
}

func writeOK(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func agentID(r *http.Request) (int, error) {
	return strconv.Atoi(chi.URLParam(r, "agentId"))
}

// SetPaused handles POST /api/agents/{agentId}/pause
func (h *IntentsHandler) SetPaused(w http.ResponseWriter, r *http.Request) {
	id, err := agentID(r)
	if err != nil {
		http.Error(w, "agentId must be numeric", http.StatusBadRequest)
		return
	}
	var body struct {
		Paused bool `json:"paused"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	if err := h.dispatcher.SetPaused(r.Context(), id, body.Paused); err != nil {
		h.logger.Warn().Err(err).Int("agent_id", id).Bool("paused", body.Paused).Msg("pause intent failed")
		h.writeError(w, err)
		return
	}
	writeOK(w)
}

// Login handles POST /api/agents/{agentId}/login
func (h *IntentsHandler) Login(w http.ResponseWriter, r *http.Request) {
	id, err := agentID(r)
	if err != nil {
		http.Error(w, "agentId must be numeric", http.StatusBadRequest)
		return
	}
	if err := h.dispatcher.Login(r.Context(), id); err != nil {
		h.logger.Warn().Err(err).Int("agent_id", id).Msg("login intent failed")
		h.writeError(w, err)
		return
	}
	writeOK(w)
}

// Logout handles POST /api/agents/{agentId}/logout
func (h *IntentsHandler) Logout(w http.ResponseWriter, r *http.Request) {
	id, err := agentID(r)
	if err != nil {
		http.Error(w, "agentId must be numeric", http.StatusBadRequest)
		return
	}
	if err := h.dispatcher.Logout(r.Context(), id); err != nil {
		h.logger.Warn().Err(err).Int("agent_id", id).Msg("logout intent failed")
		h.writeError(w, err)
		return
	}
	writeOK(w)
}

// MoveQueue handles POST /api/agents/{agentId}/move
func (h *IntentsHandler) MoveQueue(w http.ResponseWriter, r *http.Request) {
	id, err := agentID(r)
	if err != nil {
		http.Error(w, "agentId must be numeric", http.StatusBadRequest)
		return
	}
	var body struct {
		FromQueueID int `json:"fromQueueId"`
		ToQueueID   int `json:"toQueueId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	if err := h.dispatcher.MoveQueue(r.Context(), id, body.FromQueueID, body.ToQueueID); err != nil {
		h.logger.Warn().Err(err).
			Int("agent_id", id).
			Int("from", body.FromQueueID).
			Int("to", body.ToQueueID).
			Msg("move intent failed")
		h.writeError(w, err)
		return
	}
	writeOK(w)
}

// Supervise handles POST /api/agents/{agentId}/supervise
func (h *IntentsHandler) Supervise(w http.ResponseWriter, r *http.Request) {
	id, err := agentID(r)
	if err != nil {
		http.Error(w, "agentId must be numeric", http.StatusBadRequest)
		return
	}
	var body struct {
		Mode string `json:"mode"` // "listen", "whisper", "barge"
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	if err := h.dispatcher.Supervise(r.Context(), body.Mode, id); err != nil {
		h.logger.Warn().Err(err).Int("agent_id", id).Str("mode", body.Mode).Msg("supervise intent failed")
		h.writeError(w, err)
		return
	}
	writeOK(w)
}

// SetDND handles PUT /api/users/{userUuid}/dnd
func (h *IntentsHandler) SetDND(w http.ResponseWriter, r *http.Request) {
	userUUID := chi.URLParam(r, "userUuid")
	if userUUID == "" {
		http.Error(w, "userUuid is required", http.StatusBadRequest)
		return
	}
	var body struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	if err := h.dispatcher.SetDND(r.Context(), userUUID, body.Enabled); err != nil {
		h.logger.Warn().Err(err).Str("user_uuid", userUUID).Msg("dnd intent failed")
		h.writeError(w, err)
		return
	}
	writeOK(w)
}

// SetForward handles PUT /api/users/{userUuid}/forward
func (h *IntentsHandler) SetForward(w http.ResponseWriter, r *http.Request) {
	userUUID := chi.URLParam(r, "userUuid")
	if userUUID == "" {
		http.Error(w, "userUuid is required", http.StatusBadRequest)
		return
	}
	var body types.ForwardSetting
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	if err := h.dispatcher.SetForward(r.Context(), userUUID, body); err != nil {
		h.logger.Warn().Err(err).Str("user_uuid", userUUID).Msg("forward intent failed")
		h.writeError(w, err)
		return
	}
	writeOK(w)
}

// Refresh handles POST /api/refresh, forcing a full reload
func (h *IntentsHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.reload(r.Context()); err != nil {
		h.logger.Error().Err(err).Msg("manual refresh failed")
		h.writeError(w, err)
		return
	}
	writeOK(w)
}
