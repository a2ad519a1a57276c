package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pbxops/acdboard/internal/auth"
	"github.com/pbxops/acdboard/internal/storage"
	"github.com/pbxops/acdboard/internal/types"
	"github.com/rs/zerolog"
)

// RequireAdmin allows only the admin role through.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := auth.GetUserFromContext(r.Context())
		if !ok || !auth.HasRole(claims, "admin") {
			w.Header().Set("Content-Type", "application/json")
			http.Error(w, `{"error":"admin role required"}`, http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// HistoryHandler provides REST endpoints for persisted history data
type HistoryHandler struct {
	store  storage.Store
	logger zerolog.Logger
}

// NewHistoryHandler creates a new HistoryHandler
func NewHistoryHandler(store storage.Store, logger zerolog.Logger) *HistoryHandler {
	return &HistoryHandler{
		store:  store,
		logger: logger.With().Str("component", "history_handler").Logger(),
	}
}

// GetStateChanges returns the persisted state transitions of one agent
// GET /api/history/agents/{agentKey}
func (h *HistoryHandler) GetStateChanges(w http.ResponseWriter, r *http.Request) {
	agentKey := chi.URLParam(r, "agentKey")
	if agentKey == "" {
		http.Error(w, "agentKey is required", http.StatusBadRequest)
		return
	}

	records, err := h.store.GetStateChanges(r.Context(), agentKey)
	if err != nil {
		h.logger.Error().Err(err).Str("agent_key", agentKey).Msg("failed to get state changes")
		http.Error(w, "failed to retrieve history", http.StatusInternalServerError)
		return
	}

	if records == nil {
		records = []types.StateChangeRecord{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(records)
}

// GetCalls returns completed calls for a date
// GET /api/history/calls?date=YYYY-MM-DD
func (h *HistoryHandler) GetCalls(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		http.Error(w, "date query parameter is required (YYYY-MM-DD)", http.StatusBadRequest)
		return
	}

	records, err := h.store.GetCallRecords(r.Context(), date)
	if err != nil {
		h.logger.Error().Err(err).Str("date", date).Msg("failed to get call records")
		http.Error(w, "failed to retrieve calls", http.StatusInternalServerError)
		return
	}

	if records == nil {
		records = []types.CallRecord{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(records)
}

// GetUserCalls returns completed calls of one user on a specific date
// GET /api/history/users/{userUuid}/calls?date=YYYY-MM-DD
func (h *HistoryHandler) GetUserCalls(w http.ResponseWriter, r *http.Request) {
	userUUID := chi.URLParam(r, "userUuid")
	if userUUID == "" {
		http.Error(w, "userUuid is required", http.StatusBadRequest)
		return
	}

	date := r.URL.Query().Get("date")
	if date == "" {
		http.Error(w, "date query parameter is required (YYYY-MM-DD)", http.StatusBadRequest)
		return
	}

	records, err := h.store.GetUserCallsByDate(r.Context(), userUUID, date)
	if err != nil {
		h.logger.Error().Err(err).
			Str("user_uuid", userUUID).
			Str("date", date).
			Msg("failed to get user calls")
		http.Error(w, "failed to retrieve calls", http.StatusInternalServerError)
		return
	}

	if records == nil {
		records = []types.CallRecord{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(records)
}

// Truncate wipes both history tables
// POST /api/admin/history/truncate
func (h *HistoryHandler) Truncate(w http.ResponseWriter, r *http.Request) {
	if err := h.store.TruncateAll(r.Context()); err != nil {
		h.logger.Error().Err(err).Msg("failed to truncate history")
		http.Error(w, "failed to truncate history", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "truncated"})
}
