package handlers

import (
	"net/http"

	"tree-growth-backend/internal/middleware"
	"tree-growth-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// GrowthHandler handles tree ledger HTTP requests
type GrowthHandler struct {
	growth *services.GrowthService
}

// NewGrowthHandler creates a new growth handler
func NewGrowthHandler(growth *services.GrowthService) *GrowthHandler {
	return &GrowthHandler{
		growth: growth,
	}
}

// GetTree handles GET /api/v1/tree
func (h *GrowthHandler) GetTree(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	ledger, err := h.growth.Tree(ctx, userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to get tree")
		respondError(w, err.Error(), statusForError(err))
		return
	}

	respondJSON(w, http.StatusOK, ledger)
}

// FeedResponse represents the result of a feed
type FeedResponse struct {
	Fed int `json:"fed"`
}

// Feed handles POST /api/v1/tree/feed
func (h *GrowthHandler) Feed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	moved, err := h.growth.FeedAll(ctx, userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to feed tree")
		respondError(w, err.Error(), statusForError(err))
		return
	}

	respondJSON(w, http.StatusOK, FeedResponse{Fed: moved})
}

// Upgrade handles POST /api/v1/tree/upgrade
func (h *GrowthHandler) Upgrade(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	upgraded, err := h.growth.Upgrade(ctx, userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to upgrade tree")
		respondError(w, err.Error(), statusForError(err))
		return
	}
	if !upgraded {
		respondError(w, "not enough fed points to upgrade", http.StatusConflict)
		return
	}

	ledger, err := h.growth.Tree(ctx, userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to get tree")
		respondError(w, err.Error(), statusForError(err))
		return
	}

	respondJSON(w, http.StatusOK, ledger)
}

// ForceLevelUp handles POST /api/v1/tree/level/force
func (h *GrowthHandler) ForceLevelUp(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	if err := h.growth.ForceLevelUp(ctx, userID); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to force level up")
		respondError(w, err.Error(), statusForError(err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ResetLevel handles POST /api/v1/tree/level/reset
func (h *GrowthHandler) ResetLevel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	if err := h.growth.ResetLevel0(ctx, userID); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to reset level")
		respondError(w, err.Error(), statusForError(err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
