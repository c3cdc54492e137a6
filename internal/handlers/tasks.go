package handlers

import (
	"net/http"
	"regexp"

	"tree-growth-backend/internal/middleware"
	"tree-growth-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

var dayPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// TaskHandler handles daily task HTTP requests
type TaskHandler struct {
	tracker *services.TrackerService
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(tracker *services.TrackerService) *TaskHandler {
	return &TaskHandler{
		tracker: tracker,
	}
}

// day resolves the requested day, defaulting to today.
func (h *TaskHandler) day(r *http.Request) (string, bool) {
	day := r.URL.Query().Get("date")
	if day == "" {
		return h.tracker.Today(), true
	}
	if !dayPattern.MatchString(day) {
		return "", false
	}
	return day, true
}

// ListDay handles GET /api/v1/tasks
func (h *TaskHandler) ListDay(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	day, ok := h.day(r)
	if !ok {
		respondError(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	statuses, err := h.tracker.DayStatus(ctx, userID, day)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("day", day).Msg("Failed to list tasks")
		respondError(w, err.Error(), statusForError(err))
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"date":  day,
		"tasks": statuses,
	})
}

// Complete handles POST /api/v1/tasks/{task_id}/complete
func (h *TaskHandler) Complete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	taskID := chi.URLParam(r, "task_id")

	if err := h.tracker.MarkCompleted(ctx, userID, h.tracker.Today(), taskID); err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("task_id", taskID).Msg("Failed to complete task")

		statusCode := statusForError(err)
		if err.Error() == `unknown task "`+taskID+`"` {
			statusCode = http.StatusNotFound
		}
		respondError(w, err.Error(), statusCode)
		return
	}

	log.Info().Str("user_id", userID).Str("task_id", taskID).Msg("Task completed")
	w.WriteHeader(http.StatusNoContent)
}

// ClaimResponse represents the result of a claim
type ClaimResponse struct {
	Claimed int `json:"claimed"`
}

// Claim handles POST /api/v1/tasks/{task_id}/claim
func (h *TaskHandler) Claim(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	taskID := chi.URLParam(r, "task_id")

	claimed, err := h.tracker.Claim(ctx, userID, h.tracker.Today(), taskID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("task_id", taskID).Msg("Failed to claim task")

		statusCode := statusForError(err)
		if err.Error() == `unknown task "`+taskID+`"` {
			statusCode = http.StatusNotFound
		}
		respondError(w, err.Error(), statusCode)
		return
	}

	if claimed > 0 {
		log.Info().
			Str("user_id", userID).
			Str("task_id", taskID).
			Int("reward", claimed).
			Msg("Task claimed")
	}

	respondJSON(w, http.StatusOK, ClaimResponse{Claimed: claimed})
}
