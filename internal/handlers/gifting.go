package handlers

import (
	"context"
	"net/http"

	"tree-growth-backend/internal/middleware"
	"tree-growth-backend/internal/services"
	"tree-growth-backend/internal/tasks"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// GiftingHandler handles gift HTTP requests
type GiftingHandler struct {
	gifting     *services.GiftingService
	tracker     *services.TrackerService
	userService *services.UserService
	wsHub       *services.WSHub
	push        *services.PushService
}

// NewGiftingHandler creates a new gifting handler
func NewGiftingHandler(
	gifting *services.GiftingService,
	tracker *services.TrackerService,
	userService *services.UserService,
	wsHub *services.WSHub,
	push *services.PushService,
) *GiftingHandler {
	return &GiftingHandler{
		gifting:     gifting,
		tracker:     tracker,
		userService: userService,
		wsHub:       wsHub,
		push:        push,
	}
}

// Gift handles POST /api/v1/friends/{friend_id}/gift
func (h *GiftingHandler) Gift(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	friendID := chi.URLParam(r, "friend_id")

	sent, err := h.gifting.GiftToFriend(ctx, userID, friendID)
	if err != nil {
		log.Error().
			Err(err).
			Str("sender_id", userID).
			Str("receiver_id", friendID).
			Msg("Failed to send gift")
		respondError(w, err.Error(), statusForError(err))
		return
	}
	if !sent {
		respondError(w, "already gifted this friend today", http.StatusConflict)
		return
	}

	h.afterGiftSent(ctx, userID, friendID)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"sent":   true,
		"amount": services.GiftUnit,
	})
}

// ClaimGift handles POST /api/v1/friends/{friend_id}/claim
func (h *GiftingHandler) ClaimGift(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	friendID := chi.URLParam(r, "friend_id")

	take, err := h.gifting.ClaimFromFriend(ctx, userID, friendID)
	if err != nil {
		log.Error().
			Err(err).
			Str("receiver_id", userID).
			Str("sender_id", friendID).
			Msg("Failed to claim gift")
		respondError(w, err.Error(), statusForError(err))
		return
	}

	if take > 0 {
		h.afterGiftClaimed(ctx, userID, friendID, take)
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"claimed": take})
}

// GiftAll handles POST /api/v1/friends/gift-all
func (h *GiftingHandler) GiftAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	res, err := h.gifting.GiftAll(ctx, userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to gift all friends")
		respondError(w, err.Error(), statusForError(err))
		return
	}

	if res.Sent > 0 {
		h.markTaskDone(ctx, userID, tasks.TaskGiftOnce)
	}

	respondJSON(w, http.StatusOK, res)
}

// ClaimAll handles POST /api/v1/friends/claim-all
func (h *GiftingHandler) ClaimAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	total, res, err := h.gifting.ClaimAll(ctx, userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to claim all gifts")
		respondError(w, err.Error(), statusForError(err))
		return
	}

	if total > 0 {
		h.markTaskDone(ctx, userID, tasks.TaskClaimOnce)
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"claimed": total,
		"summary": res,
	})
}

// afterGiftSent fires the side effects of a successful gift: the sender's
// daily gift task, a realtime event for an online receiver, a push for an
// offline one. All best effort.
func (h *GiftingHandler) afterGiftSent(ctx context.Context, senderID, receiverID string) {
	h.markTaskDone(ctx, senderID, tasks.TaskGiftOnce)

	if h.wsHub.IsOnline(receiverID) {
		h.wsHub.NotifyGiftReceived(receiverID, senderID, services.GiftUnit)
		return
	}

	receiver, err := h.userService.GetUser(ctx, receiverID)
	if err != nil {
		log.Error().Err(err).Str("user_id", receiverID).Msg("Failed to load gift receiver")
		return
	}
	if receiver.PushToken != nil {
		sender, err := h.userService.GetUser(ctx, senderID)
		name := "A friend"
		if err == nil {
			name = sender.Code
		}
		h.push.SendGiftReceived(*receiver.PushToken, name)
	}
}

func (h *GiftingHandler) afterGiftClaimed(ctx context.Context, receiverID, senderID string, amount int) {
	h.markTaskDone(ctx, receiverID, tasks.TaskClaimOnce)
	h.wsHub.NotifyGiftClaimed(senderID, receiverID, amount)
}

// markTaskDone marks a daily task completed without failing the request.
func (h *GiftingHandler) markTaskDone(ctx context.Context, userID, taskID string) {
	if err := h.tracker.MarkCompleted(ctx, userID, h.tracker.Today(), taskID); err != nil {
		log.Error().
			Err(err).
			Str("user_id", userID).
			Str("task_id", taskID).
			Msg("Failed to mark task completed")
	}
}
