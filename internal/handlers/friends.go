package handlers

import (
	"encoding/json"
	"net/http"

	"tree-growth-backend/internal/middleware"
	"tree-growth-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// FriendHandler handles friendship HTTP requests
type FriendHandler struct {
	friendService *services.FriendService
	userService   *services.UserService
	wsHub         *services.WSHub
	push          *services.PushService
}

// NewFriendHandler creates a new friend handler
func NewFriendHandler(
	friendService *services.FriendService,
	userService *services.UserService,
	wsHub *services.WSHub,
	push *services.PushService,
) *FriendHandler {
	return &FriendHandler{
		friendService: friendService,
		userService:   userService,
		wsHub:         wsHub,
		push:          push,
	}
}

// List handles GET /api/v1/friends
func (h *FriendHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	edges, err := h.friendService.ListFriends(ctx, userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to list friends")
		respondError(w, err.Error(), statusForError(err))
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"friends": edges})
}

// SendRequestBody represents the request body for sending a friend request
type SendRequestBody struct {
	Code string `json:"code"`
}

// SendRequest handles POST /api/v1/friends/requests
func (h *FriendHandler) SendRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req SendRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Code == "" {
		respondError(w, "code is required", http.StatusBadRequest)
		return
	}

	request, err := h.friendService.SendRequest(ctx, userID, req.Code)
	if err != nil {
		log.Error().
			Err(err).
			Str("user_id", userID).
			Str("code", req.Code).
			Msg("Failed to send friend request")

		statusCode := statusForError(err)
		if err.Error() == "cannot befriend yourself" ||
			err.Error() == "already friends" ||
			err.Error() == "request already pending" {
			statusCode = http.StatusConflict
		} else if err.Error() == "friend code must be 6 characters" {
			statusCode = http.StatusBadRequest
		}

		respondError(w, err.Error(), statusCode)
		return
	}

	log.Info().
		Str("user_id", userID).
		Str("receiver_id", request.ReceiverID).
		Msg("Friend request sent")

	respondJSON(w, http.StatusOK, request)
}

// ListRequests handles GET /api/v1/friends/requests
func (h *FriendHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	requests, err := h.friendService.ListRequests(ctx, userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to list friend requests")
		respondError(w, err.Error(), statusForError(err))
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"requests": requests})
}

// AcceptRequest handles POST /api/v1/friends/requests/{request_id}/accept
func (h *FriendHandler) AcceptRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	requestID := chi.URLParam(r, "request_id")

	request, err := h.friendService.AcceptRequest(ctx, userID, requestID)
	if err != nil {
		log.Error().
			Err(err).
			Str("user_id", userID).
			Str("request_id", requestID).
			Msg("Failed to accept friend request")

		statusCode := statusForError(err)
		if err.Error() == "user is not the receiver of this request" {
			statusCode = http.StatusForbidden
		} else if err.Error() == "request is not pending" {
			statusCode = http.StatusConflict
		}

		respondError(w, err.Error(), statusCode)
		return
	}

	log.Info().
		Str("user_id", userID).
		Str("friend_id", request.SenderID).
		Msg("Friend request accepted")

	// Tell the sender, online or off. Best effort.
	if h.wsHub.IsOnline(request.SenderID) {
		h.wsHub.NotifyFriendAccepted(request.SenderID, userID)
	} else if sender, err := h.userService.GetUser(ctx, request.SenderID); err == nil && sender.PushToken != nil {
		if accepter, err := h.userService.GetUser(ctx, userID); err == nil {
			h.push.SendFriendAccepted(*sender.PushToken, accepter.Code)
		}
	}

	respondJSON(w, http.StatusOK, request)
}

// RejectRequest handles POST /api/v1/friends/requests/{request_id}/reject
func (h *FriendHandler) RejectRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	requestID := chi.URLParam(r, "request_id")

	if err := h.friendService.RejectRequest(ctx, userID, requestID); err != nil {
		log.Error().
			Err(err).
			Str("user_id", userID).
			Str("request_id", requestID).
			Msg("Failed to reject friend request")

		statusCode := statusForError(err)
		if err.Error() == "user is not the receiver of this request" {
			statusCode = http.StatusForbidden
		} else if err.Error() == "request is not pending" {
			statusCode = http.StatusConflict
		}

		respondError(w, err.Error(), statusCode)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Remove handles DELETE /api/v1/friends/{friend_id}
func (h *FriendHandler) Remove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	friendID := chi.URLParam(r, "friend_id")

	if friendID == "" {
		respondError(w, "friend_id is required", http.StatusBadRequest)
		return
	}

	if err := h.friendService.RemoveFriend(ctx, userID, friendID); err != nil {
		log.Error().
			Err(err).
			Str("user_id", userID).
			Str("friend_id", friendID).
			Msg("Failed to remove friend")
		respondError(w, err.Error(), statusForError(err))
		return
	}

	log.Info().
		Str("user_id", userID).
		Str("friend_id", friendID).
		Msg("Friend removed")

	if h.wsHub.IsOnline(friendID) {
		h.wsHub.NotifyFriendRemoved(friendID, userID)
	}

	w.WriteHeader(http.StatusNoContent)
}
