package services

import (
	"context"
	"fmt"
	"time"

	"tree-growth-backend/internal/models"
	"tree-growth-backend/internal/repository"

	"github.com/google/uuid"
)

// FriendService manages friend requests and the friend-edge lifecycle.
// Edges are written once per side; the two writes of an accept are
// deliberately separate (each side owns its own document).
type FriendService struct {
	friendRepo *repository.FriendRepository
	userRepo   *repository.UserRepository
}

// NewFriendService creates a new friend service
func NewFriendService(friendRepo *repository.FriendRepository, userRepo *repository.UserRepository) *FriendService {
	return &FriendService{
		friendRepo: friendRepo,
		userRepo:   userRepo,
	}
}

// SendRequest creates a friend request addressed to the owner of code.
func (s *FriendService) SendRequest(ctx context.Context, senderID, code string) (*models.FriendRequest, error) {
	if len(code) != 6 {
		return nil, fmt.Errorf("friend code must be 6 characters")
	}

	receiver, err := s.userRepo.GetByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("friend not found: %w", err)
	}
	if receiver.ID == senderID {
		return nil, fmt.Errorf("cannot befriend yourself")
	}

	exists, err := s.friendRepo.EdgeExists(ctx, senderID, receiver.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check friendship: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("already friends")
	}

	pending, err := s.friendRepo.PendingRequestExists(ctx, senderID, receiver.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check pending request: %w", err)
	}
	if pending {
		return nil, fmt.Errorf("request already pending")
	}

	req := &models.FriendRequest{
		ID:         uuid.New().String(),
		SenderID:   senderID,
		ReceiverID: receiver.ID,
		Status:     models.RequestPending,
		CreatedAt:  time.Now(),
	}
	if err := s.friendRepo.CreateRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("failed to create friend request: %w", err)
	}
	return req, nil
}

// AcceptRequest accepts a request addressed to userID and writes a friend
// edge on both sides.
func (s *FriendService) AcceptRequest(ctx context.Context, userID, requestID string) (*models.FriendRequest, error) {
	req, err := s.friendRepo.GetRequestByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("request not found: %w", err)
	}
	if req.ReceiverID != userID {
		return nil, fmt.Errorf("user is not the receiver of this request")
	}
	if req.Status != models.RequestPending {
		return nil, fmt.Errorf("request is not pending")
	}

	sender, err := s.userRepo.GetByID(ctx, req.SenderID)
	if err != nil {
		return nil, fmt.Errorf("sender not found: %w", err)
	}
	receiver, err := s.userRepo.GetByID(ctx, req.ReceiverID)
	if err != nil {
		return nil, fmt.Errorf("receiver not found: %w", err)
	}

	if err := s.friendRepo.UpdateRequestStatus(ctx, req.ID, models.RequestAccepted); err != nil {
		return nil, fmt.Errorf("failed to accept request: %w", err)
	}
	req.Status = models.RequestAccepted

	// One edge per side, separate writes. The display name mirrors the
	// counterpart's friend code; tree_level is a best-effort mirror that
	// later reads refresh.
	receiverEdge := &models.FriendEdge{
		OwnerID:   receiver.ID,
		FriendID:  sender.ID,
		UniqueID:  sender.Code,
		TreeLevel: 1,
	}
	if err := s.friendRepo.UpsertEdge(ctx, receiverEdge); err != nil {
		return nil, fmt.Errorf("failed to create friend edge: %w", err)
	}
	senderEdge := &models.FriendEdge{
		OwnerID:   sender.ID,
		FriendID:  receiver.ID,
		UniqueID:  receiver.Code,
		TreeLevel: 1,
	}
	if err := s.friendRepo.UpsertEdge(ctx, senderEdge); err != nil {
		return nil, fmt.Errorf("failed to create friend edge: %w", err)
	}

	return req, nil
}

// RejectRequest rejects a request addressed to userID.
func (s *FriendService) RejectRequest(ctx context.Context, userID, requestID string) error {
	req, err := s.friendRepo.GetRequestByID(ctx, requestID)
	if err != nil {
		return fmt.Errorf("request not found: %w", err)
	}
	if req.ReceiverID != userID {
		return fmt.Errorf("user is not the receiver of this request")
	}
	if req.Status != models.RequestPending {
		return fmt.Errorf("request is not pending")
	}
	return s.friendRepo.UpdateRequestStatus(ctx, req.ID, models.RequestRejected)
}

// RemoveFriend deletes the friendship from both sides.
func (s *FriendService) RemoveFriend(ctx context.Context, userID, friendID string) error {
	exists, err := s.friendRepo.EdgeExists(ctx, userID, friendID)
	if err != nil {
		return fmt.Errorf("failed to check friendship: %w", err)
	}
	if !exists {
		return fmt.Errorf("friend not found: %w", repository.ErrNotFound)
	}

	if err := s.friendRepo.DeleteEdge(ctx, userID, friendID); err != nil {
		return fmt.Errorf("failed to remove friend: %w", err)
	}
	if err := s.friendRepo.DeleteEdge(ctx, friendID, userID); err != nil {
		return fmt.Errorf("failed to remove friend: %w", err)
	}
	return nil
}

// ListFriends returns the user's friend edges.
func (s *FriendService) ListFriends(ctx context.Context, userID string) ([]models.FriendEdge, error) {
	return s.friendRepo.ListByOwner(ctx, userID)
}

// ListRequests returns open requests addressed to the user.
func (s *FriendService) ListRequests(ctx context.Context, userID string) ([]models.FriendRequest, error) {
	return s.friendRepo.ListPendingFor(ctx, userID)
}
