package repository

import (
	"context"
	"fmt"

	"tree-growth-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// FriendRepository handles database operations for friend requests and
// friend edges outside the transactional gift path.
type FriendRepository struct {
	db *pgxpool.Pool
}

// NewFriendRepository creates a new friend repository
func NewFriendRepository(db *pgxpool.Pool) *FriendRepository {
	return &FriendRepository{db: db}
}

// CreateRequest creates a new friend request
func (r *FriendRepository) CreateRequest(ctx context.Context, req *models.FriendRequest) error {
	query := `
		INSERT INTO friend_requests (id, sender_id, receiver_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.Exec(ctx, query, req.ID, req.SenderID, req.ReceiverID, req.Status, req.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create friend request: %w", err)
	}
	return nil
}

// GetRequestByID retrieves a friend request by ID
func (r *FriendRepository) GetRequestByID(ctx context.Context, id string) (*models.FriendRequest, error) {
	query := `
		SELECT id, sender_id, receiver_id, status, created_at
		FROM friend_requests
		WHERE id = $1
	`
	var req models.FriendRequest
	err := r.db.QueryRow(ctx, query, id).Scan(
		&req.ID, &req.SenderID, &req.ReceiverID, &req.Status, &req.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("friend request not found: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get friend request: %w", err)
	}
	return &req, nil
}

// PendingRequestExists checks for an open request in either direction.
func (r *FriendRepository) PendingRequestExists(ctx context.Context, userA, userB string) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM friend_requests
			WHERE status = 'pending'
			  AND ((sender_id = $1 AND receiver_id = $2) OR (sender_id = $2 AND receiver_id = $1))
		)
	`
	var exists bool
	err := r.db.QueryRow(ctx, query, userA, userB).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check pending request: %w", err)
	}
	return exists, nil
}

// UpdateRequestStatus sets the status of a friend request
func (r *FriendRepository) UpdateRequestStatus(ctx context.Context, id, status string) error {
	query := `UPDATE friend_requests SET status = $1 WHERE id = $2`
	result, err := r.db.Exec(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("failed to update friend request: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("friend request not found: %w", ErrNotFound)
	}
	return nil
}

// ListPendingFor lists open requests addressed to a user
func (r *FriendRepository) ListPendingFor(ctx context.Context, userID string) ([]models.FriendRequest, error) {
	query := `
		SELECT id, sender_id, receiver_id, status, created_at
		FROM friend_requests
		WHERE receiver_id = $1 AND status = 'pending'
		ORDER BY created_at
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list friend requests: %w", err)
	}
	defer rows.Close()

	var out []models.FriendRequest
	for rows.Next() {
		var req models.FriendRequest
		if err := rows.Scan(&req.ID, &req.SenderID, &req.ReceiverID, &req.Status, &req.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan friend request: %w", err)
		}
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list friend requests: %w", err)
	}
	return out, nil
}

// UpsertEdge writes one side of a friendship. Used when a request is
// accepted; each side is a separate write.
func (r *FriendRepository) UpsertEdge(ctx context.Context, e *models.FriendEdge) error {
	query := `
		INSERT INTO friend_edges (owner_id, friend_id, unique_id, tree_level, pending_from_friend)
		VALUES ($1, $2, $3, $4, 0)
		ON CONFLICT (owner_id, friend_id) DO UPDATE SET
			unique_id = EXCLUDED.unique_id,
			tree_level = EXCLUDED.tree_level
	`
	_, err := r.db.Exec(ctx, query, e.OwnerID, e.FriendID, e.UniqueID, e.TreeLevel)
	if err != nil {
		return fmt.Errorf("failed to upsert friend edge: %w", err)
	}
	return nil
}

// DeleteEdge removes one side of a friendship
func (r *FriendRepository) DeleteEdge(ctx context.Context, ownerID, friendID string) error {
	query := `DELETE FROM friend_edges WHERE owner_id = $1 AND friend_id = $2`
	_, err := r.db.Exec(ctx, query, ownerID, friendID)
	if err != nil {
		return fmt.Errorf("failed to delete friend edge: %w", err)
	}
	return nil
}

// ListByOwner returns all of a user's friend edges ordered by friend id
func (r *FriendRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.FriendEdge, error) {
	query := `
		SELECT owner_id, friend_id, unique_id, tree_level, pending_from_friend,
		       last_gift_to_friend, last_gift_from_friend
		FROM friend_edges
		WHERE owner_id = $1
		ORDER BY friend_id
	`
	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list friend edges: %w", err)
	}
	defer rows.Close()

	var out []models.FriendEdge
	for rows.Next() {
		var e models.FriendEdge
		if err := rows.Scan(
			&e.OwnerID, &e.FriendID, &e.UniqueID, &e.TreeLevel, &e.PendingFromFriend,
			&e.LastGiftToFriend, &e.LastGiftFromFriend,
		); err != nil {
			return nil, fmt.Errorf("failed to scan friend edge: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list friend edges: %w", err)
	}
	return out, nil
}

// EdgeExists checks whether the owner has an edge to friend
func (r *FriendRepository) EdgeExists(ctx context.Context, ownerID, friendID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM friend_edges WHERE owner_id = $1 AND friend_id = $2)`
	var exists bool
	err := r.db.QueryRow(ctx, query, ownerID, friendID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check friend edge: %w", err)
	}
	return exists, nil
}
