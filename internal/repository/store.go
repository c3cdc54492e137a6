package repository

import (
	"context"
	"errors"
	"time"

	"tree-growth-backend/internal/models"
)

// ErrNotFound is returned by point lookups when no row exists.
var ErrNotFound = errors.New("not found")

// ErrTxRetryExhausted is returned by RunTx when the store kept aborting the
// transaction for conflicts. The transaction had no effect; callers may
// surface it to the user as a transient failure.
var ErrTxRetryExhausted = errors.New("transaction retries exhausted")

// Store runs atomic read-then-write transactions over the growth documents.
//
// fn must perform all reads before any write and must be free of side
// effects outside the transaction: on conflict the store discards the
// attempt and calls fn again against a fresh snapshot. Returning an error
// from fn rolls the transaction back and returns that error unchanged.
type Store interface {
	RunTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the handle passed to a transaction body.
//
// AddPendingGift is the one write that deliberately breaks the
// read-modify-write pattern: it is an increment-only statement against the
// receiver's edge, issued without ever reading the receiver's row, so a
// popular user's documents never serialize other users' sends.
type Tx interface {
	// GetLedger returns (nil, nil) when the user has no ledger row yet.
	GetLedger(ctx context.Context, userID string) (*models.GrowthLedger, error)
	PutLedger(ctx context.Context, ledger *models.GrowthLedger) error

	// GetDailyTask returns (nil, nil) when no record exists for the key.
	GetDailyTask(ctx context.Context, userID, day, taskID string) (*models.DailyTask, error)
	PutDailyTask(ctx context.Context, task *models.DailyTask) error
	ListDailyTasks(ctx context.Context, userID, day string) ([]models.DailyTask, error)

	// GetFriendEdge returns ErrNotFound when the owner has no edge to friend.
	GetFriendEdge(ctx context.Context, ownerID, friendID string) (*models.FriendEdge, error)
	// MarkGiftSent stamps last_gift_to_friend on the owner's own edge.
	MarkGiftSent(ctx context.Context, ownerID, friendID string, at time.Time) error
	// AddPendingGift blind-increments pending_from_friend on the edge owned
	// by ownerID pointing at friendID and stamps last_gift_from_friend.
	AddPendingGift(ctx context.Context, ownerID, friendID string, amount int, at time.Time) error
	// SetPendingGift overwrites pending_from_friend after a claim.
	SetPendingGift(ctx context.Context, ownerID, friendID string, pending int) error
}

// NewLedger returns the default ledger for a user that has never been
// touched before.
func NewLedger(userID string, now time.Time) *models.GrowthLedger {
	return &models.GrowthLedger{
		UserID:    userID,
		Level:     1,
		UpdatedAt: now,
	}
}
