package models

import "time"

// User represents a user in the system
type User struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Token     string    `json:"token"`
	PushToken *string   `json:"push_token,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// GrowthLedger is a user's tree record. Every user owns exactly one;
// it is created with defaults the first time any operation touches it.
type GrowthLedger struct {
	UserID       string    `json:"user_id"`
	Level        int       `json:"level"`
	Fed          int       `json:"fed"`
	Pending      int       `json:"pending"`
	GiftReceived int       `json:"gift_received"`
	GiftDate     string    `json:"gift_date"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// DailyTask tracks completion and claim state for one task on one day.
// Reward is frozen at completion time so later registry changes do not
// retroactively change what a user earns.
type DailyTask struct {
	UserID    string `json:"user_id"`
	Day       string `json:"day"` // YYYY-MM-DD
	TaskID    string `json:"task_id"`
	Completed bool   `json:"completed"`
	Claimed   bool   `json:"claimed"`
	Reward    int    `json:"reward"`
}

// FriendEdge is one side of a friendship, stored on the owner's side and
// describing the counterpart. PendingFromFriend is incremented only by the
// counterpart's gift and decremented only by the owner's claim.
type FriendEdge struct {
	OwnerID            string     `json:"owner_id"`
	FriendID           string     `json:"friend_id"`
	UniqueID           string     `json:"unique_id"`
	TreeLevel          int        `json:"tree_level"`
	PendingFromFriend  int        `json:"pending_from_friend"`
	LastGiftToFriend   *time.Time `json:"last_gift_to_friend,omitempty"`
	LastGiftFromFriend *time.Time `json:"last_gift_from_friend,omitempty"`
}

// Friend request statuses
const (
	RequestPending  = "pending"
	RequestAccepted = "accepted"
	RequestRejected = "rejected"
)

// FriendRequest represents a friend request between two users
type FriendRequest struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"sender_id"`
	ReceiverID string    `json:"receiver_id"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}
