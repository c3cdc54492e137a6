package services

import (
	"context"
	"time"

	"tree-growth-backend/internal/models"
	"tree-growth-backend/internal/repository"

	"github.com/rs/zerolog/log"
)

const (
	// GiftUnit is the fixed amount one gift transfers.
	GiftUnit = 5
	// DailyClaimLimit caps the gift points a user may absorb per day
	// across all friends.
	DailyClaimLimit = 50
)

// FriendEdgeLister lists a user's friend edges outside the transactional
// path. Implemented by repository.FriendRepository and repository.MemStore.
type FriendEdgeLister interface {
	ListByOwner(ctx context.Context, ownerID string) ([]models.FriendEdge, error)
}

// GiftingService moves points between friends. Each single-pair operation
// is one transaction that reads documents on one side only: a send never
// reads the receiver's edge, it blind-increments it. That keeps a popular
// user's documents out of everyone else's read sets.
type GiftingService struct {
	store   repository.Store
	friends FriendEdgeLister
	loc     *time.Location
	now     func() time.Time
}

// NewGiftingService creates a new gifting service
func NewGiftingService(store repository.Store, friends FriendEdgeLister, loc *time.Location) *GiftingService {
	return &GiftingService{
		store:   store,
		friends: friends,
		loc:     loc,
		now:     time.Now,
	}
}

// GiftToFriend sends one gift unit from sender to receiver. Returns false
// when the sender already gifted this friend today. A missing friend edge
// is a precondition violation and comes back as an error.
func (s *GiftingService) GiftToFriend(ctx context.Context, senderID, receiverID string) (bool, error) {
	sent := false
	err := s.store.RunTx(ctx, func(tx repository.Tx) error {
		sent = false
		now := s.now()
		today := DayKey(now, s.loc)

		edge, err := tx.GetFriendEdge(ctx, senderID, receiverID)
		if err != nil {
			return err
		}
		if edge.LastGiftToFriend != nil && DayKey(*edge.LastGiftToFriend, s.loc) == today {
			return nil
		}

		if err := tx.AddPendingGift(ctx, receiverID, senderID, GiftUnit, now); err != nil {
			return err
		}
		if err := tx.MarkGiftSent(ctx, senderID, receiverID, now); err != nil {
			return err
		}
		sent = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if sent {
		log.Info().
			Str("sender_id", senderID).
			Str("receiver_id", receiverID).
			Int("amount", GiftUnit).
			Msg("Gift sent")
	}
	return sent, nil
}

// ClaimFromFriend absorbs points the sender left on the receiver's edge,
// capped by the remaining daily quota. The credited amount goes straight
// to fed, bypassing the pending/feed step. Returns 0 when nothing is
// pending or the quota is spent.
func (s *GiftingService) ClaimFromFriend(ctx context.Context, receiverID, senderID string) (int, error) {
	take := 0
	err := s.store.RunTx(ctx, func(tx repository.Tx) error {
		take = 0
		now := s.now()
		today := DayKey(now, s.loc)

		ledger, err := tx.GetLedger(ctx, receiverID)
		if err != nil {
			return err
		}
		edge, err := tx.GetFriendEdge(ctx, receiverID, senderID)
		if err != nil {
			return err
		}

		if ledger == nil {
			ledger = repository.NewLedger(receiverID, now)
		}
		received := ledger.GiftReceived
		if ledger.GiftDate != today {
			received = 0
		}

		take = edge.PendingFromFriend
		if remaining := DailyClaimLimit - received; take > remaining {
			take = remaining
		}
		if take <= 0 {
			take = 0
			return nil
		}

		ledger.Fed = satAdd(ledger.Fed, take)
		ledger.GiftReceived = received + take
		ledger.GiftDate = today
		ledger.UpdatedAt = now

		if err := tx.PutLedger(ctx, ledger); err != nil {
			return err
		}
		return tx.SetPendingGift(ctx, receiverID, senderID, edge.PendingFromFriend-take)
	})
	if err != nil {
		return 0, err
	}
	if take > 0 {
		log.Info().
			Str("receiver_id", receiverID).
			Str("sender_id", senderID).
			Int("amount", take).
			Msg("Gift claimed")
	}
	return take, nil
}

// BatchResult summarizes a giftAll/claimAll sweep.
type BatchResult struct {
	Sent    int `json:"sent,omitempty"`
	Claimed int `json:"claimed,omitempty"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// GiftAll sends a gift to every friend not yet gifted today. Individual
// failures are counted, not propagated.
func (s *GiftingService) GiftAll(ctx context.Context, userID string) (BatchResult, error) {
	edges, err := s.friends.ListByOwner(ctx, userID)
	if err != nil {
		return BatchResult{}, err
	}

	var res BatchResult
	for _, edge := range edges {
		sent, err := s.GiftToFriend(ctx, userID, edge.FriendID)
		switch {
		case err != nil:
			res.Failed++
			log.Error().
				Err(err).
				Str("sender_id", userID).
				Str("receiver_id", edge.FriendID).
				Msg("Failed to send gift")
		case sent:
			res.Sent++
		default:
			res.Skipped++
		}
	}
	return res, nil
}

// ClaimAll claims pending gifts friend by friend until the daily cap is
// reached. Returns the total credited.
func (s *GiftingService) ClaimAll(ctx context.Context, userID string) (int, BatchResult, error) {
	edges, err := s.friends.ListByOwner(ctx, userID)
	if err != nil {
		return 0, BatchResult{}, err
	}

	total := 0
	var res BatchResult
	for _, edge := range edges {
		if edge.PendingFromFriend <= 0 {
			res.Skipped++
			continue
		}
		take, err := s.ClaimFromFriend(ctx, userID, edge.FriendID)
		if err != nil {
			res.Failed++
			log.Error().
				Err(err).
				Str("receiver_id", userID).
				Str("sender_id", edge.FriendID).
				Msg("Failed to claim gift")
			continue
		}
		if take == 0 {
			// Pending was positive, so the daily cap is spent.
			break
		}
		total += take
		res.Claimed++
	}
	return total, res, nil
}
