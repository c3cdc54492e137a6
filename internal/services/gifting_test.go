package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"tree-growth-backend/internal/models"
	"tree-growth-backend/internal/repository"
)

func newTestGifting() (*GiftingService, *repository.MemStore) {
	store := repository.NewMemStore()
	s := NewGiftingService(store, store, time.UTC)
	s.now = func() time.Time { return testTime }
	return s, store
}

func befriend(store *repository.MemStore, a, b string) {
	store.SeedFriendEdge(models.FriendEdge{OwnerID: a, FriendID: b, TreeLevel: 1})
	store.SeedFriendEdge(models.FriendEdge{OwnerID: b, FriendID: a, TreeLevel: 1})
}

func edgeOf(t *testing.T, store *repository.MemStore, owner, friend string) models.FriendEdge {
	t.Helper()
	var edge *models.FriendEdge
	err := store.RunTx(context.Background(), func(tx repository.Tx) error {
		var err error
		edge, err = tx.GetFriendEdge(context.Background(), owner, friend)
		return err
	})
	if err != nil {
		t.Fatalf("read edge %s->%s: %v", owner, friend, err)
	}
	return *edge
}

func TestGiftOncePerDay(t *testing.T) {
	s, store := newTestGifting()
	ctx := context.Background()
	befriend(store, "alice", "bob")

	sent, err := s.GiftToFriend(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("GiftToFriend: %v", err)
	}
	if !sent {
		t.Fatal("first gift not sent")
	}

	sent, err = s.GiftToFriend(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("second GiftToFriend: %v", err)
	}
	if sent {
		t.Fatal("second gift on same day was sent")
	}

	bobEdge := edgeOf(t, store, "bob", "alice")
	if bobEdge.PendingFromFriend != GiftUnit {
		t.Fatalf("bob's pending from alice = %d, want %d", bobEdge.PendingFromFriend, GiftUnit)
	}
	if bobEdge.LastGiftFromFriend == nil {
		t.Fatal("bob's last_gift_from_friend not stamped")
	}

	aliceEdge := edgeOf(t, store, "alice", "bob")
	if aliceEdge.LastGiftToFriend == nil {
		t.Fatal("alice's last_gift_to_friend not stamped")
	}
}

func TestGiftResetNextDay(t *testing.T) {
	s, store := newTestGifting()
	ctx := context.Background()
	befriend(store, "alice", "bob")

	if sent, _ := s.GiftToFriend(ctx, "alice", "bob"); !sent {
		t.Fatal("first gift not sent")
	}

	s.now = func() time.Time { return testTime.Add(24 * time.Hour) }
	sent, err := s.GiftToFriend(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("next-day GiftToFriend: %v", err)
	}
	if !sent {
		t.Fatal("next-day gift not sent")
	}

	if pending := edgeOf(t, store, "bob", "alice").PendingFromFriend; pending != 2*GiftUnit {
		t.Fatalf("pending = %d, want %d", pending, 2*GiftUnit)
	}
}

func TestGiftWithoutEdge(t *testing.T) {
	s, _ := newTestGifting()

	_, err := s.GiftToFriend(context.Background(), "alice", "stranger")
	if err == nil {
		t.Fatal("gift without friend edge: want error")
	}
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestClaimFromFriend(t *testing.T) {
	s, store := newTestGifting()
	ctx := context.Background()
	befriend(store, "alice", "bob")
	store.SeedFriendEdge(models.FriendEdge{OwnerID: "bob", FriendID: "alice", TreeLevel: 1, PendingFromFriend: 15})

	take, err := s.ClaimFromFriend(ctx, "bob", "alice")
	if err != nil {
		t.Fatalf("ClaimFromFriend: %v", err)
	}
	if take != 15 {
		t.Fatalf("take = %d, want 15", take)
	}

	ledger := ledgerOf(t, store, "bob")
	if ledger.Fed != 15 {
		t.Fatalf("fed = %d, want 15 (claims bypass pending)", ledger.Fed)
	}
	if ledger.Pending != 0 {
		t.Fatalf("pending = %d, want 0", ledger.Pending)
	}
	if ledger.GiftReceived != 15 || ledger.GiftDate != "2025-03-10" {
		t.Fatalf("daily counter = %d on %q, want 15 on 2025-03-10", ledger.GiftReceived, ledger.GiftDate)
	}
	if pending := edgeOf(t, store, "bob", "alice").PendingFromFriend; pending != 0 {
		t.Fatalf("edge pending = %d, want 0", pending)
	}

	// Nothing left: second claim is a no-op.
	take, err = s.ClaimFromFriend(ctx, "bob", "alice")
	if err != nil || take != 0 {
		t.Fatalf("second claim = (%d, %v), want (0, nil)", take, err)
	}
}

func TestClaimCappedByDailyQuota(t *testing.T) {
	s, store := newTestGifting()
	ctx := context.Background()
	befriend(store, "x", "bob")
	store.SeedFriendEdge(models.FriendEdge{OwnerID: "bob", FriendID: "x", TreeLevel: 1, PendingFromFriend: 3})
	seedLedger(t, store, models.GrowthLedger{
		UserID: "bob", Level: 1, GiftReceived: 49, GiftDate: "2025-03-10",
	})

	take, err := s.ClaimFromFriend(ctx, "bob", "x")
	if err != nil {
		t.Fatalf("ClaimFromFriend: %v", err)
	}
	if take != 1 {
		t.Fatalf("take = %d, want 1 (remaining quota)", take)
	}

	ledger := ledgerOf(t, store, "bob")
	if ledger.Fed != 1 || ledger.GiftReceived != 50 {
		t.Fatalf("fed=%d received=%d, want 1/50", ledger.Fed, ledger.GiftReceived)
	}
	if pending := edgeOf(t, store, "bob", "x").PendingFromFriend; pending != 2 {
		t.Fatalf("edge pending = %d, want 2", pending)
	}

	// Quota spent: further claims are no-ops even with pending left.
	take, err = s.ClaimFromFriend(ctx, "bob", "x")
	if err != nil || take != 0 {
		t.Fatalf("claim at cap = (%d, %v), want (0, nil)", take, err)
	}
}

func TestClaimQuotaResetsNextDay(t *testing.T) {
	s, store := newTestGifting()
	ctx := context.Background()
	befriend(store, "x", "bob")
	store.SeedFriendEdge(models.FriendEdge{OwnerID: "bob", FriendID: "x", TreeLevel: 1, PendingFromFriend: 10})
	seedLedger(t, store, models.GrowthLedger{
		UserID: "bob", Level: 1, GiftReceived: 50, GiftDate: "2025-03-09",
	})

	take, err := s.ClaimFromFriend(ctx, "bob", "x")
	if err != nil {
		t.Fatalf("ClaimFromFriend: %v", err)
	}
	if take != 10 {
		t.Fatalf("take = %d, want 10 (yesterday's counter reset)", take)
	}
	ledger := ledgerOf(t, store, "bob")
	if ledger.GiftReceived != 10 || ledger.GiftDate != "2025-03-10" {
		t.Fatalf("counter = %d on %q, want 10 on 2025-03-10", ledger.GiftReceived, ledger.GiftDate)
	}
}

func TestClaimAllStopsAtCap(t *testing.T) {
	s, store := newTestGifting()
	ctx := context.Background()
	for _, friend := range []string{"f1", "f2", "f3"} {
		befriend(store, friend, "bob")
		store.SeedFriendEdge(models.FriendEdge{OwnerID: "bob", FriendID: friend, TreeLevel: 1, PendingFromFriend: 30})
	}

	total, res, err := s.ClaimAll(ctx, "bob")
	if err != nil {
		t.Fatalf("ClaimAll: %v", err)
	}
	if total != DailyClaimLimit {
		t.Fatalf("total = %d, want %d", total, DailyClaimLimit)
	}
	if res.Claimed != 2 {
		t.Fatalf("claimed friends = %d, want 2 (30 + capped 20)", res.Claimed)
	}

	ledger := ledgerOf(t, store, "bob")
	if ledger.Fed != 50 || ledger.GiftReceived != 50 {
		t.Fatalf("fed=%d received=%d, want 50/50", ledger.Fed, ledger.GiftReceived)
	}

	// f1 drained, f2 partially claimed, f3 untouched.
	if p := edgeOf(t, store, "bob", "f1").PendingFromFriend; p != 0 {
		t.Fatalf("f1 pending = %d, want 0", p)
	}
	if p := edgeOf(t, store, "bob", "f2").PendingFromFriend; p != 10 {
		t.Fatalf("f2 pending = %d, want 10", p)
	}
	if p := edgeOf(t, store, "bob", "f3").PendingFromFriend; p != 30 {
		t.Fatalf("f3 pending = %d, want 30", p)
	}
}

func TestGiftAll(t *testing.T) {
	s, store := newTestGifting()
	ctx := context.Background()
	befriend(store, "alice", "bob")
	befriend(store, "alice", "carol")

	// Already gifted bob today.
	if sent, _ := s.GiftToFriend(ctx, "alice", "bob"); !sent {
		t.Fatal("setup gift not sent")
	}

	res, err := s.GiftAll(ctx, "alice")
	if err != nil {
		t.Fatalf("GiftAll: %v", err)
	}
	if res.Sent != 1 || res.Skipped != 1 || res.Failed != 0 {
		t.Fatalf("result = %+v, want sent=1 skipped=1 failed=0", res)
	}

	if p := edgeOf(t, store, "carol", "alice").PendingFromFriend; p != GiftUnit {
		t.Fatalf("carol pending = %d, want %d", p, GiftUnit)
	}
	if p := edgeOf(t, store, "bob", "alice").PendingFromFriend; p != GiftUnit {
		t.Fatalf("bob pending = %d, want %d", p, GiftUnit)
	}
}
