package services

import (
	"context"
	"math"
	"testing"
	"time"

	"tree-growth-backend/internal/models"
	"tree-growth-backend/internal/repository"
)

func newTestGrowth() (*GrowthService, *repository.MemStore) {
	store := repository.NewMemStore()
	s := NewGrowthService(store)
	s.now = func() time.Time { return testTime }
	return s, store
}

func seedLedger(t *testing.T, store *repository.MemStore, ledger models.GrowthLedger) {
	t.Helper()
	err := store.RunTx(context.Background(), func(tx repository.Tx) error {
		return tx.PutLedger(context.Background(), &ledger)
	})
	if err != nil {
		t.Fatalf("seed ledger: %v", err)
	}
}

func TestTreeDefaults(t *testing.T) {
	s, store := newTestGrowth()

	ledger, err := s.Tree(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Tree: %v", err)
	}
	if ledger.Level != 1 || ledger.Fed != 0 || ledger.Pending != 0 {
		t.Fatalf("defaults = level=%d fed=%d pending=%d, want 1/0/0", ledger.Level, ledger.Fed, ledger.Pending)
	}

	// A read must not persist anything.
	err = store.RunTx(context.Background(), func(tx repository.Tx) error {
		stored, err := tx.GetLedger(context.Background(), "u1")
		if err != nil {
			return err
		}
		if stored != nil {
			t.Fatal("Tree persisted a ledger for a read")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
}

func TestFeedAll(t *testing.T) {
	s, store := newTestGrowth()
	ctx := context.Background()
	seedLedger(t, store, models.GrowthLedger{UserID: "u1", Level: 1, Fed: 100, Pending: 250})

	moved, err := s.FeedAll(ctx, "u1")
	if err != nil {
		t.Fatalf("FeedAll: %v", err)
	}
	if moved != 250 {
		t.Fatalf("moved = %d, want 250", moved)
	}

	ledger, _ := s.Tree(ctx, "u1")
	if ledger.Fed != 350 || ledger.Pending != 0 {
		t.Fatalf("ledger = fed=%d pending=%d, want 350/0", ledger.Fed, ledger.Pending)
	}

	// Second feed with nothing pending is a no-op.
	moved, err = s.FeedAll(ctx, "u1")
	if err != nil {
		t.Fatalf("second FeedAll: %v", err)
	}
	if moved != 0 {
		t.Fatalf("second FeedAll = %d, want 0", moved)
	}
	ledger, _ = s.Tree(ctx, "u1")
	if ledger.Fed != 350 || ledger.Pending != 0 {
		t.Fatalf("ledger after no-op feed = fed=%d pending=%d, want 350/0", ledger.Fed, ledger.Pending)
	}
}

func TestUpgrade(t *testing.T) {
	tests := []struct {
		name      string
		fed       int
		wantOK    bool
		wantFed   int
		wantLevel int
	}{
		{name: "exactly at goal", fed: 1000, wantOK: true, wantFed: 0, wantLevel: 2},
		{name: "above goal", fed: 1700, wantOK: true, wantFed: 700, wantLevel: 2},
		{name: "below goal", fed: 999, wantOK: false, wantFed: 999, wantLevel: 1},
		{name: "empty", fed: 0, wantOK: false, wantFed: 0, wantLevel: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, store := newTestGrowth()
			ctx := context.Background()
			seedLedger(t, store, models.GrowthLedger{UserID: "u1", Level: 1, Fed: tt.fed})

			ok, err := s.Upgrade(ctx, "u1")
			if err != nil {
				t.Fatalf("Upgrade: %v", err)
			}
			if ok != tt.wantOK {
				t.Fatalf("Upgrade = %v, want %v", ok, tt.wantOK)
			}

			ledger, _ := s.Tree(ctx, "u1")
			if ledger.Fed != tt.wantFed || ledger.Level != tt.wantLevel {
				t.Fatalf("ledger = fed=%d level=%d, want fed=%d level=%d",
					ledger.Fed, ledger.Level, tt.wantFed, tt.wantLevel)
			}
		})
	}
}

func TestUpgradeAfterCrashBetweenFeedAndUpgrade(t *testing.T) {
	// Feed and upgrade are separate transactions; a ledger left at
	// fed >= goal is recovered by the next upgrade call.
	s, store := newTestGrowth()
	ctx := context.Background()
	seedLedger(t, store, models.GrowthLedger{UserID: "u1", Level: 3, Fed: 2400})

	for wantLevel := 4; wantLevel <= 5; wantLevel++ {
		ok, err := s.Upgrade(ctx, "u1")
		if err != nil || !ok {
			t.Fatalf("Upgrade = (%v, %v), want (true, nil)", ok, err)
		}
		ledger, _ := s.Tree(ctx, "u1")
		if ledger.Level != wantLevel {
			t.Fatalf("level = %d, want %d", ledger.Level, wantLevel)
		}
	}

	ok, err := s.Upgrade(ctx, "u1")
	if err != nil || ok {
		t.Fatalf("third Upgrade = (%v, %v), want (false, nil)", ok, err)
	}
	ledger, _ := s.Tree(ctx, "u1")
	if ledger.Fed != 400 {
		t.Fatalf("fed = %d, want 400", ledger.Fed)
	}
}

func TestForceLevelAndReset(t *testing.T) {
	s, _ := newTestGrowth()
	ctx := context.Background()

	if err := s.ForceLevelUp(ctx, "u1"); err != nil {
		t.Fatalf("ForceLevelUp: %v", err)
	}
	ledger, _ := s.Tree(ctx, "u1")
	if ledger.Level != 2 {
		t.Fatalf("level after force = %d, want 2", ledger.Level)
	}

	if err := s.ResetLevel0(ctx, "u1"); err != nil {
		t.Fatalf("ResetLevel0: %v", err)
	}
	ledger, _ = s.Tree(ctx, "u1")
	if ledger.Level != 0 {
		t.Fatalf("level after reset = %d, want 0", ledger.Level)
	}
}

func TestSatAdd(t *testing.T) {
	tests := []struct {
		a, b, want int
	}{
		{0, 0, 0},
		{1, 2, 3},
		{math.MaxInt32 - 1, 1, math.MaxInt32},
		{math.MaxInt32, 1, math.MaxInt32},
		{math.MaxInt32, math.MaxInt32, math.MaxInt32},
	}
	for _, tt := range tests {
		if got := satAdd(tt.a, tt.b); got != tt.want {
			t.Errorf("satAdd(%d, %d) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestDayKey(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("LoadLocation: %v", err)
	}

	// 03:30 UTC is still the previous day in New York.
	at := time.Date(2025, 3, 10, 3, 30, 0, 0, time.UTC)
	if got := DayKey(at, time.UTC); got != "2025-03-10" {
		t.Errorf("DayKey UTC = %q, want 2025-03-10", got)
	}
	if got := DayKey(at, ny); got != "2025-03-09" {
		t.Errorf("DayKey New York = %q, want 2025-03-09", got)
	}
}
