package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"tree-growth-backend/internal/models"
	"tree-growth-backend/internal/repository"
	"tree-growth-backend/internal/tasks"
)

var testTime = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestTracker() (*TrackerService, *repository.MemStore) {
	store := repository.NewMemStore()
	s := NewTrackerService(store, time.UTC)
	s.now = func() time.Time { return testTime }
	return s, store
}

func ledgerOf(t *testing.T, store *repository.MemStore, userID string) *models.GrowthLedger {
	t.Helper()
	var ledger *models.GrowthLedger
	err := store.RunTx(context.Background(), func(tx repository.Tx) error {
		var err error
		ledger, err = tx.GetLedger(context.Background(), userID)
		return err
	})
	if err != nil {
		t.Fatalf("read ledger: %v", err)
	}
	if ledger == nil {
		ledger = repository.NewLedger(userID, testTime)
	}
	return ledger
}

func TestMarkCompletedIdempotent(t *testing.T) {
	s, store := newTestTracker()
	ctx := context.Background()
	day := s.Today()

	for i := 0; i < 3; i++ {
		if err := s.MarkCompleted(ctx, "u1", day, tasks.TaskMeal); err != nil {
			t.Fatalf("MarkCompleted: %v", err)
		}
	}

	statuses, err := s.DayStatus(ctx, "u1", day)
	if err != nil {
		t.Fatalf("DayStatus: %v", err)
	}
	var meal TaskStatus
	for _, st := range statuses {
		if st.TaskID == tasks.TaskMeal {
			meal = st
		}
	}
	if !meal.Completed || meal.Claimed {
		t.Fatalf("meal status = completed=%v claimed=%v, want completed, unclaimed", meal.Completed, meal.Claimed)
	}
	if meal.Reward != 20 {
		t.Fatalf("meal reward = %d, want 20", meal.Reward)
	}

	// Completing again after a claim must not clear the claimed flag.
	if _, err := s.Claim(ctx, "u1", day, tasks.TaskMeal); err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if err := s.MarkCompleted(ctx, "u1", day, tasks.TaskMeal); err != nil {
		t.Fatalf("MarkCompleted after claim: %v", err)
	}
	if got, err := s.Claim(ctx, "u1", day, tasks.TaskMeal); err != nil || got != 0 {
		t.Fatalf("Claim after re-complete = (%d, %v), want (0, nil)", got, err)
	}

	if pending := ledgerOf(t, store, "u1").Pending; pending != 20 {
		t.Fatalf("pending = %d, want 20", pending)
	}
}

func TestClaimOncePerDay(t *testing.T) {
	s, store := newTestTracker()
	ctx := context.Background()
	day := s.Today()

	if err := s.MarkCompleted(ctx, "u1", day, tasks.TaskMeal); err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}

	got, err := s.Claim(ctx, "u1", day, tasks.TaskMeal)
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if got != 20 {
		t.Fatalf("first claim = %d, want 20", got)
	}
	if pending := ledgerOf(t, store, "u1").Pending; pending != 20 {
		t.Fatalf("pending after claim = %d, want 20", pending)
	}

	got, err = s.Claim(ctx, "u1", day, tasks.TaskMeal)
	if err != nil {
		t.Fatalf("second Claim: %v", err)
	}
	if got != 0 {
		t.Fatalf("second claim = %d, want 0", got)
	}
	if pending := ledgerOf(t, store, "u1").Pending; pending != 20 {
		t.Fatalf("pending after second claim = %d, want 20", pending)
	}
}

func TestClaimRequiresCompletion(t *testing.T) {
	s, store := newTestTracker()
	ctx := context.Background()

	got, err := s.Claim(ctx, "u1", s.Today(), tasks.TaskWater)
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if got != 0 {
		t.Fatalf("claim of uncompleted task = %d, want 0", got)
	}
	if pending := ledgerOf(t, store, "u1").Pending; pending != 0 {
		t.Fatalf("pending = %d, want 0", pending)
	}
}

func TestUnknownTask(t *testing.T) {
	s, _ := newTestTracker()
	ctx := context.Background()

	if err := s.MarkCompleted(ctx, "u1", s.Today(), "jumping_jacks"); err == nil {
		t.Fatal("MarkCompleted of unknown task: want error")
	}
	if _, err := s.Claim(ctx, "u1", s.Today(), "jumping_jacks"); err == nil {
		t.Fatal("Claim of unknown task: want error")
	}
}

func TestRepeatableClaims(t *testing.T) {
	s, store := newTestTracker()
	ctx := context.Background()
	day := s.Today()

	// Three claims in a row with no completion record at all.
	for i := 1; i <= 3; i++ {
		got, err := s.Claim(ctx, "u1", day, tasks.TaskTest)
		if err != nil {
			t.Fatalf("Claim %d: %v", i, err)
		}
		if got != 1 {
			t.Fatalf("Claim %d = %d, want 1", i, got)
		}
		if pending := ledgerOf(t, store, "u1").Pending; pending != i {
			t.Fatalf("pending after claim %d = %d, want %d", i, pending, i)
		}
	}

	got, err := s.Claim(ctx, "u1", day, tasks.TaskFeed)
	if err != nil {
		t.Fatalf("Claim feed: %v", err)
	}
	if got != 1000 {
		t.Fatalf("Claim feed = %d, want 1000", got)
	}
	if pending := ledgerOf(t, store, "u1").Pending; pending != 1003 {
		t.Fatalf("pending = %d, want 1003", pending)
	}
}

func TestConcurrentClaimCreditsOnce(t *testing.T) {
	s, store := newTestTracker()
	ctx := context.Background()
	day := s.Today()

	if err := s.MarkCompleted(ctx, "u1", day, tasks.TaskWorkout); err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}

	const attempts = 16
	results := make([]int, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got, err := s.Claim(ctx, "u1", day, tasks.TaskWorkout)
			if err != nil {
				t.Errorf("Claim: %v", err)
				return
			}
			results[i] = got
		}(i)
	}
	wg.Wait()

	credits := 0
	for _, got := range results {
		if got == 20 {
			credits++
		} else if got != 0 {
			t.Fatalf("unexpected claim result %d", got)
		}
	}
	if credits != 1 {
		t.Fatalf("credits = %d, want exactly 1", credits)
	}
	if pending := ledgerOf(t, store, "u1").Pending; pending != 20 {
		t.Fatalf("pending = %d, want 20", pending)
	}
}

func TestDayStatusRegistryOrder(t *testing.T) {
	s, _ := newTestTracker()
	ctx := context.Background()

	statuses, err := s.DayStatus(ctx, "u1", s.Today())
	if err != nil {
		t.Fatalf("DayStatus: %v", err)
	}
	all := tasks.All()
	if len(statuses) != len(all) {
		t.Fatalf("len(statuses) = %d, want %d", len(statuses), len(all))
	}
	for i, st := range statuses {
		if st.TaskID != all[i].ID {
			t.Fatalf("statuses[%d] = %q, want %q", i, st.TaskID, all[i].ID)
		}
	}
}
