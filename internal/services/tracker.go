package services

import (
	"context"
	"fmt"
	"time"

	"tree-growth-backend/internal/models"
	"tree-growth-backend/internal/repository"
	"tree-growth-backend/internal/tasks"
)

// TrackerService owns the per-user, per-day task state machine:
// absent -> completed(unclaimed) -> completed(claimed).
type TrackerService struct {
	store repository.Store
	loc   *time.Location
	now   func() time.Time
}

// NewTrackerService creates a new tracker service
func NewTrackerService(store repository.Store, loc *time.Location) *TrackerService {
	return &TrackerService{
		store: store,
		loc:   loc,
		now:   time.Now,
	}
}

// Today returns the current day key
func (s *TrackerService) Today() string {
	return DayKey(s.now(), s.loc)
}

// TaskStatus is one task's state for a given day, in registry order.
type TaskStatus struct {
	TaskID     string `json:"task_id"`
	Reward     int    `json:"reward"`
	Repeatable bool   `json:"repeatable"`
	Completed  bool   `json:"completed"`
	Claimed    bool   `json:"claimed"`
}

// MarkCompleted records that the user finished taskID on the given day.
// Safe to call redundantly: an existing completed record is left alone and
// an existing claimed flag is never cleared. Repeatable tasks keep no
// per-day record, so for them this is a no-op.
func (s *TrackerService) MarkCompleted(ctx context.Context, userID, day, taskID string) error {
	task, ok := tasks.Lookup(taskID)
	if !ok {
		return fmt.Errorf("unknown task %q", taskID)
	}
	if task.Repeatable {
		return nil
	}

	return s.store.RunTx(ctx, func(tx repository.Tx) error {
		rec, err := tx.GetDailyTask(ctx, userID, day, taskID)
		if err != nil {
			return err
		}
		if rec != nil && rec.Completed {
			return nil
		}
		if rec == nil {
			rec = &models.DailyTask{UserID: userID, Day: day, TaskID: taskID}
		}
		rec.Completed = true
		if rec.Reward <= 0 {
			rec.Reward = task.DefaultReward
		}
		return tx.PutDailyTask(ctx, rec)
	})
}

// Claim converts a completed task's reward into pending points, at most
// once per (user, day, task). Returns the credited amount; 0 means there
// was nothing to claim (not completed, already claimed, or no reward).
//
// Repeatable tasks skip the record entirely: every call credits the
// registry reward.
//
// Concurrent claims for the same key settle to exactly one credit: the
// losing transaction re-reads, observes claimed=true and returns 0.
func (s *TrackerService) Claim(ctx context.Context, userID, day, taskID string) (int, error) {
	task, ok := tasks.Lookup(taskID)
	if !ok {
		return 0, fmt.Errorf("unknown task %q", taskID)
	}

	if task.Repeatable {
		err := s.store.RunTx(ctx, func(tx repository.Tx) error {
			ledger, err := tx.GetLedger(ctx, userID)
			if err != nil {
				return err
			}
			if ledger == nil {
				ledger = repository.NewLedger(userID, s.now())
			}
			ledger.Pending = satAdd(ledger.Pending, task.DefaultReward)
			ledger.UpdatedAt = s.now()
			return tx.PutLedger(ctx, ledger)
		})
		if err != nil {
			return 0, err
		}
		return task.DefaultReward, nil
	}

	credited := 0
	err := s.store.RunTx(ctx, func(tx repository.Tx) error {
		credited = 0

		// Reads first, then writes.
		rec, err := tx.GetDailyTask(ctx, userID, day, taskID)
		if err != nil {
			return err
		}
		ledger, err := tx.GetLedger(ctx, userID)
		if err != nil {
			return err
		}

		if rec == nil || !rec.Completed || rec.Claimed || rec.Reward <= 0 {
			return nil
		}

		if ledger == nil {
			ledger = repository.NewLedger(userID, s.now())
		}
		rec.Claimed = true
		ledger.Pending = satAdd(ledger.Pending, rec.Reward)
		ledger.UpdatedAt = s.now()

		if err := tx.PutDailyTask(ctx, rec); err != nil {
			return err
		}
		if err := tx.PutLedger(ctx, ledger); err != nil {
			return err
		}
		credited = rec.Reward
		return nil
	})
	if err != nil {
		return 0, err
	}
	return credited, nil
}

// DayStatus returns every catalog task's state for the day, in registry
// order. Tasks without a record show as not completed.
func (s *TrackerService) DayStatus(ctx context.Context, userID, day string) ([]TaskStatus, error) {
	var records []models.DailyTask
	err := s.store.RunTx(ctx, func(tx repository.Tx) error {
		var err error
		records, err = tx.ListDailyTasks(ctx, userID, day)
		return err
	})
	if err != nil {
		return nil, err
	}

	byID := make(map[string]models.DailyTask, len(records))
	for _, rec := range records {
		byID[rec.TaskID] = rec
	}

	out := make([]TaskStatus, 0, len(tasks.All()))
	for _, task := range tasks.All() {
		st := TaskStatus{
			TaskID:     task.ID,
			Reward:     task.DefaultReward,
			Repeatable: task.Repeatable,
		}
		if rec, ok := byID[task.ID]; ok {
			st.Completed = rec.Completed
			st.Claimed = rec.Claimed
			if rec.Reward > 0 {
				st.Reward = rec.Reward
			}
		}
		out = append(out, st)
	}
	return out, nil
}
