package tasks

import "testing"

func TestLookup(t *testing.T) {
	tests := []struct {
		id         string
		wantOK     bool
		wantReward int
		repeatable bool
	}{
		{id: TaskLogin, wantOK: true, wantReward: 10},
		{id: TaskWater, wantOK: true, wantReward: 20},
		{id: TaskMeal, wantOK: true, wantReward: 20},
		{id: TaskWorkout, wantOK: true, wantReward: 20},
		{id: TaskBody, wantOK: true, wantReward: 20},
		{id: TaskTest, wantOK: true, wantReward: 1, repeatable: true},
		{id: TaskFeed, wantOK: true, wantReward: 1000, repeatable: true},
		{id: TaskGiftOnce, wantOK: true, wantReward: 10},
		{id: TaskClaimOnce, wantOK: true, wantReward: 10},
		{id: TaskGroupCheckin, wantOK: true, wantReward: 10},
		{id: "jumping_jacks", wantOK: false},
		{id: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			task, ok := Lookup(tt.id)
			if ok != tt.wantOK {
				t.Fatalf("Lookup(%q) ok = %v, want %v", tt.id, ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if task.DefaultReward != tt.wantReward {
				t.Errorf("Lookup(%q) reward = %d, want %d", tt.id, task.DefaultReward, tt.wantReward)
			}
			if task.Repeatable != tt.repeatable {
				t.Errorf("Lookup(%q) repeatable = %v, want %v", tt.id, task.Repeatable, tt.repeatable)
			}
		})
	}
}

func TestAllOrderIsStable(t *testing.T) {
	all := All()
	if len(all) != 10 {
		t.Fatalf("len(All()) = %d, want 10", len(all))
	}

	wantFirst, wantLast := TaskLogin, TaskGroupCheckin
	if all[0].ID != wantFirst {
		t.Errorf("first task = %q, want %q", all[0].ID, wantFirst)
	}
	if all[len(all)-1].ID != wantLast {
		t.Errorf("last task = %q, want %q", all[len(all)-1].ID, wantLast)
	}

	seen := make(map[string]bool)
	for _, task := range all {
		if seen[task.ID] {
			t.Errorf("duplicate task id %q", task.ID)
		}
		seen[task.ID] = true
		if _, ok := Lookup(task.ID); !ok {
			t.Errorf("task %q in All() but not in Lookup", task.ID)
		}
	}
}
