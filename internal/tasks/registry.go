// Package tasks holds the static catalog of daily tasks. The catalog is
// append-only: task ids are part of stored records, so entries must never
// be renamed or removed.
package tasks

// Task ids known to the catalog.
const (
	TaskLogin        = "login"
	TaskWater        = "water"
	TaskMeal         = "meal"
	TaskWorkout      = "workout"
	TaskBody         = "body"
	TaskTest         = "test"
	TaskFeed         = "feed"
	TaskGiftOnce     = "gift_once"
	TaskClaimOnce    = "claim_once"
	TaskGroupCheckin = "group_checkin"
)

// Task describes one catalog entry.
type Task struct {
	ID            string `json:"id"`
	DefaultReward int    `json:"default_reward"`
	// Repeatable tasks bypass the completed/claimed gate entirely: every
	// claim credits DefaultReward, with no per-day record.
	Repeatable bool `json:"repeatable"`
}

// all is ordered; the order is what clients render.
var all = []Task{
	{ID: TaskLogin, DefaultReward: 10},
	{ID: TaskWater, DefaultReward: 20},
	{ID: TaskMeal, DefaultReward: 20},
	{ID: TaskWorkout, DefaultReward: 20},
	{ID: TaskBody, DefaultReward: 20},
	{ID: TaskTest, DefaultReward: 1, Repeatable: true},
	{ID: TaskFeed, DefaultReward: 1000, Repeatable: true},
	{ID: TaskGiftOnce, DefaultReward: 10},
	{ID: TaskClaimOnce, DefaultReward: 10},
	{ID: TaskGroupCheckin, DefaultReward: 10},
}

var byID = func() map[string]Task {
	m := make(map[string]Task, len(all))
	for _, t := range all {
		m[t.ID] = t
	}
	return m
}()

// Lookup returns the catalog entry for id, or ok=false for unknown ids.
func Lookup(id string) (Task, bool) {
	t, ok := byID[id]
	return t, ok
}

// All returns the catalog in render order. The caller must not mutate the
// returned slice.
func All() []Task {
	return all
}
