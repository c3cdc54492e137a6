package services

import (
	"math"
	"time"
)

// DayKey formats t as the calendar-day key used for all daily quotas.
// Every quota in the system is anchored to the same server-side zone so
// two clients in different zones agree on what "today" means.
func DayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02")
}

// satAdd adds two non-negative point amounts, saturating at MaxInt32
// instead of wrapping.
func satAdd(a, b int) int {
	sum := a + b
	if sum > math.MaxInt32 || sum < a {
		return math.MaxInt32
	}
	return sum
}
