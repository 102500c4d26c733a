package jobs

import (
	"runtime"
	"time"
)

// workerCount scales the per-item fan-out to the machine, clamped to [2, 8].
func workerCount() int {
	n := runtime.NumCPU()
	if n < 2 {
		return 2
	}
	if n > 8 {
		return 8
	}
	return n
}

// startOfDay truncates a timestamp to midnight in its own location.
func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// daysUntil returns the whole calendar days from now's date to target's date.
// Negative when target is in the past.
func daysUntil(now, target time.Time) int {
	return int(startOfDay(target).Sub(startOfDay(now)).Hours() / 24)
}
