package tracker

import "time"

// AccessTracker records when a page was last driven so idle pages can be
// reclaimed.
type AccessTracker interface {
	Update(id string)
	GetLastAccessed(id string) (time.Time, bool)
	Idle(threshold time.Duration) []string
	Remove(id string)
}
