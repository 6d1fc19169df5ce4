package promotion

import "time"

// WindowContains reports whether now falls inside the [start, end] window,
// inclusive at both boundaries. A nil end means the window never closes.
func WindowContains(start time.Time, end *time.Time, now time.Time) bool {
	if now.Before(start) {
		return false
	}
	if end != nil && now.After(*end) {
		return false
	}
	return true
}

// ActiveAt reports whether the promotion is live: active status and a
// validity window containing now.
func (p *Promotion) ActiveAt(now time.Time) bool {
	return p.Status == StatusActive && WindowContains(p.StartsAt, p.EndsAt, now)
}
