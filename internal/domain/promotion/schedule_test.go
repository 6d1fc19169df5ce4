package promotion

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWindowContains(t *testing.T) {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 6, 30, 23, 59, 59, 0, time.UTC)

	tests := []struct {
		name string
		end  *time.Time
		now  time.Time
		want bool
	}{
		{name: "before start", end: &end, now: start.Add(-time.Second), want: false},
		{name: "exactly at start", end: &end, now: start, want: true},
		{name: "inside window", end: &end, now: start.AddDate(0, 0, 10), want: true},
		{name: "exactly at end", end: &end, now: end, want: true},
		{name: "after end", end: &end, now: end.Add(time.Second), want: false},
		{name: "nil end never expires", end: nil, now: start.AddDate(10, 0, 0), want: true},
		{name: "nil end still gated by start", end: nil, now: start.Add(-time.Minute), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WindowContains(start, tt.end, tt.now))
		})
	}
}

func TestPromotionActiveAt(t *testing.T) {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	now := start.AddDate(0, 0, 5)

	p := Promotion{Status: StatusActive, StartsAt: start}
	assert.True(t, p.ActiveAt(now))

	p.Status = StatusScheduled
	assert.False(t, p.ActiveAt(now), "scheduled promotions are not live regardless of window")

	p.Status = StatusInactive
	assert.False(t, p.ActiveAt(now))
}
