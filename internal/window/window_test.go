package window

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var (
	start = time.Date(2026, 2, 20, 18, 0, 0, 0, time.UTC)
	end   = time.Date(2026, 2, 20, 20, 0, 0, 0, time.UTC)
)

func TestIsWithinCheckInWindow_Boundaries(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"exactly start minus grace", start.Add(-2 * time.Hour), true},
		{"one second before opening", start.Add(-2*time.Hour - time.Second), false},
		{"exactly end plus grace", end.Add(2 * time.Hour), true},
		{"one second after closing", end.Add(2*time.Hour + time.Second), false},
		{"during the event", start.Add(30 * time.Minute), true},
		{"early arrival", start.Add(-time.Hour), true},
		{"late walk-in", end.Add(90 * time.Minute), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsWithinCheckInWindow(start, end, tt.now))
		})
	}
}

func TestLocate(t *testing.T) {
	assert.Equal(t, Before, Locate(start, end, start.Add(-3*time.Hour)))
	assert.Equal(t, Within, Locate(start, end, start))
	assert.Equal(t, After, Locate(start, end, end.Add(3*time.Hour)))
	assert.Equal(t, "before", Before.String())
	assert.Equal(t, "after", After.String())
}

func TestOpensCloses(t *testing.T) {
	assert.Equal(t, start.Add(-2*time.Hour), Opens(start))
	assert.Equal(t, end.Add(2*time.Hour), Closes(end))
}
