package display

import (
	"testing"
	"time"
)

func TestElapsed(t *testing.T) {
	start := time.Date(2026, 2, 18, 9, 0, 0, 0, time.UTC)
	if got := Elapsed(start, start.Add(4*time.Hour+1500*time.Millisecond)); got != 4*time.Hour+time.Second {
		t.Errorf("Elapsed = %v", got)
	}
	// A client clock behind the server must not show negative time.
	if got := Elapsed(start, start.Add(-time.Minute)); got != 0 {
		t.Errorf("Elapsed with skew = %v", got)
	}
}

func TestFormatting(t *testing.T) {
	tests := []struct {
		d     time.Duration
		clock string
		human string
	}{
		{0, "00:00:00", "0s"},
		{90 * time.Second, "00:01:30", "1m 30s"},
		{4*time.Hour + 5*time.Minute, "04:05:00", "4h 5m"},
		{30 * time.Hour, "30:00:00", "30h 0m"},
	}
	for _, tt := range tests {
		if got := Clock(tt.d); got != tt.clock {
			t.Errorf("Clock(%v) = %q, want %q", tt.d, got, tt.clock)
		}
		if got := Human(tt.d); got != tt.human {
			t.Errorf("Human(%v) = %q, want %q", tt.d, got, tt.human)
		}
	}
}

func TestUntil(t *testing.T) {
	now := time.Date(2026, 2, 18, 9, 0, 0, 0, time.UTC)
	if got := Until(now.Add(-time.Second), now); got != "due" {
		t.Errorf("Until(past) = %q", got)
	}
	if got := Until(now.Add(2*time.Hour), now); got != "2h 0m" {
		t.Errorf("Until = %q", got)
	}
}
