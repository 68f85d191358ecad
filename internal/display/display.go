// Package display renders session times for people. Nothing here is
// consulted when enforcing session rules.
package display

import (
	"fmt"
	"time"
)

// Elapsed returns how long a session started at start has been running at
// now, never negative.
func Elapsed(start, now time.Time) time.Duration {
	d := now.Sub(start)
	if d < 0 {
		return 0
	}
	return d.Truncate(time.Second)
}

// Clock formats a duration as HH:MM:SS; hours grow past 24.
func Clock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Seconds())
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

// Human formats a duration in a compact human-readable form
func Human(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	} else if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}

// Until formats the time remaining before t, or "due" once it has passed.
func Until(t, now time.Time) string {
	if !t.After(now) {
		return "due"
	}
	return Human(t.Sub(now))
}
