package clock

import (
	"testing"
	"time"
)

func TestFakeRunsTimersInOrder(t *testing.T) {
	start := time.Date(2026, 2, 18, 9, 0, 0, 0, time.UTC)
	c := NewFake(start)

	var fired []string
	c.AfterFunc(2*time.Second, func() { fired = append(fired, "b") })
	c.AfterFunc(time.Second, func() { fired = append(fired, "a") })
	stopped := c.AfterFunc(1500*time.Millisecond, func() { fired = append(fired, "x") })

	if !stopped.Stop() {
		t.Fatal("Stop() = false, want true for pending timer")
	}
	c.Advance(3 * time.Second)

	if len(fired) != 2 || fired[0] != "a" || fired[1] != "b" {
		t.Fatalf("fired = %v, want [a b]", fired)
	}
	if got := c.Now(); !got.Equal(start.Add(3 * time.Second)) {
		t.Errorf("Now() = %v, want %v", got, start.Add(3*time.Second))
	}
	if stopped.Stop() {
		t.Error("second Stop() = true, want false")
	}
}

func TestFakeTimerSeesFireTime(t *testing.T) {
	start := time.Date(2026, 2, 18, 9, 0, 0, 0, time.UTC)
	c := NewFake(start)

	var seen time.Time
	c.AfterFunc(time.Hour, func() { seen = c.Now() })
	c.Advance(5 * time.Hour)

	if !seen.Equal(start.Add(time.Hour)) {
		t.Errorf("callback saw %v, want %v", seen, start.Add(time.Hour))
	}
	if c.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", c.Pending())
	}
}
