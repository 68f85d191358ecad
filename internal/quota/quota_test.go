package quota_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/balkashynov/wroklog/internal/clock"
	"github.com/balkashynov/wroklog/internal/quota"
	"github.com/balkashynov/wroklog/internal/testsupport"
)

func TestCheckAndReserveConcurrent(t *testing.T) {
	store := testsupport.MustOpenDB(t)
	gate := quota.NewGate(store.Usage, clock.NewFake(time.Date(2026, 2, 18, 9, 0, 0, 0, time.UTC)), quota.DefaultMonthlyLimit)
	ctx := context.Background()
	month := gate.CurrentMonth()

	// Take the owner to limit-1 first.
	for i := 0; i < 2; i++ {
		if d, err := gate.CheckAndReserve(ctx, "u1", month); err != nil || !d.Allowed {
			t.Fatalf("reserve %d: %+v %v", i+1, d, err)
		}
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := gate.CheckAndReserve(ctx, "u1", month)
			if err != nil {
				t.Errorf("CheckAndReserve: %v", err)
				return
			}
			if d.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != 1 {
		t.Fatalf("allowed = %d, want exactly 1 at limit-1", allowed)
	}
	d, err := gate.Remaining(ctx, "u1", month)
	if err != nil {
		t.Fatalf("Remaining: %v", err)
	}
	if d.Used != 3 || d.Remaining != 0 || d.Allowed {
		t.Fatalf("unexpected decision: %+v", d)
	}
}

func TestNewMonthResets(t *testing.T) {
	store := testsupport.MustOpenDB(t)
	clk := clock.NewFake(time.Date(2026, 1, 31, 23, 59, 0, 0, time.UTC))
	gate := quota.NewGate(store.Usage, clk, 1)
	ctx := context.Background()

	if d, _ := gate.CheckAndReserve(ctx, "u1", gate.CurrentMonth()); !d.Allowed {
		t.Fatal("first reservation denied")
	}
	if d, _ := gate.CheckAndReserve(ctx, "u1", gate.CurrentMonth()); d.Allowed {
		t.Fatal("second reservation in January allowed")
	}
	clk.Advance(2 * time.Minute)
	if gate.CurrentMonth() != "2026-02" {
		t.Fatalf("month = %s", gate.CurrentMonth())
	}
	if d, _ := gate.CheckAndReserve(ctx, "u1", gate.CurrentMonth()); !d.Allowed || d.Remaining != 0 {
		t.Fatalf("February reservation: %+v", d)
	}
}

func TestRejectsBadMonth(t *testing.T) {
	store := testsupport.MustOpenDB(t)
	gate := quota.NewGate(store.Usage, nil, 3)
	if _, err := gate.Remaining(context.Background(), "u1", "2026-13"); err == nil {
		t.Fatal("expected invalid month error")
	}
}
