package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/balkashynov/wroklog/internal/apperr"
	"github.com/balkashynov/wroklog/internal/clock"
	"github.com/balkashynov/wroklog/internal/db"
	"github.com/balkashynov/wroklog/internal/models"
	"github.com/balkashynov/wroklog/internal/session"
	"github.com/balkashynov/wroklog/internal/testsupport"
)

var nineAM = time.Date(2026, 2, 18, 9, 0, 0, 0, time.UTC)

func newManager(t *testing.T) (*session.Manager, *clock.Fake, *db.Store) {
	t.Helper()
	store := testsupport.MustOpenDB(t)
	clk := clock.NewFake(nineAM)
	return session.NewManager(store, clk), clk, store
}

type recordingDisarmer struct {
	mu  sync.Mutex
	ids []string
}

func (r *recordingDisarmer) Disarm(id string) {
	r.mu.Lock()
	r.ids = append(r.ids, id)
	r.mu.Unlock()
}

func TestStopBeforeFourHoursIsRejected(t *testing.T) {
	mgr, clk, _ := newManager(t)
	ctx := context.Background()

	s, err := mgr.Start(ctx, "u1", "laptop")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	clk.Advance(time.Hour)
	if _, err := mgr.Stop(ctx, "u1", s.ID, clk.Now()); !errors.Is(err, apperr.ErrTooShort) {
		t.Fatalf("stop at 10:00: got %v, want TooShort", err)
	}
	active, err := mgr.GetActive(ctx, "u1")
	if err != nil || active == nil || active.ID != s.ID {
		t.Fatalf("session must stay active after rejected stop: %+v %v", active, err)
	}

	clk.Set(time.Date(2026, 2, 18, 13, 1, 0, 0, time.UTC))
	stopped, err := mgr.Stop(ctx, "u1", s.ID, clk.Now())
	if err != nil {
		t.Fatalf("stop at 13:01: %v", err)
	}
	if stopped.Status != models.StatusCompleted || !stopped.EndTime.Equal(clk.Now()) {
		t.Fatalf("unexpected stopped session: %+v", stopped)
	}
}

func TestStopHasNoCeilingForStartedSessions(t *testing.T) {
	mgr, clk, _ := newManager(t)
	ctx := context.Background()

	s, err := mgr.Start(ctx, "u1", "")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	clk.Advance(30 * time.Hour)
	stopped, err := mgr.Stop(ctx, "u1", s.ID, clk.Now())
	if err != nil {
		t.Fatalf("stop after 30h must succeed: %v", err)
	}
	if stopped.Duration() != 30*time.Hour {
		t.Fatalf("duration = %v", stopped.Duration())
	}

	// The same 30h span is refused when entered manually.
	_, err = mgr.CreateManual(ctx, "u2", session.ManualInput{Start: nineAM, End: nineAM.Add(30 * time.Hour)})
	if !errors.Is(err, apperr.ErrTooLong) {
		t.Fatalf("manual 30h: got %v, want TooLong", err)
	}
}

func TestTerminalSessionsAreImmutable(t *testing.T) {
	mgr, clk, _ := newManager(t)
	ctx := context.Background()

	s, err := mgr.Start(ctx, "u1", "")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	clk.Advance(5 * time.Hour)
	stopped, err := mgr.Stop(ctx, "u1", s.ID, clk.Now())
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if !stopped.IsTerminal() {
		t.Fatalf("stopped session status %q is not terminal", stopped.Status)
	}

	if _, err := mgr.Stop(ctx, "u1", s.ID, clk.Now()); !errors.Is(err, apperr.ErrSessionNotFound) {
		t.Fatalf("second stop: got %v, want not found", err)
	}
	if _, err := mgr.Cancel(ctx, "u1", s.ID); !errors.Is(err, apperr.ErrSessionNotFound) {
		t.Fatalf("cancel after stop: got %v, want not found", err)
	}
	got, err := mgr.Get(ctx, "u1", s.ID)
	if err != nil || got.Status != models.StatusCompleted || !got.EndTime.Equal(stopped.EndTime.UTC()) {
		t.Fatalf("stored session changed: %+v, %v", got, err)
	}
}

func TestStartConflicts(t *testing.T) {
	mgr, clk, _ := newManager(t)
	ctx := context.Background()

	s, err := mgr.Start(ctx, "u1", "")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := mgr.Start(ctx, "u1", ""); !errors.Is(err, apperr.ErrConflictActive) {
		t.Fatalf("second start: got %v, want ConflictActive", err)
	}

	clk.Advance(5 * time.Hour)
	if _, err := mgr.Stop(ctx, "u1", s.ID, clk.Now()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if _, err := mgr.Start(ctx, "u1", ""); !errors.Is(err, apperr.ErrConflictDuplicateDay) {
		t.Fatalf("restart same day: got %v, want ConflictDuplicateDay", err)
	}

	clk.Set(time.Date(2026, 2, 19, 0, 30, 0, 0, time.UTC))
	if _, err := mgr.Start(ctx, "u1", ""); err != nil {
		t.Fatalf("start next day: %v", err)
	}
}

func TestConcurrentStartsLeaveOneActive(t *testing.T) {
	mgr, _, store := newManager(t)
	ctx := context.Background()

	const attempts = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := mgr.Start(ctx, "u1", "")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case apperr.KindOf(err) != apperr.KindConflict:
				t.Errorf("unexpected error kind: %v", err)
			}
		}()
	}
	wg.Wait()

	if successes != 1 {
		t.Fatalf("successes = %d, want 1", successes)
	}
	sessions, _, err := store.Sessions.List(ctx, "u1", db.SessionFilter{Status: models.StatusActive})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("active sessions = %d, want 1", len(sessions))
	}
}

func TestCreateManualBoundaries(t *testing.T) {
	base := time.Date(2026, 2, 10, 6, 0, 0, 0, time.UTC)
	tests := []struct {
		name     string
		duration time.Duration
		want     error
	}{
		{"exactly four hours", 4 * time.Hour, nil},
		{"exactly twenty-four hours", 24 * time.Hour, nil},
		{"one minute short", 3*time.Hour + 59*time.Minute, apperr.ErrTooShort},
		{"one minute long", 24*time.Hour + time.Minute, apperr.ErrTooLong},
		{"end before start", -time.Hour, apperr.ErrInvalidRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mgr, _, _ := newManager(t)
			_, err := mgr.CreateManual(context.Background(), "u1", session.ManualInput{
				Start: base, End: base.Add(tt.duration),
			})
			if tt.want == nil && err != nil {
				t.Fatalf("CreateManual: %v", err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Fatalf("CreateManual: got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCreateManualRejectsFutureEnd(t *testing.T) {
	mgr, _, _ := newManager(t)
	_, err := mgr.CreateManual(context.Background(), "u1", session.ManualInput{
		Start: nineAM.Add(-2 * time.Hour), End: nineAM.Add(3 * time.Hour),
	})
	if !errors.Is(err, apperr.ErrFutureEnd) {
		t.Fatalf("got %v, want FutureEnd", err)
	}
}

func TestCreateManualOnDayWithActiveSession(t *testing.T) {
	mgr, clk, _ := newManager(t)
	ctx := context.Background()

	clk.Set(time.Date(2026, 2, 18, 17, 0, 0, 0, time.UTC))
	if _, err := mgr.Start(ctx, "u1", ""); err != nil {
		t.Fatalf("Start: %v", err)
	}
	_, err := mgr.CreateManual(ctx, "u1", session.ManualInput{
		Start: time.Date(2026, 2, 18, 8, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 2, 18, 16, 0, 0, 0, time.UTC),
	})
	if !errors.Is(err, apperr.ErrConflictDuplicateDay) {
		t.Fatalf("got %v, want ConflictDuplicateDay", err)
	}
}

func TestCancelFreesDayAndDisarms(t *testing.T) {
	mgr, _, store := newManager(t)
	ctx := context.Background()
	disarmer := &recordingDisarmer{}
	mgr.AttachScheduler(disarmer)

	s, err := mgr.Start(ctx, "u1", "")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := store.Schedules.Upsert(ctx, &models.AutoStopSchedule{
		SessionID: s.ID, OwnerID: "u1", FireAt: nineAM.Add(8 * time.Hour), ArmedAt: nineAM,
	}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	if _, err := mgr.Cancel(ctx, "u2", s.ID); !errors.Is(err, apperr.ErrSessionNotFound) {
		t.Fatalf("foreign cancel: got %v", err)
	}
	cancelled, err := mgr.Cancel(ctx, "u1", s.ID)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if cancelled.Status != models.StatusCancelled {
		t.Fatalf("status = %s", cancelled.Status)
	}
	if row, _ := store.Schedules.Get(ctx, s.ID); row != nil {
		t.Fatal("schedule row should be removed on cancel")
	}
	if len(disarmer.ids) != 1 || disarmer.ids[0] != s.ID {
		t.Fatalf("disarmed = %v", disarmer.ids)
	}
	if _, err := mgr.Cancel(ctx, "u1", s.ID); !errors.Is(err, apperr.ErrSessionNotFound) {
		t.Fatalf("cancel of terminal session: got %v", err)
	}

	if _, err := mgr.Start(ctx, "u1", ""); err != nil {
		t.Fatalf("start after cancel on same day: %v", err)
	}
}

func TestListFiltersAndPages(t *testing.T) {
	mgr, _, _ := newManager(t)
	ctx := context.Background()

	for day := 1; day <= 3; day++ {
		start := time.Date(2026, 2, day, 8, 0, 0, 0, time.UTC)
		if _, err := mgr.CreateManual(ctx, "u1", session.ManualInput{Start: start, End: start.Add(5 * time.Hour)}); err != nil {
			t.Fatalf("CreateManual day %d: %v", day, err)
		}
	}

	page, err := mgr.List(ctx, "u1", session.ListParams{FromDate: "2026-02-02", PerPage: 1})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if page.Total != 2 || len(page.Sessions) != 1 || page.Sessions[0].StartDay != "2026-02-03" {
		t.Fatalf("unexpected page: total=%d sessions=%+v", page.Total, page.Sessions)
	}

	if _, err := mgr.List(ctx, "u1", session.ListParams{Status: "paused"}); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Fatalf("bad status: got %v", err)
	}
}
