package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/balkashynov/wroklog/internal/apperr"
	"github.com/balkashynov/wroklog/internal/models"
)

var start = time.Date(2026, 2, 18, 9, 0, 0, 0, time.UTC)

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestTimerTickUsesInjectedClock(t *testing.T) {
	sess := &models.Session{StartTime: start, StartDay: "2026-02-18"}
	m := NewTimerModel(sess, fixedNow(start.Add(90*time.Minute)), nil)

	next, _ := m.Update(timerTickMsg{})
	if got := next.(TimerModel).elapsed; got != 90*time.Minute {
		t.Fatalf("elapsed = %v", got)
	}
}

func TestStopRejectedKeepsTimerRunning(t *testing.T) {
	sess := &models.Session{StartTime: start, StartDay: "2026-02-18"}
	m := NewTimerModel(sess, fixedNow(start.Add(time.Hour)), func() (*models.Session, error) {
		return nil, apperr.ErrTooShort
	})

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("s")})
	if cmd == nil || !next.(TimerModel).stopping {
		t.Fatal("stop key did not start a stop")
	}
	next, cmd = next.Update(cmd())
	tm := next.(TimerModel)
	if tm.stopped != nil || tm.stopErr == nil || cmd != nil {
		t.Fatalf("rejected stop: stopped=%v err=%v", tm.stopped, tm.stopErr)
	}
	if tm.renderStatusLine() == "" {
		t.Fatal("rejection not shown")
	}
}

func TestStopAcceptedQuits(t *testing.T) {
	sess := &models.Session{StartTime: start, StartDay: "2026-02-18"}
	end := start.Add(5 * time.Hour)
	m := NewTimerModel(sess, fixedNow(end), func() (*models.Session, error) {
		done := *sess
		done.EndTime = &end
		done.Status = models.StatusCompleted
		return &done, nil
	})

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("s")})
	next, cmd = next.Update(cmd())
	if next.(TimerModel).stopped == nil {
		t.Fatal("stopped session not recorded")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("expected quit after stop")
	}
}

func TestBigClockShowsHours(t *testing.T) {
	out := renderBigClock(26*time.Hour + 5*time.Second)
	if rows := strings.Split(out, "\n"); len(rows) != 5 || !strings.Contains(rows[0], "███") {
		t.Fatalf("unexpected clock:\n%s", out)
	}
}
