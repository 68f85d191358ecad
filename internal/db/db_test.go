package db_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/balkashynov/wroklog/internal/apperr"
	"github.com/balkashynov/wroklog/internal/db"
	"github.com/balkashynov/wroklog/internal/models"
	"github.com/balkashynov/wroklog/internal/testsupport"
)

func newSession(owner string, start time.Time, status models.SessionStatus) *models.Session {
	return &models.Session{
		ID:        owner + "-" + start.Format("20060102T1504"),
		OwnerID:   owner,
		StartTime: start,
		Status:    status,
		StartDay:  models.UTCDay(start),
	}
}

func TestPartialIndexesEnforceSessionInvariants(t *testing.T) {
	store := testsupport.MustOpenDB(t)
	ctx := context.Background()
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	if err := store.Sessions.Create(ctx, newSession("u1", start, models.StatusActive)); err != nil {
		t.Fatalf("create first: %v", err)
	}

	err := store.Sessions.Create(ctx, newSession("u1", start.Add(24*time.Hour), models.StatusActive))
	if !db.IsUniqueViolation(err) {
		t.Fatalf("second active session: got %v, want unique violation", err)
	}

	err = store.Sessions.Create(ctx, newSession("u1", start.Add(time.Hour), models.StatusCompleted))
	if !db.IsUniqueViolation(err) {
		t.Fatalf("same-day session: got %v, want unique violation", err)
	}

	cancelled := newSession("u1", start.Add(2*time.Hour), models.StatusCancelled)
	if err := store.Sessions.Create(ctx, cancelled); err != nil {
		t.Fatalf("cancelled rows are exempt: %v", err)
	}
	if err := store.Sessions.Create(ctx, newSession("u2", start, models.StatusActive)); err != nil {
		t.Fatalf("other owner: %v", err)
	}
}

func TestFinishGuardsTerminalSessions(t *testing.T) {
	store := testsupport.MustOpenDB(t)
	ctx := context.Background()
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	s := newSession("u1", start, models.StatusActive)
	if err := store.Sessions.Create(ctx, s); err != nil {
		t.Fatalf("create: %v", err)
	}

	end := start.Add(5 * time.Hour)
	ok, err := store.Sessions.Finish(ctx, s.ID, models.StatusCompleted, &end)
	if err != nil || !ok {
		t.Fatalf("finish: ok=%v err=%v", ok, err)
	}
	later := end.Add(time.Hour)
	ok, err = store.Sessions.Finish(ctx, s.ID, models.StatusCancelled, &later)
	if err != nil || ok {
		t.Fatalf("second finish must not touch terminal row: ok=%v err=%v", ok, err)
	}

	got, err := store.Sessions.Get(ctx, "u1", s.ID)
	if err != nil || got == nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != models.StatusCompleted || !got.EndTime.Equal(end) {
		t.Fatalf("terminal session changed: %+v", got)
	}
}

func TestDocumentSaveCreatesAndAppends(t *testing.T) {
	store := testsupport.MustOpenDB(t)
	ctx := context.Background()

	doc, v1, err := store.Documents.Save(ctx, db.SaveInput{
		OwnerID: "u1", LogDate: "2026-03-02", Content: []byte(`{"type":"doc"}`), Digest: "d1",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if doc.CurrentVersion != 1 || v1.VersionNumber != 1 || !v1.IsFullSnapshot {
		t.Fatalf("unexpected first version: doc=%+v v=%+v", doc, v1)
	}

	_, _, err = store.Documents.Save(ctx, db.SaveInput{
		OwnerID: "u1", LogDate: "2026-03-02", Content: []byte(`{"type":"doc"}`), Digest: "d1",
	})
	if !errors.Is(err, apperr.ErrConflictDuplicateDay) {
		t.Fatalf("duplicate create: got %v", err)
	}

	doc, v2, err := store.Documents.Save(ctx, db.SaveInput{
		OwnerID: "u1", DocumentID: doc.ID, Content: []byte(`{"content":[],"type":"doc"}`), Digest: "d2",
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if doc.CurrentVersion != 2 || v2.VersionNumber != 2 {
		t.Fatalf("expected version 2, got doc=%d v=%d", doc.CurrentVersion, v2.VersionNumber)
	}

	_, _, err = store.Documents.Save(ctx, db.SaveInput{OwnerID: "u2", DocumentID: doc.ID, Content: []byte(`{}`)})
	if !errors.Is(err, apperr.ErrDocumentMissing) {
		t.Fatalf("foreign owner update: got %v", err)
	}

	infos, err := store.Documents.Versions(ctx, doc.ID, 50)
	if err != nil {
		t.Fatalf("versions: %v", err)
	}
	if len(infos) != 2 || infos[0].VersionNumber != 2 || infos[1].VersionNumber != 1 {
		t.Fatalf("unexpected history order: %+v", infos)
	}
}

func TestUsageReserveStopsAtLimit(t *testing.T) {
	store := testsupport.MustOpenDB(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		ok, err := store.Usage.Reserve(ctx, "u1", "2026-03", 3, now)
		if err != nil || !ok {
			t.Fatalf("reserve %d: ok=%v err=%v", i+1, ok, err)
		}
	}
	ok, err := store.Usage.Reserve(ctx, "u1", "2026-03", 3, now)
	if err != nil || ok {
		t.Fatalf("fourth reserve: ok=%v err=%v", ok, err)
	}
	used, err := store.Usage.Used(ctx, "u1", "2026-03")
	if err != nil || used != 3 {
		t.Fatalf("used = %d, err = %v", used, err)
	}
	if ok, _ := store.Usage.Reserve(ctx, "u1", "2026-04", 3, now); !ok {
		t.Fatal("new month must start fresh")
	}
}

func TestMigrateCreatesSummaryUsageTable(t *testing.T) {
	store := testsupport.MustOpenDB(t)
	if !store.DB.Migrator().HasTable("summary_usage") {
		t.Fatal("summary_usage table missing after migrate")
	}
	if store.DB.Migrator().HasTable("summary_usages") {
		t.Fatal("unexpected pluralized summary_usages table")
	}
	ok, err := store.Usage.Reserve(context.Background(), "u1", "2026-03", 3, time.Now())
	if err != nil || !ok {
		t.Fatalf("first reserve: ok=%v err=%v", ok, err)
	}
}

func TestClassifyMarksLockedAsTransient(t *testing.T) {
	err := db.Classify(errors.New("database is locked (5) (SQLITE_BUSY)"))
	if !apperr.IsTransient(err) {
		t.Fatalf("expected transient, got %v", err)
	}
	if apperr.IsTransient(db.Classify(errors.New("syntax error"))) {
		t.Fatal("syntax errors are not transient")
	}
}
