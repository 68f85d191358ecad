// Package session implements the work session state machine.
//
// Invariants:
//   - an owner has at most one active session
//   - an owner has at most one non-cancelled session per UTC day
//   - completed and cancelled sessions never change
//
// Every mutation runs in a store transaction that re-checks these rules, and
// the partial unique indexes created by db.Migrate catch any race that slips
// past the check.
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/balkashynov/wroklog/internal/apperr"
	"github.com/balkashynov/wroklog/internal/clock"
	"github.com/balkashynov/wroklog/internal/db"
	"github.com/balkashynov/wroklog/internal/logger"
	"github.com/balkashynov/wroklog/internal/metrics"
	"github.com/balkashynov/wroklog/internal/models"
)

const (
	// MinDuration is the shortest session that may be completed.
	MinDuration = 4 * time.Hour
	// MaxManualDuration caps sessions entered after the fact.
	MaxManualDuration = 24 * time.Hour

	defaultPerPage = 20
	maxPerPage     = 100
)

// Disarmer drops in-process auto-stop state for a session that just ended.
type Disarmer interface {
	Disarm(sessionID string)
}

// ManualInput describes a completed session entered after the fact.
type ManualInput struct {
	Start    time.Time
	End      time.Time
	DeviceID string
}

// ListParams filters a session listing. Dates are "2006-01-02" in UTC.
type ListParams struct {
	Status   string
	FromDate string
	ToDate   string
	Page     int
	PerPage  int
}

// Page is one page of sessions.
type Page struct {
	Sessions []models.Session `json:"sessions"`
	Total    int64            `json:"total"`
	Page     int              `json:"page"`
	PerPage  int              `json:"per_page"`
}

// Manager owns session transitions.
type Manager struct {
	store *db.Store
	clock clock.Clock

	mu       sync.RWMutex
	disarmer Disarmer
}

// NewManager creates a Manager backed by store.
func NewManager(store *db.Store, clk clock.Clock) *Manager {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Manager{store: store, clock: clk}
}

// AttachScheduler registers the auto-stop scheduler so stops and cancels can
// drop its timers.
func (m *Manager) AttachScheduler(d Disarmer) {
	m.mu.Lock()
	m.disarmer = d
	m.mu.Unlock()
}

// Now returns the manager's current time.
func (m *Manager) Now() time.Time {
	return m.clock.Now()
}

func (m *Manager) disarm(sessionID string) {
	m.mu.RLock()
	d := m.disarmer
	m.mu.RUnlock()
	if d != nil {
		d.Disarm(sessionID)
	}
}

// Start opens a new active session for owner at the current time.
func (m *Manager) Start(ctx context.Context, ownerID, deviceID string) (*models.Session, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	now := m.clock.Now()
	day := models.UTCDay(now)
	session := &models.Session{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		StartTime: now,
		Status:    models.StatusActive,
		DeviceID:  strings.TrimSpace(deviceID),
		StartDay:  day,
	}

	err := m.store.Transaction(ctx, func(tx *db.Store) error {
		active, err := tx.Sessions.GetActive(ctx, ownerID)
		if err != nil {
			return err
		}
		if active != nil {
			return apperr.ErrConflictActive
		}
		taken, err := tx.Sessions.HasSessionOnDay(ctx, ownerID, day)
		if err != nil {
			return err
		}
		if taken {
			return apperr.ErrConflictDuplicateDay
		}
		return tx.Sessions.Create(ctx, session)
	})
	if db.IsUniqueViolation(err) {
		err = m.classifyStartConflict(ctx, ownerID, day, err)
	}
	if err != nil {
		m.reject(err)
		return nil, err
	}

	metrics.SessionTransitions.WithLabelValues("start").Inc()
	logger.Info("session started", "owner", ownerID, "session", session.ID, "start", now)
	return session, nil
}

// classifyStartConflict decides which invariant a racing insert violated.
func (m *Manager) classifyStartConflict(ctx context.Context, ownerID, day string, cause error) error {
	active, err := m.store.Sessions.GetActive(ctx, ownerID)
	if err == nil && active != nil {
		return apperr.With(apperr.ErrConflictActive, "", cause)
	}
	return apperr.With(apperr.ErrConflictDuplicateDay, "", cause)
}

// Stop completes the owner's active session at the given instant. Sessions
// shorter than MinDuration are rejected; there is no upper bound.
func (m *Manager) Stop(ctx context.Context, ownerID, sessionID string, at time.Time) (*models.Session, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	at = at.UTC()

	var stopped models.Session
	err := m.store.Transaction(ctx, func(tx *db.Store) error {
		session, err := tx.Sessions.Get(ctx, ownerID, sessionID)
		if err != nil {
			return err
		}
		if session == nil || session.IsTerminal() {
			return apperr.ErrSessionNotFound
		}
		if elapsed := at.Sub(session.StartTime); elapsed < MinDuration {
			return apperr.With(apperr.ErrTooShort,
				fmt.Sprintf("session must be at least 4 hours (elapsed %s)", elapsed.Truncate(time.Minute)), nil)
		}
		ok, err := tx.Sessions.Finish(ctx, session.ID, models.StatusCompleted, &at)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.ErrSessionNotFound
		}
		if err := tx.Schedules.Delete(ctx, session.ID); err != nil {
			return err
		}
		stopped = *session
		stopped.Status = models.StatusCompleted
		stopped.EndTime = &at
		stopped.ScheduledEnd = nil
		return nil
	})
	if err != nil {
		m.reject(err)
		return nil, err
	}

	m.disarm(sessionID)
	metrics.SessionTransitions.WithLabelValues("stop").Inc()
	logger.Info("session stopped", "owner", ownerID, "session", sessionID, "duration", stopped.Duration())
	return &stopped, nil
}

// CreateManual records a completed session entered after the fact.
func (m *Manager) CreateManual(ctx context.Context, ownerID string, in ManualInput) (*models.Session, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	start, end := in.Start.UTC(), in.End.UTC()
	if err := validateManual(start, end, m.clock.Now()); err != nil {
		m.reject(err)
		return nil, err
	}

	day := models.UTCDay(start)
	session := &models.Session{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		StartTime: start,
		EndTime:   &end,
		Status:    models.StatusCompleted,
		DeviceID:  strings.TrimSpace(in.DeviceID),
		StartDay:  day,
	}
	err := m.store.Transaction(ctx, func(tx *db.Store) error {
		taken, err := tx.Sessions.HasSessionOnDay(ctx, ownerID, day)
		if err != nil {
			return err
		}
		if taken {
			return apperr.ErrConflictDuplicateDay
		}
		return tx.Sessions.Create(ctx, session)
	})
	if db.IsUniqueViolation(err) {
		err = apperr.With(apperr.ErrConflictDuplicateDay, "", err)
	}
	if err != nil {
		m.reject(err)
		return nil, err
	}

	metrics.SessionTransitions.WithLabelValues("manual").Inc()
	logger.Info("manual session recorded", "owner", ownerID, "session", session.ID, "day", day)
	return session, nil
}

func validateManual(start, end, now time.Time) error {
	if !end.After(start) {
		return apperr.ErrInvalidRange
	}
	duration := end.Sub(start)
	if duration < MinDuration {
		return apperr.ErrTooShort
	}
	if duration > MaxManualDuration {
		return apperr.ErrTooLong
	}
	if end.After(now) {
		return apperr.ErrFutureEnd
	}
	return nil
}

// Cancel abandons the owner's active session. The day becomes free again.
func (m *Manager) Cancel(ctx context.Context, ownerID, sessionID string) (*models.Session, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	var cancelled models.Session
	err := m.store.Transaction(ctx, func(tx *db.Store) error {
		session, err := tx.Sessions.Get(ctx, ownerID, sessionID)
		if err != nil {
			return err
		}
		if session == nil || session.IsTerminal() {
			return apperr.ErrSessionNotFound
		}
		ok, err := tx.Sessions.Finish(ctx, session.ID, models.StatusCancelled, nil)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.ErrSessionNotFound
		}
		if err := tx.Schedules.Delete(ctx, session.ID); err != nil {
			return err
		}
		cancelled = *session
		cancelled.Status = models.StatusCancelled
		cancelled.ScheduledEnd = nil
		return nil
	})
	if err != nil {
		m.reject(err)
		return nil, err
	}

	m.disarm(sessionID)
	metrics.SessionTransitions.WithLabelValues("cancel").Inc()
	logger.Info("session cancelled", "owner", ownerID, "session", sessionID)
	return &cancelled, nil
}

// GetActive returns the owner's active session, or nil when there is none.
func (m *Manager) GetActive(ctx context.Context, ownerID string) (*models.Session, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	return m.store.Sessions.GetActive(ctx, ownerID)
}

// Get returns one of the owner's sessions.
func (m *Manager) Get(ctx context.Context, ownerID, sessionID string) (*models.Session, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	session, err := m.store.Sessions.Get(ctx, ownerID, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, apperr.ErrNotFound
	}
	return session, nil
}

// List returns a page of the owner's sessions, newest first.
func (m *Manager) List(ctx context.Context, ownerID string, p ListParams) (*Page, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	filter, page, perPage, err := p.filter()
	if err != nil {
		return nil, err
	}
	sessions, total, err := m.store.Sessions.List(ctx, ownerID, filter)
	if err != nil {
		return nil, err
	}
	if sessions == nil {
		sessions = []models.Session{}
	}
	return &Page{Sessions: sessions, Total: total, Page: page, PerPage: perPage}, nil
}

func (p ListParams) filter() (db.SessionFilter, int, int, error) {
	page, perPage := p.Page, p.PerPage
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}

	f := db.SessionFilter{Limit: perPage, Offset: (page - 1) * perPage}
	switch status := models.SessionStatus(strings.ToLower(p.Status)); status {
	case "", models.StatusActive, models.StatusCompleted, models.StatusCancelled:
		f.Status = status
	default:
		return f, 0, 0, apperr.With(apperr.ErrInvalidInput, fmt.Sprintf("unknown status %q", p.Status), nil)
	}
	for _, d := range []string{p.FromDate, p.ToDate} {
		if d == "" {
			continue
		}
		if _, err := time.Parse(models.DayLayout, d); err != nil {
			return f, 0, 0, apperr.With(apperr.ErrInvalidInput, fmt.Sprintf("invalid date %q, want YYYY-MM-DD", d), err)
		}
	}
	f.FromDate, f.ToDate = p.FromDate, p.ToDate
	return f, page, perPage, nil
}

func (m *Manager) reject(err error) {
	metrics.SessionRejections.WithLabelValues(apperr.CodeOf(err)).Inc()
}

func requireOwner(ownerID string) error {
	if strings.TrimSpace(ownerID) == "" {
		return apperr.With(apperr.ErrInvalidInput, "owner id is required", nil)
	}
	return nil
}
