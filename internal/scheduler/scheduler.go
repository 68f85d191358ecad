// Package scheduler arms durable auto-stops for active sessions.
//
// Each armed auto-stop is a row in auto_stop_schedules plus one in-process
// timer. Recover rebuilds timers after a restart and Run sweeps for due rows
// that no local timer covers.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/balkashynov/wroklog/internal/apperr"
	"github.com/balkashynov/wroklog/internal/clock"
	"github.com/balkashynov/wroklog/internal/db"
	"github.com/balkashynov/wroklog/internal/logger"
	"github.com/balkashynov/wroklog/internal/metrics"
	"github.com/balkashynov/wroklog/internal/models"
)

const (
	// MinLead is the shortest session an auto-stop may produce.
	MinLead = 4 * time.Hour
	// MaxLead is the longest session an auto-stop may produce.
	MaxLead = 24 * time.Hour

	defaultSweepInterval = time.Minute
	defaultRetryBackoff  = 500 * time.Millisecond
	fireTimeout          = 30 * time.Second
)

// Stopper completes a session exactly as a user-initiated stop would.
type Stopper interface {
	Stop(ctx context.Context, ownerID, sessionID string, at time.Time) (*models.Session, error)
}

// Outcome describes what a firing did.
type Outcome string

const (
	OutcomeStopped  Outcome = "stopped"
	OutcomeTooShort Outcome = "too_short"
	OutcomeNoop     Outcome = "noop"
	OutcomeNotDue   Outcome = "not_due"
	OutcomeDeferred Outcome = "deferred"
	OutcomeError    Outcome = "error"
)

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithSweepInterval sets how often Run scans for due schedules.
func WithSweepInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.sweepInterval = d
		}
	}
}

// WithRetryBackoff sets the pause before the single transient retry.
func WithRetryBackoff(d time.Duration) Option {
	return func(s *Scheduler) {
		if d >= 0 {
			s.retryBackoff = d
		}
	}
}

type armed struct {
	timer clock.Timer
}

// Scheduler owns the auto-stop timers of this process.
type Scheduler struct {
	store         *db.Store
	stopper       Stopper
	clock         clock.Clock
	sweepInterval time.Duration
	retryBackoff  time.Duration

	mu     sync.Mutex
	timers map[string]*armed
}

// New creates a Scheduler. Callers normally attach it to the session
// manager so stops and cancels disarm its timers.
func New(store *db.Store, stopper Stopper, clk clock.Clock, opts ...Option) *Scheduler {
	if clk == nil {
		clk = clock.Real{}
	}
	s := &Scheduler{
		store:         store,
		stopper:       stopper,
		clock:         clk,
		sweepInterval: defaultSweepInterval,
		retryBackoff:  defaultRetryBackoff,
		timers:        make(map[string]*armed),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Arm schedules the owner's active session to stop at fireAt, replacing any
// earlier schedule for it.
func (s *Scheduler) Arm(ctx context.Context, ownerID, sessionID string, fireAt time.Time) (*models.Session, error) {
	fireAt = fireAt.UTC()
	now := s.clock.Now()
	row := &models.AutoStopSchedule{SessionID: sessionID, OwnerID: ownerID, FireAt: fireAt, ArmedAt: now}

	var session *models.Session
	err := s.store.Transaction(ctx, func(tx *db.Store) error {
		var err error
		session, err = tx.Sessions.Get(ctx, ownerID, sessionID)
		if err != nil {
			return err
		}
		if session == nil || session.Status != models.StatusActive {
			return apperr.ErrSessionNotFound
		}
		if err := validateFireAt(session.StartTime, fireAt, now); err != nil {
			return err
		}
		if err := tx.Schedules.Upsert(ctx, row); err != nil {
			return err
		}
		if _, err := tx.Sessions.SetScheduledEnd(ctx, sessionID, &fireAt); err != nil {
			return err
		}
		session.ScheduledEnd = &fireAt
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.arm(row)
	logger.Info("auto-stop armed", "owner", ownerID, "session", sessionID, "fire_at", fireAt)
	return session, nil
}

func validateFireAt(start, fireAt, now time.Time) error {
	if !fireAt.After(now) {
		return apperr.With(apperr.ErrInvalidSchedule, "auto-stop time must be in the future", nil)
	}
	lead := fireAt.Sub(start)
	if lead < MinLead {
		return apperr.With(apperr.ErrInvalidSchedule, "auto-stop must be at least 4 hours after session start", nil)
	}
	if lead > MaxLead {
		return apperr.With(apperr.ErrInvalidSchedule, "auto-stop cannot be more than 24 hours after session start", nil)
	}
	return nil
}

// Cancel removes the auto-stop for a session. Cancelling a session that has
// no schedule succeeds.
func (s *Scheduler) Cancel(ctx context.Context, ownerID, sessionID string) error {
	err := s.store.Transaction(ctx, func(tx *db.Store) error {
		session, err := tx.Sessions.Get(ctx, ownerID, sessionID)
		if err != nil {
			return err
		}
		if session == nil {
			return apperr.ErrSessionNotFound
		}
		if err := tx.Schedules.Delete(ctx, sessionID); err != nil {
			return err
		}
		_, err = tx.Sessions.SetScheduledEnd(ctx, sessionID, nil)
		return err
	})
	if err != nil {
		return err
	}
	s.Disarm(sessionID)
	logger.Info("auto-stop cancelled", "owner", ownerID, "session", sessionID)
	return nil
}

// Schedule returns the armed auto-stop for one of the owner's sessions.
func (s *Scheduler) Schedule(ctx context.Context, ownerID, sessionID string) (*models.AutoStopSchedule, error) {
	session, err := s.store.Sessions.Get(ctx, ownerID, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, apperr.ErrSessionNotFound
	}
	row, err := s.store.Schedules.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if row == nil || row.OwnerID != ownerID {
		return nil, apperr.With(apperr.ErrNotFound, "no auto-stop scheduled", nil)
	}
	return row, nil
}

// Disarm stops the in-process timer for a session, if any.
func (s *Scheduler) Disarm(sessionID string) {
	s.mu.Lock()
	entry, ok := s.timers[sessionID]
	delete(s.timers, sessionID)
	count := len(s.timers)
	s.mu.Unlock()
	if ok && entry.timer != nil {
		entry.timer.Stop()
	}
	metrics.AutoStopArmed.Set(float64(count))
}

// DisarmAll stops every in-process timer and leaves the durable rows for the
// next Recover.
func (s *Scheduler) DisarmAll() {
	s.mu.Lock()
	timers := s.timers
	s.timers = make(map[string]*armed)
	s.mu.Unlock()
	for _, entry := range timers {
		if entry.timer != nil {
			entry.timer.Stop()
		}
	}
	metrics.AutoStopArmed.Set(0)
}

// Armed reports how many in-process timers are waiting.
func (s *Scheduler) Armed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

func (s *Scheduler) arm(row *models.AutoStopSchedule) {
	s.Disarm(row.SessionID)

	entry := &armed{}
	s.mu.Lock()
	s.timers[row.SessionID] = entry
	count := len(s.timers)
	s.mu.Unlock()
	metrics.AutoStopArmed.Set(float64(count))

	sessionID := row.SessionID
	timer := s.clock.AfterFunc(row.FireAt.Sub(s.clock.Now()), func() {
		if !s.release(sessionID, entry) {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), fireTimeout)
		defer cancel()
		s.fire(ctx, sessionID)
	})

	s.mu.Lock()
	if s.timers[sessionID] == entry {
		entry.timer = timer
	}
	s.mu.Unlock()
}

// release claims a timer entry for firing. A replaced or disarmed entry
// reports false.
func (s *Scheduler) release(sessionID string, entry *armed) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timers[sessionID] != entry {
		return false
	}
	delete(s.timers, sessionID)
	metrics.AutoStopArmed.Set(float64(len(s.timers)))
	return true
}

// Recover loads every durable schedule at startup. Stale rows are dropped,
// overdue rows fire immediately and the rest get timers. It returns how
// many sessions were stopped.
func (s *Scheduler) Recover(ctx context.Context) (int, error) {
	rows, err := s.store.Schedules.All(ctx)
	if err != nil {
		return 0, fmt.Errorf("load schedules: %w", err)
	}

	now := s.clock.Now()
	fired, armedCount := 0, 0
	for i := range rows {
		row := rows[i]
		session, err := s.store.Sessions.Get(ctx, row.OwnerID, row.SessionID)
		if err != nil {
			return fired, fmt.Errorf("load session %s: %w", row.SessionID, err)
		}
		if session == nil || session.Status != models.StatusActive {
			if err := s.store.Schedules.Delete(ctx, row.SessionID); err != nil {
				return fired, err
			}
			logger.Debug("dropped stale auto-stop", "session", row.SessionID)
			continue
		}
		if !row.FireAt.After(now) {
			if s.fire(ctx, row.SessionID) == OutcomeStopped {
				fired++
			}
			continue
		}
		s.arm(&row)
		armedCount++
	}

	logger.Info("auto-stop recovery complete", "schedules", len(rows), "fired", fired, "armed", armedCount)
	return fired, nil
}

// Run sweeps for due schedules until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("auto-stop sweep failed", "error", err)
			}
		}
	}
}

// Sweep fires every schedule that is due and returns how many sessions it
// stopped.
func (s *Scheduler) Sweep(ctx context.Context) (int, error) {
	rows, err := s.store.Schedules.Due(ctx, s.clock.Now())
	if err != nil {
		return 0, err
	}
	stopped := 0
	for _, row := range rows {
		if ctx.Err() != nil {
			return stopped, ctx.Err()
		}
		if s.fire(ctx, row.SessionID) == OutcomeStopped {
			stopped++
		}
	}
	return stopped, nil
}

// fire re-reads the durable row and stops the session at
// min(now, fire_at). Transient failures get one retry; after that the row
// stays for the next sweep.
func (s *Scheduler) fire(ctx context.Context, sessionID string) Outcome {
	var outcome Outcome
	for attempt := 0; attempt < 2; attempt++ {
		var err error
		outcome, err = s.fireOnce(ctx, sessionID)
		if err == nil || !apperr.IsTransient(err) {
			break
		}
		outcome = OutcomeDeferred
		if attempt == 0 {
			logger.Warn("auto-stop hit a transient error, retrying", "session", sessionID, "error", err)
			if s.retryBackoff > 0 {
				select {
				case <-ctx.Done():
					return OutcomeDeferred
				case <-time.After(s.retryBackoff):
				}
			}
			continue
		}
		logger.Warn("auto-stop deferred to next sweep", "session", sessionID, "error", err)
	}
	metrics.AutoStopFirings.WithLabelValues(string(outcome)).Inc()
	return outcome
}

func (s *Scheduler) fireOnce(ctx context.Context, sessionID string) (Outcome, error) {
	row, err := s.store.Schedules.Get(ctx, sessionID)
	if err != nil {
		return OutcomeError, err
	}
	if row == nil {
		return OutcomeNoop, nil
	}

	now := s.clock.Now()
	if row.FireAt.After(now) {
		// Re-armed to a later instant since this timer was set.
		s.arm(row)
		return OutcomeNotDue, nil
	}
	at := row.FireAt
	if now.Before(at) {
		at = now
	}

	_, err = s.stopper.Stop(ctx, row.OwnerID, row.SessionID, at)
	switch {
	case err == nil:
		logger.Info("auto-stop fired", "owner", row.OwnerID, "session", row.SessionID, "at", at)
		return OutcomeStopped, nil
	case errors.Is(err, apperr.ErrTooShort):
		logger.Warn("auto-stop rejected, session too short; dropping schedule",
			"owner", row.OwnerID, "session", row.SessionID, "at", at)
		return OutcomeTooShort, s.drop(ctx, row.SessionID)
	case apperr.KindOf(err) == apperr.KindNotFound:
		logger.Debug("auto-stop for inactive session ignored", "session", row.SessionID)
		return OutcomeNoop, s.drop(ctx, row.SessionID)
	case apperr.IsTransient(err):
		return OutcomeDeferred, err
	default:
		logger.Error("auto-stop failed", "owner", row.OwnerID, "session", row.SessionID, "error", err)
		return OutcomeError, err
	}
}

func (s *Scheduler) drop(ctx context.Context, sessionID string) error {
	s.Disarm(sessionID)
	return s.store.Transaction(ctx, func(tx *db.Store) error {
		if err := tx.Schedules.Delete(ctx, sessionID); err != nil {
			return err
		}
		_, err := tx.Sessions.SetScheduledEnd(ctx, sessionID, nil)
		return err
	})
}
