package db

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/balkashynov/wroklog/internal/models"
)

// SessionStore persists work sessions.
type SessionStore struct {
	db *gorm.DB
}

// SessionFilter narrows a session listing. Dates are inclusive UTC day keys.
type SessionFilter struct {
	Status   models.SessionStatus
	FromDate string
	ToDate   string
	Limit    int
	Offset   int
}

// Create inserts a new session row.
func (s *SessionStore) Create(ctx context.Context, session *models.Session) error {
	return Classify(s.db.WithContext(ctx).Create(session).Error)
}

// GetActive returns the owner's active session, if any
func (s *SessionStore) GetActive(ctx context.Context, ownerID string) (*models.Session, error) {
	var session models.Session
	err := s.db.WithContext(ctx).
		Where("owner_id = ? AND status = ?", ownerID, models.StatusActive).
		Limit(1).Find(&session).Error
	if err != nil {
		return nil, Classify(err)
	}
	if session.ID == "" {
		return nil, nil // No active session is not an error
	}
	return &session, nil
}

// Get returns the owner's session with the given id, or nil.
func (s *SessionStore) Get(ctx context.Context, ownerID, id string) (*models.Session, error) {
	var session models.Session
	err := s.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Limit(1).Find(&session).Error
	if err != nil {
		return nil, Classify(err)
	}
	if session.ID == "" {
		return nil, nil
	}
	return &session, nil
}

// HasSessionOnDay reports whether the owner has a non-cancelled session
// starting on day.
func (s *SessionStore) HasSessionOnDay(ctx context.Context, ownerID, day string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Session{}).
		Where("owner_id = ? AND start_day = ? AND status <> ?", ownerID, day, models.StatusCancelled).
		Count(&count).Error
	if err != nil {
		return false, Classify(err)
	}
	return count > 0, nil
}

// Finish moves an active session to a terminal status. It reports false when
// the row was no longer active, so terminal sessions are never rewritten.
func (s *SessionStore) Finish(ctx context.Context, id string, status models.SessionStatus, end *time.Time) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.Session{}).
		Where("id = ? AND status = ?", id, models.StatusActive).
		Updates(map[string]interface{}{
			"status":        status,
			"end_time":      end,
			"scheduled_end": nil,
		})
	if res.Error != nil {
		return false, Classify(res.Error)
	}
	return res.RowsAffected == 1, nil
}

// SetScheduledEnd mirrors the armed auto-stop instant on an active session.
func (s *SessionStore) SetScheduledEnd(ctx context.Context, id string, at *time.Time) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.Session{}).
		Where("id = ? AND status = ?", id, models.StatusActive).
		Update("scheduled_end", at)
	if res.Error != nil {
		return false, Classify(res.Error)
	}
	return res.RowsAffected == 1, nil
}

// List returns the owner's sessions, newest first, and the unpaged total.
func (s *SessionStore) List(ctx context.Context, ownerID string, f SessionFilter) ([]models.Session, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Session{}).Where("owner_id = ?", ownerID)
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if f.FromDate != "" {
		query = query.Where("start_day >= ?", f.FromDate)
	}
	if f.ToDate != "" {
		query = query.Where("start_day <= ?", f.ToDate)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, Classify(err)
	}

	var sessions []models.Session
	query = query.Order("start_time DESC")
	if f.Limit > 0 {
		query = query.Limit(f.Limit).Offset(f.Offset)
	}
	if err := query.Find(&sessions).Error; err != nil {
		return nil, 0, Classify(err)
	}
	return sessions, total, nil
}
