package db

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/balkashynov/wroklog/internal/models"
)

// ScheduleStore persists armed auto-stops so they survive restarts.
type ScheduleStore struct {
	db *gorm.DB
}

// Upsert stores the single schedule row for a session, replacing any earlier one.
func (s *ScheduleStore) Upsert(ctx context.Context, row *models.AutoStopSchedule) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"fire_at", "armed_at", "owner_id"}),
	}).Create(row).Error
	return Classify(err)
}

// Get returns the schedule for a session, or nil.
func (s *ScheduleStore) Get(ctx context.Context, sessionID string) (*models.AutoStopSchedule, error) {
	var row models.AutoStopSchedule
	err := s.db.WithContext(ctx).Where("session_id = ?", sessionID).Limit(1).Find(&row).Error
	if err != nil {
		return nil, Classify(err)
	}
	if row.SessionID == "" {
		return nil, nil
	}
	return &row, nil
}

// Delete removes the schedule for a session. Missing rows are not an error.
func (s *ScheduleStore) Delete(ctx context.Context, sessionID string) error {
	err := s.db.WithContext(ctx).Where("session_id = ?", sessionID).Delete(&models.AutoStopSchedule{}).Error
	return Classify(err)
}

// All returns every stored schedule ordered by fire time.
func (s *ScheduleStore) All(ctx context.Context) ([]models.AutoStopSchedule, error) {
	var rows []models.AutoStopSchedule
	err := s.db.WithContext(ctx).Order("fire_at ASC").Find(&rows).Error
	return rows, Classify(err)
}

// Due returns schedules whose fire time is at or before now.
func (s *ScheduleStore) Due(ctx context.Context, now time.Time) ([]models.AutoStopSchedule, error) {
	var rows []models.AutoStopSchedule
	err := s.db.WithContext(ctx).Where("fire_at <= ?", now.UTC()).Order("fire_at ASC").Find(&rows).Error
	return rows, Classify(err)
}
