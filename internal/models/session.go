package models

import (
	"time"
)

// SessionStatus is the lifecycle state of a work session
type SessionStatus string

const (
	StatusActive    SessionStatus = "active"
	StatusCompleted SessionStatus = "completed"
	StatusCancelled SessionStatus = "cancelled"
)

// DayLayout is the UTC calendar-day key format
const DayLayout = "2006-01-02"

// Session represents one contiguous work interval
type Session struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	OwnerID      string        `gorm:"not null;size:128;index" json:"owner_id"`
	StartTime    time.Time     `gorm:"not null" json:"start_time"`
	EndTime      *time.Time    `json:"end_time"`
	ScheduledEnd *time.Time    `json:"scheduled_end"`
	Status       SessionStatus `gorm:"not null;size:16;index" json:"status"`
	DeviceID     string        `gorm:"size:128" json:"device_id,omitempty"`

	// StartDay is the UTC date of StartTime, kept as a column so the
	// one-per-day rule can be a partial unique index.
	StartDay string `gorm:"not null;size:10" json:"start_day"`
}

// IsTerminal reports whether the session can no longer change
func (s *Session) IsTerminal() bool {
	return s.Status == StatusCompleted || s.Status == StatusCancelled
}

// Duration returns the recorded length of a finished session, or zero
func (s *Session) Duration() time.Duration {
	if s.EndTime == nil {
		return 0
	}
	return s.EndTime.Sub(s.StartTime)
}

// AutoStopSchedule is the durable record of an armed auto-stop
type AutoStopSchedule struct {
	SessionID string    `gorm:"primaryKey;size:36" json:"session_id"`
	OwnerID   string    `gorm:"not null;size:128;index" json:"owner_id"`
	FireAt    time.Time `gorm:"not null;index" json:"fire_at"`
	ArmedAt   time.Time `gorm:"not null" json:"armed_at"`
}

// SummaryUsage counts AI summaries consumed by one owner in one month
type SummaryUsage struct {
	OwnerID   string    `gorm:"primaryKey;size:128" json:"owner_id"`
	Month     string    `gorm:"primaryKey;size:7" json:"month"`
	Used      int       `gorm:"not null;default:0" json:"used"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName keeps the singular name used by the raw reservation statement.
func (SummaryUsage) TableName() string {
	return "summary_usage"
}

// UTCDay returns the calendar-day key of t in UTC
func UTCDay(t time.Time) string {
	return t.UTC().Format(DayLayout)
}
