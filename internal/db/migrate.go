package db

import (
	"fmt"

	"github.com/balkashynov/wroklog/internal/models"
)

// Partial indexes carry the per-owner session invariants. Both SQLite and
// PostgreSQL accept this syntax.
var indexDDL = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_sessions_owner_active ON sessions (owner_id) WHERE status = 'active'`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_sessions_owner_day ON sessions (owner_id, start_day) WHERE status <> 'cancelled'`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_documents_owner_date ON documents (owner_id, log_date)`,
	`CREATE INDEX IF NOT EXISTS ix_sessions_owner_start ON sessions (owner_id, start_time)`,
}

// Migrate creates/updates the database schema
func (s *Store) Migrate() error {
	if err := s.DB.AutoMigrate(
		&models.Session{},
		&models.AutoStopSchedule{},
		&models.Document{},
		&models.DocumentVersion{},
		&models.SummaryUsage{},
	); err != nil {
		return err
	}
	for _, stmt := range indexDDL {
		if err := s.DB.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}
