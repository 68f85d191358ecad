package db

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/balkashynov/wroklog/internal/models"
)

// UsageStore counts monthly AI summary usage.
type UsageStore struct {
	db *gorm.DB
}

// reserveSQL increments the counter only while it is below the limit. A
// denied reservation affects zero rows.
const reserveSQL = `INSERT INTO summary_usage (owner_id, month, used, updated_at) VALUES (?, ?, 1, ?)
ON CONFLICT (owner_id, month) DO UPDATE SET used = summary_usage.used + 1, updated_at = excluded.updated_at
WHERE summary_usage.used < ?`

// Reserve consumes one unit of the owner's monthly allowance and reports
// whether it was granted.
func (s *UsageStore) Reserve(ctx context.Context, ownerID, month string, limit int, now time.Time) (bool, error) {
	if limit <= 0 {
		return false, nil
	}
	res := s.db.WithContext(ctx).Exec(reserveSQL, ownerID, month, now.UTC(), limit)
	if res.Error != nil {
		return false, Classify(res.Error)
	}
	return res.RowsAffected > 0, nil
}

// Used returns how many summaries the owner consumed in month.
func (s *UsageStore) Used(ctx context.Context, ownerID, month string) (int, error) {
	var row models.SummaryUsage
	err := s.db.WithContext(ctx).
		Where("owner_id = ? AND month = ?", ownerID, month).
		Limit(1).Find(&row).Error
	if err != nil {
		return 0, Classify(err)
	}
	return row.Used, nil
}

// Release returns one unit to the owner's allowance after a failed request.
func (s *UsageStore) Release(ctx context.Context, ownerID, month string, now time.Time) error {
	err := s.db.WithContext(ctx).Model(&models.SummaryUsage{}).
		Where("owner_id = ? AND month = ? AND used > 0", ownerID, month).
		Updates(map[string]interface{}{
			"used":       gorm.Expr("used - 1"),
			"updated_at": now.UTC(),
		}).Error
	return Classify(err)
}
