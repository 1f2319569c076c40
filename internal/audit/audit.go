// Package audit persists the activity trail the admin endpoints read back.
package audit

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/marwanhub/factories-server/internal/logging"
	"github.com/marwanhub/factories-server/internal/models"
)

type Recorder struct {
	DB *gorm.DB
}

// Record writes one activity row. Failures are logged and swallowed: the
// audit trail must never fail the operation it describes.
func (r *Recorder) Record(ctx context.Context, level, module, message, username, ip string) {
	if r == nil || r.DB == nil {
		return
	}
	entry := models.ActivityLog{
		Level:     level,
		Module:    module,
		Message:   message,
		Username:  username,
		IPAddress: ip,
		CreatedAt: time.Now().UTC(),
	}
	if err := r.DB.WithContext(ctx).Create(&entry).Error; err != nil {
		logging.FromContext(ctx).Error("audit_write_failed", "error", err)
	}
}

// Recent returns the newest entries, capped at limit.
func (r *Recorder) Recent(ctx context.Context, limit int) ([]models.ActivityLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var entries []models.ActivityLog
	err := r.DB.WithContext(ctx).Order("id DESC").Limit(limit).Find(&entries).Error
	return entries, err
}
