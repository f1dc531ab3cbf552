package logging

import (
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/stoqhq/stoq-backend/internal/models"
)

const (
	systemLogRetention = 30  // days
	auditLogRetention  = 180 // days; webhook audit rows are kept longer for billing disputes
)

// StartCleanup runs a daily goroutine pruning aged rows from the system_logs
// and subscription_logs tables.
func StartCleanup(db *gorm.DB, done chan struct{}) {
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				prune(db, &models.SystemLog{}, "timestamp", systemLogRetention)
				prune(db, &models.SubscriptionLog{}, "created_at", auditLogRetention)
			case <-done:
				return
			}
		}
	}()
}

func prune(db *gorm.DB, model interface{}, column string, retentionDays int) {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	result := db.Where(column+" < ?", cutoff).Delete(model)
	if result.Error != nil {
		slog.Error("log cleanup failed", "error", result.Error)
	} else if result.RowsAffected > 0 {
		slog.Info("log cleanup completed", "deleted", result.RowsAffected)
	}
}
