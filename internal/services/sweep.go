package services

import (
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/stoqhq/stoq-backend/internal/models"
)

// StartSubscriptionSweep runs a daily goroutine that downgrades paid users
// whose subscription expiry has passed. The predicate matches the passive
// per-request check (plan=paid, expiry in the past, any status), so users
// stuck in past_due are caught here too.
func StartSubscriptionSweep(db *gorm.DB, done chan struct{}) {
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				result := db.Model(&models.User{}).
					Where("plan = ? AND subscription_expires_at IS NOT NULL AND subscription_expires_at < ?",
						models.PlanPaid, time.Now()).
					Updates(map[string]interface{}{
						"plan":                models.PlanFree,
						"subscription_status": models.SubscriptionExpired,
					})
				if result.Error != nil {
					slog.Error("subscription sweep failed", "error", result.Error)
				} else if result.RowsAffected > 0 {
					slog.Info("subscription sweep completed", "downgraded", result.RowsAffected)
				}
			case <-done:
				return
			}
		}
	}()
}
