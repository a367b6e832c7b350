package subscription

import (
	"academy/models"
	"academy/services/apperror"
	"time"

	"github.com/jinzhu/now"
	"gorm.io/gorm"
)

// Ledger owns the per-user feature subscriptions: grant/renew on key
// activation, lazy expiry on read, guarded quota consumption, revocation.
type Ledger struct {
	db *gorm.DB
}

func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

func validFeature(feature string) bool {
	return feature == models.FeatureAiAssistant || feature == models.FeatureRecommendation
}

// GetActive returns the active subscription for (user, feature), applying
// lazy usage-gated expiry: a row past EndDate is flipped inactive only
// once at least one quota unit has been consumed. A dormant expired row
// with zero usage keeps reporting active; the clock effectively starts
// counting against the user once usage starts. Do not tighten this to
// strict expiry, it is product behavior.
func (l *Ledger) GetActive(userID uint, feature string) (*models.FeatureSubscription, error) {
	if !validFeature(feature) {
		return nil, apperror.BadRequest("Unknown feature!")
	}

	var sub models.FeatureSubscription
	err := l.db.Where("user_id = ? AND feature = ? AND is_active = ? AND is_deleted = ?",
		userID, feature, true, false).First(&sub).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, apperror.Internal("subscription lookup failed: %v", err)
	}

	if sub.EndDate.Before(time.Now()) && sub.MessagesUsed > 0 {
		if err := l.db.Model(&sub).Update("is_active", false).Error; err != nil {
			return nil, apperror.Internal("subscription expiry failed: %v", err)
		}
		return nil, nil
	}

	return &sub, nil
}

// GrantOrRefresh creates the subscription on first activation and renews
// it in place on later ones: dates and counters reset, no second row is
// stacked.
func (l *Ledger) GrantOrRefresh(userID uint, feature string, durationDays, quota int, paymentStatus string) (*models.FeatureSubscription, error) {
	if !validFeature(feature) {
		return nil, apperror.BadRequest("Unknown feature!")
	}

	start := time.Now()
	end := now.New(start.AddDate(0, 0, durationDays)).EndOfDay()

	var sub models.FeatureSubscription
	err := l.db.Where("user_id = ? AND feature = ? AND is_active = ? AND is_deleted = ?",
		userID, feature, true, false).First(&sub).Error
	if err == nil {
		updates := map[string]interface{}{
			"start_date":     start,
			"end_date":       end,
			"messages_used":  0,
			"messages_limit": quota,
			"payment_status": paymentStatus,
			"reminder_sent":  false,
		}
		if err := l.db.Model(&sub).Updates(updates).Error; err != nil {
			return nil, apperror.Internal("subscription refresh failed: %v", err)
		}
		sub.StartDate = start
		sub.EndDate = end
		sub.MessagesUsed = 0
		sub.MessagesLimit = quota
		sub.PaymentStatus = paymentStatus
		sub.ReminderSent = false
		return &sub, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, apperror.Internal("subscription lookup failed: %v", err)
	}

	sub = models.FeatureSubscription{
		UserID:        userID,
		Feature:       feature,
		IsActive:      true,
		StartDate:     start,
		EndDate:       end,
		PaymentStatus: paymentStatus,
		MessagesUsed:  0,
		MessagesLimit: quota,
	}
	if err := l.db.Create(&sub).Error; err != nil {
		return nil, apperror.Internal("subscription creation failed: %v", err)
	}
	return &sub, nil
}

// ConsumeUnit spends one quota unit. The limit check lives inside the
// UPDATE's WHERE clause so two concurrent calls cannot both pass a
// read-then-write check; the loser simply matches zero rows.
func (l *Ledger) ConsumeUnit(subscriptionID uint) error {
	res := l.db.Model(&models.FeatureSubscription{}).
		Where("id = ? AND is_active = ? AND is_deleted = ? AND messages_used < messages_limit",
			subscriptionID, true, false).
		UpdateColumn("messages_used", gorm.Expr("messages_used + 1"))
	if res.Error != nil {
		return apperror.Internal("quota update failed: %v", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperror.Forbidden("Message quota exhausted, please renew your subscription!")
	}
	return nil
}

// Revoke deactivates a subscription explicitly (admin action or a
// terminal condition such as a reassigned key).
func (l *Ledger) Revoke(subscriptionID uint) error {
	res := l.db.Model(&models.FeatureSubscription{}).
		Where("id = ? AND is_deleted = ?", subscriptionID, false).
		Update("is_active", false)
	if res.Error != nil {
		return apperror.Internal("subscription revoke failed: %v", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperror.NotFound("Subscription not found!")
	}
	return nil
}
