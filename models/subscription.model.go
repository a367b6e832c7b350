package models

import (
	"time"

	"gorm.io/gorm"
)

// Feature family enum values
const (
	FeatureAiAssistant    = "AI_ASSISTANT"
	FeatureRecommendation = "RECOMMENDATION"
)

// PaymentStatus enum values
const (
	PaymentStatusKey    = "KEY"    // granted through an activation key
	PaymentStatusDirect = "DIRECT" // direct purchase (disabled by default, see config)
)

// FeatureSubscription is a time- and quota-bound grant for one feature
// family. At most one active row exists per (user, feature); renewals
// refresh the row in place instead of stacking new ones.
//
// Expiry is lazy and usage-gated: a row past EndDate is only flipped
// inactive on read once MessagesUsed > 0. A dormant expired row with zero
// usage keeps reporting active. Intentional product behavior, do not
// switch to strict expiry here.
type FeatureSubscription struct {
	gorm.Model
	UserID        uint      `gorm:"not null;index:idx_user_feature" json:"userId"`
	Feature       string    `gorm:"type:varchar(20);not null;index:idx_user_feature" json:"feature"`
	IsActive      bool      `gorm:"default:true" json:"isActive"`
	StartDate     time.Time `gorm:"not null" json:"startDate"`
	EndDate       time.Time `gorm:"not null" json:"endDate"`
	PaymentStatus string    `gorm:"type:varchar(10);default:'KEY'" json:"paymentStatus"`
	MessagesUsed  int       `gorm:"default:0" json:"messagesUsed"`
	MessagesLimit int       `gorm:"default:0" json:"messagesLimit"`
	ReminderSent  bool      `gorm:"default:false" json:"reminderSent"` // expiry reminder email sent
	IsDeleted     bool      `gorm:"default:false" json:"isDeleted"`
}

func (FeatureSubscription) TableName() string {
	return "feature_subscriptions"
}
