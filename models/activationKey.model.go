package models

import (
	"time"

	"gorm.io/gorm"
)

// KeyKind enum values
const (
	KeyKindCourse         = "COURSE"
	KeyKindAiAssistant    = "AI_ASSISTANT"
	KeyKindRecommendation = "RECOMMENDATION"
)

// ActivationKey is a single-use-per-email code granting one entitlement kind.
// A key binds to exactly one email on first successful activation and stays
// bound forever, even through deactivation.
type ActivationKey struct {
	gorm.Model
	Code           string     `gorm:"uniqueIndex;not null" json:"code"`
	Kind           string     `gorm:"type:varchar(20);not null;index" json:"kind"`
	TargetCourseID uint       `gorm:"default:0" json:"targetCourseId"` // only meaningful when Kind=COURSE
	BoundEmail     *string    `gorm:"index" json:"boundEmail"`
	ActivatedAt    *time.Time `json:"activatedAt"`
	IsActive       bool       `gorm:"default:true" json:"isActive"`
	CreatedBy      uint       `json:"createdBy"`
	Notes          string     `json:"notes"`
	BatchRef       string     `gorm:"index" json:"batchRef"` // shared by keys of one bulk issue
	ExpiresAt      *time.Time `json:"expiresAt"`
	IsDeleted      bool       `gorm:"default:false" json:"isDeleted"`
}

func (ActivationKey) TableName() string {
	return "activation_keys"
}
