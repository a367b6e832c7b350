package models

import "gorm.io/gorm"

// RecommendationAction enum values
const (
	ActionBuy     = "BUY"
	ActionSell    = "SELL"
	ActionHold    = "HOLD"
	ActionGeneral = "GENERAL"
)

// Recommendation is one post on the trade-recommendation feed. Reading
// the feed requires an active RECOMMENDATION subscription (or publisher
// flag or admin); posting requires the publisher flag or admin.
type Recommendation struct {
	gorm.Model
	AuthorID  uint   `gorm:"not null;index" json:"authorId"`
	Symbol    string `gorm:"type:varchar(30)" json:"symbol"`
	Action    string `gorm:"type:varchar(20);default:'GENERAL'" json:"action"`
	Title     string `json:"title"`
	Message   string `gorm:"type:text;not null" json:"message"`
	IsDeleted bool   `gorm:"default:false" json:"isDeleted"`
}

func (Recommendation) TableName() string {
	return "recommendations"
}
