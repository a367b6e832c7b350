package models

import "gorm.io/gorm"

// Analysis timeframe enum values. A SECOND timeframe analysis may only be
// requested once a FIRST timeframe analysis exists for the same user.
const (
	TimeframeFirst  = "FIRST"
	TimeframeSecond = "SECOND"
)

// AnalysisMessage is one exchange with the chart-analysis assistant.
// One quota unit of the AI_ASSISTANT subscription is consumed per row.
type AnalysisMessage struct {
	gorm.Model
	UserID    uint   `gorm:"not null;index" json:"userId"`
	Timeframe string `gorm:"type:varchar(10);not null" json:"timeframe"`
	Symbol    string `gorm:"type:varchar(30)" json:"symbol"`
	Prompt    string `gorm:"type:text" json:"prompt"`
	Response  string `gorm:"type:text" json:"response"`
	IsDeleted bool   `gorm:"default:false" json:"isDeleted"`
}

func (AnalysisMessage) TableName() string {
	return "analysis_messages"
}
