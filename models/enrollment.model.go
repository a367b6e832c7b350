package models

import (
	"time"

	"gorm.io/gorm"
)

// Enrollment tracks a user's access to one course with derived progress.
// Progress fields are recomputed from the completed episode set, never
// incremented, so retries stay correct.
type Enrollment struct {
	gorm.Model
	UserID            uint       `json:"user_id" gorm:"not null;uniqueIndex:idx_enroll_user_course"`
	CourseID          uint       `json:"course_id" gorm:"not null;uniqueIndex:idx_enroll_user_course"`
	Status            string     `json:"status" gorm:"default:'ENROLLED'"` // ENROLLED, IN_PROGRESS, COMPLETED
	Progress          float64    `json:"progress" gorm:"default:0"`        // 0-100
	CompletedEpisodes int        `json:"completed_episodes" gorm:"default:0"`
	TotalEpisodes     int        `json:"total_episodes" gorm:"default:0"`
	CompletedAt       *time.Time `json:"completed_at"`
	ActivatedViaKey   string     `json:"activated_via_key"` // key code that created this enrollment, empty for direct/admin enrollment
	IsDeleted         bool       `gorm:"default:false"`
}

// EpisodeProgress tracks watch time and completion for one (user, episode).
// WatchedSeconds is monotonic.
type EpisodeProgress struct {
	gorm.Model
	UserID         uint      `json:"user_id" gorm:"not null;uniqueIndex:idx_user_episode"`
	EpisodeID      uint      `json:"episode_id" gorm:"not null;uniqueIndex:idx_user_episode"`
	CourseID       uint      `json:"course_id" gorm:"index;not null"`
	WatchedSeconds int       `json:"watched_seconds" gorm:"default:0"`
	IsCompleted    bool      `json:"is_completed" gorm:"default:false"`
	LastWatchedAt  time.Time `json:"last_watched_at"`
	IsDeleted      bool      `gorm:"default:false"`
}
