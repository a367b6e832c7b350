package models

import "gorm.io/gorm"

// Quiz gates progression: passing the quiz for level N unlocks level N+1
// and is required before episode N+1 can be marked complete.
type Quiz struct {
	gorm.Model
	CourseID     uint   `json:"course_id" gorm:"not null;uniqueIndex:idx_quiz_course_level"`
	Level        int    `json:"level" gorm:"not null;uniqueIndex:idx_quiz_course_level"`
	Title        string `json:"title"`
	PassingScore int    `json:"passing_score" gorm:"default:50"` // percentage
	IsDeleted    bool   `gorm:"default:false"`
}

type QuizQuestion struct {
	gorm.Model
	QuizID     uint   `json:"quiz_id" gorm:"index;not null"`
	Prompt     string `json:"prompt" gorm:"type:text"`
	OrderIndex int    `json:"order_index" gorm:"default:0"`
	IsDeleted  bool   `gorm:"default:false"`
}

type QuizOption struct {
	gorm.Model
	QuestionID uint   `json:"question_id" gorm:"index;not null"`
	OptionText string `json:"option_text"`
	IsCorrect  bool   `json:"-" gorm:"default:false"`
	OrderIndex int    `json:"order_index" gorm:"default:0"`
	IsDeleted  bool   `gorm:"default:false"`
}

// QuizAttempt is an immutable record of one submission.
type QuizAttempt struct {
	gorm.Model
	UserID        uint `json:"user_id" gorm:"index;not null"`
	QuizID        uint `json:"quiz_id" gorm:"index;not null"`
	Score         int  `json:"score"` // percentage
	Passed        bool `json:"passed" gorm:"default:false"`
	AttemptNumber int  `json:"attempt_number" gorm:"default:1"`
	IsDeleted     bool `gorm:"default:false"`
}

// QuizAnswer records per-question correctness for one attempt.
type QuizAnswer struct {
	gorm.Model
	AttemptID      uint `json:"attempt_id" gorm:"index;not null"`
	QuestionID     uint `json:"question_id" gorm:"not null"`
	ChosenOptionID uint `json:"chosen_option_id"`
	IsCorrect      bool `json:"is_correct" gorm:"default:false"`
}

// QuizLevelProgress is the per-(user, course, level) mastery row.
// IsPassed and BestScore only ever move forward; a later low-scoring
// attempt never regresses either field.
type QuizLevelProgress struct {
	gorm.Model
	UserID     uint `json:"user_id" gorm:"not null;uniqueIndex:idx_user_course_level"`
	CourseID   uint `json:"course_id" gorm:"not null;uniqueIndex:idx_user_course_level"`
	Level      int  `json:"level" gorm:"not null;uniqueIndex:idx_user_course_level"`
	IsUnlocked bool `json:"is_unlocked" gorm:"default:false"`
	IsPassed   bool `json:"is_passed" gorm:"default:false"`
	BestScore  int  `json:"best_score" gorm:"default:0"`
	IsDeleted  bool `gorm:"default:false"`
}

func (QuizLevelProgress) TableName() string {
	return "quiz_level_progress"
}
