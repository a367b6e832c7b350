package progression

import (
	"academy/models"
	"academy/services/apperror"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Course{}, &models.Episode{}, &models.Enrollment{}, &models.EpisodeProgress{},
		&models.Quiz{}, &models.QuizQuestion{}, &models.QuizOption{},
		&models.QuizAttempt{}, &models.QuizAnswer{}, &models.QuizLevelProgress{},
	))
	return db
}

// seedCourse creates a published course with `episodes` episodes of the
// given duration and an enrollment for user 1.
func seedCourse(t *testing.T, db *gorm.DB, episodes, durationSeconds int) (uint, []models.Episode) {
	t.Helper()
	course := models.Course{Title: "Swing Trading Basics", IsPublished: true, Status: "ACTIVE"}
	require.NoError(t, db.Create(&course).Error)

	eps := make([]models.Episode, 0, episodes)
	for i := 1; i <= episodes; i++ {
		ep := models.Episode{
			CourseID:        course.ID,
			Title:           fmt.Sprintf("Episode %d", i),
			OrderIndex:      i,
			DurationSeconds: durationSeconds,
			IsPublished:     true,
		}
		require.NoError(t, db.Create(&ep).Error)
		eps = append(eps, ep)
	}

	enrollment := models.Enrollment{UserID: 1, CourseID: course.ID, Status: "ENROLLED", TotalEpisodes: episodes}
	require.NoError(t, db.Create(&enrollment).Error)
	return course.ID, eps
}

// seedQuiz creates a one-question quiz at the given level; option A is correct.
func seedQuiz(t *testing.T, db *gorm.DB, courseID uint, level, passingScore int) models.Quiz {
	t.Helper()
	quiz := models.Quiz{CourseID: courseID, Level: level, Title: fmt.Sprintf("Level %d quiz", level), PassingScore: passingScore}
	require.NoError(t, db.Create(&quiz).Error)
	question := models.QuizQuestion{QuizID: quiz.ID, Prompt: "What is a stop loss?"}
	require.NoError(t, db.Create(&question).Error)
	right := models.QuizOption{QuestionID: question.ID, OptionText: "An exit order", IsCorrect: true}
	wrong := models.QuizOption{QuestionID: question.ID, OptionText: "A broker fee"}
	require.NoError(t, db.Create(&right).Error)
	require.NoError(t, db.Create(&wrong).Error)
	return quiz
}

func quizAnswers(t *testing.T, db *gorm.DB, quizID uint, correct bool) []Answer {
	t.Helper()
	var question models.QuizQuestion
	require.NoError(t, db.Where("quiz_id = ?", quizID).First(&question).Error)
	var option models.QuizOption
	require.NoError(t, db.Where("question_id = ? AND is_correct = ?", question.ID, correct).First(&option).Error)
	return []Answer{{QuestionID: question.ID, OptionID: option.ID}}
}

func TestRequiredWatchSeconds(t *testing.T) {
	assert.Equal(t, 140, requiredWatchSeconds(200)) // 70% of 200
	assert.Equal(t, 60, requiredWatchSeconds(30))   // floor of 60s
	assert.Equal(t, 60, requiredWatchSeconds(0))
	assert.Equal(t, 63, requiredWatchSeconds(90))
}

func TestWatchProgressIsMonotonic(t *testing.T) {
	db := setupTestDB(t)
	tr := NewTracker(db)
	courseID, eps := seedCourse(t, db, 1, 600)

	p, err := tr.UpdateWatchProgress(1, courseID, eps[0].ID, 120)
	require.NoError(t, err)
	assert.Equal(t, 120, p.WatchedSeconds)

	// A replay from an earlier position keeps the high-water mark
	p, err = tr.UpdateWatchProgress(1, courseID, eps[0].ID, 40)
	require.NoError(t, err)
	assert.Equal(t, 120, p.WatchedSeconds)

	_, err = tr.UpdateWatchProgress(1, courseID, eps[0].ID, -5)
	assert.Equal(t, apperror.KindBadRequest, apperror.KindOf(err))
}

func TestEpisodeLockedUntilPreviousCompleted(t *testing.T) {
	db := setupTestDB(t)
	tr := NewTracker(db)
	courseID, eps := seedCourse(t, db, 2, 100)

	_, err := tr.UpdateWatchProgress(1, courseID, eps[1].ID, 10)
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))

	// Complete episode 1, then episode 2 opens
	_, err = tr.UpdateWatchProgress(1, courseID, eps[0].ID, 100)
	require.NoError(t, err)
	_, err = tr.MarkComplete(1, courseID, eps[0].ID)
	require.NoError(t, err)

	_, err = tr.UpdateWatchProgress(1, courseID, eps[1].ID, 10)
	require.NoError(t, err)
}

func TestMarkCompleteWatchGate(t *testing.T) {
	db := setupTestDB(t)
	tr := NewTracker(db)
	courseID, eps := seedCourse(t, db, 1, 200) // threshold 140s

	_, err := tr.UpdateWatchProgress(1, courseID, eps[0].ID, 50)
	require.NoError(t, err)
	_, err = tr.MarkComplete(1, courseID, eps[0].ID)
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))

	_, err = tr.UpdateWatchProgress(1, courseID, eps[0].ID, 140)
	require.NoError(t, err)
	enrollment, err := tr.MarkComplete(1, courseID, eps[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 1, enrollment.CompletedEpisodes)
	assert.Equal(t, 100.0, enrollment.Progress)
}

func TestMarkCompleteQuizGate(t *testing.T) {
	db := setupTestDB(t)
	tr := NewTracker(db)
	courseID, eps := seedCourse(t, db, 2, 200)
	quiz := seedQuiz(t, db, courseID, 1, 50)

	_, err := tr.UpdateWatchProgress(1, courseID, eps[0].ID, 140)
	require.NoError(t, err)
	_, err = tr.MarkComplete(1, courseID, eps[0].ID)
	require.NoError(t, err)

	// Episode 2 is unlocked and fully watched but level 1 is not passed
	_, err = tr.UpdateWatchProgress(1, courseID, eps[1].ID, 140)
	require.NoError(t, err)
	_, err = tr.MarkComplete(1, courseID, eps[1].ID)
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))

	result, err := tr.SubmitQuiz(1, courseID, 1, quizAnswers(t, db, quiz.ID, true))
	require.NoError(t, err)
	require.True(t, result.Passed)

	enrollment, err := tr.MarkComplete(1, courseID, eps[1].ID)
	require.NoError(t, err)
	assert.Equal(t, 2, enrollment.CompletedEpisodes)
	assert.Equal(t, "COMPLETED", enrollment.Status)
	assert.NotNil(t, enrollment.CompletedAt)
}

func TestMarkCompleteWithoutQuizConfigured(t *testing.T) {
	db := setupTestDB(t)
	tr := NewTracker(db)
	courseID, eps := seedCourse(t, db, 2, 100)

	_, err := tr.UpdateWatchProgress(1, courseID, eps[0].ID, 100)
	require.NoError(t, err)
	_, err = tr.MarkComplete(1, courseID, eps[0].ID)
	require.NoError(t, err)

	// No quiz exists for level 1, so the gate is waived
	_, err = tr.UpdateWatchProgress(1, courseID, eps[1].ID, 100)
	require.NoError(t, err)
	_, err = tr.MarkComplete(1, courseID, eps[1].ID)
	require.NoError(t, err)
}

func TestMarkCompleteIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	tr := NewTracker(db)
	courseID, eps := seedCourse(t, db, 2, 100)

	_, err := tr.UpdateWatchProgress(1, courseID, eps[0].ID, 100)
	require.NoError(t, err)

	first, err := tr.MarkComplete(1, courseID, eps[0].ID)
	require.NoError(t, err)
	second, err := tr.MarkComplete(1, courseID, eps[0].ID)
	require.NoError(t, err)

	// Recomputed, never incremented
	assert.Equal(t, first.CompletedEpisodes, second.CompletedEpisodes)
	assert.Equal(t, 50.0, second.Progress)
}

func TestQuizPassIsMonotonic(t *testing.T) {
	db := setupTestDB(t)
	tr := NewTracker(db)
	courseID, _ := seedCourse(t, db, 1, 100)
	quiz := seedQuiz(t, db, courseID, 1, 50)

	pass, err := tr.SubmitQuiz(1, courseID, 1, quizAnswers(t, db, quiz.ID, true))
	require.NoError(t, err)
	assert.True(t, pass.Passed)
	assert.Equal(t, 100, pass.Score)
	assert.Equal(t, 100, pass.BestScore)
	assert.False(t, pass.PassedBefore)

	// A later failing attempt regresses nothing
	fail, err := tr.SubmitQuiz(1, courseID, 1, quizAnswers(t, db, quiz.ID, false))
	require.NoError(t, err)
	assert.Equal(t, 0, fail.Score)
	assert.True(t, fail.Passed)
	assert.Equal(t, 100, fail.BestScore)
	assert.True(t, fail.PassedBefore)

	passed, err := tr.IsLevelPassed(1, courseID, 1)
	require.NoError(t, err)
	assert.True(t, passed)
}

func TestQuizAttemptsAreRecorded(t *testing.T) {
	db := setupTestDB(t)
	tr := NewTracker(db)
	courseID, _ := seedCourse(t, db, 1, 100)
	quiz := seedQuiz(t, db, courseID, 1, 50)

	first, err := tr.SubmitQuiz(1, courseID, 1, quizAnswers(t, db, quiz.ID, false))
	require.NoError(t, err)
	second, err := tr.SubmitQuiz(1, courseID, 1, quizAnswers(t, db, quiz.ID, true))
	require.NoError(t, err)
	assert.NotEqual(t, first.AttemptID, second.AttemptID)

	var attempts []models.QuizAttempt
	require.NoError(t, db.Where("user_id = ? AND quiz_id = ?", 1, quiz.ID).
		Order("attempt_number asc").Find(&attempts).Error)
	require.Len(t, attempts, 2)
	assert.Equal(t, 1, attempts[0].AttemptNumber)
	assert.False(t, attempts[0].Passed)
	assert.Equal(t, 2, attempts[1].AttemptNumber)
	assert.True(t, attempts[1].Passed)
}

func TestQuizLevelSequencing(t *testing.T) {
	db := setupTestDB(t)
	tr := NewTracker(db)
	courseID, _ := seedCourse(t, db, 3, 100)
	quiz1 := seedQuiz(t, db, courseID, 1, 50)
	quiz2 := seedQuiz(t, db, courseID, 2, 50)

	// Level 2 is locked until level 1 is passed
	_, err := tr.SubmitQuiz(1, courseID, 2, quizAnswers(t, db, quiz2.ID, true))
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))

	_, err = tr.SubmitQuiz(1, courseID, 1, quizAnswers(t, db, quiz1.ID, true))
	require.NoError(t, err)

	unlocked, err := tr.IsLevelUnlocked(1, courseID, 2)
	require.NoError(t, err)
	assert.True(t, unlocked)

	_, err = tr.SubmitQuiz(1, courseID, 2, quizAnswers(t, db, quiz2.ID, true))
	require.NoError(t, err)
}

func TestSubmitQuizIgnoresDuplicateAndForeignAnswers(t *testing.T) {
	db := setupTestDB(t)
	tr := NewTracker(db)
	courseID, _ := seedCourse(t, db, 1, 100)
	quiz := seedQuiz(t, db, courseID, 1, 50)

	answers := quizAnswers(t, db, quiz.ID, true)
	answers = append(answers, answers[0])                          // duplicate question
	answers = append(answers, Answer{QuestionID: 999, OptionID: 1}) // unknown question

	result, err := tr.SubmitQuiz(1, courseID, 1, answers)
	require.NoError(t, err)
	assert.Equal(t, 100, result.Score)
}

func TestCourseState(t *testing.T) {
	db := setupTestDB(t)
	tr := NewTracker(db)
	courseID, eps := seedCourse(t, db, 3, 100)

	_, err := tr.UpdateWatchProgress(1, courseID, eps[0].ID, 100)
	require.NoError(t, err)
	_, err = tr.MarkComplete(1, courseID, eps[0].ID)
	require.NoError(t, err)

	states, err := tr.CourseState(1, courseID)
	require.NoError(t, err)
	require.Len(t, states, 3)

	assert.True(t, states[0].IsCompleted)
	assert.True(t, states[1].IsUnlocked)
	assert.False(t, states[1].IsCompleted)
	assert.False(t, states[2].IsUnlocked)
}
