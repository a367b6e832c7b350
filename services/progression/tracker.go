package progression

import (
	"academy/models"
	"academy/services/apperror"
	"math"
	"time"

	"gorm.io/gorm"
)

// Tracker owns per-user course progression: sequential episode unlocking,
// watch-time gated completion, quiz mastery and the derived enrollment
// progress. Callers are expected to have verified course access first.
type Tracker struct {
	db *gorm.DB
}

func NewTracker(db *gorm.DB) *Tracker {
	return &Tracker{db: db}
}

// Minimum watched seconds before an episode can be completed:
// max(60, floor(0.7 * duration)).
func requiredWatchSeconds(durationSeconds int) int {
	required := (durationSeconds * 7) / 10
	if required < 60 {
		required = 60
	}
	return required
}

func (t *Tracker) findEpisode(courseID, episodeID uint) (*models.Episode, error) {
	var episode models.Episode
	err := t.db.Where("id = ? AND course_id = ? AND is_published = ? AND is_deleted = ?",
		episodeID, courseID, true, false).First(&episode).Error
	if err != nil {
		return nil, apperror.NotFound("Episode not found!")
	}
	return &episode, nil
}

// IsEpisodeUnlocked implements the sequential rule: episode 1 is always
// unlockable, episode N needs episode N-1 completed.
func (t *Tracker) IsEpisodeUnlocked(userID uint, episode *models.Episode) (bool, error) {
	if episode.OrderIndex <= 1 {
		return true, nil
	}

	var prev models.Episode
	err := t.db.Where("course_id = ? AND order_index = ? AND is_published = ? AND is_deleted = ?",
		episode.CourseID, episode.OrderIndex-1, true, false).First(&prev).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			// Gap in the sequence; nothing to complete, treat as open.
			return true, nil
		}
		return false, apperror.Internal("episode lookup failed: %v", err)
	}

	var count int64
	err = t.db.Model(&models.EpisodeProgress{}).
		Where("user_id = ? AND episode_id = ? AND is_completed = ? AND is_deleted = ?",
			userID, prev.ID, true, false).
		Count(&count).Error
	if err != nil {
		return false, apperror.Internal("progress lookup failed: %v", err)
	}
	return count > 0, nil
}

// UpdateWatchProgress records watch time for an unlocked episode.
// WatchedSeconds never decreases; a replay with a lower position keeps
// the high-water mark.
func (t *Tracker) UpdateWatchProgress(userID, courseID, episodeID uint, watchedSeconds int) (*models.EpisodeProgress, error) {
	if watchedSeconds < 0 {
		return nil, apperror.BadRequest("Watched seconds cannot be negative!")
	}

	episode, err := t.findEpisode(courseID, episodeID)
	if err != nil {
		return nil, err
	}

	unlocked, err := t.IsEpisodeUnlocked(userID, episode)
	if err != nil {
		return nil, err
	}
	if !unlocked {
		return nil, apperror.Forbidden("Complete the previous episode to unlock this one!")
	}

	progress, err := t.upsertProgress(userID, episode)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{"last_watched_at": time.Now()}
	if watchedSeconds > progress.WatchedSeconds {
		updates["watched_seconds"] = watchedSeconds
		progress.WatchedSeconds = watchedSeconds
	}
	if err := t.db.Model(progress).Updates(updates).Error; err != nil {
		return nil, apperror.Internal("progress update failed: %v", err)
	}
	return progress, nil
}

func (t *Tracker) upsertProgress(userID uint, episode *models.Episode) (*models.EpisodeProgress, error) {
	var progress models.EpisodeProgress
	err := t.db.Where("user_id = ? AND episode_id = ? AND is_deleted = ?", userID, episode.ID, false).
		First(&progress).Error
	if err == nil {
		return &progress, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, apperror.Internal("progress lookup failed: %v", err)
	}

	progress = models.EpisodeProgress{
		UserID:        userID,
		EpisodeID:     episode.ID,
		CourseID:      episode.CourseID,
		LastWatchedAt: time.Now(),
	}
	if err := t.db.Create(&progress).Error; err != nil {
		// Unique index on (user, episode); a concurrent insert won, reuse it.
		if ferr := t.db.Where("user_id = ? AND episode_id = ? AND is_deleted = ?", userID, episode.ID, false).
			First(&progress).Error; ferr != nil {
			return nil, apperror.Internal("progress creation failed: %v", err)
		}
	}
	return &progress, nil
}

// MarkComplete completes an episode once every gate holds, in order:
// the episode must be unlocked, the watch threshold met, and (for
// episodes past the first) the quiz for the previous level passed.
// On success the enrollment progress is recomputed from the completed
// set, never incremented, so retries stay correct.
func (t *Tracker) MarkComplete(userID, courseID, episodeID uint) (*models.Enrollment, error) {
	episode, err := t.findEpisode(courseID, episodeID)
	if err != nil {
		return nil, err
	}

	unlocked, err := t.IsEpisodeUnlocked(userID, episode)
	if err != nil {
		return nil, err
	}
	if !unlocked {
		return nil, apperror.Forbidden("Complete the previous episode to unlock this one!")
	}

	progress, err := t.upsertProgress(userID, episode)
	if err != nil {
		return nil, err
	}

	required := requiredWatchSeconds(episode.DurationSeconds)
	if progress.WatchedSeconds < required {
		return nil, apperror.Forbidden("Watch at least %d minutes of this episode to complete it!", (required+59)/60)
	}

	if episode.OrderIndex > 1 {
		level := episode.OrderIndex - 1
		gated, err := t.quizExists(courseID, level)
		if err != nil {
			return nil, err
		}
		if gated {
			passed, err := t.IsLevelPassed(userID, courseID, level)
			if err != nil {
				return nil, err
			}
			if !passed {
				return nil, apperror.Forbidden("Pass the level %d quiz before completing this episode!", level)
			}
		}
	}

	if !progress.IsCompleted {
		if err := t.db.Model(progress).Update("is_completed", true).Error; err != nil {
			return nil, apperror.Internal("completion update failed: %v", err)
		}
	}

	return t.recomputeEnrollment(userID, courseID)
}

// recomputeEnrollment derives completed count and percentage from the
// completed-episode rows and stamps CompletedAt once everything is done.
func (t *Tracker) recomputeEnrollment(userID, courseID uint) (*models.Enrollment, error) {
	var enrollment models.Enrollment
	err := t.db.Where("user_id = ? AND course_id = ? AND is_deleted = ?", userID, courseID, false).
		First(&enrollment).Error
	if err != nil {
		return nil, apperror.NotFound("Enrollment not found!")
	}

	var total int64
	t.db.Model(&models.Episode{}).
		Where("course_id = ? AND is_published = ? AND is_deleted = ?", courseID, true, false).
		Count(&total)

	var completed int64
	t.db.Model(&models.EpisodeProgress{}).
		Joins("JOIN episodes ON episodes.id = episode_progresses.episode_id").
		Where("episode_progresses.user_id = ? AND episode_progresses.course_id = ? AND episode_progresses.is_completed = ? AND episode_progresses.is_deleted = ?",
			userID, courseID, true, false).
		Where("episodes.is_published = ? AND episodes.is_deleted = ?", true, false).
		Count(&completed)

	percentage := 0.0
	if total > 0 {
		percentage = math.Round(float64(completed)/float64(total)*10000) / 100
	}

	updates := map[string]interface{}{
		"completed_episodes": completed,
		"total_episodes":     total,
		"progress":           percentage,
	}
	if completed > 0 && completed == total {
		if enrollment.CompletedAt == nil {
			done := time.Now()
			updates["completed_at"] = done
			enrollment.CompletedAt = &done
		}
		updates["status"] = "COMPLETED"
		enrollment.Status = "COMPLETED"
	} else if completed > 0 {
		updates["status"] = "IN_PROGRESS"
		enrollment.Status = "IN_PROGRESS"
	}

	if err := t.db.Model(&enrollment).Updates(updates).Error; err != nil {
		return nil, apperror.Internal("enrollment update failed: %v", err)
	}
	enrollment.CompletedEpisodes = int(completed)
	enrollment.TotalEpisodes = int(total)
	enrollment.Progress = percentage
	return &enrollment, nil
}

func (t *Tracker) quizExists(courseID uint, level int) (bool, error) {
	var count int64
	err := t.db.Model(&models.Quiz{}).
		Where("course_id = ? AND level = ? AND is_deleted = ?", courseID, level, false).
		Count(&count).Error
	if err != nil {
		return false, apperror.Internal("quiz lookup failed: %v", err)
	}
	return count > 0, nil
}

// IsLevelPassed reads the monotonic pass flag for (user, course, level).
func (t *Tracker) IsLevelPassed(userID, courseID uint, level int) (bool, error) {
	var progress models.QuizLevelProgress
	err := t.db.Where("user_id = ? AND course_id = ? AND level = ? AND is_deleted = ?",
		userID, courseID, level, false).First(&progress).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return false, nil
		}
		return false, apperror.Internal("quiz progress lookup failed: %v", err)
	}
	return progress.IsPassed, nil
}

// IsLevelUnlocked: level 1 is always unlocked; level N needs either its
// unlock flag set or level N-1 passed (the flag is derived state, the
// pass is the source of truth).
func (t *Tracker) IsLevelUnlocked(userID, courseID uint, level int) (bool, error) {
	if level <= 1 {
		return true, nil
	}

	var progress models.QuizLevelProgress
	err := t.db.Where("user_id = ? AND course_id = ? AND level = ? AND is_deleted = ?",
		userID, courseID, level, false).First(&progress).Error
	if err == nil && progress.IsUnlocked {
		return true, nil
	}
	if err != nil && err != gorm.ErrRecordNotFound {
		return false, apperror.Internal("quiz progress lookup failed: %v", err)
	}

	return t.IsLevelPassed(userID, courseID, level-1)
}

// Answer is one (question, chosen option) pair of a submission.
type Answer struct {
	QuestionID uint `json:"question_id"`
	OptionID   uint `json:"option_id"`
}

// QuizResult is what a submission returns to the caller.
type QuizResult struct {
	AttemptID    uint `json:"attempt_id"`
	Score        int  `json:"score"`
	Passed       bool `json:"passed"`
	BestScore    int  `json:"best_score"`
	PassedBefore bool `json:"passed_before"`
}

// SubmitQuiz scores a submission against the quiz for (course, level),
// stores the immutable attempt plus per-question correctness, and folds
// the result into the level progress row: IsPassed is a monotonic OR,
// BestScore a running max. Passing unlocks the next level idempotently.
func (t *Tracker) SubmitQuiz(userID, courseID uint, level int, answers []Answer) (*QuizResult, error) {
	var quiz models.Quiz
	err := t.db.Where("course_id = ? AND level = ? AND is_deleted = ?", courseID, level, false).
		First(&quiz).Error
	if err != nil {
		return nil, apperror.NotFound("Quiz not found!")
	}

	unlocked, err := t.IsLevelUnlocked(userID, courseID, level)
	if err != nil {
		return nil, err
	}
	if !unlocked {
		return nil, apperror.Forbidden("Pass the level %d quiz to unlock this one!", level-1)
	}

	var questions []models.QuizQuestion
	if err := t.db.Where("quiz_id = ? AND is_deleted = ?", quiz.ID, false).Find(&questions).Error; err != nil {
		return nil, apperror.Internal("quiz lookup failed: %v", err)
	}
	if len(questions) == 0 {
		return nil, apperror.NotFound("Quiz has no questions!")
	}

	questionIDs := make(map[uint]bool, len(questions))
	for _, q := range questions {
		questionIDs[q.ID] = true
	}

	// Correct option set, keyed by (question, option)
	var correctOptions []models.QuizOption
	if err := t.db.Where("question_id IN (?) AND is_correct = ? AND is_deleted = ?",
		keysOf(questionIDs), true, false).Find(&correctOptions).Error; err != nil {
		return nil, apperror.Internal("quiz lookup failed: %v", err)
	}
	correct := make(map[uint]uint, len(correctOptions)) // questionID -> correct optionID
	for _, opt := range correctOptions {
		correct[opt.QuestionID] = opt.ID
	}

	answered := make(map[uint]bool, len(answers))
	correctCount := 0
	graded := make([]models.QuizAnswer, 0, len(answers))
	for _, a := range answers {
		if !questionIDs[a.QuestionID] || answered[a.QuestionID] {
			continue
		}
		answered[a.QuestionID] = true
		isCorrect := correct[a.QuestionID] == a.OptionID
		if isCorrect {
			correctCount++
		}
		graded = append(graded, models.QuizAnswer{
			QuestionID:     a.QuestionID,
			ChosenOptionID: a.OptionID,
			IsCorrect:      isCorrect,
		})
	}

	score := int(math.Round(100 * float64(correctCount) / float64(len(questions))))
	passed := score >= quiz.PassingScore

	var attemptCount int64
	t.db.Model(&models.QuizAttempt{}).
		Where("user_id = ? AND quiz_id = ? AND is_deleted = ?", userID, quiz.ID, false).
		Count(&attemptCount)

	attempt := models.QuizAttempt{
		UserID:        userID,
		QuizID:        quiz.ID,
		Score:         score,
		Passed:        passed,
		AttemptNumber: int(attemptCount) + 1,
	}
	if err := t.db.Create(&attempt).Error; err != nil {
		return nil, apperror.Internal("attempt creation failed: %v", err)
	}
	for i := range graded {
		graded[i].AttemptID = attempt.ID
	}
	if len(graded) > 0 {
		if err := t.db.Create(&graded).Error; err != nil {
			return nil, apperror.Internal("answer recording failed: %v", err)
		}
	}

	result, err := t.foldAttempt(userID, courseID, level, score, passed)
	if err != nil {
		return nil, err
	}
	result.AttemptID = attempt.ID
	return result, nil
}

// foldAttempt applies the monotonic progress rules and, on a pass,
// unlocks the next level. Safe to run on every pass, not just the first.
func (t *Tracker) foldAttempt(userID, courseID uint, level, score int, passed bool) (*QuizResult, error) {
	progress, err := t.upsertLevelProgress(userID, courseID, level)
	if err != nil {
		return nil, err
	}

	passedBefore := progress.IsPassed
	updates := map[string]interface{}{}
	if passed && !progress.IsPassed {
		updates["is_passed"] = true
		progress.IsPassed = true
	}
	if score > progress.BestScore {
		updates["best_score"] = score
		progress.BestScore = score
	}
	if !progress.IsUnlocked {
		// Submitting implies the level was reachable.
		updates["is_unlocked"] = true
		progress.IsUnlocked = true
	}
	if len(updates) > 0 {
		if err := t.db.Model(progress).Updates(updates).Error; err != nil {
			return nil, apperror.Internal("quiz progress update failed: %v", err)
		}
	}

	if passed {
		next, err := t.upsertLevelProgress(userID, courseID, level+1)
		if err != nil {
			return nil, err
		}
		if !next.IsUnlocked {
			if err := t.db.Model(next).Update("is_unlocked", true).Error; err != nil {
				return nil, apperror.Internal("level unlock failed: %v", err)
			}
		}
	}

	return &QuizResult{
		Score:        score,
		Passed:       progress.IsPassed,
		BestScore:    progress.BestScore,
		PassedBefore: passedBefore,
	}, nil
}

func (t *Tracker) upsertLevelProgress(userID, courseID uint, level int) (*models.QuizLevelProgress, error) {
	var progress models.QuizLevelProgress
	err := t.db.Where("user_id = ? AND course_id = ? AND level = ? AND is_deleted = ?",
		userID, courseID, level, false).First(&progress).Error
	if err == nil {
		return &progress, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, apperror.Internal("quiz progress lookup failed: %v", err)
	}

	progress = models.QuizLevelProgress{
		UserID:     userID,
		CourseID:   courseID,
		Level:      level,
		IsUnlocked: level == 1,
	}
	if err := t.db.Create(&progress).Error; err != nil {
		// Unique index on (user, course, level); reuse the winner's row.
		if ferr := t.db.Where("user_id = ? AND course_id = ? AND level = ? AND is_deleted = ?",
			userID, courseID, level, false).First(&progress).Error; ferr != nil {
			return nil, apperror.Internal("quiz progress creation failed: %v", err)
		}
	}
	return &progress, nil
}

// EpisodeState is the per-episode view for the course detail page.
type EpisodeState struct {
	Episode        models.Episode `json:"episode"`
	IsUnlocked     bool           `json:"is_unlocked"`
	IsCompleted    bool           `json:"is_completed"`
	WatchedSeconds int            `json:"watched_seconds"`
}

// CourseState lists every published episode with the caller's lock and
// completion state, in order.
func (t *Tracker) CourseState(userID, courseID uint) ([]EpisodeState, error) {
	var episodes []models.Episode
	err := t.db.Where("course_id = ? AND is_published = ? AND is_deleted = ?", courseID, true, false).
		Order("order_index asc").Find(&episodes).Error
	if err != nil {
		return nil, apperror.Internal("episode lookup failed: %v", err)
	}

	var rows []models.EpisodeProgress
	err = t.db.Where("user_id = ? AND course_id = ? AND is_deleted = ?", userID, courseID, false).
		Find(&rows).Error
	if err != nil {
		return nil, apperror.Internal("progress lookup failed: %v", err)
	}
	byEpisode := make(map[uint]models.EpisodeProgress, len(rows))
	for _, r := range rows {
		byEpisode[r.EpisodeID] = r
	}

	states := make([]EpisodeState, 0, len(episodes))
	prevCompleted := true // episode 1 is always unlockable
	for _, ep := range episodes {
		p := byEpisode[ep.ID]
		state := EpisodeState{
			Episode:        ep,
			IsUnlocked:     prevCompleted,
			IsCompleted:    p.IsCompleted,
			WatchedSeconds: p.WatchedSeconds,
		}
		states = append(states, state)
		prevCompleted = p.IsCompleted
	}
	return states, nil
}

func keysOf(m map[uint]bool) []uint {
	out := make([]uint, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
