package entitlement

import (
	"academy/config"
	"academy/models"
	"academy/services/apperror"
	"academy/services/keys"
	"academy/services/progression"
	"fmt"
	"testing"
	"time"

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
		&models.User{}, &models.ActivationKey{}, &models.FeatureSubscription{},
		&models.Course{}, &models.Episode{}, &models.Enrollment{}, &models.EpisodeProgress{},
		&models.Quiz{}, &models.QuizQuestion{}, &models.QuizOption{},
		&models.QuizAttempt{}, &models.QuizAnswer{}, &models.QuizLevelProgress{},
		&models.AnalysisMessage{},
	))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, email string, publisher bool) models.User {
	t.Helper()
	user := models.User{Name: "Test User", Email: email, Password: "x", IsPublisher: publisher}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func seedCourse(t *testing.T, db *gorm.DB, episodes int) models.Course {
	t.Helper()
	course := models.Course{Title: "Options 101", IsPublished: true, Status: "ACTIVE"}
	require.NoError(t, db.Create(&course).Error)
	for i := 1; i <= episodes; i++ {
		ep := models.Episode{CourseID: course.ID, Title: fmt.Sprintf("Episode %d", i), OrderIndex: i, DurationSeconds: 300, IsPublished: true}
		require.NoError(t, db.Create(&ep).Error)
	}
	return course
}

func userActor(user models.User) models.Actor {
	return models.Actor{Kind: models.ActorUser, ID: user.ID, Email: user.Email}
}

var adminActor = models.Actor{Kind: models.ActorAdmin, ID: 900, Email: "admin@example.com"}

func TestCourseAccessRequiresEnrollment(t *testing.T) {
	db := setupTestDB(t)
	f := NewFacade(db)
	user := seedUser(t, db, "user@example.com", false)
	course := seedCourse(t, db, 2)

	_, err := f.CheckCourseAccess(userActor(user), course.ID)
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))

	_, err = f.Enroll(user.ID, course.ID)
	require.NoError(t, err)

	enrollment, err := f.CheckCourseAccess(userActor(user), course.ID)
	require.NoError(t, err)
	require.NotNil(t, enrollment)
	assert.Equal(t, course.ID, enrollment.CourseID)

	// Admins pass without an enrollment
	enrollment, err = f.CheckCourseAccess(adminActor, course.ID)
	require.NoError(t, err)
	assert.Nil(t, enrollment)
}

func TestEnrollTwiceConflicts(t *testing.T) {
	db := setupTestDB(t)
	f := NewFacade(db)
	user := seedUser(t, db, "user@example.com", false)
	course := seedCourse(t, db, 1)

	_, err := f.Enroll(user.ID, course.ID)
	require.NoError(t, err)
	_, err = f.Enroll(user.ID, course.ID)
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))
}

func TestCourseKeyActivationEndToEnd(t *testing.T) {
	db := setupTestDB(t)
	f := NewFacade(db)
	user := seedUser(t, db, "student@example.com", false)
	course := seedCourse(t, db, 3)

	key, err := f.Keys.Issue(keys.IssueParams{Kind: models.KeyKindCourse, TargetCourseID: course.ID})
	require.NoError(t, err)

	activated, err := f.ActivateKey(key.Code, "Student@Example.com", models.KeyKindCourse)
	require.NoError(t, err)
	assert.Equal(t, "student@example.com", *activated.BoundEmail)

	// The existing account was enrolled immediately
	enrollment, err := f.CheckCourseAccess(userActor(user), course.ID)
	require.NoError(t, err)
	assert.Equal(t, key.Code, enrollment.ActivatedViaKey)
	assert.Equal(t, 3, enrollment.TotalEpisodes)

	ok, err := f.HasCourseAccess("student@example.com", course.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	// Activating again with the same email stays idempotent
	_, err = f.ActivateKey(key.Code, "student@example.com", models.KeyKindCourse)
	require.NoError(t, err)

	_, err = f.ActivateKey(key.Code, "other@example.com", models.KeyKindCourse)
	assert.Equal(t, apperror.KindAlreadyBound, apperror.KindOf(err))
}

func TestActivateKeyBeforeAccountExists(t *testing.T) {
	db := setupTestDB(t)
	f := NewFacade(db)
	course := seedCourse(t, db, 2)

	key, err := f.Keys.Issue(keys.IssueParams{Kind: models.KeyKindCourse, TargetCourseID: course.ID})
	require.NoError(t, err)

	// No account yet; activation binds the key and stops there
	_, err = f.ActivateKey(key.Code, "early@example.com", models.KeyKindCourse)
	require.NoError(t, err)

	ok, err := f.HasCourseAccess("early@example.com", course.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	// Signup later; the sync materializes the enrollment
	user := seedUser(t, db, "early@example.com", false)
	require.NoError(t, f.SyncEntitlements(&user))

	enrollment, err := f.CheckCourseAccess(userActor(user), course.ID)
	require.NoError(t, err)
	assert.Equal(t, course.ID, enrollment.CourseID)
}

func TestRedeemAIKeyGrantsSubscription(t *testing.T) {
	db := setupTestDB(t)
	f := NewFacade(db)
	user := seedUser(t, db, "trader@example.com", false)

	key, err := f.Keys.Issue(keys.IssueParams{Kind: models.KeyKindAiAssistant})
	require.NoError(t, err)

	_, err = f.RedeemKey(userActor(user), key.Code, models.KeyKindAiAssistant)
	require.NoError(t, err)

	sub, err := f.Subs.GetActive(user.ID, models.FeatureAiAssistant)
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, models.PaymentStatusKey, sub.PaymentStatus)
	assert.Equal(t, 100, sub.MessagesLimit)
}

func TestSyncDoesNotRenewActiveSubscription(t *testing.T) {
	db := setupTestDB(t)
	f := NewFacade(db)
	user := seedUser(t, db, "trader@example.com", false)

	key, err := f.Keys.Issue(keys.IssueParams{Kind: models.KeyKindAiAssistant})
	require.NoError(t, err)
	_, err = f.RedeemKey(userActor(user), key.Code, models.KeyKindAiAssistant)
	require.NoError(t, err)

	sub, err := f.Subs.GetActive(user.ID, models.FeatureAiAssistant)
	require.NoError(t, err)
	require.NoError(t, f.Subs.ConsumeUnit(sub.ID))

	// Login sync sees the bound key but leaves the live subscription alone
	require.NoError(t, f.SyncEntitlements(&user))

	after, err := f.Subs.GetActive(user.ID, models.FeatureAiAssistant)
	require.NoError(t, err)
	assert.Equal(t, 1, after.MessagesUsed)
}

func TestAIAccessRequiresSubscription(t *testing.T) {
	db := setupTestDB(t)
	f := NewFacade(db)
	user := seedUser(t, db, "trader@example.com", false)

	_, err := f.CheckAIAccess(userActor(user), models.TimeframeFirst)
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))

	_, err = f.Subs.GrantOrRefresh(user.ID, models.FeatureAiAssistant, 30, 100, models.PaymentStatusKey)
	require.NoError(t, err)

	sub, err := f.CheckAIAccess(userActor(user), models.TimeframeFirst)
	require.NoError(t, err)
	require.NotNil(t, sub)
}

func TestAIAccessQuotaGate(t *testing.T) {
	db := setupTestDB(t)
	f := NewFacade(db)
	user := seedUser(t, db, "trader@example.com", false)

	sub := models.FeatureSubscription{
		UserID: user.ID, Feature: models.FeatureAiAssistant, IsActive: true,
		StartDate: time.Now(), EndDate: time.Now().AddDate(0, 1, 0),
		PaymentStatus: models.PaymentStatusKey, MessagesUsed: 100, MessagesLimit: 100,
	}
	require.NoError(t, db.Create(&sub).Error)

	_, err := f.CheckAIAccess(userActor(user), models.TimeframeFirst)
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))
}

func TestAIAccessRejectsNonKeyPayment(t *testing.T) {
	db := setupTestDB(t)
	f := NewFacade(db)
	user := seedUser(t, db, "trader@example.com", false)

	_, err := f.Subs.GrantOrRefresh(user.ID, models.FeatureAiAssistant, 30, 100, models.PaymentStatusDirect)
	require.NoError(t, err)

	_, err = f.CheckAIAccess(userActor(user), models.TimeframeFirst)
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))
}

func TestAITimeframeSequencing(t *testing.T) {
	db := setupTestDB(t)
	f := NewFacade(db)
	user := seedUser(t, db, "trader@example.com", false)
	_, err := f.Subs.GrantOrRefresh(user.ID, models.FeatureAiAssistant, 30, 100, models.PaymentStatusKey)
	require.NoError(t, err)

	_, err = f.CheckAIAccess(userActor(user), "THIRD")
	assert.Equal(t, apperror.KindBadRequest, apperror.KindOf(err))

	// SECOND before any FIRST is a bad request, not a forbidden
	_, err = f.CheckAIAccess(userActor(user), models.TimeframeSecond)
	assert.Equal(t, apperror.KindBadRequest, apperror.KindOf(err))

	require.NoError(t, db.Create(&models.AnalysisMessage{
		UserID: user.ID, Timeframe: models.TimeframeFirst, Prompt: "trend?", Response: "up",
	}).Error)

	_, err = f.CheckAIAccess(userActor(user), models.TimeframeSecond)
	require.NoError(t, err)
}

func TestAdminBypassesSubscriptionButNotSequencing(t *testing.T) {
	db := setupTestDB(t)
	f := NewFacade(db)

	// No subscription, FIRST timeframe: allowed, no subscription returned
	sub, err := f.CheckAIAccess(adminActor, models.TimeframeFirst)
	require.NoError(t, err)
	assert.Nil(t, sub)

	// Sequencing still applies to admins
	_, err = f.CheckAIAccess(adminActor, models.TimeframeSecond)
	assert.Equal(t, apperror.KindBadRequest, apperror.KindOf(err))
}

func TestFeedReadAccess(t *testing.T) {
	db := setupTestDB(t)
	f := NewFacade(db)
	user := seedUser(t, db, "reader@example.com", false)
	publisher := seedUser(t, db, "publisher@example.com", true)

	err := f.CheckFeedRead(userActor(user))
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))

	assert.NoError(t, f.CheckFeedRead(userActor(publisher)))
	assert.NoError(t, f.CheckFeedRead(adminActor))

	_, err = f.Subs.GrantOrRefresh(user.ID, models.FeatureRecommendation, 30, 0, models.PaymentStatusKey)
	require.NoError(t, err)
	assert.NoError(t, f.CheckFeedRead(userActor(user)))
}

func TestFeedPublishAccess(t *testing.T) {
	db := setupTestDB(t)
	f := NewFacade(db)
	subscriber := seedUser(t, db, "reader@example.com", false)
	publisher := seedUser(t, db, "publisher@example.com", true)

	// A subscription grants reading, never publishing
	_, err := f.Subs.GrantOrRefresh(subscriber.ID, models.FeatureRecommendation, 30, 0, models.PaymentStatusKey)
	require.NoError(t, err)
	err = f.CheckFeedPublish(userActor(subscriber))
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))

	assert.NoError(t, f.CheckFeedPublish(userActor(publisher)))
	assert.NoError(t, f.CheckFeedPublish(adminActor))
}

// End to end: course key activation, sequential watching, quiz gate,
// completion with recomputed progress.
func TestCourseJourneyEndToEnd(t *testing.T) {
	db := setupTestDB(t)
	f := NewFacade(db)
	user := seedUser(t, db, "journey@example.com", false)
	course := seedCourse(t, db, 2) // 300s episodes, threshold 210s

	// Quiz for level 1: five questions, passing score 50
	quiz := models.Quiz{CourseID: course.ID, Level: 1, Title: "Level 1 quiz", PassingScore: 50}
	require.NoError(t, db.Create(&quiz).Error)
	answers := make([]struct{ questionID, optionID uint }, 0, 5)
	for i := 0; i < 5; i++ {
		q := models.QuizQuestion{QuizID: quiz.ID, Prompt: fmt.Sprintf("Question %d", i+1), OrderIndex: i}
		require.NoError(t, db.Create(&q).Error)
		right := models.QuizOption{QuestionID: q.ID, OptionText: "right", IsCorrect: true}
		wrong := models.QuizOption{QuestionID: q.ID, OptionText: "wrong"}
		require.NoError(t, db.Create(&right).Error)
		require.NoError(t, db.Create(&wrong).Error)
		// Answer 3 of 5 correctly for a score of 60
		if i < 3 {
			answers = append(answers, struct{ questionID, optionID uint }{q.ID, right.ID})
		} else {
			answers = append(answers, struct{ questionID, optionID uint }{q.ID, wrong.ID})
		}
	}

	key, err := f.Keys.Issue(keys.IssueParams{Kind: models.KeyKindCourse, TargetCourseID: course.ID})
	require.NoError(t, err)
	_, err = f.RedeemKey(userActor(user), key.Code, models.KeyKindCourse)
	require.NoError(t, err)

	var episodes []models.Episode
	require.NoError(t, db.Where("course_id = ?", course.ID).Order("order_index asc").Find(&episodes).Error)

	// Episode 1: under the 70% threshold fails, at it succeeds
	_, err = f.Progress.UpdateWatchProgress(user.ID, course.ID, episodes[0].ID, 100)
	require.NoError(t, err)
	_, err = f.Progress.MarkComplete(user.ID, course.ID, episodes[0].ID)
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))

	_, err = f.Progress.UpdateWatchProgress(user.ID, course.ID, episodes[0].ID, 210)
	require.NoError(t, err)
	enrollment, err := f.Progress.MarkComplete(user.ID, course.ID, episodes[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 50.0, enrollment.Progress)

	// Episode 2: watched enough but the level 1 quiz is still unpassed
	_, err = f.Progress.UpdateWatchProgress(user.ID, course.ID, episodes[1].ID, 300)
	require.NoError(t, err)
	_, err = f.Progress.MarkComplete(user.ID, course.ID, episodes[1].ID)
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))

	submission := make([]progression.Answer, 0, len(answers))
	for _, a := range answers {
		submission = append(submission, progression.Answer{QuestionID: a.questionID, OptionID: a.optionID})
	}
	result, err := f.Progress.SubmitQuiz(user.ID, course.ID, 1, submission)
	require.NoError(t, err)
	assert.Equal(t, 60, result.Score)
	assert.True(t, result.Passed)

	enrollment, err = f.Progress.MarkComplete(user.ID, course.ID, episodes[1].ID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, enrollment.Progress)
	assert.Equal(t, "COMPLETED", enrollment.Status)
	assert.NotNil(t, enrollment.CompletedAt)
}

func TestPurchaseSubscriptionFeatureFlag(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db, "buyer@example.com", false)

	// Flag off (default)
	f := NewFacade(db)
	_, err := f.PurchaseSubscription(userActor(user), models.FeatureAiAssistant)
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))

	prev := config.AppConfig
	config.AppConfig = &config.Config{
		AiSubscriptionDays: 30, AiMessageQuota: 100, RecoSubscriptionDays: 30,
		AllowDirectPayment: true,
	}
	defer func() { config.AppConfig = prev }()

	f = NewFacade(db)
	sub, err := f.PurchaseSubscription(userActor(user), models.FeatureAiAssistant)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusDirect, sub.PaymentStatus)
}
