package entitlement

import (
	"academy/config"
	"academy/models"
	"academy/services/apperror"
	"academy/services/keys"
	"academy/services/progression"
	"academy/services/subscription"

	"gorm.io/gorm"
)

// Facade is the single decision point every protected operation calls
// through. It composes the key registry, the subscription ledger and the
// progression tracker into allow/deny answers and performs the
// side-effecting transitions (key activation -> enrollment or
// subscription, login entitlement sync).
type Facade struct {
	db       *gorm.DB
	Keys     *keys.Registry
	Subs     *subscription.Ledger
	Progress *progression.Tracker

	aiDays             int
	aiQuota            int
	recoDays           int
	allowDirectPayment bool
}

func NewFacade(db *gorm.DB) *Facade {
	f := &Facade{
		db:       db,
		Keys:     keys.NewRegistry(db),
		Subs:     subscription.NewLedger(db),
		Progress: progression.NewTracker(db),
		aiDays:   30,
		aiQuota:  100,
		recoDays: 30,
	}
	if config.AppConfig != nil {
		f.aiDays = config.AppConfig.AiSubscriptionDays
		f.aiQuota = config.AppConfig.AiMessageQuota
		f.recoDays = config.AppConfig.RecoSubscriptionDays
		f.allowDirectPayment = config.AppConfig.AllowDirectPayment
	}
	return f
}

// CheckCourseAccess requires an enrollment for (actor, course) unless the
// actor is an admin. The returned enrollment is nil for admins.
func (f *Facade) CheckCourseAccess(actor models.Actor, courseID uint) (*models.Enrollment, error) {
	if actor.IsAdmin() {
		return nil, nil
	}

	var enrollment models.Enrollment
	err := f.db.Where("user_id = ? AND course_id = ? AND is_deleted = ?", actor.ID, courseID, false).
		First(&enrollment).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperror.Forbidden("You are not enrolled in this course!")
		}
		return nil, apperror.Internal("enrollment lookup failed: %v", err)
	}
	return &enrollment, nil
}

// CheckAIAccess gates the chart-analysis assistant. Non-admins need an
// active key-paid subscription with quota left; admins bypass the
// subscription and quota entirely. The timeframe sequencing rule applies
// to everyone: a SECOND timeframe analysis needs a prior FIRST one.
func (f *Facade) CheckAIAccess(actor models.Actor, timeframe string) (*models.FeatureSubscription, error) {
	if timeframe != models.TimeframeFirst && timeframe != models.TimeframeSecond {
		return nil, apperror.BadRequest("Unknown analysis timeframe!")
	}

	if timeframe == models.TimeframeSecond {
		var count int64
		err := f.db.Model(&models.AnalysisMessage{}).
			Where("user_id = ? AND timeframe = ? AND is_deleted = ?", actor.ID, models.TimeframeFirst, false).
			Count(&count).Error
		if err != nil {
			return nil, apperror.Internal("analysis history lookup failed: %v", err)
		}
		if count == 0 {
			return nil, apperror.BadRequest("Request a first timeframe analysis before the second one!")
		}
	}

	if actor.IsAdmin() {
		return nil, nil
	}

	sub, err := f.Subs.GetActive(actor.ID, models.FeatureAiAssistant)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, apperror.Forbidden("No active AI assistant subscription, activate a key to get access!")
	}
	if sub.PaymentStatus != models.PaymentStatusKey {
		return nil, apperror.Forbidden("Only key-activated AI subscriptions are honored!")
	}
	if sub.MessagesUsed >= sub.MessagesLimit {
		return nil, apperror.Forbidden("Message quota exhausted, please renew your subscription!")
	}
	return sub, nil
}

// CheckFeedRead allows any active recommendation subscriber, publishers
// and admins to read the feed.
func (f *Facade) CheckFeedRead(actor models.Actor) error {
	if actor.IsAdmin() {
		return nil
	}
	if f.isPublisher(actor.ID) {
		return nil
	}

	sub, err := f.Subs.GetActive(actor.ID, models.FeatureRecommendation)
	if err != nil {
		return err
	}
	if sub == nil {
		return apperror.Forbidden("No active recommendation subscription, activate a key to get access!")
	}
	return nil
}

// CheckFeedPublish allows publishers and admins only.
func (f *Facade) CheckFeedPublish(actor models.Actor) error {
	if actor.IsAdmin() {
		return nil
	}
	if f.isPublisher(actor.ID) {
		return nil
	}
	return apperror.Forbidden("Publisher access required to post recommendations!")
}

func (f *Facade) isPublisher(userID uint) bool {
	var count int64
	f.db.Model(&models.User{}).
		Where("id = ? AND is_publisher = ? AND is_deleted = ?", userID, true, false).
		Count(&count)
	return count > 0
}

// ActivateKey activates a key for an email (public flow, usable before
// an account exists). If a user account with the email already exists,
// the granted entitlement is materialized immediately; otherwise it is
// picked up by the login entitlement sync.
func (f *Facade) ActivateKey(code, email, expectedKind string) (*models.ActivationKey, error) {
	key, err := f.Keys.Activate(code, email, expectedKind)
	if err != nil {
		return nil, err
	}

	var user models.User
	err = f.db.Where("email = ? AND is_deleted = ?", keys.NormalizeEmail(email), false).First(&user).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return key, nil
		}
		return nil, apperror.Internal("user lookup failed: %v", err)
	}

	if err := f.materialize(user.ID, key, true); err != nil {
		return nil, err
	}
	return key, nil
}

// RedeemKey activates a key for an authenticated actor using the actor's
// own email and materializes the grant right away.
func (f *Facade) RedeemKey(actor models.Actor, code, expectedKind string) (*models.ActivationKey, error) {
	key, err := f.Keys.Activate(code, actor.Email, expectedKind)
	if err != nil {
		return nil, err
	}
	if err := f.materialize(actor.ID, key, true); err != nil {
		return nil, err
	}
	return key, nil
}

// materialize turns a bound key into its entitlement. With refresh set,
// subscription kinds renew in place (explicit activation); without it,
// existing active subscriptions are left alone (login sync).
func (f *Facade) materialize(userID uint, key *models.ActivationKey, refresh bool) error {
	switch key.Kind {
	case models.KeyKindCourse:
		_, err := f.EnsureEnrollment(userID, key.TargetCourseID, key.Code)
		return err
	case models.KeyKindAiAssistant:
		if !refresh {
			if sub, err := f.Subs.GetActive(userID, models.FeatureAiAssistant); err != nil || sub != nil {
				return err
			}
		}
		_, err := f.Subs.GrantOrRefresh(userID, models.FeatureAiAssistant, f.aiDays, f.aiQuota, models.PaymentStatusKey)
		return err
	case models.KeyKindRecommendation:
		if !refresh {
			if sub, err := f.Subs.GetActive(userID, models.FeatureRecommendation); err != nil || sub != nil {
				return err
			}
		}
		_, err := f.Subs.GrantOrRefresh(userID, models.FeatureRecommendation, f.recoDays, 0, models.PaymentStatusKey)
		return err
	}
	return apperror.BadRequest("Unknown key kind!")
}

// EnsureEnrollment creates the (user, course) enrollment if missing.
// Idempotent; a retry or a concurrent duplicate resolves to the existing
// row via the unique index.
func (f *Facade) EnsureEnrollment(userID, courseID uint, viaKey string) (*models.Enrollment, error) {
	var course models.Course
	if err := f.db.Where("id = ? AND is_deleted = ?", courseID, false).First(&course).Error; err != nil {
		return nil, apperror.NotFound("Course not found!")
	}

	var existing models.Enrollment
	err := f.db.Where("user_id = ? AND course_id = ? AND is_deleted = ?", userID, courseID, false).
		First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, apperror.Internal("enrollment lookup failed: %v", err)
	}

	var total int64
	f.db.Model(&models.Episode{}).
		Where("course_id = ? AND is_published = ? AND is_deleted = ?", courseID, true, false).
		Count(&total)

	enrollment := models.Enrollment{
		UserID:          userID,
		CourseID:        courseID,
		Status:          "ENROLLED",
		TotalEpisodes:   int(total),
		ActivatedViaKey: viaKey,
	}
	if err := f.db.Create(&enrollment).Error; err != nil {
		if ferr := f.db.Where("user_id = ? AND course_id = ? AND is_deleted = ?", userID, courseID, false).
			First(&existing).Error; ferr == nil {
			return &existing, nil
		}
		return nil, apperror.Internal("enrollment creation failed: %v", err)
	}
	return &enrollment, nil
}

// Enroll creates an enrollment for a direct (non-key) signup and reports
// CONFLICT on duplicates, matching the explicit enrollment endpoint.
func (f *Facade) Enroll(userID, courseID uint) (*models.Enrollment, error) {
	var existing models.Enrollment
	err := f.db.Where("user_id = ? AND course_id = ? AND is_deleted = ?", userID, courseID, false).
		First(&existing).Error
	if err == nil {
		return nil, apperror.Conflict("Already enrolled in this course!")
	}
	if err != gorm.ErrRecordNotFound {
		return nil, apperror.Internal("enrollment lookup failed: %v", err)
	}
	return f.EnsureEnrollment(userID, courseID, "")
}

// SyncEntitlements materializes every active key bound to the user's
// email that has not produced its enrollment or subscription yet. Runs
// best-effort on login; the caller logs and swallows failures.
func (f *Facade) SyncEntitlements(user *models.User) error {
	boundKeys, err := f.Keys.FindByEmail(user.Email)
	if err != nil {
		return err
	}
	for _, key := range boundKeys {
		if !key.IsActive {
			continue
		}
		if err := f.materialize(user.ID, &key, false); err != nil {
			return err
		}
	}
	return nil
}

// HasCourseAccess is the public pre-check: an email has access when it
// holds an active course key or the matching account is enrolled.
func (f *Facade) HasCourseAccess(email string, courseID uint) (bool, error) {
	ok, err := f.Keys.HasCourseAccess(email, courseID)
	if err != nil {
		return false, err
	}
	if ok {
		return true, nil
	}

	var user models.User
	err = f.db.Where("email = ? AND is_deleted = ?", keys.NormalizeEmail(email), false).First(&user).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return false, nil
		}
		return false, apperror.Internal("user lookup failed: %v", err)
	}

	var count int64
	f.db.Model(&models.Enrollment{}).
		Where("user_id = ? AND course_id = ? AND is_deleted = ?", user.ID, courseID, false).
		Count(&count)
	return count > 0, nil
}

// PurchaseSubscription is the direct-payment path. It stays wired but
// rejects unless the feature flag is on, so re-enabling it is a config
// change rather than a code change.
func (f *Facade) PurchaseSubscription(actor models.Actor, feature string) (*models.FeatureSubscription, error) {
	if !f.allowDirectPayment {
		return nil, apperror.Forbidden("Direct payment is not available, please use an activation key!")
	}
	days, quota := f.recoDays, 0
	if feature == models.FeatureAiAssistant {
		days, quota = f.aiDays, f.aiQuota
	}
	return f.Subs.GrantOrRefresh(actor.ID, feature, days, quota, models.PaymentStatusDirect)
}
