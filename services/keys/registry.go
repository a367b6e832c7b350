package keys

import (
	"academy/models"
	"academy/services/apperror"
	"crypto/rand"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Registry owns activation key issuance, one-time email binding and the
// admin-side lookups. Codes are stored normalized (upper case) and the
// unique index on code is the source of truth under concurrent issuance.
type Registry struct {
	db *gorm.DB
}

func NewRegistry(db *gorm.DB) *Registry {
	return &Registry{db: db}
}

// Alphabet without ambiguous characters (0/O, 1/I/L)
const codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const codeGroups = 4
const codeGroupLen = 4

// generateCode produces a hard-to-guess code like "K4TM-9XWP-ARJ3-EM2Q".
func generateCode() (string, error) {
	groups := make([]string, 0, codeGroups)
	for g := 0; g < codeGroups; g++ {
		var b strings.Builder
		for i := 0; i < codeGroupLen; i++ {
			n, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeAlphabet))))
			if err != nil {
				return "", err
			}
			b.WriteByte(codeAlphabet[n.Int64()])
		}
		groups = append(groups, b.String())
	}
	return strings.Join(groups, "-"), nil
}

// NormalizeCode makes lookups case-insensitive.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// NormalizeEmail keeps the single-bind comparison case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IssueParams describes one key (or one bulk batch) to create.
type IssueParams struct {
	Kind           string
	TargetCourseID uint
	Notes          string
	ExpiresAt      *time.Time
	CreatedBy      uint
}

func validKind(kind string) bool {
	switch kind {
	case models.KeyKindCourse, models.KeyKindAiAssistant, models.KeyKindRecommendation:
		return true
	}
	return false
}

func (r *Registry) validateIssue(p IssueParams) error {
	if !validKind(p.Kind) {
		return apperror.BadRequest("Unknown key kind!")
	}
	if p.Kind == models.KeyKindCourse && p.TargetCourseID == 0 {
		return apperror.BadRequest("Course keys require a target course!")
	}
	if p.Kind != models.KeyKindCourse && p.TargetCourseID != 0 {
		return apperror.BadRequest("Only course keys may carry a target course!")
	}
	return nil
}

// Issue creates a single unbound, active key.
func (r *Registry) Issue(p IssueParams) (*models.ActivationKey, error) {
	keys, err := r.issue(p, 1, "")
	if err != nil {
		return nil, err
	}
	return &keys[0], nil
}

// IssueBulk creates up to 1000 keys sharing one batch reference.
func (r *Registry) IssueBulk(p IssueParams, quantity int) ([]models.ActivationKey, error) {
	if quantity < 1 || quantity > 1000 {
		return nil, apperror.BadRequest("Quantity must be between 1 and 1000!")
	}
	return r.issue(p, quantity, uuid.NewString())
}

func (r *Registry) issue(p IssueParams, quantity int, batchRef string) ([]models.ActivationKey, error) {
	if err := r.validateIssue(p); err != nil {
		return nil, err
	}

	keys := make([]models.ActivationKey, 0, quantity)
	for i := 0; i < quantity; i++ {
		key, err := r.createOne(p, batchRef)
		if err != nil {
			return nil, err
		}
		keys = append(keys, *key)
	}
	return keys, nil
}

func (r *Registry) createOne(p IssueParams, batchRef string) (*models.ActivationKey, error) {
	// A code collision trips the unique index; retry with a fresh code.
	for attempt := 0; attempt < 3; attempt++ {
		code, err := generateCode()
		if err != nil {
			return nil, apperror.Internal("key generation failed: %v", err)
		}
		key := models.ActivationKey{
			Code:           code,
			Kind:           p.Kind,
			TargetCourseID: p.TargetCourseID,
			Notes:          p.Notes,
			ExpiresAt:      p.ExpiresAt,
			CreatedBy:      p.CreatedBy,
			BatchRef:       batchRef,
			IsActive:       true,
		}
		if err := r.db.Create(&key).Error; err == nil {
			return &key, nil
		}
	}
	return nil, apperror.Internal("could not generate a unique key code")
}

// Activate binds a key to an email. The failure ladder is checked in
// order: existence, active flag, expiry, expected kind, binding. The kind
// check happens before any write so a course key can never grant another
// feature. Re-activation with the already-bound email succeeds
// idempotently; any other email fails.
func (r *Registry) Activate(code, email, expectedKind string) (*models.ActivationKey, error) {
	code = NormalizeCode(code)
	email = NormalizeEmail(email)
	if email == "" {
		return nil, apperror.BadRequest("Email is required!")
	}

	var key models.ActivationKey
	if err := r.db.Where("code = ? AND is_deleted = ?", code, false).First(&key).Error; err != nil {
		return nil, apperror.NotFound("Activation key not found!")
	}

	if !key.IsActive {
		return nil, apperror.Forbidden("This activation key has been deactivated!")
	}
	if key.ExpiresAt != nil && key.ExpiresAt.Before(time.Now()) {
		return nil, apperror.Forbidden("This activation key has expired!")
	}
	if key.Kind != expectedKind {
		return nil, apperror.BadRequest("This key is for a different product and cannot be used here!")
	}

	if key.BoundEmail != nil {
		if *key.BoundEmail == email {
			return &key, nil
		}
		return nil, apperror.AlreadyBound("This key is already activated under a different email!")
	}

	// First bind. The conditional update closes the race between two
	// concurrent activations observing the key as unbound: only one
	// matches bound_email IS NULL.
	activatedAt := time.Now()
	res := r.db.Model(&models.ActivationKey{}).
		Where("id = ? AND bound_email IS NULL", key.ID).
		Updates(map[string]interface{}{"bound_email": email, "activated_at": activatedAt})
	if res.Error != nil {
		return nil, apperror.Internal("key activation failed: %v", res.Error)
	}
	if res.RowsAffected == 0 {
		// Lost the race; whoever won may have bound the same email.
		if err := r.db.First(&key, key.ID).Error; err != nil {
			return nil, apperror.Internal("key activation failed: %v", err)
		}
		if key.BoundEmail != nil && *key.BoundEmail == email {
			return &key, nil
		}
		return nil, apperror.AlreadyBound("This key is already activated under a different email!")
	}

	key.BoundEmail = &email
	key.ActivatedAt = &activatedAt
	return &key, nil
}

// Deactivate turns a key off without clearing its binding, so a
// reactivated key keeps its original email.
func (r *Registry) Deactivate(keyID uint) (*models.ActivationKey, error) {
	var key models.ActivationKey
	if err := r.db.Where("id = ? AND is_deleted = ?", keyID, false).First(&key).Error; err != nil {
		return nil, apperror.NotFound("Activation key not found!")
	}
	if err := r.db.Model(&key).Update("is_active", false).Error; err != nil {
		return nil, apperror.Internal("key deactivation failed: %v", err)
	}
	key.IsActive = false
	return &key, nil
}

// FindByCode looks a key up by its (case-insensitive) code.
func (r *Registry) FindByCode(code string) (*models.ActivationKey, error) {
	var key models.ActivationKey
	if err := r.db.Where("code = ? AND is_deleted = ?", NormalizeCode(code), false).First(&key).Error; err != nil {
		return nil, apperror.NotFound("Activation key not found!")
	}
	return &key, nil
}

// FindByEmail returns every key ever bound to the email, used for the
// public "does this email already have access" pre-check and the login
// entitlement sync.
func (r *Registry) FindByEmail(email string) ([]models.ActivationKey, error) {
	var keys []models.ActivationKey
	err := r.db.Where("bound_email = ? AND is_deleted = ?", NormalizeEmail(email), false).Find(&keys).Error
	if err != nil {
		return nil, apperror.Internal("key lookup failed: %v", err)
	}
	return keys, nil
}

// HasCourseAccess reports whether the email holds an active course key
// for the given course.
func (r *Registry) HasCourseAccess(email string, courseID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.ActivationKey{}).
		Where("bound_email = ? AND kind = ? AND target_course_id = ? AND is_active = ? AND is_deleted = ?",
			NormalizeEmail(email), models.KeyKindCourse, courseID, true, false).
		Count(&count).Error
	if err != nil {
		return false, apperror.Internal("key lookup failed: %v", err)
	}
	return count > 0, nil
}

// ListFilter narrows the admin key listing.
type ListFilter struct {
	Kind      string // empty for all
	Activated *bool  // nil for all, true = bound, false = unused
	Page      int
	Limit     int
}

// List returns keys for the admin panel, newest first.
func (r *Registry) List(filter ListFilter) ([]models.ActivationKey, int64, error) {
	q := r.db.Model(&models.ActivationKey{}).Where("is_deleted = ?", false)
	if filter.Kind != "" {
		q = q.Where("kind = ?", filter.Kind)
	}
	if filter.Activated != nil {
		if *filter.Activated {
			q = q.Where("bound_email IS NOT NULL")
		} else {
			q = q.Where("bound_email IS NULL")
		}
	}

	var total int64
	q.Count(&total)

	if filter.Page > 0 && filter.Limit > 0 {
		q = q.Offset((filter.Page - 1) * filter.Limit).Limit(filter.Limit)
	}

	var keys []models.ActivationKey
	if err := q.Order("created_at desc").Find(&keys).Error; err != nil {
		return nil, 0, apperror.Internal("key listing failed: %v", err)
	}
	return keys, total, nil
}

// KindStats is the per-kind slice of the registry statistics.
type KindStats struct {
	Total     int64 `json:"total"`
	Activated int64 `json:"activated"`
	Unused    int64 `json:"unused"`
	Inactive  int64 `json:"inactive"`
}

// Stats counts keys by kind and state for the admin dashboard.
func (r *Registry) Stats() (map[string]KindStats, error) {
	stats := make(map[string]KindStats)
	for _, kind := range []string{models.KeyKindCourse, models.KeyKindAiAssistant, models.KeyKindRecommendation} {
		var s KindStats
		base := r.db.Model(&models.ActivationKey{}).Where("kind = ? AND is_deleted = ?", kind, false)
		if err := base.Session(&gorm.Session{}).Count(&s.Total).Error; err != nil {
			return nil, apperror.Internal("key stats failed: %v", err)
		}
		base.Session(&gorm.Session{}).Where("bound_email IS NOT NULL").Count(&s.Activated)
		base.Session(&gorm.Session{}).Where("bound_email IS NULL").Count(&s.Unused)
		base.Session(&gorm.Session{}).Where("is_active = ?", false).Count(&s.Inactive)
		stats[kind] = s
	}
	return stats, nil
}
