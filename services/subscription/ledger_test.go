package subscription

import (
	"academy/models"
	"academy/services/apperror"
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
	require.NoError(t, db.AutoMigrate(&models.FeatureSubscription{}))
	return db
}

func TestGrantCreatesActiveSubscription(t *testing.T) {
	l := NewLedger(setupTestDB(t))

	sub, err := l.GrantOrRefresh(1, models.FeatureAiAssistant, 30, 100, models.PaymentStatusKey)
	require.NoError(t, err)

	assert.True(t, sub.IsActive)
	assert.Equal(t, 100, sub.MessagesLimit)
	assert.Equal(t, 0, sub.MessagesUsed)
	assert.True(t, sub.EndDate.After(time.Now().AddDate(0, 0, 29)))

	got, err := l.GetActive(1, models.FeatureAiAssistant)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, sub.ID, got.ID)
}

func TestGrantUnknownFeature(t *testing.T) {
	l := NewLedger(setupTestDB(t))

	_, err := l.GrantOrRefresh(1, "VIDEO_CALLS", 30, 0, models.PaymentStatusKey)
	assert.Equal(t, apperror.KindBadRequest, apperror.KindOf(err))

	_, err = l.GetActive(1, "VIDEO_CALLS")
	assert.Equal(t, apperror.KindBadRequest, apperror.KindOf(err))
}

func TestRefreshRenewsInPlace(t *testing.T) {
	db := setupTestDB(t)
	l := NewLedger(db)

	first, err := l.GrantOrRefresh(1, models.FeatureAiAssistant, 30, 100, models.PaymentStatusKey)
	require.NoError(t, err)
	require.NoError(t, l.ConsumeUnit(first.ID))

	refreshed, err := l.GrantOrRefresh(1, models.FeatureAiAssistant, 30, 100, models.PaymentStatusKey)
	require.NoError(t, err)

	// Same row, counters reset, no stacking
	assert.Equal(t, first.ID, refreshed.ID)
	assert.Equal(t, 0, refreshed.MessagesUsed)
	assert.False(t, refreshed.ReminderSent)

	var count int64
	db.Model(&models.FeatureSubscription{}).Where("user_id = ?", 1).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestLazyExpiryIsUsageGated(t *testing.T) {
	db := setupTestDB(t)
	l := NewLedger(db)

	yearAgo := time.Now().AddDate(-1, 0, 0)

	// Dormant: a year past EndDate but never used stays active on read
	dormant := models.FeatureSubscription{
		UserID: 1, Feature: models.FeatureAiAssistant, IsActive: true,
		StartDate: yearAgo.AddDate(0, -1, 0), EndDate: yearAgo,
		PaymentStatus: models.PaymentStatusKey, MessagesUsed: 0, MessagesLimit: 100,
	}
	require.NoError(t, db.Create(&dormant).Error)

	got, err := l.GetActive(1, models.FeatureAiAssistant)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.IsActive)

	// Identical row with a single unit consumed is expired on read
	used := models.FeatureSubscription{
		UserID: 2, Feature: models.FeatureAiAssistant, IsActive: true,
		StartDate: yearAgo.AddDate(0, -1, 0), EndDate: yearAgo,
		PaymentStatus: models.PaymentStatusKey, MessagesUsed: 1, MessagesLimit: 100,
	}
	require.NoError(t, db.Create(&used).Error)

	got, err = l.GetActive(2, models.FeatureAiAssistant)
	require.NoError(t, err)
	assert.Nil(t, got)

	var stored models.FeatureSubscription
	require.NoError(t, db.First(&stored, used.ID).Error)
	assert.False(t, stored.IsActive)
}

func TestGetActiveNoSubscription(t *testing.T) {
	l := NewLedger(setupTestDB(t))

	got, err := l.GetActive(42, models.FeatureRecommendation)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestConsumeUnitStopsAtLimit(t *testing.T) {
	db := setupTestDB(t)
	l := NewLedger(db)

	sub, err := l.GrantOrRefresh(1, models.FeatureAiAssistant, 30, 2, models.PaymentStatusKey)
	require.NoError(t, err)

	require.NoError(t, l.ConsumeUnit(sub.ID))
	require.NoError(t, l.ConsumeUnit(sub.ID))

	err = l.ConsumeUnit(sub.ID)
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))

	var stored models.FeatureSubscription
	require.NoError(t, db.First(&stored, sub.ID).Error)
	assert.Equal(t, 2, stored.MessagesUsed)
}

func TestConsumeUnitOnRevokedSubscription(t *testing.T) {
	l := NewLedger(setupTestDB(t))

	sub, err := l.GrantOrRefresh(1, models.FeatureAiAssistant, 30, 100, models.PaymentStatusKey)
	require.NoError(t, err)
	require.NoError(t, l.Revoke(sub.ID))

	err = l.ConsumeUnit(sub.ID)
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))
}

func TestRevoke(t *testing.T) {
	l := NewLedger(setupTestDB(t))

	sub, err := l.GrantOrRefresh(1, models.FeatureRecommendation, 30, 0, models.PaymentStatusKey)
	require.NoError(t, err)

	require.NoError(t, l.Revoke(sub.ID))

	got, err := l.GetActive(1, models.FeatureRecommendation)
	require.NoError(t, err)
	assert.Nil(t, got)

	err = l.Revoke(9999)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
}
