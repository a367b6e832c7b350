package utils

import (
	"academy/database"
	"academy/models"
	"log"
)

// Publish must never block on, or fail because of, notification delivery.
// Broadcasts are handed to a buffered queue drained by a single worker;
// when the queue is full the broadcast is dropped and logged.

var broadcastQueue = make(chan uint, 256)

// StartBroadcastWorker launches the drainer. Call once at startup.
func StartBroadcastWorker() {
	go func() {
		log.Println("[BROADCAST] Worker started")
		for recommendationID := range broadcastQueue {
			broadcastRecommendation(recommendationID)
		}
	}()
}

// EnqueueRecommendationBroadcast schedules a best-effort email fanout for
// a freshly published recommendation. Non-blocking.
func EnqueueRecommendationBroadcast(recommendationID uint) {
	select {
	case broadcastQueue <- recommendationID:
	default:
		log.Printf("[BROADCAST] Queue full, dropping broadcast for recommendation %d", recommendationID)
	}
}

// broadcastRecommendation emails every user holding an active
// recommendation subscription. Failures are logged and swallowed.
func broadcastRecommendation(recommendationID uint) {
	db := database.Database.Db

	var reco models.Recommendation
	if err := db.Where("id = ? AND is_deleted = ?", recommendationID, false).First(&reco).Error; err != nil {
		log.Printf("[BROADCAST] Recommendation %d not found: %v", recommendationID, err)
		return
	}

	var subs []models.FeatureSubscription
	if err := db.Where("feature = ? AND is_active = ? AND is_deleted = ?",
		models.FeatureRecommendation, true, false).Find(&subs).Error; err != nil {
		log.Printf("[BROADCAST] Subscriber lookup failed: %v", err)
		return
	}

	subject, body := BuildRecommendationEmail(reco.Symbol, reco.Action, reco.Title, reco.Message)

	sent := 0
	for _, sub := range subs {
		var user models.User
		if err := db.Where("id = ? AND is_deleted = ?", sub.UserID, false).First(&user).Error; err != nil {
			continue
		}
		if err := SendEmail([]string{user.Email}, subject, body); err != nil {
			log.Printf("[BROADCAST] Failed to email %s: %v", user.Email, err)
			continue
		}
		sent++
	}
	log.Printf("[BROADCAST] Recommendation %d sent to %d subscribers", recommendationID, sent)
}
