package recommendationController

import (
	"academy/database"
	"academy/middleware"
	"academy/models"
	"academy/services/entitlement"
	"academy/utils"

	"github.com/gofiber/fiber/v2"
)

// Publish posts a recommendation to the feed (publisher or admin only)
// and schedules the best-effort email fanout. The broadcast can never
// fail or delay the publish itself.
func Publish(c *fiber.Ctx) error {
	actor, ok := middleware.ResolveActor(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	reqData, ok := c.Locals("validatedPublish").(*struct {
		Symbol  string `json:"symbol"`
		Action  string `json:"action" validate:"omitempty,oneof=BUY SELL HOLD GENERAL"`
		Title   string `json:"title"`
		Message string `json:"message" validate:"required"`
	})
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
	}

	db := database.Database.Db
	facade := entitlement.NewFacade(db)

	if err := facade.CheckFeedPublish(actor); err != nil {
		return middleware.ErrorResponse(c, err)
	}

	action := reqData.Action
	if action == "" {
		action = models.ActionGeneral
	}

	reco := models.Recommendation{
		AuthorID: actor.ID,
		Symbol:   reqData.Symbol,
		Action:   action,
		Title:    reqData.Title,
		Message:  reqData.Message,
	}
	if err := db.Create(&reco).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to publish recommendation!", nil)
	}

	utils.EnqueueRecommendationBroadcast(reco.ID)

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Recommendation published!", reco)
}

// Feed lists recommendations, newest first, for active subscribers,
// publishers and admins.
func Feed(c *fiber.Ctx) error {
	actor, ok := middleware.ResolveActor(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	db := database.Database.Db
	facade := entitlement.NewFacade(db)

	if err := facade.CheckFeedRead(actor); err != nil {
		return middleware.ErrorResponse(c, err)
	}

	limit := c.QueryInt("limit", 50)
	if limit < 1 || limit > 200 {
		limit = 50
	}

	var recommendations []models.Recommendation
	if err := db.Where("is_deleted = ?", false).
		Order("created_at desc").Limit(limit).Find(&recommendations).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch the feed!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Feed fetched successfully!", recommendations)
}

// ActivateKey is the public recommendation-key activation endpoint.
func ActivateKey(c *fiber.Ctx) error {
	reqData, ok := c.Locals("validatedKeyActivate").(*struct {
		Code  string `json:"code" validate:"required"`
		Email string `json:"email" validate:"required,email"`
	})
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
	}

	facade := entitlement.NewFacade(database.Database.Db)
	key, err := facade.ActivateKey(reqData.Code, reqData.Email, models.KeyKindRecommendation)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}

	utils.SendKeyActivatedEmail(*key.BoundEmail, "Recommendation Feed")

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Key activated successfully!", fiber.Map{
		"kind": key.Kind,
	})
}
