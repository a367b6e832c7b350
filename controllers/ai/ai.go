package aiController

import (
	"academy/database"
	"academy/middleware"
	"academy/models"
	"academy/services/entitlement"
	"academy/utils"
	"log"

	"github.com/gofiber/fiber/v2"
)

// Analyze runs one chart-analysis exchange. Entitlement and quota are
// decided first; the quota unit is consumed through the guarded update
// before the model call so two concurrent requests cannot both slip
// through the last unit.
func Analyze(c *fiber.Ctx) error {
	actor, ok := middleware.ResolveActor(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	reqData, ok := c.Locals("validatedAnalyze").(*struct {
		Timeframe string `json:"timeframe" validate:"required,oneof=FIRST SECOND"`
		Symbol    string `json:"symbol"`
		Prompt    string `json:"prompt" validate:"required"`
	})
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
	}

	db := database.Database.Db
	facade := entitlement.NewFacade(db)

	sub, err := facade.CheckAIAccess(actor, reqData.Timeframe)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}

	// Admins have no subscription to charge.
	if sub != nil {
		if err := facade.Subs.ConsumeUnit(sub.ID); err != nil {
			return middleware.ErrorResponse(c, err)
		}
	}

	text, err := utils.Analyze(reqData.Symbol, reqData.Timeframe, reqData.Prompt)
	if err != nil {
		log.Printf("Analysis backend failed for user %d: %v", actor.ID, err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Analysis is temporarily unavailable, please try again!", nil)
	}

	message := models.AnalysisMessage{
		UserID:    actor.ID,
		Timeframe: reqData.Timeframe,
		Symbol:    reqData.Symbol,
		Prompt:    reqData.Prompt,
		Response:  text,
	}
	if err := db.Create(&message).Error; err != nil {
		log.Printf("Failed to persist analysis for user %d: %v", actor.ID, err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to store the analysis!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Analysis completed!", message)
}

// History lists the caller's past analyses, newest first.
func History(c *fiber.Ctx) error {
	actor, ok := middleware.ResolveActor(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	limit := c.QueryInt("limit", 50)
	if limit < 1 || limit > 200 {
		limit = 50
	}

	var messages []models.AnalysisMessage
	if err := database.Database.Db.
		Where("user_id = ? AND is_deleted = ?", actor.ID, false).
		Order("created_at desc").Limit(limit).Find(&messages).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch history!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "History fetched successfully!", messages)
}
