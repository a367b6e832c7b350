package subscriptionController

import (
	"academy/database"
	"academy/middleware"
	"academy/models"
	"academy/services/entitlement"
	"academy/services/subscription"
	"academy/utils"

	"github.com/gofiber/fiber/v2"
)

func featureFromParam(param string) (string, bool) {
	switch param {
	case "ai":
		return models.FeatureAiAssistant, true
	case "recommendations":
		return models.FeatureRecommendation, true
	}
	return "", false
}

// GetActive returns the caller's active subscription for a feature, or
// null. Lazy expiry applies on this read.
func GetActive(c *fiber.Ctx) error {
	actor, ok := middleware.ResolveActor(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	feature, ok := featureFromParam(c.Params("feature"))
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Unknown feature!", nil)
	}

	ledger := subscription.NewLedger(database.Database.Db)
	sub, err := ledger.GetActive(actor.ID, feature)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Subscription fetched!", sub)
}

// RedeemKey activates an AI-assistant key for the authenticated actor.
func RedeemKey(c *fiber.Ctx) error {
	actor, ok := middleware.ResolveActor(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	reqData, ok := c.Locals("validatedKeyRedeem").(*struct {
		Code string `json:"code" validate:"required"`
	})
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
	}

	facade := entitlement.NewFacade(database.Database.Db)
	key, err := facade.RedeemKey(actor, reqData.Code, models.KeyKindAiAssistant)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}

	utils.SendKeyActivatedEmail(actor.Email, "AI Chart Assistant")

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Key redeemed successfully!", fiber.Map{
		"kind": key.Kind,
	})
}

// RedeemKeyByEmail is the public AI-key activation variant, usable
// before an account exists.
func RedeemKeyByEmail(c *fiber.Ctx) error {
	reqData, ok := c.Locals("validatedKeyActivate").(*struct {
		Code  string `json:"code" validate:"required"`
		Email string `json:"email" validate:"required,email"`
	})
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
	}

	facade := entitlement.NewFacade(database.Database.Db)
	key, err := facade.ActivateKey(reqData.Code, reqData.Email, models.KeyKindAiAssistant)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}

	utils.SendKeyActivatedEmail(*key.BoundEmail, "AI Chart Assistant")

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Key activated successfully!", fiber.Map{
		"kind": key.Kind,
	})
}

// Purchase is the direct-payment path. It stays routed but is rejected
// unless the feature flag enables it.
func Purchase(c *fiber.Ctx) error {
	actor, ok := middleware.ResolveActor(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	reqData := new(struct {
		Feature string `json:"feature"`
	})
	if err := c.BodyParser(reqData); err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
	}

	feature, ok := featureFromParam(reqData.Feature)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Unknown feature!", nil)
	}

	facade := entitlement.NewFacade(database.Database.Db)
	sub, err := facade.PurchaseSubscription(actor, feature)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Subscription purchased!", sub)
}

// Revoke deactivates a subscription (admin only).
func Revoke(c *fiber.Ctx) error {
	subID := c.Locals("subscriptionID").(int)

	ledger := subscription.NewLedger(database.Database.Db)
	if err := ledger.Revoke(uint(subID)); err != nil {
		return middleware.ErrorResponse(c, err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Subscription revoked!", nil)
}
