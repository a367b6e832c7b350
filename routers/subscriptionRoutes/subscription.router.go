package subscriptionRoutes

import (
	subscriptionController "academy/controllers/subscription"
	"academy/middleware"
	keyValidator "academy/validators/key"
	subscriptionValidator "academy/validators/subscription"

	"github.com/gofiber/fiber/v2"
)

// SetupSubscriptionRoutes sets up subscription status, redemption and
// admin revocation routes
func SetupSubscriptionRoutes(app *fiber.App) {
	subGroup := app.Group("/subscription")

	// Public AI key activation, usable before an account exists
	subGroup.Post("/redeem-key-email", keyValidator.ActivateKey(), subscriptionController.RedeemKeyByEmail)

	// Authenticated
	subGroup.Get("/:feature/active", middleware.JWTMiddleware, subscriptionController.GetActive)
	subGroup.Post("/redeem-key", middleware.JWTMiddleware, keyValidator.RedeemKey(), subscriptionController.RedeemKey)
	subGroup.Post("/purchase", middleware.JWTMiddleware, subscriptionController.Purchase)

	// Admin
	adminGroup := app.Group("/admin/subscription", middleware.JWTMiddleware, middleware.AdminOnly)
	adminGroup.Post("/:id/revoke", subscriptionValidator.SubscriptionID(), subscriptionController.Revoke)
}
