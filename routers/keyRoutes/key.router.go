package keyRoutes

import (
	keyController "academy/controllers/key"
	"academy/middleware"
	keyValidator "academy/validators/key"

	"github.com/gofiber/fiber/v2"
)

// SetupKeyRoutes sets up activation-key routes. Activation and the
// access pre-check are public so a key can be used before an account
// exists; management routes are admin-only.
func SetupKeyRoutes(app *fiber.App) {
	keyGroup := app.Group("/key")

	// Public
	keyGroup.Post("/activate", keyValidator.ActivateKey(), keyController.Activate)
	keyGroup.Get("/check-access", keyController.CheckAccess)

	// Authenticated
	keyGroup.Post("/redeem", middleware.JWTMiddleware, keyValidator.RedeemKey(), keyController.Redeem)

	// Admin
	adminGroup := app.Group("/admin/key", middleware.JWTMiddleware, middleware.AdminOnly)
	adminGroup.Post("/generate", keyValidator.GenerateKey(), keyController.Generate)
	adminGroup.Post("/generate-bulk", keyValidator.GenerateKey(), keyController.Generate)
	adminGroup.Post("/:id/deactivate", keyValidator.KeyID(), keyController.Deactivate)
	adminGroup.Get("/list", keyController.ListKeys)
	adminGroup.Get("/stats", keyController.Stats)
}
