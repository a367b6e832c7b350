package recommendationRoutes

import (
	recommendationController "academy/controllers/recommendation"
	"academy/middleware"
	keyValidator "academy/validators/key"
	recommendationValidator "academy/validators/recommendation"

	"github.com/gofiber/fiber/v2"
)

// SetupRecommendationRoutes sets up the trade-recommendation feed routes.
// Key activation is public; reading and publishing require a login.
func SetupRecommendationRoutes(app *fiber.App) {
	recoGroup := app.Group("/recommendations")

	recoGroup.Post("/activate-key", keyValidator.ActivateKey(), recommendationController.ActivateKey)

	recoGroup.Get("/feed", middleware.JWTMiddleware, recommendationController.Feed)
	recoGroup.Post("/publish", middleware.JWTMiddleware, recommendationValidator.Publish(), recommendationController.Publish)
}
