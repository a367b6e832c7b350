package aiRoutes

import (
	aiController "academy/controllers/ai"
	"academy/middleware"
	subscriptionValidator "academy/validators/subscription"

	"github.com/gofiber/fiber/v2"
)

// SetupAiRoutes sets up the chart-analysis assistant routes
func SetupAiRoutes(app *fiber.App) {
	aiGroup := app.Group("/ai", middleware.JWTMiddleware)

	aiGroup.Post("/analyze", subscriptionValidator.Analyze(), aiController.Analyze)
	aiGroup.Get("/history", aiController.History)
}
