package courseRoutes

import (
	controllers "academy/controllers/course"
	"academy/middleware"
	validators "academy/validators/course"

	"github.com/gofiber/fiber/v2"
)

// SetupCourseRoutes sets up all user-facing course routes
func SetupCourseRoutes(app *fiber.App) {
	userGroup := app.Group("/course")

	// Course listing and details
	userGroup.Get("/list", middleware.JWTMiddleware, controllers.GetAllCourses)
	userGroup.Get("/:id", middleware.JWTMiddleware, validators.CourseID(), controllers.GetCourseDetails)
	userGroup.Get("/:id/progress", middleware.JWTMiddleware, validators.CourseID(), controllers.GetCourseProgress)

	// Episode viewing and progress
	userGroup.Get("/:course_id/episode/:episode_id", middleware.JWTMiddleware, validators.Episode(), controllers.GetEpisode)
	userGroup.Post("/:course_id/episode/:episode_id/progress", middleware.JWTMiddleware, validators.EpisodeProgress(), controllers.UpdateEpisodeProgress)
	userGroup.Post("/:course_id/episode/:episode_id/complete", middleware.JWTMiddleware, validators.Episode(), controllers.MarkEpisodeComplete)

	// Quiz gating
	userGroup.Get("/:course_id/episode/:episode_id/quiz", middleware.JWTMiddleware, validators.Episode(), controllers.GetQuizForEpisode)
	userGroup.Post("/:course_id/episode/:episode_id/quiz/submit", middleware.JWTMiddleware, validators.QuizSubmit(), controllers.SubmitQuizForEpisode)

	// Admin course management
	adminGroup := app.Group("/admin/course", middleware.JWTMiddleware, middleware.AdminOnly)
	adminGroup.Post("/create", controllers.CreateCourse)
	adminGroup.Post("/:id/episode", validators.CourseID(), controllers.CreateEpisode)
	adminGroup.Post("/:id/quiz", validators.CourseID(), controllers.CreateQuiz)
	adminGroup.Post("/:id/enroll", validators.CourseID(), controllers.AdminEnrollUser)
}
