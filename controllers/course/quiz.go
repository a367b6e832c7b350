package controllers

import (
	"academy/database"
	"academy/middleware"
	"academy/models"
	"academy/services/entitlement"
	"academy/services/progression"

	"github.com/gofiber/fiber/v2"
)

// GetQuizForEpisode returns the quiz gating an episode: whether one is
// required, whether the caller already passed it, and the questions.
// Episode 1 is never quiz-gated.
func GetQuizForEpisode(c *fiber.Ctx) error {
	actor, ok := middleware.ResolveActor(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	courseID := uint(c.Locals("courseID").(int))
	episodeID := uint(c.Locals("episodeID").(int))

	db := database.Database.Db
	facade := entitlement.NewFacade(db)

	if _, err := facade.CheckCourseAccess(actor, courseID); err != nil {
		return middleware.ErrorResponse(c, err)
	}

	var episode models.Episode
	if err := db.Where("id = ? AND course_id = ? AND is_published = ? AND is_deleted = ?",
		episodeID, courseID, true, false).First(&episode).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Episode not found!", nil)
	}

	if episode.OrderIndex <= 1 {
		return middleware.JsonResponse(c, fiber.StatusOK, true, "No quiz required for this episode.", fiber.Map{
			"required": false,
			"passed":   false,
		})
	}

	level := episode.OrderIndex - 1

	var quiz models.Quiz
	if err := db.Where("course_id = ? AND level = ? AND is_deleted = ?", courseID, level, false).
		First(&quiz).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusOK, true, "No quiz required for this episode.", fiber.Map{
			"required": false,
			"passed":   false,
		})
	}

	passed, err := facade.Progress.IsLevelPassed(actor.ID, courseID, level)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}

	var questions []models.QuizQuestion
	db.Where("quiz_id = ? AND is_deleted = ?", quiz.ID, false).
		Order("order_index asc").Find(&questions)

	type QuestionWithOptions struct {
		Question models.QuizQuestion `json:"question"`
		Options  []models.QuizOption `json:"options"`
	}
	detailed := make([]QuestionWithOptions, 0, len(questions))
	for _, q := range questions {
		var options []models.QuizOption
		db.Where("question_id = ? AND is_deleted = ?", q.ID, false).
			Order("order_index asc").Find(&options)
		detailed = append(detailed, QuestionWithOptions{Question: q, Options: options})
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Quiz fetched successfully!", fiber.Map{
		"required":  true,
		"passed":    passed,
		"quiz":      quiz,
		"questions": detailed,
	})
}

// SubmitQuizForEpisode scores a submission against the quiz gating the
// episode and folds it into the caller's level progress.
func SubmitQuizForEpisode(c *fiber.Ctx) error {
	actor, ok := middleware.ResolveActor(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	courseID := uint(c.Locals("courseID").(int))
	episodeID := uint(c.Locals("episodeID").(int))
	answers := c.Locals("quizAnswers").([]progression.Answer)

	db := database.Database.Db
	facade := entitlement.NewFacade(db)

	if _, err := facade.CheckCourseAccess(actor, courseID); err != nil {
		return middleware.ErrorResponse(c, err)
	}

	var episode models.Episode
	if err := db.Where("id = ? AND course_id = ? AND is_published = ? AND is_deleted = ?",
		episodeID, courseID, true, false).First(&episode).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Episode not found!", nil)
	}

	if episode.OrderIndex <= 1 {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "This episode has no quiz!", nil)
	}

	result, err := facade.Progress.SubmitQuiz(actor.ID, courseID, episode.OrderIndex-1, answers)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Quiz submitted!", result)
}
