package controllers

import (
	"academy/database"
	"academy/middleware"
	"academy/models"
	"academy/services/entitlement"

	"github.com/gofiber/fiber/v2"
)

// CreateCourse creates a new course (admin only).
func CreateCourse(c *fiber.Ctx) error {
	reqData := new(struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Author      string `json:"author"`
		IsPublished bool   `json:"is_published"`
	})
	if err := c.BodyParser(reqData); err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
	}
	if reqData.Title == "" {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Title is required!", nil)
	}

	course := models.Course{
		Title:       reqData.Title,
		Description: reqData.Description,
		Author:      reqData.Author,
		IsPublished: reqData.IsPublished,
		Status:      "ACTIVE",
	}
	if err := database.Database.Db.Create(&course).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to create course!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Course created successfully!", course)
}

// CreateEpisode appends an episode to a course (admin only).
func CreateEpisode(c *fiber.Ctx) error {
	courseID := uint(c.Locals("courseID").(int))

	reqData := new(struct {
		Title           string `json:"title"`
		Description     string `json:"description"`
		VideoURL        string `json:"video_url"`
		OrderIndex      int    `json:"order_index"`
		DurationSeconds int    `json:"duration_seconds"`
		IsPublished     bool   `json:"is_published"`
	})
	if err := c.BodyParser(reqData); err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
	}
	if reqData.Title == "" || reqData.OrderIndex < 1 {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Title and a positive order index are required!", nil)
	}

	db := database.Database.Db

	var course models.Course
	if err := db.Where("id = ? AND is_deleted = ?", courseID, false).First(&course).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Course not found!", nil)
	}

	episode := models.Episode{
		CourseID:        courseID,
		Title:           reqData.Title,
		Description:     reqData.Description,
		VideoURL:        reqData.VideoURL,
		OrderIndex:      reqData.OrderIndex,
		DurationSeconds: reqData.DurationSeconds,
		IsPublished:     reqData.IsPublished,
	}
	if err := db.Create(&episode).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to create episode!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Episode created successfully!", episode)
}

// CreateQuiz creates the quiz for a level of a course, with its
// questions and options in one payload (admin only).
func CreateQuiz(c *fiber.Ctx) error {
	courseID := uint(c.Locals("courseID").(int))

	reqData := new(struct {
		Level        int    `json:"level"`
		Title        string `json:"title"`
		PassingScore int    `json:"passing_score"`
		Questions    []struct {
			Prompt  string `json:"prompt"`
			Options []struct {
				Text      string `json:"text"`
				IsCorrect bool   `json:"is_correct"`
			} `json:"options"`
		} `json:"questions"`
	})
	if err := c.BodyParser(reqData); err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
	}
	if reqData.Level < 1 || len(reqData.Questions) == 0 {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "A positive level and at least one question are required!", nil)
	}
	if reqData.PassingScore <= 0 || reqData.PassingScore > 100 {
		reqData.PassingScore = 50
	}

	db := database.Database.Db

	var course models.Course
	if err := db.Where("id = ? AND is_deleted = ?", courseID, false).First(&course).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Course not found!", nil)
	}

	var existing models.Quiz
	if err := db.Where("course_id = ? AND level = ? AND is_deleted = ?", courseID, reqData.Level, false).
		First(&existing).Error; err == nil {
		return middleware.JsonResponse(c, fiber.StatusConflict, false, "A quiz for this level already exists!", nil)
	}

	quiz := models.Quiz{
		CourseID:     courseID,
		Level:        reqData.Level,
		Title:        reqData.Title,
		PassingScore: reqData.PassingScore,
	}
	if err := db.Create(&quiz).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to create quiz!", nil)
	}

	for qi, q := range reqData.Questions {
		question := models.QuizQuestion{QuizID: quiz.ID, Prompt: q.Prompt, OrderIndex: qi}
		if err := db.Create(&question).Error; err != nil {
			return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to create quiz questions!", nil)
		}
		for oi, o := range q.Options {
			option := models.QuizOption{
				QuestionID: question.ID,
				OptionText: o.Text,
				IsCorrect:  o.IsCorrect,
				OrderIndex: oi,
			}
			if err := db.Create(&option).Error; err != nil {
				return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to create quiz options!", nil)
			}
		}
	}

	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Quiz created successfully!", quiz)
}

// AdminEnrollUser enrolls a user into a course directly, without a key
// (admin only). Duplicate enrollment is a conflict.
func AdminEnrollUser(c *fiber.Ctx) error {
	courseID := uint(c.Locals("courseID").(int))

	reqData := new(struct {
		UserID uint `json:"user_id"`
	})
	if err := c.BodyParser(reqData); err != nil || reqData.UserID == 0 {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "A valid user_id is required!", nil)
	}

	db := database.Database.Db

	var user models.User
	if err := db.Where("id = ? AND is_deleted = ?", reqData.UserID, false).First(&user).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "User not found!", nil)
	}

	facade := entitlement.NewFacade(db)
	enrollment, err := facade.Enroll(reqData.UserID, courseID)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "User enrolled successfully!", enrollment)
}
