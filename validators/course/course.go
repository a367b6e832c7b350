package courseValidator

import (
	"academy/middleware"
	"academy/services/progression"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
)

func paramInt(c *fiber.Ctx, name string) (int, bool) {
	raw := strings.TrimSpace(c.Params(name))
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return 0, false
	}
	return value, true
}

// CourseID validates the :id path parameter.
func CourseID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		courseID, ok := paramInt(c, "id")
		if !ok {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid Course ID!", nil)
		}

		c.Locals("courseID", courseID)
		return c.Next()
	}
}

// Episode validates the :course_id/:episode_id pair.
func Episode() fiber.Handler {
	return func(c *fiber.Ctx) error {
		courseID, ok := paramInt(c, "course_id")
		if !ok {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid Course ID!", nil)
		}
		episodeID, ok := paramInt(c, "episode_id")
		if !ok {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid Episode ID!", nil)
		}

		c.Locals("courseID", courseID)
		c.Locals("episodeID", episodeID)
		return c.Next()
	}
}

// EpisodeProgress validates the watch-progress payload on top of the
// episode params.
func EpisodeProgress() fiber.Handler {
	return func(c *fiber.Ctx) error {
		courseID, ok := paramInt(c, "course_id")
		if !ok {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid Course ID!", nil)
		}
		episodeID, ok := paramInt(c, "episode_id")
		if !ok {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid Episode ID!", nil)
		}

		reqData := new(struct {
			WatchedSeconds *int `json:"watched_seconds"`
		})
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}
		if reqData.WatchedSeconds == nil || *reqData.WatchedSeconds < 0 {
			return middleware.ValidationErrorResponse(c, map[string]string{
				"watched_seconds": "Watched seconds must be zero or greater!",
			})
		}

		c.Locals("courseID", courseID)
		c.Locals("episodeID", episodeID)
		c.Locals("watchedSeconds", *reqData.WatchedSeconds)
		return c.Next()
	}
}

// QuizSubmit validates a quiz submission payload.
func QuizSubmit() fiber.Handler {
	return func(c *fiber.Ctx) error {
		courseID, ok := paramInt(c, "course_id")
		if !ok {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid Course ID!", nil)
		}
		episodeID, ok := paramInt(c, "episode_id")
		if !ok {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid Episode ID!", nil)
		}

		reqData := new(struct {
			Answers []progression.Answer `json:"answers"`
		})
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}
		if len(reqData.Answers) == 0 {
			return middleware.ValidationErrorResponse(c, map[string]string{
				"answers": "At least one answer is required!",
			})
		}

		c.Locals("courseID", courseID)
		c.Locals("episodeID", episodeID)
		c.Locals("quizAnswers", reqData.Answers)
		return c.Next()
	}
}
