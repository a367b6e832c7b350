package controllers

import (
	"academy/database"
	"academy/middleware"
	"academy/models"
	"academy/services/entitlement"

	"github.com/gofiber/fiber/v2"
)

// GetAllCourses lists published courses. Enrollment state is attached
// for the calling user.
func GetAllCourses(c *fiber.Ctx) error {
	actor, ok := middleware.ResolveActor(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	db := database.Database.Db

	var courses []models.Course
	if err := db.Where("is_published = ? AND is_deleted = ?", true, false).
		Order("created_at desc").Find(&courses).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch courses!", nil)
	}

	var enrollments []models.Enrollment
	db.Where("user_id = ? AND is_deleted = ?", actor.ID, false).Find(&enrollments)
	enrolledCourses := make(map[uint]models.Enrollment, len(enrollments))
	for _, e := range enrollments {
		enrolledCourses[e.CourseID] = e
	}

	type CourseListItem struct {
		Course     models.Course `json:"course"`
		IsEnrolled bool          `json:"is_enrolled"`
		Progress   float64       `json:"progress"`
	}

	items := make([]CourseListItem, 0, len(courses))
	for _, course := range courses {
		e, enrolled := enrolledCourses[course.ID]
		items = append(items, CourseListItem{
			Course:     course,
			IsEnrolled: enrolled,
			Progress:   e.Progress,
		})
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Courses fetched successfully!", items)
}

// GetCourseDetails returns the course with per-episode lock and
// completion state. Requires enrollment (or admin).
func GetCourseDetails(c *fiber.Ctx) error {
	actor, ok := middleware.ResolveActor(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	courseID := uint(c.Locals("courseID").(int))

	db := database.Database.Db

	var course models.Course
	if err := db.Where("id = ? AND is_published = ? AND is_deleted = ?", courseID, true, false).
		First(&course).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Course not found!", nil)
	}

	facade := entitlement.NewFacade(db)
	enrollment, err := facade.CheckCourseAccess(actor, courseID)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}

	episodes, err := facade.Progress.CourseState(actor.ID, courseID)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Course fetched successfully!", fiber.Map{
		"course":     course,
		"enrollment": enrollment,
		"episodes":   episodes,
	})
}

// GetEpisode returns one episode for watching; locked episodes are
// refused.
func GetEpisode(c *fiber.Ctx) error {
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

	unlocked, err := facade.Progress.IsEpisodeUnlocked(actor.ID, &episode)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	if !unlocked && !actor.IsAdmin() {
		return middleware.JsonResponse(c, fiber.StatusForbidden, false, "Complete the previous episode to unlock this one!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Episode fetched successfully!", episode)
}

// UpdateEpisodeProgress records watch time for an episode.
func UpdateEpisodeProgress(c *fiber.Ctx) error {
	actor, ok := middleware.ResolveActor(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	courseID := uint(c.Locals("courseID").(int))
	episodeID := uint(c.Locals("episodeID").(int))
	watchedSeconds := c.Locals("watchedSeconds").(int)

	db := database.Database.Db
	facade := entitlement.NewFacade(db)

	if _, err := facade.CheckCourseAccess(actor, courseID); err != nil {
		return middleware.ErrorResponse(c, err)
	}

	progress, err := facade.Progress.UpdateWatchProgress(actor.ID, courseID, episodeID, watchedSeconds)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Progress updated!", progress)
}

// MarkEpisodeComplete completes an episode once the watch-time and quiz
// gates hold, and returns the recomputed enrollment.
func MarkEpisodeComplete(c *fiber.Ctx) error {
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

	enrollment, err := facade.Progress.MarkComplete(actor.ID, courseID, episodeID)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Episode completed!", enrollment)
}

// GetCourseProgress returns the caller's enrollment with progress fields.
func GetCourseProgress(c *fiber.Ctx) error {
	actor, ok := middleware.ResolveActor(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	courseID := uint(c.Locals("courseID").(int))

	db := database.Database.Db
	facade := entitlement.NewFacade(db)

	enrollment, err := facade.CheckCourseAccess(actor, courseID)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	if enrollment == nil {
		return middleware.JsonResponse(c, fiber.StatusOK, true, "Admin access, no enrollment tracked.", nil)
	}

	episodes, err := facade.Progress.CourseState(actor.ID, courseID)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Progress fetched successfully!", fiber.Map{
		"enrollment": enrollment,
		"episodes":   episodes,
	})
}
