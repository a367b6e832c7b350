package middleware

import (
	"academy/database"
	"academy/models"

	"github.com/gofiber/fiber/v2"
)

// AdminOnly allows only actors with the ADMIN role through. The role is
// re-checked against the user row so a stale token cannot outlive a
// demotion.
func AdminOnly(c *fiber.Ctx) error {
	actor, ok := ResolveActor(c)
	if !ok {
		return JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	if !actor.IsAdmin() {
		return JsonResponse(c, fiber.StatusForbidden, false, "Admin access required!", nil)
	}

	var user models.User
	if err := database.Database.Db.Where("id = ? AND role = ? AND is_deleted = ?", actor.ID, models.ActorAdmin, false).First(&user).Error; err != nil {
		return JsonResponse(c, fiber.StatusForbidden, false, "Admin access required!", nil)
	}

	return c.Next()
}
