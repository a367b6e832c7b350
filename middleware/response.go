package middleware

import (
	"academy/services/apperror"

	"github.com/gofiber/fiber/v2"
)

func JsonResponse(c *fiber.Ctx, statusCode int, status bool, message string, data interface{}) error {
	return c.Status(statusCode).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"data":    data,
	})
}

func ValidationErrorResponse(c *fiber.Ctx, errors map[string]string) error {
	return JsonResponse(c, fiber.StatusUnprocessableEntity, false, "Validation failed!", errors)
}

// ErrorResponse translates a service error into the JSON envelope using
// the kind-to-status mapping. Internal errors get a generic message.
func ErrorResponse(c *fiber.Ctx, err error) error {
	status := apperror.HTTPStatus(err)
	message := err.Error()
	if status == fiber.StatusInternalServerError {
		message = "Something went wrong, please try again!"
	}
	return JsonResponse(c, status, false, message, nil)
}
