package recommendationValidator

import (
	"academy/middleware"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

// Publish validates a recommendation post.
func Publish() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(struct {
			Symbol  string `json:"symbol"`
			Action  string `json:"action" validate:"omitempty,oneof=BUY SELL HOLD GENERAL"`
			Title   string `json:"title"`
			Message string `json:"message" validate:"required"`
		})
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		reqData.Action = strings.ToUpper(strings.TrimSpace(reqData.Action))

		if err := validate.Struct(reqData); err != nil {
			errors := make(map[string]string)
			if verrs, ok := err.(validator.ValidationErrors); ok {
				for _, fe := range verrs {
					errors[strings.ToLower(fe.Field())] = "Invalid value for " + fe.Field() + "!"
				}
			} else {
				errors["body"] = "Invalid request body!"
			}
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedPublish", reqData)
		return c.Next()
	}
}
