package subscriptionValidator

import (
	"academy/middleware"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

// Analyze validates the chart-analysis request payload.
func Analyze() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(struct {
			Timeframe string `json:"timeframe" validate:"required,oneof=FIRST SECOND"`
			Symbol    string `json:"symbol"`
			Prompt    string `json:"prompt" validate:"required"`
		})
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		reqData.Timeframe = strings.ToUpper(strings.TrimSpace(reqData.Timeframe))

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

		c.Locals("validatedAnalyze", reqData)
		return c.Next()
	}
}

// SubscriptionID validates the :id path parameter for admin revocation.
func SubscriptionID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		idStr := strings.TrimSpace(c.Params("id"))
		id, err := strconv.Atoi(idStr)
		if err != nil || id <= 0 {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid subscription ID!", nil)
		}

		c.Locals("subscriptionID", id)
		return c.Next()
	}
}
