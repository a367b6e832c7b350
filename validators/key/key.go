package keyValidator

import (
	"academy/middleware"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

func fieldErrors(err error) map[string]string {
	errors := make(map[string]string)
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range verrs {
			errors[strings.ToLower(fe.Field())] = "Invalid value for " + fe.Field() + "!"
		}
	} else {
		errors["body"] = "Invalid request body!"
	}
	return errors
}

// ActivateKey validates the public activation payload (code + email).
func ActivateKey() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(struct {
			Code  string `json:"code" validate:"required"`
			Email string `json:"email" validate:"required,email"`
		})
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}
		if err := validate.Struct(reqData); err != nil {
			return middleware.ValidationErrorResponse(c, fieldErrors(err))
		}

		c.Locals("validatedKeyActivate", reqData)
		return c.Next()
	}
}

// RedeemKey validates the authenticated redeem payload (code only).
func RedeemKey() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(struct {
			Code string `json:"code" validate:"required"`
		})
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}
		if err := validate.Struct(reqData); err != nil {
			return middleware.ValidationErrorResponse(c, fieldErrors(err))
		}

		c.Locals("validatedKeyRedeem", reqData)
		return c.Next()
	}
}

// GenerateKey validates the admin issue payload.
func GenerateKey() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(struct {
			Kind           string `json:"kind" validate:"required,oneof=COURSE AI_ASSISTANT RECOMMENDATION"`
			TargetCourseID uint   `json:"targetCourseId"`
			Notes          string `json:"notes"`
			ExpiresInDays  int    `json:"expiresInDays" validate:"gte=0"`
			Quantity       int    `json:"quantity" validate:"gte=0,lte=1000"`
		})
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}
		if err := validate.Struct(reqData); err != nil {
			return middleware.ValidationErrorResponse(c, fieldErrors(err))
		}

		c.Locals("validatedKeyGenerate", reqData)
		return c.Next()
	}
}

// KeyID validates the :id path parameter.
func KeyID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		idStr := strings.TrimSpace(c.Params("id"))
		id, err := strconv.Atoi(idStr)
		if err != nil || id <= 0 {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid key ID!", nil)
		}

		c.Locals("keyID", id)
		return c.Next()
	}
}
