package keyController

import (
	"academy/database"
	"academy/middleware"
	"academy/models"
	"academy/services/entitlement"
	"academy/services/keys"
	"academy/utils"
	"time"

	"github.com/gofiber/fiber/v2"
)

func productName(key *models.ActivationKey) string {
	switch key.Kind {
	case models.KeyKindAiAssistant:
		return "AI Chart Assistant"
	case models.KeyKindRecommendation:
		return "Recommendation Feed"
	default:
		return "Course Access"
	}
}

// Activate is the public course-key activation endpoint; it works before
// an account exists. The entitlement is materialized immediately when
// the account is already there, otherwise on first login.
func Activate(c *fiber.Ctx) error {
	reqData, ok := c.Locals("validatedKeyActivate").(*struct {
		Code  string `json:"code" validate:"required"`
		Email string `json:"email" validate:"required,email"`
	})
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
	}

	facade := entitlement.NewFacade(database.Database.Db)
	key, err := facade.ActivateKey(reqData.Code, reqData.Email, models.KeyKindCourse)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}

	utils.SendKeyActivatedEmail(*key.BoundEmail, productName(key))

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Key activated successfully!", fiber.Map{
		"kind":     key.Kind,
		"courseId": key.TargetCourseID,
	})
}

// Redeem activates a course key against the authenticated actor's email.
func Redeem(c *fiber.Ctx) error {
	actor, ok := middleware.ResolveActor(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	reqData, ok := c.Locals("validatedKeyRedeem").(*struct {
		Code string `json:"code" validate:"required"`
	})
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
	}

	facade := entitlement.NewFacade(database.Database.Db)
	key, err := facade.RedeemKey(actor, reqData.Code, models.KeyKindCourse)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}

	utils.SendKeyActivatedEmail(actor.Email, productName(key))

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Key redeemed successfully!", fiber.Map{
		"kind":     key.Kind,
		"courseId": key.TargetCourseID,
	})
}

// CheckAccess is the public pre-check: does this email already hold
// access to the course?
func CheckAccess(c *fiber.Ctx) error {
	email := c.Query("email")
	courseID := c.QueryInt("courseId")
	if email == "" || courseID <= 0 {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Email and courseId are required!", nil)
	}

	facade := entitlement.NewFacade(database.Database.Db)
	hasAccess, err := facade.HasCourseAccess(email, uint(courseID))
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Access checked!", fiber.Map{
		"hasAccess": hasAccess,
	})
}

// --- Admin operations ---

func Generate(c *fiber.Ctx) error {
	actor, _ := middleware.ResolveActor(c)

	reqData, ok := c.Locals("validatedKeyGenerate").(*struct {
		Kind           string `json:"kind" validate:"required,oneof=COURSE AI_ASSISTANT RECOMMENDATION"`
		TargetCourseID uint   `json:"targetCourseId"`
		Notes          string `json:"notes"`
		ExpiresInDays  int    `json:"expiresInDays" validate:"gte=0"`
		Quantity       int    `json:"quantity" validate:"gte=0,lte=1000"`
	})
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
	}

	registry := keys.NewRegistry(database.Database.Db)
	params := keys.IssueParams{
		Kind:           reqData.Kind,
		TargetCourseID: reqData.TargetCourseID,
		Notes:          reqData.Notes,
		CreatedBy:      actor.ID,
		ExpiresAt:      expiryFromDays(reqData.ExpiresInDays),
	}

	if reqData.Quantity > 1 {
		issued, err := registry.IssueBulk(params, reqData.Quantity)
		if err != nil {
			return middleware.ErrorResponse(c, err)
		}
		return middleware.JsonResponse(c, fiber.StatusCreated, true, "Keys generated successfully!", issued)
	}

	key, err := registry.Issue(params)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Key generated successfully!", key)
}

func Deactivate(c *fiber.Ctx) error {
	keyID := c.Locals("keyID").(int)

	registry := keys.NewRegistry(database.Database.Db)
	key, err := registry.Deactivate(uint(keyID))
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Key deactivated!", key)
}

func ListKeys(c *fiber.Ctx) error {
	filter := keys.ListFilter{
		Kind:  c.Query("kind"),
		Page:  c.QueryInt("page", 1),
		Limit: c.QueryInt("limit", 50),
	}
	switch c.Query("state") {
	case "activated":
		t := true
		filter.Activated = &t
	case "unused":
		f := false
		filter.Activated = &f
	}

	registry := keys.NewRegistry(database.Database.Db)
	list, total, err := registry.List(filter)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Keys fetched successfully!", fiber.Map{
		"keys": list,
		"pagination": fiber.Map{
			"total": total,
			"page":  filter.Page,
			"limit": filter.Limit,
		},
	})
}

func expiryFromDays(days int) *time.Time {
	if days <= 0 {
		return nil
	}
	t := time.Now().AddDate(0, 0, days)
	return &t
}

func Stats(c *fiber.Ctx) error {
	registry := keys.NewRegistry(database.Database.Db)
	stats, err := registry.Stats()
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Key statistics fetched!", stats)
}
