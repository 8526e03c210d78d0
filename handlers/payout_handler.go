package handlers

import (
	"time"

	"github.com/edupay/payment_service/models"
	"github.com/edupay/payment_service/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PayoutRequestBody struct {
	Amount        float64 `json:"amount" validate:"required,gt=0"`
	PaymentMethod string  `json:"payment_method" validate:"required,oneof=bank_transfer paypal stripe express other"`
	BankDetails   string  `json:"bank_details" validate:"required"`
	Notes         string  `json:"notes"`
}

// RequestPayout lets an instructor request settlement of their unsettled
// earnings.
func RequestPayout(c *fiber.Ctx) error {
	instructor, err := instructorFromToken(c)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Instructor profile not found"})
	}

	var req PayoutRequestBody
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	payout, err := payoutService.RequestPayout(
		instructor.ID,
		decimal.NewFromFloat(req.Amount),
		req.PaymentMethod,
		req.BankDetails,
		req.Notes,
	)
	if err != nil {
		return c.Status(statusForError(err)).JSON(fiber.Map{"error": err.Error()})
	}

	return c.Status(fiber.StatusCreated).JSON(payout)
}

// CancelPayout cancels a pending payout. Instructors may cancel their own,
// admins any.
func CancelPayout(c *fiber.Ctx) error {
	payoutID, err := uuid.Parse(c.Params("payoutId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid payout ID format"})
	}

	isAdmin := isAdminToken(c)
	actorID, err := userIDFromToken(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	if !isAdmin {
		instructor, err := instructorFromToken(c)
		if err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Instructor profile not found"})
		}
		actorID = instructor.ID
	}

	payout, err := payoutService.CancelPayout(payoutID, actorID, isAdmin)
	if err != nil {
		return c.Status(statusForError(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(payout)
}

// GetMyPayouts lists the calling instructor's payouts, newest first.
func GetMyPayouts(c *fiber.Ctx) error {
	instructor, err := instructorFromToken(c)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Instructor profile not found"})
	}

	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 20)

	payouts, total, err := payoutService.ListPayoutsForInstructor(instructor.ID, page, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Database error"})
	}
	return c.JSON(fiber.Map{"payouts": payouts, "total": total, "page": page})
}

// ProcessPayout settles a pending payout. Admin only.
func ProcessPayout(c *fiber.Ctx) error {
	payoutID, err := uuid.Parse(c.Params("payoutId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid payout ID format"})
	}

	actorID, err := userIDFromToken(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	payout, err := payoutService.ProcessPayout(payoutID, actorID)
	if err != nil {
		return c.Status(statusForError(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(payout)
}

// GetPayout returns one payout. Admin only.
func GetPayout(c *fiber.Ctx) error {
	payoutID, err := uuid.Parse(c.Params("payoutId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid payout ID format"})
	}

	payout, err := payoutService.GetPayoutByID(payoutID)
	if err != nil {
		return c.Status(statusForError(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(payout)
}

// ListAllPayouts lists payouts across instructors with filters. Admin only.
func ListAllPayouts(c *fiber.Ctx) error {
	filter := services.PayoutFilter{
		Status: models.PayoutStatus(c.Query("status")),
		Page:   c.QueryInt("page", 1),
		Limit:  c.QueryInt("limit", 20),
	}

	if raw := c.Query("instructor_id"); raw != "" {
		instructorID, err := uuid.Parse(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid instructor ID format"})
		}
		filter.InstructorID = &instructorID
	}
	if raw := c.Query("from"); raw != "" {
		from, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid from date, expected YYYY-MM-DD"})
		}
		filter.RequestedFrom = &from
	}
	if raw := c.Query("to"); raw != "" {
		to, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid to date, expected YYYY-MM-DD"})
		}
		end := to.Add(24 * time.Hour)
		filter.RequestedTo = &end
	}

	payouts, total, err := payoutService.ListAllPayouts(filter)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Database error"})
	}
	return c.JSON(fiber.Map{"payouts": payouts, "total": total})
}
