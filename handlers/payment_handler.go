package handlers

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/edupay/payment_service/database"
	"github.com/edupay/payment_service/models"
	"github.com/edupay/payment_service/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// statusForError maps the service error taxonomy to HTTP statuses.
func statusForError(err error) int {
	switch {
	case errors.Is(err, services.ErrInvalidAmount),
		errors.Is(err, services.ErrDuplicateEnrollment),
		errors.Is(err, services.ErrAlreadyRefunded),
		errors.Is(err, services.ErrInvalidPayoutState),
		errors.Is(err, services.ErrExistingPendingPayout),
		errors.Is(err, services.ErrInsufficientBalance),
		errors.Is(err, services.ErrInsufficientBalanceAtSettlement),
		errors.Is(err, services.ErrInstructorNotPayable):
		return fiber.StatusBadRequest
	case errors.Is(err, services.ErrTransactionNotFound),
		errors.Is(err, services.ErrPayoutNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, services.ErrUnauthorized):
		return fiber.StatusForbidden
	default:
		return fiber.StatusInternalServerError
	}
}

type ChargeRequest struct {
	CourseID           string  `json:"course_id" validate:"required,uuid4"`
	InstructorID       string  `json:"instructor_id" validate:"required,uuid4"`
	Amount             float64 `json:"amount" validate:"required,gt=0"`
	Currency           string  `json:"currency" validate:"required,len=3"`
	PaymentMethodToken string  `json:"payment_method_token" validate:"required"`
	Description        string  `json:"description"`
}

// ChargeCourse charges the learner's payment method and records the
// completed payment in the ledger.
func ChargeCourse(c *fiber.Ctx) error {
	payerID, err := userIDFromToken(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req ChargeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	courseID, _ := uuid.Parse(req.CourseID)
	instructorID, _ := uuid.Parse(req.InstructorID)
	amount := decimal.NewFromFloat(req.Amount)

	charge, err := gatewayClient.Charge(amount, req.Currency, req.PaymentMethodToken, map[string]string{
		"payer_id":  payerID.String(),
		"course_id": req.CourseID,
	})
	if err != nil {
		log.Printf("🔥 Gateway charge failed for payer %s: %v", payerID, err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Payment could not be processed"})
	}

	txn, err := ledgerService.RecordPayment(services.RecordPaymentParams{
		PayerID:           payerID,
		CourseID:          courseID,
		InstructorID:      instructorID,
		GrossAmount:       amount,
		Currency:          req.Currency,
		ExternalChargeRef: charge.ChargeRef,
		Description:       req.Description,
	})
	if err != nil {
		return c.Status(statusForError(err)).JSON(fiber.Map{"error": err.Error()})
	}

	return c.Status(fiber.StatusCreated).JSON(txn)
}

type RefundRequest struct {
	Amount *float64 `json:"amount" validate:"omitempty,gt=0"`
	Reason string   `json:"reason" validate:"required"`
}

// RefundTransaction refunds a payment fully or partially. Admin only.
func RefundTransaction(c *fiber.Ctx) error {
	transactionID, err := uuid.Parse(c.Params("transactionId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid transaction ID format"})
	}

	var req RefundRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	var requestedAmount *decimal.Decimal
	if req.Amount != nil {
		amount := decimal.NewFromFloat(*req.Amount)
		requestedAmount = &amount
	}

	actorID, _ := userIDFromToken(c)
	refund, err := ledgerService.RecordRefund(transactionID, requestedAmount, req.Reason, &actorID)
	if err != nil {
		var gwErr *services.GatewayError
		if errors.As(err, &gwErr) {
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(statusForError(err)).JSON(fiber.Map{"error": err.Error()})
	}

	return c.Status(fiber.StatusCreated).JSON(refund)
}

type DisputeWebhookPayload struct {
	ChargeRef string `json:"charge_ref" validate:"required"`
	Reason    string `json:"reason"`
}

// HandleDisputeWebhook marks a payment disputed after an out-of-band
// chargeback notification from the gateway.
func HandleDisputeWebhook(c *fiber.Ctx) error {
	var payload DisputeWebhookPayload
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse webhook payload"})
	}
	if err := validate.Struct(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	var txn models.Transaction
	if err := database.DB.Where("external_charge_ref = ?", payload.ChargeRef).First(&txn).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Transaction not found for this charge"})
	}

	if err := ledgerService.MarkDisputed(txn.ID, payload.Reason); err != nil {
		return c.Status(statusForError(err)).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{"message": "Dispute recorded"})
}

func GetTransaction(c *fiber.Ctx) error {
	transactionID, err := uuid.Parse(c.Params("transactionId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid transaction ID format"})
	}

	txn, err := ledgerService.GetTransactionByID(transactionID)
	if err != nil {
		return c.Status(statusForError(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(txn)
}

// ExportTransactionsCSV streams a date-ranged transaction report. Admin only.
func ExportTransactionsCSV(c *fiber.Ctx) error {
	startDate, err := time.Parse("2006-01-02", c.Query("start"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid start date, expected YYYY-MM-DD"})
	}
	endDate, err := time.Parse("2006-01-02", c.Query("end"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid end date, expected YYYY-MM-DD"})
	}

	var transactions []models.Transaction
	if err := database.DB.
		Where("created_at BETWEEN ? AND ?", startDate, endDate.Add(24*time.Hour)).
		Order("created_at asc").
		Find(&transactions).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Database error"})
	}

	var b bytes.Buffer
	w := csv.NewWriter(&b)
	if err := w.Write([]string{"ID", "Date", "Kind", "Status", "Amount", "Currency", "Commission", "Earnings", "Course", "Instructor"}); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to write CSV header"})
	}

	for _, t := range transactions {
		row := []string{
			t.ID.String(),
			t.CreatedAt.Format("2006-01-02 15:04"),
			string(t.Kind),
			string(t.Status),
			t.Amount.StringFixed(2),
			t.Currency,
			t.PlatformCommission.StringFixed(2),
			t.InstructorEarnings.StringFixed(2),
			t.CourseID.String(),
			t.InstructorID.String(),
		}
		if err := w.Write(row); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to write CSV row"})
		}
	}
	w.Flush()

	c.Set("Content-Type", "text/csv")
	c.Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"transactions_%s_to_%s.csv\"", startDate.Format("2006-01-02"), endDate.Format("2006-01-02")))

	return c.Send(b.Bytes())
}
