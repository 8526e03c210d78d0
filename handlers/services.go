package handlers

import (
	"errors"

	"github.com/edupay/payment_service/database"
	"github.com/edupay/payment_service/models"
	"github.com/edupay/payment_service/payments"
	"github.com/edupay/payment_service/services"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ledgerService   *services.LedgerService
	payoutService   *services.PayoutService
	earningsService *services.EarningsService
	invoiceService  *services.InvoiceService
	gatewayClient   payments.Gateway
)

// InitServices wires the handler package to its collaborators. Called once
// from main after the database connection is up; the returned services are
// shared with the cron jobs.
func InitServices(db *gorm.DB, gateway payments.Gateway) (*services.LedgerService, *services.PayoutService) {
	calculator := services.NewCommissionCalculator(services.DefaultCommissionConfig())
	ledgerService = services.NewLedgerService(db, calculator, gateway)
	payoutService = services.NewPayoutService(db, ledgerService, gateway)
	earningsService = services.NewEarningsService(db, ledgerService)
	invoiceService = services.NewInvoiceService(db)
	gatewayClient = gateway
	return ledgerService, payoutService
}

func userIDFromToken(c *fiber.Ctx) (uuid.UUID, error) {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok {
		return uuid.Nil, errors.New("missing token")
	}
	claims := token.Claims.(jwt.MapClaims)
	return uuid.Parse(claims["user_id"].(string))
}

func isAdminToken(c *fiber.Ctx) bool {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok {
		return false
	}
	claims := token.Claims.(jwt.MapClaims)
	role, _ := claims["role"].(string)
	return role == "admin"
}

// instructorFromToken resolves the caller's instructor profile.
func instructorFromToken(c *fiber.Ctx) (*models.Instructor, error) {
	userID, err := userIDFromToken(c)
	if err != nil {
		return nil, err
	}
	var instructor models.Instructor
	if err := database.DB.First(&instructor, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &instructor, nil
}
