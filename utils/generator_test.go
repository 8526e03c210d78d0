package utils

import (
	"fmt"
	"testing"
	"time"

	"github.com/edupay/payment_service/models"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	err = db.AutoMigrate(
		&models.User{},
		&models.Instructor{},
		&models.Transaction{},
		&models.Payout{},
		&models.Invoice{},
	)
	if err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	return db
}

func seedPayout(t *testing.T, db *gorm.DB, number string) {
	t.Helper()
	now := time.Now()
	payout := models.Payout{
		PayoutNumber:  number,
		InstructorID:  uuid.New(),
		Amount:        decimal.NewFromInt(10),
		ProcessingFee: decimal.NewFromInt(1),
		PaymentMethod: models.PayoutMethodPayPal,
		Status:        models.PayoutStatusCompleted,
		PeriodStart:   now,
		PeriodEnd:     now,
		RequestedAt:   now,
	}
	if err := db.Create(&payout).Error; err != nil {
		t.Fatalf("seed payout %s: %v", number, err)
	}
}

func TestGeneratePayoutNumber(t *testing.T) {
	db := setupTestDB(t)

	for i := 1; i <= 6; i++ {
		seedPayout(t, db, fmt.Sprintf("PAYOUT-2024-%06d", i))
	}
	// A previous year's payout must not advance the 2024 sequence.
	seedPayout(t, db, "PAYOUT-2023-000042")

	at := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	number, err := GeneratePayoutNumber(db, at)
	if err != nil {
		t.Fatalf("GeneratePayoutNumber: %v", err)
	}
	if number != "PAYOUT-2024-000007" {
		t.Errorf("got %s, want PAYOUT-2024-000007", number)
	}
}

func TestGeneratePayoutNumberFirstOfYear(t *testing.T) {
	db := setupTestDB(t)

	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	number, err := GeneratePayoutNumber(db, at)
	if err != nil {
		t.Fatalf("GeneratePayoutNumber: %v", err)
	}
	if number != "PAYOUT-2025-000001" {
		t.Errorf("got %s, want PAYOUT-2025-000001", number)
	}
}

func TestGenerateInvoiceNumber(t *testing.T) {
	db := setupTestDB(t)

	invoice := models.Invoice{
		TransactionID: uuid.New(),
		InvoiceNumber: "INV-2024-000001",
		IssuedAt:      time.Now(),
	}
	if err := db.Create(&invoice).Error; err != nil {
		t.Fatalf("seed invoice: %v", err)
	}

	at := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	number, err := GenerateInvoiceNumber(db, at)
	if err != nil {
		t.Fatalf("GenerateInvoiceNumber: %v", err)
	}
	if number != "INV-2024-000002" {
		t.Errorf("got %s, want INV-2024-000002", number)
	}
}
