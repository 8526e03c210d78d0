package services

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/edupay/payment_service/models"
	"github.com/edupay/payment_service/payments"
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
		&models.AuditLog{},
	)
	if err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	return db
}

// stubGateway satisfies payments.Gateway without network calls.
type stubGateway struct {
	chargeErr   error
	refundErr   error
	transferErr error
	transfers   int
	refunds     int
}

func (g *stubGateway) Charge(amount decimal.Decimal, currency, token string, metadata map[string]string) (*payments.ChargeResult, error) {
	if g.chargeErr != nil {
		return nil, g.chargeErr
	}
	return &payments.ChargeResult{ChargeRef: "ch_" + uuid.NewString(), Status: "COMPLETED"}, nil
}

func (g *stubGateway) Refund(chargeRef string, amount decimal.Decimal, reason string) (*payments.RefundResult, error) {
	g.refunds++
	if g.refundErr != nil {
		return nil, g.refundErr
	}
	return &payments.RefundResult{RefundRef: "re_" + uuid.NewString(), Status: "COMPLETED"}, nil
}

func (g *stubGateway) Transfer(destination string, amount decimal.Decimal, currency string) (*payments.TransferResult, error) {
	g.transfers++
	if g.transferErr != nil {
		return nil, g.transferErr
	}
	return &payments.TransferResult{TransferRef: "tr_" + uuid.NewString(), Status: "SUCCESS"}, nil
}

var errGatewayDown = errors.New("gateway unavailable")

func createPayableInstructor(t *testing.T, db *gorm.DB) *models.Instructor {
	t.Helper()

	user := models.User{
		FullName: "Test Instructor",
		Email:    uuid.NewString() + "@example.com",
		Password: "x",
		Role:     "instructor",
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}

	destination := "instructor@example.com"
	method := models.PayoutMethodPayPal
	instructor := models.Instructor{
		UserID:            user.ID,
		PayoutDestination: &destination,
		PayoutMethod:      &method,
		PayoutsEnabled:    true,
	}
	if err := db.Create(&instructor).Error; err != nil {
		t.Fatalf("create instructor: %v", err)
	}
	return &instructor
}

// insertPayment seeds a completed payment row with fixed earnings so
// allocation scenarios are exact.
func insertPayment(t *testing.T, db *gorm.DB, instructorID uuid.UUID, earnings float64, createdAt time.Time) *models.Transaction {
	t.Helper()

	ref := "ch_" + uuid.NewString()
	earningsDec := decimal.NewFromFloat(earnings)
	txn := models.Transaction{
		ExternalChargeRef:  &ref,
		Amount:             earningsDec.Add(decimal.NewFromInt(10)),
		Currency:           "USD",
		Status:             models.TxnStatusCompleted,
		Kind:               models.TxnKindPayment,
		PlatformCommission: decimal.NewFromInt(10),
		InstructorEarnings: earningsDec,
		PayerID:            uuid.New(),
		CourseID:           uuid.New(),
		InstructorID:       instructorID,
		Description:        "seeded payment",
		CreatedAt:          createdAt,
	}
	if err := db.Create(&txn).Error; err != nil {
		t.Fatalf("insert payment: %v", err)
	}
	return &txn
}

func insertRefund(t *testing.T, db *gorm.DB, original *models.Transaction, earnings float64, createdAt time.Time) *models.Transaction {
	t.Helper()

	txn := models.Transaction{
		Amount:             decimal.NewFromFloat(earnings),
		Currency:           "USD",
		Status:             models.TxnStatusCompleted,
		Kind:               models.TxnKindRefund,
		PlatformCommission: decimal.Zero,
		InstructorEarnings: decimal.NewFromFloat(-earnings),
		PayerID:            original.PayerID,
		CourseID:           original.CourseID,
		InstructorID:       original.InstructorID,
		RefundOfID:         &original.ID,
		CreatedAt:          createdAt,
	}
	if err := db.Create(&txn).Error; err != nil {
		t.Fatalf("insert refund: %v", err)
	}
	return &txn
}

func newTestLedger(db *gorm.DB, gateway payments.Gateway) *LedgerService {
	return NewLedgerService(db, NewCommissionCalculator(DefaultCommissionConfig()), gateway)
}
