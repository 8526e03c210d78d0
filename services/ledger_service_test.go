package services

import (
	"errors"
	"testing"

	"github.com/edupay/payment_service/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func paymentParams(instructorID uuid.UUID, gross float64) RecordPaymentParams {
	return RecordPaymentParams{
		PayerID:           uuid.New(),
		CourseID:          uuid.New(),
		InstructorID:      instructorID,
		GrossAmount:       decimal.NewFromFloat(gross),
		Currency:          "USD",
		ExternalChargeRef: "ch_" + uuid.NewString(),
		Description:       "Course enrollment",
	}
}

func TestRecordPaymentAndBalance(t *testing.T) {
	db := setupTestDB(t)
	ledger := newTestLedger(db, &stubGateway{})
	instructor := createPayableInstructor(t, db)

	txn, err := ledger.RecordPayment(paymentParams(instructor.ID, 100))
	if err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}
	if txn.Status != models.TxnStatusCompleted {
		t.Errorf("status: got %s, want completed", txn.Status)
	}
	if got := txn.InstructorEarnings.StringFixed(2); got != "77.44" {
		t.Errorf("earnings: got %s, want 77.44", got)
	}
	if got := txn.PlatformCommission.StringFixed(2); got != "19.36" {
		t.Errorf("commission: got %s, want 19.36", got)
	}

	balance, err := ledger.GetUnsettledBalance(instructor.ID)
	if err != nil {
		t.Fatalf("GetUnsettledBalance: %v", err)
	}
	if got := balance.PendingAmount.StringFixed(2); got != "77.44" {
		t.Errorf("pending amount: got %s, want 77.44", got)
	}
	if balance.PendingTransactionCount != 1 {
		t.Errorf("pending count: got %d, want 1", balance.PendingTransactionCount)
	}
	if balance.OldestUnsettledAt == nil {
		t.Error("expected oldest unsettled timestamp to be set")
	}
}

func TestRecordPaymentDuplicateEnrollment(t *testing.T) {
	db := setupTestDB(t)
	ledger := newTestLedger(db, &stubGateway{})
	instructor := createPayableInstructor(t, db)

	params := paymentParams(instructor.ID, 50)
	if _, err := ledger.RecordPayment(params); err != nil {
		t.Fatalf("first RecordPayment: %v", err)
	}

	params.ExternalChargeRef = "ch_" + uuid.NewString()
	_, err := ledger.RecordPayment(params)
	if !errors.Is(err, ErrDuplicateEnrollment) {
		t.Errorf("second RecordPayment: got %v, want ErrDuplicateEnrollment", err)
	}
}

func TestRecordPaymentRejectsUnpayableInstructor(t *testing.T) {
	db := setupTestDB(t)
	ledger := newTestLedger(db, &stubGateway{})

	// Unknown instructor.
	_, err := ledger.RecordPayment(paymentParams(uuid.New(), 100))
	if !errors.Is(err, ErrInstructorNotPayable) {
		t.Errorf("unknown instructor: got %v, want ErrInstructorNotPayable", err)
	}

	// Known but payouts disabled.
	instructor := createPayableInstructor(t, db)
	if err := db.Model(instructor).Update("payouts_enabled", false).Error; err != nil {
		t.Fatalf("disable payouts: %v", err)
	}
	_, err = ledger.RecordPayment(paymentParams(instructor.ID, 100))
	if !errors.Is(err, ErrInstructorNotPayable) {
		t.Errorf("disabled instructor: got %v, want ErrInstructorNotPayable", err)
	}
}

func TestRecordPaymentRejectsNonPositiveAmount(t *testing.T) {
	db := setupTestDB(t)
	ledger := newTestLedger(db, &stubGateway{})
	instructor := createPayableInstructor(t, db)

	params := paymentParams(instructor.ID, 0)
	if _, err := ledger.RecordPayment(params); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("zero amount: got %v, want ErrInvalidAmount", err)
	}
}

func TestRecordRefundFull(t *testing.T) {
	db := setupTestDB(t)
	ledger := newTestLedger(db, &stubGateway{})
	instructor := createPayableInstructor(t, db)

	original, err := ledger.RecordPayment(paymentParams(instructor.ID, 100))
	if err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}

	refund, err := ledger.RecordRefund(original.ID, nil, "learner request", nil)
	if err != nil {
		t.Fatalf("RecordRefund: %v", err)
	}
	if refund.Kind != models.TxnKindRefund {
		t.Errorf("refund kind: got %s", refund.Kind)
	}
	if got := refund.InstructorEarnings.StringFixed(2); got != "-77.44" {
		t.Errorf("refund earnings: got %s, want -77.44", got)
	}
	if refund.RefundOfID == nil || *refund.RefundOfID != original.ID {
		t.Error("refund does not reference the original transaction")
	}

	var reloaded models.Transaction
	if err := db.First(&reloaded, "id = ?", original.ID).Error; err != nil {
		t.Fatalf("reload original: %v", err)
	}
	if reloaded.Status != models.TxnStatusRefunded {
		t.Errorf("original status: got %s, want refunded", reloaded.Status)
	}
	if reloaded.RefundID == nil || *reloaded.RefundID != refund.ID {
		t.Error("original does not back-reference the refund")
	}

	balance, err := ledger.GetUnsettledBalance(instructor.ID)
	if err != nil {
		t.Fatalf("GetUnsettledBalance: %v", err)
	}
	if !balance.PendingAmount.IsZero() {
		t.Errorf("balance after full refund: got %s, want 0", balance.PendingAmount)
	}

	// Refunding again must be rejected.
	if _, err := ledger.RecordRefund(original.ID, nil, "again", nil); !errors.Is(err, ErrAlreadyRefunded) {
		t.Errorf("second refund: got %v, want ErrAlreadyRefunded", err)
	}
}

func TestRecordRefundPartialScalesSplit(t *testing.T) {
	db := setupTestDB(t)
	ledger := newTestLedger(db, &stubGateway{})
	instructor := createPayableInstructor(t, db)

	original, err := ledger.RecordPayment(paymentParams(instructor.ID, 100))
	if err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}

	// 25% of the original: earnings reverse by 77.44 * 0.25 = 19.36.
	partial := decimal.NewFromInt(25)
	refund, err := ledger.RecordRefund(original.ID, &partial, "partial", nil)
	if err != nil {
		t.Fatalf("RecordRefund: %v", err)
	}
	if got := refund.InstructorEarnings.StringFixed(2); got != "-19.36" {
		t.Errorf("partial refund earnings: got %s, want -19.36", got)
	}
	if got := refund.PlatformCommission.StringFixed(2); got != "-4.84" {
		t.Errorf("partial refund commission: got %s, want -4.84", got)
	}

	balance, err := ledger.GetUnsettledBalance(instructor.ID)
	if err != nil {
		t.Fatalf("GetUnsettledBalance: %v", err)
	}
	if got := balance.PendingAmount.StringFixed(2); got != "58.08" {
		t.Errorf("balance after partial refund: got %s, want 58.08", got)
	}
}

func TestRecordRefundValidation(t *testing.T) {
	db := setupTestDB(t)
	ledger := newTestLedger(db, &stubGateway{})
	instructor := createPayableInstructor(t, db)

	if _, err := ledger.RecordRefund(uuid.New(), nil, "missing", nil); !errors.Is(err, ErrTransactionNotFound) {
		t.Errorf("missing transaction: got %v, want ErrTransactionNotFound", err)
	}

	original, err := ledger.RecordPayment(paymentParams(instructor.ID, 100))
	if err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}

	over := decimal.NewFromInt(150)
	if _, err := ledger.RecordRefund(original.ID, &over, "too much", nil); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("over-refund: got %v, want ErrInvalidAmount", err)
	}

	zero := decimal.Zero
	if _, err := ledger.RecordRefund(original.ID, &zero, "zero", nil); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("zero refund: got %v, want ErrInvalidAmount", err)
	}
}

func TestRecordRefundGatewayFailure(t *testing.T) {
	db := setupTestDB(t)
	gateway := &stubGateway{refundErr: errGatewayDown}
	ledger := newTestLedger(db, gateway)
	instructor := createPayableInstructor(t, db)

	original, err := ledger.RecordPayment(paymentParams(instructor.ID, 100))
	if err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}

	_, err = ledger.RecordRefund(original.ID, nil, "gateway down", nil)
	var gwErr *GatewayError
	if !errors.As(err, &gwErr) {
		t.Fatalf("expected GatewayError, got %v", err)
	}
	if !errors.Is(err, errGatewayDown) {
		t.Errorf("GatewayError does not wrap the cause: %v", err)
	}

	// No refund row and the original stays settleable.
	var refundCount int64
	db.Model(&models.Transaction{}).Where("kind = ?", models.TxnKindRefund).Count(&refundCount)
	if refundCount != 0 {
		t.Errorf("refund rows after gateway failure: got %d, want 0", refundCount)
	}
	var reloaded models.Transaction
	if err := db.First(&reloaded, "id = ?", original.ID).Error; err != nil {
		t.Fatalf("reload original: %v", err)
	}
	if reloaded.Status != models.TxnStatusCompleted {
		t.Errorf("original status after gateway failure: got %s, want completed", reloaded.Status)
	}
}

func TestMarkDisputedExcludesFromBalance(t *testing.T) {
	db := setupTestDB(t)
	ledger := newTestLedger(db, &stubGateway{})
	instructor := createPayableInstructor(t, db)

	first, err := ledger.RecordPayment(paymentParams(instructor.ID, 100))
	if err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}
	if _, err := ledger.RecordPayment(paymentParams(instructor.ID, 100)); err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}

	if err := ledger.MarkDisputed(first.ID, "chargeback received"); err != nil {
		t.Fatalf("MarkDisputed: %v", err)
	}

	balance, err := ledger.GetUnsettledBalance(instructor.ID)
	if err != nil {
		t.Fatalf("GetUnsettledBalance: %v", err)
	}
	if got := balance.PendingAmount.StringFixed(2); got != "77.44" {
		t.Errorf("balance with disputed row: got %s, want 77.44", got)
	}
	if balance.PendingTransactionCount != 1 {
		t.Errorf("pending count with disputed row: got %d, want 1", balance.PendingTransactionCount)
	}
}

func TestMarkDisputedOnlyCompletedPayments(t *testing.T) {
	db := setupTestDB(t)
	ledger := newTestLedger(db, &stubGateway{})

	if err := ledger.MarkDisputed(uuid.New(), "missing"); !errors.Is(err, ErrTransactionNotFound) {
		t.Errorf("missing transaction: got %v, want ErrTransactionNotFound", err)
	}
}
